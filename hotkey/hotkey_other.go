//go:build !linux

package hotkey

import (
	"golang.design/x/hotkey"
)

// xHotkey registers the chord through the OS hotkey API, which reports
// the combination edge directly.
type xHotkey struct {
	hk         *hotkey.Hotkey
	activate   chan struct{}
	deactivate chan struct{}
	stop       chan struct{}
}

func New() Hotkey {
	return &xHotkey{
		hk:         hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeySpace),
		activate:   make(chan struct{}, 1),
		deactivate: make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-h.hk.Keydown():
				select {
				case h.activate <- struct{}{}:
				default:
				}
			case <-h.stop:
				return
			}
		}
	}()
	go func() {
		for {
			select {
			case <-h.hk.Keyup():
				select {
				case h.deactivate <- struct{}{}:
				default:
				}
			case <-h.stop:
				return
			}
		}
	}()
	return nil
}

func (h *xHotkey) Unregister() {
	close(h.stop)
	h.hk.Unregister()
}

func (h *xHotkey) Activate() <-chan struct{} {
	return h.activate
}

func (h *xHotkey) Deactivate() <-chan struct{} {
	return h.deactivate
}

func Diagnose() (string, error) {
	return "hotkey support available (Ctrl+Shift+Space)", nil
}
