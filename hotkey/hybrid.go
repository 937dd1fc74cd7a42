package hotkey

import (
	"sync/atomic"
	"time"
)

type Mode string

const (
	ModePTT    Mode = "ptt"
	ModeToggle Mode = "toggle"
)

// Hybrid wraps a Hotkey to provide tap-to-toggle and hold-to-talk on the
// same chord. A press always starts recording immediately. Releasing
// before the long-press threshold leaves recording toggled on until the
// next press+release; holding past the threshold stops on release.
type Hybrid struct {
	startCh chan struct{}
	stopCh  chan struct{}
	toggle  atomic.Bool
}

// NewHybrid builds a Hybrid controller on top of an existing Hotkey.
// longPress is the hold duration past which a press counts as
// push-to-talk rather than a tap.
func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		startCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}, 1),
	}
	go h.run(hk, longPress)
	return h
}

// Start signals when to begin recording.
func (h *Hybrid) Start() <-chan struct{} { return h.startCh }

// StopChan signals when to stop recording, for both modes.
func (h *Hybrid) StopChan() <-chan struct{} { return h.stopCh }

// Mode reports how the current or most recent recording is driven:
// push-to-talk stops on release, toggle stops on the next tap.
func (h *Hybrid) Mode() Mode {
	if h.toggle.Load() {
		return ModeToggle
	}
	return ModePTT
}

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	for {
		<-hk.Activate()
		h.toggle.Store(false)
		select {
		case h.startCh <- struct{}{}:
		default:
		}

		timer := time.NewTimer(longPress)
		select {
		case <-timer.C:
			// Held past the threshold: stop on release.
			<-hk.Deactivate()
			h.sendStop()
		case <-hk.Deactivate():
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			// Short tap: toggled on, next press+release stops.
			h.toggle.Store(true)
			<-hk.Activate()
			<-hk.Deactivate()
			h.sendStop()
		}
	}
}

func (h *Hybrid) sendStop() {
	select {
	case h.stopCh <- struct{}{}:
	default:
	}
}
