package hotkey

import "sync"

// Key identifies a key in a chord. Left and right variants of a modifier
// are collapsed to the same Key by the backend before they reach the
// detector.
type Key uint8

const (
	KeyCtrl Key = iota
	KeyShift
	KeyAlt
	KeySuper
	KeySpace
)

// Detector tracks the set of currently held keys and reports chord edges.
// It emits on activate exactly once when every chord key is held, and on
// deactivate exactly once when any chord key is released. Keys held
// alongside the chord do not block activation.
type Detector struct {
	mu      sync.Mutex
	chord   []Key
	pressed map[Key]bool
	active  bool

	activate   chan struct{}
	deactivate chan struct{}
}

func NewDetector(chord ...Key) *Detector {
	return &Detector{
		chord:      chord,
		pressed:    make(map[Key]bool),
		activate:   make(chan struct{}, 1),
		deactivate: make(chan struct{}, 1),
	}
}

// KeyDown records a key press. Auto-repeat downs for a key already held
// are ignored.
func (d *Detector) KeyDown(k Key) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pressed[k] {
		return
	}
	d.pressed[k] = true

	if !d.active && d.satisfied() {
		d.active = true
		select {
		case d.activate <- struct{}{}:
		default:
		}
	}
}

// KeyUp records a key release. Releases for keys not currently held are
// ignored.
func (d *Detector) KeyUp(k Key) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.pressed[k] {
		return
	}
	delete(d.pressed, k)

	if d.active && !d.satisfied() {
		d.active = false
		select {
		case d.deactivate <- struct{}{}:
		default:
		}
	}
}

// Reset clears all held keys, emitting a deactivate edge if the chord was
// active. Used when a backend loses key visibility (device removed, focus
// lost) and release events may never arrive.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pressed = make(map[Key]bool)
	if d.active {
		d.active = false
		select {
		case d.deactivate <- struct{}{}:
		default:
		}
	}
}

func (d *Detector) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *Detector) ActivateChan() <-chan struct{}   { return d.activate }
func (d *Detector) DeactivateChan() <-chan struct{} { return d.deactivate }

// satisfied reports whether every chord key is currently held.
// Caller holds d.mu.
func (d *Detector) satisfied() bool {
	for _, k := range d.chord {
		if !d.pressed[k] {
			return false
		}
	}
	return true
}
