package hotkey

import "testing"

func drainEdges(t *testing.T, d *Detector) (activations, deactivations int) {
	t.Helper()
	for {
		select {
		case <-d.ActivateChan():
			activations++
		case <-d.DeactivateChan():
			deactivations++
		default:
			return
		}
	}
}

func TestDetectorActivatesOnFullChord(t *testing.T) {
	d := NewDetector(KeyCtrl, KeyShift, KeySpace)

	d.KeyDown(KeyCtrl)
	d.KeyDown(KeyShift)
	if a, _ := drainEdges(t, d); a != 0 {
		t.Fatal("activated before chord complete")
	}

	d.KeyDown(KeySpace)
	if a, _ := drainEdges(t, d); a != 1 {
		t.Fatalf("expected 1 activation, got %d", a)
	}
	if !d.Active() {
		t.Error("detector should report active")
	}
}

func TestDetectorDeactivatesOnAnyRelease(t *testing.T) {
	d := NewDetector(KeyCtrl, KeyShift, KeySpace)
	d.KeyDown(KeyCtrl)
	d.KeyDown(KeyShift)
	d.KeyDown(KeySpace)
	drainEdges(t, d)

	d.KeyUp(KeyShift)
	if _, de := drainEdges(t, d); de != 1 {
		t.Fatal("expected deactivation when a chord key is released")
	}
	if d.Active() {
		t.Error("detector should no longer be active")
	}

	// Releasing the rest must not emit again.
	d.KeyUp(KeyCtrl)
	d.KeyUp(KeySpace)
	if _, de := drainEdges(t, d); de != 0 {
		t.Error("deactivate emitted more than once for a single break")
	}
}

func TestDetectorAutoRepeatIgnored(t *testing.T) {
	d := NewDetector(KeyCtrl, KeySpace)
	d.KeyDown(KeyCtrl)
	d.KeyDown(KeySpace)
	drainEdges(t, d)

	// OS auto-repeat delivers extra downs for held keys.
	d.KeyDown(KeySpace)
	d.KeyDown(KeySpace)
	if a, _ := drainEdges(t, d); a != 0 {
		t.Error("auto-repeat caused re-activation")
	}
}

func TestDetectorReactivatesAfterPartialRelease(t *testing.T) {
	d := NewDetector(KeyCtrl, KeySpace)
	d.KeyDown(KeyCtrl)
	d.KeyDown(KeySpace)
	drainEdges(t, d)

	d.KeyUp(KeySpace)
	drainEdges(t, d)

	// Ctrl still held: pressing space again completes the chord again.
	d.KeyDown(KeySpace)
	if a, _ := drainEdges(t, d); a != 1 {
		t.Fatalf("expected re-activation, got %d", a)
	}
}

func TestDetectorExtraKeysDoNotBlock(t *testing.T) {
	d := NewDetector(KeyCtrl, KeySpace)
	d.KeyDown(KeyAlt)
	d.KeyDown(KeyCtrl)
	d.KeyDown(KeySpace)
	if a, _ := drainEdges(t, d); a != 1 {
		t.Fatal("extra held key blocked activation")
	}

	// Releasing the extra key must not break the chord.
	d.KeyUp(KeyAlt)
	if _, de := drainEdges(t, d); de != 0 {
		t.Error("releasing a non-chord key deactivated")
	}
}

func TestDetectorSpuriousReleaseIgnored(t *testing.T) {
	d := NewDetector(KeyCtrl, KeySpace)
	d.KeyUp(KeySpace)
	if _, de := drainEdges(t, d); de != 0 {
		t.Error("release of an unheld key emitted an edge")
	}
}

func TestDetectorReset(t *testing.T) {
	d := NewDetector(KeyCtrl, KeySpace)
	d.KeyDown(KeyCtrl)
	d.KeyDown(KeySpace)
	drainEdges(t, d)

	d.Reset()
	if _, de := drainEdges(t, d); de != 1 {
		t.Fatal("reset while active should emit deactivate")
	}
	if d.Active() {
		t.Error("detector still active after reset")
	}

	// Second reset is a no-op.
	d.Reset()
	if _, de := drainEdges(t, d); de != 0 {
		t.Error("idle reset emitted an edge")
	}
}
