package hotkey

// Hotkey delivers edge events for the global chord. Activate fires once
// when the full combination goes down, Deactivate once when it is broken.
type Hotkey interface {
	Register() error
	Unregister()
	Activate() <-chan struct{}
	Deactivate() <-chan struct{}
}
