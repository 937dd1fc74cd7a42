package hotkey

type FakeHotkey struct {
	activate   chan struct{}
	deactivate chan struct{}
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{
		activate:   make(chan struct{}, 1),
		deactivate: make(chan struct{}, 1),
	}
}

func (f *FakeHotkey) Register() error { return nil }
func (f *FakeHotkey) Unregister()     {}

func (f *FakeHotkey) Activate() <-chan struct{}   { return f.activate }
func (f *FakeHotkey) Deactivate() <-chan struct{} { return f.deactivate }

func (f *FakeHotkey) SimPress()   { f.activate <- struct{}{} }
func (f *FakeHotkey) SimRelease() { f.deactivate <- struct{}{} }
