package audio

import (
	"errors"
	"sync"
)

// FakeContext is an in-memory capture backend for tests. Each capture it
// vends replays the configured PCM bytes once, in fixed-size chunks,
// when Start is called.
type FakeContext struct {
	pcm        []byte
	devices    []DeviceInfo
	captureErr error
}

func NewFakeContext(pcm []byte) *FakeContext {
	return &FakeContext{
		pcm:     pcm,
		devices: []DeviceInfo{{ID: "fake0", Name: "fake mic"}},
	}
}

// FailCaptures makes every subsequent NewCapture call fail, simulating a
// missing input device.
func (f *FakeContext) FailCaptures() {
	f.captureErr = errors.New("no capture device")
	f.devices = nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return f.devices, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return &FakeCapture{pcm: f.pcm}, nil
}

type FakeCapture struct {
	pcm []byte

	mu      sync.Mutex
	cb      DataCallback
	started bool
}

const fakeChunkBytes = 2048

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake mic" }

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	cb := f.cb
	f.started = true
	f.mu.Unlock()

	if cb == nil {
		return nil
	}
	for pos := 0; pos < len(f.pcm); pos += fakeChunkBytes {
		end := pos + fakeChunkBytes
		if end > len(f.pcm) {
			end = len(f.pcm)
		}
		chunk := make([]byte, end-pos)
		copy(chunk, f.pcm[pos:end])
		cb(chunk, uint32(len(chunk)/2))
	}
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {}

func (f *FakeCapture) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}
