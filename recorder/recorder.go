// Package recorder owns the microphone for the duration of one capture:
// it buffers PCM frames from the audio backend, and on stop flushes them
// into a finished container file handed to the pipeline.
package recorder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ducky/audio"
	"ducky/encoder"
	"ducky/log"
)

var (
	ErrDeviceUnavailable = errors.New("no audio input device available")
	ErrAlreadyRecording  = errors.New("recording already in progress")
	ErrNotRecording      = errors.New("not recording")
	ErrNoAudioCaptured   = errors.New("no audio captured")
)

// Recording describes one finished capture on disk.
type Recording struct {
	Path       string
	SampleRate int
	Channels   int
	Frames     uint64
	Duration   time.Duration
}

// LevelFunc receives the RMS level of each captured chunk, for UI meters.
type LevelFunc func(rms float64)

type Recorder struct {
	ctx     audio.Context
	dir     string
	format  string
	onLevel LevelFunc

	mu        sync.Mutex
	device    *audio.DeviceInfo
	capture   audio.CaptureDevice
	enc       encoder.Encoder
	pending   []int16
	recording bool
}

// New creates a Recorder writing finished captures into dir.
func New(ctx audio.Context, device *audio.DeviceInfo, format, dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating recordings directory: %w", err)
	}
	return &Recorder{
		ctx:    ctx,
		device: device,
		format: format,
		dir:    dir,
	}, nil
}

func (r *Recorder) SetLevelFunc(fn LevelFunc) {
	r.mu.Lock()
	r.onLevel = fn
	r.mu.Unlock()
}

// SetDevice changes the capture device used by the next StartRecording.
func (r *Recorder) SetDevice(device *audio.DeviceInfo) {
	r.mu.Lock()
	r.device = device
	r.mu.Unlock()
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// StartRecording opens the capture device and begins buffering frames.
// The device is held exclusively until StopRecording.
func (r *Recorder) StartRecording() error {
	r.mu.Lock()

	if r.recording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}

	enc, err := encoder.New(r.format)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	capture, err := r.ctx.NewCapture(r.device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	r.enc = enc
	r.capture = capture
	r.pending = r.pending[:0]
	r.recording = true
	capture.SetCallback(r.onFrames)
	// Release the lock before starting: backends may deliver the first
	// frames from inside Start.
	r.mu.Unlock()

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		r.mu.Lock()
		r.recording = false
		r.capture = nil
		r.enc = nil
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	log.Info("recording_start: " + capture.DeviceName())
	return nil
}

func (r *Recorder) onFrames(data []byte, frameCount uint32) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	enc := r.enc
	onLevel := r.onLevel

	for i := 0; i+1 < len(data); i += 2 {
		r.pending = append(r.pending, int16(binary.LittleEndian.Uint16(data[i:])))
	}
	// Encode complete blocks; the tail is flushed at stop.
	for len(r.pending) >= encoder.BlockSize {
		block := make([]int16, encoder.BlockSize)
		copy(block, r.pending[:encoder.BlockSize])
		r.pending = r.pending[encoder.BlockSize:]
		if err := enc.EncodeBlock(block); err != nil {
			log.Errorf("encode error, stopping capture: %v", err)
			r.recording = false
			break
		}
	}
	r.mu.Unlock()

	if onLevel != nil && len(data) > 1 {
		var sumSquares float64
		for i := 0; i+1 < len(data); i += 2 {
			sample := int16(binary.LittleEndian.Uint16(data[i:]))
			normalized := float64(sample) / 32768.0
			sumSquares += normalized * normalized
		}
		onLevel(math.Sqrt(sumSquares / float64(len(data)/2)))
	}
}

// StopRecording halts the capture loop, flushes buffered frames into a
// container file, and returns its descriptor. Calling it while idle
// returns ErrNotRecording; a capture with zero frames returns
// ErrNoAudioCaptured.
func (r *Recorder) StopRecording() (*Recording, error) {
	r.mu.Lock()
	if r.capture == nil {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	capture := r.capture
	enc := r.enc
	r.recording = false
	r.capture = nil
	r.enc = nil
	r.mu.Unlock()

	capture.Stop()
	capture.ClearCallback()
	capture.Close()

	r.mu.Lock()
	tail := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(tail) > 0 {
		if err := enc.EncodeBlock(tail); err != nil {
			return nil, fmt.Errorf("flushing capture buffer: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}

	frames := enc.TotalFrames()
	if frames == 0 {
		log.Info("recording_empty")
		return nil, ErrNoAudioCaptured
	}

	name := fmt.Sprintf("recording_%s.%s", time.Now().Format("20060102_150405"), enc.Ext())
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, enc.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("writing recording: %w", err)
	}

	duration := time.Duration(float64(frames) / float64(encoder.SampleRate) * float64(time.Second))
	log.Info(fmt.Sprintf("recording_stop: %s (%.1fs)", name, duration.Seconds()))

	return &Recording{
		Path:       path,
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
		Frames:     frames,
		Duration:   duration,
	}, nil
}

// Release removes a consumed recording from the temp directory.
func Release(rec *Recording) {
	if rec == nil || rec.Path == "" {
		return
	}
	if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
		log.Warnf("releasing recording: %v", err)
	}
}

// CleanupOldRecordings removes recordings older than maxAge and returns
// how many were deleted.
func (r *Recorder) CleanupOldRecordings(maxAge time.Duration) int {
	entries, err := filepath.Glob(filepath.Join(r.dir, "recording_*"))
	if err != nil {
		return 0
	}
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, path := range entries {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		log.Info(fmt.Sprintf("recordings_purged: %d", removed))
	}
	return removed
}
