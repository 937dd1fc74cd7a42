package recorder

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ducky/audio"
	"ducky/encoder"
)

func pcmBytes(samples int) []byte {
	data := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(i%500)*40))
	}
	return data
}

func newTestRecorder(t *testing.T, pcm []byte) *Recorder {
	t.Helper()
	r, err := New(audio.NewFakeContext(pcm), nil, "wav", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRecordRoundTrip(t *testing.T) {
	const samples = encoder.SampleRate / 2 // half a second
	r := newTestRecorder(t, pcmBytes(samples))

	if err := r.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if !r.Recording() {
		t.Fatal("Recording() = false after start")
	}

	rec, err := r.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if rec.Frames != samples {
		t.Errorf("Frames = %d, want %d", rec.Frames, samples)
	}
	if want := 500 * time.Millisecond; rec.Duration != want {
		t.Errorf("Duration = %v, want %v", rec.Duration, want)
	}

	data, err := os.ReadFile(rec.Path)
	if err != nil {
		t.Fatalf("reading recording: %v", err)
	}
	if string(data[:4]) != "RIFF" {
		t.Error("recording is not a WAV container")
	}
	if got := len(data) - 44; got != samples*2 {
		t.Errorf("PCM payload = %d bytes, want %d", got, samples*2)
	}
}

func TestStartWhileRecording(t *testing.T) {
	r := newTestRecorder(t, pcmBytes(1000))

	if err := r.StartRecording(); err != nil {
		t.Fatal(err)
	}
	if err := r.StartRecording(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second StartRecording = %v, want ErrAlreadyRecording", err)
	}

	// Buffer untouched by the rejected start
	rec, err := r.StopRecording()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Frames != 1000 {
		t.Errorf("Frames = %d, want 1000", rec.Frames)
	}
}

func TestStopIdempotent(t *testing.T) {
	r := newTestRecorder(t, pcmBytes(1000))

	if err := r.StartRecording(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.StopRecording(); err != nil {
		t.Fatalf("first StopRecording: %v", err)
	}
	if _, err := r.StopRecording(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("second StopRecording = %v, want ErrNotRecording", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	r := newTestRecorder(t, nil)
	if _, err := r.StopRecording(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("StopRecording = %v, want ErrNotRecording", err)
	}
}

func TestNoAudioCaptured(t *testing.T) {
	r := newTestRecorder(t, nil) // fake produces zero frames

	if err := r.StartRecording(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.StopRecording(); !errors.Is(err, ErrNoAudioCaptured) {
		t.Errorf("StopRecording = %v, want ErrNoAudioCaptured", err)
	}
}

func TestDeviceUnavailable(t *testing.T) {
	ctx := audio.NewFakeContext(nil)
	ctx.FailCaptures()
	r, err := New(ctx, nil, "wav", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.StartRecording(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("StartRecording = %v, want ErrDeviceUnavailable", err)
	}
	if r.Recording() {
		t.Error("Recording() = true after failed start")
	}
}

func TestLevelCallback(t *testing.T) {
	r := newTestRecorder(t, pcmBytes(4096))

	var levels []float64
	r.SetLevelFunc(func(rms float64) { levels = append(levels, rms) })

	if err := r.StartRecording(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.StopRecording(); err != nil {
		t.Fatal(err)
	}
	if len(levels) == 0 {
		t.Fatal("expected level callbacks during capture")
	}
	for _, l := range levels {
		if l < 0 || l > 1 {
			t.Errorf("rms %f out of range", l)
		}
	}
}

func TestCleanupOldRecordings(t *testing.T) {
	dir := t.TempDir()
	r, err := New(audio.NewFakeContext(nil), nil, "wav", dir)
	if err != nil {
		t.Fatal(err)
	}

	stale := filepath.Join(dir, "recording_old.wav")
	fresh := filepath.Join(dir, "recording_new.wav")
	for _, p := range []string{stale, fresh} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	if got := r.CleanupOldRecordings(time.Hour); got != 1 {
		t.Errorf("CleanupOldRecordings = %d, want 1", got)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale recording not removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh recording should remain")
	}
}

func TestRelease(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording_x.wav")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	Release(&Recording{Path: path})
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Release did not remove the file")
	}
	Release(nil) // no panic
}
