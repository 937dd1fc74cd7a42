// Package encoder turns buffered PCM16 capture frames into a finished
// audio container (WAV or FLAC).
package encoder

import "fmt"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	Ext() string
}

// New returns an encoder for the given container format.
func New(format string) (Encoder, error) {
	switch format {
	case "wav":
		return NewWav(), nil
	case "flac":
		return NewFlac()
	default:
		return nil, fmt.Errorf("unknown recording format %q (use wav or flac)", format)
	}
}
