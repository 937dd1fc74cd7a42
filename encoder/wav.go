package encoder

import (
	"bytes"
	"encoding/binary"
	"sync"
)

const wavHeaderSize = 44

// WavEncoder buffers raw PCM16 samples and prepends a RIFF header on Bytes.
type WavEncoder struct {
	pcm         bytes.Buffer
	totalFrames uint64
	mu          sync.Mutex
}

func NewWav() *WavEncoder {
	return &WavEncoder{}
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw := make([]byte, len(block)*2)
	for i, s := range block {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	e.pcm.Write(raw)
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *WavEncoder) Close() error { return nil }

func (e *WavEncoder) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	dataLen := e.pcm.Len()
	out := make([]byte, 0, wavHeaderSize+dataLen)
	out = append(out, wavHeader(dataLen)...)
	out = append(out, e.pcm.Bytes()...)
	return out
}

func (e *WavEncoder) TotalFrames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFrames
}

func (e *WavEncoder) Ext() string { return "wav" }

func wavHeader(dataLen int) []byte {
	h := make([]byte, wavHeaderSize)
	byteRate := SampleRate * Channels * BitsPerSample / 8
	blockAlign := Channels * BitsPerSample / 8

	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], uint32(36+dataLen))
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(h[20:], 1)  // PCM format
	binary.LittleEndian.PutUint16(h[22:], Channels)
	binary.LittleEndian.PutUint32(h[24:], SampleRate)
	binary.LittleEndian.PutUint32(h[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(h[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:], BitsPerSample)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], uint32(dataLen))
	return h
}
