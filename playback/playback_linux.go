//go:build linux

package playback

import (
	"context"
	"fmt"

	"github.com/jfreymuth/pulse"
)

func playPCM(ctx context.Context, pcm []byte, sampleRate int) error {
	c, err := pulse.NewClient()
	if err != nil {
		return fmt.Errorf("connecting to pulseaudio: %w", err)
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil {
			return 0, pulse.EndOfData
		}
		n := 0
		for n < len(buf) && pos+1 < len(pcm) {
			buf[n] = int16(pcm[pos]) | int16(pcm[pos+1])<<8
			pos += 2
			n++
		}
		if n == 0 {
			return 0, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := c.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
	)
	if err != nil {
		return fmt.Errorf("opening playback stream: %w", err)
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()

	return ctx.Err()
}
