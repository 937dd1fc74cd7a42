//go:build !linux

package playback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

func playPCM(ctx context.Context, pcm []byte, sampleRate int) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("initializing audio context: %w", err)
	}
	defer func() {
		mctx.Uninit()
		mctx.Free()
	}()

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = uint32(sampleRate)

	var pos atomic.Uint32
	done := make(chan struct{})
	var once sync.Once

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			p := pos.Load()
			remaining := uint32(len(pcm)) - p
			if remaining == 0 {
				for i := range out {
					out[i] = 0
				}
				once.Do(func() { close(done) })
				return
			}
			n := frameCount * 2
			if n > remaining {
				n = remaining
			}
			copy(out[:n], pcm[p:p+n])
			for i := n; i < frameCount*2; i++ {
				out[i] = 0
			}
			pos.Store(p + n)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, config, callbacks)
	if err != nil {
		return fmt.Errorf("opening playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
