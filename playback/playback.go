package playback

import (
	"context"
	"math"
)

const (
	cueSampleRate = 44100

	// Start cue: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End cue: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error cue: low pitch double tone
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// Player plays mono PCM16 audio through the system output: synthesized
// speech from the TTS provider and short cue tones around recording.
type Player struct {
	disabled bool

	startCue []byte
	endCue   []byte
	errorCue []byte
}

func New() *Player {
	return &Player{
		startCue: tone(startFreq, 0.2, startVolume, startDecay),
		endCue:   tone(endFreq, 0.2, endVolume, endDecay),
		errorCue: doubleTone(errorFreq, 0.08, 0.05, errorVolume, errorDecay),
	}
}

// Disable silences cue tones. Speech playback is unaffected.
func (p *Player) Disable() { p.disabled = true }

// PlayPCM plays little-endian mono PCM16 and blocks until the audio has
// drained or the context is cut.
func (p *Player) PlayPCM(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}
	return playPCM(ctx, pcm, sampleRate)
}

// CueStart plays the recording-started tone without blocking.
func (p *Player) CueStart() { p.cue(p.startCue) }

// CueEnd plays the recording-stopped tone without blocking.
func (p *Player) CueEnd() { p.cue(p.endCue) }

// CueError plays the failure double tone without blocking.
func (p *Player) CueError() { p.cue(p.errorCue) }

func (p *Player) cue(samples []byte) {
	if p.disabled {
		return
	}
	go playPCM(context.Background(), samples, cueSampleRate)
}

// tone renders a decaying sine as mono PCM16.
func tone(freq, duration, volume, decay float64) []byte {
	n := int(cueSampleRate * duration)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / cueSampleRate
		envelope := math.Exp(-t * decay)
		sample := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		buf[i*2] = byte(sample)
		buf[i*2+1] = byte(sample >> 8)
	}
	return buf
}

func doubleTone(freq, beepDur, gapDur, volume, decay float64) []byte {
	beep := tone(freq, beepDur, volume, decay)
	gap := make([]byte, int(cueSampleRate*gapDur)*2)
	result := make([]byte, 0, len(beep)*2+len(gap))
	result = append(result, beep...)
	result = append(result, gap...)
	result = append(result, beep...)
	return result
}
