package provider

import "context"

// Transcript is the result of speech-to-text on one recording.
type Transcript struct {
	Text     string
	Language string
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (Transcript, error)
}

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

type SentimentResult struct {
	Label      string
	Confidence float64
	Scores     map[string]float64
}

// Neutral is the result used when no analyzer can produce one.
func Neutral() SentimentResult {
	return SentimentResult{Label: SentimentNeutral, Confidence: 0}
}

type Analyzer interface {
	Analyze(ctx context.Context, text string) (SentimentResult, error)
}

// Turn is one prior conversation message passed to the generator.
type Turn struct {
	Role    string
	Content string
}

type Generator interface {
	Generate(ctx context.Context, system string, history []Turn, userMessage string) (string, error)
}

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Player plays raw mono PCM16 audio. Implemented by the playback package.
type Player interface {
	PlayPCM(ctx context.Context, pcm []byte, sampleRate int) error
}
