package provider

import (
	"context"
	"sync"
)

type FakeTranscriber struct {
	Text string
	Err  error

	mu    sync.Mutex
	calls []string
}

func (f *FakeTranscriber) Transcribe(ctx context.Context, audioPath, language string) (Transcript, error) {
	if err := ctx.Err(); err != nil {
		return Transcript{}, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, audioPath)
	f.mu.Unlock()
	if f.Err != nil {
		return Transcript{}, f.Err
	}
	return Transcript{Text: f.Text, Language: language}, nil
}

func (f *FakeTranscriber) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type FakeAnalyzer struct {
	Result SentimentResult
	Err    error

	mu    sync.Mutex
	calls int
}

func (f *FakeAnalyzer) Analyze(ctx context.Context, text string) (SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return SentimentResult{}, err
	}
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.Err != nil {
		return SentimentResult{}, f.Err
	}
	return f.Result, nil
}

func (f *FakeAnalyzer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type FakeGenerator struct {
	Reply string
	Err   error

	// Block, when set, holds Generate until the context is done.
	Block bool

	mu         sync.Mutex
	lastSystem string
	lastTurns  []Turn
	lastUser   string
}

func (f *FakeGenerator) Generate(ctx context.Context, system string, history []Turn, userMessage string) (string, error) {
	f.mu.Lock()
	f.lastSystem = system
	f.lastTurns = append([]Turn(nil), history...)
	f.lastUser = userMessage
	f.mu.Unlock()

	if f.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Reply, nil
}

func (f *FakeGenerator) LastPrompt() (system string, history []Turn, user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSystem, f.lastTurns, f.lastUser
}

type FakeSpeaker struct {
	Err error

	mu     sync.Mutex
	spoken []string
}

func (f *FakeSpeaker) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	return f.Err
}

func (f *FakeSpeaker) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

type FakePlayer struct {
	Err error

	mu     sync.Mutex
	played [][]byte
	rates  []int
}

func (f *FakePlayer) PlayPCM(ctx context.Context, pcm []byte, sampleRate int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.played = append(f.played, append([]byte(nil), pcm...))
	f.rates = append(f.rates, sampleRate)
	f.mu.Unlock()
	return f.Err
}

func (f *FakePlayer) Played() ([][]byte, []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.played, f.rates
}
