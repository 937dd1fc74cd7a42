package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ducky/config"
	"ducky/log"
	"ducky/prompt"
	"ducky/provider"
	"ducky/recorder"
	"ducky/store"
)

type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageAnalyze    Stage = "analyze"
	StagePersist    Stage = "persist"
	StageGenerate   Stage = "generate"
	StageSynthesize Stage = "synthesize"
)

// StageError wraps the error that terminated a run with the stage it
// happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

type EventKind string

const (
	EventAccepted        EventKind = "accepted"
	EventStageDone       EventKind = "stage_done"
	EventEmptyTranscript EventKind = "empty_transcript"
	EventSpeakingStarted EventKind = "speaking_started"
	EventSpeakingFailed  EventKind = "speaking_failed"
	EventSpeakingDone    EventKind = "speaking_done"
	EventCompleted       EventKind = "completed"
	EventFailed          EventKind = "failed"
	EventCanceled        EventKind = "canceled"
)

// Event is one progress or terminal notification for a run. Events for a
// run are delivered in stage order.
type Event struct {
	RunID      string
	Kind       EventKind
	Stage      Stage
	Transcript string
	Sentiment  string
	Confidence float64
	Response   string
	Err        error
}

// Terminal reports whether the event ends its run.
func (e Event) Terminal() bool {
	switch e.Kind {
	case EventCompleted, EventFailed, EventCanceled, EventEmptyTranscript:
		return true
	}
	return false
}

type Timeouts struct {
	Transcribe time.Duration
	Analyze    time.Duration
	Generate   time.Duration
	Speak      time.Duration
}

// Config wires a Runner's collaborators and policy.
type Config struct {
	Transcriber provider.Transcriber
	Analyzer    provider.Analyzer
	Generator   provider.Generator
	Speaker     provider.Speaker // nil disables speech output

	Sessions *store.Store

	Language           string
	HistoryWindow      int
	SentimentThreshold float64
	Timeouts           Timeouts

	// Project returns the active project, or nil. Called once per run.
	Project func() *config.Project

	// Cleanup releases the recording once the run is done with it.
	Cleanup func(*recorder.Recording)
}

// Runner drives one recording through transcription, sentiment analysis,
// persistence, generation, and speech. At most one run is active at a
// time; Submit while busy is rejected, never queued.
type Runner struct {
	cfg    Config
	events chan Event

	mu     sync.Mutex
	runID  string
	cancel context.CancelFunc
}

var (
	ErrBusy            = errors.New("a run is already in progress")
	ErrEmptyTranscript = errors.New("nothing was said")
)

func NewRunner(cfg Config) *Runner {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 10
	}
	return &Runner{
		cfg:    cfg,
		events: make(chan Event, 32),
	}
}

// Events delivers run progress. The channel is owned by the Runner and
// never closed.
func (r *Runner) Events() <-chan Event { return r.events }

// Busy reports whether a run is currently active.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID != ""
}

// Submit accepts a finished recording and starts the run asynchronously.
// It returns ErrBusy while another run is active.
func (r *Runner) Submit(rec *recorder.Recording) (string, error) {
	r.mu.Lock()
	if r.runID != "" {
		r.mu.Unlock()
		return "", ErrBusy
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	r.runID = id
	r.cancel = cancel
	r.mu.Unlock()

	r.emit(Event{RunID: id, Kind: EventAccepted})
	go r.run(ctx, id, rec)
	return id, nil
}

// Cancel stops the active run cooperatively. The in-flight external call
// is not interrupted, but no further stage results are persisted, and the
// run slot frees immediately so a new Submit is accepted.
func (r *Runner) Cancel() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.runID = ""
	r.mu.Unlock()
}

// release frees the run slot unless Cancel already did, or a newer run
// took it.
func (r *Runner) release(id string) {
	r.mu.Lock()
	if r.runID == id {
		r.runID = ""
		if r.cancel != nil {
			r.cancel()
			r.cancel = nil
		}
	}
	r.mu.Unlock()
}

func (r *Runner) run(ctx context.Context, id string, rec *recorder.Recording) {
	defer r.release(id)
	if r.cfg.Cleanup != nil {
		defer r.cfg.Cleanup(rec)
	}

	// Transcribe. Fatal on error; empty text ends the run as a no-op.
	start := time.Now()
	tr, err := r.callTranscribe(ctx, rec)
	if err != nil {
		r.finish(ctx, id, StageTranscribe, err)
		return
	}
	text := strings.TrimSpace(tr.Text)
	if text == "" {
		log.Info("empty transcript, skipping run")
		r.emit(Event{RunID: id, Kind: EventEmptyTranscript, Err: ErrEmptyTranscript})
		return
	}
	log.Stage(id, string(StageTranscribe), msSince(start))
	if ctx.Err() != nil {
		r.emit(Event{RunID: id, Kind: EventCanceled})
		return
	}
	r.emit(Event{RunID: id, Kind: EventStageDone, Stage: StageTranscribe, Transcript: text})

	// Analyze. Never fatal: a failed analyzer degrades to neutral.
	start = time.Now()
	sent, err := r.callAnalyze(ctx, text)
	if err != nil {
		log.Degraded(id, string(StageAnalyze), err)
		sent = provider.Neutral()
	} else {
		log.Stage(id, string(StageAnalyze), msSince(start))
	}
	log.Sentiment(sent.Label, sent.Confidence)
	if ctx.Err() != nil {
		r.emit(Event{RunID: id, Kind: EventCanceled})
		return
	}
	r.emit(Event{
		RunID:      id,
		Kind:       EventStageDone,
		Stage:      StageAnalyze,
		Sentiment:  sent.Label,
		Confidence: sent.Confidence,
	})

	// The user's words reach disk before the generator is contacted, so
	// a generation failure cannot lose them.
	if _, err := r.cfg.Sessions.AppendUserMessage(text, rec.Path, sent.Label, sent.Confidence); err != nil {
		r.finish(ctx, id, StagePersist, err)
		return
	}
	r.emit(Event{RunID: id, Kind: EventStageDone, Stage: StagePersist})

	// Generate. Fatal on error; the persisted user message stays.
	start = time.Now()
	reply, err := r.callGenerate(ctx, text, sent)
	if err != nil {
		r.finish(ctx, id, StageGenerate, err)
		return
	}
	log.Stage(id, string(StageGenerate), msSince(start))
	if ctx.Err() != nil {
		r.emit(Event{RunID: id, Kind: EventCanceled})
		return
	}
	r.emit(Event{RunID: id, Kind: EventStageDone, Stage: StageGenerate, Response: reply})

	if _, err := r.cfg.Sessions.AppendAssistantMessage(reply); err != nil {
		r.finish(ctx, id, StagePersist, err)
		return
	}

	// Synthesize. A failure here still leaves the run Completed; the
	// reply text is already persisted and shown.
	if r.cfg.Speaker != nil {
		r.emit(Event{RunID: id, Kind: EventSpeakingStarted, Stage: StageSynthesize})
		start = time.Now()
		if err := r.callSpeak(ctx, reply); err != nil {
			log.Degraded(id, string(StageSynthesize), err)
			r.emit(Event{RunID: id, Kind: EventSpeakingFailed, Stage: StageSynthesize, Err: err})
		} else {
			log.Stage(id, string(StageSynthesize), msSince(start))
			r.emit(Event{RunID: id, Kind: EventSpeakingDone, Stage: StageSynthesize})
		}
	}

	r.emit(Event{RunID: id, Kind: EventCompleted, Transcript: text, Response: reply})
}

// finish emits the terminal event for a failed stage, reporting a
// cancellation instead when the run's context was cut.
func (r *Runner) finish(ctx context.Context, id string, stage Stage, err error) {
	if ctx.Err() != nil {
		r.emit(Event{RunID: id, Kind: EventCanceled})
		return
	}
	log.StageFailed(id, string(stage), err)
	r.emit(Event{RunID: id, Kind: EventFailed, Stage: stage, Err: &StageError{Stage: stage, Err: err}})
}

func (r *Runner) callTranscribe(ctx context.Context, rec *recorder.Recording) (provider.Transcript, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.Timeouts.Transcribe)
	defer cancel()
	return r.cfg.Transcriber.Transcribe(ctx, rec.Path, r.cfg.Language)
}

func (r *Runner) callAnalyze(ctx context.Context, text string) (provider.SentimentResult, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.Timeouts.Analyze)
	defer cancel()
	return r.cfg.Analyzer.Analyze(ctx, text)
}

func (r *Runner) callGenerate(ctx context.Context, text string, sent provider.SentimentResult) (string, error) {
	var project *config.Project
	if r.cfg.Project != nil {
		project = r.cfg.Project()
	}
	system := prompt.System(project, sent.Label, sent.Confidence, r.cfg.SentimentThreshold)

	// The live turn is passed separately, so it is excluded from the
	// history slice.
	var turns []provider.Turn
	for _, m := range r.cfg.Sessions.HistoryForPrompt(r.cfg.HistoryWindow, true) {
		turns = append(turns, provider.Turn{Role: string(m.Role), Content: m.Content})
	}

	ctx, cancel := withTimeout(ctx, r.cfg.Timeouts.Generate)
	defer cancel()
	return r.cfg.Generator.Generate(ctx, system, turns, text)
}

func (r *Runner) callSpeak(ctx context.Context, text string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.Timeouts.Speak)
	defer cancel()
	return r.cfg.Speaker.Speak(ctx, text)
}

func (r *Runner) emit(ev Event) {
	r.events <- ev
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
