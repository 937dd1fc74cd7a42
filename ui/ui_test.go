package ui

import (
	"testing"

	"ducky/pipeline"
)

func TestHappyPathStates(t *testing.T) {
	m := NewMachine()

	if got := m.RecordingStarted(); got != StateListening {
		t.Fatalf("after start: %v", got)
	}
	if got := m.RecordingStopped(); got != StateIdle {
		t.Fatalf("after stop: %v", got)
	}

	steps := []struct {
		ev   pipeline.Event
		want State
	}{
		{pipeline.Event{Kind: pipeline.EventAccepted}, StateProcessing},
		{pipeline.Event{Kind: pipeline.EventStageDone, Stage: pipeline.StageTranscribe}, StateProcessing},
		{pipeline.Event{Kind: pipeline.EventStageDone, Stage: pipeline.StageGenerate}, StateProcessing},
		{pipeline.Event{Kind: pipeline.EventSpeakingStarted}, StateSpeaking},
		{pipeline.Event{Kind: pipeline.EventSpeakingDone}, StateProcessing},
		{pipeline.Event{Kind: pipeline.EventCompleted}, StateIdle},
	}
	for i, step := range steps {
		if got := m.Apply(step.ev); got != step.want {
			t.Fatalf("step %d: got %v, want %v", i, got, step.want)
		}
	}
}

func TestFailureReturnsToIdle(t *testing.T) {
	m := NewMachine()
	m.Apply(pipeline.Event{Kind: pipeline.EventAccepted})
	if got := m.Apply(pipeline.Event{Kind: pipeline.EventFailed, Stage: pipeline.StageGenerate}); got != StateIdle {
		t.Errorf("failed run should land on idle, got %v", got)
	}

	m = NewMachine()
	m.Apply(pipeline.Event{Kind: pipeline.EventAccepted})
	if got := m.Apply(pipeline.Event{Kind: pipeline.EventEmptyTranscript}); got != StateIdle {
		t.Errorf("empty transcript should land on idle, got %v", got)
	}

	m = NewMachine()
	m.Apply(pipeline.Event{Kind: pipeline.EventAccepted})
	if got := m.Apply(pipeline.Event{Kind: pipeline.EventCanceled}); got != StateIdle {
		t.Errorf("canceled run should land on idle, got %v", got)
	}
}

func TestTerminalWhileSpeaking(t *testing.T) {
	m := NewMachine()
	m.Apply(pipeline.Event{Kind: pipeline.EventAccepted})
	m.Apply(pipeline.Event{Kind: pipeline.EventSpeakingStarted})

	// The run may be reported done while audio is still playing.
	if got := m.Apply(pipeline.Event{Kind: pipeline.EventCompleted}); got != StateSpeaking {
		t.Fatalf("should stay speaking until playback ends, got %v", got)
	}
	if got := m.Apply(pipeline.Event{Kind: pipeline.EventSpeakingDone}); got != StateIdle {
		t.Fatalf("after playback ends: %v", got)
	}
}

func TestSpeakingFailedRoutes(t *testing.T) {
	m := NewMachine()
	m.Apply(pipeline.Event{Kind: pipeline.EventAccepted})
	m.Apply(pipeline.Event{Kind: pipeline.EventSpeakingStarted})
	if got := m.Apply(pipeline.Event{Kind: pipeline.EventSpeakingFailed}); got != StateProcessing {
		t.Errorf("speak failure mid-run: %v", got)
	}
	if got := m.Apply(pipeline.Event{Kind: pipeline.EventCompleted}); got != StateIdle {
		t.Errorf("completion after speak failure: %v", got)
	}
}

// A canceled run frees the slot before its terminal event is emitted,
// so the replacement run's events can be interleaved ahead of the old
// run's tail. The stale terminal must not knock the machine to Idle.
func TestCancelThenResubmitStaysProcessing(t *testing.T) {
	m := NewMachine()
	m.Apply(pipeline.Event{RunID: "run1", Kind: pipeline.EventAccepted})
	m.Apply(pipeline.Event{RunID: "run1", Kind: pipeline.EventStageDone, Stage: pipeline.StageTranscribe})

	m.Apply(pipeline.Event{RunID: "run2", Kind: pipeline.EventAccepted})
	m.Apply(pipeline.Event{RunID: "run2", Kind: pipeline.EventStageDone, Stage: pipeline.StageTranscribe})

	if got := m.Apply(pipeline.Event{RunID: "run1", Kind: pipeline.EventCanceled}); got != StateProcessing {
		t.Fatalf("stale canceled event disturbed the active run: %v", got)
	}
	if got := m.Apply(pipeline.Event{RunID: "run2", Kind: pipeline.EventCompleted}); got != StateIdle {
		t.Fatalf("after active run completes: %v", got)
	}
}

// Stale speaking events are ignored the same way.
func TestStaleSpeakingEventsIgnored(t *testing.T) {
	m := NewMachine()
	m.Apply(pipeline.Event{RunID: "run1", Kind: pipeline.EventAccepted})
	m.Apply(pipeline.Event{RunID: "run1", Kind: pipeline.EventSpeakingStarted})

	m.Apply(pipeline.Event{RunID: "run2", Kind: pipeline.EventAccepted})
	if got := m.Apply(pipeline.Event{RunID: "run1", Kind: pipeline.EventSpeakingDone}); got != StateProcessing {
		t.Fatalf("stale speaking-done disturbed the active run: %v", got)
	}
	if got := m.Apply(pipeline.Event{RunID: "run2", Kind: pipeline.EventCompleted}); got != StateIdle {
		t.Fatalf("active run should not inherit the stale speaking flag: %v", got)
	}
}

// Replaying the same sequence always yields the same states.
func TestReplayDeterminism(t *testing.T) {
	sequence := []pipeline.Event{
		{Kind: pipeline.EventAccepted},
		{Kind: pipeline.EventStageDone, Stage: pipeline.StageTranscribe},
		{Kind: pipeline.EventStageDone, Stage: pipeline.StageAnalyze},
		{Kind: pipeline.EventStageDone, Stage: pipeline.StagePersist},
		{Kind: pipeline.EventStageDone, Stage: pipeline.StageGenerate},
		{Kind: pipeline.EventSpeakingStarted},
		{Kind: pipeline.EventCompleted},
		{Kind: pipeline.EventSpeakingDone},
	}

	run := func() []State {
		m := NewMachine()
		var states []State
		for _, ev := range sequence {
			states = append(states, m.Apply(ev))
		}
		return states
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("replay diverged at %d: %v vs %v", i, first, second)
		}
	}
	if last := first[len(first)-1]; last != StateIdle {
		t.Errorf("sequence should end idle, got %v", last)
	}
}
