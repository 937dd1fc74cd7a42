package ui

import "ducky/pipeline"

type State int

const (
	StateIdle State = iota
	StateListening
	StateProcessing
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	}
	return "idle"
}

// Machine projects capture and pipeline events onto the visual state. It
// holds no business state and is fully determined by the event sequence
// applied to it. Not safe for concurrent use; feed it from one goroutine.
type Machine struct {
	state     State
	runID     string
	runActive bool
	speaking  bool
}

func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

func (m *Machine) State() State { return m.state }

// RecordingStarted marks the capture loop live.
func (m *Machine) RecordingStarted() State {
	m.state = StateListening
	return m.state
}

// RecordingStopped ends listening. The state rests at Idle until the
// pipeline accepts the recording.
func (m *Machine) RecordingStopped() State {
	if m.state == StateListening {
		m.state = StateIdle
	}
	return m.state
}

// Apply folds one pipeline event into the state.
func (m *Machine) Apply(ev pipeline.Event) State {
	// A canceled run winds down after its slot is freed, so its tail
	// events can arrive after a replacement run was accepted. They must
	// not disturb the replacement's state.
	if ev.Kind != pipeline.EventAccepted && ev.RunID != m.runID {
		return m.state
	}

	switch ev.Kind {
	case pipeline.EventAccepted:
		m.runID = ev.RunID
		m.runActive = true
		m.speaking = false
		m.state = StateProcessing

	case pipeline.EventStageDone:
		if m.runActive && !m.speaking {
			m.state = StateProcessing
		}

	case pipeline.EventSpeakingStarted:
		m.speaking = true
		m.state = StateSpeaking

	case pipeline.EventSpeakingDone, pipeline.EventSpeakingFailed:
		m.speaking = false
		if m.runActive {
			m.state = StateProcessing
		} else {
			m.state = StateIdle
		}

	case pipeline.EventCompleted, pipeline.EventFailed, pipeline.EventCanceled, pipeline.EventEmptyTranscript:
		m.runActive = false
		// Speech may outlive the run; stay visibly speaking until it ends.
		if m.speaking {
			m.state = StateSpeaking
		} else {
			m.state = StateIdle
		}
	}
	return m.state
}
