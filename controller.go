package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"

	"ducky/config"
	"ducky/log"
	"ducky/pipeline"
	"ducky/playback"
	"ducky/recorder"
	"ducky/store"
	"ducky/ui"
)

// controller wires hotkey edges, the recorder, the pipeline, and the
// conversation store together. All its methods run on the main loop
// goroutine except consumeEvents.
type controller struct {
	rec      *recorder.Recorder
	runner   *pipeline.Runner
	player   *playback.Player
	sessions *store.Store
	projects *config.Projects
	machine  *ui.Machine

	// mu guards the machine, which is fed from both the main loop and
	// the event consumer, and the last reply.
	mu        sync.Mutex
	lastReply string
}

func newController(rec *recorder.Recorder, runner *pipeline.Runner, player *playback.Player, sessions *store.Store, projects *config.Projects) *controller {
	return &controller{
		rec:      rec,
		runner:   runner,
		player:   player,
		sessions: sessions,
		projects: projects,
		machine:  ui.NewMachine(),
	}
}

func (c *controller) projectName() string {
	if p := c.projects.Active(); p != nil {
		return p.Name
	}
	return "default"
}

func (c *controller) openSession() error {
	_, err := c.sessions.StartSession(c.projectName())
	return err
}

func (c *controller) closeSession() {
	if err := c.sessions.EndSession(); err != nil {
		log.Errorf("ending session: %v", err)
	}
}

func (c *controller) startRecording() {
	if c.rec.Recording() {
		return
	}
	if err := c.rec.StartRecording(); err != nil {
		log.Errorf("recording error: %v", err)
		c.player.CueError()
		tuiSend(ErrorMsg{Text: fmt.Sprintf("recording: %v", err)})
		return
	}
	c.player.CueStart()
	c.mu.Lock()
	state := c.machine.RecordingStarted()
	c.mu.Unlock()
	tuiSend(StateMsg{State: state})
	tuiSend(RecordingStartMsg{})
}

func (c *controller) stopAndSubmit() {
	if !c.rec.Recording() {
		return
	}
	rec, err := c.rec.StopRecording()
	c.player.CueEnd()
	c.mu.Lock()
	state := c.machine.RecordingStopped()
	c.mu.Unlock()
	tuiSend(StateMsg{State: state})
	tuiSend(RecordingStopMsg{})
	if err != nil {
		if !errors.Is(err, recorder.ErrNoAudioCaptured) {
			log.Errorf("recording error: %v", err)
			c.player.CueError()
			tuiSend(ErrorMsg{Text: fmt.Sprintf("recording: %v", err)})
		}
		return
	}

	if _, err := c.runner.Submit(rec); err != nil {
		// Busy: the previous turn is still in flight. The recording is
		// dropped, not queued.
		log.Warnf("submit rejected: %v", err)
		c.player.CueError()
		recorder.Release(rec)
		tuiSend(ErrorMsg{Text: "still processing the previous turn"})
	}
}

func (c *controller) cancelRun() {
	if !c.runner.Busy() {
		return
	}
	c.runner.Cancel()
	log.Info("run_canceled_by_user")
}

// consumeEvents projects pipeline progress onto the UI state machine and
// forwards display updates to the TUI. Runs for the process lifetime.
func (c *controller) consumeEvents() {
	for ev := range c.runner.Events() {
		c.mu.Lock()
		state := c.machine.Apply(ev)
		c.mu.Unlock()
		tuiSend(StateMsg{State: state})

		switch ev.Kind {
		case pipeline.EventStageDone:
			switch ev.Stage {
			case pipeline.StageTranscribe:
				tuiSend(TranscriptMsg{Text: ev.Transcript})
			case pipeline.StageAnalyze:
				tuiSend(SentimentMsg{Label: ev.Sentiment, Confidence: ev.Confidence})
			case pipeline.StageGenerate:
				c.mu.Lock()
				c.lastReply = ev.Response
				c.mu.Unlock()
				tuiSend(ReplyMsg{Text: ev.Response})
			}

		case pipeline.EventEmptyTranscript:
			tuiSend(NoSpeechMsg{})

		case pipeline.EventSpeakingFailed:
			tuiSend(ErrorMsg{Text: fmt.Sprintf("speech output failed: %v", ev.Err)})

		case pipeline.EventFailed:
			c.player.CueError()
			tuiSend(ErrorMsg{Text: ev.Err.Error()})

		case pipeline.EventCanceled:
			tuiSend(ErrorMsg{Text: "turn canceled"})
		}
	}
}

func (c *controller) copyLastReply() {
	c.mu.Lock()
	text := c.lastReply
	c.mu.Unlock()
	if text == "" {
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		log.Warnf("clipboard copy failed: %v", err)
		return
	}
	tuiSend(CopiedMsg{})
}

// cycleProject activates the next configured project and rotates the
// session so its messages land under the new project.
func (c *controller) cycleProject() {
	if len(c.projects.Projects) == 0 {
		tuiSend(ErrorMsg{Text: "no projects configured (edit projects.yaml)"})
		return
	}
	if c.runner.Busy() || c.rec.Recording() {
		tuiSend(ErrorMsg{Text: "cannot switch projects mid-turn"})
		return
	}

	next := c.projects.Projects[0].Name
	for i := range c.projects.Projects {
		if c.projects.Projects[i].Name == c.projects.ActiveProject {
			next = c.projects.Projects[(i+1)%len(c.projects.Projects)].Name
			break
		}
	}
	if err := c.projects.SetActive(next); err != nil {
		log.Warnf("saving active project: %v", err)
	}

	// StartSession ends the previous session before opening the new one.
	if err := c.openSession(); err != nil {
		log.Errorf("starting session: %v", err)
		tuiSend(ErrorMsg{Text: fmt.Sprintf("session: %v", err)})
		return
	}
	tuiSend(ProjectMsg{Name: next})
}
