package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ducky/ui"
)

// TUI message types
type RecordingStartMsg struct{}
type RecordingStopMsg struct{}
type AudioLevelMsg struct{ Level float64 }
type StateMsg struct{ State ui.State }
type TranscriptMsg struct{ Text string }
type SentimentMsg struct {
	Label      string
	Confidence float64
}
type ReplyMsg struct{ Text string }
type NoSpeechMsg struct{}
type ErrorMsg struct{ Text string }
type ProjectMsg struct{ Name string }
type ModeLineMsg struct{ Text string }
type DeviceLineMsg struct{ Text string }
type CopiedMsg struct{}
type HybridHelpMsg struct{ Enabled bool }
type tickMsg time.Time

type tuiModel struct {
	state         ui.State
	frame         int
	recordStart   time.Time
	audioLevel    float64
	peakLevel     float64
	width, height int

	project    string
	modeLine   string
	deviceLine string
	hybrid     bool

	turnCount  int
	transcript string
	sentiment  string
	confidence float64
	reply      string
	errText    string
	copied     bool
	noSpeech   bool
}

var (
	tuiProgram   *tea.Program
	tuiMu        sync.Mutex
	tuiReady     = make(chan struct{})
	tuiReadyOnce sync.Once
)

var (
	styleDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleFaint    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleHelpKey  = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	styleRec      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleBusy     = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	styleSpeak    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleUser     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleDuck     = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleDuckDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("100"))
	styleErr      = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleCopied   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleTitle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	styleMeterOn  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleMeterOff = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

func NewTUIProgram() *tea.Program {
	m := tuiModel{state: ui.StateIdle}
	return tea.NewProgram(m, tea.WithAltScreen())
}

// tuiSend delivers a message to the TUI if one is running.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	tuiReadyOnce.Do(func() { close(tuiReady) })
	return tuiTick()
}

// request pushes a key-triggered action to the main loop without ever
// blocking the render goroutine.
func request(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "c":
			request(copyReplyChan)
		case "p":
			request(projectCycleChan)
		case "x":
			request(cancelRunChan)
		case "ctrl+g":
			request(deviceSelectChan)
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case StateMsg:
		m.state = msg.State

	case RecordingStartMsg:
		m.recordStart = time.Now()
		m.audioLevel = 0
		m.peakLevel = 0
		m.errText = ""
		m.noSpeech = false

	case RecordingStopMsg:
		m.audioLevel = 0

	case AudioLevelMsg:
		if m.state == ui.StateListening {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
			if msg.Level > m.peakLevel {
				m.peakLevel = msg.Level
			}
		}

	case TranscriptMsg:
		m.turnCount++
		m.transcript = msg.Text
		m.reply = ""
		m.sentiment = ""
		m.copied = false
		m.noSpeech = false
		m.errText = ""

	case SentimentMsg:
		m.sentiment = msg.Label
		m.confidence = msg.Confidence

	case ReplyMsg:
		m.reply = msg.Text

	case NoSpeechMsg:
		m.noSpeech = true

	case ErrorMsg:
		m.errText = msg.Text

	case ProjectMsg:
		m.project = msg.Name

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case CopiedMsg:
		m.copied = true

	case HybridHelpMsg:
		m.hybrid = msg.Enabled
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const leftWidth = 34
	left := m.renderStatus()
	right := m.renderConversation(m.width - leftWidth - 1)

	leftPanel := lipgloss.NewStyle().
		Width(leftWidth).
		Height(m.height).
		Render(left)
	rightPanel := lipgloss.NewStyle().
		Width(m.width - leftWidth - 1).
		Height(m.height).
		PaddingLeft(1).
		Render(right)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m tuiModel) renderStatus() string {
	var b strings.Builder

	b.WriteString("\n" + renderDuck(m.state, m.frame) + "\n")

	switch m.state {
	case ui.StateListening:
		b.WriteString(styleRec.Render(fmt.Sprintf("● REC %.1fs", time.Since(m.recordStart).Seconds())) + "\n")
		b.WriteString(renderMeter(m.audioLevel) + "\n")
		if time.Since(m.recordStart) > time.Second && m.peakLevel < 0.02 {
			b.WriteString(styleErr.Render("⚠ no voice detected") + "\n")
		}
	case ui.StateProcessing:
		dots := strings.Repeat(".", m.frame%4)
		b.WriteString(styleBusy.Render("◌ THINKING"+dots) + "\n")
		b.WriteString(styleFaint.Render("  x to cancel") + "\n")
	case ui.StateSpeaking:
		b.WriteString(styleSpeak.Render("♪ SPEAKING") + "\n\n")
	default:
		b.WriteString(styleDim.Render("○ STANDBY") + "\n\n")
	}
	b.WriteString("\n")

	if m.project != "" {
		b.WriteString(styleDim.Render("project: "+m.project+" (p)") + "\n")
	}
	if m.modeLine != "" {
		b.WriteString(styleDim.Render(m.modeLine) + "\n")
	}
	if m.deviceLine != "" {
		b.WriteString(styleDim.Render(m.deviceLine) + "\n")
	}
	b.WriteString("\n")

	if m.hybrid {
		b.WriteString(styleHelpKey.Render("Ctrl+Shift+Space") + styleFaint.Render(" hold or tap to talk") + "\n")
	} else {
		b.WriteString(styleHelpKey.Render("Ctrl+Shift+Space") + styleFaint.Render(" hold to talk") + "\n")
	}
	b.WriteString(styleFaint.Render("c copy reply · q quit") + "\n")
	b.WriteString(styleFaint.Render("ducky "+version) + "\n")

	return b.String()
}

func (m tuiModel) renderConversation(width int) string {
	wrapWidth := width - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	var b strings.Builder

	if m.errText != "" {
		b.WriteString(styleErr.Render(wrapJoin(m.errText, wrapWidth)) + "\n\n")
	}
	if m.noSpeech {
		b.WriteString(styleErr.Render("(nothing heard)") + "\n\n")
	}

	if m.transcript == "" {
		b.WriteString(styleDim.Render("Hold the hotkey and talk through your problem."))
		return b.String()
	}

	title := fmt.Sprintf("Turn #%d", m.turnCount)
	if m.sentiment != "" {
		title += fmt.Sprintf("  [%s %.0f%%]", m.sentiment, m.confidence*100)
	}
	b.WriteString(styleTitle.Render(title) + "\n\n")

	b.WriteString(styleDim.Render("you:") + "\n")
	for _, line := range wrapText(m.transcript, wrapWidth) {
		b.WriteString(styleUser.Render(line) + "\n")
	}
	b.WriteString("\n")

	if m.reply != "" {
		b.WriteString(styleDim.Render("ducky:") + "\n")
		lines := wrapText(m.reply, wrapWidth)
		for i, line := range lines {
			b.WriteString(styleDuck.Render(line))
			if i == len(lines)-1 && m.copied {
				b.WriteString(" " + styleCopied.Render("[✓ copied]"))
			}
			b.WriteString("\n")
		}
	} else if m.state == ui.StateProcessing {
		b.WriteString(styleDim.Render("ducky is thinking..."))
	}

	return b.String()
}

var duckFrames = [2]string{
	"   __\n <(o )___\n  ( ._> /\n   `---'",
	"   __\n <(- )___\n  ( ._> /\n   `---'",
}

// renderDuck draws the mascot; it blinks while idle and brightens while
// the assistant is listening or speaking.
func renderDuck(state ui.State, frame int) string {
	art := duckFrames[0]
	style := styleDuckDim
	switch state {
	case ui.StateListening, ui.StateSpeaking:
		style = styleDuck
	case ui.StateProcessing:
		if frame%2 == 0 {
			art = duckFrames[1]
		}
	default:
		if frame%30 == 0 {
			art = duckFrames[1]
		}
	}

	var b strings.Builder
	for _, line := range strings.Split(art, "\n") {
		b.WriteString(style.Render(line) + "\n")
	}
	return b.String()
}

func renderMeter(level float64) string {
	const slots = 20
	filled := int(level * 3 * slots)
	if filled > slots {
		filled = slots
	}
	return styleMeterOn.Render(strings.Repeat("█", filled)) +
		styleMeterOff.Render(strings.Repeat("░", slots-filled))
}

func wrapJoin(text string, width int) string {
	return strings.Join(wrapText(text, width), "\n")
}

// wrapText splits on rune boundaries so multibyte text never tears.
func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	runes := []rune(text)
	var lines []string
	for len(runes) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if runes[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(runes[:splitAt]))
		runes = runes[splitAt:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}
