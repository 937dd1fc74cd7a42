package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ducky/log"
)

var ErrNoSession = errors.New("no active session")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn. User turns may carry the stored
// audio path and the detected sentiment.
type Message struct {
	Role                Role    `json:"role"`
	Content             string  `json:"content"`
	Timestamp           string  `json:"timestamp"`
	AudioPath           string  `json:"audio_path,omitempty"`
	Sentiment           string  `json:"sentiment,omitempty"`
	SentimentConfidence float64 `json:"sentiment_confidence,omitempty"`
}

// Session groups the turns of one run of the app for one project.
type Session struct {
	SessionID   string    `json:"session_id"`
	ProjectName string    `json:"project_name"`
	StartedAt   string    `json:"started_at"`
	EndedAt     string    `json:"ended_at,omitempty"`
	Messages    []Message `json:"messages"`
}

// Store persists sessions under baseDir:
//
//	conversations/
//	    {project}/
//	        sessions/{session_id}.json
//	        audio/{timestamp}.{ext}
//
// Every append writes the whole session file through to disk.
type Store struct {
	mu      sync.Mutex
	baseDir string
	current *Session
	project string
	now     func() time.Time
}

func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	return &Store{baseDir: baseDir, now: time.Now}, nil
}

// StartSession begins a new session for the project, ending the current
// one first if any.
func (s *Store) StartSession(project string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		if err := s.endLocked(); err != nil {
			return Session{}, err
		}
	}

	now := s.now()
	s.current = &Session{
		SessionID:   now.Format("20060102_150405"),
		ProjectName: project,
		StartedAt:   now.Format(time.RFC3339),
	}
	s.project = project

	log.SessionStart(s.current.SessionID, project)
	// The empty session reaches disk immediately, so a crash before the
	// first turn still leaves a record of it.
	return *s.current, s.saveLocked(s.current)
}

// EndSession stamps and writes out the current session. It is a no-op
// when no session is active.
func (s *Store) EndSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.endLocked()
}

func (s *Store) endLocked() error {
	s.current.EndedAt = s.now().Format(time.RFC3339)
	err := s.saveLocked(s.current)
	log.SessionEnd(s.current.SessionID, len(s.current.Messages))
	s.current = nil
	return err
}

// Current returns a snapshot of the active session, or false when idle.
func (s *Store) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Session{}, false
	}
	snap := *s.current
	snap.Messages = append([]Message(nil), s.current.Messages...)
	return snap, true
}

// AppendUserMessage records a user turn and writes the session through to
// disk. The recording at audioPath, if present, is copied into the
// project's audio directory first. On a write failure the turn stays in
// memory and the error is returned.
func (s *Store) AppendUserMessage(content, audioPath, sentiment string, confidence float64) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Message{}, ErrNoSession
	}

	stored := ""
	if audioPath != "" {
		if p, err := s.storeAudioLocked(audioPath); err != nil {
			log.Warnf("could not store recording: %v", err)
		} else {
			stored = p
		}
	}

	msg := Message{
		Role:                RoleUser,
		Content:             content,
		Timestamp:           s.now().Format(time.RFC3339),
		AudioPath:           stored,
		Sentiment:           sentiment,
		SentimentConfidence: confidence,
	}
	s.current.Messages = append(s.current.Messages, msg)
	log.Turn(string(RoleUser), content)

	return msg, s.saveLocked(s.current)
}

// AppendAssistantMessage records an assistant turn and writes the session
// through to disk.
func (s *Store) AppendAssistantMessage(content string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Message{}, ErrNoSession
	}

	msg := Message{
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: s.now().Format(time.RFC3339),
	}
	s.current.Messages = append(s.current.Messages, msg)
	log.Turn(string(RoleAssistant), content)

	return msg, s.saveLocked(s.current)
}

// HistoryForPrompt returns up to maxMessages of the most recent turns.
// With excludeLast the newest turn is left out, so a caller that has
// already appended the current user message does not see it twice.
func (s *Store) HistoryForPrompt(maxMessages int, excludeLast bool) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	msgs := s.current.Messages
	if excludeLast && len(msgs) > 0 {
		msgs = msgs[:len(msgs)-1]
	}
	if maxMessages > 0 && len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	return append([]Message(nil), msgs...)
}

// LoadSession reads a stored session back from disk.
func (s *Store) LoadSession(project, sessionID string) (Session, error) {
	path := filepath.Join(s.sessionsDir(project), sessionID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("parsing session %s: %w", sessionID, err)
	}
	return sess, nil
}

// ListSessions returns the session IDs stored for a project, newest first.
func (s *Store) ListSessions(project string) ([]string, error) {
	entries, err := os.ReadDir(s.sessionsDir(project))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".json"); ok {
			ids = append(ids, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

type ProjectStats struct {
	ProjectName     string
	TotalSessions   int
	TotalMessages   int
	TotalAudioFiles int
}

func (s *Store) ProjectStats(project string) (ProjectStats, error) {
	ids, err := s.ListSessions(project)
	if err != nil {
		return ProjectStats{}, err
	}

	stats := ProjectStats{ProjectName: project, TotalSessions: len(ids)}
	for _, id := range ids {
		sess, err := s.LoadSession(project, id)
		if err != nil {
			continue
		}
		stats.TotalMessages += len(sess.Messages)
	}

	if entries, err := os.ReadDir(s.audioDir(project)); err == nil {
		stats.TotalAudioFiles = len(entries)
	}
	return stats, nil
}

func (s *Store) saveLocked(sess *Session) error {
	dir := s.sessionsDir(sess.ProjectName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating sessions dir: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	path := filepath.Join(dir, sess.SessionID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

func (s *Store) storeAudioLocked(src string) (string, error) {
	dir := s.audioDir(s.project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	now := s.now()
	name := fmt.Sprintf("%s_%06d%s", now.Format("20060102_150405"), now.Nanosecond()/1000, filepath.Ext(src))
	dst := filepath.Join(dir, name)
	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (s *Store) projectDir(project string) string {
	return filepath.Join(s.baseDir, sanitizeProject(project))
}

func (s *Store) sessionsDir(project string) string {
	return filepath.Join(s.projectDir(project), "sessions")
}

func (s *Store) audioDir(project string) string {
	return filepath.Join(s.projectDir(project), "audio")
}

// sanitizeProject keeps project directory names filesystem safe.
func sanitizeProject(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
