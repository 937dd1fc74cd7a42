package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	convFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: DUCKY_LOG_PATH environment variable
	envPath := os.Getenv("DUCKY_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	convPath := filepath.Join(dir, "conversation_log.txt")
	convFile, err = os.OpenFile(convPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if convFile != nil {
		convFile.Close()
		convFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Stage logs one completed pipeline stage with its wall-clock duration.
func Stage(runID, stage string, ms float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("run", runID).
		Str("stage", stage).
		Float64("ms", ms).
		Msg("stage_completed")
}

// StageFailed logs a fatal stage failure terminating the run.
func StageFailed(runID, stage string, err error) {
	if !logReady {
		return
	}
	diagLog.Error().
		Str("run", runID).
		Str("stage", stage).
		Err(err).
		Msg("stage_failed")
}

// Degraded logs a non-fatal fallback (neutral sentiment, skipped speech).
func Degraded(runID, stage string, err error) {
	if !logReady {
		return
	}
	diagLog.Warn().
		Str("run", runID).
		Str("stage", stage).
		Err(err).
		Msg("stage_degraded")
}

func Sentiment(label string, confidence float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("label", label).
		Float64("confidence", confidence).
		Msg("sentiment")
}

// Turn appends one conversation turn to the plain-text conversation log.
func Turn(role, text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, role, text)
	convFile.WriteString(line)
}

func SessionStart(sessionID, project string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", sessionID).
		Str("project", project).
		Msg("session_start")
}

func SessionEnd(sessionID string, messages int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", sessionID).
		Int("messages", messages).
		Msg("session_end")
}
