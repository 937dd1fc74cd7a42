// Package config loads the assistant configuration and project metadata
// from YAML files under the ducky home directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHistoryWindow      = 10
	DefaultSentimentThreshold = 0.6
)

type APIKeys struct {
	ElevenLabs  string `yaml:"elevenlabs"`
	Gemini      string `yaml:"gemini"`
	HuggingFace string `yaml:"huggingface"`
}

type Timeouts struct {
	TranscribeS int `yaml:"transcribe_s"`
	SentimentS  int `yaml:"sentiment_s"`
	GenerateS   int `yaml:"generate_s"`
	SpeakS      int `yaml:"speak_s"`
}

type Config struct {
	Language           string  `yaml:"language"`
	HistoryWindow      int     `yaml:"history_window"`
	SentimentThreshold float64 `yaml:"sentiment_threshold"`
	TTSEnabled         bool    `yaml:"tts_enabled"`
	VoiceID            string  `yaml:"voice_id,omitempty"`
	Format             string  `yaml:"format"` // wav or flac
	RetentionHours     int     `yaml:"retention_hours"`
	LongPressMs        int     `yaml:"longpress_ms"`

	APIKeys  APIKeys  `yaml:"api_keys"`
	Timeouts Timeouts `yaml:"timeouts"`

	path string
}

func Default() *Config {
	return &Config{
		Language:           "pl",
		HistoryWindow:      DefaultHistoryWindow,
		SentimentThreshold: DefaultSentimentThreshold,
		TTSEnabled:         true,
		Format:             "wav",
		RetentionHours:     1,
		LongPressMs:        350,
		Timeouts: Timeouts{
			TranscribeS: 30,
			SentimentS:  10,
			GenerateS:   60,
			SpeakS:      60,
		},
	}
}

// Dir returns the ducky home directory, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".ducky")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// Load reads the config file at path, writing defaults on first run.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.SentimentThreshold <= 0 {
		cfg.SentimentThreshold = DefaultSentimentThreshold
	}
	switch cfg.Format {
	case "wav", "flac":
	case "":
		cfg.Format = "wav"
	default:
		return nil, fmt.Errorf("unknown recording format %q (use wav or flac)", cfg.Format)
	}
	return cfg, nil
}

func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// Key accessors prefer environment variables over the config file.

func (c *Config) ElevenLabsKey() string {
	if k := os.Getenv("ELEVENLABS_API_KEY"); k != "" {
		return k
	}
	return c.APIKeys.ElevenLabs
}

func (c *Config) GeminiKey() string {
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		return k
	}
	if k := os.Getenv("GOOGLE_API_KEY"); k != "" {
		return k
	}
	return c.APIKeys.Gemini
}

func (c *Config) HuggingFaceKey() string {
	if k := os.Getenv("HF_API_TOKEN"); k != "" {
		return k
	}
	return c.APIKeys.HuggingFace
}

func (c *Config) TranscribeTimeout() time.Duration {
	return time.Duration(c.Timeouts.TranscribeS) * time.Second
}

func (c *Config) SentimentTimeout() time.Duration {
	return time.Duration(c.Timeouts.SentimentS) * time.Second
}

func (c *Config) GenerateTimeout() time.Duration {
	return time.Duration(c.Timeouts.GenerateS) * time.Second
}

func (c *Config) SpeakTimeout() time.Duration {
	return time.Duration(c.Timeouts.SpeakS) * time.Second
}

func (c *Config) RetentionMaxAge() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

func (c *Config) LongPress() time.Duration {
	return time.Duration(c.LongPressMs) * time.Millisecond
}
