package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	ttsModelID      = "eleven_multilingual_v2"
	ttsSampleRate   = 16000
	defaultVoiceID  = "EXAVITQu4vr4xnSDxMaL"
	ttsOutputFormat = "pcm_16000"
)

// ElevenLabsTTS synthesizes replies through the ElevenLabs text-to-speech
// API and plays the returned PCM through the player.
type ElevenLabsTTS struct {
	apiKey  string
	voiceID string
	baseURL string
	client  *http.Client
	player  Player
}

func NewElevenLabsTTS(apiKey string, player Player) *ElevenLabsTTS {
	return &ElevenLabsTTS{
		apiKey:  apiKey,
		voiceID: defaultVoiceID,
		baseURL: "https://api.elevenlabs.io/v1/text-to-speech",
		client:  &http.Client{Timeout: 90 * time.Second},
		player:  player,
	}
}

// SetVoice overrides the default voice.
func (e *ElevenLabsTTS) SetVoice(voiceID string) {
	if voiceID != "" {
		e.voiceID = voiceID
	}
}

func (e *ElevenLabsTTS) Speak(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": ttsModelID,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s?output_format=%s", e.baseURL, e.voiceID, ttsOutputFormat)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("elevenlabs TTS error %d: %s", resp.StatusCode, string(data))
	}
	if len(data) == 0 {
		return fmt.Errorf("elevenlabs TTS returned no audio")
	}

	return e.player.PlayPCM(ctx, data, ttsSampleRate)
}
