package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const sttModelID = "scribe_v1"

// ElevenLabsSTT transcribes recordings through the ElevenLabs
// speech-to-text API.
type ElevenLabsSTT struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewElevenLabsSTT(apiKey string) *ElevenLabsSTT {
	return &ElevenLabsSTT{
		apiKey:  apiKey,
		baseURL: "https://api.elevenlabs.io/v1/speech-to-text",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type elevenSTTResponse struct {
	Text             string `json:"text"`
	DetectedLanguage string `json:"detected_language"`
	LanguageCode     string `json:"language_code"`
}

func (e *ElevenLabsSTT) Transcribe(ctx context.Context, audioPath, language string) (Transcript, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return Transcript{}, fmt.Errorf("reading recording: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return Transcript{}, err
	}
	if _, err := part.Write(audio); err != nil {
		return Transcript{}, err
	}

	writer.WriteField("model_id", sttModelID)
	if language != "" {
		writer.WriteField("language_code", language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL, &body)
	if err != nil {
		return Transcript{}, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return Transcript{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transcript{}, err
	}
	if resp.StatusCode != 200 {
		return Transcript{}, fmt.Errorf("elevenlabs STT error %d: %s", resp.StatusCode, string(data))
	}

	var sttResp elevenSTTResponse
	if err := json.Unmarshal(data, &sttResp); err != nil {
		return Transcript{}, fmt.Errorf("elevenlabs STT response parse error: %w", err)
	}

	lang := sttResp.DetectedLanguage
	if lang == "" {
		lang = sttResp.LanguageCode
	}
	if lang == "" {
		lang = language
	}
	return Transcript{Text: sttResp.Text, Language: lang}, nil
}
