package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const hfSentimentModel = "cardiffnlp/twitter-xlm-roberta-base-sentiment"

// HFSentiment classifies text through the Hugging Face inference API.
type HFSentiment struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewHFSentiment(token string) *HFSentiment {
	return &HFSentiment{
		token:   token,
		baseURL: "https://api-inference.huggingface.co/models/" + hfSentimentModel,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type hfScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (h *HFSentiment) Analyze(ctx context.Context, text string) (SentimentResult, error) {
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return SentimentResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", h.baseURL, bytes.NewReader(payload))
	if err != nil {
		return SentimentResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return SentimentResult{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return SentimentResult{}, err
	}
	if resp.StatusCode != 200 {
		return SentimentResult{}, fmt.Errorf("huggingface API error %d: %s", resp.StatusCode, string(data))
	}

	// The API wraps the scores in an outer array per input.
	var outer [][]hfScore
	if err := json.Unmarshal(data, &outer); err != nil {
		return SentimentResult{}, fmt.Errorf("huggingface response parse error: %w", err)
	}
	if len(outer) == 0 || len(outer[0]) == 0 {
		return SentimentResult{}, fmt.Errorf("huggingface returned no scores")
	}

	result := SentimentResult{Scores: make(map[string]float64)}
	for _, s := range outer[0] {
		label := normalizeLabel(s.Label)
		result.Scores[label] = s.Score
		if s.Score > result.Confidence {
			result.Confidence = s.Score
			result.Label = label
		}
	}
	return result, nil
}

// normalizeLabel maps model label variants (LABEL_0/1/2, cased names) to
// the canonical sentiment labels.
func normalizeLabel(label string) string {
	switch strings.ToLower(label) {
	case "label_0", "negative":
		return SentimentNegative
	case "label_1", "neutral":
		return SentimentNeutral
	case "label_2", "positive":
		return SentimentPositive
	}
	return SentimentNeutral
}
