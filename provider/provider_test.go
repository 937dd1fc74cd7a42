package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestRecording(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rec.wav")
	if err := os.WriteFile(path, []byte("RIFFfake"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestElevenLabsSTT(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "key-123" {
			t.Errorf("missing api key header")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		if got := r.FormValue("model_id"); got != sttModelID {
			t.Errorf("model_id = %q", got)
		}
		if got := r.FormValue("language_code"); got != "pl" {
			t.Errorf("language_code = %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("file part missing: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"text":              "dzień dobry",
			"detected_language": "pl",
		})
	}))
	defer srv.Close()

	stt := NewElevenLabsSTT("key-123")
	stt.baseURL = srv.URL

	tr, err := stt.Transcribe(context.Background(), writeTestRecording(t), "pl")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Text != "dzień dobry" || tr.Language != "pl" {
		t.Errorf("unexpected transcript: %+v", tr)
	}
}

func TestElevenLabsSTTAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	stt := NewElevenLabsSTT("bad")
	stt.baseURL = srv.URL

	if _, err := stt.Transcribe(context.Background(), writeTestRecording(t), ""); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestElevenLabsSTTMissingFile(t *testing.T) {
	stt := NewElevenLabsSTT("key")
	if _, err := stt.Transcribe(context.Background(), "/nonexistent.wav", ""); err == nil {
		t.Fatal("expected error for missing recording")
	}
}

func TestGeminiRequestShape(t *testing.T) {
	var captured geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, geminiModel+":generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "gk" {
			t.Errorf("missing key query param")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"A co już "},{"text":"sprawdziłeś?"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini("gk")
	g.baseURL = srv.URL

	history := []Turn{
		{Role: "user", Content: "mam problem"},
		{Role: "assistant", Content: "opowiedz więcej"},
	}
	reply, err := g.Generate(context.Background(), "jesteś mentorem", history, "nie działa import")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "A co już sprawdziłeś?" {
		t.Errorf("unexpected reply %q", reply)
	}

	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "jesteś mentorem" {
		t.Error("system instruction not forwarded")
	}
	if len(captured.Contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(captured.Contents))
	}
	if captured.Contents[0].Role != "user" || captured.Contents[1].Role != "model" {
		t.Errorf("assistant turn not mapped to model role: %+v", captured.Contents)
	}
	if captured.Contents[2].Role != "user" || captured.Contents[2].Parts[0].Text != "nie działa import" {
		t.Errorf("current message not last: %+v", captured.Contents[2])
	}
	if captured.GenerationConfig.Temperature != 0.7 || captured.GenerationConfig.MaxOutputTokens != 1024 {
		t.Errorf("unexpected generation config: %+v", captured.GenerationConfig)
	}
}

func TestGeminiNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g := NewGemini("gk")
	g.baseURL = srv.URL
	if _, err := g.Generate(context.Background(), "", nil, "hej"); err == nil {
		t.Fatal("expected error on empty candidates")
	}
}

func TestHFSentiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer hf-tok" {
			t.Errorf("missing bearer token")
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["inputs"] == "" {
			t.Error("inputs not sent")
		}
		w.Write([]byte(`[[{"label":"LABEL_2","score":0.91},{"label":"LABEL_1","score":0.06},{"label":"LABEL_0","score":0.03}]]`))
	}))
	defer srv.Close()

	hf := NewHFSentiment("hf-tok")
	hf.baseURL = srv.URL

	res, err := hf.Analyze(context.Background(), "działa świetnie")
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != SentimentPositive || res.Confidence != 0.91 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Scores[SentimentNegative] != 0.03 {
		t.Errorf("scores not mapped: %+v", res.Scores)
	}
}

func TestHFSentimentModelLoading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model is loading"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	hf := NewHFSentiment("hf-tok")
	hf.baseURL = srv.URL
	if _, err := hf.Analyze(context.Background(), "hej"); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestKeywordAnalyzer(t *testing.T) {
	k := NewKeywordAnalyzer()

	res, _ := k.Analyze(context.Background(), "Działa świetnie, udało się!")
	if res.Label != SentimentPositive {
		t.Errorf("expected positive, got %+v", res)
	}
	if res.Confidence <= 0.5 || res.Confidence > 0.9 {
		t.Errorf("confidence out of range: %v", res.Confidence)
	}

	res, _ = k.Analyze(context.Background(), "kurde, nie działa, znowu błąd")
	if res.Label != SentimentNegative {
		t.Errorf("expected negative, got %+v", res)
	}

	res, _ = k.Analyze(context.Background(), "kompiluję moduł płatności")
	if res.Label != SentimentNeutral || res.Confidence != 0.5 {
		t.Errorf("expected neutral 0.5, got %+v", res)
	}
}

func TestFallbackAnalyzer(t *testing.T) {
	fb := &FallbackAnalyzer{
		Primary:  &FakeAnalyzer{Err: errors.New("api down")},
		Fallback: NewKeywordAnalyzer(),
	}
	res, err := fb.Analyze(context.Background(), "super, działa")
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != SentimentPositive {
		t.Errorf("fallback not used: %+v", res)
	}

	fb.Primary = &FakeAnalyzer{Result: SentimentResult{Label: SentimentNegative, Confidence: 0.8}}
	res, _ = fb.Analyze(context.Background(), "super, działa")
	if res.Label != SentimentNegative {
		t.Error("primary result not preferred")
	}
}

func TestElevenLabsTTS(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "key-123" {
			t.Errorf("missing api key header")
		}
		if got := r.URL.Query().Get("output_format"); got != ttsOutputFormat {
			t.Errorf("output_format = %q", got)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "cześć" || body["model_id"] != ttsModelID {
			t.Errorf("unexpected body: %v", body)
		}
		w.Write(pcm)
	}))
	defer srv.Close()

	player := &FakePlayer{}
	tts := NewElevenLabsTTS("key-123", player)
	tts.baseURL = srv.URL

	if err := tts.Speak(context.Background(), "cześć"); err != nil {
		t.Fatal(err)
	}
	played, rates := player.Played()
	if len(played) != 1 || string(played[0]) != string(pcm) {
		t.Errorf("pcm not played: %v", played)
	}
	if rates[0] != ttsSampleRate {
		t.Errorf("sample rate = %d", rates[0])
	}
}

func TestElevenLabsTTSVoiceOverride(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte{0, 0})
	}))
	defer srv.Close()

	tts := NewElevenLabsTTS("key", &FakePlayer{})
	tts.baseURL = srv.URL
	tts.SetVoice("custom-voice")
	tts.SetVoice("") // empty override keeps the current voice

	if err := tts.Speak(context.Background(), "hej"); err != nil {
		t.Fatal(err)
	}
	if path != "/custom-voice" {
		t.Errorf("request path = %q, want /custom-voice", path)
	}
}

func TestElevenLabsTTSEmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	tts := NewElevenLabsTTS("key", &FakePlayer{})
	tts.baseURL = srv.URL
	if err := tts.Speak(context.Background(), "hej"); err == nil {
		t.Fatal("expected error on empty audio")
	}
}
