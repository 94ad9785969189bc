package sarvam

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidyutseva/voice-line/internal/config"
	"github.com/vidyutseva/voice-line/internal/language"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		SarvamAPIKey:        "test-key",
		SarvamBaseURL:       server.URL,
		SarvamTimeout:       5,
		ChatModel:           "sarvam-m",
		TTSModel:            "bulbul:v2",
		TTSSpeaker:          "anushka",
		BreakerMaxFailures:  5,
		BreakerResetTimeout: 30,
	}
	return NewClient(cfg), server
}

func TestSpeechToText(t *testing.T) {
	var gotLang, gotKey string
	var gotFile []byte

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speech-to-text" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("api-subscription-key")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		gotLang = r.FormValue("language_code")

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		buf := make([]byte, 16)
		n, _ := file.Read(buf)
		gotFile = buf[:n]

		json.NewEncoder(w).Encode(map[string]string{"transcript": "लाइट नहीं है"})
	}))

	transcript, err := client.SpeechToText(context.Background(), []byte("RIFFwav"), language.Hindi)
	if err != nil {
		t.Fatalf("SpeechToText failed: %v", err)
	}

	if transcript != "लाइट नहीं है" {
		t.Errorf("transcript = %q", transcript)
	}
	if gotLang != "hi-IN" {
		t.Errorf("language_code = %q, want hi-IN", gotLang)
	}
	if gotKey != "test-key" {
		t.Errorf("api-subscription-key = %q", gotKey)
	}
	if string(gotFile) != "RIFFwav" {
		t.Errorf("uploaded audio = %q", gotFile)
	}
}

func TestSpeechToText_EmptyTranscript(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))

	transcript, err := client.SpeechToText(context.Background(), []byte("x"), language.Telugu)
	if err != nil {
		t.Fatalf("expected no error for empty transcript, got %v", err)
	}
	if transcript != "" {
		t.Errorf("transcript = %q, want empty", transcript)
	}
}

func TestSpeechToText_ServerError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))

	_, err := client.SpeechToText(context.Background(), []byte("x"), language.Hindi)
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestGenerate(t *testing.T) {
	var gotReq chatRequest

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "मेहंदीपटनम में बिजली दो घंटे में आएगी।"}},
			},
		})
	}))

	reply, err := client.Generate(context.Background(), "मेहंदीपटनम में लाइट नहीं है", language.Hindi)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if reply != "मेहंदीपटनम में बिजली दो घंटे में आएगी।" {
		t.Errorf("reply = %q", reply)
	}
	if gotReq.Model != "sarvam-m" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.Stream {
		t.Error("expected stream=false")
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("unexpected message layout: %+v", gotReq.Messages)
	}
	if gotReq.Messages[0].Content != language.SystemPrompt(language.Hindi) {
		t.Error("system prompt does not match the Hindi catalog entry")
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))

	reply, err := client.Generate(context.Background(), "hello", language.English)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "" {
		t.Errorf("reply = %q, want empty", reply)
	}
}

func TestSynthesize(t *testing.T) {
	wantAudio := []byte{0x52, 0x49, 0x46, 0x46, 0x01, 0x02}
	var gotReq ttsRequest

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ttsResponse{
			Audios: []string{base64.StdEncoding.EncodeToString(wantAudio)},
		})
	}))

	audio, err := client.Synthesize(context.Background(), "ధన్యవాదాలు", language.Telugu)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(audio) != string(wantAudio) {
		t.Errorf("audio = %v, want %v", audio, wantAudio)
	}
	if gotReq.TargetLanguageCode != "te-IN" {
		t.Errorf("target_language_code = %q", gotReq.TargetLanguageCode)
	}
	if gotReq.Speaker != "anushka" {
		t.Errorf("speaker = %q", gotReq.Speaker)
	}
	if gotReq.SpeechSampleRate != 8000 {
		t.Errorf("speech_sample_rate = %d, want 8000", gotReq.SpeechSampleRate)
	}
	if gotReq.Model != "bulbul:v2" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Inputs) != 1 || gotReq.Inputs[0] != "ధన్యవాదాలు" {
		t.Errorf("inputs = %v", gotReq.Inputs)
	}
}

func TestSynthesize_NoAudio(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ttsResponse{Audios: []string{""}})
	}))

	audio, err := client.Synthesize(context.Background(), "text", language.Hindi)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if audio != nil {
		t.Errorf("audio = %v, want nil", audio)
	}
}

func TestBreakerOpensOnRepeatedFailures(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))

	for i := 0; i < 5; i++ {
		client.SpeechToText(context.Background(), []byte("x"), language.Hindi)
	}

	// Circuit is open now; the request must fail fast without reaching
	// the server.
	_, err := client.SpeechToText(context.Background(), []byte("x"), language.Hindi)
	if err == nil {
		t.Fatal("expected failure with open circuit")
	}
}
