// Package sarvam is the HTTP client for the Sarvam speech and language
// model APIs: speech-to-text, chat completions and text-to-speech.
package sarvam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/vidyutseva/voice-line/internal/config"
	"github.com/vidyutseva/voice-line/internal/language"
	"github.com/vidyutseva/voice-line/internal/observability"
	"github.com/vidyutseva/voice-line/internal/resilience"
)

// Telephony playback is 8 kHz; the provider is asked for audio in that
// rate directly so no resampling happens on the reply path.
const telephonySampleRate = 8000

// Client calls the Sarvam APIs. It is safe for concurrent use: the
// underlying http.Client pools connections and no per-call state is kept.
type Client struct {
	apiKey     string
	baseURL    string
	chatModel  string
	ttsModel   string
	ttsSpeaker string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a Sarvam client from service configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiKey:     cfg.SarvamAPIKey,
		baseURL:    cfg.SarvamBaseURL,
		chatModel:  cfg.ChatModel,
		ttsModel:   cfg.TTSModel,
		ttsSpeaker: cfg.TTSSpeaker,
		httpClient: &http.Client{Timeout: cfg.ProviderTimeout()},
		breaker: resilience.NewBreaker("sarvam",
			cfg.BreakerMaxFailures,
			time.Duration(cfg.BreakerResetTimeout)*time.Second),
	}
}

type sttResponse struct {
	Transcript string `json:"transcript"`
}

// SpeechToText transcribes one recorded utterance. An empty transcript
// with a successful response is returned as ("", nil); the caller decides
// how to treat it.
func (c *Client) SpeechToText(ctx context.Context, audio []byte, lang language.Language) (string, error) {
	start := time.Now()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := w.WriteField("language_code", lang.Code()); err != nil {
		return "", fmt.Errorf("failed to write language_code: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech-to-text", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result sttResponse
	err = c.do(req, &result)
	observability.RecordStage("stt", start, err)
	if err != nil {
		return "", fmt.Errorf("speech-to-text: %w", err)
	}

	return result.Transcript, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate asks the language model for a reply to a corrected transcript,
// constrained by the language-specific system prompt.
func (c *Client) Generate(ctx context.Context, transcript string, lang language.Language) (string, error) {
	start := time.Now()

	payload := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: language.SystemPrompt(lang)},
			{Role: "user", Content: transcript},
		},
		Stream: false,
	}

	req, err := c.jsonRequest(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return "", err
	}

	var result chatResponse
	err = c.do(req, &result)
	observability.RecordStage("llm", start, err)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", nil
	}
	return result.Choices[0].Message.Content, nil
}

type ttsRequest struct {
	Inputs              []string `json:"inputs"`
	TargetLanguageCode  string   `json:"target_language_code"`
	Speaker             string   `json:"speaker"`
	Pitch               int      `json:"pitch"`
	Pace                float64  `json:"pace"`
	Loudness            float64  `json:"loudness"`
	SpeechSampleRate    int      `json:"speech_sample_rate"`
	EnablePreprocessing bool     `json:"enable_preprocessing"`
	Model               string   `json:"model"`
}

type ttsResponse struct {
	Audios []string `json:"audios"`
}

// Synthesize converts reply text to 8 kHz audio in the target language.
// A response carrying no audio is returned as (nil, nil).
func (c *Client) Synthesize(ctx context.Context, text string, lang language.Language) ([]byte, error) {
	start := time.Now()

	payload := ttsRequest{
		Inputs:              []string{text},
		TargetLanguageCode:  lang.Code(),
		Speaker:             c.ttsSpeaker,
		Pitch:               0,
		Pace:                1.0,
		Loudness:            1.5,
		SpeechSampleRate:    telephonySampleRate,
		EnablePreprocessing: true,
		Model:               c.ttsModel,
	}

	req, err := c.jsonRequest(ctx, "/text-to-speech", payload)
	if err != nil {
		return nil, err
	}

	var result ttsResponse
	err = c.do(req, &result)
	observability.RecordStage("tts", start, err)
	if err != nil {
		return nil, fmt.Errorf("text-to-speech: %w", err)
	}

	if len(result.Audios) == 0 || result.Audios[0] == "" {
		return nil, nil
	}

	audio, err := base64.StdEncoding.DecodeString(result.Audios[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesized audio: %w", err)
	}
	return audio, nil
}

// Ping reports whether the provider is reachable and the client is
// configured. Used by the readiness endpoint; no billable API call is
// made.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	if c.apiKey == "" {
		return false, fmt.Errorf("sarvam API key not configured")
	}
	if c.breaker.State() == resilience.StateOpen {
		return false, fmt.Errorf("sarvam circuit open")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("sarvam unreachable: %w", err)
	}
	resp.Body.Close()
	return true, nil
}

// jsonRequest builds a POST request with a JSON body.
func (c *Client) jsonRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes a request through the circuit breaker and decodes the
// JSON response into result.
func (c *Client) do(req *http.Request, result any) error {
	req.Header.Set("api-subscription-key", c.apiKey)

	return c.breaker.Call(func() error {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("sarvam API returned status %d: %s", resp.StatusCode, truncateBody(body))
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		return nil
	})
}

func truncateBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
