// Package callflow implements the Twilio webhook dialogue for the
// complaint line: greeting, language selection, recording, processing
// and continuation, with the selected language threaded through query
// parameters so every handler stays stateless.
package callflow

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vidyutseva/voice-line/internal/config"
	"github.com/vidyutseva/voice-line/internal/language"
	"github.com/vidyutseva/voice-line/internal/observability"
	"github.com/vidyutseva/voice-line/internal/pipeline"
	"github.com/vidyutseva/voice-line/internal/twilio"
)

// UtteranceProcessor runs one recorded utterance through the voice
// pipeline. Satisfied by *pipeline.Pipeline.
type UtteranceProcessor interface {
	ProcessUtterance(ctx context.Context, audio []byte, declared pipeline.Selection) (*pipeline.Result, error)
}

// RecordingFetcher downloads recorded caller audio from the telephony
// provider. Satisfied by *twilio.Client.
type RecordingFetcher interface {
	DownloadRecording(ctx context.Context, recordingURL string) ([]byte, error)
}

// Handler serves the voice webhook endpoints.
type Handler struct {
	pipeline   UtteranceProcessor
	recordings RecordingFetcher
	recordMax  int
	gatherWait int
}

// NewHandler wires the webhook endpoints to their collaborators.
func NewHandler(cfg *config.Config, p UtteranceProcessor, r RecordingFetcher) *Handler {
	return &Handler{
		pipeline:   p,
		recordings: r,
		recordMax:  cfg.RecordMaxLength,
		gatherWait: cfg.GatherTimeout,
	}
}

// Register mounts the webhook routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/voice/incoming", h.Incoming)
	mux.HandleFunc("/voice/language", h.SelectLanguage)
	mux.HandleFunc("/voice/start", h.Start)
	mux.HandleFunc("/voice/process", h.Process)
	mux.HandleFunc("/voice/continue", h.Continue)
	mux.HandleFunc("/voice/status", h.Status)
}

// Incoming answers a new call with the multilingual language menu and a
// one-digit gather. No digit within the timeout falls through to Hindi.
func (h *Handler) Incoming(w http.ResponseWriter, r *http.Request) {
	callSID := r.FormValue("CallSid")
	logger := observability.WithCall(callSID)
	logger.Info().Str("from", r.FormValue("From")).Msg("incoming call")
	observability.RecordCallStart()

	gather := twilio.Gather{
		Action:    "/voice/language",
		Method:    http.MethodPost,
		NumDigits: 1,
		Timeout:   h.gatherWait,
	}
	for _, line := range language.WelcomeMenu() {
		gather.Verbs = append(gather.Verbs, twilio.Say{
			Voice:    line.Voice,
			Language: line.LangCode,
			Text:     line.Text,
		})
	}

	doc := &twilio.Response{Verbs: []any{
		gather,
		twilio.Redirect{Method: http.MethodPost, URL: startURL(language.Default)},
	}}
	writeTwiML(w, doc, logger)
}

// SelectLanguage maps the gathered digit to a language and redirects to
// the recording prompt. Unknown digits select Hindi.
func (h *Handler) SelectLanguage(w http.ResponseWriter, r *http.Request) {
	logger := observability.WithCall(r.FormValue("CallSid"))
	lang := language.FromDigit(r.FormValue("Digits"))
	logger.Info().Str("digit", r.FormValue("Digits")).Str("language", lang.Code()).Msg("language selected")

	doc := &twilio.Response{Verbs: []any{
		twilio.Redirect{Method: http.MethodPost, URL: startURL(lang)},
	}}
	writeTwiML(w, doc, logger)
}

// Start greets the caller in the selected language and records their
// complaint.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	logger := observability.WithCall(r.FormValue("CallSid"))
	lang := language.FromCode(r.URL.Query().Get("lang"))
	prompts := language.PromptsFor(lang)

	doc := &twilio.Response{Verbs: []any{
		say(lang, prompts.Greeting),
		h.record(lang),
	}}
	writeTwiML(w, doc, logger)
}

// Process downloads the caller's recording, runs it through the voice
// pipeline and speaks the reply. Any failure gets an apology and ends
// the call.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	logger := observability.WithCall(r.FormValue("CallSid"))
	lang := language.FromCode(r.URL.Query().Get("lang"))
	recordingURL := r.FormValue("RecordingUrl")

	if recordingURL == "" {
		logger.Warn().Msg("recording callback without RecordingUrl")
		observability.RecordPipelineFailure(pipeline.FailureKind(pipeline.ErrRecordingMissing))
		h.apologize(w, lang, logger)
		return
	}

	audio, err := h.recordings.DownloadRecording(r.Context(), recordingURL)
	if err != nil {
		logger.Error().Err(err).Msg("failed to download recording")
		observability.RecordPipelineFailure(pipeline.FailureKind(pipeline.ErrTransport))
		h.apologize(w, lang, logger)
		return
	}

	result, err := h.pipeline.ProcessUtterance(r.Context(), audio, pipeline.For(lang))
	if err != nil {
		logger.Error().Err(err).Str("kind", pipeline.FailureKind(err)).Msg("pipeline failed")
		h.apologize(w, lang, logger)
		return
	}

	logger.Info().
		Str("language", result.Language.Code()).
		Int("reply_chars", len(result.ReplyText)).
		Msg("utterance processed")

	prompts := language.PromptsFor(lang)
	gather := twilio.Gather{
		Action:    fmt.Sprintf("/voice/continue?lang=%s", lang.Code()),
		Method:    http.MethodPost,
		NumDigits: 1,
		Timeout:   h.gatherWait,
	}
	gather.Verbs = append(gather.Verbs, say(lang, prompts.Continue))

	doc := &twilio.Response{Verbs: []any{
		say(lang, result.ReplyText),
		gather,
	}}
	writeTwiML(w, doc, logger)
}

// Continue re-records on digit 1, otherwise says goodbye and hangs up.
func (h *Handler) Continue(w http.ResponseWriter, r *http.Request) {
	logger := observability.WithCall(r.FormValue("CallSid"))
	lang := language.FromCode(r.URL.Query().Get("lang"))
	prompts := language.PromptsFor(lang)

	doc := &twilio.Response{}
	if r.FormValue("Digits") == "1" {
		doc.Verbs = append(doc.Verbs, say(lang, prompts.ReRecord), h.record(lang))
	} else {
		doc.Verbs = append(doc.Verbs, say(lang, prompts.Goodbye), twilio.Hangup{})
	}
	writeTwiML(w, doc, logger)
}

// Status receives call status callbacks. Completed calls release the
// active-call gauge.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	logger := observability.WithCall(r.FormValue("CallSid"))
	status := r.FormValue("CallStatus")
	logger.Info().Str("status", status).Msg("call status update")

	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		observability.RecordCallEnd()
	}
	w.WriteHeader(http.StatusOK)
}

// apologize speaks the apology for the selected language and terminates
// the call.
func (h *Handler) apologize(w http.ResponseWriter, lang language.Language, logger zerolog.Logger) {
	doc := &twilio.Response{Verbs: []any{
		say(lang, language.PromptsFor(lang).Apology),
		twilio.Hangup{},
	}}
	writeTwiML(w, doc, logger)
}

// writeTwiML renders doc as a TwiML response body.
func writeTwiML(w http.ResponseWriter, doc *twilio.Response, logger zerolog.Logger) {
	body, err := doc.Render()
	if err != nil {
		logger.Error().Err(err).Msg("failed to render twiml")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Write(body)
}

func (h *Handler) record(lang language.Language) twilio.Record {
	return twilio.Record{
		Action:    fmt.Sprintf("/voice/process?lang=%s", lang.Code()),
		Method:    http.MethodPost,
		MaxLength: h.recordMax,
		PlayBeep:  true,
	}
}

func startURL(lang language.Language) string {
	return fmt.Sprintf("/voice/start?lang=%s", lang.Code())
}

func say(lang language.Language, text string) twilio.Say {
	return twilio.Say{Voice: lang.Voice(), Language: lang.Code(), Text: text}
}
