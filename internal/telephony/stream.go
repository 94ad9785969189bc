// Package telephony carries the Twilio Media Streams transport: a
// WebSocket session per call that segments caller speech with the
// energy detector and runs each utterance through the same pipeline the
// recording webhooks use.
package telephony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vidyutseva/voice-line/internal/audio"
	"github.com/vidyutseva/voice-line/internal/config"
	"github.com/vidyutseva/voice-line/internal/language"
	"github.com/vidyutseva/voice-line/internal/observability"
	"github.com/vidyutseva/voice-line/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	// Twilio does not send a browser Origin header.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// mediaChunkBytes is the outbound frame size: 20ms of μ-law at 8 kHz.
const mediaChunkBytes = 160

// UtteranceProcessor is the pipeline contract shared with the webhook
// transport.
type UtteranceProcessor interface {
	ProcessUtterance(ctx context.Context, wavAudio []byte, declared pipeline.Selection) (*pipeline.Result, error)
}

// streamMessage is the envelope of a Media Streams WebSocket message.
type streamMessage struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid,omitempty"`
	Media     *streamMedia `json:"media,omitempty"`
	Start     *streamStart `json:"start,omitempty"`
}

type streamMedia struct {
	Track   string `json:"track,omitempty"`
	Payload string `json:"payload"`
}

type streamStart struct {
	AccountSid       string            `json:"accountSid"`
	CallSid          string            `json:"callSid"`
	StreamSid        string            `json:"streamSid"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// Session is one live media stream. All WebSocket writes go through the
// session so reply frames never interleave.
type Session struct {
	conn      *websocket.Conn
	pipeline  UtteranceProcessor
	segmenter *audio.Segmenter
	logger    zerolog.Logger

	mu        sync.Mutex
	streamSid string
	callSid   string
	selection pipeline.Selection
	busy      bool
	started   bool
}

// NewSession wraps an upgraded connection.
func NewSession(conn *websocket.Conn, cfg *config.Config, p UtteranceProcessor) *Session {
	return &Session{
		conn:     conn,
		pipeline: p,
		segmenter: audio.NewSegmenter(audio.VADConfig{
			EnergyThreshold: cfg.VADEnergyThreshold,
			SilenceFrames:   cfg.VADSilenceFrames,
			MaxBytes:        cfg.MaxUtteranceBytes,
		}),
		logger:    observability.GetLogger(),
		selection: pipeline.Auto(),
	}
}

// StreamHandler upgrades Media Streams connections and runs a session
// per call.
func StreamHandler(cfg *config.Config, p UtteranceProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger := observability.GetLogger()
			logger.Error().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		NewSession(conn, cfg, p).Run(r.Context())
	}
}

// Run reads stream events until the stream stops or the connection
// drops.
func (s *Session) Run(ctx context.Context) {
	defer s.endCall()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.logger.Error().Err(err).Msg("failed to parse stream message")
			continue
		}

		switch msg.Event {
		case "connected":
			s.logger.Debug().Msg("media stream connected")
		case "start":
			s.handleStart(msg.Start)
		case "media":
			s.handleMedia(ctx, msg.Media)
		case "stop":
			s.logger.Info().Str("call_sid", s.CallSid()).Msg("media stream stopped")
			return
		default:
			s.logger.Debug().Str("event", msg.Event).Msg("ignoring stream event")
		}
	}
}

func (s *Session) handleStart(start *streamStart) {
	if start == nil {
		return
	}

	s.mu.Lock()
	s.streamSid = start.StreamSid
	s.callSid = start.CallSid
	s.started = true

	// A "lang" custom parameter pins the call to one language; without
	// it the first utterance is auto-detected.
	if code, ok := start.CustomParameters["lang"]; ok && code != "" && code != "auto" {
		s.selection = pipeline.For(language.FromCode(code))
	}
	selection := s.selection
	s.mu.Unlock()

	s.logger = observability.WithCall(start.CallSid)
	s.logger.Info().
		Str("stream_sid", start.StreamSid).
		Bool("auto_language", selection == pipeline.Auto()).
		Msg("media stream started")
	observability.RecordCallStart()
}

func (s *Session) handleMedia(ctx context.Context, media *streamMedia) {
	if media == nil || media.Payload == "" {
		return
	}

	mulaw, err := base64.StdEncoding.DecodeString(media.Payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to decode media payload")
		return
	}
	observability.RecordAudioBytes("in", len(mulaw))

	utterance := s.segmenter.Push(audio.DecodeMulaw(mulaw))
	if utterance == nil {
		return
	}

	s.mu.Lock()
	if s.busy {
		// A reply is still being produced; the caller talked over it.
		s.mu.Unlock()
		s.logger.Warn().Msg("dropping utterance, previous turn still processing")
		return
	}
	s.busy = true
	selection := s.selection
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.busy = false
			s.mu.Unlock()
		}()
		s.handleUtterance(ctx, utterance, selection)
	}()
}

// handleUtterance runs one caller turn through the pipeline and streams
// the synthesized reply back as media frames.
func (s *Session) handleUtterance(ctx context.Context, pcm []byte, selection pipeline.Selection) {
	wav := audio.EncodeWAV(pcm, audio.TelephonyRate)

	result, err := s.pipeline.ProcessUtterance(ctx, wav, selection)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", pipeline.FailureKind(err)).Msg("pipeline failed")
		return
	}

	// The detected language sticks for the rest of the call.
	s.mu.Lock()
	s.selection = pipeline.For(result.Language)
	s.mu.Unlock()

	s.logger.Info().
		Str("language", result.Language.Code()).
		Int("reply_chars", len(result.ReplyText)).
		Msg("utterance processed")

	if err := s.sendReply(result.Audio); err != nil {
		s.logger.Error().Err(err).Msg("failed to send reply audio")
	}
}

// sendReply converts synthesized WAV audio to μ-law media frames and
// writes them to the stream.
func (s *Session) sendReply(wavAudio []byte) error {
	pcm, rate, err := audio.ExtractWAV(wavAudio)
	if err != nil {
		return err
	}
	mulaw, err := audio.EncodeMulaw(pcm, rate)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for off := 0; off < len(mulaw); off += mediaChunkBytes {
		end := off + mediaChunkBytes
		if end > len(mulaw) {
			end = len(mulaw)
		}
		msg := streamMessage{
			Event:     "media",
			StreamSid: s.streamSid,
			Media:     &streamMedia{Payload: base64.StdEncoding.EncodeToString(mulaw[off:end])},
		}
		if err := s.conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	observability.RecordAudioBytes("out", len(mulaw))
	return nil
}

// CallSid returns the call SID announced in the start event.
func (s *Session) CallSid() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callSid
}

func (s *Session) endCall() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		observability.RecordCallEnd()
	}
}
