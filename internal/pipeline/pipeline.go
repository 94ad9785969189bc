// Package pipeline orchestrates one utterance through speech-to-text,
// correction, language-model inference, correction again and speech
// synthesis. It holds no state between invocations.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/vidyutseva/voice-line/internal/corrections"
	"github.com/vidyutseva/voice-line/internal/language"
	"github.com/vidyutseva/voice-line/internal/observability"
)

// Synthesized speech is capped so the spoken reply fits the webhook
// response window. Truncation keeps 497 runes and appends the marker.
const (
	maxSpeechRunes = 500
	truncationMark = "..."
)

// Transcriber converts recorded audio to text for a given language.
type Transcriber interface {
	SpeechToText(ctx context.Context, audio []byte, lang language.Language) (string, error)
}

// Responder generates a reply to a corrected transcript.
type Responder interface {
	Generate(ctx context.Context, transcript string, lang language.Language) (string, error)
}

// Synthesizer converts reply text to audio in the target language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang language.Language) ([]byte, error)
}

// Provider is the full speech/LLM provider surface the pipeline needs.
type Provider interface {
	Transcriber
	Responder
	Synthesizer
}

// Selection is the caller's declared language: either a concrete choice
// or automatic detection.
type Selection struct {
	auto bool
	lang language.Language
}

// Auto requests language detection across the probed candidate set.
func Auto() Selection {
	return Selection{auto: true}
}

// For declares a concrete language selection.
func For(l language.Language) Selection {
	return Selection{lang: l}
}

// Result is a processed utterance. ReplyText is the untruncated model
// reply; Audio is synthesized from the truncated, pronunciation-corrected
// variant.
type Result struct {
	Transcript string
	ReplyText  string
	Audio      []byte
	Language   language.Language
}

// Pipeline runs utterances through the provider. Safe for concurrent use.
type Pipeline struct {
	provider Provider
	logger   zerolog.Logger
}

// New creates a pipeline on top of a provider.
func New(provider Provider, logger zerolog.Logger) *Pipeline {
	return &Pipeline{provider: provider, logger: logger}
}

// ProcessUtterance runs one recorded utterance through the full chain.
// Any stage failure aborts the utterance; there are no retries.
func (p *Pipeline) ProcessUtterance(ctx context.Context, audio []byte, declared Selection) (*Result, error) {
	result, err := p.process(ctx, audio, declared)

	lang := declared.lang
	if result != nil {
		lang = result.Language
	}
	observability.RecordUtterance(lang.String(), err == nil)
	if err != nil {
		observability.RecordPipelineFailure(FailureKind(err))
	}

	return result, err
}

func (p *Pipeline) process(ctx context.Context, audio []byte, declared Selection) (*Result, error) {
	if len(audio) == 0 {
		return nil, ErrRecordingMissing
	}

	lang, transcript, err := p.transcribe(ctx, audio, declared)
	if err != nil {
		return nil, err
	}
	if transcript == "" {
		return nil, ErrTranscription
	}

	transcript = corrections.Domain(lang).Apply(transcript)
	p.logger.Debug().
		Str("language", lang.String()).
		Str("transcript", transcript).
		Msg("Transcript corrected")

	reply, err := p.provider.Generate(ctx, transcript, lang)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if reply == "" {
		return nil, ErrGeneration
	}

	speech := corrections.Pronunciation(lang).Apply(reply)
	speech = truncateForSpeech(speech)

	audioOut, err := p.provider.Synthesize(ctx, speech, lang)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if len(audioOut) == 0 {
		return nil, ErrSynthesis
	}

	return &Result{
		Transcript: transcript,
		ReplyText:  reply,
		Audio:      audioOut,
		Language:   lang,
	}, nil
}

// transcribe resolves the language and produces a raw transcript. A
// concrete selection costs one STT call; auto mode probes the candidate
// set via detectLanguage.
func (p *Pipeline) transcribe(ctx context.Context, audio []byte, declared Selection) (language.Language, string, error) {
	if !declared.auto {
		transcript, err := p.provider.SpeechToText(ctx, audio, declared.lang)
		if err != nil {
			return declared.lang, "", fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return declared.lang, transcript, nil
	}

	lang, transcript := p.detectLanguage(ctx, audio)
	return lang, transcript, nil
}

// detectCandidates is the probed set. English is deliberately absent:
// with no native script to score it can never win, so English speech in
// auto mode resolves to Hindi. Known limitation of the heuristic.
var detectCandidates = []language.Language{language.Hindi, language.Telugu}

// detectLanguage transcribes the audio under every candidate language and
// scores each transcript by native-script runes. The strictly highest
// score wins; ties and all-zero scores fall back to Hindi. The returned
// transcript is the winner's and may be empty when no candidate
// transcribed, which the caller treats as a transcription failure.
//
// The probe calls are independent and issued concurrently; scoring only
// starts after all of them complete.
func (p *Pipeline) detectLanguage(ctx context.Context, audio []byte) (language.Language, string) {
	transcripts := make([]string, len(detectCandidates))

	var wg sync.WaitGroup
	for i, lang := range detectCandidates {
		wg.Add(1)
		go func(i int, lang language.Language) {
			defer wg.Done()
			transcript, err := p.provider.SpeechToText(ctx, audio, lang)
			if err != nil {
				p.logger.Warn().Err(err).
					Str("language", lang.String()).
					Msg("Detection probe failed")
				return
			}
			transcripts[i] = transcript
		}(i, lang)
	}
	wg.Wait()

	best := language.Default
	bestScore := 0
	bestTranscript := ""
	for i, lang := range detectCandidates {
		if transcripts[i] == "" {
			continue
		}
		if lang == language.Default && bestTranscript == "" {
			// The default keeps its transcript even at score zero.
			bestTranscript = transcripts[i]
		}
		score := lang.ScriptScore(transcripts[i])
		if score > bestScore {
			best = lang
			bestScore = score
			bestTranscript = transcripts[i]
		}
	}

	p.logger.Debug().
		Str("language", best.String()).
		Int("score", bestScore).
		Msg("Language detected")

	return best, bestTranscript
}

// truncateForSpeech caps text for synthesis. Replies over the limit keep
// the first 497 runes plus the marker so the total never exceeds 500.
func truncateForSpeech(text string) string {
	runes := []rune(text)
	if len(runes) <= maxSpeechRunes {
		return text
	}
	return string(runes[:maxSpeechRunes-len(truncationMark)]) + truncationMark
}
