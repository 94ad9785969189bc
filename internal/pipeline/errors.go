package pipeline

import "errors"

// Failure sentinels for the pipeline stages. The call flow converts any
// of these into a spoken apology in the caller's language; none of them
// may surface to the caller as a silent hangup.
var (
	// ErrTranscription means no usable transcript was obtained from any
	// candidate language.
	ErrTranscription = errors.New("transcription failed: no usable transcript")

	// ErrGeneration means the language model returned no content.
	ErrGeneration = errors.New("generation failed: model returned no content")

	// ErrSynthesis means the synthesizer returned no audio.
	ErrSynthesis = errors.New("synthesis failed: no audio returned")

	// ErrTransport means a provider call failed at the network level
	// (timeout, connection error, non-200 response).
	ErrTransport = errors.New("provider transport failure")

	// ErrRecordingMissing means the telephony gateway reported a
	// recording callback with no retrievable audio reference.
	ErrRecordingMissing = errors.New("recording callback carried no audio reference")
)

// FailureKind returns the metrics label for a pipeline error.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrTranscription):
		return "transcription"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrSynthesis):
		return "synthesis"
	case errors.Is(err, ErrRecordingMissing):
		return "recording_missing"
	case errors.Is(err, ErrTransport):
		return "transport"
	}
	return "unknown"
}
