package audio

// FrameSize is the number of samples per VAD frame: 20 ms at 8 kHz.
const FrameSize = 160

// VADConfig tunes the energy-based voice activity detector.
type VADConfig struct {
	EnergyThreshold float64 // RMS energy above which a frame counts as speech
	SilenceFrames   int     // consecutive quiet frames that close an utterance
	MaxBytes        int     // utterance size cap in PCM bytes
}

// DefaultVADConfig returns detector settings tuned for telephone speech.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   25, // 500ms of silence
		MaxBytes:        480000,
	}
}

// Segmenter accumulates PCM audio from a media stream and emits one
// complete utterance each time the caller stops speaking. Not safe for
// concurrent use; each stream session owns its own segmenter.
type Segmenter struct {
	config         VADConfig
	buf            []byte
	pending        []int16
	silenceCounter int
	speaking       bool
}

// NewSegmenter creates a segmenter with the given configuration.
func NewSegmenter(config VADConfig) *Segmenter {
	if config.EnergyThreshold <= 0 {
		config.EnergyThreshold = DefaultVADConfig().EnergyThreshold
	}
	if config.SilenceFrames <= 0 {
		config.SilenceFrames = DefaultVADConfig().SilenceFrames
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultVADConfig().MaxBytes
	}
	return &Segmenter{config: config}
}

// Push feeds PCM audio into the segmenter. It returns a complete
// utterance when one ends inside the pushed audio, or nil.
func (s *Segmenter) Push(pcm []byte) []byte {
	s.pending = append(s.pending, BytesToSamples(pcm)...)

	var utterance []byte
	for len(s.pending) >= FrameSize {
		frame := s.pending[:FrameSize]
		s.pending = s.pending[FrameSize:]

		if done := s.processFrame(frame); done != nil && utterance == nil {
			utterance = done
		}
	}
	return utterance
}

// Flush returns whatever speech has been captured so far, ending the
// current utterance. Used when the stream stops mid-utterance.
func (s *Segmenter) Flush() []byte {
	if len(s.buf) == 0 {
		return nil
	}
	utterance := s.buf
	s.reset()
	return utterance
}

// Speaking reports whether the caller is currently mid-utterance.
func (s *Segmenter) Speaking() bool {
	return s.speaking
}

func (s *Segmenter) processFrame(frame []int16) []byte {
	hasSpeech := RMS(frame) > s.config.EnergyThreshold

	if hasSpeech {
		s.silenceCounter = 0
		s.speaking = true
	} else if s.speaking {
		s.silenceCounter++
		if s.silenceCounter >= s.config.SilenceFrames {
			utterance := s.buf
			s.reset()
			return utterance
		}
	}

	if s.speaking {
		s.buf = append(s.buf, SamplesToBytes(frame)...)
		if len(s.buf) >= s.config.MaxBytes {
			utterance := s.buf
			s.reset()
			return utterance
		}
	}
	return nil
}

func (s *Segmenter) reset() {
	s.buf = nil
	s.silenceCounter = 0
	s.speaking = false
}
