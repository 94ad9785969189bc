package audio

import (
	"bytes"
	"testing"
)

func loudFrame() []byte {
	samples := make([]int16, FrameSize)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 4000
		} else {
			samples[i] = -4000
		}
	}
	return SamplesToBytes(samples)
}

func quietFrame() []byte {
	return SamplesToBytes(make([]int16, FrameSize))
}

func testSegmenter() *Segmenter {
	return NewSegmenter(VADConfig{EnergyThreshold: 500, SilenceFrames: 3, MaxBytes: 480000})
}

func TestSegmenter_EmitsUtteranceAfterSilence(t *testing.T) {
	s := testSegmenter()

	speech := loudFrame()
	for i := 0; i < 5; i++ {
		if got := s.Push(speech); got != nil {
			t.Fatalf("utterance emitted mid-speech at frame %d", i)
		}
	}
	if !s.Speaking() {
		t.Fatal("expected speaking state after loud frames")
	}

	var utterance []byte
	for i := 0; i < 3; i++ {
		utterance = s.Push(quietFrame())
	}
	if utterance == nil {
		t.Fatal("expected utterance after silence threshold")
	}
	// 5 speech frames plus the silence frames captured before close.
	if len(utterance) < 5*FrameSize*2 {
		t.Errorf("utterance too short: %d bytes", len(utterance))
	}
	if s.Speaking() {
		t.Error("segmenter should reset after emitting")
	}
}

func TestSegmenter_IgnoresLeadingSilence(t *testing.T) {
	s := testSegmenter()
	for i := 0; i < 50; i++ {
		if got := s.Push(quietFrame()); got != nil {
			t.Fatalf("emitted utterance from pure silence at frame %d", i)
		}
	}
	if s.Speaking() {
		t.Error("silence must not start an utterance")
	}
}

func TestSegmenter_SilenceCounterResetsOnSpeech(t *testing.T) {
	s := testSegmenter()
	s.Push(loudFrame())

	// Two quiet frames, then speech again: counter must reset, no emit.
	s.Push(quietFrame())
	s.Push(quietFrame())
	if got := s.Push(loudFrame()); got != nil {
		t.Fatal("utterance closed despite resumed speech")
	}

	// Now a full run of silence closes it.
	var utterance []byte
	for i := 0; i < 3; i++ {
		utterance = s.Push(quietFrame())
	}
	if utterance == nil {
		t.Fatal("expected utterance after full silence run")
	}
}

func TestSegmenter_CapsUtteranceSize(t *testing.T) {
	s := NewSegmenter(VADConfig{EnergyThreshold: 500, SilenceFrames: 3, MaxBytes: 4 * FrameSize * 2})

	var utterance []byte
	for i := 0; i < 10 && utterance == nil; i++ {
		utterance = s.Push(loudFrame())
	}
	if utterance == nil {
		t.Fatal("expected cap to close the utterance")
	}
	if len(utterance) > 4*FrameSize*2 {
		t.Errorf("utterance exceeds cap: %d bytes", len(utterance))
	}
}

func TestSegmenter_FlushReturnsPartialUtterance(t *testing.T) {
	s := testSegmenter()
	speech := loudFrame()
	s.Push(speech)
	s.Push(speech)

	utterance := s.Flush()
	if utterance == nil {
		t.Fatal("expected partial utterance from flush")
	}
	if !bytes.Equal(utterance[:len(speech)], speech) {
		t.Error("flushed audio does not match pushed frames")
	}
	if s.Flush() != nil {
		t.Error("second flush should be empty")
	}
}

func TestSegmenter_BuffersPartialFrames(t *testing.T) {
	s := testSegmenter()
	frame := loudFrame()

	// Push half a frame; too short to process.
	if got := s.Push(frame[:len(frame)/2]); got != nil {
		t.Fatal("emitted on partial frame")
	}
	if s.Speaking() {
		t.Fatal("partial frame must not flip speaking state")
	}
	// Remaining half completes the frame.
	s.Push(frame[len(frame)/2:])
	if !s.Speaking() {
		t.Error("completed frame should register as speech")
	}
}

func TestNewSegmenter_DefaultsZeroConfig(t *testing.T) {
	s := NewSegmenter(VADConfig{})
	want := DefaultVADConfig()
	if s.config.EnergyThreshold != want.EnergyThreshold {
		t.Errorf("threshold = %f, want %f", s.config.EnergyThreshold, want.EnergyThreshold)
	}
	if s.config.SilenceFrames != want.SilenceFrames {
		t.Errorf("silence frames = %d, want %d", s.config.SilenceFrames, want.SilenceFrames)
	}
}
