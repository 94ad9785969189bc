// Package language defines the closed set of caller languages and the
// per-language mappings (codes, voices, prompts) every spoken message is
// rendered through.
package language

// Language is one of the languages the voice line speaks.
type Language int

const (
	Hindi Language = iota
	English
	Telugu
)

// Default is the language used whenever a selection is missing or
// unrecognized.
const Default = Hindi

// All lists every supported language. Mapping tests range over this to
// keep the per-concern maps exhaustive.
func All() []Language {
	return []Language{Hindi, English, Telugu}
}

// String returns the human-readable name.
func (l Language) String() string {
	switch l {
	case Hindi:
		return "hindi"
	case English:
		return "english"
	case Telugu:
		return "telugu"
	}
	return "unknown"
}

// Code returns the STT/TTS language code used at the provider and
// telephony boundaries.
func (l Language) Code() string {
	switch l {
	case Hindi:
		return "hi-IN"
	case English:
		return "en-IN"
	case Telugu:
		return "te-IN"
	}
	return Hindi.Code()
}

// Voice returns the Twilio voice the gateway speaks this language with.
func (l Language) Voice() string {
	switch l {
	case Hindi:
		return "Polly.Aditi"
	case English:
		return "Polly.Joanna"
	case Telugu:
		return "alice"
	}
	return Hindi.Voice()
}

// FromDigit maps a gathered DTMF digit to a language. Anything outside
// the advertised 1/2/3 choices resolves to the default.
func FromDigit(digit string) Language {
	switch digit {
	case "1":
		return Hindi
	case "2":
		return English
	case "3":
		return Telugu
	}
	return Default
}

// FromCode parses a language code threaded through webhook query
// parameters. Unknown codes resolve to the default.
func FromCode(code string) Language {
	switch code {
	case "hi-IN":
		return Hindi
	case "en-IN":
		return English
	case "te-IN":
		return Telugu
	}
	return Default
}

// ScriptScore scores text by counting runes in the language's native
// script block, weighted by 10. English has no probed script block and
// always scores zero. This is a cheap heuristic for telling apart
// transcripts of the same audio produced under different STT language
// hints, not a calibrated classifier.
func (l Language) ScriptScore(text string) int {
	var lo, hi rune
	switch l {
	case Hindi:
		lo, hi = 0x0900, 0x097F // Devanagari
	case Telugu:
		lo, hi = 0x0C00, 0x0C7F // Telugu
	default:
		return 0
	}

	score := 0
	for _, r := range text {
		if r >= lo && r <= hi {
			score += 10
		}
	}
	return score
}
