// Package corrections holds the per-language lexical substitution tables
// applied around language-model inference: domain tables normalize
// transcripts (place names, Hinglish utility vocabulary), pronunciation
// tables adjust model output before synthesis.
package corrections

import (
	"strings"

	"github.com/vidyutseva/voice-line/internal/language"
)

// Rule is a single exact, case-sensitive substring substitution.
type Rule struct {
	Pattern     string
	Replacement string
}

// Table is an ordered sequence of rules. Order is significant: later
// rules operate on text already rewritten by earlier ones, so tables
// must be authored to avoid unintended double substitution.
type Table []Rule

// Apply rewrites text through every rule in table order.
func (t Table) Apply(text string) string {
	for _, r := range t {
		text = strings.ReplaceAll(text, r.Pattern, r.Replacement)
	}
	return text
}

// Domain tables fix recurring STT mistakes on complaint vocabulary.
// "jivpatamgudi" is how the recognizer reliably mangles Mehdipatnam.
// The glossed entries (e.g. "light" -> "light (electricity)") are NOT
// idempotent: the pattern survives inside its own replacement, so these
// tables must be applied exactly once per transcript.
var domainTables = map[language.Language]Table{
	language.Hindi: {
		{Pattern: "jivpatamgudi", Replacement: "मेहंदीपटनम"},
		{Pattern: "jivpatam gudi", Replacement: "मेहंदीपटनम"},
		{Pattern: "लाइट", Replacement: "लाइट (बिजली)"},
		{Pattern: "light", Replacement: "लाइट (बिजली)"},
		{Pattern: "करंट", Replacement: "करंट (बिजली)"},
		{Pattern: "current", Replacement: "करंट (बिजली)"},
	},
	language.English: {
		{Pattern: "jivpatamgudi", Replacement: "Mehdipatnam"},
		{Pattern: "jivpatam gudi", Replacement: "Mehdipatnam"},
	},
	language.Telugu: {
		{Pattern: "jivpatamgudi", Replacement: "మెహెందిపట్నం"},
		{Pattern: "jivpatam gudi", Replacement: "మెహెందిపట్నం"},
		{Pattern: "light", Replacement: "లైట్ (విద్యుత్)"},
		{Pattern: "current", Replacement: "కరెంట్ (విద్యుత్)"},
	},
}

// Pronunciation tables split compounds the synthesizer mispronounces.
var pronunciationTables = map[language.Language]Table{
	language.Hindi: {
		{Pattern: "मेहंदीपटनम", Replacement: "मेहंदी पटनम"},
	},
	language.English: {},
	language.Telugu: {
		{Pattern: "మెహెందిపట్నం", Replacement: "మెహెంది పట్నం"},
	},
}

// Domain returns the transcript-normalization table for a language.
func Domain(l language.Language) Table {
	return domainTables[l]
}

// Pronunciation returns the pre-synthesis table for a language.
func Pronunciation(l language.Language) Table {
	return pronunciationTables[l]
}
