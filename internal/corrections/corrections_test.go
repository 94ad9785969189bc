package corrections

import (
	"strings"
	"testing"

	"github.com/vidyutseva/voice-line/internal/language"
)

func TestDomain_HindiUtilityVocabulary(t *testing.T) {
	table := Domain(language.Hindi)

	got := table.Apply("light nahi hai")
	want := "लाइट (बिजली) nahi hai"
	if got != want {
		t.Errorf("Apply(%q) = %q, want %q", "light nahi hai", got, want)
	}
}

func TestDomain_PlaceNameNormalization(t *testing.T) {
	cases := []struct {
		lang language.Language
		in   string
		want string
	}{
		{language.Hindi, "jivpatamgudi mein light gayi", "मेहंदीपटनम mein लाइट (बिजली) gayi"},
		{language.Hindi, "jivpatam gudi area", "मेहंदीपटनम area"},
		{language.Telugu, "jivpatamgudi lo current ledu", "మెహెందిపట్నం lo కరెంట్ (విద్యుత్) ledu"},
		{language.English, "no power in jivpatamgudi", "no power in Mehdipatnam"},
	}

	for _, c := range cases {
		if got := Domain(c.lang).Apply(c.in); got != c.want {
			t.Errorf("Domain(%v).Apply(%q) = %q, want %q", c.lang, c.in, got, c.want)
		}
	}
}

func TestDomain_Deterministic(t *testing.T) {
	table := Domain(language.Hindi)
	in := "current aur light dono band"

	first := table.Apply(in)
	second := table.Apply(in)
	if first != second {
		t.Errorf("repeated Apply on same input diverged: %q vs %q", first, second)
	}
}

func TestDomain_GlossRulesAreNotIdempotent(t *testing.T) {
	// The gloss rules keep the pattern inside the replacement, so a
	// second application double-glosses. The pipeline applies each table
	// exactly once; this test pins the known behavior down.
	table := Domain(language.Hindi)

	once := table.Apply("लाइट band hai")
	twice := table.Apply(once)
	if once == twice {
		t.Fatal("expected gloss rules to be non-idempotent")
	}
	if !strings.Contains(twice, "(बिजली) (बिजली)") {
		t.Errorf("second application produced %q, expected double gloss", twice)
	}
}

func TestPronunciation_Idempotent(t *testing.T) {
	for _, l := range language.All() {
		table := Pronunciation(l)
		in := "मेहंदीपटनम మెహెందిపట్నం"

		once := table.Apply(in)
		twice := table.Apply(once)
		if once != twice {
			t.Errorf("%v pronunciation table is not idempotent: %q vs %q", l, once, twice)
		}
	}
}

func TestPronunciation_SplitsCompounds(t *testing.T) {
	got := Pronunciation(language.Hindi).Apply("मेहंदीपटनम में बिजली नहीं है")
	if !strings.Contains(got, "मेहंदी पटनम") {
		t.Errorf("expected split compound, got %q", got)
	}

	got = Pronunciation(language.Telugu).Apply("మెహెందిపట్నం")
	if got != "మెహెంది పట్నం" {
		t.Errorf("expected split compound, got %q", got)
	}
}

func TestTablesExistForAllLanguages(t *testing.T) {
	for _, l := range language.All() {
		if _, ok := domainTables[l]; !ok {
			t.Errorf("%v has no domain table", l)
		}
		if _, ok := pronunciationTables[l]; !ok {
			t.Errorf("%v has no pronunciation table", l)
		}
	}
}

func TestApply_EmptyTable(t *testing.T) {
	var empty Table
	if got := empty.Apply("unmodified"); got != "unmodified" {
		t.Errorf("empty table rewrote text: %q", got)
	}
}
