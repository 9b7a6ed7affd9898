// Package signals gathers independent hints about a field's type,
// combines them into a proposal, and arbitrates between that proposal and
// an external verifier.
package signals

import (
	"strings"

	"github.com/straja-ai/fieldsense/internal/cache"
	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/geo"
	"github.com/straja-ai/fieldsense/internal/patterns"
)

// Source names where a signal came from.
type Source string

const (
	SourceStructuralID Source = "structural_id"
	SourceOptions      Source = "options"
	SourceLabel        Source = "label"
	SourceLocalModel   Source = "local_model"
)

// Fixed signal weights.
const (
	StructuralIDConfidence = 0.90
	LabelConfidence        = 0.95
	QuestionConfidence     = 0.85
	StrongConfidence       = 0.85
)

// Signal is one vote for a type.
type Signal struct {
	Type       fieldtype.Type `json:"field_type"`
	Source     Source         `json:"source"`
	Confidence float64        `json:"confidence"`
	Detail     string         `json:"detail,omitempty"`
}

// Collect gathers the deterministic signals for a field: its structural
// id, its option contents and its label.
func Collect(lib *patterns.Library, p field.Platform, f field.Field) []Signal {
	if lib == nil {
		lib = patterns.Default()
	}
	var out []Signal
	if m, ok := lib.MatchIdentifier(p, f); ok {
		out = append(out, Signal{Type: m.Type, Source: SourceStructuralID, Confidence: StructuralIDConfidence, Detail: m.RuleID})
	}
	if s, ok := OptionSignal(f.Options); ok {
		out = append(out, s)
	}
	if m, ok := lib.MatchGlobal(f); ok {
		out = append(out, Signal{Type: m.Type, Source: SourceLabel, Confidence: LabelConfidence, Detail: m.RuleID})
	} else if m, ok := lib.MatchQuestion(f); ok {
		out = append(out, Signal{Type: m.Type, Source: SourceLabel, Confidence: QuestionConfidence, Detail: m.RuleID})
	}
	return out
}

// LocalModel turns a classifier result into a signal carrying the
// classifier's own confidence.
func LocalModel(res cache.Result) (Signal, bool) {
	if res.Type == fieldtype.Unknown || res.Confidence <= 0 {
		return Signal{}, false
	}
	return Signal{Type: res.Type, Source: SourceLocalModel, Confidence: res.Confidence, Detail: string(res.Source)}, true
}

var (
	genderOptions = map[string]bool{
		"male": true, "female": true, "man": true, "woman": true,
		"non binary": true, "nonbinary": true, "genderqueer": true,
		"transgender": true, "agender": true,
	}
	phoneTypeOptions = map[string]bool{
		"mobile": true, "cell": true, "home": true, "work": true,
		"landline": true, "office": true,
	}
	degreeMarkers = []string{"bachelor", "master", "phd", "doctorate", "associate", "mba", "high school"}
)

// OptionSignal inspects a choice list. Yes/No lists say nothing about the
// question and never produce a signal.
func OptionSignal(options []string) (Signal, bool) {
	if len(options) < 2 {
		return Signal{}, false
	}
	norm := make([]string, 0, len(options))
	for _, o := range options {
		if n := field.NormalizeLabel(o); n != "" {
			norm = append(norm, n)
		}
	}

	if states := geo.CountStates(options); states >= 3 {
		conf := 0.85
		if states >= 10 {
			conf = 0.95
		}
		return Signal{Type: fieldtype.State, Source: SourceOptions, Confidence: conf, Detail: "us_states"}, true
	}
	if countries := geo.CountCountries(options); countries >= 3 {
		conf := 0.85
		if countries >= 10 {
			conf = 0.95
		}
		return Signal{Type: fieldtype.Country, Source: SourceOptions, Confidence: conf, Detail: "countries"}, true
	}
	if count(norm, func(o string) bool { return genderOptions[o] }) >= 2 {
		return Signal{Type: fieldtype.Gender, Source: SourceOptions, Confidence: 0.95, Detail: "gender_options"}, true
	}
	if count(norm, func(o string) bool { return strings.Contains(o, "veteran") }) >= 2 {
		return Signal{Type: fieldtype.VeteranStatus, Source: SourceOptions, Confidence: 0.90, Detail: "veteran_options"}, true
	}
	if count(norm, func(o string) bool { return strings.Contains(o, "disabilit") }) >= 2 {
		return Signal{Type: fieldtype.DisabilityStatus, Source: SourceOptions, Confidence: 0.90, Detail: "disability_options"}, true
	}
	if count(norm, func(o string) bool { return strings.Contains(o, "hispanic") || strings.Contains(o, "latino") }) >= 2 {
		return Signal{Type: fieldtype.HispanicLatino, Source: SourceOptions, Confidence: 0.85, Detail: "hispanic_options"}, true
	}
	if count(norm, func(o string) bool { return phoneTypeOptions[o] }) >= 2 {
		return Signal{Type: fieldtype.PhoneType, Source: SourceOptions, Confidence: 0.85, Detail: "phone_type_options"}, true
	}
	if count(norm, func(o string) bool { return containsAny(o, degreeMarkers) }) >= 2 {
		return Signal{Type: fieldtype.Degree, Source: SourceOptions, Confidence: 0.85, Detail: "degree_options"}, true
	}
	return Signal{}, false
}

func count(values []string, pred func(string) bool) int {
	n := 0
	for _, v := range values {
		if pred(v) {
			n++
		}
	}
	return n
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
