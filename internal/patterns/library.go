// Package patterns holds the static, versioned regular-expression rule
// sets that map a field's label, structural id or surrounding question
// text to a field type.
package patterns

import (
	"strings"

	"github.com/straja-ai/fieldsense/internal/field"
)

// Library groups the independent rule sets. It is immutable once built
// and safe for concurrent use.
type Library struct {
	id      string
	version string

	global     RuleSet
	platform   map[field.Platform]RuleSet
	question   RuleSet
	identifier RuleSet
}

// Status describes the loaded library.
type Status struct {
	ID            string         `json:"id"`
	Version       string         `json:"version"`
	GlobalRules   int            `json:"global_rules"`
	QuestionRules int            `json:"question_rules"`
	PlatformRules map[string]int `json:"platform_rules"`
}

// New assembles a library from compiled rule sets. identifier holds
// platform-agnostic id rules that only feed signal aggregation.
func New(id, version string, global RuleSet, platform map[field.Platform]RuleSet, question, identifier RuleSet) *Library {
	p := make(map[field.Platform]RuleSet, len(platform))
	for k, v := range platform {
		p[k] = v
	}
	return &Library{
		id:         id,
		version:    version,
		global:     global,
		platform:   p,
		question:   question,
		identifier: identifier,
	}
}

func (l *Library) Status() Status {
	st := Status{
		ID:            l.id,
		Version:       l.version,
		GlobalRules:   l.global.Len(),
		QuestionRules: l.question.Len(),
		PlatformRules: make(map[string]int, len(l.platform)),
	}
	for p, rs := range l.platform {
		st.PlatformRules[string(p)] = rs.Len()
	}
	return st
}

// MatchGlobal checks the platform-agnostic rules against the normalized
// label only.
func (l *Library) MatchGlobal(f field.Field) (Match, bool) {
	return l.global.Match(field.NormalizeLabel(f.Label))
}

// MatchPlatform checks the rules of platform p against the structural id,
// then the name. Unknown platforms have no rules.
func (l *Library) MatchPlatform(p field.Platform, f field.Field) (Match, bool) {
	rs, ok := l.platform[p]
	if !ok {
		return Match{}, false
	}
	return matchIdentifiers(rs, f)
}

// MatchQuestion checks the questionnaire rules against label, section and
// placeholder text.
func (l *Library) MatchQuestion(f field.Field) (Match, bool) {
	return l.question.Match(field.NormalizeLabel(f.QuestionText()))
}

// MatchIdentifier checks platform rules and then the generic id rules.
// It is used for structural-id signals, not as a cache level.
func (l *Library) MatchIdentifier(p field.Platform, f field.Field) (Match, bool) {
	if m, ok := l.MatchPlatform(p, f); ok {
		return m, true
	}
	return matchIdentifiers(l.identifier, f)
}

// PlatformRules returns the rule set for p, empty when none is defined.
func (l *Library) PlatformRules(p field.Platform) RuleSet {
	return l.platform[p]
}

func matchIdentifiers(rs RuleSet, f field.Field) (Match, bool) {
	for _, ident := range []string{f.ID, f.Name} {
		ident = strings.TrimSpace(ident)
		if ident == "" {
			continue
		}
		if m, ok := rs.Match(ident); ok {
			return m, true
		}
	}
	return Match{}, false
}
