package patterns

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/straja-ai/fieldsense/internal/fieldtype"
)

// Rule maps a regular expression to a field type. Lower Priority values
// are checked first; the ordering is part of the reviewed rule set and
// never derived from slice position.
type Rule struct {
	ID       string
	Priority int
	Type     fieldtype.Type
	Pattern  string

	re *regexp.Regexp
}

// Match is the rule that fired for a field.
type Match struct {
	RuleID string
	Type   fieldtype.Type
}

// RuleSet is an ordered, compiled list of rules. The zero value is an
// empty set that never matches.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet compiles defs case-insensitively and orders them by
// priority. Duplicate IDs or priorities are rejected because they make
// precedence ambiguous.
func NewRuleSet(defs []Rule) (RuleSet, error) {
	rules := make([]Rule, 0, len(defs))
	ids := make(map[string]struct{}, len(defs))
	priorities := make(map[int]string, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return RuleSet{}, fmt.Errorf("rule with priority %d has no id", d.Priority)
		}
		if _, dup := ids[d.ID]; dup {
			return RuleSet{}, fmt.Errorf("duplicate rule id %q", d.ID)
		}
		if other, dup := priorities[d.Priority]; dup {
			return RuleSet{}, fmt.Errorf("rules %q and %q share priority %d", other, d.ID, d.Priority)
		}
		if d.Type == fieldtype.Unknown || !d.Type.Valid() {
			return RuleSet{}, fmt.Errorf("rule %q maps to no field type", d.ID)
		}
		re, err := regexp.Compile(`(?i)` + d.Pattern)
		if err != nil {
			return RuleSet{}, fmt.Errorf("compile rule %q: %w", d.ID, err)
		}
		ids[d.ID] = struct{}{}
		priorities[d.Priority] = d.ID
		d.re = re
		rules = append(rules, d)
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
	return RuleSet{rules: rules}, nil
}

// MustRuleSet is NewRuleSet for the built-in definitions.
func MustRuleSet(defs []Rule) RuleSet {
	rs, err := NewRuleSet(defs)
	if err != nil {
		panic(err)
	}
	return rs
}

// Match returns the first rule, in priority order, whose pattern matches
// text.
func (s RuleSet) Match(text string) (Match, bool) {
	if text == "" {
		return Match{}, false
	}
	for _, r := range s.rules {
		if r.re.MatchString(text) {
			return Match{RuleID: r.ID, Type: r.Type}, true
		}
	}
	return Match{}, false
}

// Rules returns the rules in evaluation order.
func (s RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

func (s RuleSet) Len() int {
	return len(s.rules)
}
