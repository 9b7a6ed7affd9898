// Package cache composes the pattern library, the learned store and the
// session cache into one ordered lookup chain.
package cache

import (
	"github.com/straja-ai/fieldsense/internal/fieldtype"
)

// Source names the layer that produced a classification.
type Source string

const (
	SourceGlobal   Source = "global"
	SourcePlatform Source = "platform"
	SourceQuestion Source = "question"
	SourceLearned  Source = "learned"
	SourceRuntime  Source = "runtime"
	SourceStage1   Source = "stage1_nli"
	SourceStage2   Source = "stage2_semantic"
	SourceVerifier Source = "verifier"
	SourceSignals  Source = "signals"
	SourceEvidence Source = "option_evidence"
	SourceFallback Source = "fallback"
)

// Expensive reports whether the source is a classifier whose result is
// worth persisting. Signal aggregates are heuristics and stay in the
// runtime cache, except option evidence that overruled a verifier.
func (s Source) Expensive() bool {
	switch s {
	case SourceStage1, SourceStage2, SourceVerifier, SourceEvidence:
		return true
	default:
		return false
	}
}

// StaticConfidence is asserted by every pattern-library level. Pattern
// matches are deterministic, not probabilistic.
const StaticConfidence = 0.95

// Result is one classification.
type Result struct {
	Type       fieldtype.Type `json:"field_type"`
	Confidence float64        `json:"confidence"`
	Source     Source         `json:"source"`
	RuleID     string         `json:"rule_id,omitempty"`
}

// Miss is the result for a field no layer could classify.
func Miss() Result {
	return Result{Type: fieldtype.Unknown, Confidence: 0, Source: SourceFallback}
}

// Known reports whether the result names a real type.
func (r Result) Known() bool {
	return r.Type != fieldtype.Unknown && r.Confidence > 0
}

// ClampConfidence bounds c to [0, 1].
func ClampConfidence(c float64) float64 {
	switch {
	case c != c || c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
