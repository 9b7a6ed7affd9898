package signals

import (
	"github.com/straja-ai/fieldsense/internal/cache"
	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/geo"
)

// Verdict is an external verifier's answer.
type Verdict struct {
	Type       fieldtype.Type `json:"field_type"`
	Confidence float64        `json:"confidence"`
}

// Decision is the arbitrated classification.
type Decision struct {
	Result cache.Result `json:"result"`
	Reason string       `json:"reason"`
}

// Reasons recorded on a Decision.
const (
	ReasonNoEvidence      = "no_evidence"
	ReasonSignalsOnly     = "signals_only"
	ReasonVerifierUnknown = "verifier_unknown"
	ReasonAgreement       = "verifier_agrees"
	ReasonVerifierWins    = "verifier_accepted"
	ReasonEvidence        = "option_evidence"
	ReasonUnresolved      = "unresolved_conflict"
)

// Resolve combines a proposal with an optional verdict.
//
// When at least two strong signals agree with each other but not with
// the verifier, the field's options are checked for decisive evidence
// before the verifier is trusted. Evidence only settles the dispute when
// it names one of the two contested types; otherwise the verifier's
// answer stands.
func Resolve(p Proposal, v *Verdict, f field.Field) Decision {
	if v == nil || v.Type == fieldtype.Unknown {
		reason := ReasonSignalsOnly
		if v != nil {
			reason = ReasonVerifierUnknown
		}
		if p.Type == fieldtype.Unknown {
			return Decision{Result: cache.Miss(), Reason: ReasonNoEvidence}
		}
		return Decision{
			Result: cache.Result{Type: p.Type, Confidence: cache.ClampConfidence(p.Confidence), Source: cache.SourceSignals},
			Reason: reason,
		}
	}

	verdict := cache.Result{Type: v.Type, Confidence: cache.ClampConfidence(v.Confidence), Source: cache.SourceVerifier}
	if v.Type == p.Type {
		if p.Confidence > verdict.Confidence {
			verdict.Confidence = cache.ClampConfidence(p.Confidence)
		}
		return Decision{Result: verdict, Reason: ReasonAgreement}
	}

	if p.Type == fieldtype.Unknown || len(p.Strong(p.Type)) < 2 {
		return Decision{Result: verdict, Reason: ReasonVerifierWins}
	}

	if ev, ok := OptionSignal(f.Options); ok && (ev.Type == p.Type || ev.Type == v.Type) {
		if ev.Type == v.Type {
			return Decision{Result: verdict, Reason: ReasonEvidence}
		}
		return Decision{
			Result: cache.Result{Type: ev.Type, Confidence: ev.Confidence, Source: cache.SourceEvidence},
			Reason: ReasonEvidence,
		}
	}
	if isLocation(p.Type) && isLocation(v.Type) {
		if typ, ok := locationEvidence(f.Options); ok && (typ == p.Type || typ == v.Type) {
			return Decision{
				Result: cache.Result{Type: typ, Confidence: StrongConfidence, Source: cache.SourceEvidence},
				Reason: ReasonEvidence,
			}
		}
	}
	return Decision{Result: verdict, Reason: ReasonUnresolved}
}

func isLocation(t fieldtype.Type) bool {
	return t == fieldtype.State || t == fieldtype.Country
}

// locationEvidence accepts weaker option lists than OptionSignal: two
// state names with no countries still point at state.
func locationEvidence(options []string) (fieldtype.Type, bool) {
	states := geo.CountStates(options)
	countries := geo.CountCountries(options)
	switch {
	case states >= 2 && countries == 0:
		return fieldtype.State, true
	case countries >= 2 && states == 0:
		return fieldtype.Country, true
	default:
		return fieldtype.Unknown, false
	}
}
