package signals

import (
	"github.com/straja-ai/fieldsense/internal/fieldtype"
)

// Agreement describes how unanimous the signals were.
type Agreement string

const (
	AgreementNone     Agreement = "none"
	AgreementSingle   Agreement = "single"
	AgreementFull     Agreement = "full"
	AgreementMajority Agreement = "majority"
	AgreementConflict Agreement = "conflict"
)

// Proposal is the aggregated view of a field's signals.
type Proposal struct {
	Type       fieldtype.Type `json:"field_type"`
	Confidence float64        `json:"confidence"`
	Support    int            `json:"support"`
	Agreement  Agreement      `json:"agreement"`
	Signals    []Signal       `json:"signals,omitempty"`
}

type group struct {
	typ   fieldtype.Type
	sum   float64
	max   float64
	count int
}

// Aggregate groups signals by type and sums their confidences. The
// highest sum wins; ties go to the group with the stronger single signal,
// then to the lower enum value. Confidence is the winner's strongest
// signal scaled by its share of the total weight.
func Aggregate(signals []Signal) Proposal {
	var groups []*group
	byType := map[fieldtype.Type]*group{}
	total := 0.0
	for _, s := range signals {
		if s.Type == fieldtype.Unknown || s.Confidence <= 0 {
			continue
		}
		g, ok := byType[s.Type]
		if !ok {
			g = &group{typ: s.Type}
			byType[s.Type] = g
			groups = append(groups, g)
		}
		g.sum += s.Confidence
		g.count++
		if s.Confidence > g.max {
			g.max = s.Confidence
		}
		total += s.Confidence
	}
	if len(groups) == 0 {
		return Proposal{Type: fieldtype.Unknown, Agreement: AgreementNone, Signals: signals}
	}

	best := groups[0]
	for _, g := range groups[1:] {
		switch {
		case g.sum > best.sum:
			best = g
		case g.sum == best.sum && g.max > best.max:
			best = g
		case g.sum == best.sum && g.max == best.max && g.typ < best.typ:
			best = g
		}
	}

	voters := 0
	for _, g := range groups {
		voters += g.count
	}
	var agreement Agreement
	switch {
	case voters == 1:
		agreement = AgreementSingle
	case len(groups) == 1:
		agreement = AgreementFull
	case best.count*2 > voters:
		agreement = AgreementMajority
	default:
		agreement = AgreementConflict
	}

	conf := best.max
	if total > 0 {
		conf = best.max * (best.sum / total)
	}
	return Proposal{
		Type:       best.typ,
		Confidence: conf,
		Support:    best.count,
		Agreement:  agreement,
		Signals:    signals,
	}
}

// Strong returns the signals at or above StrongConfidence that vote for typ.
func (p Proposal) Strong(typ fieldtype.Type) []Signal {
	var out []Signal
	for _, s := range p.Signals {
		if s.Type == typ && s.Confidence >= StrongConfidence {
			out = append(out, s)
		}
	}
	return out
}
