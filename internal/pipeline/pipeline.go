// Package pipeline classifies the fields of one form page in document
// order: cache first, classifiers on a miss, learning afterwards, then
// answer resolution.
package pipeline

import (
	"context"
	"sync"

	"github.com/straja-ai/fieldsense/internal/answer"
	"github.com/straja-ai/fieldsense/internal/cache"
	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/journal"
	"github.com/straja-ai/fieldsense/internal/redact"
	"github.com/straja-ai/fieldsense/internal/signals"
	"github.com/straja-ai/fieldsense/internal/telemetry"
	"github.com/straja-ai/fieldsense/internal/verifier"
)

// Modes.
const (
	ModeClassifier = "classifier"
	ModeVerifier   = "verifier"
)

// Reason recorded when the cache answered.
const ReasonCache = "cache"

// Classifier is the expensive fallback consulted on a cache miss.
type Classifier interface {
	Classify(ctx context.Context, f field.Field) cache.Result
}

// Options tunes a pipeline.
type Options struct {
	Mode                string
	LearnMinConfidence  float64
	AnswerMinConfidence float64
}

// Deps are the collaborators a pipeline drives. Only Cache is required.
type Deps struct {
	Cache      *cache.Hierarchical
	Classifier Classifier
	Verifier   verifier.Verifier
	Journal    *journal.Journal
	Telemetry  *telemetry.Provider
	Profile    *answer.Profile
}

// ProposalSummary is the signal aggregate reported with each outcome.
type ProposalSummary struct {
	Type       fieldtype.Type    `json:"field_type"`
	Confidence float64           `json:"confidence"`
	Support    int               `json:"support"`
	Agreement  signals.Agreement `json:"agreement"`
}

// Outcome is the result for one field.
type Outcome struct {
	RunID    string          `json:"run_id"`
	Index    int             `json:"index"`
	Key      string          `json:"key"`
	Platform field.Platform  `json:"platform"`
	Result   cache.Result    `json:"result"`
	Reason   string          `json:"reason"`
	Learned  bool            `json:"learned"`
	Proposal ProposalSummary `json:"proposal"`
	Answer   *string         `json:"answer"`
}

// Pipeline runs one page at a time.
type Pipeline struct {
	deps Deps
	opts Options

	mu sync.Mutex
}

// New builds a pipeline. Zero thresholds fall back to 0.60 for learning
// and 0.45 for answering.
func New(deps Deps, opts Options) *Pipeline {
	if deps.Cache == nil {
		deps.Cache = cache.New(nil, nil, nil)
	}
	if opts.Mode == "" {
		opts.Mode = ModeClassifier
	}
	if opts.LearnMinConfidence <= 0 {
		opts.LearnMinConfidence = 0.60
	}
	if opts.AnswerMinConfidence <= 0 {
		opts.AnswerMinConfidence = 0.45
	}
	return &Pipeline{deps: deps, opts: opts}
}

// Cache exposes the lookup chain for stats and inspection.
func (p *Pipeline) Cache() *cache.Hierarchical {
	return p.deps.Cache
}

// Journal returns the outcome journal, possibly nil.
func (p *Pipeline) Journal() *journal.Journal {
	return p.deps.Journal
}

// Run classifies fields in order. Cancellation is honored between fields
// only; on cancellation the outcomes so far are returned with ctx's error.
// Only one Run executes at a time.
func (p *Pipeline) Run(ctx context.Context, pageURL string, fields []field.Field) ([]Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	platform := field.DetectPlatform(pageURL)
	runID := journal.NewRunID()
	out := make([]Outcome, 0, len(fields))
	for i, f := range fields {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		o := p.classify(ctx, platform, f)
		o.RunID = runID
		o.Index = i
		p.record(ctx, o)
		out = append(out, o)
	}
	return out, nil
}

func (p *Pipeline) classify(ctx context.Context, platform field.Platform, f field.Field) Outcome {
	ctx, span := p.deps.Telemetry.StartSpan(ctx, "fieldsense.classify_field", map[string]interface{}{
		"fieldsense.platform": string(platform),
		"fieldsense.kind":     f.Kind.String(),
	})
	defer span.End()

	sigs := signals.Collect(p.deps.Cache.Library(), platform, f)
	proposal := signals.Aggregate(sigs)

	o := Outcome{Key: field.Key(platform, f), Platform: platform}
	if res, ok := p.deps.Cache.Lookup(platform, f); ok {
		o.Result = res
		o.Reason = ReasonCache
	} else {
		o.Result, o.Reason, proposal = p.resolveMiss(ctx, f, sigs, proposal)
		o.Learned = p.learn(platform, f, o.Result)
	}
	span.SetAttributes(telemetry.SafeAttributes(map[string]interface{}{
		"fieldsense.key":        o.Key,
		"fieldsense.type":       o.Result.Type,
		"fieldsense.source":     string(o.Result.Source),
		"fieldsense.confidence": o.Result.Confidence,
		"fieldsense.reason":     o.Reason,
		"fieldsense.learned":    o.Learned,
	})...)

	o.Proposal = ProposalSummary{
		Type:       proposal.Type,
		Confidence: proposal.Confidence,
		Support:    proposal.Support,
		Agreement:  proposal.Agreement,
	}
	if o.Result.Known() && o.Result.Confidence >= p.opts.AnswerMinConfidence {
		o.Answer = answer.Resolve(o.Result.Type, f, p.deps.Profile)
	}
	return o
}

// resolveMiss runs the classifiers for a field no cache level knew. In
// verifier mode the local model's answer becomes one more signal and the
// verifier's verdict is arbitrated against the aggregate.
func (p *Pipeline) resolveMiss(ctx context.Context, f field.Field, sigs []signals.Signal, proposal signals.Proposal) (cache.Result, string, signals.Proposal) {
	local := cache.Miss()
	if p.deps.Classifier != nil {
		local = p.deps.Classifier.Classify(ctx, f)
	}

	if p.opts.Mode == ModeVerifier && p.deps.Verifier != nil {
		if s, ok := signals.LocalModel(local); ok {
			sigs = append(sigs, s)
			proposal = signals.Aggregate(sigs)
		}
		var verdict *signals.Verdict
		v, err := p.deps.Verifier.Verify(ctx, f, proposal)
		if err != nil {
			redact.Logf("pipeline: verifier failed for %q: %v", f.Identifier(), err)
		} else {
			verdict = &v
		}
		d := signals.Resolve(proposal, verdict, f)
		return d.Result, d.Reason, proposal
	}

	if local.Known() {
		return local, string(local.Source), proposal
	}
	if proposal.Type != fieldtype.Unknown {
		d := signals.Resolve(proposal, nil, f)
		return d.Result, d.Reason, proposal
	}
	return cache.Miss(), signals.ReasonNoEvidence, proposal
}

// learn persists confident classifier results; anything weaker is kept
// for this session only. Persistence failures are logged and never fail
// the field.
func (p *Pipeline) learn(platform field.Platform, f field.Field, res cache.Result) bool {
	if !res.Known() {
		return false
	}
	store := p.deps.Cache.Learned()
	if store == nil || !res.Source.Expensive() || res.Confidence < p.opts.LearnMinConfidence {
		p.deps.Cache.RecordRuntime(platform, f, res)
		return false
	}
	added, err := store.Learn(platform, f, res.Type, string(res.Source))
	switch {
	case err != nil:
		redact.Logf("pipeline: warning: could not persist learned pattern for %q: %v", f.Identifier(), err)
		p.deps.Telemetry.RecordLearnedWrite("error")
		p.deps.Cache.RecordRuntime(platform, f, res)
		return false
	case added:
		p.deps.Telemetry.RecordLearnedWrite("written")
		return true
	default:
		p.deps.Telemetry.RecordLearnedWrite("exists")
		return false
	}
}

func (p *Pipeline) record(ctx context.Context, o Outcome) {
	p.deps.Telemetry.RecordOutcome(string(o.Result.Source), string(o.Platform), o.Result.Known())
	if p.deps.Journal == nil {
		return
	}
	err := p.deps.Journal.Record(context.WithoutCancel(ctx), journal.Entry{
		RunID:      o.RunID,
		Platform:   string(o.Platform),
		Key:        o.Key,
		FieldType:  o.Result.Type.String(),
		Confidence: o.Result.Confidence,
		Source:     string(o.Result.Source),
		Reason:     o.Reason,
	})
	if err != nil {
		redact.Logf("pipeline: warning: journal write failed: %v", err)
	}
}
