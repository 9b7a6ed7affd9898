package cache

import (
	"sync/atomic"

	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/learned"
	"github.com/straja-ai/fieldsense/internal/patterns"
)

// Level names used for counters and telemetry.
const (
	LevelGlobal       = "global"
	LevelPlatform     = "platform"
	LevelQuestion     = "question"
	LevelLearnedExact = "learned_exact"
	LevelLearnedLoose = "learned_loose"
	LevelRuntime      = "runtime"
	LevelMiss         = "miss"
)

// Observer receives one call per lookup with the level that answered it.
type Observer interface {
	RecordCacheLookup(level string)
}

// Stats is a snapshot of per-level counters.
type Stats struct {
	Global       int64 `json:"global"`
	Platform     int64 `json:"platform"`
	Question     int64 `json:"question"`
	LearnedExact int64 `json:"learned_exact"`
	LearnedLoose int64 `json:"learned_loose"`
	Runtime      int64 `json:"runtime"`
	Misses       int64 `json:"misses"`
}

func (s Stats) Hits() int64 {
	return s.Global + s.Platform + s.Question + s.LearnedExact + s.LearnedLoose + s.Runtime
}

func (s Stats) Lookups() int64 {
	return s.Hits() + s.Misses
}

func (s Stats) HitRate() float64 {
	total := s.Lookups()
	if total == 0 {
		return 0
	}
	return float64(s.Hits()) / float64(total)
}

// Hierarchical answers "what is this field?" from the cheapest source
// that knows: global rules, platform rules, question rules, learned
// patterns, then the runtime cache. Learned patterns sit below every
// static rule so a bad learned entry can never override a reviewed rule.
type Hierarchical struct {
	lib      *patterns.Library
	learned  *learned.Store
	runtime  *Runtime
	observer Observer

	global       atomic.Int64
	platform     atomic.Int64
	question     atomic.Int64
	learnedExact atomic.Int64
	learnedLoose atomic.Int64
	runtimeHits  atomic.Int64
	misses       atomic.Int64
}

// New builds the chain. store and rt may be nil.
func New(lib *patterns.Library, store *learned.Store, rt *Runtime) *Hierarchical {
	if lib == nil {
		lib = patterns.Default()
	}
	if rt == nil {
		rt = NewRuntime()
	}
	return &Hierarchical{lib: lib, learned: store, runtime: rt}
}

// SetObserver installs a lookup observer. Call before use.
func (h *Hierarchical) SetObserver(o Observer) {
	h.observer = o
}

// Lookup tries each level in order and stops at the first hit.
func (h *Hierarchical) Lookup(p field.Platform, f field.Field) (Result, bool) {
	if m, ok := h.lib.MatchGlobal(f); ok {
		h.count(&h.global, LevelGlobal)
		return staticResult(m, SourceGlobal), true
	}
	if m, ok := h.lib.MatchPlatform(p, f); ok {
		h.count(&h.platform, LevelPlatform)
		return staticResult(m, SourcePlatform), true
	}
	if m, ok := h.lib.MatchQuestion(f); ok {
		h.count(&h.question, LevelQuestion)
		return staticResult(m, SourceQuestion), true
	}
	if h.learned != nil {
		if hit, ok := h.learned.Lookup(p, f); ok {
			if hit.Loose {
				h.count(&h.learnedLoose, LevelLearnedLoose)
			} else {
				h.count(&h.learnedExact, LevelLearnedExact)
			}
			return Result{Type: hit.Entry.Type, Confidence: hit.Confidence, Source: SourceLearned}, true
		}
	}
	if res, ok := h.runtime.Get(p, f); ok && res.Type != fieldtype.Unknown {
		h.count(&h.runtimeHits, LevelRuntime)
		res.Source = SourceRuntime
		res.RuleID = ""
		return res, true
	}
	h.count(&h.misses, LevelMiss)
	return Result{}, false
}

// RecordRuntime remembers a result for the rest of the session only.
// Promotion to the learned store goes through the classifier path.
func (h *Hierarchical) RecordRuntime(p field.Platform, f field.Field, res Result) {
	if res.Type == fieldtype.Unknown {
		return
	}
	h.runtime.Put(p, f, res)
}

func (h *Hierarchical) Stats() Stats {
	return Stats{
		Global:       h.global.Load(),
		Platform:     h.platform.Load(),
		Question:     h.question.Load(),
		LearnedExact: h.learnedExact.Load(),
		LearnedLoose: h.learnedLoose.Load(),
		Runtime:      h.runtimeHits.Load(),
		Misses:       h.misses.Load(),
	}
}

// Library returns the static rule library.
func (h *Hierarchical) Library() *patterns.Library {
	return h.lib
}

// Learned returns the learned store, possibly nil.
func (h *Hierarchical) Learned() *learned.Store {
	return h.learned
}

func (h *Hierarchical) Runtime() *Runtime {
	return h.runtime
}

func (h *Hierarchical) count(c *atomic.Int64, level string) {
	c.Add(1)
	if h.observer != nil {
		h.observer.RecordCacheLookup(level)
	}
}

func staticResult(m patterns.Match, src Source) Result {
	return Result{Type: m.Type, Confidence: StaticConfidence, Source: src, RuleID: m.RuleID}
}
