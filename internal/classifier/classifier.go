// Package classifier runs the two-stage semantic fallback used when no
// cache level knows a field: a zero-shot NLI model first, then an
// embedding similarity model when the first stage is unsure.
package classifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/straja-ai/fieldsense/internal/cache"
	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/redact"
)

const (
	DefaultStage1Threshold = 0.45
	DefaultStage2Threshold = 0.60
)

// ErrNotLoaded is returned by a stage that has no model configured.
var ErrNotLoaded = errors.New("classifier: model not loaded")

// Prediction is a stage's best guess over the canonical types.
type Prediction struct {
	Type       fieldtype.Type
	Confidence float64
}

// Stage classifies free text into one canonical type.
type Stage interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context, text string) (Prediction, error)

func (f StageFunc) Classify(ctx context.Context, text string) (Prediction, error) {
	return f(ctx, text)
}

// Lazy defers loading a stage until its first Classify call. The loader
// runs at most once per process; its error is returned on every call.
func Lazy(name string, load func() (Stage, error)) Stage {
	return &lazyStage{name: name, load: load}
}

type lazyStage struct {
	name  string
	load  func() (Stage, error)
	once  sync.Once
	stage Stage
	err   error
}

func (l *lazyStage) Classify(ctx context.Context, text string) (Prediction, error) {
	l.once.Do(func() {
		start := time.Now()
		l.stage, l.err = l.load()
		if l.err != nil {
			redact.Logf("classifier: %s model unavailable: %v", l.name, l.err)
			return
		}
		redact.Logf("classifier: %s model loaded in %s", l.name, time.Since(start).Round(time.Millisecond))
	})
	if l.err != nil {
		return Prediction{}, l.err
	}
	if l.stage == nil {
		return Prediction{}, ErrNotLoaded
	}
	return l.stage.Classify(ctx, text)
}

// Observer receives per-stage latencies.
type Observer interface {
	RecordStageDuration(stage string, d time.Duration)
}

type Option func(*TwoStage)

func WithThresholds(stage1, stage2 float64) Option {
	return func(t *TwoStage) {
		if stage1 > 0 {
			t.stage1Threshold = stage1
		}
		if stage2 > 0 {
			t.stage2Threshold = stage2
		}
	}
}

func WithObserver(o Observer) Option {
	return func(t *TwoStage) {
		t.observer = o
	}
}

// TwoStage escalates from stage 1 to stage 2 only when stage 1 is below
// its threshold. Stage 2 overrides only when it clears its own threshold.
type TwoStage struct {
	stage1          Stage
	stage2          Stage
	stage1Threshold float64
	stage2Threshold float64
	observer        Observer
}

// New builds a classifier. stage2 may be nil.
func New(stage1, stage2 Stage, opts ...Option) *TwoStage {
	t := &TwoStage{
		stage1:          stage1,
		stage2:          stage2,
		stage1Threshold: DefaultStage1Threshold,
		stage2Threshold: DefaultStage2Threshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TwoStage) Thresholds() (float64, float64) {
	return t.stage1Threshold, t.stage2Threshold
}

// Classify never fails: any stage-1 error yields a fallback miss and any
// stage-2 error keeps the stage-1 result.
func (t *TwoStage) Classify(ctx context.Context, f field.Field) cache.Result {
	if t == nil || t.stage1 == nil {
		return cache.Miss()
	}
	text := f.ClassifierText()

	p1, err := t.run(ctx, string(cache.SourceStage1), t.stage1, text)
	if err != nil {
		if !errors.Is(err, ErrNotLoaded) {
			redact.Logf("classifier: stage 1 failed for %q: %v", f.Identifier(), err)
		}
		return cache.Miss()
	}
	first := toResult(p1, cache.SourceStage1)
	if first.Confidence >= t.stage1Threshold || t.stage2 == nil {
		return first
	}

	if ctx.Err() != nil {
		return first
	}
	p2, err := t.run(ctx, string(cache.SourceStage2), t.stage2, text)
	if err != nil {
		if !errors.Is(err, ErrNotLoaded) {
			redact.Logf("classifier: stage 2 failed for %q: %v", f.Identifier(), err)
		}
		return first
	}
	second := toResult(p2, cache.SourceStage2)
	if second.Type != fieldtype.Unknown && second.Confidence >= t.stage2Threshold {
		return second
	}
	return first
}

func (t *TwoStage) run(ctx context.Context, name string, s Stage, text string) (Prediction, error) {
	start := time.Now()
	p, err := s.Classify(ctx, text)
	if t.observer != nil {
		t.observer.RecordStageDuration(name, time.Since(start))
	}
	return p, err
}

func toResult(p Prediction, src cache.Source) cache.Result {
	if !p.Type.Valid() || p.Type == fieldtype.Unknown {
		return cache.Result{Type: fieldtype.Unknown, Confidence: 0, Source: src}
	}
	return cache.Result{Type: p.Type, Confidence: cache.ClampConfidence(p.Confidence), Source: src}
}
