package classifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/straja-ai/fieldsense/internal/cache"
	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
)

func fixed(typ fieldtype.Type, conf float64, calls *int32) Stage {
	return StageFunc(func(ctx context.Context, text string) (Prediction, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		return Prediction{Type: typ, Confidence: conf}, nil
	})
}

func failing(err error) Stage {
	return StageFunc(func(ctx context.Context, text string) (Prediction, error) {
		return Prediction{}, err
	})
}

var unseen = field.Field{ID: "custom_q_12", Label: "Which metro area do you live closest to?", Kind: field.KindText}

func TestStage2OverridesUnsureStage1(t *testing.T) {
	c := New(fixed(fieldtype.State, 0.30, nil), fixed(fieldtype.City, 0.72, nil))
	res := c.Classify(context.Background(), unseen)
	if res.Type != fieldtype.City || res.Source != cache.SourceStage2 || res.Confidence != 0.72 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestStage1AtThresholdSkipsStage2(t *testing.T) {
	var calls int32
	c := New(fixed(fieldtype.City, 0.45, nil), fixed(fieldtype.State, 0.99, &calls))
	res := c.Classify(context.Background(), unseen)
	if res.Type != fieldtype.City || res.Source != cache.SourceStage1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if calls != 0 {
		t.Fatalf("stage 2 must not run when stage 1 is confident")
	}
}

func TestStage2BelowThresholdKeepsStage1(t *testing.T) {
	c := New(fixed(fieldtype.State, 0.30, nil), fixed(fieldtype.City, 0.59, nil))
	res := c.Classify(context.Background(), unseen)
	if res.Type != fieldtype.State || res.Source != cache.SourceStage1 || res.Confidence != 0.30 {
		t.Fatalf("unexpected result %+v", res)
	}

	c = New(fixed(fieldtype.State, 0.30, nil), fixed(fieldtype.City, 0.60, nil))
	res = c.Classify(context.Background(), unseen)
	if res.Type != fieldtype.City {
		t.Fatalf("stage 2 at exactly its threshold should win, got %+v", res)
	}
}

func TestStageErrors(t *testing.T) {
	c := New(failing(errors.New("boom")), fixed(fieldtype.City, 0.99, nil))
	if res := c.Classify(context.Background(), unseen); res != cache.Miss() {
		t.Fatalf("stage 1 error should be a miss, got %+v", res)
	}

	c = New(fixed(fieldtype.State, 0.20, nil), failing(errors.New("boom")))
	res := c.Classify(context.Background(), unseen)
	if res.Type != fieldtype.State || res.Source != cache.SourceStage1 {
		t.Fatalf("stage 2 error should keep stage 1, got %+v", res)
	}
}

func TestNilClassifierIsMiss(t *testing.T) {
	var c *TwoStage
	if res := c.Classify(context.Background(), unseen); res.Type != fieldtype.Unknown {
		t.Fatalf("expected miss, got %+v", res)
	}
}

func TestLazyLoadsOnce(t *testing.T) {
	var loads int32
	stage := Lazy("test", func() (Stage, error) {
		atomic.AddInt32(&loads, 1)
		return fixed(fieldtype.Email, 0.9, nil), nil
	})
	for i := 0; i < 3; i++ {
		if _, err := stage.Classify(context.Background(), "email"); err != nil {
			t.Fatalf("Classify: %v", err)
		}
	}
	if loads != 1 {
		t.Fatalf("loader ran %d times", loads)
	}

	broken := Lazy("broken", func() (Stage, error) {
		atomic.AddInt32(&loads, 1)
		return nil, errors.New("no model")
	})
	for i := 0; i < 2; i++ {
		if _, err := broken.Classify(context.Background(), "x"); err == nil {
			t.Fatalf("expected load error")
		}
	}
	if loads != 2 {
		t.Fatalf("failed loader should run once, total loads %d", loads)
	}
}

type durations struct {
	stages []string
}

func (d *durations) RecordStageDuration(stage string, _ time.Duration) {
	d.stages = append(d.stages, stage)
}

func TestObserverAndThresholdOptions(t *testing.T) {
	obs := &durations{}
	c := New(fixed(fieldtype.State, 0.50, nil), fixed(fieldtype.City, 0.70, nil), WithThresholds(0.55, 0.65), WithObserver(obs))
	res := c.Classify(context.Background(), unseen)
	if res.Type != fieldtype.City {
		t.Fatalf("custom stage 1 threshold not applied: %+v", res)
	}
	if len(obs.stages) != 2 || obs.stages[0] != "stage1_nli" || obs.stages[1] != "stage2_semantic" {
		t.Fatalf("observer saw %v", obs.stages)
	}
}
