package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/straja-ai/fieldsense/internal/answer"
	"github.com/straja-ai/fieldsense/internal/cache"
	"github.com/straja-ai/fieldsense/internal/classifier"
	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/journal"
	"github.com/straja-ai/fieldsense/internal/learned"
	"github.com/straja-ai/fieldsense/internal/signals"
)

var unseenField = field.Field{ID: "zorb_freq", Label: "Zorblat frequency", Kind: field.KindText}

type countingStage struct {
	pred  classifier.Prediction
	calls int
}

func (s *countingStage) Classify(ctx context.Context, text string) (classifier.Prediction, error) {
	s.calls++
	return s.pred, nil
}

type stubVerifier struct {
	verdict signals.Verdict
	err     error
	calls   int
}

func (v *stubVerifier) Verify(ctx context.Context, f field.Field, p signals.Proposal) (signals.Verdict, error) {
	v.calls++
	return v.verdict, v.err
}

func openStore(t *testing.T, path string) *learned.Store {
	t.Helper()
	store, err := learned.Open(path)
	if err != nil {
		t.Fatalf("learned.Open: %v", err)
	}
	return store
}

func TestGlobalHitResolvesAnswer(t *testing.T) {
	profile := &answer.Profile{Personal: answer.Personal{FirstName: "Ada"}}
	p := New(Deps{Profile: profile}, Options{})

	out, err := p.Run(context.Background(), "https://boards.greenhouse.io/acme/jobs/1", []field.Field{{Label: "First Name*"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one outcome, got %d", len(out))
	}
	o := out[0]
	if o.Result.Type != fieldtype.FirstName || o.Result.Confidence != 0.95 || o.Result.Source != cache.SourceGlobal {
		t.Fatalf("unexpected result %+v", o.Result)
	}
	if o.Reason != ReasonCache || o.Answer == nil || *o.Answer != "Ada" {
		t.Fatalf("unexpected outcome %+v", o)
	}
	if o.Platform != field.PlatformGreenhouse || o.RunID == "" {
		t.Fatalf("platform or run id missing: %+v", o)
	}
}

func TestEscalationThenLearnedInFreshProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learned.json")
	stage1 := &countingStage{pred: classifier.Prediction{Type: fieldtype.Major, Confidence: 0.30}}
	stage2 := &countingStage{pred: classifier.Prediction{Type: fieldtype.Website, Confidence: 0.72}}
	profile := &answer.Profile{Links: answer.Links{Website: "https://ada.example"}}

	first := New(Deps{
		Cache:      cache.New(nil, openStore(t, path), nil),
		Classifier: classifier.New(stage1, stage2),
		Profile:    profile,
	}, Options{})
	out, err := first.Run(context.Background(), "https://example.com/apply", []field.Field{unseenField})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := out[0].Result; got.Type != fieldtype.Website || got.Source != cache.SourceStage2 || got.Confidence != 0.72 {
		t.Fatalf("expected stage 2 result, got %+v", got)
	}
	if !out[0].Learned {
		t.Fatalf("confident stage 2 result should be learned")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read learned file: %v", err)
	}
	if strings.Contains(string(data), "ada.example") {
		t.Fatalf("learned store must never contain answers: %s", data)
	}

	// A new process: new store handle, new cache, classifiers that must
	// not run.
	fresh1 := &countingStage{pred: classifier.Prediction{Type: fieldtype.Major, Confidence: 0.99}}
	second := New(Deps{
		Cache:      cache.New(nil, openStore(t, path), nil),
		Classifier: classifier.New(fresh1, nil),
	}, Options{})
	out, err = second.Run(context.Background(), "https://example.com/apply", []field.Field{unseenField})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := out[0].Result; got.Type != fieldtype.Website || got.Source != cache.SourceLearned {
		t.Fatalf("expected learned hit, got %+v", got)
	}
	if fresh1.calls != 0 {
		t.Fatalf("classifier ran %d times on a learned field", fresh1.calls)
	}
}

func TestLowConfidenceStaysInRuntimeCache(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "learned.json"))
	stage1 := &countingStage{pred: classifier.Prediction{Type: fieldtype.Major, Confidence: 0.30}}
	stage2 := &countingStage{pred: classifier.Prediction{Type: fieldtype.Website, Confidence: 0.50}}
	profile := &answer.Profile{Education: answer.Education{Major: "Mathematics"}}
	p := New(Deps{
		Cache:      cache.New(nil, store, nil),
		Classifier: classifier.New(stage1, stage2),
		Profile:    profile,
	}, Options{})

	out, err := p.Run(context.Background(), "", []field.Field{unseenField})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	o := out[0]
	if o.Result.Type != fieldtype.Major || o.Result.Source != cache.SourceStage1 || o.Learned {
		t.Fatalf("stage 1 guess should be kept but not learned: %+v", o)
	}
	if o.Answer != nil {
		t.Fatalf("answers below the floor must not resolve, got %q", *o.Answer)
	}
	if store.Len() != 0 {
		t.Fatalf("nothing should be persisted, store has %d entries", store.Len())
	}

	out, err = p.Run(context.Background(), "", []field.Field{unseenField})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out[0].Result.Source != cache.SourceRuntime || stage1.calls != 1 {
		t.Fatalf("second lookup should hit the runtime cache: %+v (stage1 calls %d)", out[0].Result, stage1.calls)
	}
}

func TestVerifierModeOptionEvidence(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "learned.json"))
	v := &stubVerifier{verdict: signals.Verdict{Type: fieldtype.Country, Confidence: 0.9}}
	p := New(Deps{
		Cache:    cache.New(nil, store, nil),
		Verifier: v,
	}, Options{Mode: ModeVerifier})

	f := field.Field{
		ID:      "home_state",
		Label:   "Where do you live?",
		Kind:    field.KindDropdown,
		Options: []string{"Select...", "Alabama", "Alaska", "Arizona", "California"},
	}
	out, err := p.Run(context.Background(), "", []field.Field{f})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	o := out[0]
	if v.calls != 1 {
		t.Fatalf("verifier calls = %d", v.calls)
	}
	if o.Result.Type != fieldtype.State || o.Reason != signals.ReasonEvidence || o.Result.Source != cache.SourceEvidence {
		t.Fatalf("option evidence should beat the verifier: %+v", o)
	}
	if o.Proposal.Support != 2 || o.Proposal.Agreement != signals.AgreementFull {
		t.Fatalf("unexpected proposal %+v", o.Proposal)
	}
	if !o.Learned {
		t.Fatalf("resolved conflict should be learned")
	}
}

func TestVerifierErrorFallsBackToSignals(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "learned.json"))
	v := &stubVerifier{err: errors.New("rate limited")}
	p := New(Deps{Cache: cache.New(nil, store, nil), Verifier: v}, Options{Mode: ModeVerifier})

	f := field.Field{ID: "home_state", Label: "Where do you live?", Options: []string{"Alabama", "Alaska", "Arizona"}}
	out, err := p.Run(context.Background(), "", []field.Field{f})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out[0].Result.Type != fieldtype.State || out[0].Reason != signals.ReasonSignalsOnly {
		t.Fatalf("unexpected outcome %+v", out[0])
	}
	if out[0].Learned || store.Len() != 0 {
		t.Fatalf("an unverified signal guess must not be persisted, store has %d entries", store.Len())
	}
}

func TestSignalsOnlyGuessStaysInRuntimeCache(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "learned.json"))
	p := New(Deps{Cache: cache.New(nil, store, nil)}, Options{})

	f := field.Field{
		ID:      "home_state",
		Label:   "Please tell us a bit more",
		Kind:    field.KindDropdown,
		Options: []string{"Alabama", "Alaska", "Arizona", "California"},
	}
	out, err := p.Run(context.Background(), "https://example.com/apply", []field.Field{f})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	o := out[0]
	if o.Result.Source != cache.SourceSignals || o.Reason != signals.ReasonSignalsOnly {
		t.Fatalf("expected a signals-only result, got %+v", o)
	}
	if o.Learned || store.Len() != 0 {
		t.Fatalf("signals-only result was persisted: %+v", store.Entries())
	}

	out, err = p.Run(context.Background(), "https://example.com/apply", []field.Field{f})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out[0].Result.Source != cache.SourceRuntime {
		t.Fatalf("second lookup should hit the runtime cache, got %+v", out[0].Result)
	}
}

func TestUnknownFieldIsMiss(t *testing.T) {
	p := New(Deps{}, Options{})
	out, err := p.Run(context.Background(), "", []field.Field{unseenField})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	o := out[0]
	if o.Result != cache.Miss() || o.Answer != nil || o.Reason != signals.ReasonNoEvidence {
		t.Fatalf("unexpected outcome %+v", o)
	}
}

func TestCancellationBetweenFields(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stage := classifier.StageFunc(func(context.Context, string) (classifier.Prediction, error) {
		cancel()
		return classifier.Prediction{Type: fieldtype.Major, Confidence: 0.9}, nil
	})
	p := New(Deps{Classifier: classifier.New(stage, nil)}, Options{})

	fields := []field.Field{unseenField, {Label: "Email"}, {Label: "City"}}
	out, err := p.Run(ctx, "", fields)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(out) != 1 || out[0].Result.Type != fieldtype.Major {
		t.Fatalf("the in-flight field should finish, got %+v", out)
	}
}

func TestJournalRowsCarryNoAnswers(t *testing.T) {
	j, err := journal.Open(":memory:")
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer j.Close()

	profile := &answer.Profile{Contact: answer.Contact{Email: "ada@example.com"}}
	p := New(Deps{Journal: j, Profile: profile}, Options{})
	out, err := p.Run(context.Background(), "", []field.Field{{Label: "Email"}, unseenField})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out[0].Answer == nil {
		t.Fatalf("expected an answer for the email field")
	}

	rows, err := j.Run(context.Background(), out[0].RunID)
	if err != nil {
		t.Fatalf("journal.Run: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected two journal rows, got %d", len(rows))
	}
	for _, r := range rows {
		for _, v := range []string{r.Key, r.FieldType, r.Source, r.Reason, r.Platform} {
			if strings.Contains(v, "ada@example.com") {
				t.Fatalf("journal row leaked an answer: %+v", r)
			}
		}
	}
	if rows[0].FieldType != "email" || rows[1].FieldType != "unknown" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
