package nli

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/straja-ai/fieldsense/internal/classifier"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
)

func TestHypothesisUsesDescription(t *testing.T) {
	got := Hypothesis(DefaultTemplate, fieldtype.PostalCode)
	want := "This form field collects " + fieldtype.PostalCode.Description() + "."
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if strings.Contains(got, "postal_code") {
		t.Fatalf("hypothesis must use natural language, got %q", got)
	}
}

func TestCandidatesExcludeUnknown(t *testing.T) {
	for _, c := range candidates() {
		if c == fieldtype.Unknown {
			t.Fatalf("unknown must not be a candidate")
		}
	}
	if len(candidates()) != len(fieldtype.Names()) {
		t.Fatalf("expected every named type")
	}
}

func TestPadKeepsClosingToken(t *testing.T) {
	ids, mask, types := pad([]int{101, 7, 8, 9, 102}, []int{1, 1, 1, 1, 1}, []int{0, 0, 1, 1, 1}, 1, 3)
	if ids[0] != 101 || ids[2] != 102 {
		t.Fatalf("ids=%v", ids)
	}
	if mask[2] != 1 || types[2] != 1 {
		t.Fatalf("mask=%v types=%v", mask, types)
	}

	ids, mask, _ = pad([]int{101, 102}, []int{1, 1}, nil, 1, 4)
	if ids[3] != 0 || mask[2] != 0 {
		t.Fatalf("expected zero padding, ids=%v mask=%v", ids, mask)
	}

	ids, mask, _ = pad([]int{101, 7, 8, 102, 0, 0}, []int{1, 1, 1, 1, 0, 0}, nil, 1, 3)
	if ids[2] != 102 || mask[2] != 1 {
		t.Fatalf("tokenizer padding should be dropped before truncation, ids=%v mask=%v", ids, mask)
	}
}

func TestPadTruncatesPremiseNotHypothesis(t *testing.T) {
	// [CLS] premise(1..20) [SEP] hypothesis(901 902 903) [SEP]
	var ids, mask, types []int
	ids = append(ids, 101)
	for i := 1; i <= 20; i++ {
		ids = append(ids, i)
	}
	ids = append(ids, 102, 901, 902, 903, 102)
	for range ids {
		mask = append(mask, 1)
	}
	for i := range ids {
		if i > 21 {
			types = append(types, 1)
		} else {
			types = append(types, 0)
		}
	}

	const seqLen = 10
	got, gotMask, gotTypes := pad(ids, mask, types, 3+2, seqLen)
	want := []int64{101, 1, 2, 3, 4, 102, 901, 902, 903, 102}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids=%v want %v", got, want)
		}
		if gotMask[i] != 1 {
			t.Fatalf("mask=%v", gotMask)
		}
	}
	wantTypes := []int64{0, 0, 0, 0, 0, 0, 1, 1, 1, 1}
	for i := range wantTypes {
		if gotTypes[i] != wantTypes[i] {
			t.Fatalf("types=%v want %v", gotTypes, wantTypes)
		}
	}

	// A hypothesis longer than the window still keeps the leading token.
	got, _, _ = pad(ids, mask, types, len(ids), 4)
	if got[0] != 101 || got[3] != 102 {
		t.Fatalf("ids=%v", got)
	}
}

func TestLoadWithoutModelDir(t *testing.T) {
	if _, err := Load(Config{}); !errors.Is(err, classifier.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if _, err := Load(Config{ModelDir: t.TempDir(), Template: "no placeholder"}); err == nil {
		t.Fatalf("expected template error")
	}
}

func TestClassifyWithModel(t *testing.T) {
	dir := os.Getenv("FIELDSENSE_NLI_MODEL_DIR")
	if dir == "" {
		t.Skip("FIELDSENSE_NLI_MODEL_DIR not set")
	}
	c, err := Load(Config{ModelDir: dir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer c.Destroy()

	pred, err := c.Classify(context.Background(), "What is your email address? email. Options: none")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if pred.Type != fieldtype.Email {
		t.Fatalf("expected email, got %s (%.2f)", pred.Type, pred.Confidence)
	}
	if pred.Confidence <= 0 || pred.Confidence > 1 {
		t.Fatalf("confidence out of range: %f", pred.Confidence)
	}
}
