package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/provider"
	"github.com/straja-ai/fieldsense/internal/signals"
)

func TestVerifySendsFieldAndProposal(t *testing.T) {
	fake := provider.NewFake(`{"type": "country", "confidence": 0.9}`)
	v := NewLLM(fake, "gpt-4o-mini")

	f := field.Field{ID: "loc", Label: "Location", Kind: field.KindDropdown, Options: []string{"Canada", "Mexico"}}
	got, err := v.Verify(context.Background(), f, signals.Proposal{Type: fieldtype.State})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Type != fieldtype.Country || got.Confidence != 0.9 {
		t.Fatalf("unexpected verdict %+v", got)
	}

	reqs := fake.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(reqs))
	}
	req := reqs[0]
	if !req.JSON || req.Model != "gpt-4o-mini" || len(req.Messages) != 2 {
		t.Fatalf("unexpected request %+v", req)
	}
	if !strings.Contains(req.Messages[0].Content, "phone_extension") {
		t.Fatalf("system prompt should list type names")
	}
	var q question
	if err := json.Unmarshal([]byte(req.Messages[1].Content), &q); err != nil {
		t.Fatalf("user message is not JSON: %v", err)
	}
	if q.Label != "Location" || q.ID != "loc" || q.Kind != "dropdown" || q.Proposed != "state" || len(q.Options) != 2 {
		t.Fatalf("unexpected question %+v", q)
	}
}

func TestVerifyProviderError(t *testing.T) {
	fake := &provider.FakeProvider{Error: errors.New("boom")}
	if _, err := NewLLM(fake, "m").Verify(context.Background(), field.Field{Label: "City"}, signals.Proposal{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseReply(t *testing.T) {
	cases := []struct {
		name string
		text string
		want signals.Verdict
		err  bool
	}{
		{"plain", `{"type":"city","confidence":0.7}`, signals.Verdict{Type: fieldtype.City, Confidence: 0.7}, false},
		{"fenced", "```json\n{\"type\":\"email\",\"confidence\":1}\n```", signals.Verdict{Type: fieldtype.Email, Confidence: 1}, false},
		{"prose", `Sure! {"type":"gpa","confidence":0.5} hope that helps`, signals.Verdict{Type: fieldtype.GPA, Confidence: 0.5}, false},
		{"unknown name", `{"type":"favorite_color","confidence":0.9}`, signals.Verdict{Type: fieldtype.Unknown}, false},
		{"clamped", `{"type":"city","confidence":3}`, signals.Verdict{Type: fieldtype.City, Confidence: 1}, false},
		{"garbage", `no idea`, signals.Verdict{}, true},
		{"broken", `{"type":`, signals.Verdict{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseReply(tc.text)
			if tc.err {
				if !errors.Is(err, ErrBadReply) {
					t.Fatalf("expected ErrBadReply, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReply: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
