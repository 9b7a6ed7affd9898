// Package verifier asks an external chat model to confirm or correct a
// proposed field type.
package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/provider"
	"github.com/straja-ai/fieldsense/internal/signals"
)

// Verifier returns an independent verdict for a field.
type Verifier interface {
	Verify(ctx context.Context, f field.Field, p signals.Proposal) (signals.Verdict, error)
}

// ErrBadReply is returned when the model's reply cannot be decoded.
var ErrBadReply = errors.New("verifier reply is not valid JSON")

// LLMVerifier implements Verifier over a chat completion provider.
type LLMVerifier struct {
	provider provider.Provider
	model    string
	system   string
}

// NewLLM builds a verifier that sends requests to model through p.
func NewLLM(p provider.Provider, model string) *LLMVerifier {
	return &LLMVerifier{
		provider: p,
		model:    model,
		system:   SystemPrompt(),
	}
}

// SystemPrompt lists every canonical type the model may answer with.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You classify job application form fields.\n")
	b.WriteString("Answer with a JSON object {\"type\": \"<name>\", \"confidence\": <0..1>} and nothing else.\n")
	b.WriteString("Use \"unknown\" when none of the names fit.\n")
	b.WriteString("Allowed names: ")
	b.WriteString(strings.Join(fieldtype.Names(), ", "))
	b.WriteString(", unknown.")
	return b.String()
}

type question struct {
	Label    string   `json:"label"`
	ID       string   `json:"id,omitempty"`
	Kind     string   `json:"kind"`
	Options  []string `json:"options,omitempty"`
	Section  string   `json:"section,omitempty"`
	Proposed string   `json:"proposed,omitempty"`
}

type reply struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// UserMessage renders the field and the current proposal as JSON.
func UserMessage(f field.Field, p signals.Proposal) (string, error) {
	q := question{
		Label:   field.SanitizeText(f.Label),
		ID:      f.Identifier(),
		Kind:    f.Kind.String(),
		Options: f.Options,
		Section: field.SanitizeText(f.Section),
	}
	if p.Type != fieldtype.Unknown {
		q.Proposed = p.Type.String()
	}
	b, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("marshal verifier question: %w", err)
	}
	return string(b), nil
}

func (v *LLMVerifier) Verify(ctx context.Context, f field.Field, p signals.Proposal) (signals.Verdict, error) {
	msg, err := UserMessage(f, p)
	if err != nil {
		return signals.Verdict{}, err
	}
	resp, err := v.provider.ChatCompletion(ctx, &provider.Request{
		Model: v.model,
		Messages: []provider.Message{
			{Role: "system", Content: v.system},
			{Role: "user", Content: msg},
		},
		JSON: true,
	})
	if err != nil {
		return signals.Verdict{}, fmt.Errorf("verifier: %w", err)
	}
	return ParseReply(resp.Message.Content)
}

// ParseReply decodes a model reply, tolerating markdown code fences and
// prose around the JSON object. Names outside the enumeration map to
// Unknown.
func ParseReply(text string) (signals.Verdict, error) {
	body := extractJSON(text)
	if body == "" {
		return signals.Verdict{}, ErrBadReply
	}
	var r reply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return signals.Verdict{}, fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	typ, ok := fieldtype.Parse(r.Type)
	if !ok {
		return signals.Verdict{Type: fieldtype.Unknown}, nil
	}
	conf := r.Confidence
	switch {
	case conf != conf || conf < 0:
		conf = 0
	case conf > 1:
		conf = 1
	}
	return signals.Verdict{Type: typ, Confidence: conf}, nil
}

func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
