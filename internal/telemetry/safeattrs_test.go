package telemetry

import (
	"strings"
	"testing"
)

func TestSafeAttributesFiltersSecrets(t *testing.T) {
	kvs := map[string]interface{}{
		"prompt":        "should drop",
		"content":       "drop",
		"api_key":       "sk-123",
		"token":         "abc",
		"safe_key":      "ok",
		"long_string":   string(make([]byte, 600)),
		"short_string":  "fine",
		"field_type":    "city",
		"authorization": "secret",
	}

	attrs := SafeAttributes(kvs)
	for _, a := range attrs {
		if a.Key == "prompt" || a.Key == "content" || a.Key == "api_key" || a.Key == "authorization" || a.Key == "token" {
			t.Fatalf("unexpected unsafe attribute %s", a.Key)
		}
		if a.Key == "long_string" {
			t.Fatalf("expected long string to be skipped")
		}
	}
}

func TestSafeAttributesDropsProfileValues(t *testing.T) {
	kvs := map[string]interface{}{
		"answer":         "Ada",
		"profile.email":  "ada@example.com",
		"field_value":    "415 555 0100",
		"home_address":   "1 Main St",
		"fieldsense.key": "workday|city|city|text",
	}
	attrs := SafeAttributes(kvs)
	if len(attrs) != 1 || string(attrs[0].Key) != "fieldsense.key" {
		t.Fatalf("expected only the key attribute to survive, got %+v", attrs)
	}
}

type kind int

func (kind) String() string { return "dropdown" }

func TestSafeAttributesDropsAnswerShapedValues(t *testing.T) {
	kvs := map[string]interface{}{
		"fieldsense.label":    "Contact ada@example.com for details",
		"fieldsense.hint":     "+1 415 555 0100",
		"fieldsense.page":     "https://jobs.example.com/apply/123",
		"fieldsense.postcode": "SW1A 1AA 94107",
		"fieldsense.note":     strings.Repeat("free text ", 20),
		"fieldsense.kind":     kind(0),
		"fieldsense.type":     "city",
		"fieldsense.learned":  true,
		"fieldsense.options":  []string{"Yes", "No", "ada@example.com"},
	}
	attrs := SafeAttributes(kvs)

	got := map[string]string{}
	for _, a := range attrs {
		got[string(a.Key)] = a.Value.Emit()
	}
	want := map[string]string{
		"fieldsense.kind":    "dropdown",
		"fieldsense.type":    "city",
		"fieldsense.learned": "true",
		"fieldsense.options": `["Yes","No"]`,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s = %q, want %q (all: %v)", k, got[k], v, got)
		}
	}
	for i := 1; i < len(attrs); i++ {
		if attrs[i-1].Key >= attrs[i].Key {
			t.Fatalf("attributes not sorted: %v", attrs)
		}
	}
}
