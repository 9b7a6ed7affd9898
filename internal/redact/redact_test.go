package redact

import (
	"strings"
	"testing"
)

func TestStringRedaction(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		disallow []string
		require  []string
	}{
		{
			name:     "bearer header",
			input:    "Authorization: Bearer sk-secret-123",
			disallow: []string{"sk-secret-123"},
			require:  []string{"[REDACTED]"},
		},
		{
			name:     "api keys slice",
			input:    "api_keys=[proj-key-1 proj-key-2]",
			disallow: []string{"proj-key-1", "proj-key-2"},
			require:  []string{"api_keys=[REDACTED]"},
		},
		{
			name:     "gemini header",
			input:    "x-goog-api-key: AIzaSyExample123",
			disallow: []string{"AIzaSyExample123"},
			require:  []string{"[REDACTED]"},
		},
		{
			name:     "job posting url",
			input:    "classify url=https://acme.wd5.myworkdayjobs.com/en-US/careers/job/apply?token=abc123",
			disallow: []string{"token=abc123", "careers/job"},
			require:  []string{"https://acme.wd5.myworkdayjobs.com/apply"},
		},
		{
			name:     "applicant contact details",
			input:    "answer email=jane.doe@example.com phone=+1 (415) 555-0100 label=Email",
			disallow: []string{"jane.doe@example.com", "555-0100"},
			require:  []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "label=Email"},
		},
		{
			name:     "dates survive",
			input:    "run started 2026-10-17 fields=12",
			disallow: []string{"[REDACTED"},
			require:  []string{"2026-10-17"},
		},
		{
			name:     "mixed token",
			input:    "Bearer abc key=supersecret token=anotherone base_url=https://llm.example.test/v1/base/",
			disallow: []string{"abc", "supersecret", "anotherone", "v1/base/"},
			require:  []string{"[REDACTED]", "https://llm.example.test/[REDACTED_PATH]"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := String(tc.input)
			for _, bad := range tc.disallow {
				if bad != "" && contains(out, bad) {
					t.Fatalf("output still contains %q: %s", bad, out)
				}
			}
			for _, want := range tc.require {
				if want == "" {
					continue
				}
				if !contains(out, want) {
					t.Fatalf("output missing required substring %q: %s", want, out)
				}
			}
		})
	}
}

func contains(s, sub string) bool {
	return s != "" && sub != "" && strings.Contains(s, sub)
}
