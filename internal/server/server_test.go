package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/straja-ai/fieldsense/internal/cache"
	"github.com/straja-ai/fieldsense/internal/classifier"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/journal"
	"github.com/straja-ai/fieldsense/internal/learned"
	"github.com/straja-ai/fieldsense/internal/pipeline"
)

func newTestServer(t *testing.T, maxBody int64) *Server {
	t.Helper()
	store, err := learned.Open(filepath.Join(t.TempDir(), "learned.json"))
	if err != nil {
		t.Fatalf("learned.Open: %v", err)
	}
	j, err := journal.Open(":memory:")
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	stage := classifier.StageFunc(func(context.Context, string) (classifier.Prediction, error) {
		return classifier.Prediction{Type: fieldtype.Website, Confidence: 0.9}, nil
	})
	p := pipeline.New(pipeline.Deps{
		Cache:      cache.New(nil, store, nil),
		Classifier: classifier.New(stage, nil),
		Journal:    j,
	}, pipeline.Options{})
	return New(p, maxBody, "test")
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var h healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &h); err != nil || h.Status != "ok" || h.Version != "test" {
		t.Fatalf("unexpected body %s (%v)", rec.Body.String(), err)
	}
}

func TestClassifyThenInspect(t *testing.T) {
	s := newTestServer(t, 0)
	body := `{"url":"https://boards.greenhouse.io/acme/jobs/1","fields":[
		{"label":"Email","type":"email"},
		{"id":"zorb","label":"Zorblat frequency","type":"text"}
	]}`
	rec := do(t, s, http.MethodPost, "/v1/classify", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var resp classifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Outcomes) != 2 || resp.RunID == "" || resp.Partial {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Platform != "greenhouse" {
		t.Fatalf("platform = %q", resp.Platform)
	}
	if got := resp.Outcomes[0].Result; got.Type != fieldtype.Email || got.Source != cache.SourceGlobal {
		t.Fatalf("email outcome %+v", got)
	}
	if got := resp.Outcomes[1]; got.Result.Source != cache.SourceStage1 || !got.Learned {
		t.Fatalf("classifier outcome %+v", got)
	}

	rec = do(t, s, http.MethodGet, "/v1/learned", "")
	var lr learnedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &lr); err != nil {
		t.Fatalf("decode learned: %v", err)
	}
	if lr.Count == 0 || lr.Patterns[0].Type != fieldtype.Website {
		t.Fatalf("unexpected learned patterns %+v", lr)
	}

	rec = do(t, s, http.MethodGet, "/v1/stats", "")
	var st statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.Cache.Global != 1 || st.Cache.Misses != 1 || st.Learned != lr.Count {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.Journal == nil || st.Journal.Fields != 2 || st.Journal.Runs != 1 {
		t.Fatalf("unexpected journal summary %+v", st.Journal)
	}

	rec = do(t, s, http.MethodGet, "/v1/runs/"+resp.RunID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("run status = %d", rec.Code)
	}
	var rows []journal.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil || len(rows) != 2 {
		t.Fatalf("run rows %s (%v)", rec.Body.String(), err)
	}

	if rec = do(t, s, http.MethodGet, "/v1/runs/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown run status = %d", rec.Code)
	}
}

func TestClearLearned(t *testing.T) {
	s := newTestServer(t, 0)
	do(t, s, http.MethodPost, "/v1/classify", `{"fields":[{"label":"Zorblat frequency"}]}`)

	rec := do(t, s, http.MethodDelete, "/v1/learned", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/v1/learned", "")
	if !strings.Contains(rec.Body.String(), `"count":0`) {
		t.Fatalf("store should be empty: %s", rec.Body.String())
	}
}

func TestClassifyRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, 128)
	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{"fields":`, http.StatusBadRequest},
		{"no fields", `{"url":"https://example.com"}`, http.StatusBadRequest},
		{"trailing data", `{"fields":[{"label":"Email"}]} {}`, http.StatusBadRequest},
		{"too large", `{"fields":[{"label":"` + strings.Repeat("x", 256) + `"}]}`, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/v1/classify", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
			var eb errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &eb); err != nil || eb.Error.Message == "" {
				t.Fatalf("expected JSON error body, got %s", rec.Body.String())
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, 0)
	if rec := do(t, s, http.MethodGet, "/v1/chat/completions", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/v1/classify", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
