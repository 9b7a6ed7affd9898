package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/server"

	"github.com/straja-ai/fieldsense/internal/answer"
	"github.com/straja-ai/fieldsense/internal/cache"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
	"github.com/straja-ai/fieldsense/internal/learned"
	"github.com/straja-ai/fieldsense/internal/pipeline"
)

type toolReply struct {
	Text    string
	IsError bool
}

func newTestServer(t *testing.T) *server.MCPServer {
	t.Helper()
	store, err := learned.Open(filepath.Join(t.TempDir(), "learned.json"))
	if err != nil {
		t.Fatalf("learned.Open: %v", err)
	}
	profile := &answer.Profile{Contact: answer.Contact{Email: "ada@example.com"}}
	p := pipeline.New(pipeline.Deps{Cache: cache.New(nil, store, nil), Profile: profile}, pipeline.Options{})
	return NewServer(p, "test")
}

func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) toolReply {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	result := srv.HandleMessage(context.Background(), msg)

	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, raw)
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Result.Content) == 0 {
		t.Fatalf("no content in result: %s", raw)
	}
	return toolReply{Text: resp.Result.Content[0].Text, IsError: resp.Result.IsError}
}

func TestClassifyFieldsTool(t *testing.T) {
	srv := newTestServer(t)
	reply := callTool(t, srv, "classify_fields", map[string]any{
		"url": "https://jobs.lever.co/acme/123/apply",
		"fields": []any{
			map[string]any{"label": "Email address", "type": "email"},
			map[string]any{"label": "Zorblat frequency"},
		},
	})
	if reply.IsError {
		t.Fatalf("tool error: %s", reply.Text)
	}

	var out []pipeline.Outcome
	if err := json.Unmarshal([]byte(reply.Text), &out); err != nil {
		t.Fatalf("decode outcomes: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected two outcomes, got %d", len(out))
	}
	if out[0].Result.Type != fieldtype.Email || out[0].Answer == nil || *out[0].Answer != "ada@example.com" {
		t.Fatalf("unexpected email outcome %+v", out[0])
	}
	if out[0].Platform != "lever" {
		t.Fatalf("platform = %q", out[0].Platform)
	}
	if out[1].Result.Type != fieldtype.Unknown || out[1].Answer != nil {
		t.Fatalf("unexpected miss outcome %+v", out[1])
	}
}

func TestClassifyFieldsToolRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t)
	reply := callTool(t, srv, "classify_fields", map[string]any{"url": "https://example.com"})
	if !reply.IsError || !strings.Contains(reply.Text, "fields") {
		t.Fatalf("expected a tool error, got %+v", reply)
	}

	reply = callTool(t, srv, "classify_fields", map[string]any{"fields": "Email"})
	if !reply.IsError {
		t.Fatalf("a string is not a field list: %+v", reply)
	}
}

func TestStatsAndLearnedTools(t *testing.T) {
	srv := newTestServer(t)
	callTool(t, srv, "classify_fields", map[string]any{
		"fields": []any{map[string]any{"label": "First Name"}},
	})

	reply := callTool(t, srv, "cache_stats", nil)
	if reply.IsError {
		t.Fatalf("tool error: %s", reply.Text)
	}
	var stats struct {
		Cache   cache.Stats `json:"cache"`
		Learned int         `json:"learned_patterns"`
	}
	if err := json.Unmarshal([]byte(reply.Text), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Cache.Global != 1 || stats.Learned != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	reply = callTool(t, srv, "learned_patterns", nil)
	if reply.IsError || strings.TrimSpace(reply.Text) != "[]" {
		t.Fatalf("expected no learned patterns, got %q", reply.Text)
	}
}
