// Package mcp exposes the classification pipeline as MCP tools, so an
// agent driving a browser can ask what each form field wants.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/pipeline"
)

// NewServer registers the fieldsense tools on a fresh MCP server.
func NewServer(p *pipeline.Pipeline, version string) *server.MCPServer {
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"fieldsense",
		version,
		server.WithToolCapabilities(false),
	)

	registerClassifyTool(s, p)
	registerStatsTool(s, p)
	registerLearnedTool(s, p)
	return s
}

// ServeStdio runs the server over the given streams until ctx ends or the
// client disconnects.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s).Listen(ctx, in, out)
}

func registerClassifyTool(s *server.MCPServer, p *pipeline.Pipeline) {
	tool := mcp.NewTool("classify_fields",
		mcp.WithDescription("Classify the fields of one application form page. Each field needs a label and may carry id, name, type, options, section and placeholder. Returns one outcome per field in order, with the field type, confidence, source and a proposed answer when the profile has one."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("url",
			mcp.Description("URL of the page the fields were found on; used to detect the applicant tracking system"),
		),
		mcp.WithArray("fields",
			mcp.Required(),
			mcp.Description("Fields in document order"),
			mcp.Items(map[string]any{"type": "object"}),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		raw, ok := args["fields"]
		if !ok {
			return mcp.NewToolResultError("fields is required"), nil
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid fields: %v", err)), nil
		}
		if len(fields) == 0 {
			return mcp.NewToolResultError("fields must not be empty"), nil
		}
		pageURL, _ := args["url"].(string)

		out, err := p.Run(ctx, pageURL, fields)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("classification interrupted after %d fields: %v", len(out), err)), nil
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, p *pipeline.Pipeline) {
	tool := mcp.NewTool("cache_stats",
		mcp.WithDescription("Report cache hits per level, misses, hit rate and the number of learned patterns."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		c := p.Cache()
		st := c.Stats()
		result := map[string]any{
			"cache":    st,
			"hit_rate": st.HitRate(),
			"runtime":  c.Runtime().Len(),
		}
		if store := c.Learned(); store != nil {
			result["learned_patterns"] = store.Len()
		}
		if j := p.Journal(); j != nil {
			if sum, err := j.Summary(ctx); err == nil {
				result["journal"] = sum
			}
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerLearnedTool(s *server.MCPServer, p *pipeline.Pipeline) {
	tool := mcp.NewTool("learned_patterns",
		mcp.WithDescription("List the field signatures learned from earlier classifier runs. Entries hold labels and field types only, never answers."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		store := p.Cache().Learned()
		if store == nil {
			return mcp.NewToolResultText("[]"), nil
		}
		data, _ := json.MarshalIndent(store.Entries(), "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// decodeFields round-trips the loosely typed argument through JSON so
// field.Field's own decoding (kind aliases included) applies.
func decodeFields(raw any) ([]field.Field, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var fields []field.Field
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
