package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/joestump/apidocs/internal/openapi"
)

// --- Tool Definitions ---

func aggregateTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"aggregate_openapi",
		"Merge the shared document and every module into one OpenAPI 3.1 aggregate. Returns the build report with its warnings.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"write": {
					"type": "boolean",
					"description": "Write the aggregate to the configured output path (default: false)"
				}
			}
		}`),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"validate_prd",
		"Check every PRD document for front matter, a Review Checklist section, a Traceability section and a level-2 heading.",
		json.RawMessage(`{
			"type": "object",
			"properties": {}
		}`),
	)
}

func listTagsTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"list_tags",
		"List the sorted operation tags of the current aggregate. Builds one first if none exists.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"rebuild": {
					"type": "boolean",
					"description": "Run a fresh build before listing (default: false)"
				}
			}
		}`),
	)
}

// --- Tool Handlers ---

type aggregateArgs struct {
	Write bool `json:"write"`
}

// aggregateResult is the success response for aggregate_openapi.
type aggregateResult struct {
	Build    int             `json:"build"`
	Warnings []string        `json:"warnings"`
	Report   *openapi.Report `json:"report"`
	Message  string          `json:"message,omitempty"`
}

func (s *Server) handleAggregate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args aggregateArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	b, err := s.builds.Aggregate(args.Write)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("aggregate: %v", err)), nil
	}

	res := aggregateResult{
		Build:    b.ID,
		Warnings: b.Report.Warnings(),
		Report:   b.Report,
	}
	if b.Report.Output != "" {
		res.Message = b.Report.Confirmation()
	}
	s.log.Info("aggregate tool", "build", b.ID, "write", args.Write)
	return resultJSON(res)
}

// validateResult is the success response for validate_prd.
type validateResult struct {
	Status string   `json:"status"`
	Lines  []string `json:"lines"`
	Passed bool     `json:"passed"`
	Files  int      `json:"files"`
}

func (s *Server) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.builds.Validate()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validate: %v", err)), nil
	}
	return resultJSON(validateResult{
		Status: report.StatusLine(),
		Lines:  report.Lines(),
		Passed: report.Passed,
		Files:  len(report.Results),
	})
}

type listTagsArgs struct {
	Rebuild bool `json:"rebuild"`
}

func (s *Server) handleListTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listTagsArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	b := s.builds.Latest()
	if b == nil || args.Rebuild {
		var err error
		if b, err = s.builds.Aggregate(false); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("aggregate: %v", err)), nil
		}
	}
	tags := b.Report.Tags
	if tags == nil {
		tags = []string{}
	}
	return resultJSON(tags)
}

// resultJSON marshals v to JSON and returns it as a tool result.
func resultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
