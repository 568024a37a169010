package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/errors"
	"github.com/engramdev/engram/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// IngestRequest represents the arguments for event_ingest.
type IngestRequest struct {
	Events []capsule.RawEvent `json:"events"`
}

// ClusterRequest represents the arguments for cluster_run.
type ClusterRequest struct {
	HoursBack  int `json:"hours_back,omitempty"`
	GapMinutes int `json:"gap_minutes,omitempty"`
}

// SearchRequest represents the arguments for context_search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SessionRecentRequest represents the arguments for session_recent.
type SessionRecentRequest struct {
	Limit int `json:"limit,omitempty"`
}

// DecisionRecordRequest represents the arguments for decision_record.
type DecisionRecordRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	Kind      string `json:"decision_type,omitempty"`
}

// DecisionListRequest represents the arguments for decision_list.
type DecisionListRequest struct {
	SessionID string `json:"session_id"`
	Limit     int    `json:"limit,omitempty"`
}

// DecisionDeleteRequest represents the arguments for decision_delete.
type DecisionDeleteRequest struct {
	ID string `json:"id"`
}

// Handler implementations

// HandleIngest handles the event_ingest tool call.
func (h *Handlers) HandleIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IngestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Ingest(ctx, h.env, ops.IngestInput{Events: input.Events})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCluster handles the cluster_run tool call.
func (h *Handlers) HandleCluster(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClusterRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Cluster(ctx, h.env, ops.ClusterInput{
		HoursBack:  input.HoursBack,
		GapMinutes: input.GapMinutes,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSearch handles the context_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.env, ops.SearchInput{
		Query: input.Query,
		TopK:  input.TopK,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSessionRecent handles the session_recent tool call.
func (h *Handlers) HandleSessionRecent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionRecentRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListSessions(ctx, h.env, ops.ListSessionsInput{Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDecisionRecord handles the decision_record tool call.
func (h *Handlers) HandleDecisionRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DecisionRecordRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RecordDecision(ctx, h.env, ops.RecordDecisionInput{
		SessionID: input.SessionID,
		Content:   input.Content,
		Kind:      capsule.DecisionKind(input.Kind),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDecisionList handles the decision_list tool call.
func (h *Handlers) HandleDecisionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DecisionListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListDecisions(ctx, h.env, ops.ListDecisionsInput{
		SessionID: input.SessionID,
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDecisionDelete handles the decision_delete tool call.
func (h *Handlers) HandleDecisionDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DecisionDeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteDecision(ctx, h.env, ops.DeleteDecisionInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult creates an MCP error result from a domain error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if domErr, ok := err.(*errors.Error); ok {
		errorObj := map[string]any{
			"code":    domErr.Code,
			"message": domErr.Message,
			"status":  domErr.Status,
		}
		if domErr.Code != errors.ErrInternal && domErr.Details != nil {
			errorObj["details"] = domErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
