package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/ops"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store store.Store
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st store.Store) *Handlers {
	return &Handlers{store: st}
}

// ListRequest represents the arguments for submission_list.
type ListRequest struct {
	Status string `json:"status,omitempty"`
}

// GetRequest represents the arguments for submission_get.
type GetRequest struct {
	ID string `json:"id"`
}

// SetStatusRequest represents the arguments for submission_set_status.
type SetStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ListResponse is the submission_list result.
type ListResponse struct {
	Counts  map[submission.Status]int                     `json:"counts"`
	Buckets map[submission.Status][]submission.Submission `json:"buckets"`
	Moved   int                                           `json:"moved_to_trash"`
	Warning string                                        `json:"warning,omitempty"`
}

// HandleList handles the submission_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	statuses := submission.Statuses
	if input.Status != "" {
		st, ok := submission.ParseStatus(input.Status)
		if !ok {
			return errorResult(errors.NewInvalidRequest("unknown status: " + input.Status)), nil
		}
		statuses = []submission.Status{st}
	}

	out, err := ops.Bucket(ctx, h.store)
	if err != nil {
		return errorResult(err), nil
	}

	resp := ListResponse{
		Counts:  out.Counts,
		Buckets: make(map[submission.Status][]submission.Submission, len(statuses)),
		Moved:   out.Moved,
		Warning: out.Warning,
	}
	for _, st := range statuses {
		items := out.Buckets.Get(st)
		if items == nil {
			items = []submission.Submission{}
		}
		resp.Buckets[st] = items
	}
	return successResult(resp)
}

// HandleGet handles the submission_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Get(ctx, h.store, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSetStatus handles the submission_set_status tool call.
func (h *Handlers) HandleSetStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetStatusRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SetStatus(ctx, h.store, ops.SetStatusInput{
		ID:     input.ID,
		Status: input.Status,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleClearInbox handles the submission_clear_inbox tool call.
func (h *Handlers) HandleClearInbox(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := decode[struct{}](req); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ClearEmptyInbox(ctx, h.store)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal and storage causes are replaced by their generic message.
func errorResult(err error) *mcp.CallToolResult {
	sErr := errors.As(err)

	errorObj := map[string]any{
		"code":    sErr.Code,
		"message": sErr.Message,
		"status":  sErr.Status,
	}
	switch {
	case sErr.Code == errors.ErrInternal:
		errorObj["message"] = "an internal error occurred"
	case sErr.Public() && sErr.Details != nil:
		errorObj["details"] = sErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
