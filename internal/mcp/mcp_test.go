package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dsautocare/site/internal/config"
	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

// testSetup creates a temporary CSV store seeded with records.
func testSetup(t *testing.T, records ...submission.Submission) (*store.CSVStore, *Handlers) {
	t.Helper()

	st := store.NewCSV(filepath.Join(t.TempDir(), "submissions.csv"))
	if len(records) > 0 {
		if err := st.WriteAll(context.Background(), records); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	return st, NewHandlers(st)
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func record(id, name string, status submission.Status) submission.Submission {
	return submission.Submission{
		ID:        id,
		Timestamp: "2024-05-01 09:30:00",
		Name:      name,
		Email:     "x@example.com",
		Status:    status,
	}
}

func TestHandleList(t *testing.T) {
	_, h := testSetup(t,
		record("01A", "Alex", submission.StatusInbox),
		record("01B", "Blake", submission.StatusAccepted),
		submission.Submission{ID: "01C", Status: submission.StatusInbox},
	)

	t.Run("all buckets", func(t *testing.T) {
		result, err := h.HandleList(context.Background(), makeRequest(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := parseOutput(t, result)

		counts := output["counts"].(map[string]any)
		if counts["inbox"] != float64(1) || counts["accepted"] != float64(1) || counts["trash"] != float64(1) {
			t.Errorf("counts = %v", counts)
		}
		buckets := output["buckets"].(map[string]any)
		if len(buckets) != 4 {
			t.Errorf("got %d buckets, want 4", len(buckets))
		}
		if done := buckets["completed"].([]any); len(done) != 0 {
			t.Errorf("completed = %v, want empty list", done)
		}
	})

	t.Run("filtered by synonym", func(t *testing.T) {
		result, _ := h.HandleList(context.Background(), makeRequest(map[string]any{"status": "Deleted"}))
		output := parseOutput(t, result)

		buckets := output["buckets"].(map[string]any)
		if len(buckets) != 1 {
			t.Fatalf("got %d buckets, want 1", len(buckets))
		}
		trash := buckets["trash"].([]any)
		if len(trash) != 1 || trash[0].(map[string]any)["id"] != "01C" {
			t.Errorf("trash = %v", trash)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		result, _ := h.HandleList(context.Background(), makeRequest(map[string]any{"status": "archived"}))
		if !result.IsError {
			t.Fatal("expected error result")
		}
		assertErrorCode(t, result, "INVALID_REQUEST")
	})
}

func TestHandleGet(t *testing.T) {
	_, h := testSetup(t, record("01A", "Alex", submission.StatusInbox))

	tests := []struct {
		name      string
		args      map[string]any
		wantError string
	}{
		{"found", map[string]any{"id": "01A"}, ""},
		{"not found", map[string]any{"id": "nope"}, "NOT_FOUND"},
		{"unknown argument", map[string]any{"id": "01A", "workspace": "x"}, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleGet(context.Background(), makeRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantError != "" {
				if !result.IsError {
					t.Fatalf("expected error %s", tt.wantError)
				}
				assertErrorCode(t, result, tt.wantError)
				return
			}
			output := parseOutput(t, result)
			if output["name"] != "Alex" {
				t.Errorf("name = %v, want Alex", output["name"])
			}
		})
	}
}

func TestHandleSetStatus(t *testing.T) {
	st, h := testSetup(t,
		record("01A", "Alex", submission.StatusInbox),
		record("01B", "Blake", submission.StatusInbox),
	)

	result, err := h.HandleSetStatus(context.Background(), makeRequest(map[string]any{
		"id":     "01A",
		"status": "done",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := parseOutput(t, result)
	if output["status"] != "completed" || output["previous"] != "inbox" {
		t.Errorf("output = %v", output)
	}

	records, _ := st.ReadAll(context.Background())
	if records[0].Status != submission.StatusCompleted || records[1].Status != submission.StatusInbox {
		t.Errorf("statuses = %q, %q", records[0].Status, records[1].Status)
	}

	result, _ = h.HandleSetStatus(context.Background(), makeRequest(map[string]any{
		"id":     "missing",
		"status": "trash",
	}))
	assertErrorCode(t, result, "NOT_FOUND")

	result, _ = h.HandleSetStatus(context.Background(), makeRequest(map[string]any{
		"id":     "01A",
		"status": "archived",
	}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleClearInbox(t *testing.T) {
	st, h := testSetup(t,
		record("01A", "Alex", submission.StatusInbox),
		submission.Submission{ID: "01B", Status: submission.StatusInbox},
		submission.Submission{ID: "01C", Status: submission.StatusInbox},
	)

	result, err := h.HandleClearInbox(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := parseOutput(t, result)
	if output["moved"] != float64(2) {
		t.Errorf("moved = %v, want 2", output["moved"])
	}

	records, _ := st.ReadAll(context.Background())
	for _, r := range records[1:] {
		if r.Status != submission.StatusTrash {
			t.Errorf("%s status = %q, want trash", r.ID, r.Status)
		}
	}

	result, _ = h.HandleClearInbox(context.Background(), makeRequest(nil))
	output = parseOutput(t, result)
	if output["moved"] != float64(0) {
		t.Errorf("second run moved = %v, want 0", output["moved"])
	}
}

func TestServerRegistration(t *testing.T) {
	st, _ := testSetup(t)

	s := NewServer(st, config.DefaultConfig(), "test")
	tools := s.ListTools()

	expectedTools := AllToolNames()
	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	st, _ := testSetup(t)
	cfg := config.DefaultConfig()
	cfg.DisabledTools = []string{"submission_set_status", "submission_clear_inbox", "submission_clear_inbox", "bogus"}

	tools := NewServer(st, cfg, "test").ListTools()

	if len(tools) != 2 {
		t.Errorf("registered tool count = %d, want 2", len(tools))
	}
	for _, name := range []string{"submission_set_status", "submission_clear_inbox"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	for _, name := range []string{"submission_list", "submission_get"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q should be registered", name)
		}
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"submission_get", "submission_list"}, 0},
		{"one unknown", []string{"submission_get", "delete_everything"}, 1},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if unknown := ValidateDisabledTools(tt.input); len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(fmt.Errorf("open /srv/data/submissions.csv: permission denied"))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	text := r.Content[0].(mcp.TextContent).Text
	var payload map[string]map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	if payload["error"]["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want INTERNAL", payload["error"]["code"])
	}
	if payload["error"]["message"] != "an internal error occurred" {
		t.Errorf("message leaked: %v", payload["error"]["message"])
	}
}

func TestErrorResult_StorageOmitsDetails(t *testing.T) {
	r := errorResult(errors.NewStorage("write_all", fmt.Errorf("rename /srv/data/x.tmp: no space")))

	var payload map[string]map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	if payload["error"]["code"] != string(errors.ErrStorage) {
		t.Errorf("code=%v, want STORAGE", payload["error"]["code"])
	}
	if _, ok := payload["error"]["details"]; ok {
		t.Error("expected STORAGE errors to omit details")
	}
}

func TestErrorResult_NotFoundIncludesDetails(t *testing.T) {
	r := errorResult(fmt.Errorf("lookup: %w", errors.NewNotFound("abc")))

	var payload map[string]map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	if payload["error"]["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want NOT_FOUND", payload["error"]["code"])
	}
	if _, ok := payload["error"]["details"]; !ok {
		t.Fatal("expected details for NOT_FOUND")
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error result with code %s", expectedCode)
		return
	}
	var payload map[string]map[string]any
	if err := json.Unmarshal([]byte(extractErrorMessage(result)), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}
	if code := payload["error"]["code"]; code != expectedCode {
		t.Errorf("got error code %v, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}
