package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dsautocare/site/internal/ops"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

// setupTestDir returns a config dir whose CSV store holds records.
func setupTestDir(t *testing.T, records ...submission.Submission) string {
	t.Helper()
	dir := t.TempDir()
	if len(records) > 0 {
		st := store.NewCSV(filepath.Join(dir, "submissions.csv"))
		if err := st.WriteAll(context.Background(), records); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	return dir
}

// runCLI runs the app against dir and returns what it wrote.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := newCLIApp(&buf)
	err := app.Run(append([]string{"autocare", "--config-dir", dir}, args...))
	return buf.String(), err
}

func readStore(t *testing.T, dir string) []submission.Submission {
	t.Helper()
	records, err := store.NewCSV(filepath.Join(dir, "submissions.csv")).ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return records
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

// TestCLIList tests the list command.
func TestCLIList(t *testing.T) {
	dir := setupTestDir(t,
		record("01A", "Alex", submission.StatusInbox),
		record("01B", "Blake", submission.StatusCompleted),
	)

	out, err := runCLI(t, dir, "list")
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}

	var output struct {
		Counts  map[string]int                     `json:"counts"`
		Buckets map[string][]submission.Submission `json:"buckets"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Counts["inbox"] != 1 || output.Counts["completed"] != 1 {
		t.Errorf("counts = %v", output.Counts)
	}
	if len(output.Buckets) != 4 {
		t.Errorf("got %d buckets, want 4", len(output.Buckets))
	}

	out, err = runCLI(t, dir, "list", "--status", "done")
	if err != nil {
		t.Fatalf("list --status failed: %v", err)
	}
	output.Buckets = nil
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(output.Buckets) != 1 || len(output.Buckets["completed"]) != 1 {
		t.Errorf("buckets = %v", output.Buckets)
	}

	if _, err := runCLI(t, dir, "list", "--status", "archived"); err == nil {
		t.Error("expected error for unknown status")
	}
}

// TestCLIStatus tests the status command.
func TestCLIStatus(t *testing.T) {
	dir := setupTestDir(t,
		record("01A", "Alex", submission.StatusInbox),
		record("01B", "Blake", submission.StatusInbox),
	)

	out, err := runCLI(t, dir, "status", "01B", "accept")
	if err != nil {
		t.Fatalf("status command failed: %v", err)
	}

	var output ops.SetStatusOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Status != submission.StatusAccepted || output.Previous != submission.StatusInbox {
		t.Errorf("output = %+v", output)
	}

	records := readStore(t, dir)
	if records[0].Status != submission.StatusInbox || records[1].Status != submission.StatusAccepted {
		t.Errorf("statuses = %q, %q", records[0].Status, records[1].Status)
	}
}

// TestCLIClearInbox tests the clear-inbox command.
func TestCLIClearInbox(t *testing.T) {
	dir := setupTestDir(t,
		record("01A", "Alex", submission.StatusInbox),
		submission.Submission{ID: "01B", Status: submission.StatusInbox},
	)

	out, err := runCLI(t, dir, "clear-inbox")
	if err != nil {
		t.Fatalf("clear-inbox command failed: %v", err)
	}

	var output ops.ClearInboxOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Moved != 1 {
		t.Errorf("moved = %d, want 1", output.Moved)
	}
	if got := readStore(t, dir)[1].Status; got != submission.StatusTrash {
		t.Errorf("status = %q, want trash", got)
	}
}

// TestCLIExportImport tests export to stdout and a file, and importing a legacy file.
func TestCLIExportImport(t *testing.T) {
	dir := setupTestDir(t, record("01A", "Alex", submission.StatusInbox))

	t.Run("stdout", func(t *testing.T) {
		out, err := runCLI(t, dir, "export")
		if err != nil {
			t.Fatalf("export command failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 || lines[0] != strings.Join(submission.Header, ",") {
			t.Errorf("unexpected export:\n%s", out)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		out, err := runCLI(t, dir, "export", "--out", path)
		if err != nil {
			t.Fatalf("export command failed: %v", err)
		}
		var output ops.ExportOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.Count != 1 {
			t.Errorf("count = %d, want 1", output.Count)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("export file missing: %v", err)
		}
	})

	t.Run("import legacy headerless", func(t *testing.T) {
		legacy := filepath.Join(t.TempDir(), "old.csv")
		content := "Jo,jo@example.com,Brakes squeak\nKim,kim@example.com,Oil change\n"
		if err := os.WriteFile(legacy, []byte(content), 0600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		out, err := runCLI(t, dir, "import", legacy)
		if err != nil {
			t.Fatalf("import command failed: %v", err)
		}
		var output ops.ImportOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.Imported != 2 {
			t.Errorf("imported = %d, want 2", output.Imported)
		}

		records := readStore(t, dir)
		if len(records) != 3 {
			t.Fatalf("got %d records, want 3", len(records))
		}
		if records[1].Name != "Jo" || records[1].Message != "Brakes squeak" || records[1].Status != submission.StatusInbox {
			t.Errorf("imported record = %+v", records[1])
		}
	})
}

// TestCLIBackup_NotConfigured tests that backup fails cleanly without a bucket.
func TestCLIBackup_NotConfigured(t *testing.T) {
	t.Setenv("BACKUP_BUCKET", "")
	dir := setupTestDir(t)

	_, err := runCLI(t, dir, "backup")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "[UNAVAILABLE]") {
		t.Errorf("error = %q, want [UNAVAILABLE] prefix", err.Error())
	}
}

// TestCLIErrorHandling tests that errors are formatted as [CODE] message.
func TestCLIErrorHandling(t *testing.T) {
	dir := setupTestDir(t, record("01A", "Alex", submission.StatusInbox))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown id", []string{"status", "nope", "trash"}, "[NOT_FOUND]"},
		{"unknown status", []string{"status", "01A", "archived"}, "[INVALID_REQUEST]"},
		{"missing args", []string{"status", "01A"}, "[INVALID_REQUEST]"},
		{"import traversal", []string{"import", "../x.csv"}, "[INVALID_REQUEST]"},
		{"import wrong extension", []string{"import", filepath.Join(dir, "x.json")}, "[INVALID_REQUEST]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, dir, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.HasPrefix(err.Error(), tt.want) {
				t.Errorf("error = %q, want prefix %s", err.Error(), tt.want)
			}
		})
	}
}

// TestCLIInvalidConfig tests that a bad config file stops every command.
func TestCLIInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"store_backend": "postgres"}`), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := runCLI(t, dir, "list")
	if err == nil || !strings.Contains(err.Error(), "store_backend") {
		t.Errorf("error = %v, want store_backend validation error", err)
	}
}

// TestCLISQLiteBackend tests that commands run against the sqlite store.
func TestCLISQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"store_backend": "sqlite"}`), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := runCLI(t, dir, "list")
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}
	if !strings.Contains(out, `"counts"`) {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "submissions.db")); err != nil {
		t.Errorf("expected sqlite database: %v", err)
	}
}
