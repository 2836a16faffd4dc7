package ops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

// SetStatusInput contains parameters for the SetStatus operation.
type SetStatusInput struct {
	ID     string
	Status string // canonical status or synonym
}

// SetStatusOutput contains the result of the SetStatus operation.
type SetStatusOutput struct {
	ID       string            `json:"id"`
	Previous submission.Status `json:"previous"`
	Status   submission.Status `json:"status"`
	Message  string            `json:"message"`
}

// SetStatus moves one submission to a new bucket.
// An unknown id fails with NOT_FOUND and leaves the store untouched.
func SetStatus(ctx context.Context, st store.Store, input SetStatusInput) (*SetStatusOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if strings.TrimSpace(input.Status) == "" {
		return nil, errors.NewInvalidRequest("status is required")
	}
	status, ok := submission.ParseStatus(input.Status)
	if !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown status %q: must be one of inbox, accepted, completed, trash", input.Status))
	}

	records, err := readAll(ctx, st)
	if err != nil {
		return nil, err
	}

	i := indexOf(records, id)
	if i < 0 {
		slog.Info("status change for unknown submission", "op", "set_status", "id", id)
		return nil, errors.NewNotFound(id)
	}

	previous := records[i].Status
	records[i].Status = status
	if err := st.WriteAll(ctx, records); err != nil {
		slog.Warn("status change not saved", "op", "set_status", "id", id, "error", err)
		return nil, err
	}

	return &SetStatusOutput{
		ID:       id,
		Previous: previous,
		Status:   status,
		Message:  fmt.Sprintf("Submission moved to %s.", status.Label()),
	}, nil
}
