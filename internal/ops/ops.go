// Package ops implements the submission operations shared by the web server,
// the CLI and the MCP server. Every mutation is a read-modify-write of the
// whole store through Store.WriteAll.
package ops

import (
	"context"
	"log/slog"

	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

// readAll loads the store. Stores degrade unreadable files to an empty result,
// so an error here means the store itself is unusable.
func readAll(ctx context.Context, st store.Store) ([]submission.Submission, error) {
	records, err := st.ReadAll(ctx)
	if err != nil {
		return nil, errors.NewStorage("read_all", err)
	}
	return records, nil
}

// readStrict loads the store for a bulk rewrite. Stores that can tell an
// unreadable file from an empty one are asked to, so the rewrite never
// replaces records it could not see.
func readStrict(ctx context.Context, st store.Store) ([]submission.Submission, error) {
	sr, ok := st.(store.StrictReader)
	if !ok {
		return readAll(ctx, st)
	}
	records, err := sr.ReadStrict(ctx)
	if err != nil {
		slog.Warn("store unreadable, refusing bulk write", "op", "read_strict", "error", err)
		if errors.Is(err, errors.ErrStorage) {
			return nil, err
		}
		return nil, errors.NewStorage("read_all", err)
	}
	return records, nil
}

// indexOf returns the position of the record with id, or -1.
func indexOf(records []submission.Submission, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

// storageWarning is the user-facing notice for a write that may not have persisted.
func storageWarning(op string, err error) string {
	slog.Warn("change may not be durable", "op", op, "error", err)
	return "The change was applied but could not be saved. It may not be durable; please retry."
}
