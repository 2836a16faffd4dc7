package ops

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string // required; any schema the site has ever written
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Skips    []string `json:"skipped_ids,omitempty"`
}

// Import appends the records of a CSV file to the store.
// Rows without an id get a fresh one; rows whose id already exists are skipped.
// Statuses are normalized on the way in. A store that cannot be read is left
// untouched and the import fails with a STORAGE error.
func Import(ctx context.Context, st store.Store, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead); err != nil {
		return nil, err
	}

	file, err := os.Open(input.Path)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	incoming, err := store.DecodeCSV(file)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unreadable CSV: %v", err))
	}

	records, err := readStrict(ctx, st)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(records)+len(incoming))
	for _, r := range records {
		seen[r.ID] = true
	}

	out := &ImportOutput{}
	for _, r := range incoming {
		if r.ID == "" {
			r.ID = submission.NewID()
		}
		if seen[r.ID] {
			out.Skipped++
			out.Skips = append(out.Skips, r.ID)
			continue
		}
		seen[r.ID] = true
		r.Status = submission.NormalizeStatus(string(r.Status))
		records = append(records, r)
		out.Imported++
	}

	if out.Imported == 0 {
		return out, nil
	}
	if err := st.WriteAll(ctx, records); err != nil {
		return nil, err
	}
	slog.Info("imported submissions", "op", "import", "imported", out.Imported, "skipped", out.Skipped)
	return out, nil
}
