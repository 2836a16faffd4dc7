package ops

import (
	"context"
	"io"

	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/store"
)

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path  string `json:"path,omitempty"`
	Count int    `json:"count"`
}

// Export writes every submission to w as canonical CSV.
func Export(ctx context.Context, st store.Store, w io.Writer) (*ExportOutput, error) {
	records, err := readAll(ctx, st)
	if err != nil {
		return nil, err
	}
	if err := store.EncodeCSV(w, records); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ExportOutput{Count: len(records)}, nil
}

// ExportFile writes every submission to a CSV file at path.
// The file is replaced atomically, so an existing export survives a failure.
func ExportFile(ctx context.Context, st store.Store, path string) (*ExportOutput, error) {
	if err := ValidatePath(path, PathCheckWrite); err != nil {
		return nil, err
	}

	records, err := readAll(ctx, st)
	if err != nil {
		return nil, err
	}
	if err := store.NewCSV(path).WriteAll(ctx, records); err != nil {
		return nil, err
	}
	return &ExportOutput{Path: path, Count: len(records)}, nil
}
