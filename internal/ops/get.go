package ops

import (
	"context"
	"strings"

	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

// Get returns the submission with id.
func Get(ctx context.Context, st store.Store, id string) (*submission.Submission, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	records, err := readAll(ctx, st)
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, errors.NewNotFound(id)
	}
	return &records[i], nil
}
