package ops

import (
	"context"
	"fmt"

	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

// ClearInboxOutput contains the result of the ClearEmptyInbox operation.
type ClearInboxOutput struct {
	Moved   int    `json:"moved"`
	Message string `json:"message"`
}

// ClearEmptyInbox moves every empty inbox submission to trash.
// The store is only written when something moved.
func ClearEmptyInbox(ctx context.Context, st store.Store) (*ClearInboxOutput, error) {
	records, err := readAll(ctx, st)
	if err != nil {
		return nil, err
	}

	moved := submission.TrashEmptyInbox(records)
	if moved == 0 {
		return &ClearInboxOutput{Message: "No empty submissions in the inbox."}, nil
	}
	if err := st.WriteAll(ctx, records); err != nil {
		return nil, err
	}

	noun := "submissions"
	if moved == 1 {
		noun = "submission"
	}
	return &ClearInboxOutput{
		Moved:   moved,
		Message: fmt.Sprintf("Moved %d empty %s to trash.", moved, noun),
	}, nil
}
