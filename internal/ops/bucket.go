package ops

import (
	"context"

	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

// BucketOutput contains the result of the Bucket operation.
type BucketOutput struct {
	Buckets submission.Buckets        `json:"buckets"`
	Counts  map[submission.Status]int `json:"counts"`
	Moved   int                       `json:"moved"`
	Warning string                    `json:"warning,omitempty"`
}

// Bucket partitions the store by status. Empty inbox records are moved to
// trash first and the move is persisted, so it is visible to later reads.
// A failed write is reported as a warning; the buckets are still returned.
func Bucket(ctx context.Context, st store.Store) (*BucketOutput, error) {
	records, err := readAll(ctx, st)
	if err != nil {
		return nil, err
	}

	out := &BucketOutput{}
	out.Moved = submission.TrashEmptyInbox(records)
	if out.Moved > 0 {
		if err := st.WriteAll(ctx, records); err != nil {
			out.Warning = storageWarning("bucket", err)
		}
	}

	out.Buckets = submission.Partition(records)
	out.Counts = out.Buckets.Counts()
	return out, nil
}
