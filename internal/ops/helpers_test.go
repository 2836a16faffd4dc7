package ops

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/notify"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

func newTestStore(t *testing.T) *store.CSVStore {
	t.Helper()
	return store.NewCSV(filepath.Join(t.TempDir(), "submissions.csv"))
}

// seed writes records directly, bypassing Append.
func seed(t *testing.T, st store.Store, records ...submission.Submission) {
	t.Helper()
	require.NoError(t, st.WriteAll(context.Background(), records))
}

func rec(id, name string, status submission.Status) submission.Submission {
	return submission.Submission{
		ID:        id,
		Timestamp: "2024-01-01 00:00:00",
		Name:      name,
		IsMobile:  submission.DefaultIsMobile,
		Status:    status,
	}
}

type fakeVerifier struct{ err error }

func (f fakeVerifier) Verify(context.Context, string, string) error { return f.err }

type fakeNotifier struct {
	sent []notify.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n notify.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

// brokenStore reads from an inner store but fails every write.
type brokenStore struct {
	store.Store
}

func (b brokenStore) Append(_ context.Context, f submission.Fields) (*submission.Submission, error) {
	s := submission.New(f, fixedNow)
	return &s, errors.NewStorage("append", fmt.Errorf("disk full"))
}

func (b brokenStore) WriteAll(context.Context, []submission.Submission) error {
	return errors.NewStorage("write_all", fmt.Errorf("disk full"))
}

// degradedStore mimics a store whose file exists but cannot be read: ReadAll
// degrades to empty while ReadStrict reports the failure.
type degradedStore struct {
	store.Store
	writes int
}

func (d *degradedStore) ReadAll(context.Context) ([]submission.Submission, error) {
	return []submission.Submission{}, nil
}

func (d *degradedStore) ReadStrict(context.Context) ([]submission.Submission, error) {
	return nil, errors.NewStorage("read_all", fmt.Errorf("permission denied"))
}

func (d *degradedStore) WriteAll(context.Context, []submission.Submission) error {
	d.writes++
	return nil
}
