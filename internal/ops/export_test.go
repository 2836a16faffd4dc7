package ops

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

func TestExport(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seed(t, st, rec("a", "Ann", submission.StatusInbox), rec("b", "Ben", submission.StatusTrash))

	var buf bytes.Buffer
	out, err := Export(ctx, st, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(submission.Header, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "b,"))
}

func TestExportFile(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seed(t, st, rec("a", "Ann", submission.StatusInbox))

	path := filepath.Join(t.TempDir(), "export.csv")
	out, err := ExportFile(ctx, st, path)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, path, out.Path)

	got, err := store.NewCSV(path).ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ann", got[0].Name)
}

func TestExportFile_RejectsBadPath(t *testing.T) {
	_, err := ExportFile(context.Background(), newTestStore(t), filepath.Join(t.TempDir(), "export.txt"))
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
