package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDump(ctx context.Context, path string) error {
	return os.WriteFile(path, []byte("PGDMP"), 0o600)
}

func TestJob_RunConservaLosMasRecientes(t *testing.T) {
	dir := t.TempDir()
	job := NewJobWithDump(dir, 2, writeDump, nil)
	base := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)

	var paths []string
	for i := 0; i < 4; i++ {
		at := base.Add(time.Duration(i) * 24 * time.Hour)
		job.now = func() time.Time { return at }
		path, err := job.Run(context.Background())
		require.NoError(t, err)
		paths = append(paths, path)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, filepath.Base(paths[2]), entries[0].Name())
	assert.Equal(t, filepath.Base(paths[3]), entries[1].Name())
}

func TestJob_PruneIgnoraArchivosAjenos(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "medstock-20260101-000000.dump"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "medstock-20260102-000000.dump"), nil, 0o600))

	job := NewJobWithDump(dir, 1, writeDump, nil)
	removed, err := job.Prune()
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "medstock-20260101-000000.dump", filepath.Base(removed[0]))

	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
}

func TestJob_ReintentaYNoPodaSiFalla(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "medstock-20250101-000000.dump")
	require.NoError(t, os.WriteFile(old, nil, 0o600))

	calls := 0
	job := NewJobWithDump(dir, 1, func(ctx context.Context, path string) error {
		calls++
		return errors.New("connection refused")
	}, nil)
	job.Backoff = time.Millisecond

	_, err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, calls)

	_, statErr := os.Stat(old)
	assert.NoError(t, statErr, "un volcado fallido no borra respaldos previos")
}

func TestJob_ReintentoExitoso(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	job := NewJobWithDump(dir, 3, func(ctx context.Context, path string) error {
		calls++
		if calls == 1 {
			return errors.New("timeout")
		}
		return writeDump(ctx, path)
	}, nil)
	job.Backoff = time.Millisecond

	path, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.FileExists(t, path)
}
