package telemetryfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadParsesKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telem.msg")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nmcs=5\nwidth=20\nextra=ignored\n"), 0o644))

	r := New(path, "mcs", "width")
	mcs, width, sampledAt, err := r.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, mcs)
	require.Equal(t, 20, width)
	require.False(t, sampledAt.IsZero())
}

func TestReadMissingFile(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "missing.msg"), "mcs", "width")
	_, _, _, err := r.Read(context.Background())
	require.Error(t, err)
}

func TestReadIncompleteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telem.msg")
	require.NoError(t, os.WriteFile(path, []byte("mcs=5\n"), 0o644))
	r := New(path, "mcs", "width")
	_, _, _, err := r.Read(context.Background())
	require.Error(t, err)
}
