package staging

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{"12", "overlay_12.bin"},
		{"arm9_7", "overlay_arm9_7.bin"},
		{"../../etc/passwd", "overlay_etcpasswd.bin"},
		{"a b-c.d", "overlay_abcd.bin"},
		{"", "overlay_.bin"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Name(tt.key), "key %q", tt.key)
	}
}

func TestStorePutRead(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "stage")
	s, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(defaultFilePerm), s.FilePerm())
	assert.DirExists(t, dir)

	path, err := s.Put("3", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "overlay_3.bin"), path)

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	require.NoError(t, Write(path, []byte("second, longer"), defaultFilePerm))
	got, err = Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second, longer"), got)

	require.NoError(t, Write(path, []byte("x"), defaultFilePerm))
	got, err = Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestStoreFilePerm(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}

	s, err := New(t.TempDir(), WithFilePerm(0o640))
	require.NoError(t, err)
	path, err := s.Put("1", []byte("data"))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestNewEmptyDir(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)
}

func TestReadMissing(t *testing.T) {
	t.Parallel()

	_, err := Read(filepath.Join(t.TempDir(), "missing.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteMissingDir(t *testing.T) {
	t.Parallel()

	err := Write(filepath.Join(t.TempDir(), "gone", "overlay_1.bin"), []byte("x"), defaultFilePerm)
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir())
	require.NoError(t, err)
	path, err := s.Put("9", []byte("data"))
	require.NoError(t, err)

	require.NoError(t, Remove(path))
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, Remove(path), "removing a missing file is a no-op")
}
