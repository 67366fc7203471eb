package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.json")

	err := AtomicWriteFile(path, []byte(`{"ok":true}`), 0644)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
}

func TestAtomicWriteFile_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("first"), 0644))
	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestAtomicWriteFile_EmptyPath(t *testing.T) {
	err := AtomicWriteFile("", []byte("data"), 0644)
	assert.Error(t, err)
}

func TestAtomicWriteFile_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, AtomicWriteFile(path, []byte("data"), 0644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestAtomicWriteReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "asset.bin")
	payload := bytes.Repeat([]byte{0xAB}, 4096)

	written, err := AtomicWriteReader(path, bytes.NewReader(payload), 0644)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestAtomicWriteReader_FailedReadLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "asset.bin")

	_, err := AtomicWriteReader(path, &failingReader{}, 0644)
	require.Error(t, err)

	assert.False(t, FileExists(path))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed write must not leave files behind")
}

type failingReader struct{}

func (*failingReader) Read([]byte) (int, error) {
	return 0, assert.AnError
}

func TestEnsureDir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "c")

	require.NoError(t, EnsureDir(target, 0755))
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent.
	assert.NoError(t, EnsureDir(target, 0755))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	assert.False(t, FileExists(path))
	assert.False(t, FileExists(""))
	assert.False(t, FileExists(dir), "directories are not files")

	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.True(t, FileExists(path))
}
