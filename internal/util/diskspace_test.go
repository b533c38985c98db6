package util

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirectoryWritableAcceptsTempDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnsureDirectoryWritable(dir))
}

func TestEnsureDirectoryWritableRejectsMissingDir(t *testing.T) {
	err := EnsureDirectoryWritable("/nonexistent/path/for/videopipe/test")
	assert.Error(t, err)
}

func TestEnsureDirectoryWritableRejectsFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/not-a-dir"
	require.NoError(t, writeFile(path))

	err := EnsureDirectoryWritable(path)
	assert.Error(t, err)
}

func TestAvailableDiskSpaceReturnsPositiveForRealPath(t *testing.T) {
	dir := t.TempDir()
	assert.Greater(t, AvailableDiskSpace(dir), uint64(0))
}

func TestHasSufficientDiskSpaceTrivialCases(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, HasSufficientDiskSpace(dir, 1))
	assert.False(t, HasSufficientDiskSpace(dir, ^uint64(0)))
}

func writeFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}
