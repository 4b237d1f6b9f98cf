package data

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeNameUnused(t *testing.T) {
	file := filepath.Join(t.TempDir(), "report.txt")
	assert.Equal(t, file, FreeName(file))
}

func TestFileIncrement(t *testing.T) {
	file := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, ioutil.WriteFile(file, []byte("old"), 0644))

	assert.Equal(t, filepath.Join(filepath.Dir(file), "report0.txt"), FreeName(file))
}

func TestFileIncrementNoExtension(t *testing.T) {
	file := filepath.Join(t.TempDir(), "report")
	_, err := os.Create(file)
	require.NoError(t, err)

	assert.Equal(t, file+"0", FreeName(file))
}

func TestFileIncrementDottedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v1.2")
	require.NoError(t, os.Mkdir(dir, 0755))
	file := filepath.Join(dir, "report")
	_, err := os.Create(file)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "report0"), FreeName(file))
}

func TestMultipleFileIncrement(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "report.txt")
	for _, name := range []string{"report.txt", "report0.txt"} {
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	assert.Equal(t, filepath.Join(dir, "report1.txt"), FreeName(file))
}

func TestAppendToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "history.log")
	require.NoError(t, AppendToFile(file, "one"))
	require.NoError(t, AppendToFile(file, "two"))

	content, err := ioutil.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(content))
}
