package data

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	file := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(file, []byte(content), 0644))
	return file
}

func TestReadManifestTree(t *testing.T) {
	dir := t.TempDir()
	root := writeManifest(t, dir, "requirements-dev.txt", "-r docs.txt\n-c constraints.txt\npytest\n")
	writeManifest(t, dir, "docs.txt", "sphinx\n-r requirements-dev.txt\n")
	writeManifest(t, dir, "constraints.txt", "sphinx<8\n")

	manifests, err := ReadManifestTree(root)
	require.NoError(t, err)
	require.Len(t, manifests, 3)

	assert.Equal(t, root, manifests[0].Path)
	assert.False(t, manifests[0].Constraints)

	docs := manifests[1]
	assert.Equal(t, filepath.Join(dir, "docs.txt"), docs.Path)
	require.Len(t, docs.Errors, 1)
	assert.Equal(t, "include cycle", docs.Errors[0].Reason)
	assert.Equal(t, 2, docs.Errors[0].Line)

	assert.True(t, manifests[2].Constraints)
}

func TestReadManifestTreeMissingInclude(t *testing.T) {
	dir := t.TempDir()
	root := writeManifest(t, dir, "requirements.txt", "pytest\n-r missing.txt\n")

	_, err := ReadManifestTree(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requirements.txt:2")
}

func TestReadManifestTreeDiamond(t *testing.T) {
	dir := t.TempDir()
	root := writeManifest(t, dir, "a.txt", "-r b.txt\n-r c.txt\n")
	writeManifest(t, dir, "b.txt", "flake8\n")
	writeManifest(t, dir, "c.txt", "-r b.txt\n")

	manifests, err := ReadManifestTree(root)
	require.NoError(t, err)
	assert.Len(t, manifests, 3)
	for _, m := range manifests {
		assert.Empty(t, m.Errors, m.Path)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Index.Kind)
	assert.Equal(t, "https://api.github.com", cfg.GitHubAPI)

	file := writeManifest(t, t.TempDir(), "reqcheck.yaml", `reqcheck:
  index:
    kind: simple
    url: https://mirror.example.org
  timeout: 3s
  workers: 0
  allow_direct:
    - bluesky
  forbid_unpinned: true
`)
	cfg, err = LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "simple", cfg.Index.Kind)
	assert.Equal(t, "https://mirror.example.org", cfg.Index.URL)
	assert.Equal(t, "3s", cfg.Timeout.String())
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, []string{"bluesky"}, cfg.AllowDirect)
	assert.True(t, cfg.ForbidUnpinned)
	assert.Equal(t, "https://api.github.com", cfg.GitHubAPI)
}
