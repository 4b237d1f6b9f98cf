package scraping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZinoKader/reqcheck/model"
)

const eventModelJSON = `{
  "info": {
    "home_page": "",
    "project_urls": {"Source": "https://www.github.com/bluesky/event-model.git"}
  },
  "releases": {
    "1.18.0": [{"filename": "event_model-1.18.0.tar.gz", "yanked": false}],
    "1.19.0": [{"filename": "event_model-1.19.0.tar.gz", "yanked": false}],
    "1.19.1": [{"filename": "event_model-1.19.1.tar.gz", "yanked": true}],
    "0.0.1": []
  }
}`

const eventModelHTML = `<!DOCTYPE html>
<html><body>
<a href="../../packages/a/event_model-1.18.0.tar.gz">event_model-1.18.0.tar.gz</a><br/>
<a href="../../packages/b/event_model-1.18.0-py3-none-any.whl">event_model-1.18.0-py3-none-any.whl</a><br/>
<a href="../../packages/c/event-model-1.19.0.zip">event-model-1.19.0.zip</a><br/>
<a href="../../packages/d/event_model-1.19.1.tar.gz" data-yanked="">event_model-1.19.1.tar.gz</a><br/>
<a href="../../packages/e/unrelated-2.0.tar.gz">unrelated-2.0.tar.gz</a><br/>
</body></html>`

func newIndexServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pypi/event-model/json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, eventModelJSON)
	})
	mux.HandleFunc("/simple/event-model/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		fmt.Fprint(w, eventModelHTML)
	})
	mux.HandleFunc("/pypi/broken/json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestJSONIndexVersions(t *testing.T) {
	var hits int32
	server := newIndexServer(t, &hits)
	index := NewJSONIndex(NewClient(time.Second), server.URL+"/", time.Minute)

	versions, err := index.Versions(context.Background(), "Event_Model")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1.18.0", "1.19.0"}, versions)

	repo, err := index.Repository(context.Background(), "event-model")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/bluesky/event-model", repo)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "project page should be cached")
}

func TestJSONIndexMissingPackage(t *testing.T) {
	var hits int32
	server := newIndexServer(t, &hits)
	index := NewJSONIndex(NewClient(time.Second), server.URL, time.Minute)

	_, err := index.Versions(context.Background(), "no-such-package")
	var notExist *model.PackageNotExist
	require.True(t, errors.As(err, &notExist))
	assert.Equal(t, "no-such-package", notExist.Name)

	_, err = index.Versions(context.Background(), "broken")
	var connErr *model.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Contains(t, connErr.Error(), "500")
}

func TestSimpleIndexVersions(t *testing.T) {
	var hits int32
	server := newIndexServer(t, &hits)
	index := NewSimpleIndex(NewClient(time.Second), server.URL, time.Minute)

	versions, err := index.Versions(context.Background(), "event.model")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.18.0", "1.19.0"}, versions)

	_, err = index.Versions(context.Background(), "event-model")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFilenameVersion(t *testing.T) {
	assert.Equal(t, "6.2.5", filenameVersion("pytest", "pytest-6.2.5-py3-none-any.whl"))
	assert.Equal(t, "6.2.5", filenameVersion("pytest", "pytest-6.2.5.tar.gz"))
	assert.Equal(t, "4.0", filenameVersion("pytest-cov", "pytest_cov-4.0.tar.gz"))
	assert.Equal(t, "", filenameVersion("pytest", "pytest_cov-4.0.tar.gz"))
	assert.Equal(t, "", filenameVersion("pytest", "README.md"))
}

func TestBranchExists(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/bluesky/bluesky/branches/master", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"name": "master"}`)
	})
	mux.HandleFunc("/repos/bluesky/bluesky/git/ref/tags/v1.6.0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ref": "refs/tags/v1.6.0"}`)
	})
	mux.HandleFunc("/repos/bluesky/bluesky/commits/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/bluesky/bluesky/commits/abc123" {
			fmt.Fprint(w, `{"sha": "abc123def456"}`)
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(time.Second)
	client.Token = "secret"
	checker := NewBranchChecker(client, server.URL, time.Minute)
	ctx := context.Background()

	for ref, want := range map[string]bool{"master": true, "v1.6.0": true, "abc123": true, "gone": false} {
		exists, err := checker.BranchExists(ctx, "bluesky", "bluesky", ref)
		require.NoError(t, err, ref)
		assert.Equal(t, want, exists, ref)
	}

	_, err := checker.BranchExists(ctx, "bluesky", "bluesky", "master")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewJSONIndex(NewClient(time.Second), server.URL, 0).Versions(ctx, "pytest")
	assert.True(t, errors.Is(err, context.Canceled))
}
