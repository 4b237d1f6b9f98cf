package scraping

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"

	"github.com/ZinoKader/reqcheck/model"
)

// Index lists the released versions of a project.
type Index interface {
	Versions(ctx context.Context, name string) ([]string, error)
}

// JSONIndex queries the PyPI JSON API: GET {base}/pypi/{name}/json.
type JSONIndex struct {
	client *Client
	base   string
	cache  *cache.Cache
}

func NewJSONIndex(client *Client, base string, ttl time.Duration) *JSONIndex {
	return &JSONIndex{
		client: client,
		base:   strings.TrimSuffix(base, "/"),
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (i *JSONIndex) project(ctx context.Context, name string) ([]byte, error) {
	name = model.NormalizeName(name)
	if cached, found := i.cache.Get(name); found {
		return cached.([]byte), nil
	}

	URL := fmt.Sprintf("%s/pypi/%s/json", i.base, url.PathEscape(name))
	req, err := i.client.CreateRequest(ctx, URL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, found, err := i.client.fetch(req)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &model.PackageNotExist{Name: name, Index: i.base}
	}
	i.cache.Set(name, body, cache.DefaultExpiration)
	return body, nil
}

// Versions returns every release that still has at least one file that
// was not yanked.
func (i *JSONIndex) Versions(ctx context.Context, name string) ([]string, error) {
	body, err := i.project(ctx, name)
	if err != nil {
		return nil, err
	}

	var versions []string
	gjson.GetBytes(body, "releases").ForEach(func(version, files gjson.Result) bool {
		for _, file := range files.Array() {
			if !file.Get("yanked").Bool() {
				versions = append(versions, version.String())
				break
			}
		}
		return true
	})
	return versions, nil
}

// Repository returns the source repository of a project, preferring the
// declared source link over the home page.
func (i *JSONIndex) Repository(ctx context.Context, name string) (string, error) {
	body, err := i.project(ctx, name)
	if err != nil {
		return "", err
	}

	results := gjson.GetManyBytes(body,
		"info.project_urls.Source",
		"info.project_urls.Source Code",
		"info.project_urls.Repository",
		"info.home_page",
	)
	for _, result := range results {
		if repoURL := result.String(); strings.HasPrefix(repoURL, "https://") {
			return strings.TrimSuffix(strings.ReplaceAll(repoURL, "www.", ""), ".git"), nil
		}
	}
	return "", nil
}
