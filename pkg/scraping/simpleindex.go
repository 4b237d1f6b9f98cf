package scraping

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	mapset "github.com/deckarep/golang-set"
	"github.com/patrickmn/go-cache"

	"github.com/ZinoKader/reqcheck/model"
)

var sdistSuffixes = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".zip"}

// SimpleIndex reads the HTML project pages of a PEP 503 repository:
// GET {base}/simple/{name}/. Versions are taken from the distribution
// filenames linked on the page.
type SimpleIndex struct {
	client *Client
	base   string
	cache  *cache.Cache
}

func NewSimpleIndex(client *Client, base string, ttl time.Duration) *SimpleIndex {
	return &SimpleIndex{
		client: client,
		base:   strings.TrimSuffix(base, "/"),
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (i *SimpleIndex) Versions(ctx context.Context, name string) ([]string, error) {
	name = model.NormalizeName(name)
	if cached, found := i.cache.Get(name); found {
		return cached.([]string), nil
	}

	URL := fmt.Sprintf("%s/simple/%s/", i.base, name)
	req, err := i.client.CreateRequest(ctx, URL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")

	body, found, err := i.client.fetch(req)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &model.PackageNotExist{Name: name, Index: i.base}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &model.ConnectionError{URL: URL, Err: fmt.Errorf("could not parse project page: %w", err)}
	}

	seen := mapset.NewSet()
	var versions []string
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		if _, yanked := s.Attr("data-yanked"); yanked {
			return
		}
		version := filenameVersion(name, strings.TrimSpace(s.Text()))
		if version != "" && seen.Add(version) {
			versions = append(versions, version)
		}
	})

	i.cache.Set(name, versions, cache.DefaultExpiration)
	return versions, nil
}

// filenameVersion extracts the version from a wheel or sdist filename of
// the given (normalized) project, or returns "" when the file does not
// belong to it.
func filenameVersion(project string, filename string) string {
	if strings.HasSuffix(filename, ".whl") || strings.HasSuffix(filename, ".egg") {
		parts := strings.Split(filename, "-")
		if len(parts) < 3 || model.NormalizeName(parts[0]) != project {
			return ""
		}
		return parts[1]
	}
	for _, suffix := range sdistSuffixes {
		if !strings.HasSuffix(filename, suffix) {
			continue
		}
		stem := strings.TrimSuffix(filename, suffix)
		cut := strings.LastIndex(stem, "-")
		if cut <= 0 || model.NormalizeName(stem[:cut]) != project {
			return ""
		}
		return stem[cut+1:]
	}
	return ""
}
