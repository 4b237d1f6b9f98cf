package scraping

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
)

// BranchChecker asks the GitHub REST API whether a ref named in a direct
// reference still exists.
type BranchChecker struct {
	client *Client
	api    string
	cache  *cache.Cache
}

func NewBranchChecker(client *Client, api string, ttl time.Duration) *BranchChecker {
	return &BranchChecker{
		client: client,
		api:    strings.TrimSuffix(api, "/"),
		cache:  cache.New(ttl, 2*ttl),
	}
}

type refLookup struct {
	path  string
	field string
	match func(value, ref string) bool
}

// a ref may be a branch, a tag or a (possibly abbreviated) commit
var refLookups = []refLookup{
	{"branches/%s", "name", func(v, ref string) bool { return v == ref }},
	{"git/ref/tags/%s", "ref", func(v, ref string) bool { return v == "refs/tags/"+ref }},
	{"commits/%s", "sha", strings.HasPrefix},
}

func (b *BranchChecker) BranchExists(ctx context.Context, owner, repo, ref string) (bool, error) {
	key := strings.Join([]string{owner, repo, ref}, "/")
	if cached, found := b.cache.Get(key); found {
		return cached.(bool), nil
	}

	exists := false
	for _, lookup := range refLookups {
		URL := fmt.Sprintf("%s/repos/%s/%s/%s", b.api, url.PathEscape(owner), url.PathEscape(repo),
			fmt.Sprintf(lookup.path, escapeRef(ref)))
		req, err := b.client.CreateRequest(ctx, URL)
		if err != nil {
			return false, err
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		if b.client.Token != "" {
			req.Header.Set("Authorization", "Bearer "+b.client.Token)
		}

		body, found, err := b.client.fetch(req)
		if err != nil {
			return false, err
		}
		if found && lookup.match(gjson.GetBytes(body, lookup.field).String(), ref) {
			exists = true
			break
		}
	}

	b.cache.Set(key, exists, cache.DefaultExpiration)
	return exists, nil
}

// escapeRef escapes each segment of a ref, keeping the slashes of
// branch names such as "release/v1".
func escapeRef(ref string) string {
	segments := strings.Split(ref, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
