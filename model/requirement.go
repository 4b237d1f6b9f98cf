// Package model holds the data model of a requirements manifest.
//
// A requirement specifier names a package and an optional version
// constraint. A direct reference points at a source-control location or
// archive URL instead of a published release, usually as a temporary pin
// until an upstream change is released.
package model

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// NormalizeName returns the canonical form of a package name, so that
// "Event_Model" and "event-model" compare equal.
func NormalizeName(name string) string {
	return strings.ToLower(nameSeparators.ReplaceAllString(name, "-"))
}

type Requirement struct {
	Name       string
	Extras     []string
	Specifiers SpecifierSet
	Marker     string
	Direct     *DirectReference
	Editable   bool
	Hashes     []string
	Comment    string
	Line       int
	Raw        string
}

func (r Requirement) Key() string {
	return NormalizeName(r.Name)
}

func (r Requirement) IsDirect() bool {
	return r.Direct != nil
}

func (r Requirement) String() string {
	var b strings.Builder
	if r.Name == "" && r.Direct != nil {
		return r.Direct.URL
	}
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		fmt.Fprintf(&b, "[%s]", strings.Join(r.Extras, ","))
	}
	if r.Direct != nil {
		fmt.Fprintf(&b, " @ %s", r.Direct.URL)
	} else {
		b.WriteString(r.Specifiers.String())
	}
	if r.Marker != "" {
		fmt.Fprintf(&b, "; %s", r.Marker)
	}
	return b.String()
}

type DirectReference struct {
	URL string
	// VCS is empty for plain archive URLs.
	VCS string
	Ref string
	Egg string
}

// Pinned reports whether the reference tracks a branch, tag or commit
// rather than a fixed archive.
func (d DirectReference) Pinned() bool {
	return d.Ref != ""
}

// Local reports whether the reference is a filesystem path.
func (d DirectReference) Local() bool {
	return !strings.Contains(d.URL, "://")
}

// GitHubRepo returns the owner and repository of a github.com reference.
func (d DirectReference) GitHubRepo() (owner string, repo string, ok bool) {
	raw := d.URL
	if d.VCS != "" {
		raw = strings.TrimPrefix(raw, d.VCS+"+")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "github.com" {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	repo = strings.TrimSuffix(strings.SplitN(parts[1], "@", 2)[0], ".git")
	return parts[0], repo, parts[0] != "" && repo != ""
}

type Option struct {
	Flag  string
	Value string
	Line  int
}

// IsInclude reports whether the option pulls in another manifest.
func (o Option) IsInclude() bool {
	switch o.Flag {
	case "-r", "--requirement", "-c", "--constraint":
		return true
	}
	return false
}

func (o Option) IsConstraint() bool {
	return o.Flag == "-c" || o.Flag == "--constraint"
}

type Manifest struct {
	Path         string
	Constraints  bool
	Requirements []Requirement
	Options      []Option
	Errors       []LineError
}

type LineError struct {
	Path   string
	Line   int
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %q", e.Path, e.Line, e.Reason, e.Text)
}
