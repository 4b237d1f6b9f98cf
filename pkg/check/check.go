// Package check turns parsed manifests into a report of findings.
//
// Lint works offline on the manifests alone. Resolve additionally asks
// the package index and GitHub whether every requirement can be
// satisfied and every pinned branch still exists.
package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ZinoKader/reqcheck/model"
	"github.com/ZinoKader/reqcheck/pkg/data"
	"github.com/ZinoKader/reqcheck/pkg/scraping"
)

type BranchChecker interface {
	BranchExists(ctx context.Context, owner, repo, ref string) (bool, error)
}

type Checker struct {
	Index    scraping.Index
	Branches BranchChecker
	Config   data.Config
}

func New(cfg data.Config, index scraping.Index, branches BranchChecker) *Checker {
	return &Checker{Index: index, Branches: branches, Config: cfg}
}

// NewFromConfig wires the index and GitHub clients described by cfg.
func NewFromConfig(cfg data.Config, token string) (*Checker, error) {
	client := scraping.NewClient(cfg.Timeout)
	client.Token = token

	var index scraping.Index
	switch cfg.Index.Kind {
	case "", "json":
		index = scraping.NewJSONIndex(client, cfg.Index.URL, cfg.CacheTTL)
	case "simple":
		index = scraping.NewSimpleIndex(client, cfg.Index.URL, cfg.CacheTTL)
	default:
		return nil, fmt.Errorf("unknown index kind %q", cfg.Index.Kind)
	}
	return New(cfg, index, scraping.NewBranchChecker(client, cfg.GitHubAPI, cfg.CacheTTL)), nil
}

type location struct {
	path   string
	line   int
	marker string
}

// exclusive reports whether two requirements of the same project can never
// apply to the same environment, as with python_version splits.
func exclusive(a, b string) bool {
	return a != "" && b != "" && a != b
}

func markerKey(marker string) string {
	return strings.Join(strings.Fields(marker), "")
}

func (c *Checker) Lint(manifests []model.Manifest) Report {
	report := Report{Manifests: len(manifests)}

	allowed := make(map[string]bool, len(c.Config.AllowDirect))
	for _, name := range c.Config.AllowDirect {
		allowed[model.NormalizeName(name)] = true
	}
	// constraint files restate names on purpose, so they get their own namespace
	seen := map[bool]map[string][]location{false: {}, true: {}}

	for _, m := range manifests {
		for _, e := range m.Errors {
			report.add(Finding{
				Severity: SeverityError,
				Kind:     KindSyntax,
				Path:     e.Path,
				Line:     e.Line,
				Message:  fmt.Sprintf("%s: %q", e.Reason, e.Text),
			})
		}

		for _, req := range m.Requirements {
			report.Requirements++
			key := req.Key()
			if key == "" {
				continue
			}

			here := location{m.Path, req.Line, markerKey(req.Marker)}
			for _, first := range seen[m.Constraints][key] {
				if exclusive(first.marker, here.marker) {
					continue
				}
				report.add(Finding{
					Severity: SeverityError,
					Kind:     KindDuplicate,
					Path:     m.Path,
					Line:     req.Line,
					Name:     req.Name,
					Message:  fmt.Sprintf("%s is already required at %s:%d", req.Name, first.path, first.line),
				})
				break
			}
			seen[m.Constraints][key] = append(seen[m.Constraints][key], here)

			if req.IsDirect() && req.Direct.Pinned() && !allowed[key] {
				report.add(Finding{
					Severity: SeverityWarning,
					Kind:     KindTransientPin,
					Path:     m.Path,
					Line:     req.Line,
					Name:     req.Name,
					Message:  fmt.Sprintf("%s is pinned to %s until an upstream release is available", req.Name, req.Direct.Ref),
				})
			}

			if c.Config.ForbidUnpinned && !m.Constraints && !req.IsDirect() && len(req.Specifiers) == 0 {
				report.add(Finding{
					Severity: SeverityError,
					Kind:     KindUnpinned,
					Path:     m.Path,
					Line:     req.Line,
					Name:     req.Name,
					Message:  fmt.Sprintf("%s has no version constraint", req.Name),
				})
			}
		}
	}

	report.sort()
	return report
}

// Resolve lints the manifests and then checks every requirement against
// the index and every GitHub pin against the repository, with at most
// Config.Workers lookups in flight. Lookup failures become findings;
// only a cancelled context makes Resolve fail.
func (c *Checker) Resolve(ctx context.Context, manifests []model.Manifest) (Report, error) {
	report := c.Lint(manifests)

	var mu sync.Mutex
	add := func(f Finding) {
		mu.Lock()
		report.add(f)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	workers := c.Config.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, m := range manifests {
		if m.Constraints {
			continue
		}
		for _, req := range m.Requirements {
			switch {
			case req.Name == "":
			case !req.IsDirect():
				g.Go(func() error {
					return c.resolveRequirement(gctx, m.Path, req, add)
				})
			case req.Direct.Pinned():
				g.Go(func() error {
					return c.resolveBranch(gctx, m.Path, req, add)
				})
			}
		}
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	report.sort()
	return report, nil
}

func (c *Checker) resolveRequirement(ctx context.Context, path string, req model.Requirement, add func(Finding)) error {
	finding := Finding{Path: path, Line: req.Line, Name: req.Name}

	versions, err := c.Index.Versions(ctx, req.Name)
	var notExist *model.PackageNotExist
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.As(err, &notExist):
		finding.Severity, finding.Kind, finding.Message = SeverityError, KindUnknownPackage, err.Error()
		add(finding)
		return nil
	default:
		log.WithError(err).WithField("requirement", req.Name).Warning("index lookup failed")
		finding.Severity, finding.Kind, finding.Message = SeverityWarning, KindLookupFailed, err.Error()
		add(finding)
		return nil
	}

	if len(req.Specifiers) == 0 {
		return nil
	}

	unverifiable := 0
	var lastErr error
	for _, v := range versions {
		ok, err := req.Specifiers.Allows(v)
		if err != nil {
			unverifiable++
			lastErr = err
			continue
		}
		if ok {
			log.WithFields(log.Fields{"requirement": req.Name, "version": v}).Debug("requirement satisfied")
			return nil
		}
	}

	if unverifiable > 0 {
		finding.Severity, finding.Kind = SeverityWarning, KindUnverifiable
		finding.Message = fmt.Sprintf("%d of %d released versions of %s could not be compared with %s: %v",
			unverifiable, len(versions), req.Name, req.Specifiers, lastErr)
	} else {
		finding.Severity, finding.Kind = SeverityError, KindUnsatisfiable
		finding.Message = fmt.Sprintf("no released version of %s satisfies %s (known: %s)",
			req.Name, req.Specifiers, strings.Join(versions, ", "))
	}
	add(finding)
	return nil
}

func (c *Checker) resolveBranch(ctx context.Context, path string, req model.Requirement, add func(Finding)) error {
	owner, repo, ok := req.Direct.GitHubRepo()
	if !ok {
		log.WithField("url", req.Direct.URL).Debug("not a GitHub reference, skipping ref lookup")
		return nil
	}

	finding := Finding{Path: path, Line: req.Line, Name: req.Name}
	exists, err := c.Branches.BranchExists(ctx, owner, repo, req.Direct.Ref)
	switch {
	case err == nil && exists:
		return nil
	case err == nil:
		missing := &model.BranchNotExist{Repository: owner + "/" + repo, Ref: req.Direct.Ref}
		finding.Severity, finding.Kind, finding.Message = SeverityError, KindMissingBranch, missing.Error()
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		log.WithError(err).WithField("repository", owner+"/"+repo).Warning("ref lookup failed")
		finding.Severity, finding.Kind, finding.Message = SeverityWarning, KindLookupFailed, err.Error()
	}
	add(finding)
	return nil
}
