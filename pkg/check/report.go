package check

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v2"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Kind string

const (
	KindSyntax         Kind = "syntax"
	KindDuplicate      Kind = "duplicate"
	KindTransientPin   Kind = "transient-pin"
	KindUnpinned       Kind = "unpinned"
	KindUnknownPackage Kind = "unknown-package"
	KindUnsatisfiable  Kind = "unsatisfiable"
	KindUnverifiable   Kind = "unverifiable"
	KindMissingBranch  Kind = "missing-branch"
	KindLookupFailed   Kind = "lookup-failed"
)

type Finding struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Kind     Kind     `json:"kind" yaml:"kind"`
	Path     string   `json:"path" yaml:"path"`
	Line     int      `json:"line" yaml:"line"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d: %s: %s: %s", f.Path, f.Line, f.Severity, f.Kind, f.Message)
}

type Report struct {
	Manifests    int       `json:"manifests" yaml:"manifests"`
	Requirements int       `json:"requirements" yaml:"requirements"`
	Findings     []Finding `json:"findings" yaml:"findings"`
}

func (r *Report) add(f Finding) {
	r.Findings = append(r.Findings, f)
}

func (r *Report) sort() {
	sort.SliceStable(r.Findings, func(i, j int) bool {
		a, b := r.Findings[i], r.Findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Name < b.Name
	})
}

func (r Report) filter(severity Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == severity {
			out = append(out, f)
		}
	}
	return out
}

func (r Report) Errors() []Finding {
	return r.filter(SeverityError)
}

func (r Report) Warnings() []Finding {
	return r.filter(SeverityWarning)
}

// OK reports whether the report holds no error findings.
func (r Report) OK() bool {
	return len(r.Errors()) == 0
}

func (r Report) Summary() string {
	return fmt.Sprintf("%d manifests, %d requirements, %d errors, %d warnings",
		r.Manifests, r.Requirements, len(r.Errors()), len(r.Warnings()))
}

// Render formats the report as "text", "json" or "yaml".
func (r Report) Render(format string) ([]byte, error) {
	switch format {
	case "", "text":
		var b bytes.Buffer
		for _, f := range r.Findings {
			fmt.Fprintln(&b, f)
		}
		fmt.Fprintln(&b, r.Summary())
		return b.Bytes(), nil
	case "json":
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "yaml":
		return yaml.Marshal(r)
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

// Extension returns the file extension matching a render format.
func Extension(format string) string {
	switch format {
	case "json":
		return ".json"
	case "yaml":
		return ".yaml"
	}
	return ".txt"
}
