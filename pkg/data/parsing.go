package data

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/ZinoKader/reqcheck/model"
)

var (
	namePattern      = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	namePrefix       = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)
	specifierPattern = regexp.MustCompile(`^(===|~=|==|!=|<=|>=|<|>)\s*(\S+)$`)
	versionPattern   = regexp.MustCompile(`^([0-9]+!)?[0-9]+(\.[0-9]+)*(\.\*|[A-Za-z0-9.+-]*)$`)
	vcsPrefix        = regexp.MustCompile(`^(git|hg|svn|bzr)\+`)
	schemePrefix     = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
	urlMarkerSep     = regexp.MustCompile(`\s;`)
	archiveSuffixes  = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".zip", ".whl", ".git"}
)

// flags that take a value, and flags that stand alone.
var (
	valueFlags = map[string]bool{
		"-r":                true,
		"--requirement":     true,
		"-c":                true,
		"--constraint":      true,
		"-e":                true,
		"--editable":        true,
		"-i":                true,
		"--index-url":       true,
		"--extra-index-url": true,
		"-f":                true,
		"--find-links":      true,
		"--trusted-host":    true,
		"--no-binary":       true,
		"--only-binary":     true,
	}
	switchFlags = map[string]bool{
		"--pre":            true,
		"--no-index":       true,
		"--prefer-binary":  true,
		"--require-hashes": true,
	}
)

type logicalLine struct {
	number int
	text   string
}

// ParseManifest parses the content of a requirements file. Parsing never
// stops at a bad line: every line that is not a valid requirement
// specifier, direct reference or option is recorded in Manifest.Errors.
func ParseManifest(file string, content string) model.Manifest {
	manifest := model.Manifest{Path: file}

	for _, line := range joinContinuations(content) {
		text, comment := stripComment(line.text)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		fail := func(reason string) {
			manifest.Errors = append(manifest.Errors, model.LineError{
				Path:   file,
				Line:   line.number,
				Text:   strings.TrimSpace(line.text),
				Reason: reason,
			})
		}

		if strings.HasPrefix(text, "-") {
			opt, err := parseOption(text)
			if err != nil {
				fail(err.Error())
				continue
			}
			opt.Line = line.number
			if opt.Flag == "-e" || opt.Flag == "--editable" {
				req, err := parseReference(opt.Value)
				if err != nil {
					fail(err.Error())
					continue
				}
				req.Editable = true
				req.Line, req.Raw, req.Comment = line.number, text, comment
				manifest.Requirements = append(manifest.Requirements, req)
				continue
			}
			manifest.Options = append(manifest.Options, opt)
			continue
		}

		var (
			req model.Requirement
			err error
		)
		if isReference(text) {
			req, err = parseReference(text)
		} else {
			req, err = ParseRequirement(text)
		}
		if err != nil {
			fail(err.Error())
			continue
		}
		req.Line, req.Raw, req.Comment = line.number, text, comment
		manifest.Requirements = append(manifest.Requirements, req)
	}
	return manifest
}

func joinContinuations(content string) []logicalLine {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var (
		lines   []logicalLine
		pending strings.Builder
		start   int
	)
	for i, raw := range strings.Split(content, "\n") {
		if pending.Len() == 0 {
			start = i + 1
		}
		// a comment line ends the logical line even if it ends in a backslash
		if strings.HasSuffix(raw, "\\") && !strings.HasPrefix(strings.TrimSpace(raw), "#") {
			pending.WriteString(strings.TrimSuffix(raw, "\\"))
			continue
		}
		pending.WriteString(raw)
		lines = append(lines, logicalLine{number: start, text: pending.String()})
		pending.Reset()
	}
	if pending.Len() > 0 {
		lines = append(lines, logicalLine{number: start, text: pending.String()})
	}
	return lines
}

// stripComment cuts a "#" comment. Inside a line the "#" must follow
// whitespace, so URL fragments such as "#egg=" are kept.
func stripComment(line string) (text string, comment string) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		return "", strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
	}
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

func parseOption(text string) (model.Option, error) {
	var flag, value string
	if strings.HasPrefix(text, "--") && strings.Contains(strings.Fields(text)[0], "=") {
		parts := strings.SplitN(text, "=", 2)
		flag, value = parts[0], strings.TrimSpace(parts[1])
	} else {
		fields := strings.Fields(text)
		flag = fields[0]
		value = strings.TrimSpace(strings.TrimPrefix(text, flag))
		// short flags may be glued to their value, as in "-rdev.txt"
		if !strings.HasPrefix(flag, "--") && len(flag) > 2 {
			flag, value = flag[:2], strings.TrimSpace(flag[2:]+" "+value)
		}
	}

	switch {
	case valueFlags[flag]:
		if value == "" {
			return model.Option{}, fmt.Errorf("option %s requires a value", flag)
		}
	case switchFlags[flag]:
		if value != "" {
			return model.Option{}, fmt.Errorf("option %s takes no value", flag)
		}
	default:
		return model.Option{}, fmt.Errorf("unknown option %s", flag)
	}
	return model.Option{Flag: flag, Value: value}, nil
}

func isReference(text string) bool {
	return schemePrefix.MatchString(text) || isLocalPath(strings.Fields(text)[0])
}

func isLocalPath(s string) bool {
	return s == "." || s == ".." ||
		strings.HasPrefix(s, "./") ||
		strings.HasPrefix(s, "../") ||
		strings.HasPrefix(s, "/")
}

// ParseRequirement parses a single requirement specifier of the form
// name[extras] specifiers ; marker, or name[extras] @ url ; marker.
func ParseRequirement(text string) (model.Requirement, error) {
	var req model.Requirement

	text, req.Hashes = splitHashes(text)

	name := namePrefix.FindString(text)
	if name == "" {
		return req, errors.New("requirement does not start with a project name")
	}
	if !namePattern.MatchString(name) {
		return req, fmt.Errorf("invalid project name %q", name)
	}
	req.Name = name
	rest := strings.TrimSpace(text[len(name):])

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return req, errors.New("unterminated extras list")
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			if !namePattern.MatchString(extra) {
				return req, fmt.Errorf("invalid extra %q", extra)
			}
			req.Extras = append(req.Extras, extra)
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	if strings.HasPrefix(rest, "@") {
		rest = strings.TrimSpace(rest[1:])
		if loc := urlMarkerSep.FindStringIndex(rest); loc != nil {
			marker := strings.TrimSpace(rest[loc[1]:])
			if marker == "" {
				return req, errors.New("empty environment marker")
			}
			req.Marker = marker
			rest = strings.TrimSpace(rest[:loc[0]])
		}
		if rest == "" {
			return req, errors.New("direct reference without a URL")
		}
		direct, err := parseDirect(rest)
		if err != nil {
			return req, err
		}
		req.Direct = &direct
		return req, nil
	}

	if i := strings.Index(rest, ";"); i >= 0 {
		marker := strings.TrimSpace(rest[i+1:])
		if marker == "" {
			return req, errors.New("empty environment marker")
		}
		req.Marker = marker
		rest = strings.TrimSpace(rest[:i])
	}

	if strings.HasPrefix(rest, "(") {
		if !strings.HasSuffix(rest, ")") {
			return req, errors.New("unbalanced parenthesis in version specifier")
		}
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	if rest == "" {
		return req, nil
	}
	specs, err := parseSpecifiers(rest)
	if err != nil {
		return req, err
	}
	req.Specifiers = specs
	return req, nil
}

func parseSpecifiers(text string) (model.SpecifierSet, error) {
	var set model.SpecifierSet
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		m := specifierPattern.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("invalid version specifier %q", part)
		}
		op, version := m[1], m[2]
		if op != "===" {
			if !versionPattern.MatchString(version) {
				return nil, fmt.Errorf("invalid version %q", version)
			}
			if strings.Contains(version, "*") && op != "==" && op != "!=" {
				return nil, fmt.Errorf("wildcard not allowed with %s", op)
			}
		}
		set = append(set, model.Specifier{Op: op, Version: version})
	}
	return set, nil
}

func splitHashes(text string) (string, []string) {
	var hashes []string
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(f, "--hash=") {
			hashes = append(hashes, strings.TrimPrefix(f, "--hash="))
			continue
		}
		kept = append(kept, f)
	}
	if hashes == nil {
		return text, nil
	}
	return strings.Join(kept, " "), hashes
}

// parseReference handles a bare URL or path line. The project name is
// taken from "#egg=", which VCS URLs must carry; archive URLs fall back
// to a name guessed from the file name.
func parseReference(text string) (model.Requirement, error) {
	var req model.Requirement
	if !isReference(text) {
		// editable installs may still use the "name @ url" form
		return ParseRequirement(text)
	}
	raw := strings.Fields(text)[0]
	direct, err := parseDirect(raw)
	if err != nil {
		return req, err
	}
	name := direct.Egg
	if name == "" && direct.VCS != "" {
		return req, errors.New("cannot determine the project name of the VCS reference, add #egg=<name>")
	}
	if name == "" && !direct.Local() {
		name = guessName(direct)
	}
	// a local project directory may stay anonymous
	if !namePattern.MatchString(name) && !(name == "" && direct.Local()) {
		return req, errors.New("cannot determine the project name of the reference, add #egg=<name>")
	}
	req.Name = name
	req.Direct = &direct
	return req, nil
}

func parseDirect(raw string) (model.DirectReference, error) {
	direct := model.DirectReference{URL: raw}
	if m := vcsPrefix.FindStringSubmatch(raw); m != nil {
		direct.VCS = m[1]
	}

	body := strings.TrimPrefix(raw, direct.VCS+"+")
	if i := strings.Index(body, "#"); i >= 0 {
		values, err := url.ParseQuery(body[i+1:])
		if err != nil {
			return direct, fmt.Errorf("invalid URL fragment in %q", raw)
		}
		direct.Egg = values.Get("egg")
		body = body[:i]
	}

	if isLocalPath(body) {
		return direct, nil
	}

	u, err := url.Parse(body)
	if err != nil {
		return direct, fmt.Errorf("invalid URL %q", raw)
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git", "file", "svn":
	default:
		return direct, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" && u.Scheme != "file" {
		return direct, fmt.Errorf("URL %q has no host", raw)
	}

	if direct.VCS != "" {
		if at := strings.LastIndex(u.Path, "@"); at >= 0 {
			direct.Ref = u.Path[at+1:]
			if direct.Ref == "" {
				return direct, fmt.Errorf("empty revision in %q", raw)
			}
		}
	}
	return direct, nil
}

func guessName(direct model.DirectReference) string {
	if _, repo, ok := direct.GitHubRepo(); ok {
		return repo
	}
	body := strings.TrimPrefix(direct.URL, direct.VCS+"+")
	body = strings.SplitN(body, "#", 2)[0]
	if u, err := url.Parse(body); err == nil {
		body = u.Path
	}
	base := path.Base(strings.SplitN(body, "@", 2)[0])
	for _, suffix := range archiveSuffixes {
		base = strings.TrimSuffix(base, suffix)
	}
	// archives are usually named <project>-<version>
	if i := strings.Index(base, "-"); i > 0 && strings.HasSuffix(direct.URL, ".whl") {
		base = base[:i]
	}
	return base
}
