package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	semver "github.com/Masterminds/semver/v3"
)

// ErrUnverifiable is returned when a version or constraint cannot be
// compared, e.g. post-releases or four-part versions.
var ErrUnverifiable = errors.New("version cannot be compared")

type Specifier struct {
	Op      string
	Version string
}

func (s Specifier) String() string {
	return s.Op + s.Version
}

func (s Specifier) constraint() (string, error) {
	switch s.Op {
	case "==", "!=":
		v := padRelease(s.Version)
		if strings.HasSuffix(v, ".*") {
			v = strings.TrimSuffix(v, "*") + "x"
		}
		if s.Op == "==" {
			return "=" + v, nil
		}
		return "!=" + v, nil
	case "<=", ">=", "<", ">":
		return s.Op + padRelease(s.Version), nil
	case "~=":
		parts := strings.Split(s.Version, ".")
		if len(parts) < 2 {
			return "", fmt.Errorf("%w: %s needs at least two release segments", ErrUnverifiable, s)
		}
		upper := parts[:len(parts)-1]
		last, err := strconv.Atoi(upper[len(upper)-1])
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrUnverifiable, s)
		}
		bumped := append(append([]string{}, upper[:len(upper)-1]...), strconv.Itoa(last+1))
		return fmt.Sprintf(">=%s, <%s", padRelease(s.Version), padRelease(strings.Join(bumped, "."))), nil
	}
	return "", fmt.Errorf("%w: unsupported operator %q", ErrUnverifiable, s.Op)
}

// padRelease fills a purely numeric version up to three release
// segments. Semver reads "1.2" as the range 1.2.x, while a requirement
// means the single version 1.2.0.
func padRelease(v string) string {
	parts := strings.Split(v, ".")
	if len(parts) >= 3 {
		return v
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return v
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, ".")
}

type SpecifierSet []Specifier

func (set SpecifierSet) String() string {
	parts := make([]string, len(set))
	for i, s := range set {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// Constraint translates the set into a semver constraint. Arbitrary
// equality (===) is left out; Allows handles it by string comparison.
func (set SpecifierSet) Constraint() (*semver.Constraints, error) {
	var parts []string
	for _, s := range set {
		if s.Op == "===" {
			continue
		}
		c, err := s.constraint()
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
	}
	if len(parts) == 0 {
		parts = append(parts, "*")
	}
	c, err := semver.NewConstraint(strings.Join(parts, ", "))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnverifiable, set, err)
	}
	return c, nil
}

func (set SpecifierSet) Allows(version string) (bool, error) {
	ordered := 0
	for _, s := range set {
		if s.Op != "===" {
			ordered++
			continue
		}
		if s.Version != version {
			return false, nil
		}
	}
	if ordered == 0 {
		return true, nil
	}
	c, err := set.Constraint()
	if err != nil {
		return false, err
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrUnverifiable, version)
	}
	return c.Check(v), nil
}
