// Package artifacts hands out named output targets to report writers and
// remembers what was produced under which label.
//
// A postfix is a relative path that identifies one artifact. It can be
// used once per manager. Artifacts are always created exclusively: the
// only accepted modes are "x" and "xt" (text) and "xb" (binary).
package artifacts

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	ErrUtils = errors.New("artifacts")
	// ErrValue is returned for absolute or already used postfixes.
	ErrValue = fmt.Errorf("%w: invalid value", ErrUtils)
	// ErrType is returned when a manager cannot serve the request at all.
	ErrType = fmt.Errorf("%w: unsupported operation", ErrUtils)
)

type ModeError struct {
	Manager string
	Mode    string
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("the mode passed to %s.Open is %q but needs to be one of \"x\", \"xt\" or \"xb\"", e.Manager, e.Mode)
}

func (e *ModeError) Unwrap() error {
	return ErrUtils
}

type Manager interface {
	// ReserveName returns a path for callers that need a filename rather
	// than a handle.
	ReserveName(label, postfix string) (string, error)
	Open(label, postfix, mode string) (io.WriteCloser, error)
	Artifacts() map[string][]string
	Close() error
}

func checkMode(manager, mode string) error {
	switch mode {
	case "x", "xt", "xb":
		return nil
	}
	return &ModeError{Manager: manager, Mode: mode}
}

func checkPostfix(postfix string) (string, error) {
	if postfix == "" {
		return "", fmt.Errorf("%w: empty postfix", ErrValue)
	}
	if filepath.IsAbs(postfix) {
		return "", fmt.Errorf("%w: the postfix %q must be structured like a relative file path", ErrValue, postfix)
	}
	clean := filepath.Clean(postfix)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: the postfix %q points outside the output directory", ErrValue, postfix)
	}
	return clean, nil
}

func copyArtifacts(artifacts map[string][]string) map[string][]string {
	out := make(map[string][]string, len(artifacts))
	for label, names := range artifacts {
		out[label] = append([]string(nil), names...)
	}
	return out
}
