package artifacts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	mapset "github.com/deckarep/golang-set"
	log "github.com/sirupsen/logrus"
)

// MultiFileManager creates artifacts as files below a directory.
type MultiFileManager struct {
	mu        sync.Mutex
	directory string
	reserved  mapset.Set
	artifacts map[string][]string
	files     []*os.File
}

func NewMultiFileManager(directory string) (*MultiFileManager, error) {
	abs, err := filepath.Abs(directory)
	if err != nil {
		return nil, err
	}
	return &MultiFileManager{
		directory: abs,
		reserved:  mapset.NewSet(),
		artifacts: make(map[string][]string),
	}, nil
}

func (m *MultiFileManager) ReserveName(label, postfix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reserve(label, postfix)
}

func (m *MultiFileManager) reserve(label, postfix string) (string, error) {
	clean, err := checkPostfix(postfix)
	if err != nil {
		return "", err
	}
	name := filepath.Join(m.directory, clean)
	if !m.reserved.Add(name) {
		return "", fmt.Errorf("%w: the postfix %q has already been used", ErrValue, postfix)
	}
	m.artifacts[label] = append(m.artifacts[label], name)
	return name, nil
}

// Open creates the file for postfix, along with any missing parent
// directories. The file must not exist yet.
func (m *MultiFileManager) Open(label, postfix, mode string) (io.WriteCloser, error) {
	if err := checkMode("MultiFileManager", mode); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name, err := m.reserve(label, postfix)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"label": label, "path": name}).Debug("opened artifact")
	m.files = append(m.files, f)
	return f, nil
}

func (m *MultiFileManager) Artifacts() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyArtifacts(m.artifacts)
}

// Close closes every file handed out by Open. Files the caller already
// closed are skipped.
func (m *MultiFileManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, f := range m.files {
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	m.files = nil
	return errors.Join(errs...)
}
