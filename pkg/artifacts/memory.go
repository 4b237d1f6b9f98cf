package artifacts

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	mapset "github.com/deckarep/golang-set"
)

// Buffer is an in-memory artifact. Closing it does nothing, so its
// content stays readable after a writer is done with it.
type Buffer struct {
	bytes.Buffer
}

func (b *Buffer) Close() error {
	return nil
}

// MemoryBuffersManager keeps artifacts in memory. Postfixes still have
// to look like relative paths and are used as buffer identifiers.
type MemoryBuffersManager struct {
	mu        sync.Mutex
	reserved  mapset.Set
	artifacts map[string][]string
	buffers   map[string]*Buffer
}

func NewMemoryBuffersManager() *MemoryBuffersManager {
	return &MemoryBuffersManager{
		reserved:  mapset.NewSet(),
		artifacts: make(map[string][]string),
		buffers:   make(map[string]*Buffer),
	}
}

func (m *MemoryBuffersManager) ReserveName(label, postfix string) (string, error) {
	return "", fmt.Errorf("%w: MemoryBuffersManager is incompatible with writers that require explicit filenames", ErrType)
}

func (m *MemoryBuffersManager) Open(label, postfix, mode string) (io.WriteCloser, error) {
	if err := checkMode("MemoryBuffersManager", mode); err != nil {
		return nil, err
	}
	clean, err := checkPostfix(postfix)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.reserved.Add(clean) {
		return nil, fmt.Errorf("%w: the postfix %q has already been used", ErrValue, postfix)
	}
	m.artifacts[label] = append(m.artifacts[label], clean)
	buffer := &Buffer{}
	m.buffers[clean] = buffer
	return buffer, nil
}

func (m *MemoryBuffersManager) Artifacts() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyArtifacts(m.artifacts)
}

// Buffers maps each opened postfix to its buffer.
func (m *MemoryBuffersManager) Buffers() map[string]*Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*Buffer, len(m.buffers))
	for k, v := range m.buffers {
		out[k] = v
	}
	return out
}

func (m *MemoryBuffersManager) Close() error {
	return nil
}
