// Package mocks holds in-memory fakes of the project filesystem.
package mocks

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

// ErrNotExist mirrors os.ErrNotExist so callers can use errors.Is.
var ErrNotExist = os.ErrNotExist

// MockFileSystem is an in-memory project filesystem.
// OpErrors forces an operation to fail: keys are "ReadFile", "WriteFile",
// "DeleteFile", "Mkdir", "Rmdir", "Search" and "ListFiles", optionally
// suffixed with ":<path>" to fail a single path.
type MockFileSystem struct {
	Mu       sync.Mutex
	Files    map[string]string
	Dirs     map[string]bool
	OpErrors map[string]error
	Calls    []string
}

// NewMockFileSystem creates a filesystem holding files.
func NewMockFileSystem(files map[string]string) *MockFileSystem {
	fs := &MockFileSystem{
		Files:    make(map[string]string, len(files)),
		Dirs:     make(map[string]bool),
		OpErrors: make(map[string]error),
	}
	for p, c := range files {
		fs.Files[p] = c
	}
	return fs
}

func (m *MockFileSystem) record(op, p string) error {
	m.Calls = append(m.Calls, op+" "+p)
	if err, ok := m.OpErrors[op+":"+p]; ok {
		return err
	}
	if err, ok := m.OpErrors[op]; ok {
		return err
	}
	return nil
}

// CallsFor returns recorded calls of op, in order.
func (m *MockFileSystem) CallsFor(op string) []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []string
	for _, c := range m.Calls {
		if strings.HasPrefix(c, op+" ") {
			out = append(out, strings.TrimPrefix(c, op+" "))
		}
	}
	return out
}

func (m *MockFileSystem) ReadFile(p string) (string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err := m.record("ReadFile", p); err != nil {
		return "", err
	}
	c, ok := m.Files[p]
	if !ok {
		return "", fmt.Errorf("read %s: %w", p, ErrNotExist)
	}
	return c, nil
}

func (m *MockFileSystem) WriteFile(p, content string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err := m.record("WriteFile", p); err != nil {
		return err
	}
	m.Files[p] = content
	return nil
}

func (m *MockFileSystem) DeleteFile(p string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err := m.record("DeleteFile", p); err != nil {
		return err
	}
	if _, ok := m.Files[p]; !ok {
		return fmt.Errorf("delete %s: %w", p, ErrNotExist)
	}
	delete(m.Files, p)
	return nil
}

func (m *MockFileSystem) Mkdir(p string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err := m.record("Mkdir", p); err != nil {
		return err
	}
	m.Dirs[p] = true
	return nil
}

func (m *MockFileSystem) Rmdir(p string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err := m.record("Rmdir", p); err != nil {
		return err
	}
	prefix := strings.TrimSuffix(p, "/") + "/"
	found := m.Dirs[p]
	for f := range m.Files {
		if strings.HasPrefix(f, prefix) {
			delete(m.Files, f)
			found = true
		}
	}
	delete(m.Dirs, p)
	if !found {
		return fmt.Errorf("rmdir %s: %w", p, ErrNotExist)
	}
	return nil
}

func (m *MockFileSystem) Search(query string) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err := m.record("Search", query); err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []string
	for _, p := range m.sortedFiles() {
		if strings.Contains(strings.ToLower(p), q) {
			out = append(out, p)
			continue
		}
		for i, line := range strings.Split(m.Files[p], "\n") {
			if strings.Contains(strings.ToLower(line), q) {
				out = append(out, fmt.Sprintf("%s:%d: %s", p, i+1, strings.TrimSpace(line)))
			}
		}
	}
	return out, nil
}

func (m *MockFileSystem) ListFiles() ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err := m.record("ListFiles", ""); err != nil {
		return nil, err
	}
	return m.sortedFiles(), nil
}

func (m *MockFileSystem) sortedFiles() []string {
	out := make([]string, 0, len(m.Files))
	for p := range m.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Exists reports whether p is a file or a known directory.
func (m *MockFileSystem) Exists(p string) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if _, ok := m.Files[p]; ok {
		return true
	}
	return m.Dirs[path.Clean(p)]
}

// IsNotExist reports whether err came from a missing path.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}
