// Package mocks provides mock implementations for testing.
package mocks

import (
	"os"
	"sync"

	"github.com/mcdonaldj/esar/internal/adapters/osfs"
	"github.com/mcdonaldj/esar/internal/ports"
)

// MockFileSystem implements ports.FileSystem for testing. Calls pass
// through to Base (a real filesystem rooted wherever the test points it)
// unless an error has been injected for that operation and path.
type MockFileSystem struct {
	// Base performs the real work; defaults to osfs.
	Base ports.FileSystem
	// Errors maps "Op path" (e.g. "Rename /tmp/a") to the error to return
	Errors map[string]error
	// Calls records every call as "Op path"
	Calls []string

	mu sync.Mutex
}

// NewMockFileSystem creates a mock filesystem backed by the real one.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Base:   osfs.New(),
		Errors: make(map[string]error),
	}
}

// Fail injects err for op on path.
func (m *MockFileSystem) Fail(op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[op+" "+path] = err
}

// Called reports whether op was invoked on path.
func (m *MockFileSystem) Called(op, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Calls {
		if c == op+" "+path {
			return true
		}
	}
	return false
}

// record notes the call and returns the injected error, if any.
// The loader opens archives concurrently, hence the lock.
func (m *MockFileSystem) record(op, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := op + " " + path
	m.Calls = append(m.Calls, key)
	return m.Errors[key]
}

// ReadDir reads the named directory and returns directory entries.
func (m *MockFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	if err := m.record("ReadDir", name); err != nil {
		return nil, err
	}
	return m.Base.ReadDir(name)
}

// Stat returns file info for the named file.
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if err := m.record("Stat", name); err != nil {
		return nil, err
	}
	return m.Base.Stat(name)
}

// Mkdir creates a single directory.
func (m *MockFileSystem) Mkdir(name string, perm os.FileMode) error {
	if err := m.record("Mkdir", name); err != nil {
		return err
	}
	return m.Base.Mkdir(name, perm)
}

// MkdirAll creates a directory along with any necessary parents.
func (m *MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if err := m.record("MkdirAll", path); err != nil {
		return err
	}
	return m.Base.MkdirAll(path, perm)
}

// WriteFile writes data to the named file, creating it if necessary.
func (m *MockFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	if err := m.record("WriteFile", name); err != nil {
		return err
	}
	return m.Base.WriteFile(name, data, perm)
}

// RemoveAll removes path and any children it contains.
func (m *MockFileSystem) RemoveAll(path string) error {
	if err := m.record("RemoveAll", path); err != nil {
		return err
	}
	return m.Base.RemoveAll(path)
}

// Rename moves oldpath to newpath. Errors are keyed on oldpath.
func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	if err := m.record("Rename", oldpath); err != nil {
		return err
	}
	return m.Base.Rename(oldpath, newpath)
}

// Open opens the named file for reading.
func (m *MockFileSystem) Open(name string) (ports.File, error) {
	if err := m.record("Open", name); err != nil {
		return nil, err
	}
	return m.Base.Open(name)
}

// Compile-time check that MockFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*MockFileSystem)(nil)
