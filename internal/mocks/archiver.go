package mocks

import (
	"os"
	"path/filepath"

	"github.com/mcdonaldj/esar/internal/ports"
)

// MockArchiver implements ports.Archiver for testing. Instead of
// decompressing anything it writes a canned file tree per call.
type MockArchiver struct {
	// ExtractCalls records calls to Extract
	ExtractCalls []ExtractCall
	// Trees holds, per call index, relative path -> content to write into destDir
	Trees []map[string]string
	// Errors maps call index to the error that call returns
	Errors map[int]error
}

// ExtractCall records parameters of an Extract call.
type ExtractCall struct {
	Size    int64
	DestDir string
}

// NewMockArchiver creates a new mock archiver.
func NewMockArchiver(trees ...map[string]string) *MockArchiver {
	return &MockArchiver{
		Trees:  trees,
		Errors: make(map[int]error),
	}
}

// Extract writes the canned tree for this call into destDir.
func (m *MockArchiver) Extract(src ports.File, size int64, destDir string) error {
	idx := len(m.ExtractCalls)
	m.ExtractCalls = append(m.ExtractCalls, ExtractCall{Size: size, DestDir: destDir})
	if err, ok := m.Errors[idx]; ok {
		return err
	}
	if idx >= len(m.Trees) {
		return nil
	}

	for rel, content := range m.Trees[idx] {
		path := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

// Compile-time check that MockArchiver implements ports.Archiver.
var _ ports.Archiver = (*MockArchiver)(nil)
