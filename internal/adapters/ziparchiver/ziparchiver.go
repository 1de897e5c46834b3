// Package ziparchiver provides an archiver adapter using the archive/zip package.
package ziparchiver

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcdonaldj/esar/internal/ports"
)

// MaxDecompressSize is the maximum allowed uncompressed file size (10GB).
// This prevents decompression bomb attacks (G110).
const MaxDecompressSize = 10 * 1024 * 1024 * 1024 // 10GB

// ZipArchiver implements ports.Archiver using archive/zip.
type ZipArchiver struct{}

// New creates a new ZipArchiver adapter.
func New() *ZipArchiver {
	return &ZipArchiver{}
}

// Extract extracts the zip archive behind src into destDir.
func (a *ZipArchiver) Extract(src ports.File, size int64, destDir string) error {
	r, err := zip.NewReader(src, size)
	if err != nil {
		return fmt.Errorf("reading zip: %w", err)
	}

	// Get cleaned absolute path for destination
	absDestDir, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolving destination path: %w", err)
	}
	absDestDir = filepath.Clean(absDestDir)

	for _, f := range r.File {
		// SECURITY: Block symlinks to prevent symlink attacks
		if f.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("symlinks not supported in mod archives: %s", f.Name)
		}

		fpath := filepath.Join(destDir, f.Name)

		// SECURITY: Check for ZipSlip vulnerability
		if !isWithinDir(absDestDir, fpath) {
			return fmt.Errorf("invalid file path (path traversal detected): %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, os.ModePerm); err != nil {
				return fmt.Errorf("creating directory %s: %w", fpath, err)
			}
			continue
		}

		// Create parent directories
		if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
			return fmt.Errorf("creating parent directory for %s: %w", fpath, err)
		}

		if err := extractFile(f, fpath); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}

	return nil
}

// extractFile extracts a single file from the zip.
func extractFile(f *zip.File, destPath string) error {
	// SECURITY: Limit decompression size to prevent zip bombs (G110)
	declaredSize := f.UncompressedSize64
	if declaredSize > MaxDecompressSize {
		return fmt.Errorf("file too large: %d bytes exceeds limit of %d bytes", declaredSize, MaxDecompressSize)
	}

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644 // Some Windows tools write entries without permission bits
	}

	outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		_ = outFile.Close()
		return err
	}
	defer func() { _ = rc.Close() }()

	// Add 1 byte to detect if actual size exceeds declared size
	limitedReader := io.LimitReader(rc, int64(declaredSize)+1)
	written, err := io.Copy(outFile, limitedReader)
	if err != nil {
		_ = outFile.Close()
		return err
	}

	if written > int64(declaredSize) {
		_ = outFile.Close()
		return fmt.Errorf("decompressed size exceeds declared size")
	}

	// Surface flush errors: a full disk often shows up only here
	return outFile.Close()
}

// isWithinDir checks if the target path is within the base directory.
func isWithinDir(absBaseDir, targetPath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absTarget = filepath.Clean(absTarget)

	return strings.HasPrefix(absTarget, absBaseDir+string(filepath.Separator)) ||
		absTarget == absBaseDir
}

// Compile-time check that ZipArchiver implements ports.Archiver.
var _ ports.Archiver = (*ZipArchiver)(nil)
