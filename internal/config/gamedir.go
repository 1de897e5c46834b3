package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateGameDir checks that dir exists, is a directory and contains
// match somewhere in its path. An empty match accepts any directory.
func ValidateGameDir(dir, match string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("checking game directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if match != "" && !strings.Contains(dir, match) {
		return fmt.Errorf("%w: %q does not contain %q", ErrGameDirMismatch, dir, match)
	}
	return nil
}

// ModsDir returns the mods directory beneath gameDir.
func ModsDir(gameDir, subdir string) string {
	return filepath.Join(gameDir, subdir)
}

// ResolvedGameDir returns the configured game directory with ~ expanded.
func (c *Config) ResolvedGameDir() (string, error) {
	if c.GameDir == "" {
		return "", fmt.Errorf("no game directory configured; run 'esar set-dir <dir>' first")
	}
	return ExpandPath(c.GameDir)
}
