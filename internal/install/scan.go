package install

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/mcdonaldj/esar/internal/ports"
)

// ListingUnavailable is the single entry returned when the mods directory
// cannot be listed.
const ListingUnavailable = "Could not list installed mods"

// Scanner lists installed mods using the same rule as the Reconciler.
type Scanner struct {
	fs       ports.FileSystem
	classify classifier
	logger   *log.Logger
}

// NewScanner creates a Scanner.
func NewScanner(fs ports.FileSystem, marker, exclude string, logger *log.Logger) *Scanner {
	return &Scanner{
		fs:       fs,
		classify: classifier{fs: fs, marker: marker, exclude: exclude},
		logger:   logger,
	}
}

// Scan returns the names of mods in modsDir, in directory-entry order.
// Subdirectories that cannot be read are left out.
func (s *Scanner) Scan(modsDir string) ([]string, error) {
	entries, err := s.fs.ReadDir(modsDir)
	if err != nil {
		return nil, fmt.Errorf("reading mods directory: %w", err)
	}

	mods := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		kind, err := s.classify.Classify(filepath.Join(modsDir, entry.Name()))
		if err != nil {
			s.logger.Warn("cannot inspect directory", "dir", entry.Name(), "err", err)
			continue
		}
		if kind == KindMod {
			mods = append(mods, entry.Name())
		}
	}
	return mods, nil
}

// List is Scan for display: a failure degrades to a one-line placeholder.
func (s *Scanner) List(modsDir string) []string {
	mods, err := s.Scan(modsDir)
	if err != nil {
		s.logger.Warn("listing installed mods failed", "dir", modsDir, "err", err)
		return []string{ListingUnavailable}
	}
	return mods
}
