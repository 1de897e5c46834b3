package install

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/mcdonaldj/esar/internal/ports"
)

// Reconciliation is what the Reconciler saw and did.
type Reconciliation struct {
	// Examined lists every staging subdirectory looked at, in entry order.
	Examined []string
	// Moved lists the mods relocated into the mods directory.
	Moved []string
	// Skipped lists excluded directories.
	Skipped []string
	// Unrecognized lists directories left in staging without a marker.
	Unrecognized []string
}

// Reconciler moves mods from staging into the mods directory.
type Reconciler struct {
	fs       ports.FileSystem
	classify classifier
	logger   *log.Logger
}

// NewReconciler creates a Reconciler using the given marker file name and
// exclusion substring.
func NewReconciler(fs ports.FileSystem, marker, exclude string, logger *log.Logger) *Reconciler {
	return &Reconciler{
		fs:       fs,
		classify: classifier{fs: fs, marker: marker, exclude: exclude},
		logger:   logger,
	}
}

// Reconcile walks the immediate subdirectories of staging and moves each
// mod into modsDir under its own name. Finding no mods is not an error.
// The first failure stops the walk; mods already moved stay where they are.
func (r *Reconciler) Reconcile(staging, modsDir string) (Reconciliation, error) {
	var result Reconciliation

	entries, err := r.fs.ReadDir(staging)
	if err != nil {
		return result, fmt.Errorf("reading staging directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := filepath.Join(staging, name)
		result.Examined = append(result.Examined, name)

		kind, err := r.classify.Classify(dir)
		if err != nil {
			return result, fmt.Errorf("inspecting %s: %w", name, err)
		}

		switch kind {
		case KindExcluded:
			r.logger.Debug("skipping excluded directory", "dir", name)
			result.Skipped = append(result.Skipped, name)
		case KindUnrecognized:
			r.logger.Debug("leaving unrecognized directory in staging", "dir", name)
			result.Unrecognized = append(result.Unrecognized, name)
		case KindMod:
			if err := r.move(dir, filepath.Join(modsDir, name)); err != nil {
				return result, fmt.Errorf("moving %s: %w", name, err)
			}
			r.logger.Info("installed mod", "mod", name)
			result.Moved = append(result.Moved, name)
		}
	}

	return result, nil
}

// move relocates dir to target, refusing to merge into an existing entry.
func (r *Reconciler) move(dir, target string) error {
	if _, err := r.fs.Stat(target); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, target)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return r.fs.Rename(dir, target)
}
