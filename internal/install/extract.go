package install

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/charmbracelet/log"

	"github.com/mcdonaldj/esar/internal/ports"
)

// Extractor unpacks a Batch into the staging directory.
type Extractor struct {
	fs       ports.FileSystem
	archiver ports.Archiver
	logger   *log.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(fs ports.FileSystem, archiver ports.Archiver, logger *log.Logger) *Extractor {
	return &Extractor{fs: fs, archiver: archiver, logger: logger}
}

// CreateStaging creates the staging directory. A directory left behind
// by an earlier run is reported as ErrStagingExists.
func (e *Extractor) CreateStaging(staging string) error {
	if err := e.fs.Mkdir(staging, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrStagingExists, staging)
		}
		return fmt.Errorf("creating staging directory %s: %w", staging, err)
	}
	return nil
}

// ExtractAll decompresses every archive of batch, in order, into staging.
// The first failure stops the remaining extractions. All handles are
// closed on return.
func (e *Extractor) ExtractAll(batch *Batch, staging string) error {
	defer batch.Close()

	for i := range batch.Sources {
		src := &batch.Sources[i]
		e.logger.Debug("extracting archive", "archive", src.Path, "size", src.Size)

		if err := e.archiver.Extract(src.File, src.Size, staging); err != nil {
			return fmt.Errorf("extracting %s: %w", src.Path, err)
		}

		// Ownership of the handle ends once its archive is extracted
		_ = src.File.Close()
		src.File = nil
	}
	return nil
}
