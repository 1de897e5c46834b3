package install

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/mcdonaldj/esar/internal/ports"
)

// RemoveStaging deletes staging and everything under it if it exists.
// A missing staging directory is not an error.
func RemoveStaging(fsys ports.FileSystem, staging string) (removed bool, err error) {
	if _, err := fsys.Stat(staging); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("checking staging directory: %w", err)
	}

	if err := fsys.RemoveAll(staging); err != nil {
		return false, fmt.Errorf("removing staging directory %s: %w", staging, err)
	}
	return true, nil
}
