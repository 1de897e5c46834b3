package install

import (
	"path/filepath"
	"strings"

	"github.com/mcdonaldj/esar/internal/ports"
)

// Kind is the classification of a candidate directory.
type Kind int

const (
	// KindUnrecognized is neither a mod nor excluded; it is left alone.
	KindUnrecognized Kind = iota
	// KindMod has the marker file at its top level.
	KindMod
	// KindExcluded matched the exclusion pattern and was not inspected.
	KindExcluded
)

func (k Kind) String() string {
	switch k {
	case KindMod:
		return "mod"
	case KindExcluded:
		return "excluded"
	default:
		return "unrecognized"
	}
}

// classifier applies the exclusion-then-marker rule shared by the
// reconciler and the installed-mod scanner.
type classifier struct {
	fs      ports.FileSystem
	marker  string
	exclude string
}

// Classify inspects the directory at dir. Exclusion is decided by name
// alone; otherwise the first top-level file named exactly like the marker
// makes it a mod. Entry order is whatever the filesystem reports.
func (c classifier) Classify(dir string) (Kind, error) {
	if c.exclude != "" && strings.Contains(filepath.Base(dir), c.exclude) {
		return KindExcluded, nil
	}

	entries, err := c.fs.ReadDir(dir)
	if err != nil {
		return KindUnrecognized, err
	}
	for _, entry := range entries {
		if !entry.IsDir() && entry.Name() == c.marker {
			return KindMod, nil
		}
	}
	return KindUnrecognized, nil
}
