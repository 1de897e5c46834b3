package install

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcdonaldj/esar/internal/ports"
)

// WriteDiary records a fatal failure in a plain text file the user can
// read after the fact. It overwrites any earlier diary.
func WriteDiary(fsys ports.FileSystem, path, runID string, failure error, now time.Time) error {
	var b strings.Builder
	fmt.Fprintln(&b, "esar could not finish installing your mods.")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Run:    %s\n", runID)
	fmt.Fprintf(&b, "Time:   %s\n", now.Format(time.RFC3339))
	if stage, ok := FailedStage(failure); ok {
		fmt.Fprintf(&b, "Stage:  %s\n", stage)
	}
	fmt.Fprintf(&b, "Error:  %v\n", failure)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Mods that were already moved into the Mods folder have been kept.")
	fmt.Fprintln(&b, "If the staging folder is still present, inspect it and run 'esar clean' before retrying.")

	return fsys.WriteFile(path, []byte(b.String()), 0644)
}
