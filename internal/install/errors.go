package install

import (
	"errors"
	"fmt"
)

var (
	// ErrNoArchives is returned when an install request names no archives.
	ErrNoArchives = errors.New("no archives selected")

	// ErrStagingExists means a previous run's staging area was never cleaned up.
	ErrStagingExists = errors.New("staging directory already exists (left over from an earlier run?)")

	// ErrDestinationExists is returned when a mod with the same name is already installed.
	ErrDestinationExists = errors.New("destination already exists")
)

// Stage identifies the pipeline step an error came from.
type Stage int

const (
	StageLoading Stage = iota
	StageExtracting
	StageReconciling
	StageCleaningUp
)

func (s Stage) String() string {
	switch s {
	case StageLoading:
		return "loading archives"
	case StageExtracting:
		return "extracting archives"
	case StageReconciling:
		return "installing mods"
	case StageCleaningUp:
		return "cleaning up"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageError is the single descriptive error a failed run surfaces.
// Fatal errors abort the run and are recorded in the crash diary.
type StageError struct {
	Stage Stage
	Fatal bool
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is a fatal StageError.
func IsFatal(err error) bool {
	var se *StageError
	return errors.As(err, &se) && se.Fatal
}

// FailedStage returns the stage err came from, if it is a StageError.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return 0, false
}
