// Package install runs the mod installation pipeline: load the selected
// archives, extract them into a staging directory, move recognised mods
// into the game's mods directory and clean up after itself.
package install

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mcdonaldj/esar/internal/adapters/osfs"
	"github.com/mcdonaldj/esar/internal/adapters/ziparchiver"
	"github.com/mcdonaldj/esar/internal/config"
	"github.com/mcdonaldj/esar/internal/ports"
)

// Options configures a Service.
type Options struct {
	StagingDir     string
	ModsSubdir     string
	MarkerFile     string
	ExcludePattern string
	DiaryFile      string

	// OnState, when set, is called on every state transition. It runs on
	// the run's worker goroutine and must not block.
	OnState func(runID string, state State)
}

// OptionsFromConfig maps the persisted configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		StagingDir:     cfg.StagingDir,
		ModsSubdir:     cfg.ModsSubdir,
		MarkerFile:     cfg.MarkerFile,
		ExcludePattern: cfg.ExcludePattern,
		DiaryFile:      cfg.DiaryFile,
	}
}

// Request is one installation request.
type Request struct {
	Archives []string
	GameDir  string
}

// Report is the outcome of one run.
type Report struct {
	RunID string
	State State

	Archives     []string
	Examined     []string
	Moved        []string
	Unrecognized []string
	// Installed is the mod listing taken after a successful run.
	Installed []string

	// Err is the primary failure. CleanupErr never replaces it.
	Err        error
	CleanupErr error
	DiaryPath  string
}

// Succeeded reports whether the run finished without error.
func (r Report) Succeeded() bool {
	return r.State == StateSucceeded
}

// Summary is the human-readable status line for the run.
func (r Report) Summary() string {
	if r.Err != nil {
		msg := "Installation failed: " + r.Err.Error()
		if r.CleanupErr != nil && !errors.Is(r.Err, r.CleanupErr) {
			msg += " (cleanup also failed: " + r.CleanupErr.Error() + ")"
		}
		return msg
	}
	switch len(r.Moved) {
	case 0:
		return "Installation finished: no mods found in the selected archives"
	case 1:
		return "Installed 1 mod: " + r.Moved[0]
	default:
		return fmt.Sprintf("Installed %d mods: %s", len(r.Moved), strings.Join(r.Moved, ", "))
	}
}

// Service runs installations with injected dependencies.
// Only one run may be in flight at a time; callers serialize requests.
type Service struct {
	fs     ports.FileSystem
	opts   Options
	logger *log.Logger
	now    func() time.Time

	loader     *Loader
	extractor  *Extractor
	reconciler *Reconciler
	scanner    *Scanner
}

// NewService creates a new install service with the given dependencies.
func NewService(fs ports.FileSystem, archiver ports.Archiver, opts Options, logger *log.Logger) *Service {
	return &Service{
		fs:         fs,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
		loader:     NewLoader(fs),
		extractor:  NewExtractor(fs, archiver, logger),
		reconciler: NewReconciler(fs, opts.MarkerFile, opts.ExcludePattern, logger),
		scanner:    NewScanner(fs, opts.MarkerFile, opts.ExcludePattern, logger),
	}
}

// NewDefaultService creates an install service with real production dependencies.
func NewDefaultService(cfg *config.Config, logger *log.Logger) *Service {
	return NewService(
		osfs.New(),
		ziparchiver.New(),
		OptionsFromConfig(cfg),
		logger,
	)
}

// ModsDir returns the directory mods are installed into for gameDir.
func (s *Service) ModsDir(gameDir string) string {
	return config.ModsDir(gameDir, s.opts.ModsSubdir)
}

// EnsureModsDir creates the mods directory beneath gameDir if absent.
func (s *Service) EnsureModsDir(gameDir string) (string, error) {
	modsDir := s.ModsDir(gameDir)
	if err := s.fs.MkdirAll(modsDir, 0755); err != nil {
		return "", fmt.Errorf("creating mods directory: %w", err)
	}
	return modsDir, nil
}

// ListInstalled lists the mods installed beneath gameDir. It never fails;
// see Scanner.List.
func (s *Service) ListInstalled(gameDir string) []string {
	return s.scanner.List(s.ModsDir(gameDir))
}

// CleanStaging removes a staging directory left behind by an interrupted run.
func (s *Service) CleanStaging() (bool, error) {
	return RemoveStaging(s.fs, s.opts.StagingDir)
}

// Run performs one installation and blocks until it finishes.
func (s *Service) Run(ctx context.Context, req Request) Report {
	return s.run(ctx, uuid.NewString(), req)
}

// Start dispatches one installation to a background worker. The channel
// delivers exactly one Report and is then closed.
func (s *Service) Start(ctx context.Context, req Request) (string, <-chan Report) {
	runID := uuid.NewString()
	done := make(chan Report, 1)
	go func() {
		defer close(done)
		done <- s.run(ctx, runID, req)
	}()
	return runID, done
}

type loaded struct {
	batch *Batch
	err   error
}

func (s *Service) run(ctx context.Context, runID string, req Request) Report {
	logger := s.logger.With("run", runID)
	report := Report{RunID: runID, State: StateIdle}
	enter := func(state State) {
		report.State = state
		logger.Debug("run state", "state", state)
		if s.opts.OnState != nil {
			s.opts.OnState(runID, state)
		}
	}

	// ownsStaging is set once this run has created the staging directory.
	// Residue from an earlier run is never deleted on its behalf.
	ownsStaging := false
	finish := func(primary error) Report {
		enter(StateCleaningUp)
		if ownsStaging {
			if _, err := RemoveStaging(s.fs, s.opts.StagingDir); err != nil {
				logger.Warn("staging cleanup failed", "err", err)
				report.CleanupErr = err
				if primary == nil {
					primary = &StageError{Stage: StageCleaningUp, Err: err}
				}
			}
		}

		if primary != nil {
			report.Err = primary
			if IsFatal(primary) {
				s.recordDiary(logger, &report)
			}
			enter(StateFailed)
			logger.Error("installation failed", "err", primary)
			return report
		}

		report.Installed = s.ListInstalled(req.GameDir)
		enter(StateSucceeded)
		logger.Info("installation finished", "moved", len(report.Moved))
		return report
	}

	enter(StateLoading)
	modsDir, err := s.EnsureModsDir(req.GameDir)
	if err != nil {
		return finish(&StageError{Stage: StageLoading, Err: err})
	}

	// The loader publishes its batch exactly once; this worker blocks on it.
	handoff := make(chan loaded, 1)
	go func() {
		batch, err := s.loader.Load(ctx, req.Archives)
		handoff <- loaded{batch: batch, err: err}
	}()
	res := <-handoff
	if res.err != nil {
		return finish(&StageError{Stage: StageLoading, Err: res.err})
	}
	report.Archives = res.batch.Paths

	// Last point at which the run can still be abandoned cleanly.
	if err := ctx.Err(); err != nil {
		res.batch.Close()
		return finish(&StageError{Stage: StageLoading, Err: err})
	}

	enter(StateExtracting)
	if err := s.extractor.CreateStaging(s.opts.StagingDir); err != nil {
		res.batch.Close()
		return finish(&StageError{Stage: StageExtracting, Fatal: true, Err: err})
	}
	ownsStaging = true
	if err := s.extractor.ExtractAll(res.batch, s.opts.StagingDir); err != nil {
		return finish(&StageError{Stage: StageExtracting, Fatal: true, Err: err})
	}

	enter(StateReconciling)
	rec, err := s.reconciler.Reconcile(s.opts.StagingDir, modsDir)
	report.Examined = rec.Examined
	report.Moved = rec.Moved
	report.Unrecognized = rec.Unrecognized
	if err != nil {
		return finish(&StageError{Stage: StageReconciling, Fatal: true, Err: err})
	}
	if len(rec.Unrecognized) > 0 {
		logger.Warn("archives contained directories that are not mods", "dirs", rec.Unrecognized)
	}

	return finish(nil)
}

func (s *Service) recordDiary(logger *log.Logger, report *Report) {
	path := s.opts.DiaryFile
	if path == "" {
		return
	}
	if err := WriteDiary(s.fs, path, report.RunID, report.Err, s.now()); err != nil {
		logger.Warn("could not write crash diary", "path", path, "err", err)
		report.CleanupErr = errors.Join(report.CleanupErr, fmt.Errorf("writing crash diary: %w", err))
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	report.DiaryPath = path
}
