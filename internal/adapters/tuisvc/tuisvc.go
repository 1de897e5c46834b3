// Package tuisvc provides the real implementation of ports.TUIService.
package tuisvc

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/mcdonaldj/esar/internal/config"
	"github.com/mcdonaldj/esar/internal/install"
	"github.com/mcdonaldj/esar/internal/ports"
)

// Service implements ports.TUIService on top of the install pipeline.
type Service struct {
	logger *log.Logger
	// installer builds the pipeline for a config; swapped in tests.
	installer func(cfg *config.Config) *install.Service
	// save persists the config; swapped in tests.
	save func(cfg *config.Config) error
}

// New creates a new TUI service.
func New(logger *log.Logger) *Service {
	return &Service{
		logger: logger,
		installer: func(cfg *config.Config) *install.Service {
			return install.NewDefaultService(cfg, logger)
		},
		save: (*config.Config).Save,
	}
}

// LoadConfig loads the application configuration.
func (s *Service) LoadConfig() (*config.Config, error) {
	return config.Load()
}

// SetGameDir validates dir, creates its mods directory and saves it as
// the configured game directory. cfg is only updated on success.
func (s *Service) SetGameDir(cfg *config.Config, dir string) error {
	dir, err := config.ExpandPath(dir)
	if err != nil {
		return err
	}
	if err := config.ValidateGameDir(dir, cfg.GameDirMatch); err != nil {
		return err
	}
	if _, err := s.installer(cfg).EnsureModsDir(dir); err != nil {
		return err
	}

	previous := cfg.GameDir
	cfg.GameDir = dir
	if err := s.save(cfg); err != nil {
		cfg.GameDir = previous
		return fmt.Errorf("saving config: %w", err)
	}
	s.logger.Info("game directory set", "dir", dir)
	return nil
}

// ListMods returns the installed mods of the configured game directory.
// Without a game directory there is nothing to list.
func (s *Service) ListMods(cfg *config.Config) []string {
	gameDir, err := cfg.ResolvedGameDir()
	if err != nil {
		return []string{}
	}
	return s.installer(cfg).ListInstalled(gameDir)
}

// StartInstall dispatches an installation into the configured game directory.
func (s *Service) StartInstall(cfg *config.Config, archives []string) (string, <-chan ports.TUIInstallResult) {
	out := make(chan ports.TUIInstallResult, 1)

	gameDir, err := cfg.ResolvedGameDir()
	if err != nil {
		out <- ports.TUIInstallResult{Error: err}
		close(out)
		return "", out
	}

	runID, done := s.installer(cfg).Start(context.Background(), install.Request{
		Archives: archives,
		GameDir:  gameDir,
	})
	go func() {
		defer close(out)
		report := <-done
		out <- ports.TUIInstallResult{
			RunID:      report.RunID,
			Moved:      report.Moved,
			Installed:  report.Installed,
			Error:      report.Err,
			CleanupErr: report.CleanupErr,
			DiaryPath:  report.DiaryPath,
		}
	}()
	return runID, out
}

// Compile-time check that Service implements ports.TUIService.
var _ ports.TUIService = (*Service)(nil)
