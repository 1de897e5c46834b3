package ports

import (
	"github.com/mcdonaldj/esar/internal/config"
)

// TUIInstallResult contains the outcome of one installation run.
type TUIInstallResult struct {
	RunID      string
	Moved      []string
	Installed  []string
	Error      error
	CleanupErr error
	DiaryPath  string
}

// TUIService provides operations needed by the TUI.
// This abstraction allows the TUI to be tested without real filesystem/install operations.
type TUIService interface {
	// LoadConfig loads the application configuration.
	LoadConfig() (*config.Config, error)

	// SetGameDir validates dir as a game directory, ensures its mods
	// directory exists and persists the choice.
	SetGameDir(cfg *config.Config, dir string) error

	// ListMods returns the names of installed mods in display order.
	ListMods(cfg *config.Config) []string

	// StartInstall dispatches an installation run in the background.
	// The returned channel delivers exactly one result and is then closed.
	StartInstall(cfg *config.Config, archives []string) (runID string, done <-chan TUIInstallResult)
}
