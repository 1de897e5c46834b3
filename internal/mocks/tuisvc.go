package mocks

import (
	"github.com/mcdonaldj/esar/internal/config"
	"github.com/mcdonaldj/esar/internal/ports"
)

// MockTUIService implements ports.TUIService for testing.
type MockTUIService struct {
	// ConfigResult is the config to return from LoadConfig
	ConfigResult *config.Config
	// ConfigError is the error to return from LoadConfig
	ConfigError error

	// Mods is the listing to return from ListMods
	Mods []string

	// SetGameDirError is the error to return from SetGameDir
	SetGameDirError error

	// InstallResult is delivered on the channel returned by StartInstall
	InstallResult ports.TUIInstallResult
	// RunID is returned from StartInstall
	RunID string

	// Call tracking
	LoadConfigCalls   int
	ListModsCalls     int
	SetGameDirCalls   []string
	StartInstallCalls [][]string
}

// NewMockTUIService creates a new mock TUI service.
func NewMockTUIService() *MockTUIService {
	return &MockTUIService{
		ConfigResult: &config.Config{},
		RunID:        "run-1",
	}
}

// LoadConfig loads the application configuration.
func (m *MockTUIService) LoadConfig() (*config.Config, error) {
	m.LoadConfigCalls++
	if m.ConfigError != nil {
		return nil, m.ConfigError
	}
	return m.ConfigResult, nil
}

// SetGameDir records the chosen directory.
func (m *MockTUIService) SetGameDir(cfg *config.Config, dir string) error {
	m.SetGameDirCalls = append(m.SetGameDirCalls, dir)
	if m.SetGameDirError != nil {
		return m.SetGameDirError
	}
	cfg.GameDir = dir
	return nil
}

// ListMods returns the canned listing.
func (m *MockTUIService) ListMods(cfg *config.Config) []string {
	m.ListModsCalls++
	return m.Mods
}

// StartInstall returns a channel carrying InstallResult.
func (m *MockTUIService) StartInstall(cfg *config.Config, archives []string) (string, <-chan ports.TUIInstallResult) {
	m.StartInstallCalls = append(m.StartInstallCalls, archives)

	done := make(chan ports.TUIInstallResult, 1)
	result := m.InstallResult
	result.RunID = m.RunID
	done <- result
	close(done)
	return m.RunID, done
}

// Compile-time check that MockTUIService implements ports.TUIService.
var _ ports.TUIService = (*MockTUIService)(nil)
