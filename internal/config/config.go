// Package config holds the persisted settings, including the chosen game directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrGameDirMismatch is returned when a picked directory is not a game installation.
var ErrGameDirMismatch = errors.New("directory does not look like a game installation")

type Config struct {
	GameDir        string `yaml:"game_dir"`
	GameDirMatch   string `yaml:"game_dir_match"`
	StagingDir     string `yaml:"staging_dir"`
	ModsSubdir     string `yaml:"mods_subdir"`
	MarkerFile     string `yaml:"marker_file"`
	ExcludePattern string `yaml:"exclude_pattern"`
	DiaryFile      string `yaml:"diary_file"`
	LogFile        string `yaml:"log_file"`
	LogLevel       string `yaml:"log_level"`
}

func DefaultConfig() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return &Config{
		GameDirMatch:   "7 Days To Die",
		StagingDir:     ".zips_temp",
		ModsSubdir:     "Mods",
		MarkerFile:     "ModInfo.xml",
		ExcludePattern: "Config",
		DiaryFile:      "PANIC_OUTPUT (READ THIS IF THE PROGRAM CRASHED).txt",
		LogFile:        filepath.Join(home, ".esar", "esar.log"),
		LogLevel:       "info",
	}, nil
}

func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".esar", "config.yaml"), nil
}

func Load() (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the install pipeline cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.StagingDir == "":
		return errors.New("staging_dir must not be empty")
	case c.ModsSubdir == "":
		return errors.New("mods_subdir must not be empty")
	case c.MarkerFile == "":
		return errors.New("marker_file must not be empty")
	case strings.ContainsRune(c.MarkerFile, filepath.Separator):
		return fmt.Errorf("marker_file must be a bare file name, got %q", c.MarkerFile)
	}
	return nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
