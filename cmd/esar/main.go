package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/mcdonaldj/esar/internal/adapters/tuisvc"
	"github.com/mcdonaldj/esar/internal/cli"
	"github.com/mcdonaldj/esar/internal/config"
	"github.com/mcdonaldj/esar/internal/logging"
	"github.com/mcdonaldj/esar/internal/tui"
)

// version is set via ldflags at build time: -ldflags "-X main.version=x.y.z"
var version = "dev"

func main() {
	tuiMode := len(os.Args) < 2 || os.Args[1] == "ui" || os.Args[1] == "tui"

	logger, closer := newLogger(tuiMode)
	defer closer.Close()

	// Handle TUI mode (no args or ui/tui command)
	if tuiMode {
		if err := tui.Run(tuisvc.New(logger)); err != nil {
			fmt.Printf("Error: %v\n", err)
			closer.Close()
			os.Exit(1)
		}
		return
	}

	// Use CLI for all other commands
	c := cli.New(version)
	c.Logger = logger
	c.Run()
}

// newLogger writes to the configured log file. The terminal only gets
// records in CLI mode at debug level; the TUI owns the screen.
func newLogger(tuiMode bool) (*log.Logger, io.Closer) {
	cfg, err := config.Load()
	if err != nil {
		// The CLI and TUI report config errors themselves.
		if cfg, err = config.DefaultConfig(); err != nil {
			cfg = &config.Config{}
		}
	}

	var console io.Writer = io.Discard
	if level, _ := logging.ParseLevel(cfg.LogLevel); !tuiMode && level == log.DebugLevel {
		console = os.Stderr
	}

	logFile, err := config.ExpandPath(cfg.LogFile)
	if err != nil {
		logFile = ""
	}
	logger, closer, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    logFile,
		Console: console,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		return logging.Discard(), closer
	}
	return logger, closer
}
