// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mcdonaldj/esar/internal/config"
	"github.com/mcdonaldj/esar/internal/install"
	"github.com/mcdonaldj/esar/internal/logging"
)

// errReported means the command already told the user what went wrong.
var errReported = errors.New("reported")

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	ConfigPath() (string, error)
	DefaultConfig() (*config.Config, error)
}

// InstallService provides install pipeline operations for the CLI.
type InstallService interface {
	Install(ctx context.Context, cfg *config.Config, req install.Request) install.Report
	ListInstalled(cfg *config.Config, gameDir string) []string
	EnsureModsDir(cfg *config.Config, gameDir string) (string, error)
	CleanStaging(cfg *config.Config) (bool, error)
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Logger receives pipeline logs; nil discards them
	Logger *log.Logger

	// Injectable dependencies (nil means use defaults)
	ConfigSvc  ConfigService
	InstallSvc InstallService

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	exitCode := 0
	return &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(code int) { exitCode = code; _ = exitCode },
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// defaultConfigService wraps the config package functions.
type defaultConfigService struct{}

func (d *defaultConfigService) Load() (*config.Config, error)          { return config.Load() }
func (d *defaultConfigService) Save(cfg *config.Config) error          { return cfg.Save() }
func (d *defaultConfigService) ConfigPath() (string, error)            { return config.ConfigPath() }
func (d *defaultConfigService) DefaultConfig() (*config.Config, error) { return config.DefaultConfig() }

// defaultInstallService builds the real pipeline for each config.
type defaultInstallService struct {
	logger *log.Logger
}

func (d *defaultInstallService) service(cfg *config.Config) *install.Service {
	return install.NewDefaultService(cfg, d.logger)
}

func (d *defaultInstallService) Install(ctx context.Context, cfg *config.Config, req install.Request) install.Report {
	return d.service(cfg).Run(ctx, req)
}
func (d *defaultInstallService) ListInstalled(cfg *config.Config, gameDir string) []string {
	return d.service(cfg).ListInstalled(gameDir)
}
func (d *defaultInstallService) EnsureModsDir(cfg *config.Config, gameDir string) (string, error) {
	return d.service(cfg).EnsureModsDir(gameDir)
}
func (d *defaultInstallService) CleanStaging(cfg *config.Config) (bool, error) {
	return d.service(cfg).CleanStaging()
}

// Helper methods to get the service or default
func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

func (c *CLI) installSvc() InstallService {
	if c.InstallSvc != nil {
		return c.InstallSvc
	}
	return &defaultInstallService{logger: c.logger()}
}

func (c *CLI) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.Discard()
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := c.rootCmd()
	if len(c.Args) > 1 {
		root.SetArgs(c.Args[1:])
	} else {
		root.SetArgs([]string{})
	}

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(c.Err, "Error: %v\n", err)
		}
		c.Exit(1)
	}
}

func (c *CLI) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "esar",
		Short: "Install 7 Days To Die mods from zip archives",
		Long: "esar extracts mod archives into a staging folder, moves every folder that\n" +
			"carries a ModInfo.xml into the game's Mods directory and cleans up after itself.\n\n" +
			"Run without arguments (or with 'ui') to start the interactive interface.\n\n" +
			"Config: ~/.esar/config.yaml",
		Version:       c.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(c.Out)
	root.SetErr(c.Err)
	root.SetVersionTemplate("esar v{{.Version}}\n")

	var gameDir string
	installCmd := &cobra.Command{
		Use:   "install <archive.zip>...",
		Short: "Install mods from one or more zip archives",
		Example: `  esar install ~/Downloads/BetterZombies.zip
  esar install a.zip b.zip --game-dir "/games/7 Days To Die"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.InstallMods(cmd.Context(), args, gameDir)
		},
	}
	installCmd.Flags().StringVar(&gameDir, "game-dir", "", "Game directory to install into (defaults to the configured one)")

	root.AddCommand(
		installCmd,
		&cobra.Command{
			Use:   "list",
			Short: "List installed mods",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.ListMods()
			},
		},
		&cobra.Command{
			Use:   "set-dir <game-dir>",
			Short: "Choose the game directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.SetGameDir(args[0])
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show configuration and leftovers from earlier runs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.ShowStatus()
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create default config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.InitConfig()
			},
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Remove a staging directory left behind by an interrupted run",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.CleanStaging()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(c.Out, "esar v%s\n", c.Version)
			},
		},
	)
	return root
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() error {
	svc := c.configSvc()
	cfg, err := svc.DefaultConfig()
	if err != nil {
		return err
	}
	if err := svc.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	path, err := svc.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", path)
	return nil
}

// InstallMods runs one installation and prints its report.
func (c *CLI) InstallMods(ctx context.Context, archives []string, gameDir string) error {
	cfg, err := c.configSvc().Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if gameDir != "" {
		if gameDir, err = config.ExpandPath(gameDir); err != nil {
			return err
		}
		if err := config.ValidateGameDir(gameDir, cfg.GameDirMatch); err != nil {
			return err
		}
	} else if gameDir, err = cfg.ResolvedGameDir(); err != nil {
		return err
	}

	modsDir := config.ModsDir(gameDir, cfg.ModsSubdir)
	fmt.Fprintf(c.Out, "%s Installing %d archive(s) into %s\n", c.cyan("=>"), len(archives), modsDir)
	for _, a := range archives {
		size := "missing"
		if info, err := os.Stat(a); err == nil {
			size = formatSize(info.Size())
		}
		fmt.Fprintf(c.Out, "  %s %s\n", filepath.Base(a), c.gray("("+size+")"))
	}

	report := c.installSvc().Install(ctx, cfg, install.Request{Archives: archives, GameDir: gameDir})

	fmt.Fprintln(c.Out)
	for _, name := range report.Moved {
		fmt.Fprintf(c.Out, "  %s %s\n", c.green("*"), name)
	}
	for _, name := range report.Unrecognized {
		fmt.Fprintf(c.Out, "  %s %s %s\n", c.gray("-"), c.gray(name), c.gray("(no "+cfg.MarkerFile+", left alone)"))
	}

	if report.Err != nil {
		fmt.Fprintf(c.Err, "%s %v\n", c.red("x"), report.Err)
		if report.CleanupErr != nil {
			fmt.Fprintf(c.Err, "  %s cleanup: %v\n", c.yellow("!"), report.CleanupErr)
		}
		if report.DiaryPath != "" {
			fmt.Fprintf(c.Err, "  Details written to %s\n", report.DiaryPath)
		}
		return errReported
	}

	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, report.Summary())
	fmt.Fprintf(c.Out, "%s mod(s) now installed\n", c.green(fmt.Sprintf("%d", len(report.Installed))))
	return nil
}

// ListMods prints the installed mods.
func (c *CLI) ListMods() error {
	cfg, err := c.configSvc().Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	gameDir, err := cfg.ResolvedGameDir()
	if err != nil {
		return err
	}

	mods := c.installSvc().ListInstalled(cfg, gameDir)
	if len(mods) == 0 {
		fmt.Fprintln(c.Out, "No mods installed.")
		return nil
	}

	fmt.Fprintf(c.Out, "Installed mods in %s:\n\n", config.ModsDir(gameDir, cfg.ModsSubdir))
	for _, name := range mods {
		if name == install.ListingUnavailable {
			fmt.Fprintf(c.Out, "  %s %s\n", c.red("x"), name)
			continue
		}
		fmt.Fprintf(c.Out, "  %s %s\n", c.green("*"), name)
	}
	return nil
}

// SetGameDir validates and saves the game directory.
func (c *CLI) SetGameDir(dir string) error {
	cfgSvc := c.configSvc()
	cfg, err := cfgSvc.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dir, err = config.ExpandPath(dir)
	if err != nil {
		return err
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if err := config.ValidateGameDir(dir, cfg.GameDirMatch); err != nil {
		return err
	}
	modsDir, err := c.installSvc().EnsureModsDir(cfg, dir)
	if err != nil {
		return err
	}

	cfg.GameDir = dir
	if err := cfgSvc.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(c.Out, "%s Game directory set to %s\n", c.green("*"), dir)
	fmt.Fprintf(c.Out, "  Mods: %s\n", modsDir)
	return nil
}

// ShowStatus shows the current status.
func (c *CLI) ShowStatus() error {
	cfgSvc := c.configSvc()

	cfg, err := cfgSvc.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configPath, err := cfgSvc.ConfigPath()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.Out, "esar status:")
	fmt.Fprintf(c.Out, "  Config:  %s\n", configPath)

	if cfg.GameDir == "" {
		fmt.Fprintf(c.Out, "  Game:    %s\n", c.gray("not set (run 'esar set-dir <dir>')"))
	} else {
		fmt.Fprintf(c.Out, "  Game:    %s\n", cfg.GameDir)
		if gameDir, err := cfg.ResolvedGameDir(); err == nil {
			mods := c.installSvc().ListInstalled(cfg, gameDir)
			fmt.Fprintf(c.Out, "  Mods:    %s (%d installed)\n", config.ModsDir(gameDir, cfg.ModsSubdir), len(mods))
		}
	}

	if _, err := os.Stat(cfg.StagingDir); err == nil {
		fmt.Fprintf(c.Out, "  Staging: %s\n", c.yellow(cfg.StagingDir+" left over (inspect it, then run 'esar clean')"))
	} else {
		fmt.Fprintf(c.Out, "  Staging: %s\n", c.gray("clean"))
	}
	if _, err := os.Stat(cfg.DiaryFile); err == nil {
		fmt.Fprintf(c.Out, "  Crash:   %s\n", c.red(cfg.DiaryFile))
	}
	return nil
}

// CleanStaging removes a leftover staging directory.
func (c *CLI) CleanStaging() error {
	cfg, err := c.configSvc().Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	removed, err := c.installSvc().CleanStaging(cfg)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintln(c.Out, "Nothing to clean.")
		return nil
	}
	fmt.Fprintf(c.Out, "%s Removed %s\n", c.yellow("-"), cfg.StagingDir)
	return nil
}

// formatSize formats bytes as human-readable
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
