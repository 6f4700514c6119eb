package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hemaweb/featmock/pkg/config"
	"github.com/hemaweb/featmock/pkg/logging"
)

var (
	// Persistent flags available to all subcommands
	configPath string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "featmock",
	Short: "featmock serves feature-scoped mock APIs for the admin app",
	Long: `featmock collects the mock routes of every feature package and serves them
under a base path, reloading while you edit.

Configuration can be provided via flags, environment variables, or a
featmock.yaml in the working directory. See 'featmock topics config'.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Main()
}

// errSilent marks failures whose details were already printed.
var errSilent = errors.New("")

// Main runs the CLI and returns the process exit code.
func Main() int {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./featmock.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}

// addMockFlags registers the flags shared by commands that collect mocks.
func addMockFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("root", ".", "Project root the mock globs are relative to")
	f.StringSlice("glob", nil, "Mock file glob, repeatable (default: feature package globs)")
	f.StringSlice("include", nil, "Only load these features (VITE_MOCK_INCLUDE)")
	f.StringSlice("exclude", nil, "Skip these features (VITE_MOCK_EXCLUDE)")
	f.BoolP("verbose", "v", false, "Log collection details")
}

// loadConfig resolves the configuration with cmd's flags bound on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v, configPath)
}

// newLogger builds the operational logger. The returned closer releases the
// optional log file.
func newLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, func(), error) {
	lc := logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
		Output: stderr,
	}
	if cfg.Mock.Verbose {
		lc.Level = logging.LevelDebug
	}

	closer := func() {}
	if cfg.Log.File != "" {
		f, err := logging.OpenFile(cfg.Log.File)
		if err != nil {
			return nil, nil, err
		}
		lc.File = f
		closer = func() { _ = f.Close() }
	}
	return logging.New(lc), closer, nil
}
