// Package cmd provides the CLI commands for corpusrag.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusrag/internal/config"
	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
	"github.com/Aman-CERP/corpusrag/internal/logging"
	"github.com/Aman-CERP/corpusrag/pkg/version"
)

var (
	debugMode      bool
	projectDir     string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the corpusrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpusrag",
		Short: "Embed a text corpus and retrieve passages by similarity",
		Long: `corpusrag chunks a directory of plain-text documents, embeds every chunk
with an embedding provider, and writes a JSONL index plus a manifest.

The index is then searched by cosine similarity from the command line
or over the Model Context Protocol with 'corpusrag serve'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("corpusrag version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.corpusrag/logs/ and stderr")
	cmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory holding .corpusrag.yaml and .env")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging installs file logging as the slog default. serve configures
// its own logging and logs reads the file, so both are skipped here.
func startLogging(cmd *cobra.Command, _ []string) error {
	switch cmd.Name() {
	case "serve", "logs", "version":
		return nil
	}

	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		if debugMode {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		return nil
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("logging_initialized",
		slog.String("command", cmd.Name()),
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadConfig reads .env and the layered configuration for the project dir.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(projectDir); err != nil {
		return nil, cerrors.ConfigError("could not read .env", err)
	}
	return config.Load(projectDir)
}

// Execute runs the root command and prints any error in CLI form.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, cerrors.FormatForCLI(err))
	}
	_ = stopLogging(root, nil)
	return err
}
