package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/preflight"
)

// errChecksFailed is returned when a required check fails.
var errChecksFailed = errors.New("system check failed")

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, sources and index health",
		Long: `Run diagnostics before building or serving an index.

Checks:
  - Configuration values
  - Provider credentials
  - Source directories and their .txt files
  - Write permissions and disk space for the index
  - Existing index and manifest (warning only)`,
		Example: `  corpusrag doctor
  corpusrag doctor --verbose
  corpusrag doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, verbose, jsonOutput bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := runChecks(ctx, checker)

	if jsonOutput {
		if err := writeDoctorJSON(cmd, checker, results); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return errChecksFailed
	}
	return nil
}

// runChecks runs every check. When the configuration cannot be loaded the
// remaining checks run against the defaults and the config check reports
// the load error.
func runChecks(ctx context.Context, checker *preflight.Checker) []preflight.CheckResult {
	cfg, loadErr := loadConfig()
	if loadErr != nil {
		cfg = config.NewConfig()
	}

	results := checker.RunAll(ctx, cfg)
	if loadErr != nil {
		for i := range results {
			if results[i].Name == "config" {
				results[i].Status = preflight.StatusFail
				results[i].Message = loadErr.Error()
			}
		}
	}
	return results
}

// doctorJSON is the structure for JSON output.
type doctorJSON struct {
	Status   string            `json:"status"`
	Checks   []doctorJSONCheck `json:"checks"`
	Warnings []string          `json:"warnings,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

type doctorJSONCheck struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Required bool   `json:"required"`
	Details  string `json:"details,omitempty"`
}

func writeDoctorJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	report := doctorJSON{
		Status: checker.SummaryStatus(results),
		Checks: make([]doctorJSONCheck, 0, len(results)),
	}
	for _, r := range results {
		report.Checks = append(report.Checks, doctorJSONCheck{
			Name:     r.Name,
			Status:   r.Status.String(),
			Message:  r.Message,
			Required: r.Required,
			Details:  r.Details,
		})
	}
	report.Errors, report.Warnings = preflight.Problems(results)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
