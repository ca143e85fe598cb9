package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/scanner"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks.
type Checker struct {
	verbose bool
	output  io.Writer
	scanner *scanner.Scanner
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// WithScanner sets the scanner used to count source files.
func WithScanner(s *scanner.Scanner) Option {
	return func(c *Checker) {
		c.scanner = s
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.scanner == nil {
		s, err := scanner.New()
		if err != nil {
			s = scanner.NewWithBase(".")
		}
		c.scanner = s
	}
	return c
}

// RunAll runs every check against cfg. It never writes the index.
func (c *Checker) RunAll(ctx context.Context, cfg *config.Config) []CheckResult {
	indexDir := existingParent(filepath.Dir(cfg.Index.Path))
	var indexBytes int64
	if info, err := os.Stat(cfg.Index.Path); err == nil {
		indexBytes = info.Size()
	}

	return []CheckResult{
		c.CheckConfig(cfg),
		c.CheckCredentials(cfg),
		c.CheckSources(ctx, cfg.Sources),
		c.CheckWritePermissions(indexDir),
		c.checkDiskSpace(indexDir, indexBytes),
		c.CheckIndex(cfg),
	}
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus condenses results into "ready", "ready_with_warnings" or
// "failed".
func (c *Checker) SummaryStatus(results []CheckResult) string {
	errs, warnings := Problems(results)
	switch {
	case len(errs) > 0:
		return "failed"
	case len(warnings) > 0:
		return "ready_with_warnings"
	default:
		return "ready"
	}
}

// Problems splits the non-passing results into critical errors and
// warnings, each formatted as "name: message". An optional check that
// failed counts as a warning.
func Problems(results []CheckResult) (errs, warnings []string) {
	for _, r := range results {
		line := r.Name + ": " + r.Message
		switch {
		case r.IsCritical():
			errs = append(errs, line)
		case r.Status != StatusPass:
			warnings = append(warnings, line)
		}
	}
	return errs, warnings
}

// PrintResults writes one line per check, the overall verdict, and the
// problems grouped by severity.
func (c *Checker) PrintResults(results []CheckResult) {
	w := c.output
	_, _ = fmt.Fprintf(w, "corpusrag doctor\n================\n\n")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(w, "      %s\n", r.Details)
		}
	}
	_, _ = fmt.Fprintf(w, "\nStatus: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	errs, warnings := Problems(results)
	printGroup(w, "error(s)", errs)
	printGroup(w, "warning(s)", warnings)
}

func printGroup(w io.Writer, label string, lines []string) {
	if len(lines) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "\n%d %s:\n", len(lines), label)
	for _, l := range lines {
		_, _ = fmt.Fprintf(w, "  - %s\n", l)
	}
}

// CheckWritePermissions checks that the index directory accepts new files.
func (c *Checker) CheckWritePermissions(path string) CheckResult {
	result := CheckResult{
		Name:     "write_permissions",
		Required: true,
	}

	f, err := os.CreateTemp(path, ".corpusrag-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s is writable", path)
	return result
}

// existingParent walks up from dir to the first directory that exists, so
// checks can run before the index directory is created.
func existingParent(dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
