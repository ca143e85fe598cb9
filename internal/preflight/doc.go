// Package preflight validates configuration and environment before an
// index build, and backs the doctor command.
//
// The package checks:
//   - Configuration validity
//   - Provider credentials
//   - Source directories and the text files they hold
//   - Write permissions and free disk space where the index lives
//   - An existing index and the model that built it
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, cfg)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
