// Package logging configures structured slog logging for corpusrag.
//
// Logs are JSON lines written to a size-rotated file under ~/.corpusrag/logs/,
// optionally mirrored to stderr. Long-running stdio servers must use
// SetupServerMode, which never writes to stdout or stderr.
package logging
