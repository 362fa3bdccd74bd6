// Package logging configures structured slog output for hexosearch.
// Without --debug, warnings and errors go to stderr only. With --debug or a
// configured log file, JSON logs are also written to a size-rotated file
// under ~/.hexosearch/logs/.
package logging
