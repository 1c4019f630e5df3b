package logging

import "log/slog"

// EnableTrace turns on dumps of full query texts and page bodies.
// Default is false to keep the bot log readable.
var EnableTrace = false

// Trace logs a message at DEBUG level, but only if EnableTrace is true.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if EnableTrace {
		logger.Debug(msg, args...)
	}
}
