// Package logging builds the slog loggers used across gdrive.
//
// Terminal output uses a compact console format tagged with the component,
// drive and account; the log file under paths.log_dir is always JSON and
// additionally carries the operation and correlation ID of every command.
// WarnWithContext and ErrorWithContext enforce event types and hints so
// failures can be filtered and acted on.
package logging
