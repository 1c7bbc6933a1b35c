// Package logging provides the leveled, printf-style logger used across the
// thumbnail service.
//
// It supports the following log levels:
//   - DEBUG: cache hits, disk lookups, per-size generation details
//   - INFO: startup, configuration and lifecycle messages
//   - WARN: recoverable failures such as a thumbnail that could not be persisted
//   - ERROR: failures surfaced to a caller
//   - FATAL: errors that terminate the process
//
// The level is read once from the DEBUG or LOG_LEVEL environment variables and
// can be overridden with SetLevel.
package logging
