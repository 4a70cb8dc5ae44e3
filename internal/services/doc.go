// Package services defines shared utilities consumed by the account, naming,
// and client packages.
//
// Key responsibilities:
//   - Context helpers that stamp drive IDs, operation names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is (user correction vs. I/O vs. refresh failure)
//     and map them to CLI exit codes.
package services
