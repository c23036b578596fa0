// Package diaglog provides structured diagnostic logging for the
// WAVELINK connection-readiness core.
//
// This package defines the Logger interface and Event types for
// capturing readiness-lifecycle events: connection state changes,
// detected race-condition patterns, and coordination errors. It is
// separate from operational logging (slog) - the diagnostic trace is a
// complete machine-readable record for timing analysis across
// environments.
//
// # Basic Usage
//
// Components accept a Logger implementation:
//
//	// For development: echo events to console via slog
//	diagLogger := diaglog.NewSlogAdapter(slog.Default())
//
//	// For production: write to a binary file
//	diagLogger, _ := diaglog.NewFileLogger("/var/log/wavelink/readiness.wlog")
//
//	// Both: use MultiLogger
//	diagLogger := diaglog.NewMultiLogger(
//	    diaglog.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Each event carries exactly one payload:
//   - StateChange: a readiness state machine transition
//   - Pattern: a race-condition pattern recorded by the detector
//   - Error: a coordination failure
//
// # File Format
//
// Log files use CBOR encoding with integer keys and the .wlog
// extension. The wavelink-lab CLI replays and filters them.
package diaglog
