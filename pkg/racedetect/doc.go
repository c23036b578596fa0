// Package racedetect provides the race-condition detector for the
// WAVELINK connection-readiness core.
//
// The detector is a diagnostic engine, typically one instance per
// environment shared by many connections. It computes progressive
// backoff delays for handshake retries, flags timing violations,
// validates the single authorized ready state, and accumulates a
// bounded, queryable log of detected anomaly patterns.
//
// # Fail-Open Diagnostics
//
// Detector operations never raise: malformed input is logged and
// treated as "no violation". A diagnostic subsystem must never itself
// become a source of outages. Timing violations and premature message
// handling are recorded classifications only; they never interrupt the
// operation they describe.
//
// # Pattern Collection
//
// The pattern collection is the only shared mutable resource in the
// readiness core. All mutation happens under a mutex; reads observe a
// consistent snapshot. Growth is bounded only by explicit eviction:
// call ClearOldPatterns periodically from an external scheduler.
package racedetect
