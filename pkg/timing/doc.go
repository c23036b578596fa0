// Package timing provides per-environment timing profiles for the
// WAVELINK connection-readiness core.
//
// Each deployment environment has different network and scheduler
// latency characteristics: a locally-run test finishes its transport
// handshake in microseconds, while a container-scheduled cloud runtime
// can need a hundred milliseconds or more before the socket is truly
// stable. Profiles bundle the delay and timeout constants calibrated to
// each environment so coordination code never hardcodes a sleep.
//
// Profiles are built once from a static table and never mutated.
// Unknown environment names fall back to the development profile.
//
// # Override Files
//
// For lab and operations use, LoadOverrides reads a YAML file of
// per-environment overrides:
//
//	staging:
//	  handshake_delay: 150ms
//	  handshake_timeout: 750ms
//
// A missing file is not an error; the static table applies.
package timing
