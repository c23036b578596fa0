// Package handshake coordinates the transition of one WAVELINK
// connection from "transport accepted" to "safe to process application
// messages".
//
// The bug class this package exists to eliminate: message handling that
// starts before the handshake has truly stabilized, producing "socket
// not ready" failures only under variable cloud startup latency. The
// Coordinator drives the readiness state machine through four phases
// with environment-calibrated waits:
//
//	INITIALIZING -> HANDSHAKE_PENDING   (handshake delay)
//	             -> CONNECTED           (stabilization delay, cloud only)
//	             -> READY_FOR_MESSAGES
//
// Dispatchers check IsReadyForMessages before delivering queued
// events.
//
// # Failure Semantics
//
// Coordination failures are reported, never retried internally: any
// cancellation or timeout mid-sequence forces the machine to ERROR
// before CoordinateHandshake returns false. The caller owns retry
// policy; Supervisor implements the standard one, constructing a fresh
// Coordinator per attempt with the detector's progressive delay in
// between.
package handshake
