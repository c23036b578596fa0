// Package connstate provides the connection-readiness state machine for
// WAVELINK connections.
//
// A connection moves through four phases after the transport accepts it:
//
//	INITIALIZING -> HANDSHAKE_PENDING -> CONNECTED -> READY_FOR_MESSAGES
//
// ERROR and CLOSED are terminal states reachable from any non-terminal
// state. READY_FOR_MESSAGES is the success-terminal state and the sole
// authorization gate: dispatchers must check IsReadyForMessages before
// delivering application messages.
//
// # Lenient Writes, Audited Reads
//
// Transition deliberately does not enforce the edge set. The coordination
// hot path stays branch-free; correctness is checked out-of-band by
// ValidateSequence, which replays the append-only transition log against
// the allowed edges. This split also lets administrative escapes
// (forcing ERROR from any state) bypass edge checks without a special
// write path.
package connstate
