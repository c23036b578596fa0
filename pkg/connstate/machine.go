package connstate

import (
	"log/slog"
	"sync"
	"time"
)

// State represents the connection readiness state.
type State uint8

const (
	// Initializing indicates the transport has been accepted but
	// coordination has not begun. This is the initial state.
	Initializing State = iota

	// HandshakePending indicates the handshake wait is in progress.
	HandshakePending

	// Connected indicates the handshake completed but the connection
	// may still need to stabilize.
	Connected

	// ReadyForMessages indicates the connection is safe for
	// application messages. Success-terminal.
	ReadyForMessages

	// StateError indicates coordination failed. Terminal.
	StateError

	// Closed indicates the connection has been closed. Terminal.
	Closed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Initializing:
		return "INITIALIZING"
	case HandshakePending:
		return "HANDSHAKE_PENDING"
	case Connected:
		return "CONNECTED"
	case ReadyForMessages:
		return "READY_FOR_MESSAGES"
	case StateError:
		return "ERROR"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further transitions are expected from s.
// ReadyForMessages is success-terminal but may still move to StateError
// or Closed, so it is not terminal in this sense.
func (s State) IsTerminal() bool {
	return s == StateError || s == Closed
}

// allowedEdges is the audited edge set. Transition does not consult it;
// ValidateSequence replays the log against it.
var allowedEdges = map[State][]State{
	Initializing:     {HandshakePending, StateError, Closed},
	HandshakePending: {Connected, StateError, Closed},
	Connected:        {ReadyForMessages, StateError, Closed},
	ReadyForMessages: {StateError, Closed},
	StateError:       {Closed},
	Closed:           {},
}

// edgeAllowed reports whether from -> to is in the audited edge set.
func edgeAllowed(from, to State) bool {
	for _, next := range allowedEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition records one state change in a machine's log.
// Immutable once appended.
type Transition struct {
	// From is the state before the change.
	From State

	// To is the state after the change.
	To State

	// At is when the change was recorded.
	At time.Time
}

// Machine is the readiness state machine for one connection.
//
// The write path assumes a single writer (one coordination goroutine per
// connection). Reads are safe from any goroutine: the dispatcher polls
// IsReadyForMessages concurrently with coordination.
type Machine struct {
	mu sync.RWMutex

	// Current state
	state State

	// Append-only, chronological transition log
	log []Transition

	// Operational logger (optional)
	logger *slog.Logger
}

// NewMachine creates a machine in the Initializing state.
func NewMachine() *Machine {
	return &Machine{state: Initializing}
}

// SetLogger sets the operational logger used by ValidateSequence.
// Pass nil to disable logging.
func (m *Machine) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// Transition appends a transition to the log and updates the current
// state. It does not reject disallowed edges; use ValidateSequence to
// audit the log out-of-band.
func (m *Machine) Transition(to State) Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := Transition{From: m.state, To: to, At: time.Now()}
	m.log = append(m.log, t)
	m.state = to
	return t
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsReadyForMessages reports whether the connection is safe for
// application messages. This is the sole authorization gate.
func (m *Machine) IsReadyForMessages() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == ReadyForMessages
}

// History returns a copy of the transition log in append order.
func (m *Machine) History() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Transition, len(m.log))
	copy(out, m.log)
	return out
}

// ValidateSequence replays the transition log against the allowed edge
// set. It returns false and logs on the first violation. A violation
// indicates a caller bug (for example a misuse of a forced error
// transition), not a runtime condition to recover from.
func (m *Machine) ValidateSequence() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	expected := Initializing
	for i, t := range m.log {
		if t.From != expected {
			if m.logger != nil {
				m.logger.Warn("state log continuity violation",
					"index", i,
					"logged_from", t.From.String(),
					"expected_from", expected.String())
			}
			return false
		}
		if !edgeAllowed(t.From, t.To) {
			if m.logger != nil {
				m.logger.Warn("disallowed state transition",
					"index", i,
					"from", t.From.String(),
					"to", t.To.String())
			}
			return false
		}
		expected = t.To
	}
	return true
}

// Reset clears the log and returns the machine to Initializing.
// For tests and instance reuse only; never called in normal operation.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Initializing
	m.log = nil
}
