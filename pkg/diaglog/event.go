package diaglog

import "time"

// Event represents one diagnostic event captured by the readiness core.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	// Empty for detector-level events with no single connection.
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	// Environment the event was observed in.
	Environment string `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (exactly one will be set).
	StateChange *StateChangeEvent `cbor:"5,keyasint,omitempty"`
	Pattern     *PatternEvent     `cbor:"6,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"7,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a readiness state change.
	CategoryState Category = 0
	// CategoryPattern indicates a recorded race-condition pattern.
	CategoryPattern Category = 1
	// CategoryError indicates a coordination error.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryPattern:
		return "PATTERN"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures one readiness state machine transition.
type StateChangeEvent struct {
	// OldState is the state before the transition.
	OldState string `cbor:"1,keyasint"`

	// NewState is the state after the transition.
	NewState string `cbor:"2,keyasint"`

	// Elapsed is the time since coordination started.
	// Stored as nanoseconds.
	Elapsed time.Duration `cbor:"3,keyasint"`

	// Reason for the change (forced transitions only).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// PatternEvent captures a race-condition pattern recorded by the
// detector.
type PatternEvent struct {
	// PatternID is the pattern's UUID in the detector collection.
	PatternID string `cbor:"1,keyasint"`

	// Type is the pattern type ("timing_violation",
	// "premature_message_handling", ...).
	Type string `cbor:"2,keyasint"`

	// Severity is the pattern severity name ("warning", "critical").
	Severity string `cbor:"3,keyasint"`

	// Details carries pattern-specific measurements.
	Details map[string]any `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures a coordination failure.
type ErrorEventData struct {
	// Message is the error description.
	Message string `cbor:"1,keyasint"`

	// Context describes what the coordinator was doing.
	Context string `cbor:"2,keyasint,omitempty"`

	// State is the machine state when the failure was resolved.
	State string `cbor:"3,keyasint,omitempty"`
}
