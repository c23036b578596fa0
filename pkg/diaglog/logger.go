package diaglog

// Logger is the interface components implement to receive diagnostic
// events. Pass nil or NoopLogger to disable diagnostic capture.
type Logger interface {
	// Log records a diagnostic event. Implementations must be
	// thread-safe and must never fail the caller; logging is not
	// allowed to become a source of outages.
	Log(event Event)
}

// NoopLogger discards all events. Use when diagnostic capture is
// disabled. NoopLogger is safe for concurrent use and usable as a zero
// value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
