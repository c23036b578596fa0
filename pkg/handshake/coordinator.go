package handshake

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wavelink-protocol/wavelink-go/pkg/connstate"
	"github.com/wavelink-protocol/wavelink-go/pkg/diaglog"
	"github.com/wavelink-protocol/wavelink-go/pkg/racedetect"
	"github.com/wavelink-protocol/wavelink-go/pkg/timing"
)

// Coordinator drives one connection's readiness state machine through
// the environment's calibrated handshake phases.
//
// One coordination goroutine per coordinator: CoordinateHandshake must
// not be invoked concurrently on the same instance. Accessors are safe
// from any goroutine; the dispatcher polls IsReadyForMessages while
// coordination runs.
type Coordinator struct {
	mu sync.RWMutex

	// ConnectionID (UUID) for log correlation
	connID string

	// Environment and its timing profile
	env     timing.Environment
	profile timing.Profile

	// Readiness state machine
	machine *connstate.Machine

	// Shared per-environment detector (optional)
	detector *racedetect.Detector

	// Operational logger
	logger *slog.Logger

	// Diagnostic event sink
	diag diaglog.Logger

	// Coordination timestamps
	startedAt   time.Time
	completedAt time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the operational logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithDiagLogger sets the diagnostic event sink. Defaults to
// diaglog.NoopLogger.
func WithDiagLogger(diag diaglog.Logger) Option {
	return func(c *Coordinator) { c.diag = diag }
}

// WithDetector attaches a shared race-condition detector. On
// successful coordination the observed duration is checked against the
// environment's handshake timeout.
func WithDetector(d *racedetect.Detector) Option {
	return func(c *Coordinator) { c.detector = d }
}

// WithProfile overrides the environment's timing profile.
func WithProfile(p timing.Profile) Option {
	return func(c *Coordinator) { c.profile = p }
}

// NewCoordinator creates a coordinator for one freshly accepted
// connection. Unknown environment names fall back to development.
func NewCoordinator(env timing.Environment, opts ...Option) *Coordinator {
	c := &Coordinator{
		connID:  uuid.NewString(),
		env:     env.Normalize(),
		profile: timing.ProfileFor(env),
		machine: connstate.NewMachine(),
		logger:  slog.Default(),
		diag:    diaglog.NoopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.machine.SetLogger(c.logger)
	return c
}

// ConnectionID returns the coordinator's connection UUID.
func (c *Coordinator) ConnectionID() string {
	return c.connID
}

// Environment returns the coordinator's environment.
func (c *Coordinator) Environment() timing.Environment {
	return c.env
}

// CoordinateHandshake drives the state machine from INITIALIZING to
// READY_FOR_MESSAGES using the environment's timing profile, returning
// true on success. The whole sequence is bounded by the profile's
// handshake timeout.
//
// Cancellation or timeout mid-sequence is a handshake failure, not a
// silent abort: the machine is driven to ERROR before false is
// returned. The machine is never left mid-sequence.
func (c *Coordinator) CoordinateHandshake(ctx context.Context) bool {
	c.mu.Lock()
	c.startedAt = time.Now()
	c.completedAt = time.Time{}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.profile.HandshakeTimeout)
	defer cancel()

	c.transition(connstate.HandshakePending, "")

	if err := c.wait(ctx, c.profile.HandshakeDelay); err != nil {
		c.resolveFailure(err, "handshake delay")
		return false
	}

	c.transition(connstate.Connected, "")

	// Cloud-scheduled runtimes need extra time after the transport
	// reports connected before the socket is dependable.
	if c.env.IsCloudScheduled() {
		if err := c.wait(ctx, c.profile.StabilizationDelay); err != nil {
			c.resolveFailure(err, "stabilization delay")
			return false
		}
	}

	c.transition(connstate.ReadyForMessages, "")

	c.mu.Lock()
	c.completedAt = time.Now()
	start, end := c.startedAt, c.completedAt
	c.mu.Unlock()

	c.logger.Info("connection ready for messages",
		"conn_id", c.connID,
		"environment", string(c.env),
		"duration", end.Sub(start))

	if c.detector != nil {
		c.detector.DetectTimingViolation(start, end, c.profile.HandshakeTimeout)
	}
	return true
}

// IsReadyForMessages reports whether the connection is safe for
// application messages. This is the gate dispatchers must honor.
func (c *Coordinator) IsReadyForMessages() bool {
	return c.machine.IsReadyForMessages()
}

// CurrentState returns the machine's current state.
func (c *Coordinator) CurrentState() connstate.State {
	return c.machine.Current()
}

// StateHistory returns a copy of the transition log in append order.
func (c *Coordinator) StateHistory() []connstate.Transition {
	return c.machine.History()
}

// HandshakeDuration returns the time coordination took. While
// coordination is in progress it returns the elapsed time so far. The
// second return is false if coordination never started.
func (c *Coordinator) HandshakeDuration() (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.startedAt.IsZero() {
		return 0, false
	}
	if !c.completedAt.IsZero() {
		return c.completedAt.Sub(c.startedAt), true
	}
	return time.Since(c.startedAt), true
}

// ValidateStateSequence audits the transition log against the allowed
// edge set. See connstate.Machine.ValidateSequence.
func (c *Coordinator) ValidateStateSequence() bool {
	return c.machine.ValidateSequence()
}

// ForceErrorState drives the machine to ERROR from any state,
// bypassing the audited edge set. Administrative and test escape only;
// the reason is logged.
func (c *Coordinator) ForceErrorState(reason string) {
	c.logger.Warn("forcing error state",
		"conn_id", c.connID,
		"environment", string(c.env),
		"reason", reason)
	c.transition(connstate.StateError, reason)
}

// Reset reinitializes the coordinator for reuse. For tests only.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.startedAt = time.Time{}
	c.completedAt = time.Time{}
	c.mu.Unlock()
	c.machine.Reset()
}

// Summary is a point-in-time view of one coordination.
type Summary struct {
	// ConnectionID is the coordinator's connection UUID.
	ConnectionID string

	// Environment the coordinator runs in.
	Environment timing.Environment

	// State is the machine's current state.
	State connstate.State

	// Ready reports whether the readiness gate is open.
	Ready bool

	// StartedAt is when coordination began (zero if never started).
	StartedAt time.Time

	// Duration is the handshake duration (elapsed-so-far while in
	// progress, zero if never started).
	Duration time.Duration

	// Transitions is the transition log length.
	Transitions int
}

// CoordinationSummary returns a point-in-time summary for
// observability.
func (c *Coordinator) CoordinationSummary() Summary {
	d, _ := c.HandshakeDuration()

	c.mu.RLock()
	startedAt := c.startedAt
	c.mu.RUnlock()

	return Summary{
		ConnectionID: c.connID,
		Environment:  c.env,
		State:        c.machine.Current(),
		Ready:        c.machine.IsReadyForMessages(),
		StartedAt:    startedAt,
		Duration:     d,
		Transitions:  len(c.machine.History()),
	}
}

// transition advances the machine and emits the operational log line
// and diagnostic event that are the coordinator's only side effects.
func (c *Coordinator) transition(to connstate.State, reason string) {
	t := c.machine.Transition(to)

	elapsed := c.elapsed(t.At)
	c.logger.Info("connection state transition",
		"conn_id", c.connID,
		"environment", string(c.env),
		"from", t.From.String(),
		"to", t.To.String(),
		"elapsed", elapsed)

	c.diag.Log(diaglog.Event{
		Timestamp:    t.At,
		ConnectionID: c.connID,
		Environment:  string(c.env),
		Category:     diaglog.CategoryState,
		StateChange: &diaglog.StateChangeEvent{
			OldState: t.From.String(),
			NewState: t.To.String(),
			Elapsed:  elapsed,
			Reason:   reason,
		},
	})
}

// resolveFailure drives the machine to ERROR and records the failure.
// Called for any cancellation or timeout mid-sequence.
func (c *Coordinator) resolveFailure(err error, phase string) {
	c.logger.Warn("handshake failed",
		"conn_id", c.connID,
		"environment", string(c.env),
		"phase", phase,
		"error", err)

	c.transition(connstate.StateError, phase+": "+err.Error())

	c.diag.Log(diaglog.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Environment:  string(c.env),
		Category:     diaglog.CategoryError,
		Error: &diaglog.ErrorEventData{
			Message: err.Error(),
			Context: phase,
			State:   connstate.StateError.String(),
		},
	})
}

// wait suspends for d or until ctx is done, whichever comes first.
func (c *Coordinator) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still honor cancellation that races the zero-length wait.
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// elapsed returns the time between coordination start and at.
// Zero if coordination never started.
func (c *Coordinator) elapsed(at time.Time) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.startedAt.IsZero() {
		return 0
	}
	return at.Sub(c.startedAt)
}
