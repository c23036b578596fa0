package handshake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavelink-protocol/wavelink-go/pkg/connstate"
	"github.com/wavelink-protocol/wavelink-go/pkg/diaglog"
	"github.com/wavelink-protocol/wavelink-go/pkg/racedetect"
	"github.com/wavelink-protocol/wavelink-go/pkg/timing"
)

// recordingDiag captures diagnostic events for assertions.
type recordingDiag struct {
	mu     sync.Mutex
	events []diaglog.Event
}

func (r *recordingDiag) Log(event diaglog.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingDiag) Events() []diaglog.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]diaglog.Event, len(r.events))
	copy(out, r.events)
	return out
}

func TestCoordinateHandshakeTesting(t *testing.T) {
	c := NewCoordinator(timing.Testing)

	start := time.Now()
	ok := c.CoordinateHandshake(context.Background())
	elapsed := time.Since(start)

	require.True(t, ok)
	assert.Equal(t, connstate.ReadyForMessages, c.CurrentState())
	assert.True(t, c.IsReadyForMessages())
	assert.True(t, c.ValidateStateSequence())

	// Testing profile: 5ms handshake delay, no stabilization.
	assert.GreaterOrEqual(t, elapsed, 4*time.Millisecond)
	assert.Less(t, elapsed, 50*time.Millisecond)

	history := c.StateHistory()
	require.Len(t, history, 3)
	assert.Equal(t, connstate.HandshakePending, history[0].To)
	assert.Equal(t, connstate.Connected, history[1].To)
	assert.Equal(t, connstate.ReadyForMessages, history[2].To)
}

func TestCoordinateHandshakeStagingIncludesStabilization(t *testing.T) {
	if testing.Short() {
		t.Skip("staging timings in short mode")
	}

	c := NewCoordinator(timing.Staging)

	start := time.Now()
	ok := c.CoordinateHandshake(context.Background())
	elapsed := time.Since(start)

	require.True(t, ok)
	assert.True(t, c.IsReadyForMessages())

	// Staging profile: 100ms handshake delay plus 25ms stabilization,
	// bounded by the 500ms timeout.
	assert.GreaterOrEqual(t, elapsed, 120*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestCoordinateHandshakeUnknownEnvironmentFallsBack(t *testing.T) {
	c := NewCoordinator(timing.Environment("qa-cluster-7"))

	assert.Equal(t, timing.Development, c.Environment())
	require.True(t, c.CoordinateHandshake(context.Background()))
	assert.True(t, c.IsReadyForMessages())
}

func TestCoordinateHandshakeCancellationForcesError(t *testing.T) {
	c := NewCoordinator(timing.Development)

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(3*time.Millisecond, cancel)
	defer timer.Stop()

	ok := c.CoordinateHandshake(ctx)

	require.False(t, ok)
	assert.Equal(t, connstate.StateError, c.CurrentState())
	assert.False(t, c.IsReadyForMessages())

	// Exactly one ERROR transition, and it is the last entry.
	history := c.StateHistory()
	require.NotEmpty(t, history)
	errors := 0
	for _, tr := range history {
		if tr.To == connstate.StateError {
			errors++
		}
	}
	assert.Equal(t, 1, errors)
	assert.Equal(t, connstate.StateError, history[len(history)-1].To)
}

func TestCoordinateHandshakeTimeoutForcesError(t *testing.T) {
	c := NewCoordinator(timing.Testing, WithProfile(timing.Profile{
		Environment:      timing.Testing,
		HandshakeDelay:   20 * time.Millisecond,
		HandshakeTimeout: 5 * time.Millisecond,
	}))

	ok := c.CoordinateHandshake(context.Background())

	require.False(t, ok)
	assert.Equal(t, connstate.StateError, c.CurrentState())
}

func TestHandshakeDuration(t *testing.T) {
	c := NewCoordinator(timing.Testing)

	_, started := c.HandshakeDuration()
	assert.False(t, started)

	require.True(t, c.CoordinateHandshake(context.Background()))

	d, started := c.HandshakeDuration()
	require.True(t, started)
	assert.GreaterOrEqual(t, d, 4*time.Millisecond)
	assert.Less(t, d, 50*time.Millisecond)
}

func TestForceErrorState(t *testing.T) {
	c := NewCoordinator(timing.Testing)
	require.True(t, c.CoordinateHandshake(context.Background()))

	c.ForceErrorState("transport reset by peer")

	assert.Equal(t, connstate.StateError, c.CurrentState())
	assert.False(t, c.IsReadyForMessages())
	// READY_FOR_MESSAGES to ERROR is an allowed edge.
	assert.True(t, c.ValidateStateSequence())

	// Forcing again from ERROR is not: the audit catches it.
	c.ForceErrorState("again")
	assert.False(t, c.ValidateStateSequence())
}

func TestResetAllowsRecoordination(t *testing.T) {
	c := NewCoordinator(timing.Testing)
	require.True(t, c.CoordinateHandshake(context.Background()))
	c.ForceErrorState("test")

	c.Reset()

	assert.Equal(t, connstate.Initializing, c.CurrentState())
	assert.Empty(t, c.StateHistory())
	_, started := c.HandshakeDuration()
	assert.False(t, started)

	require.True(t, c.CoordinateHandshake(context.Background()))
	assert.True(t, c.IsReadyForMessages())
	assert.True(t, c.ValidateStateSequence())
}

func TestCoordinationSummary(t *testing.T) {
	c := NewCoordinator(timing.Testing)
	require.True(t, c.CoordinateHandshake(context.Background()))

	s := c.CoordinationSummary()
	assert.Equal(t, c.ConnectionID(), s.ConnectionID)
	assert.Equal(t, timing.Testing, s.Environment)
	assert.Equal(t, connstate.ReadyForMessages, s.State)
	assert.True(t, s.Ready)
	assert.False(t, s.StartedAt.IsZero())
	assert.Greater(t, s.Duration, time.Duration(0))
	assert.Equal(t, 3, s.Transitions)
}

func TestCoordinatorEmitsDiagnosticEvents(t *testing.T) {
	diag := &recordingDiag{}
	c := NewCoordinator(timing.Testing, WithDiagLogger(diag))

	require.True(t, c.CoordinateHandshake(context.Background()))

	events := diag.Events()
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, c.ConnectionID(), ev.ConnectionID)
		assert.Equal(t, string(timing.Testing), ev.Environment)
		assert.Equal(t, diaglog.CategoryState, ev.Category)
		require.NotNil(t, ev.StateChange)
	}
	assert.Equal(t, connstate.ReadyForMessages.String(), events[2].StateChange.NewState)
}

func TestCoordinatorFailureEmitsErrorEvent(t *testing.T) {
	diag := &recordingDiag{}
	c := NewCoordinator(timing.Development, WithDiagLogger(diag))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, c.CoordinateHandshake(ctx))

	events := diag.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, diaglog.CategoryError, last.Category)
	require.NotNil(t, last.Error)
	assert.Equal(t, connstate.StateError.String(), last.Error.State)
}

func TestCoordinatorCleanRunRecordsNoPatterns(t *testing.T) {
	det := racedetect.NewDetector(timing.Testing)
	c := NewCoordinator(timing.Testing, WithDetector(det))

	require.True(t, c.CoordinateHandshake(context.Background()))

	assert.Empty(t, det.Patterns(racedetect.Filter{}))
}

func TestCoordinatorUniqueConnectionIDs(t *testing.T) {
	a := NewCoordinator(timing.Testing)
	b := NewCoordinator(timing.Testing)
	assert.NotEmpty(t, a.ConnectionID())
	assert.NotEqual(t, a.ConnectionID(), b.ConnectionID())
}
