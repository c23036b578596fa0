package handshake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wavelink-protocol/wavelink-go/pkg/diaglog"
	"github.com/wavelink-protocol/wavelink-go/pkg/racedetect"
	"github.com/wavelink-protocol/wavelink-go/pkg/timing"
)

// ErrRetriesExhausted is returned by Supervisor.Run when every attempt
// failed.
var ErrRetriesExhausted = errors.New("handshake retries exhausted")

// Supervisor retries failed handshakes with the detector's progressive
// delay between attempts. A failed coordinator terminates in ERROR and
// is never reused; each attempt gets a fresh one.
type Supervisor struct {
	env      timing.Environment
	detector *racedetect.Detector
	logger   *slog.Logger
	diag     diaglog.Logger
	opts     []Option

	// OnAttempt, if set, is called before each attempt with the
	// attempt number (0-based) and the delay that preceded it.
	OnAttempt func(attempt int, delay time.Duration)

	// OnReady, if set, is called once with the coordinator that
	// reached READY_FOR_MESSAGES.
	OnReady func(c *Coordinator)
}

// NewSupervisor creates a supervisor producing coordinators for env.
// The detector is shared across attempts so patterns accumulate per
// environment; opts are applied to every coordinator it creates.
func NewSupervisor(env timing.Environment, detector *racedetect.Detector, opts ...Option) *Supervisor {
	return &Supervisor{
		env:      env.Normalize(),
		detector: detector,
		logger:   slog.Default(),
		diag:     diaglog.NoopLogger{},
		opts:     opts,
	}
}

// SetLogger sets the supervisor's operational logger.
func (s *Supervisor) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetDiagLogger sets the supervisor's diagnostic event sink.
func (s *Supervisor) SetDiagLogger(diag diaglog.Logger) {
	if diag != nil {
		s.diag = diag
	}
}

// Run attempts coordination up to maxAttempts times, waiting the
// detector's progressive delay between failures. It returns the
// coordinator that reached READY_FOR_MESSAGES, or ErrRetriesExhausted
// once every attempt failed, or ctx.Err() if cancelled between
// attempts.
func (s *Supervisor) Run(ctx context.Context, maxAttempts int) (*Coordinator, error) {
	if maxAttempts < 1 {
		return nil, fmt.Errorf("handshake: maxAttempts must be at least 1, got %d", maxAttempts)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var delay time.Duration
		if attempt > 0 {
			delay = s.delayFor(attempt - 1)
			s.logger.Info("retrying handshake",
				"environment", string(s.env),
				"attempt", attempt,
				"delay", delay)
			if err := s.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if s.OnAttempt != nil {
			s.OnAttempt(attempt, delay)
		}

		opts := append([]Option{
			WithLogger(s.logger),
			WithDiagLogger(s.diag),
			WithDetector(s.detector),
		}, s.opts...)
		c := NewCoordinator(s.env, opts...)

		if c.CoordinateHandshake(ctx) {
			if s.OnReady != nil {
				s.OnReady(c)
			}
			return c, nil
		}

		s.logger.Warn("handshake attempt failed",
			"environment", string(s.env),
			"conn_id", c.ConnectionID(),
			"attempt", attempt)
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, maxAttempts)
}

func (s *Supervisor) delayFor(attempt int) time.Duration {
	if s.detector != nil {
		return s.detector.ProgressiveDelay(attempt)
	}
	return racedetect.NewDetector(s.env).ProgressiveDelay(attempt)
}

func (s *Supervisor) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
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
