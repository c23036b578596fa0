package racedetect

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wavelink-protocol/wavelink-go/pkg/connstate"
	"github.com/wavelink-protocol/wavelink-go/pkg/diaglog"
	"github.com/wavelink-protocol/wavelink-go/pkg/timing"
)

// Detection constants.
const (
	// RecentWindow is the lookback window for Summary's recent count.
	RecentWindow = 5 * time.Minute

	// DefaultPatternMaxAge is the recommended eviction age for
	// ClearOldPatterns.
	DefaultPatternMaxAge = 24 * time.Hour

	// progressiveStep is the per-attempt delay increment in
	// cloud-scheduled environments.
	progressiveStep = 25 * time.Millisecond
)

// Detector detects and records race-condition patterns for one
// environment. It is safe for concurrent use by many connections.
type Detector struct {
	mu sync.Mutex

	// Environment this detector observes
	env timing.Environment

	// Timing thresholds for the environment
	profile timing.Profile

	// Detected anomaly patterns, append order
	patterns []Pattern

	// Operational logger
	logger *slog.Logger

	// Diagnostic event sink
	diag diaglog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the operational logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) { d.logger = logger }
}

// WithDiagLogger sets the diagnostic event sink. Defaults to
// diaglog.NoopLogger.
func WithDiagLogger(diag diaglog.Logger) Option {
	return func(d *Detector) { d.diag = diag }
}

// NewDetector creates a detector for the given environment.
// Unknown environment names fall back to development.
func NewDetector(env timing.Environment, opts ...Option) *Detector {
	d := &Detector{
		env:     env.Normalize(),
		profile: timing.ProfileFor(env),
		logger:  slog.Default(),
		diag:    diaglog.NoopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Environment returns the environment this detector observes.
func (d *Detector) Environment() timing.Environment {
	return d.env
}

// ProgressiveDelay returns the backoff delay before retry attempt
// (zero-based). Cloud-scheduled environments grow linearly by 25ms per
// attempt; testing stays at 5ms and everything else at 10ms. The result
// is never negative and callers treat it as a minimum wait.
func (d *Detector) ProgressiveDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	switch d.env {
	case timing.Staging, timing.Production:
		return progressiveStep * time.Duration(attempt+1)
	case timing.Testing:
		return 5 * time.Millisecond
	default:
		return 10 * time.Millisecond
	}
}

// DetectTimingViolation reports whether the interval [start, end]
// exceeded expectedMax. On violation it records a timing_violation
// warning pattern with the actual, expected, and overshoot durations in
// milliseconds. Malformed input is logged and treated as no violation;
// detection never interrupts the operation it measures.
func (d *Detector) DetectTimingViolation(start, end time.Time, expectedMax time.Duration) bool {
	if start.IsZero() || end.IsZero() || end.Before(start) || expectedMax <= 0 {
		d.logger.Warn("ignoring malformed timing observation",
			"environment", string(d.env),
			"start", start,
			"end", end,
			"expected_max", expectedMax)
		return false
	}

	actual := end.Sub(start)
	if actual <= expectedMax {
		return false
	}

	overshoot := actual - expectedMax
	d.AddPattern(PatternTimingViolation, SeverityWarning, map[string]any{
		"actual_ms":       actual.Milliseconds(),
		"expected_max_ms": expectedMax.Milliseconds(),
		"overshoot_ms":    overshoot.Milliseconds(),
	})
	return true
}

// ValidateConnectionReadiness reports whether state authorizes message
// handling. Only READY_FOR_MESSAGES does. The pre-handshake states
// (INITIALIZING, HANDSHAKE_PENDING) additionally record a critical
// premature_message_handling pattern: isolated premature-access bugs
// become visible in aggregate even when the call site tolerates them.
func (d *Detector) ValidateConnectionReadiness(state connstate.State) bool {
	if state == connstate.ReadyForMessages {
		return true
	}

	if state == connstate.Initializing || state == connstate.HandshakePending {
		d.AddPattern(PatternPrematureMessageHandling, SeverityCritical, map[string]any{
			"observed_state": state.String(),
		})
	}
	return false
}

// AddPattern appends an immutable pattern stamped with the current time
// and the detector's environment. Critical patterns log at error level,
// everything else at info.
func (d *Detector) AddPattern(ptype string, severity Severity, details map[string]any) {
	p := Pattern{
		ID:          uuid.NewString(),
		Type:        ptype,
		Severity:    severity,
		Environment: string(d.env),
		Details:     details,
		DetectedAt:  time.Now(),
	}

	d.mu.Lock()
	d.patterns = append(d.patterns, p)
	d.mu.Unlock()

	attrs := []any{
		"pattern_id", p.ID,
		"pattern_type", p.Type,
		"severity", p.Severity.String(),
		"environment", p.Environment,
	}
	if severity == SeverityCritical {
		d.logger.Error("race condition pattern detected", attrs...)
	} else {
		d.logger.Info("race condition pattern detected", attrs...)
	}

	d.diag.Log(diaglog.Event{
		Timestamp:   p.DetectedAt,
		Environment: p.Environment,
		Category:    diaglog.CategoryPattern,
		Pattern: &diaglog.PatternEvent{
			PatternID: p.ID,
			Type:      p.Type,
			Severity:  p.Severity.String(),
			Details:   p.Details,
		},
	})
}

// Patterns returns the patterns matching the filter, in detection
// order. The result is a snapshot; later detector activity does not
// affect it.
func (d *Detector) Patterns(filter Filter) []Pattern {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Pattern
	for _, p := range d.patterns {
		if filter.matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Summary aggregates the current pattern collection.
type Summary struct {
	// TotalPatterns is the collection size.
	TotalPatterns int

	// CountsByType maps pattern type to occurrence count.
	CountsByType map[string]int

	// CountsBySeverity maps severity name to occurrence count.
	CountsBySeverity map[string]int

	// RecentCount is the number of patterns detected within
	// RecentWindow.
	RecentCount int

	// Environment this detector observes.
	Environment string

	// TimingThresholds is the environment's timing profile.
	TimingThresholds timing.Profile
}

// Summary returns an aggregate view of the pattern collection.
func (d *Detector) Summary() Summary {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Summary{
		TotalPatterns:    len(d.patterns),
		CountsByType:     make(map[string]int),
		CountsBySeverity: make(map[string]int),
		Environment:      string(d.env),
		TimingThresholds: d.profile,
	}

	recentCutoff := time.Now().Add(-RecentWindow)
	for _, p := range d.patterns {
		s.CountsByType[p.Type]++
		s.CountsBySeverity[p.Severity.String()]++
		if !p.DetectedAt.Before(recentCutoff) {
			s.RecentCount++
		}
	}
	return s
}

// ClearOldPatterns evicts patterns older than maxAge and returns the
// number evicted. This is the only bound on collection growth; invoke
// it periodically from an external scheduler.
func (d *Detector) ClearOldPatterns(maxAge time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	kept := d.patterns[:0]
	for _, p := range d.patterns {
		if !p.DetectedAt.Before(cutoff) {
			kept = append(kept, p)
		}
	}

	evicted := len(d.patterns) - len(kept)
	d.patterns = kept

	if evicted > 0 {
		d.logger.Info("evicted old patterns",
			"environment", string(d.env),
			"evicted", evicted,
			"max_age", maxAge)
	}
	return evicted
}

// ResetPatterns clears the collection. For tests only.
func (d *Detector) ResetPatterns() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.patterns = nil
}
