package racedetect

import "time"

// Pattern types recorded by the detector.
const (
	// PatternTimingViolation is recorded when an observed interval
	// exceeds its expected maximum duration.
	PatternTimingViolation = "timing_violation"

	// PatternPrematureMessageHandling is recorded when message
	// handling is attempted before the handshake has stabilized.
	PatternPrematureMessageHandling = "premature_message_handling"
)

// Severity classifies how serious a detected pattern is.
type Severity uint8

const (
	// SeverityWarning indicates a pattern worth watching in aggregate.
	SeverityWarning Severity = iota

	// SeverityCritical indicates a pattern that points at a bug.
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Pattern is one detected timing anomaly. Immutable after creation;
// owned by the detector's collection and removed only by explicit
// age-based eviction or reset.
type Pattern struct {
	// ID uniquely identifies the pattern (UUID).
	ID string

	// Type is the pattern type (see the Pattern* constants).
	Type string

	// Severity classifies the pattern.
	Severity Severity

	// Environment the pattern was detected in.
	Environment string

	// Details carries pattern-specific measurements.
	Details map[string]any

	// DetectedAt is when the pattern was recorded.
	DetectedAt time.Time
}

// Filter specifies conjunctive criteria for querying patterns.
// Zero-valued fields match all patterns for that criterion.
type Filter struct {
	// Since matches patterns detected at or after this time.
	Since time.Time

	// Type matches patterns of this type.
	Type string

	// Severity matches patterns of this severity.
	Severity *Severity
}

// matches returns true if the pattern meets all filter criteria.
func (f *Filter) matches(p Pattern) bool {
	if !f.Since.IsZero() && p.DetectedAt.Before(f.Since) {
		return false
	}
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if f.Severity != nil && p.Severity != *f.Severity {
		return false
	}
	return true
}
