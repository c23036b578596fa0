package timing

import "time"

// Environment identifies a deployment environment.
type Environment string

// Known environments.
const (
	// Testing is the automated-test environment (minimal delays).
	Testing Environment = "testing"

	// Development is a local development machine.
	Development Environment = "development"

	// Staging is a container-scheduled pre-production runtime.
	Staging Environment = "staging"

	// Production is a container-scheduled production runtime.
	Production Environment = "production"
)

// Normalize maps unknown environment names to Development.
// Known names are returned unchanged.
func (e Environment) Normalize() Environment {
	switch e {
	case Testing, Development, Staging, Production:
		return e
	default:
		return Development
	}
}

// IsCloudScheduled reports whether the environment runs on a
// container-scheduled cloud runtime with variable startup latency.
// These environments need an extra stabilization wait after the
// transport reports connected.
func (e Environment) IsCloudScheduled() bool {
	switch e.Normalize() {
	case Staging, Production:
		return true
	default:
		return false
	}
}

// Profile bundles the timing constants calibrated to one environment.
type Profile struct {
	// Environment the profile was built for.
	Environment Environment

	// HandshakeDelay is the wait between the transport accept and the
	// connection being considered established.
	HandshakeDelay time.Duration

	// StabilizationDelay is the additional wait after establishment
	// before the connection accepts application messages. Only
	// cloud-scheduled environments need it.
	StabilizationDelay time.Duration

	// MessageDelay is the pacing hint for dispatchers delivering
	// queued messages to a freshly ready connection.
	MessageDelay time.Duration

	// HandshakeTimeout bounds the whole coordination sequence.
	HandshakeTimeout time.Duration
}

// profiles is the static per-environment table.
var profiles = map[Environment]Profile{
	Testing: {
		Environment:      Testing,
		HandshakeDelay:   5 * time.Millisecond,
		HandshakeTimeout: 100 * time.Millisecond,
	},
	Development: {
		Environment:      Development,
		HandshakeDelay:   10 * time.Millisecond,
		MessageDelay:     5 * time.Millisecond,
		HandshakeTimeout: 200 * time.Millisecond,
	},
	Staging: {
		Environment:        Staging,
		HandshakeDelay:     100 * time.Millisecond,
		StabilizationDelay: 25 * time.Millisecond,
		MessageDelay:       10 * time.Millisecond,
		HandshakeTimeout:   500 * time.Millisecond,
	},
	Production: {
		Environment:        Production,
		HandshakeDelay:     100 * time.Millisecond,
		StabilizationDelay: 25 * time.Millisecond,
		MessageDelay:       10 * time.Millisecond,
		HandshakeTimeout:   1 * time.Second,
	},
}

// ProfileFor returns the timing profile for the given environment.
// Unknown environments get the development profile.
func ProfileFor(env Environment) Profile {
	return profiles[env.Normalize()]
}
