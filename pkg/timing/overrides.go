package timing

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProfileOverride holds optional per-environment overrides loaded from a
// YAML file. Zero-valued fields leave the static table value in place.
type ProfileOverride struct {
	HandshakeDelay     time.Duration
	StabilizationDelay time.Duration
	MessageDelay       time.Duration
	HandshakeTimeout   time.Duration
}

// rawOverride is the YAML representation; durations are Go duration
// strings ("150ms", "1s").
type rawOverride struct {
	HandshakeDelay     string `yaml:"handshake_delay"`
	StabilizationDelay string `yaml:"stabilization_delay"`
	MessageDelay       string `yaml:"message_delay"`
	HandshakeTimeout   string `yaml:"handshake_timeout"`
}

// Apply returns p with the override's non-zero fields applied.
func (o ProfileOverride) Apply(p Profile) Profile {
	if o.HandshakeDelay > 0 {
		p.HandshakeDelay = o.HandshakeDelay
	}
	if o.StabilizationDelay > 0 {
		p.StabilizationDelay = o.StabilizationDelay
	}
	if o.MessageDelay > 0 {
		p.MessageDelay = o.MessageDelay
	}
	if o.HandshakeTimeout > 0 {
		p.HandshakeTimeout = o.HandshakeTimeout
	}
	return p
}

// UnmarshalYAML parses duration strings into time.Duration fields.
func (o *ProfileOverride) UnmarshalYAML(value *yaml.Node) error {
	var raw rawOverride
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parse := func(s string, dst *time.Duration) error {
		if s == "" {
			return nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*dst = d
		return nil
	}

	if err := parse(raw.HandshakeDelay, &o.HandshakeDelay); err != nil {
		return err
	}
	if err := parse(raw.StabilizationDelay, &o.StabilizationDelay); err != nil {
		return err
	}
	if err := parse(raw.MessageDelay, &o.MessageDelay); err != nil {
		return err
	}
	return parse(raw.HandshakeTimeout, &o.HandshakeTimeout)
}

// LoadOverrides reads per-environment profile overrides from a YAML file
// and returns the resulting profile set. A missing file is not an error;
// the static table is returned unchanged.
func LoadOverrides(path string) (map[Environment]Profile, error) {
	result := make(map[Environment]Profile, len(profiles))
	for env, p := range profiles {
		result[env] = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read profile overrides: %w", err)
	}

	var overrides map[Environment]ProfileOverride
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse profile overrides: %w", err)
	}

	for env, o := range overrides {
		env = env.Normalize()
		result[env] = o.Apply(result[env])
	}

	return result, nil
}
