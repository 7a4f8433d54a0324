// Package config loads a node's static cluster configuration from YAML.
// Cluster membership in this module is fixed at startup, not a dynamically
// reconfigurable set: a node is handed the addresses of every member once,
// at boot.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML the way it's
// written in a config file ("300ms", "1s"), not as a bare integer of
// nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Timeouts controls the randomized election and fixed heartbeat intervals.
// Zero fields fall back to raft.Config's own defaults.
type Timeouts struct {
	FollowerMin  Duration `yaml:"follower_min"`
	FollowerMax  Duration `yaml:"follower_max"`
	CandidateMin Duration `yaml:"candidate_min"`
	CandidateMax Duration `yaml:"candidate_max"`
	Heartbeat    Duration `yaml:"heartbeat"`
}

// Cluster is the on-disk shape of a node's configuration file: its own
// address, the full membership list (including itself), and tuning knobs.
type Cluster struct {
	Self        string   `yaml:"self"`
	Addrs       []string `yaml:"addrs"`
	MetricsAddr string   `yaml:"metrics_addr"`
	Timeouts    Timeouts `yaml:"timeouts"`
}

// Load reads and parses a cluster configuration file at path.
func Load(path string) (*Cluster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c Cluster
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &c, nil
}

// Validate checks that the configuration describes a cluster this node can
// actually join: a non-empty address list that includes Self exactly once.
func (c *Cluster) Validate() error {
	if c.Self == "" {
		return fmt.Errorf("self address is required")
	}
	if len(c.Addrs) == 0 {
		return fmt.Errorf("addrs must list every cluster member")
	}
	count := 0
	for _, a := range c.Addrs {
		if a == c.Self {
			count++
		}
	}
	switch count {
	case 0:
		return fmt.Errorf("self %q is not a member of addrs", c.Self)
	case 1:
		return nil
	default:
		return fmt.Errorf("self %q appears %d times in addrs", c.Self, count)
	}
}
