package decoder

import (
	"github.com/lanikai/avconsumer/internal/bitstream"
)

// CacheState is the injection state of a ConfigCache.
type CacheState int

const (
	NoConfig CacheState = iota
	ConfigPending
	ConfigInjected
)

func (s CacheState) String() string {
	switch s {
	case NoConfig:
		return "no-config"
	case ConfigPending:
		return "config-pending"
	case ConfigInjected:
		return "config-injected"
	default:
		return "unknown"
	}
}

// ConfigCache holds the most recent SPS/PPS and prepends it to the first
// access unit submitted after it arrives. It is not safe for concurrent use;
// Session serializes access.
type ConfigCache struct {
	state  CacheState
	config bitstream.ConfigRecord
}

func (c *ConfigCache) State() CacheState {
	return c.state
}

// Config returns the cached configuration, or nil.
func (c *ConfigCache) Config() bitstream.ConfigRecord {
	return c.config
}

// Store replaces the cached configuration and arms injection. Records
// returned by earlier calls to Config are left untouched.
func (c *ConfigCache) Store(rec bitstream.ConfigRecord) {
	c.config = append(bitstream.ConfigRecord(nil), rec...)
	c.state = ConfigPending
}

// Prepare returns the bytes to submit for unit. While a configuration is
// pending it returns a new slice holding the configuration followed by unit;
// otherwise unit itself.
func (c *ConfigCache) Prepare(unit bitstream.AccessUnit) bitstream.AccessUnit {
	if c.state != ConfigPending {
		return unit
	}
	out := make(bitstream.AccessUnit, 0, len(c.config)+len(unit))
	out = append(out, c.config...)
	out = append(out, unit...)
	c.state = ConfigInjected
	return out
}

// Reset forgets the cached configuration.
func (c *ConfigCache) Reset() {
	c.config = nil
	c.state = NoConfig
}
