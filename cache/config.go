package cache

import (
	"time"

	"github.com/percussion/tenantd/kit/platform/errors"
)

// Defaults for Config.
const (
	DefaultTTL              = 10 * time.Minute
	DefaultNegativeTTL      = time.Minute
	DefaultScavengeInterval = time.Minute
	DefaultStaleGrace       = 2 * time.Minute
)

// Config controls how long authorizations stay cached.
type Config struct {
	// TTL is how long an allowed authorization is served without asking
	// the authorizer again.
	TTL time.Duration `toml:"ttl"`
	// NegativeTTL is how long a denial is cached. Zero disables negative caching.
	NegativeTTL time.Duration `toml:"negative-ttl"`
	// ScavengeInterval is the period of the background sweep.
	ScavengeInterval time.Duration `toml:"scavenge-interval"`
	// StaleGrace is how long past expiry an allowed authorization may still
	// be served while the authorizer is failing.
	StaleGrace time.Duration `toml:"stale-grace"`
}

// NewConfig returns a Config with the defaults applied.
func NewConfig() Config {
	return Config{
		TTL:              DefaultTTL,
		NegativeTTL:      DefaultNegativeTTL,
		ScavengeInterval: DefaultScavengeInterval,
		StaleGrace:       DefaultStaleGrace,
	}
}

// Validate returns an EInvalid error describing the first bad setting.
func (c Config) Validate() error {
	switch {
	case c.TTL <= 0:
		return &errors.Error{Code: errors.EInvalid, Msg: "cache ttl must be positive"}
	case c.NegativeTTL < 0:
		return &errors.Error{Code: errors.EInvalid, Msg: "cache negative ttl must not be negative"}
	case c.ScavengeInterval <= 0:
		return &errors.Error{Code: errors.EInvalid, Msg: "cache scavenge interval must be positive"}
	case c.StaleGrace < 0:
		return &errors.Error{Code: errors.EInvalid, Msg: "cache stale grace must not be negative"}
	}
	return nil
}
