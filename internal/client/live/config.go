package live

import (
	"fmt"
	"time"

	"mychess/internal/core"
)

const (
	DefaultBaseDelay         = 1000 * time.Millisecond
	DefaultMaxDelay          = 15000 * time.Millisecond
	DefaultMaxAttempts       = 15
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultStaleAfter        = 20 * time.Second
	DefaultDialTimeout       = 5 * time.Second
)

type Config struct {
	BaseDelay   time.Duration `validate:"gt=0"`
	MaxDelay    time.Duration `validate:"gtefield=BaseDelay"`
	MaxAttempts int           `validate:"min=1,max=1000"`
	// StopOnCeiling stops retrying once MaxAttempts is reached; otherwise
	// retries continue at MaxDelay after the failure notice
	StopOnCeiling     bool
	HeartbeatInterval time.Duration `validate:"gt=0"`
	StaleAfter        time.Duration `validate:"gtfield=HeartbeatInterval"`
	DialTimeout       time.Duration `validate:"gt=0"`
}

func DefaultConfig() Config {
	return Config{
		BaseDelay:         DefaultBaseDelay,
		MaxDelay:          DefaultMaxDelay,
		MaxAttempts:       DefaultMaxAttempts,
		StopOnCeiling:     true,
		HeartbeatInterval: DefaultHeartbeatInterval,
		StaleAfter:        DefaultStaleAfter,
		DialTimeout:       DefaultDialTimeout,
	}
}

func (c Config) Validate() error {
	if err := core.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid live config: %w", err)
	}
	return nil
}

// Delay is the wait before retry number attempt (zero based)
func (c Config) Delay(attempt int) time.Duration {
	d := c.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	return min(d, c.MaxDelay)
}
