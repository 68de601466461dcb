package retry

import "time"

// Config holds the retry executor configuration.
type Config struct {
	Enabled      bool          `env:"PUSH_RETRY_ENABLED" envDefault:"true"`
	MaxAttempts  int           `env:"PUSH_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	InitialDelay time.Duration `env:"PUSH_RETRY_INITIAL_DELAY" envDefault:"1s"`
	MaxDelay     time.Duration `env:"PUSH_RETRY_MAX_DELAY" envDefault:"30s"`
	Multiplier   float64       `env:"PUSH_RETRY_MULTIPLIER" envDefault:"2"`
	Jitter       bool          `env:"PUSH_RETRY_JITTER" envDefault:"true"`
}

// Validate checks the configuration for values the executor cannot operate with.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.InitialDelay < 0 || c.MaxDelay < 0 {
		return ErrInvalidDelay
	}
	if c.Multiplier != 0 && c.Multiplier < 1 {
		return ErrInvalidMultiplier
	}
	return nil
}

// backoff derives the default strategy from the configured bounds.
func (c Config) backoff() Strategy {
	return Exponential{
		Initial:    c.InitialDelay,
		Max:        c.MaxDelay,
		Multiplier: c.Multiplier,
		Jitter:     c.Jitter,
	}
}
