package ratelimit

// Config holds the rate limiter configuration.
type Config struct {
	Enabled         bool    `env:"PUSH_RATE_LIMIT_ENABLED" envDefault:"true"`
	MaxPerSecond    float64 `env:"PUSH_RATE_LIMIT_PER_SECOND" envDefault:"100"`
	MaxPerMinute    float64 `env:"PUSH_RATE_LIMIT_PER_MINUTE" envDefault:"3000"`
	AllowBurst      bool    `env:"PUSH_RATE_LIMIT_ALLOW_BURST" envDefault:"false"`
	BurstMultiplier float64 `env:"PUSH_RATE_LIMIT_BURST_MULTIPLIER" envDefault:"1.5"`
}

// Validate checks the configuration for values the limiter cannot operate with.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxPerSecond <= 0 || c.MaxPerMinute <= 0 {
		return ErrInvalidRate
	}
	if c.AllowBurst && c.BurstMultiplier != 0 && c.BurstMultiplier < 1 {
		return ErrInvalidBurstMultiplier
	}
	return nil
}
