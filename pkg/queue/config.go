package queue

import "time"

// Config holds the queue manager configuration.
type Config struct {
	Enabled      bool          `env:"PUSH_QUEUE_ENABLED" envDefault:"true"`
	Concurrency  int           `env:"PUSH_QUEUE_CONCURRENCY" envDefault:"5"`
	PollInterval time.Duration `env:"PUSH_QUEUE_POLL_INTERVAL" envDefault:"100ms"`
	SendTimeout  time.Duration `env:"PUSH_QUEUE_SEND_TIMEOUT" envDefault:"1m"`
	MaxSize      int           `env:"PUSH_QUEUE_MAX_SIZE" envDefault:"0"`
	AutoStart    bool          `env:"PUSH_QUEUE_AUTO_START" envDefault:"true"`
}

// Validate checks the configuration for values the manager cannot operate with.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	return nil
}
