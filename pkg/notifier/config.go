package notifier

import (
	"errors"
	"time"
)

const (
	DefaultBufferCapacity = 64
	DefaultWriteTimeout   = 10 * time.Second
)

// Config holds the registry-wide notifier settings.
type Config struct {
	BufferCapacity int           `env:"NOTIFIER_BUFFER_CAPACITY" envDefault:"64" yaml:"buffer_capacity"`     // BufferCapacity is the per-client queue bound.
	Backpressure   Policy        `env:"NOTIFIER_BACKPRESSURE" envDefault:"drop_newest" yaml:"backpressure"`  // Backpressure applies when a client queue is full.
	IdleTimeout    time.Duration `env:"NOTIFIER_IDLE_TIMEOUT" yaml:"idle_timeout"`                           // IdleTimeout closes channels whose peer stays silent; zero disables it.
	PingInterval   time.Duration `env:"NOTIFIER_PING_INTERVAL" yaml:"ping_interval"`                         // PingInterval between keepalive probes; zero derives it from IdleTimeout.
	WriteTimeout   time.Duration `env:"NOTIFIER_WRITE_TIMEOUT" envDefault:"10s" yaml:"write_timeout"`        // WriteTimeout bounds a single frame write.
	AllowedOrigins []string      `env:"NOTIFIER_ALLOWED_ORIGINS" envSeparator:"," yaml:"allowed_origins"`    // AllowedOrigins for the upgrade; "*" allows any, empty enforces same origin.
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		BufferCapacity: DefaultBufferCapacity,
		Backpressure:   DropNewest,
		WriteTimeout:   DefaultWriteTimeout,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.BufferCapacity <= 0 {
		errs = append(errs, ErrInvalidCapacity)
	}
	if c.Backpressure > BlockProducer {
		errs = append(errs, ErrInvalidPolicy)
	}
	if c.IdleTimeout < 0 || c.PingInterval < 0 || c.WriteTimeout < 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	return errors.Join(errs...)
}

// pingInterval returns the keepalive period. Without an explicit value it is
// derived from the idle timeout so that a healthy peer always answers in time.
func (c Config) pingInterval() time.Duration {
	if c.PingInterval > 0 {
		return c.PingInterval
	}
	if c.IdleTimeout > 0 {
		return c.IdleTimeout * 9 / 10
	}
	return 0
}

func (c Config) writeTimeout() time.Duration {
	if c.WriteTimeout > 0 {
		return c.WriteTimeout
	}
	return DefaultWriteTimeout
}
