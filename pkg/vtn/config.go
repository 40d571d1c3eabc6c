package vtn

import (
	"errors"

	"github.com/dmitrymomot/vtn/pkg/config"
	"github.com/dmitrymomot/vtn/pkg/httpserver"
	"github.com/dmitrymomot/vtn/pkg/jwt"
	"github.com/dmitrymomot/vtn/pkg/logger"
	"github.com/dmitrymomot/vtn/pkg/notifier"
)

// Config is the complete service configuration.
type Config struct {
	Env      string            `env:"APP_ENV" envDefault:"development" yaml:"env"`
	Service  string            `env:"APP_SERVICE" envDefault:"vtn-notifier" yaml:"service"`
	Log      logger.Config     `yaml:"log"`
	HTTP     httpserver.Config `yaml:"http"`
	Auth     jwt.Config        `yaml:"auth"`
	Notifier notifier.Config   `yaml:"notifier"`
}

// Validate checks the parts that have no usable default.
func (c Config) Validate() error {
	var errs []error
	if c.Auth.SigningKey == "" {
		errs = append(errs, jwt.ErrMissingSigningKey)
	}
	if err := c.Notifier.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadConfig reads the environment and, when file is not empty, a YAML file
// underneath it.
func LoadConfig(file string, opts ...config.Option) (Config, error) {
	var cfg Config
	opts = append([]config.Option{config.WithFile(file)}, opts...)
	if err := config.Load(&cfg, opts...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
