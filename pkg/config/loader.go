package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// noDefaultTag names a struct tag no field carries, so the override pass
// only applies variables that are actually set.
const noDefaultTag = "envDefaultOverride"

var defaultEnvLoaded sync.Once

// Validator is implemented by configs that check their own invariants.
// Load calls Validate after all sources have been applied.
type Validator interface {
	Validate() error
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	file        string
	envFiles    []string
	environment map[string]string
}

// WithFile overlays a YAML file on top of the env defaults. Environment
// variables that are set still win over the file. An empty path is ignored.
func WithFile(path string) Option {
	return func(l *loader) {
		l.file = path
	}
}

// WithEnvFiles loads the given .env files instead of the default ./.env.
// Variables already present in the process environment are not overwritten.
func WithEnvFiles(paths ...string) Option {
	return func(l *loader) {
		l.envFiles = append(l.envFiles, paths...)
	}
}

// WithEnvironment parses from m instead of the process environment.
// .env files are not loaded when it is set.
func WithEnvironment(m map[string]string) Option {
	return func(l *loader) {
		l.environment = m
	}
}

// Load fills v from, in increasing precedence: envDefault tags, the YAML
// file, and environment variables.
//
//	var cfg vtn.Config
//	if err := config.Load(&cfg, config.WithFile(os.Getenv("VTN_CONFIG_FILE"))); err != nil {
//		return err
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	l := &loader{}
	for _, opt := range opts {
		opt(l)
	}

	if l.environment == nil {
		if err := l.loadEnvFiles(); err != nil {
			return err
		}
	}

	if err := env.ParseWithOptions(v, l.envOptions("")); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	if l.file != "" {
		data, err := os.ReadFile(l.file)
		if err != nil {
			return errors.Join(ErrReadingFile, err)
		}
		if err := yaml.Unmarshal(data, v); err != nil {
			return errors.Join(ErrReadingFile, fmt.Errorf("%s: %w", l.file, err))
		}
		if err := env.ParseWithOptions(v, l.envOptions(noDefaultTag)); err != nil {
			return errors.Join(ErrParsingConfig, err)
		}
	}

	if val, ok := any(v).(Validator); ok {
		if err := val.Validate(); err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
	}
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func (l *loader) envOptions(defaultTag string) env.Options {
	return env.Options{
		Environment:         l.environment,
		DefaultValueTagName: defaultTag,
	}
}

func (l *loader) loadEnvFiles() error {
	if len(l.envFiles) > 0 {
		if err := godotenv.Load(l.envFiles...); err != nil {
			return errors.Join(ErrReadingFile, err)
		}
		return nil
	}
	defaultEnvLoaded.Do(func() {
		// The default .env file is optional.
		_ = godotenv.Load()
	})
	return nil
}
