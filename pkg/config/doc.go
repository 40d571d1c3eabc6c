// Package config loads typed configuration structs from environment
// variables and an optional YAML file.
//
// It wraps github.com/joho/godotenv, github.com/caarlos0/env/v11 and
// gopkg.in/yaml.v3. Sources apply in increasing precedence:
//
//  1. envDefault struct tags
//  2. the YAML file given with WithFile
//  3. environment variables, including those loaded from .env files
//
// Fields carry both env and yaml tags:
//
//	type Config struct {
//		BufferCapacity int `env:"NOTIFIER_BUFFER_CAPACITY" envDefault:"64" yaml:"buffer_capacity"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg, config.WithFile("vtn.yaml")); err != nil {
//		log.Fatal(err)
//	}
//
// If the struct implements Validator, Load calls Validate last and wraps a
// failure in ErrInvalidConfig. All errors can be matched with errors.Is
// against the sentinels in errors.go.
package config
