package config

import "errors"

var (
	// ErrNilPointer is returned when Load receives a nil target.
	ErrNilPointer = errors.New("config: nil target")
	// ErrParsingConfig wraps caarlos0/env failures, e.g. an unparsable duration.
	ErrParsingConfig = errors.New("config: parse environment")
	// ErrReadingFile wraps failures to read or decode a YAML or .env file.
	ErrReadingFile = errors.New("config: read file")
	// ErrInvalidConfig wraps the error returned by a Validator.
	ErrInvalidConfig = errors.New("config: invalid")
)
