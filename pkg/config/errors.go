package config

import "errors"

var (
	// ErrNilPointer indicates Load was called with a nil destination.
	ErrNilPointer = errors.New("config destination cannot be nil")
	// ErrParsingConfig indicates the environment could not be parsed into
	// the destination struct.
	ErrParsingConfig = errors.New("failed to parse environment into config")
	// ErrLoadingEnvFile indicates a named .env file could not be read.
	ErrLoadingEnvFile = errors.New("failed to load env file")
)
