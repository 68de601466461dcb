package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.Mutex
	cache   = make(map[string]any)

	defaultEnvOnce sync.Once
)

// LoadEnv reads the named .env files into the process environment.
// Existing environment variables are never overwritten, so real deployment
// configuration always wins over file contents.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("%w: %v", ErrLoadingEnvFile, err)
	}
	return nil
}

// MustLoadEnv works like LoadEnv but panics on failure.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(err)
	}
}

// Load parses environment variables into v based on `env` field tags.
// The first successful parse of each struct type is cached; later calls for
// the same type return the cached copy. A default .env file is loaded once
// per process if present.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvOnce.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	key := typeKey[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cache[key] = *v
	return nil
}

// MustLoad works like Load but panics on failure. Intended for required
// configuration resolved during startup.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// ResetCache drops all cached configs. Tests use it after mutating the
// environment.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[string]any)
}

func typeKey[T any]() string {
	t := reflect.TypeFor[T]()
	if pkg := t.PkgPath(); pkg != "" {
		return pkg + "." + t.Name()
	}
	return t.String()
}
