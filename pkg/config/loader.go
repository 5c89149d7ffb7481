// Package config loads typed configuration structs from the environment.
//
// Fields are declared with `env` and `envDefault` tags understood by
// github.com/caarlos0/env/v11. Before the first parse, a `.env` file in the
// working directory is loaded with github.com/joho/godotenv if present;
// variables already set in the process environment win.
//
//	type Config struct {
//		Addr string        `env:"HTTP_ADDR" envDefault:":8080"`
//		TTL  time.Duration `env:"CACHE_TTL" envDefault:"5m"`
//	}
//
//	cfg, err := config.Load[Config]()
//
// Components own their Config structs (mongo.Config, redis.Config,
// httpserver.Config), so a process only parses the sections it wires.
package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
	// ErrLoadingEnvFile is returned when an explicitly requested .env file cannot be read.
	ErrLoadingEnvFile = errors.New("failed to load env file")
)

var defaultEnvLoaded sync.Once

// Option tweaks how a single Load call parses the environment.
type Option func(*env.Options)

// WithPrefix prepends prefix to every variable name of the struct.
func WithPrefix(prefix string) Option {
	return func(o *env.Options) { o.Prefix = prefix }
}

// WithEnvironment parses from the given map instead of the process environment.
// Intended for tests.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) { o.Environment = vars }
}

// Load parses the environment into a new T.
func Load[T any](opts ...Option) (T, error) {
	defaultEnvLoaded.Do(func() {
		// A missing .env file is the normal case outside local development.
		_ = godotenv.Load()
	})

	var options env.Options
	for _, opt := range opts {
		opt(&options)
	}

	var cfg T
	if err := env.ParseWithOptions(&cfg, options); err != nil {
		var zero T
		return zero, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// MustLoad works like Load but panics on failure.
// Use it for sections the process cannot start without.
func MustLoad[T any](opts ...Option) T {
	cfg, err := Load[T](opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
	return cfg
}

// LoadEnvFiles loads the given .env files into the process environment.
// Unlike the implicit default file, a missing explicit file is an error.
func LoadEnvFiles(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}
