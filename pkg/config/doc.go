// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Each struct type is parsed once per process and cached by value, so the
// package-level configs (queue, rate limit, retry, providers) can all call
// Load independently without re-reading the environment.
//
// Usage:
//
//	type QueueConfig struct {
//		Concurrency int `env:"PUSH_QUEUE_CONCURRENCY" envDefault:"5"`
//	}
//
//	var cfg QueueConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// ResetCache exists for tests that mutate the environment between loads.
package config
