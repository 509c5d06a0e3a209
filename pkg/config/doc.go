// Package config loads environment-based configuration into tagged structs.
//
// Herald components each declare their own Config struct with caarlos0/env
// tags (see pg.Config, redis.Config, queue.Config); this package provides
// the shared loading machinery: optional dotenv files, one-time parsing per
// type, and a process-wide cache so every component sees the same values.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
// The delivery engine itself never reads the environment; Config structs
// are the contract between the bootstrap and the engine.
package config
