package config

import "time"

type Config struct {
	StatusCheckInterval time.Duration
}

func NewConfig() *Config {
	return &Config{
		StatusCheckInterval: 30 * time.Second,
	}
}
