package main

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "MICROWIN"

type Config struct {
	ServerURL string `envconfig:"SERVER" default:"http://localhost:3100"`
	APIKey    string `envconfig:"API_KEY" required:"true"`
}

func NewConfig() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process(envPrefix, c); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	return c, nil
}
