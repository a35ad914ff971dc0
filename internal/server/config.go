package server

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port     string
	UseHttp2 bool
}

// Enabled reports whether a status port was configured.
func (c *Config) Enabled() bool {
	return c != nil && c.Port != ""
}

// LoadConfig reads STATUS_PORT. An unset port disables the status server.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:     os.Getenv("STATUS_PORT"),
		UseHttp2: os.Getenv("USE_HTTP2") == "true",
	}
	if cfg.Port == "" {
		return cfg, nil
	}

	if err := ValidatePort(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}
	return cfg, nil
}

func ValidatePort(port string) error {
	portNum, err := strconv.Atoi(port)

	if err != nil {
		return errors.New("port must be a number")
	}

	if portNum < 1 || portNum > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	return nil
}
