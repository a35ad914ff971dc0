package es

import (
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

type ClientConfig struct {
	Addresses     []string
	IndexName     string
	Username      string
	Password      string
	FlushInterval time.Duration
}

func newClient(config ClientConfig) (*elasticsearch.TypedClient, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
	}

	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	return elasticsearch.NewTypedClient(cfg)
}
