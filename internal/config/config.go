// Package config loads service settings from TASKNEST_* environment variables.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr string `envconfig:"GRPC_ADDR" default:":9090"`

	PGDSN         string `envconfig:"PG_DSN"`
	MongoURI      string `envconfig:"MONGO_URI"`
	MongoDatabase string `envconfig:"MONGO_DB" default:"tasknest"`

	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"1h"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"336h"`
	ListCacheTTL    time.Duration `envconfig:"LIST_CACHE_TTL" default:"30s"`

	RateBurst  int `envconfig:"RATE_BURST" default:"20"`
	RatePerSec int `envconfig:"RATE_PER_SEC" default:"10"`
}

// Load reads the environment with the TASKNEST prefix.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("tasknest", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
