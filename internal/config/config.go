package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Schema struct {
		TTL string `yaml:"ttl"`
	} `yaml:"schema"`
}

// DefaultSQLitePath is used when neither Postgres nor an SQLite path is configured.
const DefaultSQLitePath = "polls.db"

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// UsePostgres reports whether the Postgres store is configured.
func (c Config) UsePostgres() bool {
	return c.Postgres.URL != ""
}

// SQLiteDSN returns the SQLite data source with foreign keys switched on.
func (c Config) SQLiteDSN() string {
	path := c.SQLite.Path
	if path == "" {
		path = DefaultSQLitePath
	}
	return "file:" + path + "?_pragma=foreign_keys(1)"
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
