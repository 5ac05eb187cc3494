// Package config provides functionality for managing configuration options
// for the proxy server using command-line flags, a config file and
// environment variables.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `yaml:"server_address"`

	// UpstreamURL is the base URL of the commerce admin API.
	UpstreamURL string `yaml:"upstream_url"`

	// DatabaseDSN selects the Postgres catalog cache when set.
	DatabaseDSN string `yaml:"database_dsn"`

	// RedisURL selects the Redis catalog cache when set (redis:// URL or host:port).
	RedisURL string `yaml:"redis_url"`

	// CacheTTL is how long successful catalog responses are reused.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// LogLevel is passed to the logger ("debug", "info", ...).
	LogLevel string `yaml:"log_level"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`

	// Production marks session cookies as Secure.
	Production bool `yaml:"production"`

	// Config is the path to the Config file.
	Config string `yaml:"-"`
}

// NewFlagSet registers all options on a new flag set bound to o, with the
// defaults used when nothing else is configured.
func NewFlagSet(name string, o *Options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&o.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.UpstreamURL, "u", "http://localhost:3000", "commerce admin API base URL")
	fs.StringVar(&o.DatabaseDSN, "d", "", "postgres DSN for the catalog cache")
	fs.StringVar(&o.RedisURL, "r", "", "redis URL for the catalog cache")
	fs.DurationVar(&o.CacheTTL, "ttl", 60*time.Second, "catalog cache TTL")
	fs.StringVar(&o.LogLevel, "l", "info", "log level")
	fs.StringVar(&o.TLSCert, "tls-cert", "", "path to server TLS certificate")
	fs.StringVar(&o.TLSKey, "tls-key", "", "path to server TLS key")
	fs.BoolVar(&o.Production, "production", false, "mark cookies Secure")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	return fs
}

// Load resolves options from args, then the config file, then environment
// variables, each layer overriding the previous one.
func Load(args []string) (*Options, error) {
	o := &Options{}
	fs := NewFlagSet("server", o)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	if o.Config != "" {
		if _, err := os.Stat(o.Config); err == nil {
			data, err := os.ReadFile(o.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			// YAML is a superset of JSON, so config.json files parse too.
			if err := yaml.Unmarshal(data, o); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		o.Port = serverAddress
	}
	if upstream := os.Getenv("ADMIN_API_URL"); upstream != "" {
		o.UpstreamURL = upstream
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		o.DatabaseDSN = dsn
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		o.RedisURL = redisURL
	}
	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("parse CACHE_TTL: %w", err)
		}
		o.CacheTTL = d
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		o.LogLevel = level
	}
	if os.Getenv("APP_ENV") == "production" {
		o.Production = true
	}

	return o, nil
}

// Parse loads options from os.Args and exits the process on error.
func Parse() *Options {
	o, err := Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return o
}
