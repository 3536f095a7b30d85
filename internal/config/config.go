// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sub-server names
const (
	ServerObservations = "observations"
	ServerExoMAST      = "exomast"
)

// KnownServers lists the sub-servers that can be mounted
var KnownServers = []string{ServerObservations, ServerExoMAST}

// Config holds server settings
type Config struct {
	// MASTURL is the MAST archive root (e.g., https://mast.stsci.edu)
	MASTURL string

	// ExoMASTURL is the ExoMAST API root
	ExoMASTURL string

	// Timeout for upstream requests
	Timeout time.Duration

	// MaxRetries for failed upstream requests
	MaxRetries int

	// CacheTTL enables the response cache when positive
	CacheTTL time.Duration

	// CacheSize bounds the number of cached responses
	CacheSize int

	// Servers are the sub-servers to mount
	Servers []string

	// HTTPAddr serves streamable HTTP when set; stdio otherwise
	HTTPAddr string

	// RateLimit is the per-client request limit per minute in HTTP mode, 0 disables it
	RateLimit int

	// LogLevel is the minimum level logged
	LogLevel slog.Level
}

// Load reads configuration from the environment, after loading an optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from environment variables
func FromEnv() (*Config, error) {
	cfg := &Config{
		MASTURL:    "https://mast.stsci.edu",
		ExoMASTURL: "https://exo.mast.stsci.edu/api/v0.1",
		Timeout:    60 * time.Second,
		CacheSize:  256,
		Servers:    append([]string(nil), KnownServers...),
		LogLevel:   slog.LevelInfo,
	}

	if u := os.Getenv("MAST_API_URL"); u != "" {
		cfg.MASTURL = u
	}
	if u := os.Getenv("EXOMAST_API_URL"); u != "" {
		cfg.ExoMASTURL = u
	}
	for name, u := range map[string]string{"MAST_API_URL": cfg.MASTURL, "EXOMAST_API_URL": cfg.ExoMASTURL} {
		if err := validateURL(u); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	var err error
	if cfg.Timeout, err = envDuration("MAST_TIMEOUT", cfg.Timeout, false); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = envInt("MAST_MAX_RETRIES", cfg.MaxRetries, true); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = envDuration("MAST_CACHE_TTL", cfg.CacheTTL, true); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = envInt("MAST_CACHE_SIZE", cfg.CacheSize, false); err != nil {
		return nil, err
	}

	if s := os.Getenv("MAST_MCP_SERVERS"); s != "" {
		servers, err := ParseServers(s)
		if err != nil {
			return nil, fmt.Errorf("MAST_MCP_SERVERS: %w", err)
		}
		cfg.Servers = servers
	}

	cfg.HTTPAddr = os.Getenv("MAST_MCP_HTTP_ADDR")

	if cfg.RateLimit, err = envInt("MAST_MCP_RATE_LIMIT", cfg.RateLimit, true); err != nil {
		return nil, err
	}

	if l := os.Getenv("LOG_LEVEL"); l != "" {
		level, err := ParseLogLevel(l)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

// envDuration reads a positive duration, or a non-negative one when
// zeroOK is set. An unset variable keeps def.
func envDuration(name string, def time.Duration, zeroOK bool) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 || (d == 0 && !zeroOK) {
		return def, fmt.Errorf("%s: invalid duration %q", name, v)
	}
	return d, nil
}

// envInt reads a positive integer, or a non-negative one when zeroOK is
// set. An unset variable keeps def.
func envInt(name string, def int, zeroOK bool) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (n == 0 && !zeroOK) {
		return def, fmt.Errorf("%s: invalid number %q", name, v)
	}
	return n, nil
}

// ParseServers parses a comma-separated list of sub-server names
func ParseServers(s string) ([]string, error) {
	var servers []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		if !isKnownServer(name) {
			return nil, fmt.Errorf("unknown server %q (known: %s)", name, strings.Join(KnownServers, ", "))
		}
		seen[name] = true
		servers = append(servers, name)
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no servers selected")
	}
	return servers, nil
}

// ParseLogLevel parses debug, info, warn or error
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// Enabled reports whether the named sub-server is selected
func (c *Config) Enabled(server string) bool {
	for _, s := range c.Servers {
		if s == server {
			return true
		}
	}
	return false
}

func isKnownServer(name string) bool {
	for _, s := range KnownServers {
		if s == name {
			return true
		}
	}
	return false
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme in %q", s)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", s)
	}
	return nil
}
