// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds server and client configuration.
type Config struct {
	Port        int    // PORT
	StaticDir   string // STATIC_DIR, empty disables static serving
	InboxDir    string // TIMERLIST_INBOX, empty disables the inbox watcher
	HistorySize int    // TIMERLIST_HISTORY
	ServerURL   string // TIMERLIST_URL, used by the CLI client commands
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Port:        8420,
		HistorySize: 100,
		ServerURL:   "http://localhost:8420",
	}
}

// Load reads configuration from environment variables on top of Default.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("PORT must be an integer, got %q", v)
		}
		cfg.Port = n
	}
	if v := getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	if v := getenv("TIMERLIST_INBOX"); v != "" {
		cfg.InboxDir = v
	}
	if v := getenv("TIMERLIST_HISTORY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("TIMERLIST_HISTORY must be an integer, got %q", v)
		}
		cfg.HistorySize = n
	}
	if v := getenv("TIMERLIST_URL"); v != "" {
		cfg.ServerURL = v
	}

	return cfg, cfg.Validate()
}

// Validate checks value ranges. Call it again after applying overrides
// from other sources such as command-line flags.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history size must be a positive integer, got %d", c.HistorySize)
	}
	return nil
}

// Addr returns the listen address for Port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
