package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/trainsync/trainsync/cmd/trainsync/internal/client"
)

const (
	// EnvPrefix prefixes every environment variable the CLI reads.
	EnvPrefix = "TRAINSYNC_"

	// FileName is the optional settings file inside the home directory.
	FileName = "config.yaml"

	// DefaultAPIURL matches the development API server.
	DefaultAPIURL = "http://localhost:5000"
)

// Settings are the user-tunable values. Precedence, lowest first: defaults,
// config.yaml, TRAINSYNC_* environment, command-line flags.
type Settings struct {
	APIURL         string        `yaml:"api_url" env:"API_URL, overwrite"`
	Store          string        `yaml:"store" env:"STORE, overwrite"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL, overwrite"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT, overwrite"`
	NonInteractive bool          `yaml:"non_interactive" env:"NON_INTERACTIVE, overwrite"`
	// Token is an ephemeral credential that bypasses the store.
	Token string `yaml:"-" env:"TOKEN, overwrite"`
	// Home holds config.yaml and the credential store.
	Home string `yaml:"-" env:"HOME, overwrite"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		APIURL:   DefaultAPIURL,
		Store:    client.StoreFile,
		LogLevel: "warn",
	}
}

// DefaultHome is ~/.trainsync.
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".trainsync"), nil
}

// Load resolves settings from defaults, the settings file and the
// environment read through lookuper (envconfig.OsLookuper() in production).
// The result is not validated; flags may still override it.
func Load(ctx context.Context, lookuper envconfig.Lookuper) (Settings, error) {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	prefixed := envconfig.PrefixLookuper(EnvPrefix, lookuper)

	s := Defaults()

	// Home decides where the settings file lives, so it is resolved first.
	var pre struct {
		Home string `env:"HOME"`
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &pre, Lookuper: prefixed}); err != nil {
		return s, fmt.Errorf("read environment: %w", err)
	}
	s.Home = pre.Home
	if s.Home == "" {
		home, err := DefaultHome()
		if err != nil {
			return s, err
		}
		s.Home = home
	}

	if err := s.readFile(filepath.Join(s.Home, FileName)); err != nil {
		return s, err
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &s, Lookuper: prefixed}); err != nil {
		return s, fmt.Errorf("read environment: %w", err)
	}

	return s, nil
}

func (s *Settings) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate checks values that would otherwise fail later and obscurely.
func (s Settings) Validate() error {
	if !strings.HasPrefix(s.APIURL, "http://") && !strings.HasPrefix(s.APIURL, "https://") {
		return fmt.Errorf("api url must start with http:// or https://, got %q", s.APIURL)
	}
	switch s.Store {
	case client.StoreFile, client.StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", s.Store, client.StoreFile, client.StoreSQLite)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", s.Timeout)
	}
	return nil
}
