// Package config resolves runtime settings for the client: defaults first,
// then an optional config file, then DOCTRANS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime settings.
//
// Fields:
//   - APIBaseURL: base URL of the translation backend.
//   - PollInterval: dashboard status-poll period.
//   - DataDir: where the session database and fetched assets live.
type Config struct {
	APIBaseURL   string
	PollInterval time.Duration
	DataDir      string
}

const (
	defaultAPIBaseURL   = "http://localhost:8000"
	defaultPollInterval = 5 * time.Second
)

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".doctrans"
	}
	return filepath.Join(home, ".doctrans")
}

// Load builds a Config. With an empty cfgFile the default location
// (<data dir>/config.yaml) is tried and silently skipped when absent; an
// explicitly named file must exist.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("api.base_url", defaultAPIBaseURL)
	v.SetDefault("poll.interval", defaultPollInterval)
	v.SetDefault("data.dir", defaultDataDir())

	v.SetEnvPrefix("DOCTRANS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultDataDir())
		if err := v.ReadInConfig(); err != nil {
			// The default location is optional; only a present-but-broken
			// file is an error.
			var notFound viper.ConfigFileNotFoundError
			var pathErr *os.PathError
			if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		APIBaseURL:   v.GetString("api.base_url"),
		PollInterval: v.GetDuration("poll.interval"),
		DataDir:      v.GetString("data.dir"),
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return cfg, nil
}
