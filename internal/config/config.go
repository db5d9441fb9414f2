// Package config loads client settings from an optional .env file and CHAT_*
// environment variables.
package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the client.
type Config struct {
	BackendURL     string        `mapstructure:"backend_url"`
	PushURL        string        `mapstructure:"push_url"`
	Token          string        `mapstructure:"token"`
	Port           string        `mapstructure:"port"`
	APIToken       string        `mapstructure:"api_token"`
	DBDSN          string        `mapstructure:"db_dsn"`
	AMQPURL        string        `mapstructure:"amqp_url"`
	AMQPExchange   string        `mapstructure:"amqp_exchange"`
	OTLPEndpoint   string        `mapstructure:"otlp_endpoint"`
	LogLevel       string        `mapstructure:"log_level"`
	Environment    string        `mapstructure:"environment"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	QueueSize      int           `mapstructure:"queue_size"`
	DebugRoutes    bool          `mapstructure:"debug_routes"`
}

var defaults = map[string]any{
	"backend_url":     "http://localhost:3001",
	"push_url":        "",
	"token":           "",
	"port":            "8090",
	"api_token":       "",
	"db_dsn":          "",
	"amqp_url":        "",
	"amqp_exchange":   "chat.client",
	"otlp_endpoint":   "",
	"log_level":       "info",
	"environment":     "local",
	"request_timeout": "10s",
	"queue_size":      64,
	"debug_routes":    false,
}

// Load reads envFile when it exists, then the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, errors.Wrapf(err, "load %s", envFile)
			}
		}
	}

	v := viper.New()
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if cfg.PushURL == "" {
		cfg.PushURL = strings.TrimRight(cfg.BackendURL, "/") + "/socket"
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings that have no usable fallback.
func (c Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("invalid backend url %q", c.BackendURL)
	}
	if c.QueueSize <= 0 {
		return errors.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	if c.RequestTimeout < 0 {
		return errors.Errorf("request timeout must not be negative, got %s", c.RequestTimeout)
	}
	return nil
}

// Offline reports whether the push channel is disabled.
func (c Config) Offline() bool {
	return c.PushURL == "off"
}
