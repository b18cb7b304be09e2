package wspipe

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DefaultPingInterval   = 30 * time.Second
	DefaultIdleTimeout    = 60 * time.Second
	DefaultMaxMessageSize = 1 << 20
)

// Config carries the tunables the server and the default middlewares need.
type Config struct {
	PingInterval   time.Duration
	IdleTimeout    time.Duration
	MaxMessageSize int64
	Origins        []string
	LogLevel       string
}

func DefaultConfig() *Config {
	return &Config{
		PingInterval:   DefaultPingInterval,
		IdleTimeout:    DefaultIdleTimeout,
		MaxMessageSize: DefaultMaxMessageSize,
		LogLevel:       "info",
	}
}

// LoadConfig reads configuration from the given file, with WSPIPE_-prefixed
// environment variables taking precedence. An empty path loads defaults and
// environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("ping_interval", DefaultPingInterval)
	v.SetDefault("idle_timeout", DefaultIdleTimeout)
	v.SetDefault("max_message_size", DefaultMaxMessageSize)
	v.SetDefault("origins", []string{})
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("WSPIPE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &Config{
		PingInterval:   v.GetDuration("ping_interval"),
		IdleTimeout:    v.GetDuration("idle_timeout"),
		MaxMessageSize: v.GetInt64("max_message_size"),
		Origins:        v.GetStringSlice("origins"),
		LogLevel:       v.GetString("log_level"),
	}, nil
}

// NewLogger builds a logrus logger at the configured level, defaulting to
// info when the level does not parse.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
