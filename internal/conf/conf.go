// Package conf loads the service configuration from file and environment.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`
	DBPath   string `mapstructure:"db_path" json:"db_path"`
	Timezone string `mapstructure:"timezone" json:"timezone"`
	Debug    bool   `mapstructure:"debug" json:"debug"`

	Recalc RecalcConfig `mapstructure:"recalc" json:"recalc"`
}

// RecalcConfig tunes the recalculation worker pool and its notification
// coalescer.
type RecalcConfig struct {
	Workers           int `mapstructure:"workers" json:"workers"`
	NotifyIdleSeconds int `mapstructure:"notify_idle_seconds" json:"notify_idle_seconds"`
	NotifyMaxLength   int `mapstructure:"notify_max_length" json:"notify_max_length"`
}

// Default returns the configuration used when nothing is provided.
func Default() *Config {
	return &Config{
		HTTPAddr: "127.0.0.1:5030",
		DBPath:   "statbot.db",
		Timezone: "America/New_York",
		Recalc: RecalcConfig{
			Workers:           5,
			NotifyIdleSeconds: 1,
			NotifyMaxLength:   1700,
		},
	}
}

// Load reads configuration from the given file (optional) and STATBOT_*
// environment variables, layered over the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("http_addr", def.HTTPAddr)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("timezone", def.Timezone)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("recalc.workers", def.Recalc.Workers)
	v.SetDefault("recalc.notify_idle_seconds", def.Recalc.NotifyIdleSeconds)
	v.SetDefault("recalc.notify_max_length", def.Recalc.NotifyMaxLength)

	v.SetEnvPrefix("statbot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Location resolves the configured reference timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NotifyIdle returns the coalescer idle timeout.
func (c *RecalcConfig) NotifyIdle() time.Duration {
	return time.Duration(c.NotifyIdleSeconds) * time.Second
}
