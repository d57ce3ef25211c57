// Package config loads GidTerm's small, optional configuration layer:
// port-range bounds, history cap, parser window size, and log level/format.
// It is strictly an override layer, every field has a default that lets
// the engine run with zero configuration present. godotenv.Load() runs
// before anything else, viper.SetDefault covers every knob, and env vars
// are the ultimate override via viper.AutomaticEnv().
package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the resolved, read-only configuration snapshot.
type Config struct {
	PortRangeMin    int
	PortRangeMax    int
	HistoryCap      int
	ParserWindow    int
	LogLevel        string
	LogFormat       string // "console", "json", or "auto" (TTY-detected)
	PortRegistryPath string
}

func defaults(v *viper.Viper) {
	v.SetDefault("port_range_min", 3000)
	v.SetDefault("port_range_max", 3999)
	v.SetDefault("history_cap", 500)
	v.SetDefault("parser_window", 20)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "auto")
	v.SetDefault("port_registry_path", "")
}

// Load reads .env from the working directory into the process environment
// (if present, ignoring a missing file, never overriding variables already
// set), then an optional .gidterm.yaml from dir, and returns the resolved
// Config. Environment variables prefixed GIDTERM_, including any that came
// from .env, take priority over the file, which takes priority over the
// defaults.
func Load(dir string) (*Config, *viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("gidterm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(".gidterm")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, err
		}
	}

	return snapshot(v), v, nil
}

func snapshot(v *viper.Viper) *Config {
	return &Config{
		PortRangeMin:     v.GetInt("port_range_min"),
		PortRangeMax:     v.GetInt("port_range_max"),
		HistoryCap:       v.GetInt("history_cap"),
		ParserWindow:     v.GetInt("parser_window"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
		PortRegistryPath: v.GetString("port_registry_path"),
	}
}

// Watch enables viper's file watcher and invokes onChange with the
// refreshed snapshot every time the config file is rewritten, so a
// long-running run picks up config edits live.
func Watch(v *viper.Viper, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		onChange(snapshot(v))
	})
	v.WatchConfig()
}
