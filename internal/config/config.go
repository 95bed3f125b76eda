package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the service.
type Config struct {
	TelegramToken    string
	DatabaseURL      string
	TickTime         string
	Timezone         string
	LogLevel         string
	LogFormat        string
	NoCopyFields     []string
	NotifyRatePerSec int
	// AdminIDs are the Telegram user ids allowed to run operator commands.
	AdminIDs []int64
}

const (
	defaultDatabaseURL = "auto_repeat.db"
	defaultTickTime    = "06:00"
)

// Load reads configuration from environment variables and, when path is not
// empty, from a YAML file. Environment variables win over the file.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("database_url", defaultDatabaseURL)
	v.SetDefault("tick_time", defaultTickTime)
	v.SetDefault("timezone", "Local")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("no_copy_fields", "")
	v.SetDefault("notify_rate_per_sec", 1)
	v.SetDefault("admin_ids", "")

	for _, key := range []string{"telegram_token", "database_url", "tick_time", "timezone", "log_level", "log_format", "no_copy_fields", "notify_rate_per_sec", "admin_ids"} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := Config{
		TelegramToken:    strings.TrimSpace(v.GetString("telegram_token")),
		DatabaseURL:      strings.TrimSpace(v.GetString("database_url")),
		TickTime:         strings.TrimSpace(v.GetString("tick_time")),
		Timezone:         strings.TrimSpace(v.GetString("timezone")),
		LogLevel:         strings.TrimSpace(v.GetString("log_level")),
		LogFormat:        strings.TrimSpace(v.GetString("log_format")),
		NoCopyFields:     splitList(v.Get("no_copy_fields")),
		NotifyRatePerSec: v.GetInt("notify_rate_per_sec"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.TickTime == "" {
		cfg.TickTime = defaultTickTime
	}
	for _, raw := range splitList(v.Get("admin_ids")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid admin id %q: %w", raw, err)
		}
		cfg.AdminIDs = append(cfg.AdminIDs, id)
	}
	if cfg.NotifyRatePerSec <= 0 {
		cfg.NotifyRatePerSec = 1
	}
	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Location resolves Timezone; empty or "Local" is the process time zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// splitList accepts a comma separated string (environment) or a YAML list.
func splitList(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case string:
		parts = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
	case []string:
		parts = v
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
