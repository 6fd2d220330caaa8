package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	Port           string        `mapstructure:"port"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisChannel   string        `mapstructure:"redis_channel"`
	AllowedOrigins []string      `mapstructure:"-"`
	SendBuffer     int           `mapstructure:"ws_send_buffer"`
	WriteTimeout   time.Duration `mapstructure:"ws_write_timeout"`
	PingInterval   time.Duration `mapstructure:"ws_ping_interval"`
	PongTimeout    time.Duration `mapstructure:"ws_pong_timeout"`
	MaxMessageSize int64         `mapstructure:"ws_max_message_bytes"`
	LogLevel       string        `mapstructure:"log_level"`
	LogDev         bool          `mapstructure:"log_dev"`
}

var defaults = map[string]any{
	"port":                 "8080",
	"redis_addr":           "",
	"redis_channel":        "whiteboard:events",
	"allowed_origins":      "*",
	"ws_send_buffer":       256,
	"ws_write_timeout":     "10s",
	"ws_ping_interval":     "25s",
	"ws_pong_timeout":      "60s",
	"ws_max_message_bytes": 65536,
	"log_level":            "info",
	"log_dev":              false,
}

// Load reads defaults, then the optional file named by CONFIG_FILE, then
// environment variables (PORT, REDIS_ADDR, WS_SEND_BUFFER, ...).
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AllowedOrigins = splitList(v.GetString("allowed_origins"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("ws_send_buffer must be positive, got %d", c.SendBuffer))
	}
	if c.WriteTimeout <= 0 || c.PingInterval <= 0 || c.PongTimeout <= 0 {
		errs = append(errs, errors.New("websocket timeouts must be positive"))
	}
	if c.PingInterval >= c.PongTimeout {
		errs = append(errs, fmt.Errorf("ws_ping_interval (%s) must be shorter than ws_pong_timeout (%s)", c.PingInterval, c.PongTimeout))
	}
	if c.MaxMessageSize <= 0 {
		errs = append(errs, fmt.Errorf("ws_max_message_bytes must be positive, got %d", c.MaxMessageSize))
	}
	if len(c.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("allowed_origins must not be empty"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
