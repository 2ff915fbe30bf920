// Package config resolves client settings from four layers in rising
// precedence: built-in defaults, an optional TOML file, an optional .env
// file and the process environment. Explicitly set CLI flags are applied
// by the caller afterwards and win over all of them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/mxprobe/mxprobe/internal/protocol"
	"github.com/mxprobe/mxprobe/internal/session"
	"github.com/mxprobe/mxprobe/internal/transport"
)

// DefaultPath is tried when no config file is named.
const DefaultPath = "mxprobe.toml"

// ErrConfig reports an unusable configuration value.
var ErrConfig = errors.New("invalid config")

// Feed holds the multicast market-data settings.
type Feed struct {
	Group     string `toml:"group"`
	Port      int    `toml:"port"`
	Interface string `toml:"interface"`
}

// Config is the resolved client configuration.
type Config struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Transport string `toml:"transport"` // auto, stream/tcp, datagram/udp
	Encoding  string `toml:"encoding"`  // auto, binary, text
	UserID    uint32 `toml:"user_id"`

	DialTimeoutMS  int `toml:"dial_timeout_ms"`
	ProbeTimeoutMS int `toml:"probe_timeout_ms"`
	DrainTimeoutMS int `toml:"drain_timeout_ms"`

	Verbose    bool   `toml:"verbose"`
	ReportPath string `toml:"report_path"`

	Feed Feed `toml:"feed"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:           "127.0.0.1",
		Port:           9999,
		Transport:      "auto",
		Encoding:       "auto",
		UserID:         1,
		DialTimeoutMS:  5000,
		ProbeTimeoutMS: 2000,
		DrainTimeoutMS: 250,
		Feed: Feed{
			Group: "239.255.0.1",
			Port:  9998,
		},
	}
}

// Load resolves the configuration. A named file must exist; with an empty
// path the default file is used when present and skipped otherwise. The
// .env file never overrides variables already in the environment, which
// keeps the environment the stronger layer.
func Load(path, envPath string) (*Config, error) {
	cfg := Default()

	switch {
	case path != "":
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat(DefaultPath); err == nil {
			if err := cfg.applyFile(DefaultPath); err != nil {
				return nil, err
			}
		}
	}

	if envPath != "" {
		godotenv.Load(envPath)
	} else {
		godotenv.Load()
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays values the file actually defines, leaving the rest
// of the configuration alone.
func (c *Config) applyFile(path string) error {
	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("host") {
		c.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		c.Port = raw.Port
	}
	if meta.IsDefined("transport") {
		c.Transport = strings.TrimSpace(raw.Transport)
	}
	if meta.IsDefined("encoding") {
		c.Encoding = strings.TrimSpace(raw.Encoding)
	}
	if meta.IsDefined("user_id") {
		c.UserID = raw.UserID
	}
	if meta.IsDefined("dial_timeout_ms") {
		c.DialTimeoutMS = raw.DialTimeoutMS
	}
	if meta.IsDefined("probe_timeout_ms") {
		c.ProbeTimeoutMS = raw.ProbeTimeoutMS
	}
	if meta.IsDefined("drain_timeout_ms") {
		c.DrainTimeoutMS = raw.DrainTimeoutMS
	}
	if meta.IsDefined("verbose") {
		c.Verbose = raw.Verbose
	}
	if meta.IsDefined("report_path") {
		c.ReportPath = strings.TrimSpace(raw.ReportPath)
	}
	if meta.IsDefined("feed", "group") {
		c.Feed.Group = strings.TrimSpace(raw.Feed.Group)
	}
	if meta.IsDefined("feed", "port") {
		c.Feed.Port = raw.Feed.Port
	}
	if meta.IsDefined("feed", "interface") {
		c.Feed.Interface = strings.TrimSpace(raw.Feed.Interface)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MXPROBE_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("MXPROBE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("MXPROBE_TRANSPORT"); v != "" {
		c.Transport = v
	}
	if v := os.Getenv("MXPROBE_ENCODING"); v != "" {
		c.Encoding = v
	}
	if v := os.Getenv("MXPROBE_USER_ID"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.UserID = uint32(id)
		}
	}
	if v := os.Getenv("MXPROBE_VERBOSE"); v != "" {
		c.Verbose = v == "true" || v == "1"
	}
	if v := os.Getenv("MXPROBE_FEED_GROUP"); v != "" {
		c.Feed.Group = v
	}
	if v := os.Getenv("MXPROBE_FEED_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Feed.Port = port
		}
	}
	if v := os.Getenv("MXPROBE_REPORT"); v != "" {
		c.ReportPath = v
	}
}

// Validate rejects values no component downstream could accept.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrConfig, c.Port)
	}
	if _, err := transport.ParseMode(c.Transport); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if _, err := protocol.ParseEncoding(c.Encoding); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if c.DialTimeoutMS <= 0 || c.ProbeTimeoutMS <= 0 || c.DrainTimeoutMS <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrConfig)
	}
	if c.Feed.Port < 0 || c.Feed.Port > 65535 {
		return fmt.Errorf("%w: feed port %d out of range", ErrConfig, c.Feed.Port)
	}
	return nil
}

// SessionOptions converts the configuration into session options.
func (c *Config) SessionOptions() (*session.Options, error) {
	mode, err := transport.ParseMode(c.Transport)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	enc, err := protocol.ParseEncoding(c.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	opts := session.DefaultOptions(c.Host, c.Port)
	opts.User = c.UserID
	opts.Mode = mode
	opts.Encoding = enc
	opts.DialTimeout = time.Duration(c.DialTimeoutMS) * time.Millisecond
	opts.ProbeTimeout = time.Duration(c.ProbeTimeoutMS) * time.Millisecond
	return opts, nil
}

// DrainTimeout returns the drain window as a duration.
func (c *Config) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutMS) * time.Millisecond
}
