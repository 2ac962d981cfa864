package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/flagx"
)

const envPrefix = "MEDKEEPER_"

// Config holds runtime settings for the medkeeper CLI.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Subscription SubscriptionConfig `koanf:"subscription"`
	Quota        QuotaConfig        `koanf:"quota"`
	Capture      CaptureConfig      `koanf:"capture"`
	Reminders    RemindersConfig    `koanf:"reminders"`
	Session      SessionConfig      `koanf:"session"`
	Language     string             `koanf:"language"`
	Log          LogConfig          `koanf:"log"`
}

type ServerConfig struct {
	URL                string        `koanf:"url"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	RecognitionTimeout time.Duration `koanf:"recognition_timeout"`
}

type SubscriptionConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	WarnHours    int           `koanf:"warn_hours"`
}

type QuotaConfig struct {
	// FreeMedications is the allowance assumed when limits cannot be fetched.
	FreeMedications int `koanf:"free_medications"`
}

type CaptureConfig struct {
	// CameraCommand is run through the shell; it must write one image to
	// stdout. Empty means no camera, gallery only.
	CameraCommand string        `koanf:"camera_command"`
	ResultTTL     time.Duration `koanf:"result_ttl"`
	MaxImageBytes int64         `koanf:"max_image_bytes"`
}

type RemindersConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
}

type SessionConfig struct {
	DBPath string `koanf:"db_path"`
	Secret string `koanf:"secret"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load layers defaults, the optional config file, MEDKEEPER_ environment
// variables and command-line flags, in that order.
func Load(args []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := flagx.ConfigFileFlag(args); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if err := loadFlags(k, args); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.URL = strings.TrimRight(cfg.Server.URL, "/")
	return &cfg, nil
}

// envKey maps MEDKEEPER_SERVER__URL to server.url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server.url must be an http(s) URL, got %q", c.Server.URL))
	}
	if c.Language != common.LanguageEnglish && c.Language != common.LanguageArabic {
		errs = append(errs, fmt.Errorf("language must be %q or %q, got %q", common.LanguageEnglish, common.LanguageArabic, c.Language))
	}
	positive := map[string]time.Duration{
		"server.request_timeout":     c.Server.RequestTimeout,
		"server.recognition_timeout": c.Server.RecognitionTimeout,
		"subscription.poll_interval": c.Subscription.PollInterval,
		"capture.result_ttl":         c.Capture.ResultTTL,
		"reminders.poll_interval":    c.Reminders.PollInterval,
	}
	for name, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Subscription.WarnHours <= 0 {
		errs = append(errs, errors.New("subscription.warn_hours must be positive"))
	}
	if c.Quota.FreeMedications <= 0 {
		errs = append(errs, errors.New("quota.free_medications must be positive"))
	}
	if c.Capture.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("capture.max_image_bytes must be positive"))
	}
	if c.Session.DBPath == "" {
		errs = append(errs, errors.New("session.db_path is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrValidation, errors.Join(errs...))
	}
	return nil
}

// SessionSecret is the configured secret, or a device-bound fallback built
// from the host and user names.
func (c *Config) SessionSecret() string {
	if c.Session.Secret != "" {
		return c.Session.Secret
	}
	host, _ := os.Hostname()
	name := "medkeeper"
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return host + ":" + name
}
