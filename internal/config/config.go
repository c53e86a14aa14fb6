// Package config loads the companion's process configuration from the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Hardware sensor modes for COMPANION_HWMON_DIR.
const (
	HwmonAuto = "auto"
	HwmonNone = "none"
)

// LogFileNone disables the log file.
const LogFileNone = "none"

// Config holds the companion's runtime configuration loaded from environment variables.
// Device settings that users change at runtime live in the settings file instead.
type Config struct {
	// SettingsFile is the YAML settings path (from COMPANION_SETTINGS_FILE)
	SettingsFile string

	// LogFile is the rotating log file, or "none" (from COMPANION_LOG_FILE)
	LogFile string

	// LogLevel is "debug" or "info" (from COMPANION_LOG_LEVEL)
	LogLevel string

	// HealthPort serves /healthz; 0 disables it (from COMPANION_HEALTH_PORT)
	HealthPort int

	// InstanceName namespaces the Redis mirror (from COMPANION_INSTANCE, defaults to the hostname)
	InstanceName string

	// RedisURL enables the status mirror when set (from REDIS_URL)
	RedisURL string

	// SpeechCommand receives text on stdin (from COMPANION_SPEECH_COMMAND)
	// Expected format: JSON array like ["espeak", "--stdin"]; [] disables speech
	SpeechCommand []string

	// BeepCommand receives a wav path as its last argument (from COMPANION_BEEP_COMMAND)
	BeepCommand []string

	// SoundDir holds success.wav and info.wav (from COMPANION_SOUND_DIR)
	SoundDir string

	// HwmonDir is the INA219 hwmon directory, "auto" or "none" (from COMPANION_HWMON_DIR)
	HwmonDir string

	// FPS is the display frame rate (from COMPANION_FPS)
	FPS int
}

// Defaults returns the configuration used for unset variables.
func Defaults() *Config {
	return &Config{
		SettingsFile:  "/etc/stratux-companion/settings.yml",
		LogFile:       "/var/log/stratux_companion.log",
		LogLevel:      "info",
		HealthPort:    8080,
		InstanceName:  defaultInstanceName(),
		SpeechCommand: []string{"espeak", "--stdin"},
		BeepCommand:   []string{"aplay", "-q"},
		SoundDir:      "/usr/share/stratux-companion/sounds",
		HwmonDir:      HwmonAuto,
		FPS:           5,
	}
}

// LoadConfig reads and validates configuration from environment variables.
// If envFile is non-empty and exists it is loaded first; variables already
// set in the environment take precedence over the file.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Defaults()

	setString(&cfg.SettingsFile, "COMPANION_SETTINGS_FILE")
	setString(&cfg.LogFile, "COMPANION_LOG_FILE")
	setString(&cfg.LogLevel, "COMPANION_LOG_LEVEL")
	setString(&cfg.InstanceName, "COMPANION_INSTANCE")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.SoundDir, "COMPANION_SOUND_DIR")
	setString(&cfg.HwmonDir, "COMPANION_HWMON_DIR")

	if err := setInt(&cfg.HealthPort, "COMPANION_HEALTH_PORT"); err != nil {
		return nil, err
	}
	if err := setInt(&cfg.FPS, "COMPANION_FPS"); err != nil {
		return nil, err
	}
	if err := setCommand(&cfg.SpeechCommand, "COMPANION_SPEECH_COMMAND"); err != nil {
		return nil, err
	}
	if err := setCommand(&cfg.BeepCommand, "COMPANION_BEEP_COMMAND"); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all configuration fields are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	if c.SettingsFile == "" {
		return fmt.Errorf("COMPANION_SETTINGS_FILE must not be empty")
	}

	if c.LogLevel != "debug" && c.LogLevel != "info" {
		return fmt.Errorf("invalid COMPANION_LOG_LEVEL: %q (must be debug or info)", c.LogLevel)
	}

	if c.HealthPort < 0 || c.HealthPort > 65535 {
		return fmt.Errorf("invalid COMPANION_HEALTH_PORT: %d", c.HealthPort)
	}

	if c.InstanceName == "" {
		return fmt.Errorf("COMPANION_INSTANCE must not be empty")
	}

	if c.RedisURL != "" {
		u, err := url.Parse(c.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("invalid REDIS_URL: scheme must be redis or rediss, got %q", u.Scheme)
		}
	}

	if c.FPS < 1 || c.FPS > 30 {
		return fmt.Errorf("invalid COMPANION_FPS: %d (must be 1-30)", c.FPS)
	}

	return nil
}

// LogToFile reports whether a log file is configured.
func (c *Config) LogToFile() bool {
	return c.LogFile != "" && c.LogFile != LogFileNone
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("failed to parse %s as integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setCommand(dst *[]string, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var command []string
	if err := json.Unmarshal([]byte(v), &command); err != nil {
		return fmt.Errorf("failed to parse %s as JSON array: %w", key, err)
	}
	*dst = command
	return nil
}

func defaultInstanceName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "companion-" + uuid.NewString()[:8]
}
