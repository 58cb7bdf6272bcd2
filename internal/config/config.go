package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config holds all nudge configuration. It is built once at startup and
// passed explicitly to every component.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Database  DatabaseConfig `yaml:"database"`
	LLM       LLMConfig      `yaml:"llm"`
	Notify    NotifyConfig   `yaml:"notify"`
	Reminders ReminderConfig `yaml:"reminders"`
	Log       LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Bind           string `yaml:"bind"`
	Port           int    `yaml:"port"`
	FrontendOrigin string `yaml:"frontend_origin"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LLMConfig struct {
	Provider    string `yaml:"provider"` // "groq", "openai", "anthropic", "ollama"
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	OllamaURL   string `yaml:"ollama_url"`
	TimeoutSecs int    `yaml:"timeout"`
}

type NotifyConfig struct {
	Provider   string `yaml:"provider"` // "twilio" or "log"
	TwilioSID  string `yaml:"twilio_sid"`
	TwilioAuth string `yaml:"twilio_token"`
	From       string `yaml:"from"`
	Recipient  string `yaml:"recipient"`
}

// ReminderConfig is the selection and snooze policy.
type ReminderConfig struct {
	Timezone        string  `yaml:"timezone"`
	Threshold       float64 `yaml:"threshold"`
	MaxPerRun       int     `yaml:"max_per_run"`
	QuietStart      int     `yaml:"quiet_start"`
	QuietEnd        int     `yaml:"quiet_end"`
	CriticalUrgency float64 `yaml:"critical_urgency"`
	SnoozeHours     int     `yaml:"snooze_hours"`
	ListLimit       int     `yaml:"list_limit"`
	RunOnStart      bool    `yaml:"run_on_start"`
}

type LogConfig struct {
	Format  string `yaml:"format"` // "console" or "json"
	Verbose bool   `yaml:"verbose"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		LLM: LLMConfig{
			Provider:    "groq",
			TimeoutSecs: 60,
		},
		Notify: NotifyConfig{
			Provider: "log",
		},
		Reminders: ReminderConfig{
			Timezone:        "Asia/Kolkata",
			Threshold:       4,
			MaxPerRun:       3,
			QuietStart:      9,
			QuietEnd:        22,
			CriticalUrgency: 9,
			SnoozeHours:     4,
			ListLimit:       10,
		},
		Log: LogConfig{
			Format:  "console",
			Verbose: true,
		},
	}
}

// DefaultPath returns ~/.nudge/config.yaml, or $NUDGE_CONFIG when set.
func DefaultPath() string {
	if p := os.Getenv("NUDGE_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "nudge.yaml"
	}
	return filepath.Join(home, ".nudge", "config.yaml")
}

// Load builds a Config from defaults, the YAML file at path (a missing file
// is not an error) and environment overrides, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv layers the deployment environment variables on top of cfg.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := getenv("FRONTEND_ORIGIN"); v != "" {
		cfg.Server.FrontendOrigin = v
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	switch {
	case getenv("GROQ_API_KEY") != "":
		cfg.LLM.Provider = "groq"
		cfg.LLM.APIKey = getenv("GROQ_API_KEY")
	case getenv("OPENAI_API_KEY") != "":
		cfg.LLM.Provider = "openai"
		cfg.LLM.APIKey = getenv("OPENAI_API_KEY")
	case getenv("ANTHROPIC_API_KEY") != "":
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.APIKey = getenv("ANTHROPIC_API_KEY")
	}

	if sid, token := getenv("TWILIO_SID"), getenv("TWILIO_TOKEN"); sid != "" && token != "" {
		cfg.Notify.Provider = "twilio"
		cfg.Notify.TwilioSID = sid
		cfg.Notify.TwilioAuth = token
	}
	if v := getenv("TWILIO_WHATSAPP_NUMBER"); v != "" {
		cfg.Notify.From = v
	}
	if v := getenv("MY_WHATSAPP_NUMBER"); v != "" {
		cfg.Notify.Recipient = v
	}

	if v := getenv("SNOOZE_HOURS"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SNOOZE_HOURS: %w", err)
		}
		cfg.Reminders.SnoozeHours = h
	}
	if v := getenv("TZ"); v != "" {
		cfg.Reminders.Timezone = v
	}
	return nil
}

// Validate rejects policy values the engine cannot honor.
func (c *Config) Validate() error {
	r := c.Reminders
	if r.MaxPerRun < 1 {
		return fmt.Errorf("reminders.max_per_run must be >= 1, got %d", r.MaxPerRun)
	}
	if r.Threshold < 0 || r.Threshold > 10 {
		return fmt.Errorf("reminders.threshold must be within [0,10], got %v", r.Threshold)
	}
	if r.CriticalUrgency < 0 || r.CriticalUrgency > 10 {
		return fmt.Errorf("reminders.critical_urgency must be within [0,10], got %v", r.CriticalUrgency)
	}
	if r.QuietStart < 0 || r.QuietStart > 23 || r.QuietEnd < 0 || r.QuietEnd > 23 || r.QuietStart > r.QuietEnd {
		return fmt.Errorf("reminders: invalid active hours %d-%d", r.QuietStart, r.QuietEnd)
	}
	if r.SnoozeHours < 1 {
		return fmt.Errorf("reminders.snooze_hours must be >= 1, got %d", r.SnoozeHours)
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return fmt.Errorf("reminders.timezone: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Location returns the configured timezone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reminders.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SnoozeDuration returns the snooze window as a time.Duration.
func (c *Config) SnoozeDuration() time.Duration {
	return time.Duration(c.Reminders.SnoozeHours) * time.Hour
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
