package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Reminders.MaxPerRun != 3 {
		t.Errorf("MaxPerRun = %d, want 3", cfg.Reminders.MaxPerRun)
	}
	if cfg.Reminders.Threshold != 4 {
		t.Errorf("Threshold = %v, want 4", cfg.Reminders.Threshold)
	}
	if cfg.SnoozeDuration() != 4*time.Hour {
		t.Errorf("SnoozeDuration = %v, want 4h", cfg.SnoozeDuration())
	}
}

// clearEnv blanks the variables applyEnv reads so the host environment
// cannot leak into Load tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "FRONTEND_ORIGIN", "DB_PATH", "GROQ_API_KEY", "OPENAI_API_KEY",
		"ANTHROPIC_API_KEY", "TWILIO_SID", "TWILIO_TOKEN", "TWILIO_WHATSAPP_NUMBER",
		"MY_WHATSAPP_NUMBER", "SNOOZE_HOURS", "TZ",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port == 0 {
		t.Error("expected default port")
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9999
reminders:
  timezone: UTC
  max_per_run: 2
  snooze_hours: 6
notify:
  recipient: "+15550001111"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Reminders.MaxPerRun != 2 {
		t.Errorf("MaxPerRun = %d, want 2", cfg.Reminders.MaxPerRun)
	}
	if cfg.Notify.Recipient != "+15550001111" {
		t.Errorf("Recipient = %q", cfg.Notify.Recipient)
	}
	// Untouched fields keep their defaults.
	if cfg.Reminders.QuietStart != 9 || cfg.Reminders.QuietEnd != 22 {
		t.Errorf("active hours = %d-%d, want 9-22", cfg.Reminders.QuietStart, cfg.Reminders.QuietEnd)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                   "7000",
		"GROQ_API_KEY":           "gsk-test",
		"TWILIO_SID":             "AC123",
		"TWILIO_TOKEN":           "secret",
		"TWILIO_WHATSAPP_NUMBER": "+14155238886",
		"MY_WHATSAPP_NUMBER":     "+919999999999",
		"SNOOZE_HOURS":           "2",
		"TZ":                     "UTC",
		"DB_PATH":                "/tmp/memories.db",
	}
	cfg := Default()
	if err := applyEnv(&cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "groq" || cfg.LLM.APIKey != "gsk-test" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Notify.Provider != "twilio" || cfg.Notify.TwilioSID != "AC123" {
		t.Errorf("Notify = %+v", cfg.Notify)
	}
	if cfg.Notify.Recipient != "+919999999999" || cfg.Notify.From != "+14155238886" {
		t.Errorf("numbers = %q -> %q", cfg.Notify.From, cfg.Notify.Recipient)
	}
	if cfg.Reminders.SnoozeHours != 2 {
		t.Errorf("SnoozeHours = %d", cfg.Reminders.SnoozeHours)
	}
	if cfg.Database.Path != "/tmp/memories.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestApplyEnvBadNumber(t *testing.T) {
	cfg := Default()
	err := applyEnv(&cfg, func(k string) string {
		if k == "SNOOZE_HOURS" {
			return "four"
		}
		return ""
	})
	if err == nil {
		t.Error("expected error for non-numeric SNOOZE_HOURS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero quota", func(c *Config) { c.Reminders.MaxPerRun = 0 }},
		{"threshold above 10", func(c *Config) { c.Reminders.Threshold = 11 }},
		{"inverted hours", func(c *Config) { c.Reminders.QuietStart = 23; c.Reminders.QuietEnd = 8 }},
		{"zero snooze", func(c *Config) { c.Reminders.SnoozeHours = 0 }},
		{"bad timezone", func(c *Config) { c.Reminders.Timezone = "Mars/Olympus" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestListenAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.Bind = "127.0.0.1"
	cfg.Server.Port = 8181
	if got := cfg.ListenAddr(); got != "127.0.0.1:8181" {
		t.Errorf("ListenAddr = %q", got)
	}
}
