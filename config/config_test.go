package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("PORTAL", "")
	t.Setenv("SESSION_KEY", "")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		t.Fatalf("ValidateConfig() error = %v", err)
	}
	if cfg.SessionKey != "user_session" {
		t.Errorf("SessionKey = %q, want user_session", cfg.SessionKey)
	}
	if cfg.CartKey != "@alpha_smart_cart" {
		t.Errorf("CartKey = %q", cfg.CartKey)
	}
	if cfg.ThemeKey != "user-theme-preference" {
		t.Errorf("ThemeKey = %q", cfg.ThemeKey)
	}
}

func TestNewConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PORTAL", "ADMIN")
	t.Setenv("SESSION_KEY", "")
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "42")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.Port != ":9090" {
		t.Errorf("Port = %q, want :9090", cfg.Port)
	}
	if !cfg.IsAdminPortal() {
		t.Errorf("Portal = %q, want admin", cfg.Portal)
	}
	if cfg.SessionKey != "adminAuthData" {
		t.Errorf("SessionKey = %q, want adminAuthData", cfg.SessionKey)
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 3*time.Second {
		t.Errorf("APITimeout = %v", cfg.APITimeout)
	}
	if cfg.TelegramAdminChatID != 42 {
		t.Errorf("TelegramAdminChatID = %d", cfg.TelegramAdminChatID)
	}
	if err := cfg.ValidateConfig(); err != nil {
		t.Fatalf("ValidateConfig() error = %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		return &Config{
			Portal:                   PortalStorefront,
			APIBaseURL:               "http://localhost",
			APITimeout:               time.Second,
			StorageBackend:           StorageMemory,
			SessionKey:               "s",
			CartKey:                  "c",
			ThemeKey:                 "t",
			NotificationPollInterval: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown portal", func(c *Config) { c.Portal = "kiosk" }, true},
		{"unknown backend", func(c *Config) { c.StorageBackend = "etcd" }, true},
		{"sqlite without name", func(c *Config) { c.StorageBackend = StorageSQLite }, true},
		{"shared keys", func(c *Config) { c.CartKey = "s" }, true},
		{"bad device scheme", func(c *Config) { c.DeviceScheme = "sepia" }, true},
		{"dark device scheme", func(c *Config) { c.DeviceScheme = "dark" }, false},
		{"zero timeout", func(c *Config) { c.APITimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.ValidateConfig()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
