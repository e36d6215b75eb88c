package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("ASSET_STORE", "")
	t.Setenv("INTERVIEW_DURATION", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Provider != "gemini" {
		t.Fatalf("expected default provider gemini, got %s", cfg.Provider)
	}
	if cfg.InterviewDuration != 10*time.Minute {
		t.Fatalf("expected 10m interview duration, got %s", cfg.InterviewDuration)
	}
	if cfg.Postgres.DSN() == "" {
		t.Fatal("expected postgres DSN to be built")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("INTERVIEW_DURATION", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STT_API_KEY", "")
	t.Setenv("RESUME_DIR", "/srv/resumes")
	t.Setenv("RESUME_ALLOWED_HOSTS", "cdn.example.com, files.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InterviewDuration != 90*time.Second {
		t.Fatalf("expected 90s, got %s", cfg.InterviewDuration)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.ResumeDir != "/srv/resumes" || len(cfg.ResumeAllowedHosts) != 2 {
		t.Fatalf("unexpected resume sources: %q %v", cfg.ResumeDir, cfg.ResumeAllowedHosts)
	}
	if cfg.STT.APIKey != "sk-test" {
		t.Fatalf("expected STT key to fall back to OPENAI_API_KEY, got %q", cfg.STT.APIKey)
	}
}

func TestLoadConfigUnsupportedProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "other")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestValidateConfigRules(t *testing.T) {
	base := func() *Config {
		return &Config{Provider: "gemini", DBDriver: "sqlite", Assets: AssetConfig{Store: "local"}, InterviewDuration: time.Minute}
	}

	cfg := base()
	cfg.Assets.Store = "s3"
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error when s3 bucket missing")
	}

	cfg = base()
	cfg.AuthRequired = true
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error when auth required without secret")
	}

	if err := validateConfig(base()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
