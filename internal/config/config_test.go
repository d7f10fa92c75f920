package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9977 {
		t.Errorf("expected default port 9977, got %d", cfg.Port)
	}
	if cfg.BindAddress != "127.0.0.1" {
		t.Errorf("expected loopback bind, got %s", cfg.BindAddress)
	}
	if cfg.Endpoints.Gameplay != "https://gameplay.gog.com" {
		t.Errorf("unexpected gameplay endpoint %s", cfg.Endpoints.Gameplay)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "galaxyd.yaml")
	data := "port: 10100\nlog_level: debug\nquit_when_idle: true\nendpoints:\n  gameplay: http://127.0.0.1:8080\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 10100 {
		t.Errorf("expected port 10100, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %s", cfg.LogLevel)
	}
	if !cfg.QuitWhenIdle {
		t.Error("expected quit_when_idle")
	}
	if cfg.Endpoints.Gameplay != "http://127.0.0.1:8080" {
		t.Errorf("unexpected gameplay endpoint %s", cfg.Endpoints.Gameplay)
	}
	// Untouched keys keep defaults
	if cfg.Endpoints.Auth != "https://auth.gog.com" {
		t.Errorf("auth endpoint lost default: %s", cfg.Endpoints.Auth)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "galaxyd.yaml")
	if err := os.WriteFile(path, []byte("port: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
