package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileIsEmpty(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg != (fileConfig{}) {
		t.Errorf("config = %+v, want zero value", cfg)
	}
}

func TestLoadConfig_ParsesAndTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
token = "  0123456789abcdef0123456789abcdef  "
beta_token = "fedcba9876543210fedcba9876543210"
beta = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.Token != "0123456789abcdef0123456789abcdef" {
		t.Errorf("Token = %q, want it trimmed", cfg.Token)
	}
	if !cfg.Beta {
		t.Error("Beta = false, want true")
	}
	if got := cfg.tokenFor(true); got != cfg.BetaToken {
		t.Errorf("tokenFor(true) = %q, want the beta token", got)
	}
	if got := cfg.tokenFor(false); got != cfg.Token {
		t.Errorf("tokenFor(false) = %q, want the production token", got)
	}
}

func TestLoadConfig_InvalidToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("token = ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadConfig(path); err == nil {
		t.Fatal("loadConfig accepted invalid TOML")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	got, err := expandPath("~/x/config.toml")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "x", "config.toml") {
		t.Errorf("expandPath = %q", got)
	}

	got, err = expandPath("/abs/path.toml")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if got != "/abs/path.toml" {
		t.Errorf("expandPath changed an absolute path: %q", got)
	}
}
