package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultConfigPath = "~/.config/bookalope/config.toml"

// fileConfig holds the persisted CLI settings. Tokens are per host: the beta
// server uses a separate credential.
type fileConfig struct {
	Token     string `toml:"token"`
	BetaToken string `toml:"beta_token"`
	Beta      bool   `toml:"beta"`
}

// loadConfig parses the config file, returning an empty config when the file
// does not exist.
func loadConfig(path string) (fileConfig, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return fileConfig{}, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.BetaToken = strings.TrimSpace(cfg.BetaToken)
	return cfg, nil
}

// tokenFor picks the credential matching the selected host.
func (c fileConfig) tokenFor(beta bool) string {
	if beta {
		return c.BetaToken
	}
	return c.Token
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
