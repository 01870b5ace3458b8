package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	bookalope "github.com/bookalope/bookalope-go"
)

func buildClient(token string, opts *cliOptions) *bookalope.Client {
	options := []bookalope.Option{
		bookalope.WithBetaHost(opts.beta),
		bookalope.WithTimeout(opts.timeout),
	}
	if opts.baseURL != "" {
		options = append(options, bookalope.WithBaseURL(opts.baseURL))
	}
	return bookalope.New(token, options...)
}

// resolveToken finds the API token, in order: flag, environment, .env file,
// config file. The beta host uses its own credential in the config file.
func resolveToken(opts *cliOptions) (string, error) {
	if opts.token != "" {
		return opts.token, nil
	}

	if env := os.Getenv("BOOKALOPE_TOKEN"); env != "" {
		opts.token = env
		return env, nil
	}

	if env := os.Getenv("BOOKALOPE_APIKEY"); env != "" {
		opts.token = env
		return env, nil
	}

	// A .env in the working directory may carry the token; absence is not
	// an error.
	if err := godotenv.Load(); err == nil {
		if env := os.Getenv("BOOKALOPE_TOKEN"); env != "" {
			opts.token = env
			return env, nil
		}
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return "", err
	}
	if token := cfg.tokenFor(opts.beta); token != "" {
		opts.token = token
		return token, nil
	}

	return "", errors.New("api token is required (flag --token, BOOKALOPE_TOKEN / BOOKALOPE_APIKEY, or config file)")
}

func pollConfig(opts *cliOptions) bookalope.PollConfig {
	return bookalope.PollConfig{
		Interval:    opts.interval,
		MaxDuration: opts.maxPoll,
	}
}

func writeJSON(path string, data any) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func saveToFile(targetPath string, data []byte) error {
	dir := filepath.Dir(targetPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create download dir: %w", err)
		}
	}
	if err := os.WriteFile(targetPath, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func printOut(cmd *cobra.Command, format string, args ...any) error {
	return logWith(cmd, slog.LevelInfo, format, args...)
}

func logWith(cmd *cobra.Command, level slog.Level, format string, args ...any) error {
	logger := newLogger(cmd.OutOrStdout(), level)
	msg := strings.TrimSuffix(fmt.Sprintf(format, args...), "\n")
	logger.LogAttrs(cmd.Context(), level, msg, slog.Time("ts", time.Now()))
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return slog.New(handler)
}
