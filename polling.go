package bookalope

import (
	"context"
	"fmt"
	"time"
)

// PollOutcome classifies one status check during a poll.
type PollOutcome int

const (
	// PollContinue means the remote operation is still running.
	PollContinue PollOutcome = iota
	// PollSuccess means the operation reached its success terminal state.
	PollSuccess
	// PollFailure means the operation reached a failure terminal state, or
	// the status check itself failed. The check supplies the error.
	PollFailure
)

// PollFunc performs one status check. A non-nil error always ends the poll,
// whatever the outcome says; a single failed check is not retried.
type PollFunc func(ctx context.Context) (PollOutcome, error)

// PollConfig bounds a polling loop. Zero values fall back to
// DefaultPollInterval and DefaultMaxPollDuration; a negative MaxDuration
// polls without a deadline.
type PollConfig struct {
	Interval    time.Duration
	MaxDuration time.Duration
}

func (cfg PollConfig) withDefaults() PollConfig {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.MaxDuration == 0 {
		cfg.MaxDuration = DefaultMaxPollDuration
	}
	return cfg
}

// pollUntil repeatedly invokes check at a fixed interval until it reports a
// terminal outcome, the context is cancelled, or the maximum duration
// elapses. The first check runs immediately. The ticker is released on every
// exit path, and check is never invoked again after pollUntil returns.
func pollUntil(ctx context.Context, operation string, cfg PollConfig, check PollFunc) error {
	cfg = cfg.withDefaults()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	var timeout <-chan time.Time
	if cfg.MaxDuration > 0 {
		timer := time.NewTimer(cfg.MaxDuration)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		outcome, err := check(ctx)
		if err != nil {
			return err
		}

		switch outcome {
		case PollSuccess:
			return nil
		case PollFailure:
			return fmt.Errorf("waiting for %s failed", operation)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s cancelled: %w", operation, ctx.Err())
		case <-timeout:
			return fmt.Errorf("waiting for %s: %w", operation, ErrPollTimeout)
		case <-ticker.C:
		}
	}
}
