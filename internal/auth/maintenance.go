// Copyright (c) 2026 Cobalt. All rights reserved.

package auth

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically purges expired refresh-token rows.
//
// Expiry is otherwise detected lazily at lookup time; the sweep only
// reclaims storage and keeps the tokenhash index compact. It never runs on
// the request path.
type Sweeper struct {
	tokenRepository RefreshTokenRepository
	interval        time.Duration
	logger          *slog.Logger
}

// NewSweeper constructs a sweeper over the refresh-token store.
func NewSweeper(tokenRepo RefreshTokenRepository, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		tokenRepository: tokenRepo,
		interval:        interval,
		logger:          logger,
	}
}

// Run executes the sweep loop until ctx is cancelled. Intended to be
// launched once as a background goroutine at startup.
func (sweeper *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sweeper.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweeper.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// sweep performs a single purge pass.
func (sweeper *Sweeper) sweep(ctx context.Context) {
	deleted, err := sweeper.tokenRepository.DeleteExpired(ctx)
	if err != nil {
		sweeper.logger.ErrorContext(ctx, "token_sweep_failed", slog.Any("error", err))
		return
	}

	if deleted > 0 {
		sweeper.logger.InfoContext(ctx, "token_sweep_completed", slog.Int64("deleted", deleted))
	}
}
