package worker

import (
	"context"
	"time"

	"libseat/internal/domain"
	"libseat/internal/models"

	"github.com/rs/zerolog"
)

// UserSource lists all users for the leaderboard export.
type UserSource interface {
	AllUsers(ctx context.Context) ([]models.User, error)
}

// LeaderboardWorker periodically mirrors the leaderboard into a Google
// spreadsheet for the library staff. Failures retry with backoff within
// one sync round, then wait for the next tick.
type LeaderboardWorker struct {
	users    UserSource
	sheets   domain.SheetsWriter
	interval time.Duration
	retry    RetryPolicy
	trigger  chan struct{}
	logger   *zerolog.Logger
}

func NewLeaderboardWorker(users UserSource, sheets domain.SheetsWriter, interval time.Duration, retry RetryPolicy, logger *zerolog.Logger) *LeaderboardWorker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &LeaderboardWorker{
		users:    users,
		sheets:   sheets,
		interval: interval,
		retry:    retry,
		trigger:  make(chan struct{}, 1),
		logger:   logger,
	}
}

// Trigger requests an out-of-band sync, for example after a completed
// reservation changes scores. Non-blocking; a pending trigger coalesces.
func (w *LeaderboardWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Start syncs once immediately, then on every tick until cancelled.
func (w *LeaderboardWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("leaderboard worker started")
	defer w.logger.Info().Msg("leaderboard worker stopped")

	w.syncWithRetry(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.syncWithRetry(ctx)
		case <-w.trigger:
			w.syncWithRetry(ctx)
		}
	}
}

func (w *LeaderboardWorker) syncWithRetry(ctx context.Context) {
	for attempt := 1; attempt <= w.retry.MaxRetries; attempt++ {
		err := w.syncOnce(ctx)
		if err == nil {
			return
		}
		w.logger.Warn().Err(err).Int("attempt", attempt).Msg("leaderboard sync failed")

		if attempt == w.retry.MaxRetries {
			w.logger.Error().Err(err).Msg("leaderboard sync gave up until next tick")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retry.NextDelay(attempt)):
		}
	}
}

func (w *LeaderboardWorker) syncOnce(ctx context.Context) error {
	users, err := w.users.AllUsers(ctx)
	if err != nil {
		return err
	}
	return w.sheets.UpdateLeaderboardSheet(ctx, users)
}
