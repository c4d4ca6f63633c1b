package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Cleaner is the slice of ports.PostService the sweeper drives.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically removes expired posts for stores that have no native
// TTL. Runs never overlap.
type Sweeper struct {
	cron    *cron.Cron
	cleaner Cleaner
	timeout time.Duration
}

// NewSweeper schedules cleaner on schedule, a standard cron expression or a
// descriptor such as "@every 1m".
func NewSweeper(cleaner Cleaner, schedule string) (*Sweeper, error) {
	logger := slogAdapter{}
	s := &Sweeper{
		cron: cron.New(cron.WithLogger(logger), cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		)),
		cleaner: cleaner,
		timeout: 30 * time.Second,
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	slog.Info("🧹 Expiry sweeper started")
	s.cron.Start()
}

// Stop prevents new runs and waits for a running one, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		slog.Warn("Sweeper did not stop in time")
	}
}

// RunOnce performs a single sweep. Errors are logged; the next tick retries.
func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.cleaner.CleanupExpired(ctx)
	if err != nil {
		slog.Error("Expiry sweep failed", "error", err)
		return 0
	}
	if n > 0 {
		slog.Debug("Expiry sweep done", "deleted", n)
	}
	return n
}

// slogAdapter routes cron's internal logging through slog.
type slogAdapter struct{}

func (slogAdapter) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
