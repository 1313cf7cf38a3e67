// Package retention runs the periodic cleanup that deletes events older
// than the configured age. The sweep is idempotent and non-transactional:
// it only removes rows strictly older than a cutoff no in-flight
// aggregation would still target, so it coexists safely with normal writes.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/logifywp/logify/internal/config"
	"github.com/logifywp/logify/internal/event"
)

// lockKey is the Redis key electing one replica to run each sweep.
const lockKey = "logify:retention:lock"

// Service owns the retention sweep loop.
type Service struct {
	repo     event.Repository
	rdb      *redis.Client
	interval time.Duration
	maxAge   time.Duration
}

// NewService creates the retention service. A zero RetentionDays disables
// it: Run returns immediately.
func NewService(repo event.Repository, rdb *redis.Client, cfg config.TrackingConfig) *Service {
	return &Service{
		repo:     repo,
		rdb:      rdb,
		interval: cfg.CleanupInterval,
		maxAge:   time.Duration(cfg.RetentionDays) * 24 * time.Hour,
	}
}

// Run sweeps once at startup and then on every interval tick until the
// context is cancelled. Call from a goroutine.
func (s *Service) Run(ctx context.Context) {
	if s.maxAge <= 0 {
		slog.Info("event retention cleanup disabled")
		return
	}

	slog.Info("event retention cleanup started",
		slog.Duration("interval", s.interval),
		slog.Duration("max_age", s.maxAge),
	)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep deletes events older than the retention cutoff. A short Redis lock
// elects one replica per interval; if Redis is unavailable the sweep runs
// anyway -- a concurrent duplicate sweep deletes the same rows and is
// harmless.
func (s *Service) Sweep(ctx context.Context) {
	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, lockKey, 1, s.interval/2).Result()
		if err == nil && !ok {
			slog.Debug("retention sweep skipped, another replica holds the lock")
			return
		}
	}

	cutoff := time.Now().Add(-s.maxAge)
	purged, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("retention sweep failed", slog.Any("error", err))
		return
	}
	if purged > 0 {
		slog.Info("retention sweep purged events",
			slog.Int64("purged", purged),
			slog.Time("cutoff", cutoff),
		)
	}
}
