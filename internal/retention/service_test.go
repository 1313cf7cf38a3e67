package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/logifywp/logify/internal/config"
	"github.com/logifywp/logify/internal/event"
	"github.com/logifywp/logify/internal/subject"
)

// mockEventRepo implements event.Repository for testing.
type mockEventRepo struct {
	purgeFn func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockEventRepo) Save(ctx context.Context, e *event.Event) error { return nil }

func (m *mockEventRepo) Load(ctx context.Context, id int64) (*event.Event, error) {
	return nil, nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id int64) (bool, error) { return false, nil }

func (m *mockEventRepo) MostRecent(ctx context.Context, eventType string, objectType subject.Type, objectKey string) (*event.Event, error) {
	return nil, nil
}

func (m *mockEventRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.purgeFn != nil {
		return m.purgeFn(ctx, cutoff)
	}
	return 0, nil
}

func testConfig() config.TrackingConfig {
	return config.TrackingConfig{
		RetentionDays:   90,
		CleanupInterval: time.Hour,
	}
}

func TestSweep_PurgesWithRetentionCutoff(t *testing.T) {
	var gotCutoff time.Time
	repo := &mockEventRepo{
		purgeFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			gotCutoff = cutoff
			return 12, nil
		},
	}
	svc := NewService(repo, nil, testConfig())

	svc.Sweep(context.Background())

	want := time.Now().Add(-90 * 24 * time.Hour)
	if gotCutoff.IsZero() {
		t.Fatal("purge was not called")
	}
	if diff := gotCutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want about %v", gotCutoff, want)
	}
}

func TestSweep_LockElectsOneReplica(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	purges := 0
	repo := &mockEventRepo{
		purgeFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			purges++
			return 0, nil
		},
	}
	svc := NewService(repo, rdb, testConfig())

	// First sweep takes the lock; a second within the interval is skipped.
	svc.Sweep(context.Background())
	svc.Sweep(context.Background())

	if purges != 1 {
		t.Errorf("purges = %d, want 1 while the lock is held", purges)
	}

	// Once the lock expires the next sweep runs again.
	mr.FastForward(time.Hour)
	svc.Sweep(context.Background())
	if purges != 2 {
		t.Errorf("purges = %d, want 2 after lock expiry", purges)
	}
}

func TestSweep_RunsWithoutRedis(t *testing.T) {
	purges := 0
	repo := &mockEventRepo{
		purgeFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			purges++
			return 0, nil
		},
	}
	svc := NewService(repo, nil, testConfig())

	svc.Sweep(context.Background())
	if purges != 1 {
		t.Errorf("purges = %d, want 1", purges)
	}
}

func TestSweep_PurgeFailureDoesNotPanic(t *testing.T) {
	repo := &mockEventRepo{
		purgeFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			return 0, errors.New("connection lost")
		},
	}
	svc := NewService(repo, nil, testConfig())
	// Failure is logged and swallowed; the next tick retries.
	svc.Sweep(context.Background())
}

func TestRun_DisabledWithoutRetention(t *testing.T) {
	purges := 0
	repo := &mockEventRepo{
		purgeFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			purges++
			return 0, nil
		},
	}
	cfg := testConfig()
	cfg.RetentionDays = 0
	svc := NewService(repo, nil, cfg)

	// Run must return immediately rather than blocking on the ticker.
	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when retention is disabled")
	}
	if purges != 0 {
		t.Errorf("purges = %d, want 0", purges)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	svc := NewService(&mockEventRepo{}, nil, testConfig())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should stop when the context is cancelled")
	}
}
