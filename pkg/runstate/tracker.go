package runstate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var runstateWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "snapshot_runstate_writes_total",
	Help: "Total run status writes to Redis by result",
}, []string{"result"})

// Tracker stores run status in Redis.
type Tracker struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewTracker creates a Redis-backed recorder.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		ttl:    DefaultTTL,
		logger: logger,
	}
}

// SetTTL overrides how long a status is retained.
func (t *Tracker) SetTTL(ttl time.Duration) {
	t.ttl = ttl
}

// Record stores s as a hash under the run's key and points the latest key
// at it. Both writes go through one pipeline.
func (t *Tracker) Record(ctx context.Context, s Status) error {
	if s.BatchID == "" {
		return fmt.Errorf("record run status: empty batch id")
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}

	key := Key(s.BatchID)

	pipe := t.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"batch_id":          s.BatchID,
		"state":             s.State,
		"current_batch":     s.CurrentBatch,
		"total_batches":     s.TotalBatches,
		"completed_batches": s.CompletedBatches,
		"failed_batches":    s.FailedBatches,
		"items_processed":   s.ItemsProcessed,
		"items_failed":      s.ItemsFailed,
		"updated_at":        s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key, t.ttl)
	pipe.Set(ctx, RedisKeyLatest, s.BatchID, t.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		runstateWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("store run status in redis: %w", err)
	}
	runstateWritesTotal.WithLabelValues("ok").Inc()

	t.logger.Debug().
		Str("batch_id", s.BatchID).
		Str("state", s.State).
		Int("current_batch", s.CurrentBatch).
		Float64("progress_pct", s.Percent()).
		Msg("Run status recorded")

	return nil
}

// Get loads the status of the run identified by batchID.
// It returns redis.Nil when no status exists.
func (t *Tracker) Get(ctx context.Context, batchID string) (*Status, error) {
	fields, err := t.redis.HGetAll(ctx, Key(batchID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get run status: %w", err)
	}
	if len(fields) == 0 {
		return nil, redis.Nil
	}

	return parseStatus(fields)
}

// Latest loads the status of the most recently recorded run.
func (t *Tracker) Latest(ctx context.Context) (*Status, error) {
	batchID, err := t.redis.Get(ctx, RedisKeyLatest).Result()
	if err != nil {
		return nil, err
	}
	return t.Get(ctx, batchID)
}

func parseStatus(fields map[string]string) (*Status, error) {
	s := &Status{
		BatchID: fields["batch_id"],
		State:   fields["state"],
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"current_batch", &s.CurrentBatch},
		{"total_batches", &s.TotalBatches},
		{"completed_batches", &s.CompletedBatches},
		{"failed_batches", &s.FailedBatches},
		{"items_processed", &s.ItemsProcessed},
		{"items_failed", &s.ItemsFailed},
	}
	for _, f := range ints {
		raw, ok := fields[f.name]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = v
	}

	if raw := fields["updated_at"]; raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		s.UpdatedAt = ts
	}

	return s, nil
}
