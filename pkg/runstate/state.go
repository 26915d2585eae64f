// Package runstate publishes the live status of a snapshot run so that
// operators can follow it from outside the process. Status snapshots are
// advisory: a failing recorder never affects the run.
package runstate

import (
	"context"
	"time"
)

// Redis keys for run status storage.
const (
	RedisKeyPrefix = "snapshot:run:"
	RedisKeyLatest = "snapshot:run:latest"
)

// DefaultTTL is how long a run's status is kept after its last update.
const DefaultTTL = 24 * time.Hour

// Status is a point-in-time view of a run.
type Status struct {
	BatchID          string    `json:"batch_id"`
	State            string    `json:"state"`
	CurrentBatch     int       `json:"current_batch"`
	TotalBatches     int       `json:"total_batches"`
	CompletedBatches int       `json:"completed_batches"`
	FailedBatches    int       `json:"failed_batches"`
	ItemsProcessed   int       `json:"items_processed"`
	ItemsFailed      int       `json:"items_failed"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Percent is the share of TotalBatches resolved so far.
func (s *Status) Percent() float64 {
	if s.TotalBatches == 0 {
		return 0
	}
	return float64(s.CompletedBatches+s.FailedBatches) / float64(s.TotalBatches) * 100
}

// IsStale returns true if the status is older than maxAge.
func (s *Status) IsStale(maxAge time.Duration) bool {
	return time.Since(s.UpdatedAt) > maxAge
}

// Key returns the Redis key of the run's status hash.
func Key(batchID string) string {
	return RedisKeyPrefix + batchID
}

// Recorder receives status snapshots of a run.
type Recorder interface {
	Record(ctx context.Context, s Status) error
}

// Nop discards every status.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Status) error { return nil }
