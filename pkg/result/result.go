// Package result accumulates per-batch progress into the report of a run.
package result

import (
	"sort"
	"time"

	"github.com/Sternrassler/snapshot-orchestrator/pkg/progress"
)

// Failure is a failure record stamped with the batch that reported it.
type Failure struct {
	BatchNumber int
	progress.FailureRecord
}

// RunResult is the accumulator of one run. It is owned by a single
// goroutine; it is not safe for concurrent use.
type RunResult struct {
	BatchID string

	// TotalBatches is set once, from the first batch's response.
	TotalBatches int

	CompletedBatches int
	FailedBatches    int

	// Cumulative item counts.
	TotalProcessed int
	TotalFailed    int
	TotalStored    int

	Networks progress.NetworkBreakdown

	Failures         []Failure
	ErrorsByCategory map[string]int

	StartedAt time.Time
	Elapsed   time.Duration
}

// New returns an empty result for the run identified by batchID.
func New(batchID string, startedAt time.Time) *RunResult {
	return &RunResult{
		BatchID:          batchID,
		StartedAt:        startedAt,
		ErrorsByCategory: make(map[string]int),
	}
}

// Fold adds the progress of batch n into the cumulative totals.
// It must be called exactly once per resolved batch.
func (r *RunResult) Fold(p *progress.BatchProgress, n int) {
	if p == nil {
		return
	}
	if r.ErrorsByCategory == nil {
		r.ErrorsByCategory = make(map[string]int)
	}

	r.TotalProcessed += p.Processed
	r.TotalFailed += p.Failed
	r.TotalStored += p.Stored
	r.Networks = r.Networks.Add(p.Networks)

	for _, rec := range p.Errors {
		r.Failures = append(r.Failures, Failure{BatchNumber: n, FailureRecord: rec})
		r.ErrorsByCategory[rec.Category]++
	}
}

// ResolvedBatches is the number of batches that completed or failed.
func (r *RunResult) ResolvedBatches() int {
	return r.CompletedBatches + r.FailedBatches
}

// Percent is the share of TotalBatches resolved so far.
func (r *RunResult) Percent() float64 {
	if r.TotalBatches == 0 {
		return 0
	}
	return float64(r.ResolvedBatches()) / float64(r.TotalBatches) * 100
}

// CategoryCount is an error category with its number of occurrences.
type CategoryCount struct {
	Category string
	Count    int
}

// Categories returns the error categories ordered by count, then name.
func (r *RunResult) Categories() []CategoryCount {
	out := make([]CategoryCount, 0, len(r.ErrorsByCategory))
	for cat, n := range r.ErrorsByCategory {
		out = append(out, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
