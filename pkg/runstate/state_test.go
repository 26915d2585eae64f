package runstate

import (
	"context"
	"testing"
	"time"
)

func TestStatus_Percent(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected float64
	}{
		{"unknown total", Status{}, 0},
		{"half resolved", Status{TotalBatches: 4, CompletedBatches: 1, FailedBatches: 1}, 50},
		{"all resolved", Status{TotalBatches: 3, CompletedBatches: 3}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Percent(); got != tt.expected {
				t.Errorf("Percent() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatus_IsStale(t *testing.T) {
	fresh := Status{UpdatedAt: time.Now()}
	if fresh.IsStale(time.Minute) {
		t.Error("fresh status reported stale")
	}

	old := Status{UpdatedAt: time.Now().Add(-10 * time.Minute)}
	if !old.IsStale(5 * time.Minute) {
		t.Error("old status not reported stale")
	}
}

func TestKey(t *testing.T) {
	if got := Key("snapshot-1"); got != "snapshot:run:snapshot-1" {
		t.Errorf("Key() = %q, want snapshot:run:snapshot-1", got)
	}
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	if err := r.Record(context.Background(), Status{BatchID: "x"}); err != nil {
		t.Errorf("Nop.Record() error = %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := parseStatus(map[string]string{
		"batch_id":          "snapshot-1",
		"state":             "processing_batches",
		"current_batch":     "2",
		"total_batches":     "5",
		"completed_batches": "1",
		"failed_batches":    "1",
		"items_processed":   "10",
		"items_failed":      "2",
		"updated_at":        "2026-01-02T03:04:05Z",
	})
	if err != nil {
		t.Fatalf("parseStatus() error = %v", err)
	}

	if s.CurrentBatch != 2 || s.TotalBatches != 5 || s.ItemsProcessed != 10 {
		t.Errorf("parseStatus() = %+v", s)
	}
	if !s.UpdatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", s.UpdatedAt)
	}
}

func TestParseStatus_Invalid(t *testing.T) {
	if _, err := parseStatus(map[string]string{"total_batches": "many"}); err == nil {
		t.Error("parseStatus() error = nil, want parse error")
	}
	if _, err := parseStatus(map[string]string{"updated_at": "yesterday"}); err == nil {
		t.Error("parseStatus() error = nil, want parse error")
	}
}
