package upload

import (
	"time"

	"photovault/pkg/logger"
)

const (
	// DefaultBatchTTL is how long a terminal batch stays retrievable so the
	// caller can re-read its itemized result.
	DefaultBatchTTL = 30 * time.Minute

	// DefaultAbandonedTTL is the cutoff for batches that never reached
	// commit: parked AwaitingDecisions handles whose caller walked away.
	DefaultAbandonedTTL = 4 * time.Hour

	DefaultSweepInterval = 10 * time.Minute
)

// StartJanitor sweeps the batch registry periodically so abandoned handles
// (and the file bytes still held by uncommitted ones) do not accumulate.
// Runs until stop is closed.
func (o *Orchestrator) StartJanitor(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.sweep(time.Now())
		}
	}
}

func (o *Orchestrator) sweep(now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for id, batch := range o.batches {
		age := now.Sub(batch.CreatedAt)

		batch.mu.Lock()
		expired := (batch.terminal() && age > DefaultBatchTTL) ||
			(!batch.terminal() && batch.status != StatusCommitting && age > DefaultAbandonedTTL)
		batch.mu.Unlock()

		if expired {
			delete(o.batches, id)
			removed++
		}
	}

	if removed > 0 {
		logger.LogInfo("Batch janitor removed %d expired handles.", removed)
	}
}
