// Package appinfo tracks process-wide counters for the stats endpoint.
// Values are updated atomically from the upload and sync paths.
package appinfo

import (
	"sync/atomic"
	"time"
)

var (
	StartTime time.Time

	TotalPhotosCount atomic.Int64
	TotalBytesStored atomic.Int64

	UploadsSucceeded   atomic.Int64
	UploadsFailed      atomic.Int64
	UploadsSkipped     atomic.Int64
	CollisionsDetected atomic.Int64

	BackupsCompleted atomic.Int64
	BackupsFailed    atomic.Int64
	StoresRecovered  atomic.Int64
)

// AddInitialStats folds the row count and byte total of a freshly opened
// per-user store into the process counters.
func AddInitialStats(count int64, totalSize int64) {
	TotalPhotosCount.Add(count)
	TotalBytesStored.Add(totalSize)
}

// RecordInsert accounts for a brand-new photo record.
func RecordInsert(size int64) {
	TotalPhotosCount.Add(1)
	TotalBytesStored.Add(size)
	UploadsSucceeded.Add(1)
}

// RecordOverwrite accounts for an overwrite: the row count is unchanged,
// only the byte delta moves.
func RecordOverwrite(oldSize, newSize int64) {
	TotalBytesStored.Add(newSize - oldSize)
	UploadsSucceeded.Add(1)
}

type Snapshot struct {
	UptimeSeconds      int64 `json:"uptime_seconds"`
	TotalPhotos        int64 `json:"total_photos"`
	TotalBytes         int64 `json:"total_bytes"`
	UploadsSucceeded   int64 `json:"uploads_succeeded"`
	UploadsFailed      int64 `json:"uploads_failed"`
	UploadsSkipped     int64 `json:"uploads_skipped"`
	CollisionsDetected int64 `json:"collisions_detected"`
	BackupsCompleted   int64 `json:"backups_completed"`
	BackupsFailed      int64 `json:"backups_failed"`
	StoresRecovered    int64 `json:"stores_recovered"`
}

func GetSnapshot() Snapshot {
	return Snapshot{
		UptimeSeconds:      int64(time.Since(StartTime).Seconds()),
		TotalPhotos:        TotalPhotosCount.Load(),
		TotalBytes:         TotalBytesStored.Load(),
		UploadsSucceeded:   UploadsSucceeded.Load(),
		UploadsFailed:      UploadsFailed.Load(),
		UploadsSkipped:     UploadsSkipped.Load(),
		CollisionsDetected: CollisionsDetected.Load(),
		BackupsCompleted:   BackupsCompleted.Load(),
		BackupsFailed:      BackupsFailed.Load(),
		StoresRecovered:    StoresRecovered.Load(),
	}
}
