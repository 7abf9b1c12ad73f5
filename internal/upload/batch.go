package upload

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"photovault/internal/collision"
)

// BatchStatus is the batch state machine:
//
//	Validated -> Detected -> AwaitingDecisions? -> Committing
//	          -> Completed | PartiallyCompleted
type BatchStatus string

const (
	StatusValidated          BatchStatus = "validated"
	StatusDetected           BatchStatus = "detected"
	StatusAwaitingDecisions  BatchStatus = "awaiting_decisions"
	StatusCommitting         BatchStatus = "committing"
	StatusCompleted          BatchStatus = "completed"
	StatusPartiallyCompleted BatchStatus = "partially_completed"
)

var (
	ErrBatchNotFound = errors.New("batch not found")

	// ErrBatchState means the requested operation does not apply to the
	// batch's current state, e.g. committing twice.
	ErrBatchState = errors.New("operation not valid for batch state")
)

// AwaitingDecisionsError halts a commit that still has unresolved
// collisions. No storage or metadata writes have happened for any file.
type AwaitingDecisionsError struct {
	Pending []string
}

func (e *AwaitingDecisionsError) Error() string {
	return fmt.Sprintf("batch has %d collisions awaiting decision", len(e.Pending))
}

// File is one candidate upload: bytes plus the metadata the front end
// captured. Format and size validation beyond basic sanity is the caller's
// concern.
type File struct {
	Filename   string
	Data       []byte
	MimeType   string
	CapturedAt *time.Time
}

type ItemStatus string

const (
	ItemSucceeded ItemStatus = "succeeded"
	ItemFailed    ItemStatus = "failed"
	ItemSkipped   ItemStatus = "skipped"
)

// ItemResult reports the outcome for one filename. The caller must read
// these rather than inferring success from the batch-level status.
type ItemResult struct {
	Filename string     `json:"filename"`
	Status   ItemStatus `json:"status"`
	Reason   string     `json:"reason,omitempty"`
	PhotoID  string     `json:"photo_id,omitempty"`
	Action   string     `json:"action,omitempty"`
}

type BatchResult struct {
	BatchID string       `json:"batch_id"`
	Status  BatchStatus  `json:"status"`
	Items   []ItemResult `json:"items"`
}

// Batch is the explicit, per-handle state passed between submit, resolve
// and commit calls. Keeping it here instead of ambient session state makes
// batches resumable and safely concurrent across users.
type Batch struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	mu         sync.Mutex
	status     BatchStatus
	files      []File
	collisions map[string]collision.Record
	warnings   []collision.Warning
	decisions  map[string]collision.Decision
	result     *BatchResult
}

func (b *Batch) Status() BatchStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Collisions returns a copy of the detected collision set.
func (b *Batch) Collisions() map[string]collision.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]collision.Record, len(b.collisions))
	for k, v := range b.collisions {
		out[k] = v
	}
	return out
}

// Warnings returns the fail-open detection warnings recorded at submit.
func (b *Batch) Warnings() []collision.Warning {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]collision.Warning(nil), b.warnings...)
}

// Result returns the commit outcome, or nil while the batch has not
// finished committing.
func (b *Batch) Result() *BatchResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result
}

func (b *Batch) filenames() []string {
	names := make([]string, 0, len(b.files))
	for _, f := range b.files {
		names = append(names, f.Filename)
	}
	return names
}

func (b *Batch) fileByName(name string) *File {
	for i := range b.files {
		if b.files[i].Filename == name {
			return &b.files[i]
		}
	}
	return nil
}

func (b *Batch) terminal() bool {
	return b.status == StatusCompleted || b.status == StatusPartiallyCompleted
}
