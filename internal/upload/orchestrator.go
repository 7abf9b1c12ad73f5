// Package upload drives a batch of candidate files end to end: validation,
// collision detection, decision application, storage writes and metadata
// writes, as one coordinated unit with per-item failure isolation.
package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"photovault/internal/appinfo"
	"photovault/internal/collision"
	"photovault/internal/database"
	"photovault/internal/objstore"
	"photovault/internal/syncer"
	"photovault/pkg/logger"
	"photovault/pkg/utils"
)

type Options struct {
	MaxFileSize       int64
	MaxBatchFiles     int
	CommitParallelism int
	StorageTimeout    time.Duration
}

func (o *Options) withDefaults() {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = 25 << 20
	}
	if o.MaxBatchFiles <= 0 {
		o.MaxBatchFiles = 100
	}
	if o.CommitParallelism <= 0 {
		o.CommitParallelism = 4
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 30 * time.Second
	}
}

// Orchestrator owns the in-memory batch registry and the commit pipeline.
// One orchestrator serves all users; per-user serialization happens on the
// store's batch lock.
type Orchestrator struct {
	manager *database.Manager
	storage objstore.ObjectStorage
	sync    *syncer.Engine
	opts    Options

	mu      sync.Mutex
	batches map[string]*Batch
}

func NewOrchestrator(manager *database.Manager, storage objstore.ObjectStorage, sync *syncer.Engine, opts Options) *Orchestrator {
	opts.withDefaults()
	return &Orchestrator{
		manager: manager,
		storage: storage,
		sync:    sync,
		opts:    opts,
		batches: make(map[string]*Batch),
	}
}

// AcquireStore runs restore-on-first-touch and opens the user's store.
// Every read path shares this so a fresh session sees its remote rows.
func (o *Orchestrator) AcquireStore(ctx context.Context, userID string) (*database.Store, error) {
	if err := o.sync.Restore(ctx, userID); err != nil {
		return nil, err
	}
	return o.manager.Acquire(userID)
}

// Submit validates a batch, detects collisions against current state and
// registers a handle. No storage or metadata writes happen here; a batch
// with collisions parks in AwaitingDecisions until every one is resolved.
func (o *Orchestrator) Submit(ctx context.Context, userID string, files []File) (*Batch, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("batch contains no files")
	}
	if len(files) > o.opts.MaxBatchFiles {
		return nil, fmt.Errorf("batch exceeds %d files", o.opts.MaxBatchFiles)
	}

	seen := make(map[string]struct{}, len(files))
	for i := range files {
		files[i].Filename = utils.NormalizeFilename(files[i].Filename)
		name := files[i].Filename

		if name == "" {
			return nil, fmt.Errorf("file %d has an empty filename", i)
		}
		if len(files[i].Data) == 0 {
			return nil, fmt.Errorf("file %q has no content", name)
		}
		if int64(len(files[i].Data)) > o.opts.MaxFileSize {
			return nil, fmt.Errorf("file %q exceeds the %s limit", name, utils.FormatBytes(o.opts.MaxFileSize))
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("batch contains %q twice", name)
		}
		seen[name] = struct{}{}
	}

	store, err := o.AcquireStore(ctx, userID)
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		status:    StatusValidated,
		files:     files,
		decisions: make(map[string]collision.Decision),
	}

	batch.collisions, batch.warnings = collision.Detect(store, batch.filenames())

	if len(batch.collisions) > 0 {
		batch.status = StatusAwaitingDecisions
	} else {
		batch.status = StatusDetected
	}

	o.mu.Lock()
	o.batches[batch.ID] = batch
	o.mu.Unlock()

	return batch, nil
}

// Get looks up a batch handle.
func (o *Orchestrator) Get(batchID string) (*Batch, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	batch, ok := o.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	return batch, nil
}

// ResolveCollisions records explicit user decisions for flagged filenames.
// Decisions for filenames that did not collide are rejected; partial
// resolution is fine, the batch just stays in AwaitingDecisions.
func (o *Orchestrator) ResolveCollisions(batchID string, decisions map[string]collision.Decision) error {
	batch, err := o.Get(batchID)
	if err != nil {
		return err
	}

	batch.mu.Lock()
	defer batch.mu.Unlock()

	if batch.status != StatusAwaitingDecisions && batch.status != StatusDetected {
		return fmt.Errorf("%w: %s", ErrBatchState, batch.status)
	}

	for name, decision := range decisions {
		if decision != collision.DecisionOverwrite && decision != collision.DecisionSkip {
			return fmt.Errorf("invalid decision %q for %q", decision, name)
		}
		if _, collides := batch.collisions[name]; !collides {
			return fmt.Errorf("no collision recorded for %q", name)
		}
		batch.decisions[name] = decision
	}

	// Still pending? The batch stays parked.
	plan := collision.Resolve(batch.filenames(), batch.collisions, batch.decisions)
	if plan.Ready() {
		batch.status = StatusDetected
	}
	return nil
}

// Commit executes the plan: for each item, object storage first, then
// metadata. Item failures never abort the rest of the batch. One backup is
// scheduled if at least one metadata write landed.
func (o *Orchestrator) Commit(ctx context.Context, batchID string) (*BatchResult, error) {
	batch, err := o.Get(batchID)
	if err != nil {
		return nil, err
	}

	batch.mu.Lock()
	if batch.terminal() || batch.status == StatusCommitting {
		defer batch.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrBatchState, batch.status)
	}

	plan := collision.Resolve(batch.filenames(), batch.collisions, batch.decisions)
	if !plan.Ready() {
		batch.status = StatusAwaitingDecisions
		batch.mu.Unlock()
		return nil, &AwaitingDecisionsError{Pending: plan.Pending}
	}

	batch.status = StatusCommitting
	batch.mu.Unlock()

	store, err := o.manager.Acquire(batch.UserID)
	if err != nil {
		// No item was attempted; put the batch back so a retry can commit it.
		batch.mu.Lock()
		batch.status = StatusDetected
		batch.mu.Unlock()
		return nil, err
	}

	// One in-flight batch per user: a concurrent commit for the same user
	// blocks here instead of racing the uniqueness invariant.
	store.LockBatch()
	defer store.UnlockBatch()

	results := make([]ItemResult, len(plan.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.CommitParallelism)

	for i, item := range plan.Items {
		g.Go(func() error {
			results[i] = o.commitItem(gctx, store, batch, item)
			return nil
		})
	}
	g.Wait()

	anySucceeded := false
	allSucceeded := true
	for _, res := range results {
		if res.Status == ItemSucceeded {
			anySucceeded = true
		} else {
			allSucceeded = false
		}
	}

	for _, name := range plan.Skipped {
		results = append(results, ItemResult{Filename: name, Status: ItemSkipped})
		appinfo.UploadsSkipped.Add(1)
	}

	status := StatusPartiallyCompleted
	if allSucceeded {
		status = StatusCompleted
	}

	result := &BatchResult{BatchID: batch.ID, Status: status, Items: results}

	batch.mu.Lock()
	batch.status = status
	batch.result = result
	// Bytes are no longer needed once items have been attempted.
	batch.files = nil
	batch.mu.Unlock()

	if anySucceeded {
		o.sync.Schedule(batch.UserID)
	}

	return result, nil
}

// commitItem writes one file: bytes to object storage first, then the
// metadata row. A storage failure skips the metadata write. A metadata
// failure after a successful storage write leaves an orphaned object;
// cleanup is best-effort reconciliation territory, so it is logged and the
// item reported failed, nothing more.
func (o *Orchestrator) commitItem(ctx context.Context, store *database.Store, batch *Batch, item collision.PlanItem) ItemResult {
	file := batch.fileByName(item.Filename)
	if file == nil {
		appinfo.UploadsFailed.Add(1)
		return ItemResult{Filename: item.Filename, Status: ItemFailed, Reason: "file missing from batch"}
	}

	key := objstore.ObjectKey(batch.UserID, "originals", item.Filename)

	putCtx, cancel := context.WithTimeout(ctx, o.opts.StorageTimeout)
	storedPath, err := o.storage.Put(putCtx, key, file.Data, file.MimeType)
	cancel()
	if err != nil {
		appinfo.UploadsFailed.Add(1)
		logger.LogError("Storage write failed for %s/%s: %v", batch.UserID, item.Filename, err)
		return ItemResult{Filename: item.Filename, Status: ItemFailed, Reason: fmt.Sprintf("storage write failed: %v", err)}
	}

	photo := database.Photo{
		UserID:       batch.UserID,
		Filename:     item.Filename,
		OriginalPath: storedPath,
		CreatedAt:    file.CapturedAt,
		UploadedAt:   time.Now().UTC(),
		FileSize:     int64(len(file.Data)),
		MimeType:     file.MimeType,
	}

	switch item.Action {
	case collision.ActionInsert:
		photo.ID = uuid.NewString()
		err = store.Insert(&photo)
		if err == nil {
			appinfo.RecordInsert(photo.FileSize)
		}
	case collision.ActionUpdate:
		photo.ID = item.ExistingID
		oldSize := int64(0)
		if rec, ok := batch.collisions[item.Filename]; ok {
			oldSize = rec.FileSize
		}
		err = store.Update(&photo)
		if err == nil {
			appinfo.RecordOverwrite(oldSize, photo.FileSize)
		}
	default:
		err = fmt.Errorf("unknown plan action %q", item.Action)
	}

	if err != nil {
		appinfo.UploadsFailed.Add(1)
		logger.LogError("Metadata write failed for %s/%s after storage write; object %s is orphaned until reconciliation: %v",
			batch.UserID, item.Filename, storedPath, err)
		return ItemResult{Filename: item.Filename, Status: ItemFailed, Reason: fmt.Sprintf("metadata write failed: %v", err)}
	}

	return ItemResult{
		Filename: item.Filename,
		Status:   ItemSucceeded,
		PhotoID:  photo.ID,
		Action:   string(item.Action),
	}
}
