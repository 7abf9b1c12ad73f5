// Package syncer keeps each user's local metadata database consistent with
// a remote durable copy: restore on session start, backup after mutation.
// Once a local write is acknowledged, durability versus the remote copy
// lags by backup latency, bounded by the retry ceiling. Eventually backed
// up, never eventually lost.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"photovault/internal/appinfo"
	"photovault/internal/database"
	"photovault/internal/objstore"
	"photovault/pkg/logger"
)

// ErrSyncFailed wraps backup/restore failures. These are internal and
// asynchronous; they are never surfaced as user-facing upload failures.
var ErrSyncFailed = errors.New("metadata sync failed")

type Options struct {
	Enabled        bool
	RemotePrefix   string
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	AttemptTimeout time.Duration
}

func (o *Options) withDefaults() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 500 * time.Millisecond
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = 30 * time.Second
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 60 * time.Second
	}
}

// backupState implements single-flight coalescing per user: at most one
// in-flight backup, and any triggers arriving meanwhile collapse into one
// trailing run that carries the final state.
type backupState struct {
	running bool
	dirty   bool
}

type Engine struct {
	manager *database.Manager
	remote  objstore.RemoteCopier
	opts    Options

	mu     sync.Mutex
	states map[string]*backupState
	wg     sync.WaitGroup
}

func NewEngine(manager *database.Manager, remote objstore.RemoteCopier, opts Options) *Engine {
	opts.withDefaults()
	return &Engine{
		manager: manager,
		remote:  remote,
		opts:    opts,
		states:  make(map[string]*backupState),
	}
}

// remotePath is the well-known remote location of a user's metadata copy.
func (e *Engine) remotePath(userID string) string {
	return objstore.ObjectKey(userID, e.opts.RemotePrefix, "vault.db")
}

// Restore materializes the remote metadata copy locally on session start.
// A missing local file plus a missing remote copy is the first-use case and
// not an error. A transfer failure is an error: silently starting fresh
// here would let the next backup clobber the durable copy.
func (e *Engine) Restore(ctx context.Context, userID string) error {
	if !e.opts.Enabled {
		return nil
	}
	if e.manager.HasLocal(userID) {
		return nil
	}

	localPath := e.manager.PathFor(userID)
	remotePath := e.remotePath(userID)

	attemptCtx, cancel := context.WithTimeout(ctx, e.opts.AttemptTimeout)
	defer cancel()

	err := e.remote.DownloadFile(attemptCtx, remotePath, localPath)
	if errors.Is(err, objstore.ErrRemoteNotFound) {
		logger.LogInfo("No remote metadata copy for user %s; starting with a fresh store.", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: restore for user %s: %v", ErrSyncFailed, userID, err)
	}

	logger.LogInfo("Restored metadata store for user %s from %s", userID, remotePath)
	return nil
}

// Schedule triggers a backup for the user, fire-and-forget. Bursts of
// writes coalesce: one in-flight backup per user, later triggers fold into
// a single trailing run rather than queueing.
func (e *Engine) Schedule(userID string) {
	if !e.opts.Enabled {
		return
	}

	e.mu.Lock()
	st, ok := e.states[userID]
	if !ok {
		st = &backupState{}
		e.states[userID] = st
	}
	if st.running {
		st.dirty = true
		e.mu.Unlock()
		return
	}
	st.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.runBackupLoop(userID)
}

func (e *Engine) runBackupLoop(userID string) {
	defer e.wg.Done()

	for {
		if err := e.BackupNow(context.Background(), userID); err != nil {
			appinfo.BackupsFailed.Add(1)
			logger.LogError("Backup for user %s failed: %v", userID, err)
		} else {
			appinfo.BackupsCompleted.Add(1)
		}

		e.mu.Lock()
		st := e.states[userID]
		if st.dirty {
			st.dirty = false
			e.mu.Unlock()
			continue
		}
		st.running = false
		e.mu.Unlock()
		return
	}
}

// BackupNow snapshots the user's store and uploads it, retrying transfer
// failures on a bounded backoff. Synchronous; Schedule is the fire-and-
// forget path. The snapshot is taken once per call, so retries ship a
// consistent image.
func (e *Engine) BackupNow(ctx context.Context, userID string) error {
	store, err := e.manager.Acquire(userID)
	if err != nil {
		return fmt.Errorf("%w: cannot open store for user %s: %v", ErrSyncFailed, userID, err)
	}

	tmp, err := os.CreateTemp("", "vault-backup-*.db")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	// VACUUM INTO refuses to overwrite an existing file.
	os.Remove(tmpPath)
	defer os.Remove(tmpPath)

	snapCtx, cancel := context.WithTimeout(ctx, e.opts.AttemptTimeout)
	err = store.SnapshotTo(snapCtx, tmpPath)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}

	remotePath := e.remotePath(userID)
	b := &backoff.Backoff{
		Min:    e.opts.RetryBaseDelay,
		Max:    e.opts.RetryMaxDelay,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, e.opts.AttemptTimeout)
		lastErr = e.remote.UploadFile(attemptCtx, tmpPath, remotePath)
		cancel()

		if lastErr == nil {
			return nil
		}

		if attempt < e.opts.MaxRetries {
			delay := b.Duration()
			logger.LogWarn("Backup attempt %d/%d for user %s failed (%v), retrying in %s",
				attempt, e.opts.MaxRetries, userID, lastErr, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrSyncFailed, ctx.Err())
			}
		}
	}

	return fmt.Errorf("%w: gave up after %d attempts: %v", ErrSyncFailed, e.opts.MaxRetries, lastErr)
}

// Wait blocks until all in-flight backups finish. Used on shutdown so a
// final burst of writes still reaches the remote copy.
func (e *Engine) Wait() {
	e.wg.Wait()
}
