package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"photovault/internal/appinfo"
	"photovault/pkg/logger"
)

// reUnsafePathChars strips anything that could escape the database directory
// when a user id is embedded in a filename.
var reUnsafePathChars = regexp.MustCompile(`[^\w\-.@]`)

// Manager is the per-user handle cache. Stores open lazily on first access
// in a session and stay open until Close. Access to the map is guarded by a
// mutex; each Store carries its own batch lock.
type Manager struct {
	dir string

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(dir string) *Manager {
	return &Manager{
		dir:    dir,
		stores: make(map[string]*Store),
	}
}

// PathFor returns the well-known local path of a user's database file,
// whether or not it exists yet.
func (m *Manager) PathFor(userID string) string {
	safe := reUnsafePathChars.ReplaceAllString(userID, "_")
	return filepath.Join(m.dir, safe+".db")
}

// HasLocal reports whether the user's database file already exists on disk.
// The sync engine uses this to decide between restore and fresh start.
func (m *Manager) HasLocal(userID string) bool {
	_, err := os.Stat(m.PathFor(userID))
	return err == nil
}

// Acquire returns the user's store, opening it on first access. A corrupt
// existing file is moved aside and replaced with a fresh empty store; that
// is an explicit data-loss event and is logged loudly, never silent.
func (m *Manager) Acquire(userID string) (*Store, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[userID]; ok {
		return s, nil
	}

	path := m.PathFor(userID)
	s, err := Open(path, userID)
	if errors.Is(err, ErrStoreUnavailable) {
		quarantine := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405Z"))
		logger.LogError("Metadata store for user %s is unreadable (%v). Moving it to %s and starting fresh. Rows not yet backed up are lost.",
			userID, err, quarantine)

		if renameErr := os.Rename(path, quarantine); renameErr != nil {
			return nil, fmt.Errorf("failed to quarantine corrupt store: %w", renameErr)
		}
		removeSidecars(path)
		appinfo.StoresRecovered.Add(1)

		s, err = Open(path, userID)
	}
	if err != nil {
		return nil, err
	}

	if count, size, statsErr := s.Stats(); statsErr == nil {
		appinfo.AddInitialStats(count, size)
	} else {
		logger.LogWarn("Failed to load initial stats for user %s: %v", userID, statsErr)
	}

	m.stores[userID] = s
	return s, nil
}

// removeSidecars drops the WAL and SHM files belonging to a quarantined
// database so the fresh store does not inherit them.
func removeSidecars(path string) {
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(path + suffix)
	}
}

// Close closes every open store. Used on shutdown and in tests.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for userID, s := range m.stores {
		if err := s.Close(); err != nil {
			logger.LogWarn("Failed to close store for user %s: %v", userID, err)
		}
		delete(m.stores, userID)
	}
}
