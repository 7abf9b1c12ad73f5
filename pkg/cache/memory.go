// Package cache provides a thread-safe, in-memory key-value store with
// TTL-based expiration and active memory management (eviction). It fronts
// the read endpoints; writes invalidate per-user entries.
package cache

import (
	"sort"
	"sync"
	"time"

	"photovault/pkg/logger"
	"photovault/pkg/utils"
)

const (
	DefaultMaxSizeMB = 50
	DefaultTTL       = 5 * time.Minute

	// GCInterval: Expired items cleanup frequency.
	GCInterval = 5 * time.Minute

	// MonitorInterval: Heartbeat logging.
	MonitorInterval = 30 * time.Minute
)

type Item struct {
	Data      []byte
	ExpiresAt time.Time
	Size      int64
}

type MemoryCache struct {
	sync.RWMutex
	items     map[string]Item
	totalSize int64
	maxSize   int64
	ttl       time.Duration
	enabled   bool
}

// New initializes the in-memory cache. A disabled cache runs in
// pass-through mode: every Get misses, every Set is a no-op.
func New(enabled bool, maxCapacityMB int, ttl time.Duration) *MemoryCache {
	if maxCapacityMB <= 0 {
		maxCapacityMB = DefaultMaxSizeMB
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &MemoryCache{
		maxSize: int64(maxCapacityMB) * 1024 * 1024,
		ttl:     ttl,
		enabled: enabled,
	}

	if c.enabled {
		c.items = make(map[string]Item)

		go c.startGC()
		go c.startMonitor()

		logger.LogInfo("Memory Cache Initialized: %d MB Limit, TTL: %s", maxCapacityMB, ttl)
	} else {
		logger.LogWarn("Memory Cache is DISABLED via config (Running in pass-through mode).")
	}
	return c
}

// Set stores a value with the configured TTL. Items larger than half the
// cache are refused outright.
func (c *MemoryCache) Set(key string, data []byte) {
	if !c.enabled {
		return
	}

	c.Lock()
	defer c.Unlock()

	size := int64(len(data))
	if size > c.maxSize/2 {
		return
	}

	if old, exists := c.items[key]; exists {
		c.totalSize -= old.Size
	}

	// Evict oldest entries until the new item fits.
	if c.totalSize+size > c.maxSize {
		c.evictOldestLocked(c.totalSize + size - c.maxSize)
	}

	c.items[key] = Item{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
		Size:      size,
	}
	c.totalSize += size
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	c.RLock()
	item, exists := c.items[key]
	c.RUnlock()

	if !exists || time.Now().After(item.ExpiresAt) {
		return nil, false
	}
	return item.Data, true
}

func (c *MemoryCache) Delete(key string) {
	if !c.enabled {
		return
	}

	c.Lock()
	defer c.Unlock()

	if item, exists := c.items[key]; exists {
		c.totalSize -= item.Size
		delete(c.items, key)
	}
}

// evictOldestLocked frees at least bytesNeeded by removing the entries
// closest to expiration. Caller holds the write lock.
func (c *MemoryCache) evictOldestLocked(bytesNeeded int64) {
	type entry struct {
		key       string
		expiresAt time.Time
		size      int64
	}

	entries := make([]entry, 0, len(c.items))
	for k, v := range c.items {
		entries = append(entries, entry{k, v.ExpiresAt, v.Size})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].expiresAt.Before(entries[j].expiresAt)
	})

	var freed int64
	for _, e := range entries {
		if freed >= bytesNeeded {
			break
		}
		delete(c.items, e.key)
		c.totalSize -= e.size
		freed += e.size
	}
}

func (c *MemoryCache) startGC() {
	ticker := time.NewTicker(GCInterval)
	for range ticker.C {
		now := time.Now()

		c.Lock()
		for k, v := range c.items {
			if now.After(v.ExpiresAt) {
				c.totalSize -= v.Size
				delete(c.items, k)
			}
		}
		c.Unlock()
	}
}

func (c *MemoryCache) startMonitor() {
	ticker := time.NewTicker(MonitorInterval)
	for range ticker.C {
		c.RLock()
		count := len(c.items)
		size := c.totalSize
		c.RUnlock()

		logger.LogInfo("Cache Heartbeat - Items: %d | RAM: %s", count, utils.FormatBytes(size))
	}
}
