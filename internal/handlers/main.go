// Package handlers exposes the caller-facing JSON API consumed by the
// UI/CLI layer: batch submission, collision review, decision recording,
// commit, and read endpoints.
package handlers

import (
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"photovault/internal/upload"
	"photovault/pkg/cache"
	"photovault/pkg/utils"
)

type Handlers struct {
	orch *upload.Orchestrator

	cache *cache.MemoryCache

	// listGroup dedupes concurrent identical listing reads.
	listGroup singleflight.Group

	// generations versions each user's listing cache; bumping it on commit
	// invalidates without enumerating keys.
	genMu       sync.Mutex
	generations map[string]uint64
}

func New(orch *upload.Orchestrator, c *cache.MemoryCache) *Handlers {
	return &Handlers{
		orch:        orch,
		cache:       c,
		generations: make(map[string]uint64),
	}
}

// Register wires the API routes onto the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/batches", h.SubmitBatch)
	mux.HandleFunc("GET /api/batches/{id}", h.BatchStatus)
	mux.HandleFunc("GET /api/batches/{id}/collisions", h.ListCollisions)
	mux.HandleFunc("POST /api/batches/{id}/decisions", h.ResolveCollisions)
	mux.HandleFunc("POST /api/batches/{id}/commit", h.Commit)
	mux.HandleFunc("GET /api/photos/recent", h.RecentPhotos)
	mux.HandleFunc("GET /api/stats", h.Stats)
}

// requireUser extracts the opaque user id the identity-aware proxy injects.
// Verifying the proxy's signature is its job, not ours.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-Auth-User")
	if userID == "" {
		utils.WriteError(w, http.StatusUnauthorized, utils.ErrAuthRequired, "Missing X-Auth-User header.")
		return "", false
	}
	return userID, true
}

func (h *Handlers) generation(userID string) uint64 {
	h.genMu.Lock()
	defer h.genMu.Unlock()
	return h.generations[userID]
}

func (h *Handlers) bumpGeneration(userID string) {
	h.genMu.Lock()
	h.generations[userID]++
	h.genMu.Unlock()
}
