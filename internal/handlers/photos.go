package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"photovault/internal/appinfo"
	"photovault/pkg/utils"
)

// RecentPhotos lists the user's photos by capture time descending. The
// serialized response is cached per user and deduped through singleflight,
// with the generation counter invalidating after commits.
func (h *Handlers) RecentPhotos(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit := utils.ParseInt(r.URL.Query().Get("limit"), 20, 1, 200)
	cacheKey := fmt.Sprintf("recent:%s:%d:g%d", userID, limit, h.generation(userID))

	if data, hit := h.cache.Get(cacheKey); hit {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.Write(data)
		return
	}

	payload, err, _ := h.listGroup.Do(cacheKey, func() (interface{}, error) {
		store, err := h.orch.AcquireStore(r.Context(), userID)
		if err != nil {
			return nil, err
		}

		photos, err := store.ListRecent(limit)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(map[string]interface{}{
			"user_id": userID,
			"count":   len(photos),
			"photos":  photos,
		})
		if err != nil {
			return nil, err
		}

		h.cache.Set(cacheKey, data)
		return data, nil
	})
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.Write(payload.([]byte))
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, appinfo.GetSnapshot())
}
