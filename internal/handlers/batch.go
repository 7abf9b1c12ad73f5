package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"photovault/internal/collision"
	"photovault/internal/upload"
	"photovault/pkg/utils"
)

const (
	// DefaultMaxUploadSize caps a whole multipart request when config gives
	// no per-file limit to derive from.
	DefaultMaxUploadSize = 256 << 20 // 256 MB
)

type submitResponse struct {
	BatchID    string                      `json:"batch_id"`
	Status     upload.BatchStatus          `json:"status"`
	Collisions map[string]collision.Record `json:"collisions,omitempty"`
	Warnings   []collision.Warning         `json:"warnings,omitempty"`
}

// SubmitBatch accepts a multipart batch under the "photos" field, runs
// collision detection and parks or clears the batch. No bytes reach
// storage here. An optional "capture_times" form field carries a JSON
// object of filename -> RFC3339 capture time.
func (h *Handlers) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, DefaultMaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestBodyTooLarge, "Batch exceeds size limit or is not multipart.")
		return
	}

	captureTimes := map[string]time.Time{}
	if raw := r.FormValue("capture_times"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &captureTimes); err != nil {
			utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "capture_times must be a JSON object of filename to RFC3339 time.")
			return
		}
	}

	parts := r.MultipartForm.File["photos"]
	if len(parts) == 0 {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "At least one file under the 'photos' field is required.")
		return
	}

	files := make([]upload.File, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Unreadable file part: "+part.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Unreadable file part: "+part.Filename)
			return
		}

		file := upload.File{
			Filename: part.Filename,
			Data:     data,
			MimeType: part.Header.Get("Content-Type"),
		}
		if t, ok := captureTimes[part.Filename]; ok {
			captured := t
			file.CapturedAt = &captured
		}
		files = append(files, file)
	}

	batch, err := h.orch.Submit(r.Context(), userID, files)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, submitResponse{
		BatchID:    batch.ID,
		Status:     batch.Status(),
		Collisions: batch.Collisions(),
		Warnings:   batch.Warnings(),
	})
}

func (h *Handlers) batchForRequest(w http.ResponseWriter, r *http.Request) (*upload.Batch, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}

	batch, err := h.orch.Get(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, utils.ErrBatchNotFound, "Unknown batch handle.")
		return nil, false
	}
	if batch.UserID != userID {
		// Handles are scoped to their owner; do not leak existence.
		utils.WriteError(w, http.StatusNotFound, utils.ErrBatchNotFound, "Unknown batch handle.")
		return nil, false
	}
	return batch, true
}

func (h *Handlers) BatchStatus(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.batchForRequest(w, r)
	if !ok {
		return
	}

	resp := map[string]interface{}{
		"batch_id": batch.ID,
		"status":   batch.Status(),
	}
	if result := batch.Result(); result != nil {
		resp["result"] = result
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ListCollisions(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.batchForRequest(w, r)
	if !ok {
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"batch_id":   batch.ID,
		"status":     batch.Status(),
		"collisions": batch.Collisions(),
	})
}

// ResolveCollisions records explicit overwrite/skip decisions. Body is a
// JSON object of filename -> decision.
func (h *Handlers) ResolveCollisions(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.batchForRequest(w, r)
	if !ok {
		return
	}

	var raw map[string]string
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Body must be a JSON object of filename to decision.")
		return
	}

	decisions := make(map[string]collision.Decision, len(raw))
	for name, value := range raw {
		decision, err := collision.ParseDecision(value)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, err.Error())
			return
		}
		decisions[name] = decision
	}

	if err := h.orch.ResolveCollisions(batch.ID, decisions); err != nil {
		if errors.Is(err, upload.ErrBatchState) {
			utils.WriteError(w, http.StatusConflict, utils.ErrBatchInvalidState, err.Error())
			return
		}
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"batch_id": batch.ID,
		"status":   batch.Status(),
	})
}

// Commit runs the write phase and returns the itemized result. A batch
// with unresolved collisions stays parked and returns the pending set.
func (h *Handlers) Commit(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.batchForRequest(w, r)
	if !ok {
		return
	}

	result, err := h.orch.Commit(r.Context(), batch.ID)
	if err != nil {
		var pending *upload.AwaitingDecisionsError
		if errors.As(err, &pending) {
			utils.WriteJSON(w, http.StatusConflict, map[string]interface{}{
				"code":     utils.ErrBatchAwaitingDecision,
				"batch_id": batch.ID,
				"status":   upload.StatusAwaitingDecisions,
				"pending":  pending.Pending,
			})
			return
		}
		if errors.Is(err, upload.ErrBatchState) {
			utils.WriteError(w, http.StatusConflict, utils.ErrBatchInvalidState, err.Error())
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, err.Error())
		return
	}

	// Listings for this user are stale now.
	h.bumpGeneration(batch.UserID)

	utils.WriteJSON(w, http.StatusOK, result)
}
