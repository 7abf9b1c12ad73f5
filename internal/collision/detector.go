// Package collision classifies a batch of candidate filenames against the
// user's current metadata and turns explicit user decisions into an upload
// plan. Detection never mutates anything.
package collision

import (
	"time"

	"photovault/internal/appinfo"
	"photovault/internal/database"
	"photovault/pkg/logger"
)

// Record describes the existing photo a candidate filename collides with.
// It carries the descriptive fields the UI needs to render a "replace or
// keep?" prompt.
type Record struct {
	ExistingID string     `json:"existing_id"`
	Filename   string     `json:"filename"`
	UploadedAt time.Time  `json:"uploaded_at"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	FileSize   int64      `json:"file_size"`
	MimeType   string     `json:"mime_type"`
}

// Warning records a store lookup that failed during detection. The filename
// was treated as non-colliding; the warning is kept so the caller can
// surface it to observability.
type Warning struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// Detect performs one point lookup per distinct filename and maps each hit
// to a Record. A failed lookup is treated as "no collision" (fail-open):
// upload availability outranks collision-detection completeness, so a
// missed collision is acceptable where blocking a valid new upload is not.
func Detect(store *database.Store, filenames []string) (map[string]Record, []Warning) {
	collisions := make(map[string]Record)
	var warnings []Warning

	seen := make(map[string]struct{}, len(filenames))
	for _, name := range filenames {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		existing, err := store.FindByFilename(name)
		if err != nil {
			logger.LogWarn("Collision check failed for %q, treating as new upload: %v", name, err)
			warnings = append(warnings, Warning{Filename: name, Reason: err.Error()})
			continue
		}
		if existing == nil {
			continue
		}

		collisions[name] = Record{
			ExistingID: existing.ID,
			Filename:   existing.Filename,
			UploadedAt: existing.UploadedAt,
			CreatedAt:  existing.CreatedAt,
			FileSize:   existing.FileSize,
			MimeType:   existing.MimeType,
		}
	}

	if len(collisions) > 0 {
		appinfo.CollisionsDetected.Add(int64(len(collisions)))
	}
	return collisions, warnings
}
