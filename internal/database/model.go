package database

import (
	"time"
)

// Photo is one record per stored asset. A record is created on the first
// successful upload of a filename and mutated only by a later upload that
// carries the same filename and an explicit overwrite decision.
//
// ID and CreatedAt survive an overwrite; every other mutable field is
// replaced wholesale.
type Photo struct {
	ID     string `gorm:"primaryKey;type:text" json:"id"`
	UserID string `gorm:"type:text;index:idx_photos_user_filename,unique" json:"user_id"`

	// Filename is unique per user at any point in time, enforced by
	// idx_photos_user_filename. The same name may reappear over time via
	// overwrites, never as a second active row.
	Filename string `gorm:"type:text;index:idx_photos_user_filename,unique" json:"filename"`

	OriginalPath  string `gorm:"type:text" json:"original_path"`
	ThumbnailPath string `gorm:"type:text" json:"thumbnail_path"`

	// CreatedAt is the best-effort capture time. Nullable; set once at
	// first insert. Auto-timestamping is disabled so a nil stays nil.
	CreatedAt *time.Time `gorm:"column:created_at;autoCreateTime:false" json:"created_at"`

	// UploadedAt is the wall-clock time of the write that produced the
	// current record version.
	UploadedAt time.Time `json:"uploaded_at"`

	FileSize int64  `json:"file_size"`
	MimeType string `gorm:"type:text" json:"mime_type"`
}

func (Photo) TableName() string {
	return "photos"
}
