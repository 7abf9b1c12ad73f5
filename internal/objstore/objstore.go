// Package objstore abstracts the two remote collaborators: object storage
// for photo bytes and the durable remote copy of each user's metadata
// database file. Both are served by the same backend, selected by config.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"photovault/internal/config"
)

var (
	// ErrStorageWrite and ErrStorageRead classify collaborator failures for
	// the per-item retry/failure accounting in the orchestrator.
	ErrStorageWrite = errors.New("object storage write failed")
	ErrStorageRead  = errors.New("object storage read failed")

	// ErrRemoteNotFound distinguishes "no remote copy yet" (a normal
	// first-use case for restore) from real transfer failures.
	ErrRemoteNotFound = errors.New("remote object not found")
)

// ObjectStorage stores photo bytes under opaque keys. Put returns the
// durable path the metadata row should record.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// RemoteCopier moves whole files between local disk and the remote durable
// location. Used only by the sync engine.
type RemoteCopier interface {
	UploadFile(ctx context.Context, localPath string, remotePath string) error
	DownloadFile(ctx context.Context, remotePath string, localPath string) error
}

var reIllegalKeyChars = regexp.MustCompile(`[^\w\-.]`)

// SanitizeFilename makes a user-supplied filename safe for use inside an
// object key.
func SanitizeFilename(filename string) string {
	if filename == "" {
		return "unnamed"
	}
	return reIllegalKeyChars.ReplaceAllString(filename, "_")
}

// ObjectKey builds the {user_id}/{category}/{name} layout shared by photo
// originals, thumbnails and metadata DB copies.
func ObjectKey(userID, category, name string) string {
	return fmt.Sprintf("%s/%s/%s", SanitizeFilename(userID), category, SanitizeFilename(name))
}

// Backend satisfies both collaborator roles.
type Backend interface {
	ObjectStorage
	RemoteCopier
}

// New selects the storage backend from config.
func New(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Backend(cfg.S3)
	case "filesystem":
		return NewFilesystemBackend(cfg.Dir)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
