package objstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemBackend stores objects as plain files under a base directory.
// It backs development mode and the test suite; the key layout mirrors the
// S3 backend so the two are interchangeable.
type FilesystemBackend struct {
	basePath string
}

func NewFilesystemBackend(basePath string) (*FilesystemBackend, error) {
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FilesystemBackend{basePath: basePath}, nil
}

// keyPath maps an object key onto the local filesystem, refusing keys that
// try to walk out of the base directory.
func (b *FilesystemBackend) keyPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("illegal object key %q", key)
	}
	return filepath.Join(b.basePath, clean), nil
}

func (b *FilesystemBackend) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	path, err := b.keyPath(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return key, nil
}

func (b *FilesystemBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}

	path, err := b.keyPath(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}
	return data, nil
}

func (b *FilesystemBackend) Delete(ctx context.Context, key string) error {
	path, err := b.keyPath(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}

func (b *FilesystemBackend) UploadFile(ctx context.Context, localPath string, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	_, err = b.Put(ctx, remotePath, data, "application/x-sqlite3")
	return err
}

func (b *FilesystemBackend) DownloadFile(ctx context.Context, remotePath string, localPath string) error {
	data, err := b.Get(ctx, remotePath)
	if err != nil {
		return err
	}

	tmp := localPath + ".download"
	if err := os.MkdirAll(filepath.Dir(localPath), 0750); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	return os.Rename(tmp, localPath)
}
