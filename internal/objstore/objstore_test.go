package objstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "photo.jpg", SanitizeFilename("photo.jpg"))
	assert.Equal(t, "my_photo_1_.jpg", SanitizeFilename("my photo(1).jpg"))
	assert.Equal(t, "_.._secret", SanitizeFilename("/../secret"))
	assert.Equal(t, "unnamed", SanitizeFilename(""))
}

func TestObjectKeyLayout(t *testing.T) {
	assert.Equal(t, "alice/originals/beach.jpg", ObjectKey("alice", "originals", "beach.jpg"))
	assert.Equal(t, "user_1/metadata/vault.db", ObjectKey("user 1", "metadata", "vault.db"))
}

func TestFilesystemPutGetDelete(t *testing.T) {
	b, err := NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := b.Put(ctx, "alice/originals/a.jpg", []byte("bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "alice/originals/a.jpg", key)

	data, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), data)

	require.NoError(t, b.Delete(ctx, key))
	_, err = b.Get(ctx, key)
	assert.ErrorIs(t, err, ErrRemoteNotFound)

	// Deleting a missing key is not an error.
	assert.NoError(t, b.Delete(ctx, key))
}

func TestFilesystemRejectsEscapingKeys(t *testing.T) {
	b, err := NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.Put(ctx, "../outside", []byte("x"), "")
	assert.Error(t, err)

	_, err = b.Get(ctx, "/etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRemoteNotFound)
}

func TestFilesystemFileTransfer(t *testing.T) {
	b, err := NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "vault.db")
	require.NoError(t, os.WriteFile(src, []byte("sqlite-image"), 0640))

	require.NoError(t, b.UploadFile(ctx, src, "alice/metadata/vault.db"))

	dest := filepath.Join(t.TempDir(), "restored", "vault.db")
	require.NoError(t, b.DownloadFile(ctx, "alice/metadata/vault.db", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("sqlite-image"), data)

	// No stray temp file left behind.
	_, err = os.Stat(dest + ".download")
	assert.True(t, os.IsNotExist(err))
}

func TestFilesystemDownloadMissingRemote(t *testing.T) {
	b, err := NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "vault.db")
	err = b.DownloadFile(context.Background(), "nobody/metadata/vault.db", dest)
	assert.ErrorIs(t, err, ErrRemoteNotFound)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}
