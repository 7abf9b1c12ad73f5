package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "alice.db")
	s, err := Open(path, "alice")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ts(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return &parsed
}

func TestInsertAndFindByFilename(t *testing.T) {
	s := newTestStore(t)

	photo := &Photo{
		ID:           "photo-1",
		Filename:     "a.jpg",
		OriginalPath: "alice/originals/a.jpg",
		CreatedAt:    ts(t, "2024-03-01T10:00:00Z"),
		FileSize:     1234,
		MimeType:     "image/jpeg",
	}
	require.NoError(t, s.Insert(photo))

	found, err := s.FindByFilename("a.jpg")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "photo-1", found.ID)
	assert.Equal(t, "alice", found.UserID)
	assert.Equal(t, "a.jpg", found.Filename)
	assert.Equal(t, int64(1234), found.FileSize)
	assert.False(t, found.UploadedAt.IsZero())
}

func TestFindByFilenameAbsent(t *testing.T) {
	s := newTestStore(t)

	found, err := s.FindByFilename("missing.jpg")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestInsertDuplicateFilename(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Insert(&Photo{ID: "p1", Filename: "dup.jpg"}))

	err := s.Insert(&Photo{ID: "p2", Filename: "dup.jpg"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestInsertPreservesNilCaptureTime(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Insert(&Photo{ID: "p1", Filename: "scan.jpg"}))

	found, err := s.FindByFilename("scan.jpg")
	require.NoError(t, err)
	assert.Nil(t, found.CreatedAt)
}

func TestUpdatePreservesIdentityAndCaptureTime(t *testing.T) {
	s := newTestStore(t)

	original := ts(t, "2023-06-15T08:30:00Z")
	require.NoError(t, s.Insert(&Photo{
		ID:           "p5",
		Filename:     "b.jpg",
		OriginalPath: "alice/originals/b.jpg",
		CreatedAt:    original,
		FileSize:     100,
		MimeType:     "image/jpeg",
	}))

	// The caller supplies bogus identity fields; the stored values must win.
	replacement := &Photo{
		ID:           "p5",
		Filename:     "renamed.jpg",
		OriginalPath: "alice/originals/b-v2.jpg",
		CreatedAt:    ts(t, "2030-01-01T00:00:00Z"),
		FileSize:     999,
		MimeType:     "image/png",
	}
	require.NoError(t, s.Update(replacement))

	assert.Equal(t, "p5", replacement.ID)
	assert.Equal(t, "b.jpg", replacement.Filename)
	assert.True(t, replacement.CreatedAt.Equal(*original))

	stored, err := s.FindByFilename("b.jpg")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "p5", stored.ID)
	assert.True(t, stored.CreatedAt.Equal(*original))
	assert.Equal(t, "alice/originals/b-v2.jpg", stored.OriginalPath)
	assert.Equal(t, int64(999), stored.FileSize)
	assert.Equal(t, "image/png", stored.MimeType)
}

func TestUpdateMissingRow(t *testing.T) {
	s := newTestStore(t)

	err := s.Update(&Photo{ID: "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRecentOrdering(t *testing.T) {
	s := newTestStore(t)

	tie := ts(t, "2024-02-01T12:00:00Z")
	older := ts(t, "2024-01-01T12:00:00Z")
	newest := ts(t, "2024-03-01T12:00:00Z")

	uploadedEarly := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	uploadedLate := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(&Photo{ID: "a", Filename: "older.jpg", CreatedAt: older, UploadedAt: uploadedEarly}))
	require.NoError(t, s.Insert(&Photo{ID: "d", Filename: "tie-late.jpg", CreatedAt: tie, UploadedAt: uploadedLate}))
	require.NoError(t, s.Insert(&Photo{ID: "b", Filename: "newest.jpg", CreatedAt: newest, UploadedAt: uploadedEarly}))
	require.NoError(t, s.Insert(&Photo{ID: "c", Filename: "tie-early.jpg", CreatedAt: tie, UploadedAt: uploadedEarly}))
	require.NoError(t, s.Insert(&Photo{ID: "e", Filename: "no-capture.jpg", UploadedAt: uploadedLate}))

	photos, err := s.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, photos, 5)

	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	// created_at DESC, then uploaded_at DESC, then id ASC; NULL capture
	// times sort last under DESC in SQLite.
	assert.Equal(t, []string{"b", "d", "c", "a", "e"}, ids)
}

func TestListRecentLimit(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, s.Insert(&Photo{ID: id, Filename: id + ".jpg"}))
	}

	photos, err := s.ListRecent(2)
	require.NoError(t, err)
	assert.Len(t, photos, 2)
}

func TestSnapshotTo(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert(&Photo{ID: "p1", Filename: "a.jpg"}))

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, s.SnapshotTo(context.Background(), dest))

	copied, err := Open(dest, "alice")
	require.NoError(t, err)
	defer copied.Close()

	found, err := copied.FindByFilename("a.jpg")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "p1", found.ID)
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database at all"), 0640))

	_, err := Open(path, "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestManagerRecoversCorruptStore(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	defer m.Close()

	path := m.PathFor("bob")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte("garbage garbage garbage garbage"), 0640))

	s, err := m.Acquire("bob")
	require.NoError(t, err)

	// Fresh empty store, original quarantined alongside.
	photos, err := s.ListRecent(10)
	require.NoError(t, err)
	assert.Empty(t, photos)

	quarantined, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, quarantined, 1)
}

func TestManagerCachesHandles(t *testing.T) {
	m := NewManager(t.TempDir())
	defer m.Close()

	first, err := m.Acquire("carol")
	require.NoError(t, err)
	second, err := m.Acquire("carol")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestManagerRejectsEmptyUser(t *testing.T) {
	m := NewManager(t.TempDir())
	defer m.Close()

	_, err := m.Acquire("")
	require.Error(t, err)
}
