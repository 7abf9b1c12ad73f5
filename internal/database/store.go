package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Store is the durable, queryable record of all Photo rows for one user,
// backed by a single SQLite file. Writes are atomic at the row level;
// batch grouping is the orchestrator's job.
type Store struct {
	db     *gorm.DB
	userID string
	path   string

	// batchMu serializes whole batches for this user. Row-level writes are
	// additionally serialized by the single-connection pool underneath.
	batchMu sync.Mutex
}

// Open opens or creates the SQLite file at path for the given user,
// migrating the schema when absent. Idempotent. A file that exists but
// fails to open or pass the integrity check yields ErrStoreUnavailable.
func Open(path string, userID string) (*Store, error) {
	existed := false
	if _, err := os.Stat(path); err == nil {
		existed = true
	}

	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("failed to ensure database directory: %w", err)
	}

	// WAL mode enables concurrent readers and a single writer without locking
	// the entire file. busy_timeout makes the driver wait for the lock instead
	// of failing immediately.
	dsn := fmt.Sprintf(
		"%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=-20000",
		path,
	)

	gormConfig := &gorm.Config{
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		TranslateError:         true, // unique-key breaches surface as gorm.ErrDuplicatedKey
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		if existed {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	s := &Store{db: db, userID: userID, path: path}

	if err := s.configurePool(); err != nil {
		return nil, err
	}

	if existed {
		if err := s.quickCheck(); err != nil {
			s.Close()
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if err := s.migrate(); err != nil {
		s.Close()
		if existed {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0750)
	}
	return nil
}

func (s *Store) configurePool() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic database interface: %w", err)
	}

	// Limit concurrency to prevent disk I/O throttling on the single SQLite file.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)
	return nil
}

func (s *Store) quickCheck() error {
	var result string
	if err := s.db.Raw("PRAGMA quick_check(1)").Scan(&result).Error; err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&Photo{}); err != nil {
		return err
	}

	// Raw SQL ensures idempotent index creation; the listing order depends on
	// the descending created_at index.
	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_photos_created_at ON photos(created_at DESC);",
		"CREATE INDEX IF NOT EXISTS idx_photos_uploaded_at ON photos(uploaded_at DESC);",
	}

	for _, idx := range indices {
		if err := s.db.Exec(idx).Error; err != nil {
			return err
		}
	}
	return nil
}

// Stats returns the row count and summed file size, used to seed the
// process-wide counters when a store is first opened in a session.
func (s *Store) Stats() (count int64, totalSize int64, err error) {
	// IFNULL handles the empty table case (0 instead of NULL).
	row := s.db.Model(&Photo{}).Select("count(*), IFNULL(SUM(file_size), 0)").Row()
	if err := row.Scan(&count, &totalSize); err != nil {
		return 0, 0, err
	}
	return count, totalSize, nil
}

// FindByFilename is a point lookup by the per-user unique key.
// Absence is not an error: (nil, nil) means no match.
func (s *Store) FindByFilename(filename string) (*Photo, error) {
	var photo Photo
	err := s.db.Where("user_id = ? AND filename = ?", s.userID, filename).First(&photo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup failed for %q: %w", filename, err)
	}
	return &photo, nil
}

// Insert creates a brand-new row. Callers are expected to have resolved
// collisions already; the unique index is a safety net, not the primary
// collision path.
func (s *Store) Insert(photo *Photo) error {
	photo.UserID = s.userID
	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = time.Now().UTC()
	}

	err := s.db.Create(photo).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %q", ErrConstraintViolation, photo.Filename)
	}
	if err != nil {
		return fmt.Errorf("insert failed for %q: %w", photo.Filename, err)
	}
	return nil
}

// Update replaces all mutable fields of the row matching photo.ID. The
// stored ID, UserID, Filename and CreatedAt win over whatever the caller
// supplied; the preserved values are written back into photo.
func (s *Store) Update(photo *Photo) error {
	var existing Photo
	err := s.db.Where("id = ?", photo.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: id %q", ErrNotFound, photo.ID)
	}
	if err != nil {
		return fmt.Errorf("update lookup failed for id %q: %w", photo.ID, err)
	}

	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = time.Now().UTC()
	}

	updates := map[string]interface{}{
		"original_path":  photo.OriginalPath,
		"thumbnail_path": photo.ThumbnailPath,
		"uploaded_at":    photo.UploadedAt,
		"file_size":      photo.FileSize,
		"mime_type":      photo.MimeType,
	}
	if err := s.db.Model(&Photo{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update failed for id %q: %w", existing.ID, err)
	}

	photo.ID = existing.ID
	photo.UserID = existing.UserID
	photo.Filename = existing.Filename
	photo.CreatedAt = existing.CreatedAt
	return nil
}

// ListRecent returns up to limit photos ordered by capture time descending,
// ties broken by upload time descending, then id ascending. The order is
// deterministic so pagination stays stable.
func (s *Store) ListRecent(limit int) ([]Photo, error) {
	if limit <= 0 {
		limit = 20
	}

	var photos []Photo
	err := s.db.
		Where("user_id = ?", s.userID).
		Order("created_at DESC, uploaded_at DESC, id ASC").
		Limit(limit).
		Find(&photos).Error
	if err != nil {
		return nil, fmt.Errorf("recent listing failed: %w", err)
	}
	return photos, nil
}

// SnapshotTo writes a consistent point-in-time copy of the database to
// destPath. VACUUM INTO reads through the WAL, so pending frames are
// included and reads proceed while the snapshot is taken. No checkpoint
// first: an open statement on the single-connection pool would make the
// VACUUM refuse to run.
func (s *Store) SnapshotTo(ctx context.Context, destPath string) error {
	escaped := strings.ReplaceAll(destPath, "'", "''")
	query := fmt.Sprintf("VACUUM INTO '%s'", escaped)
	if err := s.db.WithContext(ctx).Exec(query).Error; err != nil {
		return fmt.Errorf("database snapshot failed: %w", err)
	}
	return nil
}

// LockBatch serializes whole upload batches for this user. A second
// concurrent batch blocks here rather than racing the uniqueness invariant.
func (s *Store) LockBatch() {
	s.batchMu.Lock()
}

func (s *Store) UnlockBatch() {
	s.batchMu.Unlock()
}

func (s *Store) UserID() string {
	return s.userID
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
