package validator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// ValidationRecord is one persisted outcome.
type ValidationRecord struct {
	KeyHash         string    `gorm:"primaryKey;size:64"`
	CacheKey        string    `gorm:"type:text;not null"`
	IsValid         bool      `gorm:"not null"`
	Confidence      int       `gorm:"not null"`
	Reason          string    `gorm:"type:text"`
	Characteristics string    `gorm:"type:text"` // JSON array
	ExpiresAt       time.Time `gorm:"index;not null"`
	CreatedAt       time.Time
}

// TableName overrides the default table name.
func (ValidationRecord) TableName() string {
	return "validation_cache"
}

// SQLStore persists outcomes in a relational table through GORM.
type SQLStore struct {
	db      *gorm.DB
	dialect string
	now     func() time.Time
}

// OpenSQLiteStore opens or creates the cache table in a SQLite file.
func OpenSQLiteStore(path string, log logger.Logger) (*SQLStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.New(fmt.Errorf("create cache directory: %w", err)).
					Component(componentName).
					Category(errors.CategoryImageCache).
					Context("path", path).
					Build()
			}
		}
	}
	return openSQLStore(sqlite.Open(path), "sqlite", log)
}

// OpenMySQLStore opens the cache table in a MySQL database.
func OpenMySQLStore(dsn string, log logger.Logger) (*SQLStore, error) {
	return openSQLStore(mysql.Open(dsn), "mysql", log)
}

func openSQLStore(dialector gorm.Dialector, dialect string, log logger.Logger) (*SQLStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowQueryThreshold),
	})
	if err != nil {
		return nil, sqlError(err, dialect, "open")
	}
	if err := db.AutoMigrate(&ValidationRecord{}); err != nil {
		return nil, sqlError(err, dialect, "migrate")
	}

	s := &SQLStore{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
	if _, err := s.Prune(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (s *SQLStore) Get(ctx context.Context, key string) (Outcome, bool, error) {
	var rec ValidationRecord
	err := s.db.WithContext(ctx).
		Where("key_hash = ? AND expires_at > ?", hashKey(key), s.now()).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, sqlError(err, s.dialect, "get")
	}

	out := Outcome{
		IsValid:         rec.IsValid,
		Confidence:      rec.Confidence,
		Reason:          rec.Reason,
		Characteristics: []string{},
	}
	if rec.Characteristics != "" {
		if err := json.Unmarshal([]byte(rec.Characteristics), &out.Characteristics); err != nil {
			return Outcome{}, false, sqlError(fmt.Errorf("decode characteristics: %w", err), s.dialect, "get")
		}
	}
	return out, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, out Outcome, ttl time.Duration) error {
	characteristics := out.Characteristics
	if characteristics == nil {
		characteristics = []string{}
	}
	encoded, err := json.Marshal(characteristics)
	if err != nil {
		return sqlError(err, s.dialect, "set")
	}

	now := s.now()
	rec := ValidationRecord{
		KeyHash:         hashKey(key),
		CacheKey:        key,
		IsValid:         out.IsValid,
		Confidence:      out.Confidence,
		Reason:          out.Reason,
		Characteristics: string(encoded),
		ExpiresAt:       now.Add(ttl),
		CreatedAt:       now,
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_valid",
			"confidence",
			"reason",
			"characteristics",
			"expires_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		return sqlError(err, s.dialect, "set")
	}
	return nil
}

// Prune deletes expired rows and returns how many were removed.
func (s *SQLStore) Prune(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&ValidationRecord{})
	if result.Error != nil {
		return 0, sqlError(result.Error, s.dialect, "prune")
	}
	return result.RowsAffected, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return sqlError(err, s.dialect, "close")
	}
	return sqlDB.Close()
}

func sqlError(err error, dialect, operation string) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryDatabase).
		Context("store", dialect).
		Context("operation", operation).
		Build()
}
