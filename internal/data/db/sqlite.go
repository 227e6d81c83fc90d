package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewSQLiteService opens a local database for development and tests.
// SQLite has a single writer, so the pool is pinned to one connection.
func NewSQLiteService(logg *logger.Logger, path string) (*SQLiteService, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "file::memory:?cache=shared"
	}
	dsn := path
	if !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(logg))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteService{db: db, log: logg.With("service", "SQLiteService")}, nil
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }
