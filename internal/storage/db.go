package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps the single embedded SQLite file GORM drives, grounded on
// the teacher's intended design in storage/db_test.go (Storage{DB
// *gorm.DB}) rather than the inconsistent badger-backed db.go the
// teacher repo otherwise shipped — see DESIGN.md.
type Store struct {
	DB *gorm.DB

	// migrateMu guards the migration pass of this Store. It is not
	// shared with other Store values or processes, so an ad-hoc (-f)
	// invocation opening the same DB file is not serialized by it.
	migrateMu sync.Mutex
}

// Options configures the connection pool, mirroring the
// HARDWIRE_DB_* environment knobs in §6.
type Options struct {
	Path           string
	MaxConnections int
	MinConnections int
	AcquireTimeout time.Duration
}

// Open opens (creating if absent) the SQLite file at opts.Path, applies
// the pool bounds, and runs the sealed migration set. opts.AcquireTimeout
// is not applied: queries run without a connection-acquire deadline.
func Open(opts Options) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(opts.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	applyPool(sqlDB, opts)

	// SQLite single-writer semantics are acceptable for this workload;
	// WAL lets readers and the writer proceed concurrently.
	if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if err := db.Exec("PRAGMA busy_timeout=5000;").Error; err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{DB: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func applyPool(sqlDB *sql.DB, opts Options) {
	max := opts.MaxConnections
	if max <= 0 {
		max = 10
	}
	min := opts.MinConnections
	if min <= 0 {
		min = 2
	}
	sqlDB.SetMaxOpenConns(max)
	sqlDB.SetMaxIdleConns(min)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)
}

// AcquireTimeout returns a context bounded by d, for callers that need
// to bound a DB round trip explicitly. It does not read the timeout
// passed to Open.
func (s *Store) AcquireTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// migrate applies the sealed, idempotent migration set under a
// process-local lock (no multi-node coordination per Non-goals).
func (s *Store) migrate() error {
	s.migrateMu.Lock()
	defer s.migrateMu.Unlock()

	if err := s.DB.AutoMigrate(
		&IndexedFile{},
		&Share{},
		&ShareFile{},
		&Download{},
		&Task{},
		&AdminUser{},
		&DailyDownloadStat{},
	); err != nil {
		return err
	}

	// Composite index not expressible purely through struct tags in a
	// portable way across GORM versions; applied as a raw, idempotent
	// statement per the persistence design in SPEC_FULL.md §4.1.
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_share_files_share_position ON share_files (share_id, position)`,
	}
	for _, stmt := range stmts {
		if err := s.DB.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Checkpoint forces a WAL checkpoint, used on graceful shutdown.
func (s *Store) Checkpoint() error {
	return s.DB.Exec("PRAGMA wal_checkpoint(TRUNCATE);").Error
}
