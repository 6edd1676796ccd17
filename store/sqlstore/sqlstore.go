// Package sqlstore stores state machine snapshots in SQLite through GORM.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/ncruces/go-sqlite3/vfs"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/atlekbai/statemech/store"
)

// Record is a stored snapshot.
type Record struct {
	Key      string `gorm:"column:snapshot_key;primaryKey"`
	Machine  string `gorm:"column:machine;index:machine"`
	Snapshot string `gorm:"column:snapshot"`
	SavedAt  time.Time
}

// TableName implements gorm's tabler.
func (Record) TableName() string {
	return "snapshots"
}

// Store is a store.Store backed by GORM.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides the clock used for Record.SavedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewSqlite opens a SQLite database for GORM. SQL statements are logged at
// debug level through l.
func NewSqlite(path string, l *zap.Logger) (*gorm.DB, error) {
	if l == nil {
		l = zap.NewNop()
	}
	cfg := logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	}
	if l.Core().Enabled(zap.DebugLevel) {
		cfg.LogLevel = logger.Info
	}

	db, err := gorm.Open(gormlite.Open(path), &gorm.Config{
		Logger: logger.New(zap.NewStdLog(l.Named("gorm")), cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}

	if !vfs.SupportsSharedMemory {
		if err = db.Exec(`PRAGMA locking_mode=exclusive`).Error; err != nil {
			return nil, err
		}
	}
	if err = db.Exec(`PRAGMA journal_mode=wal;`).Error; err != nil {
		return nil, err
	}
	return db, nil
}

// Open opens the SQLite database at path and returns a Store owning it.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	db, err := NewSqlite(path, s.logger)
	if err != nil {
		return nil, err
	}
	return New(db, opts...)
}

// New wraps a GORM database and migrates the snapshot table.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:     db,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrating snapshots: %w", err)
	}
	return s, nil
}

// Save serializes m and upserts the snapshot under key.
func (s *Store) Save(ctx context.Context, key string, m store.Snapshotter) error {
	snapshot, err := m.Serialize()
	if err != nil {
		return err
	}

	rec := Record{
		Key:      key,
		Machine:  store.MachineName(m),
		Snapshot: snapshot,
		SavedAt:  s.now().UTC(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"machine", "snapshot", "saved_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}

	s.logger.Debug("snapshot saved",
		zap.String("key", key),
		zap.String("machine", rec.Machine),
		zap.String("snapshot", snapshot))
	return nil
}

// Load restores m from the snapshot stored under key.
func (s *Store) Load(ctx context.Context, key string, m store.Snapshotter) error {
	rec, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := m.Deserialize(rec.Snapshot); err != nil {
		return err
	}

	s.logger.Debug("snapshot loaded",
		zap.String("key", key),
		zap.String("machine", rec.Machine),
		zap.String("snapshot", rec.Snapshot))
	return nil
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("snapshot_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", key, err)
	}
	return &rec, nil
}

// ListByMachine returns the records saved from machines named machine,
// ordered by key.
func (s *Store) ListByMachine(ctx context.Context, machine string) ([]Record, error) {
	var recs []Record
	err := s.db.WithContext(ctx).
		Where("machine = ?", machine).
		Order("snapshot_key").
		Find(&recs).Error
	return recs, err
}

// Delete removes the snapshot stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("snapshot_key = ?", key).Delete(&Record{}).Error
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
