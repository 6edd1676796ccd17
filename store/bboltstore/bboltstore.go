// Package bboltstore stores state machine snapshots in a bbolt K/V database.
package bboltstore

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/atlekbai/statemech/store"
)

// BuckSnapshots is the bucket holding snapshot records.
const BuckSnapshots = "snapshots"

// Record is the msgpack encoded value stored per key.
type Record struct {
	Snapshot string    `msgpack:"snapshot"`
	Machine  string    `msgpack:"machine"`
	SavedAt  time.Time `msgpack:"saved_at"`
}

// Store is a store.Store backed by bbolt.
type Store struct {
	db     *bbolt.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the clock used for Record.SavedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewDb opens the bbolt database at path, creating it if needed.
func NewDb(path string) (*bbolt.DB, error) {
	return bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
}

// Open opens the database at path and returns a Store owning it.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := NewDb(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db %s: %w", path, err)
	}
	s, err := New(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and creates the snapshot bucket.
func New(db *bbolt.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:     db,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BuckSnapshots))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket %s: %w", BuckSnapshots, err)
	}
	return s, nil
}

// Save serializes m and stores the snapshot under key.
func (s *Store) Save(ctx context.Context, key string, m store.Snapshotter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot, err := m.Serialize()
	if err != nil {
		return err
	}

	rec := Record{
		Snapshot: snapshot,
		Machine:  store.MachineName(m),
		SavedAt:  s.now().UTC(),
	}
	enc, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", key, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BuckSnapshots)).Put([]byte(key), enc)
	})
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
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		pack := tx.Bucket([]byte(BuckSnapshots)).Get([]byte(key))
		if pack == nil {
			return nil
		}
		rec = &Record{}
		return msgpack.Unmarshal(pack, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", key, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	return rec, nil
}

// Keys lists the stored keys in byte order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(BuckSnapshots)).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// Delete removes the snapshot stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BuckSnapshots)).Delete([]byte(key))
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
