// Package bolt stores the tenant registry in a bbolt file.
package bolt

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/percussion/tenantd/kv"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// DefaultOpenTimeout is how long Open waits for the file lock held by
// another process.
const DefaultOpenTimeout = time.Second

var _ kv.Store = (*KVStore)(nil)

// KVStore is a kv.Store over a single bbolt file.
type KVStore struct {
	path        string
	openTimeout time.Duration
	noSync      bool

	db  *bolt.DB
	log *zap.Logger
}

// Option configures a KVStore.
type Option func(*KVStore)

// WithOpenTimeout sets how long Open waits for the file lock.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *KVStore) {
		s.openTimeout = d
	}
}

// WithNoSync skips fsync after each commit. Only tests should use it.
func WithNoSync() Option {
	return func(s *KVStore) {
		s.noSync = true
	}
}

// NewKVStore returns a KVStore for the file at path. Call Open before use.
func NewKVStore(log *zap.Logger, path string, opts ...Option) *KVStore {
	s := &KVStore{
		path:        path,
		openTimeout: DefaultOpenTimeout,
		log:         log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open creates the parent directory if needed and opens the file.
func (s *KVStore) Open(ctx context.Context) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "bolt.Open")
	defer span.Finish()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return errors.Wrapf(err, "unable to create directory for %s", s.path)
	}

	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: s.openTimeout, NoSync: s.noSync})
	if err != nil {
		return errors.Wrapf(err, "unable to open tenant registry %s", s.path)
	}
	s.db = db

	s.log.Info("Tenant registry opened", zap.String("path", s.path))
	return nil
}

// Close closes the file. It is safe to call on a store that never opened.
func (s *KVStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the file location.
func (s *KVStore) Path() string {
	return s.path
}

// View runs fn in a read-only bolt transaction.
func (s *KVStore) View(ctx context.Context, fn func(kv.Tx) error) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "bolt.View")
	defer span.Finish()

	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&tx{tx: btx})
	})
}

// Update runs fn in a read-write bolt transaction, rolled back when fn fails.
func (s *KVStore) Update(ctx context.Context, fn func(kv.Tx) error) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "bolt.Update")
	defer span.Finish()

	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&tx{tx: btx})
	})
}

type tx struct {
	tx *bolt.Tx
}

func (t *tx) Writable() bool { return t.tx.Writable() }

func (t *tx) Bucket(name []byte) (kv.Bucket, error) {
	if b := t.tx.Bucket(name); b != nil {
		return &bucket{b: b}, nil
	}
	// bolt cannot create buckets in a read transaction
	if !t.tx.Writable() {
		return emptyBucket{}, nil
	}
	b, err := t.tx.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, err
	}
	return &bucket{b: b}, nil
}

type bucket struct {
	b *bolt.Bucket
}

func (b *bucket) Get(key []byte) ([]byte, error) {
	v := b.b.Get(key)
	if v == nil {
		return nil, kv.ErrKeyNotFound
	}
	return v, nil
}

func (b *bucket) Put(key, value []byte) error {
	return notWritable(b.b.Put(key, value))
}

func (b *bucket) Delete(key []byte) error {
	return notWritable(b.b.Delete(key))
}

func (b *bucket) ForEach(fn func(k, v []byte) error) error {
	return kv.IgnoreStop(b.b.ForEach(fn))
}

func (b *bucket) Cursor() (kv.Cursor, error) {
	return &cursor{c: b.b.Cursor()}, nil
}

func notWritable(err error) error {
	if errors.Is(err, bolt.ErrTxNotWritable) {
		return kv.ErrTxNotWritable
	}
	return err
}

type cursor struct {
	c *bolt.Cursor
}

func (c *cursor) First() ([]byte, []byte) { return c.c.First() }

func (c *cursor) Last() ([]byte, []byte) { return c.c.Last() }

func (c *cursor) Next() ([]byte, []byte) { return c.c.Next() }

func (c *cursor) Seek(prefix []byte) ([]byte, []byte) {
	k, v := c.c.Seek(prefix)
	if k == nil || !bytes.HasPrefix(k, prefix) {
		return nil, nil
	}
	return k, v
}

type emptyBucket struct{}

func (emptyBucket) Get([]byte) ([]byte, error) { return nil, kv.ErrKeyNotFound }

func (emptyBucket) Put(_, _ []byte) error { return kv.ErrTxNotWritable }

func (emptyBucket) Delete([]byte) error { return kv.ErrTxNotWritable }

func (emptyBucket) ForEach(func(k, v []byte) error) error { return nil }

func (emptyBucket) Cursor() (kv.Cursor, error) { return kv.NewSliceCursor(nil), nil }
