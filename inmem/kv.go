// Package inmem holds the in-memory kv.Store used for --store=memory and tests.
package inmem

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/btree"
	"github.com/percussion/tenantd/kv"
)

const degree = 8

type pair struct {
	key   []byte
	value []byte
}

func lessPair(a, b pair) bool {
	return bytes.Compare(a.key, b.key) < 0
}

func newTree() *btree.BTreeG[pair] {
	return btree.NewG(degree, lessPair)
}

var _ kv.Store = (*KVStore)(nil)

// KVStore keeps each bucket in a btree. Update works on copy-on-write
// clones of the buckets it touches and swaps them in only when its function
// succeeds.
type KVStore struct {
	mu      sync.RWMutex
	buckets map[string]*btree.BTreeG[pair]
}

// NewKVStore returns an empty KVStore.
func NewKVStore() *KVStore {
	return &KVStore{
		buckets: map[string]*btree.BTreeG[pair]{},
	}
}

// View runs fn under a read lock.
func (s *KVStore) View(ctx context.Context, fn func(kv.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{store: s})
}

// Update runs fn under the write lock and commits its buckets if fn
// returns nil.
func (s *KVStore) Update(ctx context.Context, fn func(kv.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s, dirty: map[string]*btree.BTreeG[pair]{}}
	if err := fn(t); err != nil {
		return err
	}
	for name, tree := range t.dirty {
		s.buckets[name] = tree
	}
	return nil
}

// Reset drops every bucket.
func (s *KVStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = map[string]*btree.BTreeG[pair]{}
}

type tx struct {
	store *KVStore
	// dirty is nil for read transactions.
	dirty map[string]*btree.BTreeG[pair]
}

func (t *tx) Writable() bool { return t.dirty != nil }

func (t *tx) Bucket(name []byte) (kv.Bucket, error) {
	if !t.Writable() {
		tree, ok := t.store.buckets[string(name)]
		if !ok {
			tree = newTree()
		}
		return &bucket{tree: tree}, nil
	}

	if tree, ok := t.dirty[string(name)]; ok {
		return &bucket{tree: tree, writable: true}, nil
	}
	tree, ok := t.store.buckets[string(name)]
	if ok {
		tree = tree.Clone()
	} else {
		tree = newTree()
	}
	t.dirty[string(name)] = tree
	return &bucket{tree: tree, writable: true}, nil
}

type bucket struct {
	tree     *btree.BTreeG[pair]
	writable bool
}

func (b *bucket) Get(key []byte) ([]byte, error) {
	p, ok := b.tree.Get(pair{key: key})
	if !ok {
		return nil, kv.ErrKeyNotFound
	}
	return p.value, nil
}

func (b *bucket) Put(key, value []byte) error {
	if !b.writable {
		return kv.ErrTxNotWritable
	}
	b.tree.ReplaceOrInsert(pair{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	return nil
}

func (b *bucket) Delete(key []byte) error {
	if !b.writable {
		return kv.ErrTxNotWritable
	}
	b.tree.Delete(pair{key: key})
	return nil
}

func (b *bucket) ForEach(fn func(k, v []byte) error) error {
	var err error
	b.tree.Ascend(func(p pair) bool {
		err = fn(p.key, p.value)
		return err == nil
	})
	return kv.IgnoreStop(err)
}

// Cursor walks a snapshot of the bucket taken now.
func (b *bucket) Cursor() (kv.Cursor, error) {
	pairs := make([]kv.Pair, 0, b.tree.Len())
	b.tree.Ascend(func(p pair) bool {
		pairs = append(pairs, kv.Pair{Key: p.key, Value: p.value})
		return true
	})
	return kv.NewSliceCursor(pairs), nil
}
