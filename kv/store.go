// Package kv is the transactional key/value layer under the tenant registry.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned by Get for a missing key.
	ErrKeyNotFound = errors.New("key not found")
	// ErrTxNotWritable is returned by Put and Delete inside a View.
	ErrTxNotWritable = errors.New("transaction is not writable")
	// ErrStop ends a ForEach early without failing it.
	ErrStop = errors.New("stop iteration")
)

// IsNotFound reports whether err means a key was missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// Store runs functions inside read or read-write transactions. An Update
// whose function returns an error leaves the store unchanged.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
}

// Tx is a transaction in a Store.
type Tx interface {
	// Bucket returns the named bucket. Buckets spring into existence on first
	// use; in a read transaction a bucket never written reads as empty.
	Bucket(name []byte) (Bucket, error)
	// Writable reports whether the transaction came from Update.
	Writable() bool
}

// Bucket is a sorted set of keys.
type Bucket interface {
	Get(key []byte) ([]byte, error)
	// Put copies key and value.
	Put(key, value []byte) error
	// Delete of a missing key is not an error.
	Delete(key []byte) error
	// ForEach calls fn in key order. Returning ErrStop from fn ends the walk
	// and ForEach returns nil.
	ForEach(fn func(k, v []byte) error) error
	Cursor() (Cursor, error)
}

// Cursor walks a bucket in key order. A nil key means the cursor ran off
// the end.
type Cursor interface {
	First() (k, v []byte)
	Last() (k, v []byte)
	Next() (k, v []byte)
	// Seek moves to the first key with prefix.
	Seek(prefix []byte) (k, v []byte)
}

// Count returns the number of keys in b.
func Count(b Bucket) (int, error) {
	var n int
	err := b.ForEach(func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}

// IgnoreStop maps ErrStop to nil so ForEach implementations can return the
// walk's result directly.
func IgnoreStop(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}
