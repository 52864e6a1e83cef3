package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/percussion/tenantd/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// KVStoreFields are background data that has to be set before
// the test runs.
type KVStoreFields struct {
	Bucket []byte
	Pairs  []kv.Pair
}

// KVStore tests the key value store contract.
func KVStore(
	init func(KVStoreFields, *testing.T) (kv.Store, func()),
	t *testing.T,
) {
	tests := []struct {
		name string
		fn   func(
			init func(KVStoreFields, *testing.T) (kv.Store, func()),
			t *testing.T,
		)
	}{
		{
			name: "Get",
			fn:   KVGet,
		},
		{
			name: "Put",
			fn:   KVPut,
		},
		{
			name: "Delete",
			fn:   KVDelete,
		},
		{
			name: "Cursor",
			fn:   KVCursor,
		},
		{
			name: "View",
			fn:   KVView,
		},
		{
			name: "ForEach",
			fn:   KVForEach,
		},
		{
			name: "Rollback",
			fn:   KVRollback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(init, t)
		})
	}
}

// KVGet tests the get method contract for the key value store.
func KVGet(
	init func(KVStoreFields, *testing.T) (kv.Store, func()),
	t *testing.T,
) {
	s, closeFn := init(KVStoreFields{
		Bucket: []byte("bucket"),
		Pairs:  []kv.Pair{{Key: []byte("hello"), Value: []byte("world")}},
	}, t)
	defer closeFn()

	err := s.View(context.Background(), func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("bucket"))
		require.NoError(t, err)

		v, err := b.Get([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, "world", string(v))

		_, err = b.Get([]byte("missing"))
		assert.True(t, kv.IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}

// KVPut tests the put method contract for the key value store.
func KVPut(
	init func(KVStoreFields, *testing.T) (kv.Store, func()),
	t *testing.T,
) {
	s, closeFn := init(KVStoreFields{Bucket: []byte("bucket")}, t)
	defer closeFn()

	ctx := context.Background()
	key, value := []byte("hello"), []byte("world")
	err := s.Update(ctx, func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("bucket"))
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
	require.NoError(t, err)

	// reusing the caller's buffers must not change stored data
	value[0] = 'W'

	err = s.View(ctx, func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("bucket"))
		require.NoError(t, err)
		v, err := b.Get([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, "world", string(v))

		assert.Equal(t, kv.ErrTxNotWritable, b.Put([]byte("x"), []byte("y")))
		return nil
	})
	require.NoError(t, err)
}

// KVDelete tests the delete method contract for the key value store.
func KVDelete(
	init func(KVStoreFields, *testing.T) (kv.Store, func()),
	t *testing.T,
) {
	s, closeFn := init(KVStoreFields{
		Bucket: []byte("bucket"),
		Pairs: []kv.Pair{
			{Key: []byte("a"), Value: []byte("1")},
			{Key: []byte("b"), Value: []byte("2")},
		},
	}, t)
	defer closeFn()

	ctx := context.Background()
	err := s.Update(ctx, func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("bucket"))
		if err != nil {
			return err
		}
		if err := b.Delete([]byte("a")); err != nil {
			return err
		}
		// deleting a missing key is not an error
		return b.Delete([]byte("missing"))
	})
	require.NoError(t, err)

	err = s.View(ctx, func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("bucket"))
		require.NoError(t, err)
		_, err = b.Get([]byte("a"))
		assert.True(t, kv.IsNotFound(err))
		_, err = b.Get([]byte("b"))
		assert.NoError(t, err)
		assert.Equal(t, kv.ErrTxNotWritable, b.Delete([]byte("b")))
		return nil
	})
	require.NoError(t, err)
}

// KVCursor tests the cursor contract for the key value store.
func KVCursor(
	init func(KVStoreFields, *testing.T) (kv.Store, func()),
	t *testing.T,
) {
	s, closeFn := init(KVStoreFields{
		Bucket: []byte("bucket"),
		Pairs: []kv.Pair{
			{Key: []byte("c"), Value: []byte("3")},
			{Key: []byte("a"), Value: []byte("1")},
			{Key: []byte("bb"), Value: []byte("2")},
		},
	}, t)
	defer closeFn()

	err := s.View(context.Background(), func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("bucket"))
		require.NoError(t, err)

		c, err := b.Cursor()
		require.NoError(t, err)

		var keys []string
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		assert.Equal(t, []string{"a", "bb", "c"}, keys)

		k, v := c.Seek([]byte("b"))
		assert.Equal(t, "bb", string(k))
		assert.Equal(t, "2", string(v))
		k, _ = c.Seek([]byte("d"))
		assert.Nil(t, k)
		k, _ = c.Last()
		assert.Equal(t, "c", string(k))
		return nil
	})
	require.NoError(t, err)
}

// KVView tests that read transactions see buckets that were never written as empty.
func KVView(
	init func(KVStoreFields, *testing.T) (kv.Store, func()),
	t *testing.T,
) {
	s, closeFn := init(KVStoreFields{}, t)
	defer closeFn()

	err := s.View(context.Background(), func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("never-written"))
		require.NoError(t, err)
		_, err = b.Get([]byte("k"))
		assert.True(t, kv.IsNotFound(err))

		n, err := kv.Count(b)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.False(t, tx.Writable())
		return nil
	})
	require.NoError(t, err)
}

// KVForEach tests ordered iteration and early stop.
func KVForEach(
	init func(KVStoreFields, *testing.T) (kv.Store, func()),
	t *testing.T,
) {
	s, closeFn := init(KVStoreFields{
		Bucket: []byte("bucket"),
		Pairs: []kv.Pair{
			{Key: []byte("b"), Value: []byte("2")},
			{Key: []byte("a"), Value: []byte("1")},
			{Key: []byte("c"), Value: []byte("3")},
		},
	}, t)
	defer closeFn()

	err := s.View(context.Background(), func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("bucket"))
		require.NoError(t, err)

		var got []string
		require.NoError(t, b.ForEach(func(k, v []byte) error {
			got = append(got, string(k)+"="+string(v))
			return nil
		}))
		assert.Equal(t, []string{"a=1", "b=2", "c=3"}, got)

		got = got[:0]
		require.NoError(t, b.ForEach(func(k, v []byte) error {
			got = append(got, string(k))
			if string(k) == "b" {
				return kv.ErrStop
			}
			return nil
		}))
		assert.Equal(t, []string{"a", "b"}, got)

		boom := errors.New("boom")
		assert.Equal(t, boom, b.ForEach(func(k, v []byte) error { return boom }))
		return nil
	})
	require.NoError(t, err)
}

// KVRollback tests that a failed Update leaves no trace.
func KVRollback(
	init func(KVStoreFields, *testing.T) (kv.Store, func()),
	t *testing.T,
) {
	s, closeFn := init(KVStoreFields{
		Bucket: []byte("bucket"),
		Pairs:  []kv.Pair{{Key: []byte("keep"), Value: []byte("1")}},
	}, t)
	defer closeFn()

	ctx := context.Background()
	boom := errors.New("boom")
	err := s.Update(ctx, func(tx kv.Tx) error {
		assert.True(t, tx.Writable())
		b, err := tx.Bucket([]byte("bucket"))
		if err != nil {
			return err
		}
		if err := b.Put([]byte("new"), []byte("2")); err != nil {
			return err
		}
		if err := b.Delete([]byte("keep")); err != nil {
			return err
		}
		other, err := tx.Bucket([]byte("other"))
		if err != nil {
			return err
		}
		if err := other.Put([]byte("x"), []byte("y")); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)

	err = s.View(ctx, func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("bucket"))
		require.NoError(t, err)
		v, err := b.Get([]byte("keep"))
		require.NoError(t, err)
		assert.Equal(t, "1", string(v))
		_, err = b.Get([]byte("new"))
		assert.True(t, kv.IsNotFound(err))

		other, err := tx.Bucket([]byte("other"))
		require.NoError(t, err)
		n, err := kv.Count(other)
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	})
	require.NoError(t, err)
}

// SeedKVStore writes the fields into s.
func SeedKVStore(t *testing.T, s kv.Store, f KVStoreFields) {
	t.Helper()
	if f.Bucket == nil {
		return
	}
	err := s.Update(context.Background(), func(tx kv.Tx) error {
		b, err := tx.Bucket(f.Bucket)
		if err != nil {
			return err
		}
		for _, p := range f.Pairs {
			if err := b.Put(p.Key, p.Value); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}
