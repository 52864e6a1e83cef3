package kv_test

import (
	"errors"
	"testing"

	"github.com/percussion/tenantd/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairs(keys ...string) []kv.Pair {
	ps := make([]kv.Pair, 0, len(keys))
	for _, k := range keys {
		ps = append(ps, kv.Pair{Key: []byte(k), Value: []byte("v-" + k)})
	}
	return ps
}

func TestSliceCursor_First(t *testing.T) {
	tests := []struct {
		name  string
		pairs []kv.Pair
		key   []byte
		value []byte
	}{
		{name: "nil pairs"},
		{name: "empty pairs", pairs: []kv.Pair{}},
		{name: "unsorted pairs", pairs: pairs("b", "c", "a"), key: []byte("a"), value: []byte("v-a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, v := kv.NewSliceCursor(tt.pairs).First()
			assert.Equal(t, tt.key, k)
			assert.Equal(t, tt.value, v)
		})
	}
}

func TestSliceCursor_Walk(t *testing.T) {
	c := kv.NewSliceCursor(pairs("c", "a", "b"))

	var keys []string
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, string(k))
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	k, _ := c.Last()
	assert.Equal(t, "c", string(k))
	k, _ = c.Next()
	assert.Nil(t, k)
	k, _ = c.Next()
	assert.Nil(t, k, "stays past the end")
}

func TestSliceCursor_Seek(t *testing.T) {
	c := kv.NewSliceCursor(pairs("acme", "beta-1", "beta-2", "zulu"))

	k, v := c.Seek([]byte("beta"))
	assert.Equal(t, "beta-1", string(k))
	assert.Equal(t, "v-beta-1", string(v))

	k, _ = c.Next()
	assert.Equal(t, "beta-2", string(k))

	k, _ = c.Seek([]byte("nope"))
	assert.Nil(t, k)
	k, _ = c.Next()
	assert.Nil(t, k)
}

type sliceBucket struct {
	kv.Bucket
	pairs []kv.Pair
}

func (b sliceBucket) ForEach(fn func(k, v []byte) error) error {
	for _, p := range b.pairs {
		if err := fn(p.Key, p.Value); err != nil {
			return kv.IgnoreStop(err)
		}
	}
	return nil
}

func TestCount(t *testing.T) {
	n, err := kv.Count(sliceBucket{pairs: pairs("a", "b", "c")})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = kv.Count(sliceBucket{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIgnoreStop(t *testing.T) {
	boom := errors.New("boom")
	assert.NoError(t, kv.IgnoreStop(kv.ErrStop))
	assert.NoError(t, kv.IgnoreStop(nil))
	assert.Equal(t, boom, kv.IgnoreStop(boom))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, kv.IsNotFound(kv.ErrKeyNotFound))
	assert.False(t, kv.IsNotFound(kv.ErrTxNotWritable))
	assert.False(t, kv.IsNotFound(nil))
}
