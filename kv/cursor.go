package kv

import (
	"bytes"
	"sort"
)

// Pair is one key and its value.
type Pair struct {
	Key   []byte
	Value []byte
}

// SliceCursor is a Cursor over a fixed set of pairs, used for snapshots
// and for buckets that do not exist yet.
type SliceCursor struct {
	pairs []Pair
	pos   int
}

var _ Cursor = (*SliceCursor)(nil)

// NewSliceCursor sorts pairs by key in place and returns a cursor over them.
func NewSliceCursor(pairs []Pair) *SliceCursor {
	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].Key, pairs[j].Key) < 0
	})
	return &SliceCursor{pairs: pairs, pos: -1}
}

func (c *SliceCursor) at(i int) ([]byte, []byte) {
	if i < 0 || i >= len(c.pairs) {
		c.pos = len(c.pairs)
		return nil, nil
	}
	c.pos = i
	return c.pairs[i].Key, c.pairs[i].Value
}

// First moves to the smallest key.
func (c *SliceCursor) First() ([]byte, []byte) { return c.at(0) }

// Last moves to the largest key.
func (c *SliceCursor) Last() ([]byte, []byte) { return c.at(len(c.pairs) - 1) }

// Next moves one key forward.
func (c *SliceCursor) Next() ([]byte, []byte) { return c.at(c.pos + 1) }

// Seek moves to the first key with prefix, or past the end when none has it.
func (c *SliceCursor) Seek(prefix []byte) ([]byte, []byte) {
	i := sort.Search(len(c.pairs), func(i int) bool {
		return bytes.Compare(c.pairs[i].Key, prefix) >= 0
	})
	if i < len(c.pairs) && !bytes.HasPrefix(c.pairs[i].Key, prefix) {
		i = len(c.pairs)
	}
	return c.at(i)
}
