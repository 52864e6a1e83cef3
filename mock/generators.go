package mock

import (
	"fmt"
	"sync"
)

// IDGenerator is a mock tenantd.IDGenerator.
type IDGenerator struct {
	IDFn func() string
}

// ID generates a new id.
func (g IDGenerator) ID() string {
	return g.IDFn()
}

// NewStaticIDGenerator returns a generator that always returns id.
func NewStaticIDGenerator(id string) IDGenerator {
	return IDGenerator{
		IDFn: func() string { return id },
	}
}

// NewSequentialIDGenerator returns a generator producing prefix-1, prefix-2, ...
func NewSequentialIDGenerator(prefix string) IDGenerator {
	var (
		mu sync.Mutex
		n  int
	)
	return IDGenerator{
		IDFn: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("%s-%d", prefix, n)
		},
	}
}
