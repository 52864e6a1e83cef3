package testing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/percussion/tenantd/bolt"
	"github.com/percussion/tenantd/inmem"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/kv"
	"go.uber.org/zap/zaptest"
)

// NewTestBoltStore returns a bolt kv.Store in a temporary directory and a
// func that closes and removes it.
func NewTestBoltStore(t *testing.T) (kv.Store, func(), error) {
	t.Helper()

	dir, err := os.MkdirTemp("", "tenantd-bolt-")
	if err != nil {
		return nil, nil, err
	}

	s := bolt.NewKVStore(zaptest.NewLogger(t), filepath.Join(dir, "tenantd.bolt"))
	if err := s.Open(context.Background()); err != nil {
		_ = os.RemoveAll(dir)
		return nil, nil, err
	}

	closeFn := func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	}

	return s, closeFn, nil
}

// NewTestInmemStore returns an in memory kv.Store.
func NewTestInmemStore(t *testing.T) (kv.Store, func(), error) {
	return inmem.NewKVStore(), func() {}, nil
}

// ErrorsEqual checks to see if the provided errors are equivalent.
func ErrorsEqual(t *testing.T, actual, expected error) {
	t.Helper()
	if expected == nil && actual == nil {
		return
	}

	if expected == nil && actual != nil {
		t.Errorf("unexpected error %s", actual.Error())
	}

	if expected != nil && actual == nil {
		t.Errorf("expected error %s but received nil", expected.Error())
	}

	if errors.ErrorCode(expected) != errors.ErrorCode(actual) {
		t.Logf("\nexpected: %v\nactual: %v\n\n", expected, actual)
		t.Errorf("expected error code %q but received %q", errors.ErrorCode(expected), errors.ErrorCode(actual))
	}

	if errors.ErrorMessage(expected) != errors.ErrorMessage(actual) {
		t.Logf("\nexpected: %v\nactual: %v\n\n", expected, actual)
		t.Errorf("expected error message %q but received %q", errors.ErrorMessage(expected), errors.ErrorMessage(actual))
	}
}
