package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
		msg  string
		op   string
	}{
		{
			name: "nil",
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			code: EInternal,
			msg:  "An internal error has occurred.",
		},
		{
			name: "coded",
			err:  &Error{Code: ENotFound, Msg: "tenant not found", Op: "tenant/FindTenantByID"},
			code: ENotFound,
			msg:  "tenant not found",
			op:   "tenant/FindTenantByID",
		},
		{
			name: "code and op from wrapped error",
			err:  &Error{Err: &Error{Code: EConflict, Msg: "name taken", Op: "tenant/CreateTenant"}},
			code: EConflict,
			msg:  "name taken",
			op:   "tenant/CreateTenant",
		},
		{
			name: "fmt wrapped",
			err:  fmt.Errorf("lookup: %w", &Error{Code: EUnavailable, Msg: "authority down"}),
			code: EUnavailable,
			msg:  "authority down",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, ErrorCode(tc.err))
			if tc.err != nil {
				assert.Equal(t, tc.msg, ErrorMessage(tc.err))
			}
			assert.Equal(t, tc.op, ErrorOp(tc.err))
		})
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "<not found>", (&Error{Code: ENotFound}).Error())
	assert.Equal(t, "bad: cause", (&Error{Msg: "bad", Err: errors.New("cause")}).Error())
	assert.Equal(t, "cause", (&Error{Err: errors.New("cause")}).Error())
}

func TestErrInternalServiceError(t *testing.T) {
	require.NoError(t, ErrInternalServiceError(nil))

	cause := errors.New("disk on fire")
	err := ErrInternalServiceError(cause, WithErrorOp("bolt/Update"))
	assert.Equal(t, EInternal, ErrorCode(err))
	assert.Equal(t, "bolt/Update", ErrorOp(err))
	assert.True(t, errors.Is(err, cause))

	coded := &Error{Code: ENotFound, Msg: "missing"}
	err = ErrInternalServiceError(coded, WithErrorOp("tenant/FindTenantByID"))
	assert.Equal(t, ENotFound, ErrorCode(err))
	assert.Equal(t, "tenant/FindTenantByID", ErrorOp(err))
	assert.Empty(t, coded.Op, "shared errors are not mutated")
}

func TestErrorJSONRoundTripKeepsStack(t *testing.T) {
	in := &Error{
		Code: EUnavailable,
		Msg:  "authority unavailable",
		Err:  &Error{Code: EInternal, Msg: "dial tcp: refused"},
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	out := new(Error)
	require.NoError(t, json.Unmarshal(b, out))
	assert.Equal(t, EUnavailable, out.Code)
	assert.Equal(t, "authority unavailable: dial tcp: refused", out.Error())
}

func TestErrorJSONPlainCause(t *testing.T) {
	b, err := json.Marshal(&Error{Code: EInternal, Op: "usage/Flush", Err: errors.New("database is locked")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"internal error","op":"usage/Flush","error":"database is locked"}`, string(b))

	out := new(Error)
	require.NoError(t, json.Unmarshal(b, out))
	assert.Equal(t, "usage/Flush", out.Op)
	assert.EqualError(t, out.Err, "database is locked")

	require.NoError(t, json.Unmarshal([]byte(`{"code":"not found"}`), out))
	assert.Nil(t, out.Err)
}
