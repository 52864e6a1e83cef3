package authority_test

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/authority"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClock() *clock.Mock {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return clk
}

func TestNewIssuer_EmptyKey(t *testing.T) {
	_, err := authority.NewIssuer(nil)
	assert.Equal(t, errors.EInvalid, errors.ErrorCode(err))
}

func TestIssuer_RoundTrip(t *testing.T) {
	clk := newMockClock()
	iss, err := authority.NewIssuer([]byte("secret"), authority.WithIssuerClock(clk))
	require.NoError(t, err)

	token, err := iss.Issue(&tenantd.Authorization{
		TenantID: "acme",
		Status:   tenantd.StatusSuspended,
		Reason:   "tenant is suspended",
		Source:   tenantd.SourceRegistry,
	})
	require.NoError(t, err)

	a, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "acme", a.TenantID)
	assert.Equal(t, tenantd.StatusSuspended, a.Status)
	assert.Equal(t, "tenant is suspended", a.Reason)
	assert.Equal(t, tenantd.SourceRemote, a.Source)
	assert.True(t, a.AuthorizedAt.Equal(clk.Now()))
	assert.True(t, a.ExpiresAt.Equal(clk.Now().Add(authority.DefaultTokenTTL)))
}

func TestIssuer_EarlierAuthorizationExpiryWins(t *testing.T) {
	clk := newMockClock()
	iss, err := authority.NewIssuer([]byte("secret"), authority.WithIssuerClock(clk), authority.WithTokenTTL(time.Hour))
	require.NoError(t, err)

	exp := clk.Now().Add(time.Minute)
	token, err := iss.Issue(&tenantd.Authorization{TenantID: "acme", Status: tenantd.StatusAuthorized, ExpiresAt: exp})
	require.NoError(t, err)

	a, err := iss.Verify(token)
	require.NoError(t, err)
	assert.True(t, a.ExpiresAt.Equal(exp))
}

func TestIssuer_VerifyRejects(t *testing.T) {
	clk := newMockClock()
	iss, err := authority.NewIssuer([]byte("secret"), authority.WithIssuerClock(clk))
	require.NoError(t, err)

	token, err := iss.Issue(&tenantd.Authorization{TenantID: "acme", Status: tenantd.StatusAuthorized})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		clk.Add(authority.DefaultTokenTTL)
		defer clk.Add(-authority.DefaultTokenTTL)

		_, err := iss.Verify(token)
		assert.Equal(t, errors.EUnauthorized, errors.ErrorCode(err))
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := authority.NewIssuer([]byte("other"), authority.WithIssuerClock(clk))
		require.NoError(t, err)

		_, err = other.Verify(token)
		assert.Equal(t, errors.EUnauthorized, errors.ErrorCode(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := authority.NewIssuer([]byte("secret"), authority.WithIssuerClock(clk), authority.WithIssuerName("elsewhere"))
		require.NoError(t, err)

		_, err = other.Verify(token)
		assert.Equal(t, errors.EUnauthorized, errors.ErrorCode(err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := iss.Verify("not.a.token")
		assert.Equal(t, errors.EUnauthorized, errors.ErrorCode(err))
	})
}
