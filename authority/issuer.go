package authority

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v4"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
)

const (
	// DefaultTokenTTL is how long an issued token stays valid when the
	// authorization carries no expiry of its own.
	DefaultTokenTTL = 5 * time.Minute

	// DefaultIssuer is the iss claim of issued tokens.
	DefaultIssuer = "tenantd"
)

// Claims are the JWT claims of a signed authorization. The subject is the
// tenant id.
type Claims struct {
	Status tenantd.AuthorizationStatus `json:"status"`
	Reason string                      `json:"reason,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs authorizations as HS256 tokens and verifies them.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithIssuerClock sets the clock used for iat, exp and expiry checks.
func WithIssuerClock(clk clock.Clock) IssuerOption {
	return func(i *Issuer) {
		i.clock = clk
	}
}

// WithTokenTTL sets the lifetime of tokens for authorizations without an expiry.
func WithTokenTTL(d time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.ttl = d
	}
}

// WithIssuerName sets the iss claim.
func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = name
	}
}

// NewIssuer returns an Issuer signing with key.
func NewIssuer(key []byte, opts ...IssuerOption) (*Issuer, error) {
	if len(key) == 0 {
		return nil, &errors.Error{
			Code: errors.EInvalid,
			Msg:  "signing key is empty",
		}
	}
	i := &Issuer{
		key:    key,
		issuer: DefaultIssuer,
		ttl:    DefaultTokenTTL,
		clock:  clock.New(),
	}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// Issue signs a.
func (i *Issuer) Issue(a *tenantd.Authorization) (string, error) {
	now := i.clock.Now()
	exp := now.Add(i.ttl)
	if !a.ExpiresAt.IsZero() && a.ExpiresAt.Before(exp) {
		exp = a.ExpiresAt
	}

	claims := Claims{
		Status: a.Status,
		Reason: a.Reason,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.TenantID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", &errors.Error{
			Code: errors.EInternal,
			Msg:  "failed to sign authorization",
			Err:  err,
		}
	}
	return token, nil
}

// Verify checks the signature, issuer and expiry of token and returns the
// authorization it carries.
func (i *Issuer) Verify(token string) (*tenantd.Authorization, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// expiry is checked against our clock below
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	})
	if err != nil {
		return nil, invalidToken(err)
	}

	now := i.clock.Now()
	if !claims.VerifyExpiresAt(now, true) {
		return nil, invalidToken(fmt.Errorf("token expired"))
	}
	if !claims.VerifyIssuer(i.issuer, true) {
		return nil, invalidToken(fmt.Errorf("unexpected issuer %q", claims.Issuer))
	}
	if claims.Subject == "" {
		return nil, invalidToken(fmt.Errorf("missing subject"))
	}
	if !claims.Status.Valid() {
		return nil, invalidToken(fmt.Errorf("unknown status %q", claims.Status))
	}

	a := &tenantd.Authorization{
		TenantID:  claims.Subject,
		Status:    claims.Status,
		Reason:    claims.Reason,
		Source:    tenantd.SourceRemote,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		a.AuthorizedAt = claims.IssuedAt.Time
	}
	return a, nil
}

func invalidToken(err error) *errors.Error {
	return &errors.Error{
		Code: errors.EUnauthorized,
		Msg:  "invalid authorization token",
		Err:  err,
	}
}
