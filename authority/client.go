package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/kit/tracing"
	kithttp "github.com/percussion/tenantd/kit/transport/http"
	"github.com/percussion/tenantd/tenant"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultRate is the number of authorization requests per second a
	// Client sends to its authority.
	DefaultRate = 50

	// DefaultTimeout bounds a single authorization request.
	DefaultTimeout = 5 * time.Second
)

// Verifier checks a signed authorization token.
type Verifier interface {
	Verify(token string) (*tenantd.Authorization, error)
}

var _ tenantd.Authorizer = (*Client)(nil)

// Client authorizes tenants by asking a remote tenantd for a signed
// authorization.
type Client struct {
	addr     string
	token    string
	verifier Verifier
	client   *http.Client
	limiter  *rate.Limiter
	log      *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the http.Client used for requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithRateLimit limits requests to r per second with the given burst. A
// non-positive r disables limiting.
func WithRateLimit(r float64, burst int) ClientOption {
	return func(cl *Client) {
		if r <= 0 {
			cl.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) ClientOption {
	return func(cl *Client) {
		cl.log = log
	}
}

// NewClient returns a Client for the authority at addr. token is sent as the
// admin token and may be empty.
func NewClient(addr, token string, v Verifier, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(addr)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &errors.Error{
			Code: errors.EInvalid,
			Msg:  fmt.Sprintf("invalid authority url %q", addr),
			Err:  err,
		}
	}

	c := &Client{
		addr:     addr,
		token:    token,
		verifier: v,
		client:   kithttp.NewClient(u.Scheme, false, DefaultTimeout),
		limiter:  rate.NewLimiter(rate.Limit(DefaultRate), DefaultRate),
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Authorize asks the authority about tenantID. A tenant the authority does
// not know is denied; every other failure is EUnavailable.
func (c *Client) Authorize(ctx context.Context, tenantID string) (a *tenantd.Authorization, err error) {
	span, ctx := tracing.StartTenantSpan(ctx, "authority.Authorize", tenantID)
	defer func() {
		_ = tracing.LogError(span, err)
		span.Finish()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, unavailable("authority rate limit wait failed", err)
	}

	u, err := kithttp.NewURL(c.addr, "api/v1/tenants", tenantID, "authorization")
	if err != nil {
		return nil, unavailable("invalid authority url", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, unavailable("failed to build authority request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, unavailable("authority request failed", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return &tenantd.Authorization{
			TenantID: tenantID,
			Status:   tenantd.StatusUnauthorized,
			Reason:   "unknown tenant",
			Source:   tenantd.SourceRemote,
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		cerr := kithttp.CheckError(resp)
		if cerr == nil {
			cerr = fmt.Errorf("unexpected status code: %s", resp.Status)
		}
		return nil, unavailable("authority rejected the request", cerr)
	}

	var body tenant.AuthorizationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, unavailable("failed to decode authority response", err)
	}

	a, err = c.verifier.Verify(body.Token)
	if err != nil {
		return nil, unavailable("authority token did not verify", err)
	}
	if a.TenantID != tenantID {
		return nil, unavailable("authority answered for the wrong tenant",
			fmt.Errorf("want %q, got %q", tenantID, a.TenantID))
	}

	c.log.Debug("Remote tenant authorization",
		zap.String("tenant_id", tenantID),
		zap.String("status", string(a.Status)))
	return a, nil
}

func unavailable(msg string, err error) *errors.Error {
	return &errors.Error{
		Code: errors.EUnavailable,
		Op:   tenantd.OpAuthorize,
		Msg:  msg,
		Err:  err,
	}
}
