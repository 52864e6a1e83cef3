package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	platformerrors "github.com/percussion/tenantd/kit/platform/errors"
	kithttp "github.com/percussion/tenantd/kit/transport/http"
)

const tokenScheme = "Token "

// errors
var (
	ErrAuthHeaderMissing = errors.New("authorization Header is missing")
	ErrAuthBadScheme     = errors.New("authorization Header Scheme is invalid")
)

// ParseAuthHeaderToken will parse the token from http Authorization Header.
func ParseAuthHeaderToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrAuthHeaderMissing
	}
	if !strings.HasPrefix(header, tokenScheme) {
		return "", ErrAuthBadScheme
	}
	return header[len(tokenScheme):], nil
}

// AdminTokenGuard only lets requests through that carry token. An empty
// token disables the guard.
func AdminTokenGuard(api *kithttp.API, token string) kithttp.Middleware {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		fn := func(w http.ResponseWriter, r *http.Request) {
			got, err := ParseAuthHeaderToken(r)
			if err != nil {
				api.Err(w, r, &platformerrors.Error{
					Code: platformerrors.EUnauthorized,
					Msg:  "admin token required",
					Err:  err,
				})
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				api.Err(w, r, &platformerrors.Error{
					Code: platformerrors.EForbidden,
					Msg:  "invalid admin token",
				})
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
