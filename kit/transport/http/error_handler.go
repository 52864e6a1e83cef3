package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/logger"
	"go.uber.org/zap"
)

// PlatformErrorCodeHeader shows the error code of platform error.
const PlatformErrorCodeHeader = "X-Platform-Error-Code"

// ErrorHandler is the error handler in http package.
type ErrorHandler int

// HandleHTTPError encodes err with the appropriate status code and format,
// sets the X-Platform-Error-Code headers on the response.
func (h ErrorHandler) HandleHTTPError(ctx context.Context, err error, w http.ResponseWriter) {
	if err == nil {
		return
	}

	code := errors.ErrorCode(err)
	w.Header().Set(PlatformErrorCodeHeader, code)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(ErrorCodeToStatusCode(ctx, code))
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	e.Code = code
	var pe *errors.Error
	if stderrors.As(err, &pe) {
		e.Message = err.Error()
	} else {
		e.Message = "An internal error has occurred"
	}
	b, _ := json.Marshal(e)
	_, _ = w.Write(b)
}

// ErrorCodeToStatusCode converts a platform error code to its HTTP status.
// Unknown codes are logged and become 500.
func ErrorCodeToStatusCode(ctx context.Context, code string) int {
	if st, ok := statusCodePlatformError[code]; ok {
		return st
	}

	logger.FromContext(ctx).Warn("unmapped platform error code", zap.String("code", code))
	return http.StatusInternalServerError
}

// statusCodePlatformError is the map convert platform.Error to error
var statusCodePlatformError = map[string]int{
	errors.EInternal:         http.StatusInternalServerError,
	errors.ENotImplemented:   http.StatusNotImplemented,
	errors.EInvalid:          http.StatusBadRequest,
	errors.EEmptyValue:       http.StatusBadRequest,
	errors.EConflict:         http.StatusConflict,
	errors.ENotFound:         http.StatusNotFound,
	errors.EUnavailable:      http.StatusServiceUnavailable,
	errors.EForbidden:        http.StatusForbidden,
	errors.ETooManyRequests:  http.StatusTooManyRequests,
	errors.EUnauthorized:     http.StatusUnauthorized,
	errors.EMethodNotAllowed: http.StatusMethodNotAllowed,
}

// CheckError reads the http.Response and returns an error if one exists.
// It will automatically recognize the errors returned by tenantd services
// and decode the error into an internal error type. If the error cannot
// be determined in that way, it will create a generic error message.
//
// If there is no error, then this returns nil.
func CheckError(resp *http.Response) error {
	switch resp.StatusCode / 100 {
	case 4, 5:
		// We will attempt to parse this error outside of this block.
	case 2:
		return nil
	default:
		return &errors.Error{
			Code: errors.EInternal,
			Msg:  "unexpected status code: " + resp.Status,
		}
	}

	perr := &errors.Error{
		Code: statusCodeToErrorCode(resp.StatusCode),
	}

	if resp.StatusCode == http.StatusUnsupportedMediaType {
		perr.Msg = resp.Status
		return perr
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		perr.Msg = "failed to read error response"
		perr.Err = err
		return perr
	}

	if !strings.HasPrefix(contentType, "application/json") {
		perr.Msg = strings.TrimSpace(string(body))
		if perr.Msg == "" {
			perr.Msg = resp.Status
		}
		return perr
	}

	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		perr.Msg = "failed to decode error response"
		perr.Err = err
		return perr
	}
	if e.Code != "" {
		perr.Code = e.Code
	}
	perr.Msg = e.Message
	return perr
}

func statusCodeToErrorCode(statusCode int) string {
	for code, st := range statusCodePlatformError {
		if st == statusCode && code != errors.EEmptyValue {
			return code
		}
	}
	return errors.EInternal
}
