package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/logger"
	"go.uber.org/zap"
)

type oker interface {
	OK() error
}

// APIOptFn is a functional option for an API.
type APIOptFn func(*API)

// WithLog sets the logger used to report errors.
func WithLog(logger *zap.Logger) APIOptFn {
	return func(api *API) {
		api.logger = logger
	}
}

// WithPrettyJSON enables or disables indented JSON responses.
func WithPrettyJSON(b bool) APIOptFn {
	return func(api *API) {
		api.prettyJSON = b
	}
}

// API provides the encoding and error writing shared by every handler.
type API struct {
	logger     *zap.Logger
	prettyJSON bool
	errHandler errors.HTTPErrorHandler
}

// NewAPI returns an API with defaults applied.
func NewAPI(opts ...APIOptFn) *API {
	api := API{
		logger:     zap.NewNop(),
		prettyJSON: true,
		errHandler: ErrorHandler(0),
	}
	for _, o := range opts {
		o(&api)
	}
	return &api
}

// DecodeJSON decodes a JSON body into v and runs v.OK() when v implements it.
// Decoding failures are EInvalid.
func (a *API) DecodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &errors.Error{
			Code: errors.EInvalid,
			Msg:  "failed to decode request body",
			Err:  err,
		}
	}

	if vv, ok := v.(oker); ok {
		if err := vv.OK(); err != nil {
			return &errors.Error{
				Code: errors.EInvalid,
				Err:  err,
			}
		}
	}
	return nil
}

// Respond writes v as JSON with the given status.
func (a *API) Respond(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	if a.prettyJSON {
		enc.SetIndent("", "\t")
	}
	if err := enc.Encode(v); err != nil {
		a.logger.Error("failed to encode response", zap.Error(err), zap.String("path", r.URL.Path))
	}
}

// Err writes err through the error handler. Internal errors are logged.
func (a *API) Err(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	code := errors.ErrorCode(err)
	if code == errors.EInternal {
		a.logger.Error("api error encountered", zap.Error(err), zap.String("path", r.URL.Path))
	} else {
		a.logger.Debug("api error encountered", zap.Error(err), zap.String("code", code), zap.String("path", r.URL.Path))
	}
	a.errHandler.HandleHTTPError(logger.NewContextWithLogger(r.Context(), a.logger), err, w)
}
