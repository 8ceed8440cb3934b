package apiclient

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/tokenstore"
)

// RequestInterceptor mutates an outgoing request right before dispatch.
// It must not fail the request.
type RequestInterceptor func(req *http.Request)

// Dispatcher sends a request once, without running any interceptor.
type Dispatcher func(req *http.Request) (*http.Response, error)

// ResponseInterceptor runs after a response is received and may replace it.
// An interceptor that returns an error or a different response owns closing resp.Body.
type ResponseInterceptor func(req *http.Request, resp *http.Response, dispatch Dispatcher) (*http.Response, error)

// BearerInterceptor sets "Authorization: Bearer <token>" when the store holds a
// credential and leaves the request untouched otherwise.
func BearerInterceptor(store tokenstore.Store, logger *zap.SugaredLogger) RequestInterceptor {
	return func(req *http.Request) {
		tok, err := store.Get(req.Context())
		if err != nil {
			if !errors.Is(err, tokenstore.ErrNoToken) {
				logger.Debugw("token store read failed", "err", err)
			}
			return
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

type skipRefreshKey struct{}

// WithoutRefresh marks requests whose 401 must be returned as-is, such as
// credential exchanges where a 401 means wrong credentials.
func WithoutRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipRefreshKey{}, true)
}

func refreshExempt(ctx context.Context) bool {
	v, _ := ctx.Value(skipRefreshKey{}).(bool)
	return v
}
