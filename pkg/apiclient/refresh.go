package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/tokenstore"
)

// RefreshCoordinator turns a 401 into one refresh followed by one replay.
// Concurrent 401s share a single in-flight refresh; every waiter replays with
// the shared token or fails with the shared error.
type RefreshCoordinator struct {
	client *Client
	store  tokenstore.Store
	path   string
	logger *zap.SugaredLogger
	group  singleflight.Group
}

func newRefreshCoordinator(c *Client, store tokenstore.Store, path string, logger *zap.SugaredLogger) *RefreshCoordinator {
	return &RefreshCoordinator{client: c, store: store, path: path, logger: logger}
}

// Intercept is the response interceptor installed on every Client.
func (rc *RefreshCoordinator) Intercept(req *http.Request, resp *http.Response, dispatch Dispatcher) (*http.Response, error) {
	if resp.StatusCode != http.StatusUnauthorized || refreshExempt(req.Context()) {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	token, err := rc.Refresh(req.Context())
	if err != nil {
		return nil, err
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: replay: %w", req.Method, req.URL.Path, err)
	}
	retry.Header.Set("Authorization", "Bearer "+token)
	// replay once; a second 401 is final
	out, err := dispatch(retry)
	if err != nil {
		return nil, fmt.Errorf("%s %s: replay: %w", req.Method, req.URL.Path, err)
	}
	return out, nil
}

// Refresh exchanges the stored (possibly expired) token for a new one and
// stores it. On failure the store is left untouched.
func (rc *RefreshCoordinator) Refresh(ctx context.Context) (string, error) {
	// detached so one caller's cancellation does not fail every waiter;
	// the client timeout still bounds the call
	shared := context.WithoutCancel(ctx)
	v, err, joined := rc.group.Do("refresh", func() (any, error) {
		return rc.refresh(shared)
	})
	if err != nil {
		rc.logger.Warnw("token refresh failed", "err", err, "shared", joined)
		return "", err
	}
	return v.(string), nil
}

func (rc *RefreshCoordinator) refresh(ctx context.Context) (string, error) {
	r := &Request{Method: http.MethodPost, Path: rc.path, Header: http.Header{}}
	if current, err := rc.store.Get(ctx); err == nil {
		r.Header.Set("Authorization", "Bearer "+current)
	}
	rc.logger.Debugw("refreshing access token", "path", rc.path)

	var raw json.RawMessage
	if err := rc.client.Do(WithoutRefresh(ctx), r, &raw); err != nil {
		return "", &RefreshError{Err: err}
	}
	token := tokenFromBody(raw)
	if token == "" {
		return "", &RefreshError{Err: ErrNoTokenInResponse}
	}
	if err := rc.store.Set(ctx, token); err != nil {
		return "", &RefreshError{Err: fmt.Errorf("store refreshed token: %w", err)}
	}
	rc.logger.Infow("access token refreshed")
	return token, nil
}

// tokenFromBody reads "token", falling back to "access_token".
func tokenFromBody(body []byte) string {
	if tok := gjson.GetBytes(body, "token").String(); tok != "" {
		return tok
	}
	return gjson.GetBytes(body, "access_token").String()
}

// TokenFromBody is exported for service code parsing login responses.
func TokenFromBody(body []byte) string { return tokenFromBody(body) }
