package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/tokenstore"
)

// backend is a small fake of the finance API: /items accepts only the tokens
// in valid, /auth/refresh answers with next.
type backend struct {
	mu            sync.Mutex
	valid         map[string]bool
	next          string
	refreshStatus int
	refreshCalls  int32
	refreshAuth   []string
	itemAuth      []string
	itemBodies    []string
}

func newBackend(valid ...string) *backend {
	b := &backend{valid: map[string]bool{}, refreshStatus: http.StatusOK}
	for _, v := range valid {
		b.valid[v] = true
	}
	return b
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		auth := r.Header.Get("Authorization")
		b.mu.Lock()
		b.itemAuth = append(b.itemAuth, auth)
		b.itemBodies = append(b.itemBodies, string(body))
		ok := len(auth) > 7 && b.valid[auth[7:]]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "name": "Food"}})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.refreshCalls, 1)
		b.mu.Lock()
		b.refreshAuth = append(b.refreshAuth, r.Header.Get("Authorization"))
		status, next := b.refreshStatus, b.next
		if status == http.StatusOK {
			b.valid[next] = true
		}
		b.mu.Unlock()
		if status != http.StatusOK {
			writeJSON(w, status, map[string]string{"detail": "refresh rejected"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": next})
	})
	mux.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "database unavailable"})
	})
	return mux
}

func nopLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.Handler, store tokenstore.Store, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Timeout: timeout}, store)
	require.NoError(t, err)
	return c
}

func TestClient_InjectsStoredToken(t *testing.T) {
	ctx := context.Background()
	b := newBackend("T1")
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "T1"))
	c := newTestClient(t, b.handler(), store, time.Second)

	var out []map[string]any
	require.NoError(t, c.Get(ctx, "/items", nil, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Food", out[0]["name"])
	assert.Equal(t, []string{"Bearer T1"}, b.itemAuth)
	assert.EqualValues(t, 0, atomic.LoadInt32(&b.refreshCalls))
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	ctx := context.Background()
	var seen []string
	var hasHeader bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasHeader = r.Header["Authorization"]
		seen = append(seen, r.Header.Get("Content-Type"))
		writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	})
	c := newTestClient(t, h, tokenstore.NewMemoryStore(), time.Second)

	require.NoError(t, c.Get(ctx, "/public", url.Values{"q": {"x"}}, nil))
	assert.False(t, hasHeader)
	assert.Equal(t, []string{"application/json"}, seen)
}

func TestClient_RefreshThenReplay(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	b.next = "T2"
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "T1"))
	c := newTestClient(t, b.handler(), store, time.Second)

	var out []map[string]any
	require.NoError(t, c.Get(ctx, "/items", nil, &out))
	require.Len(t, out, 1)

	assert.EqualValues(t, 1, atomic.LoadInt32(&b.refreshCalls))
	assert.Equal(t, []string{"Bearer T1"}, b.refreshAuth)
	assert.Equal(t, []string{"Bearer T1", "Bearer T2"}, b.itemAuth)
	tok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T2", tok)
}

func TestClient_ReplaysPostBody(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	b.next = "T2"
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "T1"))
	c := newTestClient(t, b.handler(), store, time.Second)

	body := map[string]any{"expense_id": 3, "amount": "45.80"}
	require.NoError(t, c.Post(ctx, "/items", body, nil))
	require.Len(t, b.itemBodies, 2)
	assert.JSONEq(t, `{"expense_id":3,"amount":"45.80"}`, b.itemBodies[0])
	assert.Equal(t, b.itemBodies[0], b.itemBodies[1])
}

func TestClient_RefreshFailureReturnsRefreshError(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	b.refreshStatus = http.StatusForbidden
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "stale"))
	c := newTestClient(t, b.handler(), store, time.Second)

	err := c.Get(ctx, "/items", nil, nil)
	require.Error(t, err)

	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "/auth/refresh", apiErr.Path)
	assert.Equal(t, "refresh rejected", apiErr.Detail())

	// no replay, stale token kept
	assert.Len(t, b.itemAuth, 1)
	tok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stale", tok)
}

func TestClient_RefreshWithoutToken(t *testing.T) {
	ctx := context.Background()
	h := http.NewServeMux()
	h.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "no"})
	})
	h.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token_type": "bearer"})
	})
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "T1"))
	c := newTestClient(t, h, store, time.Second)

	err := c.Get(ctx, "/items", nil, nil)
	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.ErrorIs(t, err, ErrNoTokenInResponse)
}

func TestClient_SecondUnauthorizedIsFinal(t *testing.T) {
	ctx := context.Background()
	h := http.NewServeMux()
	var itemCalls, refreshCalls int32
	h.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&itemCalls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "still no"})
	})
	h.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "T2"})
	})
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "T1"))
	c := newTestClient(t, h, store, time.Second)

	err := c.Get(ctx, "/items", nil, nil)
	require.Error(t, err)
	var refreshErr *RefreshError
	assert.False(t, errors.As(err, &refreshErr))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.EqualValues(t, 2, atomic.LoadInt32(&itemCalls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshCalls))

	tok, _ := store.Get(ctx)
	assert.Equal(t, "T2", tok)
}

func TestClient_WithoutRefreshReturnsUnauthorized(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	b.next = "T2"
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "T1"))
	c := newTestClient(t, b.handler(), store, time.Second)

	err := c.Get(WithoutRefresh(ctx), "/items", nil, nil)
	require.Error(t, err)
	var refreshErr *RefreshError
	assert.False(t, errors.As(err, &refreshErr))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.EqualValues(t, 0, atomic.LoadInt32(&b.refreshCalls))

	tok, _ := store.Get(ctx)
	assert.Equal(t, "T1", tok)
}

func TestClient_OtherErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "T1"))
	c := newTestClient(t, b.handler(), store, time.Second)

	err := c.Get(ctx, "/boom", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.JSONEq(t, `{"detail":"database unavailable"}`, string(apiErr.Payload))
	assert.Equal(t, "database unavailable", apiErr.Detail())
	assert.EqualValues(t, 0, atomic.LoadInt32(&b.refreshCalls))
}

func TestClient_TimeoutDoesNotRefresh(t *testing.T) {
	ctx := context.Background()
	var refreshCalls int32
	release := make(chan struct{})
	h := http.NewServeMux()
	h.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	h.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
	})
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "T1"))
	c := newTestClient(t, h, store, 50*time.Millisecond)
	defer close(release)

	err := c.Get(ctx, "/slow", nil, nil)
	require.Error(t, err)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
	assert.Equal(t, 0, StatusCode(err))
	assert.EqualValues(t, 0, atomic.LoadInt32(&refreshCalls))
}

func TestClient_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	ctx := context.Background()
	const n = 8
	var arrived int32
	gate := make(chan struct{})
	var refreshCalls int32
	var mu sync.Mutex
	replays := map[string]int{}

	h := http.NewServeMux()
	h.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "Bearer T2" {
			mu.Lock()
			replays[auth]++
			mu.Unlock()
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		// hold every stale request until all of them are in flight
		if atomic.AddInt32(&arrived, 1) == n {
			close(gate)
		}
		<-gate
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
	})
	h.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]string{"token": "T2"})
	})
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "T1"))
	c := newTestClient(t, h, store, 5*time.Second)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Get(ctx, "/items", nil, nil)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshCalls))
	assert.Equal(t, n, replays["Bearer T2"])
}

func TestClient_RepeatedGetIsIndependent(t *testing.T) {
	ctx := context.Background()
	b := newBackend("T1")
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "T1"))
	c := newTestClient(t, b.handler(), store, time.Second)

	var first, second []map[string]any
	require.NoError(t, c.Get(ctx, "/items", nil, &first))
	require.NoError(t, c.Get(ctx, "/items", nil, &second))
	assert.Equal(t, first, second)
	assert.Len(t, b.itemAuth, 2)
	tok, _ := store.Get(ctx)
	assert.Equal(t, "T1", tok)
	assert.EqualValues(t, 0, atomic.LoadInt32(&b.refreshCalls))
}

func TestClient_ExtraInterceptorsRun(t *testing.T) {
	ctx := context.Background()
	var gotHeader string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Request-Source")
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	var statuses []int
	c, err := New(Config{BaseURL: srv.URL}, tokenstore.NewMemoryStore(),
		WithRequestInterceptor(func(req *http.Request) { req.Header.Set("X-Request-Source", "cli") }),
		WithResponseInterceptor(func(req *http.Request, resp *http.Response, _ Dispatcher) (*http.Response, error) {
			statuses = append(statuses, resp.StatusCode)
			return resp, nil
		}),
	)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "/items/1", nil))
	assert.Equal(t, "cli", gotHeader)
	assert.Equal(t, []int{http.StatusNoContent}, statuses)
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestAPIError_Detail(t *testing.T) {
	cases := []struct {
		payload string
		want    string
	}{
		{`{"detail":"Incorrect email or password"}`, "Incorrect email or password"},
		{`{"message":"bad"}`, "bad"},
		{`{"error":"invalid payload"}`, "invalid payload"},
		{`{"detail":[{"loc":["body","email"]}]}`, `[{"loc":["body","email"]}]`},
		{"invalid_grant\n", "invalid_grant"},
	}
	for _, tc := range cases {
		e := &APIError{StatusCode: 400, Method: "POST", Path: "/x", Payload: []byte(tc.payload)}
		assert.Equal(t, tc.want, e.Detail())
		assert.Contains(t, e.Error(), "status 400")
	}
}

func TestProperty_BearerHeaderMatchesStore(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("header carries the stored token verbatim", prop.ForAll(
		func(token string) bool {
			store := tokenstore.NewMemoryStore()
			req := httptest.NewRequest(http.MethodGet, "/categories", nil)
			if token != "" {
				_ = store.Set(context.Background(), token)
			}
			BearerInterceptor(store, nopLogger())(req)
			if token == "" {
				_, has := req.Header["Authorization"]
				return !has
			}
			return req.Header.Get("Authorization") == "Bearer "+token
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
