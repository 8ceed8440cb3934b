package router

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/auth"
	authentity "github.com/ovaphlow/pitchfork/service-finance-go/internal/auth/entity"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/category"
	categoryentity "github.com/ovaphlow/pitchfork/service-finance-go/internal/category/entity"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/user"
	userentity "github.com/ovaphlow/pitchfork/service-finance-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/apiclient"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/finance"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/tokenstore"
)

// In-memory repositories so the whole HTTP stack runs without Postgres.

type memUsers struct {
	mu   sync.Mutex
	rows []*userentity.User
}

func (m *memUsers) Create(_ context.Context, u *userentity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = int64(len(m.rows) + 1)
	u.CreatedAt = time.Now()
	cp := *u
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*userentity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*userentity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUsers) UpdatePassword(context.Context, int64, string) error { return nil }

func (m *memUsers) Promote(_ context.Context, id int64, role, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.ID == id {
			u.Role, u.PasswordHash, u.IsActive = role, hash, true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memUsers) List(_ context.Context, skip, limit int) ([]userentity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []userentity.User{}
	for i := skip; i < len(m.rows) && len(out) < limit; i++ {
		out = append(out, *m.rows[i])
	}
	return out, nil
}

func (m *memUsers) Update(_ context.Context, u *userentity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID == u.ID {
			u.UpdatedAt = time.Now()
			cp := *u
			m.rows[i] = &cp
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memUsers) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, u := range m.rows {
		if u.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type memSessions struct {
	mu   sync.Mutex
	rows map[string]*authentity.Session
}

func (m *memSessions) Save(_ context.Context, jti string, userID int64, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[jti] = &authentity.Session{JTI: jti, UserID: userID, ExpiresAt: exp}
	return nil
}

func (m *memSessions) Get(_ context.Context, jti string) (*authentity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[jti]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Revoke(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[jti]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	now := time.Now()
	s.RevokedAt = &now
	return true, nil
}

func (m *memSessions) Rotate(_ context.Context, oldJTI, newJTI string, userID int64, exp time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[oldJTI]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	now := time.Now()
	s.RevokedAt = &now
	m.rows[newJTI] = &authentity.Session{JTI: newJTI, UserID: userID, ExpiresAt: exp}
	return true, nil
}

func (m *memSessions) revokeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, s := range m.rows {
		s.RevokedAt = &now
	}
}

type memCategories struct {
	mu   sync.Mutex
	rows []categoryentity.Category
}

func (m *memCategories) List(_ context.Context, userID int64) ([]categoryentity.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []categoryentity.Category{}
	for _, c := range m.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCategories) Get(_ context.Context, userID, id int64) (*categoryentity.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.ID == id && c.UserID == userID {
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memCategories) Create(_ context.Context, c *categoryentity.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = int64(len(m.rows) + 1)
	c.CreatedAt = time.Now()
	m.rows = append(m.rows, *c)
	return nil
}

func (m *memCategories) Update(context.Context, *categoryentity.Category) (bool, error) {
	return false, errors.New("not implemented")
}

func (m *memCategories) Delete(context.Context, int64, int64) (bool, error) {
	return false, errors.New("not implemented")
}

type stack struct {
	server   *httptest.Server
	sessions *memSessions
	users    *user.UserService
}

func newStack(t *testing.T, ttl time.Duration) *stack {
	t.Helper()
	logger := zap.NewNop().Sugar()
	tokens, err := auth.NewTokens(auth.Config{Secret: "router-test", AccessTTL: ttl, RefreshGrace: time.Hour})
	require.NoError(t, err)
	sessions := &memSessions{rows: map[string]*authentity.Session{}}
	users := user.NewUserService(&memUsers{}, user.BcryptHasher{Cost: 4})
	svcs := &Services{
		Auth:       auth.NewService(tokens, sessions, users, logger),
		Users:      users,
		Categories: category.NewService(&memCategories{}),
	}
	srv := httptest.NewServer(RegisterRoutes(logger, svcs))
	t.Cleanup(srv.Close)
	return &stack{server: srv, sessions: sessions, users: users}
}

func (s *stack) client(t *testing.T, store tokenstore.Store) *finance.Service {
	t.Helper()
	c, err := apiclient.New(apiclient.Config{BaseURL: s.server.URL, Timeout: 5 * time.Second}, store)
	require.NoError(t, err)
	return finance.New(c, nil)
}

func TestRoutes_HealthMetricsAndHeaders(t *testing.T) {
	s := newStack(t, time.Minute)

	resp, err := http.Get(s.server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	req, _ := http.NewRequest(http.MethodGet, s.server.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc", resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(s.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `finance_http_requests_total{method="GET",path="GET /health",status="200"}`)
}

func TestRoutes_ProtectedWithoutToken(t *testing.T) {
	s := newStack(t, time.Minute)
	resp, err := http.Get(s.server.URL + "/categories")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
}

func TestEndToEnd_RegisterLoginAndCategories(t *testing.T) {
	s := newStack(t, time.Minute)
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()
	svc := s.client(t, store)

	_, err := svc.Auth.Register(ctx, finance.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Auth.Register(ctx, finance.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.Error(t, err)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Email already registered", apiErr.Detail())

	_, err = svc.Auth.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	created, err := svc.Categories.Create(ctx, "Food")
	require.NoError(t, err)
	cats, err := svc.Categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, created.ID, cats[0].ID)

	me, err := svc.Auth.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", me.Email)

	require.NoError(t, svc.Auth.Logout(ctx))
	assert.False(t, tokenstore.Present(ctx, store))
}

func TestEndToEnd_ExpiredTokenIsRefreshed(t *testing.T) {
	s := newStack(t, 2*time.Second)
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()
	svc := s.client(t, store)

	_, err := svc.Auth.Register(ctx, finance.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	first, err := svc.Auth.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	time.Sleep(3 * time.Second)

	_, err = svc.Categories.List(ctx)
	require.NoError(t, err)
	second, err := store.Get(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestEndToEnd_RevokedSessionSurfacesRefreshError(t *testing.T) {
	s := newStack(t, time.Minute)
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()
	svc := s.client(t, store)

	_, err := svc.Auth.Register(ctx, finance.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	token, err := svc.Auth.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	s.sessions.revokeAll()

	_, err = svc.Categories.List(ctx)
	var refreshErr *apiclient.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))

	// the stale token stays in place; the guard still sees a credential
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, got)
}

func TestEndToEnd_AdminManagesUsers(t *testing.T) {
	s := newStack(t, time.Minute)
	ctx := context.Background()

	anaStore := tokenstore.NewMemoryStore()
	ana := s.client(t, anaStore)
	registered, err := ana.Auth.Register(ctx, finance.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = ana.Auth.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	// plain users may read themselves but nothing else
	self, err := ana.Users.Get(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", self.Email)
	_, err = ana.Users.List(ctx, 0, 0)
	assert.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))
	_, err = ana.Users.Get(ctx, registered.ID+1)
	assert.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))

	adminUser, _, err := s.users.CreateAdmin(ctx, "Root", "root@example.com", "rootpw1", false)
	require.NoError(t, err)
	admin := s.client(t, tokenstore.NewMemoryStore())
	_, err = admin.Auth.Login(ctx, "root@example.com", "rootpw1")
	require.NoError(t, err)

	all, err := admin.Users.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	page, err := admin.Users.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, adminUser.ID, page[0].ID)

	name, role := "Ana Maria", userentity.RoleModerator
	updated, err := admin.Users.Update(ctx, registered.ID, finance.UserUpdate{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)
	assert.Equal(t, userentity.RoleModerator, updated.Role)

	bad := "root"
	_, err = admin.Users.Update(ctx, registered.ID, finance.UserUpdate{Role: &bad})
	assert.Equal(t, http.StatusUnprocessableEntity, apiclient.StatusCode(err))

	taken := "root@example.com"
	_, err = admin.Users.Update(ctx, registered.ID, finance.UserUpdate{Email: &taken})
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Email already registered", apiErr.Detail())

	err = admin.Users.Delete(ctx, adminUser.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Cannot delete your own account", apiErr.Detail())

	require.NoError(t, admin.Users.Delete(ctx, registered.ID))
	_, err = admin.Users.Get(ctx, registered.ID)
	assert.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))
	err = admin.Users.Delete(ctx, registered.ID)
	assert.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))
}
