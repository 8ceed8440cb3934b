package guard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/tokenstore"
)

// Kind decides how a route reacts to credential presence.
type Kind int

const (
	Public Kind = iota
	Protected
	GuestOnly
	Logout
)

func (k Kind) String() string {
	switch k {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case GuestOnly:
		return "guest-only"
	case Logout:
		return "logout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Route struct {
	Name string
	Kind Kind
}

// Decision is the outcome of a guard check. When Allow is false Redirect names
// the view to go to instead.
type Decision struct {
	Allow    bool
	Redirect string
}

const (
	ViewLogin        = "login"
	ViewRegister     = "register"
	ViewHome         = "home"
	ViewCategories   = "categories"
	ViewExpenses     = "expenses"
	ViewTransactions = "transactions"
	ViewLogout       = "logout"
)

// DefaultRoutes is the view table of the finance app.
func DefaultRoutes() []Route {
	return []Route{
		{Name: ViewLogin, Kind: GuestOnly},
		{Name: ViewRegister, Kind: GuestOnly},
		{Name: ViewHome, Kind: Protected},
		{Name: ViewCategories, Kind: Protected},
		{Name: ViewExpenses, Kind: Protected},
		{Name: ViewTransactions, Kind: Protected},
		{Name: ViewLogout, Kind: Logout},
	}
}

// Guard gates navigation on the presence of a stored credential. It never
// inspects the token: an expired token still passes and is caught by the
// next API call.
type Guard struct {
	store  tokenstore.Store
	routes map[string]Route
	login  string
	home   string
	logger *zap.SugaredLogger
}

type Option func(*Guard)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(g *Guard) { g.logger = l }
}

// WithViews overrides the login and home redirect targets.
func WithViews(login, home string) Option {
	return func(g *Guard) {
		g.login = login
		g.home = home
	}
}

func New(store tokenstore.Store, routes []Route, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		routes: make(map[string]Route, len(routes)),
		login:  ViewLogin,
		home:   ViewHome,
		logger: zap.NewNop().Sugar(),
	}
	for _, r := range routes {
		g.routes[r.Name] = r
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check evaluates one navigation to route. Logout routes clear the store as a
// side effect when a credential is present.
func (g *Guard) Check(ctx context.Context, route Route) (Decision, error) {
	present := tokenstore.Present(ctx, g.store)
	switch route.Kind {
	case Protected:
		if present {
			return Decision{Allow: true}, nil
		}
		return Decision{Redirect: g.login}, nil
	case GuestOnly:
		if present {
			return Decision{Redirect: g.home}, nil
		}
		return Decision{Allow: true}, nil
	case Logout:
		if present {
			if err := g.store.Clear(ctx); err != nil {
				return Decision{}, fmt.Errorf("clear token: %w", err)
			}
			g.logger.Infow("logged out", "route", route.Name)
		}
		return Decision{Redirect: g.login}, nil
	default:
		return Decision{Allow: true}, nil
	}
}

// Navigate resolves a named view and follows redirects until a view admits the
// navigation. It returns the view finally shown.
func (g *Guard) Navigate(ctx context.Context, name string) (string, error) {
	seen := map[string]bool{}
	for {
		route, ok := g.routes[name]
		if !ok {
			return "", fmt.Errorf("unknown view %q", name)
		}
		if seen[name] {
			return "", fmt.Errorf("redirect loop at view %q", name)
		}
		seen[name] = true

		d, err := g.Check(ctx, route)
		if err != nil {
			return "", err
		}
		if d.Allow {
			return name, nil
		}
		g.logger.Debugw("navigation redirected", "from", name, "to", d.Redirect, "kind", route.Kind.String())
		name = d.Redirect
	}
}

// Route returns the registered route for name.
func (g *Guard) Route(name string) (Route, bool) {
	r, ok := g.routes[name]
	return r, ok
}
