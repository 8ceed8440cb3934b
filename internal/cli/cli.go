// Package cli is the terminal front end of the finance client. Every command
// passes the route guard for its view before touching the API.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/apiclient"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/finance"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/guard"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/tokenstore"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/utilities"
)

// ErrRedirected is returned when the guard sends a command to another view.
var ErrRedirected = errors.New("redirected")

type Options struct {
	URL       string        `short:"u" long:"url" description:"API base url (default $API_BASE_URL)"`
	Timeout   time.Duration `long:"timeout" description:"request timeout (default $API_TIMEOUT)"`
	Store     string        `long:"store" description:"token store: file, memory or redis (default $TOKEN_STORE)"`
	TokenFile string        `long:"token-file" description:"token file for the file store (default $TOKEN_FILE)"`
	JSON      bool          `long:"json" description:"print JSON instead of tables"`
	Verbose   bool          `short:"v" long:"verbose" description:"debug logging"`

	Login        LoginCmd        `command:"login" description:"log in and store the access token"`
	Register     RegisterCmd     `command:"register" description:"create an account"`
	Logout       LogoutCmd       `command:"logout" description:"revoke the session and forget the token"`
	Whoami       WhoamiCmd       `command:"whoami" description:"show the logged in user"`
	Refresh      RefreshCmd      `command:"refresh" description:"exchange the stored token for a new one"`
	Nav          NavCmd          `command:"nav" description:"resolve a view through the route guard"`
	Categories   CategoriesCmd   `command:"categories" description:"manage categories"`
	Expenses     ExpensesCmd     `command:"expenses" description:"manage expenses"`
	Transactions TransactionsCmd `command:"transactions" description:"manage transactions"`
}

// App holds what commands share once flags are parsed.
type App struct {
	Options
	out    io.Writer
	store  tokenstore.Store
	svc    *finance.Service
	guard  *guard.Guard
	logger *zap.SugaredLogger
}

type appCommand interface {
	run(ctx context.Context, a *App, args []string) error
}

// Run parses args and executes the selected command. A non-nil store
// replaces the one named by flags and environment.
func Run(ctx context.Context, args []string, out io.Writer, store tokenstore.Store) error {
	a := &App{out: out, store: store}
	parser := flags.NewParser(&a.Options, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "finance"
	parser.CommandHandler = func(cmd flags.Commander, rest []string) error {
		c, ok := cmd.(appCommand)
		if !ok {
			return cmd.Execute(rest)
		}
		if err := a.init(); err != nil {
			return err
		}
		defer a.logger.Sync()
		return c.run(ctx, a, rest)
	}
	_, err := parser.ParseArgs(args)
	return err
}

func (a *App) init() error {
	lg, err := utilities.Init(utilities.Config{Level: a.logLevel(), Dev: true})
	if err != nil {
		return err
	}
	a.logger = lg.Sugar()

	if a.store == nil {
		cfg := tokenstore.ConfigFromEnv()
		if a.Store != "" {
			cfg.Backend = a.Store
		}
		if a.TokenFile != "" {
			cfg.FilePath = a.TokenFile
		}
		if a.store, err = tokenstore.Open(cfg); err != nil {
			return err
		}
	}

	cfg := apiclient.ConfigFromEnv()
	if a.URL != "" {
		cfg.BaseURL = a.URL
	}
	if a.Timeout > 0 {
		cfg.Timeout = a.Timeout
	}
	client, err := apiclient.New(cfg, a.store, apiclient.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.svc = finance.New(client, a.logger)
	a.guard = guard.New(a.store, guard.DefaultRoutes(), guard.WithLogger(a.logger))
	return nil
}

func (a *App) logLevel() string {
	if a.Verbose {
		return "debug"
	}
	return "warn"
}

// enter runs the guard for view and fails when it lands elsewhere.
func (a *App) enter(ctx context.Context, view string) error {
	got, err := a.guard.Navigate(ctx, view)
	if err != nil {
		return err
	}
	if got != view {
		fmt.Fprintf(a.out, "-> %s\n", got)
		return fmt.Errorf("%w to %s", ErrRedirected, got)
	}
	return nil
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
