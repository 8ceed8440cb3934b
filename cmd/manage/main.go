package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-finance-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/utilities"
)

type CreateAdminCmd struct {
	Email    string `long:"email" description:"admin email" required:"true"`
	Name     string `long:"name" description:"admin name" required:"true"`
	Password string `long:"password" env:"ADMIN_PASSWORD" description:"admin password" required:"true"`
	Force    bool   `long:"force" description:"promote an existing account to admin"`

	logger *zap.SugaredLogger
}

func (c *CreateAdminCmd) Execute([]string) error {
	ctx := context.Background()
	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		return err
	}
	defer db.Close()

	users := userrepo.NewUserRepo(db)
	if err := users.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure users table: %w", err)
	}
	u, upgraded, err := user.NewUserService(users, nil).CreateAdmin(ctx, c.Name, c.Email, c.Password, c.Force)
	if errors.Is(err, user.ErrUserExists) {
		c.logger.Warnw("user exists, pass --force to promote it", "email", c.Email)
		return err
	}
	if err != nil {
		return err
	}
	if upgraded {
		c.logger.Infow("promoted existing user to admin", "id", u.ID, "email", u.Email)
	} else {
		c.logger.Infow("admin user created", "id", u.ID, "email", u.Email)
	}
	return nil
}

type Options struct {
	CreateAdmin CreateAdminCmd `command:"create-admin" description:"create an admin user"`
}

func main() {
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	opts := &Options{}
	opts.CreateAdmin.logger = lg.Sugar()
	if _, err := flags.ParseArgs(opts, os.Args[1:]); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}
