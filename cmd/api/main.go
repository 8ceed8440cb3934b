package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting finance api")

	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ensure := os.Getenv("DATABASE_ENSURE_SCHEMA") != "0"
	authCfg := auth.ConfigFromEnv()
	svcs, err := router.NewServices(ctx, db, authCfg, sugar, ensure)
	if err != nil {
		sugar.Fatalf("init services: %v", err)
	}
	go auth.RunJanitor(ctx, svcs.Sessions, authCfg.RefreshGrace, time.Hour, sugar)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8000"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.RegisterRoutes(sugar, svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
