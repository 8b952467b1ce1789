package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/recapforge/recap-studio/internal/config"
	"github.com/recapforge/recap-studio/internal/editor"
	"github.com/recapforge/recap-studio/internal/httpapi"
	"github.com/recapforge/recap-studio/internal/jobwatch"
	"github.com/recapforge/recap-studio/internal/recapapi"
	"github.com/recapforge/recap-studio/internal/wizard"
	"github.com/recapforge/recap-studio/pkg/log"
)

func main() {
	// .env is a development convenience; absence is fine
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("configuration: %v", err)
	}

	log.InitLogger(log.ParseLevel(cfg.Server.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := recapapi.NewClient(cfg.Recap.APIURL, cfg.Recap.APIKey, cfg.Recap.RequestTimeout())

	registry := jobwatch.NewRegistry(client, jobwatch.Tuning{
		BaseInterval: time.Duration(cfg.Poll.BaseIntervalMs) * time.Millisecond,
		Multiplier:   cfg.Poll.Multiplier,
		MaxInterval:  time.Duration(cfg.Poll.MaxIntervalMs) * time.Millisecond,
		ErrorCeiling: cfg.Poll.ErrorCeiling,
	})

	model := editor.NewModel()
	controller := editor.NewController(model)
	machine := wizard.NewMachine(model)

	server := httpapi.NewServer(model, controller, machine, registry, client,
		httpapi.WithUI(cfg.Server.UIDir),
		httpapi.WithJanitorSchedule(cfg.JanitorCronExpr),
	)

	janitor := cron.New()
	_, err = janitor.AddFunc(cfg.JanitorCronExpr, func() {
		registry.Prune()
		if balance, err := client.CreditBalance(ctx); err != nil {
			log.Warn("janitor: credit refresh failed: %v", err)
		} else {
			machine.SetCreditBalance(balance)
		}
	})
	if err != nil {
		log.Fatal("janitor schedule: %v", err)
	}
	janitor.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("studio listening on %s", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(cfg.Server.ListenAddr); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		janitor.Stop()
		registry.StopAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("studio exited: %v", err)
	}
}
