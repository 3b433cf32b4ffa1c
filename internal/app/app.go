package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/robfig/cron/v3"

	"github.com/svensoldin/job-curator-mono/internal/transport"
)

type app struct {
	di   *dependencyInjector
	srv  *http.Server
	cron *cron.Cron
}

func New(ctx context.Context) *app {
	di := newDI()
	di.Logger()
	mux := http.NewServeMux()
	return &app{
		di: di,
		srv: &http.Server{
			Addr: di.Config().Addr,
			Handler: transport.WithRecover(
				transport.LogMiddleware(
					di.Router(ctx).MountRoutes(mux),
				),
			),
		},
		cron: cron.New(),
	}
}

func (a *app) Run(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", a.di.Config().CleanupInterval)
	if _, err := a.cron.AddFunc(spec, a.di.TaskManager(ctx).Cleanup); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	a.cron.Start()
	slog.Info("cleanup scheduler started", slog.String("spec", spec))

	errCh := make(chan error)
	go func() {
		slog.Info("starting server", slog.String("addr", a.srv.Addr))
		if e := a.srv.ListenAndServe(); e != nil && !errors.Is(e, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", e.Error()))
			errCh <- e
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received")

	<-a.cron.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		a.di.Config().ShutdownTimeout,
	)
	defer cancel()

	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
		return err
	}

	a.di.Close()

	slog.Info("server gracefully stopped")
	return nil
}
