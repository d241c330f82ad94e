package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/apestel/hardwire/internal/appctx"
	"github.com/apestel/hardwire/internal/config"
	"github.com/apestel/hardwire/internal/core"
)

// shutdownGrace bounds how long in-flight downloads and task workers
// get to finish before shutdown forces them closed.
const shutdownGrace = 30 * time.Second

func runServerMode(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return &cliError{code: 1, msg: err.Error()}
	}

	app, err := appctx.New(cfg)
	if err != nil {
		return &cliError{code: 2, msg: fmt.Sprintf("initialize application: %v", err)}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: app.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("hardwire: listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	shutdownCh := make(chan struct{})
	core.WaitForSignals(func() {
		app.Logger.Info("hardwire: signal received, shutting down")
		close(shutdownCh)
	})

	select {
	case err := <-errCh:
		return &cliError{code: 2, msg: fmt.Sprintf("server error: %v", err)}
	case <-shutdownCh:
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("hardwire: http server shutdown error", "error", err)
	}
	app.Shutdown(shutdownCtx, shutdownGrace)

	return nil
}
