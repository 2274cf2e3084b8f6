package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediconnect/internal/container"
	"mediconnect/internal/database"
	"mediconnect/internal/handlers"
)

var (
	flagMigrate bool
	flagNoHTTP  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the reminder configuration API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagMigrate, "migrate", false, "apply database migrations before starting")
	serveCmd.Flags().BoolVar(&flagNoHTTP, "no-http", false, "run the scheduler only")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if flagMigrate {
		if err := database.Migrate(ctx, c.DB); err != nil {
			return err
		}
	}

	c.Scheduler.Start()

	var srv *http.Server
	errCh := make(chan error, 1)
	if !flagNoHTTP {
		srv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handlers.NewRouter(c.MedicineService, log),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Infof("API listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err = <-errCh:
		log.WithError(err).Error("API server failed")
	}

	// ticks in flight run to completion; the daily tick bounds the wait
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DailyTickTimeout)
	defer cancel()

	if srv != nil {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.WithError(serr).Warn("API server did not shut down cleanly")
		}
	}
	if serr := c.Scheduler.Stop(shutdownCtx); serr != nil {
		log.WithError(serr).Warn("Scheduler did not drain")
	}
	return err
}
