package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quatton/podium/pkg/papi"
	"github.com/quatton/podium/pkg/papi/routes"
	"github.com/quatton/podium/pkg/schedule"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run"},
	Short:   "Run the HTTP API, sync workers and scheduler",
	RunE:    serve,
}

var serveNoSchedule bool

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveNoSchedule, "no-schedule", false, "Do not register the periodic sync")
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Print(func(format string, a ...interface{}) { fmt.Fprintf(os.Stderr, format, a...) })

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()
	a.queue.Start(workCtx)

	if !serveNoSchedule && cfg.Window() != nil {
		sched := schedule.NewScheduler(a.queue, logger.With("component", "schedule"))
		if err := sched.Add(cfg.SyncSchedule); err != nil {
			return err
		}
		sched.Start(ctx)
	}

	api := papi.NewApi()
	routes.RegisterAPI(api.Api, a.services())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 podium starting", "addr", srv.Addr, "docs", cfg.BaseURL+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	a.queue.Close()
	return nil
}
