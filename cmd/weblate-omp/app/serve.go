package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	omp "github.com/omprussia/weblate-omp/internal/app"
	"github.com/omprussia/weblate-omp/internal/versions"
)

const defaultGracefulTimeout = 30 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the addon runtime",
		Long: `Start the HTTP hooks, the job workers and the daily scheduler.

Without --config the runtime keeps all data in memory and runs queued jobs
in process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}
	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().Duration("shutdown-timeout", defaultGracefulTimeout, "Time allowed for graceful shutdown")
	mustBind(v.BindPFlags(cmd.Flags()))
	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	app, err := omp.NewApp(ctx,
		omp.WithConfig(cfg),
		omp.WithAddress(v.GetString("address")),
		omp.WithVersion(versions.Get().Version),
	)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	errs := make(chan error, 1)
	go func() {
		errs <- app.Start()
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err = <-errs:
		slog.Error("Server stopped unexpectedly", "error", err)
	case <-sigCtx.Done():
	}

	if stopErr := app.Stop(v.GetDuration("shutdown-timeout")); stopErr != nil {
		slog.Error("Graceful shutdown failed", "error", stopErr)
		if err == nil {
			err = stopErr
		}
	}
	return err
}
