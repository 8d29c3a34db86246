package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-crm/internal/auth"
	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/logging"
	"github.com/evcraddock/estate-crm/internal/metrics"
	"github.com/evcraddock/estate-crm/internal/repository"
	"github.com/evcraddock/estate-crm/internal/web"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the HTTP API server. Configuration is read from ECRM_* environment variables and an optional .env file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: ECRM_ADDR or :8080)")

	return cmd
}

func runServe(ctx context.Context, addrFlag string) error {
	cfg, err := auth.ConfigFromEnv()
	if err != nil {
		return err
	}
	if addrFlag != "" {
		cfg.Addr = addrFlag
	}

	logger := logging.Setup(cfg.DevMode || flagVerbose)

	var d *db.DB
	if cfg.DBDriver == db.DriverSQLite {
		d, err = db.Open(cfg.DBDSN)
	} else {
		d, err = db.OpenDriver(cfg.DBDriver, cfg.DBDSN)
	}
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			logger.Warn("closing database", "error", cerr)
		}
	}()

	if cfg.AdminEmail != "" {
		admin, created, err := auth.EnsureAdmin(ctx, repository.NewUserRepository(d), cfg)
		if err != nil {
			return fmt.Errorf("bootstrapping admin: %w", err)
		}
		if created {
			logger.Info("created admin account", "email", admin.Email)
		}
	}

	sessions := auth.NewSessionStore(d, auth.NewTokens(cfg.JWTSecret), cfg.TokenTTL)
	srv := web.NewServer(d, sessions,
		web.WithLogger(logger),
		web.WithMetrics(metrics.New()),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("estate-crm server", "version", Version, "driver", cfg.DBDriver, "dev_mode", cfg.DevMode)
	return srv.ListenAndServe(ctx, cfg.Addr)
}
