package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arzan03/LibraryHub/internal/handlers"
	"github.com/arzan03/LibraryHub/internal/server"
	"github.com/arzan03/LibraryHub/internal/services"
	"github.com/arzan03/LibraryHub/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("close store", "error", err.Error())
		}
	}()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	covers, err := a.coverStore(ctx)
	if err != nil {
		return err
	}

	auth := services.NewAuthService(st, services.AuthConfig{
		Secret:     cfg.JWTSecret,
		TokenTTL:   cfg.JWTExpire,
		BcryptCost: cfg.BcryptRounds,
	})
	h := handlers.New(handlers.Deps{
		Auth:    auth,
		Books:   services.NewBookService(st, covers),
		Loans:   services.NewLoanService(st, services.WithLoanPeriod(cfg.LoanPeriod)),
		Users:   services.NewUserService(st),
		Reports: services.NewReportService(st),
		Store:   st,
		Logger:  logger,
	})
	srv := server.New(h, auth, server.Options{
		FrontendURL: cfg.FrontendURL,
		BodyLimit:   cfg.BodyLimit,
		AccessLog:   !cfg.IsProduction() || cfg.LogLevel <= slog.LevelDebug,
		Logger:      logger,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := net.JoinHostPort("", cfg.Port)
		logger.Info("server listening", "addr", addr, "driver", cfg.DB.Driver)
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := srv.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown", "error", err.Error())
	}
	if err := <-errCh; err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn("listener stopped", "error", err.Error())
	}
	return nil
}

// coverStore returns nil when MinIO is not configured so cover routes answer 503.
func (a *app) coverStore(ctx context.Context) (services.CoverStore, error) {
	cfg := a.cfg
	if !cfg.Minio.Enabled() {
		a.logger.Info("cover storage disabled")
		return nil, nil
	}
	covers, err := storage.NewCoverStorage(ctx, storage.MinioConfig{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		UseSSL:    cfg.Minio.UseSSL,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	return covers, nil
}
