package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/arzan03/LibraryHub/internal/config"
)

// app carries what every subcommand needs once the root has loaded it.
type app struct {
	envFiles []string
	cfg      config.Config
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "libraryhub",
		Short:         "School library lending service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(newServeCmd(a), newMigrateCmd(a), newUserAddCmd(a))
	return root
}

func (a *app) load() error {
	// a missing default .env is normal outside development
	if err := config.LoadDotEnv(a.envFiles...); err != nil && len(a.envFiles) > 0 {
		return fmt.Errorf("load env files: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg)
	slog.SetDefault(a.logger)
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	return slog.New(h).With("service", "libraryhub", "env", cfg.Env)
}
