package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"geethika.lk/app/internal/config"
	"geethika.lk/app/internal/database"
)

var Version = "dev"

var verbose bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gdwctl",
		Short:         "Maintenance tasks for the Geethika Digital World backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(ordersCmd())
	rootCmd.AddCommand(webhookCmd())
	return rootCmd
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// env loads configuration and opens the database for a command.
type env struct {
	cfg   config.Config
	db    *gorm.DB
	log   *zap.Logger
	ping  func(ctx context.Context) (string, error)
	close func()
}

// openEnv is swapped out by tests.
var openEnv = func() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:   cfg,
		db:    db,
		log:   newLogger(),
		ping:  func(ctx context.Context) (string, error) { return pingPostgres(ctx, cfg.DB.DSN) },
		close: func() { database.Close(db) },
	}, nil
}

func (e *env) Close() {
	_ = e.log.Sync()
	if e.close != nil {
		e.close()
	}
}
