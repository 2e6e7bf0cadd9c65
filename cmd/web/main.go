package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"geethika.lk/app/internal/config"
	"geethika.lk/app/internal/database"
	apphttp "geethika.lk/app/internal/http"
	"geethika.lk/app/internal/mailer"
	"geethika.lk/app/internal/metrics"
	"geethika.lk/app/internal/modules/email"
	"geethika.lk/app/internal/modules/orders"
	"geethika.lk/app/internal/modules/payments"
	"geethika.lk/app/internal/modules/users"
	"geethika.lk/app/internal/storage"
)

const sessionPurgeInterval = time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("server_exit", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	provider, err := payments.NewProvider(cfg.Payments)
	if err != nil {
		return err
	}
	sessions := users.NewSessionStore(db, cfg.Session.TTL)

	router, err := apphttp.NewRouter(apphttp.Deps{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Store:    store.Storage,
		Provider: provider,
		Sessions: sessions,
		Metrics:  metrics.NewRecorder(),
	})
	if err != nil {
		return err
	}

	outbox := email.NewOutbox(db)
	dispatcher := email.NewDispatcher(db, newSender(cfg, logger), email.NewRenderer(), logger)
	reaper := orders.NewReaper(db, orders.NewNotifier(outbox, cfg.HTTP.BaseURL),
		cfg.Orders.PaymentTTL, cfg.Orders.ReaperInterval, logger)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); dispatcher.Run(ctx) }()
	go func() { defer wg.Done(); reaper.Run(ctx) }()
	go func() { defer wg.Done(); purgeSessions(ctx, sessions, logger) }()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_start",
			slog.String("addr", cfg.HTTP.Addr),
			slog.String("env", cfg.Env),
			slog.String("storage", store.Driver),
			slog.String("payments", provider.Name()),
			slog.String("email", cfg.Email.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newSender(cfg config.Config, logger *slog.Logger) email.Sender {
	switch strings.ToLower(cfg.Email.Driver) {
	case "smtp":
		return email.NewMailerAdapter(mailer.NewSMTPMailer(cfg.SMTP), cfg.SMTP.From, cfg.SMTP.FromName)
	case "mailtrap":
		return email.NewMailtrapSender(cfg.Email.MailtrapURL, cfg.Email.MailtrapToken, cfg.SMTP.From, cfg.SMTP.FromName)
	default:
		return email.LogSender{Logger: logger}
	}
}

func purgeSessions(ctx context.Context, sessions *users.SessionStore, logger *slog.Logger) {
	t := time.NewTicker(sessionPurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("session_purge_failed", slog.Any("err", err))
				continue
			}
			if n > 0 {
				logger.Info("sessions_purged", slog.Int64("count", n))
			}
		}
	}
}
