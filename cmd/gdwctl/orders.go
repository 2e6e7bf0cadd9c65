package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"geethika.lk/app/internal/modules/email"
	"geethika.lk/app/internal/modules/orders"
)

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Order maintenance",
	}
	cmd.AddCommand(expireCmd())
	return cmd
}

func expireCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Cancel online orders left unpaid past the payment window and restock them",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if ttl <= 0 {
				ttl = e.cfg.Orders.PaymentTTL
			}
			notifier := orders.NewNotifier(email.NewOutbox(e.db), e.cfg.HTTP.BaseURL)
			reaper := orders.NewReaper(e.db, notifier, ttl, time.Minute, slog.New(slog.NewTextHandler(os.Stderr, nil)))

			total := 0
			for {
				n, err := reaper.ExpireOnce(cmd.Context())
				total += n
				if err != nil {
					return err
				}
				if n < reaper.BatchSize {
					break
				}
			}
			e.log.Info("expired unpaid orders", zap.Int("count", total), zap.Duration("ttl", ttl))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "override the configured payment window")
	return cmd
}
