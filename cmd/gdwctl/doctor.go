package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"geethika.lk/app/internal/database/migrations"
	"geethika.lk/app/internal/modules/orders"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check connectivity, schema drift and orders stuck awaiting payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			version, err := e.ping(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, version)

			problems := 0
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tROWS\tSTATUS")
			for _, m := range migrations.Models() {
				n, missing, err := inspect(ctx, e.db, m)
				if err != nil {
					return err
				}
				switch {
				case missing == nil:
					fmt.Fprintf(w, "%s\t-\tmissing table\n", tableName(e.db, m))
					problems++
				case len(missing) > 0:
					fmt.Fprintf(w, "%s\t%d\tmissing columns %v\n", tableName(e.db, m), n, missing)
					problems++
				default:
					fmt.Fprintf(w, "%s\t%d\tok\n", tableName(e.db, m), n)
				}
			}
			_ = w.Flush()

			stuck, err := stuckOrders(ctx, e.db, e.cfg.Orders.PaymentTTL)
			if err != nil {
				return err
			}
			if len(stuck) > 0 {
				fmt.Fprintf(out, "\n%d online orders pending past the %s payment window (run `gdwctl orders expire`):\n", len(stuck), e.cfg.Orders.PaymentTTL)
				for _, o := range stuck {
					fmt.Fprintf(out, "  %s  %s  %s\n", o.OrderNumber, o.Email, o.CreatedAt.Format(time.RFC3339))
				}
				e.log.Warn("orders stuck awaiting payment", zap.Int("count", len(stuck)))
			}

			if problems > 0 {
				return fmt.Errorf("%d schema problems found; run `gdwctl migrate`", problems)
			}
			fmt.Fprintln(out, "\nall good")
			return nil
		},
	}
}

// pingPostgres connects straight through pgx so a broken pool config still gets a clear error.
func pingPostgres(ctx context.Context, dsn string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("ping: %w", err)
	}
	return version, nil
}

func tableName(db *gorm.DB, model any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}

// inspect returns the row count and the model columns absent from the table.
// A nil slice means the table itself is missing.
func inspect(ctx context.Context, db *gorm.DB, model any) (int64, []string, error) {
	m := db.WithContext(ctx).Migrator()
	if !m.HasTable(model) {
		return 0, nil, nil
	}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return 0, nil, err
	}
	missing := []string{}
	for _, f := range stmt.Schema.Fields {
		if f.DBName == "" {
			continue
		}
		if !m.HasColumn(model, f.DBName) {
			missing = append(missing, f.DBName)
		}
	}
	var n int64
	if err := db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
		return 0, nil, err
	}
	return n, missing, nil
}

func stuckOrders(ctx context.Context, db *gorm.DB, ttl time.Duration) ([]orders.Order, error) {
	var out []orders.Order
	err := db.WithContext(ctx).
		Where("status = ? AND payment_method = ? AND payment_status IN ? AND created_at < ?",
			orders.StatusPending, orders.MethodOnline,
			[]string{orders.PaymentUnpaid, orders.PaymentFailed}, time.Now().UTC().Add(-ttl)).
		Order("created_at ASC").
		Limit(50).
		Find(&out).Error
	return out, err
}
