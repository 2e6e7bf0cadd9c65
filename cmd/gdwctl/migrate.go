package main

import (
	"github.com/spf13/cobra"

	"geethika.lk/app/internal/database/migrations"
	"geethika.lk/app/internal/database/seeders"
)

func migrateCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table, then apply constraints and partial indexes",
		Long: `Migrate runs AutoMigrate for each model group in dependency order and
then applies idempotent Postgres statements (partial unique index for
one open cart per user, check constraints on money and quantities).

Examples:
  gdwctl migrate
  gdwctl migrate --seed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := migrations.Run(e.db, e.log); err != nil {
				return err
			}
			if seed {
				return seeders.Run(cmd.Context(), e.db, e.cfg.Bootstrap, e.log)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "run seeders after migrating")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert default categories, studio services and the bootstrap super admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			return seeders.Run(cmd.Context(), e.db, e.cfg.Bootstrap, e.log)
		},
	}
}
