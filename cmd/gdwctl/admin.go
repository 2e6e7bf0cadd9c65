package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"geethika.lk/app/internal/modules/users"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage staff accounts",
	}
	cmd.AddCommand(promoteCmd())
	return cmd
}

func promoteCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Give an existing account a staff role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			svc := users.NewAdminService(e.db, users.NewService(e.db))
			u, err := svc.Promote(cmd.Context(), args[0], role)
			if err != nil {
				return fmt.Errorf("promote %s: %w", args[0], err)
			}
			e.log.Info("role updated", zap.String("email", u.Email), zap.String("role", u.Role))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", users.RoleAdmin, "admin|super_admin|customer")
	return cmd
}
