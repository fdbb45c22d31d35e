package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"conference-webapp/model"
	"conference-webapp/service"
)

// NewCreateAdminCommand bootstraps an administrator. Registration over HTTP only
// creates USER accounts, so the first ADMIN has to come from here.
func NewCreateAdminCommand() *cobra.Command {
	req := model.RegisterRequest{}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an ADMIN account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := environment(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := service.New(store, nil, logger).Users.Provision(cmd.Context(), req, model.RoleAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "admin username")
	cmd.Flags().StringVar(&req.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&req.Password, "password", "", "admin password")
	cmd.Flags().StringVar(&req.FullName, "full-name", "Administrator", "admin full name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
