package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grcdash/grcdash/internal/auth"
	"github.com/grcdash/grcdash/internal/grc"
)

type userFlags struct {
	username   string
	email      string
	password   string
	department string
	staff      bool
	superuser  bool
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage login accounts",
	}

	var flags userFlags
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with an optional department profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			acct := auth.NewAccount{
				Username:    flags.username,
				Email:       flags.email,
				Password:    flags.password,
				IsStaff:     flags.staff || flags.superuser,
				IsSuperuser: flags.superuser,
			}
			if flags.department != "" {
				dept, err := grc.NewRepository(e.pool).FindDepartmentByName(ctx, flags.department)
				if err != nil {
					return fmt.Errorf("department %q: %w", flags.department, err)
				}
				acct.DepartmentID = &dept.ID
			}
			user, err := auth.NewService(auth.NewRepository(e.pool)).CreateAccount(ctx, acct)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	f := createCmd.Flags()
	f.StringVar(&flags.username, "username", "", "Login name")
	f.StringVar(&flags.email, "email", "", "E-mail address used for PO&AM digests")
	f.StringVar(&flags.password, "password", "", "Initial password (at least 8 characters)")
	f.StringVar(&flags.department, "department", "", "Department name for the user profile")
	f.BoolVar(&flags.staff, "staff", false, "Grant staff status")
	f.BoolVar(&flags.superuser, "superuser", false, "Grant superuser status")
	_ = createCmd.MarkFlagRequired("username")
	_ = createCmd.MarkFlagRequired("password")

	userCmd.AddCommand(createCmd)
	return userCmd
}
