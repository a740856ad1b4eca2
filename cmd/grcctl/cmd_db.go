package main

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/grcdash/grcdash/internal/grc"
	"github.com/grcdash/grcdash/internal/platform/db"
	"github.com/grcdash/grcdash/internal/platform/filestore"
	"github.com/grcdash/grcdash/internal/seed"
	"github.com/grcdash/grcdash/internal/shared"
	"github.com/grcdash/grcdash/internal/users"
	"github.com/grcdash/grcdash/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			applied, err := db.Migrate(cmd.Context(), e.pool, migrations.Files)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
			}
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the sample data set (existing records are left alone)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			ownerID, err := lookupUser(cmd, users.NewService(users.NewRepository(e.pool)), owner)
			if err != nil {
				return err
			}
			if ownerID == nil {
				e.logger.Warn("seeding without an owner", slog.String("username", owner))
			}

			fixture, err := seed.Default()
			if err != nil {
				return err
			}
			files, err := filestore.New(ctx, e.cfg.FileStore())
			if err != nil {
				return err
			}
			svc := grc.NewService(grc.NewRepository(e.pool), files, shared.NewAuditLogger(e.pool), e.logger)
			report, err := seed.Loader{Store: svc, Owner: ownerID, Today: time.Now(), Logger: e.logger}.Load(ctx, fixture)
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "admin", "Username that owns the seeded records")
	return cmd
}

// lookupUser resolves a username. An unknown name is an error only when the
// flag was given explicitly.
func lookupUser(cmd *cobra.Command, svc *users.Service, username string) (*int64, error) {
	list, err := svc.ListUsers(cmd.Context())
	if err != nil {
		return nil, err
	}
	for _, u := range list {
		if u.Username == username {
			id := u.ID
			return &id, nil
		}
	}
	if cmd.Flags().Changed("owner") {
		return nil, fmt.Errorf("no user named %q", username)
	}
	return nil, nil
}

func printReport(cmd *cobra.Command, report seed.Report) {
	kinds := make([]string, 0, len(report.Created)+len(report.Existing))
	seen := map[string]bool{}
	for k := range report.Created {
		kinds = append(kinds, k)
		seen[k] = true
	}
	for k := range report.Existing {
		if !seen[k] {
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(cmd.OutOrStdout(), "%-12s created=%d existing=%d\n", k, report.Created[k], report.Existing[k])
	}
}
