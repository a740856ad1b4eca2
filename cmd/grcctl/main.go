// Command grcctl runs operator tasks against a GRC dashboard deployment.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/grcdash/grcdash/internal/app"
	"github.com/grcdash/grcdash/internal/platform/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "grcctl",
		Short:         "Operator commands for the GRC dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newUserCmd(), newJobsCmd())
	return root
}

// env bundles what most commands need: configuration, a logger and a
// database pool. close releases the pool.
type env struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 2})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &env{cfg: cfg, logger: app.NewLogger(cfg), pool: pool}, nil
}

func (e *env) close() {
	e.pool.Close()
}
