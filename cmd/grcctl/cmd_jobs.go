package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/grcdash/grcdash/internal/app"
	"github.com/grcdash/grcdash/jobs"
)

const (
	jobDigest = "digest"
	jobSweep  = "sweep"
)

// enqueuer is the part of jobs.Client the trigger command uses.
type enqueuer interface {
	EnqueuePOAMDigest(ctx context.Context) (*asynq.TaskInfo, error)
	EnqueueOrphanSweep(ctx context.Context, dryRun bool) (*asynq.TaskInfo, error)
}

func newJobsCmd() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}

	var dryRun bool
	triggerCmd := &cobra.Command{
		Use:       "trigger <digest|sweep>",
		Short:     "Enqueue a background job now",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{jobDigest, jobSweep},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			if err != nil {
				return err
			}
			defer client.Close()
			return trigger(cmd.Context(), cmd.OutOrStdout(), client, args[0], dryRun)
		},
	}
	triggerCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Sweep only: report orphaned files without deleting them")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print queue counters as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer inspector.Close()
			return printStats(cmd.OutOrStdout(), inspector)
		},
	}

	jobsCmd.AddCommand(triggerCmd, statsCmd)
	return jobsCmd
}

func trigger(ctx context.Context, out io.Writer, client enqueuer, name string, dryRun bool) error {
	var (
		info *asynq.TaskInfo
		err  error
	)
	switch name {
	case jobDigest:
		if dryRun {
			return fmt.Errorf("--dry-run applies to %s only", jobSweep)
		}
		info, err = client.EnqueuePOAMDigest(ctx)
	case jobSweep:
		info, err = client.EnqueueOrphanSweep(ctx, dryRun)
	default:
		return fmt.Errorf("unsupported job %q", name)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "enqueued %s as %s on queue %s\n", info.Type, info.ID, info.Queue)
	return nil
}

func printStats(out io.Writer, inspector jobs.Inspector) error {
	stats, err := jobs.Stats(inspector)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
