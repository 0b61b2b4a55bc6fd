package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/gptbench/internal/db"
	"github.com/metalagman/gptbench/internal/lock"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage stored benchmark runs",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd.Flags(), map[string]string{"sqlite": "output.sqlite"})
		},
	}
	cmd.PersistentFlags().String("sqlite", "", "results database")
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsPruneCmd())
	cmd.AddCommand(runsPurgeCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, closeFn, err := openStore(cfg.Output.SQLite)
			if err != nil {
				return err
			}
			defer closeFn()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			t := table.New().Headers("Run", "Started", "Status", "Backend", "Modes", "Models")
			for _, r := range runs {
				t.Row(r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Status, r.Backend,
					strings.Join(r.Modes, ","), strings.Join(r.Models, ","))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show (0 for all)")
	return cmd
}

func runsPruneCmd() *cobra.Command {
	var keepLast int
	var keepDays int
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old runs from the results database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			policy := db.RetentionPolicy{KeepLast: keepLast, KeepDays: keepDays}
			if !policy.Enabled() {
				policy = db.RetentionPolicy{KeepLast: cfg.Retention.KeepLast, KeepDays: cfg.Retention.KeepDays}
			}
			if !policy.Enabled() {
				return fmt.Errorf("set --keep-last or --keep-days (or configure retention in %s)", cfgFile)
			}

			store, closeFn, err := openStore(cfg.Output.SQLite)
			if err != nil {
				return err
			}
			defer closeFn()

			runLock, err := lock.Acquire(runLockPath(cfg.Output.SQLite))
			if err != nil {
				return err
			}
			defer func() { _ = runLock.Release() }()

			// with the lock held nothing is running, so running rows are stale
			if _, err := store.Reconcile(cmd.Context()); err != nil {
				return err
			}
			res, err := store.Prune(cmd.Context(), policy, dryRun)
			if err != nil {
				return err
			}
			verb := "deleted"
			if dryRun {
				verb = "would delete"
			}
			log.Info().Msgf("%s %d runs (kept %d of %d)", verb, res.Deleted, res.Kept, res.Considered)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N runs")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep runs newer than N days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pruned without deleting")
	return cmd
}

func runsPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, closeFn, err := openStore(cfg.Output.SQLite)
			if err != nil {
				return err
			}
			defer closeFn()

			runLock, ok, err := lock.TryAcquire(runLockPath(cfg.Output.SQLite))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("a benchmark run is in progress")
			}
			defer func() { _ = runLock.Release() }()

			if err := store.Purge(cmd.Context()); err != nil {
				return fmt.Errorf("purge failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Purged all stored runs.")
			return nil
		},
	}
}
