package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RetentionPolicy selects which runs survive a prune. A run is kept when either
// rule keeps it.
type RetentionPolicy struct {
	KeepLast int
	KeepDays int
}

// Enabled reports whether the policy would keep anything out.
func (p RetentionPolicy) Enabled() bool {
	return p.KeepLast > 0 || p.KeepDays > 0
}

// PruneResult summarizes a prune.
type PruneResult struct {
	Considered int
	Kept       int
	Deleted    int
}

// Prune deletes runs outside policy with their results, summaries and events.
// Running runs are never deleted. With dryRun nothing is removed.
func (s *Store) Prune(ctx context.Context, policy RetentionPolicy, dryRun bool) (PruneResult, error) {
	if !policy.Enabled() {
		return PruneResult{}, nil
	}
	var cutoff time.Time
	if policy.KeepDays > 0 {
		cutoff = s.now().UTC().AddDate(0, 0, -policy.KeepDays)
	}
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		return PruneResult{}, err
	}

	res := PruneResult{Considered: len(runs)}
	for idx, run := range runs {
		keep := run.Status == StatusRunning ||
			(policy.KeepLast > 0 && idx < policy.KeepLast) ||
			(policy.KeepDays > 0 && (run.CreatedAt.IsZero() || run.CreatedAt.After(cutoff)))
		if keep {
			res.Kept++
			continue
		}
		if !dryRun {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id=?`, run.ID); err != nil {
				return res, fmt.Errorf("delete run %s: %w", run.ID, err)
			}
		}
		res.Deleted++
	}
	return res, nil
}

// Purge removes every run.
func (s *Store) Purge(ctx context.Context) error {
	return s.tx(ctx, "purge", func(tx *sql.Tx) error {
		for _, table := range []string{"events", "summaries", "results", "runs"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
