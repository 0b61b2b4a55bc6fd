package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Reconcile marks runs left in the running state as interrupted. Call it only
// while holding the run lock, when no run can be in progress.
func (s *Store) Reconcile(ctx context.Context) (int, error) {
	var stale []string
	err := s.tx(ctx, "reconcile", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT run_id FROM runs WHERE status=?`, StatusRunning)
		if err != nil {
			return fmt.Errorf("query running runs: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan run id: %w", err)
			}
			stale = append(stale, id)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		for _, id := range stale {
			if _, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, ended_at=? WHERE run_id=?`,
				StatusInterrupted, s.stamp(), id); err != nil {
				return fmt.Errorf("update run %s: %w", id, err)
			}
			if err := s.insertEvent(ctx, tx, id, Event{Type: "run_reconciled", Message: "run was left running; marked interrupted"}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}
