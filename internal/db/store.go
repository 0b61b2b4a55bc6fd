package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Run statuses.
const (
	StatusRunning     = "running"
	StatusDone        = "done"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

// timeLayout sorts lexically, so ORDER BY on timestamp columns is chronological.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store persists runs, per-test results and per-model summaries.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// RunRecord is a row of the runs table.
type RunRecord struct {
	ID        string
	CreatedAt time.Time
	EndedAt   *time.Time
	Modes     []string
	Models    []string
	Backend   string
	Status    string
}

// ResultRecord is one stored test execution. JSON columns hold pre-encoded text.
type ResultRecord struct {
	RunID         string
	Mode          string
	Model         string
	Test          string
	Outcome       string
	Latency       float64
	Raw           string
	Sanitized     string
	ToolCall      string
	ToolResult    string
	FinalResponse string
	PlanJSON      string
	ContextJSON   string
	StepsMatch    *bool
	Error         string
	At            time.Time
}

// SummaryRecord is one model's aggregate for one mode of a run.
type SummaryRecord struct {
	RunID      string
	Mode       string
	Model      string
	Total      int
	Passed     int
	Failed     int
	Errored    int
	Score      float64
	AvgLatency float64
}

// Event is a timeline entry of a run.
type Event struct {
	Seq      int
	At       time.Time
	Type     string
	Message  string
	DataJSON string
}

// CreateRun inserts a running run and its run_started event.
func (s *Store) CreateRun(ctx context.Context, runID, backend string, modes, models []string) error {
	return s.tx(ctx, "create run", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id, created_at, modes, models, backend, status)
			VALUES(?, ?, ?, ?, ?, ?)`,
			runID, s.stamp(), strings.Join(modes, ","), strings.Join(models, ","), backend, StatusRunning); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return s.insertEvent(ctx, tx, runID, Event{Type: "run_started", Message: "run started"})
	})
}

// FinishRun sets the final status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	return s.tx(ctx, "finish run", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, ended_at=? WHERE run_id=?`, status, s.stamp(), runID)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		return s.insertEvent(ctx, tx, runID, Event{Type: "run_finished", Message: "run " + status})
	})
}

// InsertResult stores one test execution.
func (s *Store) InsertResult(ctx context.Context, r ResultRecord) error {
	var stepsMatch any
	if r.StepsMatch != nil {
		stepsMatch = *r.StepsMatch
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO results(run_id, mode, model, test, outcome, latency, raw, sanitized,
		tool_call, tool_result, final_response, plan_json, context_json, steps_match, error, at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Mode, r.Model, r.Test, r.Outcome, r.Latency, nullableString(r.Raw), nullableString(r.Sanitized),
		nullableString(r.ToolCall), nullableString(r.ToolResult), nullableString(r.FinalResponse),
		nullableString(r.PlanJSON), nullableString(r.ContextJSON), stepsMatch, nullableString(r.Error),
		r.At.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert result %s/%s: %w", r.Model, r.Test, err)
	}
	return nil
}

// SaveSummary upserts a model summary and records a model_finished event.
func (s *Store) SaveSummary(ctx context.Context, sum SummaryRecord) error {
	return s.tx(ctx, "save summary", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO summaries(run_id, mode, model, total, passed, failed, errored, score, avg_latency)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, mode, model) DO UPDATE SET total=excluded.total, passed=excluded.passed,
			failed=excluded.failed, errored=excluded.errored, score=excluded.score, avg_latency=excluded.avg_latency`,
			sum.RunID, sum.Mode, sum.Model, sum.Total, sum.Passed, sum.Failed, sum.Errored, sum.Score, sum.AvgLatency); err != nil {
			return fmt.Errorf("upsert summary: %w", err)
		}
		return s.insertEvent(ctx, tx, sum.RunID, Event{
			Type:    "model_finished",
			Message: fmt.Sprintf("%s %s: %.2f%%", sum.Mode, sum.Model, sum.Score),
		})
	})
}

const runColumns = `run_id, created_at, ended_at, modes, models, backend, status`

// ListRuns returns the newest runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryRuns(ctx, query, args...)
}

// GetRun returns one run, or ok false when it does not exist.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRecord, bool, error) {
	runs, err := s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id=?`, runID)
	if err != nil || len(runs) == 0 {
		return RunRecord{}, false, err
	}
	return runs[0], true, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		var (
			rec                      RunRecord
			createdAt, modes, models string
			endedAt                  sql.NullString
		)
		if err := rows.Scan(&rec.ID, &createdAt, &endedAt, &modes, &models, &rec.Backend, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		if endedAt.Valid {
			if t, err := time.Parse(timeLayout, endedAt.String); err == nil {
				rec.EndedAt = &t
			}
		}
		rec.Modes = splitList(modes)
		rec.Models = splitList(models)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Summaries returns the summaries of a run ordered by mode, then score descending.
func (s *Store) Summaries(ctx context.Context, runID string) ([]SummaryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, mode, model, total, passed, failed, errored, score, avg_latency
		FROM summaries WHERE run_id=? ORDER BY mode, score DESC, model`, runID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SummaryRecord
	for rows.Next() {
		var r SummaryRecord
		if err := rows.Scan(&r.RunID, &r.Mode, &r.Model, &r.Total, &r.Passed, &r.Failed, &r.Errored, &r.Score, &r.AvgLatency); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

// Results returns the results of a run in insertion order.
func (s *Store) Results(ctx context.Context, runID string) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, mode, model, test, outcome, latency, raw, sanitized, tool_call,
		tool_result, final_response, plan_json, context_json, steps_match, error, at
		FROM results WHERE run_id=? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ResultRecord
	for rows.Next() {
		var (
			r                                                 ResultRecord
			raw, sanitized, toolCall, toolResult, final, plan sql.NullString
			ctxJSON, errText                                  sql.NullString
			stepsMatch                                        sql.NullBool
			at                                                string
		)
		if err := rows.Scan(&r.RunID, &r.Mode, &r.Model, &r.Test, &r.Outcome, &r.Latency, &raw, &sanitized, &toolCall,
			&toolResult, &final, &plan, &ctxJSON, &stepsMatch, &errText, &at); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Raw, r.Sanitized, r.ToolCall, r.ToolResult = raw.String, sanitized.String, toolCall.String, toolResult.String
		r.FinalResponse, r.PlanJSON, r.ContextJSON, r.Error = final.String, plan.String, ctxJSON.String, errText.String
		if stepsMatch.Valid {
			v := stepsMatch.Bool
			r.StepsMatch = &v
		}
		r.At, _ = time.Parse(timeLayout, at)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// Events returns the timeline of a run.
func (s *Store) Events(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, ts, type, message, data_json FROM events WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		var (
			ev   Event
			ts   string
			data sql.NullString
		)
		if err := rows.Scan(&ev.Seq, &ts, &ev.Type, &ev.Message, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.At, _ = time.Parse(timeLayout, ts)
		ev.DataJSON = data.String
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *Store) tx(ctx context.Context, what string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin %s: %w", what, err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", what, err)
	}
	return nil
}

func (s *Store) insertEvent(ctx context.Context, tx *sql.Tx, runID string, ev Event) error {
	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events WHERE run_id=?`, runID).Scan(&seq); err != nil {
		return fmt.Errorf("read event seq: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(run_id, seq, ts, type, message, data_json) VALUES(?, ?, ?, ?, ?, ?)`,
		runID, seq+1, s.stamp(), ev.Type, ev.Message, nullableString(ev.DataJSON)); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
