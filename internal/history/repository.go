package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/tradepilot/internal/flow"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("flow run not found")

// Querier is the subset of pgxpool.Pool used by the repository
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// RunRecord is one journaled run with its step tally
type RunRecord struct {
	ID          string       `json:"id"`
	Activity    string       `json:"activity"`
	Mode        string       `json:"mode"`
	Prompt      string       `json:"prompt"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
	Outcome     string       `json:"outcome,omitempty"`
	StepsOK     int          `json:"steps_ok"`
	StepsFailed int          `json:"steps_failed"`
	Steps       []StepRecord `json:"steps,omitempty"`
}

// StepRecord is one executed step of a run
type StepRecord struct {
	Index      int       `json:"index"`
	StepID     string    `json:"step_id"`
	StepName   string    `json:"step_name"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Repository journals flow runs in PostgreSQL
// ⭐ SSOT: flow 실행 이력 저장/조회는 여기서만
type Repository struct {
	db  Querier
	now func() time.Time
}

var _ flow.Recorder = (*Repository)(nil)

// NewRepository creates a new history repository
func NewRepository(db Querier) *Repository {
	return &Repository{db: db, now: time.Now}
}

var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS pilot`,
	`CREATE TABLE IF NOT EXISTS pilot.flow_runs (
		id          UUID PRIMARY KEY,
		activity    TEXT NOT NULL,
		mode        TEXT NOT NULL,
		prompt      TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		outcome     TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS pilot.flow_steps (
		run_id      UUID NOT NULL REFERENCES pilot.flow_runs(id) ON DELETE CASCADE,
		step_index  INT NOT NULL,
		step_id     TEXT NOT NULL,
		step_name   TEXT NOT NULL,
		error       TEXT,
		finished_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, step_index)
	)`,
	`CREATE INDEX IF NOT EXISTS flow_runs_started_at_idx ON pilot.flow_runs (started_at DESC)`,
}

// EnsureSchema creates the history tables if they are missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply history schema: %w", err)
		}
	}
	return nil
}

// RunStarted implements flow.Recorder
func (r *Repository) RunStarted(ctx context.Context, run flow.Run) error {
	query := `
		INSERT INTO pilot.flow_runs (id, activity, mode, prompt, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query,
		run.ID, string(run.Activity), string(run.Mode), run.Prompt, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// StepFinished implements flow.Recorder
func (r *Repository) StepFinished(ctx context.Context, run flow.Run, index int, step flow.Step, stepErr error) error {
	query := `
		INSERT INTO pilot.flow_steps (run_id, step_index, step_id, step_name, error, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, step_index) DO UPDATE SET
			step_id = EXCLUDED.step_id,
			step_name = EXCLUDED.step_name,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at
	`

	var errText *string
	if stepErr != nil {
		msg := stepErr.Error()
		errText = &msg
	}

	_, err := r.db.Exec(ctx, query, run.ID, index, step.ID, step.Name, errText, r.now())
	if err != nil {
		return fmt.Errorf("failed to save step %s of run %s: %w", step.ID, run.ID, err)
	}
	return nil
}

// RunFinished implements flow.Recorder
func (r *Repository) RunFinished(ctx context.Context, run flow.Run, outcome flow.Outcome) error {
	query := `
		UPDATE pilot.flow_runs
		SET finished_at = $2, outcome = $3
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, run.ID, r.now(), string(outcome))
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `
	r.id::text, r.activity, r.mode, r.prompt, r.started_at, r.finished_at, COALESCE(r.outcome, ''),
	COUNT(s.step_index) FILTER (WHERE s.error IS NULL),
	COUNT(s.step_index) FILTER (WHERE s.error IS NOT NULL)
`

func scanRun(row pgx.Row) (RunRecord, error) {
	var rec RunRecord
	err := row.Scan(
		&rec.ID, &rec.Activity, &rec.Mode, &rec.Prompt, &rec.StartedAt, &rec.FinishedAt,
		&rec.Outcome, &rec.StepsOK, &rec.StepsFailed,
	)
	return rec, err
}

// ListRuns returns the most recent runs, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT ` + runColumns + `
		FROM pilot.flow_runs r
		LEFT JOIN pilot.flow_steps s ON s.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, rec)
	}

	return runs, rows.Err()
}

// GetRun returns a run together with its steps in execution order
func (r *Repository) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := `
		SELECT ` + runColumns + `
		FROM pilot.flow_runs r
		LEFT JOIN pilot.flow_steps s ON s.run_id = r.id
		WHERE r.id::text = $1
		GROUP BY r.id
	`

	rec, err := scanRun(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT step_index, step_id, step_name, COALESCE(error, ''), finished_at
		FROM pilot.flow_steps
		WHERE run_id::text = $1
		ORDER BY step_index ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	rec.Steps = make([]StepRecord, 0)
	for rows.Next() {
		var st StepRecord
		if err := rows.Scan(&st.Index, &st.StepID, &st.StepName, &st.Error, &st.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		rec.Steps = append(rec.Steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &rec, nil
}
