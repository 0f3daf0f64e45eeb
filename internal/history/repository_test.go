package history

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepilot/internal/flow"
	"github.com/wonny/tradepilot/pkg/config"
	"github.com/wonny/tradepilot/pkg/database"
)

type execCall struct {
	sql  string
	args []interface{}
}

type fakeDB struct {
	calls    []execCall
	affected int64
	err      error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	if f.affected == 0 {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return errRow{err: pgx.ErrNoRows}
}

type errRow struct{ err error }

func (r errRow) Scan(dest ...interface{}) error { return r.err }

func testRun() flow.Run {
	return flow.Run{
		ID:        "6f1c1f0e-8d0a-4c55-9a43-1b8c0e8a2f10",
		Activity:  flow.ActivityRun,
		Mode:      flow.ModeAuto,
		Prompt:    flow.DefaultPrompt,
		StartedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewRepository(db).EnsureSchema(context.Background()))

	require.Len(t, db.calls, len(schema))
	assert.Contains(t, db.calls[1].sql, "pilot.flow_runs")
	assert.Contains(t, db.calls[2].sql, "pilot.flow_steps")
}

func TestRunStarted(t *testing.T) {
	db := &fakeDB{}
	run := testRun()

	require.NoError(t, NewRepository(db).RunStarted(context.Background(), run))
	require.Len(t, db.calls, 1)
	assert.Equal(t, []interface{}{run.ID, "run", "auto", flow.DefaultPrompt, run.StartedAt}, db.calls[0].args)
}

func TestStepFinished(t *testing.T) {
	db := &fakeDB{}
	repo := NewRepository(db)
	fixed := time.Date(2026, 3, 2, 9, 0, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	step := flow.Step{ID: "market", Name: "Select market"}
	require.NoError(t, repo.StepFinished(context.Background(), testRun(), 2, step, nil))
	require.NoError(t, repo.StepFinished(context.Background(), testRun(), 3, step, errors.New("rejected")))

	require.Len(t, db.calls, 2)
	assert.Nil(t, db.calls[0].args[4])
	errText, ok := db.calls[1].args[4].(*string)
	require.True(t, ok)
	assert.Equal(t, "rejected", *errText)
	assert.Equal(t, fixed, db.calls[1].args[5])
}

func TestRunFinished(t *testing.T) {
	t.Run("updates outcome", func(t *testing.T) {
		db := &fakeDB{affected: 1}
		require.NoError(t, NewRepository(db).RunFinished(context.Background(), testRun(), flow.OutcomeStopped))
		assert.Equal(t, "stopped", db.calls[0].args[2])
	})

	t.Run("unknown run", func(t *testing.T) {
		db := &fakeDB{}
		err := NewRepository(db).RunFinished(context.Background(), testRun(), flow.OutcomeCompleted)
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		db := &fakeDB{err: errors.New("connection reset")}
		err := NewRepository(db).RunFinished(context.Background(), testRun(), flow.OutcomeCompleted)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "connection reset"))
	})
}

func TestGetRun_NotFound(t *testing.T) {
	_, err := NewRepository(&fakeDB{}).GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRepository_Integration(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	db, err := database.New(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := NewRepository(db.Pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	run := testRun()
	run.ID = uuid.NewString()
	run.StartedAt = time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.RunStarted(ctx, run))
	require.NoError(t, repo.StepFinished(ctx, run, 0, flow.Step{ID: "welcome", Name: "Welcome"}, nil))
	require.NoError(t, repo.StepFinished(ctx, run, 1, flow.Step{ID: "indicators", Name: "Choose indicators"}, errors.New("boom")))
	require.NoError(t, repo.RunFinished(ctx, run, flow.OutcomeCompleted))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Outcome)
	assert.Equal(t, 1, got.StepsOK)
	assert.Equal(t, 1, got.StepsFailed)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "boom", got.Steps[1].Error)
	assert.NotNil(t, got.FinishedAt)

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)
}
