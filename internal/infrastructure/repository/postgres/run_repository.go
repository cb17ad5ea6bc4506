package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
	"github.com/kirillkom/legal-sla-monitor/internal/infrastructure/resilience"
)

const runColumns = `id, inventory_filename, reference_filename, inventory_key, reference_key, status, error_message,
summary, unmatched_substages, report_key, errors_key, created_at, updated_at`

type RunRepository struct {
	db       *sql.DB
	executor *resilience.Executor
}

// NewRunRepository builds the repository. With a non-nil executor, reads and
// status/outcome updates are retried on transient connection failures.
func NewRunRepository(db *sql.DB, executor *resilience.Executor) *RunRepository {
	return &RunRepository{db: db, executor: executor}
}

func (r *RunRepository) do(ctx context.Context, operation string, fn func(context.Context) error) error {
	if r.executor == nil {
		return fn(ctx)
	}
	return wrapTemporaryIfNeeded(operation, r.executor.Execute(ctx, operation, fn, classifyPostgresError))
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS sla_runs (
	id TEXT PRIMARY KEY,
	inventory_filename TEXT NOT NULL,
	reference_filename TEXT NOT NULL,
	inventory_key TEXT NOT NULL,
	reference_key TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	summary JSONB,
	unmatched_substages JSONB NOT NULL DEFAULT '[]'::jsonb,
	report_key TEXT NOT NULL DEFAULT '',
	errors_key TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sla_runs_status ON sla_runs(status);
CREATE INDEX IF NOT EXISTS idx_sla_runs_created_at ON sla_runs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sla_runs (
	id, inventory_filename, reference_filename, inventory_key, reference_key, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		run.ID, run.InventoryFilename, run.ReferenceFilename, run.InventoryKey, run.ReferenceKey,
		string(run.Status), run.Error, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	var run domain.Run
	err := r.do(ctx, "postgres.get_run", func(ctx context.Context) error {
		row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+`
FROM sla_runs
WHERE id = $1
`, id)
		var err error
		run, err = scanRun(row)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrRunNotFound, "get run", fmt.Errorf("id=%s", id))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent returns the newest runs first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+runColumns+`
FROM sla_runs
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func (r *RunRepository) UpdateStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error {
	return r.do(ctx, "postgres.update_run_status", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
UPDATE sla_runs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("update run status: %w", err)
		}
		return ensureAffected(res, "update run status", id)
	})
}

func (r *RunRepository) SaveOutcome(ctx context.Context, id string, outcome domain.RunOutcome) error {
	summaryJSON, err := json.Marshal(outcome.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	unmatched := outcome.Unmatched
	if unmatched == nil {
		unmatched = []string{}
	}
	unmatchedJSON, err := json.Marshal(unmatched)
	if err != nil {
		return fmt.Errorf("marshal unmatched: %w", err)
	}

	return r.do(ctx, "postgres.save_run_outcome", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
UPDATE sla_runs
SET summary = $2, unmatched_substages = $3, report_key = $4, errors_key = $5, updated_at = $6
WHERE id = $1
`, id, summaryJSON, unmatchedJSON, outcome.ReportKey, outcome.ErrorsKey, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("save run outcome: %w", err)
		}
		return ensureAffected(res, "save run outcome", id)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (domain.Run, error) {
	var run domain.Run
	var status string
	var summaryRaw, unmatchedRaw []byte

	err := row.Scan(
		&run.ID, &run.InventoryFilename, &run.ReferenceFilename, &run.InventoryKey, &run.ReferenceKey,
		&status, &run.Error, &summaryRaw, &unmatchedRaw, &run.ReportKey, &run.ErrorsKey,
		&run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Run{}, err
		}
		return domain.Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	if len(summaryRaw) > 0 {
		var summary domain.ExecutiveSummary
		if err := json.Unmarshal(summaryRaw, &summary); err != nil {
			return domain.Run{}, fmt.Errorf("unmarshal summary: %w", err)
		}
		run.Summary = &summary
	}
	if len(unmatchedRaw) > 0 {
		if err := json.Unmarshal(unmatchedRaw, &run.Unmatched); err != nil {
			return domain.Run{}, fmt.Errorf("unmarshal unmatched: %w", err)
		}
	}
	return run, nil
}

func ensureAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrRunNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}
