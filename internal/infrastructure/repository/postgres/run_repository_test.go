package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

var runRowColumns = []string{
	"id", "inventory_filename", "reference_filename", "inventory_key", "reference_key", "status", "error_message",
	"summary", "unmatched_substages", "report_key", "errors_key", "created_at", "updated_at",
}

func newRepoWithMock(t *testing.T) (*RunRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &RunRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM sla_runs").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesSummary(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(runRowColumns).
		AddRow("run-1", "inv.xlsx", "ref.xlsx", "k1", "k2", string(domain.RunStatusReady), "",
			[]byte(`{"total_records":7,"at_risk_this_month":2}`), []byte(`["SIN CATALOGO"]`), "r.xlsx", "", now, now)
	mock.ExpectQuery("FROM sla_runs").WithArgs("run-1").WillReturnRows(rows)

	run, err := repo.GetByID(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if run.Status != domain.RunStatusReady || run.Summary == nil || run.Summary.TotalRecords != 7 || run.Summary.AtRiskThisMonth != 2 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if len(run.Unmatched) != 1 || run.Unmatched[0] != "SIN CATALOGO" {
		t.Fatalf("unexpected unmatched: %v", run.Unmatched)
	}
}

func TestGetByIDWithoutSummary(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(runRowColumns).
		AddRow("run-1", "inv.xlsx", "ref.xlsx", "k1", "k2", string(domain.RunStatusUploaded), "", nil, []byte(`[]`), "", "", now, now)
	mock.ExpectQuery("FROM sla_runs").WithArgs("run-1").WillReturnRows(rows)

	run, err := repo.GetByID(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if run.Summary != nil {
		t.Fatalf("expected nil summary, got %+v", run.Summary)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE sla_runs").
		WithArgs("missing", string(domain.RunStatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.RunStatusProcessing, "")
	if !domain.IsKind(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveOutcomeWritesEmptyUnmatchedArray(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE sla_runs").
		WithArgs("run-1", sqlmock.AnyArg(), []byte(`[]`), "r.xlsx", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveOutcome(context.Background(), "run-1", domain.RunOutcome{ReportKey: "r.xlsx"})
	if err != nil {
		t.Fatalf("SaveOutcome() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecentDefaultsLimit(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(runRowColumns).
		AddRow("run-2", "a.xlsx", "b.xlsx", "k1", "k2", string(domain.RunStatusFailed), "missing column", nil, []byte(`[]`), "", "", now, now).
		AddRow("run-1", "a.xlsx", "b.xlsx", "k3", "k4", string(domain.RunStatusUploaded), "", nil, []byte(`[]`), "", "", now, now)
	mock.ExpectQuery("ORDER BY created_at DESC").WithArgs(20).WillReturnRows(rows)

	runs, err := repo.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[0].Error != "missing column" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
