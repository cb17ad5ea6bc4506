package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

type tableReaderFake struct {
	err error
}

func (f *tableReaderFake) ReadTable(r io.Reader) (domain.Table, error) {
	if f.err != nil {
		return domain.Table{}, f.err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return domain.Table{}, err
	}
	return domain.Table{Name: string(raw)}, nil
}

type reportWriterFake struct {
	err error
}

func (f *reportWriterFake) WriteReport(w io.Writer, result *domain.Result) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, "report")
	return err
}

func (f *reportWriterFake) WriteErrors(w io.Writer, records []domain.CaseRecord, _ domain.SourceLayout) error {
	_, err := io.WriteString(w, "errors")
	return err
}

type analyzerFake struct {
	inventory, reference string
	result               *domain.Result
	err                  error
}

func (f *analyzerFake) Run(inventory, reference domain.Table) (*domain.Result, error) {
	f.inventory, f.reference = inventory.Name, reference.Name
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func storedRun() (*runRepoFake, *storageFake) {
	repo := &runRepoFake{run: &domain.Run{ID: "run-1", InventoryKey: "inv-key", ReferenceKey: "ref-key", Status: domain.RunStatusUploaded}}
	storage := newStorageFake()
	storage.objects["inv-key"] = "inventory-body"
	storage.objects["ref-key"] = "reference-body"
	return repo, storage
}

func TestProcessSuccess(t *testing.T) {
	repo, storage := storedRun()
	analyzer := &analyzerFake{result: &domain.Result{
		Errors:             []domain.CaseRecord{{RowNumber: 3, Error: domain.RecordErrorNegativeElapsed}},
		UnmatchedSubstages: []string{"X"},
		Summary:            domain.ExecutiveSummary{Today: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), TotalRecords: 4},
	}}
	uc := NewProcessRunUseCase(repo, storage, &tableReaderFake{}, &reportWriterFake{}, analyzer)

	if _, err := uc.Process(context.Background(), "run-1"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if analyzer.inventory != "inventory-body" || analyzer.reference != "reference-body" {
		t.Fatalf("analyzer got wrong tables: %q / %q", analyzer.inventory, analyzer.reference)
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[0].status != domain.RunStatusProcessing || repo.statusCalls[1].status != domain.RunStatusReady {
		t.Fatalf("unexpected status calls: %+v", repo.statusCalls)
	}
	if repo.outcome == nil || repo.outcome.Summary.TotalRecords != 4 || len(repo.outcome.Unmatched) != 1 {
		t.Fatalf("unexpected outcome: %+v", repo.outcome)
	}
	if storage.objects[repo.outcome.ReportKey] != "report" || storage.objects[repo.outcome.ErrorsKey] != "errors" {
		t.Fatalf("expected report and errors artifacts, got %v", storage.objects)
	}
}

func TestProcessSkipsErrorsWorkbookWhenClean(t *testing.T) {
	repo, storage := storedRun()
	uc := NewProcessRunUseCase(repo, storage, &tableReaderFake{}, &reportWriterFake{}, &analyzerFake{result: &domain.Result{}})

	if _, err := uc.Process(context.Background(), "run-1"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if repo.outcome.ErrorsKey != "" {
		t.Fatalf("expected no errors artifact, got %s", repo.outcome.ErrorsKey)
	}
}

func TestProcessMissingColumnFailsRun(t *testing.T) {
	repo, storage := storedRun()
	missing := &domain.MissingColumnError{Table: "inventory", Field: "stage_entry_date", Aliases: []string{"FECHA_ACT_ETAPA"}}
	uc := NewProcessRunUseCase(repo, storage, &tableReaderFake{}, &reportWriterFake{}, &analyzerFake{err: missing})

	_, err := uc.Process(context.Background(), "run-1")
	if !domain.IsKind(err, domain.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.RunStatusFailed || !strings.Contains(last.errMsg, "FECHA_ACT_ETAPA") {
		t.Fatalf("expected failed status with column name, got %+v", last)
	}
	if repo.outcome != nil {
		t.Fatalf("outcome must not be saved on structural error")
	}
}

func TestProcessReportsMarkFailedError(t *testing.T) {
	repo, storage := storedRun()
	repo.failStatusErr = errors.New("db down")
	uc := NewProcessRunUseCase(repo, storage, &tableReaderFake{err: errors.New("corrupt")}, &reportWriterFake{}, &analyzerFake{})

	_, err := uc.Process(context.Background(), "run-1")
	if err == nil || !strings.Contains(err.Error(), "mark failed status: db down") {
		t.Fatalf("expected wrapped mark-failed error, got %v", err)
	}
}

func TestProcessSaveOutcomeError(t *testing.T) {
	repo, storage := storedRun()
	repo.saveErr = errors.New("constraint")
	uc := NewProcessRunUseCase(repo, storage, &tableReaderFake{}, &reportWriterFake{}, &analyzerFake{result: &domain.Result{}})

	if _, err := uc.Process(context.Background(), "run-1"); err == nil {
		t.Fatalf("expected error")
	}
	if repo.statusCalls[len(repo.statusCalls)-1].status != domain.RunStatusFailed {
		t.Fatalf("expected run marked failed, got %+v", repo.statusCalls)
	}
}
