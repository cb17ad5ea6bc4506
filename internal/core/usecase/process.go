package usecase

import (
	"bytes"
	"context"
	"fmt"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
	"github.com/kirillkom/legal-sla-monitor/internal/core/ports"
)

// Analyzer turns an inventory/reference pair into a classified result.
type Analyzer interface {
	Run(inventory, reference domain.Table) (*domain.Result, error)
}

type ProcessRunUseCase struct {
	repo     ports.RunRepository
	storage  ports.ObjectStorage
	reader   ports.TableReader
	writer   ports.ReportWriter
	analyzer Analyzer
}

func NewProcessRunUseCase(
	repo ports.RunRepository,
	storage ports.ObjectStorage,
	reader ports.TableReader,
	writer ports.ReportWriter,
	analyzer Analyzer,
) *ProcessRunUseCase {
	return &ProcessRunUseCase{
		repo:     repo,
		storage:  storage,
		reader:   reader,
		writer:   writer,
		analyzer: analyzer,
	}
}

// Process runs the pipeline for one stored run and returns its result so
// callers can record per-run figures.
func (uc *ProcessRunUseCase) Process(ctx context.Context, runID string) (*domain.Result, error) {
	if err := uc.markStatus(ctx, runID, domain.RunStatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}

	result, outcome, err := uc.processPipeline(ctx, runID)
	if err != nil {
		if failErr := uc.markFailed(ctx, runID, err); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, err
	}

	if err := uc.repo.SaveOutcome(ctx, runID, outcome); err != nil {
		err = fmt.Errorf("save outcome: %w", err)
		if failErr := uc.markFailed(ctx, runID, err); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, err
	}

	if err := uc.markStatus(ctx, runID, domain.RunStatusReady, ""); err != nil {
		return nil, fmt.Errorf("set status=ready: %w", err)
	}
	return result, nil
}

func (uc *ProcessRunUseCase) processPipeline(ctx context.Context, runID string) (*domain.Result, domain.RunOutcome, error) {
	run, err := uc.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, domain.RunOutcome{}, fmt.Errorf("fetch run by id: %w", err)
	}

	inventory, err := uc.loadTable(ctx, run.InventoryKey, "inventory")
	if err != nil {
		return nil, domain.RunOutcome{}, err
	}
	reference, err := uc.loadTable(ctx, run.ReferenceKey, "reference")
	if err != nil {
		return nil, domain.RunOutcome{}, err
	}

	result, err := uc.analyzer.Run(inventory, reference)
	if err != nil {
		return nil, domain.RunOutcome{}, fmt.Errorf("analyze run: %w", err)
	}

	outcome := domain.RunOutcome{
		Summary:   result.Summary,
		Unmatched: result.UnmatchedSubstages,
		ReportKey: fmt.Sprintf("%s_Inventario_Clasificado.xlsx", run.ID),
	}

	var report bytes.Buffer
	if err := uc.writer.WriteReport(&report, result); err != nil {
		return nil, domain.RunOutcome{}, fmt.Errorf("render report: %w", err)
	}
	if err := uc.storage.Save(ctx, outcome.ReportKey, &report); err != nil {
		return nil, domain.RunOutcome{}, fmt.Errorf("save report: %w", err)
	}

	if len(result.Errors) > 0 {
		outcome.ErrorsKey = fmt.Sprintf("%s_Errores.xlsx", run.ID)
		var errorsBook bytes.Buffer
		if err := uc.writer.WriteErrors(&errorsBook, result.Errors, result.Source); err != nil {
			return nil, domain.RunOutcome{}, fmt.Errorf("render errors: %w", err)
		}
		if err := uc.storage.Save(ctx, outcome.ErrorsKey, &errorsBook); err != nil {
			return nil, domain.RunOutcome{}, fmt.Errorf("save errors: %w", err)
		}
	}

	return result, outcome, nil
}

func (uc *ProcessRunUseCase) loadTable(ctx context.Context, key, name string) (domain.Table, error) {
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return domain.Table{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	table, err := uc.reader.ReadTable(rc)
	if err != nil {
		return domain.Table{}, fmt.Errorf("read %s: %w", name, err)
	}
	return table, nil
}

func (uc *ProcessRunUseCase) markStatus(ctx context.Context, runID string, status domain.RunStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, runID, status, errMessage)
}

func (uc *ProcessRunUseCase) markFailed(ctx context.Context, runID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, runID, domain.RunStatusFailed, processErr.Error())
}
