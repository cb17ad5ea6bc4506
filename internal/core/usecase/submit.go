package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
	"github.com/kirillkom/legal-sla-monitor/internal/core/ports"
)

type SubmitRunUseCase struct {
	repo    ports.RunRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewSubmitRunUseCase(
	repo ports.RunRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *SubmitRunUseCase {
	return &SubmitRunUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *SubmitRunUseCase) Submit(ctx context.Context, inventory, reference ports.UploadedFile) (*domain.Run, error) {
	if inventory.Body == nil || reference.Body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit run", fmt.Errorf("inventory and reference files are required"))
	}

	id := uuid.NewString()
	inventoryKey := fmt.Sprintf("%s_inventory_%s", id, sanitizeFilename(inventory.Filename))
	referenceKey := fmt.Sprintf("%s_reference_%s", id, sanitizeFilename(reference.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, inventoryKey, inventory.Body); err != nil {
		return nil, fmt.Errorf("save inventory to object storage: %w", err)
	}
	if err := uc.storage.Save(ctx, referenceKey, reference.Body); err != nil {
		return nil, fmt.Errorf("save reference to object storage: %w", err)
	}

	run := &domain.Run{
		ID:                id,
		InventoryFilename: inventory.Filename,
		ReferenceFilename: reference.Filename,
		InventoryKey:      inventoryKey,
		ReferenceKey:      referenceKey,
		Status:            domain.RunStatusUploaded,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := uc.repo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run metadata: %w", err)
	}

	if err := uc.queue.PublishRunSubmitted(ctx, run.ID); err != nil {
		publishErr := fmt.Errorf("publish run event: %w", err)
		if statusErr := uc.repo.UpdateStatus(ctx, run.ID, domain.RunStatusFailed, publishErr.Error()); statusErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", publishErr, statusErr)
		}
		return nil, publishErr
	}

	return run, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "workbook.xlsx"
	}
	return base
}
