package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
	"github.com/kirillkom/legal-sla-monitor/internal/core/ports"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type ReadRunUseCase struct {
	repo    ports.RunRepository
	storage ports.ObjectStorage
}

func NewReadRunUseCase(repo ports.RunRepository, storage ports.ObjectStorage) *ReadRunUseCase {
	return &ReadRunUseCase{repo: repo, storage: storage}
}

func (uc *ReadRunUseCase) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *ReadRunUseCase) ListRecent(ctx context.Context, limit int) ([]domain.Run, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	return uc.repo.ListRecent(ctx, limit)
}

// OpenArtifact streams a generated workbook. Runs that are not ready, or
// that produced no error rows, report ErrArtifactNotFound.
func (uc *ReadRunUseCase) OpenArtifact(ctx context.Context, id string, kind domain.ArtifactKind) (io.ReadCloser, error) {
	run, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status != domain.RunStatusReady {
		return nil, domain.WrapError(domain.ErrArtifactNotFound, "open artifact", fmt.Errorf("run %s is %s", id, run.Status))
	}

	var key string
	switch kind {
	case domain.ArtifactReport:
		key = run.ReportKey
	case domain.ArtifactErrors:
		key = run.ErrorsKey
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "open artifact", fmt.Errorf("unknown artifact %q", kind))
	}
	if key == "" {
		return nil, domain.WrapError(domain.ErrArtifactNotFound, "open artifact", fmt.Errorf("run %s has no %s", id, kind))
	}

	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open %s from object storage: %w", kind, err)
	}
	return rc, nil
}
