package ports

import (
	"context"
	"io"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

// UploadedFile is one spreadsheet of a run submission.
type UploadedFile struct {
	Filename string
	Body     io.Reader
}

// RunSubmitter is the inbound contract for accepting an inventory/reference pair.
type RunSubmitter interface {
	Submit(ctx context.Context, inventory, reference UploadedFile) (*domain.Run, error)
}

// RunReader is the inbound read model for run state and generated artifacts.
type RunReader interface {
	GetByID(ctx context.Context, id string) (*domain.Run, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Run, error)
	OpenArtifact(ctx context.Context, id string, kind domain.ArtifactKind) (io.ReadCloser, error)
}

// RunProcessor is the inbound contract for asynchronous run processing.
// Process also returns the computed result so callers can observe it.
type RunProcessor interface {
	Process(ctx context.Context, runID string) (*domain.Result, error)
}
