package ports

import (
	"context"
	"io"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

// RunRepository persists and reads run state.
type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id string) (*domain.Run, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Run, error)
	UpdateStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error
	SaveOutcome(ctx context.Context, id string, outcome domain.RunOutcome) error
}

// ObjectStorage stores uploaded spreadsheets and generated reports.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes run submission events.
type MessageQueue interface {
	PublishRunSubmitted(ctx context.Context, runID string) error
	SubscribeRunSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// TableReader reads the first worksheet of a workbook into a table.
type TableReader interface {
	ReadTable(r io.Reader) (domain.Table, error)
}

// ReportWriter renders pipeline results as workbooks.
type ReportWriter interface {
	WriteReport(w io.Writer, result *domain.Result) error
	WriteErrors(w io.Writer, records []domain.CaseRecord, layout domain.SourceLayout) error
}
