package domain

import "time"

type RunStatus string

const (
	RunStatusUploaded   RunStatus = "uploaded"
	RunStatusProcessing RunStatus = "processing"
	RunStatusReady      RunStatus = "ready"
	RunStatusFailed     RunStatus = "failed"
)

// Run tracks one submitted pair of spreadsheets through processing.
type Run struct {
	ID                string            `json:"id"`
	InventoryFilename string            `json:"inventory_filename"`
	ReferenceFilename string            `json:"reference_filename"`
	InventoryKey      string            `json:"inventory_key"`
	ReferenceKey      string            `json:"reference_key"`
	Status            RunStatus         `json:"status"`
	Error             string            `json:"error,omitempty"`
	Summary           *ExecutiveSummary `json:"summary,omitempty"`
	Unmatched         []string          `json:"unmatched_substages,omitempty"`
	ReportKey         string            `json:"report_key,omitempty"`
	ErrorsKey         string            `json:"errors_key,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// RunOutcome is what processing persists on success.
type RunOutcome struct {
	Summary   ExecutiveSummary
	Unmatched []string
	ReportKey string
	ErrorsKey string
}

type ArtifactKind string

const (
	ArtifactReport ArtifactKind = "report"
	ArtifactErrors ArtifactKind = "errors"
)
