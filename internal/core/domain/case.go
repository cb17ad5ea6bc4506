package domain

import "time"

// Table is a raw spreadsheet sheet: one header row and the data rows below it.
// Rows may be shorter than Headers when trailing cells are empty.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
	// FirstRow is the 1-based sheet row of Rows[0].
	FirstRow int
}

// Cell returns the value at (row, col) or "" when out of range.
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

type Severity string

const (
	SeverityOnTime        Severity = "ON_TIME"
	SeverityLight         Severity = "LIGHT"
	SeverityModerate      Severity = "MODERATE"
	SeveritySevere        Severity = "SEVERE"
	SeverityNotApplicable Severity = "NOT_APPLICABLE"
	SeverityNoData        Severity = "NO_DATA"
)

// Label is the operator-facing name used in exported workbooks.
func (s Severity) Label() string {
	switch s {
	case SeverityOnTime:
		return "A TIEMPO"
	case SeverityLight:
		return "LEVE"
	case SeverityModerate:
		return "MODERADA"
	case SeveritySevere:
		return "GRAVE"
	case SeverityNotApplicable:
		return "NO APLICA"
	default:
		return "SIN_DATO"
	}
}

// DayLabel is the operator-facing name on the excess-days axis, which grades
// the middle bands MEDIA and ALTA instead of MODERADA and GRAVE.
func (s Severity) DayLabel() string {
	switch s {
	case SeverityModerate:
		return "MEDIA"
	case SeveritySevere:
		return "ALTA"
	default:
		return s.Label()
	}
}

type RecordError string

const (
	RecordErrorMissingInventoryDate RecordError = "missing_inventory_date"
	RecordErrorMissingStageDate     RecordError = "missing_stage_date"
	RecordErrorNegativeElapsed      RecordError = "negative_elapsed"
)

// CaseRecord is one inventory row. Source fields are filled by the loader;
// everything below the Derived marker is computed by the pipeline.
type CaseRecord struct {
	RowNumber      int               `json:"row_number"`
	ClientID       string            `json:"client_id"`
	OperationID    string            `json:"operation_id"`
	LegalStage     string            `json:"legal_stage"`
	LegalSubstage  string            `json:"legal_substage"`
	InventoryAsOf  *time.Time        `json:"inventory_as_of_date,omitempty"`
	StageEntry     *time.Time        `json:"stage_entry_date,omitempty"`
	CurrentCapital float64           `json:"current_capital"`
	Source         map[string]string `json:"-"`

	// Derived.
	ExpectedDurationDays *int        `json:"expected_duration_days,omitempty"`
	ElapsedDays          int         `json:"elapsed_days"`
	PercentAdvance       float64     `json:"percent_advance"`
	PercentDeviation     float64     `json:"percent_deviation"`
	ExcessDays           int         `json:"excess_days"`
	SLAApplicable        bool        `json:"sla_applicable"`
	Severity             Severity    `json:"severity_level"`
	DaySeverity          Severity    `json:"day_severity_level"`
	DeadlineDate         *time.Time  `json:"deadline_date,omitempty"`
	AtRiskThisMonth      bool        `json:"at_risk_this_month"`
	Error                RecordError `json:"error,omitempty"`
}

// HasDuration reports whether a positive expected duration was resolved.
func (r CaseRecord) HasDuration() bool {
	return r.ExpectedDurationDays != nil && *r.ExpectedDurationDays > 0
}

// Scored reports whether the record participates in SLA statistics.
func (r CaseRecord) Scored() bool {
	return r.SLAApplicable && r.HasDuration()
}

// PositiveExcessDays is ExcessDays floored at zero.
func (r CaseRecord) PositiveExcessDays() int {
	if r.ExcessDays < 0 {
		return 0
	}
	return r.ExcessDays
}

type ReferenceDuration struct {
	SubstageDescription string `json:"substage_description"`
	MaxDurationDays     int    `json:"max_duration_days"`
}
