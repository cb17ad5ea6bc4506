package domain

import "time"

type ClientSummary struct {
	ClientID             string  `json:"client_id"`
	Operations           int     `json:"operations"`
	Capital              float64 `json:"capital"`
	MeanPercentDeviation float64 `json:"mean_percent_deviation"`
	MeanExcessDays       float64 `json:"mean_excess_days"`
	Critical             bool    `json:"critical"`
}

type StageSummary struct {
	LegalStage           string  `json:"legal_stage"`
	LegalSubstage        string  `json:"legal_substage"`
	Clients              int     `json:"clients"`
	Operations           int     `json:"operations"`
	Capital              float64 `json:"capital"`
	MeanPercentDeviation float64 `json:"mean_percent_deviation"`
}

type MonthlyRiskRow struct {
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	LegalSubstage string  `json:"legal_substage"`
	Operations    int     `json:"operations"`
	Clients       int     `json:"clients"`
	Capital       float64 `json:"capital"`
}

// MonthlyRiskReport keeps the period total apart from the grouped rows so it
// cannot be regrouped by accident.
type MonthlyRiskReport struct {
	Rows  []MonthlyRiskRow `json:"rows"`
	Total MonthlyRiskRow   `json:"total"`
}

// ThirdPartySummary groups records whose sub-stage is controlled by another party.
type ThirdPartySummary struct {
	LegalStage    string  `json:"legal_stage"`
	LegalSubstage string  `json:"legal_substage"`
	Operations    int     `json:"operations"`
	Clients       int     `json:"clients"`
	Capital       float64 `json:"capital"`
}

type ExecutiveSummary struct {
	Today              time.Time `json:"today"`
	TotalRecords       int       `json:"total_records"`
	ValidRecords       int       `json:"valid_records"`
	ErrorRecords       int       `json:"error_records"`
	DistinctClients    int       `json:"distinct_clients"`
	TotalCapital       float64   `json:"total_capital"`
	DeviatedRecords    int       `json:"deviated_records"`
	NotApplicable      int       `json:"not_applicable_records"`
	UnmatchedSubstages int       `json:"unmatched_substages"`
	AtRiskThisMonth    int       `json:"at_risk_this_month"`
}

// Result is everything one pipeline run produces.
type Result struct {
	Records            []CaseRecord        `json:"records"`
	Errors             []CaseRecord        `json:"errors"`
	UnmatchedSubstages []string            `json:"unmatched_substages"`
	DuplicateReference []string            `json:"duplicate_reference,omitempty"`
	ByClient           []ClientSummary     `json:"by_client"`
	ByStage            []StageSummary      `json:"by_stage"`
	MonthlyRisk        MonthlyRiskReport   `json:"monthly_risk"`
	AtRisk             []CaseRecord        `json:"at_risk"`
	ThirdParty         []ThirdPartySummary `json:"third_party"`
	Summary            ExecutiveSummary    `json:"summary"`
	Source             SourceLayout        `json:"-"`
}

// SourceLayout describes the inventory columns as read: normalized headers
// in sheet order and, for every resolved header, the field it carries.
type SourceLayout struct {
	Headers []string
	Fields  map[string]string
}
