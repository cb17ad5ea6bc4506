package sla

import (
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

func testInventory() domain.Table {
	return domain.Table{
		Name: "Inventario",
		Headers: []string{
			"Deudor", "Operación", "Etapa Jurídica", "Sub-Etapa Jurídica",
			"Fecha Act. Inventario", "Fecha Act. Etapa", "Capital Act", "Días por etapa",
		},
		Rows: [][]string{
			{"C1", "OP1", "Demanda", "Admisión", "2024-02-15", "2024-01-01", "1.000,50", ""},
			{"C1", "OP2", "Demanda", "Admisión", "2024-02-15", "2024-02-15", "500", "40"},
			{"C2", "OP3", "Pase a legal", "En trámite", "2024-02-15", "2023-01-01", "200", ""},
			{"C3", "OP4", "Demanda", "Sin catálogo", "2024-02-15", "2024-02-01", "", ""},
			{"C4", "OP5", "Demanda", "Admisión", "2024-02-01", "2024-02-10", "10", ""},
			{"", "", "", "", "", "", "", ""},
			{"C5", "OP6", "Demanda", "Admisión", "", "2024-02-10", "10", ""},
			{"C6", "OP7", "Demanda", "Admisión", "2024-02-15", "2024-01-20", "70"},
		},
	}
}

func testReference() domain.Table {
	return domain.Table{
		Headers: []string{"Descripción de la subetapa", "Duración máxima en días"},
		Rows: [][]string{
			{"ADMISION", "30"},
			{"EN TRAMITE", "5"},
		},
	}
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(DefaultRules(), PipelineOptions{
		Now: func() time.Time { return time.Date(2030, time.June, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	return p
}

func findOp(records []domain.CaseRecord, op string) (domain.CaseRecord, bool) {
	for _, r := range records {
		if r.OperationID == op {
			return r, true
		}
	}
	return domain.CaseRecord{}, false
}

func TestPipelineRunEndToEnd(t *testing.T) {
	result, err := newTestPipeline(t).Run(testInventory(), testReference())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Records) != 5 || len(result.Errors) != 2 {
		t.Fatalf("expected 5 valid / 2 errors, got %d / %d", len(result.Records), len(result.Errors))
	}

	op1, _ := findOp(result.Records, "OP1")
	if op1.ElapsedDays != 45 || op1.PercentDeviation != 50 || op1.Severity != domain.SeverityModerate {
		t.Fatalf("unexpected OP1: %+v", op1)
	}
	if op1.CurrentCapital != 1000.5 || op1.RowNumber != 2 {
		t.Fatalf("unexpected OP1 source fields: %+v", op1)
	}
	if op1.Source["DEUDOR"] != "C1" {
		t.Fatalf("expected source passthrough, got %v", op1.Source)
	}

	op2, _ := findOp(result.Records, "OP2")
	if *op2.ExpectedDurationDays != 40 || op2.Severity != domain.SeverityOnTime {
		t.Fatalf("override duration should be kept: %+v", op2)
	}

	op3, _ := findOp(result.Records, "OP3")
	if op3.SLAApplicable || op3.PercentDeviation != 0 || op3.Severity != domain.SeverityNotApplicable {
		t.Fatalf("expected OP3 out of SLA scope: %+v", op3)
	}

	op4, _ := findOp(result.Records, "OP4")
	if op4.ExpectedDurationDays != nil || op4.PercentDeviation != 0 || op4.CurrentCapital != 0 {
		t.Fatalf("unexpected OP4: %+v", op4)
	}
	if len(result.UnmatchedSubstages) != 1 || result.UnmatchedSubstages[0] != "SIN CATALOGO" {
		t.Fatalf("unexpected unmatched: %v", result.UnmatchedSubstages)
	}

	if _, ok := findOp(result.Records, "OP5"); ok {
		t.Fatalf("negative elapsed record must not be classified")
	}
	for _, row := range result.ByClient {
		if row.ClientID == "C4" || row.ClientID == "C5" {
			t.Fatalf("error records leaked into aggregates: %+v", row)
		}
	}

	if !result.Summary.Today.Equal(time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected today %s", result.Summary.Today)
	}
	op7, _ := findOp(result.Records, "OP7")
	if !op7.AtRiskThisMonth || len(result.AtRisk) != 1 || result.AtRisk[0].OperationID != "OP7" {
		t.Fatalf("expected OP7 at risk: %+v / %+v", op7, result.AtRisk)
	}
	if result.MonthlyRisk.Total.Operations != 1 || result.MonthlyRisk.Total.Capital != 70 {
		t.Fatalf("unexpected monthly total: %+v", result.MonthlyRisk.Total)
	}
	if len(result.ThirdParty) != 1 || result.ThirdParty[0].LegalSubstage != "EN TRAMITE" {
		t.Fatalf("unexpected third party: %+v", result.ThirdParty)
	}
}

func TestPipelineRunFailsFastOnMissingColumn(t *testing.T) {
	inv := testInventory()
	inv.Headers = []string{"Deudor", "Operación", "Etapa Jurídica", "Sub-Etapa Jurídica", "Fecha Act. Inventario", "Capital Act"}

	_, err := newTestPipeline(t).Run(inv, testReference())
	var missing *domain.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if missing.Field != string(FieldStageDate) {
		t.Fatalf("expected stage date to be reported, got %s", missing.Field)
	}
}

func TestPipelineRunFailsOnReferenceWithoutDuration(t *testing.T) {
	ref := domain.Table{Headers: []string{"Descripción de la subetapa"}}
	_, err := newTestPipeline(t).Run(testInventory(), ref)
	if !domain.IsKind(err, domain.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestNewPipelineRejectsInvalidRules(t *testing.T) {
	rules := DefaultRules()
	rules.Percent = PercentThresholds{LightMax: 80, ModerateMax: 40}
	if _, err := NewPipeline(rules, PipelineOptions{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPipelineReferenceDateCountsErrorRows(t *testing.T) {
	inv := testInventory()
	inv.Rows = [][]string{
		{"C1", "OP1", "Demanda", "Admisión", "2024-02-15", "2024-01-01", "100", ""},
		{"C2", "OP2", "Demanda", "Admisión", "2024-03-31", "", "100", ""},
	}
	result, err := newTestPipeline(t).Run(inv, testReference())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Errors) != 1 || result.Errors[0].Error != domain.RecordErrorMissingStageDate {
		t.Fatalf("expected one missing stage date error, got %+v", result.Errors)
	}
	want := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	if !result.Summary.Today.Equal(want) {
		t.Fatalf("Today = %s, want %s", result.Summary.Today, want)
	}
}

func TestPipelineRunReportsSourceLayout(t *testing.T) {
	result, err := newTestPipeline(t).Run(testInventory(), testReference())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Source.Headers) != len(testInventory().Headers) {
		t.Fatalf("unexpected source headers: %v", result.Source.Headers)
	}
	seen := map[Field]bool{}
	for _, h := range result.Source.Headers {
		if f, ok := result.Source.Fields[h]; ok {
			seen[Field(f)] = true
		}
	}
	for _, f := range []Field{FieldInventoryDate, FieldStageDate, FieldCapital} {
		if !seen[f] {
			t.Fatalf("field %s missing from layout %v", f, result.Source.Fields)
		}
	}
}
