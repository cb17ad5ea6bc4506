package sla

import (
	"strings"
	"time"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

const (
	InventoryTable = "inventory"
	ReferenceTable = "reference"
)

type PipelineOptions struct {
	// Now is the fallback "today" when no record carries an inventory date.
	Now func() time.Time
}

// Pipeline runs normalization, duration resolution, elapsed-time
// partitioning, classification, breach detection and aggregation over one
// pair of tables. It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	rules      Rules
	classifier *Classifier
	now        func() time.Time
}

func NewPipeline(rules Rules, options PipelineOptions) (*Pipeline, error) {
	rules = rules.WithDefaults()
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		rules:      rules,
		classifier: NewClassifier(rules),
		now:        now,
	}, nil
}

func (p *Pipeline) Rules() Rules { return p.rules }

// Run processes one inventory against one reference table. Only structural
// problems (missing required columns) return an error; bad rows are
// partitioned out and reported in the result.
func (p *Pipeline) Run(inventory, reference domain.Table) (*domain.Result, error) {
	refRows, err := p.LoadReference(reference)
	if err != nil {
		return nil, err
	}
	records, layout, err := p.LoadInventory(inventory)
	if err != nil {
		return nil, err
	}

	catalog := NewCatalog(refRows)
	unmatched := ResolveDurations(records, catalog)

	valid, errored := PartitionElapsed(records)
	p.classifier.ClassifyAll(valid)

	today := ReferenceToday(records, p.now())
	atRisk := DetectBreaches(valid, today)

	return &domain.Result{
		Records:            valid,
		Errors:             errored,
		UnmatchedSubstages: unmatched,
		DuplicateReference: catalog.Duplicates(),
		ByClient:           AggregateByClient(valid, p.rules.CriticalMeanDeviation),
		ByStage:            AggregateByStage(valid),
		MonthlyRisk:        AggregateMonthlyRisk(valid),
		AtRisk:             atRisk,
		ThirdParty:         AggregateThirdParty(valid),
		Summary:            Summarize(valid, errored, unmatched, today),
		Source:             layout,
	}, nil
}

func (p *Pipeline) inventorySpecs() []ColumnSpec {
	cols := p.rules.InventoryColumns
	return []ColumnSpec{
		{Field: FieldClient, Aliases: cols[FieldClient], Required: true},
		{Field: FieldOperation, Aliases: cols[FieldOperation], Required: true},
		{Field: FieldSubstage, Aliases: cols[FieldSubstage], Required: true},
		{Field: FieldStage, Aliases: cols[FieldStage], Required: true},
		{Field: FieldInventoryDate, Aliases: cols[FieldInventoryDate], Required: true},
		{Field: FieldStageDate, Aliases: cols[FieldStageDate], Required: true},
		{Field: FieldCapital, Aliases: cols[FieldCapital], Required: true},
		{Field: FieldExpectedDays, Aliases: cols[FieldExpectedDays]},
	}
}

func (p *Pipeline) referenceSpecs() []ColumnSpec {
	cols := p.rules.ReferenceColumns
	return []ColumnSpec{
		{Field: FieldRefSubstage, Aliases: cols[FieldRefSubstage], Required: true},
		{Field: FieldRefMaxDays, Aliases: cols[FieldRefMaxDays], Required: true},
	}
}

// LoadInventory validates the inventory header row and materializes one
// CaseRecord per non-empty row. It also returns the column layout so
// exporters can write parsed values back under their source headers.
func (p *Pipeline) LoadInventory(table domain.Table) ([]domain.CaseRecord, domain.SourceLayout, error) {
	headers := uniqueHeaders(NormalizeColumns(table.Headers))
	cols, err := ResolveColumns(InventoryTable, headers, p.inventorySpecs())
	if err != nil {
		return nil, domain.SourceLayout{}, err
	}
	layout := domain.SourceLayout{Headers: headers, Fields: make(map[string]string, len(cols))}
	for field, idx := range cols {
		layout.Fields[headers[idx]] = string(field)
	}

	cell := func(row int, field Field) string {
		idx, ok := cols[field]
		if !ok {
			return ""
		}
		return strings.TrimSpace(table.Cell(row, idx))
	}

	records := make([]domain.CaseRecord, 0, len(table.Rows))
	for i, raw := range table.Rows {
		if isBlankRow(raw) {
			continue
		}
		rec := domain.CaseRecord{
			RowNumber:      firstRow(table) + i,
			ClientID:       cell(i, FieldClient),
			OperationID:    cell(i, FieldOperation),
			LegalStage:     CanonicalValue(cell(i, FieldStage)),
			LegalSubstage:  CanonicalValue(cell(i, FieldSubstage)),
			CurrentCapital: ParseAmount(cell(i, FieldCapital)),
			Source:         make(map[string]string, len(headers)),
		}
		if t, ok := ParseDate(cell(i, FieldInventoryDate)); ok {
			rec.InventoryAsOf = &t
		}
		if t, ok := ParseDate(cell(i, FieldStageDate)); ok {
			rec.StageEntry = &t
		}
		if days, ok := ParseDays(cell(i, FieldExpectedDays)); ok {
			rec.ExpectedDurationDays = &days
		}
		for col, h := range headers {
			rec.Source[h] = table.Cell(i, col)
		}
		records = append(records, rec)
	}
	return records, layout, nil
}

// LoadReference validates the reference header row and reads its rows.
// Rows without a description or a positive duration are skipped.
func (p *Pipeline) LoadReference(table domain.Table) ([]domain.ReferenceDuration, error) {
	headers := NormalizeColumns(table.Headers)
	cols, err := ResolveColumns(ReferenceTable, headers, p.referenceSpecs())
	if err != nil {
		return nil, err
	}

	out := make([]domain.ReferenceDuration, 0, len(table.Rows))
	for i := range table.Rows {
		desc := strings.TrimSpace(table.Cell(i, cols[FieldRefSubstage]))
		days, ok := ParseDays(table.Cell(i, cols[FieldRefMaxDays]))
		if desc == "" || !ok || days <= 0 {
			continue
		}
		out = append(out, domain.ReferenceDuration{SubstageDescription: desc, MaxDurationDays: days})
	}
	return out, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func firstRow(t domain.Table) int {
	if t.FirstRow > 0 {
		return t.FirstRow
	}
	return 2
}
