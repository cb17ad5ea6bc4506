package spreadsheet

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
	"github.com/kirillkom/legal-sla-monitor/internal/core/sla"
)

const (
	SheetClassified = "Inventario_Clasificado"
	SheetByClient   = "Por_Cliente"
	SheetByStage    = "Por_Etapa"
	SheetDeviation  = "Ranking_Desviacion"
	SheetMonthly    = "Riesgo_Mensual"
	SheetAtRisk     = "En_Riesgo"
	SheetThirdParty = "Terceros"
	SheetUnmatched  = "Subetapas_Sin_Match"
	SheetSummary    = "Resumen"
	SheetErrors     = "Errores"
)

// Derived columns appended to the classified inventory. Source columns with
// the same normalized name are replaced by these.
var derivedHeaders = []string{
	"DIAS_POR_ETAPA",
	"VAR_FECHA_CALCULADA",
	"PORC_AVANCE",
	"PORC_DESVIACION",
	"DIAS_EXCESO",
	"CLASIFICACION_%",
	"CLASIFICACION_DIAS",
	"APLICA_SLA",
	"FECHA_LIMITE",
	"EN_RIESGO_MES",
}

var errorDescriptions = map[domain.RecordError]string{
	domain.RecordErrorMissingInventoryDate: "fecha de inventario vacia o invalida",
	domain.RecordErrorMissingStageDate:     "fecha de etapa vacia o invalida",
	domain.RecordErrorNegativeElapsed:      "fecha de etapa posterior a la fecha de inventario",
}

type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// WriteReport renders the full multi-sheet report. TOTAL rows exist only in
// the workbook, never in the result.
func (w *Writer) WriteReport(dst io.Writer, result *domain.Result) error {
	if result == nil {
		return domain.WrapError(domain.ErrInvalidInput, "write report", fmt.Errorf("nil result"))
	}
	b, err := newBook(SheetClassified)
	if err != nil {
		return err
	}
	defer b.f.Close()

	steps := []func(*domain.Result) error{
		b.classified,
		b.byClient,
		b.byStage,
		b.deviationRanking,
		b.monthly,
		b.atRisk,
		b.thirdParty,
		b.unmatched,
		b.summary,
	}
	for _, step := range steps {
		if err := step(result); err != nil {
			return err
		}
	}
	if len(result.Errors) > 0 {
		if err := b.errors(SheetErrors, result.Errors, result.Source); err != nil {
			return err
		}
	}
	return b.write(dst)
}

// WriteErrors renders only the rows excluded for bad dates.
func (w *Writer) WriteErrors(dst io.Writer, records []domain.CaseRecord, layout domain.SourceLayout) error {
	b, err := newBook(SheetErrors)
	if err != nil {
		return err
	}
	defer b.f.Close()

	if err := b.errors(SheetErrors, records, layout); err != nil {
		return err
	}
	return b.write(dst)
}

type book struct {
	f      *excelize.File
	header int
	total  int
	date   int
	first  string
}

func newBook(firstSheet string) (*book, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), firstSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	total, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create total style: %w", err)
	}
	dateFormat := "yyyy-mm-dd"
	date, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create date style: %w", err)
	}
	return &book{f: f, header: header, total: total, date: date, first: firstSheet}, nil
}

func (b *book) sheet(name string, headers []string) error {
	if name != b.first {
		if _, err := b.f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	if err := b.row(name, 1, toAny(headers)); err != nil {
		return err
	}
	end, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := b.f.SetCellStyle(name, "A1", end, b.header); err != nil {
		return fmt.Errorf("style header %s: %w", name, err)
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := b.f.SetColWidth(name, "A", last, 18); err != nil {
		return fmt.Errorf("set width %s: %w", name, err)
	}
	return nil
}

func (b *book) row(sheet string, n int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := b.f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
	return nil
}

func (b *book) totalRow(sheet string, n int, values []any) error {
	if err := b.row(sheet, n, values); err != nil {
		return err
	}
	start, _ := excelize.CoordinatesToCellName(1, n)
	end, _ := excelize.CoordinatesToCellName(len(values), n)
	return b.f.SetCellStyle(sheet, start, end, b.total)
}

// dateColumns applies the date format to the data rows of the given
// 1-based columns.
func (b *book) dateColumns(sheet string, rows int, cols ...int) error {
	if rows == 0 {
		return nil
	}
	for _, col := range cols {
		start, _ := excelize.CoordinatesToCellName(col, 2)
		end, _ := excelize.CoordinatesToCellName(col, rows+1)
		if err := b.f.SetCellStyle(sheet, start, end, b.date); err != nil {
			return fmt.Errorf("style dates %s: %w", sheet, err)
		}
	}
	return nil
}

func (b *book) write(dst io.Writer) error {
	b.f.SetActiveSheet(0)
	if err := b.f.Write(dst); err != nil {
		return domain.WrapError(domain.ErrTemporary, "write workbook", err)
	}
	return nil
}

func (b *book) classified(result *domain.Result) error {
	source := sourceColumns(result.Source.Headers)
	headers := append(append([]string{}, source...), derivedHeaders...)
	if err := b.sheet(SheetClassified, headers); err != nil {
		return err
	}
	for i, rec := range result.Records {
		values := make([]any, 0, len(headers))
		for _, h := range source {
			values = append(values, sourceValue(rec, h, result.Source.Fields))
		}
		values = append(values,
			optionalInt(rec.ExpectedDurationDays),
			rec.ElapsedDays,
			round2(rec.PercentAdvance),
			round2(rec.PercentDeviation),
			rec.ExcessDays,
			rec.Severity.Label(),
			rec.DaySeverity.DayLabel(),
			yesNo(rec.SLAApplicable),
			optionalDate(rec.DeadlineDate),
			yesNo(rec.AtRiskThisMonth),
		)
		if err := b.row(SheetClassified, i+2, values); err != nil {
			return err
		}
	}
	cols := dateColumnIndexes(source, result.Source.Fields, 1)
	cols = append(cols, len(source)+indexOf(derivedHeaders, "FECHA_LIMITE")+1)
	return b.dateColumns(SheetClassified, len(result.Records), cols...)
}

func (b *book) byClient(result *domain.Result) error {
	headers := []string{"DEUDOR", "OPERACIONES", "CAPITAL_ACT", "PROMEDIO_DESVIACION", "PROMEDIO_DIAS_EXCESO", "CRITICO"}
	if err := b.sheet(SheetByClient, headers); err != nil {
		return err
	}
	var ops int
	var capital float64
	for i, c := range result.ByClient {
		ops += c.Operations
		capital += c.Capital
		values := []any{c.ClientID, c.Operations, round2(c.Capital), round2(c.MeanPercentDeviation), round2(c.MeanExcessDays), yesNo(c.Critical)}
		if err := b.row(SheetByClient, i+2, values); err != nil {
			return err
		}
	}
	return b.totalRow(SheetByClient, len(result.ByClient)+2, []any{sla.TotalLabel, ops, round2(capital)})
}

func (b *book) byStage(result *domain.Result) error {
	headers := []string{"ETAPA_JURIDICA", "SUB_ETAPA_JURIDICA", "CLIENTES", "OPERACIONES", "CAPITAL_ACT", "PROMEDIO_DESVIACION"}
	if err := b.sheet(SheetByStage, headers); err != nil {
		return err
	}
	var ops int
	var capital float64
	for i, s := range sla.RankStagesByCapital(result.ByStage) {
		ops += s.Operations
		capital += s.Capital
		values := []any{s.LegalStage, s.LegalSubstage, s.Clients, s.Operations, round2(s.Capital), round2(s.MeanPercentDeviation)}
		if err := b.row(SheetByStage, i+2, values); err != nil {
			return err
		}
	}
	return b.totalRow(SheetByStage, len(result.ByStage)+2, []any{sla.TotalLabel, "", result.Summary.DistinctClients, ops, round2(capital)})
}

func (b *book) deviationRanking(result *domain.Result) error {
	headers := []string{"RANKING", "ETAPA_JURIDICA", "SUB_ETAPA_JURIDICA", "PROMEDIO_DESVIACION", "OPERACIONES", "CAPITAL_ACT"}
	if err := b.sheet(SheetDeviation, headers); err != nil {
		return err
	}
	for i, s := range sla.RankStagesByDeviation(result.ByStage) {
		values := []any{i + 1, s.LegalStage, s.LegalSubstage, round2(s.MeanPercentDeviation), s.Operations, round2(s.Capital)}
		if err := b.row(SheetDeviation, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func (b *book) monthly(result *domain.Result) error {
	headers := []string{"ANIO", "MES", "SUB_ETAPA_JURIDICA", "OPERACIONES", "CLIENTES", "CAPITAL_ACT"}
	if err := b.sheet(SheetMonthly, headers); err != nil {
		return err
	}
	for i, r := range result.MonthlyRisk.Rows {
		values := []any{r.Year, r.Month, r.LegalSubstage, r.Operations, r.Clients, round2(r.Capital)}
		if err := b.row(SheetMonthly, i+2, values); err != nil {
			return err
		}
	}
	t := result.MonthlyRisk.Total
	return b.totalRow(SheetMonthly, len(result.MonthlyRisk.Rows)+2, []any{"", "", sla.TotalLabel, t.Operations, t.Clients, round2(t.Capital)})
}

func (b *book) atRisk(result *domain.Result) error {
	headers := []string{
		"DEUDOR", "OPERACION", "ETAPA_JURIDICA", "SUB_ETAPA_JURIDICA", "FECHA_ACT_ETAPA",
		"DIAS_POR_ETAPA", "VAR_FECHA_CALCULADA", "FECHA_LIMITE", "CAPITAL_ACT",
	}
	if err := b.sheet(SheetAtRisk, headers); err != nil {
		return err
	}
	for i, rec := range result.AtRisk {
		values := []any{
			rec.ClientID, rec.OperationID, rec.LegalStage, rec.LegalSubstage, optionalDate(rec.StageEntry),
			optionalInt(rec.ExpectedDurationDays), rec.ElapsedDays, optionalDate(rec.DeadlineDate), round2(rec.CurrentCapital),
		}
		if err := b.row(SheetAtRisk, i+2, values); err != nil {
			return err
		}
	}
	return b.dateColumns(SheetAtRisk, len(result.AtRisk), 5, 8)
}

func (b *book) thirdParty(result *domain.Result) error {
	headers := []string{"ETAPA_JURIDICA", "SUB_ETAPA_JURIDICA", "OPERACIONES", "CLIENTES", "CAPITAL_ACT"}
	if err := b.sheet(SheetThirdParty, headers); err != nil {
		return err
	}
	var ops int
	var capital float64
	for i, t := range result.ThirdParty {
		ops += t.Operations
		capital += t.Capital
		if err := b.row(SheetThirdParty, i+2, []any{t.LegalStage, t.LegalSubstage, t.Operations, t.Clients, round2(t.Capital)}); err != nil {
			return err
		}
	}
	return b.totalRow(SheetThirdParty, len(result.ThirdParty)+2, []any{sla.TotalLabel, "", ops, "", round2(capital)})
}

func (b *book) unmatched(result *domain.Result) error {
	if err := b.sheet(SheetUnmatched, []string{"SUB_ETAPA_JURIDICA"}); err != nil {
		return err
	}
	for i, name := range result.UnmatchedSubstages {
		if err := b.row(SheetUnmatched, i+2, []any{name}); err != nil {
			return err
		}
	}
	return nil
}

func (b *book) summary(result *domain.Result) error {
	if err := b.sheet(SheetSummary, []string{"INDICADOR", "VALOR"}); err != nil {
		return err
	}
	s := result.Summary
	rows := [][]any{
		{"FECHA_REFERENCIA", s.Today},
		{"TOTAL_PROCESOS", s.TotalRecords},
		{"PROCESOS_VALIDOS", s.ValidRecords},
		{"PROCESOS_CON_ERROR", s.ErrorRecords},
		{"DEUDORES_UNICOS", s.DistinctClients},
		{"CAPITAL_TOTAL", round2(s.TotalCapital)},
		{"PROCESOS_DESVIADOS", s.DeviatedRecords},
		{"PROCESOS_NO_APLICA", s.NotApplicable},
		{"SUBETAPAS_SIN_MATCH", s.UnmatchedSubstages},
		{"EN_RIESGO_MES", s.AtRiskThisMonth},
	}
	for _, dup := range result.DuplicateReference {
		rows = append(rows, []any{"REFERENCIA_DUPLICADA", dup})
	}
	for i, values := range rows {
		if err := b.row(SheetSummary, i+2, values); err != nil {
			return err
		}
	}
	return b.f.SetCellStyle(SheetSummary, "B2", "B2", b.date)
}

func (b *book) errors(sheet string, records []domain.CaseRecord, layout domain.SourceLayout) error {
	headers := append([]string{"FILA", "ERROR", "DETALLE"}, layout.Headers...)
	if err := b.sheet(sheet, headers); err != nil {
		return err
	}
	for i, rec := range records {
		values := []any{rec.RowNumber, string(rec.Error), errorDescriptions[rec.Error]}
		for _, h := range layout.Headers {
			values = append(values, sourceValue(rec, h, layout.Fields))
		}
		if err := b.row(sheet, i+2, values); err != nil {
			return err
		}
	}
	return b.dateColumns(sheet, len(records), dateColumnIndexes(layout.Headers, layout.Fields, 4)...)
}

// sourceValue writes parsed dates and capital back as typed cells. Cells
// that did not parse keep their raw text so the operator can see them.
func sourceValue(rec domain.CaseRecord, header string, fields map[string]string) any {
	switch sla.Field(fields[header]) {
	case sla.FieldInventoryDate:
		if rec.InventoryAsOf != nil {
			return *rec.InventoryAsOf
		}
	case sla.FieldStageDate:
		if rec.StageEntry != nil {
			return *rec.StageEntry
		}
	case sla.FieldCapital:
		if strings.TrimSpace(rec.Source[header]) != "" {
			return round2(rec.CurrentCapital)
		}
	}
	return rec.Source[header]
}

// dateColumnIndexes returns the 1-based sheet columns holding source dates,
// given the column of headers[0].
func dateColumnIndexes(headers []string, fields map[string]string, firstCol int) []int {
	var cols []int
	for i, h := range headers {
		switch sla.Field(fields[h]) {
		case sla.FieldInventoryDate, sla.FieldStageDate:
			cols = append(cols, firstCol+i)
		}
	}
	return cols
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}

func sourceColumns(headers []string) []string {
	derived := make(map[string]struct{}, len(derivedHeaders))
	for _, h := range derivedHeaders {
		derived[h] = struct{}{}
	}
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if _, ok := derived[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func optionalInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func optionalDate(t *time.Time) any {
	if t == nil {
		return ""
	}
	return *t
}

func yesNo(v bool) string {
	if v {
		return "SI"
	}
	return "NO"
}
