package sla

import (
	"errors"
	"testing"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

func TestNormalizeColumn(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "Fecha Act. Inventario", want: "FECHA_ACT_INVENTARIO"},
		{in: "  Sub-Etapa  Jurídica ", want: "SUB_ETAPA_JURIDICA"},
		{in: "Descripción de la subetapa", want: "DESCRIPCION_DE_LA_SUBETAPA"},
		{in: "Duración máxima (en días)", want: "DURACION_MAXIMA_EN_DIAS"},
		{in: "__Operación__", want: "OPERACION"},
		{in: "Año - Mes", want: "ANO_MES"},
		{in: "Capital $ Act", want: "CAPITAL_ACT"},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		if got := NormalizeColumn(tc.in); got != tc.want {
			t.Fatalf("NormalizeColumn(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeColumnIsIdempotent(t *testing.T) {
	for _, raw := range []string{"Fecha Act. Etapa", "DEUDOR", "días por etapa", "a__b--c"} {
		once := NormalizeColumn(raw)
		if twice := NormalizeColumn(once); twice != once {
			t.Fatalf("NormalizeColumn not idempotent for %q: %q then %q", raw, once, twice)
		}
	}
}

func TestCanonicalValue(t *testing.T) {
	if got := CanonicalValue("  pase a   legal "); got != "PASE A LEGAL" {
		t.Fatalf("CanonicalValue() = %q", got)
	}
	if got := CanonicalValue("Entrega de Garantías"); got != "ENTREGA DE GARANTIAS" {
		t.Fatalf("CanonicalValue() = %q", got)
	}
}

func TestResolveColumnsPrefersExactThenSubstring(t *testing.T) {
	headers := NormalizeColumns([]string{"Sub Etapa Jurídica", "Etapa Jurídica", "Capital Act Total"})
	specs := []ColumnSpec{
		{Field: FieldStage, Aliases: []string{"ETAPA_JURIDICA"}, Required: true},
		{Field: FieldSubstage, Aliases: []string{"SUB_ETAPA_JURIDICA"}, Required: true},
		{Field: FieldCapital, Aliases: []string{"CAPITAL_ACT"}, Required: true},
	}

	cols, err := ResolveColumns(InventoryTable, headers, specs)
	if err != nil {
		t.Fatalf("ResolveColumns() error = %v", err)
	}
	if cols[FieldSubstage] != 0 || cols[FieldStage] != 1 {
		t.Fatalf("unexpected stage mapping: %+v", cols)
	}
	if cols[FieldCapital] != 2 {
		t.Fatalf("expected substring match for capital, got %+v", cols)
	}
}

func TestResolveColumnsDoesNotReuseClaimedHeader(t *testing.T) {
	headers := NormalizeColumns([]string{"SUB_ETAPA_JURIDICA"})
	specs := []ColumnSpec{
		{Field: FieldStage, Aliases: []string{"ETAPA_JURIDICA"}, Required: true},
		{Field: FieldSubstage, Aliases: []string{"SUB_ETAPA_JURIDICA"}, Required: true},
	}

	_, err := ResolveColumns(InventoryTable, headers, specs)
	if !errors.Is(err, domain.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	var missing *domain.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingColumnError, got %T", err)
	}
	if missing.Field != string(FieldStage) || missing.Table != InventoryTable {
		t.Fatalf("unexpected missing column: %+v", missing)
	}
}

func TestResolveColumnsSkipsOptionalField(t *testing.T) {
	cols, err := ResolveColumns(InventoryTable, []string{"DEUDOR"}, []ColumnSpec{
		{Field: FieldClient, Aliases: []string{"DEUDOR"}, Required: true},
		{Field: FieldExpectedDays, Aliases: []string{"DIAS_POR_ETAPA"}},
	})
	if err != nil {
		t.Fatalf("ResolveColumns() error = %v", err)
	}
	if _, ok := cols[FieldExpectedDays]; ok {
		t.Fatalf("optional field should stay unresolved: %+v", cols)
	}
}

func TestUniqueHeadersSuffixesDuplicates(t *testing.T) {
	got := uniqueHeaders([]string{"A", "B", "A", "", "A"})
	want := []string{"A", "B", "A_2", "COLUMNA", "A_3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("uniqueHeaders()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
