package sla

import (
	"errors"
	"fmt"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

// Field is a semantic column the pipeline reads, independent of header text.
type Field string

const (
	FieldClient        Field = "client_id"
	FieldOperation     Field = "operation_id"
	FieldStage         Field = "legal_stage"
	FieldSubstage      Field = "legal_substage"
	FieldInventoryDate Field = "inventory_as_of_date"
	FieldStageDate     Field = "stage_entry_date"
	FieldCapital       Field = "current_capital"
	FieldExpectedDays  Field = "expected_duration_days"

	FieldRefSubstage Field = "substage_description"
	FieldRefMaxDays  Field = "max_duration_days"
)

type PercentThresholds struct {
	LightMax    float64 `yaml:"light_max"`
	ModerateMax float64 `yaml:"moderate_max"`
}

type DayThresholds struct {
	LightMax    int `yaml:"light_max"`
	ModerateMax int `yaml:"moderate_max"`
}

// Rules is the business-rule catalog for one run. It is read-only once the
// pipeline is built.
type Rules struct {
	HandoffStage          string             `yaml:"handoff_stage"`
	MeasuredSubstages     []string           `yaml:"measured_substages"`
	Percent               PercentThresholds  `yaml:"percent_thresholds"`
	Days                  DayThresholds      `yaml:"day_thresholds"`
	CriticalMeanDeviation float64            `yaml:"critical_mean_deviation"`
	InventoryColumns      map[Field][]string `yaml:"inventory_columns"`
	ReferenceColumns      map[Field][]string `yaml:"reference_columns"`
}

func DefaultRules() Rules {
	return Rules{
		HandoffStage: "PASE A LEGAL",
		MeasuredSubstages: []string{
			"ENTREGA DE GARANTIAS",
			"ENTREGA DE PODER",
		},
		Percent:               PercentThresholds{LightMax: 30, ModerateMax: 70},
		Days:                  DayThresholds{LightMax: 15, ModerateMax: 30},
		CriticalMeanDeviation: 70,
		InventoryColumns: map[Field][]string{
			FieldClient:        {"DEUDOR", "CLIENTE"},
			FieldOperation:     {"OPERACION", "NUM_OPERACION"},
			FieldStage:         {"ETAPA_JURIDICA"},
			FieldSubstage:      {"SUB_ETAPA_JURIDICA", "SUBETAPA_JURIDICA"},
			FieldInventoryDate: {"FECHA_ACT_INVENTARIO"},
			FieldStageDate:     {"FECHA_ACT_ETAPA"},
			FieldCapital:       {"CAPITAL_ACT", "CAPITAL"},
			FieldExpectedDays:  {"DIAS_POR_ETAPA"},
		},
		ReferenceColumns: map[Field][]string{
			FieldRefSubstage: {"DESCRIPCION_DE_LA_SUBETAPA", "DESCRIPCION_SUBETAPA"},
			FieldRefMaxDays:  {"DURACION_MAXIMA_EN_DIAS", "DURACION_MAXIMA"},
		},
	}
}

// WithDefaults fills every zero-valued setting from DefaultRules.
func (r Rules) WithDefaults() Rules {
	def := DefaultRules()
	out := r
	if out.HandoffStage == "" {
		out.HandoffStage = def.HandoffStage
	}
	if len(out.MeasuredSubstages) == 0 {
		out.MeasuredSubstages = def.MeasuredSubstages
	}
	if out.Percent.LightMax == 0 {
		out.Percent.LightMax = def.Percent.LightMax
	}
	if out.Percent.ModerateMax == 0 {
		out.Percent.ModerateMax = def.Percent.ModerateMax
	}
	if out.Days.LightMax == 0 {
		out.Days.LightMax = def.Days.LightMax
	}
	if out.Days.ModerateMax == 0 {
		out.Days.ModerateMax = def.Days.ModerateMax
	}
	if out.CriticalMeanDeviation == 0 {
		out.CriticalMeanDeviation = def.CriticalMeanDeviation
	}
	out.InventoryColumns = mergeAliases(def.InventoryColumns, r.InventoryColumns)
	out.ReferenceColumns = mergeAliases(def.ReferenceColumns, r.ReferenceColumns)
	return out
}

func (r Rules) Validate() error {
	var errs []error
	if r.Percent.LightMax <= 0 || r.Percent.ModerateMax <= r.Percent.LightMax {
		errs = append(errs, fmt.Errorf("percent thresholds must satisfy 0 < light_max < moderate_max, got %v/%v",
			r.Percent.LightMax, r.Percent.ModerateMax))
	}
	if r.Days.LightMax <= 0 || r.Days.ModerateMax <= r.Days.LightMax {
		errs = append(errs, fmt.Errorf("day thresholds must satisfy 0 < light_max < moderate_max, got %d/%d",
			r.Days.LightMax, r.Days.ModerateMax))
	}
	if CanonicalValue(r.HandoffStage) == "" {
		errs = append(errs, errors.New("handoff stage is empty"))
	}
	if len(errs) > 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate sla rules", errors.Join(errs...))
	}
	return nil
}

func mergeAliases(base, override map[Field][]string) map[Field][]string {
	out := make(map[Field][]string, len(base))
	for field, aliases := range base {
		out[field] = aliases
	}
	for field, aliases := range override {
		if len(aliases) > 0 {
			out[field] = aliases
		}
	}
	return out
}
