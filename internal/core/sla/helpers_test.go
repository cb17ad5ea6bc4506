package sla

import (
	"time"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func intPtr(v int) *int { return &v }

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultRules())
}

func scoredRecord(client, substage string, expected, elapsed int, capital float64) domain.CaseRecord {
	rec := domain.CaseRecord{
		ClientID:             client,
		LegalStage:           "DEMANDA",
		LegalSubstage:        substage,
		InventoryAsOf:        day(2024, time.March, 20),
		StageEntry:           day(2024, time.March, 20),
		CurrentCapital:       capital,
		ExpectedDurationDays: intPtr(expected),
		ElapsedDays:          elapsed,
	}
	newTestClassifier().Classify(&rec)
	return rec
}
