package sla

import (
	"time"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

// ReferenceToday is the latest inventory date in records, or now when no
// record carries one.
func ReferenceToday(records []domain.CaseRecord, now time.Time) time.Time {
	var latest time.Time
	for _, rec := range records {
		if rec.InventoryAsOf != nil && rec.InventoryAsOf.After(latest) {
			latest = *rec.InventoryAsOf
		}
	}
	if latest.IsZero() {
		return dateOnly(now)
	}
	return dateOnly(latest)
}

// DaysLeftInMonth is the number of calendar days after today in its month.
func DaysLeftInMonth(today time.Time) int {
	lastDay := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return lastDay - today.Day()
}

// DetectBreaches sets DeadlineDate and AtRiskThisMonth on records in place and
// returns copies of the records flagged at risk.
func DetectBreaches(records []domain.CaseRecord, today time.Time) []domain.CaseRecord {
	daysLeft := DaysLeftInMonth(today)
	atRisk := make([]domain.CaseRecord, 0)

	for i := range records {
		rec := &records[i]
		rec.DeadlineDate = nil
		rec.AtRiskThisMonth = false
		if !rec.HasDuration() || rec.InventoryAsOf == nil {
			continue
		}

		remaining := *rec.ExpectedDurationDays - rec.ElapsedDays
		if remaining < 0 {
			remaining = 0
		}
		deadline := rec.InventoryAsOf.AddDate(0, 0, remaining)
		rec.DeadlineDate = &deadline

		if rec.SLAApplicable && remaining > 0 && remaining <= daysLeft {
			rec.AtRiskThisMonth = true
			atRisk = append(atRisk, *rec)
		}
	}
	return atRisk
}
