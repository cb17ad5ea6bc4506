package sla

import (
	"testing"
	"time"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

func TestReferenceTodayUsesLatestInventoryDate(t *testing.T) {
	now := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	records := []domain.CaseRecord{
		{InventoryAsOf: day(2024, time.March, 10)},
		{InventoryAsOf: day(2024, time.March, 20)},
		{},
	}
	if got := ReferenceToday(records, now); !got.Equal(*day(2024, time.March, 20)) {
		t.Fatalf("ReferenceToday() = %s", got)
	}
	if got := ReferenceToday(nil, now); !got.Equal(now) {
		t.Fatalf("expected fallback to now, got %s", got)
	}
}

func TestDaysLeftInMonth(t *testing.T) {
	cases := []struct {
		today *time.Time
		want  int
	}{
		{day(2024, time.March, 20), 11},
		{day(2024, time.February, 1), 28},
		{day(2023, time.February, 28), 0},
		{day(2024, time.December, 31), 0},
	}
	for _, tc := range cases {
		if got := DaysLeftInMonth(*tc.today); got != tc.want {
			t.Fatalf("DaysLeftInMonth(%s) = %d, want %d", tc.today, got, tc.want)
		}
	}
}

func TestDetectBreaches(t *testing.T) {
	today := *day(2024, time.March, 20)
	records := []domain.CaseRecord{
		scoredRecord("c1", "A", 30, 25, 100),
		scoredRecord("c2", "A", 30, 10, 100),
		scoredRecord("c3", "A", 30, 30, 100),
		scoredRecord("c4", "A", 30, 45, 100),
		{ClientID: "c5", InventoryAsOf: day(2024, time.March, 20), ElapsedDays: 1},
	}
	excluded := domain.CaseRecord{
		ClientID:             "c6",
		LegalStage:           "PASE A LEGAL",
		LegalSubstage:        "EN TRAMITE",
		InventoryAsOf:        day(2024, time.March, 20),
		ExpectedDurationDays: intPtr(10),
		ElapsedDays:          5,
	}
	newTestClassifier().Classify(&excluded)
	records = append(records, excluded)

	atRisk := DetectBreaches(records, today)
	if len(atRisk) != 1 || atRisk[0].ClientID != "c1" {
		t.Fatalf("expected only c1 at risk, got %+v", atRisk)
	}
	if !records[0].AtRiskThisMonth || records[1].AtRiskThisMonth {
		t.Fatalf("unexpected at-risk flags on source records")
	}
	if got := *records[0].DeadlineDate; !got.Equal(*day(2024, time.March, 25)) {
		t.Fatalf("expected deadline 2024-03-25, got %s", got)
	}
	if got := *records[3].DeadlineDate; !got.Equal(today) {
		t.Fatalf("overdue record deadline should be the inventory date, got %s", got)
	}
	if records[4].DeadlineDate != nil || records[4].AtRiskThisMonth {
		t.Fatalf("record without duration must not get a deadline")
	}
	if records[5].AtRiskThisMonth {
		t.Fatalf("non SLA-applicable records are never at risk")
	}
}
