package sla

import "github.com/kirillkom/legal-sla-monitor/internal/core/domain"

// Classifier computes deviation metrics and severities for valid records.
type Classifier struct {
	handoffStage string
	measured     map[string]struct{}
	percent      PercentThresholds
	days         DayThresholds
}

func NewClassifier(rules Rules) *Classifier {
	measured := make(map[string]struct{}, len(rules.MeasuredSubstages))
	for _, s := range rules.MeasuredSubstages {
		measured[CanonicalValue(s)] = struct{}{}
	}
	return &Classifier{
		handoffStage: CanonicalValue(rules.HandoffStage),
		measured:     measured,
		percent:      rules.Percent,
		days:         rules.Days,
	}
}

// SLAApplicable is false only for the hand-off stage outside its measured
// sub-stages; those cases belong to another party's sub-portfolio.
func (c *Classifier) SLAApplicable(stage, substage string) bool {
	if CanonicalValue(stage) != c.handoffStage {
		return true
	}
	_, ok := c.measured[CanonicalValue(substage)]
	return ok
}

// Classify fills the derived deviation fields of rec. ElapsedDays must
// already be set; it never fails.
func (c *Classifier) Classify(rec *domain.CaseRecord) {
	rec.SLAApplicable = c.SLAApplicable(rec.LegalStage, rec.LegalSubstage)
	rec.PercentAdvance = 0
	rec.PercentDeviation = 0
	rec.ExcessDays = 0

	if rec.HasDuration() {
		expected := *rec.ExpectedDurationDays
		rec.PercentAdvance = float64(rec.ElapsedDays) / float64(expected) * 100
		rec.ExcessDays = rec.ElapsedDays - expected
		if rec.ExcessDays > 0 {
			rec.PercentDeviation = float64(rec.ExcessDays) / float64(expected) * 100
		}
	}

	switch {
	case !rec.SLAApplicable:
		rec.PercentDeviation = 0
		rec.Severity = domain.SeverityNotApplicable
		rec.DaySeverity = domain.SeverityNotApplicable
	case !rec.HasDuration():
		rec.Severity = domain.SeverityNoData
		rec.DaySeverity = domain.SeverityNoData
	default:
		rec.Severity = c.PercentSeverity(rec.PercentDeviation)
		rec.DaySeverity = c.DaySeverity(rec.ExcessDays)
	}
}

// ClassifyAll classifies records in place.
func (c *Classifier) ClassifyAll(records []domain.CaseRecord) {
	for i := range records {
		c.Classify(&records[i])
	}
}

func (c *Classifier) PercentSeverity(deviation float64) domain.Severity {
	switch {
	case deviation <= 0:
		return domain.SeverityOnTime
	case deviation <= c.percent.LightMax:
		return domain.SeverityLight
	case deviation <= c.percent.ModerateMax:
		return domain.SeverityModerate
	default:
		return domain.SeveritySevere
	}
}

func (c *Classifier) DaySeverity(excessDays int) domain.Severity {
	switch {
	case excessDays <= 0:
		return domain.SeverityOnTime
	case excessDays <= c.days.LightMax:
		return domain.SeverityLight
	case excessDays <= c.days.ModerateMax:
		return domain.SeverityModerate
	default:
		return domain.SeveritySevere
	}
}
