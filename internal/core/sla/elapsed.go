package sla

import "github.com/kirillkom/legal-sla-monitor/internal/core/domain"

// PartitionElapsed computes ElapsedDays for every record and splits them into
// usable and erroneous sets. Each input lands in exactly one of the two.
func PartitionElapsed(records []domain.CaseRecord) (valid, errored []domain.CaseRecord) {
	valid = make([]domain.CaseRecord, 0, len(records))
	for _, rec := range records {
		switch {
		case rec.InventoryAsOf == nil:
			rec.Error = domain.RecordErrorMissingInventoryDate
		case rec.StageEntry == nil:
			rec.Error = domain.RecordErrorMissingStageDate
		default:
			rec.ElapsedDays = daysBetween(*rec.StageEntry, *rec.InventoryAsOf)
			if rec.ElapsedDays < 0 {
				rec.Error = domain.RecordErrorNegativeElapsed
			}
		}

		if rec.Error != "" {
			errored = append(errored, rec)
			continue
		}
		valid = append(valid, rec)
	}
	return valid, errored
}
