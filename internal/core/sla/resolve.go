package sla

import (
	"sort"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

// BlankSubstage names records whose sub-stage cell is empty in diagnostics.
const BlankSubstage = "(SIN SUB-ETAPA)"

// Catalog is the reference table keyed by canonical sub-stage description.
type Catalog struct {
	durations  map[string]int
	duplicates []string
}

// NewCatalog indexes reference rows. The first row for a key wins; later
// repeats are recorded as duplicates.
func NewCatalog(rows []domain.ReferenceDuration) Catalog {
	c := Catalog{durations: make(map[string]int, len(rows))}
	seenDup := make(map[string]bool)
	for _, row := range rows {
		key := CanonicalValue(row.SubstageDescription)
		if key == "" || row.MaxDurationDays <= 0 {
			continue
		}
		if _, exists := c.durations[key]; exists {
			if !seenDup[key] {
				seenDup[key] = true
				c.duplicates = append(c.duplicates, key)
			}
			continue
		}
		c.durations[key] = row.MaxDurationDays
	}
	sort.Strings(c.duplicates)
	return c
}

func (c Catalog) Lookup(substage string) (int, bool) {
	days, ok := c.durations[CanonicalValue(substage)]
	return days, ok
}

func (c Catalog) Len() int { return len(c.durations) }

// Duplicates lists keys that appeared more than once in the reference rows.
func (c Catalog) Duplicates() []string {
	return append([]string(nil), c.duplicates...)
}

// ResolveDurations fills ExpectedDurationDays from the catalog where it is
// absent and returns the sorted distinct sub-stages that stayed unresolved.
// Existing values are never overwritten, so a second pass is a no-op.
func ResolveDurations(records []domain.CaseRecord, catalog Catalog) []string {
	unmatched := make(map[string]struct{})
	for i := range records {
		rec := &records[i]
		if rec.ExpectedDurationDays != nil {
			continue
		}
		if days, ok := catalog.Lookup(rec.LegalSubstage); ok {
			d := days
			rec.ExpectedDurationDays = &d
			continue
		}
		name := rec.LegalSubstage
		if name == "" {
			name = BlankSubstage
		}
		unmatched[name] = struct{}{}
	}

	out := make([]string, 0, len(unmatched))
	for name := range unmatched {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
