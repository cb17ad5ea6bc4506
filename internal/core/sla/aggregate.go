package sla

import (
	"sort"
	"time"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

// TotalLabel marks the synthetic period-total row in exported monthly risk tables.
const TotalLabel = "TOTAL"

type meanAcc struct {
	sum   float64
	count int
}

func (m *meanAcc) add(v float64) {
	m.sum += v
	m.count++
}

func (m meanAcc) mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

type clientSet map[string]struct{}

func (s clientSet) add(id string) {
	if id != "" {
		s[id] = struct{}{}
	}
}

// AggregateByClient groups records by client. Counts and capital cover every
// record; means cover SLA-scored records only.
func AggregateByClient(records []domain.CaseRecord, criticalMeanDeviation float64) []domain.ClientSummary {
	type acc struct {
		out       domain.ClientSummary
		deviation meanAcc
		excess    meanAcc
	}
	groups := make(map[string]*acc)
	for _, rec := range records {
		g, ok := groups[rec.ClientID]
		if !ok {
			g = &acc{out: domain.ClientSummary{ClientID: rec.ClientID}}
			groups[rec.ClientID] = g
		}
		g.out.Operations++
		g.out.Capital += rec.CurrentCapital
		if rec.Scored() {
			g.deviation.add(rec.PercentDeviation)
			g.excess.add(float64(rec.PositiveExcessDays()))
		}
	}

	out := make([]domain.ClientSummary, 0, len(groups))
	for _, g := range groups {
		g.out.MeanPercentDeviation = g.deviation.mean()
		g.out.MeanExcessDays = g.excess.mean()
		g.out.Critical = g.out.MeanPercentDeviation > criticalMeanDeviation
		out = append(out, g.out)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}

type stageKey struct {
	stage    string
	substage string
}

// AggregateByStage groups records by (stage, sub-stage), ordered by key.
func AggregateByStage(records []domain.CaseRecord) []domain.StageSummary {
	type acc struct {
		out       domain.StageSummary
		clients   clientSet
		deviation meanAcc
	}
	groups := make(map[stageKey]*acc)
	for _, rec := range records {
		key := stageKey{rec.LegalStage, rec.LegalSubstage}
		g, ok := groups[key]
		if !ok {
			g = &acc{
				out:     domain.StageSummary{LegalStage: key.stage, LegalSubstage: key.substage},
				clients: clientSet{},
			}
			groups[key] = g
		}
		g.out.Operations++
		g.out.Capital += rec.CurrentCapital
		g.clients.add(rec.ClientID)
		if rec.Scored() {
			g.deviation.add(rec.PercentDeviation)
		}
	}

	out := make([]domain.StageSummary, 0, len(groups))
	for _, g := range groups {
		g.out.Clients = len(g.clients)
		g.out.MeanPercentDeviation = g.deviation.mean()
		out = append(out, g.out)
	}
	sort.Slice(out, func(i, j int) bool { return stageLess(out[i], out[j]) })
	return out
}

// RankStagesByCapital returns a copy ordered by capital exposure, largest first.
func RankStagesByCapital(stages []domain.StageSummary) []domain.StageSummary {
	out := append([]domain.StageSummary(nil), stages...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Capital != out[j].Capital {
			return out[i].Capital > out[j].Capital
		}
		return stageLess(out[i], out[j])
	})
	return out
}

// RankStagesByDeviation returns a copy ordered by mean deviation, worst first.
func RankStagesByDeviation(stages []domain.StageSummary) []domain.StageSummary {
	out := append([]domain.StageSummary(nil), stages...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MeanPercentDeviation != out[j].MeanPercentDeviation {
			return out[i].MeanPercentDeviation > out[j].MeanPercentDeviation
		}
		return stageLess(out[i], out[j])
	})
	return out
}

func stageLess(a, b domain.StageSummary) bool {
	if a.LegalStage != b.LegalStage {
		return a.LegalStage < b.LegalStage
	}
	return a.LegalSubstage < b.LegalSubstage
}

// AggregateMonthlyRisk groups at-risk records by deadline (year, month,
// sub-stage) and computes the period total separately.
func AggregateMonthlyRisk(records []domain.CaseRecord) domain.MonthlyRiskReport {
	type key struct {
		year     int
		month    time.Month
		substage string
	}
	type acc struct {
		out     domain.MonthlyRiskRow
		clients clientSet
	}

	groups := make(map[key]*acc)
	allClients := clientSet{}
	total := domain.MonthlyRiskRow{LegalSubstage: TotalLabel}

	for _, rec := range records {
		if !rec.AtRiskThisMonth || rec.DeadlineDate == nil {
			continue
		}
		k := key{rec.DeadlineDate.Year(), rec.DeadlineDate.Month(), rec.LegalSubstage}
		g, ok := groups[k]
		if !ok {
			g = &acc{
				out: domain.MonthlyRiskRow{
					Year:          k.year,
					Month:         int(k.month),
					LegalSubstage: k.substage,
				},
				clients: clientSet{},
			}
			groups[k] = g
		}
		g.out.Operations++
		g.out.Capital += rec.CurrentCapital
		g.clients.add(rec.ClientID)

		total.Operations++
		total.Capital += rec.CurrentCapital
		allClients.add(rec.ClientID)
	}

	rows := make([]domain.MonthlyRiskRow, 0, len(groups))
	for _, g := range groups {
		g.out.Clients = len(g.clients)
		rows = append(rows, g.out)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.LegalSubstage < b.LegalSubstage
	})
	total.Clients = len(allClients)
	return domain.MonthlyRiskReport{Rows: rows, Total: total}
}

// AggregateThirdParty summarizes records excluded from SLA scoring.
func AggregateThirdParty(records []domain.CaseRecord) []domain.ThirdPartySummary {
	type acc struct {
		out     domain.ThirdPartySummary
		clients clientSet
	}
	groups := make(map[stageKey]*acc)
	for _, rec := range records {
		if rec.SLAApplicable {
			continue
		}
		key := stageKey{rec.LegalStage, rec.LegalSubstage}
		g, ok := groups[key]
		if !ok {
			g = &acc{
				out:     domain.ThirdPartySummary{LegalStage: key.stage, LegalSubstage: key.substage},
				clients: clientSet{},
			}
			groups[key] = g
		}
		g.out.Operations++
		g.out.Capital += rec.CurrentCapital
		g.clients.add(rec.ClientID)
	}

	out := make([]domain.ThirdPartySummary, 0, len(groups))
	for _, g := range groups {
		g.out.Clients = len(g.clients)
		out = append(out, g.out)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LegalStage != out[j].LegalStage {
			return out[i].LegalStage < out[j].LegalStage
		}
		return out[i].LegalSubstage < out[j].LegalSubstage
	})
	return out
}

// Summarize builds the executive counters for a run.
func Summarize(valid, errored []domain.CaseRecord, unmatched []string, today time.Time) domain.ExecutiveSummary {
	s := domain.ExecutiveSummary{
		Today:              today,
		TotalRecords:       len(valid) + len(errored),
		ValidRecords:       len(valid),
		ErrorRecords:       len(errored),
		UnmatchedSubstages: len(unmatched),
	}
	clients := clientSet{}
	for _, rec := range valid {
		clients.add(rec.ClientID)
		s.TotalCapital += rec.CurrentCapital
		if rec.PercentDeviation > 0 {
			s.DeviatedRecords++
		}
		if !rec.SLAApplicable {
			s.NotApplicable++
		}
		if rec.AtRiskThisMonth {
			s.AtRiskThisMonth++
		}
	}
	s.DistinctClients = len(clients)
	return s
}
