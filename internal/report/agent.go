package report

import (
	"sort"

	"github.com/tripops/attribution/internal/engine"
	"github.com/tripops/attribution/internal/models"
)

// assembleAgent groups matched data by sales agent and breaks each agent down
// by target country. Rows are sorted by ROI descending with undefined-ROI
// agents last.
func assembleAgent(in Input) models.ReportResponse {
	resp := models.EmptyReportResponse()
	resp.Overview = engine.ComputeAggregate(in.Groups, in.AverageDealValue)

	byAgent := map[string][]models.MatchedGroup{}
	for _, g := range in.Groups {
		byAgent[g.Key.AgentID] = append(byAgent[g.Key.AgentID], g)
	}

	rows := make([]models.AgentReportRow, 0, len(byAgent))
	for agent, groups := range byAgent {
		row := models.AgentReportRow{
			AgentID: agent,
			Metrics: engine.ComputeAggregate(groups, in.AverageDealValue),
		}
		byCountry := map[string][]models.MatchedGroup{}
		for _, g := range groups {
			row.CampaignCount += g.CampaignCount
			row.TotalMessages += g.TotalMessages
			byCountry[g.Key.TargetCountryID] = append(byCountry[g.Key.TargetCountryID], g)
		}
		if !passMin(in, row.Metrics) {
			continue
		}
		row.Countries = make([]models.CountryBreakdown, 0, len(byCountry))
		for country, cg := range byCountry {
			cb := models.CountryBreakdown{
				TargetCountryID: country,
				Metrics:         engine.ComputeAggregate(cg, in.AverageDealValue),
			}
			for _, g := range cg {
				cb.TotalMessages += g.TotalMessages
			}
			row.Countries = append(row.Countries, cb)
		}
		sort.Slice(row.Countries, func(i, j int) bool {
			return row.Countries[i].TargetCountryID < row.Countries[j].TargetCountryID
		})
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if less, ok := roiOrder(rows[i].Metrics.ROI, rows[j].Metrics.ROI,
			rows[i].Metrics.TotalSpend > 0, rows[j].Metrics.TotalSpend > 0); ok {
			return less
		}
		return rows[i].AgentID < rows[j].AgentID
	})
	resp.AgentPerformance = rows
	return resp
}
