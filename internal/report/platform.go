package report

import (
	"sort"

	"github.com/tripops/attribution/internal/engine"
	"github.com/tripops/attribution/internal/models"
)

// AttributionProportional labels platform and matrix numbers as estimates:
// outcomes are not recorded per platform, so each platform receives a key's
// deals and messages in proportion to its share of that key's spend.
const AttributionProportional = "proportional_by_spend_share"

// assemblePlatform groups the spend side by advertising platform and
// attributes outcomes proportionally. This is a documented approximation of a
// data-model limitation, not measured fact.
func assemblePlatform(in Input) models.ReportResponse {
	resp := models.EmptyReportResponse()
	resp.Overview = engine.ComputeAggregate(in.Groups, in.AverageDealValue)

	keySpend := map[models.CompositeKey]float64{}
	platSpend := map[string]map[models.CompositeKey]float64{}
	for _, t := range in.Spend {
		keySpend[t.Key] += t.Amount
		m := platSpend[t.PlatformID]
		if m == nil {
			m = map[models.CompositeKey]float64{}
			platSpend[t.PlatformID] = m
		}
		m[t.Key] += t.Amount
	}
	groupByKey := map[models.CompositeKey]models.MatchedGroup{}
	var totalSpend float64
	for _, g := range in.Groups {
		groupByKey[g.Key] = g
		totalSpend += g.TotalSpend
	}

	rows := make([]models.PlatformReportRow, 0, len(platSpend))
	for platform, keys := range platSpend {
		var spend, deals, messages float64
		touched := make([]models.MatchedGroup, 0, len(keys))
		for key, amount := range keys {
			spend += amount
			g := groupByKey[key]
			if ks := keySpend[key]; ks > 0 {
				share := amount / ks
				deals += share * float64(g.TotalDeals)
				messages += share * float64(g.TotalMessages)
			}
			if g.HasOutcomeSide {
				touched = append(touched, g)
			}
		}
		row := models.PlatformReportRow{
			PlatformID:  platform,
			Attribution: AttributionProportional,
			Metrics: engine.Compute(spend, deals, messages,
				engine.MeanGroupQuality(touched), in.AverageDealValue),
		}
		if totalSpend > 0 {
			row.SpendShare = spend / totalSpend
		}
		if !passMin(in, row.Metrics) {
			continue
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if less, ok := roiOrder(rows[i].Metrics.ROI, rows[j].Metrics.ROI,
			rows[i].Metrics.TotalSpend > 0, rows[j].Metrics.TotalSpend > 0); ok {
			return less
		}
		return rows[i].PlatformID < rows[j].PlatformID
	})
	resp.PlatformAnalysis = rows
	return resp
}
