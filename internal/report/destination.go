package report

import (
	"sort"

	"github.com/tripops/attribution/internal/engine"
	"github.com/tripops/attribution/internal/models"
)

// assembleDestination runs the second, narrower join: spend grouped by
// destination country against the outcome deal-destination allocations,
// independent of the agent/country composite key. Allocations carry no message
// counts, so conversion rate is always 0 on these rows.
func assembleDestination(in Input) models.ReportResponse {
	resp := models.EmptyReportResponse()
	resp.Overview = engine.ComputeAggregate(in.Groups, in.AverageDealValue)

	spendByDest := map[string]float64{}
	for _, t := range in.Spend {
		spendByDest[t.DestinationCountryID] += t.Amount
	}
	dealsByDest := map[string]int{}
	for _, t := range in.Outcomes {
		for _, a := range t.Destinations {
			dealsByDest[a.DestinationCountryID]++
		}
	}

	// Union of destinations present on either side.
	dests := map[string]struct{}{}
	for d := range spendByDest {
		dests[d] = struct{}{}
	}
	for d := range dealsByDest {
		dests[d] = struct{}{}
	}

	rows := make([]models.DestinationReportRow, 0, len(dests))
	for dest := range dests {
		deals := dealsByDest[dest]
		row := models.DestinationReportRow{
			DestinationCountryID: dest,
			AllocatedDeals:       deals,
			Metrics:              engine.Compute(spendByDest[dest], float64(deals), 0, 0, in.AverageDealValue),
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
		return rows[i].DestinationCountryID < rows[j].DestinationCountryID
	})
	resp.CountryInsights = rows
	return resp
}
