package report

import (
	"sort"

	"github.com/tripops/attribution/internal/engine"
	"github.com/tripops/attribution/internal/models"
)

const defaultMatrixRowCap = 500

// assembleMatrix emits the ungrouped row-level view at date/agent/country/
// platform grain, using the same proportional outcome attribution as the
// platform report. Outcome-only keys surface once with an empty platform so
// the outer-join totality is visible at row level. Rows are capped for UI
// consumption.
func assembleMatrix(in Input) models.ReportResponse {
	resp := models.EmptyReportResponse()
	resp.Overview = engine.ComputeAggregate(in.Groups, in.AverageDealValue)

	platSpend := map[models.CompositeKey]map[string]float64{}
	for _, t := range in.Spend {
		m := platSpend[t.Key]
		if m == nil {
			m = map[string]float64{}
			platSpend[t.Key] = m
		}
		m[t.PlatformID] += t.Amount
	}

	rows := make([]models.MatrixRow, 0, len(in.Groups))
	for _, g := range in.Groups {
		base := models.MatrixRow{
			Date:            g.Key.Date.Format("2006-01-02"),
			AgentID:         g.Key.AgentID,
			TargetCountryID: g.Key.TargetCountryID,
		}
		if !g.HasSpendSide {
			row := base
			row.Metrics = engine.Compute(0, float64(g.TotalDeals), float64(g.TotalMessages),
				g.AverageQualityScore, in.AverageDealValue)
			if passMin(in, row.Metrics) {
				rows = append(rows, row)
			}
			continue
		}
		for platform, spend := range platSpend[g.Key] {
			share := 0.0
			if g.TotalSpend > 0 {
				share = spend / g.TotalSpend
			}
			row := base
			row.PlatformID = platform
			row.Metrics = engine.Compute(spend,
				share*float64(g.TotalDeals), share*float64(g.TotalMessages),
				g.AverageQualityScore, in.AverageDealValue)
			if passMin(in, row.Metrics) {
				rows = append(rows, row)
			}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if less, ok := roiOrder(rows[i].Metrics.ROI, rows[j].Metrics.ROI,
			rows[i].Metrics.TotalSpend > 0, rows[j].Metrics.TotalSpend > 0); ok {
			return less
		}
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		if rows[i].AgentID != rows[j].AgentID {
			return rows[i].AgentID < rows[j].AgentID
		}
		if rows[i].TargetCountryID != rows[j].TargetCountryID {
			return rows[i].TargetCountryID < rows[j].TargetCountryID
		}
		return rows[i].PlatformID < rows[j].PlatformID
	})

	rowCap := in.MatrixRowCap
	if rowCap <= 0 {
		rowCap = defaultMatrixRowCap
	}
	if len(rows) > rowCap {
		rows = rows[:rowCap]
	}
	resp.ROIMatrix = rows
	return resp
}
