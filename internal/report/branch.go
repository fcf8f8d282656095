package report

import (
	"sort"

	"github.com/tripops/attribution/internal/engine"
	"github.com/tripops/attribution/internal/models"
)

// assembleBranch groups by branch. Branch is not part of the composite key, so
// the tuples are partitioned by branch and re-joined per partition; the ratio
// rules are identical to every other report. AgentCount is the number of
// distinct agents contributing on either side.
func assembleBranch(in Input) models.ReportResponse {
	resp := models.EmptyReportResponse()
	resp.Overview = engine.ComputeAggregate(in.Groups, in.AverageDealValue)

	spendByBranch := map[string][]models.SpendTuple{}
	for _, t := range in.Spend {
		spendByBranch[t.BranchID] = append(spendByBranch[t.BranchID], t)
	}
	outcomesByBranch := map[string][]models.OutcomeTuple{}
	for _, t := range in.Outcomes {
		outcomesByBranch[t.BranchID] = append(outcomesByBranch[t.BranchID], t)
	}

	branches := map[string]struct{}{}
	for b := range spendByBranch {
		branches[b] = struct{}{}
	}
	for b := range outcomesByBranch {
		branches[b] = struct{}{}
	}

	rows := make([]models.BranchReportRow, 0, len(branches))
	for branch := range branches {
		groups := engine.Join(spendByBranch[branch], outcomesByBranch[branch])
		agents := map[string]struct{}{}
		for _, g := range groups {
			agents[g.Key.AgentID] = struct{}{}
		}
		row := models.BranchReportRow{
			BranchID:   branch,
			AgentCount: len(agents),
			Metrics:    engine.ComputeAggregate(groups, in.AverageDealValue),
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
		return rows[i].BranchID < rows[j].BranchID
	})
	resp.BranchComparison = rows
	return resp
}
