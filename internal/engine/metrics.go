package engine

import (
	"math"

	"github.com/tripops/attribution/internal/models"
)

// Compute derives the ratio set from raw totals. Each ratio has its own
// zero-denominator rule: spend==0 forces roi=0, deals==0 forces costPerDeal=0,
// messages==0 forces conversionRate=0. averageDealValue is always passed in by
// the caller; there is no package-level default.
func Compute(spend, deals, messages, quality, averageDealValue float64) models.PerformanceMetrics {
	m := models.PerformanceMetrics{
		TotalSpend:   round2(spend),
		TotalDeals:   deals,
		QualityScore: round2(quality),
	}
	if spend > 0 {
		m.ROI = round2(((deals * averageDealValue) - spend) / spend * 100)
	}
	if deals > 0 {
		m.CostPerDeal = round2(spend / deals)
	}
	if messages > 0 {
		m.ConversionRate = round2(deals / messages * 100)
	}
	return m
}

// ComputeGroup derives metrics for a single matched group.
func ComputeGroup(g models.MatchedGroup, averageDealValue float64) models.PerformanceMetrics {
	return Compute(g.TotalSpend, float64(g.TotalDeals), float64(g.TotalMessages), g.AverageQualityScore, averageDealValue)
}

// ComputeAggregate derives metrics for a union of groups: totals are summed
// first and the ratios recomputed on the sums. Ratios are never averaged
// across groups.
func ComputeAggregate(groups []models.MatchedGroup, averageDealValue float64) models.PerformanceMetrics {
	var spend float64
	var deals, messages int
	for _, g := range groups {
		spend += g.TotalSpend
		deals += g.TotalDeals
		messages += g.TotalMessages
	}
	return Compute(spend, float64(deals), float64(messages), MeanGroupQuality(groups), averageDealValue)
}

// MeanGroupQuality averages the per-group quality means, weighting each
// contributing group equally regardless of its deal volume. Weighting by deal
// count instead would arguably be more faithful to volume, but the recorded
// behavior weights by group; keep the choice isolated here.
func MeanGroupQuality(groups []models.MatchedGroup) float64 {
	var sum float64
	var n int
	for _, g := range groups {
		if g.HasOutcomeSide && g.AverageQualityScore > 0 {
			sum += g.AverageQualityScore
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
