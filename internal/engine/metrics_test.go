package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tripops/attribution/internal/models"
)

func TestComputeBaseline(t *testing.T) {
	// 500 spent, 10 deals, 40 messages, quality "good", deal value 500.
	m := Compute(500, 10, 40, 3, 500)

	assert.Equal(t, 50.0, m.CostPerDeal)
	assert.Equal(t, 25.0, m.ConversionRate)
	assert.Equal(t, 900.0, m.ROI)
	assert.Equal(t, 3.0, m.QualityScore)
}

func TestComputeZeroDenominators(t *testing.T) {
	noSpend := Compute(0, 10, 40, 3, 500)
	assert.Equal(t, 0.0, noSpend.ROI, "roi must be 0 when spend is 0")

	noDeals := Compute(1200, 0, 40, 0, 500)
	assert.Equal(t, 0.0, noDeals.CostPerDeal, "costPerDeal must be 0 when deals are 0")

	noMessages := Compute(600, 2, 0, 2, 500)
	assert.Equal(t, 0.0, noMessages.ConversionRate, "conversionRate must be 0 when messages are 0")
}

func TestComputeNegativeROI(t *testing.T) {
	// 2 deals at 500 each against 2000 spend: roi = (1000-2000)/2000*100.
	m := Compute(2000, 2, 10, 0, 500)
	assert.Equal(t, -50.0, m.ROI)
}

func TestComputeAverageDealValueIsParameter(t *testing.T) {
	low := Compute(500, 10, 40, 0, 100)
	high := Compute(500, 10, 40, 0, 1000)
	assert.Equal(t, 100.0, low.ROI)
	assert.Equal(t, 1900.0, high.ROI)
}

func TestComputeAggregateSumsBeforeRatios(t *testing.T) {
	groups := []models.MatchedGroup{
		{TotalSpend: 100, TotalDeals: 1, TotalMessages: 10, HasSpendSide: true, HasOutcomeSide: true, AverageQualityScore: 2},
		{TotalSpend: 900, TotalDeals: 1, TotalMessages: 10, HasSpendSide: true, HasOutcomeSide: true, AverageQualityScore: 4},
	}
	agg := ComputeAggregate(groups, 500)

	// Ratios on the sums: cpd = 1000/2 = 500. Averaging the per-group cost
	// per deal (100 and 900) would also give 500 here, but roi separates the
	// two: ((2*500)-1000)/1000*100 = 0, while the per-group roi mean is
	// (400 + -44.44)/2.
	assert.Equal(t, 500.0, agg.CostPerDeal)
	assert.Equal(t, 0.0, agg.ROI)
	assert.Equal(t, 10.0, agg.ConversionRate)
	assert.Equal(t, 3.0, agg.QualityScore)
}

func TestMeanGroupQualityWeightsByGroupNotDeals(t *testing.T) {
	groups := []models.MatchedGroup{
		// 100 deals at quality 5, 1 deal at quality 1: a deal-weighted mean
		// would be near 5; the group-weighted mean is exactly 3.
		{TotalDeals: 100, AverageQualityScore: 5, HasOutcomeSide: true},
		{TotalDeals: 1, AverageQualityScore: 1, HasOutcomeSide: true},
	}
	assert.Equal(t, 3.0, MeanGroupQuality(groups))
}

func TestMeanGroupQualitySkipsSpendOnlyGroups(t *testing.T) {
	groups := []models.MatchedGroup{
		{TotalSpend: 500, HasSpendSide: true},
		{AverageQualityScore: 4, HasOutcomeSide: true},
	}
	assert.Equal(t, 4.0, MeanGroupQuality(groups))
	assert.Equal(t, 0.0, MeanGroupQuality(nil))
}
