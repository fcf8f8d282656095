package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripops/attribution/internal/engine"
	"github.com/tripops/attribution/internal/models"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return models.Day(d)
}

func spendT(date, agent, country, platform, dest string, amount float64) models.SpendTuple {
	return models.SpendTuple{
		Key:        models.CompositeKey{Date: day(date), AgentID: agent, TargetCountryID: country},
		BranchID:   "dxb",
		PlatformID: platform, DestinationCountryID: dest, Amount: amount,
	}
}

func outcomeT(date, agent, country string, deals, messages int, q models.QualityRating, dests ...models.DestinationAllocation) models.OutcomeTuple {
	return models.OutcomeTuple{
		Key:         models.CompositeKey{Date: day(date), AgentID: agent, TargetCountryID: country},
		BranchID:    "dxb",
		DealsClosed: deals, WhatsappMessages: messages, QualityRating: q,
		Destinations: dests,
	}
}

func input(spend []models.SpendTuple, outcomes []models.OutcomeTuple) Input {
	return Input{
		Groups:           engine.Join(spend, outcomes),
		Spend:            spend,
		Outcomes:         outcomes,
		AverageDealValue: 500,
	}
}

func TestStableResponseShape(t *testing.T) {
	in := input(nil, nil)
	for name, assemble := range assemblers {
		resp := assemble(in)
		assert.NotNil(t, resp.AgentPerformance, name)
		assert.NotNil(t, resp.PlatformAnalysis, name)
		assert.NotNil(t, resp.CountryInsights, name)
		assert.NotNil(t, resp.BranchComparison, name)
		assert.NotNil(t, resp.ROIMatrix, name)
	}
}

func TestOverviewEqualsAggregateOfGroups(t *testing.T) {
	spend := []models.SpendTuple{
		spendT("2024-01-15", "21", "uae", "meta", "tr", 500),
		spendT("2024-01-16", "22", "ksa", "google", "ge", 800),
	}
	outcomes := []models.OutcomeTuple{
		outcomeT("2024-01-15", "21", "uae", 10, 40, models.QualityGood),
	}
	in := input(spend, outcomes)
	want := engine.ComputeAggregate(in.Groups, in.AverageDealValue)

	for name, assemble := range assemblers {
		assert.Equal(t, want, assemble(in).Overview, name)
	}
}

func TestAgentReportSortsROIDescUndefinedLast(t *testing.T) {
	spend := []models.SpendTuple{
		spendT("2024-01-15", "low", "uae", "meta", "tr", 2000), // roi -50
		spendT("2024-01-15", "high", "uae", "meta", "tr", 500), // roi 900
	}
	outcomes := []models.OutcomeTuple{
		outcomeT("2024-01-15", "low", "uae", 2, 10, models.QualityStandard),
		outcomeT("2024-01-15", "high", "uae", 10, 40, models.QualityGood),
		outcomeT("2024-01-15", "organic", "uae", 3, 10, models.QualityGood), // no spend: undefined roi
	}

	resp := assembleAgent(input(spend, outcomes))
	require.Len(t, resp.AgentPerformance, 3)
	assert.Equal(t, "high", resp.AgentPerformance[0].AgentID)
	assert.Equal(t, "low", resp.AgentPerformance[1].AgentID)
	assert.Equal(t, "organic", resp.AgentPerformance[2].AgentID, "undefined roi sorts last")
	assert.Equal(t, 900.0, resp.AgentPerformance[0].Metrics.ROI)
}

func TestAgentReportCountryBreakdown(t *testing.T) {
	spend := []models.SpendTuple{
		spendT("2024-01-15", "21", "uae", "meta", "tr", 300),
		spendT("2024-01-15", "21", "ksa", "meta", "tr", 700),
	}
	outcomes := []models.OutcomeTuple{
		outcomeT("2024-01-15", "21", "uae", 5, 20, models.QualityGood),
	}

	resp := assembleAgent(input(spend, outcomes))
	require.Len(t, resp.AgentPerformance, 1)
	row := resp.AgentPerformance[0]
	assert.Equal(t, 2, row.CampaignCount)
	assert.Equal(t, 20, row.TotalMessages)
	require.Len(t, row.Countries, 2)
	assert.Equal(t, "ksa", row.Countries[0].TargetCountryID)
	assert.Equal(t, "uae", row.Countries[1].TargetCountryID)
	assert.Equal(t, 300.0, row.Countries[1].Metrics.TotalSpend)
}

func TestPlatformProportionalAttribution(t *testing.T) {
	// meta carries 75% of the key's spend, google 25%; the key's 8 deals and
	// 40 messages split 6/2 and 30/10.
	spend := []models.SpendTuple{
		spendT("2024-01-15", "21", "uae", "meta", "tr", 750),
		spendT("2024-01-15", "21", "uae", "google", "tr", 250),
	}
	outcomes := []models.OutcomeTuple{
		outcomeT("2024-01-15", "21", "uae", 8, 40, models.QualityGood),
	}

	resp := assemblePlatform(input(spend, outcomes))
	require.Len(t, resp.PlatformAnalysis, 2)

	byPlat := map[string]models.PlatformReportRow{}
	for _, r := range resp.PlatformAnalysis {
		byPlat[r.PlatformID] = r
	}
	meta := byPlat["meta"]
	google := byPlat["google"]

	assert.Equal(t, AttributionProportional, meta.Attribution)
	assert.Equal(t, 6.0, meta.Metrics.TotalDeals)
	assert.Equal(t, 2.0, google.Metrics.TotalDeals)
	assert.Equal(t, 0.75, meta.SpendShare)

	// Attribution preserves the partition of deals.
	assert.Equal(t, 8.0, meta.Metrics.TotalDeals+google.Metrics.TotalDeals)
}

func TestDestinationSecondJoin(t *testing.T) {
	spend := []models.SpendTuple{
		spendT("2024-01-15", "21", "uae", "meta", "tr", 600),
		spendT("2024-01-16", "22", "ksa", "meta", "tr", 400),
		spendT("2024-01-16", "22", "ksa", "meta", "ge", 500),
	}
	outcomes := []models.OutcomeTuple{
		outcomeT("2024-01-15", "21", "uae", 3, 12, models.QualityGood,
			models.DestinationAllocation{DestinationCountryID: "tr", DealSequenceNumber: 1},
			models.DestinationAllocation{DestinationCountryID: "tr", DealSequenceNumber: 2},
			models.DestinationAllocation{DestinationCountryID: "az", DealSequenceNumber: 3},
		),
	}

	resp := assembleDestination(input(spend, outcomes))
	require.Len(t, resp.CountryInsights, 3)

	byDest := map[string]models.DestinationReportRow{}
	for _, r := range resp.CountryInsights {
		byDest[r.DestinationCountryID] = r
	}
	assert.Equal(t, 1000.0, byDest["tr"].Metrics.TotalSpend, "spend joins across the full date range")
	assert.Equal(t, 2, byDest["tr"].AllocatedDeals)
	assert.Equal(t, 0, byDest["ge"].AllocatedDeals, "spend-only destination still surfaces")
	assert.Equal(t, 0.0, byDest["az"].Metrics.TotalSpend, "allocation-only destination still surfaces")
	assert.Equal(t, 0.0, byDest["tr"].Metrics.ConversionRate, "allocations carry no messages")
}

func TestBranchReportAgentCount(t *testing.T) {
	spend := []models.SpendTuple{
		spendT("2024-01-15", "21", "uae", "meta", "tr", 500),
	}
	spend[0].BranchID = "dxb"
	auh := spendT("2024-01-15", "31", "ksa", "meta", "tr", 200)
	auh.BranchID = "auh"
	spend = append(spend, auh)

	o1 := outcomeT("2024-01-15", "21", "uae", 10, 40, models.QualityGood)
	o2 := outcomeT("2024-01-15", "22", "uae", 1, 5, models.QualityStandard)
	outcomes := []models.OutcomeTuple{o1, o2}

	resp := assembleBranch(input(spend, outcomes))
	require.Len(t, resp.BranchComparison, 2)

	byBranch := map[string]models.BranchReportRow{}
	for _, r := range resp.BranchComparison {
		byBranch[r.BranchID] = r
	}
	assert.Equal(t, 2, byBranch["dxb"].AgentCount, "distinct agents on either side count")
	assert.Equal(t, 1, byBranch["auh"].AgentCount)
	assert.Equal(t, 500.0, byBranch["dxb"].Metrics.TotalSpend)
}

func TestMatrixRowGrainAndCap(t *testing.T) {
	spend := []models.SpendTuple{
		spendT("2024-01-15", "21", "uae", "meta", "tr", 750),
		spendT("2024-01-15", "21", "uae", "google", "tr", 250),
	}
	outcomes := []models.OutcomeTuple{
		outcomeT("2024-01-15", "21", "uae", 8, 40, models.QualityGood),
		outcomeT("2024-01-15", "22", "kwt", 2, 6, models.QualityExcellent), // outcome-only key
	}

	in := input(spend, outcomes)
	resp := assembleMatrix(in)
	require.Len(t, resp.ROIMatrix, 3, "one row per platform plus the outcome-only key")

	last := resp.ROIMatrix[len(resp.ROIMatrix)-1]
	assert.Equal(t, "", last.PlatformID, "outcome-only rows sort last with empty platform")
	assert.Equal(t, "22", last.AgentID)

	in.MatrixRowCap = 1
	capped := assembleMatrix(in)
	require.Len(t, capped.ROIMatrix, 1)
	assert.Equal(t, resp.ROIMatrix[0], capped.ROIMatrix[0], "cap keeps the top rows")
}

func TestMinROIFilter(t *testing.T) {
	minROI := 0.0
	spend := []models.SpendTuple{
		spendT("2024-01-15", "profit", "uae", "meta", "tr", 500),
		spendT("2024-01-15", "loss", "uae", "meta", "tr", 2000),
	}
	outcomes := []models.OutcomeTuple{
		outcomeT("2024-01-15", "profit", "uae", 10, 40, models.QualityGood),
		outcomeT("2024-01-15", "loss", "uae", 2, 10, models.QualityStandard),
	}
	in := input(spend, outcomes)
	in.MinROI = &minROI

	resp := assembleAgent(in)
	require.Len(t, resp.AgentPerformance, 1)
	assert.Equal(t, "profit", resp.AgentPerformance[0].AgentID)
}
