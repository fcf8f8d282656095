package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripops/attribution/internal/models"
)

func spendEvent(date, agent, country, platform, dest string, amount float64) models.SpendEvent {
	return models.SpendEvent{
		Date: day(date), BranchID: "dxb", AgentID: agent, TargetCountryID: country,
		DestinationCountryID: dest, PlatformID: platform, Amount: amount,
	}
}

func outcomeEvent(date, agent, country string, deals, msgs int, q models.QualityRating, dests ...models.DestinationAllocation) models.OutcomeEvent {
	return models.OutcomeEvent{
		Date: day(date), BranchID: "dxb", AgentID: agent, TargetCountryID: country,
		DealsClosed: deals, WhatsappMessages: msgs, QualityRating: q,
		DestinationAllocations: dests,
	}
}

func mustFilter(t *testing.T, f models.ReportFilters) Filter {
	t.Helper()
	out, err := NewFilter(f)
	require.NoError(t, err)
	return out
}

func TestNewFilterRequiresDateRange(t *testing.T) {
	_, err := NewFilter(models.ReportFilters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filters.dateRange is required")

	_, err = NewFilter(models.ReportFilters{DateRange: &models.DateRange{Start: "2024-01-15", End: "15/01/2024"}})
	require.Error(t, err)

	_, err = NewFilter(models.ReportFilters{DateRange: &models.DateRange{Start: "2024-02-01", End: "2024-01-01"}})
	require.Error(t, err)

	_, err = NewFilter(models.ReportFilters{
		DateRange:      &models.DateRange{Start: "2024-01-01", End: "2024-01-31"},
		QualityRatings: []models.QualityRating{"amazing"},
	})
	require.Error(t, err)
}

func TestNormalizeSpendFlattensAndFilters(t *testing.T) {
	events := []models.SpendEvent{
		spendEvent("2024-01-15", "21", "uae", "meta", "tr", 500),
		spendEvent("2024-01-15", "22", "uae", "google", "tr", 200),
		spendEvent("2024-02-20", "21", "uae", "meta", "tr", 999), // outside range
	}
	f := mustFilter(t, models.ReportFilters{
		DateRange:   &models.DateRange{Start: "2024-01-01", End: "2024-01-31"},
		SalesAgents: []string{"21"},
	})

	tuples := NormalizeSpend(events, f)
	require.Len(t, tuples, 1)
	assert.Equal(t, ck("2024-01-15", "21", "uae"), tuples[0].Key)
	assert.Equal(t, 500.0, tuples[0].Amount)
	assert.Equal(t, "meta", tuples[0].PlatformID)
}

func TestNormalizeSpendRangeFilter(t *testing.T) {
	min, max := 100.0, 600.0
	events := []models.SpendEvent{
		spendEvent("2024-01-15", "21", "uae", "meta", "tr", 50),
		spendEvent("2024-01-15", "21", "uae", "meta", "tr", 500),
		spendEvent("2024-01-15", "21", "uae", "meta", "tr", 900),
	}
	f := mustFilter(t, models.ReportFilters{
		DateRange:  &models.DateRange{Start: "2024-01-01", End: "2024-01-31"},
		SpendRange: &models.NumericRange{Min: &min, Max: &max},
	})

	tuples := NormalizeSpend(events, f)
	require.Len(t, tuples, 1)
	assert.Equal(t, 500.0, tuples[0].Amount)
}

func TestNormalizeOutcomesQualityAndDealFilters(t *testing.T) {
	min := 2.0
	events := []models.OutcomeEvent{
		outcomeEvent("2024-01-15", "21", "uae", 5, 30, models.QualityGood),
		outcomeEvent("2024-01-15", "21", "ksa", 1, 10, models.QualityGood),          // below deal min
		outcomeEvent("2024-01-15", "21", "kwt", 4, 20, models.QualityBelowStandard), // filtered quality
	}
	f := mustFilter(t, models.ReportFilters{
		DateRange:      &models.DateRange{Start: "2024-01-01", End: "2024-01-31"},
		QualityRatings: []models.QualityRating{models.QualityGood},
		DealRange:      &models.NumericRange{Min: &min},
	})

	tuples := NormalizeOutcomes(events, f)
	require.Len(t, tuples, 1)
	assert.Equal(t, "uae", tuples[0].Key.TargetCountryID)
}

func TestNormalizeOutcomesDestinationFilterTrimsAllocationsOnly(t *testing.T) {
	events := []models.OutcomeEvent{
		outcomeEvent("2024-01-15", "21", "uae", 3, 12, models.QualityGood,
			models.DestinationAllocation{DestinationCountryID: "tr", DealSequenceNumber: 1},
			models.DestinationAllocation{DestinationCountryID: "ge", DealSequenceNumber: 2},
			models.DestinationAllocation{DestinationCountryID: "tr", DealSequenceNumber: 3},
		),
	}
	f := mustFilter(t, models.ReportFilters{
		DateRange:            &models.DateRange{Start: "2024-01-01", End: "2024-01-31"},
		DestinationCountries: []string{"tr"},
	})

	tuples := NormalizeOutcomes(events, f)
	require.Len(t, tuples, 1)
	assert.Equal(t, 3, tuples[0].DealsClosed, "deal totals belong to the composite key, not a destination")
	assert.Len(t, tuples[0].Destinations, 2)
}

func TestNormalizeEmptyResultIsNotAnError(t *testing.T) {
	f := mustFilter(t, models.ReportFilters{
		DateRange: &models.DateRange{Start: "2030-01-01", End: "2030-01-31"},
	})
	assert.Empty(t, NormalizeSpend([]models.SpendEvent{spendEvent("2024-01-15", "21", "uae", "meta", "tr", 1)}, f))
	assert.Empty(t, NormalizeOutcomes([]models.OutcomeEvent{outcomeEvent("2024-01-15", "21", "uae", 1, 1, models.QualityGood)}, f))
}
