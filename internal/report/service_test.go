package report

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripops/attribution/internal/models"
	"github.com/tripops/attribution/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(st, log, 500, 500)
}

func monthRequest(rt models.ReportType) models.ReportRequest {
	return models.ReportRequest{
		ReportType: rt,
		Filters: models.ReportFilters{
			DateRange: &models.DateRange{Start: "2024-01-01", End: "2024-01-31"},
		},
	}
}

func TestGenerateUnknownReportType(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Generate(context.Background(), monthRequest("pivot_table"))
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestGenerateAssemblerPanicIsAllOrNothing(t *testing.T) {
	svc := newTestService(t)

	failing := models.ReportType("failing_fixture")
	assemblers[failing] = func(Input) models.ReportResponse { panic("boom") }
	t.Cleanup(func() { delete(assemblers, failing) })

	resp, err := svc.Generate(context.Background(), monthRequest(failing))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "boom", "panic value stays out of the client-facing error")
	assert.Equal(t, models.ReportResponse{}, resp, "no partial sections survive a failed assembly")
}
