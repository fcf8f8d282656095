// Package report turns a matched-group set into one of five report shapes.
// Each assembler is a state-free function behind a strategy table keyed by
// report type; all of them produce the same stable response shape with an
// overview recomputed from summed totals.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tripops/attribution/internal/engine"
	"github.com/tripops/attribution/internal/models"
	"github.com/tripops/attribution/internal/store"
	"github.com/tripops/attribution/internal/utils"
)

// Input is everything an assembler may need: the joined groups plus the raw
// tuples (platform, destination, and branch grouping need tuple-level fields
// the composite key drops).
type Input struct {
	Groups           []models.MatchedGroup
	Spend            []models.SpendTuple
	Outcomes         []models.OutcomeTuple
	AverageDealValue float64

	MinROI            *float64
	MinConversionRate *float64
	MatrixRowCap      int
}

type assembleFunc func(Input) models.ReportResponse

var assemblers = map[models.ReportType]assembleFunc{
	models.ReportAgentROI:              assembleAgent,
	models.ReportPlatformEffectiveness: assemblePlatform,
	models.ReportDestinationAnalysis:   assembleDestination,
	models.ReportBranchComparison:      assembleBranch,
	models.ReportROIMatrix:             assembleMatrix,
}

// Service validates a report request, reads both event streams once,
// normalizes and joins them, and dispatches to the requested assembler.
type Service struct {
	st               *store.Store
	log              *slog.Logger
	averageDealValue float64
	matrixRowCap     int
}

func NewService(st *store.Store, log *slog.Logger, averageDealValue float64, matrixRowCap int) *Service {
	return &Service{st: st, log: log, averageDealValue: averageDealValue, matrixRowCap: matrixRowCap}
}

// Generate runs the full pipeline for one request. Responses are
// all-or-nothing: an assembler failure returns an error, never a partial
// report.
func (s *Service) Generate(ctx context.Context, req models.ReportRequest) (resp models.ReportResponse, err error) {
	assemble, ok := assemblers[req.ReportType]
	if !ok {
		return resp, models.Invalid("reportType: unknown %q", req.ReportType)
	}
	f, ferr := engine.NewFilter(req.Filters)
	if ferr != nil {
		return resp, &models.ValidationError{Msg: ferr.Error()}
	}
	if err := s.st.ResolveFilterRefs(ctx, req.Filters); err != nil {
		return resp, err
	}

	// One read per stream per request, shared by whichever assembler runs.
	// The platform filter applies to the spend side only: outcomes carry no
	// platform and must not be dropped by it.
	spendEvents, err := s.st.SpendEvents(ctx, store.EventQuery{
		From: f.From, To: f.To,
		Branches:        req.Filters.Branches,
		Agents:          req.Filters.SalesAgents,
		TargetCountries: req.Filters.TargetCountries,
		Platforms:       req.Filters.Platforms,
	})
	if err != nil {
		return resp, fmt.Errorf("read spend events: %w", err)
	}
	outcomeEvents, err := s.st.OutcomeEvents(ctx, store.EventQuery{
		From: f.From, To: f.To,
		Branches:        req.Filters.Branches,
		Agents:          req.Filters.SalesAgents,
		TargetCountries: req.Filters.TargetCountries,
	})
	if err != nil {
		return resp, fmt.Errorf("read outcome events: %w", err)
	}

	spend := engine.NormalizeSpend(spendEvents, f)
	outcomes := engine.NormalizeOutcomes(outcomeEvents, f)
	in := Input{
		Groups:            engine.Join(spend, outcomes),
		Spend:             spend,
		Outcomes:          outcomes,
		AverageDealValue:  s.averageDealValue,
		MinROI:            req.Filters.MinROI,
		MinConversionRate: req.Filters.MinConversionRate,
		MatrixRowCap:      s.matrixRowCap,
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("report assembler failed",
				slog.String("report_type", string(req.ReportType)),
				slog.Any("panic", r))
			resp = models.ReportResponse{}
			err = fmt.Errorf("assemble %s: internal error", req.ReportType)
		}
	}()
	resp = assemble(in)
	utils.ReportsGenerated.WithLabelValues(string(req.ReportType)).Inc()
	return resp, nil
}

// passMin applies the post-computation row filters.
func passMin(in Input, m models.PerformanceMetrics) bool {
	if in.MinROI != nil && m.ROI < *in.MinROI {
		return false
	}
	if in.MinConversionRate != nil && m.ConversionRate < *in.MinConversionRate {
		return false
	}
	return true
}

// roiOrder implements ROI-descending ordering with undefined ROI sorting
// last. A row's ROI is undefined when it has no spend; it is reported as 0 and
// must not interleave with genuinely zero ROI. ok is false when the caller's
// tie-break must decide.
func roiOrder(roiI, roiJ float64, definedI, definedJ bool) (less, ok bool) {
	if definedI != definedJ {
		return definedI, true
	}
	if definedI && roiI != roiJ {
		return roiI > roiJ, true
	}
	return false, false
}
