// Package consistency flags statistically or logically suspicious
// combinations of spend and outcomes for one agent/date/branch: spend with no
// resulting deals, deals with no recorded spend, abnormal cost per conversion.
// Warnings are returned as data with machine-readable codes and human
// recommendations; they are never raised as errors, because a missing side is
// the normal output of an outer join.
package consistency

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tripops/attribution/internal/engine"
	"github.com/tripops/attribution/internal/models"
	"github.com/tripops/attribution/internal/store"
	"github.com/tripops/attribution/internal/utils"
)

// Rule thresholds, in account currency (USD).
const (
	lowEfficiencySpend    = 1000.0
	lowEfficiencyMessages = 50
	lowEfficiencyConvRate = 5.0
	highCostPerDeal       = 500.0
	cheapCostPerDeal      = 50.0
	cheapDealFloor        = 5
)

type Checker struct {
	st               *store.Store
	log              *slog.Logger
	averageDealValue float64
}

func NewChecker(st *store.Store, log *slog.Logger, averageDealValue float64) *Checker {
	return &Checker{st: st, log: log, averageDealValue: averageDealValue}
}

// Result is the outcome of one alignment check for one agent/date/branch.
type Result struct {
	AgentID         string                      `json:"agentId"`
	BranchID        string                      `json:"branchId"`
	Date            string                      `json:"date"`
	IsConsistent    bool                        `json:"isConsistent"`
	Warnings        []models.ConsistencyWarning `json:"warnings"`
	Recommendations []string                    `json:"recommendations"`
	Metrics         models.PerformanceMetrics   `json:"metrics"`
}

// BatchSummary aggregates a multi-date run.
type BatchSummary struct {
	TotalDates         int     `json:"totalDates"`
	ConsistentDays     int     `json:"consistentDays"`
	TotalWarnings      int     `json:"totalWarnings"`
	MeanConversionRate float64 `json:"meanConversionRate"`
}

type BatchResult struct {
	Results []Result     `json:"results"`
	Summary BatchSummary `json:"summary"`
}

const dateLayout = "2006-01-02"

// CheckAlignment reads both event streams for one agent/date/branch, joins
// them, and evaluates the rule set per target country and in aggregate.
func (c *Checker) CheckAlignment(ctx context.Context, agentID, date, branchID string) (Result, error) {
	if agentID == "" {
		return Result{}, models.Invalid("agentId is required")
	}
	if branchID == "" {
		return Result{}, models.Invalid("branchId is required")
	}
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return Result{}, models.Invalid("date: want YYYY-MM-DD, got %q", date)
	}
	if err := c.st.CheckRefs(ctx, store.Refs{Agents: []string{agentID}, Branches: []string{branchID}}); err != nil {
		return Result{}, err
	}

	day := models.Day(d)
	q := store.EventQuery{From: day, To: day, Agents: []string{agentID}, Branches: []string{branchID}}
	spendEvents, err := c.st.SpendEvents(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("read spend events: %w", err)
	}
	outcomeEvents, err := c.st.OutcomeEvents(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("read outcome events: %w", err)
	}

	f := engine.Filter{From: day, To: day}
	groups := engine.Join(engine.NormalizeSpend(spendEvents, f), engine.NormalizeOutcomes(outcomeEvents, f))

	res := Evaluate(groups, c.averageDealValue)
	res.AgentID, res.BranchID, res.Date = agentID, branchID, date

	outcome := "consistent"
	if !res.IsConsistent {
		outcome = "inconsistent"
	}
	utils.ConsistencyChecks.WithLabelValues(outcome).Inc()
	c.log.Debug("alignment checked",
		slog.String("agent", agentID),
		slog.String("date", date),
		slog.Bool("consistent", res.IsConsistent),
		slog.Int("warnings", len(res.Warnings)))
	return res, nil
}

// batchWorkers bounds the per-date fan-out of CheckBatch.
const batchWorkers = 4

// CheckBatch runs CheckAlignment for every date concurrently and summarizes.
// Results come back in input order regardless of completion order.
func (c *Checker) CheckBatch(ctx context.Context, agentID string, dates []string, branchID string) (BatchResult, error) {
	if len(dates) == 0 {
		return BatchResult{}, models.Invalid("dates: at least one date is required")
	}

	results := make([]Result, len(dates))
	errs := make([]error, len(dates))
	sem := make(chan struct{}, batchWorkers)
	var wg sync.WaitGroup
	for i, date := range dates {
		// Acquire before spawning so at most batchWorkers goroutines exist.
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, date string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = c.CheckAlignment(ctx, agentID, date, branchID)
		}(i, date)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return BatchResult{}, err
		}
	}

	out := BatchResult{Results: results, Summary: BatchSummary{TotalDates: len(results)}}
	var convSum float64
	for _, r := range results {
		if r.IsConsistent {
			out.Summary.ConsistentDays++
		}
		out.Summary.TotalWarnings += len(r.Warnings)
		convSum += r.Metrics.ConversionRate
	}
	out.Summary.MeanConversionRate = convSum / float64(len(results))
	return out, nil
}

// Evaluate is the pure rule core: given the joined groups for one
// agent/date/branch scope it fires the per-country rules, then the aggregate
// rules. isConsistent flips only on NO_CONVERSIONS and
// MISSING_ENGAGEMENT_DATA; everything else is a warning that may have an
// organic explanation.
func Evaluate(groups []models.MatchedGroup, averageDealValue float64) Result {
	res := Result{
		IsConsistent:    true,
		Warnings:        []models.ConsistencyWarning{},
		Recommendations: []string{},
	}

	for _, g := range groups {
		scope := g.Key.TargetCountryID
		spend := g.TotalSpend
		deals := g.TotalDeals
		messages := g.TotalMessages

		if spend > 0 && deals == 0 {
			res.IsConsistent = false
			res.add(scope, models.WarnNoConversions,
				fmt.Sprintf("%.2f spent on %s with no deals closed", spend, scope),
				"Review campaign targeting for this country or verify that sales entry is complete for the day.")
		}
		if deals > 0 && spend == 0 {
			res.add(scope, models.WarnMissingMediaData,
				fmt.Sprintf("%d deal(s) closed for %s with no recorded spend", deals, scope),
				"Confirm whether these deals were organic or media entry was missed for this country.")
		}
		if spend > lowEfficiencySpend && messages > lowEfficiencyMessages {
			conv := float64(deals) / float64(messages) * 100
			if conv < lowEfficiencyConvRate {
				res.add(scope, models.WarnLowEfficiency,
					fmt.Sprintf("conversion rate %.1f%% on %s despite %.2f spend and %d messages", conv, scope, spend, messages),
					"Audit message quality and lead handling for this country; the funnel is leaking after first contact.")
			}
		}
	}

	agg := engine.ComputeAggregate(groups, averageDealValue)
	res.Metrics = agg
	if agg.TotalDeals > 0 {
		if agg.CostPerDeal > highCostPerDeal {
			res.add("aggregate", models.WarnHighCPC,
				fmt.Sprintf("cost per deal %.2f exceeds %.0f", agg.CostPerDeal, highCostPerDeal),
				"Compare against the agent's historical cost per deal and rebalance spend across countries.")
		}
		if agg.CostPerDeal < cheapCostPerDeal && agg.TotalDeals > cheapDealFloor {
			res.add("aggregate", models.WarnVerificationNeeded,
				fmt.Sprintf("cost per deal %.2f with %.0f deals is suspiciously cheap", agg.CostPerDeal, agg.TotalDeals),
				"Verify the day's deal count with the agent; this pattern usually indicates a data-entry error.")
		}
	}
	var spendSum float64
	var msgSum int
	for _, g := range groups {
		spendSum += g.TotalSpend
		msgSum += g.TotalMessages
	}
	if spendSum > 0 && msgSum == 0 {
		res.IsConsistent = false
		res.add("aggregate", models.WarnMissingEngagementData,
			fmt.Sprintf("%.2f spent with no messages recorded", spendSum),
			"Check that WhatsApp engagement was logged; spend without any engagement data cannot be attributed.")
	}
	return res
}

func (r *Result) add(scope string, code models.WarningCode, message, recommendation string) {
	r.Warnings = append(r.Warnings, models.ConsistencyWarning{
		ScopeKey:       scope,
		Code:           code,
		Message:        message,
		Recommendation: recommendation,
	})
	r.Recommendations = append(r.Recommendations, recommendation)
}
