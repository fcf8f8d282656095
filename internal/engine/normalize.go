package engine

import (
	"fmt"
	"time"

	"github.com/tripops/attribution/internal/models"
)

// Filter is the resolved, typed form of a report's filter block. Nil sets and
// nil range bounds mean "no restriction". The store pushes the date range and
// the equality sets into SQL; the normalizer re-applies them cheaply and owns
// the numeric-range and quality filters.
type Filter struct {
	From time.Time
	To   time.Time

	Branches             map[string]struct{}
	SalesAgents          map[string]struct{}
	TargetCountries      map[string]struct{}
	DestinationCountries map[string]struct{}
	Platforms            map[string]struct{}
	Qualities            map[models.QualityRating]struct{}

	SpendMin, SpendMax *float64
	DealMin, DealMax   *float64
}

// NewFilter parses and validates the wire-level filter block. A missing or
// malformed date range is an input-validation error; everything else defaults
// to unrestricted.
func NewFilter(f models.ReportFilters) (Filter, error) {
	if f.DateRange == nil || f.DateRange.Start == "" || f.DateRange.End == "" {
		return Filter{}, fmt.Errorf("filters.dateRange is required")
	}
	from, err := time.Parse("2006-01-02", f.DateRange.Start)
	if err != nil {
		return Filter{}, fmt.Errorf("filters.dateRange.start: want YYYY-MM-DD, got %q", f.DateRange.Start)
	}
	to, err := time.Parse("2006-01-02", f.DateRange.End)
	if err != nil {
		return Filter{}, fmt.Errorf("filters.dateRange.end: want YYYY-MM-DD, got %q", f.DateRange.End)
	}
	if to.Before(from) {
		return Filter{}, fmt.Errorf("filters.dateRange: end %s is before start %s", f.DateRange.End, f.DateRange.Start)
	}
	for _, q := range f.QualityRatings {
		if !q.Valid() {
			return Filter{}, fmt.Errorf("filters.qualityRatings: unknown rating %q", q)
		}
	}

	out := Filter{
		From:                 models.Day(from),
		To:                   models.Day(to),
		Branches:             toSet(f.Branches),
		SalesAgents:          toSet(f.SalesAgents),
		TargetCountries:      toSet(f.TargetCountries),
		DestinationCountries: toSet(f.DestinationCountries),
		Platforms:            toSet(f.Platforms),
	}
	if len(f.QualityRatings) > 0 {
		out.Qualities = make(map[models.QualityRating]struct{}, len(f.QualityRatings))
		for _, q := range f.QualityRatings {
			out.Qualities[q] = struct{}{}
		}
	}
	if f.SpendRange != nil {
		out.SpendMin, out.SpendMax = f.SpendRange.Min, f.SpendRange.Max
	}
	if f.DealRange != nil {
		out.DealMin, out.DealMax = f.DealRange.Min, f.DealRange.Max
	}
	return out, nil
}

func toSet(vals []string) map[string]struct{} {
	if len(vals) == 0 {
		return nil
	}
	s := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

func inSet(set map[string]struct{}, v string) bool {
	if set == nil {
		return true
	}
	_, ok := set[v]
	return ok
}

func inRange(min, max *float64, v float64) bool {
	if min != nil && v < *min {
		return false
	}
	if max != nil && v > *max {
		return false
	}
	return true
}

// NormalizeSpend flattens filtered spend events into join-ready tuples, one
// per campaign line. A filter that leaves nothing is an empty report, never an
// error.
func NormalizeSpend(events []models.SpendEvent, f Filter) []models.SpendTuple {
	tuples := make([]models.SpendTuple, 0, len(events))
	for _, e := range events {
		d := models.Day(e.Date)
		if d.Before(f.From) || d.After(f.To) {
			continue
		}
		if !inSet(f.Branches, e.BranchID) || !inSet(f.SalesAgents, e.AgentID) ||
			!inSet(f.TargetCountries, e.TargetCountryID) || !inSet(f.Platforms, e.PlatformID) ||
			!inSet(f.DestinationCountries, e.DestinationCountryID) {
			continue
		}
		if !inRange(f.SpendMin, f.SpendMax, e.Amount) {
			continue
		}
		tuples = append(tuples, models.SpendTuple{
			Key:                  models.CompositeKey{Date: d, AgentID: e.AgentID, TargetCountryID: e.TargetCountryID},
			BranchID:             e.BranchID,
			PlatformID:           e.PlatformID,
			DestinationCountryID: e.DestinationCountryID,
			Amount:               e.Amount,
		})
	}
	return tuples
}

// NormalizeOutcomes flattens filtered outcome events into join-ready tuples.
// A destination-country filter trims the allocation list but keeps the tuple's
// deal and message totals intact; those belong to the composite key, not to a
// destination.
func NormalizeOutcomes(events []models.OutcomeEvent, f Filter) []models.OutcomeTuple {
	tuples := make([]models.OutcomeTuple, 0, len(events))
	for _, e := range events {
		d := models.Day(e.Date)
		if d.Before(f.From) || d.After(f.To) {
			continue
		}
		if !inSet(f.Branches, e.BranchID) || !inSet(f.SalesAgents, e.AgentID) ||
			!inSet(f.TargetCountries, e.TargetCountryID) {
			continue
		}
		if f.Qualities != nil {
			if _, ok := f.Qualities[e.QualityRating]; !ok {
				continue
			}
		}
		if !inRange(f.DealMin, f.DealMax, float64(e.DealsClosed)) {
			continue
		}
		dests := e.DestinationAllocations
		if f.DestinationCountries != nil {
			dests = make([]models.DestinationAllocation, 0, len(e.DestinationAllocations))
			for _, a := range e.DestinationAllocations {
				if inSet(f.DestinationCountries, a.DestinationCountryID) {
					dests = append(dests, a)
				}
			}
		}
		tuples = append(tuples, models.OutcomeTuple{
			Key:              models.CompositeKey{Date: d, AgentID: e.AgentID, TargetCountryID: e.TargetCountryID},
			BranchID:         e.BranchID,
			DealsClosed:      e.DealsClosed,
			WhatsappMessages: e.WhatsappMessages,
			QualityRating:    e.QualityRating,
			Destinations:     dests,
		})
	}
	return tuples
}
