// Package ingest accepts the nested payloads produced by the media and sales
// data-entry wizards, validates every referenced master-data code, and
// flattens them into the immutable event streams the attribution engine reads.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/tripops/attribution/internal/models"
	"github.com/tripops/attribution/internal/store"
	"github.com/tripops/attribution/internal/utils"
)

// MediaEntry is one media data-entry submission: campaign -> agent/country
// lines, all sharing a date and branch.
type MediaEntry struct {
	Date      string          `json:"date"`
	BranchID  string          `json:"branchId"`
	Campaigns []MediaCampaign `json:"campaigns"`
}

type MediaCampaign struct {
	PlatformID           string      `json:"platformId"`
	DestinationCountryID string      `json:"destinationCountryId"`
	Lines                []MediaLine `json:"lines"`
}

type MediaLine struct {
	AgentID         string  `json:"agentId"`
	TargetCountryID string  `json:"targetCountryId"`
	Amount          float64 `json:"amount"`
}

// SalesEntry is one sales data-entry submission: target-country rows for one
// agent/date/branch, each with its destination allocations.
type SalesEntry struct {
	Date      string         `json:"date"`
	BranchID  string         `json:"branchId"`
	AgentID   string         `json:"agentId"`
	Countries []SalesCountry `json:"countries"`
}

type SalesCountry struct {
	TargetCountryID  string                         `json:"targetCountryId"`
	DealsClosed      int                            `json:"dealsClosed"`
	WhatsappMessages int                            `json:"whatsappMessages"`
	QualityRating    models.QualityRating           `json:"qualityRating"`
	Destinations     []models.DestinationAllocation `json:"destinations"`
}

type Service struct {
	st  *store.Store
	log *slog.Logger
}

func NewService(st *store.Store, log *slog.Logger) *Service {
	return &Service{st: st, log: log}
}

const dateLayout = "2006-01-02"

// RecordMedia flattens and persists one media entry. Returns the number of
// spend events written. Unknown codes are rejected before anything is stored.
func (s *Service) RecordMedia(ctx context.Context, entry MediaEntry) (int, error) {
	d, err := time.Parse(dateLayout, entry.Date)
	if err != nil {
		return 0, models.Invalid("date: want YYYY-MM-DD, got %q", entry.Date)
	}
	if len(entry.Campaigns) == 0 {
		return 0, models.Invalid("campaigns: at least one campaign is required")
	}

	refs := store.Refs{Branches: []string{entry.BranchID}}
	var events []models.SpendEvent
	for i, c := range entry.Campaigns {
		if len(c.Lines) == 0 {
			return 0, models.Invalid("campaigns[%d].lines: at least one line is required", i)
		}
		refs.Platforms = append(refs.Platforms, c.PlatformID)
		refs.Countries = append(refs.Countries, c.DestinationCountryID)
		for j, l := range c.Lines {
			if l.Amount < 0 {
				return 0, models.Invalid("campaigns[%d].lines[%d].amount: must be >= 0", i, j)
			}
			refs.Agents = append(refs.Agents, l.AgentID)
			refs.Countries = append(refs.Countries, l.TargetCountryID)
			events = append(events, models.SpendEvent{
				Date:                 models.Day(d),
				BranchID:             entry.BranchID,
				AgentID:              l.AgentID,
				TargetCountryID:      l.TargetCountryID,
				DestinationCountryID: c.DestinationCountryID,
				PlatformID:           c.PlatformID,
				Amount:               l.Amount,
			})
		}
	}
	if err := s.st.CheckRefs(ctx, refs); err != nil {
		return 0, err
	}
	if err := s.st.InsertSpendEvents(ctx, events); err != nil {
		return 0, err
	}
	utils.IngestEvents.WithLabelValues("media").Add(float64(len(events)))
	s.log.Info("media entry recorded",
		slog.String("branch", entry.BranchID),
		slog.String("date", entry.Date),
		slog.Int("events", len(events)))
	return len(events), nil
}

// RecordSales flattens and persists one sales entry. Returns the number of
// outcome events written.
func (s *Service) RecordSales(ctx context.Context, entry SalesEntry) (int, error) {
	d, err := time.Parse(dateLayout, entry.Date)
	if err != nil {
		return 0, models.Invalid("date: want YYYY-MM-DD, got %q", entry.Date)
	}
	if len(entry.Countries) == 0 {
		return 0, models.Invalid("countries: at least one country row is required")
	}

	refs := store.Refs{Branches: []string{entry.BranchID}, Agents: []string{entry.AgentID}}
	events := make([]models.OutcomeEvent, 0, len(entry.Countries))
	for i, c := range entry.Countries {
		if c.DealsClosed < 0 {
			return 0, models.Invalid("countries[%d].dealsClosed: must be >= 0", i)
		}
		if c.WhatsappMessages < 0 {
			return 0, models.Invalid("countries[%d].whatsappMessages: must be >= 0", i)
		}
		if !c.QualityRating.Valid() {
			return 0, models.Invalid("countries[%d].qualityRating: unknown rating %q", i, c.QualityRating)
		}
		refs.Countries = append(refs.Countries, c.TargetCountryID)
		for j, a := range c.Destinations {
			if a.DealSequenceNumber < 1 || a.DealSequenceNumber > c.DealsClosed {
				return 0, models.Invalid("countries[%d].destinations[%d].dealSequenceNumber: out of range 1..%d",
					i, j, c.DealsClosed)
			}
			refs.Countries = append(refs.Countries, a.DestinationCountryID)
		}
		events = append(events, models.OutcomeEvent{
			Date:                   models.Day(d),
			BranchID:               entry.BranchID,
			AgentID:                entry.AgentID,
			TargetCountryID:        c.TargetCountryID,
			DealsClosed:            c.DealsClosed,
			WhatsappMessages:       c.WhatsappMessages,
			QualityRating:          c.QualityRating,
			DestinationAllocations: c.Destinations,
		})
	}
	if err := s.st.CheckRefs(ctx, refs); err != nil {
		return 0, err
	}
	if err := s.st.InsertOutcomeEvents(ctx, events); err != nil {
		return 0, err
	}
	utils.IngestEvents.WithLabelValues("sales").Add(float64(len(entry.Countries)))
	s.log.Info("sales entry recorded",
		slog.String("agent", entry.AgentID),
		slog.String("date", entry.Date),
		slog.Int("events", len(entry.Countries)))
	return len(entry.Countries), nil
}
