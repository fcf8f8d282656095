package engine

import (
	"sort"

	"github.com/tripops/attribution/internal/models"
)

type spendAgg struct {
	amount    float64
	campaigns int
}

type outcomeAgg struct {
	deals    int
	messages int
	scoreSum int
	rated    int
}

// indexSpend aggregates spend tuples per composite key in one pass.
func indexSpend(tuples []models.SpendTuple) map[models.CompositeKey]spendAgg {
	idx := make(map[models.CompositeKey]spendAgg, len(tuples))
	for _, t := range tuples {
		a := idx[t.Key]
		a.amount += t.Amount
		a.campaigns++
		idx[t.Key] = a
	}
	return idx
}

// indexOutcomes aggregates outcome tuples per composite key in one pass.
func indexOutcomes(tuples []models.OutcomeTuple) map[models.CompositeKey]outcomeAgg {
	idx := make(map[models.CompositeKey]outcomeAgg, len(tuples))
	for _, t := range tuples {
		a := idx[t.Key]
		a.deals += t.DealsClosed
		a.messages += t.WhatsappMessages
		if s := t.QualityRating.Score(); s > 0 {
			a.scoreSum += s
			a.rated++
		}
		idx[t.Key] = a
	}
	return idx
}

// Join performs a full outer join of the two tuple streams on the composite
// key. Both indices are built first, then the key union is merged; a key
// present on only one side surfaces with the other side zero-filled. A missing
// side is valid domain state, not an error. Output order is deterministic
// (date, agent, country) so identical inputs yield identical reports.
func Join(spend []models.SpendTuple, outcomes []models.OutcomeTuple) []models.MatchedGroup {
	sIdx := indexSpend(spend)
	oIdx := indexOutcomes(outcomes)

	keys := make([]models.CompositeKey, 0, len(sIdx)+len(oIdx))
	for k := range sIdx {
		keys = append(keys, k)
	}
	for k := range oIdx {
		if _, ok := sIdx[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].Date.Equal(keys[j].Date) {
			return keys[i].Date.Before(keys[j].Date)
		}
		if keys[i].AgentID != keys[j].AgentID {
			return keys[i].AgentID < keys[j].AgentID
		}
		return keys[i].TargetCountryID < keys[j].TargetCountryID
	})

	groups := make([]models.MatchedGroup, 0, len(keys))
	for _, k := range keys {
		g := models.MatchedGroup{Key: k}
		if s, ok := sIdx[k]; ok {
			g.HasSpendSide = true
			g.TotalSpend = s.amount
			g.CampaignCount = s.campaigns
		}
		if o, ok := oIdx[k]; ok {
			g.HasOutcomeSide = true
			g.TotalDeals = o.deals
			g.TotalMessages = o.messages
			if o.rated > 0 {
				g.AverageQualityScore = float64(o.scoreSum) / float64(o.rated)
			}
		}
		groups = append(groups, g)
	}
	return groups
}
