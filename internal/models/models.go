package models

import "time"

// QualityRating is the categorical deal-quality label recorded by sales entry.
type QualityRating string

const (
	QualityBelowStandard QualityRating = "below_standard"
	QualityStandard      QualityRating = "standard"
	QualityGood          QualityRating = "good"
	QualityExcellent     QualityRating = "excellent"
	QualityBestQuality   QualityRating = "best_quality"
)

var qualityScores = map[QualityRating]int{
	QualityBelowStandard: 1,
	QualityStandard:      2,
	QualityGood:          3,
	QualityExcellent:     4,
	QualityBestQuality:   5,
}

// Score maps a rating onto the 1-5 scale; unknown ratings score 0.
func (q QualityRating) Score() int { return qualityScores[q] }

func (q QualityRating) Valid() bool { _, ok := qualityScores[q]; return ok }

// SpendEvent is one campaign line from media data entry. Immutable once persisted.
type SpendEvent struct {
	ID                   int64
	Date                 time.Time
	BranchID             string
	AgentID              string
	TargetCountryID      string
	DestinationCountryID string
	PlatformID           string
	Amount               float64
}

// DestinationAllocation assigns one closed deal to a destination country.
type DestinationAllocation struct {
	DestinationCountryID string `json:"destinationCountryId"`
	DealSequenceNumber   int    `json:"dealSequenceNumber"`
}

// OutcomeEvent is one sales-entry row for an agent/country/day. Immutable once persisted.
type OutcomeEvent struct {
	ID                     int64
	Date                   time.Time
	BranchID               string
	AgentID                string
	TargetCountryID        string
	DealsClosed            int
	WhatsappMessages       int
	QualityRating          QualityRating
	DestinationAllocations []DestinationAllocation
}

// CompositeKey aligns the two event streams: (calendar date, sales agent,
// target country). Date is normalized to midnight UTC so map lookups work.
type CompositeKey struct {
	Date            time.Time
	AgentID         string
	TargetCountryID string
}

// Day truncates t to midnight UTC, the resolution of the composite key.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SpendTuple is one normalized campaign leaf, ready for joining.
type SpendTuple struct {
	Key                  CompositeKey
	BranchID             string
	PlatformID           string
	DestinationCountryID string
	Amount               float64
}

// OutcomeTuple is one normalized outcome leaf, ready for joining.
type OutcomeTuple struct {
	Key              CompositeKey
	BranchID         string
	DealsClosed      int
	WhatsappMessages int
	QualityRating    QualityRating
	Destinations     []DestinationAllocation
}

// MatchedGroup is the joined aggregate for one composite key. Derived on every
// query, never persisted. HasSpendSide=false implies TotalSpend=0 and
// CampaignCount=0; symmetric for the outcome side.
type MatchedGroup struct {
	Key                 CompositeKey
	TotalSpend          float64
	CampaignCount       int
	TotalDeals          int
	TotalMessages       int
	AverageQualityScore float64
	HasSpendSide        bool
	HasOutcomeSide      bool
}

// PerformanceMetrics is the derived ratio set for a group or an aggregate.
// Deals and messages are float64 because platform attribution splits them
// proportionally by spend share.
type PerformanceMetrics struct {
	TotalSpend     float64 `json:"totalSpend"`
	TotalDeals     float64 `json:"totalDeals"`
	CostPerDeal    float64 `json:"costPerDeal"`
	ROI            float64 `json:"roi"`
	ConversionRate float64 `json:"conversionRate"`
	QualityScore   float64 `json:"qualityScore"`
}

type WarningCode string

const (
	WarnNoConversions         WarningCode = "NO_CONVERSIONS"
	WarnMissingMediaData      WarningCode = "MISSING_MEDIA_DATA"
	WarnLowEfficiency         WarningCode = "LOW_EFFICIENCY"
	WarnHighCPC               WarningCode = "HIGH_CPC"
	WarnVerificationNeeded    WarningCode = "VERIFICATION_NEEDED"
	WarnMissingEngagementData WarningCode = "MISSING_ENGAGEMENT_DATA"
)

// ConsistencyWarning is produced transiently per consistency check; it is
// returned as data, never raised as an error.
type ConsistencyWarning struct {
	ScopeKey       string      `json:"scopeKey"`
	Code           WarningCode `json:"code"`
	Message        string      `json:"message"`
	Recommendation string      `json:"recommendation"`
}
