package models

type ReportType string

const (
	ReportAgentROI              ReportType = "agent_roi"
	ReportPlatformEffectiveness ReportType = "platform_effectiveness"
	ReportDestinationAnalysis   ReportType = "destination_analysis"
	ReportBranchComparison      ReportType = "branch_comparison"
	ReportROIMatrix             ReportType = "roi_matrix"
)

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type NumericRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// ReportFilters is the filter block of a report request. DateRange is the only
// required field; every other filter narrows the event set before joining.
type ReportFilters struct {
	DateRange            *DateRange      `json:"dateRange"`
	Branches             []string        `json:"branches,omitempty"`
	DestinationCountries []string        `json:"destinationCountries,omitempty"`
	TargetCountries      []string        `json:"targetCountries,omitempty"`
	SalesAgents          []string        `json:"salesAgents,omitempty"`
	Platforms            []string        `json:"platforms,omitempty"`
	QualityRatings       []QualityRating `json:"qualityRatings,omitempty"`
	SpendRange           *NumericRange   `json:"spendRange,omitempty"`
	DealRange            *NumericRange   `json:"dealRange,omitempty"`
	MinROI               *float64        `json:"minROI,omitempty"`
	MinConversionRate    *float64        `json:"minConversionRate,omitempty"`
}

type ReportRequest struct {
	ReportType    ReportType    `json:"reportType"`
	Filters       ReportFilters `json:"filters"`
	Aggregation   string        `json:"aggregation,omitempty"`
	Visualization string        `json:"visualization,omitempty"`
}

// CountryBreakdown is the per-target-country slice of an agent's results.
type CountryBreakdown struct {
	TargetCountryID string             `json:"targetCountryId"`
	TotalMessages   int                `json:"totalMessages"`
	Metrics         PerformanceMetrics `json:"metrics"`
}

type AgentReportRow struct {
	AgentID       string             `json:"agentId"`
	CampaignCount int                `json:"campaignCount"`
	TotalMessages int                `json:"totalMessages"`
	Metrics       PerformanceMetrics `json:"metrics"`
	Countries     []CountryBreakdown `json:"countries"`
}

// PlatformReportRow carries proportionally attributed outcomes: deals are not
// recorded per platform, so each platform receives the key's deals in
// proportion to its share of that key's spend. Attribution names the method so
// downstream renderers can label the numbers as estimates.
type PlatformReportRow struct {
	PlatformID  string             `json:"platformId"`
	SpendShare  float64            `json:"spendShare"`
	Attribution string             `json:"attribution"`
	Metrics     PerformanceMetrics `json:"metrics"`
}

// DestinationReportRow comes from the second, narrower join keyed by
// destination country. Outcome allocations carry no message counts, so
// ConversionRate is always 0 here.
type DestinationReportRow struct {
	DestinationCountryID string             `json:"destinationCountryId"`
	AllocatedDeals       int                `json:"allocatedDeals"`
	Metrics              PerformanceMetrics `json:"metrics"`
}

type BranchReportRow struct {
	BranchID   string             `json:"branchId"`
	AgentCount int                `json:"agentCount"`
	Metrics    PerformanceMetrics `json:"metrics"`
}

// MatrixRow is one row of the ungrouped ROI matrix at date/agent/country/
// platform grain. Outcome-only keys surface with an empty platform.
type MatrixRow struct {
	Date            string             `json:"date"`
	AgentID         string             `json:"agentId"`
	TargetCountryID string             `json:"targetCountryId"`
	PlatformID      string             `json:"platformId"`
	Metrics         PerformanceMetrics `json:"metrics"`
}

// ReportResponse has a stable shape: every section is always present and
// unused sections are empty arrays, never null, so export renderers can rely
// on the structure regardless of reportType.
type ReportResponse struct {
	Overview         PerformanceMetrics     `json:"overview"`
	AgentPerformance []AgentReportRow       `json:"agentPerformance"`
	PlatformAnalysis []PlatformReportRow    `json:"platformAnalysis"`
	CountryInsights  []DestinationReportRow `json:"countryInsights"`
	BranchComparison []BranchReportRow      `json:"branchComparison"`
	ROIMatrix        []MatrixRow            `json:"roiMatrix"`
}

// EmptyReportResponse returns a response with all sections initialized to
// empty slices so JSON encodes them as [] rather than null.
func EmptyReportResponse() ReportResponse {
	return ReportResponse{
		AgentPerformance: []AgentReportRow{},
		PlatformAnalysis: []PlatformReportRow{},
		CountryInsights:  []DestinationReportRow{},
		BranchComparison: []BranchReportRow{},
		ROIMatrix:        []MatrixRow{},
	}
}
