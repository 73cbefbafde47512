package model

// Metric names a closed set of aggregates the query builder knows how to project.
type Metric string

const (
	MetricFlightCount      Metric = "flight_count"
	MetricTotalPax         Metric = "total_pax"
	MetricPaxByGender      Metric = "pax_by_gender"
	MetricPaxByAgeGroup    Metric = "pax_by_age_group"
	MetricPaxByNationality Metric = "pax_by_nationality"
)

// DefaultQueryLimit caps result rows when the request does not set Limit.
const DefaultQueryLimit = 1000

// QueryRequest is the argument payload of the flight statistics tool.
// Empty filter slices impose no predicate.
type QueryRequest struct {
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	Airports           []string `json:"airports,omitempty"`
	FlightDirections   []string `json:"flight_directions,omitempty"`
	AirlineCodes       []string `json:"airline_codes,omitempty"`
	OriginDestinations []string `json:"origin_destinations,omitempty"`
	Metrics            []Metric `json:"metrics"`
	Nationalities      []string `json:"nationalities,omitempty"`
	GroupBy            []string `json:"group_by,omitempty"`
	Limit              int      `json:"limit,omitempty"`
}

// EffectiveLimit returns Limit, or DefaultQueryLimit when unset.
func (r QueryRequest) EffectiveLimit() int {
	if r.Limit <= 0 {
		return DefaultQueryLimit
	}
	return r.Limit
}
