package sqlbuilder

import (
	"strings"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

type aggregate struct {
	expr  string
	alias string
}

func (a aggregate) String() string {
	return a.expr + " AS " + a.alias
}

// defaultAggregate is projected when no requested metric maps to a column.
var defaultAggregate = aggregate{expr: "SUM(TOTAL_PAX)", alias: "total_pax"}

var fixedAggregates = map[model.Metric][]aggregate{
	model.MetricFlightCount: {
		{expr: "COUNT(DISTINCT FLIGHT_NO)", alias: "flight_count"},
	},
	model.MetricTotalPax: {
		{expr: "SUM(TOTAL_PAX)", alias: "total_pax"},
	},
	model.MetricPaxByGender: {
		{expr: "SUM(MALE)", alias: "male_pax"},
		{expr: "SUM(FEMALE)", alias: "female_pax"},
		{expr: "SUM(UNKNOW)", alias: "unknown_gender_pax"},
	},
	model.MetricPaxByAgeGroup: {
		{expr: "SUM(UNDER16)", alias: "pax_under16"},
		{expr: "SUM(UNDER26)", alias: "pax_under26"},
		{expr: "SUM(UNDER46)", alias: "pax_under46"},
		{expr: "SUM(UNDER66)", alias: "pax_under66"},
		{expr: "SUM(OVER66)", alias: "pax_over66"},
	},
}

// aggregatesFor maps metrics to aggregate columns in request order. Unknown
// metric names contribute nothing. The result is never empty.
func aggregatesFor(metrics []model.Metric, nationalities []string) []aggregate {
	var out []aggregate
	for _, m := range metrics {
		if m == model.MetricPaxByNationality {
			for _, nat := range nationalities {
				out = append(out, aggregate{
					expr:  "SUM(" + nat + ")",
					alias: "pax_" + strings.ToLower(nat),
				})
			}
			continue
		}
		out = append(out, fixedAggregates[m]...)
	}
	if len(out) == 0 {
		return []aggregate{defaultAggregate}
	}
	return out
}
