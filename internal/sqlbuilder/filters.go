package sqlbuilder

import (
	"strings"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

const dateColumn = "FLIGHT_DATE"

var filterColumns = []struct {
	column string
	values func(model.QueryRequest) []string
}{
	{column: "AOT_AIRPORT", values: func(r model.QueryRequest) []string { return r.Airports }},
	{column: "FLIGHT_DIRECTION", values: func(r model.QueryRequest) []string { return r.FlightDirections }},
	{column: "AIRLINE_CODE", values: func(r model.QueryRequest) []string { return r.AirlineCodes }},
	{column: "ORIGIN_DESTINATION", values: func(r model.QueryRequest) []string { return r.OriginDestinations }},
}

// predicates always bounds the date range and adds one IN predicate per non-empty filter set.
func predicates(req model.QueryRequest) []string {
	out := []string{
		dateColumn + " BETWEEN DATE(" + quote(req.StartDate) + ") AND DATE(" + quote(req.EndDate) + ")",
	}
	for _, f := range filterColumns {
		vals := f.values(req)
		if len(vals) == 0 {
			continue
		}
		quoted := make([]string, len(vals))
		for i, v := range vals {
			quoted[i] = quote(v)
		}
		out = append(out, f.column+" IN ("+strings.Join(quoted, ",")+")")
	}
	return out
}

// quote wraps v in single quotes verbatim; embedded quotes are not escaped.
// TODO: reject or escape values containing ' before they reach the warehouse.
func quote(v string) string {
	return "'" + v + "'"
}
