// Package sqlbuilder translates flight statistics tool arguments into a single
// read-only analytical statement. It performs no I/O.
package sqlbuilder

import (
	"slices"
	"strconv"
	"strings"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

// DefaultTable is the passenger statistics table the statements target.
const DefaultTable = "`aotbigquery.FlightData.APPS`"

// Builder renders QueryRequests against one source table.
type Builder struct {
	table string
}

// New creates a builder for table, falling back to DefaultTable when empty.
func New(table string) *Builder {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	return &Builder{table: table}
}

// Build renders req against DefaultTable.
func Build(req model.QueryRequest) string {
	return New("").Build(req)
}

// Build renders req into one statement. It is deterministic and never fails:
// an empty projection falls back to SUM(TOTAL_PAX).
func (b *Builder) Build(req model.QueryRequest) string {
	aggregates := aggregatesFor(req.Metrics, req.Nationalities)
	groupBy := slices.Clone(req.GroupBy)

	f := fragments{
		projection: projection(groupBy, aggregates),
		where:      predicates(req),
		groupBy:    groupBy,
		orderBy:    ordering(groupBy, aggregates),
		limit:      req.EffectiveLimit(),
	}
	return f.assemble(b.table)
}

// fragments are computed independently from the request and only joined in assemble.
type fragments struct {
	projection []string
	where      []string
	groupBy    []string
	orderBy    string
	limit      int
}

func (f fragments) assemble(table string) string {
	var sb strings.Builder
	sb.WriteString("SELECT\n  ")
	sb.WriteString(strings.Join(f.projection, ",\n  "))
	sb.WriteString("\nFROM ")
	sb.WriteString(table)
	if len(f.where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(f.where, " AND "))
	}
	if len(f.groupBy) > 0 {
		sb.WriteString("\nGROUP BY ")
		sb.WriteString(strings.Join(f.groupBy, ", "))
	}
	if f.orderBy != "" {
		sb.WriteString("\nORDER BY ")
		sb.WriteString(f.orderBy)
	}
	sb.WriteString("\nLIMIT ")
	sb.WriteString(strconv.Itoa(f.limit))
	return sb.String()
}

// projection lists grouping keys first, in the order supplied, then the aggregates.
func projection(groupBy []string, aggregates []aggregate) []string {
	out := make([]string, 0, len(groupBy)+len(aggregates))
	out = append(out, groupBy...)
	for _, a := range aggregates {
		out = append(out, a.String())
	}
	return out
}

func ordering(groupBy []string, aggregates []aggregate) string {
	if len(groupBy) > 0 {
		return groupBy[0] + " ASC"
	}
	return aggregates[0].alias + " DESC"
}

// Table returns the source table reference.
func (b *Builder) Table() string {
	return b.table
}
