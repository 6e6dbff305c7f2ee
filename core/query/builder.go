// Package query builds the SPARQL degree-count, entity-sampling and class
// discovery queries. It performs no I/O and never fails.
package query

import (
	"fmt"
	"strings"
)

// Direction selects which edges of an entity are counted.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// Variable names shared with the endpoint client.
const (
	EntityVar        = "s"
	ClassVar         = "class"
	OutgoingCountVar = "pCount"
	IncomingCountVar = "iCount"
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// CountVar returns the projected count variable for d (pCount or iCount).
func (d Direction) CountVar() string {
	if d == Incoming {
		return IncomingCountVar
	}
	return OutgoingCountVar
}

func (d Direction) edgeVar() string {
	if d == Incoming {
		return "?i"
	}
	return "?p"
}

func (d Direction) triple() string {
	if d == Incoming {
		return "?o ?i ?s ."
	}
	return "?s ?p ?o ."
}

// Builder renders queries with a fixed PREFIX header.
type Builder struct {
	prefix string
}

// NewBuilder creates a Builder. Each prefix is a declaration body such as
// "wdt: <http://www.wikidata.org/prop/direct/>".
func NewBuilder(prefixes []string) *Builder {
	var sb strings.Builder
	for _, p := range prefixes {
		sb.WriteString("PREFIX ")
		sb.WriteString(strings.TrimSpace(p))
		sb.WriteString("\n")
	}
	return &Builder{prefix: sb.String()}
}

// Prefix returns the rendered PREFIX header.
func (b *Builder) Prefix() string {
	return b.prefix
}

// ClassFilter turns class patterns ("wdt:P31 wd:Q5") into subject-position
// triples on ?s, one per line.
func ClassFilter(patterns []string) string {
	var sb strings.Builder
	for _, p := range patterns {
		fmt.Fprintf(&sb, "?s %s .\n", strings.TrimSpace(p))
	}
	return sb.String()
}

// MembershipFilter restricts ?s to instances of classURI via classProperty.
func MembershipFilter(classProperty, classURI string) string {
	return fmt.Sprintf("?s %s <%s> .\n", classProperty, classURI)
}

func renderFilters(fs Filters) string {
	var sb strings.Builder
	for _, f := range fs {
		sb.WriteString(f.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func distinctKeyword(distinct bool) string {
	if distinct {
		return "DISTINCT "
	}
	return ""
}

// DegreeQuery counts the dir edges of up to limit entities matching
// classFilter. distinct selects set semantics over (entity, edge) pairs;
// otherwise every edge is counted (bag semantics). Only the filters that
// apply to dir are injected.
func (b *Builder) DegreeQuery(dir Direction, classFilter string, filters Filters, limit int, distinct bool) string {
	var sb strings.Builder
	b.writeDegreeHead(&sb, dir, distinct)
	sb.WriteString(classFilter)
	b.writeDegreeTail(&sb, dir, filters)
	fmt.Fprintf(&sb, "} GROUP BY ?s LIMIT %d\n", limit)
	return sb.String()
}

// BatchDegreeQuery is DegreeQuery restricted to an explicit entity list
// through a VALUES block instead of a LIMIT.
func (b *Builder) BatchDegreeQuery(dir Direction, classFilter string, entities []string, filters Filters, distinct bool) string {
	var sb strings.Builder
	b.writeDegreeHead(&sb, dir, distinct)
	sb.WriteString("    VALUES ?s {")
	for _, e := range entities {
		fmt.Fprintf(&sb, " <%s>", e)
	}
	sb.WriteString(" }\n")
	sb.WriteString(classFilter)
	b.writeDegreeTail(&sb, dir, filters)
	sb.WriteString("} GROUP BY ?s\n")
	return sb.String()
}

func (b *Builder) writeDegreeHead(sb *strings.Builder, dir Direction, distinct bool) {
	edge := dir.edgeVar()
	sb.WriteString(b.prefix)
	fmt.Fprintf(sb, "SELECT ?s (COUNT(%s) AS ?%s) {\n", edge, dir.CountVar())
	fmt.Fprintf(sb, "  { SELECT %s?s %s\n", distinctKeyword(distinct), edge)
	sb.WriteString("    WHERE {\n")
}

func (b *Builder) writeDegreeTail(sb *strings.Builder, dir Direction, filters Filters) {
	fmt.Fprintf(sb, "    %s\n", dir.triple())
	sb.WriteString(renderFilters(filters.ForDirection(dir)))
	sb.WriteString("  } }\n")
}

// SampleEntitiesQuery selects up to limit entity identifiers matching
// classFilter. Only entity-scoped filters are applied since sampling
// constrains the subject position alone.
func (b *Builder) SampleEntitiesQuery(classFilter string, filters Filters, limit int) string {
	var sb strings.Builder
	sb.WriteString(b.prefix)
	sb.WriteString("SELECT ?s WHERE {\n")
	sb.WriteString(classFilter)
	sb.WriteString(renderFilters(filters.Entity()))
	fmt.Fprintf(&sb, "} LIMIT %d\n", limit)
	return sb.String()
}

// ClassDiscoveryQuery selects the distinct classes reachable through
// classProperty. With an empty classID it follows the instance-of shape
// (?entity P ?class); otherwise it fixes the object and selects
// ?class P <classID>, which walks type hierarchies. classLimit <= 0 means
// no LIMIT. Filters are rendered verbatim regardless of scope.
func (b *Builder) ClassDiscoveryQuery(classProperty, classID string, filters Filters, classLimit int) string {
	var sb strings.Builder
	sb.WriteString(b.prefix)
	sb.WriteString("SELECT DISTINCT ?class\n")
	sb.WriteString("WHERE {\n")
	if classID == "" {
		fmt.Fprintf(&sb, "  ?entity %s ?class .\n", classProperty)
	} else {
		fmt.Fprintf(&sb, "  ?class %s %s .\n", classProperty, classID)
	}
	sb.WriteString(renderFilters(filters))
	sb.WriteString("}")
	if classLimit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", classLimit)
	}
	sb.WriteString("\n")
	return sb.String()
}
