package query

import "strings"

// Scope says which query variants a user filter is injected into.
type Scope int

const (
	// ScopeEntity filters constrain the entity variable ?s. They go into both
	// the outgoing and incoming degree queries and into entity sampling.
	ScopeEntity Scope = iota

	// ScopeOutgoing filters constrain outgoing edges (?s ?p ?o).
	ScopeOutgoing

	// ScopeIncoming filters constrain incoming edges (?o ?i ?s).
	ScopeIncoming
)

var scopeNames = map[Scope]string{
	ScopeEntity:   "entity",
	ScopeOutgoing: "outgoing",
	ScopeIncoming: "incoming",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return "unknown"
}

// Filter is a raw SPARQL graph-pattern or FILTER fragment tagged with the
// scope it applies to. The text is neither parsed nor sanitized.
type Filter struct {
	Scope Scope
	Text  string
}

// EntityFilter tags text as an entity filter.
func EntityFilter(text string) Filter { return Filter{Scope: ScopeEntity, Text: text} }

// OutgoingFilter tags text as an outgoing-edge filter.
func OutgoingFilter(text string) Filter { return Filter{Scope: ScopeOutgoing, Text: text} }

// IncomingFilter tags text as an incoming-edge filter.
func IncomingFilter(text string) Filter { return Filter{Scope: ScopeIncoming, Text: text} }

// Filters is an ordered list of tagged filters.
type Filters []Filter

// ForDirection returns the filters injected into the degree query for dir:
// the direction-specific filters first, then every entity filter.
func (fs Filters) ForDirection(dir Direction) Filters {
	want := ScopeOutgoing
	if dir == Incoming {
		want = ScopeIncoming
	}
	out := make(Filters, 0, len(fs))
	out = append(out, fs.withScope(want)...)
	out = append(out, fs.Entity()...)
	return out
}

// Entity returns only the entity-scoped filters.
func (fs Filters) Entity() Filters {
	return fs.withScope(ScopeEntity)
}

func (fs Filters) withScope(scope Scope) Filters {
	var out Filters
	for _, f := range fs {
		if f.Scope == scope {
			out = append(out, f)
		}
	}
	return out
}

// InferScope guesses a scope from the variable names a filter mentions:
// ?p means outgoing, ?i incoming, ?s entity. It is a plain substring check
// and misroutes text that mentions a marker incidentally (for example a
// variable named ?pop). Callers that know the scope should tag it instead.
// ok is false when no marker is present.
func InferScope(text string) (scope Scope, ok bool) {
	switch {
	case strings.Contains(text, "?s"):
		return ScopeEntity, true
	case strings.Contains(text, "?p"):
		return ScopeOutgoing, true
	case strings.Contains(text, "?i"):
		return ScopeIncoming, true
	}
	return ScopeEntity, false
}
