package sparql

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/adalundhe/wealthkg/core/degree"
)

// Term is one RDF term inside a binding as serialized by SPARQL 1.1 JSON
// results.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Binding maps a projected variable to its unwrapped value.
type Binding map[string]string

// Results is a decoded SELECT response.
type Results struct {
	Vars     []string
	Bindings []Binding
}

type wireResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Term `json:"bindings"`
	} `json:"results"`
}

func decodeResults(r io.Reader) (*Results, error) {
	var wire wireResults
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, err
	}

	res := &Results{
		Vars:     wire.Head.Vars,
		Bindings: make([]Binding, 0, len(wire.Results.Bindings)),
	}
	for _, row := range wire.Results.Bindings {
		b := make(Binding, len(row))
		for name, term := range row {
			b[name] = term.Value
		}
		res.Bindings = append(res.Bindings, b)
	}
	return res, nil
}

// Len returns the number of bindings.
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Bindings)
}

// Counts projects bindings onto (entity, count) pairs. Any row missing
// either variable, or with a count that is not a non-negative integer, makes
// the whole result unusable and nil is returned.
func (r *Results) Counts(entityVar, countVar string) []degree.Count {
	if r.Len() == 0 {
		return nil
	}
	out := make([]degree.Count, 0, len(r.Bindings))
	for _, b := range r.Bindings {
		entity, ok := b[entityVar]
		if !ok {
			return nil
		}
		raw, ok := b[countVar]
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil
		}
		out = append(out, degree.Count{Entity: entity, N: n})
	}
	return out
}

// Values projects bindings onto a single variable. A row missing the
// variable makes the result unusable and nil is returned.
func (r *Results) Values(variable string) []string {
	if r.Len() == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Bindings))
	for _, b := range r.Bindings {
		v, ok := b[variable]
		if !ok {
			return nil
		}
		out = append(out, v)
	}
	return out
}
