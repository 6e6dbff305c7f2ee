package degree

// Merge joins outgoing and incoming counts on entity and returns the sorted
// degree table. Every Row of a fetched table is built here.
//
// Entities are taken in outgoing order, followed by incoming-only entities
// in incoming order. The missing side of an entity counts as 0. Repeated
// entities on one side keep their first count.
func Merge(out, in []Count) *Table {
	incoming := make(map[string]int, len(in))
	for _, c := range in {
		if _, ok := incoming[c.Entity]; !ok {
			incoming[c.Entity] = c.N
		}
	}

	b := NewBuilder(len(out) + len(in))
	matched := make(map[string]struct{}, len(out))
	for _, c := range out {
		if _, dup := matched[c.Entity]; dup {
			continue
		}
		matched[c.Entity] = struct{}{}
		b.Append(NewRow(c.Entity, c.N, incoming[c.Entity]))
	}
	for _, c := range in {
		if _, ok := matched[c.Entity]; ok {
			continue
		}
		matched[c.Entity] = struct{}{}
		b.Append(NewRow(c.Entity, 0, c.N))
	}
	return b.Build()
}

// Concat appends the partial tables in order, removes duplicate entities
// keeping the first, and re-sorts by Total descending.
func Concat(tables ...*Table) *Table {
	n := 0
	for _, t := range tables {
		n += t.Len()
	}
	b := NewBuilder(n)
	for _, t := range tables {
		b.AppendTable(t)
	}
	return b.Build()
}
