package reflecs

// queryMatch caches, for one archetype a Query matched, where each term's
// data lives: typeIndex is the term's position in the archetype's Type
// (or -1 if the term contributed no id — Not, or an unmatched Optional),
// shared marks a SourceFixed term, present records whether the term
// actually matched (relevant for Optional).
type queryMatch struct {
	archetype *Archetype
	typeIndex []int
	shared    []bool
	present   []bool
}

// Query caches, per spec §4.4, the list of archetypes that currently
// satisfy a Filter. New archetypes are pushed in by the type registry as
// they're created (typeRegistry.getArchetype); a Query is never asked to
// re-scan the whole world.
type Query struct {
	world      *World
	filter     *Filter
	matches    []queryMatch
	matchedSet map[uint32]bool
}

// NewQuery registers a cached query against every archetype that exists
// right now, and against every archetype created from this point on.
func (w *World) NewQuery(f *Filter) *Query {
	q := &Query{world: w, filter: f, matchedSet: make(map[uint32]bool)}
	w.queries = append(w.queries, q)
	for _, a := range w.types.all() {
		q.considerArchetype(a)
	}
	return q
}

// considerArchetype adds a to the query's match list if it satisfies the
// filter and hasn't been considered before.
func (q *Query) considerArchetype(a *Archetype) {
	if q.matchedSet[a.id] {
		return
	}
	if !q.filter.matchesArchetype(a) {
		return
	}
	q.matchedSet[a.id] = true

	m := queryMatch{
		archetype: a,
		typeIndex: make([]int, len(q.filter.Terms)),
		shared:    make([]bool, len(q.filter.Terms)),
		present:   make([]bool, len(q.filter.Terms)),
	}
	for i, t := range q.filter.Terms {
		idx, shared, present := resolveTerm(a, t)
		m.typeIndex[i] = idx
		m.shared[i] = shared
		m.present[i] = present
	}
	q.matches = append(q.matches, m)
}

func resolveTerm(a *Archetype, t Term) (typeIdx int, shared bool, present bool) {
	if t.Op == OpNot {
		return -1, false, false
	}
	if t.Source == SourceFixed {
		return -1, true, a.world.Has(t.Fixed, t.Component)
	}
	idx := a.typ.matchIndex(t.Component)
	if idx < 0 {
		return -1, false, false
	}
	return idx, false, true
}

// Iter starts an iteration over the query's cached matches. The world
// becomes readonly for the lifetime of the returned Iter (spec §4.6):
// New/Delete/Add/Remove/Set calls made while it's open are deferred.
func (q *Query) Iter() *Iter {
	bit := q.world.readonly.begin()
	return &Iter{query: q, world: q.world, idx: -1, lockBit: bit}
}

// Each drives the query to completion, calling fn once per non-empty
// matched archetype, and guarantees the readonly lock is released (and
// deferred commands flushed) even if fn panics.
func (q *Query) Each(fn func(*Batch)) {
	it := q.Iter()
	defer it.end()
	for it.Next() {
		fn(it.Batch())
	}
}
