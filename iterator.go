package reflecs

import "unsafe"

// Iter walks a Query's cached archetype matches one batch at a time,
// skipping archetypes that currently have zero rows (spec §4.5: empty
// archetypes stay in the match list, iteration just skips over them).
type Iter struct {
	query   *Query
	world   *World
	idx     int
	batch   *Batch
	lockBit uint32
	done    bool
}

// Next advances to the next non-empty matched archetype. It returns false
// once every match has been visited, at which point the world's readonly
// lock for this iteration has already been released.
func (it *Iter) Next() bool {
	if it.done {
		return false
	}
	for {
		it.idx++
		if it.idx >= len(it.query.matches) {
			it.end()
			return false
		}
		m := &it.query.matches[it.idx]
		if m.archetype.Len() == 0 {
			continue
		}
		it.batch = newBatch(it.query, m)
		return true
	}
}

// Batch returns the current batch. Valid only after Next returned true.
func (it *Iter) Batch() *Batch { return it.batch }

func (it *Iter) end() {
	if it.done {
		return
	}
	it.done = true
	it.world.readonly.end(it.lockBit)
	if !it.world.readonly.locked() {
		it.world.commands.flush(it.world)
	}
}

// Batch is one archetype's worth of matched rows plus the per-term
// metadata (column location, shared/optional presence) a system callback
// needs to read or write it (spec §4.5).
type Batch struct {
	world     *World
	filter    *Filter
	archetype *Archetype
	match     *queryMatch
}

func newBatch(q *Query, m *queryMatch) *Batch {
	return &Batch{world: q.world, filter: q.filter, archetype: m.archetype, match: m}
}

// Count returns the number of rows in the batch.
func (b *Batch) Count() int { return b.archetype.Len() }

// Entities returns the batch's dense entity-id column.
func (b *Batch) Entities() []Entity { return b.archetype.Entities() }

// IsShared reports whether the term at index term is a fixed-source term
// (one value shared across every row) rather than a per-row column.
func (b *Batch) IsShared(term int) bool { return b.match.shared[term] }

// IsPresent reports whether the term at index term actually matched —
// relevant for Optional terms, which are always "present" in the filter
// sense but may be absent from a given archetype.
func (b *Batch) IsPresent(term int) bool { return b.match.present[term] }

// IsReadonly reports whether the term at index term was declared In or
// with no explicit InOut mode.
func (b *Batch) IsReadonly(term int) bool {
	mode := b.filter.Terms[term].InOut
	return mode == In || mode == InOutNone
}

// PairID returns the concrete (relation, object) id that satisfied a
// wildcard pair term at index term.
func (b *Batch) PairID(term int) (Entity, bool) {
	idx := b.match.typeIndex[term]
	if idx < 0 {
		return 0, false
	}
	return b.archetype.typ.ids[idx], true
}

func (b *Batch) column(term int) (*column, bool) {
	idx := b.match.typeIndex[term]
	if idx < 0 {
		return nil, false
	}
	id := b.archetype.typ.ids[idx]
	col, ok := b.archetype.columns[id]
	return col, ok
}

// Field returns the owned, per-row column for term as a typed slice
// sharing memory with the archetype's backing storage (grounded on the
// unsafe-pointer column access in edwinsyarief-lazyecs/filter.go). The
// slice is only valid until the next structural change to the archetype.
func Field[T any](b *Batch, term int) []T {
	col, ok := b.column(term)
	if !ok || col.Len() == 0 {
		return nil
	}
	return unsafe.Slice((*T)(col.ptr(0)), col.Len())
}

// Shared returns the single value of a SourceFixed term, read live off
// the fixed entity.
func Shared[T any](b *Batch, term int) (T, bool) {
	var zero T
	t := b.filter.Terms[term]
	if t.Source != SourceFixed {
		return zero, false
	}
	v, ok := b.world.Get(t.Fixed, t.Component)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	return tv, ok
}
