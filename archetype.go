package reflecs

import "github.com/TheBitDrifter/mask"

// Archetype is the dense column store for every entity currently of one
// exact type (spec §3/§4.2). Cross-references to other archetypes (the
// add/remove edges) are plain pointers into world-owned maps/slices,
// never evicted for the world's lifetime (spec §9 "arena + stable indices").
type Archetype struct {
	id       uint32
	world    *World
	typ      *Type
	entities []Entity
	columns  map[Entity]*column

	typeMask mask.Mask // fast pre-filter; only tracks non-pair ids (see DESIGN.md)

	addEdges    map[Entity]*Archetype
	removeEdges map[Entity]*Archetype
}

func newArchetype(w *World, t *Type) *Archetype {
	a := &Archetype{
		id:          w.nextArchetypeID,
		world:       w,
		typ:         t,
		columns:     make(map[Entity]*column),
		addEdges:    make(map[Entity]*Archetype),
		removeEdges: make(map[Entity]*Archetype),
	}
	w.nextArchetypeID++

	for _, id := range t.ids {
		if id.IsPair() {
			continue
		}
		if meta, ok := w.components[id]; ok {
			a.typeMask.Mark(meta.bit)
			if meta.elem != nil {
				a.columns[id] = newColumn(meta.elem)
			}
		}
	}
	return a
}

// ID returns the archetype's stable identifier.
func (a *Archetype) ID() uint32 { return a.id }

// Type returns the interned type this archetype stores.
func (a *Archetype) Type() *Type { return a.typ }

// Len returns the number of rows (entities) currently stored.
func (a *Archetype) Len() int { return len(a.entities) }

// Entities returns the archetype's dense entity-id column. Callers must
// not mutate it.
func (a *Archetype) Entities() []Entity { return a.entities }

// Column returns the data column for a component, or (nil, false) if the
// component is absent from this archetype's type or is a tag.
func (a *Archetype) Column(component Entity) (*column, bool) {
	c, ok := a.columns[component]
	return c, ok
}

// append adds a new zero-valued row for entity e and returns its row index.
func (a *Archetype) append(e Entity) int {
	row := len(a.entities)
	a.entities = append(a.entities, e)
	for _, c := range a.columns {
		if got := c.append(); got != row {
			panic(barkTrace(InternalError{Reason: "column/entities length invariant violated"}))
		}
	}
	return row
}

// remove does a swap-remove of row, returning the entity (if any) that was
// moved into the vacated slot so the entity index can be updated (spec
// §4.2).
func (a *Archetype) remove(row int) (moved Entity, hadMove bool) {
	last := len(a.entities) - 1
	if row < 0 || row > last {
		panic(barkTrace(InternalError{Reason: "row out of range on remove"}))
	}
	if row != last {
		moved = a.entities[last]
		hadMove = true
	}
	a.entities[row] = a.entities[last]
	a.entities = a.entities[:last]
	for _, c := range a.columns {
		c.swapRemove(row)
	}
	return moved, hadMove
}

// moveRow appends entity e (currently at srcRow in a) to dst, copying over
// columns present in both types, then swap-removes srcRow from a. Returns
// the new row in dst and the entity (if any) swapped into a's vacated slot.
func (a *Archetype) moveRow(srcRow int, dst *Archetype) (dstRow int, moved Entity, hadMove bool) {
	e := a.entities[srcRow]
	dstRow = dst.append(e)
	for id, dstCol := range dst.columns {
		if srcCol, ok := a.columns[id]; ok {
			copyRow(dstCol, srcCol, dstRow, srcRow)
		}
	}
	moved, hadMove = a.remove(srcRow)
	return dstRow, moved, hadMove
}

// getAddEdge returns the destination archetype after adding id, computing
// and caching it on first use (spec §4.2's "O(1) pointer chase" edge
// cache).
func (a *Archetype) getAddEdge(id Entity) *Archetype {
	if dst, ok := a.addEdges[id]; ok {
		return dst
	}
	destType := a.world.types.add(a.typ, id)
	dst := a.world.types.getArchetype(destType)
	a.addEdges[id] = dst
	return dst
}

// getRemoveEdge returns the destination archetype after removing id.
func (a *Archetype) getRemoveEdge(id Entity) *Archetype {
	if dst, ok := a.removeEdges[id]; ok {
		return dst
	}
	destType := a.world.types.remove(a.typ, id)
	dst := a.world.types.getArchetype(destType)
	a.removeEdges[id] = dst
	return dst
}

