package reflecs

// entityRecord is per-entity bookkeeping: which archetype currently holds
// the entity's row, which row, and the live generation at this index.
type entityRecord struct {
	archetype  *Archetype
	row        int
	generation uint32
	alive      bool
}

// entityIndex maps an entity's index bits to its current archetype/row,
// recycling freed indices with a bumped generation (spec §4.1).
type entityIndex struct {
	records  []entityRecord
	freeList []uint32
}

func newEntityIndex() *entityIndex {
	return &entityIndex{}
}

// new allocates a fresh or recycled Entity at generation 0 / next-gen.
func (ei *entityIndex) new() Entity {
	if n := len(ei.freeList); n > 0 {
		idx := ei.freeList[n-1]
		ei.freeList = ei.freeList[:n-1]
		rec := &ei.records[idx]
		rec.alive = true
		rec.archetype = nil
		rec.row = -1
		return Entity(uint64(idx) | (uint64(rec.generation) << entityGenShift))
	}
	idx := uint32(len(ei.records))
	ei.records = append(ei.records, entityRecord{row: -1, alive: true})
	return Entity(uint64(idx))
}

// recycle frees an entity's index, bumping its generation so stale handles
// can be detected, and pushes the index onto the free list.
func (ei *entityIndex) recycle(e Entity) {
	idx := e.Index()
	rec := &ei.records[idx]
	rec.alive = false
	rec.archetype = nil
	rec.row = -1
	rec.generation++
	ei.freeList = append(ei.freeList, idx)
}

// lookup returns the current (archetype, row) for a live entity, or
// InvalidHandle if the generation is stale or the index was never issued.
func (ei *entityIndex) lookup(e Entity) (*Archetype, int, error) {
	idx := e.Index()
	if int(idx) >= len(ei.records) {
		return nil, 0, InvalidHandle{Entity: e}
	}
	rec := &ei.records[idx]
	if !rec.alive || rec.generation != e.Generation() {
		return nil, 0, InvalidHandle{Entity: e}
	}
	return rec.archetype, rec.row, nil
}

// set records the archetype/row for a live entity's current index.
func (ei *entityIndex) set(e Entity, archetype *Archetype, row int) {
	rec := &ei.records[e.Index()]
	rec.archetype = archetype
	rec.row = row
}

// isAlive reports whether e's generation matches the one currently live at
// its index.
func (ei *entityIndex) isAlive(e Entity) bool {
	idx := e.Index()
	if int(idx) >= len(ei.records) {
		return false
	}
	rec := &ei.records[idx]
	return rec.alive && rec.generation == e.Generation()
}
