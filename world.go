package reflecs

import (
	"fmt"
	"reflect"
)

// World owns every piece of storage state: the entity index, the interned
// type registry, the component registry, queries, observers/triggers, the
// deferral buffer and registered systems. Per spec §9's redesign note,
// component registration is explicit world state rather than a process
// global, so multiple worlds never share identity for the same Go type.
type World struct {
	entities *entityIndex
	types    *typeRegistry

	components        map[Entity]componentMeta
	componentsByName  Cache[Entity]
	componentOrder    []Entity
	nextComponentBit  uint32

	ecsComponent Entity
	childOf      Entity
	instanceOf   Entity

	queries   []*Query
	triggers  map[Entity][]*trigger

	commands      *commandBuffer
	readonly      readonlyGuard
	deferDisabled bool

	systems         map[Stage][]*registeredSystem
	nextArchetypeID uint32
}

// SetDeferred controls whether a structural mutation issued while the
// world is readonly gets queued for replay (the default) or is instead a
// programmer error. Disabling deferral is for callers who have already
// guaranteed, some other way, that no iteration is in flight across a
// mutation they want to happen immediately; mutating while locked with
// deferral disabled panics with LockedWorldError (spec §4.9).
func (w *World) SetDeferred(enabled bool) {
	w.deferDisabled = !enabled
}

// deferOrPanic is consulted everywhere a mutation would otherwise be
// deferred; it panics instead when deferral has been turned off.
func (w *World) deferOrPanic() {
	if w.deferDisabled {
		panic(barkTrace(LockedWorldError{}))
	}
}

// Init creates a world, parsing argv the way spec §6 describes
// (--threads N, --fps N, --admin). A non-nil error means a malformed
// argument; the world is not created.
func Init(args ...string) (*World, error) {
	cfg, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	Config = cfg

	w := &World{
		entities:         newEntityIndex(),
		components:       make(map[Entity]componentMeta),
		componentsByName: newSimpleCache[Entity](),
		triggers:         make(map[Entity][]*trigger),
		commands:         newCommandBuffer(),
		systems:          make(map[Stage][]*registeredSystem),
	}
	w.types = newTypeRegistry(w)
	w.bootstrap()
	return w, nil
}

// bootstrap registers the built-in component/relation entities (spec §3):
// EcsComponent (self-describing, landing in archetype 0) plus the ChildOf
// and InstanceOf relation tags.
func (w *World) bootstrap() {
	w.ecsComponent = w.registerComponentType("EcsComponent", reflect.TypeOf(ComponentRecord{}))
	meta := w.components[w.ecsComponent]
	if err := w.setImmediate(w.ecsComponent, w.ecsComponent, meta.record); err != nil {
		panic(barkTrace(err))
	}
	w.childOf = w.registerComponentType("ChildOf", nil)
	w.instanceOf = w.registerComponentType("InstanceOf", nil)
}

// ChildOf returns the built-in hierarchy relation.
func (w *World) ChildOf() Entity { return w.childOf }

// InstanceOf returns the built-in prototype-inheritance relation.
func (w *World) InstanceOf() Entity { return w.instanceOf }

// Fini releases a world. The core has no external resources to close; this
// exists to mirror the lifecycle spec §6 names.
func (w *World) Fini() {}

// Progress runs one frame: every registered system, in pipeline-stage
// order (spec §5/§6). Returns false to request quit — the core never
// requests quit on its own; callers can wrap Progress to do so.
func (w *World) Progress(delta float64) bool {
	for _, stage := range pipelineOrder {
		for _, sys := range w.systems[stage] {
			sys.run(w, delta)
		}
	}
	return true
}

// Locked reports whether the world is currently readonly (some iteration
// is active and hasn't reached its outermost Next()==false yet).
func (w *World) Locked() bool {
	return w.readonly.locked()
}

// newEntityRaw allocates an id and immediately places it in the empty
// (archetype-0-adjacent) type. Used for bootstrap/component registration,
// which always happens outside of iteration.
func (w *World) newEntityRaw() Entity {
	e := w.entities.new()
	w.placeInEmptyArchetype(e)
	return e
}

func (w *World) placeInEmptyArchetype(e Entity) {
	a := w.types.getArchetype(w.types.emptyType)
	row := a.append(e)
	w.entities.set(e, a, row)
}

// New allocates an entity. If the world is readonly, the id is allocated
// immediately (so it is a valid, usable handle right away) but placement
// into an archetype is deferred to replay, per spec §4.6.
func (w *World) New() Entity {
	e := w.entities.new()
	if w.Locked() {
		w.deferOrPanic()
		w.commands.enqueue(newOp{entity: e})
		return e
	}
	w.placeInEmptyArchetype(e)
	return e
}

// Delete destroys an entity, firing OnRemove for every component it
// carries first.
func (w *World) Delete(e Entity) error {
	if !w.entities.isAlive(e) {
		return InvalidHandle{Entity: e}
	}
	if w.Locked() {
		w.deferOrPanic()
		w.commands.enqueue(deleteOp{entity: e})
		return nil
	}
	w.deleteImmediate(e)
	return nil
}

func (w *World) deleteImmediate(e Entity) {
	idx := e.Index()
	rec := &w.entities.records[idx]
	a := rec.archetype
	if a != nil {
		for _, id := range a.typ.ids {
			w.dispatchTriggers(id, OnRemove, e, a, rec.row, -1)
		}
		moved, hadMove := a.remove(rec.row)
		if hadMove {
			w.entities.set(moved, a, rec.row)
		}
	}
	w.entities.recycle(e)
}

// IsAlive reports whether e's generation matches the live one at its index.
func (w *World) IsAlive(e Entity) bool {
	return w.entities.isAlive(e)
}

// TypeOf returns the interned Type an entity currently carries.
func (w *World) TypeOf(e Entity) (*Type, error) {
	a, _, err := w.entities.lookup(e)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return w.types.emptyType, nil
	}
	return a.typ, nil
}

// Add adds component/tag c to e with a zero value (idempotent success, per
// spec §4.9, if already present).
func (w *World) Add(e Entity, c Entity) error {
	if !w.entities.isAlive(e) {
		return InvalidHandle{Entity: e}
	}
	if w.Locked() {
		w.deferOrPanic()
		w.commands.enqueue(addOp{entity: e, component: c})
		return nil
	}
	w.addImmediate(e, c)
	return nil
}

func (w *World) addImmediate(e Entity, c Entity) {
	idx := e.Index()
	rec := &w.entities.records[idx]
	src := rec.archetype
	if src != nil && src.typ.Contains(c) {
		return
	}
	var dst *Archetype
	var dstRow int
	if src == nil {
		dst = w.types.getArchetype(w.types.add(w.types.emptyType, c))
		dstRow = dst.append(e)
	} else {
		dst = src.getAddEdge(c)
		newRow, moved, hadMove := src.moveRow(rec.row, dst)
		dstRow = newRow
		if hadMove {
			w.entities.set(moved, src, rec.row)
		}
	}
	w.entities.set(e, dst, dstRow)
	w.dispatchTriggers(c, OnAdd, e, dst, dstRow, -1)
}

// Remove removes component/tag c from e (idempotent success if absent).
func (w *World) Remove(e Entity, c Entity) error {
	if !w.entities.isAlive(e) {
		return InvalidHandle{Entity: e}
	}
	if w.Locked() {
		w.deferOrPanic()
		w.commands.enqueue(removeOp{entity: e, component: c})
		return nil
	}
	w.removeImmediate(e, c)
	return nil
}

func (w *World) removeImmediate(e Entity, c Entity) {
	idx := e.Index()
	rec := &w.entities.records[idx]
	src := rec.archetype
	if src == nil || !src.typ.Contains(c) {
		return
	}
	w.dispatchTriggers(c, OnRemove, e, src, rec.row, -1)
	dst := src.getRemoveEdge(c)
	newRow, moved, hadMove := src.moveRow(rec.row, dst)
	if hadMove {
		w.entities.set(moved, src, rec.row)
	}
	w.entities.set(e, dst, newRow)
}

// Has reports whether e currently carries component/tag c.
func (w *World) Has(e Entity, c Entity) bool {
	a, _, err := w.entities.lookup(e)
	if err != nil || a == nil {
		return false
	}
	return a.typ.Contains(c)
}

// Set writes value into component c on e, moving e into an archetype that
// carries c if necessary, then fires OnSet.
func (w *World) Set(e Entity, c Entity, value any) error {
	if !w.entities.isAlive(e) {
		return InvalidHandle{Entity: e}
	}
	if w.Locked() {
		w.deferOrPanic()
		w.commands.enqueue(setOp{entity: e, component: c, value: value})
		return nil
	}
	return w.setImmediate(e, c, value)
}

func (w *World) setImmediate(e Entity, c Entity, value any) error {
	meta, ok := w.components[c]
	if !ok {
		return TypeMismatch{Component: c, Reason: "component not registered"}
	}
	if meta.elem == nil {
		return TypeMismatch{Component: c, Reason: "cannot Set a zero-size tag"}
	}
	idx := e.Index()
	rec := &w.entities.records[idx]
	if rec.archetype == nil || !rec.archetype.typ.Contains(c) {
		w.addImmediate(e, c)
		rec = &w.entities.records[e.Index()]
	}
	col, ok := rec.archetype.columns[c]
	if !ok {
		return InternalError{Reason: "data column missing after add"}
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || !rv.Type().AssignableTo(meta.elem) {
		return TypeMismatch{Component: c, Reason: fmt.Sprintf("value %v not assignable to %s", value, meta.elem)}
	}
	col.setFromValue(rec.row, rv)
	w.dispatchTriggers(c, OnSet, e, rec.archetype, rec.row, -1)
	return nil
}

// Get returns a boxed copy of e's value for component c, or ok==false if
// absent.
func (w *World) Get(e Entity, c Entity) (value any, ok bool) {
	a, row, err := w.entities.lookup(e)
	if err != nil || a == nil {
		return nil, false
	}
	col, hasCol := a.columns[c]
	if !hasCol {
		return nil, false
	}
	return col.at(row).Interface(), true
}

// GetMut returns a pointer to e's value for component c, adding the
// component with a zero value first if absent. While the world is
// readonly, the returned pointer targets a scratch staging area; the
// staged value is copied into the entity and OnSet fires on replay (spec
// §4.6). The caller must call Modified when not readonly to notify
// observers of the in-place write.
func (w *World) GetMut(e Entity, c Entity) (any, error) {
	if !w.entities.isAlive(e) {
		return nil, InvalidHandle{Entity: e}
	}
	meta, ok := w.components[c]
	if !ok {
		return nil, TypeMismatch{Component: c, Reason: "component not registered"}
	}
	if meta.elem == nil {
		return nil, TypeMismatch{Component: c, Reason: "tag has no value"}
	}

	if w.Locked() {
		w.deferOrPanic()
		ptr := reflect.New(meta.elem)
		if cur, ok := w.Get(e, c); ok {
			ptr.Elem().Set(reflect.ValueOf(cur))
		}
		// ptr is captured by reference: writes the caller makes to *ptr
		// after GetMut returns are visible when this op is replayed.
		w.commands.enqueue(deferredGetMutOp{entity: e, component: c, ptr: ptr})
		return ptr.Interface(), nil
	}

	idx := e.Index()
	rec := &w.entities.records[idx]
	if rec.archetype == nil || !rec.archetype.typ.Contains(c) {
		w.addImmediate(e, c)
		rec = &w.entities.records[e.Index()]
	}
	col := rec.archetype.columns[c]
	return col.at(rec.row).Addr().Interface(), nil
}

// Modified notifies OnSet observers/triggers that component c on e was
// written through a GetMut pointer.
func (w *World) Modified(e Entity, c Entity) error {
	if !w.entities.isAlive(e) {
		return InvalidHandle{Entity: e}
	}
	if w.Locked() {
		w.deferOrPanic()
		w.commands.enqueue(modifiedOp{entity: e, component: c})
		return nil
	}
	w.fireModified(e, c, -1)
	return nil
}

func (w *World) fireModified(e Entity, c Entity, termIndex int) {
	a, row, err := w.entities.lookup(e)
	if err != nil || a == nil {
		return
	}
	w.dispatchTriggers(c, OnSet, e, a, row, termIndex)
}

// dispatchTriggers fires every trigger registered for id (in registration
// order, spec §5 point 4) that subscribes to kind.
func (w *World) dispatchTriggers(id Entity, kind EventKind, e Entity, a *Archetype, row int, termIndex int) {
	for _, tr := range w.triggers[id] {
		if !tr.events[kind] {
			continue
		}
		tr.callback(TriggerEvent{
			World:     w,
			Entity:    e,
			Component: id,
			Kind:      kind,
			TermIndex: termIndex,
			Archetype: a,
			Row:       row,
		})
	}
}

// Children returns every entity holding the pair (rel, parent) — the
// wildcard-pair walk spec §9 asks to expose, grounded on
// original_source/examples/c/23_get_children.
func (w *World) Children(parent Entity, rel Entity) []Entity {
	pattern := MakePair(rel, parent)
	var out []Entity
	for _, a := range w.types.all() {
		idx := a.typ.matchIndex(pattern)
		if idx < 0 {
			continue
		}
		out = append(out, a.entities...)
	}
	return out
}

// deferredGetMutOp copies *ptr into the entity's component on replay and
// fires OnSet, giving a get_mut-while-deferred call the write-through
// semantics spec §4.6 describes.
type deferredGetMutOp struct {
	entity    Entity
	component Entity
	ptr       reflect.Value
}

func (op deferredGetMutOp) apply(w *World) {
	if !w.entities.isAlive(op.entity) {
		return
	}
	if err := w.setImmediate(op.entity, op.component, op.ptr.Elem().Interface()); err != nil {
		panic(barkTrace(err))
	}
}
