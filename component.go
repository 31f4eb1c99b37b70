package reflecs

import "reflect"

// ComponentRecord is the metadata stored for every registered component.
// Per spec §3/§4.3, the record for a component entity is itself stored as
// a row of the EcsComponent component on archetype 0 — RegisterComponent
// calls World.Set(self, EcsComponent, record) to put it there.
type ComponentRecord struct {
	Size  uint32
	Align uint32
	Name  string
}

// componentMeta is the world-private bookkeeping alongside ComponentRecord:
// the Go reflect.Type backing the column (nil for a zero-size tag) and the
// bit assigned for the fast archetype-mask pre-filter.
type componentMeta struct {
	record ComponentRecord
	elem   reflect.Type // nil for tags
	bit    uint32
}

const maxComponents = 256

// registerComponentType is the untyped core of RegisterComponent[T]; it
// exists so tags (zero-size, elem == nil) and built-in relations can be
// registered without a backing Go type.
func (w *World) registerComponentType(name string, elem reflect.Type) Entity {
	if idx, ok := w.componentsByName.GetIndex(name); ok {
		return *w.componentsByName.GetItem(idx)
	}

	e := w.newEntityRaw()

	var size, align uint32
	if elem != nil {
		size = uint32(elem.Size())
		align = uint32(elem.Align())
	}

	if w.nextComponentBit >= maxComponents {
		panic(barkTrace(InternalError{Reason: "component bit space exhausted"}))
	}
	bit := w.nextComponentBit
	w.nextComponentBit++

	meta := componentMeta{
		record: ComponentRecord{Size: size, Align: align, Name: name},
		elem:   elem,
		bit:    bit,
	}
	w.components[e] = meta
	w.componentOrder = append(w.componentOrder, e)

	if _, err := w.componentsByName.Register(name, e); err != nil {
		panic(barkTrace(InternalError{Reason: err.Error()}))
	}

	// EcsComponent itself is only ready once its own entity exists (the
	// very first registration, from bootstrap); every registration after
	// that records its metadata as a row on archetype 0.
	if len(w.componentOrder) > 1 {
		w.Set(e, w.ecsComponent, meta.record)
	}
	return e
}

// RegisterComponent registers (or looks up, by name) a data component of
// Go type T and returns a handle to it. T's zero size makes it a tag.
func RegisterComponent[T any](w *World, name string) Entity {
	var zero T
	t := reflect.TypeOf(zero)
	if t != nil && t.Size() == 0 {
		t = nil
	}
	return w.registerComponentType(name, t)
}

// RegisterTag registers a zero-size marker component.
func RegisterTag(w *World, name string) Entity {
	return w.registerComponentType(name, nil)
}

func (w *World) componentMeta(c Entity) (componentMeta, bool) {
	m, ok := w.components[c]
	return m, ok
}

// Lookup resolves a previously registered component/tag name to its
// Entity handle.
func (w *World) Lookup(name string) (Entity, bool) {
	idx, ok := w.componentsByName.GetIndex(name)
	if !ok {
		return 0, false
	}
	return *w.componentsByName.GetItem(idx), true
}
