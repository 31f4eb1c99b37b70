package reflecs

import "testing"

type Position struct{ X, Y float64 }
type Velocity struct{ X, Y float64 }
type Health struct{ HP int }

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return w
}

func TestNewEntityStartsEmpty(t *testing.T) {
	w := newTestWorld(t)
	e := w.New()
	if !w.IsAlive(e) {
		t.Fatalf("entity should be alive immediately after New")
	}
	typ, err := w.TypeOf(e)
	if err != nil {
		t.Fatalf("TypeOf: %v", err)
	}
	if len(typ.IDs()) != 0 {
		t.Fatalf("fresh entity should have an empty type, got %v", typ.IDs())
	}
}

func TestAddMovesEntityBetweenArchetypes(t *testing.T) {
	w := newTestWorld(t)
	position := RegisterComponent[Position](w, "Position")
	velocity := RegisterComponent[Velocity](w, "Velocity")

	e := w.New()
	if err := w.Add(e, position); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !w.Has(e, position) {
		t.Fatalf("expected Has(position) after Add")
	}
	if err := w.Add(e, velocity); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !w.Has(e, position) || !w.Has(e, velocity) {
		t.Fatalf("expected both components present after second Add")
	}

	if err := w.Remove(e, position); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if w.Has(e, position) {
		t.Fatalf("expected position gone after Remove")
	}
	if !w.Has(e, velocity) {
		t.Fatalf("expected velocity to survive Remove(position)")
	}
}

func TestSwapRemovePreservesOtherRows(t *testing.T) {
	w := newTestWorld(t)
	position := RegisterComponent[Position](w, "Position")

	e1 := w.New()
	e2 := w.New()
	e3 := w.New()
	w.Set(e1, position, Position{X: 1})
	w.Set(e2, position, Position{X: 2})
	w.Set(e3, position, Position{X: 3})

	if err := w.Delete(e2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if w.IsAlive(e2) {
		t.Fatalf("e2 should no longer be alive")
	}

	v1, ok := w.Get(e1, position)
	if !ok || v1.(Position).X != 1 {
		t.Fatalf("e1's Position corrupted after sibling delete: %v", v1)
	}
	v3, ok := w.Get(e3, position)
	if !ok || v3.(Position).X != 3 {
		t.Fatalf("e3's Position corrupted after sibling delete: %v", v3)
	}
}

func TestStaleHandleIsRejected(t *testing.T) {
	w := newTestWorld(t)
	e := w.New()
	if err := w.Delete(e); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	e2 := w.New() // likely recycles e's index with a bumped generation

	if w.IsAlive(e) {
		t.Fatalf("deleted handle should not be alive")
	}
	if err := w.Add(e, RegisterComponent[Position](w, "Position")); err == nil {
		t.Fatalf("expected InvalidHandle adding to a deleted entity")
	} else if _, ok := err.(InvalidHandle); !ok {
		t.Fatalf("expected InvalidHandle, got %T: %v", err, err)
	}
	_ = e2
}

func TestGetMutWritesThrough(t *testing.T) {
	w := newTestWorld(t)
	position := RegisterComponent[Position](w, "Position")
	e := w.New()
	w.Set(e, position, Position{X: 1, Y: 1})

	ptr, err := w.GetMut(e, position)
	if err != nil {
		t.Fatalf("GetMut: %v", err)
	}
	p := ptr.(*Position)
	p.X = 42
	if err := w.Modified(e, position); err != nil {
		t.Fatalf("Modified: %v", err)
	}

	got, _ := w.Get(e, position)
	if got.(Position).X != 42 {
		t.Fatalf("expected write-through via GetMut, got %v", got)
	}
}
