package reflecs

import "testing"

func TestDeferredMutationDuringIteration(t *testing.T) {
	w := newTestWorld(t)
	position := RegisterComponent[Position](w, "Position")
	dead := RegisterTag(w, "Dead")

	e1 := w.New()
	w.Set(e1, position, Position{X: 1})
	e2 := w.New()
	w.Set(e2, position, Position{X: 2})

	filter, err := ParseFilter(w, "Position")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	q := w.NewQuery(filter)

	if w.Locked() {
		t.Fatalf("world should not be readonly before iteration starts")
	}

	newEntity := Entity(0)
	q.Each(func(b *Batch) {
		if !w.Locked() {
			t.Fatalf("world should be readonly while a query is iterating")
		}
		for _, e := range b.Entities() {
			// Structural mutation from inside the callback must not panic
			// or corrupt the batch currently being walked.
			w.Add(e, dead)
		}
		if newEntity == 0 {
			newEntity = w.New()
		}
	})

	if w.Locked() {
		t.Fatalf("world should be unlocked once iteration completes")
	}
	if !w.Has(e1, dead) || !w.Has(e2, dead) {
		t.Fatalf("expected the deferred Add to have applied to both entities")
	}
	if newEntity == 0 || !w.IsAlive(newEntity) {
		t.Fatalf("expected the deferred New to have produced a live entity")
	}
}
