package reflecs

import "testing"

func TestObserverFiresOnSetForMatchingFilterOnly(t *testing.T) {
	w := newTestWorld(t)
	position := RegisterComponent[Position](w, "Position")
	disabled := RegisterTag(w, "Disabled")

	filter, err := ParseFilter(w, "Position, !Disabled")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}

	fired := 0
	w.NewObserver(filter, []EventKind{OnSet}, func(ev TriggerEvent, b *Batch) {
		fired++
		positions := Field[Position](b, 0)
		if len(positions) == 0 || positions[ev.Row].X != 1 {
			t.Fatalf("expected batch column to see the written Position, got %v (row %d)", positions, ev.Row)
		}
	})

	e1 := w.New()
	w.Set(e1, position, Position{X: 1}) // no Disabled: should fire
	if fired != 1 {
		t.Fatalf("expected observer to fire once, got %d", fired)
	}

	e2 := w.New()
	w.Add(e2, disabled)
	w.Set(e2, position, Position{X: 2}) // has Disabled: should not fire
	if fired != 1 {
		t.Fatalf("expected observer not to fire for a Disabled entity, got %d total fires", fired)
	}
}

func TestTriggerFiresOnAddAndRemove(t *testing.T) {
	w := newTestWorld(t)
	position := RegisterComponent[Position](w, "Position")

	var events []EventKind
	w.OnTrigger(position, []EventKind{OnAdd, OnRemove}, func(ev TriggerEvent) {
		events = append(events, ev.Kind)
	})

	e := w.New()
	w.Add(e, position)
	w.Remove(e, position)

	if len(events) != 2 || events[0] != OnAdd || events[1] != OnRemove {
		t.Fatalf("expected [OnAdd, OnRemove], got %v", events)
	}
}
