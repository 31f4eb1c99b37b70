package reflecs

import "testing"

func TestQueryMatchesExistingAndNewArchetypes(t *testing.T) {
	w := newTestWorld(t)
	position := RegisterComponent[Position](w, "Position")
	velocity := RegisterComponent[Velocity](w, "Velocity")

	e1 := w.New()
	w.Set(e1, position, Position{X: 1})
	w.Set(e1, velocity, Velocity{X: 1})

	filter, err := ParseFilter(w, "Position, Velocity")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	q := w.NewQuery(filter)

	count := 0
	q.Each(func(b *Batch) { count += b.Count() })
	if count != 1 {
		t.Fatalf("expected 1 matched row before new archetype, got %d", count)
	}

	// e2 lands in a brand new archetype (Position+Velocity+Health), which
	// the type registry must notify every live query about.
	health := RegisterComponent[Health](w, "Health")
	e2 := w.New()
	w.Set(e2, position, Position{X: 2})
	w.Set(e2, velocity, Velocity{X: 2})
	w.Set(e2, health, Health{HP: 10})

	count = 0
	q.Each(func(b *Batch) { count += b.Count() })
	if count != 2 {
		t.Fatalf("expected query to pick up the new archetype, got %d rows", count)
	}
}

func TestQueryNotExcludesComponent(t *testing.T) {
	w := newTestWorld(t)
	position := RegisterComponent[Position](w, "Position")
	dead := RegisterTag(w, "Dead")

	alive := w.New()
	w.Add(alive, position)

	deadEntity := w.New()
	w.Add(deadEntity, position)
	w.Add(deadEntity, dead)

	filter, err := ParseFilter(w, "Position, !Dead")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	q := w.NewQuery(filter)

	seen := map[Entity]bool{}
	q.Each(func(b *Batch) {
		for _, e := range b.Entities() {
			seen[e] = true
		}
	})
	if !seen[alive] || seen[deadEntity] {
		t.Fatalf("expected only the alive entity to match, got %v", seen)
	}
}

func TestWildcardPairMatch(t *testing.T) {
	w := newTestWorld(t)
	childOf := w.ChildOf()

	parent1 := w.New()
	parent2 := w.New()
	c1 := w.New()
	c2 := w.New()
	w.Add(c1, MakePair(childOf, parent1))
	w.Add(c2, MakePair(childOf, parent2))

	filter, err := ParseFilter(w, "pair(ChildOf, *)")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	q := w.NewQuery(filter)

	objects := map[Entity]bool{}
	q.Each(func(b *Batch) {
		for range b.Entities() {
			id, ok := b.PairID(0)
			if !ok {
				t.Fatalf("expected a resolved pair id per row")
			}
			objects[id.Object()] = true
		}
	})
	if !objects[parent1] || !objects[parent2] {
		t.Fatalf("expected both parents reported as pair objects, got %v", objects)
	}
}
