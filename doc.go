/*
Package reflecs is an archetype-based Entity-Component-System storage and
query engine.

Entities are opaque 64-bit handles; their components live in dense,
columnar archetypes grouped by exact component set, with cached add/remove
edges giving O(1) type transitions. Queries hold a cached list of matching
archetypes that stays current as new archetypes appear. Mutations issued
while a query is being iterated are deferred and replayed, in order, once
the outermost iteration ends.

Core Concepts:

  - Entity: an opaque handle, or — with its top bit set — a (relation,
    object) pair.
  - Archetype: the dense column store for every entity of one exact type.
  - Filter/Query: a predicate over a type, matched against archetypes and
    cached as they're created.
  - Observer/Trigger: callbacks fired when a component is added, removed
    or set on an entity matching a filter.

Basic usage:

	w, _ := reflecs.Init()

	position := reflecs.RegisterComponent[Position](w, "Position")
	velocity := reflecs.RegisterComponent[Velocity](w, "Velocity")

	e := w.New()
	w.Set(e, position, Position{X: 0, Y: 0})
	w.Set(e, velocity, Velocity{X: 1, Y: 0})

	filter, _ := reflecs.ParseFilter(w, "Position, Velocity")
	query := w.NewQuery(filter)

	query.Each(func(b *reflecs.Batch) {
		pos := reflecs.Field[Position](b, 0)
		vel := reflecs.Field[Velocity](b, 1)
		for i := range pos {
			pos[i].X += vel[i].X
			pos[i].Y += vel[i].Y
		}
	})
*/
package reflecs
