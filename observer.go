package reflecs

// EventKind is one of the three mutation events a trigger/observer can
// subscribe to (spec §4.7), grounded on flecs' ecs_observer_init /
// observer_callback (original_source/src/observer.c).
type EventKind int

const (
	OnAdd EventKind = iota
	OnRemove
	OnSet
)

// TriggerEvent is what a trigger or observer callback receives: which
// entity/component/event fired, in which archetype/row, and — for an
// Observer with more than one term — which term index matched.
type TriggerEvent struct {
	World     *World
	Entity    Entity
	Component Entity
	Kind      EventKind
	TermIndex int
	Archetype *Archetype
	Row       int
}

// trigger is a single-component subscription installed on the world; it
// is the primitive both OnTrigger and Observer build on.
type trigger struct {
	component Entity
	events    map[EventKind]bool
	callback  func(TriggerEvent)
}

func toEventSet(events []EventKind) map[EventKind]bool {
	set := make(map[EventKind]bool, len(events))
	for _, e := range events {
		set[e] = true
	}
	return set
}

// OnTrigger installs a single-component trigger, firing callback whenever
// component undergoes one of events. Triggers for the same component fire
// in registration order (spec §5 point 4).
func (w *World) OnTrigger(component Entity, events []EventKind, callback func(TriggerEvent)) {
	tr := &trigger{component: component, events: toEventSet(events), callback: callback}
	w.triggers[component] = append(w.triggers[component], tr)
}

// Observer re-evaluates a multi-term Filter whenever any of its positive,
// This-sourced terms' components change, per original_source/src/observer.c:
// ecs_observer_init installs one trigger per matching term and
// populate_columns/observer_callback re-run the whole filter before
// invoking the user callback, threading the triggering term's index
// through as TriggerEvent.TermIndex.
type Observer struct {
	filter   *Filter
	events   map[EventKind]bool
	callback func(TriggerEvent, *Batch)
}

// NewObserver installs an Observer. Only positive (non-Not), This-sourced
// terms with a concrete (non-wildcard) component id get a trigger
// installed; Not/Optional/Fixed/wildcard terms are evaluated only as part
// of the re-check, never as a trigger source (see DESIGN.md). callback
// receives, alongside the firing TriggerEvent, a synthesized one-archetype
// Batch whose columns point at the affected archetype's data (spec §4.7),
// built the same way a Query resolves a match (query.go's resolveTerm).
func (w *World) NewObserver(filter *Filter, events []EventKind, callback func(TriggerEvent, *Batch)) *Observer {
	o := &Observer{filter: filter, events: toEventSet(events), callback: callback}
	for i, t := range filter.Terms {
		if t.Op == OpNot || t.Op == OpOptional || t.Source != SourceThis {
			continue
		}
		if t.Component.IsPair() && (t.Component.Relation() == Wildcard || t.Component.Object() == Wildcard) {
			continue
		}
		termIndex := i
		w.OnTrigger(t.Component, events, func(ev TriggerEvent) {
			ev.TermIndex = termIndex
			o.handle(ev)
		})
	}
	return o
}

func (o *Observer) handle(ev TriggerEvent) {
	if !o.filter.matchesArchetype(ev.Archetype) {
		return
	}
	a := ev.Archetype
	m := &queryMatch{
		archetype: a,
		typeIndex: make([]int, len(o.filter.Terms)),
		shared:    make([]bool, len(o.filter.Terms)),
		present:   make([]bool, len(o.filter.Terms)),
	}
	for i, t := range o.filter.Terms {
		idx, shared, present := resolveTerm(a, t)
		m.typeIndex[i] = idx
		m.shared[i] = shared
		m.present[i] = present
	}
	b := &Batch{world: ev.World, filter: o.filter, archetype: a, match: m}
	o.callback(ev, b)
}
