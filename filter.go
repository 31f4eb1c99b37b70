package reflecs

import "github.com/TheBitDrifter/mask"

// Operator is how a term contributes to a filter match (spec §4.4/§6).
type Operator int

const (
	OpAnd Operator = iota
	OpOr
	OpNot
	OpOptional
)

// TermSource is where a term's data column comes from.
type TermSource int

const (
	// SourceThis means the term is matched against the archetype being
	// iterated — one value per row.
	SourceThis TermSource = iota
	// SourceFixed means the term reads a single component value off one
	// specific entity, shared across every row of the batch.
	SourceFixed
)

// InOut is a term's declared access mode, used to decide read/write
// safety while iterating (spec §4.5 "IsReadonly").
type InOut int

const (
	InOutNone InOut = iota
	In
	Out
	InOutBoth
)

// Term is one element of a Filter: a component/pair id, how it must be
// present (Op), where its data comes from (Source), and how the iterator
// intends to access it (InOut).
type Term struct {
	Component Entity
	Op        Operator
	Source    TermSource
	Fixed     Entity // valid when Source == SourceFixed
	InOut     InOut
}

// Filter is an ordered list of terms. Consecutive terms chained by OpOr
// form one alternation group ("Velocity, |Speed" reads as "Velocity OR
// Speed", still required as a whole), mirroring the textual grammar in
// spec §6.
type Filter struct {
	Terms []Term
}

type filterClause struct {
	op   Operator
	alts []Term
}

func (f *Filter) clauses() []filterClause {
	var out []filterClause
	for _, t := range f.Terms {
		if t.Op == OpOr && len(out) > 0 {
			last := &out[len(out)-1]
			last.alts = append(last.alts, t)
			continue
		}
		out = append(out, filterClause{op: t.Op, alts: []Term{t}})
	}
	return out
}

// matchesArchetype reports whether an archetype satisfies every clause.
func (f *Filter) matchesArchetype(a *Archetype) bool {
	for _, c := range f.clauses() {
		switch c.op {
		case OpNot:
			for _, t := range c.alts {
				if termPresentInArchetype(a, t) {
					return false
				}
			}
		case OpOptional:
			// Always satisfied; presence is reported per archetype at
			// iteration (Batch.IsPresent).
		default: // OpAnd, possibly Or-expanded
			ok := false
			for _, t := range c.alts {
				if termPresentInArchetype(a, t) {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		}
	}
	return true
}

func termPresentInArchetype(a *Archetype, t Term) bool {
	if t.Source == SourceFixed {
		return a.world.Has(t.Fixed, t.Component)
	}
	return termMatchesType(a, t.Component)
}

// termMatchesType checks a This-sourced id against an archetype's type,
// taking the mask.Mask fast path for plain (non-pair) registered
// components and falling back to an exact Type walk for pairs, wildcards
// and unregistered ids (spec §9 mask-capacity decision, see DESIGN.md).
func termMatchesType(a *Archetype, id Entity) bool {
	if id.IsPair() {
		return a.typ.matchIndex(id) >= 0
	}
	if meta, ok := a.world.components[id]; ok {
		var m mask.Mask
		m.Mark(meta.bit)
		return a.typeMask.ContainsAll(m)
	}
	return a.typ.Contains(id)
}
