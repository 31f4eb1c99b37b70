package reflecs

import (
	"reflect"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	position := RegisterComponent[Position](w, "Position")
	velocity := RegisterComponent[Velocity](w, "Velocity")

	e1 := w.New()
	w.Set(e1, position, Position{X: 1, Y: 2})
	w.Set(e1, velocity, Velocity{X: 0.5})
	e2 := w.New()
	w.Set(e2, position, Position{X: 3, Y: 4})

	data := Snapshot(w)
	if len(data) == 0 {
		t.Fatalf("expected non-empty snapshot")
	}

	dec, err := Restore(data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if dec.Version != codecVersion {
		t.Fatalf("expected footer version %d, got %d", codecVersion, dec.Version)
	}

	if len(dec.components) != len(w.componentOrder) {
		t.Fatalf("expected %d decoded components, got %d", len(w.componentOrder), len(dec.components))
	}
	var sawPosition bool
	for _, c := range dec.components {
		if c.name == "Position" {
			sawPosition = true
			if c.size != uint32(8*2) {
				t.Fatalf("expected Position size 16, got %d", c.size)
			}
		}
	}
	if !sawPosition {
		t.Fatalf("expected a decoded component named Position")
	}

	var totalRows uint32
	for _, tbl := range dec.tables {
		totalRows += tbl.rowCount
	}
	if totalRows == 0 {
		t.Fatalf("expected at least one decoded row across tables")
	}

	// S6: decode into a fresh world and check entity-by-entity equality of
	// components, not just raw counts.
	w2, err := dec.Rebuild(map[string]reflect.Type{
		"Position": reflect.TypeOf(Position{}),
		"Velocity": reflect.TypeOf(Velocity{}),
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	position2, ok := w2.Lookup("Position")
	if !ok {
		t.Fatalf("expected Position to be registered in the rebuilt world")
	}
	velocity2, ok := w2.Lookup("Velocity")
	if !ok {
		t.Fatalf("expected Velocity to be registered in the rebuilt world")
	}

	filter, err := ParseFilter(w2, "Position")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	q := w2.NewQuery(filter)

	type rebuiltEntity struct {
		pos    Position
		vel    Velocity
		hasVel bool
	}
	var got []rebuiltEntity
	q.Each(func(b *Batch) {
		for _, e := range b.Entities() {
			p, _ := w2.Get(e, position2)
			re := rebuiltEntity{pos: p.(Position)}
			if v, ok := w2.Get(e, velocity2); ok {
				re.vel = v.(Velocity)
				re.hasVel = true
			}
			got = append(got, re)
		}
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 rebuilt entities with Position, got %d (%+v)", len(got), got)
	}
	var sawE1, sawE2 bool
	for _, re := range got {
		switch {
		case re.pos == (Position{X: 1, Y: 2}) && re.hasVel && re.vel == (Velocity{X: 0.5}):
			sawE1 = true
		case re.pos == (Position{X: 3, Y: 4}) && !re.hasVel:
			sawE2 = true
		}
	}
	if !sawE1 {
		t.Fatalf("expected a rebuilt entity matching e1 (Position{1,2}, Velocity{0.5}), got %+v", got)
	}
	if !sawE2 {
		t.Fatalf("expected a rebuilt entity matching e2 (Position{3,4}, no Velocity), got %+v", got)
	}
}

func TestCodecResumesAcrossSmallBuffers(t *testing.T) {
	w := newTestWorld(t)
	position := RegisterComponent[Position](w, "Position")
	e := w.New()
	w.Set(e, position, Position{X: 1, Y: 1})

	enc := NewEncoder(w)
	var out []byte
	buf := make([]byte, 3) // smaller than any 4-byte field on purpose
	for {
		n, done := enc.Next(buf)
		if n == 0 && !done {
			buf = make([]byte, len(buf)+1) // grow until the stuck field fits
			continue
		}
		out = append(out, buf[:n]...)
		if done {
			break
		}
		buf = buf[:cap(buf)]
	}

	dec, err := Restore(out)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if dec.Version != codecVersion {
		t.Fatalf("expected version %d, got %d", codecVersion, dec.Version)
	}
}
