package reflecs

import (
	"encoding/binary"
	"reflect"
	"unsafe"
)

// Wire tags, one byte each, identifying the field that follows — mirrors
// the ecs_blob_header_kind_t tags in original_source/src/stream.c.
const (
	tagComponentHeader byte = 1
	tagTableHeader      byte = 2
	tagColumnHeader      byte = 3
	tagFooter            byte = 4
)

// codecVersion is the single value written to the footer segment (spec
// §9's Open Question resolution: "footer = one little-endian u32 version
// stamp").
const codecVersion uint32 = 1

type codecStage int

const (
	stageComponentHeader codecStage = iota
	stageComponentID
	stageComponentSize
	stageComponentNameLen
	stageComponentName

	stageTableHeader
	stageTableTypeLen
	stageTableType
	stageTableRowCount
	stageColumnHeader
	stageColumnSize
	stageColumnData

	stageFooter
	stageDone
)

// Encoder streams a world's snapshot (every registered component's
// metadata, then every archetype's rows) out one atomic field at a time,
// little-endian, so callers can drain it into buffers of any size (spec
// §4.8), grounded on original_source/src/stream.c's component/table
// readers.
type Encoder struct {
	w     *World
	stage codecStage

	compIdx int

	archIdx  int
	archs    []*Archetype
	typeIdx  int
	colIdx   int // 0 = synthetic entity-id column, 1..N = type.ids[colIdx-1]
	colTotal int
	chunk    []byte
	written  int
}

// NewEncoder starts a snapshot of w.
func NewEncoder(w *World) *Encoder {
	return &Encoder{w: w, archs: w.types.all()}
}

// Next writes as much of the next atomic field as fits in buf. It returns
// n==0, done==false if buf is smaller than the field currently in flight
// (the caller should retry with a larger buffer), and also when it only
// advanced to the next stage without writing (the caller just calls again);
// done==true once the footer has been fully written.
func (e *Encoder) Next(buf []byte) (n int, done bool) {
	if e.stage == stageDone {
		return 0, true
	}
	switch e.stage {
	case stageComponentHeader:
		if e.compIdx >= len(e.w.componentOrder) {
			e.stage = stageTableHeader
			return 0, false
		}
		if len(buf) < 1 {
			return 0, false
		}
		buf[0] = tagComponentHeader
		e.stage = stageComponentID
		return 1, false

	case stageComponentID:
		if len(buf) < 4 {
			return 0, false
		}
		id := e.w.componentOrder[e.compIdx]
		binary.LittleEndian.PutUint32(buf, uint32(id))
		e.stage = stageComponentSize
		return 4, false

	case stageComponentSize:
		if len(buf) < 4 {
			return 0, false
		}
		meta := e.w.components[e.w.componentOrder[e.compIdx]]
		binary.LittleEndian.PutUint32(buf, meta.record.Size)
		e.stage = stageComponentNameLen
		return 4, false

	case stageComponentNameLen:
		if len(buf) < 4 {
			return 0, false
		}
		meta := e.w.components[e.w.componentOrder[e.compIdx]]
		e.chunk = []byte(meta.record.Name)
		e.written = 0
		binary.LittleEndian.PutUint32(buf, uint32(len(e.chunk)))
		e.stage = stageComponentName
		return 4, false

	case stageComponentName:
		n := copy(buf, e.chunk[e.written:])
		e.written += n
		if e.written == len(e.chunk) {
			e.compIdx++
			e.stage = stageComponentHeader
		}
		return n, false

	case stageTableHeader:
		if len(buf) < 1 {
			return 0, false
		}
		if e.archIdx >= len(e.archs) {
			buf[0] = tagFooter
			e.stage = stageFooter
			return 1, false
		}
		buf[0] = tagTableHeader
		e.typeIdx = 0
		e.colIdx = 0
		e.colTotal = len(e.archs[e.archIdx].typ.ids) + 1 // +1 for the entity-id column
		e.stage = stageTableTypeLen
		return 1, false

	case stageTableTypeLen:
		if len(buf) < 4 {
			return 0, false
		}
		binary.LittleEndian.PutUint32(buf, uint32(len(e.archs[e.archIdx].typ.ids)))
		e.stage = stageTableType
		return 4, false

	case stageTableType:
		a := e.archs[e.archIdx]
		if e.typeIdx == len(a.typ.ids) {
			e.stage = stageTableRowCount
			return 0, false
		}
		if len(buf) < 4 {
			return 0, false
		}
		binary.LittleEndian.PutUint32(buf, uint32(a.typ.ids[e.typeIdx]))
		e.typeIdx++
		return 4, false

	case stageTableRowCount:
		if len(buf) < 4 {
			return 0, false
		}
		binary.LittleEndian.PutUint32(buf, uint32(e.archs[e.archIdx].Len()))
		e.stage = stageColumnHeader
		return 4, false

	case stageColumnHeader:
		if e.colIdx == e.colTotal {
			e.archIdx++
			e.stage = stageTableHeader
			return 0, false
		}
		if len(buf) < 1 {
			return 0, false
		}
		buf[0] = tagColumnHeader
		e.stage = stageColumnSize
		return 1, false

	case stageColumnSize:
		if len(buf) < 4 {
			return 0, false
		}
		e.chunk = e.columnBytes()
		e.written = 0
		binary.LittleEndian.PutUint32(buf, uint32(len(e.chunk)))
		e.stage = stageColumnData
		return 4, false

	case stageColumnData:
		n := copy(buf, e.chunk[e.written:])
		e.written += n
		if e.written == len(e.chunk) {
			e.colIdx++
			e.stage = stageColumnHeader
		}
		return n, false

	case stageFooter:
		if len(buf) < 4 {
			return 0, false
		}
		binary.LittleEndian.PutUint32(buf, codecVersion)
		e.stage = stageDone
		return 4, true
	}
	return 0, true
}

// columnBytes returns the raw bytes for the column currently selected by
// colIdx: the synthetic entity-id column at index 0, or the data column
// for typ.ids[colIdx-1] — empty if that id is a tag (no column).
func (e *Encoder) columnBytes() []byte {
	a := e.archs[e.archIdx]
	if e.colIdx == 0 {
		ids := a.Entities()
		buf := make([]byte, len(ids)*8)
		for i, id := range ids {
			binary.LittleEndian.PutUint64(buf[i*8:], uint64(id))
		}
		return buf
	}
	id := a.typ.ids[e.colIdx-1]
	col, ok := a.columns[id]
	if !ok {
		return nil
	}
	return col.bytes()
}

// decodedComponent and decodedTable are the parsed form a Decoder
// produces; Rebuild recreates a world's component registry and archetypes
// from them.
type decodedComponent struct {
	id   uint32
	size uint32
	name string
}

type decodedTable struct {
	typeIDs  []uint32
	rowCount uint32
	columns  [][]byte // columns[0] is the 8-byte-per-row entity-id column
}

// Decoder consumes a byte stream produced by Encoder, one atomic field at
// a time, rebuilding the decoded components/tables incrementally so it
// can be fed buffers of any size.
type Decoder struct {
	stage codecStage

	components []decodedComponent
	tables     []decodedTable

	curComp  decodedComponent
	curTable decodedTable
	typeLen  uint32
	nameLen  uint32
	colSize  uint32
	chunk    []byte
	written  uint32

	Version uint32
}

// NewDecoder returns an empty Decoder ready to Feed.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes as much of buf as completes the field currently in
// flight, returning the number of bytes consumed. It returns done==true
// once the footer has been read. consumed==0 with a nil error means either
// that buf was smaller than the field in flight (the caller should retry
// with more data) or that Feed only advanced to the next stage after
// peeking at a tag (the caller just calls again with the same data).
func (d *Decoder) Feed(buf []byte) (consumed int, done bool, err error) {
	if d.stage == stageDone {
		return 0, true, nil
	}
	switch d.stage {
	case stageComponentHeader:
		if len(buf) < 1 {
			return 0, false, nil
		}
		if buf[0] == tagTableHeader {
			d.stage = stageTableHeader
			return 0, false, nil
		}
		if buf[0] != tagComponentHeader {
			return 0, false, IOError{Reason: "expected component or table header tag"}
		}
		d.stage = stageComponentID
		return 1, false, nil

	case stageComponentID:
		if len(buf) < 4 {
			return 0, false, nil
		}
		d.curComp = decodedComponent{id: binary.LittleEndian.Uint32(buf)}
		d.stage = stageComponentSize
		return 4, false, nil

	case stageComponentSize:
		if len(buf) < 4 {
			return 0, false, nil
		}
		d.curComp.size = binary.LittleEndian.Uint32(buf)
		d.stage = stageComponentNameLen
		return 4, false, nil

	case stageComponentNameLen:
		if len(buf) < 4 {
			return 0, false, nil
		}
		d.nameLen = binary.LittleEndian.Uint32(buf)
		d.chunk = make([]byte, d.nameLen)
		d.written = 0
		d.stage = stageComponentName
		if d.nameLen == 0 {
			d.curComp.name = ""
			d.components = append(d.components, d.curComp)
			d.stage = stageComponentHeader
		}
		return 4, false, nil

	case stageComponentName:
		n := copy(d.chunk[d.written:], buf)
		d.written += uint32(n)
		if d.written == d.nameLen {
			d.curComp.name = string(d.chunk)
			d.components = append(d.components, d.curComp)
			d.stage = stageComponentHeader
		}
		return n, false, nil

	case stageTableHeader:
		if len(buf) < 1 {
			return 0, false, nil
		}
		if buf[0] == tagFooter {
			d.stage = stageFooter
			return 1, false, nil
		}
		if buf[0] != tagTableHeader {
			return 0, false, IOError{Reason: "expected table or footer tag"}
		}
		d.curTable = decodedTable{}
		d.stage = stageTableTypeLen
		return 1, false, nil

	case stageTableTypeLen:
		if len(buf) < 4 {
			return 0, false, nil
		}
		d.typeLen = binary.LittleEndian.Uint32(buf)
		d.curTable.typeIDs = make([]uint32, 0, d.typeLen)
		d.stage = stageTableType
		if d.typeLen == 0 {
			d.stage = stageTableRowCount
		}
		return 4, false, nil

	case stageTableType:
		if len(buf) < 4 {
			return 0, false, nil
		}
		d.curTable.typeIDs = append(d.curTable.typeIDs, binary.LittleEndian.Uint32(buf))
		if uint32(len(d.curTable.typeIDs)) == d.typeLen {
			d.stage = stageTableRowCount
		}
		return 4, false, nil

	case stageTableRowCount:
		if len(buf) < 4 {
			return 0, false, nil
		}
		d.curTable.rowCount = binary.LittleEndian.Uint32(buf)
		d.stage = stageColumnHeader
		return 4, false, nil

	case stageColumnHeader:
		if len(buf) < 1 {
			return 0, false, nil
		}
		want := len(d.curTable.typeIDs) + 1
		if len(d.curTable.columns) == want {
			d.tables = append(d.tables, d.curTable)
			d.stage = stageTableHeader
			return 0, false, nil
		}
		if buf[0] != tagColumnHeader {
			return 0, false, IOError{Reason: "expected column header tag"}
		}
		d.stage = stageColumnSize
		return 1, false, nil

	case stageColumnSize:
		if len(buf) < 4 {
			return 0, false, nil
		}
		d.colSize = binary.LittleEndian.Uint32(buf)
		d.chunk = make([]byte, d.colSize)
		d.written = 0
		d.stage = stageColumnData
		if d.colSize == 0 {
			d.curTable.columns = append(d.curTable.columns, nil)
			d.stage = stageColumnHeader
		}
		return 4, false, nil

	case stageColumnData:
		n := copy(d.chunk[d.written:], buf)
		d.written += uint32(n)
		if d.written == d.colSize {
			d.curTable.columns = append(d.curTable.columns, d.chunk)
			d.stage = stageColumnHeader
		}
		return n, false, nil

	case stageFooter:
		if len(buf) < 4 {
			return 0, false, nil
		}
		d.Version = binary.LittleEndian.Uint32(buf)
		d.stage = stageDone
		return 4, true, nil
	}
	return 0, true, nil
}

// Snapshot drains an Encoder for w into a single byte slice. A resumable
// driver would call Encoder.Next directly against fixed-size buffers;
// this is the convenience path for callers that just want the bytes.
func Snapshot(w *World) []byte {
	enc := NewEncoder(w)
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, done := enc.Next(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if done {
			break
		}
	}
	return out
}

// Rebuild reconstructs a *World from a fully-decoded snapshot (spec §8
// testable property 7: decode(encode(world)) ≅ world). hints supplies the
// Go reflect.Type backing each named data component; a data component with
// no entry in hints materializes as a fixed-size [N]byte array instead of
// its original Go type (the wire format carries a component's byte size
// and name, never a reflect.Type — see DESIGN.md). Raw entity ids are not
// preserved across a restore: the entity-id column records the source
// world's own allocator state, which a fresh Init() has no reason to
// reproduce bit-for-bit, so only entity count, archetype membership and
// component data are required to match.
func (d *Decoder) Rebuild(hints map[string]reflect.Type) (*World, error) {
	if d.stage != stageDone {
		return nil, IOError{Reason: "Rebuild called before decode finished"}
	}
	w, err := Init()
	if err != nil {
		return nil, err
	}

	builtins := map[string]Entity{
		"EcsComponent": w.ecsComponent,
		"ChildOf":      w.childOf,
		"InstanceOf":   w.instanceOf,
	}

	idMap := make(map[uint32]Entity, len(d.components))
	var ecsComponentOldID uint32
	for _, c := range d.components {
		if c.name == "EcsComponent" {
			ecsComponentOldID = c.id
		}
		if e, ok := builtins[c.name]; ok {
			idMap[c.id] = e
			continue
		}
		elem := hints[c.name]
		if elem == nil && c.size > 0 {
			elem = reflect.ArrayOf(int(c.size), reflect.TypeOf(byte(0)))
		}
		idMap[c.id] = w.registerComponentType(c.name, elem)
	}

	for _, tbl := range d.tables {
		if len(tbl.typeIDs) == 1 && tbl.typeIDs[0] == ecsComponentOldID {
			// archetype 0, the component registry itself — registering the
			// components above already recreated these rows.
			continue
		}
		newIDs := make([]Entity, len(tbl.typeIDs))
		for i, oldID := range tbl.typeIDs {
			newIDs[i] = idMap[oldID]
		}
		for row := 0; row < int(tbl.rowCount); row++ {
			e := w.New()
			for i, newID := range newIDs {
				meta, _ := w.componentMeta(newID)
				if meta.elem == nil {
					w.Add(e, newID)
					continue
				}
				col := tbl.columns[i+1]
				elemSize := int(meta.elem.Size())
				start := row * elemSize
				data := col[start : start+elemSize]
				val := reflect.NewAt(meta.elem, unsafe.Pointer(&data[0])).Elem().Interface()
				if err := w.Set(e, newID, val); err != nil {
					return nil, err
				}
			}
		}
	}

	return w, nil
}

// Restore decodes a Snapshot byte slice produced by Snapshot/Encoder.
func Restore(data []byte) (*Decoder, error) {
	d := NewDecoder()
	off := 0
	for {
		before := d.stage
		n, done, err := d.Feed(data[off:])
		if err != nil {
			return nil, err
		}
		if n == 0 && !done && d.stage == before {
			return nil, IOError{Reason: "truncated snapshot"}
		}
		off += n
		if done {
			return d, nil
		}
	}
}
