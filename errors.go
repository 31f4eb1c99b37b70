package reflecs

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
)

// barkTrace annotates an error with a stack trace the way the teacher's
// entity.go/query.go do at their panic sites, instead of panicking with a
// bare error.
func barkTrace(err error) error {
	return bark.AddTrace(err)
}

// InvalidHandle is returned when an Entity's generation does not match the
// one currently live at its index, or the index was never issued.
type InvalidHandle struct {
	Entity Entity
}

func (e InvalidHandle) Error() string {
	return fmt.Sprintf("reflecs: invalid handle %d (stale or unissued)", uint64(e.Entity))
}

// TypeMismatch is returned by Set/GetMut when the component is not
// registered, is a tag, or the supplied value's type does not match the
// component's registered type.
type TypeMismatch struct {
	Component Entity
	Reason    string
}

func (e TypeMismatch) Error() string {
	return fmt.Sprintf("reflecs: type mismatch for component %d: %s", uint64(e.Component), e.Reason)
}

// ColumnAccessViolation is returned when a term declared read-only (In) is
// written through.
type ColumnAccessViolation struct {
	Term int
}

func (e ColumnAccessViolation) Error() string {
	return fmt.Sprintf("reflecs: write through read-only term %d", e.Term)
}

// ColumnIsShared is returned when code assumes an owned (per-row) column
// but the term resolved to a shared (single-value) column.
type ColumnIsShared struct {
	Term int
}

func (e ColumnIsShared) Error() string {
	return fmt.Sprintf("reflecs: term %d is shared, not owned", e.Term)
}

// ColumnIsNotShared is returned when code assumes a shared column but the
// term resolved to an owned column.
type ColumnIsNotShared struct {
	Term int
}

func (e ColumnIsNotShared) Error() string {
	return fmt.Sprintf("reflecs: term %d is owned, not shared", e.Term)
}

// OutOfMemory is returned when an archetype append/grow could not be
// satisfied; the caller's state is left unchanged.
type OutOfMemory struct {
	Reason string
}

func (e OutOfMemory) Error() string {
	return fmt.Sprintf("reflecs: out of memory: %s", e.Reason)
}

// ParseError is returned by the filter grammar parser.
type ParseError struct {
	Input  string
	Offset int
	Reason string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("reflecs: parse error at %d in %q: %s", e.Offset, e.Input, e.Reason)
}

// IOError is returned by the stream codec on truncated input or a bad tag.
type IOError struct {
	Reason string
}

func (e IOError) Error() string {
	return fmt.Sprintf("reflecs: io error: %s", e.Reason)
}

// InternalError indicates an invariant violation. Production code paths
// panic with this wrapped in a bark trace; it is still an error value so
// callers that recover can inspect it.
type InternalError struct {
	Reason string
}

func (e InternalError) Error() string {
	return fmt.Sprintf("reflecs: internal error: %s", e.Reason)
}

// LockedWorldError is the panic value (wrapped in a bark trace) when a
// structural mutation is attempted while the world is in readonly
// (iterating) mode and deferral was disabled by the caller.
type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "reflecs: world is readonly (mutation not deferred)"
}
