package reflecs

import (
	"reflect"
	"unsafe"
)

// column is a dense, type-erased array for one data component. It is
// backed by a reflect.Value slice so RegisterComponent[T] can create one
// without the core knowing T, and exposes an unsafe-pointer fast path for
// per-row access the way edwinsyarief-lazyecs' Filter.Get does.
type column struct {
	elem reflect.Type
	size uintptr
	data reflect.Value // a slice of elem, len == owning archetype's row count
}

func newColumn(elem reflect.Type) *column {
	return &column{
		elem: elem,
		size: elem.Size(),
		data: reflect.MakeSlice(reflect.SliceOf(elem), 0, 0),
	}
}

func (c *column) Len() int {
	return c.data.Len()
}

// append grows the column by one zero-valued element and returns its index.
func (c *column) append() int {
	c.data = reflect.Append(c.data, reflect.Zero(c.elem))
	return c.data.Len() - 1
}

// swapRemove removes row, moving the last element into its place (mirrors
// the teacher's table swap-remove semantics). Returns whether a move
// happened (false if row was already the last element).
func (c *column) swapRemove(row int) (moved bool) {
	last := c.data.Len() - 1
	if row != last {
		c.data.Index(row).Set(c.data.Index(last))
		moved = true
	}
	c.data = c.data.Slice(0, last)
	return moved
}

// at returns an addressable reflect.Value for row.
func (c *column) at(row int) reflect.Value {
	return c.data.Index(row)
}

// ptr returns an unsafe pointer to row's backing memory, for callers that
// want a raw *T via unsafe.Pointer conversion (Field).
func (c *column) ptr(row int) unsafe.Pointer {
	base := c.data.Pointer()
	return unsafe.Pointer(base + uintptr(row)*c.size)
}

// bytes returns the raw backing bytes of the whole column, for the stream
// codec (spec §4.8). The returned slice aliases the column's storage.
func (c *column) bytes() []byte {
	n := c.data.Len()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(c.data.Pointer())), n*int(c.size))
}

// setFromValue overwrites row with the reflect.Value v, which must be
// assignable to the column's element type.
func (c *column) setFromValue(row int, v reflect.Value) {
	c.data.Index(row).Set(v)
}

// copyRow copies src[srcRow] into dst[dstRow]; both columns must share the
// same element type (checked by the caller via component id equality).
func copyRow(dst, src *column, dstRow, srcRow int) {
	dst.data.Index(dstRow).Set(src.data.Index(srcRow))
}
