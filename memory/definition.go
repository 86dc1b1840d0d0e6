package memory

import (
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/wasm-threads/errors"
)

// Definition is the base/length pair handed to generated code.
//
// The base never changes once published. The length only grows and is
// written exclusively by Grow, with a sequentially consistent store, so any
// goroutine may read it with Length without further synchronization.
type Definition struct {
	base   unsafe.Pointer
	length atomic.Uint64
}

// Base returns the address of byte 0.
func (d *Definition) Base() unsafe.Pointer {
	return d.base
}

// Length returns the current size in bytes.
func (d *Definition) Length() uint64 {
	return d.length.Load()
}

// atomicAddr checks that [addr, addr+size) is in bounds and addr is aligned,
// and returns the host address of addr.
func (d *Definition) atomicAddr(addr, size, align uint64) (unsafe.Pointer, error) {
	if addr%align != 0 {
		return nil, errors.Unaligned(addr, align)
	}
	length := d.Length()
	if addr > length || size > length-addr {
		return nil, errors.OutOfBounds(addr, size, length)
	}
	return unsafe.Add(d.base, int(addr)), nil
}
