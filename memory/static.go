package memory

import (
	"sync/atomic"

	"github.com/wippyai/wasm-threads/errors"
	"github.com/wippyai/wasm-threads/internal/backing"
)

// Range is a half-open host address range.
type Range = backing.Range

// Memory is a linear memory: either an exclusively owned *Static or a *Shared.
// The set is closed; Wrap takes a *Static, so a *Shared cannot be wrapped again.
type Memory interface {
	Type() Type
	Size() uint64
	Maximum() (uint64, bool)
	isMemory()
}

var (
	_ Memory = (*Static)(nil)
	_ Memory = (*Shared)(nil)
)

// Static is an exclusively owned memory in a fixed reservation. It is the
// input to Wrap; once wrapped, the Shared memory owns its store.
type Static struct {
	store   *backing.Store
	ty      Type
	claimed atomic.Bool
}

// NewStatic reserves a static memory for plan. A memory without a declared
// maximum needs a non-zero plan.Bound, which then acts as its maximum.
func NewStatic(plan Plan) (*Static, error) {
	if plan.Style != StyleStatic {
		return nil, errors.InvalidConfig("static memory requires a static plan, got %s", plan.Style)
	}
	minBytes, maxBytes, hasMax, err := plan.Type.limits()
	if err != nil {
		return nil, err
	}
	if !hasMax {
		if plan.Bound == 0 {
			return nil, errors.InvalidConfig("static memory needs a maximum or a bound")
		}
		maxBytes = plan.Bound
	}
	if plan.Bound != 0 && plan.Bound < maxBytes {
		return nil, errors.InvalidConfig("bound of %d bytes is below the maximum of %d", plan.Bound, maxBytes)
	}

	store, err := backing.New(plan.Type.PageSizeLog2, minBytes, maxBytes, plan.Bound)
	if err != nil {
		return nil, err
	}
	return &Static{store: store, ty: plan.Type}, nil
}

// Type returns the memory type the memory was created with.
func (m *Static) Type() Type { return m.ty }

// Size returns the current size in bytes.
func (m *Static) Size() uint64 { return m.store.ByteSize() }

// Maximum returns the maximum size in bytes.
func (m *Static) Maximum() (uint64, bool) { return m.store.MaximumByteSize(), true }

// Bytes returns the memory contents.
func (m *Static) Bytes() []byte { return m.store.Bytes() }

// Close releases the reservation unless a Shared memory took ownership of it.
func (m *Static) Close() error {
	if !m.claimed.CompareAndSwap(false, true) {
		return nil
	}
	return m.store.Close()
}

func (m *Static) isMemory() {}
