package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-threads/errors"
	"github.com/wippyai/wasm-threads/memory"
)

// Allocator backs wazero guest memories with shared memories in static
// reservations, so their base address never moves when the guest grows them
// and host functions can wait and notify on the guest's own bytes.
type Allocator struct {
	limiter memory.Limiter

	mu     sync.RWMutex
	byBase map[uintptr]*memory.Shared

	allocated atomic.Int64
	live      atomic.Int64
}

var _ experimental.MemoryAllocator = (*Allocator)(nil)

// NewAllocator creates an allocator. limiter, if not nil, is consulted for
// every grow after a memory's initial allocation.
func NewAllocator(limiter memory.Limiter) *Allocator {
	return &Allocator{
		limiter: limiter,
		byBase:  make(map[uintptr]*memory.Shared),
	}
}

// WithAllocator returns a context that makes modules instantiated with it
// allocate their memories through a.
func WithAllocator(ctx context.Context, a *Allocator) context.Context {
	return experimental.WithMemoryAllocator(ctx, a)
}

// Allocate implements experimental.MemoryAllocator. It reserves maxBytes up
// front; nil is returned if the reservation fails.
func (a *Allocator) Allocate(capacity, maxBytes uint64) experimental.LinearMemory {
	plan := memory.StaticPlan(memory.SharedType(0, maxBytes>>memory.DefaultPageSizeLog2))
	mem, err := memory.NewShared(plan)
	if err != nil {
		Logger().Error("reserve guest memory",
			zap.Uint64("cap", capacity),
			zap.Uint64("max", maxBytes),
			zap.Error(err),
		)
		return nil
	}

	base := uintptr(mem.Definition().Base())
	a.mu.Lock()
	a.byBase[base] = mem
	a.mu.Unlock()

	a.allocated.Add(1)
	a.live.Add(1)
	Logger().Debug("reserved guest memory",
		zap.Uint64("cap", capacity),
		zap.Uint64("max", maxBytes),
		zap.Uintptr("base", base),
	)
	return &guestMemory{mem: mem, base: base, owner: a}
}

// Memory returns the shared memory backing m, which must have been allocated
// by a. Grow the guest memory through m rather than the returned handle, so
// the engine sees the new size.
func (a *Allocator) Memory(m api.Memory) (*memory.Shared, bool) {
	if m == nil {
		return nil, false
	}
	buf, ok := m.Read(0, 0)
	if !ok {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	mem, ok := a.byBase[uintptr(unsafe.Pointer(unsafe.SliceData(buf)))]
	return mem, ok
}

// Allocated returns the number of memories allocated so far.
func (a *Allocator) Allocated() int {
	return int(a.allocated.Load())
}

// Live returns the number of allocated memories not yet freed.
func (a *Allocator) Live() int {
	return int(a.live.Load())
}

type guestMemory struct {
	mem     *memory.Shared
	base    uintptr
	owner   *Allocator
	started bool
	freed   atomic.Bool
}

// Reallocate implements experimental.LinearMemory. The engine serializes
// calls for a memory. The first call sizes the memory to its declared
// minimum and is not subject to the limiter.
func (m *guestMemory) Reallocate(size uint64) []byte {
	limiter := m.owner.limiter
	if !m.started {
		m.started = true
		limiter = nil
	}

	if cur := m.mem.Size(); size > cur {
		delta := (size - cur) >> m.mem.PageSizeLog2()
		if _, err := m.mem.Grow(delta, limiter); err != nil {
			if !errors.IsGrowthDenied(err) {
				panic(err)
			}
			Logger().Debug("guest memory grow denied", zap.Uint64("size", size), zap.Error(err))
			return nil
		}
	}
	return m.mem.Bytes()
}

// Free implements experimental.LinearMemory.
func (m *guestMemory) Free() {
	if !m.freed.CompareAndSwap(false, true) {
		return
	}
	a := m.owner
	a.mu.Lock()
	delete(a.byBase, m.base)
	a.mu.Unlock()
	a.live.Add(-1)

	if err := m.mem.Close(); err != nil {
		Logger().Warn("release guest memory", zap.Uintptr("base", m.base), zap.Error(err))
	}
}
