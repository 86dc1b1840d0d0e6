package memory

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-threads/errors"
	"github.com/wippyai/wasm-threads/internal/backing"
	"github.com/wippyai/wasm-threads/internal/parking"
)

// Shared is a handle to a linear memory shared between goroutines.
//
// All methods are safe for concurrent use. Size changes are serialized by a
// single lock that is never held while memory contents are accessed.
type Shared struct {
	inner  *sharedInner
	closed atomic.Bool
}

type sharedInner struct {
	mu    sync.RWMutex // guards store metadata and resizing
	store *backing.Store
	spot  *parking.Spot
	def   Definition
	ty    Type
	refs  atomic.Int64
}

// NewShared reserves a new shared memory for plan.
func NewShared(plan Plan) (*Shared, error) {
	if err := plan.checkShared(); err != nil {
		return nil, err
	}
	m, err := NewStatic(plan)
	if err != nil {
		return nil, err
	}
	s, err := Wrap(plan, m)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return s, nil
}

// Wrap takes ownership of m and returns a shared handle to it. plan must
// describe a shared type with a maximum and a static allocation; each Static
// can be wrapped once.
func Wrap(plan Plan, m *Static) (*Shared, error) {
	if err := plan.checkShared(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.InvalidConfig("nil static memory")
	}
	if !m.claimed.CompareAndSwap(false, true) {
		return nil, errors.AlreadyShared()
	}

	inner := &sharedInner{
		store: m.store,
		spot:  parking.Default,
		ty:    plan.Type,
	}
	inner.def.base = m.store.Base()
	inner.def.length.Store(m.store.ByteSize())
	inner.refs.Store(1)

	Logger().Debug("shared memory created",
		zap.Stringer("type", plan.Type),
		zap.Uint64("size", m.store.ByteSize()),
		zap.Uint64("maximum", m.store.MaximumByteSize()),
		zap.Uintptr("base", uintptr(inner.def.base)),
	)
	return &Shared{inner: inner}, nil
}

// Clone returns a new handle to the same memory. Each handle must be closed.
// Cloning a closed handle panics.
func (s *Shared) Clone() *Shared {
	if s.closed.Load() {
		panic("memory: Clone of closed shared memory")
	}
	s.inner.refs.Add(1)
	return &Shared{inner: s.inner}
}

// Close releases this handle. The reservation is freed once the last handle
// is closed and no wait, load or store started through any handle is still
// running; a goroutine parked on the memory keeps it mapped until it returns.
// Closing twice is a no-op.
func (s *Shared) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.inner.release()
}

// enter takes a reference on the memory for the duration of one operation.
// The caller must call s.inner.release when it is done.
func (s *Shared) enter() error {
	if s.closed.Load() || !s.inner.acquire() {
		return errors.Closed("shared memory")
	}
	return nil
}

// acquire adds a reference unless the memory has already been released.
func (in *sharedInner) acquire() bool {
	for {
		n := in.refs.Load()
		if n <= 0 {
			return false
		}
		if in.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops a reference and frees the store when it was the last one.
func (in *sharedInner) release() error {
	if in.refs.Add(-1) != 0 {
		return nil
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.def.length.Store(0)
	Logger().Debug("shared memory released", zap.Uintptr("base", uintptr(in.def.base)))
	return in.store.Close()
}

// Type returns the memory type.
func (s *Shared) Type() Type {
	return s.inner.ty
}

// PageSizeLog2 returns log2 of the page size.
func (s *Shared) PageSizeLog2() uint8 {
	return s.inner.store.PageSizeLog2()
}

// Size returns the current size in bytes, ordered with respect to Grow.
func (s *Shared) Size() uint64 {
	s.inner.mu.RLock()
	defer s.inner.mu.RUnlock()
	return s.inner.store.ByteSize()
}

// Maximum returns the maximum size in bytes. Shared memories always have one.
func (s *Shared) Maximum() (uint64, bool) {
	return s.inner.store.MaximumByteSize(), true
}

// Definition returns the base/length pair for generated code. Callers must
// treat it as read-only.
func (s *Shared) Definition() *Definition {
	return &s.inner.def
}

// Accessible returns the host address range that may currently be accessed.
func (s *Shared) Accessible() Range {
	s.inner.mu.RLock()
	defer s.inner.mu.RUnlock()
	return s.inner.store.Accessible()
}

// Bytes returns the contents at the current size. Reads and writes through
// the slice are not synchronized by the memory; use atomics for values other
// goroutines observe.
func (s *Shared) Bytes() []byte {
	s.inner.mu.RLock()
	defer s.inner.mu.RUnlock()
	return s.inner.store.Bytes()
}

// Waiters returns how many goroutines are parked on addr.
func (s *Shared) Waiters(addr uint64) int {
	return s.inner.spot.Waiters(uintptr(s.inner.def.base) + uintptr(addr))
}

func (s *Shared) isMemory() {}
