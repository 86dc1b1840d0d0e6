package wasmthreads

import (
	"time"

	"github.com/wippyai/wasm-threads/memory"
)

// Sizer reports the size of a linear memory.
type Sizer interface {
	Size() uint64
	Maximum() (uint64, bool)
	PageSizeLog2() uint8
}

// Grower grows a linear memory by whole pages.
type Grower interface {
	Grow(deltaPages uint64, limiter memory.Limiter) (*memory.Growth, error)
}

// Waiter blocks the caller on an address in a linear memory.
type Waiter interface {
	AtomicWait32(addr uint64, expected uint32, timeout time.Duration) (memory.WaitResult, error)
	AtomicWait64(addr uint64, expected uint64, timeout time.Duration) (memory.WaitResult, error)
}

// Notifier wakes callers blocked on an address in a linear memory.
type Notifier interface {
	AtomicNotify(addr uint64, count uint32) (uint32, error)
}

// SharedMemory is everything an instruction handler needs from a shared memory.
type SharedMemory interface {
	Sizer
	Grower
	Waiter
	Notifier
}

var _ SharedMemory = (*memory.Shared)(nil)
