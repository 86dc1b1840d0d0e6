// Package memory provides shared WebAssembly linear memory with atomic
// wait/notify.
//
// A Shared memory is reserved once at its maximum size and never moves. Any
// number of goroutines may read and write its bytes directly, grow it, and
// block on addresses inside it:
//
//	mem, err := memory.NewShared(memory.StaticPlan(memory.SharedType(1, 4)))
//	if err != nil {
//	    return err
//	}
//	defer mem.Close()
//
//	g, err := mem.Grow(2, nil) // 64 KiB -> 192 KiB
//
//	// goroutine A
//	res, err := mem.AtomicWait32(0x100, 0, 5*time.Second)
//
//	// goroutine B
//	binary.LittleEndian.PutUint32(mem.Bytes()[0x100:], 1)
//	woken, err := mem.AtomicNotify(0x100, 1)
//
// # Growth
//
// Grow is serialized by a write lock and publishes the new length through the
// memory's Definition with a sequentially consistent store before returning.
// Readers that only need the length use Definition().Length() without
// locking. Growing past the maximum returns a growth-denied error and leaves
// the size unchanged. New pages are committed zero-filled before the length
// that covers them is published.
//
// # Wait and Notify
//
// AtomicWait32/AtomicWait64 compare the value at an aligned, in-bounds
// address and park the caller if it matches. The compare and the park are
// atomic with respect to AtomicNotify, so a notify issued after the value
// changed is never lost. Misaligned or out-of-bounds addresses are faults
// (see errors.IsFault), never wait outcomes.
//
// # Handles
//
// Clone returns another handle to the same memory. The backing reservation
// is released when the last handle is closed.
package memory
