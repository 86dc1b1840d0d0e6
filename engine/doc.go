// Package engine connects shared memories to the wazero runtime.
//
// It provides three pieces:
//
//	NewRuntime          - wazero runtime with optional threads support
//	Allocator           - experimental.MemoryAllocator backing guest memories with *memory.Shared
//	InstantiateAtomics  - host module exposing size/grow/wait/notify on the caller's memory
//
// # Static Reservations
//
// Modules instantiated with a context from WithAllocator get memories whose
// full maximum is reserved up front, wrapped in a *memory.Shared and
// registered with the allocator:
//
//	alloc := engine.NewAllocator(nil)
//	mod, err := rt.InstantiateModule(engine.WithAllocator(ctx, alloc), compiled, cfg)
//	mem, ok := alloc.Memory(mod.Memory())
//
// Host code waits and notifies through mem on the same bytes the guest
// reads and writes. Grow the guest memory through mod.Memory().Grow so the
// engine sees the new length.
//
// # Atomics Host Module
//
// Guests import the functions from DefaultAtomicsModule (or a configured name):
//
//	(import "wasm-threads" "memory.atomic.wait32"
//	    (func $wait32 (param i32 i32 i64) (result i32)))
//	(import "wasm-threads" "memory.atomic.notify"
//	    (func $notify (param i32 i32) (result i32)))
//
// Each call acts on the calling module's memory, which must come from the
// allocator passed to InstantiateAtomics. A wait blocks the calling
// goroutine, which is the guest's thread. Faults (misaligned or
// out-of-bounds addresses) trap the call; a denied grow returns -1 so the
// guest decides what to do.
package engine
