// Package backing provides the fixed-address byte buffer behind a shared
// linear memory.
//
// A Store reserves its whole address range once, at construction, and only
// ever commits more of it. The base address therefore never changes, which is
// what wait/notify relies on when it keys parked waiters by address.
//
// On unix the reservation is an anonymous PROT_NONE mapping and growth is an
// mprotect of the next pages; the kernel hands those pages out zero-filled.
// Elsewhere the reservation is a single Go allocation of the full size.
//
// Store also satisfies wazero's experimental.LinearMemory so wazero can place
// guest memories in the same kind of reservation.
//
// Store has no internal locking. Callers serialize GrowTo against every other
// method; the memory package does this with its growth lock.
package backing
