// Package guest assembles small WebAssembly modules that call the atomics
// host module from guest code.
//
// Host modules cannot be called directly, so demos and tests instantiate the
// module from Atomics and call its exports:
//
//	size() -> i32
//	grow(delta i32) -> i32
//	wait32(addr i32, expected i32, timeout_ns i64) -> i32
//	wait64(addr i32, expected i64, timeout_ns i64) -> i32
//	notify(addr i32, count i32) -> i32
//	load32(addr i32) -> i32          i32.atomic.load
//	store32(addr i32, value i32)     i32.atomic.store
//
// The module defines one shared memory exported as "memory".
package guest
