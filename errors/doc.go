// Package errors provides structured error types for shared memory operations.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// Three families matter to callers:
//
//   - configuration errors, returned when a shared memory cannot be built
//   - faults, raised by wait/notify address validation (misaligned or out of bounds)
//   - growth denial, a recoverable failure of memory.grow
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseGrow, errors.KindGrowthDenied).
//		Value(newSize).
//		Detail("exceeds maximum of %d bytes", max).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Unaligned(addr, 4)
//	err := errors.OutOfBounds(addr, 8, length)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
