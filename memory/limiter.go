package memory

import "github.com/wippyai/wasm-threads/errors"

// Limiter is consulted by Grow on behalf of the embedding host. Calls happen
// with the growth lock held, so implementations must not grow the same
// memory.
type Limiter interface {
	// MemoryGrowing is asked before committing a grow from current to
	// desired bytes. Returning false denies the grow; an error aborts it.
	MemoryGrowing(current, desired, maximum uint64) (bool, error)

	// MemoryGrowFailed is told why a grow was denied. Returning an error
	// replaces the recoverable denial with that error.
	MemoryGrowFailed(err error) error
}

// Limits is a Limiter with a fixed byte budget.
type Limits struct {
	// MemorySize caps the size of any memory in bytes. Zero means no cap.
	MemorySize uint64
	// TrapOnGrowFailure turns every denied grow into a hard error.
	TrapOnGrowFailure bool
}

// MemoryGrowing implements Limiter.
func (l *Limits) MemoryGrowing(_, desired, _ uint64) (bool, error) {
	if l.MemorySize != 0 && desired > l.MemorySize {
		if l.TrapOnGrowFailure {
			return false, errors.New(errors.PhaseGrow, errors.KindLimiter).
				Value(desired).
				Detail("memory size of %d bytes exceeds limit of %d", desired, l.MemorySize).
				Build()
		}
		return false, nil
	}
	return true, nil
}

// MemoryGrowFailed implements Limiter.
func (l *Limits) MemoryGrowFailed(err error) error {
	if l.TrapOnGrowFailure {
		return err
	}
	return nil
}
