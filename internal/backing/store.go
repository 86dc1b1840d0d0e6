package backing

import (
	"unsafe"

	"github.com/wippyai/wasm-threads/errors"
)

// Range is a half-open address range [Start, End).
type Range struct {
	Start uintptr
	End   uintptr
}

// Len returns the number of bytes in the range.
func (r Range) Len() uintptr {
	return r.End - r.Start
}

// Store is a reserved, growable byte buffer with a fixed base address.
type Store struct {
	mem       []byte // whole reservation
	size      uint64 // logical byte size
	committed uint64 // bytes readable and writable, host-page rounded
	max       uint64 // logical maximum, never above len(mem)
	pageLog2  uint8
	freed     bool
}

// New reserves reserveBytes of address space and commits minBytes of it.
// maxBytes is the logical limit for GrowTo; reserveBytes below maxBytes is
// raised to maxBytes.
func New(pageSizeLog2 uint8, minBytes, maxBytes, reserveBytes uint64) (*Store, error) {
	if minBytes > maxBytes {
		return nil, errors.InvalidConfig("minimum %d bytes exceeds maximum %d bytes", minBytes, maxBytes)
	}
	if reserveBytes < maxBytes {
		reserveBytes = maxBytes
	}
	if uint64(int(reserveBytes)) != reserveBytes || int(reserveBytes) < 0 {
		return nil, errors.InvalidConfig("reservation of %d bytes exceeds the address space", reserveBytes)
	}

	mem, err := reserve(reserveBytes)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
			Detail("reserve %d bytes", reserveBytes).
			Cause(err).
			Build()
	}

	s := &Store{
		mem:      mem,
		max:      maxBytes,
		pageLog2: pageSizeLog2,
	}
	if err := s.GrowTo(minBytes); err != nil {
		_ = release(mem)
		return nil, err
	}
	return s, nil
}

// ByteSize returns the logical size set by the latest successful GrowTo.
func (s *Store) ByteSize() uint64 {
	return s.size
}

// MaximumByteSize returns the logical maximum fixed at construction.
func (s *Store) MaximumByteSize() uint64 {
	return s.max
}

// ReservedByteSize returns the size of the address range reserved at construction.
func (s *Store) ReservedByteSize() uint64 {
	return uint64(len(s.mem))
}

// PageSizeLog2 returns log2 of the wasm page size.
func (s *Store) PageSizeLog2() uint8 {
	return s.pageLog2
}

// GrowTo extends the logical size to newSize bytes. Sizes at or below the
// current size are a no-op. The base address never moves.
func (s *Store) GrowTo(newSize uint64) error {
	if s.freed {
		return errors.Closed("backing store")
	}
	if newSize <= s.size {
		return nil
	}
	if newSize > s.max {
		return errors.GrowthDenied(s.size, newSize, "exceeds maximum", nil)
	}
	if newSize > uint64(len(s.mem)) {
		return errors.GrowthDenied(s.size, newSize, "exceeds reservation", nil)
	}

	need := roundUp(newSize, uint64(hostPageSize()))
	if need > uint64(len(s.mem)) {
		need = uint64(len(s.mem))
	}
	if need > s.committed {
		if err := commit(s.mem[s.committed:need]); err != nil {
			return errors.GrowthDenied(s.size, newSize, "commit pages", err)
		}
		s.committed = need
	}
	s.size = newSize
	return nil
}

// Base returns the first byte of the reservation, or nil for an empty one.
func (s *Store) Base() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(s.mem))
}

// Bytes returns the logical contents. The slice aliases the reservation.
func (s *Store) Bytes() []byte {
	return s.mem[:s.size:s.size]
}

// Accessible returns the address range that may currently be read or written.
func (s *Store) Accessible() Range {
	start := uintptr(s.Base())
	return Range{Start: start, End: start + uintptr(s.committed)}
}

// Close releases the reservation. The store must not be used afterwards.
func (s *Store) Close() error {
	if s.freed {
		return nil
	}
	s.freed = true
	mem := s.mem
	s.mem = nil
	s.size, s.committed = 0, 0
	return release(mem)
}

// Reallocate implements experimental.LinearMemory. It returns nil when the
// store cannot reach size.
func (s *Store) Reallocate(size uint64) []byte {
	if err := s.GrowTo(size); err != nil {
		return nil
	}
	return s.mem[:size]
}

// Free implements experimental.LinearMemory.
func (s *Store) Free() {
	_ = s.Close()
}

func roundUp(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}
