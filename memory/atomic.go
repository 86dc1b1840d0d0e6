package memory

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-threads/internal/parking"
)

// WaitResult is the outcome of AtomicWait32/AtomicWait64.
type WaitResult = parking.Result

const (
	WaitOk       = parking.Ok       // woken by AtomicNotify
	WaitNotEqual = parking.NotEqual // value differed; the caller did not block
	WaitTimedOut = parking.TimedOut // timeout elapsed while parked
)

// NoTimeout makes a wait block until notified.
const NoTimeout = parking.NoDeadline

// AtomicWait32 implements memory.atomic.wait32. addr must be 4-byte aligned
// and in bounds; otherwise a fault is returned and nothing blocks. A negative
// timeout waits until notified.
func (s *Shared) AtomicWait32(addr uint64, expected uint32, timeout time.Duration) (WaitResult, error) {
	if err := s.enter(); err != nil {
		return 0, err
	}
	defer s.inner.release()
	p, err := s.inner.def.atomicAddr(addr, 4, 4)
	if err != nil {
		return 0, err
	}
	if ce := Logger().Check(zap.DebugLevel, "memory.atomic.wait32"); ce != nil {
		ce.Write(zap.Uint64("addr", addr), zap.Uint32("expected", expected), zap.Duration("timeout", timeout))
	}
	return s.inner.spot.Wait32((*atomic.Uint32)(p), expected, timeout), nil
}

// AtomicWait64 implements memory.atomic.wait64. addr must be 8-byte aligned
// and in bounds.
func (s *Shared) AtomicWait64(addr uint64, expected uint64, timeout time.Duration) (WaitResult, error) {
	if err := s.enter(); err != nil {
		return 0, err
	}
	defer s.inner.release()
	p, err := s.inner.def.atomicAddr(addr, 8, 8)
	if err != nil {
		return 0, err
	}
	if ce := Logger().Check(zap.DebugLevel, "memory.atomic.wait64"); ce != nil {
		ce.Write(zap.Uint64("addr", addr), zap.Uint64("expected", expected), zap.Duration("timeout", timeout))
	}
	return s.inner.spot.Wait64((*atomic.Uint64)(p), expected, timeout), nil
}

// AtomicNotify implements memory.atomic.notify: it wakes up to count waiters
// parked on addr and returns how many it woke. addr must be 4-byte aligned
// and in bounds.
func (s *Shared) AtomicNotify(addr uint64, count uint32) (uint32, error) {
	if err := s.enter(); err != nil {
		return 0, err
	}
	defer s.inner.release()
	p, err := s.inner.def.atomicAddr(addr, 4, 4)
	if err != nil {
		return 0, err
	}
	if ce := Logger().Check(zap.DebugLevel, "memory.atomic.notify"); ce != nil {
		ce.Write(zap.Uint64("addr", addr), zap.Uint32("count", count))
	}
	return s.inner.spot.Notify(uintptr(p), count), nil
}

// Load32 atomically loads the 4-byte aligned value at addr.
func (s *Shared) Load32(addr uint64) (uint32, error) {
	if err := s.enter(); err != nil {
		return 0, err
	}
	defer s.inner.release()
	p, err := s.inner.def.atomicAddr(addr, 4, 4)
	if err != nil {
		return 0, err
	}
	return (*atomic.Uint32)(p).Load(), nil
}

// Store32 atomically stores v at the 4-byte aligned addr.
func (s *Shared) Store32(addr uint64, v uint32) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.inner.release()
	p, err := s.inner.def.atomicAddr(addr, 4, 4)
	if err != nil {
		return err
	}
	(*atomic.Uint32)(p).Store(v)
	return nil
}

// Store64 atomically stores v at the 8-byte aligned addr.
func (s *Shared) Store64(addr uint64, v uint64) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.inner.release()
	p, err := s.inner.def.atomicAddr(addr, 8, 8)
	if err != nil {
		return err
	}
	(*atomic.Uint64)(p).Store(v)
	return nil
}
