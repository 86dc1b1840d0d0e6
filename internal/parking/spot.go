package parking

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// Result is the outcome of a wait.
type Result uint32

// Numeric values match the return codes of memory.atomic.wait.
const (
	Ok       Result = 0 // woken by notify
	NotEqual Result = 1 // value differed, nothing parked
	TimedOut Result = 2 // deadline elapsed while parked
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "ok"
	case NotEqual:
		return "not-equal"
	case TimedOut:
		return "timed-out"
	default:
		return fmt.Sprintf("Result(%d)", uint32(r))
	}
}

// NoDeadline makes a wait block until it is notified.
const NoDeadline time.Duration = -1

const (
	bucketBits  = 6
	bucketCount = 1 << bucketBits
)

type bucket struct {
	mu     sync.Mutex
	queues map[uintptr]*queue
}

// Spot is a registry of waiters parked on addresses. The zero value is ready
// to use and must not be copied.
type Spot struct {
	buckets [bucketCount]bucket
}

// Default is the process-wide Spot shared by every shared memory.
var Default = New()

// New creates an empty Spot.
func New() *Spot {
	return &Spot{}
}

func (s *Spot) bucket(addr uintptr) *bucket {
	h := uint64(addr>>2) * 0x9E3779B97F4A7C15
	return &s.buckets[h>>(64-bucketBits)]
}

// Wait32 parks the caller on cell while it holds expected. A negative
// timeout waits until notified.
func (s *Spot) Wait32(cell *atomic.Uint32, expected uint32, timeout time.Duration) Result {
	return s.park(uintptr(unsafe.Pointer(cell)), func() bool {
		return cell.Load() == expected
	}, timeout)
}

// Wait64 parks the caller on cell while it holds expected. A negative
// timeout waits until notified.
func (s *Spot) Wait64(cell *atomic.Uint64, expected uint64, timeout time.Duration) Result {
	return s.park(uintptr(unsafe.Pointer(cell)), func() bool {
		return cell.Load() == expected
	}, timeout)
}

func (s *Spot) park(addr uintptr, eligible func() bool, timeout time.Duration) Result {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	b := s.bucket(addr)
	b.mu.Lock()
	if !eligible() {
		b.mu.Unlock()
		return NotEqual
	}
	w := getWaiter()
	q := b.queues[addr]
	if q == nil {
		if b.queues == nil {
			b.queues = make(map[uintptr]*queue)
		}
		q = &queue{}
		b.queues[addr] = q
	}
	q.push(w)
	b.mu.Unlock()

	if timeout < 0 {
		<-w.ch
		putWaiter(w)
		return Ok
	}

	timer := time.NewTimer(time.Until(deadline))
	select {
	case <-w.ch:
		timer.Stop()
		putWaiter(w)
		return Ok
	case <-timer.C:
	}

	b.mu.Lock()
	q = w.queue
	if q != nil {
		q.remove(w)
		if q.head == nil {
			delete(b.queues, addr)
		}
	}
	b.mu.Unlock()

	if q == nil {
		// A notifier dequeued us after the timer fired; take its signal.
		<-w.ch
		putWaiter(w)
		return Ok
	}
	putWaiter(w)
	return TimedOut
}

// Notify wakes up to count waiters parked on addr, oldest first, and returns
// how many were woken.
func (s *Spot) Notify(addr uintptr, count uint32) uint32 {
	if count == 0 {
		return 0
	}

	b := s.bucket(addr)
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queues[addr]
	if q == nil {
		return 0
	}
	var woken uint32
	for woken < count {
		w := q.pop()
		if w == nil {
			break
		}
		w.unpark()
		woken++
	}
	if q.head == nil {
		delete(b.queues, addr)
	}
	return woken
}

// Waiters returns the number of waiters parked on addr.
func (s *Spot) Waiters(addr uintptr) int {
	b := s.bucket(addr)
	b.mu.Lock()
	defer b.mu.Unlock()
	if q := b.queues[addr]; q != nil {
		return q.n
	}
	return 0
}

// Len returns the number of addresses with at least one parked waiter.
func (s *Spot) Len() int {
	n := 0
	for i := range s.buckets {
		b := &s.buckets[i]
		b.mu.Lock()
		n += len(b.queues)
		b.mu.Unlock()
	}
	return n
}
