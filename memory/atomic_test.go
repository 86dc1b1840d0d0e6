package memory

import (
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasm-threads/errors"
)

func waitParked(t *testing.T, mem *Shared, addr uint64, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for mem.Waiters(addr) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d waiters at %#x", n, addr)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAtomic_Faults(t *testing.T) {
	mem := newShared(t, 1, 2)

	tests := []struct {
		name string
		op   func() error
		kind errors.Kind
	}{
		{"wait32 unaligned", func() error { _, err := mem.AtomicWait32(2, 0, 0); return err }, errors.KindUnaligned},
		{"wait64 unaligned", func() error { _, err := mem.AtomicWait64(4, 0, 0); return err }, errors.KindUnaligned},
		{"notify unaligned", func() error { _, err := mem.AtomicNotify(1, 1); return err }, errors.KindUnaligned},
		{"wait32 out of bounds", func() error { _, err := mem.AtomicWait32(page, 0, 0); return err }, errors.KindOutOfBounds},
		{"wait64 at end", func() error { _, err := mem.AtomicWait64(page, 0, 0); return err }, errors.KindOutOfBounds},
		{"notify out of bounds", func() error { _, err := mem.AtomicNotify(1<<40, 1); return err }, errors.KindOutOfBounds},
		{"notify in grown region before grow", func() error { _, err := mem.AtomicNotify(page+8, 1); return err }, errors.KindOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			if !errors.IsFault(err) {
				t.Fatalf("expected fault, got %v", err)
			}
			if !errors.Is(err, &errors.Error{Phase: errors.PhaseAtomic, Kind: tt.kind}) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestAtomic_LastWordInBounds(t *testing.T) {
	mem := newShared(t, 1, 1)

	if n, err := mem.AtomicNotify(page-4, 1); err != nil || n != 0 {
		t.Fatalf("AtomicNotify = (%d, %v), want (0, nil)", n, err)
	}
	if r, err := mem.AtomicWait64(page-8, 1, 0); err != nil || r != WaitNotEqual {
		t.Fatalf("AtomicWait64 = (%v, %v), want not-equal", r, err)
	}
}

func TestAtomicWait32_NotEqual(t *testing.T) {
	mem := newShared(t, 1, 1)
	if err := mem.Store32(64, 5); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	r, err := mem.AtomicWait32(64, 4, NoTimeout)
	if err != nil {
		t.Fatalf("AtomicWait32 failed: %v", err)
	}
	if r != WaitNotEqual {
		t.Fatalf("result = %v, want not-equal", r)
	}
	if time.Since(start) > time.Second {
		t.Error("not-equal wait blocked")
	}
}

func TestAtomicWait32_TimesOut(t *testing.T) {
	mem := newShared(t, 1, 1)

	const timeout = 30 * time.Millisecond
	start := time.Now()
	r, err := mem.AtomicWait32(128, 0, timeout)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("AtomicWait32 failed: %v", err)
	}
	if r != WaitTimedOut {
		t.Fatalf("result = %v, want timed-out", r)
	}
	if elapsed < timeout || elapsed > timeout+2*time.Second {
		t.Errorf("elapsed %v outside bound of %v deadline", elapsed, timeout)
	}
	if v, _ := mem.Load32(128); v != 0 {
		t.Errorf("watched value = %d, want 0", v)
	}
	if mem.Waiters(128) != 0 {
		t.Error("waiter left parked after timeout")
	}
}

func TestAtomicNotify_NoWaiters(t *testing.T) {
	mem := newShared(t, 1, 1)
	n, err := mem.AtomicNotify(0, 100)
	if err != nil || n != 0 {
		t.Fatalf("AtomicNotify = (%d, %v), want (0, nil)", n, err)
	}
}

func TestAtomic_TwoThreadScenario(t *testing.T) {
	mem := newShared(t, 1, 1)
	const x = 0x40

	done := make(chan WaitResult, 1)
	start := time.Now()
	go func() {
		r, err := mem.AtomicWait32(x, 0, 5*time.Second)
		if err != nil {
			t.Errorf("AtomicWait32 failed: %v", err)
		}
		done <- r
	}()
	waitParked(t, mem, x, 1)

	if err := mem.Store32(x, 1); err != nil {
		t.Fatal(err)
	}
	n, err := mem.AtomicNotify(x, 1)
	if err != nil || n != 1 {
		t.Fatalf("AtomicNotify = (%d, %v), want (1, nil)", n, err)
	}

	if r := <-done; r != WaitOk {
		t.Fatalf("result = %v, want ok", r)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("woke after %v, not well before the timeout", elapsed)
	}
}

func TestAtomicNotify_Count(t *testing.T) {
	mem := newShared(t, 1, 1)
	const x = 0x80

	const parked = 4
	results := make(chan WaitResult, parked)
	for i := 0; i < parked; i++ {
		go func() {
			r, _ := mem.AtomicWait32(x, 0, 10*time.Second)
			results <- r
		}()
	}
	waitParked(t, mem, x, parked)

	if n, _ := mem.AtomicNotify(x, 3); n != 3 {
		t.Fatalf("AtomicNotify(3) = %d, want 3", n)
	}
	for i := 0; i < 3; i++ {
		if r := <-results; r != WaitOk {
			t.Errorf("result = %v, want ok", r)
		}
	}
	if n, _ := mem.AtomicNotify(x, 3); n != 1 {
		t.Fatalf("AtomicNotify(3) = %d, want 1", n)
	}
	<-results
}

func TestAtomicWait64_Notify(t *testing.T) {
	mem := newShared(t, 1, 1)
	const x = 0x100
	if err := mem.Store64(x, 1<<40); err != nil {
		t.Fatal(err)
	}

	done := make(chan WaitResult, 1)
	go func() {
		r, _ := mem.AtomicWait64(x, 1<<40, NoTimeout)
		done <- r
	}()
	waitParked(t, mem, x, 1)

	if err := mem.Store64(x, 0); err != nil {
		t.Fatal(err)
	}
	if n, _ := mem.AtomicNotify(x, 1); n != 1 {
		t.Fatalf("AtomicNotify = %d, want 1", n)
	}
	if r := <-done; r != WaitOk {
		t.Fatalf("result = %v, want ok", r)
	}
}

func TestAtomic_GrownRegion(t *testing.T) {
	mem := newShared(t, 1, 2)
	addr := uint64(page + 16)

	if _, err := mem.AtomicWait32(addr, 0, 0); !errors.IsFault(err) {
		t.Fatalf("expected fault before grow, got %v", err)
	}
	if _, err := mem.Grow(1, nil); err != nil {
		t.Fatalf("Grow failed: %v", err)
	}
	r, err := mem.AtomicWait32(addr, 0, time.Millisecond)
	if err != nil {
		t.Fatalf("AtomicWait32 after grow failed: %v", err)
	}
	if r != WaitTimedOut {
		t.Errorf("result = %v, want timed-out (grown pages are zero)", r)
	}
}

func TestAtomic_NoLostWakeup(t *testing.T) {
	mem := newShared(t, 1, 1)

	for i := 0; i < 300; i++ {
		addr := uint64(i%64) * 4
		if err := mem.Store32(addr, 0); err != nil {
			t.Fatal(err)
		}

		var g errgroup.Group
		var r WaitResult
		g.Go(func() error {
			var err error
			r, err = mem.AtomicWait32(addr, 0, 5*time.Second)
			return err
		})
		g.Go(func() error {
			if err := mem.Store32(addr, 1); err != nil {
				return err
			}
			_, err := mem.AtomicNotify(addr, 1)
			return err
		})
		if err := g.Wait(); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if r == WaitTimedOut {
			t.Fatalf("iteration %d: wakeup lost", i)
		}
	}
}

func TestAtomic_CloneSharesWaiters(t *testing.T) {
	mem := newShared(t, 1, 1)
	clone := mem.Clone()
	defer clone.Close()

	done := make(chan WaitResult, 1)
	go func() {
		r, _ := mem.AtomicWait32(0, 0, 10*time.Second)
		done <- r
	}()
	waitParked(t, clone, 0, 1)

	if n, _ := clone.AtomicNotify(0, 1); n != 1 {
		t.Fatalf("notify through clone woke %d, want 1", n)
	}
	if r := <-done; r != WaitOk {
		t.Fatalf("result = %v, want ok", r)
	}
}
