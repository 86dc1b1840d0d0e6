package engine

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/wasm-threads/memory"
)

// boundedMemoryWASM is a minimal module with one memory of 1..4 pages exported as "memory".
var boundedMemoryWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x04, 0x01, 0x01, 0x01, 0x04, // memory section: min 1, max 4
	0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
}

// sharedMemoryWASM is the same module with a shared memory.
var sharedMemoryWASM = []byte{
	0x00, 0x61, 0x73, 0x6d,
	0x01, 0x00, 0x00, 0x00,
	0x05, 0x04, 0x01, 0x03, 0x01, 0x04, // memory section: shared, min 1, max 4
	0x07, 0x0a, 0x01,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79,
	0x02, 0x00,
}

func instantiateWithAllocator(t *testing.T, rt wazero.Runtime, bin []byte, alloc *Allocator) {
	t.Helper()
	ctx := context.Background()

	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	defer compiled.Close(ctx)

	mod, err := rt.InstantiateModule(WithAllocator(ctx, alloc), compiled, wazero.NewModuleConfig())
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}
	defer mod.Close(ctx)

	mem := mod.ExportedMemory("memory")
	if mem == nil {
		t.Fatal("memory not exported")
	}
	if mem.Size() != page {
		t.Fatalf("Size = %d, want %d", mem.Size(), page)
	}
	if !mem.WriteUint32Le(page-4, 0xDEADBEEF) {
		t.Fatal("write failed")
	}

	if _, ok := mem.Grow(2); !ok {
		t.Fatal("Grow(2) failed")
	}
	if v, ok := mem.ReadUint32Le(page - 4); !ok || v != 0xDEADBEEF {
		t.Errorf("value after grow = %#x, %v", v, ok)
	}
	if _, ok := mem.Grow(2); ok {
		t.Error("Grow past maximum succeeded")
	}

	shared, ok := alloc.Memory(mem)
	if !ok {
		t.Fatal("memory not registered with the allocator")
	}
	if shared.Size() != 3*page {
		t.Errorf("shared Size = %d, want %d", shared.Size(), 3*page)
	}
	if v, err := shared.Load32(page - 4); err != nil || v != 0xDEADBEEF {
		t.Errorf("shared Load32 = (%#x, %v)", v, err)
	}

	if alloc.Allocated() != 1 {
		t.Errorf("Allocated = %d, want 1", alloc.Allocated())
	}
}

func TestAllocator(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, nil)
	defer rt.Close(ctx)

	instantiateWithAllocator(t, rt, boundedMemoryWASM, NewAllocator(nil))
}

func TestAllocator_SharedMemory(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, &Config{EnableThreads: true, MemoryLimitPages: 16})
	defer rt.Close(ctx)

	instantiateWithAllocator(t, rt, sharedMemoryWASM, NewAllocator(nil))
}

func TestNewRuntime_ThreadsRequiredForShared(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, &Config{EnableThreads: false})
	defer rt.Close(ctx)

	if _, err := rt.CompileModule(ctx, sharedMemoryWASM); err == nil {
		t.Fatal("expected shared memory to be rejected without threads")
	}
}

func TestAllocator_Free(t *testing.T) {
	a := NewAllocator(nil)
	lm := a.Allocate(page, 2*page)
	if lm == nil {
		t.Fatal("Allocate returned nil")
	}
	if buf := lm.Reallocate(page); len(buf) != page {
		t.Fatalf("Reallocate len = %d, want %d", len(buf), page)
	}
	if a.Live() != 1 {
		t.Errorf("Live = %d, want 1", a.Live())
	}
	if len(a.byBase) != 1 {
		t.Fatalf("registered memories = %d, want 1", len(a.byBase))
	}
	lm.Free()
	lm.Free()
	if len(a.byBase) != 0 {
		t.Errorf("registered memories after Free = %d, want 0", len(a.byBase))
	}
	if a.Live() != 0 {
		t.Errorf("Live = %d after Free, want 0", a.Live())
	}
	if a.Allocated() != 1 {
		t.Errorf("Allocated = %d, want 1", a.Allocated())
	}
}

func TestAllocator_LimiterSkipsInitialSize(t *testing.T) {
	a := NewAllocator(&memory.Limits{MemorySize: page})
	lm := a.Allocate(0, 4*page)
	if lm == nil {
		t.Fatal("Allocate returned nil")
	}
	defer lm.Free()

	if buf := lm.Reallocate(2 * page); len(buf) != 2*page {
		t.Fatalf("initial Reallocate len = %d, want %d", len(buf), 2*page)
	}
	if buf := lm.Reallocate(3 * page); buf != nil {
		t.Fatalf("Reallocate past the limit returned %d bytes", len(buf))
	}
}

func TestAllocator_MemoryNil(t *testing.T) {
	if _, ok := NewAllocator(nil).Memory(nil); ok {
		t.Error("nil memory resolved")
	}
}
