package engine

import (
	"context"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	wasmthreads "github.com/wippyai/wasm-threads"
	"github.com/wippyai/wasm-threads/errors"
	"github.com/wippyai/wasm-threads/memory"
)

// DefaultAtomicsModule is the import module name used when none is configured.
const DefaultAtomicsModule = "wasm-threads"

// Exported function names of the atomics host module.
const (
	FuncSize   = "memory.size"
	FuncGrow   = "memory.grow"
	FuncWait32 = "memory.atomic.wait32"
	FuncWait64 = "memory.atomic.wait64"
	FuncNotify = "memory.atomic.notify"
)

// growFailed is the i32 memory.grow result for a denied grow.
const growFailed = 0xFFFFFFFF

// AtomicsConfig configures InstantiateAtomics.
type AtomicsConfig struct {
	// ModuleName defaults to DefaultAtomicsModule.
	ModuleName string
}

// InstantiateAtomics instantiates a host module that lets guests size, grow,
// wait on and notify their own memory. Every function acts on the calling
// module's memory, which must have been allocated by a. cfg may be nil.
//
//	memory.size() -> i32                             pages
//	memory.grow(delta i32) -> i32                    old pages, or -1 when denied
//	memory.atomic.wait32(addr i32, expected i32, timeout_ns i64) -> i32
//	memory.atomic.wait64(addr i32, expected i64, timeout_ns i64) -> i32
//	memory.atomic.notify(addr i32, count i32) -> i32 waiters woken
//
// Wait results are 0 (ok), 1 (not-equal) and 2 (timed-out); a negative
// timeout waits until notified. Grows go through the engine, so a's limiter
// applies. Faults trap the calling function.
func InstantiateAtomics(ctx context.Context, r wazero.Runtime, a *Allocator, cfg *AtomicsConfig) (api.Module, error) {
	name := DefaultAtomicsModule
	if cfg != nil && cfg.ModuleName != "" {
		name = cfg.ModuleName
	}

	h := &atomicsHost{alloc: a}
	i32, i64 := api.ValueTypeI32, api.ValueTypeI64

	builder := r.NewHostModuleBuilder(name).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.size), nil, []api.ValueType{i32}).
		Export(FuncSize).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.grow), []api.ValueType{i32}, []api.ValueType{i32}).
		Export(FuncGrow).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.wait32), []api.ValueType{i32, i32, i64}, []api.ValueType{i32}).
		Export(FuncWait32).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.wait64), []api.ValueType{i32, i64, i64}, []api.ValueType{i32}).
		Export(FuncWait64).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.notify), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export(FuncNotify)

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Registration(name, "atomics", err)
	}
	return mod, nil
}

type atomicsHost struct {
	alloc *Allocator
}

// memoryOf resolves the caller's memory. Unknown memories trap.
func (h *atomicsHost) memoryOf(mod api.Module) wasmthreads.SharedMemory {
	mem, ok := h.alloc.Memory(mod.Memory())
	if !ok {
		panic(errors.UnknownMemory(mod.Name()))
	}
	return mem
}

func (h *atomicsHost) size(_ context.Context, mod api.Module, stack []uint64) {
	mem := h.memoryOf(mod)
	stack[0] = mem.Size() >> mem.PageSizeLog2()
}

// grow goes through the engine's memory so its view of the length stays in
// step; the engine reads the old size under its own growth lock.
func (h *atomicsHost) grow(_ context.Context, mod api.Module, stack []uint64) {
	h.memoryOf(mod)
	old, ok := mod.Memory().Grow(api.DecodeU32(stack[0]))
	if !ok {
		stack[0] = growFailed
		return
	}
	stack[0] = uint64(old)
}

func (h *atomicsHost) wait32(_ context.Context, mod api.Module, stack []uint64) {
	addr := uint64(api.DecodeU32(stack[0]))
	expected := api.DecodeU32(stack[1])
	res, err := h.memoryOf(mod).AtomicWait32(addr, expected, timeoutOf(stack[2]))
	if err != nil {
		panic(err)
	}
	stack[0] = uint64(res)
}

func (h *atomicsHost) wait64(_ context.Context, mod api.Module, stack []uint64) {
	addr := uint64(api.DecodeU32(stack[0]))
	res, err := h.memoryOf(mod).AtomicWait64(addr, stack[1], timeoutOf(stack[2]))
	if err != nil {
		panic(err)
	}
	stack[0] = uint64(res)
}

func (h *atomicsHost) notify(_ context.Context, mod api.Module, stack []uint64) {
	addr := uint64(api.DecodeU32(stack[0]))
	woken, err := h.memoryOf(mod).AtomicNotify(addr, api.DecodeU32(stack[1]))
	if err != nil {
		panic(err)
	}
	stack[0] = uint64(woken)
}

func timeoutOf(v uint64) time.Duration {
	ns := int64(v)
	if ns < 0 {
		return memory.NoTimeout
	}
	return time.Duration(ns)
}
