// Package wasmthreads provides shared WebAssembly linear memory with atomic
// wait/notify for running guest threads on goroutines.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmthreads/         Root package with the SharedMemory interfaces
//	├── memory/          Shared memory handle, growth control, wait/notify
//	├── engine/          wazero integration: runtime, allocator, atomics host module
//	├── errors/          Structured error types (config, fault, growth denial)
//	├── internal/
//	│   ├── backing/     Fixed-address reserved byte buffer
//	│   ├── guest/       Wasm guest that calls the atomics host module
//	│   └── parking/     Address-keyed parking spot for waiters
//	└── cmd/shmem/       Scenario runner and interactive dashboard
//
// # Quick Start
//
//	mem, err := memory.NewShared(memory.StaticPlan(memory.SharedType(1, 4)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mem.Close()
//
//	go func() {
//	    res, _ := mem.AtomicWait32(0x40, 0, 5*time.Second)
//	    fmt.Println(res) // "ok"
//	}()
//
//	_ = mem.Store32(0x40, 1)
//	woken, _ := mem.AtomicNotify(0x40, 1)
//
// # Thread Safety
//
// A *memory.Shared and its clones are safe for concurrent use. Only the wait
// calls block. Growth takes an internal lock that is never held while memory
// contents are read or written; synchronizing content access is the caller's
// job.
//
// # Memory Model
//
// Shared memory can only grow, never shrink, and never moves. Its full
// maximum is reserved when it is created.
package wasmthreads
