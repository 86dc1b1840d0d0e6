package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/wippyai/wasm-threads/engine"
	"github.com/wippyai/wasm-threads/errors"
	"github.com/wippyai/wasm-threads/internal/guest"
	"github.com/wippyai/wasm-threads/memory"
)

type options struct {
	minPages    uint64
	maxPages    uint64
	growPages   uint64
	waiters     int
	addr        uint64
	timeout     time.Duration
	verbose     bool
	interactive bool
}

func main() {
	var opts options
	flag.Uint64Var(&opts.minPages, "min", 1, "Minimum memory size in pages")
	flag.Uint64Var(&opts.maxPages, "max", 4, "Maximum memory size in pages")
	flag.Uint64Var(&opts.growPages, "grow", 2, "Pages to grow by in the grow scenario")
	flag.IntVar(&opts.waiters, "waiters", 4, "Goroutines parked in the wait scenario")
	flag.Uint64Var(&opts.addr, "addr", 0x40, "Address waited on (4-byte aligned)")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Second, "Wait timeout (negative waits forever)")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer l.Sync()
		memory.SetLogger(l)
		engine.SetLogger(l)
	}

	if opts.interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}

	mem, err := memory.NewShared(memory.StaticPlan(memory.SharedType(opts.minPages, opts.maxPages)))
	if err != nil {
		return err
	}
	defer mem.Close()

	if opts.interactive {
		return runInteractive(mem, opts)
	}
	return runScenarios(mem, opts)
}

func runScenarios(mem *memory.Shared, opts options) error {
	maxBytes, _ := mem.Maximum()
	fmt.Printf("Memory: %s\n", mem.Type())
	fmt.Printf("Size: %d bytes, maximum %d bytes\n", mem.Size(), maxBytes)

	if err := growScenario(mem, opts); err != nil {
		return fmt.Errorf("grow scenario: %w", err)
	}
	if err := waitScenario(mem, opts); err != nil {
		return fmt.Errorf("wait scenario: %w", err)
	}
	if err := guestScenario(opts); err != nil {
		return fmt.Errorf("guest scenario: %w", err)
	}
	return nil
}

func growScenario(mem *memory.Shared, opts options) error {
	fmt.Printf("\nGrowing by %d pages...\n", opts.growPages)
	g, err := mem.Grow(opts.growPages, nil)
	switch {
	case errors.IsGrowthDenied(err):
		fmt.Printf("Denied: %v\n", err)
	case err != nil:
		return err
	case g == nil:
		fmt.Printf("No-op\n")
	default:
		fmt.Printf("Grew %d -> %d bytes\n", g.Old, g.New)
	}

	fmt.Printf("Growing past the maximum by %d pages...\n", opts.maxPages+1)
	if _, err := mem.Grow(opts.maxPages+1, nil); !errors.IsGrowthDenied(err) {
		return fmt.Errorf("grow past maximum: expected denial, got %v", err)
	}
	fmt.Printf("Denied, size still %d bytes\n", mem.Size())
	return nil
}

func waitScenario(mem *memory.Shared, opts options) error {
	if err := mem.Store32(opts.addr, 0); err != nil {
		return err
	}

	fmt.Printf("\nParking %d waiters on %#x (timeout %v)...\n", opts.waiters, opts.addr, opts.timeout)
	results := make([]memory.WaitResult, opts.waiters)
	var g errgroup.Group
	for i := 0; i < opts.waiters; i++ {
		g.Go(func() error {
			r, err := mem.AtomicWait32(opts.addr, 0, opts.timeout)
			results[i] = r
			return err
		})
	}

	start := time.Now()
	for mem.Waiters(opts.addr) < opts.waiters && time.Since(start) < time.Second {
		time.Sleep(time.Millisecond)
	}
	fmt.Printf("Parked: %d\n", mem.Waiters(opts.addr))

	if err := mem.Store32(opts.addr, 1); err != nil {
		return err
	}
	woken, err := mem.AtomicNotify(opts.addr, uint32(opts.waiters))
	if err != nil {
		return err
	}
	fmt.Printf("Notify woke %d\n", woken)

	if err := g.Wait(); err != nil {
		return err
	}
	for i, r := range results {
		fmt.Printf("  waiter %d: %s\n", i, r)
	}
	fmt.Printf("Done in %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// guestScenario runs a wasm guest against the atomics host module: the guest
// grows its own memory, then wakes a host goroutine parked on it.
func guestScenario(opts options) error {
	ctx := context.Background()
	rt := engine.NewRuntime(ctx, &engine.Config{EnableThreads: true})
	defer rt.Close(ctx)

	alloc := engine.NewAllocator(nil)
	if _, err := engine.InstantiateAtomics(ctx, rt, alloc, nil); err != nil {
		return err
	}

	bin := guest.Atomics(guest.Imports{
		Module: engine.DefaultAtomicsModule,
		Size:   engine.FuncSize,
		Grow:   engine.FuncGrow,
		Wait32: engine.FuncWait32,
		Wait64: engine.FuncWait64,
		Notify: engine.FuncNotify,
	}, uint32(opts.minPages), uint32(opts.maxPages))
	mod, err := rt.InstantiateWithConfig(engine.WithAllocator(ctx, alloc), bin, wazero.NewModuleConfig().WithName("guest"))
	if err != nil {
		return err
	}
	mem, ok := alloc.Memory(mod.Memory())
	if !ok {
		return fmt.Errorf("guest memory not registered")
	}

	res, err := mod.ExportedFunction(guest.ExportSize).Call(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nGuest memory: %d pages\n", res[0])

	res, err = mod.ExportedFunction(guest.ExportGrow).Call(ctx, 1)
	if err != nil {
		return err
	}
	if int32(res[0]) < 0 {
		fmt.Printf("Guest grow denied\n")
	} else {
		fmt.Printf("Guest grew from %d pages, host sees %d bytes\n", res[0], mem.Size())
	}

	var g errgroup.Group
	var result memory.WaitResult
	g.Go(func() error {
		r, err := mem.AtomicWait32(opts.addr, 0, opts.timeout)
		result = r
		return err
	})

	start := time.Now()
	for mem.Waiters(opts.addr) == 0 && time.Since(start) < time.Second {
		time.Sleep(time.Millisecond)
	}

	if _, err := mod.ExportedFunction(guest.ExportStore32).Call(ctx, opts.addr, 1); err != nil {
		return err
	}
	res, err = mod.ExportedFunction(guest.ExportNotify).Call(ctx, opts.addr, 1)
	if err != nil {
		return err
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Printf("Guest notify woke %d, host waiter: %s\n", res[0], result)
	return nil
}
