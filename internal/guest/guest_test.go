package guest

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
)

func TestWriterWriteU32(t *testing.T) {
	tests := []struct {
		in   uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
	}
	for _, tt := range tests {
		w := &writer{}
		w.WriteU32(tt.in)
		if got := w.Bytes(); !bytes.Equal(got, tt.want) {
			t.Errorf("WriteU32(%d) = %x, want %x", tt.in, got, tt.want)
		}
	}
}

func TestAtomics_Compiles(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().
		WithCoreFeatures(api.CoreFeaturesV2|experimental.CoreFeaturesThreads))
	defer rt.Close(ctx)

	bin := Atomics(Imports{
		Module: "env",
		Size:   "size",
		Grow:   "grow",
		Wait32: "wait32",
		Wait64: "wait64",
		Notify: "notify",
	}, 2, 300)
	if !bytes.HasPrefix(bin, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}) {
		t.Fatalf("bad header: %x", bin[:8])
	}

	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		t.Fatalf("CompileModule failed: %v", err)
	}
	defer compiled.Close(ctx)

	imports := compiled.ImportedFunctions()
	if len(imports) != 5 {
		t.Fatalf("imports = %d, want 5", len(imports))
	}
	if mod, name, _ := imports[2].Import(); mod != "env" || name != "wait32" {
		t.Errorf("import 2 = %s.%s", mod, name)
	}

	exports := compiled.ExportedFunctions()
	for _, name := range []string{ExportSize, ExportGrow, ExportWait32, ExportWait64, ExportNotify, ExportLoad32, ExportStore32} {
		if _, ok := exports[name]; !ok {
			t.Errorf("missing export %q", name)
		}
	}

	mem := compiled.ExportedMemories()[ExportMemory]
	if mem == nil {
		t.Fatal("memory not exported")
	}
	if mem.Min() != 2 {
		t.Errorf("memory min = %d, want 2", mem.Min())
	}
	if maxPages, ok := mem.Max(); !ok || maxPages != 300 {
		t.Errorf("memory max = (%d, %v), want (300, true)", maxPages, ok)
	}
}
