package guest

// Export names of the module built by Atomics.
const (
	ExportMemory  = "memory"
	ExportSize    = "size"
	ExportGrow    = "grow"
	ExportWait32  = "wait32"
	ExportWait64  = "wait64"
	ExportNotify  = "notify"
	ExportLoad32  = "load32"
	ExportStore32 = "store32"
)

// Imports names the host functions the guest calls, in import order.
type Imports struct {
	Module string
	Size   string
	Grow   string
	Wait32 string
	Wait64 string
	Notify string
}

const (
	magic   = "\x00asm"
	version = "\x01\x00\x00\x00"

	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionExport   = 7
	sectionCode     = 10

	funcTypeByte   = 0x60
	externFunc     = 0x00
	externMemory   = 0x02
	limitsSharedMx = 0x03 // has maximum, shared

	i32 = 0x7f
	i64 = 0x7e

	opCall     = 0x10
	opLocalGet = 0x20
	opEnd      = 0x0b
	opAtomic   = 0xfe

	atomicI32Load  = 0x10
	atomicI32Store = 0x17
	alignI32       = 2
)

type funcType struct {
	params, results []byte
}

var types = []funcType{
	{nil, []byte{i32}},                   // size
	{[]byte{i32}, []byte{i32}},           // grow, load32
	{[]byte{i32, i32, i64}, []byte{i32}}, // wait32
	{[]byte{i32, i64, i64}, []byte{i32}}, // wait64
	{[]byte{i32, i32}, []byte{i32}},      // notify
	{[]byte{i32, i32}, nil},              // store32
}

// importCount is the number of imported functions; defined functions are
// indexed after them.
const importCount = 5

var funcs = []struct {
	name string
	typ  byte
	body []byte
}{
	{ExportSize, 0, []byte{opCall, 0}},
	{ExportGrow, 1, []byte{opLocalGet, 0, opCall, 1}},
	{ExportWait32, 2, []byte{opLocalGet, 0, opLocalGet, 1, opLocalGet, 2, opCall, 2}},
	{ExportWait64, 3, []byte{opLocalGet, 0, opLocalGet, 1, opLocalGet, 2, opCall, 3}},
	{ExportNotify, 4, []byte{opLocalGet, 0, opLocalGet, 1, opCall, 4}},
	{ExportLoad32, 1, []byte{opLocalGet, 0, opAtomic, atomicI32Load, alignI32, 0}},
	{ExportStore32, 5, []byte{opLocalGet, 0, opLocalGet, 1, opAtomic, atomicI32Store, alignI32, 0}},
}

// Atomics returns a module whose shared memory has minPages..maxPages pages
// and whose exports forward to the host functions named by imp.
func Atomics(imp Imports, minPages, maxPages uint32) []byte {
	w := &writer{}
	w.WriteBytes([]byte(magic))
	w.WriteBytes([]byte(version))

	sec := &writer{}
	sec.WriteU32(uint32(len(types)))
	for _, ft := range types {
		sec.Byte(funcTypeByte)
		writeValTypes(sec, ft.params)
		writeValTypes(sec, ft.results)
	}
	writeSection(w, sectionType, sec.Bytes())

	sec = &writer{}
	sec.WriteU32(importCount)
	for i, name := range []string{imp.Size, imp.Grow, imp.Wait32, imp.Wait64, imp.Notify} {
		sec.WriteName(imp.Module)
		sec.WriteName(name)
		sec.Byte(externFunc)
		sec.WriteU32(uint32(i))
	}
	writeSection(w, sectionImport, sec.Bytes())

	sec = &writer{}
	sec.WriteU32(uint32(len(funcs)))
	for _, f := range funcs {
		sec.WriteU32(uint32(f.typ))
	}
	writeSection(w, sectionFunction, sec.Bytes())

	sec = &writer{}
	sec.WriteU32(1)
	sec.Byte(limitsSharedMx)
	sec.WriteU32(minPages)
	sec.WriteU32(maxPages)
	writeSection(w, sectionMemory, sec.Bytes())

	sec = &writer{}
	sec.WriteU32(uint32(1 + len(funcs)))
	sec.WriteName(ExportMemory)
	sec.Byte(externMemory)
	sec.WriteU32(0)
	for i, f := range funcs {
		sec.WriteName(f.name)
		sec.Byte(externFunc)
		sec.WriteU32(uint32(importCount + i))
	}
	writeSection(w, sectionExport, sec.Bytes())

	sec = &writer{}
	sec.WriteU32(uint32(len(funcs)))
	for _, f := range funcs {
		body := &writer{}
		body.WriteU32(0) // no locals
		body.WriteBytes(f.body)
		body.Byte(opEnd)
		sec.WriteU32(uint32(len(body.Bytes())))
		sec.WriteBytes(body.Bytes())
	}
	writeSection(w, sectionCode, sec.Bytes())

	return w.Bytes()
}
