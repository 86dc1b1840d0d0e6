package memory

import (
	"fmt"
	"math"

	"github.com/wippyai/wasm-threads/errors"
)

// DefaultPageSizeLog2 is log2 of the 64 KiB wasm page.
const DefaultPageSizeLog2 = 16

// Type describes a linear memory as declared by a module.
type Type struct {
	Maximum      *uint64 // pages; nil when undeclared
	Minimum      uint64  // pages
	PageSizeLog2 uint8
	Shared       bool
	Memory64     bool
}

// SharedType returns a shared 32-bit memory type with 64 KiB pages.
func SharedType(minPages, maxPages uint64) Type {
	return Type{
		Minimum:      minPages,
		Maximum:      &maxPages,
		PageSizeLog2: DefaultPageSizeLog2,
		Shared:       true,
	}
}

// PageSize returns the page size in bytes.
func (t Type) PageSize() uint64 {
	return 1 << t.PageSizeLog2
}

// absoluteMaxBytes is the index space limit: 4 GiB for 32-bit memories.
func (t Type) absoluteMaxBytes() uint64 {
	if t.Memory64 {
		return math.MaxUint64
	}
	return 1 << 32
}

// limits converts the page limits to bytes. A declared maximum above the
// index space is clamped to it.
func (t Type) limits() (minBytes, maxBytes uint64, hasMax bool, err error) {
	if t.PageSizeLog2 != 0 && t.PageSizeLog2 != DefaultPageSizeLog2 {
		return 0, 0, false, errors.InvalidConfig("unsupported page size 2^%d", t.PageSizeLog2)
	}
	maxPages := t.absoluteMaxBytes() >> t.PageSizeLog2
	if t.Minimum > maxPages {
		return 0, 0, false, errors.InvalidConfig("minimum of %d pages exceeds the index space", t.Minimum)
	}
	minBytes = t.Minimum << t.PageSizeLog2

	if t.Maximum == nil {
		return minBytes, 0, false, nil
	}
	if *t.Maximum < t.Minimum {
		return 0, 0, false, errors.InvalidConfig("minimum of %d pages exceeds maximum of %d", t.Minimum, *t.Maximum)
	}
	if *t.Maximum > maxPages {
		return minBytes, t.absoluteMaxBytes(), true, nil
	}
	return minBytes, *t.Maximum << t.PageSizeLog2, true, nil
}

func (t Type) String() string {
	maxPages := "none"
	if t.Maximum != nil {
		maxPages = fmt.Sprint(*t.Maximum)
	}
	s := fmt.Sprintf("memory(min=%d, max=%s, page=%d)", t.Minimum, maxPages, t.PageSize())
	if t.Memory64 {
		s += " i64"
	}
	if t.Shared {
		s += " shared"
	}
	return s
}

// Style is the allocation strategy chosen for a memory.
type Style uint8

const (
	// StyleStatic reserves the whole address range once; the base never moves.
	StyleStatic Style = iota
	// StyleDynamic may reallocate on growth and is rejected for shared memory.
	StyleDynamic
)

func (s Style) String() string {
	switch s {
	case StyleStatic:
		return "static"
	case StyleDynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("Style(%d)", uint8(s))
	}
}

// Plan pairs a memory type with the allocation strategy resolved for it.
type Plan struct {
	Type  Type
	Style Style
	// Bound is the static reservation in bytes. Zero reserves exactly the maximum.
	Bound uint64
}

// StaticPlan returns a static plan reserving exactly the type's maximum.
func StaticPlan(t Type) Plan {
	return Plan{Type: t, Style: StyleStatic}
}

// checkShared rejects plans a Shared memory cannot be built from.
func (p Plan) checkShared() error {
	if !p.Type.Shared {
		return errors.InvalidConfig("shared memory must have a shared memory type")
	}
	if p.Style != StyleStatic {
		return errors.InvalidConfig("shared memory can only be built from a static memory allocation, got %s", p.Style)
	}
	if p.Type.Maximum == nil {
		return errors.InvalidConfig("shared memory must declare a maximum")
	}
	return nil
}
