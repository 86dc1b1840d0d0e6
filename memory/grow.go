package memory

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-threads/errors"
)

// Growth reports the byte size before and after a successful Grow.
type Growth struct {
	Old uint64
	New uint64
}

// Grow adds deltaPages pages to the memory.
//
// A zero delta returns (nil, nil). On success the new length is published to
// the Definition before Grow returns. Growing past the maximum, overflowing
// the index space, a limiter refusal or a failed page commit all return an
// error for which errors.IsGrowthDenied holds, and the size is unchanged.
// limiter may be nil.
func (s *Shared) Grow(deltaPages uint64, limiter Limiter) (*Growth, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	in := s.inner
	defer in.release()

	in.mu.Lock()
	defer in.mu.Unlock()

	g, err := in.grow(deltaPages, limiter)
	if err != nil {
		if ce := Logger().Check(zap.DebugLevel, "memory.grow denied"); ce != nil {
			ce.Write(zap.Uint64("delta", deltaPages), zap.Error(err))
		}
		return nil, err
	}
	if g == nil {
		return nil, nil
	}

	in.def.length.Store(g.New)

	if ce := Logger().Check(zap.DebugLevel, "memory.grow"); ce != nil {
		ce.Write(zap.Uint64("delta", deltaPages), zap.Uint64("old", g.Old), zap.Uint64("new", g.New))
	}
	return g, nil
}

// grow resizes the store. The caller holds the write lock.
func (in *sharedInner) grow(deltaPages uint64, limiter Limiter) (*Growth, error) {
	old := in.store.ByteSize()
	if deltaPages == 0 {
		return nil, nil
	}

	log2 := in.store.PageSizeLog2()
	maximum := in.store.MaximumByteSize()
	oldPages := old >> log2
	newPages := oldPages + deltaPages
	if newPages < oldPages || newPages > in.ty.absoluteMaxBytes()>>log2 {
		return nil, growFailed(limiter, errors.New(errors.PhaseGrow, errors.KindGrowthDenied).
			Value(deltaPages).
			Detail("grow by %d pages overflows the index space", deltaPages).
			Build())
	}
	desired := newPages << log2

	if limiter != nil {
		ok, err := limiter.MemoryGrowing(old, desired, maximum)
		if err != nil {
			return nil, errors.Limiter(err)
		}
		if !ok {
			return nil, errors.GrowthDenied(old, desired, "refused by limiter", nil)
		}
	}

	if desired > maximum {
		return nil, growFailed(limiter, errors.GrowthDenied(old, desired, "exceeds maximum", nil))
	}
	if err := in.store.GrowTo(desired); err != nil {
		return nil, growFailed(limiter, err)
	}
	return &Growth{Old: old, New: desired}, nil
}

// growFailed reports a denial to the limiter, which may escalate it.
func growFailed(limiter Limiter, denial error) error {
	if limiter == nil {
		return denial
	}
	if err := limiter.MemoryGrowFailed(denial); err != nil {
		return errors.Limiter(err)
	}
	return denial
}
