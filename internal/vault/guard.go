package vault

import "sync/atomic"

// guard is the per-vault reentrancy lock. Acquired at every public entry
// point and released on all exit paths; a second entry while held fails
// instead of blocking, because overlapping calls indicate a callback trying
// to re-enter mid-operation rather than legitimate concurrency.
type guard struct {
	held atomic.Bool
}

func (g *guard) acquire() error {
	if !g.held.CompareAndSwap(false, true) {
		return ErrReentrancy
	}
	return nil
}

func (g *guard) release() {
	g.held.Store(false)
}
