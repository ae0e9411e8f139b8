package vm

import grugerrors "github.com/left-curve/grug/errors"

// GasTracker meters one gas budget, which the app shares across every
// invocation of a transaction (or of a cronjob): every host call and
// computation step decrements it. Exhaustion fails the invocation that ran
// out with a distinct OutOfGas error; the tracker stays exhausted, so any
// later invocation charging it fails the same way.
type GasTracker struct {
	limit uint64
	used  uint64
}

func NewGasTracker(limit uint64) *GasTracker {
	return &GasTracker{limit: limit}
}

func (g *GasTracker) Used() uint64  { return g.used }
func (g *GasTracker) Limit() uint64 { return g.limit }
func (g *GasTracker) Remaining() uint64 {
	if g.used >= g.limit {
		return 0
	}
	return g.limit - g.used
}

// Consume charges cost against the remaining budget, returning ErrOutOfGas
// if it would exceed the limit. On exhaustion the tracker
// still records the full limit as used, matching the "aborts only the
// current invocation" rule: the caller observes gas_used == gas_limit.
func (g *GasTracker) Consume(cost uint64) error {
	if cost > g.Remaining() {
		g.used = g.limit
		return grugerrors.ErrOutOfGas
	}
	g.used += cost
	return nil
}

// Cost schedule for host calls. These are illustrative unit
// costs, not tuned against a specific target machine -- the invariant the
// kernel relies on is that every host call has *some* nonzero charge, not
// a specific number.
const (
	GasPerByteRead    uint64 = 1
	GasPerByteWritten uint64 = 3
	GasPerByteHashed  uint64 = 1
	GasBaseHostCall   uint64 = 10
	GasCryptoVerify   uint64 = 2_000
	GasQuery          uint64 = 500
)
