package storage

// Prefixed scopes a Backend to everything under a fixed key prefix,
// transparently prepending/stripping it on every call (the
// per-contract storage isolation: each contract only ever sees its own
// namespace of the shared state tree, the same trick db.go's
// prefixedBackend uses to emulate column families over a single engine).
type Prefixed struct {
	parent Backend
	prefix []byte
}

func NewPrefixed(parent Backend, prefix []byte) *Prefixed {
	return &Prefixed{parent: parent, prefix: append([]byte{}, prefix...)}
}

func (p *Prefixed) full(key []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(key))
	out = append(out, p.prefix...)
	out = append(out, key...)
	return out
}

func (p *Prefixed) Read(key []byte) ([]byte, bool) {
	return p.parent.Read(p.full(key))
}

func (p *Prefixed) Write(key, value []byte) {
	p.parent.Write(p.full(key), value)
}

func (p *Prefixed) Remove(key []byte) {
	p.parent.Remove(p.full(key))
}

func (p *Prefixed) RemoveRange(min, max Bounded) {
	lo, hi := p.absBound(min), p.absBound(max)
	if min.Bound == Unbounded {
		lo = Min(p.prefix, Inclusive)
	}
	if max.Bound == Unbounded {
		if upper := prefixUpperBound(p.prefix); upper != nil {
			hi = Max(upper, Exclusive)
		}
	}
	p.parent.RemoveRange(lo, hi)
}

// absBound rewrites a bounded relative bound into one scoped to the
// parent and returns an unbounded side unchanged; Scan and RemoveRange
// substitute the prefix itself (inclusive lower / exclusive upper-bound via
// prefixUpperBound) for an unbounded side.
func (p *Prefixed) absBound(b Bounded) Bounded {
	if b.Bound == Unbounded {
		return b
	}
	return Bounded{Key: p.full(b.Key), Bound: b.Bound}
}

func (p *Prefixed) Scan(min, max Bounded, order Order) Iterator {
	lo := min
	if lo.Bound == Unbounded {
		lo = Min(p.prefix, Inclusive)
	} else {
		lo = p.absBound(min)
	}
	hi := max
	if hi.Bound == Unbounded {
		if upper := prefixUpperBound(p.prefix); upper != nil {
			hi = Max(upper, Exclusive)
		}
	} else {
		hi = p.absBound(max)
	}
	return &prefixStripIterator{inner: p.parent.Scan(lo, hi, order), prefixLen: len(p.prefix)}
}

type prefixStripIterator struct {
	inner     Iterator
	prefixLen int
}

func (it *prefixStripIterator) Next() bool { return it.inner.Next() }
func (it *prefixStripIterator) Key() []byte {
	k := it.inner.Key()
	if len(k) < it.prefixLen {
		return nil
	}
	return k[it.prefixLen:]
}
func (it *prefixStripIterator) Value() []byte { return it.inner.Value() }
func (it *prefixStripIterator) Close()        { it.inner.Close() }
