package storage

import (
	"github.com/left-curve/grug/encoding"
	grugerrors "github.com/left-curve/grug/errors"
)

// Item is a single typed value stored at a fixed key.
type Item[T any] struct {
	key []byte
}

func NewItem[T any](key []byte) Item[T] {
	return Item[T]{key: key}
}

func (i Item[T]) MayLoad(b Backend) (T, bool, error) {
	var zero T
	raw, ok := b.Read(i.key)
	if !ok {
		return zero, false, nil
	}
	var v T
	if err := encoding.UnmarshalJSON(raw, &v); err != nil {
		return zero, false, grugerrors.New(grugerrors.ERR_SERDE, "item: decode value", err)
	}
	return v, true, nil
}

func (i Item[T]) Load(b Backend) (T, error) {
	v, ok, err := i.MayLoad(b)
	if err != nil {
		var zero T
		return zero, err
	}
	if !ok {
		var zero T
		return zero, grugerrors.ErrDataNotFound
	}
	return v, nil
}

func (i Item[T]) Has(b Backend) bool {
	_, ok := b.Read(i.key)
	return ok
}

func (i Item[T]) Save(b Backend, v T) error {
	raw, err := encoding.MarshalJSON(v)
	if err != nil {
		return grugerrors.New(grugerrors.ERR_SERDE, "item: encode value", err)
	}
	b.Write(i.key, raw)
	return nil
}

func (i Item[T]) Remove(b Backend) {
	b.Remove(i.key)
}

// Update loads the current value (zero value if absent), applies f, and
// saves the result -- the read-modify-write pattern the app kernel uses for
// counters and running totals.
func (i Item[T]) Update(b Backend, f func(T) (T, error)) (T, error) {
	var zero T
	cur, ok, err := i.MayLoad(b)
	if err != nil {
		return zero, err
	}
	if !ok {
		cur = zero
	}
	next, err := f(cur)
	if err != nil {
		return zero, err
	}
	if err := i.Save(b, next); err != nil {
		return zero, err
	}
	return next, nil
}
