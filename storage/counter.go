package storage

import (
	"encoding/binary"

	grugerrors "github.com/left-curve/grug/errors"
)

// Counter is a fixed-key uint64 counter, used for things like
// DEX order sequence numbers and safe proposal ids.
type Counter struct {
	key []byte
}

func NewCounter(key []byte) Counter {
	return Counter{key: key}
}

func (c Counter) Load(b Backend) uint64 {
	raw, ok := b.Read(c.key)
	if !ok {
		return 0
	}
	if len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func (c Counter) save(b Backend, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	b.Write(c.key, buf[:])
}

// Incr increments the counter and returns the new value.
func (c Counter) Incr(b Backend) uint64 {
	v := c.Load(b) + 1
	c.save(b, v)
	return v
}

// Next returns the current value and then increments it, matching the
// orderbook's monotonic order-id sequence.
func (c Counter) Next(b Backend) uint64 {
	v := c.Load(b)
	c.save(b, v+1)
	return v
}

func (c Counter) Set(b Backend, v uint64) {
	c.save(b, v)
}

func (c Counter) Decr(b Backend) (uint64, error) {
	v := c.Load(b)
	if v == 0 {
		return 0, grugerrors.New(grugerrors.ERR_OVERFLOW, "counter: decrement below zero")
	}
	v--
	c.save(b, v)
	return v, nil
}
