// Package borsh implements the structural codec used for storage values
// and wire-layer envelopes: length-prefixed, canonical, and deterministic,
// behind a small Writer/Reader pair of the kind binary wire protocols
// usually carry.
package borsh

import (
	"encoding/binary"
	"math"

	grugerrors "github.com/left-curve/grug/errors"
)

// Marshaler is implemented by any type with a canonical structural
// encoding.
type Marshaler interface {
	MarshalBorsh(w *Writer)
}

// Unmarshaler is implemented by any type decodable from the structural
// codec.
type Unmarshaler interface {
	UnmarshalBorsh(r *Reader) error
}

// Writer accumulates a structural-codec byte stream.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) WriteU8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) WriteBool(v bool)  { if v { w.WriteU8(1) } else { w.WriteU8(0) } }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteFixedBytes(b []byte) { w.buf = append(w.buf, b...) }

// WriteBytes writes a u32-length-prefixed byte slice.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteU32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteString writes a u32-length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) { w.WriteBytes([]byte(s)) }

// Reader consumes a structural-codec byte stream.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(data []byte) *Reader { return &Reader{buf: data} }

func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return grugerrors.New(grugerrors.ERR_SERDE, "unexpected end of structural-codec input")
	}
	return nil
}

func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	return v != 0, err
}

func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadFixedBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return r.ReadFixedBytes(int(n))
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Marshal encodes m into a structural-codec byte slice.
func Marshal(m Marshaler) []byte {
	w := NewWriter()
	m.MarshalBorsh(w)
	return w.Bytes()
}

// Unmarshal decodes data into m.
func Unmarshal(data []byte, m Unmarshaler) error {
	r := NewReader(data)
	return m.UnmarshalBorsh(r)
}

// F64ToBits/BitsToF64 are provided for completeness; the kernel never
// serializes floats (all numerics are fixed-point), but host ABI memory
// regions occasionally need raw bit munging.
func F64ToBits(f float64) uint64 { return math.Float64bits(f) }
func BitsToF64(b uint64) float64 { return math.Float64frombits(b) }
