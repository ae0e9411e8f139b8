package gmath

import (
	"fmt"
	"math/big"

	grugerrors "github.com/left-curve/grug/errors"
)

// Int is a checked/wrapping/saturating fixed-width integer parameterized by
// Width W. Concrete aliases (Uint64, Int128, ...) are defined in types.go.
type Int[W Width] struct {
	v *big.Int
}

func bigOf[W Width](x int64) Int[W] {
	return Int[W]{v: big.NewInt(x)}
}

// NewInt wraps a big.Int value as Int[W], panicking if it does not fit --
// callers constructing from trusted constants should use this; callers
// parsing external input should use ParseInt / CheckedFromBigInt.
func NewInt[W Width](v *big.Int) Int[W] {
	var w W
	if !fits(v, w.Bits(), w.Signed()) {
		panic(fmt.Sprintf("value %s does not fit in %d-bit %s integer", v, w.Bits(), signedness(w.Signed())))
	}
	return Int[W]{v: new(big.Int).Set(v)}
}

func signedness(signed bool) string {
	if signed {
		return "signed"
	}
	return "unsigned"
}

// CheckedFromBigInt validates that v fits the target width before wrapping.
func CheckedFromBigInt[W Width](v *big.Int) (Int[W], error) {
	var w W
	if !fits(v, w.Bits(), w.Signed()) {
		return Int[W]{}, grugerrors.New(grugerrors.ERR_OVERFLOW, "value %s out of range for %d-bit %s integer", v, w.Bits(), signedness(w.Signed()))
	}
	return Int[W]{v: new(big.Int).Set(v)}, nil
}

func Zero[W Width]() Int[W] { return bigOf[W](0) }
func One[W Width]() Int[W]  { return bigOf[W](1) }

func Min[W Width]() Int[W] {
	var w W
	min, _ := bounds(w.Bits(), w.Signed())
	return Int[W]{v: min}
}

func Max[W Width]() Int[W] {
	var w W
	_, max := bounds(w.Bits(), w.Signed())
	return Int[W]{v: max}
}

// ParseInt parses a base-10 string, the JSON codec's wire form.
func ParseInt[W Width](s string) (Int[W], error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Int[W]{}, grugerrors.New(grugerrors.ERR_PARSE, "invalid integer literal %q", s)
	}
	return CheckedFromBigInt[W](v)
}

func (x Int[W]) String() string {
	if x.v == nil {
		return "0"
	}
	return x.v.String()
}

func (x Int[W]) BigInt() *big.Int {
	if x.v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(x.v)
}

func (x Int[W]) MarshalJSON() ([]byte, error) {
	return []byte(`"` + x.String() + `"`), nil
}

func (x *Int[W]) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := ParseInt[W](s)
	if err != nil {
		return err
	}
	*x = v
	return nil
}

// MarshalBorsh encodes x as little-endian fixed-width bytes, the structural
// codec's representation.
func (x Int[W]) MarshalBorsh() []byte {
	var w W
	nbytes := w.Bits() / 8
	out := make([]byte, nbytes)

	v := x.v
	if v == nil {
		v = big.NewInt(0)
	}
	if w.Signed() && v.Sign() < 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(w.Bits()))
		v = new(big.Int).Add(mod, v)
	}

	b := v.Bytes() // big-endian, minimal
	for i := 0; i < len(b) && i < nbytes; i++ {
		out[i] = b[len(b)-1-i] // reverse into little-endian
	}
	return out
}

func UnmarshalBorshInt[W Width](data []byte) (Int[W], error) {
	var w W
	nbytes := w.Bits() / 8
	if len(data) != nbytes {
		return Int[W]{}, grugerrors.New(grugerrors.ERR_SERDE, "expected %d bytes, got %d", nbytes, len(data))
	}
	be := make([]byte, nbytes)
	for i, b := range data {
		be[nbytes-1-i] = b
	}
	v := new(big.Int).SetBytes(be)
	if w.Signed() {
		half := new(big.Int).Lsh(big.NewInt(1), uint(w.Bits()-1))
		if v.Cmp(half) >= 0 {
			mod := new(big.Int).Lsh(big.NewInt(1), uint(w.Bits()))
			v = new(big.Int).Sub(v, mod)
		}
	}
	return Int[W]{v: v}, nil
}

func (x Int[W]) IsZero() bool { return x.v == nil || x.v.Sign() == 0 }
func (x Int[W]) Sign() int {
	if x.v == nil {
		return 0
	}
	return x.v.Sign()
}
func (x Int[W]) IsNeg() bool { return x.Sign() < 0 }

func (x Int[W]) Cmp(y Int[W]) int { return x.BigInt().Cmp(y.BigInt()) }
func (x Int[W]) Equal(y Int[W]) bool { return x.Cmp(y) == 0 }
func (x Int[W]) LessThan(y Int[W]) bool { return x.Cmp(y) < 0 }
func (x Int[W]) GreaterThan(y Int[W]) bool { return x.Cmp(y) > 0 }

func (x Int[W]) Abs() Int[W] {
	var w W
	if !w.Signed() || !x.IsNeg() {
		return x
	}
	return Int[W]{v: new(big.Int).Abs(x.BigInt())}
}

func (x Int[W]) checked(op func(a, b *big.Int) *big.Int, y Int[W], errKind func() *grugerrors.Error) (Int[W], error) {
	var w W
	r := op(x.BigInt(), y.BigInt())
	if !fits(r, w.Bits(), w.Signed()) {
		return Int[W]{}, errKind()
	}
	return Int[W]{v: r}, nil
}

func overflowErr() *grugerrors.Error { return grugerrors.New(grugerrors.ERR_OVERFLOW, "arithmetic overflow") }

func (x Int[W]) CheckedAdd(y Int[W]) (Int[W], error) {
	return x.checked(func(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) }, y, overflowErr)
}

func (x Int[W]) CheckedSub(y Int[W]) (Int[W], error) {
	return x.checked(func(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) }, y, overflowErr)
}

func (x Int[W]) CheckedMul(y Int[W]) (Int[W], error) {
	return x.checked(func(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) }, y, overflowErr)
}

// CheckedDiv computes the floored quotient ("div (flooring
// for integers").
func (x Int[W]) CheckedDiv(y Int[W]) (Int[W], error) {
	if y.IsZero() {
		return Int[W]{}, grugerrors.ErrDivisionByZero
	}
	a, b := x.BigInt(), y.BigInt()
	q := new(big.Int)
	m := new(big.Int)
	q.QuoRem(a, b, m)
	if m.Sign() != 0 && (m.Sign() < 0) != (b.Sign() < 0) {
		q.Sub(q, big.NewInt(1)) // floor, not truncate toward zero
	}
	var w W
	if !fits(q, w.Bits(), w.Signed()) {
		return Int[W]{}, overflowErr()
	}
	return Int[W]{v: q}, nil
}

func (x Int[W]) CheckedRem(y Int[W]) (Int[W], error) {
	if y.IsZero() {
		return Int[W]{}, grugerrors.ErrDivisionByZero
	}
	return Int[W]{v: new(big.Int).Rem(x.BigInt(), y.BigInt())}, nil
}

// CheckedPow raises x to a u32 exponent. big.Int.Exp with a nil modulus
// already returns a correctly-signed result for a negative base.
func (x Int[W]) CheckedPow(exp uint32) (Int[W], error) {
	var w W
	r := new(big.Int).Exp(x.BigInt(), new(big.Int).SetUint64(uint64(exp)), nil)
	if !fits(r, w.Bits(), w.Signed()) {
		return Int[W]{}, overflowErr()
	}
	return Int[W]{v: r}, nil
}

// CheckedSqrt computes the floored integer square root via the Babylonian
// method.
func (x Int[W]) CheckedSqrt() (Int[W], error) {
	if x.IsNeg() {
		return Int[W]{}, grugerrors.ErrNegativeSqrt
	}
	if x.IsZero() {
		return x, nil
	}
	return Int[W]{v: new(big.Int).Sqrt(x.BigInt())}, nil
}

func (x Int[W]) CheckedShl(n uint) (Int[W], error) {
	var w W
	if n >= uint(w.Bits()) {
		return Int[W]{}, overflowErr()
	}
	r := new(big.Int).Lsh(x.BigInt(), n)
	if !fits(r, w.Bits(), w.Signed()) {
		return Int[W]{}, overflowErr()
	}
	return Int[W]{v: r}, nil
}

func (x Int[W]) CheckedShr(n uint) (Int[W], error) {
	var w W
	if n >= uint(w.Bits()) {
		return Int[W]{}, overflowErr()
	}
	return Int[W]{v: new(big.Int).Rsh(x.BigInt(), n)}, nil
}

// Ilog2 returns the floored base-2 logarithm; errors on non-positive input.
func (x Int[W]) Ilog2() (uint32, error) {
	if x.Sign() <= 0 {
		return 0, grugerrors.New(grugerrors.ERR_OVERFLOW, "ilog2 of non-positive value")
	}
	return uint32(x.BigInt().BitLen() - 1), nil
}

// Ilog10 returns the floored base-10 logarithm; errors on non-positive input.
func (x Int[W]) Ilog10() (uint32, error) {
	if x.Sign() <= 0 {
		return 0, grugerrors.New(grugerrors.ERR_OVERFLOW, "ilog10 of non-positive value")
	}
	v := x.BigInt()
	var n uint32
	ten := big.NewInt(10)
	for v.Cmp(ten) >= 0 {
		v = new(big.Int).Quo(v, ten)
		n++
	}
	return n, nil
}

// WrappingAdd/Sub/Mul implement two's-complement wraparound, defined only
// for integers.
func (x Int[W]) WrappingAdd(y Int[W]) Int[W] {
	var w W
	return Int[W]{v: wrapAround(new(big.Int).Add(x.BigInt(), y.BigInt()), w.Bits(), w.Signed())}
}

func (x Int[W]) WrappingSub(y Int[W]) Int[W] {
	var w W
	return Int[W]{v: wrapAround(new(big.Int).Sub(x.BigInt(), y.BigInt()), w.Bits(), w.Signed())}
}

func (x Int[W]) WrappingMul(y Int[W]) Int[W] {
	var w W
	return Int[W]{v: wrapAround(new(big.Int).Mul(x.BigInt(), y.BigInt()), w.Bits(), w.Signed())}
}

func (x Int[W]) SaturatingAdd(y Int[W]) Int[W] {
	var w W
	min, max := bounds(w.Bits(), w.Signed())
	return Int[W]{v: clamp(new(big.Int).Add(x.BigInt(), y.BigInt()), min, max)}
}

func (x Int[W]) SaturatingSub(y Int[W]) Int[W] {
	var w W
	min, max := bounds(w.Bits(), w.Signed())
	return Int[W]{v: clamp(new(big.Int).Sub(x.BigInt(), y.BigInt()), min, max)}
}

func (x Int[W]) SaturatingMul(y Int[W]) Int[W] {
	var w W
	min, max := bounds(w.Bits(), w.Signed())
	return Int[W]{v: clamp(new(big.Int).Mul(x.BigInt(), y.BigInt()), min, max)}
}

// CheckedMulRatioFloor computes floor(self*num/den) without overflow by
// promoting to math/big internally.
func (x Int[W]) CheckedMulRatioFloor(num, den Int[W]) (Int[W], error) {
	return x.mulRatio(num, den, false)
}

// CheckedMulRatioCeil computes ceil(self*num/den).
func (x Int[W]) CheckedMulRatioCeil(num, den Int[W]) (Int[W], error) {
	return x.mulRatio(num, den, true)
}

func (x Int[W]) mulRatio(num, den Int[W], ceil bool) (Int[W], error) {
	if den.IsZero() {
		return Int[W]{}, grugerrors.ErrDivisionByZero
	}
	var w W
	prod := new(big.Int).Mul(x.BigInt(), num.BigInt())
	q, m := new(big.Int), new(big.Int)
	q.QuoRem(prod, den.BigInt(), m)
	if m.Sign() != 0 {
		if (m.Sign() < 0) != (den.Sign() < 0) {
			q.Sub(q, big.NewInt(1))
		}
		if ceil {
			rem := new(big.Int).Mod(prod, den.BigInt())
			if rem.Sign() != 0 {
				q.Add(q, big.NewInt(1))
			}
		}
	}
	if !fits(q, w.Bits(), w.Signed()) {
		return Int[W]{}, overflowErr()
	}
	return Int[W]{v: q}, nil
}
