package gmath

import (
	"math/big"
	"strings"

	grugerrors "github.com/left-curve/grug/errors"
)

// Dec is a fixed-point decimal: an Int[W] raw value interpreted as
// raw / 10^places. Go has no const generics, so places is carried as a
// runtime field; the concrete constructors below (NewDec6/18/24) pin the
// common choices.
type Dec[W Width] struct {
	raw    Int[W]
	places uint32
}

func tenPow(n uint32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(uint64(n)), nil)
}

func NewDecRaw[W Width](raw Int[W], places uint32) Dec[W] {
	return Dec[W]{raw: raw, places: places}
}

func NewDec6[W Width](raw Int[W]) Dec[W]  { return NewDecRaw(raw, 6) }
func NewDec18[W Width](raw Int[W]) Dec[W] { return NewDecRaw(raw, 18) }
func NewDec24[W Width](raw Int[W]) Dec[W] { return NewDecRaw(raw, 24) }

func (d Dec[W]) Places() uint32 { return d.places }
func (d Dec[W]) Raw() Int[W]    { return d.raw }
func (d Dec[W]) IsZero() bool   { return d.raw.IsZero() }
func (d Dec[W]) IsNeg() bool    { return d.raw.IsNeg() }
func (d Dec[W]) Sign() int      { return d.raw.Sign() }

// ParseDec parses a base-10 decimal string ("123.456000"), the JSON codec's
// wire form. Rejects strings with more fractional digits than `places`
//.
func ParseDec[W Width](s string, places uint32) (Dec[W], error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart, fracPart, hasFrac := s, "", false
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		hasFrac = true
	}
	if hasFrac && uint32(len(fracPart)) > places {
		return Dec[W]{}, grugerrors.New(grugerrors.ERR_PARSE, "decimal %q has more than %d fractional digits", s, places)
	}
	fracPart = fracPart + strings.Repeat("0", int(places)-len(fracPart))

	raw, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return Dec[W]{}, grugerrors.New(grugerrors.ERR_PARSE, "invalid decimal literal %q", s)
	}
	if neg {
		raw.Neg(raw)
	}

	r, err := CheckedFromBigInt[W](raw)
	if err != nil {
		return Dec[W]{}, err
	}
	return Dec[W]{raw: r, places: places}, nil
}

func (d Dec[W]) String() string {
	raw := d.raw.BigInt()
	neg := raw.Sign() < 0
	if neg {
		raw = new(big.Int).Neg(raw)
	}

	s := raw.String()
	for uint32(len(s)) <= d.places {
		s = "0" + s
	}
	cut := len(s) - int(d.places)
	intPart, fracPart := s[:cut], s[cut:]
	out := intPart
	if d.places > 0 {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

func (d Dec[W]) MarshalJSON() ([]byte, error) { return []byte(`"` + d.String() + `"`), nil }

// UnmarshalJSON restores a decimal from its wire form. The usual receiver
// is the zero value (a decimal field of a message being decoded), which
// carries no scale of its own, so the scale is taken from the literal's
// fractional digit count -- MarshalJSON always spells out every place, so
// a round trip restores the original places. A receiver whose places is
// already pinned keeps it, rejecting finer literals; callers that need a
// specific working scale regardless of how the literal was spelled
// Rescale after decoding.
func (d *Dec[W]) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	places := d.places
	if places == 0 {
		if i := strings.IndexByte(s, '.'); i >= 0 {
			places = uint32(len(s) - i - 1)
		}
	}
	v, err := ParseDec[W](s, places)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Rescale returns the same numeric value carried at a different places
// count. Scaling up multiplies the raw value (checked); scaling down is
// only exact when every dropped digit is zero, and errors otherwise.
func (d Dec[W]) Rescale(places uint32) (Dec[W], error) {
	if places == d.places {
		return d, nil
	}
	if places > d.places {
		raw := new(big.Int).Mul(d.raw.BigInt(), tenPow(places-d.places))
		r, err := CheckedFromBigInt[W](raw)
		if err != nil {
			return Dec[W]{}, err
		}
		return Dec[W]{raw: r, places: places}, nil
	}
	q, m := new(big.Int), new(big.Int)
	q.QuoRem(d.raw.BigInt(), tenPow(d.places-places), m)
	if m.Sign() != 0 {
		return Dec[W]{}, grugerrors.New(grugerrors.ERR_PARSE, "cannot rescale %s to %d places without truncation", d, places)
	}
	r, err := CheckedFromBigInt[W](q)
	if err != nil {
		return Dec[W]{}, err
	}
	return Dec[W]{raw: r, places: places}, nil
}

// MarshalBorsh encodes the raw fixed-width integer (structural codec).
func (d Dec[W]) MarshalBorsh() []byte { return d.raw.MarshalBorsh() }

func (d Dec[W]) CheckedAdd(o Dec[W]) (Dec[W], error) {
	r, err := d.raw.CheckedAdd(o.raw)
	return Dec[W]{raw: r, places: d.places}, err
}

func (d Dec[W]) CheckedSub(o Dec[W]) (Dec[W], error) {
	r, err := d.raw.CheckedSub(o.raw)
	return Dec[W]{raw: r, places: d.places}, err
}

// CheckedMul computes d*o, rescaling the raw product back down by 10^places.
func (d Dec[W]) CheckedMul(o Dec[W]) (Dec[W], error) {
	var w W
	prod := new(big.Int).Mul(d.raw.BigInt(), o.raw.BigInt())
	q := new(big.Int).Quo(prod, tenPow(d.places))
	if !fits(q, w.Bits(), w.Signed()) {
		return Dec[W]{}, overflowErr()
	}
	return Dec[W]{raw: Int[W]{v: q}, places: d.places}, nil
}

// CheckedDiv computes d/o, rescaling the numerator up by 10^places first.
func (d Dec[W]) CheckedDiv(o Dec[W]) (Dec[W], error) {
	if o.IsZero() {
		return Dec[W]{}, grugerrors.ErrDivisionByZero
	}
	var w W
	num := new(big.Int).Mul(d.raw.BigInt(), tenPow(d.places))
	q := new(big.Int).Quo(num, o.raw.BigInt())
	if !fits(q, w.Bits(), w.Signed()) {
		return Dec[W]{}, overflowErr()
	}
	return Dec[W]{raw: Int[W]{v: q}, places: d.places}, nil
}

// CheckedMulIntFloor/Ceil implement multiply-fraction: decimal * integer
// with explicit rounding.
func (d Dec[W]) CheckedMulIntFloor(n Int[W]) (Int[W], error) {
	prod := new(big.Int).Mul(d.raw.BigInt(), n.BigInt())
	q := new(big.Int)
	m := new(big.Int)
	div := tenPow(d.places)
	q.QuoRem(prod, div, m)
	if m.Sign() != 0 && (m.Sign() < 0) != (div.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return CheckedFromBigInt[W](q)
}

func (d Dec[W]) CheckedMulIntCeil(n Int[W]) (Int[W], error) {
	prod := new(big.Int).Mul(d.raw.BigInt(), n.BigInt())
	div := tenPow(d.places)
	q, m := new(big.Int), new(big.Int)
	q.QuoRem(prod, div, m)
	if m.Sign() != 0 {
		if (m.Sign() < 0) != (div.Sign() < 0) {
			q.Sub(q, big.NewInt(1))
		}
		rem := new(big.Int).Mod(prod, div)
		if rem.Sign() != 0 {
			q.Add(q, big.NewInt(1))
		}
	}
	return CheckedFromBigInt[W](q)
}

// CheckedPow implements exponentiation-by-squaring on the decimal value.
func (d Dec[W]) CheckedPow(exp uint32) (Dec[W], error) {
	if exp == 0 {
		one, err := CheckedFromBigInt[W](tenPow(d.places))
		return Dec[W]{raw: one, places: d.places}, err
	}
	base := d
	one, err := CheckedFromBigInt[W](tenPow(d.places))
	if err != nil {
		return Dec[W]{}, err
	}
	y := Dec[W]{raw: one, places: d.places}
	for exp > 1 {
		if exp%2 == 0 {
			base, err = base.CheckedMul(base)
			if err != nil {
				return Dec[W]{}, err
			}
			exp /= 2
		} else {
			y, err = base.CheckedMul(y)
			if err != nil {
				return Dec[W]{}, err
			}
			base, err = base.CheckedMul(base)
			if err != nil {
				return Dec[W]{}, err
			}
			exp = (exp - 1) / 2
		}
	}
	return base.CheckedMul(y)
}

// CheckedSqrt scales the raw value up by 10^places then takes an integer
// square root, so the result keeps the same number of places.
func (d Dec[W]) CheckedSqrt() (Dec[W], error) {
	if d.IsNeg() {
		return Dec[W]{}, grugerrors.ErrNegativeSqrt
	}
	scaled := new(big.Int).Mul(d.raw.BigInt(), tenPow(d.places))
	root := new(big.Int).Sqrt(scaled)
	r, err := CheckedFromBigInt[W](root)
	if err != nil {
		return Dec[W]{}, err
	}
	return Dec[W]{raw: r, places: d.places}, nil
}

func (d Dec[W]) SaturatingAdd(o Dec[W]) Dec[W] {
	return Dec[W]{raw: d.raw.SaturatingAdd(o.raw), places: d.places}
}

func (d Dec[W]) SaturatingSub(o Dec[W]) Dec[W] {
	return Dec[W]{raw: d.raw.SaturatingSub(o.raw), places: d.places}
}
