package gmath

import grugerrors "github.com/left-curve/grug/errors"

// Rational is a num/den pair over the widest signed integer, used by
// multiply-ratio/-fraction and by the DEX's clearing-price
// midpoint arithmetic where an exact, unreduced fraction
// must be carried between steps.
type Rational struct {
	Num Int512
	Den Int512
}

func NewRational(num, den int64) (Rational, error) {
	if den == 0 {
		return Rational{}, grugerrors.ErrDivisionByZero
	}
	return Rational{Num: bigOf[I512](num), Den: bigOf[I512](den)}, nil
}

// FloorDiv returns the floored quotient num/den.
func (r Rational) FloorDiv() (Int512, error) { return r.Num.CheckedDiv(r.Den) }

// CeilDiv returns the ceiled quotient num/den.
func (r Rational) CeilDiv() (Int512, error) {
	q, err := r.Num.CheckedDiv(r.Den)
	if err != nil {
		return Int512{}, err
	}
	prod, err := q.CheckedMul(r.Den)
	if err != nil {
		return Int512{}, err
	}
	if !prod.Equal(r.Num) {
		return q.CheckedAdd(One[I512]())
	}
	return q, nil
}

// Add combines two rationals over a common denominator (cross-multiplied),
// never reducing fractions early.
func (r Rational) Add(o Rational) (Rational, error) {
	lhs, err := r.Num.CheckedMul(o.Den)
	if err != nil {
		return Rational{}, err
	}
	rhs, err := o.Num.CheckedMul(r.Den)
	if err != nil {
		return Rational{}, err
	}
	num, err := lhs.CheckedAdd(rhs)
	if err != nil {
		return Rational{}, err
	}
	den, err := r.Den.CheckedMul(o.Den)
	if err != nil {
		return Rational{}, err
	}
	return Rational{Num: num, Den: den}, nil
}

// Mean returns the midpoint of two rationals, used to compute the DEX
// clearing price as the midpoint of the feasible interval.
func Mean(a, b Rational) (Rational, error) {
	sum, err := a.Add(b)
	if err != nil {
		return Rational{}, err
	}
	den, err := sum.Den.CheckedMul(bigOf[I512](2))
	if err != nil {
		return Rational{}, err
	}
	return Rational{Num: sum.Num, Den: den}, nil
}
