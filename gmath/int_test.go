package gmath

import (
	"testing"

	grugerrors "github.com/left-curve/grug/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedArithmetic(t *testing.T) {
	a := bigOf[Uint64Marker](10)
	b := bigOf[Uint64Marker](3)

	sum, err := a.CheckedAdd(b)
	require.NoError(t, err)
	assert.Equal(t, "13", sum.String())

	q, err := a.CheckedDiv(b)
	require.NoError(t, err)
	assert.Equal(t, "3", q.String())

	_, err = a.CheckedDiv(Zero[Uint64Marker]())
	assert.ErrorIs(t, err, grugerrors.ErrDivisionByZero)
}

func TestCheckedAddOverflow(t *testing.T) {
	max := Max[Uint64Marker]()
	_, err := max.CheckedAdd(One[Uint64Marker]())
	require.Error(t, err)
}

func TestWrappingAddWraps(t *testing.T) {
	max := Max[Uint64Marker]()
	got := max.WrappingAdd(One[Uint64Marker]())
	assert.True(t, got.IsZero())
}

func TestSaturatingAddClamps(t *testing.T) {
	max := Max[Uint64Marker]()
	got := max.SaturatingAdd(One[Uint64Marker]())
	assert.Equal(t, max, got)
}

func TestSignedFloorDiv(t *testing.T) {
	// -7 / 2 floors to -4, unlike truncating division (-3).
	neg7 := bigOf[Int64Marker](-7)
	two := bigOf[Int64Marker](2)
	q, err := neg7.CheckedDiv(two)
	require.NoError(t, err)
	assert.Equal(t, "-4", q.String())
}

func TestCheckedSqrt(t *testing.T) {
	x := bigOf[Uint64Marker](81)
	r, err := x.CheckedSqrt()
	require.NoError(t, err)
	assert.Equal(t, "9", r.String())
}

func TestIlog2Ilog10(t *testing.T) {
	x := bigOf[Uint64Marker](1024)
	l2, err := x.Ilog2()
	require.NoError(t, err)
	assert.EqualValues(t, 10, l2)

	y := bigOf[Uint64Marker](999)
	l10, err := y.Ilog10()
	require.NoError(t, err)
	assert.EqualValues(t, 2, l10)
}

func TestNextPromotion(t *testing.T) {
	x := bigOf[Uint64Marker](42)
	y := NextU64(x)
	assert.Equal(t, "42", y.String())
}

func TestJSONRoundTrip(t *testing.T) {
	x := bigOf[Uint128Marker](123456789)
	data, err := x.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"123456789"`, string(data))

	var y Int[U128]
	require.NoError(t, y.UnmarshalJSON(data))
	assert.Equal(t, x, y)
}

func TestBorshRoundTrip(t *testing.T) {
	x := bigOf[Uint64Marker](0x0102030405060708)
	data := x.MarshalBorsh()
	require.Len(t, data, 8)
	assert.Equal(t, byte(0x08), data[0], "little-endian: least significant byte first")

	y, err := UnmarshalBorshInt[U64](data)
	require.NoError(t, err)
	assert.Equal(t, x, y)
}

// type aliases to keep the table above terse.
type Uint64Marker = U64
type Uint128Marker = U128
type Int64Marker = I64

func TestCheckedPowSignedBase(t *testing.T) {
	negTwo := bigOf[Int64Marker](-2)

	cube, err := negTwo.CheckedPow(3)
	require.NoError(t, err)
	assert.Equal(t, "-8", cube.String())

	square, err := negTwo.CheckedPow(2)
	require.NoError(t, err)
	assert.Equal(t, "4", square.String())
}
