package gmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecParseAndString(t *testing.T) {
	d, err := ParseDec[I256]("123.456", 6)
	require.NoError(t, err)
	assert.Equal(t, "123.456000", d.String())
}

func TestDecRejectsTooManyFractionalDigits(t *testing.T) {
	_, err := ParseDec[I256]("1.0000001", 6)
	require.Error(t, err)
}

func TestDecMulAndDiv(t *testing.T) {
	a, err := ParseDec[I256]("2.5", 6)
	require.NoError(t, err)
	b, err := ParseDec[I256]("4", 6)
	require.NoError(t, err)

	prod, err := a.CheckedMul(b)
	require.NoError(t, err)
	assert.Equal(t, "10.000000", prod.String())

	q, err := b.CheckedDiv(a)
	require.NoError(t, err)
	assert.Equal(t, "1.600000", q.String())
}

func TestDecSqrt(t *testing.T) {
	d, err := ParseDec[I256]("9", 6)
	require.NoError(t, err)
	r, err := d.CheckedSqrt()
	require.NoError(t, err)
	assert.Equal(t, "3.000000", r.String())
}

func TestDecNegativeSqrtErrors(t *testing.T) {
	d, err := ParseDec[I256]("-1", 6)
	require.NoError(t, err)
	_, err = d.CheckedSqrt()
	require.Error(t, err)
}

func TestDecJSONRoundTripRestoresPlaces(t *testing.T) {
	d, err := ParseDec[U256]("30", 18)
	require.NoError(t, err)

	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"30.000000000000000000"`, string(data))

	// the receiver is the zero value, the way a decoded message field
	// arrives: the scale must come back from the literal itself.
	var got Dec[U256]
	require.NoError(t, got.UnmarshalJSON(data))
	assert.EqualValues(t, 18, got.Places())
	assert.Equal(t, d.Raw(), got.Raw())
}

func TestDecRescale(t *testing.T) {
	d, err := ParseDec[U256]("30", 0)
	require.NoError(t, err)

	up, err := d.Rescale(18)
	require.NoError(t, err)
	assert.EqualValues(t, 18, up.Places())
	assert.Equal(t, "30.000000000000000000", up.String())

	down, err := up.Rescale(0)
	require.NoError(t, err)
	assert.Equal(t, "30", down.String())

	frac, err := ParseDec[U256]("0.5", 6)
	require.NoError(t, err)
	_, err = frac.Rescale(0)
	require.Error(t, err, "dropping nonzero digits must not silently truncate")
}
