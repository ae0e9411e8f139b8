package keys

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCompositeKeyPrefixEndianness pins the length-prefix byte order:
// reading a composite-key length prefix as little-endian while encoding it
// big-endian goes unnoticed as long as the length fits in one byte -- for
// any length that doesn't, the two interpretations diverge, which is
// exactly what this test checks with a >255-byte element.
func TestCompositeKeyPrefixEndianness(t *testing.T) {
	elem := make([]byte, 300) // >255 so BE/LE reads of its length disagree
	for i := range elem {
		elem[i] = byte(i)
	}
	composite := Compose(elem, []byte("suffix"))

	gotLen := binary.BigEndian.Uint16(composite[:2])
	require.Equal(t, uint16(300), gotLen)

	wrongLen := binary.LittleEndian.Uint16(composite[:2])
	require.NotEqual(t, uint16(300), wrongLen, "BE and LE reads must disagree for this fixture, or the regression test is vacuous")

	elems, err := Split(composite, 2)
	require.NoError(t, err)
	require.Equal(t, elem, elems[0])
	require.Equal(t, []byte("suffix"), elems[1])
}

func TestComposeSplitRoundTrip(t *testing.T) {
	composite := Compose([]byte("a"), []byte("bb"), []byte("ccc"))
	elems, err := Split(composite, 3)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}, elems)
}

func TestSplitTruncatedErrors(t *testing.T) {
	composite := Compose([]byte("a"), []byte("b"))
	_, err := Split(composite[:1], 2)
	require.Error(t, err)
}

func TestSplitPrefixSuffix(t *testing.T) {
	// Compose length-prefixes every element but the last, so both index
	// elements carry a prefix and the raw suffix does not.
	full := Compose([]byte("idx1"), []byte("idx2"), []byte("rawsuffixkey"))

	prefix, suffix, err := SplitPrefixSuffix(full, 2)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("idx1"), []byte("idx2")}, prefix)
	require.Equal(t, []byte("rawsuffixkey"), suffix)
}

func TestUint64CodecOrderPreserving(t *testing.T) {
	c := Uint64Codec()
	a := c.Encode(1)
	b := c.Encode(2)
	c2 := c.Encode(256)
	require.True(t, lessBytes(a, b))
	require.True(t, lessBytes(b, c2))

	v, err := c.Decode(c2)
	require.NoError(t, err)
	require.Equal(t, uint64(256), v)
}

func lessBytes(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
