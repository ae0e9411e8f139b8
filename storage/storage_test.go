package storage

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64Codec() KeyCodec[uint64] {
	return KeyCodec[uint64]{
		Encode: func(v uint64) []byte {
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], v)
			return b[:]
		},
		Decode: func(raw []byte) (uint64, error) {
			return binary.BigEndian.Uint64(raw), nil
		},
	}
}

func TestItemSaveLoad(t *testing.T) {
	b := NewMemBackend()
	item := NewItem[string]([]byte("greeting"))

	_, ok, err := item.MayLoad(b)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, item.Save(b, "hello"))
	v, err := item.Load(b)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	item.Remove(b)
	assert.False(t, item.Has(b))
}

func TestMapRangeOrder(t *testing.T) {
	b := NewMemBackend()
	m := NewMap[uint64, string]([]byte("m/"), u64Codec())

	for i, v := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.Save(b, uint64(i), v))
	}

	asc, err := m.Range(b, nil, nil, Ascending)
	require.NoError(t, err)
	require.Len(t, asc, 4)
	assert.Equal(t, uint64(0), asc[0].Key)
	assert.Equal(t, "a", asc[0].Value)
	assert.Equal(t, uint64(3), asc[3].Key)

	desc, err := m.Range(b, nil, nil, Descending)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), desc[0].Key)
}

func TestMapBoundedRange(t *testing.T) {
	b := NewMemBackend()
	m := NewMap[uint64, string]([]byte("m/"), u64Codec())
	for i := uint64(0); i < 10; i++ {
		require.NoError(t, m.Save(b, i, "x"))
	}

	min := uint64(3)
	max := uint64(7)
	entries, err := m.Range(b, &min, &max, Ascending)
	require.NoError(t, err)
	require.Len(t, entries, 4) // 3,4,5,6 (max exclusive)
	assert.Equal(t, uint64(3), entries[0].Key)
	assert.Equal(t, uint64(6), entries[3].Key)
}

func TestMapClearRemovesOnlyNamespace(t *testing.T) {
	b := NewMemBackend()
	m1 := NewMap[uint64, string]([]byte("a/"), u64Codec())
	m2 := NewMap[uint64, string]([]byte("b/"), u64Codec())

	require.NoError(t, m1.Save(b, 1, "x"))
	require.NoError(t, m2.Save(b, 1, "y"))

	m1.Clear(b)
	assert.False(t, m1.Has(b, 1))
	assert.True(t, m2.Has(b, 1))
}

func TestSetMembership(t *testing.T) {
	b := NewMemBackend()
	s := NewSet[uint64]([]byte("s/"), u64Codec())

	require.NoError(t, s.Insert(b, 42))
	assert.True(t, s.Has(b, 42))
	s.Remove(b, 42)
	assert.False(t, s.Has(b, 42))
}

func TestCounterIncrAndNext(t *testing.T) {
	b := NewMemBackend()
	c := NewCounter([]byte("seq"))

	assert.Equal(t, uint64(0), c.Next(b))
	assert.Equal(t, uint64(1), c.Next(b))
	assert.Equal(t, uint64(2), c.Load(b))

	assert.Equal(t, uint64(3), c.Incr(b))
}

func TestCounterDecrUnderflowErrors(t *testing.T) {
	b := NewMemBackend()
	c := NewCounter([]byte("seq"))
	_, err := c.Decr(b)
	assert.Error(t, err)
}

type orderRecord struct {
	Owner uint64
	Price uint64
}

func TestMultiIndexPrefixLookup(t *testing.T) {
	b := NewMemBackend()
	primary := NewMap[uint64, orderRecord]([]byte("o/"), u64Codec())
	priceIdx := NewMultiIndex[uint64, uint64, orderRecord](
		[]byte("o.price/"),
		func(v orderRecord) uint64 { return v.Price },
		u64Codec(), u64Codec(),
	)
	im := NewIndexedMap[uint64, orderRecord](primary, priceIdx)

	require.NoError(t, im.Save(b, 1, orderRecord{Owner: 100, Price: 50}))
	require.NoError(t, im.Save(b, 2, orderRecord{Owner: 200, Price: 50}))
	require.NoError(t, im.Save(b, 3, orderRecord{Owner: 300, Price: 60}))

	pks, err := priceIdx.Prefix(b, 50, Ascending)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{1, 2}, pks)

	require.NoError(t, im.Remove(b, 1))
	pks, err = priceIdx.Prefix(b, 50, Ascending)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, pks)
}

type labeledRecord struct {
	Label string
}

func TestUniqueIndexRejectsDuplicate(t *testing.T) {
	b := NewMemBackend()
	strCodec := KeyCodec[string]{
		Encode: func(s string) []byte { return []byte(s) },
		Decode: func(raw []byte) (string, error) { return string(raw), nil },
	}
	primary := NewMap[uint64, labeledRecord]([]byte("c/"), u64Codec())
	labelIdx := NewUniqueIndex[string, uint64, labeledRecord](
		[]byte("c.label/"),
		func(v labeledRecord) string { return v.Label },
		strCodec, u64Codec(),
	)
	im := NewIndexedMap[uint64, labeledRecord](primary, labelIdx)

	require.NoError(t, im.Save(b, 1, labeledRecord{Label: "vault"}))
	err := im.Save(b, 2, labeledRecord{Label: "vault"})
	assert.Error(t, err)

	pk, ok, err := labelIdx.Load(b, "vault")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), pk)
}

func TestMapKeysValuesAndRawForms(t *testing.T) {
	b := NewMemBackend()
	m := NewMap[uint64, string]([]byte("kv/"), u64Codec())

	for i, v := range []string{"x", "y", "z"} {
		require.NoError(t, m.Save(b, uint64(i+1), v))
	}

	ks, err := m.Keys(b, nil, nil, Ascending)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, ks)

	vs, err := m.Values(b, nil, nil, Descending)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "y", "x"}, vs)

	raw, err := m.RangeRaw(b, nil, nil, Ascending)
	require.NoError(t, err)
	require.Len(t, raw, 3)
	// keys come back namespace-relative, still 8-byte big-endian
	assert.Equal(t, u64Codec().Encode(1), raw[0].Key)
	assert.Equal(t, []byte(`"x"`), raw[0].Value)

	rawKeys, err := m.KeysRaw(b, nil, nil, Ascending)
	require.NoError(t, err)
	require.Len(t, rawKeys, 3)
	assert.Equal(t, u64Codec().Encode(3), rawKeys[2])

	rawVals, err := m.ValuesRaw(b, nil, nil, Ascending)
	require.NoError(t, err)
	assert.Equal(t, []byte(`"y"`), rawVals[1])

	lo, hi := uint64(2), uint64(3)
	bounded, err := m.Keys(b, &lo, &hi, Ascending)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, bounded)
}
