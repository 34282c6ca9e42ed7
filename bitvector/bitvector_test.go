package bitvector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSetFlip(t *testing.T) {
	bv := New(130)
	require.Equal(t, uint64(130), bv.Length())
	for i := uint64(0); i < 130; i++ {
		require.False(t, bv.Get(i))
	}
	bv.Set(0, true)
	bv.Set(63, true)
	bv.Set(64, true)
	bv.Set(129, true)
	require.True(t, bv.Get(0))
	require.True(t, bv.Get(63))
	require.True(t, bv.Get(64))
	require.True(t, bv.Get(129))
	bv.Flip(0)
	require.False(t, bv.Get(0))
}

func TestTailInvariant(t *testing.T) {
	bv := New(5)
	bv.Fill(0, 5, true)
	require.Equal(t, uint64(0b11111), bv.Words()[0])
	bv.Resize(70)
	require.Equal(t, uint64(0b11111), bv.Words()[0])
	require.Equal(t, uint64(0), bv.Words()[1])
}

func TestAppendAndGetLong(t *testing.T) {
	bv := New(0)
	bv.Append(0b101, 3)
	bv.Append(0b11110000, 8)
	require.Equal(t, uint64(11), bv.Length())
	require.Equal(t, uint64(0b101), bv.GetLong(0, 3))
	require.Equal(t, uint64(0b11110000), bv.GetLong(3, 11))
}

func TestGetLongSpansWordBoundary(t *testing.T) {
	bv := New(0)
	for i := 0; i < 70; i++ {
		bv.Append(1, 1)
	}
	bv.Set(60, false)
	got := bv.GetLong(58, 66)
	require.Equal(t, uint64(0b11111011), got)
}

func TestSetLongRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	bv := New(1000)
	for trial := 0; trial < 200; trial++ {
		from := uint64(rng.Intn(900))
		width := uint(rng.Intn(64) + 1)
		if from+uint64(width) > 1000 {
			continue
		}
		var v uint64
		if width == 64 {
			v = rng.Uint64()
		} else {
			v = rng.Uint64() & ((uint64(1) << width) - 1)
		}
		bv.SetLong(from, v, width)
		require.Equal(t, v, bv.GetLong(from, from+uint64(width)))
	}
}

func TestFirstLastOne(t *testing.T) {
	bv := New(200)
	_, ok := bv.FirstOne()
	require.False(t, ok)
	_, ok = bv.LastOne()
	require.False(t, ok)

	bv.Set(5, true)
	bv.Set(150, true)
	first, ok := bv.FirstOne()
	require.True(t, ok)
	require.Equal(t, uint64(5), first)
	last, ok := bv.LastOne()
	require.True(t, ok)
	require.Equal(t, uint64(150), last)
}

func TestMaximumCommonPrefixLength(t *testing.T) {
	a := New(0)
	b := New(0)
	for _, bit := range []bool{true, false, true, true, false, true} {
		a.Append(b2u(bit), 1)
	}
	for _, bit := range []bool{true, false, true, false, false, true} {
		b.Append(b2u(bit), 1)
	}
	require.Equal(t, uint64(3), a.MaximumCommonPrefixLength(b))
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func TestEqualAndCopy(t *testing.T) {
	a := New(0)
	a.Append(0xABCD, 16)
	b := a.Copy()
	require.True(t, a.Equal(b))
	b.Flip(0)
	require.False(t, a.Equal(b))
}

func TestSlice(t *testing.T) {
	bv := New(0)
	for i := uint64(0); i < 100; i++ {
		bv.Append(b2u(i%7 == 0), 1)
	}
	s := bv.Slice(10, 40)
	require.Equal(t, uint64(30), s.Length())
	for i := uint64(0); i < 30; i++ {
		require.Equal(t, bv.Get(10+i), s.Get(i))
	}
}

func TestOutOfRangePanics(t *testing.T) {
	bv := New(10)
	require.Panics(t, func() { bv.Get(10) })
	require.Panics(t, func() { bv.Set(11, true) })
}

func TestSerializeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	bv := New(0)
	for i := 0; i < 500; i++ {
		bv.Append(rng.Uint64(), uint(rng.Intn(64)+1))
	}
	restored, err := Deserialize(bv.Serialize())
	require.NoError(t, err)
	require.True(t, bv.Equal(restored))
}

func TestDeserializeRejectsBadVersion(t *testing.T) {
	bv := New(64)
	data := bv.Serialize()
	data[0] = 0xFF
	_, err := Deserialize(data)
	require.Error(t, err)
}

func TestDeserializeRejectsTruncated(t *testing.T) {
	bv := New(128)
	data := bv.Serialize()
	_, err := Deserialize(data[:len(data)-4])
	require.Error(t, err)
}
