package rank

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aogurtsov/gosux/bitvector"
	"github.com/aogurtsov/gosux/errutil"
)

func fromBits(bs ...int) *bitvector.BitVector {
	bv := bitvector.New(0)
	for _, b := range bs {
		bv.Append(uint64(b), 1)
	}
	return bv
}

func naiveRank(bv *bitvector.BitVector, p uint64) uint64 {
	var c uint64
	for i := uint64(0); i < p; i++ {
		if bv.Get(i) {
			c++
		}
	}
	return c
}

func TestSpecScenario1(t *testing.T) {
	bv := fromBits(1, 0, 1, 1, 0, 0, 0)
	for _, variant := range []Variant{Rank9, Rank9LowOverhead} {
		idx := Build(bv, variant)
		require.Equal(t, uint64(0), idx.Rank(0))
		require.Equal(t, uint64(1), idx.Rank(1))
		require.Equal(t, uint64(2), idx.Rank(3))
		require.Equal(t, uint64(3), idx.Rank(4))
		require.Equal(t, uint64(3), idx.Rank(7))
	}
}

func TestRankAgainstNaiveRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 30; trial++ {
		n := uint64(rng.Intn(20000) + 1)
		bv := bitvector.New(n)
		for i := uint64(0); i < n; i++ {
			if rng.Float32() < 0.3 {
				bv.Set(i, true)
			}
		}
		for _, variant := range []Variant{Rank9, Rank9LowOverhead} {
			idx := Build(bv, variant)
			for _, p := range []uint64{0, n, n / 2, n / 3, n - 1} {
				require.Equal(t, naiveRank(bv, p), idx.Rank(p), "variant=%d n=%d p=%d", variant, n, p)
			}
			// Spot-check a handful of random positions too.
			for i := 0; i < 50; i++ {
				p := uint64(rng.Intn(int(n) + 1))
				require.Equal(t, naiveRank(bv, p), idx.Rank(p))
			}
		}
	}
}

func TestRankAtLengthEqualsTotalOnes(t *testing.T) {
	bv := bitvector.New(1000)
	ones := 0
	for i := uint64(0); i < 1000; i += 3 {
		bv.Set(i, true)
		ones++
	}
	idx := Build(bv, Rank9)
	require.Equal(t, uint64(ones), idx.Rank(1000))
	require.Equal(t, uint64(ones), idx.TotalOnes())
}

func TestRankMonotoneLawRankLessEqualP(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := uint64(5000)
	bv := bitvector.New(n)
	for i := uint64(0); i < n; i++ {
		if rng.Float32() < 0.5 {
			bv.Set(i, true)
		}
	}
	idx := Build(bv, Rank9LowOverhead)
	for i := 0; i < 200; i++ {
		p := uint64(rng.Intn(int(n) + 1))
		require.LessOrEqual(t, idx.Rank(p), p)
	}
}

func TestOverheadRatioDocumented(t *testing.T) {
	bv := bitvector.New(1 << 20)
	r9 := Build(bv, Rank9)
	r12 := Build(bv, Rank9LowOverhead)
	require.InDelta(t, 0.25, r9.OverheadRatio(), 0.02)
	require.Less(t, r12.OverheadRatio(), r9.OverheadRatio())
}

func TestSerializeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	n := uint64(4321)
	bv := bitvector.New(n)
	for i := uint64(0); i < n; i++ {
		if rng.Float32() < 0.4 {
			bv.Set(i, true)
		}
	}
	for _, variant := range []Variant{Rank9, Rank9LowOverhead} {
		idx := Build(bv, variant)
		restored, err := Deserialize(idx.Serialize())
		require.NoError(t, err)
		require.Equal(t, idx.TotalOnes(), restored.TotalOnes())
		require.Equal(t, idx.Variant(), restored.Variant())
		for i := 0; i < 100; i++ {
			p := uint64(rng.Intn(int(n) + 1))
			require.Equal(t, idx.Rank(p), restored.Rank(p))
		}
	}
}

func TestReportAccountsForBitvectorAndOverhead(t *testing.T) {
	bv := bitvector.New(2000)
	idx := Build(bv, Rank9)
	r := idx.Report()
	require.Equal(t, bv.Length()+idx.NumBits(), r.Bits())
}

func TestDeserializeRejectsBadVersion(t *testing.T) {
	bv := bitvector.New(8)
	idx := Build(bv, Rank9)
	data := idx.Serialize()
	data[0] = 0xFF
	_, err := Deserialize(data)
	require.ErrorIs(t, err, errutil.ErrIncompatibleFormat)
}
