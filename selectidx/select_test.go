package selectidx

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aogurtsov/gosux/bitvector"
	"github.com/aogurtsov/gosux/errutil"
	"github.com/aogurtsov/gosux/rank"
)

func fromBits(bs ...int) *bitvector.BitVector {
	bv := bitvector.New(0)
	for _, b := range bs {
		bv.Append(uint64(b), 1)
	}
	return bv
}

func TestSpecScenario1Select(t *testing.T) {
	bv := fromBits(1, 0, 1, 1, 0, 0, 0)
	idx := Build(bv, false)
	require.Equal(t, uint64(0), idx.Select(0))
	require.Equal(t, uint64(2), idx.Select(1))
	require.Equal(t, uint64(3), idx.Select(2))
}

func TestSelectRankInverseLaws(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 30; trial++ {
		n := uint64(rng.Intn(30000) + 1)
		bv := bitvector.New(n)
		for i := uint64(0); i < n; i++ {
			if rng.Float32() < 0.35 {
				bv.Set(i, true)
			}
		}
		ri := rank.Build(bv, rank.Rank9)
		si := Build(bv, false)
		require.Equal(t, ri.TotalOnes(), si.Total())

		for i := 0; i < 100 && si.Total() > 0; i++ {
			r := uint64(rng.Int63n(int64(si.Total())))
			p := si.Select(r)
			require.Equal(t, r, ri.Rank(p), "rank(select(r)) must equal r")
			require.True(t, bv.Get(p))
		}
		for i := 0; i < 100; i++ {
			p := uint64(rng.Int63n(int64(n)))
			r := ri.Rank(p)
			if r >= si.Total() {
				continue
			}
			sp := si.Select(r)
			require.GreaterOrEqual(t, sp, p)
			if bv.Get(p) {
				require.Equal(t, p, sp)
			}
		}
	}
}

func TestSelectZeroDual(t *testing.T) {
	bv := fromBits(1, 0, 1, 1, 0, 0, 0)
	sz := Build(bv, true)
	require.Equal(t, uint64(4), sz.Total())
	require.Equal(t, uint64(1), sz.Select(0))
	require.Equal(t, uint64(4), sz.Select(1))
	require.Equal(t, uint64(5), sz.Select(2))
	require.Equal(t, uint64(6), sz.Select(3))
}

func TestSelectZeroAgainstNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	n := uint64(12345)
	bv := bitvector.New(n)
	for i := uint64(0); i < n; i++ {
		if rng.Float32() < 0.2 {
			bv.Set(i, true)
		}
	}
	sz := Build(bv, true)

	var naive []uint64
	for i := uint64(0); i < n; i++ {
		if !bv.Get(i) {
			naive = append(naive, i)
		}
	}
	require.Equal(t, uint64(len(naive)), sz.Total())
	for i := 0; i < 200; i++ {
		r := uint64(rng.Intn(len(naive)))
		require.Equal(t, naive[r], sz.Select(r))
	}
}

func TestBulkSelectMatchesRepeatedSelect(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := uint64(50000)
	bv := bitvector.New(n)
	for i := uint64(0); i < n; i++ {
		if rng.Float32() < 0.4 {
			bv.Set(i, true)
		}
	}
	idx := Build(bv, false)
	r := idx.Total() / 3
	length := 200
	dest := make([]uint64, length)
	idx.BulkSelect(r, dest, length)
	for i := 0; i < length; i++ {
		require.Equal(t, idx.Select(r+uint64(i)), dest[i], "i=%d", i)
	}
}

func TestSelectOutOfRangePanics(t *testing.T) {
	bv := fromBits(1, 0, 0)
	idx := Build(bv, false)
	require.Panics(t, func() { idx.Select(1) })
}

func TestSelectHandlesSparseSpilledSpans(t *testing.T) {
	// A very sparse vector forces spans wider than MaxSpan, exercising
	// the spill path.
	n := uint64(3) * MaxSpan
	bv := bitvector.New(n)
	bv.Set(0, true)
	bv.Set(n-1, true)
	idx := Build(bv, false)
	require.Equal(t, uint64(2), idx.Total())
	require.Equal(t, uint64(0), idx.Select(0))
	require.Equal(t, n-1, idx.Select(1))
}

func TestSerializeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	n := uint64(9000)
	bv := bitvector.New(n)
	for i := uint64(0); i < n; i++ {
		if rng.Float32() < 0.3 {
			bv.Set(i, true)
		}
	}
	for _, zero := range []bool{false, true} {
		idx := Build(bv, zero)
		restored, err := Deserialize(idx.Serialize())
		require.NoError(t, err)
		require.Equal(t, idx.Total(), restored.Total())
		for i := 0; i < 100 && idx.Total() > 0; i++ {
			r := uint64(rng.Int63n(int64(idx.Total())))
			require.Equal(t, idx.Select(r), restored.Select(r))
		}
	}
}

func TestReportAccountsForBitvectorAndOverhead(t *testing.T) {
	bv := fromBits(1, 0, 1, 1, 0, 0, 0)
	idx := Build(bv, false)
	r := idx.Report()
	require.Equal(t, bv.Length()+idx.NumBits(), r.Bits())
}

func TestSelectDeserializeRejectsBadVersion(t *testing.T) {
	bv := fromBits(1, 0, 1)
	idx := Build(bv, false)
	data := idx.Serialize()
	data[0] = 0xFF
	_, err := Deserialize(data)
	require.ErrorIs(t, err, errutil.ErrIncompatibleFormat)
}
