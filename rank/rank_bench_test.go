package rank

import (
	"math/rand"
	"testing"

	"github.com/hillbig/rsdic"

	"github.com/aogurtsov/gosux/bitvector"
)

// These benchmarks compare this package's rank indexes against
// hillbig/rsdic's rank9-family implementation on the same bit pattern,
// continuing the role succinct_bit_vector/benchmark_test.go gives rsdic in
// the teacher repo: a comparison partner, never the implementation
// vehicle (the whole point of this package is to build rank ourselves).
func buildBenchVector(n int, density float64) *bitvector.BitVector {
	r := rand.New(rand.NewSource(42))
	bv := bitvector.New(uint64(n))
	for i := 0; i < n; i++ {
		if r.Float64() < density {
			bv.Set(uint64(i), true)
		}
	}
	return bv
}

func benchmarkRank9(b *testing.B, n int) {
	bv := buildBenchVector(n, 0.3)
	idx := Build(bv, Rank9)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Rank(uint64(i % n))
	}
}

func benchmarkRank9LowOverhead(b *testing.B, n int) {
	bv := buildBenchVector(n, 0.3)
	idx := Build(bv, Rank9LowOverhead)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Rank(uint64(i % n))
	}
}

func benchmarkRSDicRank(b *testing.B, n int) {
	rs := rsdic.New()
	r := rand.New(rand.NewSource(42))
	for i := 0; i < n; i++ {
		rs.PushBack(r.Float64() < 0.3)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rs.Rank(uint64(i%n), true)
	}
}

func BenchmarkRank9_1K(b *testing.B)   { benchmarkRank9(b, 1000) }
func BenchmarkRank9_100K(b *testing.B) { benchmarkRank9(b, 100_000) }
func BenchmarkRank9_1M(b *testing.B)   { benchmarkRank9(b, 1_000_000) }

func BenchmarkRank9LowOverhead_1K(b *testing.B)   { benchmarkRank9LowOverhead(b, 1000) }
func BenchmarkRank9LowOverhead_100K(b *testing.B) { benchmarkRank9LowOverhead(b, 100_000) }
func BenchmarkRank9LowOverhead_1M(b *testing.B)   { benchmarkRank9LowOverhead(b, 1_000_000) }

func BenchmarkRSDicRank_1K(b *testing.B)   { benchmarkRSDicRank(b, 1000) }
func BenchmarkRSDicRank_100K(b *testing.B) { benchmarkRSDicRank(b, 100_000) }
func BenchmarkRSDicRank_1M(b *testing.B)   { benchmarkRSDicRank(b, 1_000_000) }

// BenchmarkOverheadRatio is not a timing comparison but records the two
// variants' measured space overhead as benchmark metrics; useful to
// eyeball alongside the timing numbers above when picking a variant.
// rsdic's overhead is not reported here.
func BenchmarkOverheadRatio(b *testing.B) {
	bv := buildBenchVector(1_000_000, 0.3)
	r9 := Build(bv, Rank9)
	r9lo := Build(bv, Rank9LowOverhead)
	b.ReportMetric(r9.OverheadRatio(), "rank9-overhead")
	b.ReportMetric(r9lo.OverheadRatio(), "rank9lo-overhead")
}
