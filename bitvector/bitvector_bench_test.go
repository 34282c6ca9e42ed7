package bitvector

import (
	"encoding/base64"
	"math/rand"
	"testing"

	bits "github.com/siongui/go-succinct-data-structure-trie/reference"
)

// These benchmarks compare this package's bit access against the
// reference succinct BitString from siongui/go-succinct-data-structure-trie,
// the same library succinct_bit_vector/benchmark_test.go in the teacher
// repo benchmarks its LOUDS trie's bit access against.
func randomBase64(nBytes int) string {
	r := rand.New(rand.NewSource(11))
	buf := make([]byte, nBytes)
	r.Read(buf)
	return base64.StdEncoding.EncodeToString(buf)
}

func benchmarkBitVectorGet(b *testing.B, nBytes int) {
	data := randomBase64(nBytes)
	raw, _ := base64.StdEncoding.DecodeString(data)
	words := make([]uint64, (len(raw)+7)/8)
	for i, byteVal := range raw {
		words[i/8] |= uint64(byteVal) << uint((i%8)*8)
	}
	bv := NewFromWords(words, uint64(len(raw))*8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bv.Get(uint64(i % int(bv.Length())))
	}
}

func benchmarkReferenceBitStringGet(b *testing.B, nBytes int) {
	data := randomBase64(nBytes)
	bs := &bits.BitString{}
	bs.Init(data)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bs.Get(uint(i%(nBytes*8)), 1)
	}
}

func BenchmarkBitVectorGet_1K(b *testing.B)  { benchmarkBitVectorGet(b, 1000) }
func BenchmarkBitVectorGet_100K(b *testing.B) { benchmarkBitVectorGet(b, 100_000) }

func BenchmarkReferenceBitStringGet_1K(b *testing.B)  { benchmarkReferenceBitStringGet(b, 1000) }
func BenchmarkReferenceBitStringGet_100K(b *testing.B) { benchmarkReferenceBitStringGet(b, 100_000) }
