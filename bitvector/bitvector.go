// Package bitvector implements the logical sequence-of-bits type that
// every rank/select/Elias-Fano structure in this module is built over.
//
// The spec distinguishes a "small" (single word array) and a "big"
// (two-level word array) representation, the latter needed once a length
// exceeds 2^31 bits in the original Java implementation (where array
// indices are a signed 32-bit int). Go slices are indexed by int, which is
// 64 bits on every platform this module targets, so a single contiguous
// []uint64 already covers both cases — the design notes explicitly permit
// this simplification ("a reimplementation may instead use a single
// 64-bit-indexed contiguous allocation"). What must not slip is 32-bit
// arithmetic anywhere in the indexing math, so every length/position here
// is a uint64, never an int/int32/uint32.
package bitvector

import (
	"math/bits"

	"github.com/aogurtsov/gosux/broadword"
	"github.com/aogurtsov/gosux/errutil"
)

const wordBits = 64

// BitVector is a resizable sequence of bits backed by a contiguous []uint64.
// The tail invariant holds at all times: bits at index >= Length() within
// the last storage word are zero.
type BitVector struct {
	words  []uint64
	length uint64
}

// New returns a BitVector of the given length, all bits zero.
func New(length uint64) *BitVector {
	return &BitVector{
		words:  make([]uint64, wordsFor(length)),
		length: length,
	}
}

// NewFromWords wraps raw words (as returned by Words) with an explicit bit
// length; bits beyond length in the tail word are masked to zero.
func NewFromWords(words []uint64, length uint64) *BitVector {
	need := wordsFor(length)
	errutil.BugOn(uint64(len(words)) < need, "not enough words for length %d", length)
	bv := &BitVector{words: words[:need], length: length}
	bv.maskTail()
	return bv
}

func wordsFor(length uint64) uint64 {
	return (length + wordBits - 1) / wordBits
}

// maskTail clears any bits beyond length in the final storage word, which
// every mutator that can touch the tail must call before returning.
func (bv *BitVector) maskTail() {
	if bv.length%wordBits == 0 || len(bv.words) == 0 {
		return
	}
	lastIdx := len(bv.words) - 1
	validBits := bv.length % wordBits
	mask := (uint64(1) << validBits) - 1
	bv.words[lastIdx] &= mask
}

// Length returns the number of bits in the vector.
func (bv *BitVector) Length() uint64 { return bv.length }

// Resize changes the vector's length. Growing fills new bits with zero;
// shrinking discards trailing bits (and re-masks the new tail word).
func (bv *BitVector) Resize(n uint64) {
	need := wordsFor(n)
	if need > uint64(len(bv.words)) {
		grown := make([]uint64, need)
		copy(grown, bv.words)
		bv.words = grown
	} else {
		bv.words = bv.words[:need]
	}
	bv.length = n
	bv.maskTail()
}

// Words returns the underlying word storage. Callers must not retain it
// across a mutating call, since Resize/Append may reallocate.
func (bv *BitVector) Words() []uint64 { return bv.words }

func (bv *BitVector) checkIndex(i uint64) {
	if i >= bv.length {
		errutil.OutOfRange("bit index %d >= length %d", i, bv.length)
	}
}

// Get returns the bit at position i.
func (bv *BitVector) Get(i uint64) bool {
	bv.checkIndex(i)
	return bv.words[i/wordBits]&(uint64(1)<<(i%wordBits)) != 0
}

// Set assigns the bit at position i.
func (bv *BitVector) Set(i uint64, b bool) {
	bv.checkIndex(i)
	w := i / wordBits
	mask := uint64(1) << (i % wordBits)
	if b {
		bv.words[w] |= mask
	} else {
		bv.words[w] &^= mask
	}
}

// Flip toggles the bit at position i.
func (bv *BitVector) Flip(i uint64) {
	bv.checkIndex(i)
	bv.words[i/wordBits] ^= uint64(1) << (i % wordBits)
}

// Fill sets every bit in [from, to) to b.
func (bv *BitVector) Fill(from, to uint64, b bool) {
	errutil.BugOn(from > to || to > bv.length, "invalid range [%d,%d) for length %d", from, to, bv.length)
	for i := from; i < to; i++ {
		bv.Set(i, b)
	}
}

// Append appends the low `width` bits of v (width in [0,64]) to the vector
// and returns the index the field started at.
func (bv *BitVector) Append(v uint64, width uint) uint64 {
	if width > 64 {
		errutil.TooLarge("append width %d > 64", width)
	}
	start := bv.length
	if width == 0 {
		return start
	}
	if width < 64 {
		v &= (uint64(1) << width) - 1
	}
	bv.Resize(start + uint64(width))
	remaining := uint64(width)
	value := v
	pos := start
	for remaining > 0 {
		w := pos / wordBits
		bitOff := pos % wordBits
		room := wordBits - bitOff
		take := remaining
		if take > room {
			take = room
		}
		var mask uint64
		if take == 64 {
			mask = ^uint64(0)
		} else {
			mask = (uint64(1) << take) - 1
		}
		bv.words[w] |= (value & mask) << bitOff
		value >>= take
		pos += take
		remaining -= take
	}
	return start
}

// GetLong reads the bit range [from, to) (to-from <= 64) as an unsigned
// integer, least-significant bit first, spanning word boundaries as
// needed. This is the primitive Elias-Fano's lower-bits field reads and
// writes use.
func (bv *BitVector) GetLong(from, to uint64) uint64 {
	errutil.BugOn(from > to || to-from > 64 || to > bv.length, "invalid field [%d,%d) for length %d", from, to, bv.length)
	width := to - from
	if width == 0 {
		return 0
	}
	w := from / wordBits
	bitOff := from % wordBits
	lo := bv.words[w] >> bitOff
	var result uint64
	if bitOff+width <= wordBits {
		result = lo
	} else if int(w)+1 < len(bv.words) {
		hi := bv.words[w+1] << (wordBits - bitOff)
		result = lo | hi
	} else {
		result = lo
	}
	if width < 64 {
		result &= (uint64(1) << width) - 1
	}
	return result
}

// SetLong writes `width` low bits of v into the bit range starting at
// `from`; the inverse of GetLong and Append's per-word loop, usable for
// in-place mutation of an already-sized vector.
func (bv *BitVector) SetLong(from uint64, v uint64, width uint) {
	errutil.BugOn(width > 64 || from+uint64(width) > bv.length, "invalid field [%d,+%d) for length %d", from, width, bv.length)
	if width == 0 {
		return
	}
	if width < 64 {
		v &= (uint64(1) << width) - 1
	}
	remaining := uint64(width)
	value := v
	pos := from
	for remaining > 0 {
		w := pos / wordBits
		bitOff := pos % wordBits
		room := wordBits - bitOff
		take := remaining
		if take > room {
			take = room
		}
		var mask uint64
		if take == 64 {
			mask = ^uint64(0)
		} else {
			mask = (uint64(1) << take) - 1
		}
		bv.words[w] = (bv.words[w] &^ (mask << bitOff)) | ((value & mask) << bitOff)
		value >>= take
		pos += take
		remaining -= take
	}
}

// FirstOne returns the position of the first set bit, or ok=false if the
// vector is all zero.
func (bv *BitVector) FirstOne() (pos uint64, ok bool) {
	for w, word := range bv.words {
		if word == 0 {
			continue
		}
		return uint64(w)*wordBits + uint64(broadword.Lsb(word)), true
	}
	return 0, false
}

// LastOne returns the position of the last set bit, or ok=false if the
// vector is all zero.
func (bv *BitVector) LastOne() (pos uint64, ok bool) {
	for w := len(bv.words) - 1; w >= 0; w-- {
		word := bv.words[w]
		if word == 0 {
			continue
		}
		return uint64(w)*wordBits + uint64(broadword.Msb(word)), true
	}
	return 0, false
}

// MaximumCommonPrefixLength returns the length of the longest common prefix
// between bv and other, scanning word-at-a-time and finishing with
// TrailingZeros64 on the first differing word (mirrors the XOR-then-LCP
// trick used throughout the teacher's bit-string code).
func (bv *BitVector) MaximumCommonPrefixLength(other *BitVector) uint64 {
	minLen := bv.length
	if other.length < minLen {
		minLen = other.length
	}
	minWords := wordsFor(minLen)
	for i := uint64(0); i < minWords; i++ {
		a, b := bv.words[i], other.words[i]
		if a != b {
			lcp := i*wordBits + uint64(bits.TrailingZeros64(a^b))
			if lcp > minLen {
				return minLen
			}
			return lcp
		}
	}
	return minLen
}

// Equal reports whether bv and other have the same length and bits.
func (bv *BitVector) Equal(other *BitVector) bool {
	if bv.length != other.length {
		return false
	}
	for i := range bv.words {
		if bv.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// Copy returns an independent copy of bv.
func (bv *BitVector) Copy() *BitVector {
	words := make([]uint64, len(bv.words))
	copy(words, bv.words)
	return &BitVector{words: words, length: bv.length}
}

// Slice returns a new BitVector holding bits [from, to) of bv.
func (bv *BitVector) Slice(from, to uint64) *BitVector {
	errutil.BugOn(from > to || to > bv.length, "invalid slice [%d,%d) for length %d", from, to, bv.length)
	out := New(to - from)
	pos := uint64(0)
	for i := from; i < to; {
		width := uint64(64)
		if to-i < width {
			width = to - i
		}
		out.SetLong(pos, bv.GetLong(i, i+width), uint(width))
		pos += width
		i += width
	}
	return out
}
