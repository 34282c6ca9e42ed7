// Package eliasfano implements the Elias-Fano encoding of a nondecreasing
// sequence of unsigned integers: a fixed-width `lower` field per element
// plus a unary `upper` bit vector supporting O(1) random access and bulk
// forward iteration.
package eliasfano

import (
	"math/bits"

	"github.com/aogurtsov/gosux/bitvector"
	"github.com/aogurtsov/gosux/broadword"
	"github.com/aogurtsov/gosux/errutil"
	"github.com/aogurtsov/gosux/internal/sstat"
	"github.com/aogurtsov/gosux/selectidx"
)

// List is a plain Elias-Fano encoded monotone sequence.
type List struct {
	n     uint64
	upper uint64 // bound: every value is in [0, upper)
	l     uint   // lower-field width
	lower *bitvector.BitVector
	up    *bitvector.BitVector
	sel   *selectidx.Index
}

// Indexed additionally keeps a selectZero engine over upper, enabling O(1)
// skip-to-value queries.
type Indexed struct {
	*List
	selZero *selectidx.Index
}

// Build encodes values (which must be nondecreasing) bounded by upperBound
// (every value < upperBound) into a plain Elias-Fano List.
func Build(values []uint64, upperBound uint64) *List {
	n := uint64(len(values))
	l := lowerWidth(upperBound, n)

	lower := bitvector.New(0)
	upperLen := n + ceilDivShift(upperBound, l)
	up := bitvector.New(upperLen)

	var prev uint64
	for i, v := range values {
		errutil.BugOn(uint64(i) > 0 && v < prev, "elias-fano input not nondecreasing at index %d", i)
		prev = v
		if l > 0 {
			lower.Append(v&((uint64(1)<<l)-1), l)
		}
		pos := (v >> l) + uint64(i)
		up.Set(pos, true)
	}

	list := &List{n: n, upper: upperBound, l: l, lower: lower, up: up}
	list.sel = selectidx.Build(up, false)
	return list
}

// BuildIndexed encodes values the same way as Build, additionally building
// the selectZero engine over upper needed for skip-to-value queries.
func BuildIndexed(values []uint64, upperBound uint64) *Indexed {
	list := Build(values, upperBound)
	return &Indexed{List: list, selZero: selectidx.Build(list.up, true)}
}

func lowerWidth(upperBound, n uint64) uint {
	if n == 0 || upperBound == 0 {
		return 0
	}
	ratio := upperBound / n
	if ratio == 0 {
		return 0
	}
	return uint(bits.Len64(ratio) - 1)
}

func ceilDivShift(upperBound uint64, l uint) uint64 {
	if l == 0 {
		return upperBound
	}
	return (upperBound + (uint64(1) << l) - 1) >> l
}

// Len returns the number of elements encoded.
func (list *List) Len() uint64 { return list.n }

// Size64 reports the total size in bits of this structure's storage,
// including the select index over upper.
func (list *List) Size64() uint64 {
	total := list.up.Length()
	if list.lower != nil {
		total += list.lower.Length()
	}
	total += list.sel.NumBits()
	return total
}

// Report breaks this list's size into its lower-bits field, upper unary
// stream, and the select index built over that stream.
func (list *List) Report() sstat.Report {
	var lowerBits uint64
	if list.lower != nil {
		lowerBits = list.lower.Length()
	}
	return sstat.Node("eliasfano.List",
		sstat.Leaf("lower", lowerBits),
		sstat.Leaf("upper", list.up.Length()),
		sstat.Leaf("select-index-overhead", list.sel.NumBits()),
	)
}

// Report additionally folds in the selectZero engine's overhead.
func (idx *Indexed) Report() sstat.Report {
	return sstat.Node("eliasfano.Indexed",
		idx.List.Report(),
		sstat.Leaf("selectzero-index-overhead", idx.selZero.NumBits()),
	)
}

// Get returns the i-th encoded value.
func (list *List) Get(i uint64) uint64 {
	if i >= list.n {
		errutil.OutOfRange("elias-fano index %d >= len %d", i, list.n)
	}
	high := list.sel.Select(i) - i
	if list.l == 0 {
		return high
	}
	lo := list.lower.GetLong(i*uint64(list.l), (i+1)*uint64(list.l))
	return (high << list.l) | lo
}

// Iterator streams values from index `from` forward.
type Iterator struct {
	list  *List
	index uint64
	// upper-bit word scan state
	words   []uint64
	wordIdx uint64
	word    uint64
}

// ListIterator returns a forward iterator starting at element `from`.
func (list *List) ListIterator(from uint64) *Iterator {
	it := &Iterator{list: list, index: from, words: list.up.Words()}
	if from >= list.n {
		return it
	}
	pos := list.sel.Select(from)
	it.wordIdx = pos / 64
	it.word = it.words[it.wordIdx] &^ ((uint64(1) << (pos % 64)) - 1)
	return it
}

// Next returns the next value and true, or (0, false) at the end.
func (it *Iterator) Next() (uint64, bool) {
	if it.index >= it.list.n {
		return 0, false
	}
	for it.word == 0 {
		it.wordIdx++
		if it.wordIdx >= uint64(len(it.words)) {
			return 0, false
		}
		it.word = it.words[it.wordIdx]
	}
	bit := broadword.Lsb(it.word)
	pos := it.wordIdx*64 + uint64(bit)
	high := pos - it.index
	var v uint64
	if it.list.l == 0 {
		v = high
	} else {
		lo := it.list.lower.GetLong(it.index*uint64(it.list.l), (it.index+1)*uint64(it.list.l))
		v = (high << it.list.l) | lo
	}
	it.word &= it.word - 1
	it.index++
	return v, true
}

// Bulk fills dest with up to len(dest) consecutive values starting at
// element `from`, returning the number written.
func (list *List) Bulk(from uint64, dest []uint64) int {
	it := list.ListIterator(from)
	n := 0
	for n < len(dest) {
		v, ok := it.Next()
		if !ok {
			break
		}
		dest[n] = v
		n++
	}
	return n
}

// SkipTo returns the index of the first element >= v (an O(1) predecessor
// query), and whether such an element exists.
//
// h = v>>l is v's high-bits bucket. The (h-1)-th zero in upper (0-indexed)
// terminates bucket h-1; the count of ones before that zero is exactly the
// number of elements with high-bits < h, i.e. the first index of bucket h
// — the point to start scanning forward from for the exact value. Bucket
// 0 has no preceding terminator, so it starts at index 0 directly.
func (idx *Indexed) SkipTo(v uint64) (index uint64, ok bool) {
	h := v >> idx.l
	var rk uint64
	if h > 0 {
		pos := idx.up.Length()
		if h-1 < idx.selZero.Total() {
			pos = idx.selZero.Select(h - 1)
		}
		rk = pos - (h - 1)
	}
	for rk < idx.n {
		if idx.Get(rk) >= v {
			return rk, true
		}
		rk++
	}
	return 0, false
}
