// Package selectidx implements constant-time (expected) select over a
// bitvector.BitVector: locating the position of the r-th one (or, via the
// dual "zero" mode, the r-th zero).
//
// The design follows the spec's two-level inventory + spill layout:
//   - a first-level inventory records the absolute position of every
//     onesPerInventory-th target bit, bounding the inventory to roughly
//     MaxOnesPerInventory entries regardless of n;
//   - within an inventory span that fits in MaxSpan bits, a second-level
//     subinventory records a 16-bit relative checkpoint every
//     subCheckpointGroup target bits, and a query finishes by scanning
//     forward from the nearest checkpoint one word at a time, subtracting
//     popcounts until the residual rank lands in the current word, then
//     calling broadword.SelectInWord;
//   - spans wider than MaxSpan (pathologically sparse runs) spill to an
//     exact absolute-position array instead of checkpointing, trading
//     space for a guaranteed O(1) lookup on that span.
//
// This simplifies Vigna's original SimpleSelect (which checkpoints a
// *word-aligned* hint rather than an exact bit position) to an exact
// per-checkpoint bit offset; see DESIGN.md for the space/complexity
// trade-off this makes versus the original.
package selectidx

import (
	"github.com/aogurtsov/gosux/bitvector"
	"github.com/aogurtsov/gosux/broadword"
	"github.com/aogurtsov/gosux/errutil"
	"github.com/aogurtsov/gosux/internal/sstat"
)

const (
	// MaxOnesPerInventory bounds the number of first-level inventory
	// entries to roughly this many, independent of n.
	MaxOnesPerInventory = 8192
	// MaxSpan is the largest inventory-span width (in bits) that still
	// gets subinventory checkpoints instead of an exact spill.
	MaxSpan = 1 << 16
	// subCheckpointGroup is how many target bits share one 16-bit
	// subinventory checkpoint.
	subCheckpointGroup = 32
)

const wordBits = 64

// Index is a precomputed select structure over a BitVector, for either
// ones (zero == false) or zeros (zero == true).
type Index struct {
	bv    *bitvector.BitVector
	zero  bool
	total uint64

	onesPerInventory uint64
	numBlocks        uint64

	inventory []uint64 // len numBlocks+1; inventory[numBlocks] == bv.Length()
	spilled   []bool   // len numBlocks
	dataStart []uint64 // len numBlocks; index into subinventory or spill

	subinventory []uint16
	spill        []uint64
}

// Build constructs a select Index over bv. If zero is true, the index
// answers selectZero queries (the r-th zero bit) instead of select.
func Build(bv *bitvector.BitVector, zero bool) *Index {
	positions := targetPositions(bv, zero)
	total := uint64(len(positions))

	idx := &Index{bv: bv, zero: zero, total: total}
	if total == 0 {
		idx.onesPerInventory = 1
		idx.inventory = []uint64{bv.Length()}
		return idx
	}

	k := nextPow2(ceilDiv(total, MaxOnesPerInventory))
	if k == 0 {
		k = 1
	}
	idx.onesPerInventory = k
	numBlocks := ceilDiv(total, k)
	idx.numBlocks = numBlocks

	idx.inventory = make([]uint64, numBlocks+1)
	idx.spilled = make([]bool, numBlocks)
	idx.dataStart = make([]uint64, numBlocks)

	for i := uint64(0); i < numBlocks; i++ {
		idx.inventory[i] = positions[i*k]
	}
	idx.inventory[numBlocks] = bv.Length()

	var subCount, spillCount uint64
	for i := uint64(0); i < numBlocks; i++ {
		blockStart := i * k
		blockEnd := blockStart + k
		if blockEnd > total {
			blockEnd = total
		}
		span := idx.inventory[i+1] - idx.inventory[i]
		if span <= MaxSpan {
			idx.dataStart[i] = subCount
			subCount += ceilDiv(blockEnd-blockStart, subCheckpointGroup)
		} else {
			idx.spilled[i] = true
			idx.dataStart[i] = spillCount
			spillCount += blockEnd - blockStart
		}
	}

	idx.subinventory = make([]uint16, subCount)
	idx.spill = make([]uint64, spillCount)

	for i := uint64(0); i < numBlocks; i++ {
		blockStart := i * k
		blockEnd := blockStart + k
		if blockEnd > total {
			blockEnd = total
		}
		if idx.spilled[i] {
			for j := blockStart; j < blockEnd; j++ {
				idx.spill[idx.dataStart[i]+(j-blockStart)] = positions[j]
			}
			continue
		}
		base := idx.inventory[i]
		groupIdx := uint64(0)
		for j := blockStart; j < blockEnd; j += subCheckpointGroup {
			idx.subinventory[idx.dataStart[i]+groupIdx] = uint16(positions[j] - base)
			groupIdx++
		}
	}

	return idx
}

// Select returns the position p such that Rank(p) == r and bit p is the
// target polarity (one, or zero for a selectZero index). r must be in
// [0, total).
func (idx *Index) Select(r uint64) uint64 {
	if r >= idx.total {
		errutil.OutOfRange("select rank %d >= total %d", r, idx.total)
	}
	block := r / idx.onesPerInventory
	within := r % idx.onesPerInventory

	if idx.spilled[block] {
		return idx.spill[idx.dataStart[block]+within]
	}

	groupIdx := within / subCheckpointGroup
	residual := within % subCheckpointGroup
	checkpointPos := idx.inventory[block] + uint64(idx.subinventory[idx.dataStart[block]+groupIdx])
	if residual == 0 {
		return checkpointPos
	}
	// residual counts target bits after the checkpoint's own bit, 1-based;
	// scanForward wants a 0-based count among bits strictly after startPos.
	return idx.scanForward(checkpointPos, residual-1)
}

// scanForward finds the position of the `afterCount`-th target bit (0 =
// the first target bit strictly after startPos) scanning word by word.
func (idx *Index) scanForward(startPos uint64, afterCount uint64) uint64 {
	words := idx.bv.Words()
	wordIdx := startPos / wordBits
	bitOff := startPos % wordBits

	word := idx.wordAt(words, wordIdx)
	// Clear bits up to and including the checkpoint's own bit so only
	// bits strictly after startPos remain.
	mask := ^((uint64(1) << (bitOff + 1)) - 1)
	if bitOff == 63 {
		mask = 0
	}
	remaining := afterCount
	word &= mask
	for {
		c := uint64(broadword.Popcount(word))
		if remaining < c {
			return wordIdx*wordBits + uint64(broadword.SelectInWord(word, int(remaining)))
		}
		remaining -= c
		wordIdx++
		word = idx.wordAt(words, wordIdx)
	}
}

func (idx *Index) wordAt(words []uint64, wordIdx uint64) uint64 {
	var w uint64
	if wordIdx < uint64(len(words)) {
		w = words[wordIdx]
	}
	if idx.zero {
		w = ^w
		// Mask off bits beyond the vector's length in the final word so
		// padding zeros there are never treated as "zero bits" to select.
		lastWordIdx := uint64(len(words)) - 1
		if wordIdx == lastWordIdx && idx.bv.Length()%wordBits != 0 {
			valid := idx.bv.Length() % wordBits
			w &= (uint64(1) << valid) - 1
		}
	}
	return w
}

// Total returns the number of target bits (ones, or zeros for
// selectZero) this index was built over.
func (idx *Index) Total() uint64 { return idx.total }

// NumBits returns the index's overhead in bits.
func (idx *Index) NumBits() uint64 {
	return uint64(len(idx.inventory))*wordBits +
		uint64(len(idx.spilled)) + // approximate: packed in practice
		uint64(len(idx.dataStart))*wordBits +
		uint64(len(idx.subinventory))*16 +
		uint64(len(idx.spill))*wordBits
}

// Report breaks this index's size into the indexed bitvector and the
// inventory/subinventory/spill overhead on top of it.
func (idx *Index) Report() sstat.Report {
	return sstat.Node("selectidx.Index",
		sstat.Leaf("bitvector", idx.bv.Length()),
		sstat.Leaf("overhead", idx.NumBits()),
	)
}

// BulkSelect fills dest[0:length] with Select(r), Select(r+1), ...,
// Select(r+length-1) using one streaming scan instead of `length`
// independent lookups.
func (idx *Index) BulkSelect(r uint64, dest []uint64, length int) {
	errutil.BugOn(r+uint64(length) > idx.total, "bulk select range exceeds total")
	if length == 0 {
		return
	}
	words := idx.bv.Words()
	pos := idx.Select(r)
	dest[0] = pos
	wordIdx := pos / wordBits
	bitOff := pos % wordBits

	// Keep only bits strictly after pos in the current word (clears bits
	// up to and including pos itself).
	mask := ^((uint64(1) << (bitOff + 1)) - 1)
	if bitOff == 63 {
		mask = 0
	}
	word := idx.wordAt(words, wordIdx) & mask

	filled := 1
	for filled < length {
		c := uint64(broadword.Popcount(word))
		if c == 0 {
			wordIdx++
			word = idx.wordAt(words, wordIdx)
			continue
		}
		bit := broadword.SelectInWord(word, 0)
		dest[filled] = wordIdx*wordBits + uint64(bit)
		filled++
		word &^= uint64(1) << uint(bit)
	}
}

func targetPositions(bv *bitvector.BitVector, zero bool) []uint64 {
	words := bv.Words()
	length := bv.Length()
	var positions []uint64
	for wordIdx := 0; wordIdx < len(words); wordIdx++ {
		w := words[wordIdx]
		if zero {
			w = ^w
			base := uint64(wordIdx) * wordBits
			if base+wordBits > length {
				valid := length - base
				if valid > 0 {
					w &= (uint64(1) << valid) - 1
				} else {
					w = 0
				}
			}
		}
		for w != 0 {
			b := broadword.Lsb(w)
			positions = append(positions, uint64(wordIdx)*wordBits+uint64(b))
			w &= w - 1
		}
	}
	return positions
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func nextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	p := uint64(1)
	for p < x {
		p <<= 1
	}
	return p
}
