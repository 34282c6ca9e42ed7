package rank

import (
	"encoding/binary"
	"fmt"

	"github.com/aogurtsov/gosux/bitvector"
	"github.com/aogurtsov/gosux/errutil"
)

// serialVersion is bumped whenever the on-disk shape below changes.
const serialVersion = 1

// Serialize encodes idx as:
//
//	uint32 serialVersion
//	uint32 variant
//	bitvector.Serialize() of the indexed vector
//
// Every other field (counts, packed offsets, lastOne, ...) is a pure
// function of (bv, variant) and is rebuilt by Build on Deserialize rather
// than stored, matching the "transient index fields are rebuilt on load"
// contract.
func (idx *Index) Serialize() []byte {
	bvBytes := idx.bv.Serialize()
	buf := make([]byte, 0, 8+len(bvBytes))
	buf = binary.LittleEndian.AppendUint32(buf, serialVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(idx.variant))
	buf = append(buf, bvBytes...)
	return buf
}

// Deserialize restores an Index previously written by Serialize, rebuilding
// the rank structure from the decoded bitvector.
func Deserialize(data []byte) (*Index, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("rank: %w: truncated header", errutil.ErrIncompatibleFormat)
	}
	version := binary.LittleEndian.Uint32(data[0:4])
	if version != serialVersion {
		return nil, fmt.Errorf("rank: %w: got version %d, want %d", errutil.ErrIncompatibleFormat, version, serialVersion)
	}
	variant := Variant(binary.LittleEndian.Uint32(data[4:8]))
	if variant != Rank9 && variant != Rank9LowOverhead {
		return nil, fmt.Errorf("rank: %w: unknown variant %d", errutil.ErrIncompatibleFormat, variant)
	}
	bv, err := bitvector.Deserialize(data[8:])
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	return Build(bv, variant), nil
}
