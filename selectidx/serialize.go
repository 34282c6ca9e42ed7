package selectidx

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
//	uint8  zero (0 or 1)
//	bitvector.Serialize() of the indexed vector
//
// The inventory/subinventory/spill arrays are a pure function of (bv,
// zero) and are rebuilt by Build on Deserialize rather than stored.
func (idx *Index) Serialize() []byte {
	bvBytes := idx.bv.Serialize()
	buf := make([]byte, 0, 5+len(bvBytes))
	buf = binary.LittleEndian.AppendUint32(buf, serialVersion)
	if idx.zero {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, bvBytes...)
	return buf
}

// Deserialize restores an Index previously written by Serialize, rebuilding
// the select structure from the decoded bitvector.
func Deserialize(data []byte) (*Index, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("selectidx: %w: truncated header", errutil.ErrIncompatibleFormat)
	}
	version := binary.LittleEndian.Uint32(data[0:4])
	if version != serialVersion {
		return nil, fmt.Errorf("selectidx: %w: got version %d, want %d", errutil.ErrIncompatibleFormat, version, serialVersion)
	}
	zeroByte := data[4]
	if zeroByte > 1 {
		return nil, fmt.Errorf("selectidx: %w: invalid zero flag %d", errutil.ErrIncompatibleFormat, zeroByte)
	}
	bv, err := bitvector.Deserialize(data[5:])
	if err != nil {
		return nil, fmt.Errorf("selectidx: %w", err)
	}
	return Build(bv, zeroByte == 1), nil
}
