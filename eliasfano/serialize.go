package eliasfano

import (
	"encoding/binary"
	"fmt"

	"github.com/aogurtsov/gosux/bitvector"
	"github.com/aogurtsov/gosux/errutil"
	"github.com/aogurtsov/gosux/selectidx"
)

// serialVersion is bumped whenever the on-disk shape below changes.
const serialVersion = 1

// Serialize encodes list as:
//
//	uint32 serialVersion
//	uint64 n
//	uint64 upper
//	uint32 l (lower-field width)
//	bitvector.Serialize() of lower
//	bitvector.Serialize() of up
//
// The select index over up is a pure function of up and is rebuilt by
// selectidx.Build on Deserialize rather than stored.
func (list *List) Serialize() []byte {
	lowerBytes := list.lower.Serialize()
	upBytes := list.up.Serialize()
	buf := make([]byte, 0, 24+len(lowerBytes)+len(upBytes))
	buf = binary.LittleEndian.AppendUint32(buf, serialVersion)
	buf = binary.LittleEndian.AppendUint64(buf, list.n)
	buf = binary.LittleEndian.AppendUint64(buf, list.upper)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(list.l))
	buf = append(buf, lowerBytes...)
	buf = append(buf, upBytes...)
	return buf
}

// Deserialize restores a List previously written by Serialize.
func Deserialize(data []byte) (*List, error) {
	list, _, err := decodeList(data)
	return list, err
}

// decodeList decodes a List's header and its two bitvectors, returning the
// number of bytes consumed.
func decodeList(data []byte) (*List, int, error) {
	if len(data) < 24 {
		return nil, 0, fmt.Errorf("eliasfano: %w: truncated header", errutil.ErrIncompatibleFormat)
	}
	version := binary.LittleEndian.Uint32(data[0:4])
	if version != serialVersion {
		return nil, 0, fmt.Errorf("eliasfano: %w: got version %d, want %d", errutil.ErrIncompatibleFormat, version, serialVersion)
	}
	n := binary.LittleEndian.Uint64(data[4:12])
	upper := binary.LittleEndian.Uint64(data[12:20])
	l := uint(binary.LittleEndian.Uint32(data[20:24]))

	lower, lowerConsumed, err := bitvector.DeserializeConsumed(data[24:])
	if err != nil {
		return nil, 0, fmt.Errorf("eliasfano: lower: %w", err)
	}
	offset := 24 + lowerConsumed
	up, upConsumed, err := bitvector.DeserializeConsumed(data[offset:])
	if err != nil {
		return nil, 0, fmt.Errorf("eliasfano: up: %w", err)
	}
	offset += upConsumed

	list := &List{n: n, upper: upper, l: l, lower: lower, up: up}
	list.sel = selectidx.Build(up, false)
	return list, offset, nil
}

// Serialize encodes idx exactly as its embedded List: selZero is rebuilt
// from up on Deserialize, so only the List itself is encoded.
func (idx *Indexed) Serialize() []byte {
	return idx.List.Serialize()
}

// DeserializeIndexed restores an Indexed previously written by
// (*Indexed).Serialize.
func DeserializeIndexed(data []byte) (*Indexed, error) {
	list, _, err := decodeList(data)
	if err != nil {
		return nil, err
	}
	return &Indexed{List: list, selZero: selectidx.Build(list.up, true)}, nil
}
