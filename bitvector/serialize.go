package bitvector

import (
	"encoding/binary"
	"fmt"

	"github.com/aogurtsov/gosux/errutil"
)

// serialVersion is bumped whenever the on-disk shape below changes.
const serialVersion = 1

// Serialize encodes bv as:
//
//	uint32 serialVersion
//	uint64 length (bits)
//	uint32 len(words)
//	len(words) * uint64 words, LittleEndian
func (bv *BitVector) Serialize() []byte {
	buf := make([]byte, 0, 4+8+4+len(bv.words)*8)
	buf = binary.LittleEndian.AppendUint32(buf, serialVersion)
	buf = binary.LittleEndian.AppendUint64(buf, bv.length)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(bv.words)))
	for _, w := range bv.words {
		buf = binary.LittleEndian.AppendUint64(buf, w)
	}
	return buf
}

// Deserialize restores a BitVector previously written by Serialize. The
// input must hold exactly one encoded BitVector with no trailing bytes; use
// DeserializeConsumed to decode one BitVector out of a larger buffer.
func Deserialize(data []byte) (*BitVector, error) {
	bv, consumed, err := DeserializeConsumed(data)
	if err != nil {
		return nil, err
	}
	if consumed != len(data) {
		return nil, fmt.Errorf("bitvector: %w: %d trailing bytes after decode", errutil.ErrIncompatibleFormat, len(data)-consumed)
	}
	return bv, nil
}

// DeserializeConsumed decodes one BitVector from the start of data and
// returns it alongside the number of bytes consumed, leaving any trailing
// bytes (e.g. a sibling structure encoded immediately after) untouched.
// Callers that own the whole buffer and expect nothing to follow should use
// Deserialize instead.
func DeserializeConsumed(data []byte) (*BitVector, int, error) {
	if len(data) < 16 {
		return nil, 0, fmt.Errorf("bitvector: %w: truncated header", errutil.ErrIncompatibleFormat)
	}
	version := binary.LittleEndian.Uint32(data[0:4])
	if version != serialVersion {
		return nil, 0, fmt.Errorf("bitvector: %w: got version %d, want %d", errutil.ErrIncompatibleFormat, version, serialVersion)
	}
	length := binary.LittleEndian.Uint64(data[4:12])
	numWords := binary.LittleEndian.Uint32(data[12:16])
	body := data[16:]
	need := uint64(numWords) * 8
	if uint64(len(body)) < need {
		return nil, 0, fmt.Errorf("bitvector: %w: word count %d needs %d bytes, only %d remain", errutil.ErrIncompatibleFormat, numWords, need, len(body))
	}
	words := make([]uint64, numWords)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(body[i*8 : i*8+8])
	}
	if uint64(len(words)) != wordsFor(length) {
		return nil, 0, fmt.Errorf("bitvector: %w: %d words does not match length %d", errutil.ErrIncompatibleFormat, len(words), length)
	}
	return NewFromWords(words, length), 16 + int(need), nil
}
