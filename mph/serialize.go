package mph

import (
	"encoding/binary"
	"fmt"

	"github.com/aogurtsov/gosux/eliasfano"
	"github.com/aogurtsov/gosux/errutil"
)

// serialVersion is bumped whenever the on-disk shape below changes.
const serialVersion = 1

// serialize encodes the shared layout every query reads:
//
//	uint32 serialVersion
//	uint64 n
//	uint32 numBuckets
//	uint64 seed
//	uint32 numPlanes
//	uint32 len(layouts), then per layout: uint64 vertexCount, uint64 offset, uint64 subSeed
//	uint8 hasOffsets, then (if 1) uint32 byte length and eliasfano.List.Serialize()
//	per plane (numPlanes times): uint32 len(plane), then that many uint8 digits
func (r *buildResult) serialize() []byte {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, serialVersion)
	buf = binary.LittleEndian.AppendUint64(buf, r.n)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.numBuckets))
	buf = binary.LittleEndian.AppendUint64(buf, r.seed)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.numPlanes))

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(r.layouts)))
	for _, l := range r.layouts {
		buf = binary.LittleEndian.AppendUint64(buf, l.vertexCount)
		buf = binary.LittleEndian.AppendUint64(buf, l.offset)
		buf = binary.LittleEndian.AppendUint64(buf, l.subSeed)
	}

	if r.offsets != nil {
		buf = append(buf, 1)
		offBytes := r.offsets.Serialize()
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(offBytes)))
		buf = append(buf, offBytes...)
	} else {
		buf = append(buf, 0)
	}

	for _, plane := range r.planes {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(plane)))
		buf = append(buf, plane...)
	}
	return buf
}

func deserializeBuildResult(data []byte) (*buildResult, error) {
	if len(data) < 28 {
		return nil, fmt.Errorf("mph: %w: truncated header", errutil.ErrIncompatibleFormat)
	}
	version := binary.LittleEndian.Uint32(data[0:4])
	if version != serialVersion {
		return nil, fmt.Errorf("mph: %w: got version %d, want %d", errutil.ErrIncompatibleFormat, version, serialVersion)
	}
	r := &buildResult{}
	r.n = binary.LittleEndian.Uint64(data[4:12])
	r.numBuckets = int(binary.LittleEndian.Uint32(data[12:16]))
	r.seed = binary.LittleEndian.Uint64(data[16:24])
	r.numPlanes = int(binary.LittleEndian.Uint32(data[24:28]))
	pos := 28

	if pos+4 > len(data) {
		return nil, fmt.Errorf("mph: %w: truncated layout count", errutil.ErrIncompatibleFormat)
	}
	numLayouts := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4
	r.layouts = make([]bucketLayout, numLayouts)
	for i := range r.layouts {
		if pos+24 > len(data) {
			return nil, fmt.Errorf("mph: %w: truncated layout %d", errutil.ErrIncompatibleFormat, i)
		}
		r.layouts[i] = bucketLayout{
			vertexCount: binary.LittleEndian.Uint64(data[pos : pos+8]),
			offset:      binary.LittleEndian.Uint64(data[pos+8 : pos+16]),
			subSeed:     binary.LittleEndian.Uint64(data[pos+16 : pos+24]),
		}
		pos += 24
	}

	if pos >= len(data) {
		return nil, fmt.Errorf("mph: %w: truncated offsets flag", errutil.ErrIncompatibleFormat)
	}
	hasOffsets := data[pos]
	pos++
	if hasOffsets == 1 {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("mph: %w: truncated offsets length", errutil.ErrIncompatibleFormat)
		}
		offLen := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+offLen > len(data) {
			return nil, fmt.Errorf("mph: %w: truncated offsets body", errutil.ErrIncompatibleFormat)
		}
		offsets, err := eliasfano.Deserialize(data[pos : pos+offLen])
		if err != nil {
			return nil, fmt.Errorf("mph: offsets: %w", err)
		}
		r.offsets = offsets
		pos += offLen
	}

	r.planes = make([][]uint8, r.numPlanes)
	for p := 0; p < r.numPlanes; p++ {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("mph: %w: truncated plane %d length", errutil.ErrIncompatibleFormat, p)
		}
		planeLen := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+planeLen > len(data) {
			return nil, fmt.Errorf("mph: %w: truncated plane %d body", errutil.ErrIncompatibleFormat, p)
		}
		plane := make([]uint8, planeLen)
		copy(plane, data[pos:pos+planeLen])
		r.planes[p] = plane
		pos += planeLen
	}

	if pos != len(data) {
		return nil, fmt.Errorf("mph: %w: %d trailing bytes", errutil.ErrIncompatibleFormat, len(data)-pos)
	}
	return r, nil
}

// Serialize encodes the MPHF for later reconstruction via Deserialize.
func (m *MPHF) Serialize() []byte { return m.res.serialize() }

// Deserialize restores an MPHF previously written by Serialize.
func Deserialize(data []byte) (*MPHF, error) {
	res, err := deserializeBuildResult(data)
	if err != nil {
		return nil, err
	}
	return &MPHF{res: res}, nil
}

// Serialize encodes the Function (including its bit width) for later
// reconstruction via DeserializeFunction.
func (f *Function) Serialize() []byte {
	body := f.res.serialize()
	buf := make([]byte, 0, 4+len(body))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(f.width))
	buf = append(buf, body...)
	return buf
}

// DeserializeFunction restores a Function previously written by
// (*Function).Serialize.
func DeserializeFunction(data []byte) (*Function, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("mph: %w: truncated width header", errutil.ErrIncompatibleFormat)
	}
	width := int(binary.LittleEndian.Uint32(data[0:4]))
	res, err := deserializeBuildResult(data[4:])
	if err != nil {
		return nil, err
	}
	return &Function{res: res, width: width}, nil
}
