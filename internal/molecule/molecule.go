// Package molecule packs the Molecule binary serialization format used by
// Godwoken transaction envelopes.
//
// Primitives (Uint32, Uint128, Uint256, Byte32, Bytes) are built with the CKB
// SDK's generated Molecule types. Godwoken's own tables and vectors have no
// generated types there, so their framing is assembled here.
//
// Layouts (all integers little-endian):
//
//	Uint32:  [value:4]
//	fixvec:  [item_count:4][items...]
//	Bytes:   fixvec<byte>
//	dynvec:  [total_size:4][offset:4]*n[items...]
//	table:   [total_size:4][offset:4]*n[fields...]
//	union:   [item_id:4][item...]
//
// Structs (fixed-size records) are plain concatenations and need no helper.
package molecule

import (
	"encoding/binary"
	"errors"
	"fmt"

	ckbmol "github.com/nervosnetwork/ckb-sdk-go/v2/types/molecule"
)

// HeaderSize is the size of a length or offset word.
const HeaderSize = 4

// ErrMalformed indicates the input does not follow the expected layout.
var ErrMalformed = errors.New("molecule: malformed data")

// PackUint32 encodes v as a Molecule Uint32.
func PackUint32(v uint32) []byte {
	var le [HeaderSize]byte
	binary.LittleEndian.PutUint32(le[:], v)
	var items [HeaderSize]ckbmol.Byte
	fill(items[:], le[:])
	packed := ckbmol.NewUint32Builder().Set(items).Build()
	return packed.AsSlice()
}

// PackUint128 encodes a little-endian 128-bit integer.
func PackUint128(le [16]byte) []byte {
	var items [16]ckbmol.Byte
	fill(items[:], le[:])
	packed := ckbmol.NewUint128Builder().Set(items).Build()
	return packed.AsSlice()
}

// PackUint256 encodes a little-endian 256-bit integer.
func PackUint256(le [32]byte) []byte {
	var items [32]ckbmol.Byte
	fill(items[:], le[:])
	packed := ckbmol.NewUint256Builder().Set(items).Build()
	return packed.AsSlice()
}

// Byte32 converts h into the SDK's Byte32.
func Byte32(h [32]byte) ckbmol.Byte32 {
	var items [32]ckbmol.Byte
	fill(items[:], h[:])
	return ckbmol.NewByte32Builder().Set(items).Build()
}

// Bytes converts b into the SDK's fixvec<byte>.
func Bytes(b []byte) ckbmol.Bytes {
	items := make([]ckbmol.Byte, len(b))
	fill(items, b)
	return ckbmol.NewBytesBuilder().Set(items).Build()
}

// PackBytes encodes b as fixvec<byte>.
func PackBytes(b []byte) []byte {
	packed := Bytes(b)
	return packed.AsSlice()
}

func fill(dst []ckbmol.Byte, src []byte) {
	for i, c := range src {
		dst[i] = ckbmol.NewByte(c)
	}
}

// PackFixVec encodes items that all share the same size.
func PackFixVec(items ...[]byte) []byte {
	size := HeaderSize
	for _, item := range items {
		size += len(item)
	}
	out := make([]byte, HeaderSize, size)
	binary.LittleEndian.PutUint32(out, uint32(len(items)))
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

// PackDynVec encodes variable-size items. The header layout is shared with tables.
func PackDynVec(items ...[]byte) []byte {
	return packOffsets(items)
}

// PackTable encodes fields in declaration order.
func PackTable(fields ...[]byte) []byte {
	return packOffsets(fields)
}

// PackUnion encodes item tagged with its union item id.
func PackUnion(id uint32, item []byte) []byte {
	return append(PackUint32(id), item...)
}

func packOffsets(parts [][]byte) []byte {
	headerLen := HeaderSize * (len(parts) + 1)
	total := headerLen
	for _, p := range parts {
		total += len(p)
	}

	out := make([]byte, headerLen, total)
	binary.LittleEndian.PutUint32(out[0:4], uint32(total))

	offset := headerLen
	for i, p := range parts {
		binary.LittleEndian.PutUint32(out[HeaderSize*(i+1):], uint32(offset))
		offset += len(p)
	}
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// UnpackUint32 decodes a Molecule Uint32.
func UnpackUint32(b []byte) (uint32, error) {
	v, err := ckbmol.Uint32FromSlice(b, false)
	if err != nil {
		return 0, fmt.Errorf("%w: Uint32: %v", ErrMalformed, err)
	}
	return binary.LittleEndian.Uint32(v.AsSlice()), nil
}

// UnpackBytes decodes fixvec<byte>. The result does not alias b.
func UnpackBytes(b []byte) ([]byte, error) {
	v, err := ckbmol.BytesFromSlice(b, false)
	if err != nil {
		return nil, fmt.Errorf("%w: Bytes: %v", ErrMalformed, err)
	}
	raw := v.RawData()
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// UnpackFixVec splits a fixvec into items of itemSize bytes each.
func UnpackFixVec(b []byte, itemSize int) ([][]byte, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: fixvec header truncated", ErrMalformed)
	}
	count := int(binary.LittleEndian.Uint32(b))
	if len(b)-HeaderSize != count*itemSize {
		return nil, fmt.Errorf("%w: fixvec of %d items of %d bytes has %d bytes",
			ErrMalformed, count, itemSize, len(b)-HeaderSize)
	}
	items := make([][]byte, count)
	for i := range items {
		start := HeaderSize + i*itemSize
		items[i] = b[start : start+itemSize]
	}
	return items, nil
}

// UnpackDynVec splits a dynvec into its items.
func UnpackDynVec(b []byte) ([][]byte, error) {
	return unpackOffsets(b, -1)
}

// UnpackTable splits a table into its fields. Tables carrying more fields than
// expected are accepted (forward compatible), fewer are rejected.
func UnpackTable(b []byte, fieldCount int) ([][]byte, error) {
	fields, err := unpackOffsets(b, fieldCount)
	if err != nil {
		return nil, err
	}
	return fields[:fieldCount], nil
}

// UnpackUnion splits a union into its item id and item bytes.
func UnpackUnion(b []byte) (uint32, []byte, error) {
	if len(b) < HeaderSize {
		return 0, nil, fmt.Errorf("%w: union header truncated", ErrMalformed)
	}
	return binary.LittleEndian.Uint32(b), b[HeaderSize:], nil
}

// unpackOffsets parses the shared dynvec/table header. minParts < 0 disables
// the field-count check.
func unpackOffsets(b []byte, minParts int) ([][]byte, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: header truncated", ErrMalformed)
	}
	total := int(binary.LittleEndian.Uint32(b))
	if total != len(b) {
		return nil, fmt.Errorf("%w: total size %d does not match length %d", ErrMalformed, total, len(b))
	}
	if total == HeaderSize {
		if minParts > 0 {
			return nil, fmt.Errorf("%w: expected %d fields, got 0", ErrMalformed, minParts)
		}
		return [][]byte{}, nil
	}
	if total < 2*HeaderSize {
		return nil, fmt.Errorf("%w: offset table truncated", ErrMalformed)
	}

	first := int(binary.LittleEndian.Uint32(b[HeaderSize:]))
	if first%HeaderSize != 0 || first < 2*HeaderSize || first > total {
		return nil, fmt.Errorf("%w: invalid first offset %d", ErrMalformed, first)
	}
	count := first/HeaderSize - 1
	if minParts > 0 && count < minParts {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformed, minParts, count)
	}

	offsets := make([]int, count+1)
	for i := 0; i < count; i++ {
		offsets[i] = int(binary.LittleEndian.Uint32(b[HeaderSize*(i+1):]))
	}
	offsets[count] = total

	parts := make([][]byte, count)
	for i := 0; i < count; i++ {
		if offsets[i] > offsets[i+1] {
			return nil, fmt.Errorf("%w: offsets not ascending at %d", ErrMalformed, i)
		}
		parts[i] = b[offsets[i]:offsets[i+1]]
	}
	return parts, nil
}
