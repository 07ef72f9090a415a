package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Encode serializes (id, vector) pairs as: dim(uint32), n(uint32), then for
// each item idLen(uint32), id bytes, vec(float32[dim]), all little-endian.
func Encode(ids []string, vectors [][]float32) ([]byte, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("index: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	size := 8
	for _, id := range ids {
		size += 4 + len(id) + 4*dim
	}
	out := make([]byte, 0, size)
	var word [4]byte
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(word[:], v)
		out = append(out, word[:]...)
	}
	putU32(uint32(dim))
	putU32(uint32(len(ids)))
	for i, id := range ids {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("index: inconsistent vector dims %d vs %d", len(vectors[i]), dim)
		}
		putU32(uint32(len(id)))
		out = append(out, id...)
		for _, v := range vectors[i] {
			putU32(math.Float32bits(v))
		}
	}
	return out, nil
}

// Decode restores (id, vector) pairs written by Encode.
func Decode(data []byte) ([]string, [][]float32, error) {
	if len(data) < 8 {
		return nil, nil, errors.New("index: invalid data")
	}
	off := 0
	getU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		return v
	}
	dim := int(getU32())
	n := int(getU32())
	ids := make([]string, n)
	vecs := make([][]float32, n)
	for idx := 0; idx < n; idx++ {
		if off+4 > len(data) {
			return nil, nil, errors.New("index: truncated")
		}
		idLen := int(getU32())
		if off+idLen > len(data) {
			return nil, nil, errors.New("index: truncated id")
		}
		ids[idx] = string(data[off : off+idLen])
		off += idLen
		if off+4*dim > len(data) {
			return nil, nil, errors.New("index: truncated vec")
		}
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(getU32())
		}
		vecs[idx] = vec
	}
	return ids, vecs, nil
}
