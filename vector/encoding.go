package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector packs a vector as little-endian IEEE 754 float32 values.
func EncodeVector(vec []float32) []byte {
	bs := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(bs[i*4:], math.Float32bits(v))
	}

	return bs
}

func DecodeVector(bs []byte) ([]float32, error) {
	if len(bs)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d", len(bs))
	}

	vec := make([]float32, len(bs)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(bs[i*4:]))
	}

	return vec, nil
}
