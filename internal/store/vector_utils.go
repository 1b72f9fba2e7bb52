package store

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrVecUnavailable reports that the binary was built without the sqlite-vec
// extension or the ANN index could not be created. Callers fall back to
// in-process cosine ranking.
var ErrVecUnavailable = errors.New("sqlite-vec index unavailable")

// encodeFloat32Slice converts a float32 slice to bytes (little-endian).
func encodeFloat32Slice(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeFloat32Slice converts a little-endian byte blob back to []float32.
// Malformed blobs decode to nil rather than erroring; a missing embedding
// just excludes the record from similarity ranking.
func decodeFloat32Slice(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	n := len(blob) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(blob[i*4 : (i+1)*4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec
}
