package wasmbin

import (
	"encoding/binary"
	"math"
)

func bitsToF32(buf [4]byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:]))
}

func bitsToF64(buf [8]byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
}
