package moremath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWasmCompatMinNaNPropagates(t *testing.T) {
	require.True(t, math.IsNaN(WasmCompatMin(math.NaN(), math.Inf(-1))))
	require.True(t, math.IsNaN(WasmCompatMax(1, math.NaN())))
}

func TestWasmCompatMinSignedZero(t *testing.T) {
	negZero := math.Copysign(0, -1)
	require.Equal(t, negZero, WasmCompatMin(0, negZero))
	require.Equal(t, float64(0), WasmCompatMax(0, negZero))
}

func TestWasmCompatMinMaxOrdinary(t *testing.T) {
	require.Equal(t, 1.0, WasmCompatMin(1, 2))
	require.Equal(t, 2.0, WasmCompatMax(1, 2))
}
