// Package moremath supplies the float min/max semantics Wasm's f32.min/
// f32.max/f64.min/f64.max instructions require but Go's math.Min/math.Max
// don't implement: Wasm propagates NaN unconditionally and distinguishes
// +0/-0, where Go's versions don't.
package moremath

import "math"

// WasmCompatMin matches Wasm's min: NaN if either operand is NaN, -0 beats
// +0 when both operands compare equal.
func WasmCompatMin(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, -1) || math.IsInf(y, -1):
		return math.Inf(-1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return x
		}
		return y
	}
	if x < y {
		return x
	}
	return y
}

// WasmCompatMax matches Wasm's max: NaN if either operand is NaN, +0 beats
// -0 when both operands compare equal.
func WasmCompatMax(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, 1) || math.IsInf(y, 1):
		return math.Inf(1)

	case x == 0 && x == y:
		if math.Signbit(x) {
			return y
		}
		return x
	}
	if x > y {
		return x
	}
	return y
}
