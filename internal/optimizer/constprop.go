package optimizer

import (
	"math"
	"math/bits"

	"github.com/gowasm/wasm2rs/internal/ir"
	"github.com/gowasm/wasm2rs/internal/moremath"
)

// propagateConstants implements spec.md §4.4's fourth pass: a BinOp or UnOp
// whose operands are all known Const values at compile time is folded into
// a single Const, as long as evaluating it here cannot itself trap (trapping
// ops such as division and non-saturating truncation are left as they are
// even when every operand is known, so any trap still happens at run time).
func propagateConstants(fn *ir.Function) {
	known := map[ir.VarId]ir.Value{}
	for i := range fn.Blocks {
		blk := &fn.Blocks[i]
		for j := range blk.Instrs {
			instr := &blk.Instrs[j]
			switch instr.Kind {
			case ir.KConst:
				known[instr.Dest] = instr.Value
			case ir.KBinOp:
				lhs, lok := known[instr.Lhs]
				rhs, rok := known[instr.Rhs]
				if lok && rok && !isTrapping(*instr) {
					if v, ok := evalBinOp(instr.Op, lhs, rhs); ok {
						*instr = ir.Instr{Kind: ir.KConst, Dest: instr.Dest, Value: v}
						known[instr.Dest] = v
					}
				}
			case ir.KUnOp:
				arg, ok := known[instr.Arg]
				if ok && !isTrapping(*instr) {
					if v, ok := evalUnOp(instr.Uop, arg); ok {
						*instr = ir.Instr{Kind: ir.KConst, Dest: instr.Dest, Value: v}
						known[instr.Dest] = v
					}
				}
			}
		}
	}
}

func evalBinOp(op ir.BinOp, a, b ir.Value) (ir.Value, bool) {
	switch op {
	case ir.AddI32:
		return ir.I32Value(a.I32 + b.I32), true
	case ir.SubI32:
		return ir.I32Value(a.I32 - b.I32), true
	case ir.MulI32:
		return ir.I32Value(a.I32 * b.I32), true
	case ir.AndI32:
		return ir.I32Value(a.I32 & b.I32), true
	case ir.OrI32:
		return ir.I32Value(a.I32 | b.I32), true
	case ir.XorI32:
		return ir.I32Value(a.I32 ^ b.I32), true
	case ir.ShlI32:
		return ir.I32Value(a.I32 << (uint32(b.I32) & 31)), true
	case ir.ShrSI32:
		return ir.I32Value(a.I32 >> (uint32(b.I32) & 31)), true
	case ir.ShrUI32:
		return ir.I32Value(int32(uint32(a.I32) >> (uint32(b.I32) & 31))), true
	case ir.RotlI32:
		return ir.I32Value(int32(bits.RotateLeft32(uint32(a.I32), int(b.I32&31)))), true
	case ir.RotrI32:
		return ir.I32Value(int32(bits.RotateLeft32(uint32(a.I32), -int(b.I32&31)))), true

	case ir.AddI64:
		return ir.I64Value(a.I64 + b.I64), true
	case ir.SubI64:
		return ir.I64Value(a.I64 - b.I64), true
	case ir.MulI64:
		return ir.I64Value(a.I64 * b.I64), true
	case ir.AndI64:
		return ir.I64Value(a.I64 & b.I64), true
	case ir.OrI64:
		return ir.I64Value(a.I64 | b.I64), true
	case ir.XorI64:
		return ir.I64Value(a.I64 ^ b.I64), true
	case ir.ShlI64:
		return ir.I64Value(a.I64 << (uint64(b.I64) & 63)), true
	case ir.ShrSI64:
		return ir.I64Value(a.I64 >> (uint64(b.I64) & 63)), true
	case ir.ShrUI64:
		return ir.I64Value(int64(uint64(a.I64) >> (uint64(b.I64) & 63))), true
	case ir.RotlI64:
		return ir.I64Value(int64(bits.RotateLeft64(uint64(a.I64), int(b.I64&63)))), true
	case ir.RotrI64:
		return ir.I64Value(int64(bits.RotateLeft64(uint64(a.I64), -int(b.I64&63)))), true

	case ir.EqI32:
		return boolI32(a.I32 == b.I32), true
	case ir.NeI32:
		return boolI32(a.I32 != b.I32), true
	case ir.LtSI32:
		return boolI32(a.I32 < b.I32), true
	case ir.LtUI32:
		return boolI32(uint32(a.I32) < uint32(b.I32)), true
	case ir.GtSI32:
		return boolI32(a.I32 > b.I32), true
	case ir.GtUI32:
		return boolI32(uint32(a.I32) > uint32(b.I32)), true
	case ir.LeSI32:
		return boolI32(a.I32 <= b.I32), true
	case ir.LeUI32:
		return boolI32(uint32(a.I32) <= uint32(b.I32)), true
	case ir.GeSI32:
		return boolI32(a.I32 >= b.I32), true
	case ir.GeUI32:
		return boolI32(uint32(a.I32) >= uint32(b.I32)), true

	case ir.EqI64:
		return boolI32(a.I64 == b.I64), true
	case ir.NeI64:
		return boolI32(a.I64 != b.I64), true
	case ir.LtSI64:
		return boolI32(a.I64 < b.I64), true
	case ir.LtUI64:
		return boolI32(uint64(a.I64) < uint64(b.I64)), true
	case ir.GtSI64:
		return boolI32(a.I64 > b.I64), true
	case ir.GtUI64:
		return boolI32(uint64(a.I64) > uint64(b.I64)), true
	case ir.LeSI64:
		return boolI32(a.I64 <= b.I64), true
	case ir.LeUI64:
		return boolI32(uint64(a.I64) <= uint64(b.I64)), true
	case ir.GeSI64:
		return boolI32(a.I64 >= b.I64), true
	case ir.GeUI64:
		return boolI32(uint64(a.I64) >= uint64(b.I64)), true

	case ir.AddF32:
		return ir.F32Value(a.F32 + b.F32), true
	case ir.SubF32:
		return ir.F32Value(a.F32 - b.F32), true
	case ir.MulF32:
		return ir.F32Value(a.F32 * b.F32), true
	case ir.DivF32:
		return ir.F32Value(a.F32 / b.F32), true
	case ir.MinF32:
		return ir.F32Value(float32(moremath.WasmCompatMin(float64(a.F32), float64(b.F32)))), true
	case ir.MaxF32:
		return ir.F32Value(float32(moremath.WasmCompatMax(float64(a.F32), float64(b.F32)))), true
	case ir.CopysignF32:
		return ir.F32Value(float32(math.Copysign(float64(a.F32), float64(b.F32)))), true

	case ir.AddF64:
		return ir.F64Value(a.F64 + b.F64), true
	case ir.SubF64:
		return ir.F64Value(a.F64 - b.F64), true
	case ir.MulF64:
		return ir.F64Value(a.F64 * b.F64), true
	case ir.DivF64:
		return ir.F64Value(a.F64 / b.F64), true
	case ir.MinF64:
		return ir.F64Value(moremath.WasmCompatMin(a.F64, b.F64)), true
	case ir.MaxF64:
		return ir.F64Value(moremath.WasmCompatMax(a.F64, b.F64)), true
	case ir.CopysignF64:
		return ir.F64Value(math.Copysign(a.F64, b.F64)), true

	case ir.EqF32:
		return boolI32(a.F32 == b.F32), true
	case ir.NeF32:
		return boolI32(a.F32 != b.F32), true
	case ir.LtF32:
		return boolI32(a.F32 < b.F32), true
	case ir.GtF32:
		return boolI32(a.F32 > b.F32), true
	case ir.LeF32:
		return boolI32(a.F32 <= b.F32), true
	case ir.GeF32:
		return boolI32(a.F32 >= b.F32), true
	case ir.EqF64:
		return boolI32(a.F64 == b.F64), true
	case ir.NeF64:
		return boolI32(a.F64 != b.F64), true
	case ir.LtF64:
		return boolI32(a.F64 < b.F64), true
	case ir.GtF64:
		return boolI32(a.F64 > b.F64), true
	case ir.LeF64:
		return boolI32(a.F64 <= b.F64), true
	case ir.GeF64:
		return boolI32(a.F64 >= b.F64), true
	}
	return ir.Value{}, false
}

func boolI32(v bool) ir.Value {
	if v {
		return ir.I32Value(1)
	}
	return ir.I32Value(0)
}

func evalUnOp(op ir.UnOp, a ir.Value) (ir.Value, bool) {
	switch op {
	case ir.ClzI32:
		return ir.I32Value(int32(bits.LeadingZeros32(uint32(a.I32)))), true
	case ir.CtzI32:
		return ir.I32Value(int32(bits.TrailingZeros32(uint32(a.I32)))), true
	case ir.PopcntI32:
		return ir.I32Value(int32(bits.OnesCount32(uint32(a.I32)))), true
	case ir.ClzI64:
		return ir.I64Value(int64(bits.LeadingZeros64(uint64(a.I64)))), true
	case ir.CtzI64:
		return ir.I64Value(int64(bits.TrailingZeros64(uint64(a.I64)))), true
	case ir.PopcntI64:
		return ir.I64Value(int64(bits.OnesCount64(uint64(a.I64)))), true
	case ir.EqzI32:
		return boolI32(a.I32 == 0), true
	case ir.EqzI64:
		return boolI32(a.I64 == 0), true

	case ir.AbsF32:
		return ir.F32Value(float32(math.Abs(float64(a.F32)))), true
	case ir.NegF32:
		return ir.F32Value(-a.F32), true
	case ir.CeilF32:
		return ir.F32Value(float32(math.Ceil(float64(a.F32)))), true
	case ir.FloorF32:
		return ir.F32Value(float32(math.Floor(float64(a.F32)))), true
	case ir.TruncF32:
		return ir.F32Value(float32(math.Trunc(float64(a.F32)))), true
	case ir.NearestF32:
		return ir.F32Value(float32(math.RoundToEven(float64(a.F32)))), true
	case ir.SqrtF32:
		return ir.F32Value(float32(math.Sqrt(float64(a.F32)))), true
	case ir.AbsF64:
		return ir.F64Value(math.Abs(a.F64)), true
	case ir.NegF64:
		return ir.F64Value(-a.F64), true
	case ir.CeilF64:
		return ir.F64Value(math.Ceil(a.F64)), true
	case ir.FloorF64:
		return ir.F64Value(math.Floor(a.F64)), true
	case ir.TruncF64:
		return ir.F64Value(math.Trunc(a.F64)), true
	case ir.NearestF64:
		return ir.F64Value(math.RoundToEven(a.F64)), true
	case ir.SqrtF64:
		return ir.F64Value(math.Sqrt(a.F64)), true

	case ir.WrapI64ToI32:
		return ir.I32Value(int32(a.I64)), true
	case ir.ExtendI32SToI64:
		return ir.I64Value(int64(a.I32)), true
	case ir.ExtendI32UToI64:
		return ir.I64Value(int64(uint32(a.I32))), true
	case ir.ConvertI32SToF32:
		return ir.F32Value(float32(a.I32)), true
	case ir.ConvertI32UToF32:
		return ir.F32Value(float32(uint32(a.I32))), true
	case ir.ConvertI64SToF32:
		return ir.F32Value(float32(a.I64)), true
	case ir.ConvertI64UToF32:
		return ir.F32Value(float32(uint64(a.I64))), true
	case ir.ConvertI32SToF64:
		return ir.F64Value(float64(a.I32)), true
	case ir.ConvertI32UToF64:
		return ir.F64Value(float64(uint32(a.I32))), true
	case ir.ConvertI64SToF64:
		return ir.F64Value(float64(a.I64)), true
	case ir.ConvertI64UToF64:
		return ir.F64Value(float64(uint64(a.I64))), true
	case ir.DemoteF64ToF32:
		return ir.F32Value(float32(a.F64)), true
	case ir.PromoteF32ToF64:
		return ir.F64Value(float64(a.F32)), true
	case ir.ReinterpretF32AsI32:
		return ir.I32Value(int32(math.Float32bits(a.F32))), true
	case ir.ReinterpretI32AsF32:
		return ir.F32Value(math.Float32frombits(uint32(a.I32))), true
	case ir.ReinterpretF64AsI64:
		return ir.I64Value(int64(math.Float64bits(a.F64))), true
	case ir.ReinterpretI64AsF64:
		return ir.F64Value(math.Float64frombits(uint64(a.I64))), true

	// Saturating truncations never trap: they clamp out-of-range/NaN
	// inputs, so folding them at compile time is always safe too.
	case ir.TruncSatF32SToI32:
		return ir.I32Value(satF2I32(float64(a.F32))), true
	case ir.TruncSatF32UToI32:
		return ir.I32Value(int32(satF2U32(float64(a.F32)))), true
	case ir.TruncSatF64SToI32:
		return ir.I32Value(satF2I32(a.F64)), true
	case ir.TruncSatF64UToI32:
		return ir.I32Value(int32(satF2U32(a.F64))), true
	case ir.TruncSatF32SToI64:
		return ir.I64Value(satF2I64(float64(a.F32))), true
	case ir.TruncSatF32UToI64:
		return ir.I64Value(int64(satF2U64(float64(a.F32)))), true
	case ir.TruncSatF64SToI64:
		return ir.I64Value(satF2I64(a.F64)), true
	case ir.TruncSatF64UToI64:
		return ir.I64Value(int64(satF2U64(a.F64))), true
	}
	return ir.Value{}, false
}

func satF2I32(f float64) int32 {
	if math.IsNaN(f) {
		return 0
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(f)
}

func satF2U32(f float64) uint32 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(f)
}

func satF2I64(f float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

func satF2U64(f float64) uint64 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(f)
}
