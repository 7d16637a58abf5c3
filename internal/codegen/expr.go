package codegen

import (
	"fmt"

	"github.com/gowasm/wasm2rs/internal/ir"
)

// binOpExpr renders a BinOp as a Rust expression string. Wrapping integer
// arithmetic uses Rust's explicit wrapping_* methods rather than bare
// operators, since Rust panics (in debug builds) or silently wraps only in
// release builds on overflow — Wasm always wraps, so the generated code
// must say so explicitly regardless of the Rust build profile it is
// compiled under.
func binOpExpr(op ir.BinOp, lhs, rhs string) string {
	switch op {
	case ir.AddI32, ir.AddI64:
		return fmt.Sprintf("%s.wrapping_add(%s)", lhs, rhs)
	case ir.SubI32, ir.SubI64:
		return fmt.Sprintf("%s.wrapping_sub(%s)", lhs, rhs)
	case ir.MulI32, ir.MulI64:
		return fmt.Sprintf("%s.wrapping_mul(%s)", lhs, rhs)
	case ir.DivSI32:
		return fmt.Sprintf("checked_div_i32(%s, %s)?", lhs, rhs)
	case ir.DivSI64:
		return fmt.Sprintf("checked_div_i64(%s, %s)?", lhs, rhs)
	case ir.DivUI32:
		return fmt.Sprintf("checked_div_u32(%s as u32, %s as u32)? as i32", lhs, rhs)
	case ir.DivUI64:
		return fmt.Sprintf("checked_div_u64(%s as u64, %s as u64)? as i64", lhs, rhs)
	case ir.RemSI32:
		return fmt.Sprintf("checked_rem_i32(%s, %s)?", lhs, rhs)
	case ir.RemSI64:
		return fmt.Sprintf("checked_rem_i64(%s, %s)?", lhs, rhs)
	case ir.RemUI32:
		return fmt.Sprintf("checked_rem_u32(%s as u32, %s as u32)? as i32", lhs, rhs)
	case ir.RemUI64:
		return fmt.Sprintf("checked_rem_u64(%s as u64, %s as u64)? as i64", lhs, rhs)
	case ir.AndI32, ir.AndI64:
		return fmt.Sprintf("%s & %s", lhs, rhs)
	case ir.OrI32, ir.OrI64:
		return fmt.Sprintf("%s | %s", lhs, rhs)
	case ir.XorI32, ir.XorI64:
		return fmt.Sprintf("%s ^ %s", lhs, rhs)
	case ir.ShlI32:
		return fmt.Sprintf("%s.wrapping_shl(%s as u32 & 31)", lhs, rhs)
	case ir.ShlI64:
		return fmt.Sprintf("%s.wrapping_shl(%s as u32 & 63)", lhs, rhs)
	case ir.ShrSI32:
		return fmt.Sprintf("%s.wrapping_shr(%s as u32 & 31)", lhs, rhs)
	case ir.ShrSI64:
		return fmt.Sprintf("%s.wrapping_shr(%s as u32 & 63)", lhs, rhs)
	case ir.ShrUI32:
		return fmt.Sprintf("((%s as u32).wrapping_shr(%s as u32 & 31)) as i32", lhs, rhs)
	case ir.ShrUI64:
		return fmt.Sprintf("((%s as u64).wrapping_shr(%s as u32 & 63)) as i64", lhs, rhs)
	case ir.RotlI32:
		return fmt.Sprintf("(%s as u32).rotate_left(%s as u32 & 31) as i32", lhs, rhs)
	case ir.RotlI64:
		return fmt.Sprintf("(%s as u64).rotate_left(%s as u32 & 63) as i64", lhs, rhs)
	case ir.RotrI32:
		return fmt.Sprintf("(%s as u32).rotate_right(%s as u32 & 31) as i32", lhs, rhs)
	case ir.RotrI64:
		return fmt.Sprintf("(%s as u64).rotate_right(%s as u32 & 63) as i64", lhs, rhs)

	case ir.EqI32, ir.EqI64, ir.EqF32, ir.EqF64:
		return fmt.Sprintf("((%s == %s) as i32)", lhs, rhs)
	case ir.NeI32, ir.NeI64, ir.NeF32, ir.NeF64:
		return fmt.Sprintf("((%s != %s) as i32)", lhs, rhs)
	case ir.LtSI32, ir.LtSI64, ir.LtF32, ir.LtF64:
		return fmt.Sprintf("((%s < %s) as i32)", lhs, rhs)
	case ir.LtUI32:
		return fmt.Sprintf("(((%s as u32) < (%s as u32)) as i32)", lhs, rhs)
	case ir.LtUI64:
		return fmt.Sprintf("(((%s as u64) < (%s as u64)) as i32)", lhs, rhs)
	case ir.GtSI32, ir.GtSI64, ir.GtF32, ir.GtF64:
		return fmt.Sprintf("((%s > %s) as i32)", lhs, rhs)
	case ir.GtUI32:
		return fmt.Sprintf("(((%s as u32) > (%s as u32)) as i32)", lhs, rhs)
	case ir.GtUI64:
		return fmt.Sprintf("(((%s as u64) > (%s as u64)) as i32)", lhs, rhs)
	case ir.LeSI32, ir.LeSI64, ir.LeF32, ir.LeF64:
		return fmt.Sprintf("((%s <= %s) as i32)", lhs, rhs)
	case ir.LeUI32:
		return fmt.Sprintf("(((%s as u32) <= (%s as u32)) as i32)", lhs, rhs)
	case ir.LeUI64:
		return fmt.Sprintf("(((%s as u64) <= (%s as u64)) as i32)", lhs, rhs)
	case ir.GeSI32, ir.GeSI64, ir.GeF32, ir.GeF64:
		return fmt.Sprintf("((%s >= %s) as i32)", lhs, rhs)
	case ir.GeUI32:
		return fmt.Sprintf("(((%s as u32) >= (%s as u32)) as i32)", lhs, rhs)
	case ir.GeUI64:
		return fmt.Sprintf("(((%s as u64) >= (%s as u64)) as i32)", lhs, rhs)

	case ir.AddF32, ir.AddF64:
		return fmt.Sprintf("%s + %s", lhs, rhs)
	case ir.SubF32, ir.SubF64:
		return fmt.Sprintf("%s - %s", lhs, rhs)
	case ir.MulF32, ir.MulF64:
		return fmt.Sprintf("%s * %s", lhs, rhs)
	case ir.DivF32, ir.DivF64:
		return fmt.Sprintf("%s / %s", lhs, rhs)
	case ir.MinF32:
		return fmt.Sprintf("wasm_min_f32(%s, %s)", lhs, rhs)
	case ir.MinF64:
		return fmt.Sprintf("wasm_min_f64(%s, %s)", lhs, rhs)
	case ir.MaxF32:
		return fmt.Sprintf("wasm_max_f32(%s, %s)", lhs, rhs)
	case ir.MaxF64:
		return fmt.Sprintf("wasm_max_f64(%s, %s)", lhs, rhs)
	case ir.CopysignF32, ir.CopysignF64:
		return fmt.Sprintf("%s.copysign(%s)", lhs, rhs)
	}
	return fmt.Sprintf("/* unsupported binop %d */ %s", op, lhs)
}

// unOpExpr renders a UnOp (including every numeric conversion) as a Rust
// expression string.
func unOpExpr(op ir.UnOp, arg string) string {
	switch op {
	case ir.ClzI32:
		return fmt.Sprintf("(%s as u32).leading_zeros() as i32", arg)
	case ir.CtzI32:
		return fmt.Sprintf("(%s as u32).trailing_zeros() as i32", arg)
	case ir.PopcntI32:
		return fmt.Sprintf("(%s as u32).count_ones() as i32", arg)
	case ir.ClzI64:
		return fmt.Sprintf("(%s as u64).leading_zeros() as i64", arg)
	case ir.CtzI64:
		return fmt.Sprintf("(%s as u64).trailing_zeros() as i64", arg)
	case ir.PopcntI64:
		return fmt.Sprintf("(%s as u64).count_ones() as i64", arg)
	case ir.EqzI32:
		return fmt.Sprintf("((%s == 0) as i32)", arg)
	case ir.EqzI64:
		return fmt.Sprintf("((%s == 0) as i32)", arg)

	case ir.AbsF32, ir.AbsF64:
		return fmt.Sprintf("%s.abs()", arg)
	case ir.NegF32, ir.NegF64:
		return fmt.Sprintf("-%s", arg)
	case ir.CeilF32, ir.CeilF64:
		return fmt.Sprintf("%s.ceil()", arg)
	case ir.FloorF32, ir.FloorF64:
		return fmt.Sprintf("%s.floor()", arg)
	case ir.TruncF32, ir.TruncF64:
		return fmt.Sprintf("%s.trunc()", arg)
	case ir.NearestF32, ir.NearestF64:
		return fmt.Sprintf("%s.round_ties_even()", arg)
	case ir.SqrtF32, ir.SqrtF64:
		return fmt.Sprintf("%s.sqrt()", arg)

	case ir.WrapI64ToI32:
		return fmt.Sprintf("%s as i32", arg)
	case ir.ExtendI32SToI64:
		return fmt.Sprintf("%s as i64", arg)
	case ir.ExtendI32UToI64:
		return fmt.Sprintf("(%s as u32) as i64", arg)

	case ir.TruncF32SToI32, ir.TruncF64SToI32:
		return fmt.Sprintf("checked_trunc_i32(%s as f64)?", arg)
	case ir.TruncF32UToI32, ir.TruncF64UToI32:
		return fmt.Sprintf("checked_trunc_u32(%s as f64)? as i32", arg)
	case ir.TruncF32SToI64, ir.TruncF64SToI64:
		return fmt.Sprintf("checked_trunc_i64(%s as f64)?", arg)
	case ir.TruncF32UToI64, ir.TruncF64UToI64:
		return fmt.Sprintf("checked_trunc_u64(%s as f64)? as i64", arg)

	case ir.TruncSatF32SToI32, ir.TruncSatF64SToI32:
		return fmt.Sprintf("sat_trunc_i32(%s as f64)", arg)
	case ir.TruncSatF32UToI32, ir.TruncSatF64UToI32:
		return fmt.Sprintf("sat_trunc_u32(%s as f64) as i32", arg)
	case ir.TruncSatF32SToI64, ir.TruncSatF64SToI64:
		return fmt.Sprintf("sat_trunc_i64(%s as f64)", arg)
	case ir.TruncSatF32UToI64, ir.TruncSatF64UToI64:
		return fmt.Sprintf("sat_trunc_u64(%s as f64) as i64", arg)

	case ir.ConvertI32SToF32:
		return fmt.Sprintf("%s as f32", arg)
	case ir.ConvertI32UToF32:
		return fmt.Sprintf("(%s as u32) as f32", arg)
	case ir.ConvertI64SToF32:
		return fmt.Sprintf("%s as f32", arg)
	case ir.ConvertI64UToF32:
		return fmt.Sprintf("(%s as u64) as f32", arg)
	case ir.ConvertI32SToF64:
		return fmt.Sprintf("%s as f64", arg)
	case ir.ConvertI32UToF64:
		return fmt.Sprintf("(%s as u32) as f64", arg)
	case ir.ConvertI64SToF64:
		return fmt.Sprintf("%s as f64", arg)
	case ir.ConvertI64UToF64:
		return fmt.Sprintf("(%s as u64) as f64", arg)
	case ir.DemoteF64ToF32:
		return fmt.Sprintf("%s as f32", arg)
	case ir.PromoteF32ToF64:
		return fmt.Sprintf("%s as f64", arg)
	case ir.ReinterpretF32AsI32:
		return fmt.Sprintf("%s.to_bits() as i32", arg)
	case ir.ReinterpretI32AsF32:
		return fmt.Sprintf("f32::from_bits(%s as u32)", arg)
	case ir.ReinterpretF64AsI64:
		return fmt.Sprintf("%s.to_bits() as i64", arg)
	case ir.ReinterpretI64AsF64:
		return fmt.Sprintf("f64::from_bits(%s as u64)", arg)
	}
	return fmt.Sprintf("/* unsupported unop %d */ %s", op, arg)
}

// loadMethod names the Memory accessor for a load of the given result type,
// width and sign extension.
func loadMethod(ty ir.WasmType, width ir.Width, sign ir.SignExtension) string {
	ext := "s"
	if sign == ir.ZeroExtended {
		ext = "u"
	}
	switch ty {
	case ir.I32:
		switch width {
		case ir.Width8:
			return "load_i32_8" + ext
		case ir.Width16:
			return "load_i32_16" + ext
		default:
			return "load_i32"
		}
	case ir.I64:
		switch width {
		case ir.Width8:
			return "load_i64_8" + ext
		case ir.Width16:
			return "load_i64_16" + ext
		case ir.Width32:
			return "load_i64_32" + ext
		default:
			return "load_i64"
		}
	case ir.F32:
		return "load_f32"
	default:
		return "load_f64"
	}
}

// storeMethod names the Memory accessor for a store of the given value
// type and width. Stores never sign/zero-extend, so no sign parameter.
func storeMethod(ty ir.WasmType, width ir.Width) string {
	switch ty {
	case ir.I32:
		switch width {
		case ir.Width8:
			return "store_i32_8"
		case ir.Width16:
			return "store_i32_16"
		default:
			return "store_i32"
		}
	case ir.I64:
		switch width {
		case ir.Width8:
			return "store_i64_8"
		case ir.Width16:
			return "store_i64_16"
		case ir.Width32:
			return "store_i64_32"
		default:
			return "store_i64"
		}
	case ir.F32:
		return "store_f32"
	default:
		return "store_f64"
	}
}
