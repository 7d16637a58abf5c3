package codegen

import (
	"fmt"

	"github.com/gowasm/wasm2rs/internal/ir"
)

// wasmTypeToRust converts a Wasm value type to its Rust scalar type name.
// Grounded on original_source/crates/herkos/src/codegen/types.rs.
func wasmTypeToRust(t ir.WasmType) string {
	switch t {
	case ir.I32:
		return "i32"
	case ir.I64:
		return "i64"
	case ir.F32:
		return "f32"
	default:
		return "f64"
	}
}

// formatReturnType formats an optional Wasm result type as the Rust
// WasmResult<T> every generated function and export method returns.
func formatReturnType(t *ir.WasmType) string {
	if t == nil {
		return "WasmResult<()>"
	}
	return fmt.Sprintf("WasmResult<%s>", wasmTypeToRust(*t))
}

// globalInitToRust formats a global's constant initializer as a Rust type
// and literal value pair, e.g. ("i32", "42i32").
func globalInitToRust(v ir.Value) (string, string) {
	switch v.Type {
	case ir.I32:
		return "i32", fmt.Sprintf("%di32", v.I32)
	case ir.I64:
		return "i64", fmt.Sprintf("%di64", v.I64)
	case ir.F32:
		return "f32", fmt.Sprintf("%gf32", v.F32)
	default:
		return "f64", fmt.Sprintf("%gf64", v.F64)
	}
}

// v formats a VarId as the Rust local-binding name it is emitted under.
func v(id ir.VarId) string { return fmt.Sprintf("v%d", id) }

// zeroRustLiteral formats a type's default value, used to pre-declare every
// function-local var before the block dispatch loop runs (see function.go).
func zeroRustLiteral(t ir.WasmType) string {
	switch t {
	case ir.I32:
		return "0i32"
	case ir.I64:
		return "0i64"
	case ir.F32:
		return "0f32"
	default:
		return "0f64"
	}
}

// binOpResultType reports a BinOp's result type: arithmetic/bitwise ops
// keep their operand type, comparisons always produce i32. Relies on the
// contiguous grouping of the BinOp const block in ir/types.go.
func binOpResultType(op ir.BinOp) ir.WasmType {
	switch {
	case op >= ir.AddI32 && op <= ir.RotrI32:
		return ir.I32
	case op >= ir.AddI64 && op <= ir.RotrI64:
		return ir.I64
	case op >= ir.EqI32 && op <= ir.GeUI32:
		return ir.I32
	case op >= ir.EqI64 && op <= ir.GeUI64:
		return ir.I32
	case op >= ir.AddF32 && op <= ir.CopysignF32:
		return ir.F32
	case op >= ir.AddF64 && op <= ir.CopysignF64:
		return ir.F64
	case op >= ir.EqF32 && op <= ir.GeF32:
		return ir.I32
	default:
		return ir.I32
	}
}

// unOpResultType reports a UnOp's result type. Integer unary ops and eqz
// keep/produce i32 or i64 as named; conversions are listed explicitly since
// their result type differs from their operand type by definition.
func unOpResultType(op ir.UnOp) ir.WasmType {
	switch op {
	case ir.ClzI32, ir.CtzI32, ir.PopcntI32, ir.EqzI32, ir.EqzI64:
		return ir.I32
	case ir.ClzI64, ir.CtzI64, ir.PopcntI64:
		return ir.I64
	case ir.AbsF32, ir.NegF32, ir.CeilF32, ir.FloorF32, ir.TruncF32, ir.NearestF32, ir.SqrtF32:
		return ir.F32
	case ir.AbsF64, ir.NegF64, ir.CeilF64, ir.FloorF64, ir.TruncF64, ir.NearestF64, ir.SqrtF64:
		return ir.F64
	case ir.WrapI64ToI32,
		ir.TruncF32SToI32, ir.TruncF32UToI32, ir.TruncF64SToI32, ir.TruncF64UToI32,
		ir.TruncSatF32SToI32, ir.TruncSatF32UToI32, ir.TruncSatF64SToI32, ir.TruncSatF64UToI32,
		ir.ReinterpretF32AsI32:
		return ir.I32
	case ir.ExtendI32SToI64, ir.ExtendI32UToI64,
		ir.TruncF32SToI64, ir.TruncF32UToI64, ir.TruncF64SToI64, ir.TruncF64UToI64,
		ir.TruncSatF32SToI64, ir.TruncSatF32UToI64, ir.TruncSatF64SToI64, ir.TruncSatF64UToI64,
		ir.ReinterpretF64AsI64:
		return ir.I64
	case ir.ConvertI32SToF32, ir.ConvertI32UToF32, ir.ConvertI64SToF32, ir.ConvertI64UToF32,
		ir.DemoteF64ToF32, ir.ReinterpretI32AsF32:
		return ir.F32
	case ir.ConvertI32SToF64, ir.ConvertI32UToF64, ir.ConvertI64SToF64, ir.ConvertI64UToF64,
		ir.PromoteF32ToF64, ir.ReinterpretI64AsF64:
		return ir.F64
	default:
		return ir.I32
	}
}
