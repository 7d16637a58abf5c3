// Package codegen implements spec.md §4.5: translating optimized IR into
// Rust source text. The generation logic (module/function/instruction
// shape) lives here; the Backend interface isolates the one part spec.md
// allows varying independently — exactly how each instruction is rendered —
// mirroring original_source/crates/herkos's Backend trait, which exists so
// a future verified/unsafe backend can share this package's module and
// control-flow plumbing.
package codegen

import "github.com/gowasm/wasm2rs/internal/ir"

// Backend renders individual IR instructions and terminators as Rust
// source fragments. RustBackend is the only implementation this pipeline
// ships; the interface exists so module/function/instruction generation
// never hard-codes a rendering choice inline.
type Backend interface {
	EmitConst(dest ir.VarId, value ir.Value) string
	EmitBinOp(dest ir.VarId, op ir.BinOp, lhs, rhs ir.VarId) string
	EmitUnOp(dest ir.VarId, op ir.UnOp, arg ir.VarId) string
	EmitLoad(dest ir.VarId, ty ir.WasmType, addr ir.VarId, offset uint32, width ir.Width, sign ir.SignExtension) string
	EmitStore(ty ir.WasmType, addr ir.VarId, value ir.VarId, offset uint32, width ir.Width) string
	EmitCall(dest *ir.VarId, funcIdx ir.LocalFuncIdx, args []ir.VarId, hasGlobals, hasMemory, hasTable, hasHost bool) string
	EmitCallImport(dest *ir.VarId, moduleName, funcName string, args []ir.VarId) string
	EmitGlobalGet(dest ir.VarId, index int, mutable bool) string
	EmitGlobalSet(index int, value ir.VarId) string
	EmitAssign(dest, src ir.VarId) string
	EmitSelect(dest, val1, val2, condition ir.VarId) string
	EmitReturn(value *ir.VarId) string
	EmitMemorySize(dest ir.VarId) string
	EmitMemoryGrow(dest ir.VarId, delta ir.VarId) string
	EmitUnreachable() string
	EmitJumpToIndex(targetIdx int) string
	EmitBranchIfToIndex(condition ir.VarId, ifTrueIdx, ifFalseIdx int) string
	EmitBranchTableToIndex(index ir.VarId, targetIndices []int, defaultIdx int) string
}
