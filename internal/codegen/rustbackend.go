package codegen

import (
	"fmt"
	"strings"

	"github.com/gowasm/wasm2rs/internal/ir"
)

// instrIndent matches the body-of-a-match-arm depth every instruction is
// generated at (see function.go's block dispatch loop).
const instrIndent = "                "

// RustBackend is the only Backend this pipeline ships: it renders IR
// instructions as safe, bounds-checked Rust against the runtime support
// types rustCodePreamble defines (WasmResult, WasmTrap, Memory, Table).
// Grounded on original_source/crates/herkos's SafeBackend.
type RustBackend struct{}

// Emit* methods that define a VarId assign into it with plain `vN = ...;`
// rather than `let vN = ...;`: every var used anywhere in the function is
// pre-declared with `let mut` once, at function top (see function.go),
// because the block-dispatch loop re-enters a fresh Rust scope on every
// trampoline iteration and a `let` scoped to one match arm would not be
// visible from another arm that consumes the same SSA value.

func (RustBackend) EmitConst(dest ir.VarId, value ir.Value) string {
	_, lit := globalInitToRust(value)
	return fmt.Sprintf("%s%s = %s;", instrIndent, v(dest), lit)
}

func (RustBackend) EmitBinOp(dest ir.VarId, op ir.BinOp, lhs, rhs ir.VarId) string {
	return fmt.Sprintf("%s%s = %s;", instrIndent, v(dest), binOpExpr(op, v(lhs), v(rhs)))
}

func (RustBackend) EmitUnOp(dest ir.VarId, op ir.UnOp, arg ir.VarId) string {
	return fmt.Sprintf("%s%s = %s;", instrIndent, v(dest), unOpExpr(op, v(arg)))
}

func (RustBackend) EmitLoad(dest ir.VarId, ty ir.WasmType, addr ir.VarId, offset uint32, width ir.Width, sign ir.SignExtension) string {
	method := loadMethod(ty, width, sign)
	return fmt.Sprintf("%s%s = memory.%s(%s as u32, %d)?;", instrIndent, v(dest), method, v(addr), offset)
}

func (RustBackend) EmitStore(ty ir.WasmType, addr ir.VarId, value ir.VarId, offset uint32, width ir.Width) string {
	method := storeMethod(ty, width)
	return fmt.Sprintf("%smemory.%s(%s as u32, %d, %s)?;", instrIndent, method, v(addr), offset, v(value))
}

func (RustBackend) EmitCall(dest *ir.VarId, funcIdx ir.LocalFuncIdx, args []ir.VarId, hasGlobals, hasMemory, hasTable, hasHost bool) string {
	callArgs := buildInnerCallArgs(varNames(args), hasGlobals, "globals", hasMemory, "memory", hasTable, "table")
	if hasHost {
		callArgs = append(callArgs, "host")
	}
	call := fmt.Sprintf("func_%d(%s)?", funcIdx, strings.Join(callArgs, ", "))
	if dest != nil {
		return fmt.Sprintf("%s%s = %s;", instrIndent, v(*dest), call)
	}
	return fmt.Sprintf("%s%s;", instrIndent, call)
}

func (RustBackend) EmitCallImport(dest *ir.VarId, moduleName, funcName string, args []ir.VarId) string {
	call := fmt.Sprintf("host.%s(%s)?", funcName, strings.Join(varNames(args), ", "))
	if dest != nil {
		return fmt.Sprintf("%s%s = %s;", instrIndent, v(*dest), call)
	}
	return fmt.Sprintf("%s%s;", instrIndent, call)
}

func (RustBackend) EmitGlobalGet(dest ir.VarId, index int, mutable bool) string {
	if mutable {
		return fmt.Sprintf("%s%s = globals.g%d;", instrIndent, v(dest), index)
	}
	return fmt.Sprintf("%s%s = G%d;", instrIndent, v(dest), index)
}

func (RustBackend) EmitGlobalSet(index int, value ir.VarId) string {
	return fmt.Sprintf("%sglobals.g%d = %s;", instrIndent, index, v(value))
}

func (RustBackend) EmitAssign(dest, src ir.VarId) string {
	return fmt.Sprintf("%s%s = %s;", instrIndent, v(dest), v(src))
}

func (RustBackend) EmitSelect(dest, val1, val2, condition ir.VarId) string {
	return fmt.Sprintf("%s%s = if %s != 0 { %s } else { %s };", instrIndent, v(dest), v(condition), v(val1), v(val2))
}

func (RustBackend) EmitReturn(value *ir.VarId) string {
	if value == nil {
		return fmt.Sprintf("%sreturn Ok(());", instrIndent)
	}
	return fmt.Sprintf("%sreturn Ok(%s);", instrIndent, v(*value))
}

func (RustBackend) EmitMemorySize(dest ir.VarId) string {
	return fmt.Sprintf("%s%s = memory.size() as i32;", instrIndent, v(dest))
}

func (RustBackend) EmitMemoryGrow(dest ir.VarId, delta ir.VarId) string {
	return fmt.Sprintf("%s%s = memory.grow(%s as u32);", instrIndent, v(dest), v(delta))
}

func (RustBackend) EmitUnreachable() string {
	return fmt.Sprintf("%sreturn Err(WasmTrap::Unreachable);", instrIndent)
}

func (RustBackend) EmitJumpToIndex(targetIdx int) string {
	return fmt.Sprintf("%scurrent_block = %d;", instrIndent, targetIdx)
}

func (RustBackend) EmitBranchIfToIndex(condition ir.VarId, ifTrueIdx, ifFalseIdx int) string {
	return fmt.Sprintf("%scurrent_block = if %s != 0 { %d } else { %d };", instrIndent, v(condition), ifTrueIdx, ifFalseIdx)
}

func (RustBackend) EmitBranchTableToIndex(index ir.VarId, targetIndices []int, defaultIdx int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%scurrent_block = match %s as usize {\n", instrIndent, v(index))
	for i, target := range targetIndices {
		fmt.Fprintf(&b, "%s    %d => %d,\n", instrIndent, i, target)
	}
	fmt.Fprintf(&b, "%s    _ => %d,\n", instrIndent, defaultIdx)
	fmt.Fprintf(&b, "%s};", instrIndent)
	return b.String()
}

func varNames(vars []ir.VarId) []string {
	out := make([]string, len(vars))
	for i, id := range vars {
		out[i] = v(id)
	}
	return out
}
