package codegen

import (
	"fmt"
	"strings"

	"github.com/gowasm/wasm2rs/internal/ir"
	"github.com/pkg/errors"
)

// generateFunctionWithInfo renders one local Wasm function as a Rust
// function: a parameter list threading exactly the module state this
// function needs, a flat declaration of every SSA var the body touches,
// and a block-dispatch loop that trampolines between basic blocks by
// mutating current_block. There is no herkos source file for this shape
// (original_source/crates/herkos/src/codegen/function.rs is absent from
// the retrieval pack); it is designed from the call shapes module.rs and
// export.rs imply (see DESIGN.md).
func generateFunctionWithInfo(backend Backend, fn *ir.Function, funcName string, info *ir.ModuleInfo, standalone bool) (string, error) {
	varTypes, err := inferVarTypes(fn, info)
	if err != nil {
		return "", errors.Wrapf(err, "generating %s", funcName)
	}

	blockIdToIndex := make(map[ir.BlockId]int, len(fn.Blocks))
	for i, blk := range fn.Blocks {
		blockIdToIndex[blk.Id] = i
	}
	entryIdx := blockIdToIndex[fn.EntryBlock]

	visibility := ""
	if standalone {
		// In standalone mode there is no WasmModule/export impl to expose a
		// public surface, so func_N itself is the module's public API.
		visibility = "pub "
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%sfn %s(%s) -> %s {\n", visibility, funcName, functionParams(fn, info, standalone), formatReturnType(fn.ReturnType))

	for _, decl := range localVarDecls(fn, info, varTypes) {
		fmt.Fprintf(&b, "    %s\n", decl)
	}

	fmt.Fprintf(&b, "    let mut current_block: usize = %d;\n", entryIdx)
	b.WriteString("    loop {\n")
	b.WriteString("        match current_block {\n")
	for i, blk := range fn.Blocks {
		fmt.Fprintf(&b, "            %d => {\n", i)
		for _, instr := range blk.Instrs {
			b.WriteString(generateInstructionWithInfo(backend, instr, info))
			b.WriteString("\n")
		}
		b.WriteString(generateTerminatorWithMapping(backend, blk.Terminator, blockIdToIndex, fn.ReturnType))
		b.WriteString("\n")
		if blk.Terminator.Kind != ir.TReturn && blk.Terminator.Kind != ir.TUnreachable {
			b.WriteString("                continue;\n")
		}
		b.WriteString("            }\n")
	}
	b.WriteString("            _ => unreachable!(),\n")
	b.WriteString("        }\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")
	return b.String(), nil
}

// functionParams builds the Rust parameter list: the Wasm-level params
// (mutable, since local.set/local.tee reassign them in place), then the
// module-state params every local function threads uniformly whenever the
// module has that piece of state (standalone modules have none of memory,
// table or globals by construction of NeedsWrapper, so this only ever adds
// parameters in wrapper mode), then host last when this function needs it.
func functionParams(fn *ir.Function, info *ir.ModuleInfo, standalone bool) string {
	var params []string
	for _, p := range fn.Params {
		params = append(params, fmt.Sprintf("mut %s: %s", v(p.Var), wasmTypeToRust(p.Type)))
	}
	if !standalone {
		if info.HasMutableGlobals() {
			params = append(params, "globals: &mut Globals")
		}
		if info.HasMemory {
			params = append(params, "memory: &mut Memory")
		}
		if info.HasTable() {
			params = append(params, "table: &Table")
		}
	}
	if fn.NeedsHost {
		if bounds, ok := buildTraitBounds(info); ok {
			params = append(params, fmt.Sprintf("host: &mut impl %s", bounds))
		}
	}
	return strings.Join(params, ", ")
}

// localVarDecls predeclares every SSA var the body defines but that isn't
// already bound as a function parameter, with a zero value: the
// block-dispatch loop re-enters a fresh Rust scope each iteration, so a var
// written in one block and read in another must live above the loop, not
// behind a `let` scoped to the match arm that defines it.
func localVarDecls(fn *ir.Function, info *ir.ModuleInfo, varTypes map[ir.VarId]ir.WasmType) []string {
	isParam := make(map[ir.VarId]bool, len(fn.Params))
	for _, p := range fn.Params {
		isParam[p.Var] = true
	}

	var ids []ir.VarId
	seen := map[ir.VarId]bool{}
	for _, l := range fn.Locals {
		if !seen[l.Var] {
			seen[l.Var] = true
			ids = append(ids, l.Var)
		}
	}
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			dest, ok := instrDefinesVar(instr, info)
			if !ok || isParam[dest] || seen[dest] {
				continue
			}
			seen[dest] = true
			ids = append(ids, dest)
		}
	}

	decls := make([]string, 0, len(ids))
	for _, id := range ids {
		ty := varTypes[id]
		decls = append(decls, fmt.Sprintf("let mut %s: %s = %s;", v(id), wasmTypeToRust(ty), zeroRustLiteral(ty)))
	}
	return decls
}

// inferVarTypes determines every SSA var's Wasm type by scanning each
// instruction's Dest once. Params and Locals already carry their declared
// type; every other var's type follows from the instruction that defines
// it (arithmetic keeps operand type, comparisons always produce i32,
// conversions are explicit, loads/calls/global-reads take their value's
// declared type).
func inferVarTypes(fn *ir.Function, info *ir.ModuleInfo) (map[ir.VarId]ir.WasmType, error) {
	types := make(map[ir.VarId]ir.WasmType)
	for _, p := range fn.Params {
		types[p.Var] = p.Type
	}
	for _, l := range fn.Locals {
		types[l.Var] = l.Type
	}

	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			dest, ok := instrDefinesVar(instr, info)
			if !ok {
				continue
			}
			if _, ok := types[dest]; ok {
				continue // already a declared param/local slot
			}
			ty, ok := inferInstrType(instr, info, types)
			if !ok {
				return nil, errors.Errorf("could not infer type for var %d (instruction kind %d)", dest, instr.Kind)
			}
			types[dest] = ty
		}
	}
	return types, nil
}

func inferInstrType(instr ir.Instr, info *ir.ModuleInfo, known map[ir.VarId]ir.WasmType) (ir.WasmType, bool) {
	switch instr.Kind {
	case ir.KConst:
		return instr.Value.Type, true
	case ir.KBinOp:
		return binOpResultType(instr.Op), true
	case ir.KUnOp:
		return unOpResultType(instr.Uop), true
	case ir.KLoad:
		return instr.MemType, true
	case ir.KCall:
		if int(instr.FuncIdx) < len(info.FuncSignatures) && info.FuncSignatures[instr.FuncIdx].ReturnType != nil {
			return *info.FuncSignatures[instr.FuncIdx].ReturnType, true
		}
		return 0, false
	case ir.KCallImport:
		for _, imp := range info.FuncImports {
			if imp.ModuleName == instr.ModuleName && imp.FuncName == instr.FuncName && imp.ReturnType != nil {
				return *imp.ReturnType, true
			}
		}
		return 0, false
	case ir.KCallIndirect:
		canon := instr.TypeIdx
		if int(instr.TypeIdx) < len(info.CanonicalType) {
			canon = info.CanonicalType[instr.TypeIdx]
		}
		for _, sig := range info.FuncSignatures {
			if sig.TypeIdx == canon && sig.ReturnType != nil {
				return *sig.ReturnType, true
			}
		}
		for _, imp := range info.FuncImports {
			if imp.TypeIdx == canon && imp.ReturnType != nil {
				return *imp.ReturnType, true
			}
		}
		return 0, false
	case ir.KGlobalGet:
		if int(instr.GlobalIndex) < len(info.ImportedGlobals) {
			return info.ImportedGlobals[instr.GlobalIndex].Type, true
		}
		localIdx := int(instr.GlobalIndex) - len(info.ImportedGlobals)
		if localIdx >= 0 && localIdx < len(info.Globals) {
			return info.Globals[localIdx].Init.Type, true
		}
		return 0, false
	case ir.KAssign:
		if ty, ok := known[instr.Src]; ok {
			return ty, true
		}
		return 0, false
	case ir.KSelect:
		if ty, ok := known[instr.Val1]; ok {
			return ty, true
		}
		if ty, ok := known[instr.Val2]; ok {
			return ty, true
		}
		return 0, false
	case ir.KMemorySize, ir.KMemoryGrow:
		return ir.I32, true
	}
	return 0, false
}
