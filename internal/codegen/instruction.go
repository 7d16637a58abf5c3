package codegen

import (
	"fmt"
	"strings"

	"github.com/gowasm/wasm2rs/internal/ir"
)

// generateInstructionWithInfo renders one IR instruction, resolving the
// GlobalGet/GlobalSet imported-vs-local split (instructions address
// globals in the combined imports-then-locals index space; everything else
// is handled identically regardless of module shape) and delegating the
// rest to the Backend. Grounded on
// original_source/crates/herkos/src/codegen/instruction.rs.
func generateInstructionWithInfo(backend Backend, instr ir.Instr, info *ir.ModuleInfo) string {
	switch instr.Kind {
	case ir.KConst:
		return backend.EmitConst(instr.Dest, instr.Value)
	case ir.KBinOp:
		return backend.EmitBinOp(instr.Dest, instr.Op, instr.Lhs, instr.Rhs)
	case ir.KUnOp:
		return backend.EmitUnOp(instr.Dest, instr.Uop, instr.Arg)
	case ir.KLoad:
		return backend.EmitLoad(instr.Dest, instr.MemType, instr.Addr, instr.Offset, instr.Width, instr.Sign)
	case ir.KStore:
		return backend.EmitStore(instr.MemType, instr.Addr, instr.Stored, instr.Offset, instr.Width)
	case ir.KCall:
		hasGlobals := info.HasMutableGlobals()
		hasMemory := info.HasMemory
		hasTable := info.HasTable()
		calleeNeedsHost := int(instr.FuncIdx) < len(info.FuncSignatures) && info.FuncSignatures[instr.FuncIdx].NeedsHost
		return backend.EmitCall(callDest(instr, info), instr.FuncIdx, instr.Args, hasGlobals, hasMemory, hasTable, calleeNeedsHost)
	case ir.KCallImport:
		return backend.EmitCallImport(callImportDest(instr, info), instr.ModuleName, instr.FuncName, instr.Args)
	case ir.KCallIndirect:
		return generateCallIndirect(instr, info)
	case ir.KAssign:
		return backend.EmitAssign(instr.Dest, instr.Src)
	case ir.KGlobalGet:
		return generateGlobalGet(backend, instr, info)
	case ir.KGlobalSet:
		return generateGlobalSet(backend, instr, info)
	case ir.KMemorySize:
		return backend.EmitMemorySize(instr.Dest)
	case ir.KMemoryGrow:
		return backend.EmitMemoryGrow(instr.Dest, instr.Delta)
	case ir.KSelect:
		return backend.EmitSelect(instr.Dest, instr.Val1, instr.Val2, instr.Condition)
	}
	return fmt.Sprintf("%s/* unsupported instruction kind %d */", instrIndent, instr.Kind)
}

// instrDefinesVar reports the VarId an instruction actually defines, if
// any. ir.Instr.HasDest() is a Kind-only predicate that returns true
// unconditionally for Call/CallImport/CallIndirect even when the callee is
// void (Dest is simply left at its zero value then); this resolves that
// case using the callee's real signature, the same way callDest does.
func instrDefinesVar(instr ir.Instr, info *ir.ModuleInfo) (ir.VarId, bool) {
	switch instr.Kind {
	case ir.KCall:
		if d := callDest(instr, info); d != nil {
			return *d, true
		}
		return 0, false
	case ir.KCallImport:
		if d := callImportDest(instr, info); d != nil {
			return *d, true
		}
		return 0, false
	case ir.KCallIndirect:
		if hasResultForType(info, instr.TypeIdx) {
			return instr.Dest, true
		}
		return 0, false
	default:
		if instr.HasDest() {
			return instr.Dest, true
		}
		return 0, false
	}
}

// callDest/callImportDest resolve whether a Call/CallImport instruction's
// Dest is meaningful: ir.Instr.HasDest() reports true unconditionally for
// these kinds, but Dest is only real when the callee actually has a
// result. The callee's signature settles that.
func callDest(instr ir.Instr, info *ir.ModuleInfo) *ir.VarId {
	if int(instr.FuncIdx) < len(info.FuncSignatures) && info.FuncSignatures[instr.FuncIdx].ReturnType != nil {
		d := instr.Dest
		return &d
	}
	return nil
}

func callImportDest(instr ir.Instr, info *ir.ModuleInfo) *ir.VarId {
	for _, imp := range info.FuncImports {
		if imp.ModuleName == instr.ModuleName && imp.FuncName == instr.FuncName {
			if imp.ReturnType == nil {
				return nil
			}
			d := instr.Dest
			return &d
		}
	}
	return nil
}

func generateGlobalGet(backend Backend, instr ir.Instr, info *ir.ModuleInfo) string {
	if int(instr.GlobalIndex) < len(info.ImportedGlobals) {
		g := info.ImportedGlobals[instr.GlobalIndex]
		return fmt.Sprintf("%s%s = host.get_%s();", instrIndent, v(instr.Dest), g.Name)
	}
	localIdx := int(instr.GlobalIndex) - len(info.ImportedGlobals)
	mutable := true
	if localIdx < len(info.Globals) {
		mutable = info.Globals[localIdx].Mutable
	}
	return backend.EmitGlobalGet(instr.Dest, localIdx, mutable)
}

func generateGlobalSet(backend Backend, instr ir.Instr, info *ir.ModuleInfo) string {
	if int(instr.GlobalIndex) < len(info.ImportedGlobals) {
		g := info.ImportedGlobals[instr.GlobalIndex]
		return fmt.Sprintf("%shost.set_%s(%s);", instrIndent, g.Name, v(instr.GlobalValue))
	}
	localIdx := int(instr.GlobalIndex) - len(info.ImportedGlobals)
	return backend.EmitGlobalSet(localIdx, instr.GlobalValue)
}

// generateTerminatorWithMapping renders a block terminator, translating
// BlockId targets to the dense 0..N block indices the generated function's
// dispatch loop switches on.
func generateTerminatorWithMapping(backend Backend, term ir.Terminator, blockIdToIndex map[ir.BlockId]int, funcReturnType *ir.WasmType) string {
	switch term.Kind {
	case ir.TReturn:
		if !term.HasValue && funcReturnType != nil {
			// Dead code after `unreachable`: a function with a result type
			// whose Return carries no value can only be reached from
			// dead-after-trap code; emit a trap, not a type-mismatched
			// `return Ok(())`.
			return backend.EmitUnreachable()
		}
		if term.HasValue {
			val := term.Value
			return backend.EmitReturn(&val)
		}
		return backend.EmitReturn(nil)
	case ir.TJump:
		return backend.EmitJumpToIndex(blockIdToIndex[term.Target])
	case ir.TBranchIf:
		return backend.EmitBranchIfToIndex(term.Condition, blockIdToIndex[term.IfTrue], blockIdToIndex[term.IfFalse])
	case ir.TBranchTable:
		targets := make([]int, len(term.Targets))
		for i, t := range term.Targets {
			targets[i] = blockIdToIndex[t]
		}
		return backend.EmitBranchTableToIndex(term.Index, targets, blockIdToIndex[term.Default])
	case ir.TUnreachable:
		return backend.EmitUnreachable()
	}
	return fmt.Sprintf("%s/* unsupported terminator */", instrIndent)
}

// generateCallIndirect emits the inline call_indirect dispatch sequence:
// table lookup, canonical type check, then a match over every function,
// imported or local, sharing that canonical type. Grounded on
// original_source/crates/herkos/src/codegen/instruction.rs's
// generate_call_indirect.
func generateCallIndirect(instr ir.Instr, info *ir.ModuleInfo) string {
	hasGlobals := info.HasMutableGlobals()
	hasMemory := info.HasMemory
	hasTable := info.HasTable()

	canonIdx := uint32(instr.TypeIdx)
	if int(instr.TypeIdx) < len(info.CanonicalType) {
		canonIdx = uint32(info.CanonicalType[instr.TypeIdx])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%slet __entry = table.get(%s as u32)?;\n", instrIndent, v(instr.TableIdx))
	fmt.Fprintf(&b, "%sif __entry.type_index != %d { return Err(WasmTrap::IndirectCallTypeMismatch); }\n", instrIndent, canonIdx)

	baseCallArgs := buildInnerCallArgs(varNames(instr.Args), hasGlobals, "globals", hasMemory, "memory", hasTable, "table")

	destPrefix := ""
	if hasResultForType(info, instr.TypeIdx) {
		destPrefix = fmt.Sprintf("%s = ", v(instr.Dest))
	}

	hostCallArgs := strings.Join(varNames(instr.Args), ", ")

	fmt.Fprintf(&b, "%s%smatch __entry.func_index {\n", instrIndent, destPrefix)
	for impIdx, imp := range info.FuncImports {
		if imp.TypeIdx == ir.TypeIdx(canonIdx) {
			fmt.Fprintf(&b, "%s    %d => host.%s(%s)?,\n", instrIndent, impIdx, imp.FuncName, hostCallArgs)
		}
	}
	for localIdx, sig := range info.FuncSignatures {
		if sig.TypeIdx == ir.TypeIdx(canonIdx) {
			callArgs := baseCallArgs
			if sig.NeedsHost {
				callArgs = append(append([]string{}, baseCallArgs...), "host")
			}
			fmt.Fprintf(&b, "%s    %d => func_%d(%s)?,\n", instrIndent, info.NumImportedFuncs+localIdx, localIdx, strings.Join(callArgs, ", "))
		}
	}
	fmt.Fprintf(&b, "%s    _ => return Err(WasmTrap::UndefinedElement),\n", instrIndent)
	fmt.Fprintf(&b, "%s};", instrIndent)
	return b.String()
}

// funcRefTypeIdx resolves the canonical type index of a combined-space
// (imports-then-locals) function index, for populating table FuncRef
// entries at construction time.
func funcRefTypeIdx(info *ir.ModuleInfo, funcIdx ir.GlobalFuncIdx) int {
	if int(funcIdx) < info.NumImportedFuncs {
		if int(funcIdx) < len(info.FuncImports) {
			return int(info.FuncImports[funcIdx].TypeIdx)
		}
		return 0
	}
	localIdx := int(funcIdx) - info.NumImportedFuncs
	if localIdx < len(info.FuncSignatures) {
		return int(info.FuncSignatures[localIdx].TypeIdx)
	}
	return 0
}

func hasResultForType(info *ir.ModuleInfo, typeIdx ir.TypeIdx) bool {
	canon := typeIdx
	if int(typeIdx) < len(info.CanonicalType) {
		canon = info.CanonicalType[typeIdx]
	}
	for _, sig := range info.FuncSignatures {
		if sig.TypeIdx == canon {
			return sig.ReturnType != nil
		}
	}
	return false
}
