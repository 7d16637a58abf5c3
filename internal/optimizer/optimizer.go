// Package optimizer implements spec.md §4.4's conservative IR optimizer: a
// fixed-order pipeline of seven passes that each preserve the program's
// observable behavior, including its trapping behavior. No pass ever
// removes or reorders an instruction that might trap or have a visible
// side effect.
package optimizer

import "github.com/gowasm/wasm2rs/internal/ir"

// OptimizeIR runs all seven passes over every local function, in the fixed
// order spec.md §4.4 specifies. Passes mutate functions in place.
func OptimizeIR(mod *ir.ModuleInfo) {
	for i := range mod.IrFunctions {
		optimizeFunction(&mod.IrFunctions[i])
	}
}

func optimizeFunction(fn *ir.Function) {
	eliminateEmptyBlocks(fn)
	mergeBlocks(fn)
	removeDeadBlocks(fn)
	propagateConstants(fn)
	propagateCopies(fn)
	eliminateLocalCSE(fn)
	eliminateDeadInstructions(fn)
}

// blockIndex returns the slice position of the block with the given id.
// A block's position in fn.Blocks need not match its id (the irbuilder
// allocates a loop's end block before its start block, and appends an if's
// synthesized else block late), so lookups go by Id.
func blockIndex(fn *ir.Function, id ir.BlockId) int {
	for i := range fn.Blocks {
		if fn.Blocks[i].Id == id {
			return i
		}
	}
	return -1
}

// walkTermTargets calls visit for every BlockId a terminator can transfer
// control to.
func walkTermTargets(t *ir.Terminator, visit func(*ir.BlockId)) {
	switch t.Kind {
	case ir.TJump:
		visit(&t.Target)
	case ir.TBranchIf:
		visit(&t.IfTrue)
		visit(&t.IfFalse)
	case ir.TBranchTable:
		for i := range t.Targets {
			visit(&t.Targets[i])
		}
		visit(&t.Default)
	}
}

// isTrapping reports whether instr may raise a Wasm trap, and must
// therefore never be eliminated as "dead" even when its result is unused.
func isTrapping(instr ir.Instr) bool {
	if instr.Kind == ir.KLoad {
		return true // out-of-bounds memory access traps
	}
	if instr.Kind == ir.KBinOp {
		switch instr.Op {
		case ir.DivSI32, ir.DivUI32, ir.RemSI32, ir.RemUI32,
			ir.DivSI64, ir.DivUI64, ir.RemSI64, ir.RemUI64:
			return true // division by zero, and signed INT_MIN/-1 overflow
		}
	}
	if instr.Kind == ir.KUnOp {
		switch instr.Uop {
		case ir.TruncF32SToI32, ir.TruncF32UToI32, ir.TruncF64SToI32, ir.TruncF64UToI32,
			ir.TruncF32SToI64, ir.TruncF32UToI64, ir.TruncF64SToI64, ir.TruncF64UToI64:
			return true // non-saturating trunc traps on NaN/out-of-range
		}
	}
	return false
}

// hasSideEffect reports whether instr has an effect beyond defining Dest,
// and so must be kept regardless of whether Dest is ever read.
func hasSideEffect(instr ir.Instr) bool {
	switch instr.Kind {
	case ir.KStore, ir.KGlobalSet, ir.KCall, ir.KCallImport, ir.KCallIndirect, ir.KMemoryGrow:
		return true
	}
	return false
}

// isLocalSlot reports whether v is one of fn's declared parameters or
// locals — a mutable binding reassigned throughout the function, as
// opposed to a single-definition SSA temporary. Passes that rely on
// single-assignment (copy propagation, CSE) must never touch these.
func isLocalSlot(fn *ir.Function, v ir.VarId) bool {
	for _, p := range fn.Params {
		if p.Var == v {
			return true
		}
	}
	for _, l := range fn.Locals {
		if l.Var == v {
			return true
		}
	}
	return false
}
