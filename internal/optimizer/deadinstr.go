package optimizer

import "github.com/gowasm/wasm2rs/internal/ir"

// eliminateDeadInstructions implements spec.md §4.4's seventh and final
// pass: an instruction whose result is never read anywhere in the function,
// has no side effect, and cannot trap contributes nothing and is dropped.
// Assigns into a local's own slot are kept even when seemingly unread here,
// since local CSE/copy-prop never establish whole-function liveness across
// loop back-edges for mutable slots.
func eliminateDeadInstructions(fn *ir.Function) {
	used := map[ir.VarId]bool{}
	mark := func(v ir.VarId) { used[v] = true }

	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			markOperands(instr, mark)
		}
		markTermOperands(&blk.Terminator, mark)
	}

	for i := range fn.Blocks {
		blk := &fn.Blocks[i]
		kept := blk.Instrs[:0]
		for _, instr := range blk.Instrs {
			if shouldDrop(fn, instr, used) {
				continue
			}
			kept = append(kept, instr)
		}
		blk.Instrs = kept
	}
}

func shouldDrop(fn *ir.Function, instr ir.Instr, used map[ir.VarId]bool) bool {
	if hasSideEffect(instr) || isTrapping(instr) {
		return false
	}
	if !instr.HasDest() {
		return false
	}
	if instr.Kind == ir.KAssign && isLocalSlot(fn, instr.Dest) {
		return false
	}
	return !used[instr.Dest]
}

func markOperands(instr ir.Instr, mark func(ir.VarId)) {
	mark(instr.Lhs)
	mark(instr.Rhs)
	mark(instr.Arg)
	mark(instr.Addr)
	mark(instr.Stored)
	mark(instr.TableIdx)
	mark(instr.GlobalValue)
	mark(instr.Delta)
	mark(instr.Val1)
	mark(instr.Val2)
	mark(instr.Condition)
	mark(instr.Src)
	for _, a := range instr.Args {
		mark(a)
	}
}

func markTermOperands(t *ir.Terminator, mark func(ir.VarId)) {
	if t.Kind == ir.TReturn && t.HasValue {
		mark(t.Value)
	}
	if t.Kind == ir.TBranchIf {
		mark(t.Condition)
	}
	if t.Kind == ir.TBranchTable {
		mark(t.Index)
	}
}
