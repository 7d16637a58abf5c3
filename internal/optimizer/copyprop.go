package optimizer

import "github.com/gowasm/wasm2rs/internal/ir"

// propagateCopies implements spec.md §4.4's fifth pass: a pure
// temporary-to-temporary Assign (dest := src, both SSA values rather than
// mutable local-variable slots) is redundant once every later use of dest
// is rewritten to use src directly. Assigns that write a local slot are
// left untouched, since a local can be written more than once and
// collapsing its uses to a single earlier definition would silently
// resurrect a value a later local.set/tee was meant to replace — exactly
// the aliasing local.get's snapshot-on-read copy exists to prevent.
func propagateCopies(fn *ir.Function) {
	replacement := map[ir.VarId]ir.VarId{}
	defCount := map[ir.VarId]int{}
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			if instr.HasDest() {
				defCount[instr.Dest]++
			}
		}
	}

	for i := range fn.Blocks {
		blk := &fn.Blocks[i]
		for j := range blk.Instrs {
			instr := &blk.Instrs[j]
			if instr.Kind == ir.KAssign &&
				defCount[instr.Dest] == 1 &&
				!isLocalSlot(fn, instr.Dest) &&
				!isLocalSlot(fn, instr.Src) {
				replacement[instr.Dest] = resolve(replacement, instr.Src)
			}
		}
	}
	if len(replacement) == 0 {
		return
	}

	for i := range fn.Blocks {
		blk := &fn.Blocks[i]
		for j := range blk.Instrs {
			rewriteInstrOperands(&blk.Instrs[j], replacement)
		}
		rewriteTermOperands(&blk.Terminator, replacement)
	}
}

func resolve(replacement map[ir.VarId]ir.VarId, v ir.VarId) ir.VarId {
	seen := map[ir.VarId]bool{}
	for {
		next, ok := replacement[v]
		if !ok || seen[v] {
			return v
		}
		seen[v] = true
		v = next
	}
}

func rewriteInstrOperands(instr *ir.Instr, replacement map[ir.VarId]ir.VarId) {
	rewrite := func(v ir.VarId) ir.VarId { return resolve(replacement, v) }
	instr.Lhs = rewrite(instr.Lhs)
	instr.Rhs = rewrite(instr.Rhs)
	instr.Arg = rewrite(instr.Arg)
	instr.Addr = rewrite(instr.Addr)
	instr.Stored = rewrite(instr.Stored)
	instr.TableIdx = rewrite(instr.TableIdx)
	instr.GlobalValue = rewrite(instr.GlobalValue)
	instr.Delta = rewrite(instr.Delta)
	instr.Val1 = rewrite(instr.Val1)
	instr.Val2 = rewrite(instr.Val2)
	instr.Condition = rewrite(instr.Condition)
	if instr.Kind != ir.KAssign {
		// Only an Assign reads Src; other kinds leave it at its zero
		// value, so it is not rewritten for them.
	} else {
		instr.Src = rewrite(instr.Src)
	}
	for k := range instr.Args {
		instr.Args[k] = rewrite(instr.Args[k])
	}
}

func rewriteTermOperands(t *ir.Terminator, replacement map[ir.VarId]ir.VarId) {
	if t.Kind == ir.TReturn && t.HasValue {
		t.Value = resolve(replacement, t.Value)
	}
	if t.Kind == ir.TBranchIf {
		t.Condition = resolve(replacement, t.Condition)
	}
	if t.Kind == ir.TBranchTable {
		t.Index = resolve(replacement, t.Index)
	}
}
