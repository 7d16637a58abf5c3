package optimizer

import "github.com/gowasm/wasm2rs/internal/ir"

type cseKey struct {
	kind    ir.InstrKind
	op      ir.BinOp
	uop     ir.UnOp
	a, b, c ir.VarId
}

// eliminateLocalCSE implements spec.md §4.4's sixth pass: within a single
// block, two pure instructions computing the same operation over the same
// already-resolved operands need only be computed once. Scoped to a single
// block (not whole-function) since that is all "local" CSE promises, and
// loads/calls/anything with a side effect or trap risk (including trapping
// arithmetic such as division) are never candidates — a second Load at the same address
// could observe memory a Store in between changed.
func eliminateLocalCSE(fn *ir.Function) {
	replacement := map[ir.VarId]ir.VarId{}

	for i := range fn.Blocks {
		blk := &fn.Blocks[i]
		seen := map[cseKey]ir.VarId{}
		kept := blk.Instrs[:0]
		for _, instr := range blk.Instrs {
			rewriteInstrOperands(&instr, replacement)

			if key, ok := cseKeyOf(instr); ok {
				if prior, dup := seen[key]; dup {
					replacement[instr.Dest] = prior
					continue // drop the duplicate instruction entirely
				}
				seen[key] = instr.Dest
			}
			kept = append(kept, instr)
		}
		blk.Instrs = kept
		rewriteTermOperands(&blk.Terminator, replacement)
	}
}

func cseKeyOf(instr ir.Instr) (cseKey, bool) {
	if isTrapping(instr) {
		return cseKey{}, false
	}
	switch instr.Kind {
	case ir.KBinOp:
		return cseKey{kind: ir.KBinOp, op: instr.Op, a: instr.Lhs, b: instr.Rhs}, true
	case ir.KUnOp:
		return cseKey{kind: ir.KUnOp, uop: instr.Uop, a: instr.Arg}, true
	}
	return cseKey{}, false
}
