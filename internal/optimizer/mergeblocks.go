package optimizer

import "github.com/gowasm/wasm2rs/internal/ir"

// mergeBlocks implements spec.md §4.4's second pass: when block A's only
// successor is block B, and B has no other predecessor, B serves no
// purpose as a separate block — A's instruction list can simply continue
// into B's, with B's terminator taking over as A's.
func mergeBlocks(fn *ir.Function) {
	for {
		preds := countPredecessors(fn)
		merged := false

		for i := range fn.Blocks {
			a := &fn.Blocks[i]
			if a.Terminator.Kind != ir.TJump {
				continue
			}
			bID := a.Terminator.Target
			if bID == a.Id || bID == fn.EntryBlock {
				continue // self-loop, or the entry block, never mergeable away
			}
			if preds[bID] != 1 {
				continue
			}
			bIdx := blockIndex(fn, bID)
			if bIdx < 0 {
				continue
			}
			b := fn.Blocks[bIdx]

			a.Instrs = append(a.Instrs, b.Instrs...)
			a.Terminator = b.Terminator
			fn.Blocks = append(fn.Blocks[:bIdx], fn.Blocks[bIdx+1:]...)
			merged = true
			break // indices shifted; restart predecessor count
		}

		if !merged {
			return
		}
	}
}

func countPredecessors(fn *ir.Function) map[ir.BlockId]int {
	preds := map[ir.BlockId]int{}
	for i := range fn.Blocks {
		walkTermTargets(&fn.Blocks[i].Terminator, func(t *ir.BlockId) {
			preds[*t]++
		})
	}
	return preds
}
