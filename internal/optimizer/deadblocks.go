package optimizer

import "github.com/gowasm/wasm2rs/internal/ir"

// removeDeadBlocks implements spec.md §4.4's third pass: a block
// unreachable from the entry block by any chain of terminators can never
// execute, and is dropped entirely.
func removeDeadBlocks(fn *ir.Function) {
	reachable := map[ir.BlockId]bool{fn.EntryBlock: true}
	queue := []ir.BlockId{fn.EntryBlock}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		idx := blockIndex(fn, id)
		if idx < 0 {
			continue
		}
		walkTermTargets(&fn.Blocks[idx].Terminator, func(t *ir.BlockId) {
			if !reachable[*t] {
				reachable[*t] = true
				queue = append(queue, *t)
			}
		})
	}

	kept := fn.Blocks[:0]
	for _, blk := range fn.Blocks {
		if reachable[blk.Id] {
			kept = append(kept, blk)
		}
	}
	fn.Blocks = kept
}
