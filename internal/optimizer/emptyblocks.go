package optimizer

import "github.com/gowasm/wasm2rs/internal/ir"

// eliminateEmptyBlocks implements the first pass of spec.md §4.4: a block
// with no instructions whose only job is an unconditional jump is redundant
// — every branch that targets it can target its destination directly
// instead. The entry block is never eliminated, since it is the function's
// fixed starting point regardless of whether anything jumps to it.
func eliminateEmptyBlocks(fn *ir.Function) {
	redirect := map[ir.BlockId]ir.BlockId{}
	for _, blk := range fn.Blocks {
		if blk.Id == fn.EntryBlock {
			continue
		}
		if len(blk.Instrs) == 0 && blk.Terminator.Kind == ir.TJump {
			redirect[blk.Id] = blk.Terminator.Target
		}
	}
	if len(redirect) == 0 {
		return
	}

	resolve := func(id ir.BlockId) ir.BlockId {
		seen := map[ir.BlockId]bool{}
		for {
			next, ok := redirect[id]
			if !ok || seen[id] {
				return id
			}
			seen[id] = true
			id = next
		}
	}

	for i := range fn.Blocks {
		walkTermTargets(&fn.Blocks[i].Terminator, func(t *ir.BlockId) {
			*t = resolve(*t)
		})
	}
}
