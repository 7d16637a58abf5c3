package optimizer

import (
	"testing"

	"github.com/gowasm/wasm2rs/internal/ir"
	"github.com/stretchr/testify/require"
)

func TestPropagateConstantsFoldsBinOp(t *testing.T) {
	fn := &ir.Function{
		Blocks: []ir.Block{
			{
				Id: 0,
				Instrs: []ir.Instr{
					{Kind: ir.KConst, Dest: 0, Value: ir.I32Value(5)},
					{Kind: ir.KConst, Dest: 1, Value: ir.I32Value(3)},
					{Kind: ir.KBinOp, Dest: 2, Op: ir.AddI32, Lhs: 0, Rhs: 1},
				},
				Terminator: ir.Terminator{Kind: ir.TReturn, HasValue: true, Value: 2},
			},
		},
	}

	propagateConstants(fn)

	folded := fn.Blocks[0].Instrs[2]
	require.Equal(t, ir.KConst, folded.Kind)
	require.Equal(t, ir.VarId(2), folded.Dest)
	require.Equal(t, ir.I32Value(8), folded.Value)
}

func TestPropagateConstantsLeavesTrappingOpsAlone(t *testing.T) {
	fn := &ir.Function{
		Blocks: []ir.Block{
			{
				Id: 0,
				Instrs: []ir.Instr{
					{Kind: ir.KConst, Dest: 0, Value: ir.I32Value(10)},
					{Kind: ir.KConst, Dest: 1, Value: ir.I32Value(0)},
					{Kind: ir.KBinOp, Dest: 2, Op: ir.DivSI32, Lhs: 0, Rhs: 1},
				},
				Terminator: ir.Terminator{Kind: ir.TReturn, HasValue: true, Value: 2},
			},
		},
	}

	propagateConstants(fn)

	require.Equal(t, ir.KBinOp, fn.Blocks[0].Instrs[2].Kind, "division by zero must stay a trapping BinOp, never folded")
}

func TestPropagateConstantsFoldsUnOp(t *testing.T) {
	fn := &ir.Function{
		Blocks: []ir.Block{
			{
				Id: 0,
				Instrs: []ir.Instr{
					{Kind: ir.KConst, Dest: 0, Value: ir.I32Value(-1)},
					{Kind: ir.KUnOp, Dest: 1, Uop: ir.PopcntI32, Arg: 0},
				},
				Terminator: ir.Terminator{Kind: ir.TReturn, HasValue: true, Value: 1},
			},
		},
	}

	propagateConstants(fn)

	folded := fn.Blocks[0].Instrs[1]
	require.Equal(t, ir.KConst, folded.Kind)
	require.Equal(t, ir.I32Value(32), folded.Value)
}
