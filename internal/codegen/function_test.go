package codegen

import (
	"testing"

	"github.com/gowasm/wasm2rs/internal/ir"
	"github.com/stretchr/testify/require"
)

func addFunction() *ir.Function {
	i32 := ir.I32
	return &ir.Function{
		Params: []ir.LocalVar{{Var: 0, Type: ir.I32}, {Var: 1, Type: ir.I32}},
		Blocks: []ir.Block{
			{
				Id: 0,
				Instrs: []ir.Instr{
					{Kind: ir.KBinOp, Dest: 2, Op: ir.AddI32, Lhs: 0, Rhs: 1},
				},
				Terminator: ir.Terminator{Kind: ir.TReturn, HasValue: true, Value: 2},
			},
		},
		EntryBlock: 0,
		ReturnType: &i32,
	}
}

func TestGenerateFunctionStandaloneIsPublic(t *testing.T) {
	fn := addFunction()
	info := &ir.ModuleInfo{IrFunctions: []ir.Function{*fn}}

	src, err := generateFunctionWithInfo(RustBackend{}, fn, "func_0", info, true)
	require.NoError(t, err)
	require.Contains(t, src, "pub fn func_0(mut v0: i32, mut v1: i32) -> WasmResult<i32> {")
	require.Contains(t, src, "let mut v2: i32 = 0i32;", "var crossing block boundaries must be predeclared above the dispatch loop")
	require.Contains(t, src, "v2 = v0.wrapping_add(v1);", "definition site must be a plain assignment, not `let`, since each match arm is a fresh Rust scope")
	require.Contains(t, src, "let mut current_block: usize = 0;")
}

func TestGenerateFunctionWrapperIsPrivate(t *testing.T) {
	fn := addFunction()
	info := &ir.ModuleInfo{IrFunctions: []ir.Function{*fn}}

	src, err := generateFunctionWithInfo(RustBackend{}, fn, "func_0", info, false)
	require.NoError(t, err)
	require.Contains(t, src, "fn func_0(mut v0: i32, mut v1: i32) -> WasmResult<i32> {")
	require.NotContains(t, src, "pub fn func_0")
}

func TestGenerateFunctionThreadsHostAndMemory(t *testing.T) {
	i32 := ir.I32
	fn := &ir.Function{
		Params: []ir.LocalVar{{Var: 0, Type: ir.I32}},
		Blocks: []ir.Block{
			{
				Id: 0,
				Instrs: []ir.Instr{
					{Kind: ir.KCallImport, Dest: 1, ModuleName: "env", FuncName: "get", Args: nil},
				},
				Terminator: ir.Terminator{Kind: ir.TReturn, HasValue: true, Value: 1},
			},
		},
		EntryBlock: 0,
		ReturnType: &i32,
		NeedsHost:  true,
	}
	info := &ir.ModuleInfo{
		HasMemory: true,
		MaxPages:  256,
		FuncImports: []ir.FuncImport{
			{ModuleName: "env", FuncName: "get", ReturnType: &i32},
		},
		IrFunctions: []ir.Function{*fn},
	}

	src, err := generateFunctionWithInfo(RustBackend{}, fn, "func_0", info, false)
	require.NoError(t, err)
	require.Contains(t, src, "memory: &mut Memory")
	require.Contains(t, src, "host: &mut impl EnvImports")
	require.Contains(t, src, "v1 = host.get()?;")
}
