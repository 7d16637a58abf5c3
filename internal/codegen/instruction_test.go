package codegen

import (
	"testing"

	"github.com/gowasm/wasm2rs/internal/ir"
	"github.com/stretchr/testify/require"
)

func TestInstrDefinesVarVoidCallHasNoDest(t *testing.T) {
	i32 := ir.I32
	info := &ir.ModuleInfo{
		FuncSignatures: []ir.FuncSignature{
			{ReturnType: nil},    // void local function, index 0
			{ReturnType: &i32}, // non-void local function, index 1
		},
	}

	voidCall := ir.Instr{Kind: ir.KCall, FuncIdx: 0, Dest: 0}
	_, ok := instrDefinesVar(voidCall, info)
	require.False(t, ok, "a call to a void function must not be treated as defining var 0")

	valueCall := ir.Instr{Kind: ir.KCall, FuncIdx: 1, Dest: 5}
	dest, ok := instrDefinesVar(valueCall, info)
	require.True(t, ok)
	require.Equal(t, ir.VarId(5), dest)
}

func TestInstrDefinesVarVoidCallImportHasNoDest(t *testing.T) {
	info := &ir.ModuleInfo{
		FuncImports: []ir.FuncImport{
			{ModuleName: "env", FuncName: "log", ReturnType: nil},
		},
	}
	instr := ir.Instr{Kind: ir.KCallImport, ModuleName: "env", FuncName: "log", Dest: 0}
	_, ok := instrDefinesVar(instr, info)
	require.False(t, ok)
}

func TestGenerateCallIndirectDispatchesImportsAndLocals(t *testing.T) {
	i32 := ir.I32
	info := &ir.ModuleInfo{
		NumImportedFuncs: 1,
		CanonicalType:     []ir.TypeIdx{0},
		FuncImports: []ir.FuncImport{
			{ModuleName: "env", FuncName: "hostfn", ReturnType: &i32, TypeIdx: 0},
		},
		FuncSignatures: []ir.FuncSignature{
			{ReturnType: &i32, TypeIdx: 0, NeedsHost: false},
		},
	}

	instr := ir.Instr{
		Kind:     ir.KCallIndirect,
		Dest:     3,
		TableIdx: 1,
		TypeIdx:  0,
		Args:     nil,
	}

	src := generateCallIndirect(instr, info)
	require.Contains(t, src, "let __entry = table.get(v1 as u32)?;")
	require.Contains(t, src, "if __entry.type_index != 0 { return Err(WasmTrap::IndirectCallTypeMismatch); }")
	require.Contains(t, src, "0 => host.hostfn()?,", "table entry 0 (an imported function) must dispatch to the host trait method")
	require.Contains(t, src, "1 => func_0()?,", "table entry 1 (the first local function, combined index NumImportedFuncs+0) must dispatch to func_0")
	require.Contains(t, src, "_ => return Err(WasmTrap::UndefinedElement),")
}

func TestFuncRefTypeIdxResolvesImportsAndLocals(t *testing.T) {
	info := &ir.ModuleInfo{
		NumImportedFuncs: 1,
		FuncImports: []ir.FuncImport{
			{ModuleName: "env", FuncName: "hostfn", TypeIdx: 7},
		},
		FuncSignatures: []ir.FuncSignature{
			{TypeIdx: 9},
		},
	}

	require.Equal(t, 7, funcRefTypeIdx(info, 0), "index 0 is the imported function")
	require.Equal(t, 9, funcRefTypeIdx(info, 1), "index 1 is local function 0, at combined index NumImportedFuncs+0")
}
