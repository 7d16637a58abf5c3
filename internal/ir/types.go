// Package ir defines the SSA-form intermediate representation that sits
// between a parsed WebAssembly module and generated Rust source.
//
// The IR is intentionally flat: instructions and terminators are plain
// structs with a Kind tag rather than an interface hierarchy, mirroring how
// Go's own compiler represents SSA values (cmd/compile/internal/ssa.Value).
// Identifiers (VarId, BlockId, and the index-space types below) are plain
// values; cross-references are always indices, never pointers.
package ir

// WasmType is one of the four scalar Wasm value types.
type WasmType byte

const (
	I32 WasmType = iota
	I64
	F32
	F64
)

func (t WasmType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "unknown"
	}
}

// VarId is a monotonically-allocated SSA variable identifier, unique within
// a single function.
type VarId uint32

// BlockId is a monotonically-allocated basic-block identifier, unique
// within a single function. BlockId(0) is always the function's entry
// block.
type BlockId uint32

// LocalFuncIdx indexes into the local (non-imported) function space.
type LocalFuncIdx uint32

// GlobalFuncIdx indexes into the combined (imports-then-locals) function
// index space.
type GlobalFuncIdx uint32

// TypeIdx indexes into the module's type section.
type TypeIdx uint32

// BinOp enumerates binary operators lowered from Wasm arithmetic, bitwise,
// comparison and float operators.
type BinOp byte

const (
	// Integer arithmetic (wrapping).
	AddI32 BinOp = iota
	SubI32
	MulI32
	DivSI32
	DivUI32
	RemSI32
	RemUI32
	AndI32
	OrI32
	XorI32
	ShlI32
	ShrSI32
	ShrUI32
	RotlI32
	RotrI32
	AddI64
	SubI64
	MulI64
	DivSI64
	DivUI64
	RemSI64
	RemUI64
	AndI64
	OrI64
	XorI64
	ShlI64
	ShrSI64
	ShrUI64
	RotlI64
	RotrI64

	// Integer comparisons (push i32 0/1).
	EqI32
	NeI32
	LtSI32
	LtUI32
	GtSI32
	GtUI32
	LeSI32
	LeUI32
	GeSI32
	GeUI32
	EqI64
	NeI64
	LtSI64
	LtUI64
	GtSI64
	GtUI64
	LeSI64
	LeUI64
	GeSI64
	GeUI64

	// Float arithmetic.
	AddF32
	SubF32
	MulF32
	DivF32
	MinF32
	MaxF32
	CopysignF32
	AddF64
	SubF64
	MulF64
	DivF64
	MinF64
	MaxF64
	CopysignF64

	// Float comparisons.
	EqF32
	NeF32
	LtF32
	GtF32
	LeF32
	GeF32
	EqF64
	NeF64
	LtF64
	GtF64
	LeF64
	GeF64
)

// UnOp enumerates unary operators: integer unary ops, float unary ops, and
// the numeric conversions (wrap/extend/trunc/convert/demote/promote/
// reinterpret) that all preserve their exact Wasm semantics.
type UnOp byte

const (
	ClzI32 UnOp = iota
	CtzI32
	PopcntI32
	ClzI64
	CtzI64
	PopcntI64
	EqzI32
	EqzI64

	AbsF32
	NegF32
	CeilF32
	FloorF32
	TruncF32
	NearestF32
	SqrtF32
	AbsF64
	NegF64
	CeilF64
	FloorF64
	TruncF64
	NearestF64
	SqrtF64

	// Conversions.
	WrapI64ToI32
	ExtendI32SToI64
	ExtendI32UToI64
	TruncF32SToI32
	TruncF32UToI32
	TruncF64SToI32
	TruncF64UToI32
	TruncF32SToI64
	TruncF32UToI64
	TruncF64SToI64
	TruncF64UToI64
	TruncSatF32SToI32
	TruncSatF32UToI32
	TruncSatF64SToI32
	TruncSatF64UToI32
	TruncSatF32SToI64
	TruncSatF32UToI64
	TruncSatF64SToI64
	TruncSatF64UToI64
	ConvertI32SToF32
	ConvertI32UToF32
	ConvertI64SToF32
	ConvertI64UToF32
	ConvertI32SToF64
	ConvertI32UToF64
	ConvertI64SToF64
	ConvertI64UToF64
	DemoteF64ToF32
	PromoteF32ToF64
	ReinterpretF32AsI32
	ReinterpretI32AsF32
	ReinterpretF64AsI64
	ReinterpretI64AsF64
)

// Width is the access width of a memory load/store.
type Width byte

const (
	Width8 Width = iota
	Width16
	Width32
	Width64
)

// SignExtension marks whether a sub-width load sign- or zero-extends its
// result.
type SignExtension byte

const (
	SignExtended SignExtension = iota
	ZeroExtended
)

// Value is a typed Wasm constant, as carried by Const instructions and
// global initializers.
type Value struct {
	Type WasmType
	I32  int32
	I64  int64
	F32  float32
	F64  float64
}

func I32Value(v int32) Value { return Value{Type: I32, I32: v} }
func I64Value(v int64) Value { return Value{Type: I64, I64: v} }
func F32Value(v float32) Value { return Value{Type: F32, F32: v} }
func F64Value(v float64) Value { return Value{Type: F64, F64: v} }

// InstrKind tags the variant of an IrInstr.
type InstrKind byte

const (
	KConst InstrKind = iota
	KBinOp
	KUnOp
	KLoad
	KStore
	KCall
	KCallImport
	KCallIndirect
	KGlobalGet
	KGlobalSet
	KMemorySize
	KMemoryGrow
	KSelect
	KAssign
)

// Instr is an SSA instruction. Exactly the fields relevant to Kind are
// populated; the rest are zero. This flat-struct-with-tag shape mirrors the
// way Go's own SSA representation avoids deep interface hierarchies for
// instructions that are otherwise POD.
type Instr struct {
	Kind InstrKind

	// Dest is the VarId defined by this instruction, when it defines one.
	// Store and GlobalSet leave this unset; for calls it is meaningful only
	// when the callee returns a value. Dest is only meaningful when HasDest
	// reports true for the Kind.
	Dest VarId

	// Const
	Value Value

	// BinOp / UnOp
	Op  BinOp
	Uop UnOp
	Lhs VarId
	Rhs VarId
	Arg VarId // UnOp operand

	// Load / Store
	MemType WasmType
	Addr    VarId
	Offset  uint32
	Width   Width
	Sign    SignExtension
	Stored  VarId // value stored by Store

	// Call / CallImport / CallIndirect
	FuncIdx    LocalFuncIdx
	ModuleName string
	FuncName   string
	TypeIdx    TypeIdx // raw module type idx, CallIndirect only; canonicalize via ModuleInfo.CanonicalType
	TableIdx   VarId   // CallIndirect only: table slot index
	Args       []VarId

	// GlobalGet / GlobalSet
	GlobalIndex uint32 // combined (imports-then-locals) index space
	GlobalValue VarId  // GlobalSet only

	// MemoryGrow
	Delta VarId

	// Select
	Val1      VarId
	Val2      VarId
	Condition VarId

	// Assign
	Src VarId
}

// HasDest reports whether this instruction's Kind defines a result VarId.
func (i Instr) HasDest() bool {
	switch i.Kind {
	case KStore, KGlobalSet:
		return false
	case KCall, KCallImport, KCallIndirect:
		return true // Dest is meaningful only if the callee has a result; caller checks separately
	default:
		return true
	}
}

// TermKind tags the variant of an IrTerminator.
type TermKind byte

const (
	TReturn TermKind = iota
	TJump
	TBranchIf
	TBranchTable
	TUnreachable
)

// Terminator is a basic block's single terminating instruction.
type Terminator struct {
	Kind TermKind

	// Return
	HasValue bool
	Value    VarId

	// Jump
	Target BlockId

	// BranchIf
	Condition VarId
	IfTrue    BlockId
	IfFalse   BlockId

	// BranchTable
	Index   VarId
	Targets []BlockId
	Default BlockId
}

// Block is a basic block: an ordered instruction list and exactly one
// terminator.
type Block struct {
	Id          BlockId
	Label       string
	Instrs      []Instr
	Terminator  Terminator
}

// LocalVar is a function parameter or declared local: its allocated SSA
// variable and its Wasm type.
type LocalVar struct {
	Var  VarId
	Type WasmType
}

// Function is the SSA-form IR of a single local Wasm function.
type Function struct {
	Params       []LocalVar
	Locals       []LocalVar // declared locals only, not params
	Blocks       []Block
	EntryBlock   BlockId
	ReturnType   *WasmType
	TypeIdx      TypeIdx // canonical type index, filled in during assembly
	NeedsHost    bool    // body has CallImport, imported-global access, or a call_indirect that can reach an import; assembly extends it to callers
}

// GlobalInit is a global's typed initial value (same shape as Value, kept
// distinct because a global's initializer is a compile-time constant, not
// an SSA value).
type GlobalInit = Value

// GlobalDef is a module-owned (non-imported) global.
type GlobalDef struct {
	Mutable bool
	Init    GlobalInit
}

// DataSegmentDef is an initial-memory-bytes segment, applied at module
// construction.
type DataSegmentDef struct {
	Offset uint32
	Data   []byte
}

// ElementSegmentDef is an initial-table-entries segment, applied at module
// construction.
type ElementSegmentDef struct {
	Offset      uint32
	FuncIndices []GlobalFuncIdx
}

// FuncImport is an imported function's binding.
type FuncImport struct {
	ModuleName string
	FuncName   string
	Params     []WasmType
	ReturnType *WasmType
	TypeIdx    TypeIdx // canonical; lets table dispatch match imports by signature too
}

// ImportedGlobalDef is an imported global's binding.
type ImportedGlobalDef struct {
	ModuleName string
	Name       string
	Type       WasmType
	Mutable    bool
}

// FuncExport names a local function exported under a Wasm export name.
type FuncExport struct {
	Name      string
	FuncIndex LocalFuncIdx
}

// FuncSignature is a local function's full signature, used for
// call_indirect dispatch: every local function whose canonical TypeIdx
// matches a call_indirect's operand type is a dispatch candidate.
type FuncSignature struct {
	Params     []WasmType
	ReturnType *WasmType
	TypeIdx    TypeIdx
	NeedsHost  bool
}

// ModuleInfo is the root value produced once per input Wasm module: all
// module-level metadata plus every local function's IR, ready for
// optimization and code generation.
type ModuleInfo struct {
	HasMemory       bool
	HasMemoryImport bool
	MaxPages        int
	InitialPages    int

	TableInitial int
	TableMax     int

	ElementSegments []ElementSegmentDef
	Globals         []GlobalDef
	DataSegments    []DataSegmentDef

	FuncExports []FuncExport

	// FuncSignatures is indexed by the local function index space (parallel
	// to IrFunctions); used by call_indirect dispatch generation.
	FuncSignatures []FuncSignature

	CanonicalType []TypeIdx // TypeIdx(i) -> smallest j<=i with identical (params, results)

	// NumImportedFuncs is the count of imported functions occupying the low
	// end of the combined (imports-then-locals) function index space that
	// GlobalFuncIdx and ElementSegmentDef.FuncIndices address.
	NumImportedFuncs int

	FuncImports     []FuncImport
	ImportedGlobals []ImportedGlobalDef

	IrFunctions []Function
}

// HasTable reports whether the module declares a table.
func (m *ModuleInfo) HasTable() bool { return m.TableInitial > 0 || m.TableMax > 0 }

// HasMutableGlobals reports whether any local global is mutable.
func (m *ModuleInfo) HasMutableGlobals() bool {
	for _, g := range m.Globals {
		if g.Mutable {
			return true
		}
	}
	return false
}

// NeedsWrapper reports whether code generation must emit the module-struct
// wrapper (as opposed to bare standalone functions): true whenever the
// module has memory, a table, globals, or exports to wire together.
func (m *ModuleInfo) NeedsWrapper() bool {
	return m.HasMemory || m.HasMemoryImport || m.HasTable() || len(m.Globals) > 0 || len(m.FuncExports) > 0
}
