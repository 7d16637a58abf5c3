// Package wasmbin parses a WebAssembly binary module into the ParsedModule
// shape that internal/irbuilder consumes. It is the "external collaborator"
// spec.md §6 describes as out of scope for the core pipeline, kept minimal
// and contained to its own package so the CLI has something to read .wasm
// bytes with.
package wasmbin

import "github.com/gowasm/wasm2rs/internal/ir"

// FuncType is a type-section entry: a (params, results) signature.
//
// The core pipeline only supports single-result functions (spec.md §1 Non-
// goals excludes multi-value); Results has length 0 or 1.
type FuncType struct {
	Params  []ir.WasmType
	Results []ir.WasmType
}

// ImportKind tags what an Import binds to.
type ImportKind byte

const (
	ImportFunc ImportKind = iota
	ImportTable
	ImportMemory
	ImportGlobal
)

// Import is one entry of the import section.
type Import struct {
	ModuleName string
	Name       string
	Kind       ImportKind

	// ImportFunc
	TypeIdx uint32

	// ImportMemory
	MemoryInitialPages uint32
	MemoryMaxPages     *uint32

	// ImportGlobal
	GlobalType    ir.WasmType
	GlobalMutable bool

	// ImportTable
	TableInitial uint32
	TableMax     *uint32
}

// LocalFunc is a function-section + code-section entry: its declared type,
// local variable types (beyond its parameters), and raw operator bytes.
type LocalFunc struct {
	TypeIdx uint32
	Locals  []ir.WasmType
	Body    []byte
}

// Memory is the module's own (non-imported) linear memory, if declared.
type Memory struct {
	InitialPages uint32
	MaximumPages *uint32
}

// Table is the module's own (non-imported) table, if declared.
type Table struct {
	InitialSize uint32
	MaxSize     *uint32
}

// Global is a module-owned global definition with its constant initializer.
type Global struct {
	Type      ir.WasmType
	Mutable   bool
	InitValue ir.Value
}

// DataSegment is an active data segment: bytes to be copied into linear
// memory at a constant offset during module construction.
type DataSegment struct {
	Offset uint32
	Data   []byte
}

// ElementSegment is an active element segment: function indices to be
// copied into the table at a constant offset during module construction.
type ElementSegment struct {
	Offset      uint32
	FuncIndices []uint32
}

// ExportKind tags what an Export names.
type ExportKind byte

const (
	ExportFunc ExportKind = iota
	ExportTable
	ExportMemory
	ExportGlobal
)

// Export is one entry of the export section. Index is in the combined
// (imports-then-locals) index space for its Kind.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// ParsedModule is the complete structural contents of a decoded .wasm
// binary: exactly the shape spec.md §6 names as the IR builder's input
// contract.
type ParsedModule struct {
	Types           []FuncType
	Imports         []Import
	Functions       []LocalFunc
	Memory          *Memory
	Table           *Table
	Globals         []Global
	DataSegments    []DataSegment
	ElementSegments []ElementSegment
	Exports         []Export
}

// NumImportedFuncs returns the count of ImportFunc entries, which occupy
// function indices 0..N-1 ahead of local functions.
func (p *ParsedModule) NumImportedFuncs() int {
	n := 0
	for _, imp := range p.Imports {
		if imp.Kind == ImportFunc {
			n++
		}
	}
	return n
}

// NumImportedGlobals returns the count of ImportGlobal entries, which
// occupy global indices 0..N-1 ahead of local globals.
func (p *ParsedModule) NumImportedGlobals() int {
	n := 0
	for _, imp := range p.Imports {
		if imp.Kind == ImportGlobal {
			n++
		}
	}
	return n
}
