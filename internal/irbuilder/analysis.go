// Package irbuilder implements spec.md §4.1-§4.3: module analysis, SSA IR
// construction by abstract interpretation of the Wasm operand stack, and
// final ModuleInfo assembly.
package irbuilder

import (
	"github.com/gowasm/wasm2rs/internal/ir"
	"github.com/gowasm/wasm2rs/internal/wasmbin"
	"github.com/pkg/errors"
)

// Options configures analysis decisions that are not fully determined by
// the Wasm module itself — currently just the memory ceiling used when a
// module declares no maximum (spec.md §9's Open Question).
type Options struct {
	// MaxPages is the page ceiling used for a module whose memory has no
	// declared maximum. Defaults to 256 (16 MiB) in package wasm2rs.
	MaxPages int
}

// MemoryInfo is the module's linear-memory metadata, collapsing "own
// memory" and "imported memory" into one shape per spec.md §4.1.
type MemoryInfo struct {
	HasMemory       bool
	HasMemoryImport bool
	InitialPages    int
	MaxPages        int
}

// ExtractMemoryInfo implements spec.md §4.1's memory-info extraction.
func ExtractMemoryInfo(parsed *wasmbin.ParsedModule, opts Options) MemoryInfo {
	var memImport *wasmbin.Import
	for i := range parsed.Imports {
		if parsed.Imports[i].Kind == wasmbin.ImportMemory {
			memImport = &parsed.Imports[i]
			break
		}
	}

	info := MemoryInfo{
		HasMemory:       parsed.Memory != nil,
		HasMemoryImport: memImport != nil,
	}

	switch {
	case parsed.Memory != nil:
		info.InitialPages = int(parsed.Memory.InitialPages)
		if parsed.Memory.MaximumPages != nil {
			info.MaxPages = int(*parsed.Memory.MaximumPages)
		} else {
			info.MaxPages = opts.MaxPages
		}
	case memImport != nil:
		info.InitialPages = int(memImport.MemoryInitialPages)
		if memImport.MemoryMaxPages != nil {
			info.MaxPages = int(*memImport.MemoryMaxPages)
		} else {
			info.MaxPages = opts.MaxPages
		}
	default:
		info.MaxPages = opts.MaxPages
	}
	return info
}

// TableInfo is the module's table metadata, max defaulting to initial when
// the table declares no maximum.
type TableInfo struct {
	Initial int
	Max     int
}

// ExtractTableInfo implements spec.md §4.1's table-info extraction.
func ExtractTableInfo(parsed *wasmbin.ParsedModule) TableInfo {
	if parsed.Table == nil {
		return TableInfo{}
	}
	max := parsed.Table.InitialSize
	if parsed.Table.MaxSize != nil {
		max = *parsed.Table.MaxSize
	}
	return TableInfo{Initial: int(parsed.Table.InitialSize), Max: int(max)}
}

// sig is the minimal (param_count, return_type) shape the IR builder needs
// per function/type — it does not need full parameter types to translate a
// call, only how many operands to pop.
type sig struct {
	ParamCount int
	ReturnType *ir.WasmType
}

func sigOf(ft wasmbin.FuncType) sig {
	s := sig{ParamCount: len(ft.Params)}
	if len(ft.Results) == 1 {
		t := ft.Results[0]
		s.ReturnType = &t
	}
	return s
}

// BuildTypeMappings implements spec.md §4.1/§3's canonical type index:
// canonical_type[i] is the smallest j<=i with an identical (params,
// results) signature to type i, and the per-type (param_count,
// return_type) signature table used both for call_indirect dispatch and
// for resolving callee arity during IR construction.
func BuildTypeMappings(parsed *wasmbin.ParsedModule) ([]ir.TypeIdx, []sig) {
	canon := make([]ir.TypeIdx, len(parsed.Types))
	for i, ty := range parsed.Types {
		canon[i] = ir.TypeIdx(i)
		for j := 0; j < i; j++ {
			if sameSignature(parsed.Types[j], ty) {
				canon[i] = canon[j]
				break
			}
		}
	}

	sigs := make([]sig, len(parsed.Types))
	for i, ty := range parsed.Types {
		sigs[i] = sigOf(ty)
	}
	return canon, sigs
}

func sameSignature(a, b wasmbin.FuncType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}

// BuildImportedGlobals implements spec.md §4.1's imported-global
// extraction, preserving declaration order.
func BuildImportedGlobals(parsed *wasmbin.ParsedModule) []ir.ImportedGlobalDef {
	var out []ir.ImportedGlobalDef
	for _, imp := range parsed.Imports {
		if imp.Kind != wasmbin.ImportGlobal {
			continue
		}
		out = append(out, ir.ImportedGlobalDef{
			ModuleName: imp.ModuleName,
			Name:       imp.Name,
			Type:       imp.GlobalType,
			Mutable:    imp.GlobalMutable,
		})
	}
	return out
}

// BuildFunctionSignatures implements spec.md §4.1's function signature
// vector: one entry per imported function followed by one per local
// function, in declaration order — the same index space function calls are
// resolved against.
func BuildFunctionSignatures(parsed *wasmbin.ParsedModule) ([]sig, error) {
	var sigs []sig
	for _, imp := range parsed.Imports {
		if imp.Kind != wasmbin.ImportFunc {
			continue
		}
		if int(imp.TypeIdx) >= len(parsed.Types) {
			return nil, errors.Errorf("import %s.%s references out-of-range type %d", imp.ModuleName, imp.Name, imp.TypeIdx)
		}
		sigs = append(sigs, sigOf(parsed.Types[imp.TypeIdx]))
	}
	for i, fn := range parsed.Functions {
		if int(fn.TypeIdx) >= len(parsed.Types) {
			return nil, errors.Errorf("function %d references out-of-range type %d", i, fn.TypeIdx)
		}
		sigs = append(sigs, sigOf(parsed.Types[fn.TypeIdx]))
	}
	return sigs, nil
}
