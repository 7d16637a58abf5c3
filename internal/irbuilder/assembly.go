package irbuilder

import (
	"github.com/gowasm/wasm2rs/internal/ir"
	"github.com/gowasm/wasm2rs/internal/wasmbin"
	"github.com/pkg/errors"
)

// AssembleModuleInfo implements spec.md §4.3: combines module-level
// analysis with per-function IR construction into the single ir.ModuleInfo
// the optimizer and code generator consume.
func AssembleModuleInfo(parsed *wasmbin.ParsedModule, opts Options) (*ir.ModuleInfo, error) {
	memInfo := ExtractMemoryInfo(parsed, opts)
	tableInfo := ExtractTableInfo(parsed)
	canon, typeSigs := BuildTypeMappings(parsed)

	funcSigs, err := BuildFunctionSignatures(parsed)
	if err != nil {
		return nil, errors.Wrap(err, "building function signature table")
	}

	numImportedFuncs := parsed.NumImportedFuncs()
	numImportedGlobals := parsed.NumImportedGlobals()

	var funcImports []ir.FuncImport
	var funcImportRefs []funcImportRef
	for _, imp := range parsed.Imports {
		if imp.Kind != wasmbin.ImportFunc {
			continue
		}
		ft := parsed.Types[imp.TypeIdx]
		fi := ir.FuncImport{ModuleName: imp.ModuleName, FuncName: imp.Name, Params: append([]ir.WasmType{}, ft.Params...), TypeIdx: canon[imp.TypeIdx]}
		if len(ft.Results) == 1 {
			rt := ft.Results[0]
			fi.ReturnType = &rt
		}
		funcImports = append(funcImports, fi)
		funcImportRefs = append(funcImportRefs, funcImportRef{moduleName: imp.ModuleName, funcName: imp.Name})
	}

	modCtx := moduleContext{
		funcSigs:           funcSigs,
		typeSigs:           typeSigs,
		numImportedFuncs:   numImportedFuncs,
		funcImports:        funcImportRefs,
		numImportedGlobals: numImportedGlobals,
	}

	var elemSegments []ir.ElementSegmentDef
	tableHasImportedFuncRefs := false
	for _, e := range parsed.ElementSegments {
		indices := make([]ir.GlobalFuncIdx, len(e.FuncIndices))
		for i, idx := range e.FuncIndices {
			indices[i] = ir.GlobalFuncIdx(idx)
			if int(idx) < numImportedFuncs {
				tableHasImportedFuncRefs = true
			}
		}
		elemSegments = append(elemSegments, ir.ElementSegmentDef{Offset: e.Offset, FuncIndices: indices})
	}

	b := NewBuilder()
	irFunctions := make([]ir.Function, len(parsed.Functions))
	funcSignatures := make([]ir.FuncSignature, len(parsed.Functions))
	for i, fn := range parsed.Functions {
		ft := parsed.Types[fn.TypeIdx]
		ops, err := wasmbin.DecodeOperators(fn.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding operators for function %d", i)
		}

		var returnType *ir.WasmType
		if len(ft.Results) == 1 {
			rt := ft.Results[0]
			returnType = &rt
		}

		fnIR, err := b.TranslateFunction(ft.Params, fn.Locals, returnType, ops, modCtx)
		if err != nil {
			return nil, errors.Wrapf(err, "translating function %d", i)
		}
		fnIR.TypeIdx = canon[fn.TypeIdx]
		fnIR.NeedsHost = functionNeedsHost(fnIR, numImportedGlobals, tableHasImportedFuncRefs)
		irFunctions[i] = fnIR

		funcSignatures[i] = ir.FuncSignature{
			Params:     append([]ir.WasmType{}, ft.Params...),
			ReturnType: returnType,
			TypeIdx:    canon[fn.TypeIdx],
			NeedsHost:  fnIR.NeedsHost,
		}
	}

	tableLocalFuncIndices := map[int]bool{}
	for _, e := range elemSegments {
		for _, idx := range e.FuncIndices {
			if int(idx) >= numImportedFuncs {
				tableLocalFuncIndices[int(idx)-numImportedFuncs] = true
			}
		}
	}
	propagateNeedsHost(irFunctions, funcSignatures, tableLocalFuncIndices)

	var globals []ir.GlobalDef
	for _, g := range parsed.Globals {
		globals = append(globals, ir.GlobalDef{Mutable: g.Mutable, Init: g.InitValue})
	}

	var dataSegments []ir.DataSegmentDef
	for _, d := range parsed.DataSegments {
		dataSegments = append(dataSegments, ir.DataSegmentDef{Offset: d.Offset, Data: d.Data})
	}

	var funcExports []ir.FuncExport
	for _, exp := range parsed.Exports {
		if exp.Kind != wasmbin.ExportFunc {
			continue
		}
		if int(exp.Index) < numImportedFuncs {
			return nil, errors.Errorf("export %q: re-exporting an imported function directly is not supported", exp.Name)
		}
		funcExports = append(funcExports, ir.FuncExport{
			Name:      exp.Name,
			FuncIndex: ir.LocalFuncIdx(int(exp.Index) - numImportedFuncs),
		})
	}

	return &ir.ModuleInfo{
		HasMemory:       memInfo.HasMemory,
		HasMemoryImport: memInfo.HasMemoryImport,
		MaxPages:        memInfo.MaxPages,
		InitialPages:    memInfo.InitialPages,

		TableInitial: tableInfo.Initial,
		TableMax:     tableInfo.Max,

		ElementSegments: elemSegments,
		Globals:         globals,
		DataSegments:    dataSegments,
		FuncExports:     funcExports,
		FuncSignatures:  funcSignatures,
		CanonicalType:   canon,
		NumImportedFuncs: numImportedFuncs,
		FuncImports:      funcImports,
		ImportedGlobals:  BuildImportedGlobals(parsed),
		IrFunctions:      irFunctions,
	}, nil
}

// propagateNeedsHost closes functionNeedsHost's direct-use result over the
// local call graph to a fixpoint: a function that only calls another
// function needing host access needs it too, since it must thread the host
// reference through to pass along.
func propagateNeedsHost(fns []ir.Function, sigs []ir.FuncSignature, tableLocalFuncIndices map[int]bool) {
	for changed := true; changed; {
		changed = false
		for i := range fns {
			if fns[i].NeedsHost {
				continue
			}
			if callsHostNeedingFunction(fns[i], sigs, tableLocalFuncIndices) {
				fns[i].NeedsHost = true
				sigs[i].NeedsHost = true
				changed = true
			}
		}
	}
}

// callsHostNeedingFunction also covers call_indirect: any indirect call
// site might land on a table entry whose local function (by this point in
// the fixpoint) needs host access, so the call site's own function does
// too.
func callsHostNeedingFunction(fn ir.Function, sigs []ir.FuncSignature, tableLocalFuncIndices map[int]bool) bool {
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			if instr.Kind == ir.KCall && int(instr.FuncIdx) < len(sigs) && sigs[instr.FuncIdx].NeedsHost {
				return true
			}
			if instr.Kind == ir.KCallIndirect {
				for localIdx := range tableLocalFuncIndices {
					if localIdx < len(sigs) && sigs[localIdx].NeedsHost {
						return true
					}
				}
			}
		}
	}
	return false
}

// functionNeedsHost reports whether fn directly needs a reference to the
// host-trait-implementing context: it calls an imported function, reads or
// writes an imported global, or performs an indirect call while the table
// holds any entry pointing at an imported function (the callee is only
// known at runtime, so any such call site might resolve to one).
// propagateNeedsHost extends this across the local call graph afterward.
func functionNeedsHost(fn ir.Function, numImportedGlobals int, tableHasImportedFuncRefs bool) bool {
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			switch instr.Kind {
			case ir.KCallImport:
				return true
			case ir.KGlobalGet, ir.KGlobalSet:
				if int(instr.GlobalIndex) < numImportedGlobals {
					return true
				}
			case ir.KCallIndirect:
				if tableHasImportedFuncRefs {
					return true
				}
			}
		}
	}
	return false
}
