package codegen

import (
	"fmt"
	"strings"

	"github.com/gowasm/wasm2rs/internal/ir"
)

// generateExportImpl emits the `impl WasmModule { ... }` block with one
// public method per exported local function, named after its export.
// Unexported functions get no method; internal calls and table dispatch
// call the free func_N functions directly. Grounded on
// original_source/crates/herkos/src/codegen/export.rs, simplified to drop
// its const-generic H/MP juggling: Rust's `&mut impl TraitA + TraitB`
// already accepts a multi-bound argument directly, so no generic
// parameter list is needed on these methods at all.
func generateExportImpl(info *ir.ModuleInfo) string {
	exportNames := make(map[int]string, len(info.FuncExports))
	for _, exp := range info.FuncExports {
		exportNames[int(exp.FuncIndex)] = exp.Name
	}

	var b strings.Builder
	b.WriteString("impl WasmModule {\n")

	for funcIdx, fn := range info.IrFunctions {
		methodName, ok := exportNames[funcIdx]
		if !ok {
			continue
		}

		var params []string
		params = append(params, "&mut self")
		for _, p := range fn.Params {
			params = append(params, fmt.Sprintf("%s: %s", v(p.Var), wasmTypeToRust(p.Type)))
		}
		if info.HasMemoryImport && !info.HasMemory {
			params = append(params, "memory: &mut Memory")
		}
		if fn.NeedsHost {
			if bounds, ok := buildTraitBounds(info); ok {
				params = append(params, fmt.Sprintf("host: &mut impl %s", bounds))
			}
		}

		fmt.Fprintf(&b, "    pub fn %s(%s) -> %s {\n", methodName, strings.Join(params, ", "), formatReturnType(fn.ReturnType))

		var callArgs []string
		for _, p := range fn.Params {
			callArgs = append(callArgs, v(p.Var))
		}
		if info.HasMutableGlobals() {
			callArgs = append(callArgs, "&mut self.0.globals")
		}
		if info.HasMemory {
			callArgs = append(callArgs, "&mut self.0.memory")
		} else if info.HasMemoryImport {
			callArgs = append(callArgs, "memory")
		}
		if info.HasTable() {
			callArgs = append(callArgs, "&self.0.table")
		}
		if fn.NeedsHost {
			callArgs = append(callArgs, "host")
		}

		fmt.Fprintf(&b, "        func_%d(%s)\n", funcIdx, strings.Join(callArgs, ", "))
		b.WriteString("    }\n")
	}

	b.WriteString("}\n")
	return b.String()
}
