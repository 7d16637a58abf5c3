package codegen

import (
	"fmt"
	"strings"

	"github.com/gowasm/wasm2rs/internal/ir"
	"github.com/pkg/errors"
)

// GenerateModuleWithInfo renders a complete Rust source file from an
// optimized ModuleInfo: the runtime preamble, host traits, globals/const
// items, every local function, and (when the module has state worth
// wrapping) a WasmModule newtype with a constructor and export methods.
// Grounded on original_source/crates/herkos/src/codegen/module.rs.
func GenerateModuleWithInfo(backend Backend, info *ir.ModuleInfo) (string, error) {
	if info.NeedsWrapper() {
		return generateWrapperModule(backend, info)
	}
	return generateStandaloneModule(backend, info)
}

func generateStandaloneModule(backend Backend, info *ir.ModuleInfo) (string, error) {
	var b strings.Builder
	b.WriteString(rustCodePreambleText())

	b.WriteString(generateHostTraits(info))
	b.WriteString(emitConstGlobals(info))

	for idx, fn := range info.IrFunctions {
		fn := fn
		code, err := generateFunctionWithInfo(backend, &fn, fmt.Sprintf("func_%d", idx), info, true)
		if err != nil {
			return "", errors.Wrapf(err, "generating function %d", idx)
		}
		b.WriteString(code)
		b.WriteString("\n")
	}

	return b.String(), nil
}

func generateWrapperModule(backend Backend, info *ir.ModuleInfo) (string, error) {
	var b strings.Builder
	b.WriteString(rustCodePreambleText())
	hasMutGlobals := info.HasMutableGlobals()

	if info.HasMemory {
		fmt.Fprintf(&b, "const MAX_PAGES: usize = %d;\n\n", info.MaxPages)
	}
	if info.HasTable() {
		fmt.Fprintf(&b, "const TABLE_MAX: usize = %d;\n", info.TableMax)
	}
	b.WriteString("\n")

	b.WriteString(generateHostTraits(info))

	if hasMutGlobals {
		b.WriteString("pub struct Globals {\n")
		for idx, g := range info.Globals {
			if !g.Mutable {
				continue
			}
			fmt.Fprintf(&b, "    pub g%d: %s,\n", idx, wasmTypeToRust(g.Init.Type))
		}
		b.WriteString("}\n\n")
	}

	b.WriteString(emitConstGlobals(info))

	globalsType := "()"
	if hasMutGlobals {
		globalsType = "Globals"
	}
	if info.HasMemory {
		fmt.Fprintf(&b, "pub struct WasmModule(pub Module<%s>);\n\n", globalsType)
	} else {
		fmt.Fprintf(&b, "pub struct WasmModule(pub LibraryModule<%s>);\n\n", globalsType)
	}

	b.WriteString(generateConstructor(info, hasMutGlobals))
	b.WriteString("\n")

	for idx, fn := range info.IrFunctions {
		fn := fn
		code, err := generateFunctionWithInfo(backend, &fn, fmt.Sprintf("func_%d", idx), info, false)
		if err != nil {
			return "", errors.Wrapf(err, "generating function %d", idx)
		}
		b.WriteString(code)
		b.WriteString("\n")
	}

	if len(info.FuncExports) > 0 {
		b.WriteString(generateExportImpl(info))
		b.WriteString("\n")
	}

	return b.String(), nil
}
