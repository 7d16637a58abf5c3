package codegen

import (
	"fmt"
	"strings"

	"github.com/gowasm/wasm2rs/internal/ir"
)

// moduleNameToTraitName converts a Wasm import module name to a Rust trait
// name, e.g. "wasi_snapshot_preview1" -> "WasiSnapshotPreview1Imports".
// Grounded on original_source/crates/herkos/src/codegen/traits.rs, which
// uses the heck crate's to_upper_camel_case for this; no Go library in the
// example pack offers an equivalent case-conversion helper, so this is a
// deliberate, narrowly-scoped standard-library fallback (see DESIGN.md).
func moduleNameToTraitName(moduleName string) string {
	return upperCamelCase(moduleName) + "Imports"
}

func upperCamelCase(s string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == '.' || r == ' ':
			upperNext = true
		case upperNext:
			b.WriteRune(toUpper(r))
			upperNext = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

// allImportModuleNames collects the distinct module names across both
// function and global imports, first-seen order.
func allImportModuleNames(info *ir.ModuleInfo) []string {
	var modules []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			modules = append(modules, name)
		}
	}
	for _, imp := range info.FuncImports {
		add(imp.ModuleName)
	}
	for _, g := range info.ImportedGlobals {
		add(g.ModuleName)
	}
	return modules
}

// generateHostTraits emits one Rust trait per imported module, grouping
// that module's function and global imports into trait methods.
func generateHostTraits(info *ir.ModuleInfo) string {
	if len(info.FuncImports) == 0 && len(info.ImportedGlobals) == 0 {
		return ""
	}

	funcsByModule := map[string][]ir.FuncImport{}
	for _, imp := range info.FuncImports {
		funcsByModule[imp.ModuleName] = append(funcsByModule[imp.ModuleName], imp)
	}
	globalsByModule := map[string][]ir.ImportedGlobalDef{}
	for _, g := range info.ImportedGlobals {
		globalsByModule[g.ModuleName] = append(globalsByModule[g.ModuleName], g)
	}

	var b strings.Builder
	for _, moduleName := range allImportModuleNames(info) {
		traitName := moduleNameToTraitName(moduleName)
		fmt.Fprintf(&b, "pub trait %s {\n", traitName)

		for _, imp := range funcsByModule[moduleName] {
			params := []string{"&mut self"}
			for i, ty := range imp.Params {
				params = append(params, fmt.Sprintf("arg%d: %s", i, wasmTypeToRust(ty)))
			}
			fmt.Fprintf(&b, "    fn %s(%s) -> %s;\n", imp.FuncName, strings.Join(params, ", "), formatReturnType(imp.ReturnType))
		}

		for _, g := range globalsByModule[moduleName] {
			rustTy := wasmTypeToRust(g.Type)
			fmt.Fprintf(&b, "    fn get_%s(&self) -> %s;\n", g.Name, rustTy)
			if g.Mutable {
				fmt.Fprintf(&b, "    fn set_%s(&mut self, val: %s);\n", g.Name, rustTy)
			}
		}

		b.WriteString("}\n\n")
	}
	return b.String()
}

// buildTraitBounds joins every imported module's trait name with `+`, for
// functions and exports that need host access.
func buildTraitBounds(info *ir.ModuleInfo) (string, bool) {
	if len(info.FuncImports) == 0 && len(info.ImportedGlobals) == 0 {
		return "", false
	}
	names := allImportModuleNames(info)
	traitNames := make([]string, len(names))
	for i, n := range names {
		traitNames[i] = moduleNameToTraitName(n)
	}
	return strings.Join(traitNames, " + "), true
}
