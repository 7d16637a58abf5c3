package codegen

// buildInnerCallArgs appends the conditional globals/memory/table arguments
// every internal func_N call forwards alongside its Wasm-level arguments.
// Grounded on original_source/crates/herkos/src/codegen/utils.rs.
func buildInnerCallArgs(baseArgs []string, hasGlobals bool, globalsExpr string, hasMemory bool, memoryExpr string, hasTable bool, tableExpr string) []string {
	args := append([]string{}, baseArgs...)
	if hasGlobals {
		args = append(args, globalsExpr)
	}
	if hasMemory {
		args = append(args, memoryExpr)
	}
	if hasTable {
		args = append(args, tableExpr)
	}
	return args
}
