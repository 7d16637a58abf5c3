package wasm2rs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildModuleBytes assembles a minimal standalone .wasm binary from the
// given sections in file order: one type, one function, optionally one
// memory, one export, one code section. memBody may be nil to omit the
// memory section entirely.
func buildModuleBytes(typeBody, funcBody, memBody, exportBody, codeBody []byte) []byte {
	header := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var out []byte
	out = append(out, header...)
	out = append(out, section(1, typeBody)...)
	out = append(out, section(3, funcBody)...)
	if memBody != nil {
		out = append(out, section(5, memBody)...)
	}
	out = append(out, section(7, exportBody)...)
	out = append(out, section(10, codeBody)...)
	return out
}

// funcTypeI32ToI32 builds a type section declaring one (i32) -> i32 func type.
func funcTypeI32ToI32() []byte {
	body := append(u32(1), 0x60)
	body = append(body, u32(1)...)
	body = append(body, 0x7f)
	body = append(body, u32(1)...)
	body = append(body, 0x7f)
	return body
}

func oneFuncOfType0() []byte {
	return append(u32(1), u32(0)...)
}

func exportFunc0(name string) []byte {
	nameBytes := []byte(name)
	body := u32(1)
	body = append(body, u32(uint32(len(nameBytes)))...)
	body = append(body, nameBytes...)
	body = append(body, 0x00) // export kind: func
	body = append(body, u32(0)...)
	return body
}

// codeSectionOneBody wraps a single function's local-declaration groups
// (none here) and operator bytes into a code section body.
func codeSectionOneBody(localGroups []byte, ops []byte) []byte {
	fnBody := append(localGroups, ops...)
	body := u32(1)
	body = append(body, u32(uint32(len(fnBody)))...)
	body = append(body, fnBody...)
	return body
}

// TestTranspileNegateOverflow covers spec.md §8's negate-overflow property:
// `0 - x` on i32::MIN wraps rather than panics, so codegen must lower
// i32.sub to Rust's explicit wrapping_sub rather than a bare `-`.
func TestTranspileNegateOverflow(t *testing.T) {
	ops := []byte{0x41, 0x00, 0x20, 0x00, 0x6b, 0x0b} // i32.const 0; local.get 0; i32.sub; end
	wasmBytes := buildModuleBytes(
		funcTypeI32ToI32(),
		oneFuncOfType0(),
		nil,
		exportFunc0("negate"),
		codeSectionOneBody(u32(0), ops),
	)

	src, err := Transpile(wasmBytes, Options{})
	require.NoError(t, err)
	require.Contains(t, src, "pub fn negate(")
	require.Contains(t, src, "wrapping_sub")
}

// TestTranspileFibRecursive covers the recursive-call/arithmetic property
// from spec.md §8 (fib): a self-recursive call must lower to a plain call
// of the generated func_N function, and the addition of the two recursive
// results must still wrap via wrapping_add.
func TestTranspileFibRecursive(t *testing.T) {
	ops := []byte{
		0x20, 0x00, // local.get 0
		0x41, 0x02, // i32.const 2
		0x48,       // i32.lt_s
		0x04, 0x7f, // if (result i32)
		0x20, 0x00, //   local.get 0
		0x05, // else
		0x20, 0x00, //   local.get 0
		0x41, 0x01, //   i32.const 1
		0x6b,       //   i32.sub
		0x10, 0x00, //   call 0
		0x20, 0x00, //   local.get 0
		0x41, 0x02, //   i32.const 2
		0x6b,       //   i32.sub
		0x10, 0x00, //   call 0
		0x6a, // i32.add
		0x0b, // end if
		0x0b, // end function
	}
	wasmBytes := buildModuleBytes(
		funcTypeI32ToI32(),
		oneFuncOfType0(),
		nil,
		exportFunc0("fib"),
		codeSectionOneBody(u32(0), ops),
	)

	src, err := Transpile(wasmBytes, Options{})
	require.NoError(t, err)
	require.Contains(t, src, "pub fn fib(")
	require.Contains(t, src, "func_0(")
	require.Contains(t, src, "wrapping_add")
	require.Contains(t, src, "wrapping_sub")
}

// TestTranspileCollatzLoop covers the collatz property from spec.md §8: a
// backward branch (loop) combined with a forward exit branch (br_if out of
// an enclosing block), div_u/rem_u/mul/add arithmetic and a select, all of
// which the block-dispatch current_block loop must wire correctly.
func TestTranspileCollatzLoop(t *testing.T) {
	ops := []byte{
		0x02, 0x40, // block (empty)
		0x03, 0x40, //   loop (empty)
		0x20, 0x00, //     local.get 0
		0x41, 0x01, //     i32.const 1
		0x46,       //     i32.eq
		0x0d, 0x01, //     br_if 1        (exit to block when n == 1)
		0x20, 0x00, //     local.get 0
		0x41, 0x02, //     i32.const 2
		0x6e,       //     i32.div_u        -> a = n / 2
		0x20, 0x00, //     local.get 0
		0x41, 0x03, //     i32.const 3
		0x6c,       //     i32.mul
		0x41, 0x01, //     i32.const 1
		0x6a,       //     i32.add          -> b = 3n + 1
		0x20, 0x00, //     local.get 0
		0x41, 0x02, //     i32.const 2
		0x70,       //     i32.rem_u
		0x45,       //     i32.eqz          -> cond = (n % 2 == 0)
		0x1b,       //     select           -> newN = cond ? a : b
		0x21, 0x00, //     local.set 0
		0x20, 0x01, //     local.get 1
		0x41, 0x01, //     i32.const 1
		0x6a,       //     i32.add
		0x21, 0x01, //     local.set 1
		0x0c, 0x00, //     br 0             (back to loop head)
		0x0b,       //   end loop
		0x0b,       // end block
		0x20, 0x01, // local.get 1
		0x0b, // end function
	}

	// One declared local (the step counter, local index 1) on top of the
	// single i32 parameter.
	localGroups := append(u32(1), u32(1)...)
	localGroups = append(localGroups, 0x7f)

	wasmBytes := buildModuleBytes(
		funcTypeI32ToI32(),
		oneFuncOfType0(),
		nil,
		exportFunc0("collatz"),
		codeSectionOneBody(localGroups, ops),
	)

	src, err := Transpile(wasmBytes, Options{})
	require.NoError(t, err)
	require.Contains(t, src, "pub fn collatz(")
	require.Contains(t, src, "checked_div_u32")
	require.Contains(t, src, "checked_rem_u32")
	require.Contains(t, src, "wrapping_mul")
	require.Contains(t, src, "current_block")
}

// TestTranspilePopcount covers the popcount property from spec.md §8: a
// single-operand bit-counting instruction lowers to Rust's count_ones.
func TestTranspilePopcount(t *testing.T) {
	ops := []byte{0x20, 0x00, 0x69, 0x0b} // local.get 0; i32.popcnt; end
	wasmBytes := buildModuleBytes(
		funcTypeI32ToI32(),
		oneFuncOfType0(),
		nil,
		exportFunc0("popcount"),
		codeSectionOneBody(u32(0), ops),
	)

	src, err := Transpile(wasmBytes, Options{})
	require.NoError(t, err)
	require.Contains(t, src, "pub fn popcount(")
	require.Contains(t, src, "count_ones")
}

// TestTranspileLoadStore covers the load/store property from spec.md §8:
// a store followed by a load from the same address must lower to the
// bounds-checked Memory methods this repository's preamble defines.
func TestTranspileLoadStore(t *testing.T) {
	ops := []byte{
		0x20, 0x00, // local.get 0 (addr)
		0x20, 0x00, // local.get 0 (value, stored back for simplicity)
		0x36, 0x02, 0x00, // i32.store align=2 offset=0
		0x20, 0x00, // local.get 0 (addr)
		0x28, 0x02, 0x00, // i32.load align=2 offset=0
		0x0b, // end
	}
	memBody := append(u32(1), 0x00)
	memBody = append(memBody, u32(1)...) // 1 initial page, no max

	wasmBytes := buildModuleBytes(
		funcTypeI32ToI32(),
		oneFuncOfType0(),
		memBody,
		exportFunc0("roundtrip"),
		codeSectionOneBody(u32(0), ops),
	)

	src, err := Transpile(wasmBytes, Options{})
	require.NoError(t, err)
	require.Contains(t, src, "pub fn roundtrip(")
	require.Contains(t, src, "memory.store_i32(")
	require.Contains(t, src, "memory.load_i32(")
	require.Contains(t, src, "fn load_i32(")
	require.Contains(t, src, "fn store_i32(")
}

// TestTranspileMemoryGrow covers the memory.grow property from spec.md §8:
// the -1-on-failure / prior-size-on-success semantics live in the Memory
// preamble, and codegen must call memory.grow directly (not through `?`,
// since growth failure is a returned value, not a trap).
func TestTranspileMemoryGrow(t *testing.T) {
	ops := []byte{0x20, 0x00, 0x40, 0x00, 0x0b} // local.get 0; memory.grow; end
	memBody := append(u32(1), 0x01)             // flags: has max
	memBody = append(memBody, u32(1)...)        // initial pages
	memBody = append(memBody, u32(2)...)        // max pages

	wasmBytes := buildModuleBytes(
		funcTypeI32ToI32(),
		oneFuncOfType0(),
		memBody,
		exportFunc0("grow"),
		codeSectionOneBody(u32(0), ops),
	)

	src, err := Transpile(wasmBytes, Options{})
	require.NoError(t, err)
	require.Contains(t, src, "pub fn grow(")
	require.Contains(t, src, "memory.grow(")
	require.Contains(t, src, "fn grow(&mut self, delta: u32) -> i32")
	require.Contains(t, src, "return -1")
}
