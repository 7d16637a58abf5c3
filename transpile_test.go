package wasm2rs

import (
	"testing"

	"github.com/gowasm/wasm2rs/internal/leb128"
	"github.com/stretchr/testify/require"
)

// section builds one section of a .wasm binary: id byte, LEB128-encoded
// byte length, then the raw body.
func section(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, leb128.EncodeUint32(uint32(len(body)))...)
	out = append(out, body...)
	return out
}

func u32(n uint32) []byte { return leb128.EncodeUint32(n) }

// addModuleBytes builds a minimal standalone .wasm module exporting one
// function `add(i32, i32) -> i32` computed as `local.get 0; local.get 1;
// i32.add; end`.
func addModuleBytes(t *testing.T) []byte {
	t.Helper()

	header := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// Type section: one type, (i32, i32) -> i32.
	typeBody := append(u32(1), 0x60)
	typeBody = append(typeBody, u32(2)...)
	typeBody = append(typeBody, 0x7f, 0x7f)
	typeBody = append(typeBody, u32(1)...)
	typeBody = append(typeBody, 0x7f)

	// Function section: one function, type index 0.
	funcBody := append(u32(1), u32(0)...)

	// Export section: "add" -> func index 0.
	nameBytes := []byte("add")
	exportBody := u32(1)
	exportBody = append(exportBody, u32(uint32(len(nameBytes)))...)
	exportBody = append(exportBody, nameBytes...)
	exportBody = append(exportBody, 0x00) // export kind: func
	exportBody = append(exportBody, u32(0)...)

	// Code section: one function body, no extra locals.
	code := []byte{0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b} // local.get 0; local.get 1; i32.add; end
	fnBody := u32(0)                                   // zero local-declaration groups
	fnBody = append(fnBody, code...)
	codeBody := u32(1)
	codeBody = append(codeBody, u32(uint32(len(fnBody)))...)
	codeBody = append(codeBody, fnBody...)

	var out []byte
	out = append(out, header...)
	out = append(out, section(1, typeBody)...)
	out = append(out, section(3, funcBody)...)
	out = append(out, section(7, exportBody)...)
	out = append(out, section(10, codeBody)...)
	return out
}

func TestTranspileAddFunction(t *testing.T) {
	src, err := Transpile(addModuleBytes(t), Options{})
	require.NoError(t, err)
	require.Contains(t, src, "pub fn add(")
	require.Contains(t, src, "wrapping_add")
	require.Contains(t, src, "WasmResult<i32>")
}

func TestTranspileRejectsGarbage(t *testing.T) {
	_, err := Transpile([]byte("not a wasm module"), Options{})
	require.Error(t, err)

	var te *TranslationError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "parse", te.Stage)
}

func TestTranspileRejectsBadMode(t *testing.T) {
	_, err := Transpile(addModuleBytes(t), Options{Mode: "unsafe"})
	require.Error(t, err)
}
