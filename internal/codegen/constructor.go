package codegen

import (
	"fmt"
	"strings"

	"github.com/gowasm/wasm2rs/internal/ir"
)

// rustCodePreamble is the fixed runtime support code every generated module
// depends on: the WasmResult/WasmTrap error model, bounds-checked Memory
// and Table types, and the small set of checked/saturating numeric helpers
// the instruction-level codegen in expr.go calls into. Grounded on
// original_source/crates/herkos's runtime (its crate root re-exports an
// equivalent set of names; this pipeline inlines them instead of depending
// on an external crate, since the generated file must stand alone).
const rustCodePreamble = `// Code generated by wasm2rs. DO NOT EDIT.
#![allow(dead_code, unused_mut, unused_variables, clippy::all)]

#[derive(Debug, Clone, Copy, PartialEq, Eq)]
pub enum WasmTrap {
    Unreachable,
    MemoryOutOfBounds,
    IntegerDivideByZero,
    IntegerOverflow,
    InvalidConversionToInteger,
    IndirectCallTypeMismatch,
    UndefinedElement,
    TableOutOfBounds,
}

pub type WasmResult<T> = Result<T, WasmTrap>;

const PAGE_SIZE: usize = 65536;

pub struct Memory {
    bytes: Vec<u8>,
    max_pages: usize,
}

impl Memory {
    #[inline]
    fn bounds(&self, addr: u32, offset: u32, len: usize) -> WasmResult<usize> {
        let start = (addr as u64)
            .checked_add(offset as u64)
            .ok_or(WasmTrap::MemoryOutOfBounds)?;
        let end = start.checked_add(len as u64).ok_or(WasmTrap::MemoryOutOfBounds)?;
        if end > self.bytes.len() as u64 {
            return Err(WasmTrap::MemoryOutOfBounds);
        }
        Ok(start as usize)
    }

    pub fn load_i32(&self, addr: u32, offset: u32) -> WasmResult<i32> {
        let i = self.bounds(addr, offset, 4)?;
        Ok(i32::from_le_bytes(self.bytes[i..i + 4].try_into().unwrap()))
    }
    pub fn load_i32_8s(&self, addr: u32, offset: u32) -> WasmResult<i32> {
        let i = self.bounds(addr, offset, 1)?;
        Ok(self.bytes[i] as i8 as i32)
    }
    pub fn load_i32_8u(&self, addr: u32, offset: u32) -> WasmResult<i32> {
        let i = self.bounds(addr, offset, 1)?;
        Ok(self.bytes[i] as i32)
    }
    pub fn load_i32_16s(&self, addr: u32, offset: u32) -> WasmResult<i32> {
        let i = self.bounds(addr, offset, 2)?;
        Ok(i16::from_le_bytes(self.bytes[i..i + 2].try_into().unwrap()) as i32)
    }
    pub fn load_i32_16u(&self, addr: u32, offset: u32) -> WasmResult<i32> {
        let i = self.bounds(addr, offset, 2)?;
        Ok(u16::from_le_bytes(self.bytes[i..i + 2].try_into().unwrap()) as i32)
    }

    pub fn load_i64(&self, addr: u32, offset: u32) -> WasmResult<i64> {
        let i = self.bounds(addr, offset, 8)?;
        Ok(i64::from_le_bytes(self.bytes[i..i + 8].try_into().unwrap()))
    }
    pub fn load_i64_8s(&self, addr: u32, offset: u32) -> WasmResult<i64> {
        let i = self.bounds(addr, offset, 1)?;
        Ok(self.bytes[i] as i8 as i64)
    }
    pub fn load_i64_8u(&self, addr: u32, offset: u32) -> WasmResult<i64> {
        let i = self.bounds(addr, offset, 1)?;
        Ok(self.bytes[i] as i64)
    }
    pub fn load_i64_16s(&self, addr: u32, offset: u32) -> WasmResult<i64> {
        let i = self.bounds(addr, offset, 2)?;
        Ok(i16::from_le_bytes(self.bytes[i..i + 2].try_into().unwrap()) as i64)
    }
    pub fn load_i64_16u(&self, addr: u32, offset: u32) -> WasmResult<i64> {
        let i = self.bounds(addr, offset, 2)?;
        Ok(u16::from_le_bytes(self.bytes[i..i + 2].try_into().unwrap()) as i64)
    }
    pub fn load_i64_32s(&self, addr: u32, offset: u32) -> WasmResult<i64> {
        let i = self.bounds(addr, offset, 4)?;
        Ok(i32::from_le_bytes(self.bytes[i..i + 4].try_into().unwrap()) as i64)
    }
    pub fn load_i64_32u(&self, addr: u32, offset: u32) -> WasmResult<i64> {
        let i = self.bounds(addr, offset, 4)?;
        Ok(u32::from_le_bytes(self.bytes[i..i + 4].try_into().unwrap()) as i64)
    }

    pub fn load_f32(&self, addr: u32, offset: u32) -> WasmResult<f32> {
        let i = self.bounds(addr, offset, 4)?;
        Ok(f32::from_le_bytes(self.bytes[i..i + 4].try_into().unwrap()))
    }
    pub fn load_f64(&self, addr: u32, offset: u32) -> WasmResult<f64> {
        let i = self.bounds(addr, offset, 8)?;
        Ok(f64::from_le_bytes(self.bytes[i..i + 8].try_into().unwrap()))
    }

    pub fn store_i32(&mut self, addr: u32, offset: u32, value: i32) -> WasmResult<()> {
        let i = self.bounds(addr, offset, 4)?;
        self.bytes[i..i + 4].copy_from_slice(&value.to_le_bytes());
        Ok(())
    }
    pub fn store_i32_8(&mut self, addr: u32, offset: u32, value: i32) -> WasmResult<()> {
        let i = self.bounds(addr, offset, 1)?;
        self.bytes[i] = value as u8;
        Ok(())
    }
    pub fn store_i32_16(&mut self, addr: u32, offset: u32, value: i32) -> WasmResult<()> {
        let i = self.bounds(addr, offset, 2)?;
        self.bytes[i..i + 2].copy_from_slice(&(value as u16).to_le_bytes());
        Ok(())
    }

    pub fn store_i64(&mut self, addr: u32, offset: u32, value: i64) -> WasmResult<()> {
        let i = self.bounds(addr, offset, 8)?;
        self.bytes[i..i + 8].copy_from_slice(&value.to_le_bytes());
        Ok(())
    }
    pub fn store_i64_8(&mut self, addr: u32, offset: u32, value: i64) -> WasmResult<()> {
        let i = self.bounds(addr, offset, 1)?;
        self.bytes[i] = value as u8;
        Ok(())
    }
    pub fn store_i64_16(&mut self, addr: u32, offset: u32, value: i64) -> WasmResult<()> {
        let i = self.bounds(addr, offset, 2)?;
        self.bytes[i..i + 2].copy_from_slice(&(value as u16).to_le_bytes());
        Ok(())
    }
    pub fn store_i64_32(&mut self, addr: u32, offset: u32, value: i64) -> WasmResult<()> {
        let i = self.bounds(addr, offset, 4)?;
        self.bytes[i..i + 4].copy_from_slice(&(value as u32).to_le_bytes());
        Ok(())
    }

    pub fn store_f32(&mut self, addr: u32, offset: u32, value: f32) -> WasmResult<()> {
        let i = self.bounds(addr, offset, 4)?;
        self.bytes[i..i + 4].copy_from_slice(&value.to_le_bytes());
        Ok(())
    }
    pub fn store_f64(&mut self, addr: u32, offset: u32, value: f64) -> WasmResult<()> {
        let i = self.bounds(addr, offset, 8)?;
        self.bytes[i..i + 8].copy_from_slice(&value.to_le_bytes());
        Ok(())
    }

    // size returns the current memory size in pages.
    pub fn size(&self) -> usize {
        self.bytes.len() / PAGE_SIZE
    }

    // grow implements memory.grow: on success it returns the previous size
    // in pages; if growing past max_pages would be required, the memory is
    // left unchanged and -1 is returned instead of trapping.
    pub fn grow(&mut self, delta: u32) -> i32 {
        let current = self.size();
        let requested = match current.checked_add(delta as usize) {
            Some(n) if n <= self.max_pages => n,
            _ => return -1,
        };
        self.bytes.resize(requested * PAGE_SIZE, 0);
        current as i32
    }
}

#[derive(Clone, Copy)]
pub struct FuncRef {
    pub type_index: usize,
    pub func_index: usize,
}

pub struct Table {
    entries: Vec<Option<FuncRef>>,
}

impl Table {
    pub fn new(size: usize) -> Self {
        Table { entries: vec![None; size] }
    }

    pub fn get(&self, index: u32) -> WasmResult<FuncRef> {
        match self.entries.get(index as usize) {
            None => Err(WasmTrap::TableOutOfBounds),
            Some(None) => Err(WasmTrap::UndefinedElement),
            Some(Some(f)) => Ok(*f),
        }
    }

    pub fn set(&mut self, index: u32, entry: FuncRef) {
        if let Some(slot) = self.entries.get_mut(index as usize) {
            *slot = Some(entry);
        }
    }
}

fn checked_div_i32(lhs: i32, rhs: i32) -> WasmResult<i32> {
    if rhs == 0 {
        return Err(WasmTrap::IntegerDivideByZero);
    }
    lhs.checked_div(rhs).ok_or(WasmTrap::IntegerOverflow)
}
fn checked_rem_i32(lhs: i32, rhs: i32) -> WasmResult<i32> {
    if rhs == 0 {
        return Err(WasmTrap::IntegerDivideByZero);
    }
    Ok(lhs.checked_rem(rhs).unwrap_or(0))
}
fn checked_div_i64(lhs: i64, rhs: i64) -> WasmResult<i64> {
    if rhs == 0 {
        return Err(WasmTrap::IntegerDivideByZero);
    }
    lhs.checked_div(rhs).ok_or(WasmTrap::IntegerOverflow)
}
fn checked_rem_i64(lhs: i64, rhs: i64) -> WasmResult<i64> {
    if rhs == 0 {
        return Err(WasmTrap::IntegerDivideByZero);
    }
    Ok(lhs.checked_rem(rhs).unwrap_or(0))
}

fn checked_div_u32(lhs: u32, rhs: u32) -> WasmResult<u32> {
    lhs.checked_div(rhs).ok_or(WasmTrap::IntegerDivideByZero)
}
fn checked_rem_u32(lhs: u32, rhs: u32) -> WasmResult<u32> {
    lhs.checked_rem(rhs).ok_or(WasmTrap::IntegerDivideByZero)
}
fn checked_div_u64(lhs: u64, rhs: u64) -> WasmResult<u64> {
    lhs.checked_div(rhs).ok_or(WasmTrap::IntegerDivideByZero)
}
fn checked_rem_u64(lhs: u64, rhs: u64) -> WasmResult<u64> {
    lhs.checked_rem(rhs).ok_or(WasmTrap::IntegerDivideByZero)
}

fn checked_trunc_i32(f: f64) -> WasmResult<i32> {
    if f.is_nan() || f < (i32::MIN as f64) || f > (i32::MAX as f64) {
        return Err(WasmTrap::InvalidConversionToInteger);
    }
    Ok(f as i32)
}
fn checked_trunc_u32(f: f64) -> WasmResult<u32> {
    if f.is_nan() || f < 0.0 || f > (u32::MAX as f64) {
        return Err(WasmTrap::InvalidConversionToInteger);
    }
    Ok(f as u32)
}
fn checked_trunc_i64(f: f64) -> WasmResult<i64> {
    if f.is_nan() || f < (i64::MIN as f64) || f > (i64::MAX as f64) {
        return Err(WasmTrap::InvalidConversionToInteger);
    }
    Ok(f as i64)
}
fn checked_trunc_u64(f: f64) -> WasmResult<u64> {
    if f.is_nan() || f < 0.0 || f > (u64::MAX as f64) {
        return Err(WasmTrap::InvalidConversionToInteger);
    }
    Ok(f as u64)
}

fn sat_trunc_i32(f: f64) -> i32 {
    if f.is_nan() { 0 } else { f.clamp(i32::MIN as f64, i32::MAX as f64) as i32 }
}
fn sat_trunc_u32(f: f64) -> u32 {
    if f.is_nan() || f < 0.0 { 0 } else { f.clamp(0.0, u32::MAX as f64) as u32 }
}
fn sat_trunc_i64(f: f64) -> i64 {
    if f.is_nan() { 0 } else { f.clamp(i64::MIN as f64, i64::MAX as f64) as i64 }
}
fn sat_trunc_u64(f: f64) -> u64 {
    if f.is_nan() || f < 0.0 { 0 } else { f.clamp(0.0, u64::MAX as f64) as u64 }
}

// wasm_min_f32/wasm_max_f32/wasm_min_f64/wasm_max_f64 implement Wasm's
// float min/max: NaN propagates unconditionally, and +0/-0 are told apart
// where Rust's native f32::min/f32::max (IEEE-754 minNum/maxNum, where a
// non-NaN operand always wins over NaN) would not.
fn wasm_min_f32(lhs: f32, rhs: f32) -> f32 {
    if lhs.is_nan() || rhs.is_nan() {
        return f32::NAN;
    }
    if lhs == 0.0 && rhs == 0.0 {
        return if lhs.is_sign_negative() { lhs } else { rhs };
    }
    if lhs < rhs { lhs } else { rhs }
}
fn wasm_max_f32(lhs: f32, rhs: f32) -> f32 {
    if lhs.is_nan() || rhs.is_nan() {
        return f32::NAN;
    }
    if lhs == 0.0 && rhs == 0.0 {
        return if lhs.is_sign_negative() { rhs } else { lhs };
    }
    if lhs > rhs { lhs } else { rhs }
}
fn wasm_min_f64(lhs: f64, rhs: f64) -> f64 {
    if lhs.is_nan() || rhs.is_nan() {
        return f64::NAN;
    }
    if lhs == 0.0 && rhs == 0.0 {
        return if lhs.is_sign_negative() { lhs } else { rhs };
    }
    if lhs < rhs { lhs } else { rhs }
}
fn wasm_max_f64(lhs: f64, rhs: f64) -> f64 {
    if lhs.is_nan() || rhs.is_nan() {
        return f64::NAN;
    }
    if lhs == 0.0 && rhs == 0.0 {
        return if lhs.is_sign_negative() { rhs } else { lhs };
    }
    if lhs > rhs { lhs } else { rhs }
}

pub struct Module<G> {
    pub globals: G,
    pub memory: Memory,
    pub table: Table,
}

pub struct LibraryModule<G> {
    pub globals: G,
    pub table: Table,
}

`

// rustCodePreambleText returns the preamble. Exposed as a function (rather
// than using the const directly) so callers read consistently with the
// rest of this package's generation entry points.
func rustCodePreambleText() string { return rustCodePreamble }

// emitConstGlobals emits one Rust `const` item per immutable module-owned
// global (mutable globals instead live as fields on the Globals struct).
func emitConstGlobals(info *ir.ModuleInfo) string {
	var b strings.Builder
	for idx, g := range info.Globals {
		if g.Mutable {
			continue
		}
		rustTy, literal := globalInitToRust(g.Init)
		fmt.Fprintf(&b, "const G%d: %s = %s;\n", idx, rustTy, literal)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// generateConstructor emits WasmModule::new(...), wiring memory, table,
// globals, data and element segment initialization. Module and
// LibraryModule (see rustCodePreamble) always carry a table field — a
// module with no table simply gets a zero-size one — so construction never
// has to special-case its absence.
func generateConstructor(info *ir.ModuleInfo, hasMutGlobals bool) string {
	var b strings.Builder

	// Imported memory is never stored on the module: it is passed in at
	// each export call instead (see export.go), so the constructor takes
	// no memory parameter even when info.HasMemoryImport.
	b.WriteString("impl WasmModule {\n")
	b.WriteString("    pub fn new() -> Self {\n")

	if info.HasMemory {
		fmt.Fprintf(&b, "        let mut memory = Memory { bytes: vec![0u8; %d * PAGE_SIZE], max_pages: MAX_PAGES };\n", info.InitialPages)
		for _, d := range info.DataSegments {
			fmt.Fprintf(&b, "        memory.bytes[%d..%d].copy_from_slice(&%s);\n", d.Offset, int(d.Offset)+len(d.Data), byteSliceLiteral(d.Data))
		}
	}

	tableSize := "0"
	if info.HasTable() {
		tableSize = "TABLE_MAX"
	}
	fmt.Fprintf(&b, "        let mut table = Table::new(%s);\n", tableSize)
	for _, elem := range info.ElementSegments {
		for i, funcIdx := range elem.FuncIndices {
			typeIdx := funcRefTypeIdx(info, funcIdx)
			fmt.Fprintf(&b, "        table.set(%d, FuncRef { type_index: %d, func_index: %d });\n", elem.Offset+uint32(i), typeIdx, funcIdx)
		}
	}

	if hasMutGlobals {
		b.WriteString("        let globals = Globals {\n")
		for idx, g := range info.Globals {
			if !g.Mutable {
				continue
			}
			_, literal := globalInitToRust(g.Init)
			fmt.Fprintf(&b, "            g%d: %s,\n", idx, literal)
		}
		b.WriteString("        };\n")
	}

	globalsExpr := "()"
	if hasMutGlobals {
		globalsExpr = "globals"
	}

	if info.HasMemory {
		fmt.Fprintf(&b, "        WasmModule(Module { globals: %s, memory, table })\n", globalsExpr)
	} else {
		fmt.Fprintf(&b, "        WasmModule(LibraryModule { globals: %s, table })\n", globalsExpr)
	}

	b.WriteString("    }\n")
	b.WriteString("}\n")
	return b.String()
}

func byteSliceLiteral(data []byte) string {
	var b strings.Builder
	b.WriteString("[")
	for i, by := range data {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", by)
	}
	b.WriteString("]")
	return b.String()
}
