package wasmbin

import (
	"bytes"
	"fmt"

	"github.com/gowasm/wasm2rs/internal/ir"
	"github.com/gowasm/wasm2rs/internal/leb128"
)

// OpKind tags the variant of a decoded Operator. Names follow the Wasm
// instruction mnemonics directly (unlike ir.BinOp/ir.UnOp, which are
// grouped by IR-level shape).
type OpKind int

const (
	OpUnreachable OpKind = iota
	OpNop
	OpBlock
	OpLoop
	OpIf
	OpElse
	OpEnd
	OpBr
	OpBrIf
	OpBrTable
	OpReturn
	OpCall
	OpCallIndirect
	OpDrop
	OpSelect
	OpLocalGet
	OpLocalSet
	OpLocalTee
	OpGlobalGet
	OpGlobalSet
	OpLoad
	OpStore
	OpMemorySize
	OpMemoryGrow
	OpConst
	OpCompare
	OpUnary
	OpBinary
	OpConvert
)

// MemArg is a memory instruction's alignment/offset immediate. Alignment is
// decoded but not used by the core pipeline (the backend always emits
// aligned-or-not safe access).
type MemArg struct {
	Align  uint32
	Offset uint32
}

// Operator is one decoded Wasm instruction: an opcode tag plus whichever
// immediates it carries. Mirrors wasmparser::Operator from the Rust
// original this pipeline is grounded on (original_source/crates/herkos).
type Operator struct {
	Kind OpKind

	// Block / Loop / If: result type, or nil for void.
	BlockType *ir.WasmType

	// Br / BrIf: relative control-stack depth.
	Depth uint32

	// BrTable
	Targets []uint32
	Default uint32

	// Call
	FuncIdx uint32

	// CallIndirect
	TypeIdx uint32

	// LocalGet / LocalSet / LocalTee
	LocalIdx uint32

	// GlobalGet / GlobalSet
	GlobalIdx uint32

	// Load / Store
	ValType ir.WasmType
	Width   ir.Width
	Sign    ir.SignExtension // Load only
	Mem     MemArg

	// Const
	Value ir.Value

	// Compare / Unary / Binary / Convert
	CompareOp ir.BinOp
	UnaryOp   ir.UnOp
	BinaryOp  ir.BinOp
	ConvertOp ir.UnOp
}

// DecodeOperators decodes a function body's raw operator bytes into an
// ordered instruction stream.
func DecodeOperators(body []byte) ([]Operator, error) {
	r := bytes.NewReader(body)
	var ops []Operator
	for r.Len() > 0 {
		op, err := decodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("decoding operator %d: %w", len(ops), err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func readByte(r *bytes.Reader) (byte, error) { return r.ReadByte() }

func readU32(r *bytes.Reader) (uint32, error) {
	v, _, err := leb128dec(r)
	return v, err
}

// leb128dec reads an unsigned LEB128 u32 directly from a byte reader, since
// leb128.LoadUint32 operates on a full byte slice rather than a stream.
func leb128dec(r *bytes.Reader) (uint32, uint64, error) {
	var result uint64
	var shift uint
	var n uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		n++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 35 {
			return 0, 0, fmt.Errorf("leb128: overflows u32")
		}
	}
	return uint32(result), n, nil
}

func readI32(r *bytes.Reader) (int32, error) {
	v, _, err := leb128.DecodeInt33AsInt64(r)
	return int32(v), err
}

func readI64(r *bytes.Reader) (int64, error) {
	var result int64
	var shift uint
	var b byte
	for {
		var err error
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

func readF32(r *bytes.Reader) (float32, error) {
	var buf [4]byte
	if _, err := r.Read(buf[:]); err != nil {
		return 0, err
	}
	return bitsToF32(buf), nil
}

func readF64(r *bytes.Reader) (float64, error) {
	var buf [8]byte
	if _, err := r.Read(buf[:]); err != nil {
		return 0, err
	}
	return bitsToF64(buf), nil
}

func readMemArg(r *bytes.Reader) (MemArg, error) {
	align, err := readU32(r)
	if err != nil {
		return MemArg{}, err
	}
	offset, err := readU32(r)
	if err != nil {
		return MemArg{}, err
	}
	return MemArg{Align: align, Offset: offset}, nil
}

func readBlockType(r *bytes.Reader) (*ir.WasmType, error) {
	v, _, err := leb128.DecodeInt33AsInt64(r)
	if err != nil {
		return nil, err
	}
	switch v {
	case -64: // 0x40, empty type
		return nil, nil
	case -1: // 0x7f
		t := ir.I32
		return &t, nil
	case -2: // 0x7e
		t := ir.I64
		return &t, nil
	case -3: // 0x7d
		t := ir.F32
		return &t, nil
	case -4: // 0x7c
		t := ir.F64
		return &t, nil
	default:
		return nil, fmt.Errorf("multi-value / typed block types are not supported (block type index %d)", v)
	}
}

func decodeOne(r *bytes.Reader) (Operator, error) {
	op, err := readByte(r)
	if err != nil {
		return Operator{}, err
	}
	switch op {
	case 0x00:
		return Operator{Kind: OpUnreachable}, nil
	case 0x01:
		return Operator{Kind: OpNop}, nil
	case 0x02, 0x03, 0x04:
		bt, err := readBlockType(r)
		if err != nil {
			return Operator{}, err
		}
		kind := OpBlock
		if op == 0x03 {
			kind = OpLoop
		} else if op == 0x04 {
			kind = OpIf
		}
		return Operator{Kind: kind, BlockType: bt}, nil
	case 0x05:
		return Operator{Kind: OpElse}, nil
	case 0x0B:
		return Operator{Kind: OpEnd}, nil
	case 0x0C, 0x0D:
		depth, err := readU32(r)
		if err != nil {
			return Operator{}, err
		}
		kind := OpBr
		if op == 0x0D {
			kind = OpBrIf
		}
		return Operator{Kind: kind, Depth: depth}, nil
	case 0x0E:
		count, err := readU32(r)
		if err != nil {
			return Operator{}, err
		}
		targets := make([]uint32, count)
		for i := range targets {
			if targets[i], err = readU32(r); err != nil {
				return Operator{}, err
			}
		}
		def, err := readU32(r)
		if err != nil {
			return Operator{}, err
		}
		return Operator{Kind: OpBrTable, Targets: targets, Default: def}, nil
	case 0x0F:
		return Operator{Kind: OpReturn}, nil
	case 0x10:
		idx, err := readU32(r)
		return Operator{Kind: OpCall, FuncIdx: idx}, err
	case 0x11:
		typeIdx, err := readU32(r)
		if err != nil {
			return Operator{}, err
		}
		if _, err := readByte(r); err != nil { // reserved table index byte
			return Operator{}, err
		}
		return Operator{Kind: OpCallIndirect, TypeIdx: typeIdx}, nil
	case 0x1A:
		return Operator{Kind: OpDrop}, nil
	case 0x1B:
		return Operator{Kind: OpSelect}, nil
	case 0x20, 0x21, 0x22:
		idx, err := readU32(r)
		if err != nil {
			return Operator{}, err
		}
		kind := OpLocalGet
		if op == 0x21 {
			kind = OpLocalSet
		} else if op == 0x22 {
			kind = OpLocalTee
		}
		return Operator{Kind: kind, LocalIdx: idx}, nil
	case 0x23, 0x24:
		idx, err := readU32(r)
		if err != nil {
			return Operator{}, err
		}
		kind := OpGlobalGet
		if op == 0x24 {
			kind = OpGlobalSet
		}
		return Operator{Kind: kind, GlobalIdx: idx}, nil
	}

	if op >= 0x28 && op <= 0x35 {
		return decodeLoad(r, op)
	}
	if op >= 0x36 && op <= 0x3E {
		return decodeStore(r, op)
	}
	if op == 0x3F || op == 0x40 {
		if _, err := readByte(r); err != nil { // reserved byte
			return Operator{}, err
		}
		if op == 0x3F {
			return Operator{Kind: OpMemorySize}, nil
		}
		return Operator{Kind: OpMemoryGrow}, nil
	}
	if op == 0x41 {
		v, err := readI32(r)
		return Operator{Kind: OpConst, Value: ir.I32Value(v)}, err
	}
	if op == 0x42 {
		v, err := readI64(r)
		return Operator{Kind: OpConst, Value: ir.I64Value(v)}, err
	}
	if op == 0x43 {
		v, err := readF32(r)
		return Operator{Kind: OpConst, Value: ir.F32Value(v)}, err
	}
	if op == 0x44 {
		v, err := readF64(r)
		return Operator{Kind: OpConst, Value: ir.F64Value(v)}, err
	}
	if op >= 0x45 && op <= 0x66 {
		return decodeCompare(op)
	}
	if op >= 0x67 && op <= 0xA6 {
		return decodeArith(op)
	}
	if op >= 0xA7 && op <= 0xBF {
		return decodeConvert(op)
	}
	if op == 0xFC {
		sub, err := readU32(r)
		if err != nil {
			return Operator{}, err
		}
		return decodeSatConvert(sub)
	}
	return Operator{}, fmt.Errorf("unsupported opcode 0x%02x", op)
}

func decodeLoad(r *bytes.Reader, op byte) (Operator, error) {
	mem, err := readMemArg(r)
	if err != nil {
		return Operator{}, err
	}
	var ty ir.WasmType
	var width ir.Width
	sign := ir.SignExtended
	switch op {
	case 0x28:
		ty, width = ir.I32, ir.Width32
	case 0x29:
		ty, width = ir.I64, ir.Width64
	case 0x2A:
		ty, width = ir.F32, ir.Width32
	case 0x2B:
		ty, width = ir.F64, ir.Width64
	case 0x2C:
		ty, width, sign = ir.I32, ir.Width8, ir.SignExtended
	case 0x2D:
		ty, width, sign = ir.I32, ir.Width8, ir.ZeroExtended
	case 0x2E:
		ty, width, sign = ir.I32, ir.Width16, ir.SignExtended
	case 0x2F:
		ty, width, sign = ir.I32, ir.Width16, ir.ZeroExtended
	case 0x30:
		ty, width, sign = ir.I64, ir.Width8, ir.SignExtended
	case 0x31:
		ty, width, sign = ir.I64, ir.Width8, ir.ZeroExtended
	case 0x32:
		ty, width, sign = ir.I64, ir.Width16, ir.SignExtended
	case 0x33:
		ty, width, sign = ir.I64, ir.Width16, ir.ZeroExtended
	case 0x34:
		ty, width, sign = ir.I64, ir.Width32, ir.SignExtended
	case 0x35:
		ty, width, sign = ir.I64, ir.Width32, ir.ZeroExtended
	}
	return Operator{Kind: OpLoad, ValType: ty, Width: width, Sign: sign, Mem: mem}, nil
}

func decodeStore(r *bytes.Reader, op byte) (Operator, error) {
	mem, err := readMemArg(r)
	if err != nil {
		return Operator{}, err
	}
	var ty ir.WasmType
	var width ir.Width
	switch op {
	case 0x36:
		ty, width = ir.I32, ir.Width32
	case 0x37:
		ty, width = ir.I64, ir.Width64
	case 0x38:
		ty, width = ir.F32, ir.Width32
	case 0x39:
		ty, width = ir.F64, ir.Width64
	case 0x3A:
		ty, width = ir.I32, ir.Width8
	case 0x3B:
		ty, width = ir.I32, ir.Width16
	case 0x3C:
		ty, width = ir.I64, ir.Width8
	case 0x3D:
		ty, width = ir.I64, ir.Width16
	case 0x3E:
		ty, width = ir.I64, ir.Width32
	}
	return Operator{Kind: OpStore, ValType: ty, Width: width, Mem: mem}, nil
}

var compareTable = map[byte]ir.BinOp{
	0x46: ir.EqI32, 0x47: ir.NeI32, 0x48: ir.LtSI32, 0x49: ir.LtUI32,
	0x4A: ir.GtSI32, 0x4B: ir.GtUI32, 0x4C: ir.LeSI32, 0x4D: ir.LeUI32,
	0x4E: ir.GeSI32, 0x4F: ir.GeUI32,
	0x51: ir.EqI64, 0x52: ir.NeI64, 0x53: ir.LtSI64, 0x54: ir.LtUI64,
	0x55: ir.GtSI64, 0x56: ir.GtUI64, 0x57: ir.LeSI64, 0x58: ir.LeUI64,
	0x59: ir.GeSI64, 0x5A: ir.GeUI64,
	0x5B: ir.EqF32, 0x5C: ir.NeF32, 0x5D: ir.LtF32, 0x5E: ir.GtF32, 0x5F: ir.LeF32, 0x60: ir.GeF32,
	0x61: ir.EqF64, 0x62: ir.NeF64, 0x63: ir.LtF64, 0x64: ir.GtF64, 0x65: ir.LeF64, 0x66: ir.GeF64,
}

var eqzTable = map[byte]ir.UnOp{0x45: ir.EqzI32, 0x50: ir.EqzI64}

func decodeCompare(op byte) (Operator, error) {
	if u, ok := eqzTable[op]; ok {
		return Operator{Kind: OpUnary, UnaryOp: u}, nil
	}
	if c, ok := compareTable[op]; ok {
		return Operator{Kind: OpCompare, CompareOp: c}, nil
	}
	return Operator{}, fmt.Errorf("unknown comparison opcode 0x%02x", op)
}

var unaryTable = map[byte]ir.UnOp{
	0x67: ir.ClzI32, 0x68: ir.CtzI32, 0x69: ir.PopcntI32,
	0x79: ir.ClzI64, 0x7A: ir.CtzI64, 0x7B: ir.PopcntI64,
	0x8B: ir.AbsF32, 0x8C: ir.NegF32, 0x8D: ir.CeilF32, 0x8E: ir.FloorF32,
	0x8F: ir.TruncF32, 0x90: ir.NearestF32, 0x91: ir.SqrtF32,
	0x99: ir.AbsF64, 0x9A: ir.NegF64, 0x9B: ir.CeilF64, 0x9C: ir.FloorF64,
	0x9D: ir.TruncF64, 0x9E: ir.NearestF64, 0x9F: ir.SqrtF64,
}

var binaryTable = map[byte]ir.BinOp{
	0x6A: ir.AddI32, 0x6B: ir.SubI32, 0x6C: ir.MulI32, 0x6D: ir.DivSI32, 0x6E: ir.DivUI32,
	0x6F: ir.RemSI32, 0x70: ir.RemUI32, 0x71: ir.AndI32, 0x72: ir.OrI32, 0x73: ir.XorI32,
	0x74: ir.ShlI32, 0x75: ir.ShrSI32, 0x76: ir.ShrUI32, 0x77: ir.RotlI32, 0x78: ir.RotrI32,
	0x7C: ir.AddI64, 0x7D: ir.SubI64, 0x7E: ir.MulI64, 0x7F: ir.DivSI64, 0x80: ir.DivUI64,
	0x81: ir.RemSI64, 0x82: ir.RemUI64, 0x83: ir.AndI64, 0x84: ir.OrI64, 0x85: ir.XorI64,
	0x86: ir.ShlI64, 0x87: ir.ShrSI64, 0x88: ir.ShrUI64, 0x89: ir.RotlI64, 0x8A: ir.RotrI64,
	0x92: ir.AddF32, 0x93: ir.SubF32, 0x94: ir.MulF32, 0x95: ir.DivF32, 0x96: ir.MinF32,
	0x97: ir.MaxF32, 0x98: ir.CopysignF32,
	0xA0: ir.AddF64, 0xA1: ir.SubF64, 0xA2: ir.MulF64, 0xA3: ir.DivF64, 0xA4: ir.MinF64,
	0xA5: ir.MaxF64, 0xA6: ir.CopysignF64,
}

func decodeArith(op byte) (Operator, error) {
	if u, ok := unaryTable[op]; ok {
		return Operator{Kind: OpUnary, UnaryOp: u}, nil
	}
	if b, ok := binaryTable[op]; ok {
		return Operator{Kind: OpBinary, BinaryOp: b}, nil
	}
	return Operator{}, fmt.Errorf("unknown arithmetic opcode 0x%02x", op)
}

var convertTable = map[byte]ir.UnOp{
	0xA7: ir.WrapI64ToI32,
	0xA8: ir.TruncF32SToI32, 0xA9: ir.TruncF32UToI32, 0xAA: ir.TruncF64SToI32, 0xAB: ir.TruncF64UToI32,
	0xAC: ir.ExtendI32SToI64, 0xAD: ir.ExtendI32UToI64,
	0xAE: ir.TruncF32SToI64, 0xAF: ir.TruncF32UToI64, 0xB0: ir.TruncF64SToI64, 0xB1: ir.TruncF64UToI64,
	0xB2: ir.ConvertI32SToF32, 0xB3: ir.ConvertI32UToF32, 0xB4: ir.ConvertI64SToF32, 0xB5: ir.ConvertI64UToF32,
	0xB6: ir.DemoteF64ToF32,
	0xB7: ir.ConvertI32SToF64, 0xB8: ir.ConvertI32UToF64, 0xB9: ir.ConvertI64SToF64, 0xBA: ir.ConvertI64UToF64,
	0xBB: ir.PromoteF32ToF64,
	0xBC: ir.ReinterpretF32AsI32, 0xBD: ir.ReinterpretF64AsI64,
	0xBE: ir.ReinterpretI32AsF32, 0xBF: ir.ReinterpretI64AsF64,
}

func decodeConvert(op byte) (Operator, error) {
	c, ok := convertTable[op]
	if !ok {
		return Operator{}, fmt.Errorf("unknown conversion opcode 0x%02x", op)
	}
	return Operator{Kind: OpConvert, ConvertOp: c}, nil
}

var satConvertTable = map[uint32]ir.UnOp{
	0: ir.TruncSatF32SToI32, 1: ir.TruncSatF32UToI32, 2: ir.TruncSatF64SToI32, 3: ir.TruncSatF64UToI32,
	4: ir.TruncSatF32SToI64, 5: ir.TruncSatF32UToI64, 6: ir.TruncSatF64SToI64, 7: ir.TruncSatF64UToI64,
}

func decodeSatConvert(sub uint32) (Operator, error) {
	c, ok := satConvertTable[sub]
	if !ok {
		return Operator{}, fmt.Errorf("unsupported 0xFC sub-opcode %d (SIMD/bulk-memory proposals are not supported)", sub)
	}
	return Operator{Kind: OpConvert, ConvertOp: c}, nil
}
