package wasmbin

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gowasm/wasm2rs/internal/ir"
	"github.com/pkg/errors"
)

const (
	magic   = 0x6d736100 // "\0asm"
	version = uint32(1)
)

type sectionID byte

const (
	secCustom sectionID = iota
	secType
	secImport
	secFunction
	secTable
	secMemory
	secGlobal
	secExport
	secStart
	secElement
	secCode
	secData
)

// Decode parses a complete .wasm binary module.
func Decode(data []byte) (*ParsedModule, error) {
	r := bytes.NewReader(data)

	var magicBuf [4]byte
	if _, err := r.Read(magicBuf[:]); err != nil {
		return nil, errors.Wrap(err, "reading magic")
	}
	if binary.LittleEndian.Uint32(magicBuf[:]) != magic {
		return nil, errors.New("not a wasm binary: bad magic")
	}
	var versionBuf [4]byte
	if _, err := r.Read(versionBuf[:]); err != nil {
		return nil, errors.Wrap(err, "reading version")
	}
	if binary.LittleEndian.Uint32(versionBuf[:]) != version {
		return nil, errors.Errorf("unsupported wasm version %d", binary.LittleEndian.Uint32(versionBuf[:]))
	}

	mod := &ParsedModule{}
	var funcTypeIdxs []uint32

	for r.Len() > 0 {
		idByte, err := r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(err, "reading section id")
		}
		size, err := readU32(r)
		if err != nil {
			return nil, errors.Wrap(err, "reading section size")
		}
		body := make([]byte, size)
		if _, err := r.Read(body); err != nil {
			return nil, errors.Wrapf(err, "reading section %d body", idByte)
		}
		sr := bytes.NewReader(body)

		switch sectionID(idByte) {
		case secCustom:
			// Skipped: custom sections (e.g. names, producers) carry no
			// semantic content the IR builder needs.
		case secType:
			if mod.Types, err = decodeTypeSection(sr); err != nil {
				return nil, errors.Wrap(err, "type section")
			}
		case secImport:
			if mod.Imports, err = decodeImportSection(sr); err != nil {
				return nil, errors.Wrap(err, "import section")
			}
		case secFunction:
			if funcTypeIdxs, err = decodeFunctionSection(sr); err != nil {
				return nil, errors.Wrap(err, "function section")
			}
		case secTable:
			if mod.Table, err = decodeTableSection(sr); err != nil {
				return nil, errors.Wrap(err, "table section")
			}
		case secMemory:
			if mod.Memory, err = decodeMemorySection(sr); err != nil {
				return nil, errors.Wrap(err, "memory section")
			}
		case secGlobal:
			if mod.Globals, err = decodeGlobalSection(sr); err != nil {
				return nil, errors.Wrap(err, "global section")
			}
		case secExport:
			if mod.Exports, err = decodeExportSection(sr); err != nil {
				return nil, errors.Wrap(err, "export section")
			}
		case secStart:
			// Not represented in ParsedModule: spec.md's data model has no
			// start-function entity. A module with a start section still
			// transpiles; invoking the start function is left to the
			// caller, consistent with §5's "no implicit concurrency or
			// hidden behavior" stance.
		case secElement:
			if mod.ElementSegments, err = decodeElementSection(sr); err != nil {
				return nil, errors.Wrap(err, "element section")
			}
		case secCode:
			if mod.Functions, err = decodeCodeSection(sr, funcTypeIdxs); err != nil {
				return nil, errors.Wrap(err, "code section")
			}
		case secData:
			if mod.DataSegments, err = decodeDataSection(sr); err != nil {
				return nil, errors.Wrap(err, "data section")
			}
		default:
			return nil, errors.Errorf("unknown section id %d", idByte)
		}
	}
	return mod, nil
}

func decodeValType(r *bytes.Reader) (ir.WasmType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case 0x7f:
		return ir.I32, nil
	case 0x7e:
		return ir.I64, nil
	case 0x7d:
		return ir.F32, nil
	case 0x7c:
		return ir.F64, nil
	default:
		return 0, fmt.Errorf("unsupported value type byte 0x%02x (reference types / SIMD are not supported)", b)
	}
}

func decodeName(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := r.Read(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func decodeTypeSection(r *bytes.Reader) ([]FuncType, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	types := make([]FuncType, count)
	for i := range types {
		form, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if form != 0x60 {
			return nil, fmt.Errorf("expected func type form 0x60, got 0x%02x", form)
		}
		pc, err := readU32(r)
		if err != nil {
			return nil, err
		}
		params := make([]ir.WasmType, pc)
		for j := range params {
			if params[j], err = decodeValType(r); err != nil {
				return nil, err
			}
		}
		rc, err := readU32(r)
		if err != nil {
			return nil, err
		}
		if rc > 1 {
			return nil, fmt.Errorf("multi-value results are not supported (type %d declares %d results)", i, rc)
		}
		results := make([]ir.WasmType, rc)
		for j := range results {
			if results[j], err = decodeValType(r); err != nil {
				return nil, err
			}
		}
		types[i] = FuncType{Params: params, Results: results}
	}
	return types, nil
}

func decodeLimits(r *bytes.Reader) (initial uint32, max *uint32, err error) {
	flags, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	if initial, err = readU32(r); err != nil {
		return 0, nil, err
	}
	if flags&1 != 0 {
		m, err := readU32(r)
		if err != nil {
			return 0, nil, err
		}
		max = &m
	}
	return initial, max, nil
}

func decodeImportSection(r *bytes.Reader) ([]Import, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	imports := make([]Import, count)
	for i := range imports {
		mod, err := decodeName(r)
		if err != nil {
			return nil, err
		}
		name, err := decodeName(r)
		if err != nil {
			return nil, err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		imp := Import{ModuleName: mod, Name: name}
		switch kindByte {
		case 0x00:
			imp.Kind = ImportFunc
			if imp.TypeIdx, err = readU32(r); err != nil {
				return nil, err
			}
		case 0x01:
			imp.Kind = ImportTable
			if _, err := r.ReadByte(); err != nil { // elemtype (funcref)
				return nil, err
			}
			if imp.TableInitial, imp.TableMax, err = decodeLimits(r); err != nil {
				return nil, err
			}
		case 0x02:
			imp.Kind = ImportMemory
			if imp.MemoryInitialPages, imp.MemoryMaxPages, err = decodeLimits(r); err != nil {
				return nil, err
			}
		case 0x03:
			imp.Kind = ImportGlobal
			if imp.GlobalType, err = decodeValType(r); err != nil {
				return nil, err
			}
			mutByte, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			imp.GlobalMutable = mutByte == 1
		default:
			return nil, fmt.Errorf("unknown import kind %d", kindByte)
		}
		imports[i] = imp
	}
	return imports, nil
}

func decodeFunctionSection(r *bytes.Reader) ([]uint32, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	idxs := make([]uint32, count)
	for i := range idxs {
		if idxs[i], err = readU32(r); err != nil {
			return nil, err
		}
	}
	return idxs, nil
}

func decodeTableSection(r *bytes.Reader) (*Table, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple tables are not supported")
	}
	if _, err := r.ReadByte(); err != nil { // elemtype
		return nil, err
	}
	initial, max, err := decodeLimits(r)
	if err != nil {
		return nil, err
	}
	return &Table{InitialSize: initial, MaxSize: max}, nil
}

func decodeMemorySection(r *bytes.Reader) (*Memory, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple memories are not supported")
	}
	initial, max, err := decodeLimits(r)
	if err != nil {
		return nil, err
	}
	return &Memory{InitialPages: initial, MaximumPages: max}, nil
}

// decodeConstExpr decodes a constant initializer expression: exactly one
// const instruction followed by `end` (0x0B). Global-get as an initializer
// (importing another module's global's value) is not supported; every
// value global/data/element offset we need is a plain literal.
func decodeConstExpr(r *bytes.Reader) (ir.Value, error) {
	opByte, err := r.ReadByte()
	if err != nil {
		return ir.Value{}, err
	}
	var v ir.Value
	switch opByte {
	case 0x41:
		i, err := readI32(r)
		if err != nil {
			return ir.Value{}, err
		}
		v = ir.I32Value(i)
	case 0x42:
		i, err := readI64(r)
		if err != nil {
			return ir.Value{}, err
		}
		v = ir.I64Value(i)
	case 0x43:
		f, err := readF32(r)
		if err != nil {
			return ir.Value{}, err
		}
		v = ir.F32Value(f)
	case 0x44:
		f, err := readF64(r)
		if err != nil {
			return ir.Value{}, err
		}
		v = ir.F64Value(f)
	default:
		return ir.Value{}, fmt.Errorf("unsupported constant expression opcode 0x%02x", opByte)
	}
	end, err := r.ReadByte()
	if err != nil {
		return ir.Value{}, err
	}
	if end != 0x0B {
		return ir.Value{}, fmt.Errorf("expected end (0x0b) after constant expression, got 0x%02x", end)
	}
	return v, nil
}

func decodeGlobalSection(r *bytes.Reader) ([]Global, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	globals := make([]Global, count)
	for i := range globals {
		ty, err := decodeValType(r)
		if err != nil {
			return nil, err
		}
		mutByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		init, err := decodeConstExpr(r)
		if err != nil {
			return nil, err
		}
		globals[i] = Global{Type: ty, Mutable: mutByte == 1, InitValue: init}
	}
	return globals, nil
}

func decodeExportSection(r *bytes.Reader) ([]Export, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	exports := make([]Export, count)
	for i := range exports {
		name, err := decodeName(r)
		if err != nil {
			return nil, err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		idx, err := readU32(r)
		if err != nil {
			return nil, err
		}
		var kind ExportKind
		switch kindByte {
		case 0x00:
			kind = ExportFunc
		case 0x01:
			kind = ExportTable
		case 0x02:
			kind = ExportMemory
		case 0x03:
			kind = ExportGlobal
		default:
			return nil, fmt.Errorf("unknown export kind %d", kindByte)
		}
		exports[i] = Export{Name: name, Kind: kind, Index: idx}
	}
	return exports, nil
}

func decodeElementSection(r *bytes.Reader) ([]ElementSegment, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	segs := make([]ElementSegment, count)
	for i := range segs {
		tableIdx, err := readU32(r)
		if err != nil {
			return nil, err
		}
		if tableIdx != 0 {
			return nil, fmt.Errorf("only table index 0 is supported")
		}
		offsetVal, err := decodeConstExpr(r)
		if err != nil {
			return nil, err
		}
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		fns := make([]uint32, n)
		for j := range fns {
			if fns[j], err = readU32(r); err != nil {
				return nil, err
			}
		}
		segs[i] = ElementSegment{Offset: uint32(offsetVal.I32), FuncIndices: fns}
	}
	return segs, nil
}

func decodeDataSection(r *bytes.Reader) ([]DataSegment, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	segs := make([]DataSegment, count)
	for i := range segs {
		memIdx, err := readU32(r)
		if err != nil {
			return nil, err
		}
		if memIdx != 0 {
			return nil, fmt.Errorf("only memory index 0 is supported")
		}
		offsetVal, err := decodeConstExpr(r)
		if err != nil {
			return nil, err
		}
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		data := make([]byte, n)
		if _, err := r.Read(data); err != nil {
			return nil, err
		}
		segs[i] = DataSegment{Offset: uint32(offsetVal.I32), Data: data}
	}
	return segs, nil
}

func decodeCodeSection(r *bytes.Reader, typeIdxs []uint32) ([]LocalFunc, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if int(count) != len(typeIdxs) {
		return nil, fmt.Errorf("code section has %d entries, function section declared %d", count, len(typeIdxs))
	}
	fns := make([]LocalFunc, count)
	for i := range fns {
		size, err := readU32(r)
		if err != nil {
			return nil, err
		}
		body := make([]byte, size)
		if _, err := r.Read(body); err != nil {
			return nil, err
		}
		br := bytes.NewReader(body)
		localGroupCount, err := readU32(br)
		if err != nil {
			return nil, err
		}
		var locals []ir.WasmType
		for g := uint32(0); g < localGroupCount; g++ {
			n, err := readU32(br)
			if err != nil {
				return nil, err
			}
			ty, err := decodeValType(br)
			if err != nil {
				return nil, err
			}
			for k := uint32(0); k < n; k++ {
				locals = append(locals, ty)
			}
		}
		opBytes := body[len(body)-br.Len():]
		fns[i] = LocalFunc{TypeIdx: typeIdxs[i], Locals: locals, Body: opBytes}
	}
	return fns, nil
}
