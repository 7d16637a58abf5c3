package irbuilder

import (
	"fmt"

	"github.com/gowasm/wasm2rs/internal/ir"
	"github.com/gowasm/wasm2rs/internal/wasmbin"
	"github.com/pkg/errors"
)

type controlKind byte

const (
	ctrlBlock controlKind = iota
	ctrlLoop
	ctrlIf
	ctrlFunction
)

// controlFrame is one nested block/loop/if/function-body frame, per
// spec.md §4.2.
type controlFrame struct {
	kind     controlKind
	startBlk ir.BlockId // Loop: where backward branches land.
	endBlk   ir.BlockId // Block/If: where forward branches land.

	elseBlk      ir.BlockId // If only.
	hasElse      bool
	elseStarted  bool

	resultType *ir.WasmType
	resultVar  ir.VarId
	hasResult  bool

	// stackSnapshot is the operand stack at frame entry (after popping the
	// if's condition, for If frames). Wasm block types in this pipeline's
	// supported subset never carry parameters, so restoring this snapshot
	// when switching from the then-branch to the else-branch is exactly
	// what undoes the then-branch's stack effects. Grounded on the
	// cloned-block-args technique real Wasm-to-SSA builders use for Else
	// blocks (e.g. wazero's wazevo frontend).
	stackSnapshot []ir.VarId
}

// moduleContext is the subset of module-level metadata IR construction of
// a single function needs.
type moduleContext struct {
	funcSigs          []sig // imports then locals, combined index space
	typeSigs          []sig // type-section index space
	numImportedFuncs  int
	funcImports       []funcImportRef
	numImportedGlobals int
}

type funcImportRef struct {
	moduleName string
	funcName   string
}

// Builder holds the transient state used to translate one Wasm function's
// operator stream into SSA IR. A single Builder is reused across all of a
// module's functions (translate, reset, translate again), following
// spec.md §4.2's "State" description and the teacher's Compiler/loweringState
// reset-and-reuse pattern.
type Builder struct {
	blocks       []ir.Block
	currentBlock ir.BlockId
	nextVar      uint32
	nextBlock    uint32

	stack []ir.VarId
	ctrl  []controlFrame

	localVars []ir.VarId

	unreachable      bool
	unreachableDepth int

	ctx moduleContext
}

// NewBuilder returns a Builder ready for its first TranslateFunction call.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) newVar() ir.VarId {
	v := ir.VarId(b.nextVar)
	b.nextVar++
	return v
}

func (b *Builder) newBlockID() ir.BlockId {
	id := ir.BlockId(b.nextBlock)
	b.nextBlock++
	return id
}

// startBlock allocates storage for a new current block. Caller must have
// obtained id from newBlockID.
func (b *Builder) startBlock(id ir.BlockId) {
	b.currentBlock = id
	b.blocks = append(b.blocks, ir.Block{Id: id, Label: fmt.Sprintf("block_%d", id)})
}

func (b *Builder) curBlock() *ir.Block {
	for i := len(b.blocks) - 1; i >= 0; i-- {
		if b.blocks[i].Id == b.currentBlock {
			return &b.blocks[i]
		}
	}
	panic(fmt.Sprintf("irbuilder: current block %d was never started", b.currentBlock))
}

func (b *Builder) emit(instr ir.Instr) {
	if b.unreachable {
		return
	}
	blk := b.curBlock()
	blk.Instrs = append(blk.Instrs, instr)
}

func (b *Builder) terminate(term ir.Terminator) {
	if b.unreachable {
		return
	}
	b.curBlock().Terminator = term
}

func (b *Builder) push(v ir.VarId)    { b.stack = append(b.stack, v) }
func (b *Builder) pop() ir.VarId {
	n := len(b.stack) - 1
	v := b.stack[n]
	b.stack = b.stack[:n]
	return v
}

func cloneStack(s []ir.VarId) []ir.VarId {
	out := make([]ir.VarId, len(s))
	copy(out, s)
	return out
}

func (b *Builder) ctrlPush(f controlFrame) { b.ctrl = append(b.ctrl, f) }
func (b *Builder) ctrlPop() controlFrame {
	n := len(b.ctrl) - 1
	f := b.ctrl[n]
	b.ctrl = b.ctrl[:n]
	return f
}
func (b *Builder) ctrlTop() *controlFrame { return &b.ctrl[len(b.ctrl)-1] }

// branchTarget implements spec.md §4.2's branch-target resolution: frame
// at len-d-1, target is start_blk for Loop, else end_blk.
func (b *Builder) branchTarget(depth uint32) (*controlFrame, ir.BlockId, error) {
	idx := len(b.ctrl) - 1 - int(depth)
	if idx < 0 {
		return nil, 0, errors.Errorf("branch depth %d exceeds control stack depth %d", depth, len(b.ctrl))
	}
	f := &b.ctrl[idx]
	if f.kind == ctrlLoop {
		return f, f.startBlk, nil
	}
	return f, f.endBlk, nil
}

// TranslateFunction implements spec.md §4.2: translates one local
// function's operator stream into SSA-form IR.
func (b *Builder) TranslateFunction(
	params []ir.WasmType,
	locals []ir.WasmType,
	returnType *ir.WasmType,
	ops []wasmbin.Operator,
	modCtx moduleContext,
) (ir.Function, error) {
	b.blocks = nil
	b.currentBlock = 0
	b.nextVar = 0
	b.nextBlock = 0
	b.stack = nil
	b.ctrl = nil
	b.localVars = nil
	b.unreachable = false
	b.unreachableDepth = 0
	b.ctx = modCtx

	var paramVars []ir.LocalVar
	for _, ty := range params {
		v := b.newVar()
		b.localVars = append(b.localVars, v)
		paramVars = append(paramVars, ir.LocalVar{Var: v, Type: ty})
	}

	var localVars []ir.LocalVar
	for _, ty := range locals {
		v := b.newVar()
		b.localVars = append(b.localVars, v)
		localVars = append(localVars, ir.LocalVar{Var: v, Type: ty})
	}

	entry := b.newBlockID() // Always BlockId(0): first call to newBlockID.
	b.startBlock(entry)

	b.ctrlPush(controlFrame{
		kind:       ctrlFunction,
		startBlk:   entry,
		endBlk:     entry, // unused: function end terminates with Return, not Jump.
		resultType: returnType,
	})

	// Declared locals are zero-initialized per the Wasm spec.
	for _, lv := range localVars {
		b.emit(ir.Instr{Kind: ir.KConst, Dest: lv.Var, Value: zeroValue(lv.Type)})
	}

	for i, op := range ops {
		if err := b.translateOp(op); err != nil {
			return ir.Function{}, errors.Wrapf(err, "translating operator %d", i)
		}
	}

	if len(b.ctrl) != 0 {
		return ir.Function{}, errors.New("unterminated control structure: missing end")
	}

	return ir.Function{
		Params:     paramVars,
		Locals:     localVars,
		Blocks:     b.blocks,
		EntryBlock: entry,
		ReturnType: returnType,
	}, nil
}

func zeroValue(t ir.WasmType) ir.Value {
	switch t {
	case ir.I32:
		return ir.I32Value(0)
	case ir.I64:
		return ir.I64Value(0)
	case ir.F32:
		return ir.F32Value(0)
	default:
		return ir.F64Value(0)
	}
}

// translateOp dispatches a single Wasm operator. While b.unreachable is
// set, only control-frame bookkeeping happens (spec.md §4.2's failure model
// relies on the validator for stack shape in dead code; this builder
// mirrors that by skipping instruction emission for unreachable code while
// still tracking nesting, the same "unreachableDepth" technique real
// Wasm-to-SSA builders use).
func (b *Builder) translateOp(op wasmbin.Operator) error {
	if b.unreachable {
		switch op.Kind {
		case wasmbin.OpBlock, wasmbin.OpLoop, wasmbin.OpIf:
			b.unreachableDepth++
			return nil
		case wasmbin.OpElse:
			if b.unreachableDepth == 0 {
				return b.handleElse()
			}
			return nil
		case wasmbin.OpEnd:
			if b.unreachableDepth == 0 {
				return b.handleEnd()
			}
			b.unreachableDepth--
			return nil
		default:
			return nil
		}
	}

	switch op.Kind {
	case wasmbin.OpUnreachable:
		b.terminate(ir.Terminator{Kind: ir.TUnreachable})
		b.unreachable = true
		return nil
	case wasmbin.OpNop:
		return nil
	case wasmbin.OpBlock, wasmbin.OpLoop:
		return b.handleBlockOrLoop(op)
	case wasmbin.OpIf:
		return b.handleIf(op)
	case wasmbin.OpElse:
		return b.handleElse()
	case wasmbin.OpEnd:
		return b.handleEnd()
	case wasmbin.OpBr:
		return b.handleBr(op.Depth)
	case wasmbin.OpBrIf:
		return b.handleBrIf(op.Depth)
	case wasmbin.OpBrTable:
		return b.handleBrTable(op)
	case wasmbin.OpReturn:
		return b.handleReturn()
	case wasmbin.OpCall:
		return b.handleCall(op.FuncIdx)
	case wasmbin.OpCallIndirect:
		return b.handleCallIndirect(op.TypeIdx)
	case wasmbin.OpDrop:
		b.pop()
		return nil
	case wasmbin.OpSelect:
		cond, v2, v1 := b.pop(), b.pop(), b.pop()
		dest := b.newVar()
		b.emit(ir.Instr{Kind: ir.KSelect, Dest: dest, Val1: v1, Val2: v2, Condition: cond})
		b.push(dest)
		return nil
	case wasmbin.OpLocalGet:
		// local.get never pushes the local's VarId directly: it snapshots
		// via a fresh Assign so a later local.set/tee on the same local
		// cannot retroactively mutate earlier stack entries (spec.md §4.2,
		// §9 "Stack machine -> SSA").
		if int(op.LocalIdx) >= len(b.localVars) {
			return errors.Errorf("local index %d out of range", op.LocalIdx)
		}
		dest := b.newVar()
		b.emit(ir.Instr{Kind: ir.KAssign, Dest: dest, Src: b.localVars[op.LocalIdx]})
		b.push(dest)
		return nil
	case wasmbin.OpLocalSet:
		if int(op.LocalIdx) >= len(b.localVars) {
			return errors.Errorf("local index %d out of range", op.LocalIdx)
		}
		v := b.pop()
		b.emit(ir.Instr{Kind: ir.KAssign, Dest: b.localVars[op.LocalIdx], Src: v})
		return nil
	case wasmbin.OpLocalTee:
		if int(op.LocalIdx) >= len(b.localVars) {
			return errors.Errorf("local index %d out of range", op.LocalIdx)
		}
		v := b.pop()
		b.emit(ir.Instr{Kind: ir.KAssign, Dest: b.localVars[op.LocalIdx], Src: v})
		b.push(v)
		return nil
	case wasmbin.OpGlobalGet:
		dest := b.newVar()
		b.emit(ir.Instr{Kind: ir.KGlobalGet, Dest: dest, GlobalIndex: op.GlobalIdx})
		b.push(dest)
		return nil
	case wasmbin.OpGlobalSet:
		v := b.pop()
		b.emit(ir.Instr{Kind: ir.KGlobalSet, GlobalIndex: op.GlobalIdx, GlobalValue: v})
		return nil
	case wasmbin.OpLoad:
		addr := b.pop()
		dest := b.newVar()
		b.emit(ir.Instr{Kind: ir.KLoad, Dest: dest, MemType: op.ValType, Addr: addr, Offset: op.Mem.Offset, Width: op.Width, Sign: op.Sign})
		b.push(dest)
		return nil
	case wasmbin.OpStore:
		value := b.pop()
		addr := b.pop()
		b.emit(ir.Instr{Kind: ir.KStore, MemType: op.ValType, Addr: addr, Stored: value, Offset: op.Mem.Offset, Width: op.Width})
		return nil
	case wasmbin.OpMemorySize:
		dest := b.newVar()
		b.emit(ir.Instr{Kind: ir.KMemorySize, Dest: dest})
		b.push(dest)
		return nil
	case wasmbin.OpMemoryGrow:
		delta := b.pop()
		dest := b.newVar()
		b.emit(ir.Instr{Kind: ir.KMemoryGrow, Dest: dest, Delta: delta})
		b.push(dest)
		return nil
	case wasmbin.OpConst:
		dest := b.newVar()
		b.emit(ir.Instr{Kind: ir.KConst, Dest: dest, Value: op.Value})
		b.push(dest)
		return nil
	case wasmbin.OpCompare:
		rhs, lhs := b.pop(), b.pop()
		dest := b.newVar()
		b.emit(ir.Instr{Kind: ir.KBinOp, Dest: dest, Op: op.CompareOp, Lhs: lhs, Rhs: rhs})
		b.push(dest)
		return nil
	case wasmbin.OpBinary:
		rhs, lhs := b.pop(), b.pop()
		dest := b.newVar()
		b.emit(ir.Instr{Kind: ir.KBinOp, Dest: dest, Op: op.BinaryOp, Lhs: lhs, Rhs: rhs})
		b.push(dest)
		return nil
	case wasmbin.OpUnary:
		v := b.pop()
		dest := b.newVar()
		b.emit(ir.Instr{Kind: ir.KUnOp, Dest: dest, Uop: op.UnaryOp, Arg: v})
		b.push(dest)
		return nil
	case wasmbin.OpConvert:
		v := b.pop()
		dest := b.newVar()
		b.emit(ir.Instr{Kind: ir.KUnOp, Dest: dest, Uop: op.ConvertOp, Arg: v})
		b.push(dest)
		return nil
	default:
		return errors.Errorf("unsupported operator kind %d", op.Kind)
	}
}

func (b *Builder) handleBlockOrLoop(op wasmbin.Operator) error {
	endBlk := b.newBlockID()
	if op.Kind == wasmbin.OpLoop {
		startBlk := b.newBlockID()
		b.terminate(ir.Terminator{Kind: ir.TJump, Target: startBlk})
		b.startBlock(startBlk)
		f := controlFrame{kind: ctrlLoop, startBlk: startBlk, endBlk: endBlk, resultType: op.BlockType}
		if op.BlockType != nil {
			f.resultVar = b.newVar()
			f.hasResult = true
		}
		b.ctrlPush(f)
		return nil
	}
	f := controlFrame{kind: ctrlBlock, startBlk: b.currentBlock, endBlk: endBlk, resultType: op.BlockType}
	if op.BlockType != nil {
		f.resultVar = b.newVar()
		f.hasResult = true
	}
	b.ctrlPush(f)
	return nil
}

func (b *Builder) handleIf(op wasmbin.Operator) error {
	cond := b.pop()
	snapshot := cloneStack(b.stack)

	thenBlk := b.newBlockID()
	elseBlk := b.newBlockID()
	endBlk := b.newBlockID()

	b.terminate(ir.Terminator{Kind: ir.TBranchIf, Condition: cond, IfTrue: thenBlk, IfFalse: elseBlk})
	b.startBlock(thenBlk)

	f := controlFrame{
		kind: ctrlIf, endBlk: endBlk, elseBlk: elseBlk, hasElse: true,
		resultType: op.BlockType, stackSnapshot: snapshot,
	}
	if op.BlockType != nil {
		f.resultVar = b.newVar()
		f.hasResult = true
	}
	b.ctrlPush(f)
	return nil
}

func (b *Builder) handleElse() error {
	f := b.ctrlTop()
	if f.kind != ctrlIf {
		return errors.New("else without matching if")
	}
	if !b.unreachable {
		if f.hasResult {
			v := b.pop()
			b.emit(ir.Instr{Kind: ir.KAssign, Dest: f.resultVar, Src: v})
		}
		b.terminate(ir.Terminator{Kind: ir.TJump, Target: f.endBlk})
	}
	b.unreachable = false
	b.stack = cloneStack(f.stackSnapshot)
	f.elseStarted = true
	b.startBlock(f.elseBlk)
	return nil
}

func (b *Builder) handleEnd() error {
	f := b.ctrlPop()

	if f.kind == ctrlFunction {
		if !b.unreachable {
			var v *ir.VarId
			if f.resultType != nil {
				val := b.pop()
				v = &val
			}
			b.emitReturn(v)
		}
		return nil
	}

	// An `if` with no explicit `else` branches its false case straight to
	// elseBlk, which must still exist as a (possibly empty) block: if no
	// `else` operator ever started it, synthesize one that falls through
	// to endBlk. Optimizer pass 1 (empty-block elimination) cleans these
	// up.
	if f.kind == ctrlIf && !f.elseStarted {
		b.blocks = append(b.blocks, ir.Block{
			Id:         f.elseBlk,
			Label:      fmt.Sprintf("block_%d", f.elseBlk),
			Terminator: ir.Terminator{Kind: ir.TJump, Target: f.endBlk},
		})
	}

	if !b.unreachable {
		if f.hasResult {
			v := b.pop()
			b.emit(ir.Instr{Kind: ir.KAssign, Dest: f.resultVar, Src: v})
		}
		b.terminate(ir.Terminator{Kind: ir.TJump, Target: f.endBlk})
	}
	b.unreachable = false
	b.startBlock(f.endBlk)
	if f.hasResult {
		b.push(f.resultVar)
	}
	return nil
}

func (b *Builder) emitReturn(value *ir.VarId) {
	if value == nil {
		b.terminate(ir.Terminator{Kind: ir.TReturn, HasValue: false})
	} else {
		b.terminate(ir.Terminator{Kind: ir.TReturn, HasValue: true, Value: *value})
	}
	b.unreachable = true
}

func (b *Builder) handleBr(depth uint32) error {
	f, target, err := b.branchTarget(depth)
	if err != nil {
		return err
	}
	if f.kind != ctrlLoop && f.hasResult {
		v := b.pop()
		b.emit(ir.Instr{Kind: ir.KAssign, Dest: f.resultVar, Src: v})
	}
	b.terminate(ir.Terminator{Kind: ir.TJump, Target: target})
	b.unreachable = true
	return nil
}

func (b *Builder) handleBrIf(depth uint32) error {
	cond := b.pop()
	f, target, err := b.branchTarget(depth)
	if err != nil {
		return err
	}
	if f.kind != ctrlLoop && f.hasResult {
		// Peek, don't pop: br_if may not be taken, in which case the value
		// must remain on the stack for the fallthrough path.
		v := b.stack[len(b.stack)-1]
		b.emit(ir.Instr{Kind: ir.KAssign, Dest: f.resultVar, Src: v})
	}
	cont := b.newBlockID()
	b.terminate(ir.Terminator{Kind: ir.TBranchIf, Condition: cond, IfTrue: target, IfFalse: cont})
	b.startBlock(cont)
	return nil
}

func (b *Builder) handleBrTable(op wasmbin.Operator) error {
	index := b.pop()

	targets := make([]ir.BlockId, len(op.Targets))
	seen := map[ir.BlockId]bool{}
	assignOnce := func(f *controlFrame, target ir.BlockId) {
		if f.kind == ctrlLoop || !f.hasResult || seen[target] {
			return
		}
		seen[target] = true
		if len(b.stack) > 0 {
			v := b.stack[len(b.stack)-1]
			b.emit(ir.Instr{Kind: ir.KAssign, Dest: f.resultVar, Src: v})
		}
	}
	for i, d := range op.Targets {
		f, t, err := b.branchTarget(d)
		if err != nil {
			return err
		}
		targets[i] = t
		assignOnce(f, t)
	}
	defF, defTarget, err := b.branchTarget(op.Default)
	if err != nil {
		return err
	}
	assignOnce(defF, defTarget)

	// The value feeding any result_var above is left on the stack for
	// br_table's own semantics too (only one of the targets actually
	// executes); pop it now, matching br's stack effect.
	hasAnyResult := defF.hasResult
	for _, d := range op.Targets {
		f, _, _ := b.branchTarget(d)
		if f.hasResult {
			hasAnyResult = true
		}
	}
	if hasAnyResult && len(b.stack) > 0 {
		b.pop()
	}

	b.terminate(ir.Terminator{Kind: ir.TBranchTable, Index: index, Targets: targets, Default: defTarget})
	b.unreachable = true
	return nil
}

func (b *Builder) handleReturn() error {
	fnFrame := &b.ctrl[0]
	var value *ir.VarId
	if fnFrame.resultType != nil {
		v := b.pop()
		value = &v
	}
	b.emitReturn(value)
	return nil
}

func (b *Builder) handleCall(funcIdx uint32) error {
	if int(funcIdx) >= len(b.ctx.funcSigs) {
		return errors.Errorf("call: function index %d out of range", funcIdx)
	}
	s := b.ctx.funcSigs[funcIdx]
	args := make([]ir.VarId, s.ParamCount)
	for i := s.ParamCount - 1; i >= 0; i-- {
		args[i] = b.pop()
	}

	var dest ir.VarId
	if s.ReturnType != nil {
		dest = b.newVar()
	}

	if int(funcIdx) < b.ctx.numImportedFuncs {
		ref := b.ctx.funcImports[funcIdx]
		instr := ir.Instr{Kind: ir.KCallImport, ModuleName: ref.moduleName, FuncName: ref.funcName, Args: args}
		if s.ReturnType != nil {
			instr.Dest = dest
		}
		b.emit(instr)
	} else {
		localIdx := ir.LocalFuncIdx(int(funcIdx) - b.ctx.numImportedFuncs)
		instr := ir.Instr{Kind: ir.KCall, FuncIdx: localIdx, Args: args}
		if s.ReturnType != nil {
			instr.Dest = dest
		}
		b.emit(instr)
	}
	if s.ReturnType != nil {
		b.push(dest)
	}
	return nil
}

func (b *Builder) handleCallIndirect(typeIdx uint32) error {
	if int(typeIdx) >= len(b.ctx.typeSigs) {
		return errors.Errorf("call_indirect: type index %d out of range", typeIdx)
	}
	s := b.ctx.typeSigs[typeIdx]
	tableIdx := b.pop()
	args := make([]ir.VarId, s.ParamCount)
	for i := s.ParamCount - 1; i >= 0; i-- {
		args[i] = b.pop()
	}
	var dest ir.VarId
	if s.ReturnType != nil {
		dest = b.newVar()
	}
	instr := ir.Instr{Kind: ir.KCallIndirect, TypeIdx: ir.TypeIdx(typeIdx), TableIdx: tableIdx, Args: args}
	if s.ReturnType != nil {
		instr.Dest = dest
	}
	b.emit(instr)
	if s.ReturnType != nil {
		b.push(dest)
	}
	return nil
}
