// Package ir defines the control-flow-graph intermediate representation
// and its textual dump. Variables live in stack slots (alloca/load/store);
// expression results are named temporaries.
package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the IR type of a value.
type Type int

const (
	TypeVoid Type = iota
	TypeI32
	TypeF32
	TypePtr
	TypeLabel
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeI32:
		return "i32"
	case TypeF32:
		return "f32"
	case TypePtr:
		return "ptr"
	case TypeLabel:
		return "label"
	default:
		return "unknown"
	}
}

// Opcode enumerates IR operations.
type Opcode int

const (
	// Memory
	OpAlloca Opcode = iota
	OpLoad
	OpStore

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg

	// Comparison
	OpCmpEQ
	OpCmpNE
	OpCmpLT
	OpCmpLE
	OpCmpGT
	OpCmpGE

	// Logic
	OpAnd
	OpOr
	OpNot

	// Control flow
	OpJmp
	OpJmpIf
	OpCall
	OpRet

	// Conversion
	OpIntToFloat
	OpFloatToInt

	// Misc; defined for completeness, the builder never emits these
	OpPhi
	OpLabel
	OpComment
)

var opcodeNames = [...]string{
	OpAlloca:     "alloca",
	OpLoad:       "load",
	OpStore:      "store",
	OpAdd:        "add",
	OpSub:        "sub",
	OpMul:        "mul",
	OpDiv:        "div",
	OpMod:        "mod",
	OpNeg:        "neg",
	OpCmpEQ:      "cmp_eq",
	OpCmpNE:      "cmp_ne",
	OpCmpLT:      "cmp_lt",
	OpCmpLE:      "cmp_le",
	OpCmpGT:      "cmp_gt",
	OpCmpGE:      "cmp_ge",
	OpAnd:        "and",
	OpOr:         "or",
	OpNot:        "not",
	OpJmp:        "jmp",
	OpJmpIf:      "jmp_if",
	OpCall:       "call",
	OpRet:        "ret",
	OpIntToFloat: "int_to_float",
	OpFloatToInt: "float_to_int",
	OpPhi:        "phi",
	OpLabel:      "label",
	OpComment:    "comment",
}

func (op Opcode) String() string {
	if op >= 0 && int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "unknown"
}

// IsTerminator reports whether op ends a basic block.
func IsTerminator(op Opcode) bool {
	return op == OpJmp || op == OpRet
}

// IsPure reports whether op computes its result from its operands alone.
func IsPure(op Opcode) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpNeg,
		OpCmpEQ, OpCmpNE, OpCmpLT, OpCmpLE, OpCmpGT, OpCmpGE,
		OpAnd, OpOr, OpNot, OpIntToFloat, OpFloatToInt:
		return true
	default:
		return false
	}
}

// Value is an instruction operand: a constant, an identifier or a label.
type Value interface {
	Type() Type
	String() string
	isValue()
}

// IntConst is a 32-bit integer constant.
type IntConst struct{ Value int64 }

// FloatConst is a floating point constant.
type FloatConst struct{ Value float64 }

// Identifier names a stack slot, parameter or temporary.
type Identifier struct {
	Name string
	Ty   Type
}

// Label names a basic block as a jump target.
type Label struct{ Name string }

func (IntConst) isValue()    {}
func (FloatConst) isValue()  {}
func (*Identifier) isValue() {}
func (Label) isValue()       {}

func (c IntConst) Type() Type         { return TypeI32 }
func (c FloatConst) Type() Type       { return TypeF32 }
func (id *Identifier) Type() Type     { return id.Ty }
func (l Label) Type() Type            { return TypeLabel }
func (c IntConst) String() string     { return strconv.FormatInt(c.Value, 10) }
func (c FloatConst) String() string   { return strconv.FormatFloat(c.Value, 'f', 6, 64) }
func (id *Identifier) String() string { return "%" + id.Name }
func (l Label) String() string        { return l.Name + ":" }

// Instruction is a single IR operation. Callee is set for calls only.
type Instruction struct {
	Op       Opcode
	Result   *Identifier
	Operands []Value
	Callee   string
}

// NewInstruction creates an instruction.
func NewInstruction(op Opcode, result *Identifier, operands ...Value) *Instruction {
	return &Instruction{Op: op, Result: result, Operands: operands}
}

// Targets returns the names of the blocks this instruction may jump to.
func (in *Instruction) Targets() []string {
	var targets []string
	for _, op := range in.Operands {
		if l, ok := op.(Label); ok {
			targets = append(targets, l.Name)
		}
	}
	return targets
}

func (in *Instruction) String() string {
	var b strings.Builder

	if in.Result != nil {
		b.WriteString(in.Result.String())
		b.WriteString(" = ")
	}

	b.WriteString(in.Op.String())

	operands := make([]string, 0, len(in.Operands)+1)
	if in.Op == OpCall && in.Callee != "" {
		operands = append(operands, "@"+in.Callee)
	}
	for _, op := range in.Operands {
		operands = append(operands, op.String())
	}

	if len(operands) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(operands, ", "))
	}

	return b.String()
}

// BasicBlock is a labeled instruction sequence ending in a terminator.
type BasicBlock struct {
	Name         string
	Instructions []*Instruction
}

// Append adds an instruction at the end of the block.
func (bb *BasicBlock) Append(in *Instruction) {
	bb.Instructions = append(bb.Instructions, in)
}

// Last returns the final instruction, or nil for an empty block.
func (bb *BasicBlock) Last() *Instruction {
	if len(bb.Instructions) == 0 {
		return nil
	}
	return bb.Instructions[len(bb.Instructions)-1]
}

// IsTerminated reports whether the block ends in a terminator.
func (bb *BasicBlock) IsTerminated() bool {
	last := bb.Last()
	return last != nil && IsTerminator(last.Op)
}

// Successors returns the names of blocks control may flow to from bb.
func (bb *BasicBlock) Successors() []string {
	var succ []string
	for _, in := range bb.Instructions {
		if in.Op == OpJmp || in.Op == OpJmpIf {
			succ = append(succ, in.Targets()...)
		}
		if IsTerminator(in.Op) {
			break
		}
	}
	return succ
}

func (bb *BasicBlock) String() string {
	if bb == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", bb.Name)
	for _, in := range bb.Instructions {
		b.WriteString("  ")
		b.WriteString(in.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Param is a function parameter.
type Param struct {
	Name string
	Type Type
}

// Function is a list of basic blocks; the first block is the entry.
type Function struct {
	Name       string
	ReturnType Type
	Params     []Param
	Blocks     []*BasicBlock
}

// Block finds a block by name.
func (f *Function) Block(name string) *BasicBlock {
	for _, bb := range f.Blocks {
		if bb.Name == name {
			return bb
		}
	}
	return nil
}

// Entry returns the entry block, or nil for a function without blocks.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// InstructionCount returns the number of instructions over all blocks.
func (f *Function) InstructionCount() int {
	n := 0
	for _, bb := range f.Blocks {
		n += len(bb.Instructions)
	}
	return n
}

func (f *Function) String() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "define %s @%s(", f.ReturnType, f.Name)
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %%%s", p.Type, p.Name)
	}
	b.WriteString(") {\n")
	for _, bb := range f.Blocks {
		b.WriteString(bb.String())
	}
	b.WriteString("}\n")
	return b.String()
}

// Module is a compilation unit of IR.
type Module struct {
	Name      string
	Functions []*Function
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name, Functions: make([]*Function, 0)}
}

// Function finds a function by name.
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (m *Module) String() string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "; ModuleID = '%s'\n\n", m.Name)
	for _, f := range m.Functions {
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	return b.String()
}
