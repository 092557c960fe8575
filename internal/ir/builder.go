package ir

import (
	"fmt"

	"github.com/ZMcc18/minicompiler/internal/ast"
	"github.com/ZMcc18/minicompiler/internal/diagnostic"
	"github.com/ZMcc18/minicompiler/internal/lexer"
	"github.com/ZMcc18/minicompiler/internal/position"
)

// Builder lowers an AST to IR. Expression handlers return the Value they
// produce; statement handlers return nil.
//
// A Builder holds traversal state and counters and must not be used
// concurrently. Each Build call starts from scratch.
type Builder struct {
	ast.BaseVisitor

	moduleName string
	module     *Module

	// Current function state
	function *Function
	block    *BasicBlock
	symbols  map[string]*Identifier // flat per-function name map
	names    map[string]bool        // identifiers taken in the current function

	tempCounter  int
	labelCounter int

	diagnostics []diagnostic.Diagnostic
}

// functionState is saved around a nested function declaration.
type functionState struct {
	function *Function
	block    *BasicBlock
	symbols  map[string]*Identifier
	names    map[string]bool
}

// NewBuilder creates a builder producing modules named moduleName.
func NewBuilder(moduleName string) *Builder {
	return &Builder{
		moduleName:  moduleName,
		symbols:     make(map[string]*Identifier),
		names:       make(map[string]bool),
		diagnostics: make([]diagnostic.Diagnostic, 0),
	}
}

// Build lowers program into a new Module. Counters restart at zero, so
// building the same program twice yields identical text.
func (b *Builder) Build(program *ast.Program) *Module {
	b.module = NewModule(b.moduleName)
	b.function = nil
	b.block = nil
	b.symbols = make(map[string]*Identifier)
	b.names = make(map[string]bool)
	b.tempCounter = 0
	b.labelCounter = 0
	b.diagnostics = make([]diagnostic.Diagnostic, 0)

	if program != nil {
		program.Accept(b)
	}

	return b.module
}

// Diagnostics returns the diagnostics of the last Build call.
func (b *Builder) Diagnostics() []diagnostic.Diagnostic {
	return b.diagnostics
}

func (b *Builder) errorf(pos position.Position, format string, args ...interface{}) {
	b.diagnostics = append(b.diagnostics,
		diagnostic.New(diagnostic.StageIRGen).At(pos).Messagef(format, args...).Build())
}

func (b *Builder) warnf(pos position.Position, format string, args ...interface{}) {
	b.diagnostics = append(b.diagnostics,
		diagnostic.New(diagnostic.StageIRGen).Warning().At(pos).Messagef(format, args...).Build())
}

// ===== Helpers =====

// emit appends an instruction to the current block
func (b *Builder) emit(op Opcode, result *Identifier, operands ...Value) *Instruction {
	in := NewInstruction(op, result, operands...)
	if b.block != nil {
		b.block.Append(in)
	}
	return in
}

// newBlock creates a block and appends it to the current function
func (b *Builder) newBlock(name string) *BasicBlock {
	bb := &BasicBlock{Name: name, Instructions: make([]*Instruction, 0)}
	if b.function != nil {
		b.function.Blocks = append(b.function.Blocks, bb)
	}
	return bb
}

// newTemp returns a fresh temporary %tN, skipping names already taken
// by variables of the current function
func (b *Builder) newTemp(typ Type) *Identifier {
	name := fmt.Sprintf("t%d", b.tempCounter)
	b.tempCounter++
	for b.names[name] {
		name = fmt.Sprintf("t%d", b.tempCounter)
		b.tempCounter++
	}
	b.names[name] = true
	return &Identifier{Name: name, Ty: typ}
}

// newSlot binds a source name to a new stack slot. A slot whose name is
// already taken by a temporary gets a numeric suffix.
func (b *Builder) newSlot(name string, typ Type) *Identifier {
	unique := name
	for n := 1; b.names[unique]; n++ {
		unique = fmt.Sprintf("%s.%d", name, n)
	}
	b.names[unique] = true

	slot := &Identifier{Name: unique, Ty: typ}
	b.symbols[name] = slot
	return slot
}

// newLabel returns prefix.N from the shared label counter
func (b *Builder) newLabel(prefix string) string {
	label := fmt.Sprintf("%s.%d", prefix, b.labelCounter)
	b.labelCounter++
	return label
}

// typeFromName maps a source type keyword to an IR type
func (b *Builder) typeFromName(name string, pos position.Position) Type {
	switch name {
	case "int":
		return TypeI32
	case "float":
		return TypeF32
	case "void":
		return TypeVoid
	default:
		b.warnf(pos, "Unknown type '%s', defaulting to i32.", name)
		return TypeI32
	}
}

// lower visits expr and returns the value it produced
func (b *Builder) lower(expr ast.Expression) Value {
	if expr != nil {
		if v, ok := expr.Accept(b).(Value); ok {
			return v
		}
	}

	pos := position.Position{}
	if expr != nil {
		pos = expr.Pos()
	}
	b.errorf(pos, "Value stack is empty.")
	return IntConst{Value: 0}
}

// ===== Program and Declarations =====

func (b *Builder) VisitProgram(node *ast.Program) interface{} {
	for _, stmt := range node.Statements {
		switch s := stmt.(type) {
		case *ast.FunctionDeclaration:
			s.Accept(b)
		case *ast.VarDeclaration:
			b.warnf(s.Position, "Global variable '%s' is not lowered.", s.Name)
		default:
			b.warnf(stmt.Pos(), "Top-level statement is not lowered.")
		}
	}
	return nil
}

func (b *Builder) VisitFunctionDeclaration(node *ast.FunctionDeclaration) interface{} {
	var saved *functionState
	if b.function != nil {
		saved = &functionState{function: b.function, block: b.block, symbols: b.symbols, names: b.names}
	}

	fn := &Function{
		Name:       node.Name,
		ReturnType: b.typeFromName(node.ReturnType, node.Position),
		Params:     make([]Param, 0, len(node.Parameters)),
		Blocks:     make([]*BasicBlock, 0),
	}
	for _, p := range node.Parameters {
		fn.Params = append(fn.Params, Param{Name: p.Name, Type: b.typeFromName(p.Type, p.Position)})
	}
	b.module.Functions = append(b.module.Functions, fn)

	b.function = fn
	b.symbols = make(map[string]*Identifier)
	b.names = make(map[string]bool)
	b.block = b.newBlock("entry")

	// Each parameter gets its own slot, initialized from the incoming value.
	for _, p := range fn.Params {
		slot := b.newSlot(p.Name, p.Type)
		b.emit(OpAlloca, slot)
		b.emit(OpStore, nil, &Identifier{Name: "param." + p.Name, Ty: p.Type}, slot)
	}

	if node.Body != nil {
		node.Body.Accept(b)
	}

	b.ensureFunctionReturn(fn)

	if saved != nil {
		b.function, b.block, b.symbols, b.names = saved.function, saved.block, saved.symbols, saved.names
	} else {
		b.function, b.block = nil, nil
	}
	return nil
}

// ensureFunctionReturn appends the default return to every block that is
// empty or does not end in a terminator
func (b *Builder) ensureFunctionReturn(fn *Function) {
	for _, bb := range fn.Blocks {
		if bb.IsTerminated() {
			continue
		}
		if fn.ReturnType == TypeVoid {
			bb.Append(NewInstruction(OpRet, nil))
		} else {
			bb.Append(NewInstruction(OpRet, nil, IntConst{Value: 0}))
		}
	}
}

// ===== Statements =====

func (b *Builder) VisitVarDeclaration(node *ast.VarDeclaration) interface{} {
	if b.function == nil {
		b.warnf(node.Position, "Global variable '%s' is not lowered.", node.Name)
		return nil
	}

	// A repeated name aliases the existing slot.
	slot, ok := b.symbols[node.Name]
	if !ok {
		slot = b.newSlot(node.Name, b.typeFromName(node.Type, node.Position))
		b.emit(OpAlloca, slot)
	}

	if node.Initializer != nil {
		init := b.lower(node.Initializer)
		b.emit(OpStore, nil, init, slot)
	}
	return nil
}

func (b *Builder) VisitExpressionStatement(node *ast.ExpressionStatement) interface{} {
	b.lower(node.Expression)
	return nil
}

func (b *Builder) VisitBlockStatement(node *ast.BlockStatement) interface{} {
	for _, stmt := range node.Statements {
		stmt.Accept(b)
	}
	return nil
}

func (b *Builder) VisitIfStatement(node *ast.IfStatement) interface{} {
	thenLabel := b.newLabel("then")
	elseLabel := b.newLabel("else")
	endLabel := b.newLabel("endif")

	cond := b.lower(node.Condition)
	b.emit(OpJmpIf, nil, cond, Label{Name: thenLabel})
	b.emit(OpJmp, nil, Label{Name: elseLabel})

	b.block = b.newBlock(thenLabel)
	node.Then.Accept(b)
	b.emit(OpJmp, nil, Label{Name: endLabel})

	// The else block exists even without an else branch.
	b.block = b.newBlock(elseLabel)
	if node.Else != nil {
		node.Else.Accept(b)
	}
	b.emit(OpJmp, nil, Label{Name: endLabel})

	b.block = b.newBlock(endLabel)
	return nil
}

func (b *Builder) VisitWhileStatement(node *ast.WhileStatement) interface{} {
	condLabel := b.newLabel("while.cond")
	bodyLabel := b.newLabel("while.body")
	endLabel := b.newLabel("while.end")

	b.emit(OpJmp, nil, Label{Name: condLabel})

	b.block = b.newBlock(condLabel)
	cond := b.lower(node.Condition)
	b.emit(OpJmpIf, nil, cond, Label{Name: bodyLabel})
	b.emit(OpJmp, nil, Label{Name: endLabel})

	b.block = b.newBlock(bodyLabel)
	node.Body.Accept(b)
	b.emit(OpJmp, nil, Label{Name: condLabel})

	b.block = b.newBlock(endLabel)
	return nil
}

func (b *Builder) VisitReturnStatement(node *ast.ReturnStatement) interface{} {
	if node.Value == nil {
		b.emit(OpRet, nil)
		return nil
	}

	value := b.lower(node.Value)
	b.emit(OpRet, nil, value)
	return nil
}

// ===== Expressions =====

func (b *Builder) VisitIntegerLiteral(node *ast.IntegerLiteral) interface{} {
	return IntConst{Value: node.Value}
}

func (b *Builder) VisitFloatLiteral(node *ast.FloatLiteral) interface{} {
	return FloatConst{Value: node.Value}
}

func (b *Builder) VisitStringLiteral(node *ast.StringLiteral) interface{} {
	b.warnf(node.Position, "String literals are not supported in IR.")
	return IntConst{Value: 0}
}

func (b *Builder) VisitVariableExpression(node *ast.VariableExpression) interface{} {
	slot, ok := b.symbols[node.Name]
	if !ok {
		b.errorf(node.Position, "Variable '%s' not found.", node.Name)
		return IntConst{Value: 0}
	}

	temp := b.newTemp(slot.Ty)
	b.emit(OpLoad, temp, slot)
	return temp
}

var binaryOpcodes = map[lexer.TokenType]Opcode{
	lexer.TokenPlus:         OpAdd,
	lexer.TokenMinus:        OpSub,
	lexer.TokenMultiply:     OpMul,
	lexer.TokenDivide:       OpDiv,
	lexer.TokenModulo:       OpMod,
	lexer.TokenEqual:        OpCmpEQ,
	lexer.TokenNotEqual:     OpCmpNE,
	lexer.TokenLess:         OpCmpLT,
	lexer.TokenLessEqual:    OpCmpLE,
	lexer.TokenGreater:      OpCmpGT,
	lexer.TokenGreaterEqual: OpCmpGE,
	lexer.TokenAnd:          OpAnd,
	lexer.TokenOr:           OpOr,
}

func (b *Builder) VisitBinaryExpression(node *ast.BinaryExpression) interface{} {
	if node.Operator == lexer.TokenAssign {
		return b.lowerAssignment(node)
	}

	left := b.lower(node.Left)
	right := b.lower(node.Right)

	op, ok := binaryOpcodes[node.Operator]
	if !ok {
		b.errorf(node.Position, "Unsupported binary operator.")
		return left
	}

	temp := b.newTemp(left.Type())
	b.emit(op, temp, left, right)
	return temp
}

// lowerAssignment stores the right operand into the target slot; the
// assignment's value is the stored value
func (b *Builder) lowerAssignment(node *ast.BinaryExpression) Value {
	value := b.lower(node.Right)

	if target, ok := node.Left.(*ast.VariableExpression); ok {
		if slot, found := b.symbols[target.Name]; found {
			b.emit(OpStore, nil, value, slot)
			return value
		}
	}

	b.errorf(node.Position, "Invalid assignment target.")
	return value
}

func (b *Builder) VisitUnaryExpression(node *ast.UnaryExpression) interface{} {
	operand := b.lower(node.Operand)

	var op Opcode
	switch node.Operator {
	case lexer.TokenMinus:
		op = OpNeg
	case lexer.TokenNot:
		op = OpNot
	default:
		b.errorf(node.Position, "Unsupported unary operator.")
		return operand
	}

	temp := b.newTemp(operand.Type())
	b.emit(op, temp, operand)
	return temp
}

func (b *Builder) VisitCallExpression(node *ast.CallExpression) interface{} {
	args := make([]Value, 0, len(node.Arguments))
	for _, arg := range node.Arguments {
		args = append(args, b.lower(arg))
	}

	temp := b.newTemp(TypeI32)
	call := b.emit(OpCall, temp, args...)
	call.Callee = node.Callee
	return temp
}
