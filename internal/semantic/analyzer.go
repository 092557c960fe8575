package semantic

import (
	"fmt"

	"github.com/ZMcc18/minicompiler/internal/ast"
	"github.com/ZMcc18/minicompiler/internal/diagnostic"
	"github.com/ZMcc18/minicompiler/internal/lexer"
	"github.com/ZMcc18/minicompiler/internal/position"
)

// Analyzer checks scoping and typing rules. Expression handlers return the
// Type of the expression; statement handlers return nil.
//
// An Analyzer holds traversal state and must not be used concurrently.
type Analyzer struct {
	ast.BaseVisitor

	scopes      scopeStack
	inFunction  bool
	returnType  Type
	diagnostics []diagnostic.Diagnostic
}

// New creates an analyzer whose global frame holds the builtins.
func New() *Analyzer {
	a := &Analyzer{}
	a.reset()
	return a
}

// reset discards all state and seeds the global frame with print(int) -> void.
func (a *Analyzer) reset() {
	a.scopes.reset()
	a.inFunction = false
	a.returnType = TypeUnknown
	a.diagnostics = make([]diagnostic.Diagnostic, 0)

	a.scopes.define(&Symbol{
		Name:   "print",
		Type:   TypeVoid,
		Kind:   SymbolKindFunction,
		Params: []Type{TypeInt},
	})
}

// Analyze checks program and returns every diagnostic found. Each call
// starts from a fresh global frame.
func (a *Analyzer) Analyze(program *ast.Program) []diagnostic.Diagnostic {
	a.reset()
	if program != nil {
		program.Accept(a)
	}
	return a.diagnostics
}

// Diagnostics returns the diagnostics of the last Analyze call.
func (a *Analyzer) Diagnostics() []diagnostic.Diagnostic {
	return a.diagnostics
}

// HasErrors reports whether the last Analyze call found any error.
func (a *Analyzer) HasErrors() bool {
	for _, d := range a.diagnostics {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Lookup resolves name against the global frame.
func (a *Analyzer) Lookup(name string) *Symbol {
	return a.scopes.global().Lookup(name)
}

func (a *Analyzer) addError(pos position.Position, format string, args ...interface{}) {
	a.diagnostics = append(a.diagnostics,
		diagnostic.New(diagnostic.StageSemantic).At(pos).Messagef(format, args...).Build())
}

// typeOf visits expr and returns its type.
func (a *Analyzer) typeOf(expr ast.Expression) Type {
	if expr == nil {
		return TypeUnknown
	}
	t, _ := expr.Accept(a).(Type)
	return t
}

// ===== Program and Statements =====

func (a *Analyzer) VisitProgram(node *ast.Program) interface{} {
	for _, stmt := range node.Statements {
		stmt.Accept(a)
	}
	return nil
}

func (a *Analyzer) VisitExpressionStatement(node *ast.ExpressionStatement) interface{} {
	a.typeOf(node.Expression)
	return nil
}

func (a *Analyzer) VisitVarDeclaration(node *ast.VarDeclaration) interface{} {
	// Lookup walks the whole chain, so an inner declaration may not reuse an outer variable name.
	if existing := a.scopes.lookup(node.Name); existing != nil && existing.Kind == SymbolKindVariable {
		a.addError(node.Position, "Redefinition of variable '%s'", node.Name)
		return nil
	}

	declType := TypeFromName(node.Type)
	a.scopes.define(&Symbol{
		Name: node.Name,
		Type: declType,
		Kind: SymbolKindVariable,
		Pos:  node.Position,
	})

	if node.Initializer != nil {
		initType := a.typeOf(node.Initializer)
		if initType != TypeUnknown && !Compatible(initType, declType) {
			a.addError(node.Position, "Cannot initialize %s with %s", declType, initType)
		}
	}

	return nil
}

func (a *Analyzer) VisitBlockStatement(node *ast.BlockStatement) interface{} {
	a.scopes.push(ScopeKindBlock)
	defer a.scopes.pop()

	for _, stmt := range node.Statements {
		stmt.Accept(a)
	}
	return nil
}

func (a *Analyzer) VisitIfStatement(node *ast.IfStatement) interface{} {
	condType := a.typeOf(node.Condition)
	if condType != TypeUnknown && condType != TypeInt {
		a.addError(node.Position, "If condition must be an integer (boolean) expression")
	}

	node.Then.Accept(a)
	if node.Else != nil {
		node.Else.Accept(a)
	}
	return nil
}

func (a *Analyzer) VisitWhileStatement(node *ast.WhileStatement) interface{} {
	condType := a.typeOf(node.Condition)
	if condType != TypeUnknown && condType != TypeInt {
		a.addError(node.Position, "While condition must be an integer (boolean) expression")
	}

	node.Body.Accept(a)
	return nil
}

func (a *Analyzer) VisitReturnStatement(node *ast.ReturnStatement) interface{} {
	if !a.inFunction {
		a.addError(node.Position, "Return statement outside of function")
		return nil
	}

	if node.Value == nil {
		if a.returnType != TypeVoid {
			a.addError(node.Position, "Function returning %s must return a value", a.returnType)
		}
		return nil
	}

	valueType := a.typeOf(node.Value)
	if valueType != TypeUnknown && !Compatible(valueType, a.returnType) {
		a.addError(node.Position, "Cannot return %s from function returning %s", valueType, a.returnType)
	}
	return nil
}

func (a *Analyzer) VisitFunctionDeclaration(node *ast.FunctionDeclaration) interface{} {
	if a.scopes.lookup(node.Name) != nil {
		a.addError(node.Position, "Redefinition of function '%s'", node.Name)
		return nil
	}

	fn := &Symbol{
		Name:   node.Name,
		Type:   TypeFromName(node.ReturnType),
		Kind:   SymbolKindFunction,
		Pos:    node.Position,
		Params: make([]Type, 0, len(node.Parameters)),
	}
	for _, param := range node.Parameters {
		fn.Params = append(fn.Params, TypeFromName(param.Type))
	}

	// Defined before the body so the function can call itself.
	a.scopes.define(fn)

	prevIn, prevRet := a.inFunction, a.returnType
	a.inFunction, a.returnType = true, fn.Type

	a.scopes.push(ScopeKindFunction)
	for _, param := range node.Parameters {
		a.scopes.define(&Symbol{
			Name: param.Name,
			Type: TypeFromName(param.Type),
			Kind: SymbolKindVariable,
			Pos:  param.Position,
		})
	}

	if node.Body != nil {
		node.Body.Accept(a)
	}

	a.scopes.pop()
	a.inFunction, a.returnType = prevIn, prevRet
	return nil
}

// ===== Expressions =====

func (a *Analyzer) VisitIntegerLiteral(node *ast.IntegerLiteral) interface{} { return TypeInt }
func (a *Analyzer) VisitFloatLiteral(node *ast.FloatLiteral) interface{}     { return TypeFloat }
func (a *Analyzer) VisitStringLiteral(node *ast.StringLiteral) interface{}   { return TypeString }

func (a *Analyzer) VisitVariableExpression(node *ast.VariableExpression) interface{} {
	sym := a.scopes.lookup(node.Name)
	if sym == nil {
		a.addError(node.Position, "Undefined variable '%s'", node.Name)
		return TypeUnknown
	}

	if sym.Kind != SymbolKindVariable {
		a.addError(node.Position, "'%s' is not a variable", node.Name)
		return TypeUnknown
	}

	return sym.Type
}

func (a *Analyzer) VisitBinaryExpression(node *ast.BinaryExpression) interface{} {
	leftType := a.typeOf(node.Left)
	rightType := a.typeOf(node.Right)
	op := node.Operator

	switch op {
	case lexer.TokenPlus, lexer.TokenMinus, lexer.TokenMultiply, lexer.TokenDivide, lexer.TokenModulo:
		if leftType == TypeUnknown || rightType == TypeUnknown {
			return TypeUnknown
		}

		if !Compatible(leftType, rightType) && !Compatible(rightType, leftType) {
			a.addError(node.Position, "Type mismatch in binary expression: %s %s %s", leftType, op.Symbol(), rightType)
		}

		if op == lexer.TokenModulo && (leftType != TypeInt || rightType != TypeInt) {
			a.addError(node.Position, "Modulo operation requires integer operands")
		}

		return CommonType(leftType, rightType)

	case lexer.TokenEqual, lexer.TokenNotEqual, lexer.TokenLess, lexer.TokenLessEqual,
		lexer.TokenGreater, lexer.TokenGreaterEqual:
		if leftType != TypeUnknown && rightType != TypeUnknown &&
			!Compatible(leftType, rightType) && !Compatible(rightType, leftType) {
			a.addError(node.Position, "Type mismatch in comparison: %s %s %s", leftType, op.Symbol(), rightType)
		}
		return TypeInt

	case lexer.TokenAnd, lexer.TokenOr:
		if leftType != TypeUnknown && rightType != TypeUnknown &&
			(leftType != TypeInt || rightType != TypeInt) {
			a.addError(node.Position, "Logical operators require integer (boolean) operands")
		}
		return TypeInt

	case lexer.TokenAssign:
		if _, ok := node.Left.(*ast.VariableExpression); !ok {
			a.addError(node.Position, "Left side of assignment must be a variable")
			return TypeUnknown
		}

		if leftType != TypeUnknown && rightType != TypeUnknown && !Compatible(rightType, leftType) {
			a.addError(node.Position, "Cannot assign %s to %s", rightType, leftType)
		}
		return CommonType(leftType, rightType)
	}

	return TypeUnknown
}

func (a *Analyzer) VisitUnaryExpression(node *ast.UnaryExpression) interface{} {
	operandType := a.typeOf(node.Operand)
	if operandType == TypeUnknown {
		return TypeUnknown
	}

	switch node.Operator {
	case lexer.TokenMinus:
		if !operandType.IsNumeric() {
			a.addError(node.Position, "Unary minus requires numeric operand")
		}
	case lexer.TokenNot:
		if operandType != TypeInt {
			a.addError(node.Position, "Logical NOT requires integer (boolean) operand")
		}
	}

	return operandType
}

func (a *Analyzer) VisitCallExpression(node *ast.CallExpression) interface{} {
	sym := a.scopes.lookup(node.Callee)
	if sym == nil {
		a.addError(node.Position, "Undefined function '%s'", node.Callee)
		return TypeUnknown
	}

	if sym.Kind != SymbolKindFunction {
		a.addError(node.Position, "'%s' is not a function", node.Callee)
		return TypeUnknown
	}

	if len(node.Arguments) != len(sym.Params) {
		a.addError(node.Position, "Function '%s' expects %d arguments, but got %d",
			node.Callee, len(sym.Params), len(node.Arguments))
		return sym.Type
	}

	for i, arg := range node.Arguments {
		argType := a.typeOf(arg)
		if argType != TypeUnknown && !Compatible(argType, sym.Params[i]) {
			a.addError(arg.Pos(), "Argument %d of function '%s' expects %s, but got %s",
				i+1, node.Callee, sym.Params[i], argType)
		}
	}

	return sym.Type
}

// String summarizes the analyzer state, for debugging.
func (a *Analyzer) String() string {
	return fmt.Sprintf("Analyzer{depth: %d, diagnostics: %d}", a.scopes.depth(), len(a.diagnostics))
}
