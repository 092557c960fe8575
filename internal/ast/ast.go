// Package ast defines the syntax tree produced by the parser.
// Every node owns its children exclusively and records the position of the
// token it was built from, so later stages can report precise diagnostics.
package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZMcc18/minicompiler/internal/lexer"
	"github.com/ZMcc18/minicompiler/internal/position"
)

// Node is the base interface for all AST nodes
type Node interface {
	// Pos returns the source position of the node
	Pos() position.Position
	// String returns a human-readable representation of the node
	String() string
	// Accept implements the visitor pattern for AST traversal
	Accept(visitor Visitor) interface{}
}

// Statement represents all statement nodes in the AST
type Statement interface {
	Node
	statementNode() // Marker method to distinguish statements
}

// Expression represents all expression nodes in the AST
type Expression interface {
	Node
	expressionNode() // Marker method to distinguish expressions
}

// ===== Program Structure =====

// Program represents the root of the AST: the ordered top-level statements of one source file
type Program struct {
	Statements []Statement
}

func (p *Program) Pos() position.Position {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return position.Position{}
}
func (p *Program) String() string {
	parts := make([]string, 0, len(p.Statements))
	for _, stmt := range p.Statements {
		parts = append(parts, stmt.String())
	}
	return strings.Join(parts, "\n")
}
func (p *Program) Accept(visitor Visitor) interface{} { return visitor.VisitProgram(p) }

// ===== Expressions =====

// IntegerLiteral represents a 32-bit integer constant
type IntegerLiteral struct {
	Position position.Position
	Value    int64
}

func (i *IntegerLiteral) Pos() position.Position             { return i.Position }
func (i *IntegerLiteral) expressionNode()                    {}
func (i *IntegerLiteral) String() string                     { return strconv.FormatInt(i.Value, 10) }
func (i *IntegerLiteral) Accept(visitor Visitor) interface{} { return visitor.VisitIntegerLiteral(i) }

// FloatLiteral represents a floating point constant
type FloatLiteral struct {
	Position position.Position
	Value    float64
}

func (f *FloatLiteral) Pos() position.Position { return f.Position }
func (f *FloatLiteral) expressionNode()        {}
func (f *FloatLiteral) String() string {
	s := strconv.FormatFloat(f.Value, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
func (f *FloatLiteral) Accept(visitor Visitor) interface{} { return visitor.VisitFloatLiteral(f) }

// StringLiteral represents a string constant; Value excludes the quotes
type StringLiteral struct {
	Position position.Position
	Value    string
}

func (s *StringLiteral) Pos() position.Position             { return s.Position }
func (s *StringLiteral) expressionNode()                    {}
func (s *StringLiteral) String() string                     { return strconv.Quote(s.Value) }
func (s *StringLiteral) Accept(visitor Visitor) interface{} { return visitor.VisitStringLiteral(s) }

// VariableExpression represents a reference to a named variable
type VariableExpression struct {
	Position position.Position
	Name     string
}

func (v *VariableExpression) Pos() position.Position { return v.Position }
func (v *VariableExpression) expressionNode()        {}
func (v *VariableExpression) String() string         { return v.Name }
func (v *VariableExpression) Accept(visitor Visitor) interface{} {
	return visitor.VisitVariableExpression(v)
}

// BinaryExpression represents a binary operation.
// Assignment is a binary expression with operator ASSIGN whose Left is a *VariableExpression.
type BinaryExpression struct {
	Position position.Position
	Left     Expression
	Operator lexer.TokenType
	Right    Expression
}

func (b *BinaryExpression) Pos() position.Position { return b.Position }
func (b *BinaryExpression) expressionNode()        {}
func (b *BinaryExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Operator.Symbol(), b.Right)
}
func (b *BinaryExpression) Accept(visitor Visitor) interface{} {
	return visitor.VisitBinaryExpression(b)
}

// IsAssignment reports whether the expression is an assignment
func (b *BinaryExpression) IsAssignment() bool { return b.Operator == lexer.TokenAssign }

// UnaryExpression represents a prefix operation (- or !)
type UnaryExpression struct {
	Position position.Position
	Operator lexer.TokenType
	Operand  Expression
}

func (u *UnaryExpression) Pos() position.Position { return u.Position }
func (u *UnaryExpression) expressionNode()        {}
func (u *UnaryExpression) String() string {
	return fmt.Sprintf("(%s%s)", u.Operator.Symbol(), u.Operand)
}
func (u *UnaryExpression) Accept(visitor Visitor) interface{} { return visitor.VisitUnaryExpression(u) }

// CallExpression represents a call of a named function
type CallExpression struct {
	Position  position.Position
	Callee    string
	Arguments []Expression
}

func (c *CallExpression) Pos() position.Position { return c.Position }
func (c *CallExpression) expressionNode()        {}
func (c *CallExpression) String() string {
	args := make([]string, 0, len(c.Arguments))
	for _, arg := range c.Arguments {
		args = append(args, arg.String())
	}
	return fmt.Sprintf("%s(%s)", c.Callee, strings.Join(args, ", "))
}
func (c *CallExpression) Accept(visitor Visitor) interface{} { return visitor.VisitCallExpression(c) }

// ===== Statements =====

// ExpressionStatement represents an expression evaluated for its effect
type ExpressionStatement struct {
	Position   position.Position
	Expression Expression
}

func (e *ExpressionStatement) Pos() position.Position { return e.Position }
func (e *ExpressionStatement) statementNode()         {}
func (e *ExpressionStatement) String() string         { return e.Expression.String() + ";" }
func (e *ExpressionStatement) Accept(visitor Visitor) interface{} {
	return visitor.VisitExpressionStatement(e)
}

// VarDeclaration represents a variable declaration with an optional initializer
type VarDeclaration struct {
	Position    position.Position
	Type        string // "int" or "float"
	Name        string
	Initializer Expression // nil when absent
}

func (v *VarDeclaration) Pos() position.Position { return v.Position }
func (v *VarDeclaration) statementNode()         {}
func (v *VarDeclaration) String() string {
	if v.Initializer != nil {
		return fmt.Sprintf("%s %s = %s;", v.Type, v.Name, v.Initializer)
	}
	return fmt.Sprintf("%s %s;", v.Type, v.Name)
}
func (v *VarDeclaration) Accept(visitor Visitor) interface{} { return visitor.VisitVarDeclaration(v) }

// BlockStatement represents a braced statement list
type BlockStatement struct {
	Position   position.Position
	Statements []Statement
}

func (b *BlockStatement) Pos() position.Position { return b.Position }
func (b *BlockStatement) statementNode()         {}
func (b *BlockStatement) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for _, stmt := range b.Statements {
		sb.WriteString(" ")
		sb.WriteString(stmt.String())
	}
	sb.WriteString(" }")
	return sb.String()
}
func (b *BlockStatement) Accept(visitor Visitor) interface{} { return visitor.VisitBlockStatement(b) }

// IfStatement represents a conditional with an optional else branch
type IfStatement struct {
	Position  position.Position
	Condition Expression
	Then      Statement
	Else      Statement // nil when absent
}

func (i *IfStatement) Pos() position.Position { return i.Position }
func (i *IfStatement) statementNode()         {}
func (i *IfStatement) String() string {
	s := fmt.Sprintf("if (%s) %s", i.Condition, i.Then)
	if i.Else != nil {
		s += " else " + i.Else.String()
	}
	return s
}
func (i *IfStatement) Accept(visitor Visitor) interface{} { return visitor.VisitIfStatement(i) }

// WhileStatement represents a pre-tested loop
type WhileStatement struct {
	Position  position.Position
	Condition Expression
	Body      Statement
}

func (w *WhileStatement) Pos() position.Position { return w.Position }
func (w *WhileStatement) statementNode()         {}
func (w *WhileStatement) String() string {
	return fmt.Sprintf("while (%s) %s", w.Condition, w.Body)
}
func (w *WhileStatement) Accept(visitor Visitor) interface{} { return visitor.VisitWhileStatement(w) }

// ReturnStatement represents a return with an optional value
type ReturnStatement struct {
	Position position.Position
	Value    Expression // nil for a bare return
}

func (r *ReturnStatement) Pos() position.Position { return r.Position }
func (r *ReturnStatement) statementNode()         {}
func (r *ReturnStatement) String() string {
	if r.Value != nil {
		return fmt.Sprintf("return %s;", r.Value)
	}
	return "return;"
}
func (r *ReturnStatement) Accept(visitor Visitor) interface{} { return visitor.VisitReturnStatement(r) }

// Parameter represents one function parameter
type Parameter struct {
	Position position.Position
	Type     string
	Name     string
}

func (p Parameter) String() string { return p.Type + " " + p.Name }

// FunctionDeclaration represents a function definition
type FunctionDeclaration struct {
	Position   position.Position
	ReturnType string // "int", "float" or "void"
	Name       string
	Parameters []Parameter
	Body       *BlockStatement
}

func (f *FunctionDeclaration) Pos() position.Position { return f.Position }
func (f *FunctionDeclaration) statementNode()         {}
func (f *FunctionDeclaration) String() string {
	params := make([]string, 0, len(f.Parameters))
	for _, p := range f.Parameters {
		params = append(params, p.String())
	}
	body := "{ }"
	if f.Body != nil {
		body = f.Body.String()
	}
	return fmt.Sprintf("%s %s(%s) %s", f.ReturnType, f.Name, strings.Join(params, ", "), body)
}
func (f *FunctionDeclaration) Accept(visitor Visitor) interface{} {
	return visitor.VisitFunctionDeclaration(f)
}
