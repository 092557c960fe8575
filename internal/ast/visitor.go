package ast

// Visitor has one handler per node kind. Handlers decide for themselves
// which children to recurse into.
type Visitor interface {
	VisitProgram(node *Program) interface{}

	// Expression visitors.
	VisitIntegerLiteral(node *IntegerLiteral) interface{}
	VisitFloatLiteral(node *FloatLiteral) interface{}
	VisitStringLiteral(node *StringLiteral) interface{}
	VisitVariableExpression(node *VariableExpression) interface{}
	VisitBinaryExpression(node *BinaryExpression) interface{}
	VisitUnaryExpression(node *UnaryExpression) interface{}
	VisitCallExpression(node *CallExpression) interface{}

	// Statement visitors.
	VisitExpressionStatement(node *ExpressionStatement) interface{}
	VisitVarDeclaration(node *VarDeclaration) interface{}
	VisitBlockStatement(node *BlockStatement) interface{}
	VisitIfStatement(node *IfStatement) interface{}
	VisitWhileStatement(node *WhileStatement) interface{}
	VisitReturnStatement(node *ReturnStatement) interface{}
	VisitFunctionDeclaration(node *FunctionDeclaration) interface{}
}

// BaseVisitor provides a default implementation of the Visitor interface
// that returns nil for all visits. Concrete visitors embed it and override
// only the methods they need.
type BaseVisitor struct{}

func (v *BaseVisitor) VisitProgram(node *Program) interface{}                         { return nil }
func (v *BaseVisitor) VisitIntegerLiteral(node *IntegerLiteral) interface{}           { return nil }
func (v *BaseVisitor) VisitFloatLiteral(node *FloatLiteral) interface{}               { return nil }
func (v *BaseVisitor) VisitStringLiteral(node *StringLiteral) interface{}             { return nil }
func (v *BaseVisitor) VisitVariableExpression(node *VariableExpression) interface{}   { return nil }
func (v *BaseVisitor) VisitBinaryExpression(node *BinaryExpression) interface{}       { return nil }
func (v *BaseVisitor) VisitUnaryExpression(node *UnaryExpression) interface{}         { return nil }
func (v *BaseVisitor) VisitCallExpression(node *CallExpression) interface{}           { return nil }
func (v *BaseVisitor) VisitExpressionStatement(node *ExpressionStatement) interface{} { return nil }
func (v *BaseVisitor) VisitVarDeclaration(node *VarDeclaration) interface{}           { return nil }
func (v *BaseVisitor) VisitBlockStatement(node *BlockStatement) interface{}           { return nil }
func (v *BaseVisitor) VisitIfStatement(node *IfStatement) interface{}                 { return nil }
func (v *BaseVisitor) VisitWhileStatement(node *WhileStatement) interface{}           { return nil }
func (v *BaseVisitor) VisitReturnStatement(node *ReturnStatement) interface{}         { return nil }
func (v *BaseVisitor) VisitFunctionDeclaration(node *FunctionDeclaration) interface{} { return nil }

// Children returns the direct children of node in source order. Absent
// optional children are omitted.
func Children(node Node) []Node {
	var children []Node

	add := func(n Node) {
		if n != nil {
			children = append(children, n)
		}
	}

	switch n := node.(type) {
	case *Program:
		for _, stmt := range n.Statements {
			add(stmt)
		}
	case *BinaryExpression:
		add(n.Left)
		add(n.Right)
	case *UnaryExpression:
		add(n.Operand)
	case *CallExpression:
		for _, arg := range n.Arguments {
			add(arg)
		}
	case *ExpressionStatement:
		add(n.Expression)
	case *VarDeclaration:
		if n.Initializer != nil {
			add(n.Initializer)
		}
	case *BlockStatement:
		for _, stmt := range n.Statements {
			add(stmt)
		}
	case *IfStatement:
		add(n.Condition)
		add(n.Then)
		if n.Else != nil {
			add(n.Else)
		}
	case *WhileStatement:
		add(n.Condition)
		add(n.Body)
	case *ReturnStatement:
		if n.Value != nil {
			add(n.Value)
		}
	case *FunctionDeclaration:
		if n.Body != nil {
			add(n.Body)
		}
	}

	return children
}

// Inspect traverses the tree rooted at node in pre-order. If f returns
// false the children of that node are skipped.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}

	for _, child := range Children(node) {
		Inspect(child, f)
	}
}

// Stats counts nodes by kind, keyed by the Go type name without package.
func Stats(node Node) map[string]int {
	counts := make(map[string]int)

	Inspect(node, func(n Node) bool {
		counts[kindName(n)]++
		return true
	})

	return counts
}

func kindName(n Node) string {
	switch n.(type) {
	case *Program:
		return "Program"
	case *IntegerLiteral:
		return "IntegerLiteral"
	case *FloatLiteral:
		return "FloatLiteral"
	case *StringLiteral:
		return "StringLiteral"
	case *VariableExpression:
		return "VariableExpression"
	case *BinaryExpression:
		return "BinaryExpression"
	case *UnaryExpression:
		return "UnaryExpression"
	case *CallExpression:
		return "CallExpression"
	case *ExpressionStatement:
		return "ExpressionStatement"
	case *VarDeclaration:
		return "VarDeclaration"
	case *BlockStatement:
		return "BlockStatement"
	case *IfStatement:
		return "IfStatement"
	case *WhileStatement:
		return "WhileStatement"
	case *ReturnStatement:
		return "ReturnStatement"
	case *FunctionDeclaration:
		return "FunctionDeclaration"
	default:
		return "Unknown"
	}
}
