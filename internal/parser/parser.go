// Package parser implements the recursive descent parser.
// Syntax errors never abort a parse: each declaration is guarded, a failed
// declaration is dropped and the parser resynchronizes at the next statement
// boundary.
package parser

import (
	"fmt"
	"strconv"

	"github.com/ZMcc18/minicompiler/internal/ast"
	"github.com/ZMcc18/minicompiler/internal/diagnostic"
	"github.com/ZMcc18/minicompiler/internal/lexer"
	"github.com/ZMcc18/minicompiler/internal/position"
)

// maxArity caps both call arguments and function parameters.
const maxArity = 255

// Parser represents the recursive descent parser
type Parser struct {
	tokens  []lexer.Token
	current int
	errors  []error
}

// ParseError represents a parsing error anchored at a token
type ParseError struct {
	Pos     position.Position
	Lexeme  string
	AtEnd   bool
	Message string
}

func (e *ParseError) Error() string {
	if e.AtEnd {
		return fmt.Sprintf("Error at end of file: %s", e.Message)
	}
	return fmt.Sprintf("Error at '%s': %s", e.Lexeme, e.Message)
}

// New creates a new parser over tokens. A missing trailing EOF is supplied.
func New(tokens []lexer.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokenEOF {
		eof := lexer.Token{Type: lexer.TokenEOF, Pos: position.Position{Line: 1, Column: 1}}
		if len(tokens) > 0 {
			eof.Pos = tokens[len(tokens)-1].Pos
		}
		tokens = append(tokens[:len(tokens):len(tokens)], eof)
	}

	return &Parser{
		tokens: tokens,
		errors: make([]error, 0),
	}
}

// Parse parses tokens into a program. The program is always returned,
// possibly partial; the error list holds every syntax error in source order.
func Parse(tokens []lexer.Token) (*ast.Program, []error) {
	p := New(tokens)
	program := p.ParseProgram()
	return program, p.Errors()
}

// Errors returns the syntax errors recorded so far
func (p *Parser) Errors() []error {
	return p.errors
}

// Diagnostics converts parse errors into syntax-stage diagnostics.
func Diagnostics(errs []error) []diagnostic.Diagnostic {
	out := make([]diagnostic.Diagnostic, 0, len(errs))
	for _, err := range errs {
		b := diagnostic.New(diagnostic.StageSyntax).Message(err.Error())
		if pe, ok := err.(*ParseError); ok {
			b.At(pe.Pos)
		}
		out = append(out, b.Build())
	}
	return out
}

// ====== Token Helpers ======

// peek returns the current (not yet consumed) token
func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

// peekAt looks ahead n tokens past the current one, clamped to EOF
func (p *Parser) peekAt(n int) lexer.Token {
	if p.current+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+n]
}

// previous returns the most recently consumed token
func (p *Parser) previous() lexer.Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}

// advance consumes the current token and returns it
func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

// currentTokenIs checks if the current token is of the given type
func (p *Parser) currentTokenIs(tokenType lexer.TokenType) bool {
	return p.peek().Type == tokenType
}

// match consumes the current token if it has one of the given types
func (p *Parser) match(tokenTypes ...lexer.TokenType) bool {
	for _, tokenType := range tokenTypes {
		if p.currentTokenIs(tokenType) {
			p.advance()
			return true
		}
	}
	return false
}

// consume advances past a token of the expected type or returns a ParseError
func (p *Parser) consume(tokenType lexer.TokenType, message string) (lexer.Token, error) {
	if p.currentTokenIs(tokenType) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.newError(p.peek(), message)
}

// newError builds a ParseError anchored at tok
func (p *Parser) newError(tok lexer.Token, message string) *ParseError {
	return &ParseError{
		Pos:     tok.Pos,
		Lexeme:  tok.Lexeme,
		AtEnd:   tok.Type == lexer.TokenEOF,
		Message: message,
	}
}

// addError records an error without unwinding the current rule
func (p *Parser) addError(tok lexer.Token, message string) {
	p.errors = append(p.errors, p.newError(tok, message))
}

// synchronize discards tokens until a likely statement boundary
func (p *Parser) synchronize() {
	p.advance()

	for !p.isAtEnd() {
		if p.previous().Type == lexer.TokenSemicolon {
			return
		}

		switch p.peek().Type {
		case lexer.TokenInt, lexer.TokenFloat, lexer.TokenIf, lexer.TokenWhile, lexer.TokenReturn:
			return
		}

		p.advance()
	}
}

// ====== Grammar Rules ======

// ParseProgram parses declarations until EOF
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: make([]ast.Statement, 0)}

	for !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
	}

	return program
}

// declaration is the recovery point: on error the declaration is dropped
func (p *Parser) declaration() ast.Statement {
	stmt, err := p.parseDeclaration()
	if err != nil {
		p.errors = append(p.errors, err)
		p.synchronize()
		return nil
	}
	return stmt
}

// parseDeclaration dispatches on the leading tokens of a declaration
func (p *Parser) parseDeclaration() (ast.Statement, error) {
	if (p.currentTokenIs(lexer.TokenInt) || p.currentTokenIs(lexer.TokenFloat)) &&
		p.peekAt(1).Type == lexer.TokenIdentifier && p.peekAt(2).Type == lexer.TokenLeftParen {
		typeTok := p.advance()
		return p.parseFunctionDeclaration(typeTok)
	}

	if p.match(lexer.TokenInt, lexer.TokenFloat) {
		return p.parseVarDeclaration(p.previous())
	}

	if p.match(lexer.TokenVoid) {
		return p.parseFunctionDeclaration(p.previous())
	}

	return p.parseStatement()
}

// parseFunctionDeclaration parses a function after its return type
func (p *Parser) parseFunctionDeclaration(typeTok lexer.Token) (ast.Statement, error) {
	name, err := p.consume(lexer.TokenIdentifier, "Expect function name.")
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(lexer.TokenLeftParen, "Expect '(' after function name."); err != nil {
		return nil, err
	}

	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(lexer.TokenRightParen, "Expect ')' after parameters."); err != nil {
		return nil, err
	}

	lbrace, err := p.consume(lexer.TokenLeftBrace, "Expect '{' before function body.")
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlock(lbrace)
	if err != nil {
		return nil, err
	}

	return &ast.FunctionDeclaration{
		Position:   typeTok.Pos,
		ReturnType: typeTok.Lexeme,
		Name:       name.Lexeme,
		Parameters: params,
		Body:       body,
	}, nil
}

// parseParameterList parses comma-separated typed parameters
func (p *Parser) parseParameterList() ([]ast.Parameter, error) {
	params := make([]ast.Parameter, 0)
	if p.currentTokenIs(lexer.TokenRightParen) {
		return params, nil
	}

	for {
		if len(params) >= maxArity {
			p.addError(p.peek(), "Cannot have more than 255 parameters.")
		}

		if !p.match(lexer.TokenInt, lexer.TokenFloat) {
			return nil, p.newError(p.peek(), "Expect parameter type.")
		}
		typeTok := p.previous()

		name, err := p.consume(lexer.TokenIdentifier, "Expect parameter name.")
		if err != nil {
			return nil, err
		}

		params = append(params, ast.Parameter{Position: typeTok.Pos, Type: typeTok.Lexeme, Name: name.Lexeme})

		if !p.match(lexer.TokenComma) {
			return params, nil
		}
	}
}

// parseVarDeclaration parses a variable declaration after its type
func (p *Parser) parseVarDeclaration(typeTok lexer.Token) (ast.Statement, error) {
	name, err := p.consume(lexer.TokenIdentifier, "Expect variable name.")
	if err != nil {
		return nil, err
	}

	var init ast.Expression
	if p.match(lexer.TokenAssign) {
		if init, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(lexer.TokenSemicolon, "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}

	return &ast.VarDeclaration{
		Position:    typeTok.Pos,
		Type:        typeTok.Lexeme,
		Name:        name.Lexeme,
		Initializer: init,
	}, nil
}

// parseStatement parses a non-declaration statement
func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.match(lexer.TokenIf):
		return p.parseIfStatement(p.previous())
	case p.match(lexer.TokenWhile):
		return p.parseWhileStatement(p.previous())
	case p.match(lexer.TokenReturn):
		return p.parseReturnStatement(p.previous())
	case p.match(lexer.TokenLeftBrace):
		return p.parseBlock(p.previous())
	default:
		return p.parseExpressionStatement()
	}
}

// parseBlock parses statements up to the closing brace; the '{' is already consumed
func (p *Parser) parseBlock(lbrace lexer.Token) (*ast.BlockStatement, error) {
	block := &ast.BlockStatement{Position: lbrace.Pos, Statements: make([]ast.Statement, 0)}

	for !p.currentTokenIs(lexer.TokenRightBrace) && !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
	}

	if _, err := p.consume(lexer.TokenRightBrace, "Expect '}' after block."); err != nil {
		return nil, err
	}

	return block, nil
}

// parseIfStatement parses if (cond) stmt [else stmt]
func (p *Parser) parseIfStatement(keyword lexer.Token) (ast.Statement, error) {
	if _, err := p.consume(lexer.TokenLeftParen, "Expect '(' after 'if'."); err != nil {
		return nil, err
	}

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(lexer.TokenRightParen, "Expect ')' after if condition."); err != nil {
		return nil, err
	}

	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	stmt := &ast.IfStatement{Position: keyword.Pos, Condition: cond, Then: then}
	if p.match(lexer.TokenElse) {
		if stmt.Else, err = p.parseStatement(); err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

// parseWhileStatement parses while (cond) stmt
func (p *Parser) parseWhileStatement(keyword lexer.Token) (ast.Statement, error) {
	if _, err := p.consume(lexer.TokenLeftParen, "Expect '(' after 'while'."); err != nil {
		return nil, err
	}

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(lexer.TokenRightParen, "Expect ')' after while condition."); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	return &ast.WhileStatement{Position: keyword.Pos, Condition: cond, Body: body}, nil
}

// parseReturnStatement parses return [expr];
func (p *Parser) parseReturnStatement(keyword lexer.Token) (ast.Statement, error) {
	stmt := &ast.ReturnStatement{Position: keyword.Pos}

	if !p.currentTokenIs(lexer.TokenSemicolon) {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}

	if _, err := p.consume(lexer.TokenSemicolon, "Expect ';' after return value."); err != nil {
		return nil, err
	}

	return stmt, nil
}

// parseExpressionStatement parses expr;
func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	start := p.peek()

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(lexer.TokenSemicolon, "Expect ';' after expression."); err != nil {
		return nil, err
	}

	return &ast.ExpressionStatement{Position: start.Pos, Expression: expr}, nil
}

// ====== Expressions ======

func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseAssignment()
}

// parseAssignment parses right-associative assignment
func (p *Parser) parseAssignment() (ast.Expression, error) {
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.match(lexer.TokenAssign) {
		equals := p.previous()

		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}

		if target, ok := expr.(*ast.VariableExpression); ok {
			return &ast.BinaryExpression{
				Position: equals.Pos,
				Left:     target,
				Operator: lexer.TokenAssign,
				Right:    value,
			}, nil
		}

		p.addError(equals, "Invalid assignment target.")
	}

	return expr, nil
}

// parseBinaryLevel folds a left-associative chain of the given operators
func (p *Parser) parseBinaryLevel(operand func() (ast.Expression, error), operators ...lexer.TokenType) (ast.Expression, error) {
	expr, err := operand()
	if err != nil {
		return nil, err
	}

	for p.match(operators...) {
		op := p.previous()

		right, err := operand()
		if err != nil {
			return nil, err
		}

		expr = &ast.BinaryExpression{Position: op.Pos, Left: expr, Operator: op.Type, Right: right}
	}

	return expr, nil
}

func (p *Parser) parseOr() (ast.Expression, error) {
	return p.parseBinaryLevel(p.parseAnd, lexer.TokenOr)
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	return p.parseBinaryLevel(p.parseEquality, lexer.TokenAnd)
}

func (p *Parser) parseEquality() (ast.Expression, error) {
	return p.parseBinaryLevel(p.parseComparison, lexer.TokenEqual, lexer.TokenNotEqual)
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	return p.parseBinaryLevel(p.parseTerm,
		lexer.TokenLess, lexer.TokenLessEqual, lexer.TokenGreater, lexer.TokenGreaterEqual)
}

func (p *Parser) parseTerm() (ast.Expression, error) {
	return p.parseBinaryLevel(p.parseFactor, lexer.TokenPlus, lexer.TokenMinus)
}

func (p *Parser) parseFactor() (ast.Expression, error) {
	return p.parseBinaryLevel(p.parseUnary, lexer.TokenMultiply, lexer.TokenDivide, lexer.TokenModulo)
}

// parseUnary parses prefix - and !
func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.match(lexer.TokenMinus, lexer.TokenNot) {
		op := p.previous()

		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return &ast.UnaryExpression{Position: op.Pos, Operator: op.Type, Operand: operand}, nil
	}

	return p.parseCall()
}

// parseCall parses a primary followed by any number of argument lists
func (p *Parser) parseCall() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.match(lexer.TokenLeftParen) {
		if expr, err = p.finishCall(expr); err != nil {
			return nil, err
		}
	}

	return expr, nil
}

// finishCall parses call arguments; the '(' is already consumed
func (p *Parser) finishCall(callee ast.Expression) (ast.Expression, error) {
	args := make([]ast.Expression, 0)

	if !p.currentTokenIs(lexer.TokenRightParen) {
		for {
			if len(args) >= maxArity {
				p.addError(p.peek(), "Cannot have more than 255 arguments.")
			}

			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}

	paren, err := p.consume(lexer.TokenRightParen, "Expect ')' after arguments.")
	if err != nil {
		return nil, err
	}

	variable, ok := callee.(*ast.VariableExpression)
	if !ok {
		return nil, p.newError(paren, "Expected variable as function call target.")
	}

	return &ast.CallExpression{Position: variable.Position, Callee: variable.Name, Arguments: args}, nil
}

// parsePrimary parses literals, identifiers and parenthesized expressions
func (p *Parser) parsePrimary() (ast.Expression, error) {
	switch {
	case p.match(lexer.TokenIntegerLiteral):
		tok := p.previous()
		value, err := strconv.ParseInt(tok.Lexeme, 10, 32)
		if err != nil {
			return nil, p.newError(tok, "Integer literal out of range.")
		}
		return &ast.IntegerLiteral{Position: tok.Pos, Value: value}, nil

	case p.match(lexer.TokenFloatLiteral):
		tok := p.previous()
		value, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, p.newError(tok, "Float literal out of range.")
		}
		return &ast.FloatLiteral{Position: tok.Pos, Value: value}, nil

	case p.match(lexer.TokenStringLiteral):
		tok := p.previous()
		return &ast.StringLiteral{Position: tok.Pos, Value: tok.Lexeme}, nil

	case p.match(lexer.TokenIdentifier):
		tok := p.previous()
		return &ast.VariableExpression{Position: tok.Pos, Name: tok.Lexeme}, nil

	case p.match(lexer.TokenLeftParen):
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.TokenRightParen, "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return expr, nil
	}

	return nil, p.newError(p.peek(), "Expect expression.")
}
