package lexer

import (
	"fmt"

	"github.com/ZMcc18/minicompiler/internal/position"
)

// TokenType represents the type of a token
type TokenType int

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", int(tt))
}

// Token types
const (
	// Keywords
	TokenInt TokenType = iota
	TokenFloat
	TokenIf
	TokenElse
	TokenWhile
	TokenReturn
	TokenVoid

	// Identifiers and literals
	TokenIdentifier
	TokenIntegerLiteral
	TokenFloatLiteral
	TokenStringLiteral

	// Operators
	TokenPlus
	TokenMinus
	TokenMultiply
	TokenDivide
	TokenModulo
	TokenAssign
	TokenEqual
	TokenNotEqual
	TokenLess
	TokenLessEqual
	TokenGreater
	TokenGreaterEqual
	TokenAnd
	TokenOr
	TokenNot

	// Punctuation
	TokenSemicolon
	TokenComma
	TokenLeftParen
	TokenRightParen
	TokenLeftBrace
	TokenRightBrace
	TokenLeftBracket
	TokenRightBracket

	TokenEOF
	TokenUnknown
)

// Token represents a lexical token with position information
type Token struct {
	Type   TokenType
	Lexeme string
	Pos    position.Position
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("Token(%s, '%s', line %d, column %d)", t.Type, t.Lexeme, t.Pos.Line, t.Pos.Column)
}

// tokenNames provides string representations for token types
var tokenNames = map[TokenType]string{
	TokenInt:    "INT",
	TokenFloat:  "FLOAT",
	TokenIf:     "IF",
	TokenElse:   "ELSE",
	TokenWhile:  "WHILE",
	TokenReturn: "RETURN",
	TokenVoid:   "VOID",

	TokenIdentifier:     "IDENTIFIER",
	TokenIntegerLiteral: "INTEGER_LITERAL",
	TokenFloatLiteral:   "FLOAT_LITERAL",
	TokenStringLiteral:  "STRING_LITERAL",

	TokenPlus:         "PLUS",
	TokenMinus:        "MINUS",
	TokenMultiply:     "MULTIPLY",
	TokenDivide:       "DIVIDE",
	TokenModulo:       "MODULO",
	TokenAssign:       "ASSIGN",
	TokenEqual:        "EQUAL",
	TokenNotEqual:     "NOT_EQUAL",
	TokenLess:         "LESS",
	TokenLessEqual:    "LESS_EQUAL",
	TokenGreater:      "GREATER",
	TokenGreaterEqual: "GREATER_EQUAL",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenNot:          "NOT",

	TokenSemicolon:    "SEMICOLON",
	TokenComma:        "COMMA",
	TokenLeftParen:    "LEFT_PAREN",
	TokenRightParen:   "RIGHT_PAREN",
	TokenLeftBrace:    "LEFT_BRACE",
	TokenRightBrace:   "RIGHT_BRACE",
	TokenLeftBracket:  "LEFT_BRACKET",
	TokenRightBracket: "RIGHT_BRACKET",

	TokenEOF:     "EOF",
	TokenUnknown: "UNKNOWN",
}

// operatorSymbols maps operator token types to their source spelling.
var operatorSymbols = map[TokenType]string{
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenMultiply:     "*",
	TokenDivide:       "/",
	TokenModulo:       "%",
	TokenAssign:       "=",
	TokenEqual:        "==",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenAnd:          "&&",
	TokenOr:           "||",
	TokenNot:          "!",
}

// Symbol returns the source spelling of an operator, or "unknown".
func (tt TokenType) Symbol() string {
	if s, ok := operatorSymbols[tt]; ok {
		return s
	}
	return "unknown"
}

// keywords maps string keywords to their token types
var keywords = map[string]TokenType{
	"int":    TokenInt,
	"float":  TokenFloat,
	"if":     TokenIf,
	"else":   TokenElse,
	"while":  TokenWhile,
	"return": TokenReturn,
	"void":   TokenVoid,
}

// LookupIdent returns the keyword token type for ident, or TokenIdentifier.
func LookupIdent(ident string) TokenType {
	if tt, ok := keywords[ident]; ok {
		return tt
	}
	return TokenIdentifier
}
