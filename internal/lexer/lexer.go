// Package lexer turns source text into a token sequence.
// Scanning never fails: malformed input becomes UNKNOWN tokens plus diagnostics.
package lexer

import (
	"unicode/utf8"

	"github.com/ZMcc18/minicompiler/internal/diagnostic"
	"github.com/ZMcc18/minicompiler/internal/position"
)

// Lexer represents the lexical analyzer
type Lexer struct {
	input        string
	filename     string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // line of ch
	column       int  // column of ch

	diagnostics []diagnostic.Diagnostic
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return NewWithFilename(input, "")
}

// NewWithFilename creates a new lexer whose token positions carry filename
func NewWithFilename(input, filename string) *Lexer {
	l := &Lexer{
		input:    input,
		filename: filename,
		line:     1,
		column:   0,
	}
	l.readChar()
	return l
}

// Scan tokenizes source and returns the full token sequence ending in one EOF.
func Scan(source string) []Token {
	return New(source).Tokenize()
}

// Tokenize consumes the remaining input. The result always ends with exactly one EOF token.
func (l *Lexer) Tokenize() []Token {
	tokens := make([]Token, 0, len(l.input)/4+1)
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

// Diagnostics returns the lexical diagnostics reported so far.
func (l *Lexer) Diagnostics() []diagnostic.Diagnostic {
	return l.diagnostics
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.ch == '\n' && l.position < len(l.input) {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	if l.readPosition <= len(l.input) {
		l.readPosition++
		// Columns count runes: continuation bytes share their lead byte's column.
		if l.ch&0xC0 != 0x80 {
			l.column++
		}
	}
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) currentPosition() position.Position {
	return position.Position{
		Filename: l.filename,
		Line:     l.line,
		Column:   l.column,
		Offset:   l.position,
	}
}

func (l *Lexer) report(b *diagnostic.Builder) {
	l.diagnostics = append(l.diagnostics, b.Build())
}

// skipWhitespace skips blanks, newlines and both comment forms
func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			start := l.currentPosition()
			l.readChar()
			l.readChar()
			for !l.atEnd() && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.atEnd() {
				l.report(diagnostic.New(diagnostic.StageLexical).Warning().At(start).Message("Unterminated block comment."))
				return
			}
			l.readChar()
			l.readChar()
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads an integer or a float of the form digits.digits
func (l *Lexer) readNumber() (string, bool) {
	start := l.position
	isFloat := false

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.position], isFloat
}

// readString reads a double-quoted string; strings may span lines
func (l *Lexer) readString(pos position.Position) Token {
	start := l.position
	l.readChar() // opening quote

	for !l.atEnd() && l.ch != '"' {
		l.readChar()
	}

	if l.atEnd() {
		l.report(diagnostic.New(diagnostic.StageLexical).At(pos).Message("Unterminated string."))
		return Token{Type: TokenUnknown, Lexeme: l.input[start:l.position], Pos: pos}
	}

	literal := l.input[start+1 : l.position]
	l.readChar() // closing quote
	return Token{Type: TokenStringLiteral, Lexeme: literal, Pos: pos}
}

// isLetter checks if character is ASCII letter
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

// isDigit checks if character is ASCII digit
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// NextToken scans the input and returns the next token. At end of input it keeps returning EOF.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.currentPosition()
	if l.atEnd() {
		return Token{Type: TokenEOF, Lexeme: "", Pos: pos}
	}

	switch {
	case isLetter(l.ch) || l.ch == '_':
		literal := l.readIdentifier()
		return Token{Type: LookupIdent(literal), Lexeme: literal, Pos: pos}
	case isDigit(l.ch):
		literal, isFloat := l.readNumber()
		if isFloat {
			return Token{Type: TokenFloatLiteral, Lexeme: literal, Pos: pos}
		}
		return Token{Type: TokenIntegerLiteral, Lexeme: literal, Pos: pos}
	case l.ch == '"':
		return l.readString(pos)
	}

	var tok Token
	switch l.ch {
	case '(':
		tok = l.newToken(TokenLeftParen, pos)
	case ')':
		tok = l.newToken(TokenRightParen, pos)
	case '{':
		tok = l.newToken(TokenLeftBrace, pos)
	case '}':
		tok = l.newToken(TokenRightBrace, pos)
	case '[':
		tok = l.newToken(TokenLeftBracket, pos)
	case ']':
		tok = l.newToken(TokenRightBracket, pos)
	case ',':
		tok = l.newToken(TokenComma, pos)
	case ';':
		tok = l.newToken(TokenSemicolon, pos)
	case '+':
		tok = l.newToken(TokenPlus, pos)
	case '-':
		tok = l.newToken(TokenMinus, pos)
	case '*':
		tok = l.newToken(TokenMultiply, pos)
	case '/':
		tok = l.newToken(TokenDivide, pos)
	case '%':
		tok = l.newToken(TokenModulo, pos)
	case '=':
		tok = l.newTwoCharToken('=', TokenEqual, TokenAssign, pos)
	case '!':
		tok = l.newTwoCharToken('=', TokenNotEqual, TokenNot, pos)
	case '<':
		tok = l.newTwoCharToken('=', TokenLessEqual, TokenLess, pos)
	case '>':
		tok = l.newTwoCharToken('=', TokenGreaterEqual, TokenGreater, pos)
	case '&':
		tok = l.newTwoCharToken('&', TokenAnd, TokenUnknown, pos)
	case '|':
		tok = l.newTwoCharToken('|', TokenOr, TokenUnknown, pos)
	default:
		return l.newUnknownToken(pos)
	}

	return tok
}

// newToken emits a one-character token and advances past it
func (l *Lexer) newToken(tokenType TokenType, pos position.Position) Token {
	tok := Token{Type: tokenType, Lexeme: string(l.ch), Pos: pos}
	l.readChar()
	return tok
}

// newTwoCharToken emits two if the next char is second, otherwise one
func (l *Lexer) newTwoCharToken(second byte, two, one TokenType, pos position.Position) Token {
	if l.peekChar() == second {
		literal := l.input[l.position : l.position+2]
		l.readChar()
		l.readChar()
		return Token{Type: two, Lexeme: literal, Pos: pos}
	}
	return l.newToken(one, pos)
}

// newUnknownToken wraps one source character, a whole UTF-8 sequence for non-ASCII input
func (l *Lexer) newUnknownToken(pos position.Position) Token {
	start := l.position
	size := 1
	if l.ch >= utf8.RuneSelf {
		if _, n := utf8.DecodeRuneInString(l.input[start:]); n > 1 {
			size = n
		}
	}
	for i := 0; i < size; i++ {
		l.readChar()
	}
	return Token{Type: TokenUnknown, Lexeme: l.input[start : start+size], Pos: pos}
}
