package lexer

import (
	"strings"
	"testing"
)

func TestBasicTokens(t *testing.T) {
	input := `int main() {
	print(1);
	return 0;
}`

	tests := []struct {
		expectedType  TokenType
		expectedValue string
	}{
		{TokenInt, "int"},
		{TokenIdentifier, "main"},
		{TokenLeftParen, "("},
		{TokenRightParen, ")"},
		{TokenLeftBrace, "{"},
		{TokenIdentifier, "print"},
		{TokenLeftParen, "("},
		{TokenIntegerLiteral, "1"},
		{TokenRightParen, ")"},
		{TokenSemicolon, ";"},
		{TokenReturn, "return"},
		{TokenIntegerLiteral, "0"},
		{TokenSemicolon, ";"},
		{TokenRightBrace, "}"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Lexeme != tt.expectedValue {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q",
				i, tt.expectedValue, tok.Lexeme)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := `int float if else while return void integer`

	expected := []TokenType{
		TokenInt, TokenFloat, TokenIf, TokenElse, TokenWhile,
		TokenReturn, TokenVoid, TokenIdentifier, TokenEOF,
	}

	tokens := Scan(input)
	if len(tokens) != len(expected) {
		t.Fatalf("token count wrong. expected=%d, got=%d", len(expected), len(tokens))
	}

	for i, want := range expected {
		if tokens[i].Type != want {
			t.Errorf("tokens[%d] - type wrong. expected=%q, got=%q", i, want, tokens[i].Type)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `+ - * / % = == != < <= > >= && || ! ; , ( ) { } [ ]`

	expected := []struct {
		tt     TokenType
		lexeme string
	}{
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenMultiply, "*"},
		{TokenDivide, "/"},
		{TokenModulo, "%"},
		{TokenAssign, "="},
		{TokenEqual, "=="},
		{TokenNotEqual, "!="},
		{TokenLess, "<"},
		{TokenLessEqual, "<="},
		{TokenGreater, ">"},
		{TokenGreaterEqual, ">="},
		{TokenAnd, "&&"},
		{TokenOr, "||"},
		{TokenNot, "!"},
		{TokenSemicolon, ";"},
		{TokenComma, ","},
		{TokenLeftParen, "("},
		{TokenRightParen, ")"},
		{TokenLeftBrace, "{"},
		{TokenRightBrace, "}"},
		{TokenLeftBracket, "["},
		{TokenRightBracket, "]"},
		{TokenEOF, ""},
	}

	tokens := Scan(input)
	if len(tokens) != len(expected) {
		t.Fatalf("token count wrong. expected=%d, got=%d", len(expected), len(tokens))
	}

	for i, tt := range expected {
		if tokens[i].Type != tt.tt || tokens[i].Lexeme != tt.lexeme {
			t.Errorf("tokens[%d] wrong. expected=%s %q, got=%s %q",
				i, tt.tt, tt.lexeme, tokens[i].Type, tokens[i].Lexeme)
		}
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
		lexemes  []string
	}{
		{"42", []TokenType{TokenIntegerLiteral, TokenEOF}, []string{"42", ""}},
		{"3.14", []TokenType{TokenFloatLiteral, TokenEOF}, []string{"3.14", ""}},
		{"1.", []TokenType{TokenIntegerLiteral, TokenUnknown, TokenEOF}, []string{"1", ".", ""}},
		{".5", []TokenType{TokenUnknown, TokenIntegerLiteral, TokenEOF}, []string{".", "5", ""}},
		{"1.2.3", []TokenType{TokenFloatLiteral, TokenUnknown, TokenIntegerLiteral, TokenEOF}, []string{"1.2", ".", "3", ""}},
		{"12ab", []TokenType{TokenIntegerLiteral, TokenIdentifier, TokenEOF}, []string{"12", "ab", ""}},
	}

	for _, tt := range tests {
		tokens := Scan(tt.input)
		if len(tokens) != len(tt.expected) {
			t.Errorf("input %q: token count wrong. expected=%d, got=%d", tt.input, len(tt.expected), len(tokens))
			continue
		}

		for i := range tokens {
			if tokens[i].Type != tt.expected[i] || tokens[i].Lexeme != tt.lexemes[i] {
				t.Errorf("input %q: tokens[%d] expected=%s %q, got=%s %q",
					tt.input, i, tt.expected[i], tt.lexemes[i], tokens[i].Type, tokens[i].Lexeme)
			}
		}
	}
}

func TestStrings(t *testing.T) {
	l := New(`"hello world" "a
b"`)
	tokens := l.Tokenize()

	if len(tokens) != 3 {
		t.Fatalf("token count wrong. expected=3, got=%d", len(tokens))
	}

	if tokens[0].Type != TokenStringLiteral || tokens[0].Lexeme != "hello world" {
		t.Errorf("first string wrong. got=%s", tokens[0])
	}

	if tokens[1].Type != TokenStringLiteral || tokens[1].Lexeme != "a\nb" {
		t.Errorf("multi-line string wrong. got=%s", tokens[1])
	}

	if tokens[2].Pos.Line != 2 {
		t.Errorf("EOF line wrong. expected=2, got=%d", tokens[2].Pos.Line)
	}

	if len(l.Diagnostics()) != 0 {
		t.Errorf("unexpected diagnostics: %v", l.Diagnostics())
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`x = "abc;`)
	tokens := l.Tokenize()

	if len(tokens) != 4 {
		t.Fatalf("token count wrong. expected=4, got=%d", len(tokens))
	}

	tok := tokens[2]
	if tok.Type != TokenUnknown {
		t.Errorf("expected UNKNOWN, got=%s", tok.Type)
	}

	if tok.Lexeme != `"abc;` {
		t.Errorf("lexeme wrong. expected=%q, got=%q", `"abc;`, tok.Lexeme)
	}

	diags := l.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got=%d", len(diags))
	}

	if diags[0].Message != "Unterminated string." || diags[0].Pos.Column != 5 {
		t.Errorf("diagnostic wrong. got=%s", diags[0])
	}
}

func TestComments(t *testing.T) {
	input := "// line comment\nx /* block\n comment */ y // tail"

	tokens := Scan(input)
	if len(tokens) != 3 {
		t.Fatalf("token count wrong. expected=3, got=%d: %v", len(tokens), tokens)
	}

	if tokens[0].Lexeme != "x" || tokens[0].Pos.Line != 2 || tokens[0].Pos.Column != 1 {
		t.Errorf("x wrong. got=%s", tokens[0])
	}

	if tokens[1].Lexeme != "y" || tokens[1].Pos.Line != 3 || tokens[1].Pos.Column != 13 {
		t.Errorf("y wrong. got=%s", tokens[1])
	}
}

func TestUnterminatedBlockComment(t *testing.T) {
	l := New("a /* never closed")
	tokens := l.Tokenize()

	if len(tokens) != 2 || tokens[1].Type != TokenEOF {
		t.Fatalf("expected identifier then EOF, got=%v", tokens)
	}

	diags := l.Diagnostics()
	if len(diags) != 1 || diags[0].IsError() {
		t.Errorf("expected one warning, got=%v", diags)
	}
}

func TestUnknownCharacters(t *testing.T) {
	tokens := Scan("a & b | c @ é")

	expected := []struct {
		tt     TokenType
		lexeme string
	}{
		{TokenIdentifier, "a"},
		{TokenUnknown, "&"},
		{TokenIdentifier, "b"},
		{TokenUnknown, "|"},
		{TokenIdentifier, "c"},
		{TokenUnknown, "@"},
		{TokenUnknown, "é"},
		{TokenEOF, ""},
	}

	if len(tokens) != len(expected) {
		t.Fatalf("token count wrong. expected=%d, got=%d", len(expected), len(tokens))
	}

	for i, tt := range expected {
		if tokens[i].Type != tt.tt || tokens[i].Lexeme != tt.lexeme {
			t.Errorf("tokens[%d] expected=%s %q, got=%s %q", i, tt.tt, tt.lexeme, tokens[i].Type, tokens[i].Lexeme)
		}
	}
}

func TestColumnsCountRunes(t *testing.T) {
	tests := []struct {
		input  string
		tt     TokenType
		lexeme string
		column int
	}{
		{"é x", TokenIdentifier, "x", 3},
		{"é x", TokenEOF, "", 4},
		{`"né" y`, TokenIdentifier, "y", 6},
		{"/* ü */ z", TokenIdentifier, "z", 9},
	}

	for i, tt := range tests {
		var found bool
		for _, tok := range Scan(tt.input) {
			if tok.Type != tt.tt || tok.Lexeme != tt.lexeme {
				continue
			}
			found = true
			if tok.Pos.Line != 1 || tok.Pos.Column != tt.column {
				t.Errorf("tests[%d] - %s %q position wrong. expected=1:%d, got=%d:%d",
					i, tt.tt, tt.lexeme, tt.column, tok.Pos.Line, tok.Pos.Column)
			}
		}
		if !found {
			t.Errorf("tests[%d] - no %s %q token in %q", i, tt.tt, tt.lexeme, tt.input)
		}
	}
}

func TestPositions(t *testing.T) {
	input := "int x = 42;\n  x = x + 1;"

	tests := []struct {
		lexeme string
		line   int
		column int
	}{
		{"int", 1, 1},
		{"x", 1, 5},
		{"=", 1, 7},
		{"42", 1, 9},
		{";", 1, 11},
		{"x", 2, 3},
		{"=", 2, 5},
		{"x", 2, 7},
		{"+", 2, 9},
		{"1", 2, 11},
		{";", 2, 12},
		{"", 2, 13},
	}

	tokens := Scan(input)
	if len(tokens) != len(tests) {
		t.Fatalf("token count wrong. expected=%d, got=%d", len(tests), len(tokens))
	}

	for i, tt := range tests {
		tok := tokens[i]
		if tok.Lexeme != tt.lexeme || tok.Pos.Line != tt.line || tok.Pos.Column != tt.column {
			t.Errorf("tokens[%d] expected=%q at %d:%d, got=%q at %d:%d",
				i, tt.lexeme, tt.line, tt.column, tok.Lexeme, tok.Pos.Line, tok.Pos.Column)
		}
	}
}

func TestPositionsNonDecreasing(t *testing.T) {
	inputs := []string{
		"",
		"\n\n\n",
		"int main() { return 0; }",
		"float f(float a, float b) {\n\twhile (a < b) { a = a + 1.5; }\n\treturn a;\n}\n",
		"x /* a\nb */ \"s\nt\" y",
	}

	for _, input := range inputs {
		tokens := Scan(input)

		eofCount := 0
		for _, tok := range tokens {
			if tok.Type == TokenEOF {
				eofCount++
			}
		}

		if eofCount != 1 || tokens[len(tokens)-1].Type != TokenEOF {
			t.Errorf("input %q: expected exactly one trailing EOF, got %d", input, eofCount)
		}

		for i := 1; i < len(tokens); i++ {
			if tokens[i].Pos.Before(tokens[i-1].Pos) {
				t.Errorf("input %q: token %d (%s) precedes token %d (%s)",
					input, i, tokens[i], i-1, tokens[i-1])
			}
		}
	}
}

func TestEOFIsSticky(t *testing.T) {
	l := New("x")
	l.NextToken()

	for i := 0; i < 3; i++ {
		if tok := l.NextToken(); tok.Type != TokenEOF {
			t.Fatalf("call %d: expected EOF, got=%s", i, tok)
		}
	}
}

func TestFilenameInPositions(t *testing.T) {
	tokens := NewWithFilename("a", "dir/prog.c").Tokenize()

	if tokens[0].Pos.Filename != "dir/prog.c" {
		t.Errorf("filename wrong. got=%q", tokens[0].Pos.Filename)
	}

	if !strings.HasPrefix(tokens[0].Pos.String(), "prog.c:1:1") {
		t.Errorf("position string wrong. got=%q", tokens[0].Pos.String())
	}
}

func TestTokenString(t *testing.T) {
	tok := Scan("while")[0]
	expected := "Token(WHILE, 'while', line 1, column 1)"

	if tok.String() != expected {
		t.Errorf("String() wrong. expected=%q, got=%q", expected, tok.String())
	}

	if TokenGreaterEqual.Symbol() != ">=" || TokenIdentifier.Symbol() != "unknown" {
		t.Errorf("Symbol() wrong")
	}
}
