package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ZMcc18/minicompiler/internal/ast"
	"github.com/ZMcc18/minicompiler/internal/diagnostic"
	"github.com/ZMcc18/minicompiler/internal/lexer"
)

func parseSource(input string) (*ast.Program, []error) {
	return Parse(lexer.Scan(input))
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

// TestParserBasic checks the printed form of well-formed programs
func TestParserBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"variable declaration", "int x = 42;", "int x = 42;"},
		{"float declaration", "float f = 1.5;", "float f = 1.5;"},
		{"uninitialized declaration", "int x;", "int x;"},
		{"function declaration", "int add(int a, int b) { return a + b; }", "int add(int a, int b) { return (a + b); }"},
		{"void function", "void f() { }", "void f() { }"},
		{"right associative assignment", "x = y = 1;", "(x = (y = 1));"},
		{"arithmetic precedence", "a + b * c - d;", "((a + (b * c)) - d);"},
		{"left associative", "a - b - c;", "((a - b) - c);"},
		{"unary binds tighter", "!a == -b;", "((!a) == (-b));"},
		{"nested unary", "- -a;", "(-(-a));"},
		{"logical precedence", "a || b && c;", "(a || (b && c));"},
		{"comparison below equality", "a < b == c >= d;", "((a < b) == (c >= d));"},
		{"modulo is a factor", "a + b % c;", "(a + (b % c));"},
		{"nested calls", "f(1, g(2));", "f(1, g(2));"},
		{"grouping", "(1 + 2) * 3;", "((1 + 2) * 3);"},
		{"if else", "if (x) y = 1; else { y = 2; }", "if (x) (y = 1); else { (y = 2); }"},
		{"while", "while (i < 10) i = i + 1;", "while ((i < 10)) (i = (i + 1));"},
		{"bare return", "return;", "return;"},
		{"string argument", `print("hi");`, `print("hi");`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, errs := parseSource(tt.input)

			if len(errs) > 0 {
				t.Fatalf("Parser errors: %v", errs)
			}

			if program.String() != tt.expected {
				t.Errorf("expected=%q, got=%q", tt.expected, program.String())
			}
		})
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		errors     []string
		statements int
	}{
		{"missing initializer", "int x = ;", []string{"Error at ';': Expect expression."}, 0},
		{"missing semicolon at eof", "int x = 1", []string{"Error at end of file: Expect ';' after variable declaration."}, 0},
		{"missing variable name", "int = 1;", []string{"Error at '=': Expect variable name."}, 0},
		{"invalid assignment target", "1 = 2;", []string{"Error at '=': Invalid assignment target."}, 1},
		{"call on call", "f(1)(2);", []string{"Error at ')': Expected variable as function call target."}, 0},
		{"call on literal", "3(1);", []string{"Error at ')': Expected variable as function call target."}, 0},
		{"integer overflow", "int x = 2147483648;", []string{"Error at '2147483648': Integer literal out of range."}, 0},
		{"missing parameter type", "int f(int a, ) { }", []string{"Error at ')': Expect parameter type."}, 0},
		{"missing parameter name", "int f(int) { }", []string{"Error at ')': Expect parameter name."}, 0},
		{"missing function name", "void (", []string{"Error at '(': Expect function name."}, 0},
		{"missing body", "int f() return 1;", []string{"Error at 'return': Expect '{' before function body."}, 0},
		{"if without paren", "if x", []string{"Error at 'x': Expect '(' after 'if'."}, 0},
		{"if without closing paren", "if (x y = 1;", []string{"Error at 'y': Expect ')' after if condition."}, 0},
		{"while without paren", "while x", []string{"Error at 'x': Expect '(' after 'while'."}, 0},
		{"while without closing paren", "while (x { }", []string{"Error at '{': Expect ')' after while condition."}, 0},
		{"return without semicolon", "return 1", []string{"Error at end of file: Expect ';' after return value."}, 0},
		{"unclosed block", "{ int a = 1;", []string{"Error at end of file: Expect '}' after block."}, 0},
		{"unclosed group", "(1 + 2;", []string{"Error at ';': Expect ')' after expression."}, 0},
		{"unclosed call", "f(1;", []string{"Error at ';': Expect ')' after arguments."}, 0},
		{"unknown character", "x @ y;", []string{"Error at '@': Expect ';' after expression."}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, errs := parseSource(tt.input)

			if diff := cmp.Diff(tt.errors, errorStrings(errs)); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}

			if len(program.Statements) != tt.statements {
				t.Errorf("expected %d statements, got=%d: %s", tt.statements, len(program.Statements), program)
			}
		})
	}
}

func TestParserRecovery(t *testing.T) {
	input := `int a = ;
int b = 2;
b = ;
float c = 1.0;`

	program, errs := parseSource(input)

	expectedErrors := []string{
		"Error at ';': Expect expression.",
		"Error at ';': Expect expression.",
	}
	if diff := cmp.Diff(expectedErrors, errorStrings(errs)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}

	if program.String() != "int b = 2;\nfloat c = 1.0;" {
		t.Errorf("unexpected program: %q", program.String())
	}

	lines := []int{}
	for _, err := range errs {
		lines = append(lines, err.(*ParseError).Pos.Line)
	}
	if diff := cmp.Diff([]int{1, 3}, lines); diff != "" {
		t.Errorf("errors not in source order (-want +got):\n%s", diff)
	}
}

func TestParserRecoveryInsideBlock(t *testing.T) {
	input := `int main() {
	int x = ;
	x = 1;
	return x;
}`

	program, errs := parseSource(input)

	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got=%v", errs)
	}

	if len(program.Statements) != 1 {
		t.Fatalf("expected the function to survive, got=%s", program)
	}

	fn, ok := program.Statements[0].(*ast.FunctionDeclaration)
	if !ok {
		t.Fatalf("expected FunctionDeclaration, got=%T", program.Statements[0])
	}

	if len(fn.Body.Statements) != 2 {
		t.Errorf("expected 2 body statements, got=%d: %s", len(fn.Body.Statements), fn.Body)
	}
}

func TestParserSynchronizeStopsAtKeyword(t *testing.T) {
	// No semicolon follows the bad expression; recovery stops at 'while'.
	program, errs := parseSource("x = = 3 while (x) x = 0;")

	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got=%v", errs)
	}

	if program.String() != "while (x) (x = 0);" {
		t.Errorf("unexpected program: %q", program.String())
	}
}

func TestFunctionLookahead(t *testing.T) {
	program, errs := parseSource("int f; float g(float x) { return x; } int h = f;")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	kinds := []string{}
	for _, stmt := range program.Statements {
		switch stmt.(type) {
		case *ast.VarDeclaration:
			kinds = append(kinds, "var")
		case *ast.FunctionDeclaration:
			kinds = append(kinds, "func")
		default:
			kinds = append(kinds, "other")
		}
	}

	if diff := cmp.Diff([]string{"var", "func", "var"}, kinds); diff != "" {
		t.Errorf("dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestArgumentLimit(t *testing.T) {
	args := make([]string, 256)
	for i := range args {
		args[i] = "0"
	}

	program, errs := parseSource("f(" + strings.Join(args, ", ") + ");")

	expected := []string{"Error at '0': Cannot have more than 255 arguments."}
	if diff := cmp.Diff(expected, errorStrings(errs)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}

	if len(program.Statements) != 1 {
		t.Fatalf("call should still be produced, got %d statements", len(program.Statements))
	}

	call := program.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.CallExpression)
	if len(call.Arguments) != 256 {
		t.Errorf("expected 256 arguments, got=%d", len(call.Arguments))
	}
}

func TestParameterLimit(t *testing.T) {
	params := make([]string, 256)
	for i := range params {
		params[i] = "int p" + strings.Repeat("x", i)
	}

	_, errs := parseSource("void f(" + strings.Join(params, ", ") + ") { }")

	expected := []string{"Error at 'int': Cannot have more than 255 parameters."}
	if diff := cmp.Diff(expected, errorStrings(errs)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestParserTree(t *testing.T) {
	program, errs := parseSource("int main() { int x = 1; if (x > 0) x = x - 1; return x; }")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	expected := &ast.Program{Statements: []ast.Statement{
		&ast.FunctionDeclaration{
			ReturnType: "int",
			Name:       "main",
			Parameters: []ast.Parameter{},
			Body: &ast.BlockStatement{Statements: []ast.Statement{
				&ast.VarDeclaration{Type: "int", Name: "x", Initializer: &ast.IntegerLiteral{Value: 1}},
				&ast.IfStatement{
					Condition: &ast.BinaryExpression{
						Left:     &ast.VariableExpression{Name: "x"},
						Operator: lexer.TokenGreater,
						Right:    &ast.IntegerLiteral{Value: 0},
					},
					Then: &ast.ExpressionStatement{Expression: &ast.BinaryExpression{
						Left:     &ast.VariableExpression{Name: "x"},
						Operator: lexer.TokenAssign,
						Right: &ast.BinaryExpression{
							Left:     &ast.VariableExpression{Name: "x"},
							Operator: lexer.TokenMinus,
							Right:    &ast.IntegerLiteral{Value: 1},
						},
					}},
				},
				&ast.ReturnStatement{Value: &ast.VariableExpression{Name: "x"}},
			}},
		},
	}}

	opts := cmpopts.IgnoreFields(ast.Parameter{}, "Position")
	ignorePos := cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".Position"
	}, cmp.Ignore())

	if diff := cmp.Diff(expected, program, opts, ignorePos); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParserPositions(t *testing.T) {
	program, errs := parseSource("int x = 1;\n  x = 2;")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	decl := program.Statements[0]
	if decl.Pos().Line != 1 || decl.Pos().Column != 1 {
		t.Errorf("declaration position wrong. got=%s", decl.Pos())
	}

	stmt := program.Statements[1].(*ast.ExpressionStatement)
	if stmt.Pos().Line != 2 || stmt.Pos().Column != 3 {
		t.Errorf("statement position wrong. got=%s", stmt.Pos())
	}

	if assign := stmt.Expression; assign.Pos().Column != 5 {
		t.Errorf("assignment position wrong. got=%s", assign.Pos())
	}
}

func TestParseWithoutEOF(t *testing.T) {
	program, errs := Parse(nil)
	if len(errs) != 0 || len(program.Statements) != 0 {
		t.Errorf("empty input should give an empty program, got=%v %v", program, errs)
	}

	_, errs = Parse([]lexer.Token{{Type: lexer.TokenIdentifier, Lexeme: "x"}})
	expected := []string{"Error at end of file: Expect ';' after expression."}
	if diff := cmp.Diff(expected, errorStrings(errs)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestDiagnostics(t *testing.T) {
	_, errs := parseSource("int x = 1;\nint y = ;")
	diags := Diagnostics(errs)

	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got=%d", len(diags))
	}

	d := diags[0]
	if d.Stage != diagnostic.StageSyntax || !d.IsError() {
		t.Errorf("unexpected diagnostic kind: %+v", d)
	}

	if d.Pos.Line != 2 || d.Pos.Column != 9 {
		t.Errorf("diagnostic position wrong. got=%s", d.Pos)
	}

	if d.Message != "Error at ';': Expect expression." {
		t.Errorf("diagnostic message wrong. got=%q", d.Message)
	}
}
