package driver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZMcc18/minicompiler/internal/cli"
	"github.com/ZMcc18/minicompiler/internal/diagnostic"
)

const sample = `int add(int a, int b) {
	return a + b;
}

int main() {
	int x = add(1, 2);
	if (x > 2) {
		print(x);
	}
	return 0;
}
`

func TestCompileEmitIR(t *testing.T) {
	opts := DefaultOptions()
	opts.EmitIR = true
	opts.ModuleName = "test"

	res := Compile("prog.c", "int main() { return 1 + 2; }", opts)

	require.False(t, res.HasErrors(), "%v", res.Diagnostics)
	expected := "; ModuleID = 'test'\n\n" +
		"define i32 @main() {\n" +
		"entry:\n" +
		"  %t0 = add 1, 2\n" +
		"  ret %t0\n" +
		"}\n\n"
	assert.Equal(t, expected, res.Output)
	assert.NotEmpty(t, res.Tokens)
	assert.NotNil(t, res.Program)
}

func TestCompileModuleNameDefaultsToFilename(t *testing.T) {
	opts := DefaultOptions()
	opts.EmitIR = true

	res := Compile("prog.c", "void f() { }", opts)
	assert.True(t, strings.HasPrefix(res.Output, "; ModuleID = 'prog.c'\n"))
}

func TestCompileAssembly(t *testing.T) {
	var logs bytes.Buffer
	opts := DefaultOptions()
	opts.OptLevel = 2
	opts.Logger = &cli.Logger{Verbose: true, Out: &logs}

	res := Compile("prog.c", sample, opts)

	require.False(t, res.HasErrors(), "%v", res.Diagnostics)
	assert.Contains(t, res.Output, "; Target triple: x86_64-unknown-linux-gnu\n")
	assert.Contains(t, res.Output, ".global add\nadd:\n")
	assert.Contains(t, res.Output, ".global main\nmain:\n")

	for _, stage := range []string{
		"Lexical analysis...",
		"Syntax analysis...",
		"Semantic analysis...",
		"Generating IR...",
		"Optimizing IR (level 2)...",
		"Generating target code...",
	} {
		assert.Contains(t, logs.String(), stage)
	}
}

func TestCompileStopsAtFirstFailingStage(t *testing.T) {
	tests := []struct {
		name   string
		source string
		stage  diagnostic.Stage
	}{
		{"syntax", "int x = ;", diagnostic.StageSyntax},
		{"semantic", "int main() { return y; }", diagnostic.StageSemantic},
		{"lexical", "int main() { return 0; } @", diagnostic.StageSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Compile("bad.c", tt.source, DefaultOptions())

			assert.True(t, res.HasErrors())
			assert.Nil(t, res.Module)
			assert.Empty(t, res.Output)

			found := false
			for _, d := range res.Diagnostics {
				if d.Stage == tt.stage && d.IsError() {
					found = true
				}
			}
			assert.True(t, found, "no %s error in %v", tt.stage, res.Diagnostics)
		})
	}
}

func TestCompileWithoutAnalysis(t *testing.T) {
	opts := DefaultOptions()
	opts.Analyze = false
	opts.EmitIR = true

	// The builder still rejects unknown variables on its own.
	res := Compile("p.c", "int main() { return y; }", opts)
	require.True(t, res.HasErrors())
	assert.Equal(t, "Variable 'y' not found.", res.Diagnostics[0].Message)
	assert.Equal(t, diagnostic.StageIRGen, res.Diagnostics[0].Stage)

	// Arity is only checked by the analyzer.
	res = Compile("p.c", "int f(int a) { return a; } int main() { return f(1, 2); }", opts)
	require.False(t, res.HasErrors(), "%v", res.Diagnostics)
	assert.Contains(t, res.Output, "call @f, 1, 2")
}

func TestOptimizeKeepsVariablesNamedLikeTemporaries(t *testing.T) {
	opts := DefaultOptions()
	opts.OptLevel = 1

	res := Compile("p.c", "int main() { int t0 = 7; int y = 1 + 2; return t0; }", opts)
	require.False(t, res.HasErrors(), "%v", res.Diagnostics)
	require.NotNil(t, res.Module)

	got := res.Module.String()
	assert.Contains(t, got, "  store 7, %t0\n")
	assert.Contains(t, got, "  store 3, %y\n")
	assert.Contains(t, got, "  %t2 = load %t0\n")
	assert.NotContains(t, got, "load 3")

	res = Compile("p.c", "int f(int t0) { return t0 + 1; } int main() { return f(2 * 3); }", opts)
	require.False(t, res.HasErrors(), "%v", res.Diagnostics)
	require.NotNil(t, res.Module)

	got = res.Module.String()
	assert.Contains(t, got, "  store %param.t0, %t0\n")
	assert.Contains(t, got, "  %t1 = load %t0\n")
	assert.Contains(t, got, "  %t4 = call @f, 6\n")
}

func TestWarningsAsErrors(t *testing.T) {
	source := "int g = 1; int main() { return 0; }"

	res := Compile("w.c", source, DefaultOptions())
	require.False(t, res.HasErrors())
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diagnostic.LevelWarning, res.Diagnostics[0].Level)

	opts := DefaultOptions()
	opts.WarningsAsErrors = true
	res = Compile("w.c", source, opts)
	assert.True(t, res.HasErrors())
	assert.Nil(t, res.Module)
}

func TestDiagnosticsSortedByPosition(t *testing.T) {
	res := Compile("s.c", "int a = b;\nint c = d;\nint e = 1.5;", DefaultOptions())

	require.Len(t, res.Diagnostics, 3)
	for i := 1; i < len(res.Diagnostics); i++ {
		assert.True(t, res.Diagnostics[i-1].Pos.Line <= res.Diagnostics[i].Pos.Line)
	}
	assert.Equal(t, "s.c:1:9", res.Diagnostics[0].Pos.String())
}

func TestMaxErrors(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxErrors = 1

	res := Compile("m.c", "int a = b; int c = d; int e = f;", opts)
	require.Len(t, res.Diagnostics, 2)

	var messages []string
	for _, d := range res.Diagnostics {
		messages = append(messages, d.Message)
	}
	assert.ElementsMatch(t, []string{"Undefined variable 'b'", "Stopping after 1 errors"}, messages)
}

func writeSources(t *testing.T, n int) []string {
	t.Helper()

	dir := t.TempDir()
	files := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("f%d.c", i))
		src := fmt.Sprintf("int f%d() { return %d; }", i, i)
		require.NoError(t, os.WriteFile(path, []byte(src), 0644))
		files = append(files, path)
	}
	return files
}

func TestCompileFilesKeepsOrder(t *testing.T) {
	files := writeSources(t, 8)
	opts := DefaultOptions()
	opts.EmitIR = true

	results, err := CompileFiles(context.Background(), files, opts)
	require.NoError(t, err)
	require.Len(t, results, len(files))

	for i, res := range results {
		assert.Equal(t, files[i], res.Filename)
		assert.Contains(t, res.Output, fmt.Sprintf("define i32 @f%d() {", i))
		assert.Contains(t, res.Output, fmt.Sprintf("  ret %d\n", i))
	}
}

func TestCompileFilesMissingFile(t *testing.T) {
	files := append(writeSources(t, 2), filepath.Join(t.TempDir(), "missing.c"))

	_, err := CompileFiles(context.Background(), files, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not open file")
}

func TestCache(t *testing.T) {
	opts := DefaultOptions()
	opts.EmitIR = true

	c, err := NewCache(2, opts)
	require.NoError(t, err)

	first := c.Compile("a.c", "int f() { return 1; }")
	second := c.Compile("a.c", "int f() { return 1; }")
	assert.Same(t, first, second)

	changed := c.Compile("a.c", "int f() { return 2; }")
	assert.NotSame(t, first, changed)
	assert.Contains(t, changed.Output, "ret 2")

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)

	c.Compile("b.c", "void g() { }")
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())

	_, err = NewCache(0, opts)
	assert.Error(t, err)
}
