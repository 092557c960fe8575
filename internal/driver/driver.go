// Package driver runs the compilation pipeline: lexing, parsing, semantic
// analysis, IR generation, optimization and code generation.
package driver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ZMcc18/minicompiler/internal/ast"
	"github.com/ZMcc18/minicompiler/internal/cli"
	"github.com/ZMcc18/minicompiler/internal/codegen"
	"github.com/ZMcc18/minicompiler/internal/diagnostic"
	"github.com/ZMcc18/minicompiler/internal/ir"
	"github.com/ZMcc18/minicompiler/internal/lexer"
	"github.com/ZMcc18/minicompiler/internal/optimizer"
	"github.com/ZMcc18/minicompiler/internal/parser"
	"github.com/ZMcc18/minicompiler/internal/semantic"
)

// Options controls a compilation.
type Options struct {
	EmitIR     bool   // produce the IR dump instead of assembly
	OptLevel   int    // 0, 1 or 2
	Target     string // target triple, empty selects the default
	ModuleName string // IR module name, defaults to the file name
	Analyze    bool   // run semantic analysis

	MaxErrors        int
	WarningsAsErrors bool

	Logger *cli.Logger // may be nil
}

// DefaultOptions returns options with semantic analysis enabled.
func DefaultOptions() Options {
	return Options{Analyze: true, Target: codegen.DefaultTargetTriple}
}

// Result holds every artifact of one compilation. Later stages are nil
// when an earlier stage reported an error.
type Result struct {
	Filename    string
	Source      string
	Tokens      []lexer.Token
	Program     *ast.Program
	Module      *ir.Module
	Output      string // IR dump or assembly text
	Diagnostics []diagnostic.Diagnostic
}

// HasErrors reports whether any error diagnostic was produced.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Compile runs the pipeline over source. Every call uses fresh stage
// instances, so concurrent calls do not share state.
func Compile(filename, source string, opts Options) *Result {
	log := opts.Logger
	engine := diagnostic.NewEngine(diagnostic.Config{
		MaxErrors:        opts.MaxErrors,
		WarningsAsErrors: opts.WarningsAsErrors,
	})
	res := &Result{Filename: filename, Source: source}
	defer func() {
		engine.Sort()
		res.Diagnostics = engine.Diagnostics()
	}()

	log.Info("Lexical analysis...")
	lx := lexer.NewWithFilename(source, filename)
	res.Tokens = lx.Tokenize()
	engine.AddAll(lx.Diagnostics())
	log.Debug("%s: %d tokens", filename, len(res.Tokens))

	log.Info("Syntax analysis...")
	program, errs := parser.Parse(res.Tokens)
	res.Program = program
	engine.AddAll(parser.Diagnostics(errs))
	if engine.HasErrors() {
		return res
	}

	if opts.Analyze {
		log.Info("Semantic analysis...")
		engine.AddAll(semantic.New().Analyze(program))
		if engine.HasErrors() {
			return res
		}
	}

	log.Info("Generating IR...")
	name := opts.ModuleName
	if name == "" {
		name = filename
	}
	builder := ir.NewBuilder(name)
	module := builder.Build(program)
	engine.AddAll(builder.Diagnostics())
	if engine.HasErrors() {
		return res
	}
	if errs := ir.Verify(module); len(errs) > 0 {
		for _, err := range errs {
			engine.Add(diagnostic.New(diagnostic.StageIRGen).Messagef("%v", err).Build())
		}
		return res
	}
	res.Module = module

	if opts.EmitIR {
		res.Output = module.String()
		return res
	}

	if opt := optimizer.New(opts.OptLevel, log); opt.Level() > 0 {
		log.Info("Optimizing IR (level %d)...", opt.Level())
		opt.Optimize(module)
	}

	log.Info("Generating target code...")
	var out bytes.Buffer
	if err := codegen.New(opts.Target).Generate(module, &out); err != nil {
		engine.Add(diagnostic.New(diagnostic.StageIRGen).Messagef("%v", err).Build())
		return res
	}
	res.Output = out.String()
	return res
}

// CompileFile reads filename and compiles it.
func CompileFile(filename string, opts Options) (*Result, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open file '%s': %w", filename, err)
	}
	return Compile(filename, string(data), opts), nil
}

// CompileFiles compiles every file concurrently. Results are returned in
// input order; a read failure cancels the remaining work.
func CompileFiles(ctx context.Context, files []string, opts Options) ([]*Result, error) {
	results := make([]*Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, runtime.NumCPU())

	for i, file := range files {
		i, file := i, file

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			res, err := CompileFile(file, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
