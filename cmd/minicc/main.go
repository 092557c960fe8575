// Command minicc compiles C-like source files to IR text or assembly.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/ZMcc18/minicompiler/internal/ast"
	mcli "github.com/ZMcc18/minicompiler/internal/cli"
	"github.com/ZMcc18/minicompiler/internal/config"
	"github.com/ZMcc18/minicompiler/internal/diagnostic"
	"github.com/ZMcc18/minicompiler/internal/driver"
	"github.com/ZMcc18/minicompiler/internal/lexer"
	"github.com/ZMcc18/minicompiler/internal/position"
	"github.com/ZMcc18/minicompiler/internal/watch"
)

const toolName = "minicc"

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	outputFlag = cli.StringFlag{
		Name:  "output, o",
		Usage: "Write output to `FILE` (default: a.out)",
	}
	emitIRFlag = cli.BoolFlag{
		Name:  "emit-ir",
		Usage: "Emit IR instead of assembly",
	}
	opt0Flag = cli.BoolFlag{Name: "O0", Usage: "No optimizations"}
	opt1Flag = cli.BoolFlag{Name: "O1", Usage: "Basic optimizations"}
	opt2Flag = cli.BoolFlag{Name: "O2", Usage: "More aggressive optimizations"}

	targetFlag = cli.StringFlag{
		Name:  "target",
		Usage: "Target triple for code generation",
	}
	dumpTokensFlag = cli.BoolFlag{
		Name:  "dump-tokens",
		Usage: "Print the token stream as a table",
	}
	dumpASTFlag = cli.BoolFlag{
		Name:  "dump-ast",
		Usage: "Print the syntax tree",
	}
	noCheckFlag = cli.BoolFlag{
		Name:  "no-check",
		Usage: "Skip semantic analysis",
	}
	colorFlag = cli.StringFlag{
		Name:  "color",
		Usage: "Colorize diagnostics: auto, always or never",
	}
	watchFlag = cli.BoolFlag{
		Name:  "watch",
		Usage: "Recompile when an input file changes",
	}
	verboseFlag = cli.BoolFlag{
		Name:  "verbose, v",
		Usage: "Print progress messages",
	}
	debugFlag = cli.BoolFlag{
		Name:  "debug",
		Usage: "Print debug messages",
	}
	versionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "Print version information",
	}
	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "Print version information as JSON",
	}
)

// errCompilationFailed is returned after diagnostics have been rendered.
var errCompilationFailed = errors.New("compilation failed")

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.Run(args); err != nil {
		if err != errCompilationFailed {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = toolName
	app.Usage = "compile a small C-like language to IR or assembly"
	app.ArgsUsage = "<input_file>..."
	app.Version = mcli.Version
	app.HideVersion = true
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		configFileFlag,
		outputFlag,
		emitIRFlag,
		opt0Flag,
		opt1Flag,
		opt2Flag,
		targetFlag,
		dumpTokensFlag,
		dumpASTFlag,
		noCheckFlag,
		colorFlag,
		watchFlag,
		verboseFlag,
		debugFlag,
		versionFlag,
	}
	app.Action = func(ctx *cli.Context) error {
		if ctx.Bool(versionFlag.Name) {
			mcli.PrintVersion(stdout, toolName, false)
			return nil
		}
		return compile(ctx, stdout, stderr)
	}
	app.Commands = []cli.Command{
		{
			Name:  "dumpconfig",
			Usage: "Show configuration values",
			Flags: []cli.Flag{configFileFlag},
			Action: func(ctx *cli.Context) error {
				return dumpConfig(ctx, stdout)
			},
		},
		{
			Name:  "version",
			Usage: "Print version information",
			Flags: []cli.Flag{jsonFlag},
			Action: func(ctx *cli.Context) error {
				mcli.PrintVersion(stdout, toolName, ctx.Bool(jsonFlag.Name))
				return nil
			},
		},
	}
	return app
}

// loadConfig builds the effective configuration: defaults, then the
// config file, then command line flags.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Defaults

	file := ctx.String(configFileFlag.Name)
	if file == "" {
		file = ctx.GlobalString(configFileFlag.Name)
	}
	if file != "" {
		if err := config.Load(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := config.CheckVersion(cfg.Compiler.MinVersion, mcli.Version); err != nil {
		return cfg, err
	}

	if out := ctx.String("output"); out != "" {
		cfg.Compiler.Output = out
	}
	if ctx.Bool(emitIRFlag.Name) {
		cfg.Compiler.EmitIR = true
	}
	switch {
	case ctx.Bool(opt2Flag.Name):
		cfg.Compiler.OptLevel = 2
	case ctx.Bool(opt1Flag.Name):
		cfg.Compiler.OptLevel = 1
	case ctx.Bool(opt0Flag.Name):
		cfg.Compiler.OptLevel = 0
	}
	if target := ctx.String(targetFlag.Name); target != "" {
		cfg.Compiler.Target = target
	}
	if mode := ctx.String(colorFlag.Name); mode != "" {
		cfg.Diagnostics.Color = mode
	}
	if ctx.Bool("verbose") {
		cfg.Log.Verbose = true
	}
	if ctx.Bool(debugFlag.Name) {
		cfg.Log.Debug = true
	}
	return cfg, cfg.Validate()
}

func dumpConfig(ctx *cli.Context, stdout io.Writer) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	out, err := config.Dump(&cfg)
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

// session carries the state shared by one minicc invocation.
type session struct {
	cfg      config.Config
	opts     driver.Options
	logger   *mcli.Logger
	renderer *diagnostic.Renderer
	stdout   io.Writer

	dumpTokens bool
	dumpAST    bool
	outputs    map[string]string // input path -> output path
}

func compile(ctx *cli.Context, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	inputs := []string(ctx.Args())
	if len(inputs) == 0 {
		cli.ShowAppHelp(ctx)
		return errors.New("No input file specified")
	}

	mode, err := diagnostic.ParseColorMode(cfg.Diagnostics.Color)
	if err != nil {
		return err
	}

	logger := mcli.NewLogger(cfg.Log.Verbose, cfg.Log.Debug)
	logger.Out = stdout

	s := &session{
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
		opts: driver.Options{
			EmitIR:           cfg.Compiler.EmitIR,
			OptLevel:         cfg.Compiler.OptLevel,
			Target:           cfg.Compiler.Target,
			Analyze:          !ctx.Bool(noCheckFlag.Name),
			MaxErrors:        cfg.Diagnostics.MaxErrors,
			WarningsAsErrors: cfg.Diagnostics.WarningsAsErrors,
			Logger:           logger,
		},
		dumpTokens: ctx.Bool(dumpTokensFlag.Name),
		dumpAST:    ctx.Bool(dumpASTFlag.Name),
		outputs:    outputPaths(inputs, cfg.Compiler.Output, cfg.Compiler.EmitIR),
	}
	if f, ok := stderr.(*os.File); ok {
		s.renderer = diagnostic.NewRenderer(f, mode)
	} else {
		s.renderer = diagnostic.NewWriterRenderer(stderr)
	}

	if ctx.Bool(watchFlag.Name) {
		return s.watch(inputs)
	}

	results, err := driver.CompileFiles(context.Background(), inputs, s.opts)
	if err != nil {
		return err
	}

	failed := false
	for _, res := range results {
		if err := s.report(res); err != nil {
			return err
		}
		if res.HasErrors() {
			failed = true
		}
	}
	if failed {
		return errCompilationFailed
	}

	logger.Info("Compilation successful!")
	return nil
}

// outputPaths maps each input to its output file. A single input writes
// to output; several inputs each get a sibling file.
func outputPaths(inputs []string, output string, emitIR bool) map[string]string {
	paths := make(map[string]string, len(inputs))
	if len(inputs) == 1 {
		paths[inputs[0]] = output
		return paths
	}

	ext := ".s"
	if emitIR {
		ext = ".ir"
	}
	for _, in := range inputs {
		paths[in] = strings.TrimSuffix(in, filepath.Ext(in)) + ext
	}
	return paths
}

// report renders the diagnostics of res, prints the requested dumps and
// writes the output file when compilation succeeded.
func (s *session) report(res *driver.Result) error {
	s.renderer.AddSource(position.NewSourceFile(res.Filename, res.Source))
	s.renderer.RenderAll(res.Diagnostics)

	if s.dumpTokens {
		printTokens(s.stdout, res.Tokens)
	}
	if s.dumpAST && res.Program != nil {
		printAST(s.stdout, res)
	}

	if res.HasErrors() || res.Output == "" {
		return nil
	}

	out := s.outputs[res.Filename]
	if err := os.WriteFile(out, []byte(res.Output), 0644); err != nil {
		return fmt.Errorf("Could not open output file '%s'", out)
	}
	if s.opts.EmitIR {
		s.logger.Info("IR code written to %s", out)
	} else {
		s.logger.Info("Assembly code written to %s", out)
	}
	return nil
}

func printTokens(w io.Writer, tokens []lexer.Token) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Type", "Lexeme", "Line", "Column"})
	table.SetAutoFormatHeaders(false)
	for _, tok := range tokens {
		table.Append([]string{
			tok.Type.String(),
			tok.Lexeme,
			strconv.Itoa(tok.Pos.Line),
			strconv.Itoa(tok.Pos.Column),
		})
	}
	table.Render()
}

var astDumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func printAST(w io.Writer, res *driver.Result) {
	fmt.Fprintf(w, "; AST for %s\n", res.Filename)
	astDumper.Fdump(w, res.Program)

	if res.Program == nil {
		return
	}
	counts := ast.Stats(res.Program)
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	fmt.Fprintf(w, "; Node counts for %s\n", res.Filename)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Node", "Count"})
	table.SetAutoFormatHeaders(false)
	for _, kind := range kinds {
		table.Append([]string{kind, strconv.Itoa(counts[kind])})
	}
	table.Render()
}

// watch compiles every input, then recompiles each one as it changes
// until interrupted.
func (s *session) watch(inputs []string) error {
	cache, err := driver.NewCache(s.cfg.Watch.CacheSize, s.opts)
	if err != nil {
		return err
	}

	w, err := watch.New(time.Duration(s.cfg.Watch.DebounceMillis) * time.Millisecond)
	if err != nil {
		return err
	}
	defer w.Close()

	byAbs := make(map[string]string, len(inputs))
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return err
		}
		byAbs[abs] = in
		if err := w.Add(in); err != nil {
			return err
		}
	}

	recompile := func(input string) {
		data, err := os.ReadFile(input)
		if err != nil {
			s.logger.Error("could not open file '%s': %v", input, err)
			return
		}
		res := cache.Compile(input, string(data))
		if err := s.report(res); err != nil {
			s.logger.Error("%v", err)
		}
	}

	for _, in := range inputs {
		recompile(in)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.logger.Info("Watching %d file(s) for changes", len(inputs))
	err = w.Run(ctx, func(path string) {
		input, ok := byAbs[path]
		if !ok {
			return
		}
		s.logger.Info("%s changed, recompiling", input)
		recompile(input)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
