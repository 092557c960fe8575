// Package codegen emits target assembly text from an IR module.
package codegen

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZMcc18/minicompiler/internal/ir"
)

// DefaultTargetTriple is used when no target is configured.
const DefaultTargetTriple = "x86_64-unknown-linux-gnu"

// Generator writes an AT&T-syntax assembly skeleton for each function:
// a frame prologue, a body placeholder and the matching epilogue.
type Generator struct {
	triple string
}

// New creates a generator for triple; an empty triple selects the default.
func New(triple string) *Generator {
	if triple == "" {
		triple = DefaultTargetTriple
	}
	return &Generator{triple: triple}
}

// TargetTriple returns the configured target triple.
func (g *Generator) TargetTriple() string { return g.triple }

// Generate writes the assembly for module to w.
func (g *Generator) Generate(module *ir.Module, w io.Writer) error {
	if module == nil {
		return fmt.Errorf("cannot generate code for nil module")
	}

	if _, err := io.WriteString(w, g.Assembly(module)); err != nil {
		return fmt.Errorf("failed to write assembly: %w", err)
	}
	return nil
}

// Assembly returns the assembly text for module.
func (g *Generator) Assembly(module *ir.Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; Generated assembly for module: %s\n", module.Name)
	fmt.Fprintf(&b, "; Target triple: %s\n\n", g.triple)
	b.WriteString(".text\n")

	for _, fn := range module.Functions {
		emitFunc(&b, fn)
	}
	return b.String()
}

func emitFunc(b *strings.Builder, fn *ir.Function) {
	fmt.Fprintf(b, ".global %s\n", fn.Name)
	fmt.Fprintf(b, "%s:\n", fn.Name)

	// Prologue
	b.WriteString("    push    %rbp\n")
	b.WriteString("    mov     %rsp, %rbp\n")

	b.WriteString("    ; Function body would be generated here\n")

	// Epilogue
	b.WriteString("    mov     %rbp, %rsp\n")
	b.WriteString("    pop     %rbp\n")
	b.WriteString("    ret\n\n")
}
