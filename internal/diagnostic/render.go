package diagnostic

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/ZMcc18/minicompiler/internal/position"
)

// ColorMode selects when the renderer emits ANSI colors.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode accepts "auto", "always" or "never".
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
	}
}

// Renderer prints diagnostics with the offending source line and a caret.
type Renderer struct {
	out     io.Writer
	width   int
	sources map[string]*position.SourceFile

	errorColor *color.Color
	warnColor  *color.Color
	infoColor  *color.Color
	posColor   *color.Color
	caretColor *color.Color
}

// NewRenderer creates a renderer for a terminal-like file such as os.Stderr.
func NewRenderer(f *os.File, mode ColorMode) *Renderer {
	fd := f.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	useColor := mode == ColorAlways || (mode == ColorAuto && tty)

	var out io.Writer
	if useColor {
		out = colorable.NewColorable(f)
	} else {
		out = colorable.NewNonColorable(f)
	}

	r := newRenderer(out, useColor)
	if tty {
		r.width = terminalWidth(f)
	}
	return r
}

// NewWriterRenderer creates a colorless renderer writing to w.
func NewWriterRenderer(w io.Writer) *Renderer {
	return newRenderer(w, false)
}

func newRenderer(out io.Writer, useColor bool) *Renderer {
	r := &Renderer{
		out:        out,
		sources:    make(map[string]*position.SourceFile),
		errorColor: color.New(color.FgRed, color.Bold),
		warnColor:  color.New(color.FgYellow, color.Bold),
		infoColor:  color.New(color.FgCyan),
		posColor:   color.New(color.Bold),
		caretColor: color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{r.errorColor, r.warnColor, r.infoColor, r.posColor, r.caretColor} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// AddSource registers source text so diagnostics can quote it.
func (r *Renderer) AddSource(sf *position.SourceFile) {
	r.sources[sf.Filename] = sf
}

// Render writes a single diagnostic.
func (r *Renderer) Render(d Diagnostic) {
	var levelColor *color.Color
	switch d.Level {
	case LevelError:
		levelColor = r.errorColor
	case LevelWarning:
		levelColor = r.warnColor
	default:
		levelColor = r.infoColor
	}

	if d.Pos.IsValid() {
		fmt.Fprintf(r.out, "%s %s %s\n",
			r.posColor.Sprintf("%s:", d.Pos),
			levelColor.Sprintf("%s:", d.Level),
			d.Message)
	} else {
		fmt.Fprintf(r.out, "%s %s\n", levelColor.Sprintf("%s:", d.Level), d.Message)
	}

	sf := r.sources[d.Pos.Filename]
	line := sf.Line(d.Pos.Line)
	if line == "" {
		return
	}

	gutter := fmt.Sprintf("%5d | ", d.Pos.Line)
	line = strings.ReplaceAll(line, "\t", " ")
	if r.width > len(gutter)+4 && len(gutter)+len(line) > r.width {
		line = line[:r.width-len(gutter)-3] + "..."
	}
	fmt.Fprintf(r.out, "%s%s\n", gutter, line)

	col := d.Pos.Column - 1
	if col < 0 {
		col = 0
	}
	if n := utf8.RuneCountInString(line); col > n {
		col = n
	}
	fmt.Fprintf(r.out, "%s%s%s\n", strings.Repeat(" ", len(gutter)-2), "| "+strings.Repeat(" ", col), r.caretColor.Sprint("^"))
}

// RenderAll writes every diagnostic followed by a summary line when anything was reported.
func (r *Renderer) RenderAll(ds []Diagnostic) {
	errors, warnings := 0, 0
	for _, d := range ds {
		r.Render(d)
		switch d.Level {
		case LevelError:
			errors++
		case LevelWarning:
			warnings++
		}
	}
	if errors == 0 && warnings == 0 {
		return
	}

	var parts []string
	if errors > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errors))
	}
	if warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warnings))
	}
	fmt.Fprintf(r.out, "%s generated.\n", strings.Join(parts, ", "))
}
