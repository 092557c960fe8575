// Diagnostic reporting shared by every compiler stage.
// Stages never abort on bad input; they record diagnostics here and keep going.

package diagnostic

import (
	"fmt"
	"sort"

	"github.com/ZMcc18/minicompiler/internal/position"
)

// Level represents the severity level of a diagnostic message.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Stage identifies the pipeline stage that produced a diagnostic.
type Stage int

const (
	StageLexical Stage = iota
	StageSyntax
	StageSemantic
	StageIRGen
)

func (s Stage) String() string {
	switch s {
	case StageLexical:
		return "lexical"
	case StageSyntax:
		return "syntax"
	case StageSemantic:
		return "semantic"
	case StageIRGen:
		return "irgen"
	default:
		return "unknown"
	}
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Message string
	Pos     position.Position
	Level   Level
	Stage   Stage
}

// IsError reports whether the diagnostic has error severity.
func (d Diagnostic) IsError() bool { return d.Level == LevelError }

// String renders "pos: level: message", omitting an unknown position.
func (d Diagnostic) String() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", d.Pos, d.Level, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Level, d.Message)
}

// Builder helps construct diagnostic messages with fluent API.
type Builder struct {
	diagnostic Diagnostic
}

// New creates a new diagnostic builder for the given stage. Level defaults to error.
func New(stage Stage) *Builder {
	return &Builder{diagnostic: Diagnostic{Stage: stage, Level: LevelError}}
}

func (b *Builder) Error() *Builder {
	b.diagnostic.Level = LevelError

	return b
}

func (b *Builder) Warning() *Builder {
	b.diagnostic.Level = LevelWarning

	return b
}

func (b *Builder) Info() *Builder {
	b.diagnostic.Level = LevelInfo

	return b
}

func (b *Builder) At(pos position.Position) *Builder {
	b.diagnostic.Pos = pos

	return b
}

func (b *Builder) Message(message string) *Builder {
	b.diagnostic.Message = message

	return b
}

func (b *Builder) Messagef(format string, args ...interface{}) *Builder {
	b.diagnostic.Message = fmt.Sprintf(format, args...)

	return b
}

func (b *Builder) Build() Diagnostic {
	return b.diagnostic
}

// Config controls engine behavior.
type Config struct {
	// MaxErrors stops collecting after this many errors; zero means unlimited.
	MaxErrors        int
	WarningsAsErrors bool
}

// Engine manages the collection of diagnostics across stages.
type Engine struct {
	diagnostics []Diagnostic
	config      Config
	truncated   bool
}

// NewEngine creates a new diagnostic engine.
func NewEngine(config Config) *Engine {
	return &Engine{
		diagnostics: make([]Diagnostic, 0),
		config:      config,
	}
}

// Add adds a diagnostic to the engine.
func (e *Engine) Add(d Diagnostic) {
	if e.truncated {
		return
	}

	if e.config.WarningsAsErrors && d.Level == LevelWarning {
		d.Level = LevelError
	}

	e.diagnostics = append(e.diagnostics, d)

	if e.config.MaxErrors > 0 && len(e.Errors()) >= e.config.MaxErrors {
		e.truncated = true
		e.diagnostics = append(e.diagnostics, New(d.Stage).Error().
			Messagef("Stopping after %d errors", e.config.MaxErrors).Build())
	}
}

// AddAll adds every diagnostic in order.
func (e *Engine) AddAll(ds []Diagnostic) {
	for _, d := range ds {
		e.Add(d)
	}
}

// Diagnostics returns all diagnostics.
func (e *Engine) Diagnostics() []Diagnostic {
	return e.diagnostics
}

// Errors returns only error-level diagnostics.
func (e *Engine) Errors() []Diagnostic {
	errors := make([]Diagnostic, 0)

	for _, d := range e.diagnostics {
		if d.Level == LevelError {
			errors = append(errors, d)
		}
	}

	return errors
}

// Warnings returns only warning-level diagnostics.
func (e *Engine) Warnings() []Diagnostic {
	warnings := make([]Diagnostic, 0)

	for _, d := range e.diagnostics {
		if d.Level == LevelWarning {
			warnings = append(warnings, d)
		}
	}

	return warnings
}

// HasErrors returns true if there are any errors.
func (e *Engine) HasErrors() bool {
	for _, d := range e.diagnostics {
		if d.Level == LevelError {
			return true
		}
	}
	return false
}

// Clear removes all diagnostics.
func (e *Engine) Clear() {
	e.diagnostics = e.diagnostics[:0]
	e.truncated = false
}

// Sort orders diagnostics by position, then severity. Stage order is kept for ties.
func (e *Engine) Sort() {
	sort.SliceStable(e.diagnostics, func(i, j int) bool {
		a, b := e.diagnostics[i], e.diagnostics[j]

		if a.Pos.Filename != b.Pos.Filename {
			return a.Pos.Filename < b.Pos.Filename
		}

		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line < b.Pos.Line
		}

		if a.Pos.Column != b.Pos.Column {
			return a.Pos.Column < b.Pos.Column
		}

		return a.Level < b.Level
	})
}
