package semantic

import (
	"github.com/ZMcc18/minicompiler/internal/position"
)

// SymbolKind represents the kind of symbol.
type SymbolKind int

const (
	SymbolKindVariable SymbolKind = iota
	SymbolKindFunction
)

// String returns the string representation of SymbolKind.
func (sk SymbolKind) String() string {
	switch sk {
	case SymbolKindVariable:
		return "variable"
	case SymbolKindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Symbol represents a named entity in the program.
type Symbol struct {
	Name   string
	Type   Type // declared type; the return type for functions
	Kind   SymbolKind
	Pos    position.Position
	Params []Type // ordered parameter types, functions only
}

// ScopeKind represents the kind of scope.
type ScopeKind int

const (
	ScopeKindGlobal ScopeKind = iota
	ScopeKindFunction
	ScopeKindBlock
)

// String returns the string representation of ScopeKind.
func (sk ScopeKind) String() string {
	switch sk {
	case ScopeKindGlobal:
		return "global"
	case ScopeKindFunction:
		return "function"
	case ScopeKindBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Scope is one frame of name bindings. Parent is a lookup link only;
// frames are owned by the scopeStack that created them.
type Scope struct {
	Symbols map[string]*Symbol
	Parent  *Scope
	Kind    ScopeKind
	Depth   int
}

// NewScope creates a frame chained to parent.
func NewScope(parent *Scope, kind ScopeKind) *Scope {
	depth := 0
	if parent != nil {
		depth = parent.Depth + 1
	}
	return &Scope{
		Symbols: make(map[string]*Symbol),
		Parent:  parent,
		Kind:    kind,
		Depth:   depth,
	}
}

// Define binds sym in this frame, replacing any binding of the same name.
func (s *Scope) Define(sym *Symbol) {
	s.Symbols[sym.Name] = sym
}

// LookupLocal finds name in this frame only.
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.Symbols[name]
}

// Lookup finds name in this frame or the nearest enclosing one.
func (s *Scope) Lookup(name string) *Symbol {
	for scope := s; scope != nil; scope = scope.Parent {
		if sym, ok := scope.Symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// scopeStack owns the frames live during a traversal.
type scopeStack struct {
	frames []*Scope
}

func (st *scopeStack) reset() {
	st.frames = st.frames[:0]
	st.push(ScopeKindGlobal)
}

func (st *scopeStack) push(kind ScopeKind) *Scope {
	scope := NewScope(st.current(), kind)
	st.frames = append(st.frames, scope)
	return scope
}

// pop discards the innermost frame; the global frame is never popped.
func (st *scopeStack) pop() {
	if len(st.frames) > 1 {
		st.frames = st.frames[:len(st.frames)-1]
	}
}

func (st *scopeStack) current() *Scope {
	if len(st.frames) == 0 {
		return nil
	}
	return st.frames[len(st.frames)-1]
}

func (st *scopeStack) global() *Scope {
	if len(st.frames) == 0 {
		return nil
	}
	return st.frames[0]
}

func (st *scopeStack) lookup(name string) *Symbol {
	return st.current().Lookup(name)
}

func (st *scopeStack) define(sym *Symbol) {
	st.current().Define(sym)
}

func (st *scopeStack) depth() int {
	return len(st.frames)
}
