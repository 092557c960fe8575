// Package semantic performs scope and type checking over the AST.
// Analysis never stops early: every violation becomes a diagnostic and the
// walk continues, so one pass reports everything it can detect.
package semantic

// Type is an element of the small type lattice the checker works with.
type Type int

const (
	TypeUnknown Type = iota // result of an expression that already failed to check
	TypeInt
	TypeFloat
	TypeString
	TypeVoid
)

// String returns the source spelling of the type.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeVoid:
		return "void"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether t is int or float.
func (t Type) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

// TypeFromName maps a type keyword to its Type.
func TypeFromName(name string) Type {
	switch name {
	case "int":
		return TypeInt
	case "float":
		return TypeFloat
	case "string":
		return TypeString
	case "void":
		return TypeVoid
	default:
		return TypeUnknown
	}
}

// Compatible reports whether a value of type from may be used where to is expected.
// The only implicit conversion is int to float.
func Compatible(from, to Type) bool {
	if from == to {
		return true
	}
	return from == TypeInt && to == TypeFloat
}

// CommonType returns the result type of arithmetic over a and b.
func CommonType(a, b Type) Type {
	if a == TypeFloat || b == TypeFloat {
		return TypeFloat
	}
	if a == TypeInt && b == TypeInt {
		return TypeInt
	}
	return TypeUnknown
}
