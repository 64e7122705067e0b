package expr

import "fmt"

// Kind classifies expression failures.
type Kind int

const (
	// KindSyntax is a tokenizer or parser failure.
	KindSyntax Kind = iota
	// KindUnknownIdentifier is a reference to a variable absent from the snapshot.
	KindUnknownIdentifier
	// KindNotNumeric is a reference to a variable of the wrong type.
	KindNotNumeric
	// KindUnknownFunction is a call to a function outside the supported set.
	KindUnknownFunction
	// KindArity is a call with the wrong number of arguments.
	KindArity
	// KindDivisionByZero covers /, // and % with a zero divisor.
	KindDivisionByZero
	// KindIndexOutOfRange is an array index outside [0, len).
	KindIndexOutOfRange
	// KindTooDeep is an expression nested beyond the parser's depth limit.
	KindTooDeep
	// KindNotFinite is a result that is infinite or NaN.
	KindNotFinite
)

var kindNames = map[Kind]string{
	KindSyntax:            "syntax",
	KindUnknownIdentifier: "unknown identifier",
	KindNotNumeric:        "not numeric",
	KindUnknownFunction:   "unknown function",
	KindArity:             "arity",
	KindDivisionByZero:    "division by zero",
	KindIndexOutOfRange:   "index out of range",
	KindTooDeep:           "too deep",
	KindNotFinite:         "not finite",
}

// String returns a short name for the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsBinding reports whether the failure stems from the snapshot (a missing or
// mistyped variable) rather than from the formula itself.
func (k Kind) IsBinding() bool {
	return k == KindUnknownIdentifier || k == KindNotNumeric
}

// Error is an expression failure. Error() is the human-readable description.
type Error struct {
	Kind Kind   // Failure category
	Pos  int    // Byte offset into the source, or -1 if not applicable
	Msg  string // Description
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Msg }

func errorf(kind Kind, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func syntaxErrorf(pos int, format string, args ...any) *Error {
	return &Error{
		Kind: KindSyntax,
		Pos:  pos,
		Msg:  fmt.Sprintf("syntax error at position %d: %s", pos+1, fmt.Sprintf(format, args...)),
	}
}
