// Package contract implements the restricted boolean expression sublanguage
// used by @requires, @ensures and @invariant annotations: a hand-rolled
// lexer and Pratt parser producing a tagged-variant AST, and a small
// explicit evaluator over a typed binding map. The sublanguage is
// expression-only: no calls, no loops, no assignment, and attribute access
// at most one level deep, so contract evaluation is side-effect-free and
// terminating.
package contract

import (
	"fmt"

	"speclens/internal/value"
)

// Kind declares where a contract applies.
type Kind int

const (
	Precondition Kind = iota
	Postcondition
	Invariant
)

func (k Kind) String() string {
	switch k {
	case Precondition:
		return "requires"
	case Postcondition:
		return "ensures"
	case Invariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Expression is one parsed contract: its raw text (kept for diagnostics),
// its declared kind, and the expression AST. Immutable once parsed.
type Expression struct {
	Kind Kind
	Raw  string
	Root Node
}

// Parse parses raw as a contract expression of the given kind.
// A syntax error is returned as a *ParseError.
func Parse(kind Kind, raw string) (*Expression, error) {
	root, err := parseExpr(raw)
	if err != nil {
		return nil, err
	}
	return &Expression{Kind: kind, Raw: raw, Root: root}, nil
}

// ParseError reports a contract that does not belong to the sublanguage.
// The owning unit survives; only this contract is dropped.
type ParseError struct {
	Raw string
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("contract: parse %q at %d: %s", e.Raw, e.Pos, e.Msg)
}

// EvalError reports an evaluation failure: an unbound name, an undefined
// operation (such as division by zero inside the expression), or a
// non-object attribute base. The verifier treats these conservatively as
// contract violations.
type EvalError struct {
	Raw   string
	Cause error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("contract: eval %q: %v", e.Raw, e.Cause)
}

func (e *EvalError) Unwrap() error { return e.Cause }

// Eval evaluates the contract against env and reduces the result to a
// boolean by truthiness. Evaluation never mutates env.
func (e *Expression) Eval(env value.Env) (bool, error) {
	v, err := evalNode(e.Root, env)
	if err != nil {
		return false, &EvalError{Raw: e.Raw, Cause: err}
	}
	return v.Truth(), nil
}
