package contract

import "speclens/internal/value"

// Node is one tagged variant of the contract expression AST.
type Node interface {
	node()
}

// Literal is a constant: integer, float, string, boolean or none.
type Literal struct {
	Val value.Value
}

// Name references a bound variable (a parameter, self, or result).
type Name struct {
	Ident string
}

// Attribute is one-level attribute access on a bound name (self.field).
type Attribute struct {
	Base string
	Attr string
}

// Unary is negation or logical not.
type Unary struct {
	Op      string // "-" or "not"
	Operand Node
}

// Binary covers the boolean connectives, comparisons and arithmetic.
type Binary struct {
	Op          string // "and" "or" "==" "!=" "<" "<=" ">" ">=" "+" "-" "*" "/" "//" "%"
	Left, Right Node
}

func (*Literal) node()   {}
func (*Name) node()      {}
func (*Attribute) node() {}
func (*Unary) node()     {}
func (*Binary) node()    {}
