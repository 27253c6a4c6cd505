// Package features reduces a parsed unit to the fixed numeric vector used
// by dataset emission and model scoring. The column set is the schema
// contract between labeling and inference: both sides import Columns
// instead of restating the list.
package features

import (
	"strings"

	"speclens/internal/contract"
	"speclens/internal/parse"
)

// Columns lists the feature names in emission order.
var Columns = []string{
	"n_params",
	"n_requires",
	"n_ensures",
	"n_invariants",
	"n_loc",
	"has_self",
	"has_other",
	"requires_complexity",
	"ensures_complexity",
	"ensures_has_arith",
	"ensures_has_cmp",
}

// Vector is one unit's feature row. Counts and flags are ints so the CSV
// side never needs per-column formatting rules.
type Vector struct {
	NParams            int
	NRequires          int
	NEnsures           int
	NInvariants        int
	NLOC               int
	HasSelf            int
	HasOther           int
	RequiresComplexity int
	EnsuresComplexity  int
	EnsuresHasArith    int
	EnsuresHasCmp      int
}

// Row renders the vector in Columns order.
func (v Vector) Row() []int {
	return []int{
		v.NParams,
		v.NRequires,
		v.NEnsures,
		v.NInvariants,
		v.NLOC,
		v.HasSelf,
		v.HasOther,
		v.RequiresComplexity,
		v.EnsuresComplexity,
		v.EnsuresHasArith,
		v.EnsuresHasCmp,
	}
}

// Extract computes the feature vector for a unit. It reads only the parsed
// structure, never executes anything, and is deterministic for a given
// unit.
func Extract(u *parse.Unit) Vector {
	v := Vector{
		NParams:     len(u.Params),
		NRequires:   len(u.Requires),
		NEnsures:    len(u.Ensures),
		NInvariants: len(u.Invariants),
		NLOC:        u.BodyLines,
	}

	for _, p := range u.Params {
		switch p.Name {
		case "self":
			v.HasSelf = 1
		case "other":
			v.HasOther = 1
		}
	}

	v.RequiresComplexity = complexity(u.Requires)
	v.EnsuresComplexity = complexity(u.Ensures)

	for _, e := range u.Ensures {
		if containsOp(e.Root, arithOps) {
			v.EnsuresHasArith = 1
		}
		if containsOp(e.Root, cmpOps) {
			v.EnsuresHasCmp = 1
		}
	}
	return v
}

// complexity sums the node counts of the contracts' expression trees, a
// crude but stable proxy for how much a contract asserts.
func complexity(exprs []*contract.Expression) int {
	total := 0
	for _, e := range exprs {
		total += nodeCount(e.Root)
	}
	return total
}

func nodeCount(n contract.Node) int {
	switch n := n.(type) {
	case *contract.Binary:
		return 1 + nodeCount(n.Left) + nodeCount(n.Right)
	case *contract.Unary:
		return 1 + nodeCount(n.Operand)
	case *contract.Attribute:
		// Base is a plain name, so the chain is two nodes.
		return 2
	default:
		return 1
	}
}

var arithOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "//": true, "%": true,
}

var cmpOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

func containsOp(n contract.Node, ops map[string]bool) bool {
	switch n := n.(type) {
	case *contract.Binary:
		if ops[strings.TrimSpace(n.Op)] {
			return true
		}
		return containsOp(n.Left, ops) || containsOp(n.Right, ops)
	case *contract.Unary:
		return containsOp(n.Operand, ops)
	default:
		return false
	}
}
