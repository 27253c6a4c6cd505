// Package parse is the static front end: it builds a tree-sitter syntax
// tree for one subject source file, locates function, method and class
// definitions, and attaches the contract annotations found in adjacent
// comments. The output is an ordered sequence of specification units in
// definition order.
package parse

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"speclens/internal/contract"
)

// Param is one declared parameter with its optional type hint text.
type Param struct {
	Name string
	Hint string
}

// Unit is one specification unit: a function or method, its parameters,
// source span and parsed contracts. The parser owns the unit for the
// lifetime of its Module; verifier and extractor only read it.
type Unit struct {
	Name  string
	Class string // owning class, empty for free functions

	Params    []Param
	StartLine int
	EndLine   int
	BodyLines int // line span of the body block

	Requires   []*contract.Expression
	Ensures    []*contract.Expression
	Invariants []*contract.Expression // inherited from the owning class

	// DroppedContracts records parse-error markers for annotations that
	// did not parse. The unit itself stays valid.
	DroppedContracts []string

	// Body is the function's block node inside the module tree. Valid
	// until the owning Module is closed.
	Body *sitter.Node
}

// ID renders the unit identifier used in datasets and diagnostics.
func (u *Unit) ID() string {
	if u.Class != "" {
		return u.Class + "." + u.Name
	}
	return u.Name
}

// Signature renders a stable identity string for seed derivation: class,
// name and ordered parameter names.
func (u *Unit) Signature() string {
	sig := u.ID() + "("
	for i, p := range u.Params {
		if i > 0 {
			sig += ","
		}
		sig += p.Name
	}
	return sig + ")"
}

// ContractCount returns the total number of parsed contracts of all kinds.
func (u *Unit) ContractCount() int {
	return len(u.Requires) + len(u.Ensures) + len(u.Invariants)
}

// Module is the parse result for one source file. It keeps the tree-sitter
// tree alive for the interpreter; Close releases it, invalidating every
// unit's Body node.
type Module struct {
	Path   string
	Source []byte
	Units  []*Unit

	tree *sitter.Tree
}

// Close releases the underlying syntax tree.
func (m *Module) Close() {
	if m.tree != nil {
		m.tree.Close()
		m.tree = nil
	}
}

// FileParseError marks a file the subject-language parser could not make
// sense of. The assembler logs it and skips the file.
type FileParseError struct {
	Path string
	Msg  string
}

func (e *FileParseError) Error() string {
	return fmt.Sprintf("parse: %s: %s", e.Path, e.Msg)
}
