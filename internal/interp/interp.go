// Package interp executes a specification unit's body over the dynamic
// value system, inside a fault boundary. Anything the subject code does
// wrong — raising arithmetic faults, running past the step budget, using a
// construct outside the supported subset — comes back as a *SubjectFault,
// which the verifier records as data. Only engine invariant breaches
// surface as *InternalError and escalate.
package interp

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"speclens/internal/parse"
	"speclens/internal/value"
)

// SubjectFault is a runtime fault raised by the unit under test. It is a
// label signal, not an engine error.
type SubjectFault struct {
	Msg  string
	Line int
}

func (e *SubjectFault) Error() string {
	return fmt.Sprintf("interp: subject fault at line %d: %s", e.Line, e.Msg)
}

// InternalError indicates a bug in the engine itself and aborts the run.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "interp: internal: " + e.Msg
}

// ctrl is the statement-level control outcome: whether the body returned,
// and with what.
type ctrl struct {
	returned bool
	val      value.Value
}

type machine struct {
	src    []byte
	frame  value.Env
	fuel   int
	capped bool
}

// Invoke calls the unit with the given argument tuple. budget caps the
// number of interpreter steps for this call (0 = unlimited); exhausting it
// is a subject fault, the guard against non-terminating subject code.
// A normal fall-through return yields None.
func Invoke(u *parse.Unit, src []byte, args []value.Value, budget int) (value.Value, error) {
	if u.Body == nil {
		return value.Value{}, &InternalError{Msg: "unit " + u.ID() + " has no body node"}
	}
	if len(args) != len(u.Params) {
		return value.Value{}, &InternalError{
			Msg: fmt.Sprintf("unit %s: %d args for %d params", u.ID(), len(args), len(u.Params)),
		}
	}

	m := &machine{
		src:    src,
		frame:  make(value.Env, len(args)+4),
		fuel:   budget,
		capped: budget > 0,
	}
	for i, p := range u.Params {
		m.frame[p.Name] = args[i]
	}

	c, err := m.execBlock(u.Body)
	if err != nil {
		return value.Value{}, err
	}
	if c.returned {
		return c.val, nil
	}
	return value.None(), nil
}

func (m *machine) text(n *sitter.Node) string {
	return string(m.src[n.StartByte():n.EndByte()])
}

func (m *machine) faultf(n *sitter.Node, format string, args ...any) error {
	line := 0
	if n != nil {
		line = int(n.StartPoint().Row) + 1
	}
	return &SubjectFault{Msg: fmt.Sprintf(format, args...), Line: line}
}

// charge burns one step of the budget.
func (m *machine) charge(n *sitter.Node) error {
	if !m.capped {
		return nil
	}
	m.fuel--
	if m.fuel < 0 {
		return m.faultf(n, "step budget exhausted")
	}
	return nil
}

func (m *machine) execBlock(block *sitter.Node) (ctrl, error) {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		stmt := block.NamedChild(i)
		c, err := m.execStmt(stmt)
		if err != nil {
			return ctrl{}, err
		}
		if c.returned {
			return c, nil
		}
	}
	return ctrl{}, nil
}

func (m *machine) execStmt(stmt *sitter.Node) (ctrl, error) {
	if err := m.charge(stmt); err != nil {
		return ctrl{}, err
	}

	switch stmt.Type() {
	case "comment", "pass_statement":
		return ctrl{}, nil

	case "expression_statement":
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			if _, err := m.evalOrAssign(stmt.NamedChild(i)); err != nil {
				return ctrl{}, err
			}
		}
		return ctrl{}, nil

	case "return_statement":
		if stmt.NamedChildCount() == 0 {
			return ctrl{returned: true, val: value.None()}, nil
		}
		v, err := m.eval(stmt.NamedChild(0))
		if err != nil {
			return ctrl{}, err
		}
		return ctrl{returned: true, val: v}, nil

	case "if_statement":
		return m.execIf(stmt)

	case "while_statement":
		return m.execWhile(stmt)

	case "for_statement":
		return m.execFor(stmt)

	default:
		return ctrl{}, m.faultf(stmt, "unsupported statement %q", stmt.Type())
	}
}

// evalOrAssign handles expression statements, which may be assignments.
func (m *machine) evalOrAssign(n *sitter.Node) (value.Value, error) {
	switch n.Type() {
	case "assignment":
		right := n.ChildByFieldName("right")
		if right == nil {
			return value.Value{}, m.faultf(n, "assignment without right-hand side")
		}
		v, err := m.eval(right)
		if err != nil {
			return value.Value{}, err
		}
		return value.None(), m.assign(n.ChildByFieldName("left"), v)

	case "augmented_assignment":
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		opNode := n.ChildByFieldName("operator")
		if left == nil || right == nil || opNode == nil {
			return value.Value{}, m.faultf(n, "malformed augmented assignment")
		}
		op := strings.TrimSuffix(m.text(opNode), "=")
		cur, err := m.eval(left)
		if err != nil {
			return value.Value{}, err
		}
		rhs, err := m.eval(right)
		if err != nil {
			return value.Value{}, err
		}
		next, err := value.Binary(op, cur, rhs)
		if err != nil {
			return value.Value{}, m.faultf(n, "%v", err)
		}
		return value.None(), m.assign(left, next)

	default:
		return m.eval(n)
	}
}

func (m *machine) assign(target *sitter.Node, v value.Value) error {
	if target == nil {
		return &InternalError{Msg: "assignment without target"}
	}
	switch target.Type() {
	case "identifier":
		m.frame[m.text(target)] = v
		return nil
	case "attribute":
		objNode := target.ChildByFieldName("object")
		attrNode := target.ChildByFieldName("attribute")
		if objNode == nil || attrNode == nil {
			return m.faultf(target, "malformed attribute target")
		}
		obj, err := m.eval(objNode)
		if err != nil {
			return err
		}
		if obj.Kind() != value.KindObject {
			return m.faultf(target, "cannot set attribute on %s", obj.Kind())
		}
		obj.AsObject().Set(m.text(attrNode), v)
		return nil
	default:
		return m.faultf(target, "unsupported assignment target %q", target.Type())
	}
}

func (m *machine) execIf(stmt *sitter.Node) (ctrl, error) {
	cond := stmt.ChildByFieldName("condition")
	cons := stmt.ChildByFieldName("consequence")
	if cond == nil || cons == nil {
		return ctrl{}, m.faultf(stmt, "malformed if statement")
	}

	v, err := m.eval(cond)
	if err != nil {
		return ctrl{}, err
	}
	if v.Truth() {
		return m.execBlock(cons)
	}

	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		clause := stmt.NamedChild(i)
		switch clause.Type() {
		case "elif_clause":
			econd := clause.ChildByFieldName("condition")
			econs := clause.ChildByFieldName("consequence")
			if econd == nil || econs == nil {
				return ctrl{}, m.faultf(clause, "malformed elif clause")
			}
			ev, err := m.eval(econd)
			if err != nil {
				return ctrl{}, err
			}
			if ev.Truth() {
				return m.execBlock(econs)
			}
		case "else_clause":
			body := clause.ChildByFieldName("body")
			if body == nil {
				return ctrl{}, m.faultf(clause, "malformed else clause")
			}
			return m.execBlock(body)
		}
	}
	return ctrl{}, nil
}

func (m *machine) execWhile(stmt *sitter.Node) (ctrl, error) {
	cond := stmt.ChildByFieldName("condition")
	body := stmt.ChildByFieldName("body")
	if cond == nil || body == nil {
		return ctrl{}, m.faultf(stmt, "malformed while statement")
	}

	for {
		if err := m.charge(stmt); err != nil {
			return ctrl{}, err
		}
		v, err := m.eval(cond)
		if err != nil {
			return ctrl{}, err
		}
		if !v.Truth() {
			return ctrl{}, nil
		}
		c, err := m.execBlock(body)
		if err != nil {
			return ctrl{}, err
		}
		if c.returned {
			return c, nil
		}
	}
}

func (m *machine) execFor(stmt *sitter.Node) (ctrl, error) {
	left := stmt.ChildByFieldName("left")
	right := stmt.ChildByFieldName("right")
	body := stmt.ChildByFieldName("body")
	if left == nil || right == nil || body == nil {
		return ctrl{}, m.faultf(stmt, "malformed for statement")
	}
	if left.Type() != "identifier" {
		return ctrl{}, m.faultf(left, "unsupported loop target %q", left.Type())
	}

	iterable, err := m.eval(right)
	if err != nil {
		return ctrl{}, err
	}
	if iterable.Kind() != value.KindList {
		return ctrl{}, m.faultf(right, "%s is not iterable", iterable.Kind())
	}

	name := m.text(left)
	for _, elem := range iterable.AsList() {
		if err := m.charge(stmt); err != nil {
			return ctrl{}, err
		}
		m.frame[name] = elem
		c, err := m.execBlock(body)
		if err != nil {
			return ctrl{}, err
		}
		if c.returned {
			return c, nil
		}
	}
	return ctrl{}, nil
}
