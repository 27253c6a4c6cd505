package interp

import (
	"math"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"speclens/internal/value"
)

func (m *machine) eval(n *sitter.Node) (value.Value, error) {
	if n == nil {
		return value.Value{}, &InternalError{Msg: "eval of nil node"}
	}
	if err := m.charge(n); err != nil {
		return value.Value{}, err
	}

	switch n.Type() {
	case "integer":
		i, err := strconv.ParseInt(m.text(n), 10, 64)
		if err != nil {
			return value.Value{}, m.faultf(n, "bad integer literal %q", m.text(n))
		}
		return value.Int(i), nil

	case "float":
		f, err := strconv.ParseFloat(m.text(n), 64)
		if err != nil {
			return value.Value{}, m.faultf(n, "bad float literal %q", m.text(n))
		}
		return value.Float(f), nil

	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	case "none":
		return value.None(), nil

	case "string":
		return value.Str(stripQuotes(m.text(n))), nil

	case "identifier":
		name := m.text(n)
		if v, ok := m.frame.Lookup(name); ok {
			return v, nil
		}
		return value.Value{}, m.faultf(n, "name %q is not defined", name)

	case "parenthesized_expression":
		if n.NamedChildCount() == 0 {
			return value.Value{}, m.faultf(n, "empty parentheses")
		}
		return m.eval(n.NamedChild(0))

	case "list":
		elems := make([]value.Value, 0, n.NamedChildCount())
		for i := 0; i < int(n.NamedChildCount()); i++ {
			v, err := m.eval(n.NamedChild(i))
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, v)
		}
		return value.List(elems), nil

	case "binary_operator":
		return m.evalBinary(n)

	case "boolean_operator":
		return m.evalBoolean(n)

	case "comparison_operator":
		return m.evalComparison(n)

	case "not_operator":
		arg := n.ChildByFieldName("argument")
		if arg == nil {
			return value.Value{}, m.faultf(n, "malformed not")
		}
		v, err := m.eval(arg)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(!v.Truth()), nil

	case "unary_operator":
		return m.evalUnary(n)

	case "attribute":
		return m.evalAttribute(n)

	case "subscript":
		return m.evalSubscript(n)

	case "call":
		return m.evalCall(n)

	case "conditional_expression":
		// consequence if condition else alternative
		if n.NamedChildCount() != 3 {
			return value.Value{}, m.faultf(n, "malformed conditional expression")
		}
		cond, err := m.eval(n.NamedChild(1))
		if err != nil {
			return value.Value{}, err
		}
		if cond.Truth() {
			return m.eval(n.NamedChild(0))
		}
		return m.eval(n.NamedChild(2))

	default:
		return value.Value{}, m.faultf(n, "unsupported expression %q", n.Type())
	}
}

func (m *machine) evalBinary(n *sitter.Node) (value.Value, error) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	opNode := n.ChildByFieldName("operator")
	if left == nil || right == nil || opNode == nil {
		return value.Value{}, m.faultf(n, "malformed binary operator")
	}

	a, err := m.eval(left)
	if err != nil {
		return value.Value{}, err
	}
	b, err := m.eval(right)
	if err != nil {
		return value.Value{}, err
	}
	v, err := value.Binary(m.text(opNode), a, b)
	if err != nil {
		return value.Value{}, m.faultf(n, "%v", err)
	}
	return v, nil
}

func (m *machine) evalBoolean(n *sitter.Node) (value.Value, error) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	opNode := n.ChildByFieldName("operator")
	if left == nil || right == nil || opNode == nil {
		return value.Value{}, m.faultf(n, "malformed boolean operator")
	}

	a, err := m.eval(left)
	if err != nil {
		return value.Value{}, err
	}
	switch m.text(opNode) {
	case "and":
		if !a.Truth() {
			return a, nil
		}
	case "or":
		if a.Truth() {
			return a, nil
		}
	default:
		return value.Value{}, m.faultf(n, "unknown boolean operator")
	}
	return m.eval(right)
}

// evalComparison handles chained comparisons: operand tokens are the named
// children, comparison tokens sit between them.
func (m *machine) evalComparison(n *sitter.Node) (value.Value, error) {
	var operands []value.Value
	var ops []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.IsNamed() {
			v, err := m.eval(c)
			if err != nil {
				return value.Value{}, err
			}
			operands = append(operands, v)
			continue
		}
		switch c.Type() {
		case "==", "!=", "<", "<=", ">", ">=":
			ops = append(ops, c.Type())
		}
	}
	if len(operands) < 2 || len(ops) != len(operands)-1 {
		return value.Value{}, m.faultf(n, "unsupported comparison form")
	}

	for i, op := range ops {
		ok, err := value.Compare(op, operands[i], operands[i+1])
		if err != nil {
			return value.Value{}, m.faultf(n, "%v", err)
		}
		if !ok {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}

func (m *machine) evalUnary(n *sitter.Node) (value.Value, error) {
	arg := n.ChildByFieldName("argument")
	opNode := n.ChildByFieldName("operator")
	if arg == nil || opNode == nil {
		return value.Value{}, m.faultf(n, "malformed unary operator")
	}
	v, err := m.eval(arg)
	if err != nil {
		return value.Value{}, err
	}
	switch m.text(opNode) {
	case "-":
		neg, err := value.Negate(v)
		if err != nil {
			return value.Value{}, m.faultf(n, "%v", err)
		}
		return neg, nil
	case "+":
		if !v.IsNumeric() {
			return value.Value{}, m.faultf(n, "bad operand for unary +: %s", v.Kind())
		}
		return v, nil
	default:
		return value.Value{}, m.faultf(n, "unsupported unary operator %q", m.text(opNode))
	}
}

func (m *machine) evalAttribute(n *sitter.Node) (value.Value, error) {
	objNode := n.ChildByFieldName("object")
	attrNode := n.ChildByFieldName("attribute")
	if objNode == nil || attrNode == nil {
		return value.Value{}, m.faultf(n, "malformed attribute access")
	}
	attr := m.text(attrNode)

	// math constants; math.sqrt is resolved at call sites.
	if objNode.Type() == "identifier" && m.text(objNode) == "math" {
		if _, bound := m.frame.Lookup("math"); !bound {
			switch attr {
			case "pi":
				return value.Float(math.Pi), nil
			case "e":
				return value.Float(math.E), nil
			}
			return value.Value{}, m.faultf(n, "math has no usable attribute %q", attr)
		}
	}

	obj, err := m.eval(objNode)
	if err != nil {
		return value.Value{}, err
	}
	if obj.Kind() != value.KindObject {
		return value.Value{}, m.faultf(n, "%s object has no attributes", obj.Kind())
	}
	v, ok := obj.AsObject().Get(attr)
	if !ok {
		return value.Value{}, m.faultf(n, "%q object has no attribute %q", obj.AsObject().Class, attr)
	}
	return v, nil
}

func (m *machine) evalSubscript(n *sitter.Node) (value.Value, error) {
	valNode := n.ChildByFieldName("value")
	subNode := n.ChildByFieldName("subscript")
	if valNode == nil || subNode == nil {
		return value.Value{}, m.faultf(n, "malformed subscript")
	}
	container, err := m.eval(valNode)
	if err != nil {
		return value.Value{}, err
	}
	idx, err := m.eval(subNode)
	if err != nil {
		return value.Value{}, err
	}
	if idx.Kind() != value.KindInt {
		return value.Value{}, m.faultf(n, "indices must be integers, not %s", idx.Kind())
	}

	i := idx.AsInt()
	switch container.Kind() {
	case value.KindList:
		elems := container.AsList()
		if i < 0 {
			i += int64(len(elems))
		}
		if i < 0 || i >= int64(len(elems)) {
			return value.Value{}, m.faultf(n, "list index out of range")
		}
		return elems[i], nil
	case value.KindStr:
		s := container.AsStr()
		if i < 0 {
			i += int64(len(s))
		}
		if i < 0 || i >= int64(len(s)) {
			return value.Value{}, m.faultf(n, "string index out of range")
		}
		return value.Str(string(s[i])), nil
	default:
		return value.Value{}, m.faultf(n, "%s is not subscriptable", container.Kind())
	}
}

func stripQuotes(s string) string {
	for _, q := range []string{`"""`, `'''`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 6 {
			return s[3 : len(s)-3]
		}
	}
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
