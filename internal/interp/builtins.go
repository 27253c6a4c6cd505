package interp

import (
	"math"

	sitter "github.com/smacker/go-tree-sitter"

	"speclens/internal/value"
)

// maxRange caps range() materialization when no step budget is active.
const maxRange = 1 << 16

func (m *machine) evalCall(n *sitter.Node) (value.Value, error) {
	fnNode := n.ChildByFieldName("function")
	argsNode := n.ChildByFieldName("arguments")
	if fnNode == nil || argsNode == nil {
		return value.Value{}, m.faultf(n, "malformed call")
	}

	var name string
	switch fnNode.Type() {
	case "identifier":
		name = m.text(fnNode)
	case "attribute":
		// Only the math module is callable through attributes.
		objNode := fnNode.ChildByFieldName("object")
		attrNode := fnNode.ChildByFieldName("attribute")
		if objNode == nil || attrNode == nil || objNode.Type() != "identifier" || m.text(objNode) != "math" {
			return value.Value{}, m.faultf(n, "calls on %q are not supported", m.text(fnNode))
		}
		name = "math." + m.text(attrNode)
	default:
		return value.Value{}, m.faultf(n, "calls on %q are not supported", fnNode.Type())
	}

	args := make([]value.Value, 0, argsNode.NamedChildCount())
	for i := 0; i < int(argsNode.NamedChildCount()); i++ {
		v, err := m.eval(argsNode.NamedChild(i))
		if err != nil {
			return value.Value{}, err
		}
		args = append(args, v)
	}

	switch name {
	case "len":
		return m.builtinLen(n, args)
	case "abs":
		return m.builtinAbs(n, args)
	case "sum":
		return m.builtinSum(n, args)
	case "min":
		return m.builtinMinMax(n, "min", args)
	case "max":
		return m.builtinMinMax(n, "max", args)
	case "range":
		return m.builtinRange(n, args)
	case "math.sqrt":
		return m.builtinSqrt(n, args)
	case "math.floor":
		return m.builtinRound(n, args, math.Floor)
	case "math.ceil":
		return m.builtinRound(n, args, math.Ceil)
	default:
		return value.Value{}, m.faultf(n, "call to unknown function %q", name)
	}
}

func (m *machine) builtinLen(n *sitter.Node, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, m.faultf(n, "len expects 1 argument")
	}
	switch args[0].Kind() {
	case value.KindList:
		return value.Int(int64(len(args[0].AsList()))), nil
	case value.KindStr:
		return value.Int(int64(len(args[0].AsStr()))), nil
	default:
		return value.Value{}, m.faultf(n, "%s has no len", args[0].Kind())
	}
}

func (m *machine) builtinAbs(n *sitter.Node, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, m.faultf(n, "abs expects 1 argument")
	}
	switch args[0].Kind() {
	case value.KindInt:
		i := args[0].AsInt()
		if i < 0 {
			i = -i
		}
		return value.Int(i), nil
	case value.KindFloat:
		return value.Float(math.Abs(args[0].AsFloat())), nil
	default:
		return value.Value{}, m.faultf(n, "bad operand for abs: %s", args[0].Kind())
	}
}

func (m *machine) builtinSum(n *sitter.Node, args []value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Kind() != value.KindList {
		return value.Value{}, m.faultf(n, "sum expects a list")
	}
	total := value.Int(0)
	for _, elem := range args[0].AsList() {
		next, err := value.Binary("+", total, elem)
		if err != nil {
			return value.Value{}, m.faultf(n, "%v", err)
		}
		total = next
	}
	return total, nil
}

func (m *machine) builtinMinMax(n *sitter.Node, which string, args []value.Value) (value.Value, error) {
	items := args
	if len(args) == 1 && args[0].Kind() == value.KindList {
		items = args[0].AsList()
	}
	if len(items) == 0 {
		return value.Value{}, m.faultf(n, "%s of empty sequence", which)
	}

	op := "<"
	if which == "max" {
		op = ">"
	}
	best := items[0]
	for _, elem := range items[1:] {
		better, err := value.Compare(op, elem, best)
		if err != nil {
			return value.Value{}, m.faultf(n, "%v", err)
		}
		if better {
			best = elem
		}
	}
	return best, nil
}

func (m *machine) builtinRange(n *sitter.Node, args []value.Value) (value.Value, error) {
	ints := make([]int64, len(args))
	for i, a := range args {
		if a.Kind() != value.KindInt {
			return value.Value{}, m.faultf(n, "range expects integers")
		}
		ints[i] = a.AsInt()
	}

	var start, stop, step int64
	switch len(ints) {
	case 1:
		start, stop, step = 0, ints[0], 1
	case 2:
		start, stop, step = ints[0], ints[1], 1
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
		if step == 0 {
			return value.Value{}, m.faultf(n, "range step must not be zero")
		}
	default:
		return value.Value{}, m.faultf(n, "range expects 1 to 3 arguments")
	}

	var elems []value.Value
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		if err := m.charge(n); err != nil {
			return value.Value{}, err
		}
		if len(elems) >= maxRange {
			return value.Value{}, m.faultf(n, "range too large")
		}
		elems = append(elems, value.Int(i))
	}
	return value.List(elems), nil
}

func (m *machine) builtinSqrt(n *sitter.Node, args []value.Value) (value.Value, error) {
	if len(args) != 1 || !args[0].IsNumeric() {
		return value.Value{}, m.faultf(n, "math.sqrt expects a number")
	}
	var f float64
	if args[0].Kind() == value.KindInt {
		f = float64(args[0].AsInt())
	} else {
		f = args[0].AsFloat()
	}
	if f < 0 {
		return value.Value{}, m.faultf(n, "math domain error")
	}
	return value.Float(math.Sqrt(f)), nil
}

func (m *machine) builtinRound(n *sitter.Node, args []value.Value, round func(float64) float64) (value.Value, error) {
	if len(args) != 1 || !args[0].IsNumeric() {
		return value.Value{}, m.faultf(n, "expects a number")
	}
	if args[0].Kind() == value.KindInt {
		return args[0], nil
	}
	return value.Int(int64(round(args[0].AsFloat()))), nil
}
