package contract

import (
	"fmt"

	"speclens/internal/value"
)

// evalNode interprets the AST against env. The connectives short-circuit on
// truthiness; everything else delegates to the checked operations of the
// value package, so undefined operations surface as errors rather than
// panics.
func evalNode(n Node, env value.Env) (value.Value, error) {
	switch node := n.(type) {
	case *Literal:
		return node.Val, nil

	case *Name:
		v, ok := env.Lookup(node.Ident)
		if !ok {
			return value.Value{}, fmt.Errorf("unbound name %q", node.Ident)
		}
		return v, nil

	case *Attribute:
		base, ok := env.Lookup(node.Base)
		if !ok {
			return value.Value{}, fmt.Errorf("unbound name %q", node.Base)
		}
		if base.Kind() != value.KindObject {
			return value.Value{}, fmt.Errorf("%s is not an object (%s)", node.Base, base.Kind())
		}
		v, ok := base.AsObject().Get(node.Attr)
		if !ok {
			return value.Value{}, fmt.Errorf("%s has no attribute %q", node.Base, node.Attr)
		}
		return v, nil

	case *Unary:
		operand, err := evalNode(node.Operand, env)
		if err != nil {
			return value.Value{}, err
		}
		if node.Op == "not" {
			return value.Bool(!operand.Truth()), nil
		}
		return value.Negate(operand)

	case *Binary:
		switch node.Op {
		case "and":
			left, err := evalNode(node.Left, env)
			if err != nil {
				return value.Value{}, err
			}
			if !left.Truth() {
				return left, nil
			}
			return evalNode(node.Right, env)
		case "or":
			left, err := evalNode(node.Left, env)
			if err != nil {
				return value.Value{}, err
			}
			if left.Truth() {
				return left, nil
			}
			return evalNode(node.Right, env)
		case "==", "!=", "<", "<=", ">", ">=":
			left, err := evalNode(node.Left, env)
			if err != nil {
				return value.Value{}, err
			}
			right, err := evalNode(node.Right, env)
			if err != nil {
				return value.Value{}, err
			}
			ok, err := value.Compare(node.Op, left, right)
			if err != nil {
				return value.Value{}, err
			}
			return value.Bool(ok), nil
		default:
			left, err := evalNode(node.Left, env)
			if err != nil {
				return value.Value{}, err
			}
			right, err := evalNode(node.Right, env)
			if err != nil {
				return value.Value{}, err
			}
			return value.Binary(node.Op, left, right)
		}
	}

	return value.Value{}, fmt.Errorf("unknown expression node %T", n)
}
