package value

import (
	"fmt"
	"math"
)

// Binary applies an arithmetic operator with subject-language semantics:
// int/float promotion, true division always yielding a float, floor
// division and modulo following the sign of the divisor, + concatenating
// strings and lists. Undefined combinations and division by zero return an
// error; the caller decides whether that is an evaluation failure or a
// subject fault.
func Binary(op string, a, b Value) (Value, error) {
	if op == "+" {
		if a.kind == KindStr && b.kind == KindStr {
			return Str(a.s + b.s), nil
		}
		if a.kind == KindList && b.kind == KindList {
			joined := make([]Value, 0, len(a.list)+len(b.list))
			joined = append(joined, a.list...)
			joined = append(joined, b.list...)
			return List(joined), nil
		}
	}

	if !a.IsNumeric() || !b.IsNumeric() {
		return Value{}, fmt.Errorf("value: unsupported operand types for %s: %s and %s", op, a.kind, b.kind)
	}

	bothInt := a.kind == KindInt && b.kind == KindInt

	switch op {
	case "+":
		if bothInt {
			return Int(a.i + b.i), nil
		}
		return Float(a.toFloat() + b.toFloat()), nil
	case "-":
		if bothInt {
			return Int(a.i - b.i), nil
		}
		return Float(a.toFloat() - b.toFloat()), nil
	case "*":
		if bothInt {
			return Int(a.i * b.i), nil
		}
		return Float(a.toFloat() * b.toFloat()), nil
	case "/":
		if b.toFloat() == 0 {
			return Value{}, fmt.Errorf("value: division by zero")
		}
		return Float(a.toFloat() / b.toFloat()), nil
	case "//":
		if bothInt {
			if b.i == 0 {
				return Value{}, fmt.Errorf("value: division by zero")
			}
			return Int(floorDivInt(a.i, b.i)), nil
		}
		if b.toFloat() == 0 {
			return Value{}, fmt.Errorf("value: division by zero")
		}
		return Float(math.Floor(a.toFloat() / b.toFloat())), nil
	case "%":
		if bothInt {
			if b.i == 0 {
				return Value{}, fmt.Errorf("value: modulo by zero")
			}
			return Int(floorModInt(a.i, b.i)), nil
		}
		if b.toFloat() == 0 {
			return Value{}, fmt.Errorf("value: modulo by zero")
		}
		return Float(floorModFloat(a.toFloat(), b.toFloat())), nil
	default:
		return Value{}, fmt.Errorf("value: unknown operator %q", op)
	}
}

// floorDivInt rounds toward negative infinity, matching subject semantics
// (Go's integer division truncates toward zero instead).
func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// floorModInt yields a remainder with the sign of the divisor.
func floorModInt(a, b int64) int64 {
	r := a % b
	if r != 0 && ((r < 0) != (b < 0)) {
		r += b
	}
	return r
}

func floorModFloat(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && ((r < 0) != (b < 0)) {
		r += b
	}
	return r
}

// Compare applies a comparison operator. Equality is defined across all
// kinds (mismatched kinds are simply unequal, except int/float which
// compare numerically); ordering is defined for numbers and strings only.
func Compare(op string, a, b Value) (bool, error) {
	switch op {
	case "==":
		return equal(a, b), nil
	case "!=":
		return !equal(a, b), nil
	}

	if a.IsNumeric() && b.IsNumeric() {
		af, bf := a.toFloat(), b.toFloat()
		switch op {
		case "<":
			return af < bf, nil
		case "<=":
			return af <= bf, nil
		case ">":
			return af > bf, nil
		case ">=":
			return af >= bf, nil
		}
	}

	if a.kind == KindStr && b.kind == KindStr {
		switch op {
		case "<":
			return a.s < b.s, nil
		case "<=":
			return a.s <= b.s, nil
		case ">":
			return a.s > b.s, nil
		case ">=":
			return a.s >= b.s, nil
		}
	}

	return false, fmt.Errorf("value: %q not supported between %s and %s", op, a.kind, b.kind)
}

// Negate applies unary minus to a numeric value.
func Negate(v Value) (Value, error) {
	switch v.kind {
	case KindInt:
		return Int(-v.i), nil
	case KindFloat:
		return Float(-v.f), nil
	default:
		return Value{}, fmt.Errorf("value: bad operand type for unary -: %s", v.kind)
	}
}

func equal(a, b Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		return a.toFloat() == b.toFloat()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNone:
		return true
	case KindBool:
		return a.b == b.b
	case KindStr:
		return a.s == b.s
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return a.obj == b.obj
	default:
		return false
	}
}

// Equal reports value equality using the same rules as the == operator.
func Equal(a, b Value) bool { return equal(a, b) }
