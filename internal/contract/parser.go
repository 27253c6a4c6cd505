package contract

import (
	"fmt"
	"strconv"
	"strings"

	"speclens/internal/value"
)

// Binding powers, lowest first. Comparisons sit between the boolean
// connectives and arithmetic, as in the subject language.
const (
	bpOr      = 1
	bpAnd     = 2
	bpNot     = 3
	bpCompare = 4
	bpAdd     = 5
	bpMul     = 6
	bpUnary   = 7
)

func infixPower(t token) int {
	switch t.typ {
	case tokKeyword:
		switch t.lit {
		case "or":
			return bpOr
		case "and":
			return bpAnd
		}
	case tokOp:
		switch t.lit {
		case "==", "!=", "<", "<=", ">", ">=":
			return bpCompare
		case "+", "-":
			return bpAdd
		case "*", "/", "//", "%":
			return bpMul
		}
	}
	return 0
}

type parser struct {
	raw string
	lx  *lexer
	cur token
}

// parseExpr parses one complete expression of the sublanguage.
func parseExpr(raw string) (Node, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ParseError{Raw: raw, Pos: 0, Msg: "empty expression"}
	}

	p := &parser{raw: raw, lx: &lexer{src: trimmed}}
	if err := p.advance(); err != nil {
		return nil, err
	}

	root, err := p.parse(0)
	if err != nil {
		return nil, err
	}
	if p.cur.typ != tokEOF {
		return nil, p.errf("unexpected %q", p.cur.lit)
	}
	return root, nil
}

func (p *parser) advance() error {
	t, err := p.lx.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) errf(format string, args ...any) error {
	return &ParseError{Raw: p.raw, Pos: p.cur.pos, Msg: fmt.Sprintf(format, args...)}
}

// parse is the Pratt loop: a prefix expression followed by infix operators
// of at least minBP binding power. All infix operators are left-associative.
func (p *parser) parse(minBP int) (Node, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		bp := infixPower(p.cur)
		if bp == 0 || bp < minBP {
			return left, nil
		}
		op := p.cur.lit
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parse(bp + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parsePrefix() (Node, error) {
	t := p.cur
	switch {
	case t.typ == tokOp && t.lit == "-":
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parse(bpUnary)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "-", Operand: operand}, nil

	case t.typ == tokKeyword && t.lit == "not":
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parse(bpNot + 1)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "not", Operand: operand}, nil

	case t.typ == tokOp && t.lit == "(":
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parse(0)
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokOp || p.cur.lit != ")" {
			return nil, p.errf("expected )")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil

	case t.typ == tokNumber:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if strings.Contains(t.lit, ".") {
			f, err := strconv.ParseFloat(t.lit, 64)
			if err != nil {
				return nil, p.errf("bad float %q", t.lit)
			}
			return &Literal{Val: value.Float(f)}, nil
		}
		i, err := strconv.ParseInt(t.lit, 10, 64)
		if err != nil {
			return nil, p.errf("bad integer %q", t.lit)
		}
		return &Literal{Val: value.Int(i)}, nil

	case t.typ == tokString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Val: value.Str(t.lit)}, nil

	case t.typ == tokKeyword:
		switch t.lit {
		case "True":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &Literal{Val: value.Bool(true)}, nil
		case "False":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &Literal{Val: value.Bool(false)}, nil
		case "None":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &Literal{Val: value.None()}, nil
		}
		return nil, p.errf("unexpected keyword %q", t.lit)

	case t.typ == tokIdent:
		name := t.lit
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.typ == tokOp && p.cur.lit == "." {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.typ != tokIdent {
				return nil, p.errf("expected attribute name after .")
			}
			attr := p.cur.lit
			if err := p.advance(); err != nil {
				return nil, err
			}
			// One level deep only: a second dot places the expression
			// outside the sublanguage.
			if p.cur.typ == tokOp && p.cur.lit == "." {
				return nil, p.errf("attribute access deeper than one level")
			}
			if p.cur.typ == tokOp && p.cur.lit == "(" {
				return nil, p.errf("function calls are not allowed in contracts")
			}
			return &Attribute{Base: name, Attr: attr}, nil
		}
		if p.cur.typ == tokOp && p.cur.lit == "(" {
			return nil, p.errf("function calls are not allowed in contracts")
		}
		return &Name{Ident: name}, nil

	case t.typ == tokEOF:
		return nil, p.errf("unexpected end of expression")
	}

	return nil, p.errf("unexpected %q", t.lit)
}
