package parse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"speclens/internal/contract"
	"speclens/internal/logging"
)

// tagPattern is the fixed annotation tag grammar. Tags live inside subject
// comments: # @requires <expr>, # @ensures <expr>, # @invariant <expr>.
var tagPattern = regexp.MustCompile(`#\s*@(requires|ensures|invariant)\s+(.+)`)

// clause is one extracted annotation before contract parsing.
type clause struct {
	kind contract.Kind
	expr string
}

// File reads and parses one subject source file.
func File(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse: read %s: %w", path, err)
	}
	return Source(path, data)
}

// Source parses subject source text into a Module of specification units.
// A file the parser cannot make sense of returns a *FileParseError; a
// definition-local syntax error only drops that definition.
func Source(path string, src []byte) (*Module, error) {
	if !utf8.Valid(src) {
		return nil, &FileParseError{Path: path, Msg: "source is not valid UTF-8"}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, &FileParseError{Path: path, Msg: err.Error()}
	}

	root := tree.RootNode()
	if root == nil || root.Type() != "module" {
		tree.Close()
		return nil, &FileParseError{Path: path, Msg: "no module node"}
	}

	fp := &fileParser{
		path:   path,
		src:    src,
		lines:  strings.Split(string(src), "\n"),
		logger: logging.New("parse"),
	}

	fp.collectClassInvariants(root)
	fp.walk(root, "")

	// Tree-sitter is error-tolerant: definitions containing localized
	// errors were skipped above. A file that yields nothing but errors
	// fails wholesale.
	if root.HasError() && len(fp.units) == 0 {
		tree.Close()
		return nil, &FileParseError{Path: path, Msg: "syntax errors throughout file"}
	}

	return &Module{Path: path, Source: src, Units: fp.units, tree: tree}, nil
}

type classContracts struct {
	invariants []*contract.Expression
	dropped    []string
}

type fileParser struct {
	path   string
	src    []byte
	lines  []string
	logger *slog.Logger

	classes map[string]*classContracts
	units   []*Unit
}

func (fp *fileParser) text(n *sitter.Node) string {
	return string(fp.src[n.StartByte():n.EndByte()])
}

// collectClassInvariants runs the first pass: @invariant clauses from the
// comment block above each class and from comments directly in the class
// body (not inside its methods) attach to every method of that class.
func (fp *fileParser) collectClassInvariants(n *sitter.Node) {
	if n.Type() == "class_definition" {
		nameNode := n.ChildByFieldName("name")
		body := n.ChildByFieldName("body")
		if nameNode != nil {
			name := fp.text(nameNode)
			cc := &classContracts{}

			var comments []string
			comments = append(comments, fp.leadingComments(int(n.StartPoint().Row))...)
			comments = append(comments, fp.nodeComments(n)...)
			if body != nil {
				for i := 0; i < int(body.NamedChildCount()); i++ {
					child := body.NamedChild(i)
					if child.Type() == "comment" {
						comments = append(comments, fp.text(child))
					}
				}
			}

			for _, cl := range extractClauses(comments) {
				if cl.kind != contract.Invariant {
					continue
				}
				expr, err := contract.Parse(contract.Invariant, cl.expr)
				if err != nil {
					cc.dropped = append(cc.dropped, err.Error())
					fp.logger.Warn("dropped malformed invariant",
						"file", fp.path, "class", name, "expr", cl.expr)
					continue
				}
				cc.invariants = append(cc.invariants, expr)
			}

			if fp.classes == nil {
				fp.classes = make(map[string]*classContracts)
			}
			fp.classes[name] = cc
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		fp.collectClassInvariants(n.NamedChild(i))
	}
}

// walk runs the second pass in document order. class carries the owning
// class name only while iterating the direct members of a class body;
// functions nested anywhere else are free functions.
func (fp *fileParser) walk(n *sitter.Node, class string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			if child.HasError() {
				fp.logger.Debug("skipping definition with syntax errors",
					"file", fp.path, "line", child.StartPoint().Row+1)
			} else {
				fp.addUnit(child, class)
			}
			if body := child.ChildByFieldName("body"); body != nil {
				fp.walk(body, "")
			}
		case "class_definition":
			nameNode := child.ChildByFieldName("name")
			name := ""
			if nameNode != nil {
				name = fp.text(nameNode)
			}
			if body := child.ChildByFieldName("body"); body != nil {
				fp.walk(body, name)
			}
		case "decorated_definition":
			fp.walk(child, class)
		default:
			fp.walk(child, "")
		}
	}
}

func (fp *fileParser) addUnit(n *sitter.Node, class string) {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return
	}

	u := &Unit{
		Name:      fp.text(nameNode),
		Class:     class,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		BodyLines: int(body.EndPoint().Row) - int(body.StartPoint().Row) + 1,
		Body:      body,
	}
	u.Params = fp.parameters(n)

	// Annotations merge from three locations in source order: the leading
	// block, comments attached to the definition node itself (lines
	// between the colon and the first statement land there, not in the
	// block), then comments inside the block. The tag decides the bucket
	// regardless of where the line was found.
	var comments []string
	comments = append(comments, fp.leadingComments(int(n.StartPoint().Row))...)
	comments = append(comments, fp.nodeComments(n)...)
	comments = append(comments, fp.bodyComments(body)...)

	for _, cl := range extractClauses(comments) {
		expr, err := contract.Parse(cl.kind, cl.expr)
		if err != nil {
			u.DroppedContracts = append(u.DroppedContracts, err.Error())
			fp.logger.Warn("dropped malformed contract",
				"file", fp.path, "unit", u.ID(), "expr", cl.expr)
			continue
		}
		switch cl.kind {
		case contract.Precondition:
			u.Requires = append(u.Requires, expr)
		case contract.Postcondition:
			u.Ensures = append(u.Ensures, expr)
		case contract.Invariant:
			u.Invariants = appendInvariant(u.Invariants, expr)
		}
	}

	// Class-level invariants attach to every method defined directly in
	// the class, deduplicated against any unit-level invariant tags.
	if class != "" {
		if cc, ok := fp.classes[class]; ok {
			for _, inv := range cc.invariants {
				u.Invariants = appendInvariant(u.Invariants, inv)
			}
			u.DroppedContracts = append(u.DroppedContracts, cc.dropped...)
		}
	}

	fp.units = append(fp.units, u)
}

// appendInvariant adds inv unless an invariant with identical raw text is
// already attached.
func appendInvariant(list []*contract.Expression, inv *contract.Expression) []*contract.Expression {
	for _, have := range list {
		if have.Raw == inv.Raw {
			return list
		}
	}
	return append(list, inv)
}

func (fp *fileParser) parameters(def *sitter.Node) []Param {
	paramsNode := def.ChildByFieldName("parameters")
	if paramsNode == nil {
		return nil
	}

	var params []Param
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		c := paramsNode.NamedChild(i)
		switch c.Type() {
		case "identifier":
			params = append(params, Param{Name: fp.text(c)})
		case "typed_parameter":
			p := Param{}
			if c.NamedChildCount() > 0 {
				p.Name = fp.text(c.NamedChild(0))
			}
			if t := c.ChildByFieldName("type"); t != nil {
				p.Hint = fp.text(t)
			}
			if p.Name != "" {
				params = append(params, p)
			}
		case "default_parameter", "typed_default_parameter":
			p := Param{}
			if nameNode := c.ChildByFieldName("name"); nameNode != nil {
				p.Name = fp.text(nameNode)
			}
			if t := c.ChildByFieldName("type"); t != nil {
				p.Hint = fp.text(t)
			}
			if p.Name != "" {
				params = append(params, p)
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			name := strings.TrimLeft(fp.text(c), "*")
			params = append(params, Param{Name: name})
		}
	}
	return params
}

// leadingComments collects the contiguous comment block immediately above
// the definition starting at row (0-based), restoring source order.
func (fp *fileParser) leadingComments(row int) []string {
	var collected []string
	for i := row - 1; i >= 0; i-- {
		line := strings.TrimSpace(fp.lines[i])
		if !strings.HasPrefix(line, "#") {
			break
		}
		collected = append(collected, line)
	}
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected
}

// nodeComments collects comment nodes attached directly to a definition
// node. Comment lines written between the colon and the first body
// statement are siblings of the block, not members of it.
func (fp *fileParser) nodeComments(n *sitter.Node) []string {
	var comments []string
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.Type() == "comment" {
			comments = append(comments, fp.text(c))
		}
	}
	return comments
}

// bodyComments collects comment nodes anywhere inside the body block,
// without descending into nested definitions (their contracts are their
// own).
func (fp *fileParser) bodyComments(body *sitter.Node) []string {
	var comments []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			switch c.Type() {
			case "comment":
				comments = append(comments, fp.text(c))
			case "function_definition", "class_definition":
				// skip nested definitions
			default:
				visit(c)
			}
		}
	}
	visit(body)
	return comments
}

// extractClauses scans comment lines for annotation tags, preserving
// first-seen order.
func extractClauses(comments []string) []clause {
	var clauses []clause
	for _, line := range comments {
		m := tagPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var kind contract.Kind
		switch m[1] {
		case "requires":
			kind = contract.Precondition
		case "ensures":
			kind = contract.Postcondition
		case "invariant":
			kind = contract.Invariant
		}
		clauses = append(clauses, clause{kind: kind, expr: strings.TrimSpace(m[2])})
	}
	return clauses
}
