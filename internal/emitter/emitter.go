// Package emitter implements IR-to-JS emission (C7): a single pass over
// internal/ir printing indented ESM text into a Joiner buffer, the way
// esbuild's internal/js_printer walks its own IR and writes straight into
// one growing output buffer rather than building an intermediate string
// tree. HQL's IR is a much smaller grammar, so there is no source-map
// bookkeeping and no operator-precedence parenthesization table beyond
// the few binary/conditional cases the lowering step actually produces.
package emitter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hqllang/hql/internal/diag"
	"github.com/hqllang/hql/internal/helpers"
	"github.com/hqllang/hql/internal/ir"
)

// Program prints a whole IR program as a standalone ESM text, with each
// top-level node terminated the way a statement needs to be (expression
// statements and variable declarations alike get a trailing `;`).
func Program(p *ir.Program) (string, error) {
	e := &emitter{}
	for _, n := range p.Body {
		if err := e.statement(n, 0); err != nil {
			return "", err
		}
	}
	e.j.EnsureNewlineAtEnd()
	return e.j.Done(), nil
}

type emitter struct {
	j helpers.Joiner
}

func indent(level int) string { return strings.Repeat("  ", level) }

// statement prints n as a top-level statement/declaration, at the given
// indent level, followed by a newline.
func (e *emitter) statement(n ir.Node, level int) error {
	switch v := n.(type) {
	case ir.VariableDeclaration:
		s, err := e.variableDeclaration(v)
		if err != nil {
			return err
		}
		e.j.AddString(indent(level) + s + ";\n")
		return nil
	case ir.ExportVariableDeclaration:
		s, err := e.variableDeclaration(v.Declaration)
		if err != nil {
			return err
		}
		local := v.Declaration.Declarations[0].ID.Name
		e.j.AddString(indent(level) + s + ";\n")
		e.j.AddString(fmt.Sprintf("%sexport { %s as %s };\n", indent(level), local, v.ExportName))
		return nil
	case ir.ExportNamedDeclaration:
		e.j.AddString(indent(level) + exportSpecifiers(v.Specifiers) + ";\n")
		return nil
	case ir.JsImportReference:
		e.j.AddString(fmt.Sprintf("%simport %s from %s;\n", indent(level), v.Name, strconv.Quote(v.Source)))
		return nil
	case ir.ReturnStatement:
		s, err := e.expr(v.Argument)
		if err != nil {
			return err
		}
		e.j.AddString(fmt.Sprintf("%sreturn %s;\n", indent(level), s))
		return nil
	case ir.Block:
		for _, stmt := range v.Body {
			if err := e.statement(stmt, level); err != nil {
				return err
			}
		}
		return nil
	default:
		s, err := e.expr(n)
		if err != nil {
			return err
		}
		e.j.AddString(indent(level) + s + ";\n")
		return nil
	}
}

// Module prints a program the bundler will wrap in a module IIFE: export
// forms don't get real ESM `export` syntax (illegal inside a function
// body) — instead each is turned into a local declaration plus a returned
// ExportSpecifier the caller assigns onto that IIFE's `exports` object,
// the same de-sugaring a CommonJS-target bundler performs for an ESM
// source module it has to wrap.
func Module(p *ir.Program) (string, []ir.ExportSpecifier, error) {
	e := &emitter{}
	var specs []ir.ExportSpecifier
	for _, n := range p.Body {
		switch v := n.(type) {
		case ir.ExportVariableDeclaration:
			s, err := e.variableDeclaration(v.Declaration)
			if err != nil {
				return "", nil, err
			}
			e.j.AddString(indent(1) + s + ";\n")
			local := v.Declaration.Declarations[len(v.Declaration.Declarations)-1].ID.Name
			specs = append(specs, ir.ExportSpecifier{Local: local, Exported: v.ExportName})
		case ir.ExportNamedDeclaration:
			specs = append(specs, v.Specifiers...)
		default:
			if err := e.statement(n, 1); err != nil {
				return "", nil, err
			}
		}
	}
	return e.j.Done(), specs, nil
}

func exportSpecifiers(specs []ir.ExportSpecifier) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		if s.Local == s.Exported {
			parts[i] = s.Local
		} else {
			parts[i] = fmt.Sprintf("%s as %s", s.Local, s.Exported)
		}
	}
	return "export { " + strings.Join(parts, ", ") + " }"
}

func (e *emitter) variableDeclaration(v ir.VariableDeclaration) (string, error) {
	parts := make([]string, len(v.Declarations))
	for i, d := range v.Declarations {
		init, err := e.expr(d.Init)
		if err != nil {
			return "", err
		}
		parts[i] = fmt.Sprintf("%s = %s", d.ID.Name, init)
	}
	return fmt.Sprintf("%s %s", v.Kind, strings.Join(parts, ", ")), nil
}

// expr prints n as an expression (no trailing `;`, no leading indent).
func (e *emitter) expr(n ir.Node) (string, error) {
	switch v := n.(type) {
	case ir.NullLit:
		return "null", nil
	case ir.BoolLit:
		return strconv.FormatBool(v.Value), nil
	case ir.NumLit:
		return strconv.FormatFloat(v.Value, 'g', -1, 64), nil
	case ir.StrLit:
		return strconv.Quote(v.Value), nil
	case ir.Identifier:
		return v.Name, nil
	case ir.ArrayExpr:
		return e.arrayExpr(v)
	case ir.ObjectExpr:
		return e.objectExpr(v)
	case ir.NewExpr:
		return e.newExpr(v)
	case ir.MemberExpr:
		return e.memberExpr(v)
	case ir.CallExpr:
		return e.callExpr(v)
	case ir.CallMemberExpr:
		return e.callMemberExpr(v)
	case ir.InteropIIFE:
		return e.interopIIFE(v)
	case ir.UnaryExpr:
		return e.unaryExpr(v)
	case ir.BinaryExpr:
		return e.binaryExpr(v)
	case ir.ConditionalExpr:
		return e.conditionalExpr(v)
	case ir.FunctionExpression:
		return e.functionExpression(v)
	case ir.VariableDeclaration:
		return e.variableDeclaration(v)
	default:
		return "", &diag.EmitError{Detail: fmt.Sprintf("unhandled IR node %T in expression position", n)}
	}
}

func (e *emitter) exprList(nodes []ir.Node) ([]string, error) {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		s, err := e.expr(n)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (e *emitter) arrayExpr(v ir.ArrayExpr) (string, error) {
	parts, err := e.exprList(v.Elements)
	if err != nil {
		return "", err
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}

func (e *emitter) objectExpr(v ir.ObjectExpr) (string, error) {
	parts := make([]string, len(v.Properties))
	for i, p := range v.Properties {
		val, err := e.expr(p.Value)
		if err != nil {
			return "", err
		}
		parts[i] = fmt.Sprintf("%s: %s", propKey(p.Key), val)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// propKey quotes an object key unless it is already a legal identifier,
// matching the way a plain `{foo: 1}` prints more naturally than
// `{"foo": 1}` even though both are valid.
func propKey(key string) string {
	if isValidIdent(key) {
		return key
	}
	return strconv.Quote(key)
}

func isValidIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isAlpha {
			return false
		}
		if i > 0 && !isAlpha && !isDigit {
			return false
		}
	}
	return true
}

func (e *emitter) newExpr(v ir.NewExpr) (string, error) {
	callee, err := e.expr(v.Callee)
	if err != nil {
		return "", err
	}
	args, err := e.exprList(v.Args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("new %s(%s)", callee, strings.Join(args, ", ")), nil
}

func (e *emitter) memberExpr(v ir.MemberExpr) (string, error) {
	obj, err := e.expr(v.Object)
	if err != nil {
		return "", err
	}
	if v.Computed {
		return fmt.Sprintf("%s[%s]", obj, strconv.Quote(v.Property)), nil
	}
	return fmt.Sprintf("%s.%s", maybeParen(v.Object, obj), v.Property), nil
}

func (e *emitter) callExpr(v ir.CallExpr) (string, error) {
	callee, err := e.expr(v.Callee)
	if err != nil {
		return "", err
	}
	args, err := e.exprList(v.Args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", maybeParen(v.Callee, callee), strings.Join(args, ", ")), nil
}

func (e *emitter) callMemberExpr(v ir.CallMemberExpr) (string, error) {
	obj, err := e.expr(v.Object)
	if err != nil {
		return "", err
	}
	args, err := e.exprList(v.Args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s(%s)", maybeParen(v.Object, obj), v.Property, strings.Join(args, ", ")), nil
}

// interopIIFE prints the bound-member-read helper:
// reading a property that, if callable, is pre-bound to its object so it
// can be passed around without losing `this`.
func (e *emitter) interopIIFE(v ir.InteropIIFE) (string, error) {
	obj, err := e.expr(v.Object)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"(function(){ const m=%s[%s]; return typeof m==='function'?m.bind(%s):m; })()",
		obj, strconv.Quote(v.Property), obj,
	), nil
}

func (e *emitter) unaryExpr(v ir.UnaryExpr) (string, error) {
	arg, err := e.expr(v.Arg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s%s)", v.Op, maybeParen(v.Arg, arg)), nil
}

func (e *emitter) binaryExpr(v ir.BinaryExpr) (string, error) {
	left, err := e.expr(v.Left)
	if err != nil {
		return "", err
	}
	right, err := e.expr(v.Right)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s)", maybeParen(v.Left, left), v.Op, maybeParen(v.Right, right)), nil
}

func (e *emitter) conditionalExpr(v ir.ConditionalExpr) (string, error) {
	test, err := e.expr(v.Test)
	if err != nil {
		return "", err
	}
	cons, err := e.expr(v.Cons)
	if err != nil {
		return "", err
	}
	alt, err := e.expr(v.Alt)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s ? %s : %s)", test, cons, alt), nil
}

func (e *emitter) functionExpression(v ir.FunctionExpression) (string, error) {
	params := make([]string, len(v.Params))
	for i, p := range v.Params {
		params[i] = p.Name
	}
	name := ""
	if v.ID != nil {
		name = " " + v.ID.Name
	}
	inner := &emitter{}
	for _, stmt := range v.Body.Body {
		if err := inner.statement(stmt, 1); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("function%s(%s) {\n%s}", name, strings.Join(params, ", "), inner.j.Done()), nil
}

// maybeParen wraps rendered in parens if node is a kind whose own
// rendering is lower-precedence than the member/call context it's about
// to be embedded in (conditional and function expressions; binary and
// unary expressions already print their own surrounding parens).
func maybeParen(node ir.Node, rendered string) string {
	switch node.(type) {
	case ir.ConditionalExpr, ir.FunctionExpression:
		return "(" + rendered + ")"
	}
	return rendered
}
