package expander

import (
	"fmt"

	"github.com/hqllang/hql/internal/ast"
	"github.com/hqllang/hql/internal/menv"
)

// Closure is a user-defined function value created by evaluating a `(fn
// (params…) body…)` literal inside a macro body or core.hql. It is the
// "function application" collaborator the expander needs, distinct from
// macro expansion itself.
type Closure struct {
	Params []string
	Rest   string
	Body   []ast.Node
	Env    *menv.Env
}

// Eval is the minimal interpreter needed to run macro bodies
// (and core.hql) themselves: quote, quasiquote, if, def, defmacro,
// js-import, and function application over a lookup-and-apply model. It is
// the same code path used to evaluate core.hql.
func Eval(n ast.Node, env *menv.Env) (ast.Node, error) {
	switch v := n.(type) {
	case *ast.Literal:
		return v, nil
	case *ast.Symbol:
		if val, ok := env.Lookup(v.Name); ok {
			if node, ok := val.(ast.Node); ok {
				return node, nil
			}
			return nil, fmt.Errorf("symbol %q is bound to a non-AST value", v.Name)
		}
		return nil, fmt.Errorf("undefined in macro evaluation: %s", v.Name)
	case *ast.List:
		return evalList(v, env)
	default:
		return nil, fmt.Errorf("cannot evaluate node of type %T", n)
	}
}

func evalList(l *ast.List, env *menv.Env) (ast.Node, error) {
	if len(l.Elements) == 0 {
		return l, nil
	}
	head := l.HeadSymbol()
	if head == nil {
		return evalApplication(l, env)
	}

	switch head.Name {
	case "quote":
		if len(l.Elements) != 2 {
			return nil, fmt.Errorf("quote requires exactly one argument")
		}
		return l.Elements[1], nil

	case "quasiquote":
		if len(l.Elements) != 2 {
			return nil, fmt.Errorf("quasiquote requires exactly one argument")
		}
		return evalQuasiquote(l.Elements[1], env, 1)

	case "if":
		if len(l.Elements) < 3 || len(l.Elements) > 4 {
			return nil, fmt.Errorf("if requires a test, a consequent, and an optional alternate")
		}
		test, err := Eval(l.Elements[1], env)
		if err != nil {
			return nil, err
		}
		if isTruthy(test) {
			return Eval(l.Elements[2], env)
		}
		if len(l.Elements) == 4 {
			return Eval(l.Elements[3], env)
		}
		return ast.Null(l.At), nil

	case "def":
		if len(l.Elements) != 3 {
			return nil, fmt.Errorf("def requires a name and a value")
		}
		name, ok := l.Elements[1].(*ast.Symbol)
		if !ok {
			return nil, fmt.Errorf("def requires a symbol name")
		}
		if fnLit, ok := l.Elements[2].(*ast.List); ok && fnLit.HeadSymbol() != nil && fnLit.HeadSymbol().Name == "fn" {
			closure, err := makeClosure(fnLit, env)
			if err != nil {
				return nil, err
			}
			env.Define(name.Name, closure)
			return ast.Null(l.At), nil
		}
		val, err := Eval(l.Elements[2], env)
		if err != nil {
			return nil, err
		}
		env.Define(name.Name, val)
		return ast.Null(l.At), nil

	case "fn":
		// A bare `(fn ...)` literal only has meaning bound by `def`
		// (handled above); elsewhere it is inert data, matching the
		// tolerant fallback below.
		return evalApplication(l, env)

	case "defmacro":
		return evalDefmacro(l, env)

	case "js-import":
		// Real import resolution happens in internal/resolver before
		// expansion ever sees this file; here it is an inert marker so a
		// macro body that mentions js-import does not error.
		return ast.Null(l.At), nil

	default:
		return evalApplication(l, env)
	}
}

func isTruthy(n ast.Node) bool {
	lit, ok := n.(*ast.Literal)
	if !ok {
		return true
	}
	switch lit.Kind {
	case ast.LitNull:
		return false
	case ast.LitBool:
		return lit.Bool
	default:
		return true
	}
}

func makeClosure(l *ast.List, env *menv.Env) (*Closure, error) {
	if len(l.Elements) < 2 {
		return nil, fmt.Errorf("fn requires a parameter list")
	}
	paramList, ok := l.Elements[1].(*ast.List)
	if !ok {
		return nil, fmt.Errorf("fn requires a parameter list")
	}
	var params []string
	rest := ""
	for i := 0; i < len(paramList.Elements); i++ {
		sym, ok := paramList.Elements[i].(*ast.Symbol)
		if !ok {
			return nil, fmt.Errorf("fn parameters must be symbols")
		}
		if sym.Name == "&rest" {
			if i+1 >= len(paramList.Elements) {
				return nil, fmt.Errorf("&rest must be followed by a parameter name")
			}
			restSym, ok := paramList.Elements[i+1].(*ast.Symbol)
			if !ok {
				return nil, fmt.Errorf("&rest parameter must be a symbol")
			}
			rest = restSym.Name
			break
		}
		params = append(params, sym.Name)
	}
	return &Closure{Params: params, Rest: rest, Body: l.Elements[2:], Env: env}, nil
}

func evalApplication(l *ast.List, env *menv.Env) (ast.Node, error) {
	head := l.HeadSymbol()
	if head != nil {
		if fn, ok := env.LookupNative(head.Name); ok {
			args, err := evalArgs(l.Tail(), env)
			if err != nil {
				return nil, err
			}
			return fn(args, env)
		}
		if val, ok := env.Lookup(head.Name); ok {
			if closure, ok := val.(*Closure); ok {
				args, err := evalArgs(l.Tail(), env)
				if err != nil {
					return nil, err
				}
				return applyClosure(closure, args)
			}
		}
	}
	// Not a recognized callable: treat as inert data. The head (if any)
	// is kept as-is; only the tail is evaluated, for side effects like
	// nested defs, matching the tolerant fallback used by core.hql.
	elems := make([]ast.Node, len(l.Elements))
	for i, e := range l.Elements {
		if i == 0 && head != nil {
			elems[i] = e
			continue
		}
		v, err := Eval(e, env)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return &ast.List{Elements: elems, At: l.At}, nil
}

func evalArgs(nodes []ast.Node, env *menv.Env) ([]ast.Node, error) {
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		v, err := Eval(n, env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func applyClosure(c *Closure, args []ast.Node) (ast.Node, error) {
	child := c.Env.Child()
	for i, p := range c.Params {
		if i < len(args) {
			child.Define(p, args[i])
		} else {
			child.Define(p, ast.Null(ast.Position{}))
		}
	}
	if c.Rest != "" {
		var restArgs []ast.Node
		if len(args) > len(c.Params) {
			restArgs = args[len(c.Params):]
		}
		child.Define(c.Rest, &ast.List{Elements: restArgs})
	}
	var result ast.Node = ast.Null(ast.Position{})
	for _, form := range c.Body {
		v, err := Eval(form, child)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func evalDefmacro(l *ast.List, env *menv.Env) (ast.Node, error) {
	m, name, err := parseDefmacro(l, env)
	if err != nil {
		return nil, err
	}
	env.DefineMacro(name, m)
	return ast.Null(l.At), nil
}

func parseDefmacro(l *ast.List, env *menv.Env) (*menv.UserMacro, string, error) {
	if len(l.Elements) < 3 {
		return nil, "", fmt.Errorf("defmacro requires a name, a parameter list, and a body")
	}
	nameSym, ok := l.Elements[1].(*ast.Symbol)
	if !ok {
		return nil, "", fmt.Errorf("defmacro requires a symbol name")
	}
	paramList, ok := l.Elements[2].(*ast.List)
	if !ok {
		return nil, "", fmt.Errorf("defmacro requires a parameter list")
	}
	var params []string
	rest := ""
	for i := 0; i < len(paramList.Elements); i++ {
		sym, ok := paramList.Elements[i].(*ast.Symbol)
		if !ok {
			return nil, "", fmt.Errorf("defmacro parameters must be symbols")
		}
		if sym.Name == "&rest" {
			if i+1 >= len(paramList.Elements) {
				return nil, "", fmt.Errorf("&rest must be followed by a parameter name")
			}
			restSym := paramList.Elements[i+1].(*ast.Symbol)
			rest = restSym.Name
			break
		}
		params = append(params, sym.Name)
	}
	return &menv.UserMacro{Params: params, Rest: rest, Body: l.Elements[3:], Env: env}, nameSym.Name, nil
}

// evalQuasiquote walks a quasiquoted form, evaluating `unquote` and
// splicing `unquote-splicing` results into the enclosing list.
// depth tracks nesting so inner quasiquote/unquote pairs at a deeper level
// are preserved rather than evaluated at this level.
func evalQuasiquote(n ast.Node, env *menv.Env, depth int) (ast.Node, error) {
	l, ok := n.(*ast.List)
	if !ok {
		return n, nil
	}
	if head := l.HeadSymbol(); head != nil {
		switch head.Name {
		case "unquote":
			if depth == 1 {
				return Eval(l.Elements[1], env)
			}
			inner, err := evalQuasiquote(l.Elements[1], env, depth-1)
			if err != nil {
				return nil, err
			}
			return &ast.List{At: l.At, Elements: []ast.Node{ast.Sym("unquote", l.At), inner}}, nil
		case "quasiquote":
			inner, err := evalQuasiquote(l.Elements[1], env, depth+1)
			if err != nil {
				return nil, err
			}
			return &ast.List{At: l.At, Elements: []ast.Node{ast.Sym("quasiquote", l.At), inner}}, nil
		}
	}
	var out []ast.Node
	for _, e := range l.Elements {
		if inner, ok := e.(*ast.List); ok && depth == 1 {
			if head := inner.HeadSymbol(); head != nil && head.Name == "unquote-splicing" {
				spliced, err := Eval(inner.Elements[1], env)
				if err != nil {
					return nil, err
				}
				elems, ok := spliceElements(spliced)
				if !ok {
					return nil, fmt.Errorf("unquote-splicing must yield a list")
				}
				out = append(out, elems...)
				continue
			}
		}
		v, err := evalQuasiquote(e, env, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return &ast.List{At: l.At, Elements: out}, nil
}

func spliceElements(n ast.Node) ([]ast.Node, bool) {
	l, ok := n.(*ast.List)
	if !ok {
		return nil, false
	}
	return l.Elements, true
}
