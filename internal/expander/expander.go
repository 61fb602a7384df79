// Package expander implements the recursive macro expander:
// depth-tracked rewriting of the AST to kernel primitives, with qualified
// (module.name) cross-module resolution and quasiquote support. Grounded
// on other_examples' thsfranca-vex macro.MacroExpanderImpl
// expandMacrosInTree depth-dispatch-by-node-kind shape, rewritten to
// operate directly on ast.Node instead of round-tripping through source
// text, and on CWBudde-go-dws's tree-walking interpreter for macro bodies
// (see interp.go).
package expander

import (
	"fmt"

	"github.com/hqllang/hql/internal/ast"
	"github.com/hqllang/hql/internal/diag"
	"github.com/hqllang/hql/internal/logger"
	"github.com/hqllang/hql/internal/menv"
)

// DefaultMaxDepth is the configurable maximum expansion depth;
// exceeding it yields a js-error sentinel naming the limit, not a Go error.
const DefaultMaxDepth = 256

// Expander recursively rewrites a forest of forms to kernel primitives.
type Expander struct {
	Env      *menv.Env
	MaxDepth int

	// Log, if set, receives non-fatal warnings (shadowed macros) found
	// during expansion. Source identifies the file being expanded, used
	// to locate those warnings.
	Log    *logger.Log
	Source logger.Source
}

// New creates an Expander rooted at env, using the default max depth.
func New(env *menv.Env) *Expander {
	return &Expander{Env: env, MaxDepth: DefaultMaxDepth}
}

// ExpandAll expands every top-level form in nodes, left to right.
func (x *Expander) ExpandAll(nodes []ast.Node) ([]ast.Node, error) {
	out := make([]ast.Node, 0, len(nodes))
	for _, n := range nodes {
		en, err := x.Expand(n, x.Env, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, en)
	}
	return out, nil
}

// Expand rewrites a single node to its fully macro-expanded form.
func (x *Expander) Expand(n ast.Node, env *menv.Env, depth int) (ast.Node, error) {
	if depth > x.MaxDepth {
		return sentinel(fmt.Sprintf("expansion exceeded max depth %d", x.MaxDepth)), nil
	}

	l, ok := n.(*ast.List)
	if !ok {
		return n, nil // step 1: non-lists pass through
	}
	if len(l.Elements) == 0 {
		return n, nil // step 1: empty lists pass through
	}

	head := l.HeadSymbol()

	// step 2: defmacro registers and disappears.
	if head != nil && head.Name == "defmacro" {
		if err := x.registerDefmacro(l, env); err != nil {
			return sentinel(err.Error()), nil
		}
		return ast.Null(l.At), nil
	}

	// step 3: quote returns its argument un-expanded.
	if head != nil && head.Name == "quote" {
		return l, nil
	}

	// step 4: quasiquote walks the argument, splicing unquotes.
	if head != nil && head.Name == "quasiquote" {
		if len(l.Elements) != 2 {
			return sentinel("quasiquote requires exactly one argument"), nil
		}
		expanded, err := x.expandQuasiquote(l.Elements[1], env, depth)
		if err != nil {
			return sentinel(err.Error()), nil
		}
		return expanded, nil
	}

	// step 5: qualified module.name head.
	if head != nil && head.IsQualified() {
		qname := head.Name
		if user, native, ok := env.GetMacro(qname); ok {
			return x.expandMacroCall(qname, user, native, l.Tail(), env, depth)
		}
		mod := head.Qualifier()
		member := head.Member()
		if m, ok := env.LookupModule(mod); ok {
			if m.Has(member) {
				rewritten := jsCallForm(l.At, ast.Sym(mod, l.At), member, l.Tail())
				return x.Expand(rewritten, env, depth+1)
			}
		}
	}

	// step 6: js-call(module, "name", args…) where module.name is a macro.
	if head != nil && head.Name == "js-call" && len(l.Elements) >= 3 {
		if modSym, ok := l.Elements[1].(*ast.Symbol); ok {
			if nameLit, ok := l.Elements[2].(*ast.Literal); ok && nameLit.Kind == ast.LitString {
				qname := menv.QualifiedMacroName(modSym.Name, nameLit.Str)
				if user, native, ok := env.GetMacro(qname); ok {
					return x.expandMacroCall(qname, user, native, l.Elements[3:], env, depth)
				}
			}
		}
	}

	// step 7: plain registered macro.
	if head != nil {
		if user, native, ok := env.GetMacro(head.Name); ok {
			expanded, err := x.expandMacroCall(head.Name, user, native, l.Tail(), env, depth)
			if err != nil {
				return expanded, err
			}
			if el, ok := expanded.(*ast.List); ok {
				if h := el.HeadSymbol(); h != nil && isDotted(h.Name) {
					rewritten := jsCallFromDotted(el)
					return x.Expand(rewritten, env, depth+1)
				}
			}
			return x.Expand(expanded, env, depth+1)
		}
	}

	// step 8: recurse on each child.
	out := make([]ast.Node, len(l.Elements))
	for i, e := range l.Elements {
		ne, err := x.Expand(e, env, depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = ne
	}
	return &ast.List{Elements: out, At: l.At}, nil
}

func isDotted(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return true
		}
	}
	return false
}

func jsCallFromDotted(l *ast.List) ast.Node {
	head := l.HeadSymbol()
	i := indexByte(head.Name, '.')
	mod := head.Name[:i]
	member := head.Name[i+1:]
	return jsCallForm(l.At, ast.Sym(mod, l.At), member, l.Tail())
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func jsCallForm(at ast.Position, module ast.Node, member string, args []ast.Node) *ast.List {
	elems := []ast.Node{ast.Sym("js-call", at), module, ast.String(member, at)}
	elems = append(elems, args...)
	return &ast.List{Elements: elems, At: at}
}

// expandMacroCall expands args (left-to-right, per the "macro
// arguments are expanded before the macro function sees them") then
// invokes the macro — a user macro via the interpreter, a native macro
// directly.
func (x *Expander) expandMacroCall(name string, user *menv.UserMacro, native menv.MacroFn, args []ast.Node, env *menv.Env, depth int) (ast.Node, error) {
	expandedArgs := make([]ast.Node, len(args))
	for i, a := range args {
		ea, err := x.Expand(a, env, depth+1)
		if err != nil {
			return nil, err
		}
		expandedArgs[i] = ea
	}

	if native != nil {
		result, err := native(expandedArgs, env)
		if err != nil {
			return sentinel(fmt.Sprintf("macro %q failed at depth %d: %s", name, depth, err)), nil
		}
		return result, nil
	}

	if len(expandedArgs) < len(user.Params) || (user.Rest == "" && len(expandedArgs) > len(user.Params)) {
		return sentinel(fmt.Sprintf("macro %q called with wrong number of arguments", name)), nil
	}

	child := user.Env.Child()
	for i, p := range user.Params {
		child.Define(p, expandedArgs[i])
	}
	if user.Rest != "" {
		var restArgs []ast.Node
		if len(expandedArgs) > len(user.Params) {
			restArgs = expandedArgs[len(user.Params):]
		}
		child.Define(user.Rest, &ast.List{Elements: restArgs})
	}

	var result ast.Node = ast.Null(ast.Position{})
	for _, form := range user.Body {
		v, err := Eval(form, child)
		if err != nil {
			return sentinel(fmt.Sprintf("macro %q failed at depth %d: %s", name, depth, err)), nil
		}
		result = v
	}
	return result, nil
}

func (x *Expander) registerDefmacro(l *ast.List, env *menv.Env) error {
	m, name, err := parseDefmacro(l, env)
	if err != nil {
		return err
	}
	if x.Log != nil && env.HasMacro(name) {
		x.Log.AddWarning(x.Source, logger.Loc{Line: l.At.Line, Column: l.At.Column}, diag.PhaseMacro,
			fmt.Sprintf("macro %q shadows an existing definition", name))
	}
	env.DefineMacro(name, m)
	return nil
}

// expandQuasiquote mirrors evalQuasiquote but runs as part of expansion
// (not macro-body evaluation): unquoted sub-forms are themselves
// macro-expanded, then evaluated, matching the way a quasiquote used at
// top level (outside a macro body) still wants its unquotes resolved.
func (x *Expander) expandQuasiquote(n ast.Node, env *menv.Env, depth int) (ast.Node, error) {
	l, ok := n.(*ast.List)
	if !ok {
		return n, nil
	}
	if head := l.HeadSymbol(); head != nil && head.Name == "unquote" {
		expanded, err := x.Expand(l.Elements[1], env, depth+1)
		if err != nil {
			return nil, err
		}
		return Eval(expanded, env)
	}
	var out []ast.Node
	for _, e := range l.Elements {
		if inner, ok := e.(*ast.List); ok {
			if head := inner.HeadSymbol(); head != nil && head.Name == "unquote-splicing" {
				expanded, err := x.Expand(inner.Elements[1], env, depth+1)
				if err != nil {
					return nil, err
				}
				v, err := Eval(expanded, env)
				if err != nil {
					return nil, err
				}
				elems, ok := spliceElements(v)
				if !ok {
					return nil, fmt.Errorf("unquote-splicing must yield a list")
				}
				out = append(out, elems...)
				continue
			}
		}
		v, err := x.expandQuasiquote(e, env, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return &ast.List{At: l.At, Elements: out}, nil
}

// sentinel builds the `(js-error "…")` marker a failed expansion's
// offending subtree is replaced by, so compilation can continue to
// surface additional errors; the pipeline fails if any remains
// (see HasSentinel below).
func sentinel(msg string) ast.Node {
	return &ast.List{Elements: []ast.Node{
		ast.Sym("js-error", ast.Position{}),
		ast.String(msg, ast.Position{}),
	}}
}

// HasSentinel reports whether any `(js-error ...)` marker remains anywhere
// in the forest — the "no dangling sentinels" property.
func HasSentinel(nodes []ast.Node) (string, bool) {
	for _, n := range nodes {
		if msg, ok := findSentinel(n); ok {
			return msg, true
		}
	}
	return "", false
}

func findSentinel(n ast.Node) (string, bool) {
	l, ok := n.(*ast.List)
	if !ok {
		return "", false
	}
	if ast.IsHeadSymbol(l, "js-error") && len(l.Elements) == 2 {
		if lit, ok := l.Elements[1].(*ast.Literal); ok && lit.Kind == ast.LitString {
			return lit.Str, true
		}
		return "js-error", true
	}
	for _, e := range l.Elements {
		if msg, ok := findSentinel(e); ok {
			return msg, true
		}
	}
	return "", false
}
