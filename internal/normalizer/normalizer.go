// Package normalizer runs over the reader's AST before macro expansion,
// folding surface sugar into canonical kernel-adjacent forms.
// It mirrors esbuild's "lower one surface form into another before the
// rest of the pipeline sees it" shape from
// internal/js_parser/js_parser_lower.go, just applied to the reader AST
// instead of to an already-parsed JS AST.
package normalizer

import (
	"strings"

	"github.com/hqllang/hql/internal/ast"
	"github.com/hqllang/hql/internal/diag"
	"github.com/hqllang/hql/internal/logger"
)

// Normalize desugars dot-chains and fn/fx sugar throughout a forest of
// top-level forms.
func Normalize(nodes []ast.Node) ([]ast.Node, error) {
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		nn, err := normalize1(n)
		if err != nil {
			return nil, err
		}
		out[i] = nn
	}
	return out, nil
}

func normalize1(n ast.Node) (ast.Node, error) {
	l, ok := n.(*ast.List)
	if !ok || len(l.Elements) == 0 {
		return n, nil
	}

	if head := l.HeadSymbol(); head != nil {
		switch head.Name {
		case "fn":
			if isNamedFn(l) {
				return normalizeFn(l)
			}
			// Anonymous `(fn (params…) body…)` is already the kernel
			// shape lowering handles directly; just normalize its children.
		case "fx":
			return normalizeFx(l)
		case "quote":
			// quoted data is not live syntax; leave untouched.
			return l, nil
		}
	}

	if isDotChain(l) {
		rewritten, err := rewriteDotChain(l)
		if err != nil {
			return nil, err
		}
		return normalize1(rewritten)
	}

	elems := make([]ast.Node, len(l.Elements))
	for i, e := range l.Elements {
		ne, err := normalize1(e)
		if err != nil {
			return nil, err
		}
		elems[i] = ne
	}
	return &ast.List{Elements: elems, At: l.At}, nil
}

// isDotChain reports whether l's head is not itself a `.method` symbol but
// the tail contains at least one symbol starting with `.`.
func isDotChain(l *ast.List) bool {
	head := l.HeadSymbol()
	if head != nil && isDotMethod(head.Name) {
		return false
	}
	for _, e := range l.Tail() {
		if sym, ok := e.(*ast.Symbol); ok && isDotMethod(sym.Name) {
			return true
		}
	}
	return false
}

func isDotMethod(name string) bool {
	return len(name) > 1 && name[0] == '.'
}

// rewriteDotChain reorganizes `(target .method arg… .method2 arg…)` into
// left-associative nested `(method-call target "method" arg…)` forms, one
// per `.method`, innermost (first method) at the center. Elements between
// the target and the first `.method` are the target's own call arguments:
// `(arr.filter pred .length)` chains `.length` onto `(arr.filter pred)`.
func rewriteDotChain(l *ast.List) (ast.Node, error) {
	elems := l.Elements
	target := elems[0]
	i := 1
	var lead []ast.Node
	for i < len(elems) {
		if s, ok := elems[i].(*ast.Symbol); ok && isDotMethod(s.Name) {
			break
		}
		lead = append(lead, elems[i])
		i++
	}
	result := target
	if len(lead) > 0 {
		result = &ast.List{Elements: append([]ast.Node{target}, lead...), At: l.At}
	}
	for i < len(elems) {
		sym, ok := elems[i].(*ast.Symbol)
		if !ok || !isDotMethod(sym.Name) {
			return nil, &diag.SyntaxError{
				Loc:     toLoc(elems[i].Pos()),
				Detail:  "expected a `.method` symbol in dot-chain",
				Snippet: ast.Print(elems[i]),
			}
		}
		method := sym.Name[1:]
		i++
		var args []ast.Node
		for i < len(elems) {
			if s, ok := elems[i].(*ast.Symbol); ok && isDotMethod(s.Name) {
				break
			}
			args = append(args, elems[i])
			i++
		}
		call := []ast.Node{ast.Sym("method-call", l.At), result, ast.String(method, l.At)}
		call = append(call, args...)
		result = &ast.List{Elements: call, At: l.At}
	}
	return result, nil
}

// isNamedFn reports whether l has the named-sugar shape `(fn name
// (params…) body…)` rather than the kernel's own anonymous
// `(fn (params…) body…)` shape — distinguished by whether the element
// right after `fn` is a symbol (a name) or already a list (a param list).
func isNamedFn(l *ast.List) bool {
	if len(l.Elements) < 2 {
		return false
	}
	_, isSym := l.Elements[1].(*ast.Symbol)
	return isSym
}

// normalizeFn rewrites the named-sugar `(fn name (params…) body…)` into
// `(def name (fn (params…) body…))`, preserving an `&rest` marker as a
// rest parameter, so lowering only ever has to handle the kernel's single
// anonymous `fn` shape.
func normalizeFn(l *ast.List) (ast.Node, error) {
	if len(l.Elements) < 3 {
		return nil, &diag.SyntaxError{
			Loc:     toLoc(l.At),
			Detail:  "fn requires a name, a parameter list, and a body",
			Snippet: ast.Print(l),
		}
	}
	name := l.Elements[1]
	params, ok := l.Elements[2].(*ast.List)
	if !ok {
		return nil, &diag.SyntaxError{
			Loc:     toLoc(l.At),
			Detail:  "fn's second element must be a parameter list",
			Snippet: ast.Print(l),
		}
	}
	body, err := normalizeAll(l.Elements[3:])
	if err != nil {
		return nil, err
	}
	normParams, err := normalizeAll(params.Elements)
	if err != nil {
		return nil, err
	}
	fnLit := []ast.Node{ast.Sym("fn", l.At), &ast.List{Elements: normParams, At: params.At}}
	fnLit = append(fnLit, body...)
	return &ast.List{At: l.At, Elements: []ast.Node{
		ast.Sym("def", l.At),
		name,
		&ast.List{Elements: fnLit, At: l.At},
	}}, nil
}

// normalizeFx erases the decorative type annotations of the typed-function
// surface `(fx name (p: T = default …) (-> R) body…)` and lowers default
// values into a body prologue that assigns the default when the
// positional argument is `undefined`.
func normalizeFx(l *ast.List) (ast.Node, error) {
	if len(l.Elements) < 4 {
		return nil, &diag.SyntaxError{
			Loc:     toLoc(l.At),
			Detail:  "fx requires a name, a typed parameter list, a return-type list, and a body",
			Snippet: ast.Print(l),
		}
	}
	name := l.Elements[1]
	paramList, ok := l.Elements[2].(*ast.List)
	if !ok {
		return nil, &diag.SyntaxError{Loc: toLoc(l.At), Detail: "fx's second element must be a parameter list", Snippet: ast.Print(l)}
	}
	ret, ok := l.Elements[3].(*ast.List)
	if !ok || ret.HeadSymbol() == nil || ret.HeadSymbol().Name != "->" {
		return nil, &diag.SyntaxError{Loc: toLoc(l.At), Detail: "fx without return-type list `(-> R)`", Snippet: ast.Print(l)}
	}

	params, err := splitTypedParams(paramList)
	if err != nil {
		return nil, err
	}
	var bareParams []ast.Node
	var prologue []ast.Node
	for _, p := range params {
		if p.def == nil {
			bareParams = append(bareParams, ast.Sym(p.name, paramList.At))
			continue
		}
		// A defaulted parameter is renamed in the parameter list so the
		// prologue can rebind the original name without redeclaring it:
		// `function(a, __b) { const b = __b === undefined ? 1 : __b; ... }`.
		raw := ast.Sym("__"+p.name, paramList.At)
		bareParams = append(bareParams, raw)
		prologue = append(prologue, &ast.List{At: l.At, Elements: []ast.Node{
			ast.Sym("def", l.At),
			ast.Sym(p.name, l.At),
			&ast.List{At: l.At, Elements: []ast.Node{
				ast.Sym("if", l.At),
				&ast.List{At: l.At, Elements: []ast.Node{ast.Sym("=", l.At), raw, ast.Sym("js/undefined", l.At)}},
				p.def,
				raw,
			}},
		}})
	}

	body, err := normalizeAll(l.Elements[4:])
	if err != nil {
		return nil, err
	}
	fnLit := []ast.Node{ast.Sym("fn", l.At), &ast.List{Elements: bareParams, At: paramList.At}}
	fnLit = append(fnLit, prologue...)
	fnLit = append(fnLit, body...)
	return &ast.List{At: l.At, Elements: []ast.Node{
		ast.Sym("def", l.At),
		name,
		&ast.List{Elements: fnLit, At: l.At},
	}}, nil
}

type typedParam struct {
	name string
	def  ast.Node
}

// splitTypedParams walks the flat typed parameter list `(p: T = default …)`:
// a symbol ending in `:` opens a parameter whose next element is its type,
// optionally followed by `=` and a default value; a bare symbol is an
// untyped parameter of its own.
func splitTypedParams(l *ast.List) ([]typedParam, error) {
	var out []typedParam
	elems := l.Elements
	for i := 0; i < len(elems); {
		sym, ok := elems[i].(*ast.Symbol)
		if !ok {
			return nil, &diag.SyntaxError{Loc: toLoc(elems[i].Pos()), Detail: "parameter names must be symbols", Snippet: ast.Print(l)}
		}
		if !strings.HasSuffix(sym.Name, ":") {
			out = append(out, typedParam{name: sym.Name})
			i++
			continue
		}
		p := typedParam{name: strings.TrimSuffix(sym.Name, ":")}
		if i+1 >= len(elems) {
			return nil, &diag.SyntaxError{Loc: toLoc(sym.At), Detail: "typed parameter is missing its type", Snippet: ast.Print(l)}
		}
		i += 2 // skip the type annotation; types are decorative
		if i+1 < len(elems) {
			if eq, ok := elems[i].(*ast.Symbol); ok && eq.Name == "=" {
				p.def = elems[i+1]
				i += 2
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func normalizeAll(nodes []ast.Node) ([]ast.Node, error) {
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		nn, err := normalize1(n)
		if err != nil {
			return nil, err
		}
		out[i] = nn
	}
	return out, nil
}

func toLoc(p ast.Position) logger.Loc {
	return logger.Loc{Line: p.Line, Column: p.Column}
}
