package menv

import (
	"fmt"
	"sync/atomic"

	"github.com/hqllang/hql/internal/ast"
)

// gensymCounter is shared across a whole compilation: one
// atomically incremented counter combined with a prefix the reader can
// never produce (the reader rejects any symbol that starts with "#:"),
// guaranteeing gensym output never collides with source identifiers,
// other gensym output, or later expansions.
type gensymCounter struct {
	n int64
}

func (g *gensymCounter) next(base string) string {
	n := atomic.AddInt64(&g.n, 1)
	return fmt.Sprintf("#:%s%d", base, n)
}

// InstallPrimitives installs every core primitive into the root
// environment: arithmetic/comparison/list/predicate/interop natives.
func InstallPrimitives(root *Env) {
	gs := &gensymCounter{}

	root.DefineNative("+", arith(func(a, b float64) float64 { return a + b }, 0))
	root.DefineNative("-", subPrim)
	root.DefineNative("*", arith(func(a, b float64) float64 { return a * b }, 1))
	root.DefineNative("/", divPrim)
	root.DefineNative("%", modPrim)

	root.DefineNative("=", cmpPrim(func(a, b float64) bool { return a == b }, func(a, b string) bool { return a == b }))
	root.DefineNative("eq?", cmpPrim(func(a, b float64) bool { return a == b }, func(a, b string) bool { return a == b }))
	root.DefineNative("!=", cmpPrim(func(a, b float64) bool { return a != b }, func(a, b string) bool { return a != b }))
	root.DefineNative("<", cmpNumOnly(func(a, b float64) bool { return a < b }))
	root.DefineNative(">", cmpNumOnly(func(a, b float64) bool { return a > b }))
	root.DefineNative("<=", cmpNumOnly(func(a, b float64) bool { return a <= b }))
	root.DefineNative(">=", cmpNumOnly(func(a, b float64) bool { return a >= b }))

	root.DefineNative("first", firstPrim)
	root.DefineNative("rest", restPrim)
	root.DefineNative("second", secondPrim)
	root.DefineNative("cons", consPrim)
	root.DefineNative("length", lengthPrim)
	root.DefineNative("next", nextPrim)
	root.DefineNative("seq", seqPrim)
	root.DefineNative("empty?", emptyPrim)
	root.DefineNative("conj", conjPrim)
	root.DefineNative("concat", concatPrim)
	root.DefineNative("list", listPrim)

	root.DefineNative("symbol?", predPrim(func(n ast.Node) bool { _, ok := n.(*ast.Symbol); return ok }))
	root.DefineNative("list?", predPrim(func(n ast.Node) bool { _, ok := n.(*ast.List); return ok }))
	root.DefineNative("map?", predPrim(func(n ast.Node) bool { return ast.IsHeadSymbol(n, "hash-map") }))
	root.DefineNative("nil?", predPrim(func(n ast.Node) bool {
		lit, ok := n.(*ast.Literal)
		return ok && lit.Kind == ast.LitNull
	}))

	root.DefineNative("js-import", interopMarker)
	root.DefineNative("js-export", interopMarker)
	root.DefineNative("js-get", interopMarker)
	root.DefineNative("js-call", interopMarker)

	root.DefineNative("gensym", func(args []ast.Node, env *Env) (ast.Node, error) {
		base := "g"
		if len(args) > 0 {
			if s, ok := args[0].(*ast.Literal); ok && s.Kind == ast.LitString {
				base = s.Str
			}
		}
		return ast.Sym(gs.next(base), ast.Position{}), nil
	})
}

func asNumber(n ast.Node) (float64, bool) {
	lit, ok := n.(*ast.Literal)
	if !ok || lit.Kind != ast.LitNumber {
		return 0, false
	}
	return lit.Number, true
}

func arith(op func(a, b float64) float64, identity float64) NativeFn {
	return func(args []ast.Node, env *Env) (ast.Node, error) {
		if len(args) == 0 {
			return ast.Number(identity, ast.Position{}), nil
		}
		acc, ok := asNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("arithmetic primitive expects numeric operands")
		}
		if len(args) == 1 {
			return ast.Number(op(identity, acc), ast.Position{}), nil
		}
		for _, a := range args[1:] {
			v, ok := asNumber(a)
			if !ok {
				return nil, fmt.Errorf("arithmetic primitive expects numeric operands")
			}
			acc = op(acc, v)
		}
		return ast.Number(acc, ast.Position{}), nil
	}
}

func subPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("- requires at least one operand")
	}
	first, ok := asNumber(args[0])
	if !ok {
		return nil, fmt.Errorf("- expects numeric operands")
	}
	if len(args) == 1 {
		return ast.Number(-first, ast.Position{}), nil
	}
	acc := first
	for _, a := range args[1:] {
		v, ok := asNumber(a)
		if !ok {
			return nil, fmt.Errorf("- expects numeric operands")
		}
		acc -= v
	}
	return ast.Number(acc, ast.Position{}), nil
}

func divPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("/ requires at least one operand")
	}
	first, ok := asNumber(args[0])
	if !ok {
		return nil, fmt.Errorf("/ expects numeric operands")
	}
	if len(args) == 1 {
		return ast.Number(1/first, ast.Position{}), nil
	}
	acc := first
	for _, a := range args[1:] {
		v, ok := asNumber(a)
		if !ok {
			return nil, fmt.Errorf("/ expects numeric operands")
		}
		acc /= v
	}
	return ast.Number(acc, ast.Position{}), nil
}

func modPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%% requires at least two operands")
	}
	acc, ok := asNumber(args[0])
	if !ok {
		return nil, fmt.Errorf("%% expects numeric operands")
	}
	for _, a := range args[1:] {
		v, ok := asNumber(a)
		if !ok {
			return nil, fmt.Errorf("%% expects numeric operands")
		}
		acc = float64(int64(acc) % int64(v))
	}
	return ast.Number(acc, ast.Position{}), nil
}

func cmpPrim(numCmp func(a, b float64) bool, strCmp func(a, b string) bool) NativeFn {
	return func(args []ast.Node, env *Env) (ast.Node, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("comparison primitive requires exactly two operands")
		}
		if an, aok := asNumber(args[0]); aok {
			if bn, bok := asNumber(args[1]); bok {
				return ast.Bool(numCmp(an, bn), ast.Position{}), nil
			}
		}
		if as, ok := args[0].(*ast.Literal); ok && as.Kind == ast.LitString {
			if bs, ok := args[1].(*ast.Literal); ok && bs.Kind == ast.LitString {
				return ast.Bool(strCmp(as.Str, bs.Str), ast.Position{}), nil
			}
		}
		return ast.Bool(ast.Print(args[0]) == ast.Print(args[1]), ast.Position{}), nil
	}
}

func cmpNumOnly(cmp func(a, b float64) bool) NativeFn {
	return func(args []ast.Node, env *Env) (ast.Node, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("comparison primitive requires exactly two operands")
		}
		a, ok := asNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("comparison primitive expects numeric operands")
		}
		b, ok := asNumber(args[1])
		if !ok {
			return nil, fmt.Errorf("comparison primitive expects numeric operands")
		}
		return ast.Bool(cmp(a, b), ast.Position{}), nil
	}
}

func asElems(n ast.Node) ([]ast.Node, bool) {
	l, ok := n.(*ast.List)
	if !ok {
		return nil, false
	}
	if l.HeadSymbol() != nil {
		switch l.HeadSymbol().Name {
		case "vector", "list", "quote":
			return l.Tail(), true
		}
	}
	return l.Elements, true
}

func firstPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("first requires exactly one argument")
	}
	elems, ok := asElems(args[0])
	if !ok || len(elems) == 0 {
		return ast.Null(ast.Position{}), nil
	}
	return elems[0], nil
}

func restPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("rest requires exactly one argument")
	}
	elems, ok := asElems(args[0])
	if !ok || len(elems) <= 1 {
		return &ast.List{}, nil
	}
	return &ast.List{Elements: elems[1:]}, nil
}

func secondPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("second requires exactly one argument")
	}
	elems, ok := asElems(args[0])
	if !ok || len(elems) < 2 {
		return ast.Null(ast.Position{}), nil
	}
	return elems[1], nil
}

func consPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("cons requires exactly two arguments")
	}
	elems, ok := asElems(args[1])
	if !ok {
		elems = []ast.Node{args[1]}
	}
	out := append([]ast.Node{args[0]}, elems...)
	return &ast.List{Elements: out}, nil
}

func lengthPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("length requires exactly one argument")
	}
	elems, ok := asElems(args[0])
	if !ok {
		return nil, fmt.Errorf("length expects a list")
	}
	return ast.Number(float64(len(elems)), ast.Position{}), nil
}

func nextPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("next requires exactly one argument")
	}
	elems, ok := asElems(args[0])
	if !ok || len(elems) <= 1 {
		return ast.Null(ast.Position{}), nil
	}
	return &ast.List{Elements: elems[1:]}, nil
}

func seqPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("seq requires exactly one argument")
	}
	elems, ok := asElems(args[0])
	if !ok || len(elems) == 0 {
		return ast.Null(ast.Position{}), nil
	}
	return &ast.List{Elements: elems}, nil
}

func emptyPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("empty? requires exactly one argument")
	}
	elems, ok := asElems(args[0])
	return ast.Bool(!ok || len(elems) == 0, ast.Position{}), nil
}

func conjPrim(args []ast.Node, env *Env) (ast.Node, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("conj requires at least a collection")
	}
	elems, _ := asElems(args[0])
	out := append(append([]ast.Node{}, elems...), args[1:]...)
	return &ast.List{Elements: out}, nil
}

func concatPrim(args []ast.Node, env *Env) (ast.Node, error) {
	var out []ast.Node
	for _, a := range args {
		elems, ok := asElems(a)
		if !ok {
			return nil, fmt.Errorf("concat expects list arguments")
		}
		out = append(out, elems...)
	}
	return &ast.List{Elements: out}, nil
}

func listPrim(args []ast.Node, env *Env) (ast.Node, error) {
	return &ast.List{Elements: append([]ast.Node{}, args...)}, nil
}

func predPrim(pred func(ast.Node) bool) NativeFn {
	return func(args []ast.Node, env *Env) (ast.Node, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("predicate requires exactly one argument")
		}
		return ast.Bool(pred(args[0]), ast.Position{}), nil
	}
}

// interopMarker is a placeholder native for the js-* interop forms: at the
// macro-evaluation layer these are inert markers (the real handling
// happens in internal/lower); calling one from macro code just
// reconstructs the call as data.
func interopMarker(args []ast.Node, env *Env) (ast.Node, error) {
	return &ast.List{Elements: args}, nil
}
