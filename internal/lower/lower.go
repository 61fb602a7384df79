// Package lower implements AST-to-IR lowering (C6): turning fully
// macro-expanded forms into the JS-shaped internal/ir tree the emitter
// prints. Grounded on esbuild's own lowering passes (internal/js_parser's
// visitExpr/lowerX functions), which likewise dispatch on a closed set of
// recognized shapes and fall through to a generic case for everything
// else — scaled down here to HQL's kernel-form vocabulary rather than the
// full ECMAScript grammar.
package lower

import (
	"strings"

	"github.com/hqllang/hql/internal/ast"
	"github.com/hqllang/hql/internal/diag"
	"github.com/hqllang/hql/internal/ir"
)

// reserved holds JS reserved words a sanitized identifier must not collide
// with; esbuild carries the equivalent table in internal/js_lexer/tables.go.
var reserved = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "export": true, "extends": true, "finally": true,
	"for": true, "function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "new": true, "return": true, "super": true,
	"switch": true, "this": true, "throw": true, "try": true, "typeof": true,
	"var": true, "void": true, "while": true, "with": true, "yield": true,
	"let": true, "static": true, "enum": true, "await": true,
	"implements": true, "package": true, "protected": true, "interface": true,
	"private": true, "public": true, "null": true, "true": true, "false": true,
	"get": true, "set": true,
}

// sanitizeIdent maps an HQL name onto a legal, collision-free JS identifier.
// `js/`-prefixed names bypass all of this: they name a JS global directly
// and are emitted verbatim modulo the hyphen rewrite.
func sanitizeIdent(name string) string {
	if strings.HasPrefix(name, "js/") {
		return strings.ReplaceAll(name[len("js/"):], "-", "_")
	}
	s := strings.ReplaceAll(name, "-", "_")
	if s == "" {
		return s
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	if reserved[s] {
		s += "_"
	}
	return s
}

var arithOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}

var cmpOps = map[string]string{
	"=": "===", "eq?": "===", "!=": "!==",
	"<": "<", ">": ">", "<=": "<=", ">=": ">=",
}

// ExportedVarNames scans a module's expanded forms for both js-export
// shapes and returns a map from export name to its sanitized local
// binding name, for the bundler to build its exports object from.
func ExportedVarNames(forms []ast.Node) map[string]string {
	out := map[string]string{}
	for _, f := range forms {
		l, ok := f.(*ast.List)
		if !ok || !ast.IsHeadSymbol(l, "js-export") || len(l.Elements) != 2 {
			continue
		}
		switch v := l.Elements[1].(type) {
		case *ast.Symbol:
			out[v.Name] = sanitizeIdent(v.Name)
		case *ast.List:
			if ast.IsHeadSymbol(v, "def") && len(v.Elements) == 3 {
				if nameSym, ok := v.Elements[1].(*ast.Symbol); ok {
					out[nameSym.Name] = sanitizeIdent(nameSym.Name)
				}
			}
		}
	}
	return out
}

// Program lowers a module's fully-expanded top-level forms into a Program.
// Forms that vanished during expansion (defmacro, import) surface here as a
// bare null literal and are dropped rather than printed as a statement.
func Program(forms []ast.Node) (*ir.Program, error) {
	body := make([]ir.Node, 0, len(forms))
	for _, f := range forms {
		if isVoidForm(f) {
			continue
		}
		n, err := Expr(f)
		if err != nil {
			return nil, err
		}
		body = append(body, n)
	}
	return &ir.Program{Body: body}, nil
}

func isVoidForm(n ast.Node) bool {
	lit, ok := n.(*ast.Literal)
	return ok && lit.Kind == ast.LitNull
}

// Expr lowers a single form. Every kernel form funnels through here; there
// is no separate statement-vs-expression split in the IR's Body slices, the
// emitter decides whether a node needs a trailing `;` when it prints it.
func Expr(n ast.Node) (ir.Node, error) {
	switch v := n.(type) {
	case *ast.Literal:
		return lowerLiteral(v), nil
	case *ast.Symbol:
		return lowerSymbolRef(v), nil
	case *ast.List:
		return lowerList(v)
	default:
		return nil, &diag.LoweringError{Form: ast.Print(n), Detail: "unrecognized node type"}
	}
}

func lowerLiteral(l *ast.Literal) ir.Node {
	switch l.Kind {
	case ast.LitBool:
		return ir.BoolLit{Value: l.Bool}
	case ast.LitNumber:
		return ir.NumLit{Value: l.Number}
	case ast.LitString:
		return ir.StrLit{Value: l.Str}
	default:
		return ir.NullLit{}
	}
}

// lowerSymbolRef lowers a symbol referenced as a value (not a list head). A
// qualified, non-js/ name (`obj.prop`) that reaches here unexpanded is
// treated as a plain member chain on a bound identifier.
func lowerSymbolRef(s *ast.Symbol) ir.Node {
	if s.IsJSInterop() {
		return ir.Identifier{Name: sanitizeIdent(s.Name), IsJS: true}
	}
	if s.IsQualified() {
		return memberChain(s.Name)
	}
	return ir.Identifier{Name: sanitizeIdent(s.Name)}
}

// memberChain turns a dotted name `a.b.c` into nested MemberExpr reads.
func memberChain(name string) ir.Node {
	parts := strings.Split(name, ".")
	var n ir.Node = ir.Identifier{Name: sanitizeIdent(parts[0])}
	for _, p := range parts[1:] {
		n = ir.MemberExpr{Object: n, Property: p}
	}
	return n
}

func lowerArgs(args []ast.Node) ([]ir.Node, error) {
	out := make([]ir.Node, len(args))
	for i, a := range args {
		n, err := Expr(a)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func lowerList(l *ast.List) (ir.Node, error) {
	if len(l.Elements) == 0 {
		return ir.ArrayExpr{}, nil
	}

	head := l.HeadSymbol()
	if head != nil {
		if n, handled, err := lowerKernelForm(head.Name, l); handled {
			return n, err
		}
		if head.IsQualified() {
			return lowerDottedHead(head, l.Tail())
		}
	}
	return lowerApplication(l)
}

// lowerKernelForm dispatches the closed set of kernel primitives. The bool
// result reports whether name named one at all (a false result means the
// caller should fall through to the generic application/dotted-head rules).
func lowerKernelForm(name string, l *ast.List) (ir.Node, bool, error) {
	args := l.Tail()
	switch name {
	case "quote":
		if len(args) != 1 {
			return nil, true, &diag.LoweringError{Form: ast.Print(l), Detail: "quote takes exactly one argument"}
		}
		return lowerQuoted(args[0]), true, nil
	case "str":
		n, err := lowerStr(args)
		return n, true, err
	case "if":
		n, err := lowerIf(args)
		return n, true, err
	case "fn":
		n, err := lowerFn(args)
		return n, true, err
	case "def":
		n, err := lowerDef(args)
		return n, true, err
	case "js-import":
		n, err := lowerJSImport(args)
		return n, true, err
	case "js-export":
		n, err := lowerJSExport(args)
		return n, true, err
	case "js-new", "new":
		n, err := lowerNew(args)
		return n, true, err
	case "js-get":
		n, err := lowerGet(args)
		return n, true, err
	case "js-call":
		n, err := lowerJSCall(args)
		return n, true, err
	case "js-get-invoke":
		n, err := lowerGetInvoke(args)
		return n, true, err
	case "vector":
		n, err := lowerArgs(args)
		return ir.ArrayExpr{Elements: n}, true, err
	case "hash-map":
		return lowerHashMap(args), true, nil
	case "hash-set":
		n, err := lowerArgs(args)
		return ir.NewExpr{Callee: ir.Identifier{Name: "Set"}, Args: []ir.Node{ir.ArrayExpr{Elements: n}}}, true, err
	case "empty-array":
		return ir.ArrayExpr{}, true, nil
	case "empty-map":
		return ir.ObjectExpr{}, true, nil
	case "empty-set":
		return ir.NewExpr{Callee: ir.Identifier{Name: "Set"}, Args: []ir.Node{ir.ArrayExpr{}}}, true, nil
	}
	if arithOps[name] {
		n, err := lowerArith(name, args)
		return n, true, err
	}
	if op, ok := cmpOps[name]; ok {
		n, err := lowerCmp(op, args)
		return n, true, err
	}
	return nil, false, nil
}

func lowerIf(args []ast.Node) (ir.Node, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, &diag.LoweringError{Detail: "if takes a test, a consequent, and an optional alternate", Form: ast.Print(ast.NewList(ast.Position{}, args...))}
	}
	test, err := Expr(args[0])
	if err != nil {
		return nil, err
	}
	cons, err := Expr(args[1])
	if err != nil {
		return nil, err
	}
	var alt ir.Node = ir.NullLit{}
	if len(args) == 3 {
		alt, err = Expr(args[2])
		if err != nil {
			return nil, err
		}
	}
	return ir.ConditionalExpr{Test: test, Cons: cons, Alt: alt}, nil
}

func lowerDef(args []ast.Node) (ir.Node, error) {
	if len(args) != 2 {
		return nil, &diag.LoweringError{Detail: "def takes exactly a name and a value", Form: ast.Print(ast.NewList(ast.Position{}, args...))}
	}
	nameSym, ok := args[0].(*ast.Symbol)
	if !ok {
		return nil, &diag.LoweringError{Detail: "def's first argument must be a symbol", Form: ast.Print(args[0])}
	}
	val, err := Expr(args[1])
	if err != nil {
		return nil, err
	}
	return ir.VariableDeclaration{
		Kind:         "const",
		Declarations: []ir.Declarator{{ID: ir.Identifier{Name: sanitizeIdent(nameSym.Name)}, Init: val}},
	}, nil
}

func lowerFn(args []ast.Node) (ir.Node, error) {
	if len(args) == 0 {
		return nil, &diag.LoweringError{Detail: "fn requires a parameter list", Form: ast.Print(ast.NewList(ast.Position{}, args...))}
	}
	paramList, ok := args[0].(*ast.List)
	if !ok {
		return nil, &diag.LoweringError{Detail: "fn's first argument must be a parameter list", Form: ast.Print(args[0])}
	}
	params, err := lowerParams(paramList)
	if err != nil {
		return nil, err
	}
	body, err := lowerFnBody(args[1:])
	if err != nil {
		return nil, err
	}
	return ir.FunctionExpression{Params: params, Body: ir.Block{Body: body}}, nil
}

func lowerParams(l *ast.List) ([]ir.Identifier, error) {
	out := make([]ir.Identifier, 0, len(l.Elements))
	for i := 0; i < len(l.Elements); i++ {
		sym, ok := l.Elements[i].(*ast.Symbol)
		if !ok {
			return nil, &diag.LoweringError{Detail: "parameter names must be symbols", Form: ast.Print(l)}
		}
		if sym.Name == "&rest" {
			if i+1 >= len(l.Elements) {
				return nil, &diag.LoweringError{Detail: "&rest must be followed by a parameter name", Form: ast.Print(l)}
			}
			restSym, ok := l.Elements[i+1].(*ast.Symbol)
			if !ok {
				return nil, &diag.LoweringError{Detail: "&rest's parameter name must be a symbol", Form: ast.Print(l)}
			}
			out = append(out, ir.Identifier{Name: "..." + sanitizeIdent(restSym.Name)})
			break
		}
		out = append(out, ir.Identifier{Name: sanitizeIdent(sym.Name)})
	}
	return out, nil
}

// lowerFnBody lowers a function's body forms into a statement list: every
// form but the last is evaluated for effect, the last supplies the return
// value. A trailing variable declaration gets an explicit return of its
// bound name appended; a trailing zero-arg call expression (the shape a
// `do` block expands to) is kept as a plain statement with `return null`
// appended after it, rather than returning the call's own result.
func lowerFnBody(forms []ast.Node) ([]ir.Node, error) {
	if len(forms) == 0 {
		return []ir.Node{ir.ReturnStatement{Argument: ir.NullLit{}}}, nil
	}
	out := make([]ir.Node, 0, len(forms)+1)
	for i, f := range forms {
		n, err := Expr(f)
		if err != nil {
			return nil, err
		}
		if i < len(forms)-1 {
			out = append(out, n)
			continue
		}
		switch v := n.(type) {
		case ir.VariableDeclaration:
			out = append(out, v)
			last := v.Declarations[len(v.Declarations)-1]
			out = append(out, ir.ReturnStatement{Argument: last.ID})
		case ir.CallExpr:
			if len(v.Args) == 0 {
				out = append(out, v)
				out = append(out, ir.ReturnStatement{Argument: ir.NullLit{}})
			} else {
				out = append(out, ir.ReturnStatement{Argument: v})
			}
		default:
			out = append(out, ir.ReturnStatement{Argument: n})
		}
	}
	return out, nil
}

func lowerJSImport(args []ast.Node) (ir.Node, error) {
	if len(args) != 2 {
		return nil, &diag.LoweringError{Detail: "js-import takes a name and a source path", Form: ast.Print(ast.NewList(ast.Position{}, args...))}
	}
	nameSym, ok := args[0].(*ast.Symbol)
	if !ok {
		return nil, &diag.LoweringError{Detail: "js-import's first argument must be a symbol", Form: ast.Print(args[0])}
	}
	pathLit, ok := args[1].(*ast.Literal)
	if !ok || pathLit.Kind != ast.LitString {
		return nil, &diag.LoweringError{Detail: "js-import's second argument must be a string", Form: ast.Print(args[1])}
	}
	return ir.JsImportReference{Name: sanitizeIdent(nameSym.Name), Source: pathLit.Str}, nil
}

// lowerJSExport recognizes both `(js-export name)`, exporting an
// already-declared binding, and `(js-export (def name val))`, which
// declares and exports in one step.
func lowerJSExport(args []ast.Node) (ir.Node, error) {
	if len(args) != 1 {
		return nil, &diag.LoweringError{Detail: "js-export takes exactly one argument", Form: ast.Print(ast.NewList(ast.Position{}, args...))}
	}
	switch v := args[0].(type) {
	case *ast.Symbol:
		name := sanitizeIdent(v.Name)
		return ir.ExportNamedDeclaration{Specifiers: []ir.ExportSpecifier{{Local: name, Exported: name}}}, nil
	case *ast.List:
		if !ast.IsHeadSymbol(v, "def") {
			return nil, &diag.LoweringError{Detail: "js-export's nested form must be a def", Form: ast.Print(v)}
		}
		decl, err := lowerDef(v.Tail())
		if err != nil {
			return nil, err
		}
		vd := decl.(ir.VariableDeclaration)
		return ir.ExportVariableDeclaration{Declaration: vd, ExportName: vd.Declarations[0].ID.Name}, nil
	default:
		return nil, &diag.LoweringError{Detail: "js-export's argument must be a symbol or a def form", Form: ast.Print(args[0])}
	}
}

func lowerNew(args []ast.Node) (ir.Node, error) {
	if len(args) == 0 {
		return nil, &diag.LoweringError{Detail: "new requires a constructor", Form: "(new)"}
	}
	callee, err := Expr(args[0])
	if err != nil {
		return nil, err
	}
	rest, err := lowerArgs(args[1:])
	if err != nil {
		return nil, err
	}
	return ir.NewExpr{Callee: callee, Args: rest}, nil
}

func propertyName(n ast.Node) (string, error) {
	switch v := n.(type) {
	case *ast.Literal:
		if v.Kind == ast.LitString {
			return v.Str, nil
		}
	case *ast.Symbol:
		return v.Name, nil
	}
	return "", &diag.LoweringError{Detail: "expected a property name", Form: ast.Print(n)}
}

func lowerGet(args []ast.Node) (ir.Node, error) {
	if len(args) != 2 {
		return nil, &diag.LoweringError{Detail: "js-get takes an object and a property name", Form: ast.Print(ast.NewList(ast.Position{}, args...))}
	}
	obj, err := Expr(args[0])
	if err != nil {
		return nil, err
	}
	prop, err := propertyName(args[1])
	if err != nil {
		return nil, err
	}
	return ir.MemberExpr{Object: obj, Property: prop}, nil
}

func lowerGetInvoke(args []ast.Node) (ir.Node, error) {
	if len(args) != 2 {
		return nil, &diag.LoweringError{Detail: "js-get-invoke takes an object and a property name", Form: ast.Print(ast.NewList(ast.Position{}, args...))}
	}
	obj, err := Expr(args[0])
	if err != nil {
		return nil, err
	}
	prop, err := propertyName(args[1])
	if err != nil {
		return nil, err
	}
	return ir.InteropIIFE{Object: obj, Property: prop}, nil
}

func lowerJSCall(args []ast.Node) (ir.Node, error) {
	if len(args) < 2 {
		return nil, &diag.LoweringError{Detail: "js-call takes an object, a property name, and any arguments", Form: ast.Print(ast.NewList(ast.Position{}, args...))}
	}
	obj, err := Expr(args[0])
	if err != nil {
		return nil, err
	}
	prop, err := propertyName(args[1])
	if err != nil {
		return nil, err
	}
	callArgs, err := lowerArgs(args[2:])
	if err != nil {
		return nil, err
	}
	return ir.CallMemberExpr{Object: obj, Property: prop, Args: callArgs}, nil
}

// lowerStr lowers the `(str ...)` form the reader's string-interpolation
// rewrite produces: concatenate every part, forcing string
// coercion of non-string parts the way JS's `+` does against a leading `""`.
func lowerStr(args []ast.Node) (ir.Node, error) {
	if len(args) == 0 {
		return ir.StrLit{Value: ""}, nil
	}
	parts, err := lowerArgs(args)
	if err != nil {
		return nil, err
	}
	var acc ir.Node = ir.StrLit{Value: ""}
	for _, p := range parts {
		acc = ir.BinaryExpr{Op: "+", Left: acc, Right: p}
	}
	return acc, nil
}

func lowerHashMap(args []ast.Node) ir.Node {
	var props []ir.Property
	for i := 0; i+1 < len(args); i += 2 {
		key, err := propertyName(args[i])
		if err != nil {
			continue // incomplete/invalid pairs are dropped
		}
		val, err := Expr(args[i+1])
		if err != nil {
			continue
		}
		props = append(props, ir.Property{Key: key, Value: val})
	}
	return ir.ObjectExpr{Properties: props}
}

func lowerArith(op string, args []ast.Node) (ir.Node, error) {
	if len(args) == 0 {
		return nil, &diag.LoweringError{Detail: "arithmetic operator requires at least one operand", Form: op}
	}
	first, err := Expr(args[0])
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		if op == "+" || op == "-" {
			return ir.UnaryExpr{Op: op, Arg: first}, nil
		}
		return first, nil
	}
	acc := first
	for _, a := range args[1:] {
		rhs, err := Expr(a)
		if err != nil {
			return nil, err
		}
		acc = ir.BinaryExpr{Op: op, Left: acc, Right: rhs}
	}
	return acc, nil
}

func lowerCmp(op string, args []ast.Node) (ir.Node, error) {
	if len(args) != 2 {
		return nil, &diag.LoweringError{Detail: "comparison operators take exactly two operands", Form: op}
	}
	lhs, err := Expr(args[0])
	if err != nil {
		return nil, err
	}
	rhs, err := Expr(args[1])
	if err != nil {
		return nil, err
	}
	return ir.BinaryExpr{Op: op, Left: lhs, Right: rhs}, nil
}

// lowerDottedHead handles a list headed by a literal qualified symbol
// (`obj.member`) that survived macro expansion unrewritten — meaning
// `obj` named neither a registered module nor a macro, so it must be an
// ordinary bound JS value accessed by dotted shorthand directly.
func lowerDottedHead(head *ast.Symbol, args []ast.Node) (ir.Node, error) {
	obj := ir.Identifier{Name: sanitizeIdent(head.Qualifier())}
	member := head.Member()
	if len(args) == 0 {
		return ir.InteropIIFE{Object: obj, Property: member}, nil
	}
	callArgs, err := lowerArgs(args)
	if err != nil {
		return nil, err
	}
	return ir.CallExpr{Callee: ir.MemberExpr{Object: obj, Property: member}, Args: callArgs}, nil
}

// lowerApplication handles every list whose head isn't a kernel form or a
// dotted symbol: a one-argument application is collection indexing
// (`get(collection, idx)`), anything else is an ordinary call.
func lowerApplication(l *ast.List) (ir.Node, error) {
	callee, err := Expr(l.Elements[0])
	if err != nil {
		return nil, err
	}
	args := l.Tail()
	if len(args) == 1 {
		idx, err := Expr(args[0])
		if err != nil {
			return nil, err
		}
		return ir.CallExpr{Callee: ir.Identifier{Name: "get"}, Args: []ir.Node{callee, idx}}, nil
	}
	rest, err := lowerArgs(args)
	if err != nil {
		return nil, err
	}
	return ir.CallExpr{Callee: callee, Args: rest}, nil
}

// lowerQuoted recursively turns a quoted form into plain data: symbols
// become their name as a string, lists become arrays, literals pass
// through unevaluated.
func lowerQuoted(n ast.Node) ir.Node {
	switch v := n.(type) {
	case *ast.Literal:
		return lowerLiteral(v)
	case *ast.Symbol:
		return ir.StrLit{Value: v.Name}
	case *ast.List:
		if len(v.Elements) == 0 {
			return ir.ArrayExpr{}
		}
		elems := make([]ir.Node, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = lowerQuoted(e)
		}
		return ir.ArrayExpr{Elements: elems}
	default:
		return ir.NullLit{}
	}
}
