// Package ir defines the typed intermediate representation lowering
// produces and the emitter consumes: a sum type over the small slice of
// JavaScript's expression/statement grammar HQL actually needs. It plays
// the role esbuild's internal/js_ast plays for its own pipeline, scaled
// down to exactly the node kinds the lowering step can produce.
package ir

// Node is any IR node. It carries no position information: diagnostics
// for lowering/emit failures are reported against the AST form that
// produced them, before the IR exists.
type Node interface{ isNode() }

type NullLit struct{}

type BoolLit struct{ Value bool }

type NumLit struct{ Value float64 }

type StrLit struct{ Value string }

// Identifier is a JS identifier. IsJS marks an identifier sourced from a
// `js/`-prefixed symbol: the emitter writes its name verbatim (modulo
// hyphen-to-underscore), skipping the usual sanitization/escaping rules
// applied to HQL-authored names.
type Identifier struct {
	Name string
	IsJS bool
}

type ArrayExpr struct{ Elements []Node }

type Property struct {
	Key   string
	Value Node
}

type ObjectExpr struct{ Properties []Property }

type NewExpr struct {
	Callee Node
	Args   []Node
}

type MemberExpr struct {
	Object   Node
	Property string
	Computed bool
}

type CallExpr struct {
	Callee Node
	Args   []Node
}

// CallMemberExpr is `object.property(args…)` emitted directly, without
// constructing an intermediate MemberExpr — used so method-call lowering
// doesn't need to allocate a throwaway MemberExpr just to wrap it in a
// CallExpr.
type CallMemberExpr struct {
	Object   Node
	Property string
	Args     []Node
}

// InteropIIFE preserves a bound method's `this` when it's referenced
// without being called: `(function(){ const m=obj[prop]; return
// typeof m==='function'?m.bind(obj):m; })()`.
type InteropIIFE struct {
	Object   Node
	Property string
}

type UnaryExpr struct {
	Op  string
	Arg Node
}

type BinaryExpr struct {
	Op    string
	Left  Node
	Right Node
}

type ConditionalExpr struct {
	Test Node
	Cons Node
	Alt  Node
}

type Declarator struct {
	ID   Identifier
	Init Node
}

type VariableDeclaration struct {
	Kind         string // "const" or "let"
	Declarations []Declarator
}

type FunctionExpression struct {
	ID     *Identifier
	Params []Identifier
	Body   Block
}

type Block struct{ Body []Node }

type ReturnStatement struct{ Argument Node }

// JsImportReference is a remote or opaque specifier import: `import name
// from "source";`.
type JsImportReference struct {
	Name   string
	Source string
}

type ExportSpecifier struct {
	Local    string
	Exported string
}

type ExportNamedDeclaration struct {
	Specifiers []ExportSpecifier
}

// ExportVariableDeclaration wraps a VariableDeclaration and additionally
// exports its bound name under ExportName.
type ExportVariableDeclaration struct {
	Declaration VariableDeclaration
	ExportName  string
}

type Program struct{ Body []Node }

func (NullLit) isNode()                   {}
func (BoolLit) isNode()                   {}
func (NumLit) isNode()                    {}
func (StrLit) isNode()                    {}
func (Identifier) isNode()                {}
func (ArrayExpr) isNode()                 {}
func (ObjectExpr) isNode()                {}
func (NewExpr) isNode()                   {}
func (MemberExpr) isNode()                {}
func (CallExpr) isNode()                  {}
func (CallMemberExpr) isNode()            {}
func (InteropIIFE) isNode()               {}
func (UnaryExpr) isNode()                 {}
func (BinaryExpr) isNode()                {}
func (ConditionalExpr) isNode()           {}
func (VariableDeclaration) isNode()       {}
func (FunctionExpression) isNode()        {}
func (Block) isNode()                     {}
func (ReturnStatement) isNode()           {}
func (JsImportReference) isNode()         {}
func (ExportNamedDeclaration) isNode()    {}
func (ExportVariableDeclaration) isNode() {}
func (Program) isNode()                   {}
