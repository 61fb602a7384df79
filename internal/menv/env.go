// Package menv implements the macro environment: a nested
// scope of bindings and macros with a parent chain, the way
// other_examples' thsfranca-vex macro.Registry and CWBudde-go-dws's
// Environment{vars, parent} model scope chaining, generalized here to
// also hold macro definitions and imported-module objects.
package menv

import (
	"fmt"

	"github.com/hqllang/hql/internal/ast"
)

// Value is anything a name can be bound to: an AST node (for primitives
// and user constants), a *Module (an imported module's bindings/macros
// surfaced as a nested object), or a *UserMacro/NativeFn when looked up
// through the macro table instead of bindings.
type Value interface{}

// Module is an imported module's value: a flat object of exported bindings,
// looked up by bare member name. Opaque modules (a `.js`/`.ts`/`.mjs`/`.cjs`
// import) have no statically known member set — the resolver cannot parse
// them, so any member access is assumed present and deferred to JS at run
// time via `js-get`/`js-call`.
type Module struct {
	Name     string
	Path     string
	Bindings map[string]Value
	Opaque   bool
}

// Has reports whether member is a known binding on m — always true for an
// opaque module, since its members can't be enumerated ahead of time.
func (m *Module) Has(member string) bool {
	if m.Opaque {
		return true
	}
	_, ok := m.Bindings[member]
	return ok
}

// NativeFn is a primitive implemented in Go, callable from macro bodies.
type NativeFn func(args []ast.Node, env *Env) (ast.Node, error)

// MacroFn expands a macro call's argument forms in the caller's
// environment.
type MacroFn func(args []ast.Node, callerEnv *Env) (ast.Node, error)

// UserMacro is a macro defined by `defmacro`, a closure over its defining
// environment.
type UserMacro struct {
	Params  []string
	Rest    string // "" if no &rest parameter
	Body    []ast.Node
	Env     *Env
}

// Env is one scope: bindings, a macro table, and an optional parent for
// lexical lookup. The root Env is built once per compilation; every macro
// expansion creates one short-lived child.
type Env struct {
	bindings map[string]Value
	macros   map[string]*macroEntry
	natives  map[string]NativeFn
	parent   *Env
}

type macroEntry struct {
	user   *UserMacro
	native MacroFn
}

// New creates a root environment with no parent.
func New() *Env {
	return &Env{
		bindings: map[string]Value{},
		macros:   map[string]*macroEntry{},
		natives:  map[string]NativeFn{},
	}
}

// Child creates a scope whose parent is env; used for the duration of a
// single macro expansion.
func (e *Env) Child() *Env {
	return &Env{
		bindings: map[string]Value{},
		macros:   map[string]*macroEntry{},
		natives:  map[string]NativeFn{},
		parent:   e,
	}
}

// Define binds name to value in this scope.
func (e *Env) Define(name string, value Value) {
	e.bindings[name] = value
}

// DefineNative installs a Go-implemented primitive callable from macros.
func (e *Env) DefineNative(name string, fn NativeFn) {
	e.natives[name] = fn
}

// DefineMacro registers a user-defined macro.
func (e *Env) DefineMacro(name string, m *UserMacro) {
	e.macros[name] = &macroEntry{user: m}
}

// DefineNativeMacro registers a Go-implemented macro (used for core forms
// that must run ahead of the expander proper, if any are ever added).
func (e *Env) DefineNativeMacro(name string, fn MacroFn) {
	e.macros[name] = &macroEntry{native: fn}
}

// Lookup walks the parent chain for a bound value.
func (e *Env) Lookup(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// LookupNative walks the parent chain for a native function.
func (e *Env) LookupNative(name string) (NativeFn, bool) {
	for env := e; env != nil; env = env.parent {
		if fn, ok := env.natives[name]; ok {
			return fn, true
		}
	}
	return nil, false
}

// HasMacro reports whether name is bound to a macro anywhere in the chain.
func (e *Env) HasMacro(name string) bool {
	_, ok := e.lookupMacroEntry(name)
	return ok
}

// GetMacro returns the macro entry bound to name, if any. Exactly one of
// the two return values (user, native) is non-nil when ok is true.
func (e *Env) GetMacro(name string) (*UserMacro, MacroFn, bool) {
	entry, ok := e.lookupMacroEntry(name)
	if !ok {
		return nil, nil, false
	}
	return entry.user, entry.native, true
}

func (e *Env) lookupMacroEntry(name string) (*macroEntry, bool) {
	for env := e; env != nil; env = env.parent {
		if m, ok := env.macros[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// OwnMacroNames returns the names of macros defined directly in this
// scope, not walking the parent chain. The resolver uses this on a
// freshly-created module scope right after expanding an imported file, to
// find exactly the macros that file itself defined so it can re-register
// each under a `module.name` qualified key in the importer's env.
func (e *Env) OwnMacroNames() []string {
	names := make([]string, 0, len(e.macros))
	for name := range e.macros {
		names = append(names, name)
	}
	return names
}

// LookupModule returns a bound *Module, if name is bound to one.
func (e *Env) LookupModule(name string) (*Module, bool) {
	v, ok := e.Lookup(name)
	if !ok {
		return nil, false
	}
	m, ok := v.(*Module)
	return m, ok
}

// QualifiedMacroName builds the flat "module.name" key macros are stored
// under for cross-module resolution.
func QualifiedMacroName(module, name string) string {
	return fmt.Sprintf("%s.%s", module, name)
}
