// Package registry tracks which modules have been resolved and processed
// during a single compilation, the way esbuild's internal/cache avoids
// redundant parsing across a build: a write-once table keyed by canonical
// path so a module reachable through two import sites is only read and
// lowered once.
package registry

import (
	"sync"

	"github.com/hqllang/hql/internal/ast"
	"github.com/hqllang/hql/internal/ir"
	"github.com/hqllang/hql/internal/menv"
)

// ImportEdge is one `(import localName "path")` site: the bundler needs
// both halves to emit `const localName = <module binding>;` ahead of the
// importer's own code, standing in for the import form the resolver erased.
type ImportEdge struct {
	LocalName string
	Path      string // canonical path of an HQL module this one imports
}

// Module is everything downstream phases need about one processed local
// module. The resolver fills in Name/Path/Forms/Imports/Exports/Env; IR
// and VarNames stay nil until the bundler drives lowering over Forms
// (lowering/emit run lazily, one module at a time, as the bundler walks
// the dependency DAG — not during resolution).
type Module struct {
	Name     string
	Path     string
	Opaque   bool         // a .js/.ts/.mjs/.cjs file: no Forms, never lowered or IIFE-wrapped
	Forms    []ast.Node   // fully macro-expanded top-level forms, ready to lower
	Imports  []ImportEdge // local HQL modules this one imports, in source order
	Exports  []string
	Env      *menv.Env // the module's own scope post-expansion, re-consulted on a cache hit to re-register its macros under a second importer's chosen local name
	IR       *ir.Program
	VarNames map[string]string // export name -> local binding name
}

// Registry is the module registry described in the data model: name ->
// resolved path, plus the processed-modules table keyed by canonical
// path. It is write-once per path: re-resolving an already-processed
// path returns the cached Module instead of reprocessing it, which is
// both a performance cache and the cycle guard the resolver relies on.
type Registry struct {
	mu        sync.Mutex
	pathByName map[string]string
	byPath     map[string]*Module
	inFlight   map[string]bool
}

func New() *Registry {
	return &Registry{
		pathByName: make(map[string]string),
		byPath:     make(map[string]*Module),
		inFlight:   make(map[string]bool),
	}
}

// Lookup returns the already-processed module at path, if any.
func (r *Registry) Lookup(path string) (*Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byPath[path]
	return m, ok
}

// BeginProcessing marks path as in-flight, returning true if it was
// already in-flight (a cycle). It does not consult the completed-modules
// table, so a path that was already processed reports false; the resolver
// checks Lookup before calling it.
func (r *Registry) BeginProcessing(path string) (alreadyInFlight bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight[path] {
		return true
	}
	r.inFlight[path] = true
	return false
}

// Store records the finished module for path under name, completing the
// in-flight marker.
func (r *Registry) Store(name string, m *Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPath[m.Path] = m
	r.pathByName[name] = m.Path
	delete(r.inFlight, m.Path)
}

// ResolvedPath returns the canonical path a module name was last bound
// to, used when a qualified macro name like `m.sq` needs to find its
// owning module object.
func (r *Registry) ResolvedPath(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pathByName[name]
	return p, ok
}

// AllModules returns every processed module, in no particular order; the
// bundler imposes its own post-order traversal over the dependency DAG.
func (r *Registry) AllModules() []*Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Module, 0, len(r.byPath))
	for _, m := range r.byPath {
		out = append(out, m)
	}
	return out
}
