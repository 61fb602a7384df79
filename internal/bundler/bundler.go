// Package bundler implements transitive bundling with per-module IIFEs
// (C8): given a root source file, produce one ESM text containing every
// transitively reachable local HQL module inlined, plus the root
// program's own statements last. Grounded on esbuild's own
// internal/bundler (reachability + per-file compile) and internal/linker
// (deterministic concatenation order), narrowed from esbuild's full
// code-splitting/tree-shaking linker down to a much simpler "one IIFE per
// module, post-order of the dependency DAG" algorithm — HQL has no
// chunking, no tree shaking, and no split points to plan around.
package bundler

import (
	"fmt"

	"github.com/hqllang/hql/internal/diag"
	"github.com/hqllang/hql/internal/emitter"
	"github.com/hqllang/hql/internal/expander"
	"github.com/hqllang/hql/internal/fs"
	"github.com/hqllang/hql/internal/helpers"
	"github.com/hqllang/hql/internal/logger"
	"github.com/hqllang/hql/internal/lower"
	"github.com/hqllang/hql/internal/menv"
	"github.com/hqllang/hql/internal/normalizer"
	"github.com/hqllang/hql/internal/reader"
	"github.com/hqllang/hql/internal/registry"
	"github.com/hqllang/hql/internal/resolver"
)

// Bundler drives the whole pipeline (C1-C7) over a root file and
// everything it transitively imports, then concatenates the result.
type Bundler struct {
	FS fs.FS

	// Log, if set, accumulates non-fatal warnings (unused imports,
	// shadowed macros) found while resolving and expanding every file
	// the bundle transitively reaches.
	Log *logger.Log
}

func New(filesystem fs.FS) *Bundler {
	return &Bundler{FS: filesystem}
}

// Bundle compiles rootPath and every local HQL module it transitively
// imports into a single ESM text.
func (b *Bundler) Bundle(rootPath string) (string, error) {
	text, err := b.FS.ReadText(rootPath)
	if err != nil {
		return "", &diag.ImportError{Kind: diag.ReadFailed, Path: rootPath, From: rootPath, Err: err}
	}

	nodes, err := reader.Read(logger.Source{Path: rootPath, Contents: text})
	if err != nil {
		return "", err
	}
	nodes, err = normalizer.Normalize(nodes)
	if err != nil {
		return "", err
	}

	root := menv.New()
	menv.InstallPrimitives(root)
	if err := expander.LoadCore(root); err != nil {
		return "", err
	}

	reg := registry.New()
	res := resolver.New(b.FS, reg)
	res.Log = b.Log
	dir := b.FS.Dir(rootPath)

	// Step 1: process root imports, recursively — by the time this
	// returns, reg holds every transitively reachable local HQL module,
	// each already macro-expanded (resolveHQL runs the full read/
	// normalize/resolve/expand cycle on every file it loads before
	// returning control here).
	nodes, rootEdges, err := res.ResolveImportsTracked(nodes, rootPath, dir, root)
	if err != nil {
		return "", err
	}

	x := expander.New(root)
	x.Log = b.Log
	x.Source = logger.Source{Path: rootPath, Contents: text}
	expanded, err := x.ExpandAll(nodes)
	if err != nil {
		return "", err
	}
	if msg, ok := expander.HasSentinel(expanded); ok {
		return "", &diag.MacroError{Kind: diag.ExpansionFailed, Name: rootPath, Detail: msg}
	}

	byPath := map[string]*registry.Module{}
	for _, m := range reg.AllModules() {
		byPath[m.Path] = m
	}

	// Step 4 (ordering dependency): post-order traversal of the import
	// DAG from the root's own edges, so every module is emitted only
	// after everything it depends on.
	order, err := postOrder(byPath, rootEdges)
	if err != nil {
		return "", err
	}

	varName := make(map[string]string, len(order))
	for i, path := range order {
		varName[path] = fmt.Sprintf("_mod%d", i)
	}

	var j helpers.Joiner
	// Step 5: prepend the runtime prelude once.
	j.AddString(emitter.Prelude)

	// Step 2+3: compile each reachable module and wrap it in an IIFE
	// assigning to `exports`, aliasing its own local imports to the
	// already-emitted IIFE result each one was assigned to above it in
	// post-order.
	for _, path := range order {
		m := byPath[path]
		if m == nil || m.Opaque {
			// Step 6 (collapse): an opaque local .js/.ts file has no
			// HQL IR — it was left in place as a literal `js-import`
			// wherever it was referenced, so it never needs its own
			// binding here.
			continue
		}
		prog, err := lower.Program(m.Forms)
		if err != nil {
			return "", err
		}
		m.IR = prog
		m.VarNames = lower.ExportedVarNames(m.Forms)
		body, specs, err := emitter.Module(prog)
		if err != nil {
			return "", err
		}

		j.AddString(fmt.Sprintf("const %s = (function() {\n", varName[path]))
		j.AddString("  const exports = {};\n")
		for _, e := range m.Imports {
			j.AddString(fmt.Sprintf("  const %s = %s;\n", e.LocalName, varName[e.Path]))
		}
		j.AddString(body)
		for _, spec := range specs {
			j.AddString(fmt.Sprintf("  exports.%s = %s;\n", spec.Exported, spec.Local))
		}
		j.AddString("  return exports;\n")
		j.AddString("})();\n")
	}

	// Step 6 (alias): the root's own chosen local names for its direct
	// imports, bound to the already-built module IIFE results. A module
	// imported under two different names at the root collapses to the
	// same _modN and gets two alias lines here, so every local name the
	// root chose still resolves.
	for _, e := range rootEdges {
		j.AddString(fmt.Sprintf("const %s = %s;\n", e.LocalName, varName[e.Path]))
	}

	// The root program's top-level statements come last.
	rootProg, err := lower.Program(expanded)
	if err != nil {
		return "", err
	}
	rootOut, err := emitter.Program(rootProg)
	if err != nil {
		return "", err
	}
	j.AddString(rootOut)

	return j.Done(), nil
}

// postOrder walks the dependency graph depth-first from root's edges,
// visiting each module's own imports before appending the module itself,
// so a dependency always lands earlier in the returned slice than its
// dependents. The resolver's processed-path cycle guard already rules
// out a true cycle reaching this point (see DESIGN.md); the visiting set
// here is kept as documented defense-in-depth rather than load-bearing.
func postOrder(byPath map[string]*registry.Module, rootEdges []registry.ImportEdge) ([]string, error) {
	var order []string
	visited := map[string]bool{}
	visiting := map[string]bool{}
	var chain []string

	var visit func(path string) error
	visit = func(path string) error {
		if visited[path] {
			return nil
		}
		if visiting[path] {
			return &diag.BundleError{Kind: diag.CircularImport, Chain: append(append([]string{}, chain...), path)}
		}
		visiting[path] = true
		chain = append(chain, path)
		if m := byPath[path]; m != nil {
			for _, e := range m.Imports {
				if err := visit(e.Path); err != nil {
					return err
				}
			}
		}
		chain = chain[:len(chain)-1]
		visiting[path] = false
		visited[path] = true
		order = append(order, path)
		return nil
	}

	for _, e := range rootEdges {
		if err := visit(e.Path); err != nil {
			return nil, err
		}
	}
	return order, nil
}
