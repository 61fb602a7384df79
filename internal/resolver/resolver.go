// Package resolver implements import resolution (C5): it walks a file's
// AST before macro expansion collecting `(import name "path")` and
// `(js-import name "path")` forms, loads and recursively resolves each
// local HQL dependency, and mutates the macro environment with module
// objects and qualified macro names. Grounded on the "resolve, then
// parse/bind, with a processed-paths cycle guard" shape of esbuild's own
// resolver/bundler split (internal/resolver, internal/bundler), scaled
// down to HQL's much smaller import surface.
package resolver

import (
	"fmt"
	"strings"

	"github.com/hqllang/hql/internal/ast"
	"github.com/hqllang/hql/internal/diag"
	"github.com/hqllang/hql/internal/expander"
	"github.com/hqllang/hql/internal/fs"
	"github.com/hqllang/hql/internal/logger"
	"github.com/hqllang/hql/internal/menv"
	"github.com/hqllang/hql/internal/normalizer"
	"github.com/hqllang/hql/internal/reader"
	"github.com/hqllang/hql/internal/registry"
)

var remoteSchemes = []string{"http://", "https://", "jsr:", "npm:", "data:"}

func isRemoteSpecifier(path string) bool {
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(path, scheme) {
			return true
		}
	}
	return false
}

// Resolver walks import forms and populates a registry.Registry of local
// modules plus the macro environments of everything that imports them.
type Resolver struct {
	FS       fs.FS
	Registry *registry.Registry

	// Log, if set, receives non-fatal warnings (unused imports) found
	// while resolving each file's import forms.
	Log *logger.Log
}

// importSite records where a name was bound by an import form, so it can
// be checked for use once the whole file has been walked.
type importSite struct {
	name string
	at   ast.Position
}

func New(filesystem fs.FS, reg *registry.Registry) *Resolver {
	return &Resolver{FS: filesystem, Registry: reg}
}

// ResolveImports finds every top-level-reachable import form in nodes and
// processes it against env, returning nodes with local-HQL `import` forms
// erased (their only effect is on env; the bundler later re-injects a
// binding for them around the IIFE it generates) and every other import
// form — `js-import`, or an `import` of a remote specifier or an opaque
// local `.js`/`.ts` file, none of which the bundler can inline as HQL IR —
// rewritten to a literal `js-import` so lowering emits a real ESM import
// statement in place.
func (r *Resolver) ResolveImports(nodes []ast.Node, sourcePath, sourceDir string, env *menv.Env) ([]ast.Node, error) {
	out, _, err := r.ResolveImportsTracked(nodes, sourcePath, sourceDir, env)
	return out, err
}

// ResolveImportsTracked is ResolveImports plus the ordered list of local
// HQL import edges this source file declared, for the bundler to use when
// deciding what IIFE-binding statements to inject and in what order.
func (r *Resolver) ResolveImportsTracked(nodes []ast.Node, sourcePath, sourceDir string, env *menv.Env) ([]ast.Node, []registry.ImportEdge, error) {
	var edges []registry.ImportEdge
	var sites []importSite
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		rn, err := r.resolveNode(n, sourcePath, sourceDir, env, &edges, &sites)
		if err != nil {
			return nil, nil, err
		}
		out[i] = rn
	}
	r.checkUnusedImports(sourcePath, out, sites)
	return out, edges, nil
}

// checkUnusedImports warns about every import site whose bound name never
// appears (as itself, or as the module-qualified root of a dotted symbol)
// anywhere else in the resolved forest.
func (r *Resolver) checkUnusedImports(sourcePath string, nodes []ast.Node, sites []importSite) {
	if r.Log == nil || len(sites) == 0 {
		return
	}
	used := collectSymbolRoots(nodes)
	for _, s := range sites {
		if used[s.name] {
			continue
		}
		r.Log.AddWarning(logger.Source{Path: sourcePath}, logger.Loc{Line: s.at.Line, Column: s.at.Column},
			diag.PhaseImport, fmt.Sprintf("unused import: %s", s.name))
	}
}

// collectSymbolRoots walks nodes for every *ast.Symbol, collecting the
// portion of its name before the first '.' — import/js-import forms
// themselves are skipped, since the name and path they carry are bindings,
// not uses.
func collectSymbolRoots(nodes []ast.Node) map[string]bool {
	used := map[string]bool{}
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch v := n.(type) {
		case *ast.Symbol:
			root := v.Name
			if i := strings.IndexByte(root, '.'); i >= 0 {
				root = root[:i]
			}
			used[root] = true
		case *ast.List:
			if head := v.HeadSymbol(); head != nil && (head.Name == "import" || head.Name == "js-import") {
				return
			}
			for _, e := range v.Elements {
				walk(e)
			}
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return used
}

func (r *Resolver) resolveNode(n ast.Node, sourcePath, sourceDir string, env *menv.Env, edges *[]registry.ImportEdge, sites *[]importSite) (ast.Node, error) {
	l, ok := n.(*ast.List)
	if !ok || len(l.Elements) == 0 {
		return n, nil
	}

	if head := l.HeadSymbol(); head != nil && (head.Name == "import" || head.Name == "js-import") {
		if imp, ok := parseImportForm(l); ok {
			*sites = append(*sites, importSite{name: imp.name, at: l.At})
			local, err := r.resolveOne(imp.name, imp.path, sourcePath, sourceDir, env)
			if err != nil {
				return nil, err
			}
			if head.Name == "import" && local {
				*edges = append(*edges, registry.ImportEdge{LocalName: imp.name, Path: mustCanonical(r, imp.path, sourceDir)})
				return ast.Null(l.At), nil
			}
			// Remote specifiers, and any opaque local .js/.ts/.mjs/.cjs
			// file, have no HQL IR for the bundler to inline: keep the
			// form (rewritten to js-import if it wasn't already) so
			// lowering emits a literal `import … from "…";`.
			return jsImportForm(l.At, imp.name, imp.path), nil
		}
	}

	elems := make([]ast.Node, len(l.Elements))
	for i, e := range l.Elements {
		re, err := r.resolveNode(e, sourcePath, sourceDir, env, edges, sites)
		if err != nil {
			return nil, err
		}
		elems[i] = re
	}
	return &ast.List{Elements: elems, At: l.At}, nil
}

func jsImportForm(at ast.Position, name, path string) *ast.List {
	return &ast.List{At: at, Elements: []ast.Node{
		ast.Sym("js-import", at),
		ast.Sym(name, at),
		ast.String(path, at),
	}}
}

// mustCanonical re-derives the canonical path already computed inside
// resolveOne, for recording the edge; resolveOne has already validated the
// path by this point so the error case here is unreachable in practice.
func mustCanonical(r *Resolver, rawPath, importerDir string) string {
	c, err := r.canonicalize(rawPath, importerDir)
	if err != nil {
		return rawPath
	}
	return c
}

type importForm struct {
	name string
	path string
}

func parseImportForm(l *ast.List) (importForm, bool) {
	if len(l.Elements) != 3 {
		return importForm{}, false
	}
	nameSym, ok := l.Elements[1].(*ast.Symbol)
	if !ok {
		return importForm{}, false
	}
	pathLit, ok := l.Elements[2].(*ast.Literal)
	if !ok || pathLit.Kind != ast.LitString {
		return importForm{}, false
	}
	return importForm{name: nameSym.Name, path: pathLit.Str}, true
}

// resolveOne processes one import site and reports whether it named a
// local `.hql` module (local == true) — the only case the bundler can
// inline as generated IR, and so the only case whose import form the
// caller should erase and record as a bundler edge instead of leaving in
// place as a literal `js-import`.
func (r *Resolver) resolveOne(name, rawPath, importerPath, importerDir string, env *menv.Env) (local bool, err error) {
	if isRemoteSpecifier(rawPath) {
		env.Define(name, &menv.Module{Name: name, Path: rawPath, Bindings: map[string]menv.Value{}, Opaque: true})
		return false, nil
	}

	canonical, err := r.canonicalize(rawPath, importerDir)
	if err != nil {
		return false, err
	}

	if existing, ok := r.Registry.Lookup(canonical); ok {
		env.Define(name, moduleValueFor(existing))
		if existing.Env != nil {
			for _, macroName := range existing.Env.OwnMacroNames() {
				if user, _, ok := existing.Env.GetMacro(macroName); ok {
					env.DefineMacro(menv.QualifiedMacroName(name, macroName), user)
				}
			}
		}
		return !existing.Opaque, nil
	}
	if alreadyInFlight := r.Registry.BeginProcessing(canonical); alreadyInFlight {
		return false, &diag.ImportError{Kind: diag.CircularAtCompile, Path: canonical, From: importerPath}
	}

	ext := r.FS.Ext(canonical)
	switch ext {
	case ".hql":
		return true, r.resolveHQL(name, canonical, env)
	case ".js", ".ts", ".mjs", ".cjs":
		env.Define(name, &menv.Module{Name: name, Path: canonical, Bindings: map[string]menv.Value{}, Opaque: true})
		r.Registry.Store(name, &registry.Module{Name: name, Path: canonical, Opaque: true, Exports: nil})
		return false, nil
	default:
		return false, &diag.ImportError{Kind: diag.NotFound, Path: canonical, From: importerPath}
	}
}

// canonicalize applies the relative/absolute resolution rules. Bare
// specifiers with no leading `./`, `../`, and no absolute prefix are not
// supported without a remote scheme, matching the external interfaces'
// I/O provider contract that only resolves against a known base.
func (r *Resolver) canonicalize(rawPath, importerDir string) (string, error) {
	if r.FS.IsAbs(rawPath) {
		return rawPath, nil
	}
	if strings.HasPrefix(rawPath, "./") || strings.HasPrefix(rawPath, "../") {
		return r.FS.Join(importerDir, rawPath), nil
	}
	return "", &diag.ImportError{Kind: diag.UnsupportedScheme, Path: rawPath, From: importerDir}
}

func (r *Resolver) resolveHQL(name, canonical string, env *menv.Env) error {
	text, err := r.FS.ReadText(canonical)
	if err != nil {
		return &diag.ImportError{Kind: diag.ReadFailed, Path: canonical, From: canonical, Err: err}
	}

	nodes, err := reader.Read(logger.Source{Path: canonical, Contents: text})
	if err != nil {
		return err
	}
	nodes, err = normalizer.Normalize(nodes)
	if err != nil {
		return err
	}

	moduleEnv := env.Child()
	nodes, imports, err := r.ResolveImportsTracked(nodes, canonical, r.FS.Dir(canonical), moduleEnv)
	if err != nil {
		return err
	}

	x := expander.New(moduleEnv)
	x.Log = r.Log
	x.Source = logger.Source{Path: canonical, Contents: text}
	expanded, err := x.ExpandAll(nodes)
	if err != nil {
		return err
	}
	if msg, ok := expander.HasSentinel(expanded); ok {
		return &diag.ImportError{Kind: diag.ReadFailed, Path: canonical, From: canonical, Err: macroFailure(msg)}
	}

	bindings := map[string]menv.Value{}
	var exportNames []string
	for _, f := range expanded {
		l, ok := f.(*ast.List)
		if !ok || !ast.IsHeadSymbol(l, "js-export") || len(l.Elements) != 2 {
			continue
		}
		var name string
		switch v := l.Elements[1].(type) {
		case *ast.Symbol:
			name = v.Name
		case *ast.List:
			if ast.IsHeadSymbol(v, "def") && len(v.Elements) == 3 {
				if nameSym, ok := v.Elements[1].(*ast.Symbol); ok {
					name = nameSym.Name
				}
			}
		}
		if name != "" {
			bindings[name] = ast.Null(l.At) // presence marker; real access is a runtime js-call
			exportNames = append(exportNames, name)
		}
	}

	for _, macroName := range moduleEnv.OwnMacroNames() {
		if user, _, ok := moduleEnv.GetMacro(macroName); ok {
			env.DefineMacro(menv.QualifiedMacroName(name, macroName), user)
		}
	}

	mod := &menv.Module{Name: name, Path: canonical, Bindings: bindings}
	env.Define(name, mod)

	r.Registry.Store(name, &registry.Module{
		Name:    name,
		Path:    canonical,
		Forms:   expanded,
		Imports: imports,
		Exports: exportNames,
		Env:     moduleEnv,
	})
	return nil
}

func moduleValueFor(m *registry.Module) *menv.Module {
	bindings := map[string]menv.Value{}
	for _, e := range m.Exports {
		bindings[e] = ast.Null(ast.Position{})
	}
	return &menv.Module{Name: m.Name, Path: m.Path, Bindings: bindings}
}

type macroFailureError struct{ msg string }

func macroFailure(msg string) error { return macroFailureError{msg} }

func (e macroFailureError) Error() string { return e.msg }
