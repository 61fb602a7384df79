// Package hql is the public entry point to the compiler: one function per
// supported workflow, each wiring the full C1-C8 pipeline together behind
// a small options struct. Grounded on esbuild's pkg/api/api_impl.go, which
// does the same thing for Build/Transform — construct the options,
// validate them, then thread one source through every internal phase and
// collect diagnostics into a single result value instead of a bare error.
package hql

import (
	"github.com/hqllang/hql/internal/ast"
	"github.com/hqllang/hql/internal/bundler"
	"github.com/hqllang/hql/internal/diag"
	"github.com/hqllang/hql/internal/emitter"
	"github.com/hqllang/hql/internal/expander"
	"github.com/hqllang/hql/internal/fs"
	"github.com/hqllang/hql/internal/logger"
	"github.com/hqllang/hql/internal/lower"
	"github.com/hqllang/hql/internal/menv"
	"github.com/hqllang/hql/internal/normalizer"
	"github.com/hqllang/hql/internal/reader"
	"github.com/hqllang/hql/internal/registry"
	"github.com/hqllang/hql/internal/resolver"
)

// Options configures a single Compile call.
type Options struct {
	// Path is used only for diagnostics and relative-import resolution; it
	// need not exist on disk when FS is a fixture.
	Path string

	// Bundle, when true, inlines every transitively-imported local .hql
	// module into the output as its own IIFE (C8). When false, local
	// imports are left unbound — single-artifact output does not attempt
	// cross-file linking without bundling.
	Bundle bool

	// FS supplies source text for imports; defaults to the real file
	// system when nil.
	FS fs.FS
}

// Result is what a successful Compile produces.
type Result struct {
	JS string

	// Warnings holds every non-fatal diagnostic raised while compiling —
	// unused imports and shadowed macros. Compilation proceeds past
	// these; only Log.HasErrors()-worthy conditions return an error.
	Warnings []logger.Msg
}

// Compile reads, expands, resolves, lowers, and emits source, honoring
// Options.Bundle, and returns the finished JS text or the first diagnostic
// error encountered. With Options.Bundle set, the root file is read again
// from Options.FS at Options.Path and source itself is not used. This is
// the whole-file entry point; REPL-style incremental compilation goes
// through CompileFragment instead.
func Compile(source string, opts Options) (Result, error) {
	filesystem := opts.FS
	if filesystem == nil {
		filesystem = fs.Real{}
	}
	path := opts.Path
	if path == "" {
		path = "<input>"
	}

	log := logger.NewLog()

	if opts.Bundle {
		b := bundler.New(filesystem)
		b.Log = log
		js, err := b.Bundle(path)
		if err != nil {
			return Result{Warnings: log.Msgs()}, err
		}
		return Result{JS: js, Warnings: log.Msgs()}, nil
	}

	js, err := compileOne(source, path, filesystem, log)
	if err != nil {
		return Result{Warnings: log.Msgs()}, err
	}
	return Result{JS: js, Warnings: log.Msgs()}, nil
}

// compileOne runs the non-bundling pipeline over one file's text: read,
// normalize, resolve imports against env, expand macros, lower, emit. Local
// `.hql` imports are still processed for their macro-environment side
// effects (a qualified macro call like `m.sq` must still expand), but
// produce no value binding in the output — only Compile with Bundle set
// inlines a module's values.
func compileOne(source, path string, filesystem fs.FS, log *logger.Log) (string, error) {
	nodes, err := reader.Read(logger.Source{Path: path, Contents: source})
	if err != nil {
		return "", err
	}
	nodes, err = normalizer.Normalize(nodes)
	if err != nil {
		return "", err
	}

	env := menv.New()
	menv.InstallPrimitives(env)
	if err := expander.LoadCore(env); err != nil {
		return "", err
	}

	reg := registry.New()
	res := resolver.New(filesystem, reg)
	res.Log = log
	nodes, err = res.ResolveImports(nodes, path, filesystem.Dir(path), env)
	if err != nil {
		return "", err
	}

	x := expander.New(env)
	x.Log = log
	x.Source = logger.Source{Path: path, Contents: source}
	expanded, err := x.ExpandAll(nodes)
	if err != nil {
		return "", err
	}
	if msg, ok := expander.HasSentinel(expanded); ok {
		return "", &diag.MacroError{Kind: diag.ExpansionFailed, Name: path, Detail: msg}
	}

	prog, err := lower.Program(expanded)
	if err != nil {
		return "", err
	}
	js, err := emitter.Program(prog)
	if err != nil {
		return "", err
	}
	return emitter.Prelude + js, nil
}

// Env is a REPL's persistent macro environment across CompileFragment
// calls, letting a `defmacro` in one fragment expand in the next one
// without re-parsing everything that came before it.
type Env struct {
	menv *menv.Env
}

// NewEnv builds a fresh REPL environment with the core macro library
// already loaded, the same starting state Compile gives a whole file.
func NewEnv() (*Env, error) {
	e := menv.New()
	menv.InstallPrimitives(e)
	if err := expander.LoadCore(e); err != nil {
		return nil, err
	}
	return &Env{menv: e}, nil
}

// FragmentResult is CompileFragment's output: the JS for the fragment just
// compiled, plus the names newly bound at top level by that fragment (a
// REPL surfaces these so it can report `x` and `f` are now defined).
type FragmentResult struct {
	JS          string
	NewBindings []string
	Warnings    []logger.Msg
}

// CompileFragment compiles one REPL input against env, mutating env with
// the macros its `defmacro` forms define so a later fragment can expand
// them. A `def` is only compiled to JS and reported in NewBindings; it
// adds nothing to env. This is the REPL collaborator's only entry point
// besides Reset.
func (e *Env) CompileFragment(source string) (FragmentResult, error) {
	nodes, err := reader.Read(logger.Source{Path: "<repl>", Contents: source})
	if err != nil {
		return FragmentResult{}, err
	}
	nodes, err = normalizer.Normalize(nodes)
	if err != nil {
		return FragmentResult{}, err
	}

	log := logger.NewLog()
	x := expander.New(e.menv)
	x.Log = log
	x.Source = logger.Source{Path: "<repl>", Contents: source}
	expanded, err := x.ExpandAll(nodes)
	if err != nil {
		return FragmentResult{}, err
	}
	if msg, ok := expander.HasSentinel(expanded); ok {
		return FragmentResult{}, &diag.MacroError{Kind: diag.ExpansionFailed, Name: "<repl>", Detail: msg}
	}

	prog, err := lower.Program(expanded)
	if err != nil {
		return FragmentResult{}, err
	}
	js, err := emitter.Program(prog)
	if err != nil {
		return FragmentResult{}, err
	}

	return FragmentResult{JS: js, NewBindings: topLevelDefNames(nodes, expanded), Warnings: log.Msgs()}, nil
}

// Reset discards env's accumulated bindings and macros, reinstalling only
// the primitives and core macro library.
func (e *Env) Reset() error {
	fresh, err := NewEnv()
	if err != nil {
		return err
	}
	*e = *fresh
	return nil
}

// topLevelDefNames scans a fragment's expanded top-level forms for the
// names a REPL would want to report as newly bound: `(def name ...)`,
// `(defmacro name ...)`, and the name half of a `js-export` of either.
// Expansion replaces a top-level defmacro with nil, so at those positions
// the form as written (written lines up one-to-one with expanded) is read.
func topLevelDefNames(written, expanded []ast.Node) []string {
	var names []string
	for i, n := range expanded {
		if i < len(written) && ast.IsHeadSymbol(written[i], "defmacro") {
			n = written[i]
		}
		l, ok := n.(*ast.List)
		if !ok || len(l.Elements) < 2 {
			continue
		}
		if ast.IsHeadSymbol(l, "js-export") {
			if inner, ok := l.Elements[1].(*ast.List); ok {
				l = inner
			} else if sym, ok := l.Elements[1].(*ast.Symbol); ok {
				names = append(names, sym.Name)
				continue
			}
		}
		if (ast.IsHeadSymbol(l, "def") || ast.IsHeadSymbol(l, "defmacro")) && len(l.Elements) >= 2 {
			if sym, ok := l.Elements[1].(*ast.Symbol); ok {
				names = append(names, sym.Name)
			}
		}
	}
	return names
}
