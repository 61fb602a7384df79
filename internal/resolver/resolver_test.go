package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func newEnv(t *testing.T) *menv.Env {
	t.Helper()
	root := menv.New()
	menv.InstallPrimitives(root)
	require.NoError(t, expander.LoadCore(root))
	return root
}

func parse(t *testing.T, src string) []ast.Node {
	t.Helper()
	nodes, err := reader.Read(logger.Source{Path: "<test>", Contents: src})
	require.NoError(t, err)
	nodes, err = normalizer.Normalize(nodes)
	require.NoError(t, err)
	return nodes
}

func TestResolvesRelativeHQLImportAndQualifiedMacro(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/util.hql": `
			(js-export answer)
			(def answer 42)
			(defmacro dbl (x) (quasiquote (* 2 (unquote x))))
		`,
	})
	reg := registry.New()
	r := New(mock, reg)
	env := newEnv(t)

	nodes := parse(t, `(import u "./util.hql")`)
	out, err := r.ResolveImports(nodes, "/proj/main.hql", "/proj", env)
	require.NoError(t, err)
	assert.Equal(t, "nil", ast.Print(out[0]), "plain import forms disappear")

	m, ok := env.LookupModule("u")
	require.True(t, ok)
	assert.True(t, m.Has("answer"))
	assert.False(t, m.Has("nonexistent"))

	x := expander.New(env)
	expanded, err := x.ExpandAll(parse(t, `(u.dbl 10)`))
	require.NoError(t, err)
	assert.Equal(t, "(* 2 10)", ast.Print(expanded[0]))
}

func TestJsImportFormSurvivesForLowering(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/util.hql": `(js-export answer) (def answer 42)`,
	})
	reg := registry.New()
	r := New(mock, reg)
	env := newEnv(t)

	nodes := parse(t, `(js-import u "./util.hql")`)
	out, err := r.ResolveImports(nodes, "/proj/main.hql", "/proj", env)
	require.NoError(t, err)
	assert.Equal(t, `(js-import u "./util.hql")`, ast.Print(out[0]))
}

func TestRemoteSpecifierSkipsFilesystem(t *testing.T) {
	mock := fs.NewMock(map[string]string{}) // empty: a disk read would fail
	reg := registry.New()
	r := New(mock, reg)
	env := newEnv(t)

	nodes := parse(t, `(js-import _ "https://cdn.skypack.dev/lodash")`)
	_, err := r.ResolveImports(nodes, "/proj/main.hql", "/proj", env)
	require.NoError(t, err)

	m, ok := env.LookupModule("_")
	require.True(t, ok)
	assert.True(t, m.Opaque)
	assert.True(t, m.Has("anything")) // opaque: any member assumed present
}

func TestOpaqueJSFileImport(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/helpers.js": "export function helper() {}",
	})
	reg := registry.New()
	r := New(mock, reg)
	env := newEnv(t)

	nodes := parse(t, `(import h "./helpers.js")`)
	_, err := r.ResolveImports(nodes, "/proj/main.hql", "/proj", env)
	require.NoError(t, err)

	m, ok := env.LookupModule("h")
	require.True(t, ok)
	assert.True(t, m.Opaque)
}

func TestCyclicImportFails(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/a.hql": `(import b "./b.hql")`,
		"/proj/b.hql": `(import a "./a.hql")`,
	})
	reg := registry.New()
	r := New(mock, reg)
	env := newEnv(t)

	nodes := parse(t, `(import a "./a.hql")`)
	_, err := r.ResolveImports(nodes, "/proj/main.hql", "/proj", env)
	require.Error(t, err)
	var impErr *diag.ImportError
	require.ErrorAs(t, err, &impErr)
	assert.Equal(t, diag.CircularAtCompile, impErr.Kind)
}

func TestUnsupportedBareSpecifierFails(t *testing.T) {
	mock := fs.NewMock(map[string]string{})
	reg := registry.New()
	r := New(mock, reg)
	env := newEnv(t)

	nodes := parse(t, `(import l "lodash")`)
	_, err := r.ResolveImports(nodes, "/proj/main.hql", "/proj", env)
	require.Error(t, err)
	var impErr *diag.ImportError
	require.ErrorAs(t, err, &impErr)
	assert.Equal(t, diag.UnsupportedScheme, impErr.Kind)
}

func TestUnusedImportWarns(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/util.hql": `(js-export answer) (def answer 42)`,
	})
	reg := registry.New()
	r := New(mock, reg)
	r.Log = logger.NewLog()
	env := newEnv(t)

	nodes := parse(t, `(import u "./util.hql")`)
	_, err := r.ResolveImports(nodes, "/proj/main.hql", "/proj", env)
	require.NoError(t, err)

	require.Len(t, r.Log.Msgs(), 1)
	msg := r.Log.Msgs()[0]
	assert.Equal(t, logger.Warning, msg.Kind)
	assert.Contains(t, msg.Text, "unused import: u")
}

func TestUsedImportDoesNotWarn(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/util.hql": `(js-export answer) (def answer 42)`,
	})
	reg := registry.New()
	r := New(mock, reg)
	r.Log = logger.NewLog()
	env := newEnv(t)

	nodes := parse(t, `(import u "./util.hql") (def x (js-call u "answer"))`)
	_, err := r.ResolveImports(nodes, "/proj/main.hql", "/proj", env)
	require.NoError(t, err)

	assert.Empty(t, r.Log.Msgs())
}

func TestSharedImportResolvedOnce(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/util.hql": `(js-export answer) (def answer 42) (defmacro dbl (x) (quasiquote (* 2 (unquote x))))`,
	})
	reg := registry.New()
	r := New(mock, reg)
	env := newEnv(t)

	nodes := parse(t, `(import u1 "./util.hql") (import u2 "./util.hql")`)
	_, err := r.ResolveImports(nodes, "/proj/main.hql", "/proj", env)
	require.NoError(t, err)

	assert.Len(t, reg.AllModules(), 1, "the same canonical path is only processed once")

	x := expander.New(env)
	expanded, err := x.ExpandAll(parse(t, `(u2.dbl 5)`))
	require.NoError(t, err)
	assert.Equal(t, "(* 2 5)", ast.Print(expanded[0]))
}
