package hql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqllang/hql/internal/fs"
)

func TestCompileArithmetic(t *testing.T) {
	out, err := Compile(`(def x (+ 1 2))`, Options{Path: "main.hql"})
	require.NoError(t, err)
	assert.Contains(t, out.JS, "const x = (1 + 2);")
}

func TestCompilePrependsPrelude(t *testing.T) {
	out, err := Compile(`(def x 1)`, Options{Path: "main.hql"})
	require.NoError(t, err)
	assert.Contains(t, out.JS, "function get(collection, key)")
}

func TestCompileSyntaxErrorPropagates(t *testing.T) {
	_, err := Compile(`(def x`, Options{Path: "main.hql"})
	require.Error(t, err)
}

func TestCompileWarnsAboutUnusedImport(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/util.hql": `(js-export answer) (def answer 42)`,
	})
	out, err := Compile(`(import u "./util.hql") (def x 1)`, Options{Path: "/proj/main.hql", FS: mock})
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0].Text, "unused import: u")
}

func TestCompileFragmentWarnsAboutShadowedMacro(t *testing.T) {
	env, err := NewEnv()
	require.NoError(t, err)

	_, err = env.CompileFragment(`(defmacro sq (x) (quasiquote (* (unquote x) (unquote x))))`)
	require.NoError(t, err)

	res, err := env.CompileFragment(`(defmacro sq (x) (quasiquote (* 2 (unquote x))))`)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Text, `"sq"`)
}

func TestCompileFragmentSeesPriorMacro(t *testing.T) {
	env, err := NewEnv()
	require.NoError(t, err)

	_, err = env.CompileFragment(`(defmacro double (x) (quasiquote (* 2 (unquote x))))`)
	require.NoError(t, err)

	res, err := env.CompileFragment(`(def y (double 21))`)
	require.NoError(t, err)
	assert.Contains(t, res.JS, "const y = (2 * 21);")
	assert.Equal(t, []string{"y"}, res.NewBindings)
}

func TestCompileFragmentReportsNewBindings(t *testing.T) {
	env, err := NewEnv()
	require.NoError(t, err)

	res, err := env.CompileFragment(`(def a 1)`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.NewBindings)
}

func TestEnvResetDropsBindings(t *testing.T) {
	env, err := NewEnv()
	require.NoError(t, err)

	_, err = env.CompileFragment(`(defmacro double (x) (quasiquote (* 2 (unquote x))))`)
	require.NoError(t, err)

	require.NoError(t, env.Reset())

	// double is no longer a macro post-reset, so `(double 5)` is just an
	// unresolved one-argument application (collection indexing), not the
	// `(2 * 5)` the macro would have expanded to.
	res, err := env.CompileFragment(`(def z (double 5))`)
	require.NoError(t, err)
	assert.NotContains(t, res.JS, "(2 * 5)")
	assert.Contains(t, res.JS, "get(double, 5)")
}
