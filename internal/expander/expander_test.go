package expander

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqllang/hql/internal/ast"
	"github.com/hqllang/hql/internal/logger"
	"github.com/hqllang/hql/internal/menv"
	"github.com/hqllang/hql/internal/normalizer"
	"github.com/hqllang/hql/internal/reader"
)

func newRootEnv(t *testing.T) *menv.Env {
	t.Helper()
	root := menv.New()
	menv.InstallPrimitives(root)
	require.NoError(t, LoadCore(root))
	return root
}

func expand(t *testing.T, env *menv.Env, src string) []ast.Node {
	t.Helper()
	nodes, err := reader.Read(logger.Source{Path: "<test>", Contents: src})
	require.NoError(t, err)
	nodes, err = normalizer.Normalize(nodes)
	require.NoError(t, err)
	out, err := New(env).ExpandAll(nodes)
	require.NoError(t, err)
	return out
}

func TestShadowedMacroWarns(t *testing.T) {
	env := newRootEnv(t)
	nodes, err := reader.Read(logger.Source{Path: "<test>", Contents: `(defmacro sq (x) 1) (defmacro sq (x) 2)`})
	require.NoError(t, err)
	nodes, err = normalizer.Normalize(nodes)
	require.NoError(t, err)

	x := New(env)
	x.Log = logger.NewLog()
	x.Source = logger.Source{Path: "<test>"}
	_, err = x.ExpandAll(nodes)
	require.NoError(t, err)

	require.Len(t, x.Log.Msgs(), 1)
	msg := x.Log.Msgs()[0]
	assert.Equal(t, logger.Warning, msg.Kind)
	assert.Contains(t, msg.Text, `"sq"`)
}

func TestFirstMacroDefinitionDoesNotWarn(t *testing.T) {
	env := newRootEnv(t)
	nodes, err := reader.Read(logger.Source{Path: "<test>", Contents: `(defmacro sq (x) 1)`})
	require.NoError(t, err)
	nodes, err = normalizer.Normalize(nodes)
	require.NoError(t, err)

	x := New(env)
	x.Log = logger.NewLog()
	_, err = x.ExpandAll(nodes)
	require.NoError(t, err)
	assert.Empty(t, x.Log.Msgs())
}

func TestDefmacroDisappearsAndRegisters(t *testing.T) {
	env := newRootEnv(t)
	out := expand(t, env, `(defmacro sq (x) (quasiquote (* (unquote x) (unquote x)))) (sq 5)`)
	require.Len(t, out, 2)
	assert.Equal(t, "nil", ast.Print(out[0]))
	assert.Equal(t, "(* 5 5)", ast.Print(out[1]))
}

func TestQuoteIsNotExpanded(t *testing.T) {
	env := newRootEnv(t)
	out := expand(t, env, `(defmacro sq (x) 1) (quote (sq 5))`)
	assert.Equal(t, "(quote (sq 5))", ast.Print(out[1]))
}

func TestCoreWhenExpandsToIife(t *testing.T) {
	env := newRootEnv(t)
	out := expand(t, env, `(when true (def x 1))`)
	assert.Equal(t, "(if true ((fn () (def x 1))))", ast.Print(out[0]))
}

func TestCoreThreadFirst(t *testing.T) {
	env := newRootEnv(t)
	out := expand(t, env, `(-> 1 (+ 2) (+ 3))`)
	assert.Equal(t, "(+ (+ 1 2) 3)", ast.Print(out[0]))
}

func TestCoreThreadLast(t *testing.T) {
	env := newRootEnv(t)
	out := expand(t, env, `(->> 1 (+ 2) (+ 3))`)
	assert.Equal(t, "(+ 3 (+ 2 1))", ast.Print(out[0]))
}

func TestIdempotentExpansion(t *testing.T) {
	env := newRootEnv(t)
	out := expand(t, env, `(defmacro sq (x) (quasiquote (* (unquote x) (unquote x)))) (sq 5)`)
	once := ast.Print(out[1])
	twice, err := New(env).Expand(out[1], env, 0)
	require.NoError(t, err)
	assert.Equal(t, once, ast.Print(twice))
}

func TestQualifiedMacroCall(t *testing.T) {
	root := menv.New()
	menv.InstallPrimitives(root)
	require.NoError(t, LoadCore(root))

	modEnv := root.Child()
	modNodes := expand(t, modEnv, `(defmacro sq (x) (quasiquote (* (unquote x) (unquote x))))`)
	_ = modNodes
	if user, _, ok := modEnv.GetMacro("sq"); ok {
		root.DefineMacro(menv.QualifiedMacroName("m", "sq"), user)
	}
	root.Define("m", &menv.Module{Name: "m", Bindings: map[string]menv.Value{}})

	out := expand(t, root, `(m.sq 5)`)
	assert.Equal(t, "(* 5 5)", ast.Print(out[0]))
}

func TestNoDanglingSentinelsOnSuccess(t *testing.T) {
	env := newRootEnv(t)
	out := expand(t, env, `(def x (+ 1 2))`)
	_, hasSentinel := HasSentinel(out)
	assert.False(t, hasSentinel)
}

func TestMacroWrongArityFails(t *testing.T) {
	env := newRootEnv(t)
	out := expand(t, env, `(defmacro one (a) a) (one 1 2 3)`)
	msg, ok := HasSentinel(out)
	require.True(t, ok)
	assert.Contains(t, msg, "wrong number of arguments")
}
