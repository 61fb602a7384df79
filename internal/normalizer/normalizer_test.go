package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqllang/hql/internal/ast"
	"github.com/hqllang/hql/internal/logger"
	"github.com/hqllang/hql/internal/reader"
)

func parse(t *testing.T, src string) []ast.Node {
	t.Helper()
	nodes, err := reader.Read(logger.Source{Path: "<test>", Contents: src})
	require.NoError(t, err)
	return nodes
}

func TestDotChainSingleMethod(t *testing.T) {
	nodes := parse(t, `(arr .filter pred)`)
	out, err := Normalize(nodes)
	require.NoError(t, err)
	assert.Equal(t, `(method-call arr "filter" pred)`, ast.Print(out[0]))
}

func TestDotChainMultiMethod(t *testing.T) {
	nodes := parse(t, `(arr .filter pred .length)`)
	out, err := Normalize(nodes)
	require.NoError(t, err)
	assert.Equal(t, `(method-call (method-call arr "filter" pred) "length")`, ast.Print(out[0]))
}

func TestFnSugarPreservesRest(t *testing.T) {
	nodes := parse(t, `(fn f (a &rest b) a)`)
	out, err := Normalize(nodes)
	require.NoError(t, err)
	assert.Equal(t, `(def f (fn (a &rest b) a))`, ast.Print(out[0]))
}

func TestAnonymousFnPassesThroughUnwrapped(t *testing.T) {
	nodes := parse(t, `(fn (a b) (+ a b))`)
	out, err := Normalize(nodes)
	require.NoError(t, err)
	assert.Equal(t, `(fn (a b) (+ a b))`, ast.Print(out[0]))
}

func TestDotChainTargetWithLeadingArgs(t *testing.T) {
	nodes := parse(t, `(arr.filter pred .length)`)
	out, err := Normalize(nodes)
	require.NoError(t, err)
	assert.Equal(t, `(method-call (arr.filter pred) "length")`, ast.Print(out[0]))
}

func TestFxErasesTypesAndLowersDefaults(t *testing.T) {
	nodes := parse(t, `(fx add (a: Int b: Int = 1) (-> Int) (+ a b))`)
	out, err := Normalize(nodes)
	require.NoError(t, err)
	printed := ast.Print(out[0])
	assert.Contains(t, printed, "(def add (fn (a __b)")
	assert.Contains(t, printed, `(def b (if (= __b js/undefined) 1 __b))`)
	assert.Contains(t, printed, "(+ a b)")
}

func TestFxWithoutDefaultsKeepsParamNames(t *testing.T) {
	nodes := parse(t, `(fx inc (n: Int) (-> Int) (+ n 1))`)
	out, err := Normalize(nodes)
	require.NoError(t, err)
	assert.Equal(t, `(def inc (fn (n) (+ n 1)))`, ast.Print(out[0]))
}

func TestFxWithoutReturnTypeFails(t *testing.T) {
	nodes := parse(t, `(fx add (a: Int) (+ a 1))`)
	_, err := Normalize(nodes)
	require.Error(t, err)
}
