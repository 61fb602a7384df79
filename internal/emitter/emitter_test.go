package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqllang/hql/internal/expander"
	"github.com/hqllang/hql/internal/logger"
	"github.com/hqllang/hql/internal/lower"
	"github.com/hqllang/hql/internal/menv"
	"github.com/hqllang/hql/internal/normalizer"
	"github.com/hqllang/hql/internal/reader"
)

func compileExpr(t *testing.T, src string) string {
	t.Helper()
	root := menv.New()
	menv.InstallPrimitives(root)
	require.NoError(t, expander.LoadCore(root))

	nodes, err := reader.Read(logger.Source{Path: "<test>", Contents: src})
	require.NoError(t, err)
	nodes, err = normalizer.Normalize(nodes)
	require.NoError(t, err)
	expanded, err := expander.New(root).ExpandAll(nodes)
	require.NoError(t, err)
	_, hasSentinel := expander.HasSentinel(expanded)
	require.False(t, hasSentinel)

	prog, err := lower.Program(expanded)
	require.NoError(t, err)
	out, err := Program(prog)
	require.NoError(t, err)
	return out
}

func TestArithmetic(t *testing.T) {
	out := compileExpr(t, `(def x (+ 1 2 3))`)
	assert.Contains(t, out, "const x = ((1 + 2) + 3);")
}

func TestQuoteListBecomesArray(t *testing.T) {
	out := compileExpr(t, `(def xs (quote (1 2 3)))`)
	assert.Contains(t, out, "const xs = [1, 2, 3];")
}

func TestMethodChainTailPropertyIsInteropIIFE(t *testing.T) {
	out := compileExpr(t, `(def n (arr.filter (fn (x) (> x 0)) .length))`)
	assert.Contains(t, out, "typeof m==='function'?m.bind(")
	assert.Contains(t, out, ".filter(function(x) {")
}

func TestJSExportEmitsDeclarationThenExportSpecifier(t *testing.T) {
	out := compileExpr(t, `(js-export (def answer 42))`)
	assert.Contains(t, out, "const answer = 42;")
	assert.Contains(t, out, "export { answer as answer };")
}

func TestHashMapBecomesObjectExpr(t *testing.T) {
	out := compileExpr(t, `(def m (hash-map "a" 1 "b" 2))`)
	assert.Contains(t, out, "const m = {a: 1, b: 2};")
}

func TestIfLowersToConditional(t *testing.T) {
	out := compileExpr(t, `(def x (if true 1 2))`)
	assert.Contains(t, out, "const x = (true ? 1 : 2);")
}

func TestRestParamEmittedVerbatim(t *testing.T) {
	out := compileExpr(t, `(def f (fn (a &rest more) a))`)
	assert.Contains(t, out, "function(a, ...more)")
}

func TestFxDefaultEmitsConditionalRebind(t *testing.T) {
	out := compileExpr(t, `(fx add (a: Int b: Int = 1) (-> Int) (+ a b))`)
	assert.Contains(t, out, "function(a, __b)")
	assert.Contains(t, out, "const b = ((__b === undefined) ? 1 : __b);")
	assert.Contains(t, out, "return (a + b);")
}

func TestSanitizationTotal(t *testing.T) {
	out := compileExpr(t, `(def my-var (+ 1 1))`)
	assert.Contains(t, out, "const my_var =")
}
