package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqllang/hql/internal/ast"
	"github.com/hqllang/hql/internal/diag"
	"github.com/hqllang/hql/internal/logger"
)

func src(contents string) logger.Source {
	return logger.Source{Path: "<test>", Contents: contents}
}

func mustRead(t *testing.T, contents string) []ast.Node {
	t.Helper()
	nodes, err := Read(src(contents))
	require.NoError(t, err)
	return nodes
}

func TestReadsLiteralsAndSymbols(t *testing.T) {
	nodes := mustRead(t, `1 2.5 "hi" true false nil foo bar-baz`)
	require.Len(t, nodes, 8)
	assert.Equal(t, "1", ast.Print(nodes[0]))
	assert.Equal(t, `"hi"`, ast.Print(nodes[2]))
	assert.Equal(t, "true", ast.Print(nodes[3]))
	assert.Equal(t, "nil", ast.Print(nodes[5]))
	sym, ok := nodes[7].(*ast.Symbol)
	require.True(t, ok)
	assert.Equal(t, "bar-baz", sym.Name)
}

func TestSquareAndCurlyBracketsRewrite(t *testing.T) {
	nodes := mustRead(t, `[1 2 3]`)
	require.Len(t, nodes, 1)
	assert.Equal(t, "(vector 1 2 3)", ast.Print(nodes[0]))

	nodes = mustRead(t, `{"a" 1}`)
	assert.Equal(t, `(hash-map "a" 1)`, ast.Print(nodes[0]))
}

func TestQuoteShorthands(t *testing.T) {
	cases := map[string]string{
		"'x":  "(quote x)",
		"`x":  "(quasiquote x)",
		",x":  "(unquote x)",
		",@x": "(unquote-splicing x)",
	}
	for in, want := range cases {
		nodes := mustRead(t, in)
		require.Len(t, nodes, 1)
		assert.Equal(t, want, ast.Print(nodes[0]))
	}
}

func TestStringEscapesAndInterpolation(t *testing.T) {
	nodes := mustRead(t, `"a\nb\t\"c\""`)
	lit := nodes[0].(*ast.Literal)
	assert.Equal(t, "a\nb\t\"c\"", lit.Str)

	nodes = mustRead(t, `"hello \(name)!"`)
	require.Len(t, nodes, 1)
	assert.Equal(t, `(str "hello " name "!")`, ast.Print(nodes[0]))
}

func TestStringInterpolationWithNoSurroundingText(t *testing.T) {
	nodes := mustRead(t, `"\(name)"`)
	require.Len(t, nodes, 1)
	assert.Equal(t, `(str name)`, ast.Print(nodes[0]))
}

func TestStringInterpolationOfNonStringLiteral(t *testing.T) {
	nodes := mustRead(t, `"\(42)"`)
	require.Len(t, nodes, 1)
	assert.Equal(t, `(str 42)`, ast.Print(nodes[0]))
}

func TestUnbalancedDelimFails(t *testing.T) {
	_, err := Read(src(`(foo bar`))
	require.Error(t, err)
	var re *diag.ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, diag.UnbalancedDelim, re.Kind)
}

func TestEmptyListIsLegal(t *testing.T) {
	nodes := mustRead(t, `()`)
	l := nodes[0].(*ast.List)
	assert.Empty(t, l.Elements)
}

func TestReaderRoundTrip(t *testing.T) {
	srcText := "(def x (+ 1 2 (foo \"bar\" 'baz `qux)))"
	nodes := mustRead(t, srcText)
	printed := ast.Print(nodes[0])
	reparsed := mustRead(t, printed)
	require.Len(t, reparsed, 1)
	assert.Equal(t, printed, ast.Print(reparsed[0]))
}
