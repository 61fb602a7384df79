package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqllang/hql/internal/diag"
	"github.com/hqllang/hql/internal/fs"
	"github.com/hqllang/hql/internal/logger"
)

func TestBundleCrossModuleMacro(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/main.hql": `
			(import m "./m.hql")
			(def result (m.sq 5))
		`,
		"/proj/m.hql": `
			(defmacro sq (x) (quasiquote (* (unquote x) (unquote x))))
		`,
	})
	out, err := New(mock).Bundle("/proj/main.hql")
	require.NoError(t, err)
	assert.Contains(t, out, "const result = (5 * 5);")
}

func TestBundleInlinesExportedValue(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/main.hql": `
			(import u "./util.hql")
			(def answer (js-call u "answer"))
		`,
		"/proj/util.hql": `
			(js-export (def answer 42))
		`,
	})
	out, err := New(mock).Bundle("/proj/main.hql")
	require.NoError(t, err)
	assert.Contains(t, out, "const answer = 42;")
	assert.Contains(t, out, "exports.answer = answer;")
	assert.Contains(t, out, "const u = _mod0;")
	assert.Contains(t, out, "u.answer()")
}

func TestBundlePrependsPreludeOnce(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/main.hql": `(def x (a 1))`,
	})
	out, err := New(mock).Bundle("/proj/main.hql")
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(out, "function get(collection, key)"))
}

func TestBundleRemoteSpecifierPassesThrough(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/main.hql": `(import chalk "https://cdn.skypack.dev/chalk")`,
	})
	out, err := New(mock).Bundle("/proj/main.hql")
	require.NoError(t, err)
	assert.Contains(t, out, `import chalk from "https://cdn.skypack.dev/chalk";`)
}

func TestBundleSharedImportCollapsesToOneIIFE(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/main.hql": `
			(import u1 "./util.hql")
			(import u2 "./util.hql")
		`,
		"/proj/util.hql": `(js-export (def answer 42))`,
	})
	out, err := New(mock).Bundle("/proj/main.hql")
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(out, "(function() {"))
	assert.Contains(t, out, "const u1 = _mod0;")
	assert.Contains(t, out, "const u2 = _mod0;")
}

func TestBundleCyclicImportFails(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/a.hql": `(import b "./b.hql")`,
		"/proj/b.hql": `(import a "./a.hql")`,
	})
	_, err := New(mock).Bundle("/proj/a.hql")
	require.Error(t, err)
	// The resolver's processed-path guard raises this before the bundler's
	// own dependency walk ever runs; BundleError{CircularImport} exists for
	// the case that guard doesn't cover (see DESIGN.md).
	var impErr *diag.ImportError
	require.ErrorAs(t, err, &impErr)
	assert.Equal(t, diag.CircularAtCompile, impErr.Kind)
}

func TestBundleWarnsAboutUnusedImport(t *testing.T) {
	mock := fs.NewMock(map[string]string{
		"/proj/main.hql": `
			(import u "./util.hql")
			(def x 1)
		`,
		"/proj/util.hql": `(js-export answer) (def answer 42)`,
	})
	b := New(mock)
	b.Log = logger.NewLog()
	_, err := b.Bundle("/proj/main.hql")
	require.NoError(t, err)

	require.Len(t, b.Log.Msgs(), 1)
	assert.Contains(t, b.Log.Msgs()[0].Text, "unused import: u")
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}
