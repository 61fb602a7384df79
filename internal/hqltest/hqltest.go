// Package hqltest provides small shared test helpers, adapted from
// esbuild's internal/test: a diff-on-failure assertion for multi-line
// values (IR dumps, emitted JS) and a canonical logger.Source builder so
// fixtures across packages all use the same stand-in path.
package hqltest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hqllang/hql/internal/logger"
)

// AssertEqualWithDiff compares a and b with testify's diff-printing
// assertion when either side is multi-line, falling back to a plain
// one-line comparison otherwise — testify's own diff output is already
// good enough that there is no need for esbuild's hand-rolled differ here.
func AssertEqualWithDiff(t *testing.T, actual, expected interface{}) {
	t.Helper()
	stringA := fmt.Sprintf("%v", actual)
	stringB := fmt.Sprintf("%v", expected)
	if strings.Contains(stringA, "\n") || strings.Contains(stringB, "\n") {
		assert.Equal(t, expected, actual)
		return
	}
	if stringA != stringB {
		t.Fatalf("%s != %s", stringA, stringB)
	}
}

// SourceForTest builds a logger.Source for a fixture whose path never
// matters to the assertion, the way a REPL fragment or inline test snippet
// has no file of its own.
func SourceForTest(contents string) logger.Source {
	return logger.Source{Path: "<stdin>", Contents: contents}
}
