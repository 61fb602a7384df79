package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceLineReturnsRequestedLineOrEmpty(t *testing.T) {
	src := Source{Path: "a.hql", Contents: "one\ntwo\nthree"}
	assert.Equal(t, "two", src.Line(2))
	assert.Equal(t, "", src.Line(0))
	assert.Equal(t, "", src.Line(4))
}

func TestMsgStringIncludesLocationPhaseAndText(t *testing.T) {
	m := Msg{
		Kind:   Error,
		Phase:  "read",
		Text:   "unterminated string",
		Source: Source{Path: "a.hql", Contents: "(def x \"oops)"},
		Loc:    Loc{Line: 1, Column: 7},
	}
	s := m.String()
	assert.Contains(t, s, "a.hql:1:7:")
	assert.Contains(t, s, "[read] unterminated string")
	assert.Contains(t, s, `(def x "oops)`)
}

func TestMsgStringOmitsSourceLineWhenOutOfRange(t *testing.T) {
	m := Msg{Kind: Warning, Phase: "import", Text: "unused import: u", Loc: Loc{Line: 99, Column: 0}}
	s := m.String()
	assert.Contains(t, s, "<input>:99:0:")
	assert.Contains(t, s, "warning")
	assert.NotContains(t, s, "^")
}

func TestLogAccumulatesInOrderAndTracksErrors(t *testing.T) {
	l := NewLog()
	assert.False(t, l.HasErrors())

	l.AddWarning(Source{Path: "a.hql"}, Loc{Line: 1}, "macro", "macro \"sq\" shadows an existing definition")
	assert.False(t, l.HasErrors())

	l.AddError(Source{Path: "a.hql"}, Loc{Line: 2}, "read", "boom")
	assert.True(t, l.HasErrors())

	require := l.Msgs()
	assert.Len(t, require, 2)
	assert.Equal(t, Warning, require[0].Kind)
	assert.Equal(t, Error, require[1].Kind)
}

func TestLogStringConcatenatesAllMessages(t *testing.T) {
	l := NewLog()
	l.AddWarning(Source{}, Loc{Line: 1}, "import", "unused import: u")
	l.AddError(Source{}, Loc{Line: 2}, "read", "boom")
	s := l.String()
	assert.Contains(t, s, "unused import: u")
	assert.Contains(t, s, "boom")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "note", Kind(99).String())
}
