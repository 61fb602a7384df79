// Package logger collects and renders compiler diagnostics. Its shape
// mirrors a clang-style "file:line:col: kind: text" report with a source
// excerpt underline, one message at a time, in the order they were added.
package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Kind classifies a single diagnostic message.
type Kind uint8

const (
	Error Kind = iota
	Warning
)

func (k Kind) String() string {
	switch k {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "note"
	}
}

// Loc is a 1-based line, 0-based column location within a Source.
type Loc struct {
	Line   int
	Column int
}

// Source is the text a diagnostic refers to, kept around so the renderer
// can quote the offending line.
type Source struct {
	Path     string
	Contents string
}

// Line returns the 1-based source line, or "" if out of range.
func (s Source) Line(n int) string {
	lines := strings.Split(s.Contents, "\n")
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}

// Msg is one diagnostic: a phase-tagged, located, human-readable report.
type Msg struct {
	Kind   Kind
	Phase  string
	Text   string
	Source Source
	Loc    Loc
}

func (m Msg) String() string {
	var b strings.Builder
	path := m.Source.Path
	if path == "" {
		path = "<input>"
	}
	fmt.Fprintf(&b, "%s:%d:%d: ", path, m.Loc.Line, m.Loc.Column)
	kindColor := color.New(color.FgRed, color.Bold)
	if m.Kind == Warning {
		kindColor = color.New(color.FgYellow, color.Bold)
	}
	b.WriteString(kindColor.Sprintf("%s: ", m.Kind))
	fmt.Fprintf(&b, "[%s] %s\n", m.Phase, m.Text)
	if line := m.Source.Line(m.Loc.Line); line != "" {
		b.WriteString("  " + line + "\n")
		col := m.Loc.Column
		if col < 0 {
			col = 0
		}
		b.WriteString("  " + strings.Repeat(" ", col) + color.New(color.FgGreen).Sprint("^") + "\n")
	}
	return b.String()
}

// Log accumulates diagnostics for a single compilation. It is not safe for
// concurrent use; the pipeline is single-threaded.
type Log struct {
	msgs []Msg
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Add(m Msg) {
	l.msgs = append(l.msgs, m)
}

func (l *Log) AddError(source Source, loc Loc, phase, text string) {
	l.Add(Msg{Kind: Error, Phase: phase, Text: text, Source: source, Loc: loc})
}

func (l *Log) AddWarning(source Source, loc Loc, phase, text string) {
	l.Add(Msg{Kind: Warning, Phase: phase, Text: text, Source: source, Loc: loc})
}

func (l *Log) HasErrors() bool {
	for _, m := range l.msgs {
		if m.Kind == Error {
			return true
		}
	}
	return false
}

func (l *Log) Msgs() []Msg {
	return l.msgs
}

// String renders every accumulated message, errors and warnings together,
// in the order they were added.
func (l *Log) String() string {
	var b strings.Builder
	for _, m := range l.msgs {
		b.WriteString(m.String())
	}
	return b.String()
}
