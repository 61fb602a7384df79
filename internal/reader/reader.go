// Package reader implements the HQL reader: it turns UTF-8
// source text into a finite sequence of ast.Node values. The scanner is a
// single-pass, rune-at-a-time reader in the shape of esbuild's
// internal/js_lexer/js_lexer.go ((*Lexer).step / Next()), simplified
// because HQL's token set is far smaller than JavaScript's.
package reader

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hqllang/hql/internal/ast"
	"github.com/hqllang/hql/internal/diag"
	"github.com/hqllang/hql/internal/logger"
)

// Read parses source into a sequence of top-level AST nodes.
func Read(source logger.Source) ([]ast.Node, error) {
	r := &reader{src: source.Contents, source: source, line: 1, col: 0}
	var nodes []ast.Node
	for {
		r.skipAtmosphere()
		if r.eof() {
			break
		}
		n, err := r.readForm()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

type reader struct {
	src    string
	source logger.Source
	pos    int
	line   int
	col    int
}

func (r *reader) eof() bool { return r.pos >= len(r.src) }

func (r *reader) pos2() ast.Position { return ast.Position{Line: r.line, Column: r.col} }

func (r *reader) peek() rune {
	if r.eof() {
		return 0
	}
	c, _ := utf8.DecodeRuneInString(r.src[r.pos:])
	return c
}

func (r *reader) peekAt(offset int) rune {
	p := r.pos
	for i := 0; i < offset && p < len(r.src); i++ {
		_, sz := utf8.DecodeRuneInString(r.src[p:])
		p += sz
	}
	if p >= len(r.src) {
		return 0
	}
	c, _ := utf8.DecodeRuneInString(r.src[p:])
	return c
}

func (r *reader) advance() rune {
	c, sz := utf8.DecodeRuneInString(r.src[r.pos:])
	r.pos += sz
	if c == '\n' {
		r.line++
		r.col = 0
	} else {
		r.col++
	}
	return c
}

func isDelimiter(c rune) bool {
	switch c {
	case '(', ')', '[', ']', '{', '}', '\'', '`', ',', '"', ';', 0:
		return true
	}
	return unicode.IsSpace(c)
}

// skipAtmosphere consumes whitespace and `;` line comments.
func (r *reader) skipAtmosphere() {
	for !r.eof() {
		c := r.peek()
		if unicode.IsSpace(c) {
			r.advance()
			continue
		}
		if c == ';' {
			for !r.eof() && r.peek() != '\n' {
				r.advance()
			}
			continue
		}
		break
	}
}

func (r *reader) errf(kind diag.ReadErrorKind, detail string) error {
	return &diag.ReadError{
		Kind:   kind,
		Loc:    logger.Loc{Line: r.line, Column: r.col},
		Source: r.source,
		Detail: detail,
	}
}

// readForm reads exactly one top-level form.
func (r *reader) readForm() (ast.Node, error) {
	r.skipAtmosphere()
	if r.eof() {
		return nil, r.errf(diag.UnexpectedToken, "unexpected end of input")
	}
	start := r.pos2()
	c := r.peek()
	switch c {
	case '(':
		return r.readList('(', ')', start)
	case '[':
		return r.readBracketed('[', ']', "vector", start)
	case '{':
		return r.readBracketed('{', '}', "hash-map", start)
	case ')', ']', '}':
		return nil, r.errf(diag.UnbalancedDelim, "unexpected closing delimiter '"+string(c)+"'")
	case '\'':
		r.advance()
		inner, err := r.readForm()
		if err != nil {
			return nil, err
		}
		return ast.NewList(start, ast.Sym("quote", start), inner), nil
	case '`':
		r.advance()
		inner, err := r.readForm()
		if err != nil {
			return nil, err
		}
		return ast.NewList(start, ast.Sym("quasiquote", start), inner), nil
	case ',':
		r.advance()
		name := "unquote"
		if r.peek() == '@' {
			r.advance()
			name = "unquote-splicing"
		}
		inner, err := r.readForm()
		if err != nil {
			return nil, err
		}
		return ast.NewList(start, ast.Sym(name, start), inner), nil
	case '"':
		return r.readString(start)
	default:
		return r.readAtom(start)
	}
}

func (r *reader) readList(open, close rune, start ast.Position) (ast.Node, error) {
	r.advance() // consume open
	var elems []ast.Node
	for {
		r.skipAtmosphere()
		if r.eof() {
			return nil, r.errf(diag.UnbalancedDelim, "unterminated list, expected '"+string(close)+"'")
		}
		if r.peek() == close {
			r.advance()
			return &ast.List{Elements: elems, At: start}, nil
		}
		n, err := r.readForm()
		if err != nil {
			return nil, err
		}
		elems = append(elems, n)
	}
}

// readBracketed reads a `[...]` or `{...}` form and rewrites it as
// `(vector ...)` / `(hash-map ...)` — a reader rewrite, not a post-parse
// pass.
func (r *reader) readBracketed(open, close rune, head string, start ast.Position) (ast.Node, error) {
	inner, err := r.readList(open, close, start)
	if err != nil {
		return nil, err
	}
	l := inner.(*ast.List)
	elems := append([]ast.Node{ast.Sym(head, start)}, l.Elements...)
	return &ast.List{Elements: elems, At: start}, nil
}

func (r *reader) readAtom(start ast.Position) (ast.Node, error) {
	var sb strings.Builder
	for !r.eof() && !isDelimiter(r.peek()) {
		sb.WriteRune(r.advance())
	}
	text := sb.String()
	if text == "" {
		return nil, r.errf(diag.UnexpectedToken, "unexpected character '"+string(r.peek())+"'")
	}
	switch text {
	case "true":
		return ast.Bool(true, start), nil
	case "false":
		return ast.Bool(false, start), nil
	case "nil":
		return ast.Null(start), nil
	}
	if n, ok := tryParseNumber(text); ok {
		return ast.Number(n, start), nil
	}
	if startsLikeNumber(text) {
		return nil, r.errf(diag.InvalidNumber, "invalid number literal "+strconv.Quote(text))
	}
	if strings.HasPrefix(text, "#:") {
		return nil, r.errf(diag.UnexpectedToken, "symbol "+strconv.Quote(text)+" uses the reserved gensym prefix \"#:\"")
	}
	return ast.Sym(text, start), nil
}

func startsLikeNumber(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if c >= '0' && c <= '9' {
		return true
	}
	if (c == '+' || c == '-') && len(s) > 1 && s[1] >= '0' && s[1] <= '9' {
		return true
	}
	return false
}

func tryParseNumber(s string) (float64, bool) {
	if !startsLikeNumber(s) {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// readString reads a double-quoted string literal, honoring escapes
// (\n \t \" \\ and \uXXXX) and interpolation tokens \(expr). Interpolation
// expands the whole literal to a `(str ...)` form.
func (r *reader) readString(start ast.Position) (ast.Node, error) {
	r.advance() // opening quote
	var parts []ast.Node
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, ast.String(cur.String(), start))
			cur.Reset()
		}
	}
	for {
		if r.eof() {
			return nil, r.errf(diag.UnterminatedString, "unterminated string literal")
		}
		c := r.peek()
		if c == '"' {
			r.advance()
			break
		}
		if c == '\\' {
			r.advance()
			if r.eof() {
				return nil, r.errf(diag.UnterminatedString, "unterminated escape sequence")
			}
			esc := r.peek()
			if esc == '(' {
				// Interpolation: \(expr)
				r.advance()
				flush()
				depth := 1
				var exprSrc strings.Builder
				for depth > 0 {
					if r.eof() {
						return nil, r.errf(diag.UnterminatedString, "unterminated interpolation")
					}
					ch := r.peek()
					if ch == '(' {
						depth++
					} else if ch == ')' {
						depth--
						if depth == 0 {
							r.advance()
							break
						}
					}
					exprSrc.WriteRune(r.advance())
				}
				sub, err := Read(logger.Source{Path: r.source.Path, Contents: exprSrc.String()})
				if err != nil {
					return nil, err
				}
				if len(sub) != 1 {
					return nil, r.errf(diag.UnexpectedToken, "interpolation must contain exactly one expression")
				}
				parts = append(parts, sub[0])
				continue
			}
			decoded, err := r.decodeEscape(esc)
			if err != nil {
				return nil, err
			}
			cur.WriteRune(decoded)
			continue
		}
		cur.WriteRune(r.advance())
	}
	flush()
	if len(parts) == 0 {
		return ast.String("", start), nil
	}
	if lit, ok := parts[0].(*ast.Literal); ok && lit.Kind == ast.LitString && len(parts) == 1 {
		return lit, nil
	}
	// A single part that isn't a plain string literal — a bare `\(expr)`
	// with no surrounding literal text, or an interpolated non-string
	// literal like `\(42)` — still needs the `(str ...)` wrapper so
	// internal/lower's string-coercing lowerStr runs over it instead of
	// this reader guessing at its string form.
	elems := append([]ast.Node{ast.Sym("str", start)}, parts...)
	return &ast.List{Elements: elems, At: start}, nil
}

func (r *reader) decodeEscape(esc rune) (rune, error) {
	r.advance() // consume escape char
	switch esc {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '"':
		return '"', nil
	case '\\':
		return '\\', nil
	case 'u':
		var hex strings.Builder
		for i := 0; i < 4; i++ {
			if r.eof() {
				return 0, r.errf(diag.InvalidEscape, "incomplete unicode escape")
			}
			hex.WriteRune(r.advance())
		}
		v, err := strconv.ParseInt(hex.String(), 16, 32)
		if err != nil {
			return 0, r.errf(diag.InvalidEscape, "invalid unicode escape \\u"+hex.String())
		}
		return rune(v), nil
	default:
		return 0, r.errf(diag.InvalidEscape, "invalid escape sequence \\"+string(esc))
	}
}
