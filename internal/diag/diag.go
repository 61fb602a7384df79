// Package diag defines the closed error taxonomy for every phase of the
// compiler pipeline. Every error
// the pipeline returns is one of these concrete types; callers type-switch
// instead of matching on error strings.
package diag

import (
	"fmt"

	"github.com/hqllang/hql/internal/logger"
)

// Diagnostic lets any of this package's error types render through
// logger.Msg (clang-style "file:line:col: kind: text", with a source
// excerpt where one is known) instead of a bare .Error() string. Every
// type below implements it.
type Diagnostic interface {
	error
	Msg() logger.Msg
}

// Phase names used consistently across Error.Phase.
const (
	PhaseRead     = "read"
	PhaseSyntax   = "syntax"
	PhaseMacro    = "macro"
	PhaseImport   = "import"
	PhaseLowering = "lowering"
	PhaseEmit     = "emit"
	PhaseBundle   = "bundle"
)

// ReadErrorKind enumerates reader failure modes.
type ReadErrorKind uint8

const (
	UnbalancedDelim ReadErrorKind = iota
	UnterminatedString
	InvalidEscape
	InvalidNumber
	UnexpectedToken
)

func (k ReadErrorKind) String() string {
	switch k {
	case UnbalancedDelim:
		return "UnbalancedDelim"
	case UnterminatedString:
		return "UnterminatedString"
	case InvalidEscape:
		return "InvalidEscape"
	case InvalidNumber:
		return "InvalidNumber"
	case UnexpectedToken:
		return "UnexpectedToken"
	default:
		return "Unknown"
	}
}

// ReadError reports malformed source text.
type ReadError struct {
	Kind   ReadErrorKind
	Loc    logger.Loc
	Source logger.Source
	Detail string
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.Source.Path, e.Loc.Line, e.Loc.Column, e.Kind, e.Detail)
}

func (e *ReadError) Msg() logger.Msg {
	return logger.Msg{Kind: logger.Error, Phase: PhaseRead, Text: fmt.Sprintf("%s: %s", e.Kind, e.Detail), Source: e.Source, Loc: e.Loc}
}

// SyntaxError reports a structure the normalizer rejects (e.g. `fx` without
// a return-type list).
type SyntaxError struct {
	Loc     logger.Loc
	Source  logger.Source
	Detail  string
	Snippet string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error: %s (%s)", e.Source.Path, e.Loc.Line, e.Loc.Column, e.Detail, e.Snippet)
}

func (e *SyntaxError) Msg() logger.Msg {
	return logger.Msg{Kind: logger.Error, Phase: PhaseSyntax, Text: fmt.Sprintf("%s (%s)", e.Detail, e.Snippet), Source: e.Source, Loc: e.Loc}
}

// MacroErrorKind enumerates macro-expansion failure modes.
type MacroErrorKind uint8

const (
	Undefined MacroErrorKind = iota
	BadArity
	ExpansionFailed
	DepthExceeded
)

func (k MacroErrorKind) String() string {
	switch k {
	case Undefined:
		return "Undefined"
	case BadArity:
		return "BadArity"
	case ExpansionFailed:
		return "ExpansionFailed"
	case DepthExceeded:
		return "DepthExceeded"
	default:
		return "Unknown"
	}
}

// MacroError reports a macro-expansion failure. Name is the macro that
// failed, or, for an ExpansionFailed raised from a leftover js-error
// sentinel, the path of the file being compiled (the sentinel's message,
// which names the macro, is then the Detail); Depth is the expansion depth
// at the time of failure, left at zero in the sentinel case.
type MacroError struct {
	Kind    MacroErrorKind
	Name    string
	Depth   int
	Snippet string
	Detail  string
}

func (e *MacroError) Error() string {
	return fmt.Sprintf("macro error: %s in %q at depth %d: %s", e.Kind, e.Name, e.Depth, e.Detail)
}

func (e *MacroError) Msg() logger.Msg {
	return logger.Msg{Kind: logger.Error, Phase: PhaseMacro, Text: fmt.Sprintf("%s in %q: %s", e.Kind, e.Name, e.Detail)}
}

// ImportErrorKind enumerates import-resolution failure modes.
type ImportErrorKind uint8

const (
	NotFound ImportErrorKind = iota
	ReadFailed
	CircularAtCompile
	UnsupportedScheme
)

func (k ImportErrorKind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case ReadFailed:
		return "ReadFailed"
	case CircularAtCompile:
		return "CircularAtCompile"
	case UnsupportedScheme:
		return "UnsupportedScheme"
	default:
		return "Unknown"
	}
}

// ImportError reports an import that could not be resolved or read.
type ImportError struct {
	Kind ImportErrorKind
	Path string
	From string
	Err  error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import error: %s (from %s): %s: %v", e.Path, e.From, e.Kind, e.Err)
	}
	return fmt.Sprintf("import error: %s (from %s): %s", e.Path, e.From, e.Kind)
}

func (e *ImportError) Unwrap() error { return e.Err }

func (e *ImportError) Msg() logger.Msg {
	text := fmt.Sprintf("%s (from %s): %s", e.Path, e.From, e.Kind)
	if e.Err != nil {
		text = fmt.Sprintf("%s: %v", text, e.Err)
	}
	return logger.Msg{Kind: logger.Error, Phase: PhaseImport, Text: text}
}

// LoweringError reports an IR that cannot be produced from a (post-
// expansion) form — the form is either unrecognized or malformed.
type LoweringError struct {
	Form   string
	Detail string
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("lowering error: %s: %s", e.Detail, e.Form)
}

func (e *LoweringError) Msg() logger.Msg {
	return logger.Msg{Kind: logger.Error, Phase: PhaseLowering, Text: fmt.Sprintf("%s: %s", e.Detail, e.Form)}
}

// EmitError reports an unreachable branch in the IR printer — a bug.
type EmitError struct {
	Detail string
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit error (internal): %s", e.Detail)
}

func (e *EmitError) Msg() logger.Msg {
	return logger.Msg{Kind: logger.Error, Phase: PhaseEmit, Text: e.Detail}
}

// BundleErrorKind enumerates bundling failure modes.
type BundleErrorKind uint8

const (
	CircularImport BundleErrorKind = iota
	DuplicateExport
)

func (k BundleErrorKind) String() string {
	switch k {
	case CircularImport:
		return "CircularImport"
	case DuplicateExport:
		return "DuplicateExport"
	default:
		return "Unknown"
	}
}

// BundleError reports a failure found only at whole-bundle assembly time.
type BundleError struct {
	Kind  BundleErrorKind
	Chain []string
}

func (e *BundleError) Error() string {
	return fmt.Sprintf("bundle error: %s: %v", e.Kind, e.Chain)
}

func (e *BundleError) Msg() logger.Msg {
	return logger.Msg{Kind: logger.Error, Phase: PhaseBundle, Text: fmt.Sprintf("%s: %v", e.Kind, e.Chain)}
}
