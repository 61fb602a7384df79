package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hqllang/hql/internal/logger"
)

func TestReadErrorMessageIncludesLocationAndKind(t *testing.T) {
	err := &ReadError{
		Kind:   UnterminatedString,
		Loc:    logger.Loc{Line: 3, Column: 7},
		Source: logger.Source{Path: "a.hql"},
		Detail: "missing closing quote",
	}
	assert.Equal(t, `a.hql:3:7: UnterminatedString: missing closing quote`, err.Error())
}

func TestMacroErrorMessage(t *testing.T) {
	err := &MacroError{Kind: BadArity, Name: "sq", Depth: 2, Detail: "wrong number of arguments"}
	assert.Contains(t, err.Error(), "sq")
	assert.Contains(t, err.Error(), "BadArity")
	assert.Contains(t, err.Error(), "depth 2")
}

func TestImportErrorUnwrapsUnderlyingError(t *testing.T) {
	inner := errors.New("permission denied")
	err := &ImportError{Kind: ReadFailed, Path: "./x.hql", From: "root.hql", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestImportErrorWithoutUnderlyingError(t *testing.T) {
	err := &ImportError{Kind: NotFound, Path: "./missing.hql", From: "root.hql"}
	assert.Nil(t, err.Unwrap())
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestBundleErrorMessageListsChain(t *testing.T) {
	err := &BundleError{Kind: CircularImport, Chain: []string{"/a.hql", "/b.hql", "/a.hql"}}
	assert.Contains(t, err.Error(), "CircularImport")
	assert.Contains(t, err.Error(), "/a.hql")
	assert.Contains(t, err.Error(), "/b.hql")
}

func TestErrorKindStringers(t *testing.T) {
	assert.Equal(t, "UnbalancedDelim", UnbalancedDelim.String())
	assert.Equal(t, "Undefined", Undefined.String())
	assert.Equal(t, "CircularAtCompile", CircularAtCompile.String())
	assert.Equal(t, "DuplicateExport", DuplicateExport.String())
	assert.Equal(t, "Unknown", ReadErrorKind(99).String())
}

func TestEveryErrorTypeSatisfiesDiagnostic(t *testing.T) {
	var _ Diagnostic = (*ReadError)(nil)
	var _ Diagnostic = (*SyntaxError)(nil)
	var _ Diagnostic = (*MacroError)(nil)
	var _ Diagnostic = (*ImportError)(nil)
	var _ Diagnostic = (*LoweringError)(nil)
	var _ Diagnostic = (*EmitError)(nil)
	var _ Diagnostic = (*BundleError)(nil)
}

func TestReadErrorMsgCarriesLocationAndSource(t *testing.T) {
	err := &ReadError{
		Kind:   UnterminatedString,
		Loc:    logger.Loc{Line: 3, Column: 7},
		Source: logger.Source{Path: "a.hql"},
		Detail: "missing closing quote",
	}
	m := err.Msg()
	assert.Equal(t, logger.Error, m.Kind)
	assert.Equal(t, PhaseRead, m.Phase)
	assert.Equal(t, logger.Loc{Line: 3, Column: 7}, m.Loc)
	assert.Contains(t, m.Text, "missing closing quote")
}

func TestMacroErrorMsgHasMacroPhase(t *testing.T) {
	err := &MacroError{Kind: BadArity, Name: "sq", Depth: 2, Detail: "wrong number of arguments"}
	m := err.Msg()
	assert.Equal(t, PhaseMacro, m.Phase)
	assert.Contains(t, m.Text, "sq")
}

func TestImportErrorMsgIncludesUnderlyingError(t *testing.T) {
	inner := errors.New("permission denied")
	err := &ImportError{Kind: ReadFailed, Path: "./x.hql", From: "root.hql", Err: inner}
	m := err.Msg()
	assert.Equal(t, PhaseImport, m.Phase)
	assert.Contains(t, m.Text, "permission denied")
}

func TestBundleErrorMsgHasBundlePhase(t *testing.T) {
	err := &BundleError{Kind: CircularImport, Chain: []string{"/a.hql", "/b.hql"}}
	m := err.Msg()
	assert.Equal(t, PhaseBundle, m.Phase)
	assert.Contains(t, m.Text, "/a.hql")
}
