package expander

import (
	_ "embed"

	"github.com/hqllang/hql/internal/logger"
	"github.com/hqllang/hql/internal/menv"
	"github.com/hqllang/hql/internal/normalizer"
	"github.com/hqllang/hql/internal/reader"
)

//go:embed core.hql
var coreSource string

// LoadCore evaluates the bundled core.hql text into root, registering its
// macros and helper closures.
func LoadCore(root *menv.Env) error {
	source := logger.Source{Path: "core.hql", Contents: coreSource}
	nodes, err := reader.Read(source)
	if err != nil {
		return err
	}
	nodes, err = normalizer.Normalize(nodes)
	if err != nil {
		return err
	}
	x := New(root)
	expanded, err := x.ExpandAll(nodes)
	if err != nil {
		return err
	}
	if msg, ok := HasSentinel(expanded); ok {
		return &coreLoadError{msg}
	}
	// defmacro forms already registered their macros during expansion
	// above; evaluating the expanded forms here is what actually binds
	// the plain `def`s (thread-first-step, thread-last-step) that the
	// threading macros call into from their own macro bodies.
	for _, n := range expanded {
		if _, err := Eval(n, root); err != nil {
			return &coreLoadError{err.Error()}
		}
	}
	return nil
}

type coreLoadError struct{ msg string }

func (e *coreLoadError) Error() string { return "failed to load core.hql: " + e.msg }
