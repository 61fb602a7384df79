package fs

import (
	"fmt"
	"path"
)

// Mock is an in-memory FS for resolver and bundler tests, mirroring
// esbuild's MockFS: a flat map from absolute path to file contents, with
// no actual disk access.
type Mock struct {
	Files map[string]string
}

func NewMock(files map[string]string) *Mock {
	return &Mock{Files: files}
}

func (m *Mock) ReadText(p string) (string, error) {
	contents, ok := m.Files[p]
	if !ok {
		return "", fmt.Errorf("no such file: %s", p)
	}
	return contents, nil
}

func (m *Mock) Exists(p string) bool {
	_, ok := m.Files[p]
	return ok
}

func (*Mock) IsAbs(p string) bool { return path.IsAbs(p) }

func (*Mock) Join(parts ...string) string { return path.Clean(path.Join(parts...)) }

func (*Mock) Dir(p string) string { return path.Dir(p) }

func (*Mock) Ext(p string) string { return path.Ext(p) }

func (*Mock) Abs(p string) (string, error) { return path.Clean(path.Join("/", p)), nil }
