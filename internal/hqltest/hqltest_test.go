package hqltest

import "testing"

func TestAssertEqualWithDiffPassesOnMatch(t *testing.T) {
	AssertEqualWithDiff(t, "const x = 1;\nconst y = 2;\n", "const x = 1;\nconst y = 2;\n")
}

func TestSourceForTestPath(t *testing.T) {
	src := SourceForTest("(def x 1)")
	if src.Path != "<stdin>" {
		t.Fatalf("expected <stdin>, got %s", src.Path)
	}
	if src.Contents != "(def x 1)" {
		t.Fatalf("unexpected contents: %s", src.Contents)
	}
}
