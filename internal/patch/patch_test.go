package patch

import (
	"strings"
	"testing"
)

func TestSet_Apply(t *testing.T) {
	s := NewSet("abcdefghij")
	s.Add(2, 4, "CD")
	s.Add(6, 8, "GH")
	if got := s.Apply(); got != "abCDefGHij" {
		t.Errorf("Apply = %q", got)
	}
}

func TestSet_NestedRender(t *testing.T) {
	// the inner replacement is spliced when the outer region renders,
	// mirroring markup compiled inside an enclosing expression
	src := "call(list.map(x => OLD))"
	s := NewSet(src)
	inner := indexRange(t, src, "OLD")
	s.Add(inner[0], inner[1], "NEW")

	arg := indexRange(t, src, "list.map(x => OLD)")
	if got := s.Render(arg[0], arg[1]); got != "list.map(x => NEW)" {
		t.Errorf("Render = %q", got)
	}

	// rendering the full file applies only outermost patches
	s.Add(arg[0], arg[1], s.Render(arg[0], arg[1]))
	if got := s.Apply(); got != "call(list.map(x => NEW))" {
		t.Errorf("Apply = %q", got)
	}
}

func TestSet_Insert(t *testing.T) {
	s := NewSet("ab")
	s.Add(1, 1, "X")
	if got := s.Apply(); got != "aXb" {
		t.Errorf("Apply = %q", got)
	}
}

func TestSet_MaximalSkipsNested(t *testing.T) {
	s := NewSet("0123456789")
	s.Add(1, 8, "outer")
	s.Add(2, 4, "inner")
	s.Add(8, 9, "tail")
	m := s.Maximal()
	if len(m) != 2 {
		t.Fatalf("Maximal len = %d, want 2", len(m))
	}
	if m[0].Text != "outer" || m[1].Text != "tail" {
		t.Errorf("Maximal = %v", m)
	}
	if got := s.Apply(); got != "0outertail9" {
		t.Errorf("Apply = %q", got)
	}
}

func TestSet_RenderIgnoresOutsidePatches(t *testing.T) {
	s := NewSet("0123456789")
	s.Add(0, 2, "XX")
	s.Add(8, 10, "YY")
	if got := s.Render(2, 8); got != "234567" {
		t.Errorf("Render = %q", got)
	}
}

func indexRange(t *testing.T, src, sub string) [2]int {
	t.Helper()
	i := strings.Index(src, sub)
	if i < 0 {
		t.Fatalf("%q not in %q", sub, src)
	}
	return [2]int{i, i + len(sub)}
}
