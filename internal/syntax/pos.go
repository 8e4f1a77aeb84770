package syntax

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Pos is a 1-based line/column position in a source file. Column counts
// runes, not bytes, so it matches what an editor shows.
type Pos struct {
	Line int
	Col  int
}

// IsValid reports whether the position has been set
func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Span is a half-open byte range [Start, End) into the source
type Span struct {
	Start int
	End   int
}

// Len returns the byte length of the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether other lies strictly inside s
func (s Span) Contains(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End && other != s
}

// lineTable maps byte offsets to line/column positions. Built once per
// parsed file; lookups are binary searches over line start offsets.
type lineTable struct {
	src    string
	starts []int
}

func newLineTable(src string) *lineTable {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineTable{src: src, starts: starts}
}

// pos converts a byte offset into a Pos
func (t *lineTable) pos(offset int) Pos {
	if offset < 0 {
		offset = 0
	}
	if offset > len(t.src) {
		offset = len(t.src)
	}
	line := sort.Search(len(t.starts), func(i int) bool {
		return t.starts[i] > offset
	})
	start := t.starts[line-1]
	col := utf8.RuneCountInString(t.src[start:offset]) + 1
	return Pos{Line: line, Col: col}
}

// Error is a parse failure at a known source position
type Error struct {
	Path string
	Pos  Pos
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Pos.Line, e.Pos.Col, e.Msg)
}
