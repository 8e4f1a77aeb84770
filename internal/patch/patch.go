// Package patch accumulates span replacements over one source text and
// renders regions with the replacements spliced in. Replacements must
// nest or be disjoint; compiled markup nested inside an outer expression
// is spliced into that expression when the enclosing region is rendered.
package patch

import (
	"sort"
	"strings"
)

// Patch is one replacement of the half-open byte range [Start, End).
// Start == End inserts at that offset.
type Patch struct {
	Start int
	End   int
	Text  string
}

// Set is a collection of patches over a single source string. The zero
// value is unusable; call NewSet.
type Set struct {
	src     string
	patches []Patch
	sorted  bool
}

func NewSet(src string) *Set {
	return &Set{src: src}
}

// Src returns the unmodified source text.
func (s *Set) Src() string {
	return s.src
}

// Add records a replacement for [start, end). Patches added inside an
// already-added patch are spliced into regions, not into that patch's
// replacement text, so inner patches must be added before any render
// that should include them.
func (s *Set) Add(start, end int, text string) {
	s.patches = append(s.patches, Patch{Start: start, End: end, Text: text})
	s.sorted = false
}

// Len reports the number of recorded patches.
func (s *Set) Len() int {
	return len(s.patches)
}

func (s *Set) sortPatches() {
	if s.sorted {
		return
	}
	// containers sort before their contents so Maximal can skip nested
	// patches in one pass
	sort.SliceStable(s.patches, func(i, j int) bool {
		a, b := s.patches[i], s.patches[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End > b.End
	})
	s.sorted = true
}

// Maximal returns the outermost patches in offset order. Patches nested
// inside another patch are dropped; their text is assumed to already be
// part of the container's replacement.
func (s *Set) Maximal() []Patch {
	s.sortPatches()
	var out []Patch
	covered := -1
	for _, p := range s.patches {
		if p.Start < covered {
			continue
		}
		out = append(out, p)
		covered = p.End
	}
	return out
}

// Render returns the text of [start, end) with every patch that falls
// entirely inside the window applied. Patches straddling the window
// boundary are ignored; callers render windows that fully contain or
// fully exclude each patch.
func (s *Set) Render(start, end int) string {
	var sb strings.Builder
	pos := start
	for _, p := range s.Maximal() {
		if p.Start < start || p.End > end {
			continue
		}
		if p.Start < pos {
			continue
		}
		sb.WriteString(s.src[pos:p.Start])
		sb.WriteString(p.Text)
		pos = p.End
	}
	sb.WriteString(s.src[pos:end])
	return sb.String()
}

// Apply renders the whole source with all patches applied.
func (s *Set) Apply() string {
	return s.Render(0, len(s.src))
}
