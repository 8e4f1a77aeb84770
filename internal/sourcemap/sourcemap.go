// Package sourcemap produces Source Map v3 documents for compiled
// output. Unchanged regions map line by line onto themselves; each
// replaced region maps onto the start of the source range it replaced.
// That is coarse, but it is enough for a debugger to land on the markup
// expression a compiled call came from.
package sourcemap

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/weftlabs/weft/internal/patch"
)

// Map is a Source Map v3 document.
type Map struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// JSON renders the map document.
func (m *Map) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// Generate builds the map for the output produced by applying patches
// to src. srcName and outName are the file names recorded in the map.
func Generate(srcName, outName, src string, patches []patch.Patch) *Map {
	starts := lineStarts(src)
	pos := func(off int) (int, int) {
		line := sort.Search(len(starts), func(i int) bool { return starts[i] > off }) - 1
		return line, off - starts[line]
	}

	var b mappings
	outCol := 0

	identity := func(from, to int) {
		if from >= to {
			return
		}
		line, col := pos(from)
		b.segment(outCol, line, col)
		for i := from; i < to; i++ {
			if src[i] != '\n' {
				outCol++
				continue
			}
			b.endLine()
			outCol = 0
			if i+1 < to {
				l, c := pos(i + 1)
				b.segment(0, l, c)
			}
		}
	}

	origOff := 0
	for _, p := range patches {
		identity(origOff, p.Start)
		line, col := pos(p.Start)
		if len(p.Text) > 0 {
			b.segment(outCol, line, col)
			for i := 0; i < len(p.Text); i++ {
				if p.Text[i] != '\n' {
					outCol++
					continue
				}
				b.endLine()
				outCol = 0
				if i+1 < len(p.Text) {
					b.segment(0, line, col)
				}
			}
		}
		origOff = p.End
	}
	identity(origOff, len(src))

	return &Map{
		Version:        3,
		File:           outName,
		Sources:        []string{srcName},
		SourcesContent: []string{src},
		Names:          []string{},
		Mappings:       b.sb.String(),
	}
}

func lineStarts(src string) []int {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// mappings encodes segments in the delta-VLQ form the format requires.
// Output columns reset per line; source line and column deltas run
// through the whole document.
type mappings struct {
	sb        strings.Builder
	prevOut   int
	prevLine  int
	prevCol   int
	needComma bool
}

func (m *mappings) segment(outCol, srcLine, srcCol int) {
	if m.needComma {
		m.sb.WriteByte(',')
	}
	m.needComma = true
	writeVLQ(&m.sb, outCol-m.prevOut)
	writeVLQ(&m.sb, 0)
	writeVLQ(&m.sb, srcLine-m.prevLine)
	writeVLQ(&m.sb, srcCol-m.prevCol)
	m.prevOut, m.prevLine, m.prevCol = outCol, srcLine, srcCol
}

func (m *mappings) endLine() {
	m.sb.WriteByte(';')
	m.prevOut = 0
	m.needComma = false
}

const base64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func writeVLQ(sb *strings.Builder, v int) {
	u := uint32(v) << 1
	if v < 0 {
		u = uint32(-v)<<1 | 1
	}
	for {
		digit := u & 0x1f
		u >>= 5
		if u != 0 {
			digit |= 0x20
		}
		sb.WriteByte(base64Digits[digit])
		if u == 0 {
			return
		}
	}
}
