// Package diag collects and renders compiler diagnostics. Only
// structural violations are fatal to a file's output; everything else is
// advisory and the compile carries on.
package diag

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/weftlabs/weft/internal/syntax"
)

// Severity ranks a diagnostic.
type Severity uint8

const (
	// Info marks deliberate conservative choices, like a binding kept
	// dynamic on purpose
	Info Severity = iota
	// Warning marks degraded output the author likely wants to know
	// about, like an import that could not be resolved
	Warning
	// Error marks a file whose output was suppressed
	Error
	// Fatal marks a file that could not be processed at all
	Fatal
)

var severityNames = [...]string{"info", "warning", "error", "fatal"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range severityNames {
		if n == name {
			*s = Severity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", name)
}

// Code identifies the diagnostic family.
type Code string

const (
	// CodeSyntax covers malformed source the parser rejected
	CodeSyntax Code = "syntax"
	// CodeUnresolved covers bindings whose origin could not be traced
	CodeUnresolved Code = "unresolved-binding"
	// CodeCycle covers import chains that revisit a file while resolving
	CodeCycle Code = "cyclic-import"
	// CodeFactory covers factory calls with missing or unusable arguments
	CodeFactory Code = "malformed-factory"
	// CodeStructure covers containment violations caught before codegen
	CodeStructure Code = "structural-violation"
	// CodeDynamic covers constructs that compile through the runtime
	// fallback path, like component parameters used as tags
	CodeDynamic Code = "dynamic-fallback"
)

// Diagnostic is one finding, positioned in the source file it came from.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	Path     string   `json:"path"`
	Line     int      `json:"line"`
	Col      int      `json:"col"`
	Msg      string   `json:"msg"`

	// Snippet is the source line the diagnostic points into, with Width
	// columns underlined starting at Col. Not serialized; JSON consumers
	// have the position.
	Snippet string `json:"-"`
	Width   int    `json:"-"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Path, d.Line, d.Col, d.Severity, d.Msg)
}

// New builds a diagnostic at a resolved position.
func New(sev Severity, code Code, path string, pos syntax.Pos, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Path:     path,
		Line:     pos.Line,
		Col:      pos.Col,
		Msg:      fmt.Sprintf(format, args...),
	}
}

// At builds a diagnostic pointing at a span of f, capturing the source
// line so renderers can underline it.
func At(sev Severity, code Code, f *syntax.File, span syntax.Span, format string, args ...any) Diagnostic {
	pos := f.PosAt(span.Start)
	d := New(sev, code, f.Path, pos, format, args...)
	d.Snippet = sourceLine(f.Src, span.Start)
	d.Width = span.Len()
	if end := f.PosAt(span.End); end.Line != pos.Line {
		// multi-line span: underline to the end of the first line
		d.Width = len(d.Snippet) - (pos.Col - 1)
	}
	if d.Width < 1 {
		d.Width = 1
	}
	return d
}

// sourceLine returns the full line containing offset, without its
// terminator
func sourceLine(src string, offset int) string {
	if offset > len(src) {
		offset = len(src)
	}
	start := offset
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := offset
	for end < len(src) && src[end] != '\n' {
		end++
	}
	return src[start:end]
}

// List accumulates diagnostics for one compilation. It is not safe for
// concurrent use; parallel compiles keep per-file lists and merge.
type List struct {
	all []Diagnostic
}

func (l *List) Add(d Diagnostic) {
	l.all = append(l.all, d)
}

// Merge appends every diagnostic from other
func (l *List) Merge(other *List) {
	l.all = append(l.all, other.all...)
}

// All returns the accumulated diagnostics in their current order
func (l *List) All() []Diagnostic {
	return l.all
}

func (l *List) Len() int {
	return len(l.all)
}

// HasErrors reports whether any diagnostic suppresses output
func (l *List) HasErrors() bool {
	for _, d := range l.all {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// Count returns how many diagnostics have the given severity
func (l *List) Count(sev Severity) int {
	n := 0
	for _, d := range l.all {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Sort orders diagnostics by file, then position, then severity
// descending so the worst finding on a line prints first
func (l *List) Sort() {
	sort.SliceStable(l.all, func(i, j int) bool {
		a, b := l.all[i], l.all[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Severity > b.Severity
	})
}

// Summary describes the list in one line, like "2 errors, 1 warning"
func (l *List) Summary() string {
	parts := make([]string, 0, 3)
	if n := l.Count(Fatal) + l.Count(Error); n > 0 {
		parts = append(parts, plural(n, "error"))
	}
	if n := l.Count(Warning); n > 0 {
		parts = append(parts, plural(n, "warning"))
	}
	if n := l.Count(Info); n > 0 {
		parts = append(parts, plural(n, "note"))
	}
	if len(parts) == 0 {
		return "no diagnostics"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
