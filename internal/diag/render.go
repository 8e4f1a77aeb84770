package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/text/width"
)

// Format selects a rendering of the diagnostic list. It implements
// pflag.Value so commands can take it directly as --diag-format.
type Format string

var _ pflag.Value = (*Format)(nil)

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func (f *Format) String() string {
	if *f == "" {
		return string(FormatText)
	}
	return string(*f)
}

func (f *Format) Set(v string) error {
	switch Format(v) {
	case FormatText, FormatJSON:
		*f = Format(v)
		return nil
	}
	return fmt.Errorf("unknown diagnostic format %q (want text or json)", v)
}

func (f *Format) Type() string {
	return "format"
}

// Render writes the list to w in the chosen format. Text output
// underlines the offending span when the source line was captured.
func (l *List) Render(w io.Writer, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if l.all == nil {
			return enc.Encode([]Diagnostic{})
		}
		return enc.Encode(l.all)
	}
	for _, d := range l.all {
		if _, err := io.WriteString(w, d.String()+"\n"); err != nil {
			return err
		}
		if d.Snippet == "" {
			continue
		}
		line, caret := underline(d.Snippet, d.Col, d.Width)
		if _, err := fmt.Fprintf(w, "  %d | %s\n", d.Line, line); err != nil {
			return err
		}
		pad := strings.Repeat(" ", digits(d.Line))
		if _, err := fmt.Fprintf(w, "  %s | %s\n", pad, caret); err != nil {
			return err
		}
	}
	return nil
}

// underline expands tabs and builds a caret line that lines up under the
// span even when the snippet holds wide runes
func underline(snippet string, col, carets int) (string, string) {
	var line strings.Builder
	var pad int
	var span int

	runeCol := 1
	for _, r := range snippet {
		var w int
		if r == '\t' {
			line.WriteString("    ")
			w = 4
		} else {
			line.WriteRune(r)
			w = runeWidth(r)
		}
		if runeCol < col {
			pad += w
		} else if runeCol < col+carets {
			span += w
		}
		runeCol++
	}
	if span < 1 {
		span = 1
	}
	return line.String(), strings.Repeat(" ", pad) + strings.Repeat("^", span)
}

func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

func digits(n int) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}
