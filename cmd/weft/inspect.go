package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/weftlabs/weft/internal/classify"
	"github.com/weftlabs/weft/internal/diag"
	"github.com/weftlabs/weft/internal/patch"
	"github.com/weftlabs/weft/internal/resolve"
	"github.com/weftlabs/weft/internal/syntax"
	"github.com/weftlabs/weft/internal/template"
	"github.com/weftlabs/weft/internal/validate"
)

func newInspectCommand() *cobra.Command {
	diagFormat := diag.FormatText

	cmd := &cobra.Command{
		Use:   "inspect <file.wx>",
		Short: "Explain how a module compiles",
		Long: `Parses one module and reports what the compiler sees: every markup
root with its classification, resolved origin, skeleton, and parts
table. Useful when a tag compiles differently than expected.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0], diagFormat)
		},
	}

	cmd.Flags().Var(&diagFormat, "diag-format", "Report output: text or json")

	return cmd
}

// inspectReport is the machine form of the inspection, printed as JSON
// when requested.
type inspectReport struct {
	Path  string            `json:"path"`
	Roots []rootReport      `json:"roots"`
	Diags []diag.Diagnostic `json:"diags,omitempty"`
}

type rootReport struct {
	Line     int           `json:"line"`
	Tag      string        `json:"tag"`
	Kind     string        `json:"kind"`
	Dialect  string        `json:"dialect,omitempty"`
	Origin   *originReport `json:"origin,omitempty"`
	Skeleton string        `json:"skeleton,omitempty"`
	Parts    []partReport  `json:"parts,omitempty"`
	Call     *callReport   `json:"call,omitempty"`
}

type originReport struct {
	Kind  string `json:"kind"`
	Cause string `json:"cause,omitempty"`
	File  string `json:"file,omitempty"`
	Line  int    `json:"line,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

type partReport struct {
	Kind    string   `json:"kind"`
	Name    string   `json:"name,omitempty"`
	Strings []string `json:"strings,omitempty"`
}

type callReport struct {
	Name     string `json:"name"`
	Fields   int    `json:"fields"`
	Children int    `json:"children"`
}

func runInspect(path string, format diag.Format) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	files := make(map[string]*syntax.File)
	load := func(p string) (*syntax.File, error) {
		if f, ok := files[p]; ok {
			return f, nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		f, err := syntax.Parse(p, data)
		if err != nil {
			return nil, err
		}
		files[p] = f
		return f, nil
	}

	f, err := load(abs)
	if err != nil {
		var perr *syntax.Error
		if !errors.As(err, &perr) {
			return err
		}
		diags := &diag.List{}
		diags.Add(diag.New(diag.Fatal, diag.CodeSyntax, perr.Path, perr.Pos, "%s", perr.Msg))
		if format == diag.FormatJSON {
			return printJSON(inspectReport{Path: abs, Diags: diags.All()})
		}
		diags.Render(os.Stderr, format)
		return fmt.Errorf("%s does not parse", path)
	}

	diags := &diag.List{}
	res := resolve.New(resolve.NewCache(), load, resolve.DefaultModuleResolver)
	cls := classify.New(res, f, diags)
	validate.File(f, diags)

	// Skeletons and parts are structural, so the builder can run without
	// the emitter patching nested call sites underneath it.
	b := template.NewBuilder(f, cls, patch.NewSet(f.Src))

	report := inspectReport{Path: abs}
	for _, m := range f.Markups {
		kind, origin := cls.Kind(m.Root, m.Scope)
		built := b.Build(m.Root, m.Scope)

		r := rootReport{
			Line: f.PosAt(m.Root.Loc.Start).Line,
			Tag:  m.Root.Tag,
			Kind: kind.String(),
		}
		if kind != classify.KindHost {
			r.Origin = originFor(origin)
		}
		if built.Call != nil {
			r.Call = &callReport{
				Name:     built.Call.Name,
				Fields:   len(built.Call.Fields),
				Children: len(built.Call.Children),
			}
		} else {
			r.Dialect = built.Dialect.String()
			r.Skeleton = built.Template.Skeleton
			for _, p := range built.Template.Parts {
				r.Parts = append(r.Parts, partReport{
					Kind:    p.Kind.String(),
					Name:    p.Name,
					Strings: p.Strings,
				})
			}
		}
		report.Roots = append(report.Roots, r)
	}

	diags.Sort()
	report.Diags = diags.All()

	if format == diag.FormatJSON {
		return printJSON(report)
	}
	printReport(report)
	return nil
}

func originFor(o resolve.Origin) *originReport {
	r := &originReport{Kind: o.Kind.String(), Tag: o.Tag}
	if o.Cause != resolve.CauseNone {
		r.Cause = o.Cause.String()
	}
	if o.File != "" {
		r.File = o.File
		r.Line = o.Pos.Line
	}
	return r
}

func printJSON(report inspectReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printReport(report inspectReport) {
	fmt.Printf("%s: %d markup roots\n", report.Path, len(report.Roots))

	for i, r := range report.Roots {
		fmt.Printf("\nroot %d, line %d: <%s> %s", i+1, r.Line, r.Tag, r.Kind)
		if r.Dialect != "" && r.Dialect != "general" {
			fmt.Printf(" (%s)", r.Dialect)
		}
		fmt.Println()

		if o := r.Origin; o != nil {
			fmt.Printf("  origin: %s", o.Kind)
			if o.Tag != "" {
				fmt.Printf(" <%s>", o.Tag)
			}
			if o.Cause != "" {
				fmt.Printf(" (%s)", o.Cause)
			}
			if o.File != "" {
				fmt.Printf(", defined at %s:%d", o.File, o.Line)
			}
			fmt.Println()
		}
		if r.Call != nil {
			fmt.Printf("  call: %s with %d fields, %d children\n", r.Call.Name, r.Call.Fields, r.Call.Children)
		}
		if r.Skeleton != "" {
			fmt.Printf("  skeleton: %s\n", r.Skeleton)
		}
		if len(r.Parts) > 0 {
			fmt.Println("  parts:")
			for j, p := range r.Parts {
				fmt.Printf("    [%d] %s", j, p.Kind)
				if p.Name != "" {
					fmt.Printf(" %s", p.Name)
				}
				if len(p.Strings) > 0 {
					fmt.Printf(" %q", p.Strings)
				}
				fmt.Println()
			}
		}
	}

	if len(report.Diags) > 0 {
		fmt.Println()
		l := &diag.List{}
		for _, d := range report.Diags {
			l.Add(d)
		}
		l.Render(os.Stdout, diag.FormatText)
	}
}
