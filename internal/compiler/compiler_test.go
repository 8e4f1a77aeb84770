package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/weftlabs/weft/internal/diag"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

const mainSrc = `import { defineComponent } from "weft";
import { Badge } from "./badge.wx";

export const Panel = defineComponent(({ user }) => (
  <section class="panel">
    <h2>{user.name}</h2>
    <Badge level={user.level}/>
  </section>
));
`

const badgeSrc = `import { defineComponent } from "weft";
export const Badge = defineComponent(({ level }) => <span class="badge">{level}</span>);
`

func TestCompileFile(t *testing.T) {
	dir := writeTree(t, map[string]string{"main.wx": mainSrc, "badge.wx": badgeSrc})
	c := New(Options{SourceMap: true})

	out, err := c.CompileFile(filepath.Join(dir, "main.wx"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", out.Diags.Summary())
	}
	js := string(out.JS)
	for _, want := range []string{
		`import * as __weft from "weft/runtime";`,
		`<section class=\"panel\"><h2><!--$w0$--></h2><!--$w1$--></section>`,
		`__weft.bind(__weft$t0, [user.name, Badge({level: user.level})])`,
		`from "./badge.js"`,
		`//# sourceMappingURL=main.js.map`,
	} {
		if !strings.Contains(js, want) {
			t.Errorf("output missing %q\n%s", want, js)
		}
	}
	if out.Stats.Templates != 1 || out.Stats.CallSites != 1 {
		t.Errorf("stats = %+v", out.Stats)
	}
	wantDeps := []string{filepath.Join(dir, "main.wx"), filepath.Join(dir, "badge.wx")}
	if len(out.Deps) != 2 || out.Deps[0] != wantDeps[0] || out.Deps[1] != wantDeps[1] {
		t.Errorf("deps = %v, want %v", out.Deps, wantDeps)
	}
	if !strings.Contains(string(out.SourceMap), `"version":3`) {
		t.Errorf("source map = %s", out.SourceMap)
	}
}

func TestCompileFile_StructureViolationIsFatal(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"bad.wx": `export const V = <div><li>x</li></div>;`,
	})
	c := New(Options{})
	out, err := c.CompileFile(filepath.Join(dir, "bad.wx"))
	if err != nil {
		t.Fatal(err)
	}
	if out.JS != nil {
		t.Error("fatal file must not produce output")
	}
	if !out.Diags.HasErrors() {
		t.Fatal("want a fatal diagnostic")
	}
	d := out.Diags.All()[0]
	if d.Severity != diag.Fatal || !strings.Contains(d.Msg, "<li>") || !strings.Contains(d.Msg, "<div>") {
		t.Errorf("diagnostic = %+v", d)
	}
}

func TestCompileFile_ParseError(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"broken.wx": "const V = <div>\n  <span>x</div>;\n",
	})
	c := New(Options{})
	out, err := c.CompileFile(filepath.Join(dir, "broken.wx"))
	if err != nil {
		t.Fatalf("parse failures are diagnostics, not errors: %v", err)
	}
	if out.JS != nil {
		t.Error("broken file must not produce output")
	}
	d := out.Diags.All()[0]
	if d.Code != diag.CodeSyntax || d.Line == 0 {
		t.Errorf("diagnostic = %+v", d)
	}
}

func TestCompileFile_MissingFile(t *testing.T) {
	c := New(Options{})
	if _, err := c.CompileFile(filepath.Join(t.TempDir(), "nope.wx")); err == nil {
		t.Fatal("want an I/O error")
	}
}

func TestCompileDir(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.wx":              `export const A = <p>a</p>;`,
		"sub/b.wx":          `export const B = <p>b</p>;`,
		"notes.txt":         "not code",
		"node_modules/x.wx": "!!! never compiled",
		".cache/y.wx":       "!!! never compiled",
	})
	c := New(Options{})
	outs, err := c.CompileDir(dir, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 2 {
		t.Fatalf("outputs = %d, want 2", len(outs))
	}
	if !strings.HasSuffix(outs[0].Path, "a.wx") || !strings.HasSuffix(outs[1].Path, filepath.Join("sub", "b.wx")) {
		t.Errorf("order = %s, %s", outs[0].Path, outs[1].Path)
	}
	for _, out := range outs {
		if out.Diags.HasErrors() || out.JS == nil {
			t.Errorf("%s failed: %s", out.Path, out.Diags.Summary())
		}
	}
}

func TestCompiler_Invalidate(t *testing.T) {
	dir := writeTree(t, map[string]string{"main.wx": mainSrc, "badge.wx": badgeSrc})
	mainPath := filepath.Join(dir, "main.wx")
	badgePath := filepath.Join(dir, "badge.wx")
	c := New(Options{})

	first, err := c.CompileFile(mainPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(first.JS), "Badge({level: user.level})") {
		t.Fatalf("expected component call:\n%s", first.JS)
	}

	// badge.wx becomes an element definition on disk
	redef := `import { defineElement } from "weft";
export const Badge = defineElement("x-badge");
`
	if err := os.WriteFile(badgePath, []byte(redef), 0o644); err != nil {
		t.Fatal(err)
	}

	// without invalidation the cached resolution still wins
	stale, err := c.CompileFile(mainPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(stale.JS) != string(first.JS) {
		t.Error("output changed without invalidation")
	}

	c.Invalidate(badgePath)
	fresh, err := c.CompileFile(mainPath)
	if err != nil {
		t.Fatal(err)
	}
	js := string(fresh.JS)
	if !strings.Contains(js, "w-dyn1") {
		t.Errorf("expected dynamic tag after invalidation:\n%s", js)
	}
	if strings.Contains(js, "Badge({") {
		t.Errorf("stale component call after invalidation:\n%s", js)
	}
}

func TestOutputName(t *testing.T) {
	if got := OutputName("app/view.wx"); got != "app/view.js" {
		t.Errorf("OutputName = %q", got)
	}
	if got := OutputName("plain"); got != "plain.js" {
		t.Errorf("OutputName = %q", got)
	}
}
