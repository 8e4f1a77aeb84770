package bench

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/weftlabs/weft/internal/compiler"
)

// BenchmarkCompileModule measures a full cold compile of one module
func BenchmarkCompileModule(b *testing.B) {
	root := writeSyntheticProject(b, 8)
	path := filepath.Join(root, "components", "card0.wx")
	comp := compiler.New(compiler.Options{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		comp.Reset()
		out, err := comp.CompileFile(path)
		if err != nil {
			b.Fatal(err)
		}
		if out.JS == nil {
			b.Fatalf("fatal diagnostics: %s", out.Diags.Summary())
		}
	}
}

// BenchmarkCompileProject measures a cold whole-project compile with one
// worker per CPU
func BenchmarkCompileProject(b *testing.B) {
	root := writeSyntheticProject(b, 60)
	comp := compiler.New(compiler.Options{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		comp.Reset()
		outs, err := comp.CompileDir(root, 0)
		if err != nil {
			b.Fatal(err)
		}
		checkOutputs(b, outs, 61)
	}
}

// BenchmarkCompileProjectSerial is the same walk on a single worker
func BenchmarkCompileProjectSerial(b *testing.B) {
	root := writeSyntheticProject(b, 60)
	comp := compiler.New(compiler.Options{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		comp.Reset()
		outs, err := comp.CompileDir(root, 1)
		if err != nil {
			b.Fatal(err)
		}
		checkOutputs(b, outs, 61)
	}
}

// BenchmarkCompileProjectWarm recompiles with parse and resolution memos
// already populated, the steady state of a watch loop
func BenchmarkCompileProjectWarm(b *testing.B) {
	root := writeSyntheticProject(b, 60)
	comp := compiler.New(compiler.Options{})
	if _, err := comp.CompileDir(root, 0); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		outs, err := comp.CompileDir(root, 0)
		if err != nil {
			b.Fatal(err)
		}
		checkOutputs(b, outs, 61)
	}
}

// BenchmarkCompileSourceMaps measures the overhead of emitting source
// maps alongside the JS
func BenchmarkCompileSourceMaps(b *testing.B) {
	root := writeSyntheticProject(b, 20)
	comp := compiler.New(compiler.Options{SourceMap: true})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		comp.Reset()
		outs, err := comp.CompileDir(root, 0)
		if err != nil {
			b.Fatal(err)
		}
		checkOutputs(b, outs, 21)
	}
}

// TestCompileProjectUnder1s verifies a 60 module project compiles fast
// enough for an interactive watch loop
func TestCompileProjectUnder1s(t *testing.T) {
	root := writeSyntheticProject(t, 60)
	comp := compiler.New(compiler.Options{})

	iterations := 5
	var totalDuration time.Duration

	for i := 0; i < iterations; i++ {
		comp.Reset()
		start := time.Now()

		outs, err := comp.CompileDir(root, 0)
		if err != nil {
			t.Fatal(err)
		}
		checkOutputs(t, outs, 61)

		totalDuration += time.Since(start)
	}

	avgDuration := totalDuration / time.Duration(iterations)

	if avgDuration > time.Second {
		t.Errorf("Compiling 60 modules took %v (average), expected <1s", avgDuration)
	} else {
		t.Logf("✓ Compile 60 modules: %v (average)", avgDuration)
	}
}

func checkOutputs(tb testing.TB, outs []*compiler.Output, want int) {
	tb.Helper()
	if len(outs) != want {
		tb.Fatalf("outputs = %d, want %d", len(outs), want)
	}
	for _, out := range outs {
		if out.JS == nil {
			tb.Fatalf("%s: fatal diagnostics: %s", out.Path, out.Diags.Summary())
		}
	}
}

// writeSyntheticProject lays out an interlinked source tree: n leaf
// components under components/ and a root module that imports and uses
// every one of them.
func writeSyntheticProject(tb testing.TB, modules int) string {
	tb.Helper()
	root := tb.TempDir()
	componentsDir := filepath.Join(root, "components")
	if err := os.MkdirAll(componentsDir, 0o755); err != nil {
		tb.Fatal(err)
	}

	for i := 0; i < modules; i++ {
		src := fmt.Sprintf(`import { defineComponent } from "weft";

export const Card%d = defineComponent((props) => (
  <article class="card c%d {props.tone}">
    <h2 ?hidden={props.compact}>{props.title}</h2>
    <p .innerText={props.body}></p>
    <button @click={props.onOpen}>Open</button>
  </article>
));
`, i, i)
		path := filepath.Join(componentsDir, fmt.Sprintf("card%d.wx", i))
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			tb.Fatal(err)
		}
	}

	var app strings.Builder
	app.WriteString(`import { defineComponent } from "weft";` + "\n")
	for i := 0; i < modules; i++ {
		fmt.Fprintf(&app, "import { Card%d } from \"./components/card%d.wx\";\n", i, i)
	}
	app.WriteString("\nexport const App = defineComponent(() => (\n  <main class=\"grid\">\n")
	for i := 0; i < modules; i++ {
		fmt.Fprintf(&app, "    <Card%d title=\"Card %d\" />\n", i, i)
	}
	app.WriteString("  </main>\n));\n")

	if err := os.WriteFile(filepath.Join(root, "app.wx"), []byte(app.String()), 0o644); err != nil {
		tb.Fatal(err)
	}
	return root
}
