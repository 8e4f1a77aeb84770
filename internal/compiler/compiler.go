// Package compiler runs the whole pipeline for a file: parse, resolve,
// classify, validate, build, emit, and map. A Compiler may be shared by
// concurrent compilations; parsed files and resolution results are
// cached under first-writer-wins locking, and Invalidate drops
// everything derived from a changed file.
package compiler

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/weftlabs/weft/internal/classify"
	"github.com/weftlabs/weft/internal/diag"
	"github.com/weftlabs/weft/internal/emit"
	"github.com/weftlabs/weft/internal/patch"
	"github.com/weftlabs/weft/internal/resolve"
	"github.com/weftlabs/weft/internal/sourcemap"
	"github.com/weftlabs/weft/internal/syntax"
	"github.com/weftlabs/weft/internal/template"
	"github.com/weftlabs/weft/internal/validate"
)

// Options configures a Compiler.
type Options struct {
	// Lookup maps (importing file, specifier) to a target path. Nil
	// uses the filesystem resolver.
	Lookup resolve.ModuleResolver

	// SourceMap enables v3 source map generation alongside the output.
	SourceMap bool
}

// Output is the result of compiling one file. JS is nil when the file
// had a fatal diagnostic; Diags always carries whatever was reported.
type Output struct {
	Path      string
	JS        []byte
	SourceMap []byte
	Stats     emit.Stats
	Diags     *diag.List

	// Deps lists every file whose content fed this output, the module
	// itself first. Build caches key their entries on it.
	Deps []string
}

type parsed struct {
	file *syntax.File
	err  error
}

// Compiler compiles .wx modules to .js.
type Compiler struct {
	opts  Options
	cache *resolve.Cache
	res   *resolve.Resolver

	mu    sync.Mutex
	files map[string]parsed
}

func New(opts Options) *Compiler {
	c := &Compiler{
		opts:  opts,
		cache: resolve.NewCache(),
		files: make(map[string]parsed),
	}
	lookup := opts.Lookup
	if lookup == nil {
		lookup = resolve.DefaultModuleResolver
	}
	c.res = resolve.New(c.cache, c.load, lookup)
	return c
}

// load parses path once per Compiler lifetime. Concurrent first calls
// may both parse; the first stored result wins.
func (c *Compiler) load(path string) (*syntax.File, error) {
	c.mu.Lock()
	if r, ok := c.files[path]; ok {
		c.mu.Unlock()
		return r.file, r.err
	}
	c.mu.Unlock()

	data, err := os.ReadFile(path)
	var f *syntax.File
	if err == nil {
		f, err = syntax.Parse(path, data)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.files[path]; ok {
		return r.file, r.err
	}
	c.files[path] = parsed{file: f, err: err}
	return f, err
}

// Invalidate drops cached state derived from path. The host calls this
// whenever the file's on-disk contents change.
func (c *Compiler) Invalidate(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	c.mu.Lock()
	delete(c.files, path)
	c.mu.Unlock()
	c.cache.ClearFile(path)
}

// Reset clears all cached state, for a clean run.
func (c *Compiler) Reset() {
	c.mu.Lock()
	c.files = make(map[string]parsed)
	c.mu.Unlock()
	c.cache.ClearAll()
}

// CompileFile compiles one module. The returned error covers I/O
// failures only; compile problems, including fatal ones, arrive as
// diagnostics on the Output.
func (c *Compiler) CompileFile(path string) (*Output, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	out := &Output{Path: abs, Diags: &diag.List{}}

	f, err := c.load(abs)
	if err != nil {
		var perr *syntax.Error
		if errors.As(err, &perr) {
			out.Diags.Add(diag.New(diag.Fatal, diag.CodeSyntax, perr.Path, perr.Pos, "%s", perr.Msg))
			return out, nil
		}
		return nil, err
	}

	cls := classify.New(c.res, f, out.Diags)
	if !validate.File(f, out.Diags) {
		out.Diags.Sort()
		return out, nil
	}

	src := patch.NewSet(f.Src)
	em := emit.New(f, src, template.NewBuilder(f, cls, src))
	js := em.File()
	out.JS = []byte(js)
	out.Stats = em.Stats()
	out.Deps = append([]string{abs}, c.cache.FileDeps(abs)...)
	out.Diags.Sort()

	if c.opts.SourceMap {
		outBase := filepath.Base(OutputName(abs))
		m := sourcemap.Generate(filepath.Base(abs), outBase, f.Src, src.Maximal())
		data, err := m.JSON()
		if err != nil {
			return nil, err
		}
		out.SourceMap = data
		if len(out.JS) > 0 && out.JS[len(out.JS)-1] != '\n' {
			out.JS = append(out.JS, '\n')
		}
		out.JS = append(out.JS, []byte("//# sourceMappingURL="+outBase+".map\n")...)
	}
	return out, nil
}

// CompileDir compiles every .wx file under root using the given worker
// count (0 means one per CPU) and returns outputs in path order.
// Hidden directories and node_modules are skipped.
func (c *Compiler) CompileDir(root string, workers int) ([]*Output, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if p != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(p, ".wx") {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	outs := make([]*Output, len(paths))
	errs := make([]error, len(paths))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outs[i], errs[i] = c.CompileFile(paths[i])
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return outs, nil
}

// OutputName maps a source path to its compiled name: view.wx becomes
// view.js.
func OutputName(path string) string {
	if strings.HasSuffix(path, ".wx") {
		return strings.TrimSuffix(path, ".wx") + ".js"
	}
	return path + ".js"
}
