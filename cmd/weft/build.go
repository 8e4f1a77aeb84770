package main

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/weftlabs/weft/cmd/weft/internal/config"
	"github.com/weftlabs/weft/internal/cache"
	"github.com/weftlabs/weft/internal/compiler"
	"github.com/weftlabs/weft/internal/diag"
	"github.com/weftlabs/weft/internal/emit"
)

func newBuildCommand() *cobra.Command {
	var output string
	var sourcemap bool
	var noCache bool
	var workers int
	diagFormat := diag.FormatText

	cmd := &cobra.Command{
		Use:   "build [src]",
		Short: "Compile every .wx module for production",
		Long: `Compiles the source tree into plain JavaScript modules plus source
maps, writing the results into the output directory. Unchanged modules
are served from the artifact cache.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(".")
			if err != nil {
				log.Printf("⚠️  %v (using defaults)", err)
				cfg = config.Default("")
			}
			if len(args) == 1 {
				cfg.Src = args[0]
			}
			if cmd.Flags().Changed("output") {
				cfg.Out = output
			}
			if cmd.Flags().Changed("sourcemap") {
				cfg.SourceMap = sourcemap
			}
			if noCache {
				cfg.Cache.Enabled = false
			}
			return runBuild(cfg, workers, diagFormat)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "dist", "Output directory")
	cmd.Flags().BoolVar(&sourcemap, "sourcemap", true, "Generate source maps")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Compile everything, skip the artifact cache")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel compile workers (0 = one per CPU)")
	cmd.Flags().Var(&diagFormat, "diag-format", "Diagnostic output: text or json")

	return cmd
}

// moduleResult is the per-file outcome of a cache-aware compile.
type moduleResult struct {
	art    *cache.Artifact
	hit    bool
	failed bool
	diags  []diag.Diagnostic
}

func runBuild(cfg *config.Config, workers int, format diag.Format) error {
	start := time.Now()
	log.Println("🚀 Building weft project...")

	if _, err := os.Stat(cfg.Src); err != nil {
		return fmt.Errorf("source directory %q: %w", cfg.Src, err)
	}

	paths, err := listModules(cfg.Src)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Printf("⚠️  No .wx modules under %s", cfg.Src)
	}

	var store *cache.Cache
	if cfg.Cache.Enabled {
		store, err = cache.Open(cacheConfig(cfg.Cache))
		if err != nil {
			log.Printf("⚠️  Artifact cache unavailable: %v", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	// Clean output directory
	if err := os.RemoveAll(cfg.Out); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clean output directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Out, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	comp := compiler.New(compiler.Options{SourceMap: cfg.SourceMap})
	results := make([]moduleResult, len(paths))
	errs := make([]error, len(paths))

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = compileModule(comp, store, cfg, paths[i])
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	all := &diag.List{}
	var fresh, cached, failed int
	var jsTotal, gzTotal int64
	var stats emit.Stats

	for i, p := range paths {
		if errs[i] != nil {
			return fmt.Errorf("compiling %s: %w", p, errs[i])
		}
		res := results[i]
		for _, d := range res.diags {
			all.Add(d)
		}
		if res.failed {
			failed++
			continue
		}
		if res.hit {
			cached++
		} else {
			fresh++
		}
		stats.Templates += res.art.Stats.Templates
		stats.Inline += res.art.Stats.Inline
		stats.Parts += res.art.Stats.Parts
		stats.CallSites += res.art.Stats.CallSites

		rel, err := filepath.Rel(cfg.Src, p)
		if err != nil {
			rel = filepath.Base(p)
		}
		dest := filepath.Join(cfg.Out, compiler.OutputName(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
		}
		if err := os.WriteFile(dest, []byte(res.art.JS), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		jsTotal += int64(len(res.art.JS))
		gzTotal += gzippedLen([]byte(res.art.JS))
		if res.art.SourceMap != "" {
			if err := os.WriteFile(dest+".map", []byte(res.art.SourceMap), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", dest+".map", err)
			}
		}
	}

	// Copy the static shell next to the compiled modules
	if err := copyStaticFiles(cfg.Out); err != nil {
		return fmt.Errorf("failed to copy static files: %w", err)
	}

	all.Sort()
	if all.Len() > 0 {
		if format == diag.FormatJSON {
			all.Render(os.Stdout, format)
		} else {
			all.Render(os.Stderr, format)
		}
	}

	log.Println("\n📊 Build complete!")
	log.Printf("  Modules:     %d compiled, %d from cache", fresh, cached)
	log.Printf("  Templates:   %d hoisted (%d parts), %d inline, %d call sites", stats.Templates, stats.Parts, stats.Inline, stats.CallSites)
	log.Printf("  JS:          %s", formatSize(jsTotal))
	log.Printf("  JS (gzip):   %s", formatSize(gzTotal))
	if store != nil {
		cs := store.Stats()
		log.Printf("  Cache:       %d entries, %s", cs.Entries, formatSize(cs.Size))
	}
	log.Printf("  Time:        %s", time.Since(start).Round(time.Millisecond))
	log.Printf("\n✨ Build output: %s", cfg.Out)

	if failed > 0 || all.HasErrors() {
		return fmt.Errorf("build failed: %s", all.Summary())
	}
	return nil
}

// compileModule compiles one file, going through the artifact cache
// when one is open. Only outputs that survived their diagnostics are
// cached, so a hit is always a successful compile.
func compileModule(comp *compiler.Compiler, store *cache.Cache, cfg *config.Config, path string) (moduleResult, error) {
	key := artifactKey(cfg, path)
	if store != nil {
		if art, ok := store.Get(key); ok {
			return moduleResult{art: art, hit: true, diags: art.Diags}, nil
		}
	}

	out, err := comp.CompileFile(path)
	if err != nil {
		return moduleResult{}, err
	}
	if out.JS == nil {
		return moduleResult{failed: true, diags: out.Diags.All()}, nil
	}

	art := &cache.Artifact{
		JS:        string(out.JS),
		SourceMap: string(out.SourceMap),
		Stats:     out.Stats,
		Diags:     out.Diags.All(),
	}
	if store != nil {
		if err := store.Put(key, art, out.Deps); err != nil {
			log.Printf("⚠️  Failed to cache %s: %v", path, err)
		}
	}
	return moduleResult{art: art, diags: art.Diags}, nil
}

// artifactKey derives the cache key for one module. The tool version
// and every option that changes output are part of the key, so upgrades
// and flag flips never serve stale artifacts.
func artifactKey(cfg *config.Config, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return cache.Key("weft", version, "sourcemap="+strconv.FormatBool(cfg.SourceMap), abs)
}

// listModules collects every .wx file under root, skipping hidden
// directories and node_modules the same way the compiler's own walk
// does.
func listModules(root string) ([]string, error) {
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
	return paths, nil
}

// cacheConfig translates the weft.yaml cache section into cache options.
func cacheConfig(c config.Cache) cache.Config {
	cc := cache.DefaultConfig()
	if c.Dir != "" {
		cc.Dir = c.Dir
	}
	if c.MaxSize > 0 {
		cc.MaxSize = c.MaxSize
	}
	if c.MaxAge != "" {
		age, err := time.ParseDuration(c.MaxAge)
		if err != nil {
			log.Printf("⚠️  Ignoring cache.max_age %q: %v", c.MaxAge, err)
		} else {
			cc.MaxAge = age
		}
	}
	cc.Policy = evictionPolicy(c.Policy)
	return cc
}

func evictionPolicy(name string) cache.Policy {
	switch strings.ToLower(name) {
	case "lfu":
		return cache.EvictLFU
	case "fifo":
		return cache.EvictFIFO
	default:
		return cache.EvictLRU
	}
}

// copyStaticFiles copies the index.html shell and the public directory
// into the output directory when they exist.
func copyStaticFiles(output string) error {
	if data, err := os.ReadFile("index.html"); err == nil {
		if err := os.WriteFile(filepath.Join(output, "index.html"), data, 0644); err != nil {
			return err
		}
	}

	info, err := os.Stat("public")
	if err != nil || !info.IsDir() {
		return nil
	}
	return filepath.Walk("public", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel("public", path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(output, relPath)
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return err
		}
		input, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(destPath, input, 0644)
	})
}

func gzippedLen(data []byte) int64 {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write(data)
	gz.Close()
	return int64(buf.Len())
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
