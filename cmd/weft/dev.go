package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/weftlabs/weft/cmd/weft/internal/config"
	"github.com/weftlabs/weft/internal/cache"
	"github.com/weftlabs/weft/internal/compiler"
	"github.com/weftlabs/weft/internal/diag"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

func newDevCommand() *cobra.Command {
	var port int
	var host string
	var open bool

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Compiles the project, serves the output directory, and watches the
source tree. Edits recompile what changed and connected browsers reload
over a websocket.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(".")
			if err != nil {
				log.Printf("⚠️  %v (using defaults)", err)
				cfg = config.Default("")
			}
			if cmd.Flags().Changed("port") {
				cfg.Dev.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Dev.Host = host
			}
			if open {
				cfg.Dev.Open = true
			}
			return runDev(cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to serve on")
	cmd.Flags().StringVar(&host, "host", "localhost", "Host to bind")
	cmd.Flags().BoolVar(&open, "open", false, "Open the browser once serving")

	return cmd
}

// devServer owns the watch-compile-reload loop and the HTTP surface
// around it.
type devServer struct {
	cfg      *config.Config
	comp     *compiler.Compiler
	store    *cache.Cache
	watcher  *fsnotify.Watcher
	upgrader websocket.Upgrader

	wsClients map[*websocket.Conn]bool
	wsMutex   sync.Mutex

	buildMutex sync.Mutex

	infoMutex sync.Mutex
	lastBuild buildInfo
}

// buildInfo is what the status page shows about the most recent build.
type buildInfo struct {
	At     time.Time
	Took   time.Duration
	Fresh  int
	Cached int
	Failed int
	Diags  []diag.Diagnostic
}

func runDev(cfg *config.Config) error {
	log.Println("🚀 Starting weft dev server...")

	s := &devServer{
		cfg:       cfg,
		comp:      compiler.New(compiler.Options{SourceMap: cfg.SourceMap}),
		wsClients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	if cfg.Cache.Enabled {
		store, err := cache.Open(cacheConfig(cfg.Cache))
		if err != nil {
			log.Printf("⚠️  Artifact cache unavailable: %v", err)
		} else {
			s.store = store
			defer store.Close()
		}
	}

	if _, err := os.Stat(cfg.Src); err != nil {
		return fmt.Errorf("source directory %q: %w", cfg.Src, err)
	}
	if err := os.MkdirAll(cfg.Out, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := copyStaticFiles(cfg.Out); err != nil {
		return fmt.Errorf("failed to copy static files: %w", err)
	}

	log.Println("📦 Initial build...")
	s.rebuild()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	s.watcher = watcher
	if err := s.setupWatcher(); err != nil {
		return fmt.Errorf("failed to watch source tree: %w", err)
	}
	go s.watchLoop()

	mux := http.NewServeMux()
	mux.HandleFunc("/__weft/ws", s.handleWebSocket)
	mux.HandleFunc("/__weft/status", s.handleStatus)
	mux.HandleFunc("/__weft/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/", s.serveStatic)

	addr := fmt.Sprintf("%s:%d", cfg.Dev.Host, cfg.Dev.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Println("\n👋 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	url := fmt.Sprintf("http://%s", addr)
	log.Printf("🌐 Dev server running at %s", url)
	log.Printf("   Status page at %s/__weft/status", url)
	if cfg.Dev.Open {
		openBrowser(url)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dev server: %w", err)
	}
	return nil
}

// setupWatcher registers every directory under the source tree, plus
// the project root for weft.yaml and index.html edits, plus public.
func (s *devServer) setupWatcher() error {
	addTree := func(root string) error {
		return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}
			name := info.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return s.watcher.Add(path)
		})
	}

	if err := addTree(s.cfg.Src); err != nil {
		return err
	}
	if err := s.watcher.Add("."); err != nil {
		return err
	}
	if info, err := os.Stat("public"); err == nil && info.IsDir() {
		if err := addTree("public"); err != nil {
			return err
		}
	}
	return nil
}

// watchLoop coalesces watcher events with a 100ms debounce so editor
// save bursts trigger one rebuild.
func (s *devServer) watchLoop() {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	var pendingEvents []fsnotify.Event

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			pendingEvents = append(pendingEvents, event)
			debounce.Reset(100 * time.Millisecond)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  Watcher error: %v", err)
		case <-debounce.C:
			if len(pendingEvents) > 0 {
				events := pendingEvents
				pendingEvents = nil
				s.handleFileChanges(events)
			}
		}
	}
}

// handleFileChanges sorts a debounced batch of events into module
// edits, static shell edits, and config edits, then rebuilds once.
func (s *devServer) handleFileChanges(events []fsnotify.Event) {
	outAbs, _ := filepath.Abs(s.cfg.Out)

	rebuildNeeded := false
	staticChanged := false
	configChanged := false

	for _, ev := range events {
		abs, err := filepath.Abs(ev.Name)
		if err != nil {
			abs = ev.Name
		}
		if abs == outAbs || strings.HasPrefix(abs, outAbs+string(filepath.Separator)) {
			continue
		}

		switch {
		case filepath.Base(ev.Name) == config.FileName:
			configChanged = true
		case filepath.Base(ev.Name) == "index.html" && filepath.Dir(ev.Name) == ".":
			staticChanged = true
		case strings.HasPrefix(ev.Name, "public"+string(filepath.Separator)):
			staticChanged = true
		case strings.HasSuffix(ev.Name, ".wx"):
			log.Printf("🔄 %s changed", ev.Name)
			s.comp.Invalidate(abs)
			if s.store != nil {
				if n := s.store.InvalidateDeps(abs); n > 0 {
					log.Printf("♻️  Dropped %d dependent artifacts", n)
				}
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				s.removeOutputs(ev.Name)
			}
			rebuildNeeded = true
		default:
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if s.addDirWatch(ev.Name) {
						rebuildNeeded = true
					}
				}
			}
		}
	}

	if configChanged {
		log.Println("⚠️  weft.yaml changed; restart the dev server to apply it")
	}
	if rebuildNeeded {
		s.rebuild()
		return
	}
	if staticChanged {
		if err := copyStaticFiles(s.cfg.Out); err != nil {
			log.Printf("⚠️  Failed to copy static files: %v", err)
			return
		}
		log.Println("✅ Static files updated")
		s.notifyClients("reload", nil)
	}
}

// addDirWatch registers a directory that appeared under the source
// tree after startup. Reports whether it was added.
func (s *devServer) addDirWatch(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || name == "node_modules" {
		return false
	}
	rel, err := filepath.Rel(s.cfg.Src, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	if err := s.watcher.Add(path); err != nil {
		log.Printf("⚠️  Cannot watch %s: %v", path, err)
		return false
	}
	return true
}

// removeOutputs deletes the compiled artifacts of a removed module.
func (s *devServer) removeOutputs(path string) {
	rel, err := filepath.Rel(s.cfg.Src, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	dest := filepath.Join(s.cfg.Out, compiler.OutputName(rel))
	os.Remove(dest)
	os.Remove(dest + ".map")
}

// rebuild recompiles the tree and tells connected browsers what
// happened. The build mutex serializes bursts of watcher batches.
func (s *devServer) rebuild() {
	s.buildMutex.Lock()
	defer s.buildMutex.Unlock()

	info, err := s.compileTree()
	if err != nil {
		log.Printf("❌ Build error: %v", err)
		s.notifyClients("error", err.Error())
		return
	}

	l := listOf(info.Diags)
	if info.Failed > 0 || l.HasErrors() {
		var buf bytes.Buffer
		l.Render(&buf, diag.FormatText)
		os.Stderr.Write(buf.Bytes())
		log.Printf("❌ Build failed: %s", l.Summary())
		s.notifyClients("error", buf.String())
		return
	}
	if l.Len() > 0 {
		l.Render(os.Stderr, diag.FormatText)
	}
	log.Printf("✅ Build complete in %s (%d compiled, %d from cache)",
		info.Took.Round(time.Millisecond), info.Fresh, info.Cached)
	s.notifyClients("reload", nil)
}

// compileTree compiles every module under Src into Out through the
// artifact cache and records the result for the status page.
func (s *devServer) compileTree() (buildInfo, error) {
	start := time.Now()
	paths, err := listModules(s.cfg.Src)
	if err != nil {
		return buildInfo{}, err
	}

	results := make([]moduleResult, len(paths))
	errs := make([]error, len(paths))
	workers := runtime.NumCPU()
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
				results[i], errs[i] = compileModule(s.comp, s.store, s.cfg, paths[i])
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	info := buildInfo{At: start}
	all := &diag.List{}
	for i, p := range paths {
		if errs[i] != nil {
			return info, fmt.Errorf("compiling %s: %w", p, errs[i])
		}
		res := results[i]
		for _, d := range res.diags {
			all.Add(d)
		}
		if res.failed {
			info.Failed++
			continue
		}
		if res.hit {
			info.Cached++
		} else {
			info.Fresh++
		}

		rel, err := filepath.Rel(s.cfg.Src, p)
		if err != nil {
			rel = filepath.Base(p)
		}
		dest := filepath.Join(s.cfg.Out, compiler.OutputName(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return info, err
		}
		if err := os.WriteFile(dest, []byte(res.art.JS), 0644); err != nil {
			return info, err
		}
		if res.art.SourceMap != "" {
			if err := os.WriteFile(dest+".map", []byte(res.art.SourceMap), 0644); err != nil {
				return info, err
			}
		}
	}
	all.Sort()
	info.Diags = all.All()
	info.Took = time.Since(start)

	s.infoMutex.Lock()
	s.lastBuild = info
	s.infoMutex.Unlock()
	return info, nil
}

func listOf(diags []diag.Diagnostic) *diag.List {
	l := &diag.List{}
	for _, d := range diags {
		l.Add(d)
	}
	return l
}

// handleWebSocket registers a browser for reload notifications.
func (s *devServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("⚠️  WebSocket upgrade failed: %v", err)
		return
	}

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		conn.Close()
	}()

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "hello" {
			conn.WriteJSON(map[string]string{"type": "ack"})
		}
	}
}

// notifyClients broadcasts one message to every connected browser.
func (s *devServer) notifyClients(msgType string, data any) {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	message := map[string]any{"type": msgType}
	if data != nil {
		message["data"] = data
	}
	for client := range s.wsClients {
		if err := client.WriteJSON(message); err != nil {
			client.Close()
			delete(s.wsClients, client)
		}
	}
}

// serveStatic serves the output directory with dev headers and the
// reload client injected into HTML responses.
func (s *devServer) serveStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}
	if strings.Contains(path, "..") {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	full := filepath.Join(s.cfg.Out, filepath.FromSlash(path))
	data, err := os.ReadFile(full)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch filepath.Ext(full) {
	case ".html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case ".js", ".mjs":
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	case ".map", ".json":
		w.Header().Set("Content-Type", "application/json")
	case ".css":
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	case ".svg":
		w.Header().Set("Content-Type", "image/svg+xml")
	}
	w.Header().Set("Cache-Control", "no-cache")

	if strings.HasSuffix(full, ".html") {
		data = injectReloadScript(data)
	}
	w.Write(data)
}

// injectReloadScript adds the live reload client before </body>, or at
// the end when the page has no body close tag.
func injectReloadScript(html []byte) []byte {
	script := []byte("<script>" + reloadClientJS + "</script>\n")
	if i := bytes.LastIndex(html, []byte("</body>")); i >= 0 {
		out := make([]byte, 0, len(html)+len(script))
		out = append(out, html[:i]...)
		out = append(out, script...)
		out = append(out, html[i:]...)
		return out
	}
	return append(html, script...)
}

const reloadClientJS = `(() => {
	let retry = 0;
	const connect = () => {
		const ws = new WebSocket("ws://" + location.host + "/__weft/ws");
		ws.onopen = () => { retry = 0; ws.send(JSON.stringify({type: "hello"})); };
		ws.onmessage = (e) => {
			const msg = JSON.parse(e.data);
			if (msg.type === "reload") location.reload();
			if (msg.type === "error") console.error("[weft] build failed\n" + msg.data);
		};
		ws.onclose = () => setTimeout(connect, Math.min(1000 * ++retry, 5000));
	};
	connect();
})();`

// handleStatus renders the dev server overview page.
func (s *devServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.infoMutex.Lock()
	info := s.lastBuild
	s.infoMutex.Unlock()

	name := s.cfg.Name
	if name == "" {
		name = "weft project"
	}

	l := listOf(info.Diags)
	body := []g.Node{
		h.H1(g.Text(name)),
		h.P(g.Textf("Serving %s on %s:%d", s.cfg.Out, s.cfg.Dev.Host, s.cfg.Dev.Port)),
		h.H2(g.Text("Last build")),
		h.Ul(
			h.Li(g.Textf("finished %s, took %s", info.At.Format("15:04:05"), info.Took.Round(time.Millisecond))),
			h.Li(g.Textf("%d compiled, %d from cache, %d failed", info.Fresh, info.Cached, info.Failed)),
			h.Li(h.A(h.Href("/__weft/diagnostics"), g.Text(l.Summary()))),
		),
	}

	if s.store != nil {
		cs := s.store.Stats()
		body = append(body,
			h.H2(g.Text("Artifact cache")),
			h.Ul(
				h.Li(g.Textf("%d entries, %s on disk", cs.Entries, formatSize(cs.Size))),
				h.Li(g.Textf("%d hits, %d misses, %d evictions", cs.Hits, cs.Misses, cs.Evictions)),
			),
		)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	devPage("weft dev", body...).Render(w)
}

// handleDiagnostics renders the full diagnostic list of the last build.
func (s *devServer) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	s.infoMutex.Lock()
	diags := s.lastBuild.Diags
	s.infoMutex.Unlock()

	var body []g.Node
	body = append(body, h.H1(g.Text("Diagnostics")))
	if len(diags) == 0 {
		body = append(body, h.P(g.Text("No diagnostics.")))
	} else {
		body = append(body, h.Ul(
			g.Map(diags, func(d diag.Diagnostic) g.Node {
				item := []g.Node{
					h.Class("diag " + d.Severity.String()),
					h.Code(g.Textf("%s:%d:%d", relPath(d.Path), d.Line, d.Col)),
					g.Textf(" %s [%s]: %s", d.Severity, d.Code, d.Msg),
				}
				if d.Snippet != "" {
					item = append(item, h.Pre(g.Text(d.Snippet)))
				}
				return h.Li(item...)
			}),
		))
	}
	body = append(body, h.P(h.A(h.Href("/__weft/status"), g.Text("back to status"))))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	devPage("weft diagnostics", body...).Render(w)
}

// devPage is the shared shell of the dev server's HTML pages.
func devPage(title string, body ...g.Node) g.Node {
	return h.HTML(
		h.Lang("en"),
		h.Head(
			h.Meta(h.Charset("utf-8")),
			h.TitleEl(g.Text(title)),
			h.StyleEl(g.Raw(devPageCSS)),
		),
		h.Body(body...),
	)
}

const devPageCSS = `
body { font: 15px/1.5 system-ui, sans-serif; margin: 2rem auto; max-width: 42rem; padding: 0 1rem; color: #1a202c; }
h1 { font-size: 1.4rem; }
h2 { font-size: 1.1rem; margin-top: 1.6rem; }
code, pre { font-family: ui-monospace, monospace; background: #f3f4f6; border-radius: 4px; }
code { padding: 0 4px; }
pre { padding: 8px; overflow-x: auto; }
li.diag { margin-bottom: 0.6rem; list-style: none; border-left: 3px solid #cbd5e0; padding-left: 0.6rem; }
li.diag.warning { border-color: #f59e0b; }
li.diag.error, li.diag.fatal { border-color: #ef4444; }
a { color: #3b82f6; }
`

func relPath(p string) string {
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, p); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return p
}

// openBrowser launches the system browser at url.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("⚠️  Could not open browser: %v", err)
	}
}
