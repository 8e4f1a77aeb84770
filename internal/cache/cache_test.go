package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/weftlabs/weft/internal/diag"
	"github.com/weftlabs/weft/internal/emit"
	"github.com/weftlabs/weft/internal/syntax"
)

func writeInputs(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("export const X = <p>"+name+"</p>;"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func art(js string) *Artifact {
	return &Artifact{JS: js}
}

func TestCache_GetPut(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir, MaxSize: 1 << 20, MaxAge: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	inputs := writeInputs(t, dir, "app.wx")

	if err := c.Put("key", art("const a = 1;\n"), inputs); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get("key")
	if !ok {
		t.Fatal("artifact not found after put")
	}
	if got.JS != "const a = 1;\n" {
		t.Errorf("JS = %q", got.JS)
	}

	if _, ok := c.Get("absent"); ok {
		t.Error("found a key that was never stored")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCache_StaleInputIsAMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	inputs := writeInputs(t, dir, "app.wx", "dep.wx")

	if err := c.Put("key", art("old"), inputs); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("key"); !ok {
		t.Fatal("fresh entry not served")
	}

	// editing a transitive input must invalidate the artifact
	if err := os.WriteFile(inputs[1], []byte("export const X = <p>edited</p>;"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("key"); ok {
		t.Error("stale artifact served after input edit")
	}
	if stats := c.Stats(); stats.Entries != 0 {
		t.Errorf("stale entry not dropped: %+v", stats)
	}
}

func TestCache_MissingInputIsAMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	inputs := writeInputs(t, dir, "app.wx", "dep.wx")

	if err := c.Put("key", art("out"), inputs); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(inputs[1]); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("key"); ok {
		t.Error("artifact served after an input was deleted")
	}
}

func TestCache_Delete(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	inputs := writeInputs(t, dir, "app.wx")

	c.Put("key", art("data"), inputs)
	if _, ok := c.Get("key"); !ok {
		t.Fatal("not found after put")
	}
	if err := c.Delete("key"); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("key"); ok {
		t.Error("found after delete")
	}
	if err := c.Delete("key"); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}
}

func TestCache_EvictLRU(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir, MaxSize: 250, Policy: EvictLRU})
	if err != nil {
		t.Fatal(err)
	}
	inputs := writeInputs(t, dir, "app.wx")
	big := strings.Repeat("a", 40)

	c.Put("key1", art(big), inputs)
	time.Sleep(10 * time.Millisecond)
	c.Put("key2", art(big), inputs)
	time.Sleep(10 * time.Millisecond)

	// reading key1 makes key2 the coldest entry
	c.Get("key1")
	time.Sleep(10 * time.Millisecond)
	c.Put("key3", art(big), inputs)

	if _, ok := c.Get("key1"); !ok {
		t.Error("key1 evicted")
	}
	if _, ok := c.Get("key2"); ok {
		t.Error("key2 survived")
	}
	if _, ok := c.Get("key3"); !ok {
		t.Error("key3 missing")
	}
	if stats := c.Stats(); stats.Evictions != 1 {
		t.Errorf("evictions = %d", stats.Evictions)
	}
}

func TestCache_EvictLFU(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir, MaxSize: 250, Policy: EvictLFU})
	if err != nil {
		t.Fatal(err)
	}
	inputs := writeInputs(t, dir, "app.wx")
	big := strings.Repeat("b", 40)

	c.Put("key1", art(big), inputs)
	c.Put("key2", art(big), inputs)
	c.Get("key1")
	c.Get("key1")
	c.Get("key1")
	c.Get("key2")
	c.Put("key3", art(big), inputs)

	if _, ok := c.Get("key1"); !ok {
		t.Error("key1 evicted")
	}
	if _, ok := c.Get("key2"); ok {
		t.Error("key2 survived")
	}
}

func TestCache_EvictFIFO(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir, MaxSize: 250, Policy: EvictFIFO})
	if err != nil {
		t.Fatal(err)
	}
	inputs := writeInputs(t, dir, "app.wx")
	big := strings.Repeat("c", 40)

	c.Put("key1", art(big), inputs)
	time.Sleep(10 * time.Millisecond)
	c.Put("key2", art(big), inputs)
	time.Sleep(10 * time.Millisecond)

	// reads do not save the oldest entry under FIFO
	c.Get("key1")
	c.Get("key1")
	c.Put("key3", art(big), inputs)

	if _, ok := c.Get("key1"); ok {
		t.Error("key1 survived")
	}
	if _, ok := c.Get("key2"); !ok {
		t.Error("key2 evicted")
	}
}

func TestCache_Expiration(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir, MaxAge: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	inputs := writeInputs(t, dir, "app.wx")

	c.Put("key", art("short lived"), inputs)
	if _, ok := c.Get("key"); !ok {
		t.Fatal("not found immediately after put")
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("key"); ok {
		t.Error("expired artifact served")
	}
}

func TestCache_InvalidateDeps(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	paths := writeInputs(t, dir, "a.wx", "b.wx", "c.wx")

	c.Put("e1", art("1"), []string{paths[0], paths[1]})
	c.Put("e2", art("2"), []string{paths[1], paths[2]})
	c.Put("e3", art("3"), []string{paths[2]})

	if n := c.InvalidateDeps(paths[1]); n != 2 {
		t.Errorf("invalidated %d entries, want 2", n)
	}
	if _, ok := c.Get("e1"); ok {
		t.Error("e1 survived")
	}
	if _, ok := c.Get("e2"); ok {
		t.Error("e2 survived")
	}
	if _, ok := c.Get("e3"); !ok {
		t.Error("e3 dropped")
	}
}

func TestCache_InvalidateDepsDirectory(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: filepath.Join(dir, "cache")})
	if err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "src")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	inside := writeInputs(t, sub, "a.wx")
	outside := writeInputs(t, dir, "b.wx")

	c.Put("in", art("1"), inside)
	c.Put("out", art("2"), outside)

	if n := c.InvalidateDeps(sub); n != 1 {
		t.Errorf("invalidated %d entries, want 1", n)
	}
	if _, ok := c.Get("out"); !ok {
		t.Error("entry outside the directory dropped")
	}
}

func TestCache_Clear(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	inputs := writeInputs(t, dir, "app.wx")
	for i := 0; i < 10; i++ {
		c.Put(fmt.Sprintf("key%d", i), art(fmt.Sprintf("data%d", i)), inputs)
	}
	if stats := c.Stats(); stats.Entries != 10 {
		t.Fatalf("entries = %d", stats.Entries)
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	stats := c.Stats()
	if stats.Entries != 0 || stats.Size != 0 {
		t.Errorf("stats after clear = %+v", stats)
	}
	left, err := os.ReadDir(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("%d object files left after clear", len(left))
	}
}

func TestCache_Persistence(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir, "app.wx")

	first, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	stored := &Artifact{
		JS:        "export {};\n",
		SourceMap: `{"version":3}`,
		Stats:     emit.Stats{Templates: 1, Parts: 2, CallSites: 1},
		Diags: []diag.Diagnostic{
			diag.New(diag.Warning, diag.CodeUnresolved, inputs[0], syntax.Pos{Line: 3, Col: 5}, "cannot resolve 'List'"),
		},
	}
	if err := first.Put("key", stored, inputs); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := second.Get("key")
	if !ok {
		t.Fatal("artifact lost across reopen")
	}
	if got.JS != stored.JS || got.SourceMap != stored.SourceMap {
		t.Errorf("artifact = %+v", got)
	}
	if got.Stats.Templates != 1 || got.Stats.Parts != 2 {
		t.Errorf("stats = %+v", got.Stats)
	}
	if len(got.Diags) != 1 {
		t.Fatalf("diags = %+v", got.Diags)
	}
	d := got.Diags[0]
	if d.Severity != diag.Warning || d.Line != 3 || !strings.Contains(d.Msg, "List") {
		t.Errorf("diagnostic = %+v", d)
	}
}

func TestCache_ForeignIndexStartsCold(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.json")
	if err := os.WriteFile(index, []byte(`{"version":"weft/0","entries":{"key":{}}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if stats := c.Stats(); stats.Entries != 0 {
		t.Errorf("entries carried over from a foreign index: %+v", stats)
	}
}

func TestCache_Concurrent(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir, MaxSize: 10 << 20})
	if err != nil {
		t.Fatal(err)
	}
	inputs := writeInputs(t, dir, "app.wx")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j)
				js := fmt.Sprintf("const v = %d;", id*1000+j)
				if err := c.Put(key, art(js), inputs); err != nil {
					t.Errorf("put %s: %v", key, err)
					continue
				}
				got, ok := c.Get(key)
				if !ok {
					t.Errorf("%s not found", key)
					continue
				}
				if got.JS != js {
					t.Errorf("%s = %q, want %q", key, got.JS, js)
				}
				if j%10 == 0 {
					c.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	if stats.Entries < 0 || stats.Size < 0 {
		t.Errorf("inconsistent stats: %+v", stats)
	}
}

func TestKey(t *testing.T) {
	if Key("a", "b", "c") != Key("a", "b", "c") {
		t.Error("same parts produced different keys")
	}
	if Key("a", "b") == Key("a", "c") {
		t.Error("different parts produced the same key")
	}
	// part boundaries matter
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("shifted boundaries produced the same key")
	}
}

func BenchmarkCache_Put(b *testing.B) {
	dir := b.TempDir()
	c, _ := Open(Config{Dir: dir, MaxSize: 100 << 20})
	input := filepath.Join(dir, "app.wx")
	os.WriteFile(input, []byte("export const X = <p>x</p>;"), 0o644)
	a := art(strings.Repeat("x", 10<<10))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Put(fmt.Sprintf("key-%d", i), a, []string{input})
	}
}

func BenchmarkCache_Get(b *testing.B) {
	dir := b.TempDir()
	c, _ := Open(Config{Dir: dir, MaxSize: 100 << 20})
	input := filepath.Join(dir, "app.wx")
	os.WriteFile(input, []byte("export const X = <p>x</p>;"), 0o644)
	a := art(strings.Repeat("x", 10<<10))
	for i := 0; i < 100; i++ {
		c.Put(fmt.Sprintf("key-%d", i), a, []string{input})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(fmt.Sprintf("key-%d", i%100))
	}
}
