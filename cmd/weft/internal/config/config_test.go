package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Src != "src" || cfg.Out != "dist" {
		t.Errorf("directories = %q, %q, want src, dist", cfg.Src, cfg.Out)
	}
	if !cfg.SourceMap {
		t.Error("sourcemap should default on")
	}
	if cfg.Dev.Port != 8080 || cfg.Dev.Host != "localhost" {
		t.Errorf("dev = %+v, want port 8080 on localhost", cfg.Dev)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Policy != "lru" {
		t.Errorf("cache = %+v, want enabled lru", cfg.Cache)
	}
	if cfg.Cache.MaxAge != "168h" {
		t.Errorf("cache.max_age = %q, want 168h", cfg.Cache.MaxAge)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	src := `name: demo
src: app
sourcemap: false
dev:
  port: 3000
cache:
  policy: lfu
  max_age: 24h
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "demo" || cfg.Src != "app" {
		t.Errorf("got name %q src %q", cfg.Name, cfg.Src)
	}
	if cfg.SourceMap {
		t.Error("sourcemap should be off")
	}
	if cfg.Dev.Port != 3000 {
		t.Errorf("dev.port = %d, want 3000", cfg.Dev.Port)
	}
	if cfg.Dev.Host != "localhost" {
		t.Errorf("unset dev.host = %q, want default localhost", cfg.Dev.Host)
	}
	if cfg.Cache.Policy != "lfu" || cfg.Cache.MaxAge != "24h" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("WEFT_DEV_PORT", "4000")
	t.Setenv("WEFT_OUT", "public")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dev.Port != 4000 {
		t.Errorf("dev.port = %d, want 4000 from WEFT_DEV_PORT", cfg.Dev.Port)
	}
	if cfg.Out != "public" {
		t.Errorf("out = %q, want public from WEFT_OUT", cfg.Out)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := Default("roundtrip")
	want.Dev.Port = 9090
	if err := want.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "roundtrip" || got.Dev.Port != 9090 {
		t.Errorf("got %+v", got)
	}
	if got.Cache.MaxSize != want.Cache.MaxSize || got.Cache.MaxAge != want.Cache.MaxAge {
		t.Errorf("cache round trip lost values: %+v", got.Cache)
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("src: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error for malformed yaml")
	}
}
