// Package cli_templates generates new weft projects: the weft.yaml
// config, the index.html shell, and a set of starter modules.
package cli_templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/weftlabs/weft/cmd/weft/internal/config"
)

// ProjectConfig holds the configuration for a new project.
type ProjectConfig struct {
	Name      string
	Directory string
	Starter   string
	Port      int
	GitInit   bool
}

// StarterGenerator is the interface all starters implement.
type StarterGenerator interface {
	Generate(config *ProjectConfig) error
	Name() string
	Description() string
}

// Registry holds all available starters.
var Registry = make(map[string]StarterGenerator)

// Register adds a starter to the registry.
func Register(name string, generator StarterGenerator) {
	Registry[name] = generator
}

// Names returns the registered starter names, sorted.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidName reports whether name works as a project directory name.
func ValidName(name string) bool {
	if name == "" || len(name) > 50 {
		return false
	}
	for _, ch := range name {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') || ch == '-' || ch == '_') {
			return false
		}
	}
	return true
}

// Generate creates a project using the configured starter.
func Generate(cfg *ProjectConfig) error {
	generator, exists := Registry[cfg.Starter]
	if !exists {
		return fmt.Errorf("unknown starter: %s", cfg.Starter)
	}

	if cfg.Directory == "" {
		cfg.Directory = cfg.Name
	}

	if err := createBaseStructure(cfg); err != nil {
		return err
	}
	if err := generator.Generate(cfg); err != nil {
		return err
	}
	return createCommonFiles(cfg)
}

// createBaseStructure creates the directory layout all starters share.
func createBaseStructure(cfg *ProjectConfig) error {
	dirs := []string{
		"src",
		"src/components",
		"public",
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(cfg.Directory, dir), 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteFile is a helper to write content to a file.
func WriteFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

// createCommonFiles writes the files every starter gets: the config,
// the entry module, the HTML shell, styles, and repo boilerplate.
func createCommonFiles(cfg *ProjectConfig) error {
	if err := createWeftConfig(cfg); err != nil {
		return err
	}
	if err := createMainModule(cfg); err != nil {
		return err
	}
	if err := createIndexHTML(cfg); err != nil {
		return err
	}
	if err := createBaseStyles(cfg); err != nil {
		return err
	}
	if err := createGitignore(cfg); err != nil {
		return err
	}
	return generateReadme(cfg)
}

func createWeftConfig(cfg *ProjectConfig) error {
	c := config.Default(cfg.Name)
	if cfg.Port != 0 {
		c.Dev.Port = cfg.Port
	}
	return c.Save(cfg.Directory)
}

func createMainModule(cfg *ProjectConfig) error {
	content := `import { mount } from "weft/runtime";
import { App } from "./app.wx";

mount(App, document.getElementById("app"));
`
	return WriteFile(filepath.Join(cfg.Directory, "src/main.wx"), content)
}

func createIndexHTML(cfg *ProjectConfig) error {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <script type="importmap">
    {
        "imports": {
            "weft": "https://esm.sh/@weftlabs/runtime@0.2",
            "weft/runtime": "https://esm.sh/@weftlabs/runtime@0.2"
        }
    }
    </script>
    <link rel="stylesheet" href="/styles.css">
</head>
<body>
    <div id="app"></div>
    <script type="module" src="/main.js"></script>
</body>
</html>
`, cfg.Name)
	return WriteFile(filepath.Join(cfg.Directory, "index.html"), html)
}

func createBaseStyles(cfg *ProjectConfig) error {
	css := `:root {
    color-scheme: light dark;
    font-family: system-ui, sans-serif;
}

body {
    margin: 0 auto;
    max-width: 40rem;
    padding: 2rem 1rem;
    line-height: 1.5;
}

button {
    font: inherit;
    padding: 0.4rem 0.9rem;
    border-radius: 6px;
    border: 1px solid #94a3b8;
    background: transparent;
    cursor: pointer;
}

button:disabled {
    opacity: 0.5;
    cursor: default;
}
`
	return WriteFile(filepath.Join(cfg.Directory, "public/styles.css"), css)
}

func createGitignore(cfg *ProjectConfig) error {
	content := `dist/
node_modules/
`
	return WriteFile(filepath.Join(cfg.Directory, ".gitignore"), content)
}

func generateReadme(cfg *ProjectConfig) error {
	content := fmt.Sprintf(`# %s

A [weft](https://github.com/weftlabs/weft) project.

## Development

    weft dev

Starts the dev server with live reload on the port from weft.yaml.

## Production build

    weft build

Compiles every module under src/ into dist/.
`, cfg.Name)
	return WriteFile(filepath.Join(cfg.Directory, "README.md"), content)
}
