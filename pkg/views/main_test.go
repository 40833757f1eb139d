package views

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// fixtures is the template tree most tests render from.
var fixtures = map[string]string{
	"layouts/main.hbs":              "Layout: {{body}}\n",
	"layouts/empty.hbs":             "Layout: {{layout}}\n{{body}}",
	"layouts/front-matter.hbs":      "Layout, {{.name}}!\n",
	"layouts/front-matter-data.hbs": "---\ngreeting: Layout\nname: Test\n---\n{{.greeting}}, {{.name}}!\n",
	"views/simple.hbs":              "Hello, {{.name}}!\n",
	"views/meta.hbs":                "View: {{view}}\n",
	"views/markdown.md":             "# This is Markdown!\n",
	"views/front-matter.hbs":        "---\nname: World\n---\nHello, {{.name}}!\n",
	"views/greeting.hbs":            "---\ngreeting: View\n---\n{{.greeting}}",
	"views/with-partials.hbs":       `{{partial "hello" .name}} {{partial "navMain" "home"}}`,
	"views/request.hbs":             `{{with data "request"}}{{.Method}} {{.URL.Path}}{{end}} {{.user}}`,
	"partials/hello.hbs":            "Hello, {{.}}!",
	"partials/markdown.md":          "# Markdown partial\n",
	"partials/nav/main.hbs":         "<nav>{{.}}</nav>",
}

// writeTree writes files below a fresh temporary directory and returns it.
func writeTree(tb testing.TB, files map[string]string) string {
	tb.Helper()

	root := tb.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			tb.Fatalf("failed to create dir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			tb.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return root
}

// setupTestRenderer creates a Renderer over a copy of fixtures. configure,
// if not nil, adjusts the config before construction.
func setupTestRenderer(tb testing.TB, configure func(c *Config)) *Renderer {
	tb.Helper()

	config := DefaultConfig()
	config.Root = writeTree(tb, fixtures)
	config.Extensions = []string{".hbs"}
	if configure != nil {
		configure(config)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := New(logger, config)
	if err != nil {
		tb.Fatalf("New failed: %v", err)
	}
	return r
}
