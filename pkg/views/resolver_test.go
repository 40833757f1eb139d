package views

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// pageStrategy keeps each view in a directory of its own.
type pageStrategy struct{ DefaultStrategy }

func (pageStrategy) ResolveView(id string) string {
	return filepath.Join(id, "template")
}

// absoluteStrategy resolves every id below a fixed directory.
type absoluteStrategy struct {
	DefaultStrategy
	dir string
}

func (s absoluteStrategy) ResolveView(id string) string   { return filepath.Join(s.dir, "v-"+id) }
func (s absoluteStrategy) ResolveLayout(id string) string { return filepath.Join(s.dir, "l-"+id) }

func TestPaths(t *testing.T) {
	r := setupTestRenderer(t, nil)
	root := r.Config().Root

	t.Run("Default", func(t *testing.T) {
		if got, want := r.ViewPath("home"), filepath.Join(root, "views", "home"); got != want {
			t.Errorf("ViewPath = %q, want %q", got, want)
		}
		if got, want := r.LayoutPath("main"), filepath.Join(root, "layouts", "main"); got != want {
			t.Errorf("LayoutPath = %q, want %q", got, want)
		}
		if got, want := r.PartialPath("nav/main.hbs"), filepath.Join(root, "partials", "nav", "main.hbs"); got != want {
			t.Errorf("PartialPath = %q, want %q", got, want)
		}
		if got, want := r.PartialPath(""), filepath.Join(root, "partials"); got != want {
			t.Errorf("PartialPath(\"\") = %q, want %q", got, want)
		}
	})

	t.Run("CustomDirectories", func(t *testing.T) {
		r := setupTestRenderer(t, func(c *Config) {
			c.ViewsDir = "pages"
			c.LayoutsDir = filepath.Join("shared", "layouts")
		})
		root := r.Config().Root
		if got, want := r.ViewPath("home"), filepath.Join(root, "pages", "home"); got != want {
			t.Errorf("ViewPath = %q, want %q", got, want)
		}
		if got, want := r.LayoutPath("main"), filepath.Join(root, "shared", "layouts", "main"); got != want {
			t.Errorf("LayoutPath = %q, want %q", got, want)
		}
	})

	t.Run("OverrideOneMethod", func(t *testing.T) {
		r := setupTestRenderer(t, func(c *Config) {
			c.Strategy = pageStrategy{}
		})
		root := r.Config().Root
		if got, want := r.ViewPath("home"), filepath.Join(root, "views", "home", "template"); got != want {
			t.Errorf("ViewPath = %q, want %q", got, want)
		}
		if got, want := r.LayoutPath("main"), filepath.Join(root, "layouts", "main"); got != want {
			t.Errorf("LayoutPath = %q, want %q", got, want)
		}
	})

	t.Run("AbsoluteResult", func(t *testing.T) {
		dir := t.TempDir()
		r := setupTestRenderer(t, func(c *Config) {
			c.Strategy = absoluteStrategy{dir: dir}
		})
		if got, want := r.ViewPath("home"), filepath.Join(dir, "v-home"); got != want {
			t.Errorf("ViewPath = %q, want %q", got, want)
		}
		if got, want := r.LayoutPath("main"), filepath.Join(dir, "l-main"); got != want {
			t.Errorf("LayoutPath = %q, want %q", got, want)
		}
	})
}

func TestDerivePartialID(t *testing.T) {
	s := DefaultStrategy{Extensions: []string{".hbs", ".md"}}

	tests := []struct {
		file string
		want string
	}{
		{"hello.hbs", "hello"},
		{"nav/main.hbs", "navMain"},
		{"markdown.md", "markdown"},
		{"site-footer.hbs", "siteFooter"},
		{"forms/text_input.hbs", "formsTextInput"},
	}

	for i, tt := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if got := s.DerivePartialID(tt.file); got != tt.want {
				t.Errorf("DerivePartialID(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}

	t.Run("ZeroValue", func(t *testing.T) {
		var s DefaultStrategy
		for file, want := range map[string]string{
			"hello.hbs":    "hello",
			"nav/main.hbs": "navMain",
			"plain":        "plain",
		} {
			if got := s.DerivePartialID(file); got != want {
				t.Errorf("DerivePartialID(%q) = %q, want %q", file, got, want)
			}
		}
	})
}

func TestHasExt(t *testing.T) {
	tests := []struct {
		exts []string
		ext  string
		want bool
	}{
		{[]string{".html"}, ".html", true},
		{[]string{".html"}, "html", true},
		{[]string{"html"}, ".html", true},
		{[]string{"html"}, "html", true},
		{[]string{".html"}, ".HTML", true},
		{[]string{".hbs", ".md"}, ".md", true},
		{[]string{".html"}, ".tmpl", false},
		{[]string{".html"}, "", false},
		{nil, ".html", false},
	}

	for i, tt := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if got := hasExt(tt.exts, tt.ext); got != tt.want {
				t.Errorf("hasExt(%v, %q) = %v, want %v", tt.exts, tt.ext, got, tt.want)
			}
		})
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := normalizeExtensions([]string{"hbs", ".md", "", "."})
	if len(got) != 2 || got[0] != ".hbs" || got[1] != ".md" {
		t.Errorf("normalizeExtensions = %v, want [.hbs .md]", got)
	}

	r := setupTestRenderer(t, func(c *Config) {
		c.Extensions = nil
	})
	if exts := r.Config().Extensions; len(exts) != 1 || exts[0] != ".html" {
		t.Errorf("empty Extensions should fall back to [.html], got %v", exts)
	}
}

func TestFindTemplate(t *testing.T) {
	ctx := context.Background()
	r := setupTestRenderer(t, func(c *Config) {
		c.Extensions = []string{"hbs", ".md"}
	})
	root := r.Config().Root

	t.Run("ProbesExtensions", func(t *testing.T) {
		got, err := r.findTemplate(ctx, r.ViewPath("markdown"))
		if err != nil {
			t.Fatalf("findTemplate failed: %v", err)
		}
		if want := filepath.Join(root, "views", "markdown.md"); got != want {
			t.Errorf("findTemplate = %q, want %q", got, want)
		}
	})

	t.Run("ExplicitExtension", func(t *testing.T) {
		got, err := r.findTemplate(ctx, r.ViewPath("simple.hbs"))
		if err != nil {
			t.Fatalf("findTemplate failed: %v", err)
		}
		if want := filepath.Join(root, "views", "simple.hbs"); got != want {
			t.Errorf("findTemplate = %q, want %q", got, want)
		}
	})

	t.Run("Directory", func(t *testing.T) {
		if err := os.MkdirAll(filepath.Join(root, "views", "folder.hbs"), 0755); err != nil {
			t.Fatal(err)
		}
		file := r.ViewPath("folder")
		_, err := r.findTemplate(ctx, file)
		var nf *NotFoundError
		if !errors.As(err, &nf) || nf.Path != file {
			t.Fatalf("expected a NotFoundError for %s, got %v", file, err)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		file := r.ViewPath("does-not-exist")
		_, err := r.findTemplate(ctx, file)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if want := "could not find template file: " + file; err.Error() != want {
			t.Errorf("error = %q, want %q", err.Error(), want)
		}
	})

	if !r.HasExtension("page.MD") || r.HasExtension("page.txt") {
		t.Error("HasExtension does not match the configured extensions")
	}
}
