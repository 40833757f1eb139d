package tmplstore

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/CTAG07/Trellis/pkg/views"
	_ "github.com/mattn/go-sqlite3"
)

// setupTestStore opens a fresh database and a Store rooted at a temporary
// directory that is never written to.
func setupTestStore(tb testing.TB) *Store {
	tb.Helper()

	dbFile := filepath.Join(tb.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		tb.Fatalf("failed to set up schema: %v", err)
	}
	// idempotent
	if err := SetupSchema(db); err != nil {
		tb.Fatalf("second SetupSchema failed: %v", err)
	}

	s, err := New(db, filepath.Join(tb.TempDir(), "site"))
	if err != nil {
		tb.Fatalf("New() error = %v", err)
	}
	tb.Cleanup(s.Close)
	s.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return s
}

func mustPut(tb testing.TB, s *Store, files map[string]string) {
	tb.Helper()
	for p, body := range files {
		if err := s.Put(context.Background(), p, []byte(body)); err != nil {
			tb.Fatalf("Put(%s) failed: %v", p, err)
		}
	}
}

func TestStoreFileSystem(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	if ok, err := s.Exists(ctx, s.Root()); err != nil || ok {
		t.Errorf("empty store root should not exist, got %v, %v", ok, err)
	}

	mustPut(t, s, map[string]string{
		"views/home.html":        "home",
		"views/blog/post.html":   "post",
		"partials/nav/main.html": "nav",
		"viewsextra/x.html":      "x",
	})

	t.Run("ReadFile", func(t *testing.T) {
		body, err := s.ReadFile(ctx, s.Path("views/home.html"))
		if err != nil || string(body) != "home" {
			t.Errorf("ReadFile = %q, %v", body, err)
		}

		_, err = s.ReadFile(ctx, s.Path("views/missing.html"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("expected fs.ErrNotExist, got %v", err)
		}
		var pe *fs.PathError
		if !errors.As(err, &pe) || pe.Path != s.Path("views/missing.html") {
			t.Errorf("expected a PathError naming the file, got %v", err)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		tests := []struct {
			name string
			want bool
		}{
			{s.Root(), true},
			{s.Path("views"), true},
			{s.Path("views/blog"), true},
			{s.Path("views/home.html"), true},
			{s.Path("views/home"), false},
			{s.Path("view"), false},
			{s.Path("layouts"), false},
			{filepath.Join(s.Root(), "..", "outside"), false},
		}
		for _, tt := range tests {
			ok, err := s.Exists(ctx, tt.name)
			if err != nil {
				t.Fatalf("Exists(%s) failed: %v", tt.name, err)
			}
			if ok != tt.want {
				t.Errorf("Exists(%s) = %v, want %v", tt.name, ok, tt.want)
			}
		}
	})

	t.Run("IsFile", func(t *testing.T) {
		for name, want := range map[string]bool{
			s.Root():                       false,
			s.Path("views"):                false,
			s.Path("views/blog"):           false,
			s.Path("views/home.html"):      true,
			s.Path("views/blog/post.html"): true,
			s.Path("views/home"):           false,
		} {
			ok, err := s.IsFile(ctx, name)
			if err != nil {
				t.Fatalf("IsFile(%s) failed: %v", name, err)
			}
			if ok != want {
				t.Errorf("IsFile(%s) = %v, want %v", name, ok, want)
			}
		}
	})

	t.Run("ListFiles", func(t *testing.T) {
		files, err := s.ListFiles(ctx, s.Path("views"))
		if err != nil {
			t.Fatalf("ListFiles failed: %v", err)
		}
		want := []string{s.Path("views/blog/post.html"), s.Path("views/home.html")}
		if !reflect.DeepEqual(files, want) {
			t.Errorf("ListFiles = %v, want %v", files, want)
		}

		all, err := s.ListFiles(ctx, s.Root())
		if err != nil || len(all) != 4 {
			t.Errorf("expected 4 files below the root, got %v, %v", all, err)
		}
	})
}

func TestStorePutDelete(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	mustPut(t, s, map[string]string{"views/home.html": "v1"})
	mustPut(t, s, map[string]string{"/views/./home.html": "version 2"})

	entries, err := s.List(ctx, "views")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "views/home.html" || entries[0].Size != len("version 2") {
		t.Errorf("unexpected entries %+v", entries)
	}
	if entries[0].UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}

	for _, bad := range []string{"../escape.html", "", "views/../../x"} {
		if err := s.Put(ctx, bad, []byte("x")); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Put(%q) = %v, want ErrInvalidPath", bad, err)
		}
	}

	removed, err := s.Delete(ctx, "views/home.html")
	if err != nil || !removed {
		t.Errorf("Delete = %v, %v; want true, nil", removed, err)
	}
	removed, err = s.Delete(ctx, "views/home.html")
	if err != nil || removed {
		t.Errorf("second Delete = %v, %v; want false, nil", removed, err)
	}
}

func TestStoreImport(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	src := t.TempDir()
	files := map[string]string{
		"views/home.html":     "home",
		"layouts/main.html":   "{{body}}",
		"partials/.hidden":    "skipped",
		"partials/hello.html": "hello",
		"README.md":           "not a template",
	}
	for name, content := range files {
		p := filepath.Join(src, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	isHTML := func(name string) bool { return filepath.Ext(name) == ".html" }
	n, err := s.Import(ctx, views.OSFileSystem{}, src, isHTML)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 imported templates, got %d", n)
	}

	entries, _ := s.List(ctx, "")
	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	if want := []string{"layouts/main.html", "partials/hello.html", "views/home.html"}; !reflect.DeepEqual(paths, want) {
		t.Errorf("stored paths = %v, want %v", paths, want)
	}
}

// TestStoreRender drives a Renderer entirely from the database.
func TestStoreRender(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	mustPut(t, s, map[string]string{
		"views/home.html":        "---\ntitle: Home\n---\n{{partial \"navMain\" .title}} Hello, {{.name}}!",
		"layouts/main.html":      "<main>{{body}}</main>",
		"partials/nav/main.html": "<nav>{{.}}</nav>",
	})

	cfg := views.DefaultConfig()
	cfg.Root = s.Root()
	cfg.FileSystem = s
	cfg.DefaultLayout = "main"
	r, err := views.New(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	if err != nil {
		t.Fatalf("views.New failed: %v", err)
	}

	out, err := r.Render(ctx, "home", views.Locals{"name": "World"}, nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if want := "<main><nav>Home</nav> Hello, World!</main>"; out != want {
		t.Errorf("Render = %q, want %q", out, want)
	}

	mustPut(t, s, map[string]string{"views/home.html": "changed"})
	if out, _ := r.Render(ctx, "home", nil, nil); out == "<main>changed</main>" {
		t.Error("expected the cached template until it is invalidated")
	}
	r.Invalidate(s.Path("views/home.html"))
	if out, _ := r.Render(ctx, "home", nil, nil); out != "<main>changed</main>" {
		t.Errorf("expected the updated template after Invalidate, got %q", out)
	}

	if _, err := r.Render(ctx, "missing", nil, nil); !errors.Is(err, views.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func BenchmarkStoreReadFile(b *testing.B) {
	ctx := context.Background()
	s := setupTestStore(b)
	mustPut(b, s, map[string]string{"views/home.html": "home"})
	name := s.Path("views/home.html")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.ReadFile(ctx, name); err != nil {
			b.Fatal(err)
		}
	}
}
