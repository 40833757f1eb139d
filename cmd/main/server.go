package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/CTAG07/Trellis/pkg/tmplstore"
	"github.com/CTAG07/Trellis/pkg/views"
	"github.com/natefinch/atomic"
)

// Server wires the view renderer to the public site and the management API.
type Server struct {
	config      *Config
	db          *sql.DB
	logger      *slog.Logger
	renderer    *views.Renderer
	store       *tmplstore.Store // nil unless templates live in the database
	authAPI     *AuthAPI
	templateAPI *TemplateAPI
	serverAPI   *ServerAPI
	siteHandler http.Handler
	apiMux      *http.ServeMux
}

func NewServer(config *Config, configPath string, logger *slog.Logger, db *sql.DB, actionChan chan string) (*Server, error) {
	viewConfig := *config.Views
	viewConfig.Data = map[string]any{"version": Version}

	var (
		store  *tmplstore.Store
		writer templateWriter
		err    error
	)
	switch config.Server.TemplateSource {
	case sourceSQLite:
		if store, err = openTemplateStore(db, viewConfig.Root, logger); err != nil {
			return nil, err
		}
		viewConfig.FileSystem = store
		writer = storeWriter{store: store}
	default:
		if err = ensureDefaultTemplates(&viewConfig, logger); err != nil {
			return nil, fmt.Errorf("failed to write default templates: %w", err)
		}
		writer = diskWriter{}
	}

	renderer, err := views.New(logger, &viewConfig)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("failed to create view renderer: %w", err)
	}

	if store != nil {
		if err = seedTemplateStore(store, renderer, logger); err != nil {
			store.Close()
			return nil, err
		}
	}

	server := &Server{
		config:      config,
		db:          db,
		logger:      logger,
		renderer:    renderer,
		store:       store,
		authAPI:     NewAuthAPI(db, logger),
		templateAPI: NewTemplateAPI(renderer, writer, logger),
		serverAPI:   NewServerAPI(config, configPath, db, renderer, actionChan, logger),
		apiMux:      http.NewServeMux(),
	}

	authedMux := http.NewServeMux()
	server.authAPI.RegisterRoutes(authedMux)
	server.templateAPI.RegisterRoutes(authedMux)
	server.serverAPI.RegisterRoutes(authedMux)

	// the health check stays unauthenticated so container runtimes can use it
	server.apiMux.HandleFunc("/api/health", server.serverAPI.handleHealthCheck)
	server.apiMux.Handle("/api/", server.authAPI.Authenticate(authedMux))

	siteMux := http.NewServeMux()
	siteMux.HandleFunc("/favicon.ico", handleFavicon)
	siteMux.HandleFunc("/", server.handlePage)
	server.siteHandler = renderer.Middleware(siteMux)

	return server, nil
}

// Close releases what NewServer acquired. The database is left open.
func (s *Server) Close() {
	if s.store != nil {
		s.store.Close()
	}
}

// watch keeps the cache in sync with template edits on disk until ctx is
// done. Database-backed templates are invalidated by the API instead.
func (s *Server) watch(ctx context.Context) {
	if !s.config.Server.WatchTemplates || s.store != nil {
		return
	}
	if err := s.renderer.Watch(ctx); err != nil {
		s.logger.Error("Template watcher stopped", "error", err)
	}
}

// handlePage renders the view named by the request path. "/" renders the
// index view.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	id, ok := s.pageID(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	views.SetState(r, "path", r.URL.Path)
	views.SetState(r, "query", queryLocals(r))

	out, err := views.RenderView(r, id, nil, nil)
	if err != nil {
		var nf *views.NotFoundError
		if errors.As(err, &nf) && nf.Path == s.renderer.ViewPath(id) {
			s.logger.Debug("No view for page", "view", id, "path", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	s.setPageHeaders(w)
	_, _ = io.WriteString(w, out)
}

// pageID maps a request path to a view id. Hidden segments, parent
// references and paths naming a file extension are refused.
func (s *Server) pageID(urlPath string) (string, bool) {
	p := strings.Trim(path.Clean("/"+urlPath), "/")
	if p == "" {
		return s.config.Server.IndexView, true
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || strings.HasPrefix(seg, ".") || strings.HasPrefix(seg, "_") {
			return "", false
		}
	}
	if path.Ext(p) != "" {
		return "", false
	}
	return p, true
}

func queryLocals(r *http.Request) map[string]any {
	q := map[string]any{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			q[k] = v[0]
		}
	}
	return q
}

func (s *Server) setPageHeaders(w http.ResponseWriter) {
	for k, v := range s.config.Server.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

// handleFavicon answers favicon requests with no content instead of a
// rendered 404 page.
func handleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// openTemplateStore prepares the database-backed template store rooted at
// root.
func openTemplateStore(db *sql.DB, root string, logger *slog.Logger) (*tmplstore.Store, error) {
	if err := tmplstore.SetupSchema(db); err != nil {
		return nil, fmt.Errorf("failed to setup template schema: %w", err)
	}
	store, err := tmplstore.New(db, root)
	if err != nil {
		return nil, fmt.Errorf("failed to create template store: %w", err)
	}
	store.SetLogger(logger)
	return store, nil
}

// seedTemplateStore fills an empty store on first use: from the templates
// below the configured root if it exists on disk, and from the built-in
// templates otherwise. Files without a template extension are left out.
func seedTemplateStore(store *tmplstore.Store, renderer *views.Renderer, logger *slog.Logger) error {
	ctx := context.Background()
	seeded, err := store.Exists(ctx, store.Root())
	if err != nil {
		return fmt.Errorf("failed to inspect template store: %w", err)
	}
	if seeded {
		return nil
	}

	if _, err := os.Stat(store.Root()); err == nil {
		n, err := store.Import(ctx, views.OSFileSystem{}, store.Root(), renderer.HasExtension)
		if err != nil {
			return fmt.Errorf("failed to import templates: %w", err)
		}
		logger.Info("Seeded template store from disk", "count", n, "root", store.Root())
		return nil
	}

	cfg := renderer.Config()
	for name, body := range defaultTemplates(&cfg) {
		if err := store.Put(ctx, name, []byte(body)); err != nil {
			return fmt.Errorf("failed to store default template '%s': %w", name, err)
		}
	}
	logger.Info("Seeded template store with default templates")
	return nil
}

// ensureDefaultTemplates writes the built-in templates below cfg.Root when
// its views directory does not exist yet.
func ensureDefaultTemplates(cfg *views.Config, logger *slog.Logger) error {
	viewsDir := filepath.Join(cfg.Root, cfg.ViewsDir)
	if _, err := os.Stat(viewsDir); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	for name, body := range defaultTemplates(cfg) {
		file := filepath.Join(cfg.Root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return err
		}
		if err := atomic.WriteFile(file, bytes.NewReader([]byte(body))); err != nil {
			return err
		}
	}
	logger.Info("Wrote default templates", "root", cfg.Root)
	return nil
}

// defaultTemplates returns the starter site keyed by slash-separated path
// relative to the root.
func defaultTemplates(cfg *views.Config) map[string]string {
	ext := ".html"
	if len(cfg.Extensions) > 0 {
		ext = "." + strings.TrimPrefix(cfg.Extensions[0], ".")
	}
	layout := cfg.DefaultLayout
	if layout == "" {
		layout = "main"
	}

	return map[string]string{
		path.Join(filepath.ToSlash(cfg.LayoutsDir), layout+ext): `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.title | default "Trellis"}}</title>
</head>
<body>
{{partial "nav" (view)}}
<main>
{{body}}
</main>
<footer>Trellis {{data "version"}}</footer>
</body>
</html>
`,
		path.Join(filepath.ToSlash(cfg.ViewsDir), "home"+ext): `---
title: Home
---
<h1>{{.title}}</h1>
<p>This page is rendered from {{view}}{{with layout}} inside {{.}}{{end}}.</p>
`,
		path.Join(filepath.ToSlash(cfg.PartialsDir), "nav"+ext): `<nav><a href="/"{{if eq . "home"}} aria-current="page"{{end}}>Home</a></nav>
`,
	}
}
