package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
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

const maxTemplateSize = 1 << 20

// templateWriter persists template edits wherever the renderer reads them
// from. Paths are absolute, as the renderer resolves them.
type templateWriter interface {
	WriteTemplate(ctx context.Context, file string, body []byte) error
	RemoveTemplate(ctx context.Context, file string) (bool, error)
}

// diskWriter edits templates on the OS filesystem.
type diskWriter struct{}

func (diskWriter) WriteTemplate(_ context.Context, file string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}
	return atomic.WriteFile(file, bytes.NewReader(body))
}

func (diskWriter) RemoveTemplate(_ context.Context, file string) (bool, error) {
	if err := os.Remove(file); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// storeWriter edits templates kept in the database.
type storeWriter struct {
	store *tmplstore.Store
}

func (w storeWriter) rel(file string) (string, error) {
	rel, err := filepath.Rel(w.store.Root(), file)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (w storeWriter) WriteTemplate(ctx context.Context, file string, body []byte) error {
	rel, err := w.rel(file)
	if err != nil {
		return err
	}
	return w.store.Put(ctx, rel, body)
}

func (w storeWriter) RemoveTemplate(ctx context.Context, file string) (bool, error) {
	rel, err := w.rel(file)
	if err != nil {
		return false, err
	}
	return w.store.Delete(ctx, rel)
}

// TemplateAPI holds the dependencies for the template API handlers.
type TemplateAPI struct {
	renderer *views.Renderer
	writer   templateWriter
	logger   *slog.Logger
}

// NewTemplateAPI creates a new instance of the TemplateAPI.
func NewTemplateAPI(renderer *views.Renderer, writer templateWriter, logger *slog.Logger) *TemplateAPI {
	return &TemplateAPI{
		renderer: renderer,
		writer:   writer,
		logger:   logger,
	}
}

// RegisterRoutes sets up the routing for all /api/templates endpoints.
func (t *TemplateAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/templates/preview", t.handlePreview)
	mux.HandleFunc("/api/templates", t.handleList)
	mux.HandleFunc("/api/templates/", t.handleFile)
}

// categoryDir returns the directory of a template category, relative to the
// renderer's root.
func (t *TemplateAPI) categoryDir(category string) (string, bool) {
	cfg := t.renderer.Config()
	switch category {
	case "views":
		return cfg.ViewsDir, true
	case "layouts":
		return cfg.LayoutsDir, true
	case "partials":
		return cfg.PartialsDir, true
	}
	return "", false
}

// handleList returns the template files of every category.
func (t *TemplateAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) || !requireScope(w, r, scopeTemplatesRead) {
		return
	}

	result := map[string][]string{}
	for _, category := range []string{"views", "layouts", "partials"} {
		files, err := t.listCategory(r.Context(), category)
		if err != nil {
			t.logger.Error("Failed to list templates", "category", category, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list %s: %v", category, err))
			return
		}
		result[category] = files
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (t *TemplateAPI) listCategory(ctx context.Context, category string) ([]string, error) {
	dirName, _ := t.categoryDir(category)
	dir := filepath.Join(t.renderer.Config().Root, dirName)
	fsys := t.renderer.FileSystem()

	files := []string{}
	exists, err := fsys.Exists(ctx, dir)
	if err != nil || !exists {
		return files, err
	}
	all, err := fsys.ListFiles(ctx, dir)
	if err != nil {
		return nil, err
	}
	for _, f := range all {
		if !t.renderer.HasExtension(f) {
			continue
		}
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			return nil, err
		}
		files = append(files, filepath.ToSlash(rel))
	}
	return files, nil
}

// PreviewRequest is the optional JSON body of a preview.
type PreviewRequest struct {
	Locals views.Locals `json:"locals"`
}

// handlePreview renders a view with caller-supplied locals, without the
// request state a page would get. The "layout" query parameter selects the
// layout; "none" renders the view alone.
func (t *TemplateAPI) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) || !requireScope(w, r, scopeTemplatesRead) {
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'name' is required")
		return
	}

	var req PreviewRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxTemplateSize)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if req.Locals == nil {
		req.Locals = views.Locals{}
	}
	if r.URL.Query().Has("layout") {
		if layout := r.URL.Query().Get("layout"); layout == "none" {
			req.Locals["layout"] = nil
		} else {
			req.Locals["layout"] = layout
		}
	}

	out, err := t.renderer.Render(r.Context(), name, req.Locals, nil)
	if err != nil {
		if errors.Is(err, views.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Failed to render preview: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, out)
}

// handleFile manages CRUD operations for a single template file, addressed
// as /api/templates/{category}/{file}.
func (t *TemplateAPI) handleFile(w http.ResponseWriter, r *http.Request) {
	category, name, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/api/templates/"), "/")
	dirName, ok := t.categoryDir(category)
	if !ok || name == "" || strings.HasSuffix(name, "/") {
		respondWithError(w, http.StatusNotFound, "Not Found")
		return
	}

	name = path.Clean(name)
	if name == ".." || strings.HasPrefix(name, "../") || path.IsAbs(name) {
		respondWithError(w, http.StatusForbidden, "Access denied: Path outside template directory")
		return
	}
	if !t.renderer.HasExtension(name) {
		respondWithError(w, http.StatusBadRequest, "Invalid template name format")
		return
	}

	file := filepath.Join(t.renderer.Config().Root, dirName, filepath.FromSlash(name))

	switch r.Method {
	case http.MethodGet:
		if !requireScope(w, r, scopeTemplatesRead) {
			return
		}
		content, err := t.renderer.FileSystem().ReadFile(r.Context(), file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				respondWithError(w, http.StatusNotFound, "Template not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read template: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(content)

	case http.MethodPut:
		if !requireScope(w, r, scopeTemplatesWrite) {
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxTemplateSize+1))
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
			return
		}
		if len(body) > maxTemplateSize {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Template too large")
			return
		}
		if err = t.writer.WriteTemplate(r.Context(), file, body); err != nil {
			t.logger.Error("Failed to write template", "file", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to write template: %v", err))
			return
		}
		t.invalidate(category, file)
		t.logger.Info("Template saved via API", "category", category, "file", name)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if !requireScope(w, r, scopeTemplatesWrite) {
			return
		}
		removed, err := t.writer.RemoveTemplate(r.Context(), file)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete template: %v", err))
			return
		}
		if !removed {
			respondWithError(w, http.StatusNotFound, "Template not found")
			return
		}
		t.invalidate(category, file)
		t.logger.Info("Template deleted via API", "category", category, "file", name)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (t *TemplateAPI) invalidate(category, file string) {
	t.renderer.Invalidate(file)
	if category == "partials" {
		t.renderer.InvalidatePartials()
	}
}
