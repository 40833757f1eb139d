package views

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"
)

// PathStrategy maps logical ids to template paths. A relative result is
// joined under Root and the category directory; an absolute one is used as
// is. Returned paths may omit the extension, which is probed from
// Config.Extensions.
//
// Embed DefaultStrategy to override a single method:
//
//	type pageStrategy struct{ views.DefaultStrategy }
//
//	// expects views/:id/template.html
//	func (pageStrategy) ResolveView(id string) string {
//		return filepath.Join(id, "template")
//	}
type PathStrategy interface {
	ResolveView(id string) string
	ResolveLayout(id string) string

	// DerivePartialID turns a path relative to the partials directory into
	// the name templates use to call the partial.
	DerivePartialID(file string) string
}

// DefaultStrategy resolves "home" to views/home and derives partial ids by
// camel-casing the extension-less relative path: nav/main.html -> navMain.
// With no Extensions set, as when embedded in another strategy, whatever
// extension the file carries is stripped.
type DefaultStrategy struct {
	Extensions []string
}

func (DefaultStrategy) ResolveView(id string) string   { return id }
func (DefaultStrategy) ResolveLayout(id string) string { return id }

func (s DefaultStrategy) DerivePartialID(file string) string {
	file = filepath.ToSlash(file)
	if ext := filepath.Ext(file); ext != "" && (len(s.Extensions) == 0 || hasExt(s.Extensions, ext)) {
		file = strings.TrimSuffix(file, ext)
	}
	return strcase.ToLowerCamel(strings.ReplaceAll(file, "/", " "))
}

// ViewPath returns the path of the view with the given id, without probing
// for extensions.
func (r *Renderer) ViewPath(id string) string {
	return r.categoryPath(r.config.ViewsDir, r.strategy.ResolveView(id))
}

// LayoutPath returns the path of the layout with the given id, without
// probing for extensions.
func (r *Renderer) LayoutPath(id string) string {
	return r.categoryPath(r.config.LayoutsDir, r.strategy.ResolveLayout(id))
}

// PartialPath returns the path of a partial file relative to the partials
// directory. An empty file names the partials directory itself.
func (r *Renderer) PartialPath(file string) string {
	return filepath.Join(r.config.Root, r.config.PartialsDir, file)
}

func (r *Renderer) categoryPath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.config.Root, dir, p)
}

// findTemplate returns the first candidate for file that is a regular file:
// the path itself when it already carries a configured extension, then file
// plus each extension in order. Directories never match.
func (r *Renderer) findTemplate(ctx context.Context, file string) (string, error) {
	candidates := make([]string, 0, len(r.exts)+1)
	if hasExt(r.exts, filepath.Ext(file)) {
		candidates = append(candidates, file)
	}
	for _, ext := range r.exts {
		candidates = append(candidates, file+ext)
	}

	for _, c := range candidates {
		ok, err := r.fsys.IsFile(ctx, c)
		if err != nil {
			return "", err
		}
		if ok {
			return c, nil
		}
	}
	return "", &NotFoundError{Path: file}
}

// HasExtension reports whether name ends in one of the configured template
// extensions.
func (r *Renderer) HasExtension(name string) bool {
	return hasExt(r.exts, filepath.Ext(name))
}

// normalizeExtensions ensures every extension carries its leading dot.
func normalizeExtensions(list []string) []string {
	out := make([]string, 0, len(list))
	for _, ext := range list {
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

func hasExt(exts []string, ext string) bool {
	if ext == "" {
		return false
	}

	sanitize := func(ext string) string {
		return strings.ToLower(strings.TrimPrefix(ext, "."))
	}

	for _, e := range exts {
		if sanitize(e) == sanitize(ext) {
			return true
		}
	}

	return false
}
