package views

import (
	"context"
	"fmt"
)

// Locals is the data a template is executed with.
type Locals map[string]any

// Options carries per-render data that is not part of the locals.
type Options struct {
	// Data is reachable from templates through the data, body, view and
	// layout functions.
	Data map[string]any

	// Body is a pre-rendered view. When set, the view is not resolved or
	// compiled and Body is used verbatim, without escaping.
	Body string

	// Partials is filled by Render with every partial discovered in the
	// partials directory, keyed by partial id.
	Partials map[string]*Template

	depth int
}

// RenderFunc executes a compiled template.
type RenderFunc func(data any, opts *Options) (string, error)

// Template is a compiled template file. It is immutable once created and is
// shared by every render while it stays in the cache.
type Template struct {
	// Path is the absolute path of the source file.
	Path string

	// Raw is the file content, Body the content without front matter.
	Raw  string
	Body string

	// Attributes holds the parsed front matter.
	Attributes map[string]any

	fn RenderFunc
}

// Render executes the template.
func (t *Template) Render(locals Locals, opts *Options) (string, error) {
	if opts == nil {
		opts = &Options{}
	}
	return t.fn(locals, opts)
}

// compileTemplate reads file and compiles it with the configured Compiler.
// Compiler errors are returned unwrapped.
func (r *Renderer) compileTemplate(ctx context.Context, file string) (*Template, error) {
	r.logger.Debug("Reading template file", "file", r.rel(file))
	raw, err := r.fsys.ReadFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	attrs, body, err := parseFrontMatter(string(raw))
	if err != nil {
		return nil, fmt.Errorf("error parsing template '%s': %w", r.rel(file), err)
	}

	r.logger.Debug("Compiling template", "file", r.rel(file))
	fn, err := r.compiler.Compile(r.rel(file), body)
	if err != nil {
		return nil, err
	}

	return &Template{
		Path:       file,
		Raw:        string(raw),
		Body:       body,
		Attributes: attrs,
		fn:         fn,
	}, nil
}
