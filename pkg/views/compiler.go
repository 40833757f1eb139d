package views

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"
)

// Compiler is the template engine a Renderer drives.
type Compiler interface {
	// Compile parses source and returns a function executing it.
	Compile(name, source string) (RenderFunc, error)

	// RegisterHelper makes fn callable by name from every template compiled
	// afterwards.
	RegisterHelper(name string, fn any)

	// RegisterPartial and UnregisterPartial manage the global partial table.
	RegisterPartial(name, source string) error
	UnregisterPartial(name string)
}

const maxPartialDepth = 100

// HTMLCompiler is the default Compiler, built on html/template.
//
// Besides the registered helpers, templates can call:
//
//	{{body}}               the rendered view, inside a layout
//	{{view}} {{layout}}    the ids being rendered
//	{{data "key"}}         any entry of Options.Data
//	{{partial "id" .}}     a partial, executed with the given data
//
// Helpers and partials may be registered at any time; renders started
// afterwards see them.
type HTMLCompiler struct {
	mu       sync.RWMutex
	helpers  template.FuncMap
	partials map[string]*template.Template
}

// NewHTMLCompiler returns a compiler preloaded with BuiltinHelpers.
func NewHTMLCompiler() *HTMLCompiler {
	return &HTMLCompiler{
		helpers:  BuiltinHelpers(),
		partials: map[string]*template.Template{},
	}
}

func (c *HTMLCompiler) RegisterHelper(name string, fn any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.helpers[name] = fn
}

func (c *HTMLCompiler) RegisterPartial(name, source string) error {
	t, err := c.parse(name, source)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partials[name] = t
	return nil
}

func (c *HTMLCompiler) UnregisterPartial(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.partials, name)
}

func (c *HTMLCompiler) Compile(name, source string) (RenderFunc, error) {
	t, err := c.parse(name, source)
	if err != nil {
		return nil, err
	}
	return func(data any, opts *Options) (string, error) {
		return c.execute(t, data, opts)
	}, nil
}

func (c *HTMLCompiler) parse(name, source string) (*template.Template, error) {
	funcs := placeholderFuncs()
	c.mu.RLock()
	for k, f := range c.helpers {
		funcs[k] = f
	}
	c.mu.RUnlock()

	return template.New(name).Funcs(funcs).Parse(source)
}

// execute runs a clone of t so that per-render functions can be bound
// without touching the shared, never-executed original.
func (c *HTMLCompiler) execute(t *template.Template, data any, opts *Options) (string, error) {
	clone, err := t.Clone()
	if err != nil {
		return "", fmt.Errorf("error cloning template '%s': %w", t.Name(), err)
	}

	c.mu.RLock()
	helpers := make(template.FuncMap, len(c.helpers))
	for k, f := range c.helpers {
		helpers[k] = f
	}
	c.mu.RUnlock()

	clone.Funcs(helpers).Funcs(c.renderFuncs(opts))

	var buf bytes.Buffer
	if err := clone.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (c *HTMLCompiler) renderFuncs(opts *Options) template.FuncMap {
	str := func(key string) string {
		if s, ok := opts.Data[key].(string); ok {
			return s
		}
		return ""
	}

	return template.FuncMap{
		"body":   func() template.HTML { return template.HTML(str("body")) },
		"view":   func() string { return str("view") },
		"layout": func() string { return str("layout") },
		"data":   func(key string) any { return opts.Data[key] },
		"partial": func(name string, args ...any) (template.HTML, error) {
			return c.renderPartial(name, args, opts)
		},
	}
}

// renderPartial looks the partial up in the per-render table first, then in
// the global one.
func (c *HTMLCompiler) renderPartial(name string, args []any, opts *Options) (template.HTML, error) {
	var data any
	if len(args) > 0 {
		data = args[0]
	}

	if opts.depth >= maxPartialDepth {
		return "", fmt.Errorf("partial '%s': maximum nesting depth of %d exceeded", name, maxPartialDepth)
	}
	opts.depth++
	defer func() { opts.depth-- }()

	if p, ok := opts.Partials[name]; ok {
		out, err := p.fn(data, opts)
		return template.HTML(out), err
	}

	c.mu.RLock()
	p, ok := c.partials[name]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("partial '%s': %w", name, ErrNotFound)
	}

	out, err := c.execute(p, data, opts)
	return template.HTML(out), err
}

// placeholderFuncs declares the per-render functions so that templates using
// them parse. They are rebound before every execution.
func placeholderFuncs() template.FuncMap {
	return template.FuncMap{
		"body":    func() template.HTML { return "" },
		"view":    func() string { return "" },
		"layout":  func() string { return "" },
		"data":    func(string) any { return nil },
		"partial": func(string, ...any) (template.HTML, error) { return "", nil },
	}
}
