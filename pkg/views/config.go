package views

import "html/template"

// Config holds all configuration options for a Renderer. It is copied when
// the Renderer is created; later changes to the value have no effect.
type Config struct {
	// Root is the base directory every relative path is resolved against.
	// An empty Root means the working directory.
	Root string `json:"root"`

	// ViewsDir, LayoutsDir and PartialsDir are the category directories,
	// relative to Root.
	ViewsDir    string `json:"views_dir"`
	LayoutsDir  string `json:"layouts_dir"`
	PartialsDir string `json:"partials_dir"`

	// Extensions lists the template file extensions, in probing order.
	// The leading dot is optional.
	Extensions []string `json:"extensions"`

	// DefaultLayout is used when the locals carry no "layout" key.
	// Empty means views render standalone by default.
	DefaultLayout string `json:"default_layout"`

	// Cache enables the compiled-template cache. Disabling it recompiles
	// every template on every render, which is what you want in development.
	Cache bool `json:"cache"`

	// CacheSize is the capacity of the LRU cache.
	CacheSize int `json:"cache_size"`

	// Data seeds Options.Data for every render.
	Data map[string]any `json:"-"`

	// Locals are application-wide locals merged in by the request adapter,
	// after the request state and before the handler's own locals.
	Locals Locals `json:"-"`

	// Helpers are registered into the Compiler once, at construction.
	Helpers template.FuncMap `json:"-"`

	// Partials are global partial sources registered into the Compiler once,
	// at construction. Partials discovered in PartialsDir shadow them.
	Partials map[string]string `json:"-"`

	// Strategy overrides how ids map to paths. Nil means DefaultStrategy.
	Strategy PathStrategy `json:"-"`

	// Compiler is the template engine. Nil means NewHTMLCompiler().
	Compiler Compiler `json:"-"`

	// FileSystem is where templates are read from. Nil means the OS.
	FileSystem FileSystem `json:"-"`

	// BeforeRender is called with the cloned locals and options right before
	// composition and may modify both.
	BeforeRender func(locals Locals, opts *Options) `json:"-"`
}

// DefaultConfig returns a Config with the conventional directory layout and
// caching enabled.
func DefaultConfig() *Config {
	return &Config{
		Root:          "",
		ViewsDir:      "views",
		LayoutsDir:    "layouts",
		PartialsDir:   "partials",
		Extensions:    []string{".html"},
		DefaultLayout: "",
		Cache:         true,
		CacheSize:     100,
	}
}
