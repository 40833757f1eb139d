package views

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
)

// Renderer resolves, compiles, caches and composes templates.
// All methods are safe for concurrent use.
type Renderer struct {
	logger   *slog.Logger
	config   Config
	exts     []string
	strategy PathStrategy
	compiler Compiler
	fsys     FileSystem
	cache    *lru.Cache // nil when caching is disabled
	locks    *keyLock
}

// New creates a Renderer. A nil config means DefaultConfig() and a nil
// logger discards everything. Config.Helpers and Config.Partials are
// registered into the compiler here, once.
func New(logger *slog.Logger, config *Config) (*Renderer, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config == nil {
		config = DefaultConfig()
	}

	r := &Renderer{
		logger: logger,
		config: *config,
		locks:  newKeyLock(),
	}
	c := &r.config

	if c.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error resolving root: %w", err)
		}
		c.Root = wd
	}
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return nil, fmt.Errorf("error resolving root '%s': %w", c.Root, err)
	}
	c.Root = root

	r.exts = normalizeExtensions(c.Extensions)
	if len(r.exts) == 0 {
		r.exts = normalizeExtensions(DefaultConfig().Extensions)
	}
	c.Extensions = r.exts

	c.Data = cloneMap(c.Data)
	c.Locals = Locals(cloneMap(c.Locals))

	r.strategy = c.Strategy
	if r.strategy == nil {
		r.strategy = DefaultStrategy{Extensions: r.exts}
	}
	r.compiler = c.Compiler
	if r.compiler == nil {
		r.compiler = NewHTMLCompiler()
	}
	r.fsys = c.FileSystem
	if r.fsys == nil {
		r.fsys = OSFileSystem{}
	}

	for name, fn := range c.Helpers {
		logger.Debug("Registering global helper", "name", name)
		r.compiler.RegisterHelper(name, fn)
	}
	for name, src := range c.Partials {
		logger.Debug("Registering global partial", "name", name)
		if err := r.compiler.RegisterPartial(name, src); err != nil {
			return nil, fmt.Errorf("error registering partial '%s': %w", name, err)
		}
	}

	if c.Cache {
		if c.CacheSize <= 0 {
			c.CacheSize = DefaultConfig().CacheSize
		}
		r.cache, err = lru.New(c.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("error creating template cache: %w", err)
		}
	}

	logger.Info("View renderer initialized", "root", c.Root, "cache", c.Cache, "extensions", r.exts)
	return r, nil
}

// Config returns a copy of the configuration in use, with Root made
// absolute and Extensions normalized.
func (r *Renderer) Config() Config {
	return r.config
}

// FileSystem returns the storage templates are read from.
func (r *Renderer) FileSystem() FileSystem {
	return r.fsys
}

// Compiler returns the template engine, for registering helpers or partials
// after construction.
func (r *Renderer) Compiler() Compiler {
	return r.compiler
}

// rel shortens file for log output.
func (r *Renderer) rel(file string) string {
	if rel, err := filepath.Rel(r.config.Root, file); err == nil {
		return rel
	}
	return file
}
