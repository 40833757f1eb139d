package views

import (
	"context"
	"path/filepath"
	"sync"
)

// ListPartials returns the partial files below the partials directory,
// relative to it, slash-separated and in lexical order. A missing directory
// yields an empty list. The listing is cached along with the templates.
func (r *Renderer) ListPartials(ctx context.Context) ([]string, error) {
	dir := r.PartialPath("")
	key := partialsKey(dir)
	r.logger.Debug("Searching for partials", "dir", r.rel(dir))

	exists, err := r.fsys.Exists(ctx, dir)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []string{}, nil
	}

	if r.cache != nil && r.cache.Contains(key) {
		if v, ok := r.cache.Get(key); ok {
			if files, ok := v.([]string); ok {
				return append([]string(nil), files...), nil
			}
		}
	}

	all, err := r.fsys.ListFiles(ctx, dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(all))
	for _, f := range all {
		if !hasExt(r.exts, filepath.Ext(f)) {
			continue
		}
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			return nil, err
		}
		files = append(files, filepath.ToSlash(rel))
	}

	if r.cache != nil {
		r.cache.Add(key, files)
	}

	r.logger.Debug("Partials found", "count", len(files))
	return append([]string(nil), files...), nil
}

// GetPartial returns the compiled partial at file, relative to the partials
// directory.
func (r *Renderer) GetPartial(ctx context.Context, file string) (*Template, error) {
	return r.GetTemplate(ctx, r.PartialPath(filepath.FromSlash(file)))
}

// Partials compiles every partial and returns them keyed by partial id. The
// map is rebuilt on every call; compiled templates come from the cache.
// When two files derive the same id, the later one in lexical order wins.
func (r *Renderer) Partials(ctx context.Context) (map[string]*Template, error) {
	files, err := r.ListPartials(ctx)
	if err != nil {
		return nil, err
	}

	templates := make([]*Template, len(files))
	errs := make([]error, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()
			templates[i], errs[i] = r.GetPartial(ctx, file)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	partials := make(map[string]*Template, len(files))
	owners := make(map[string]string, len(files))
	for i, file := range files {
		id := r.strategy.DerivePartialID(file)
		if prev, ok := owners[id]; ok {
			r.logger.Debug("Partial id collision, overwriting", "id", id, "previous", prev, "file", file)
		}
		owners[id] = file
		partials[id] = templates[i]
	}
	return partials, nil
}
