package views

import "context"

func templateKey(file string) string { return "template:" + file }
func partialsKey(dir string) string  { return "partials:list:" + dir }

// GetTemplate returns the compiled template for file, probing the configured
// extensions. With caching enabled the same *Template is returned until it is
// evicted or invalidated, and concurrent misses for one file compile it once.
// Failed compiles are not cached.
func (r *Renderer) GetTemplate(ctx context.Context, file string) (*Template, error) {
	abs, err := r.findTemplate(ctx, file)
	if err != nil {
		return nil, err
	}

	if r.cache == nil {
		return r.compileTemplate(ctx, abs)
	}

	key := templateKey(abs)
	if t, ok := r.cachedTemplate(key); ok {
		r.logger.Debug("Template found in cache", "file", r.rel(abs))
		return t, nil
	}

	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	// another render may have compiled it while we waited
	if t, ok := r.cachedTemplate(key); ok {
		return t, nil
	}

	t, err := r.compileTemplate(ctx, abs)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Saving template to cache", "file", r.rel(abs))
	r.cache.Add(key, t)
	return t, nil
}

// GetView returns the compiled view with the given id.
func (r *Renderer) GetView(ctx context.Context, id string) (*Template, error) {
	return r.GetTemplate(ctx, r.ViewPath(id))
}

// GetLayout returns the compiled layout with the given id. An empty id
// means no layout: the result is nil, without error.
func (r *Renderer) GetLayout(ctx context.Context, id string) (*Template, error) {
	if id == "" {
		return nil, nil
	}
	return r.GetTemplate(ctx, r.LayoutPath(id))
}

// cachedTemplate checks for existence first so a miss never touches recency.
func (r *Renderer) cachedTemplate(key string) (*Template, bool) {
	if !r.cache.Contains(key) {
		return nil, false
	}
	v, ok := r.cache.Get(key)
	if !ok {
		return nil, false
	}
	t, ok := v.(*Template)
	return t, ok
}

// Invalidate drops the cached template compiled from file, if any.
func (r *Renderer) Invalidate(file string) bool {
	if r.cache == nil {
		return false
	}
	return r.cache.Remove(templateKey(file))
}

// InvalidatePartials drops the cached partials listing so the next render
// scans the partials directory again.
func (r *Renderer) InvalidatePartials() bool {
	if r.cache == nil {
		return false
	}
	return r.cache.Remove(partialsKey(r.PartialPath("")))
}

// Purge empties the cache.
func (r *Renderer) Purge() {
	if r.cache == nil {
		return
	}
	r.cache.Purge()
	r.logger.Info("Template cache purged")
}

// CacheLen returns the number of cached entries, templates and listings
// combined.
func (r *Renderer) CacheLen() int {
	if r.cache == nil {
		return 0
	}
	return r.cache.Len()
}
