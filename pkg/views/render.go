package views

import (
	"context"
	"fmt"
	"maps"
)

// Render renders the view id and, if one applies, wraps it in a layout.
//
// The "layout" key of locals selects the layout: absent means
// Config.DefaultLayout, nil (or an empty string) means none. The key is
// removed before rendering. Front-matter attributes of the layout, then of
// the view, are merged into the locals. Options.Body, when set, replaces the
// view entirely.
//
// Neither locals nor opts are modified.
func (r *Renderer) Render(ctx context.Context, id string, locals Locals, opts *Options) (string, error) {
	locals = Locals(cloneMap(locals))
	if locals == nil {
		locals = Locals{}
	}
	opts = cloneOptions(opts, r.config.Data)
	r.logger.Debug("Rendering template", "view", id)

	if r.config.BeforeRender != nil {
		r.config.BeforeRender(locals, opts)
	}

	layoutID, err := r.layoutID(locals)
	if err != nil {
		return "", err
	}
	delete(locals, "layout")

	body := opts.Body

	var view *Template
	if body == "" {
		if view, err = r.GetView(ctx, id); err != nil {
			return "", err
		}
	}

	layout, err := r.GetLayout(ctx, layoutID)
	if err != nil {
		return "", err
	}

	if layout != nil {
		maps.Copy(locals, layout.Attributes)
	}
	if view != nil {
		maps.Copy(locals, view.Attributes)
	}

	opts.Data["view"] = id
	if layoutID != "" {
		opts.Data["layout"] = layoutID
	}

	partials, err := r.Partials(ctx)
	if err != nil {
		return "", err
	}
	if opts.Partials == nil {
		opts.Partials = partials
	} else {
		maps.Copy(opts.Partials, partials)
	}

	if layout == nil {
		if body != "" {
			return body, nil
		}
		return view.Render(locals, opts)
	}

	r.logger.Debug("Rendering with layout", "view", id, "layout", layoutID)
	if body == "" {
		if body, err = view.Render(locals, opts); err != nil {
			return "", err
		}
	}
	opts.Data["body"] = body
	return layout.Render(locals, opts)
}

func (r *Renderer) layoutID(locals Locals) (string, error) {
	v, ok := locals["layout"]
	if !ok {
		return r.config.DefaultLayout, nil
	}
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		if !v {
			return "", nil
		}
	}
	return "", fmt.Errorf("invalid layout %v: expected a layout id, got %T", v, v)
}
