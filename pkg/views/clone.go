package views

import "reflect"

// cloneMap deep-copies nested maps and slices of m, whatever their element
// types. Other values, pointers and structs included, are shared with the
// original.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case Locals:
		return Locals(cloneMap(v))
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out
	case []string:
		return append([]string(nil), v...)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return cloneReflect(rv).Interface()
	}
	return v
}

// cloneReflect copies typed containers such as []map[string]any or
// map[string][]string, recursing into their elements.
func cloneReflect(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneElem(iter.Value()))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneElem(rv.Index(i)))
		}
		return out
	}
	return rv
}

func cloneElem(ev reflect.Value) reflect.Value {
	if ev.Kind() == reflect.Interface {
		if ev.IsNil() {
			return ev
		}
		return reflect.ValueOf(cloneValue(ev.Elem().Interface()))
	}
	return cloneReflect(ev)
}

// mergeLocals deep-merges sources into a new Locals; later sources win.
// Nested maps are merged key by key rather than replaced.
func mergeLocals(sources ...map[string]any) Locals {
	out := Locals{}
	for _, src := range sources {
		mergeInto(out, src)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := asMap(v); ok {
			if dm, ok := asMap(dst[k]); ok {
				mergeInto(dm, sm)
				continue
			}
		}
		dst[k] = cloneValue(v)
	}
}

func asMap(v any) (map[string]any, bool) {
	switch v := v.(type) {
	case map[string]any:
		return v, true
	case Locals:
		return v, true
	}
	return nil, false
}

// cloneOptions copies opts so that Render never mutates the caller's value.
// seed is merged below opts.Data.
func cloneOptions(opts *Options, seed map[string]any) *Options {
	out := &Options{Data: mergeLocals(seed)}
	if opts == nil {
		return out
	}
	mergeInto(out.Data, opts.Data)
	out.Body = opts.Body
	if opts.Partials != nil {
		out.Partials = make(map[string]*Template, len(opts.Partials))
		for k, t := range opts.Partials {
			out.Partials[k] = t
		}
	}
	return out
}
