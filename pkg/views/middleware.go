package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

type contextKey string

const contextKeyView = contextKey("view")

// Context is attached to every request passing through Middleware.
type Context struct {
	Request *http.Request

	mu       sync.Mutex
	state    Locals
	renderer *Renderer
}

// Middleware attaches a Context to each request so that later handlers can
// use Render, RenderView and SetState.
func (r *Renderer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		vc := &Context{state: Locals{}, renderer: r}
		req = req.WithContext(context.WithValue(req.Context(), contextKeyView, vc))
		vc.Request = req
		next.ServeHTTP(w, req)
	})
}

// FromRequest returns the Context attached by Middleware.
func FromRequest(req *http.Request) (*Context, bool) {
	vc, ok := req.Context().Value(contextKeyView).(*Context)
	return vc, ok
}

// SetState stores a request-scoped local. It reports false when the request
// did not pass through Middleware.
func SetState(req *http.Request, key string, value any) bool {
	vc, ok := FromRequest(req)
	if !ok {
		return false
	}
	vc.Set(key, value)
	return true
}

// RenderView renders through the Context attached to req.
func RenderView(req *http.Request, id string, locals Locals, opts *Options) (string, error) {
	vc, ok := FromRequest(req)
	if !ok {
		return "", errors.New("views: request has no view context, is the middleware installed?")
	}
	return vc.RenderView(id, locals, opts)
}

// Render renders through the Context attached to req and writes the result.
func Render(w http.ResponseWriter, req *http.Request, id string, locals Locals, opts *Options) error {
	vc, ok := FromRequest(req)
	if !ok {
		err := errors.New("views: request has no view context, is the middleware installed?")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return err
	}
	return vc.Render(w, id, locals, opts)
}

// Set stores a request-scoped local.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[key] = value
}

// State returns a copy of the request-scoped locals.
func (c *Context) State() Locals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Locals(cloneMap(c.state))
}

// RenderView renders id with the request state, then Config.Locals, then
// locals merged together, and exposes the request as data "request".
// Failures are reported as an *HTTPError with status 500.
func (c *Context) RenderView(id string, locals Locals, opts *Options) (string, error) {
	merged := mergeLocals(c.State(), c.renderer.config.Locals, locals)
	o := cloneOptions(opts, nil)
	o.Data["request"] = c.Request

	out, err := c.renderer.Render(c.Request.Context(), id, merged, o)
	if err != nil {
		c.renderer.logger.Error("Unable to render view", "view", id, "error", err)
		return "", &HTTPError{
			Code:    http.StatusInternalServerError,
			Message: fmt.Sprintf("unable to render view: %s because %s", id, err),
			Err:     err,
		}
	}
	return out, nil
}

// Render renders id and writes it as HTML. On failure it replies with the
// error's status and message and returns the error.
func (c *Context) Render(w http.ResponseWriter, id string, locals Locals, opts *Options) error {
	out, err := c.RenderView(id, locals, opts)
	if err != nil {
		var he *HTTPError
		if errors.As(err, &he) {
			http.Error(w, he.Message, he.Code)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = io.WriteString(w, out)
	return err
}
