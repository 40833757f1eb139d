/*
Package views renders server-side pages from template files on disk (or any
other FileSystem). A Renderer maps logical ids to files, compiles and caches
them, wraps views in layouts, discovers partials and hands the finished
string back to a net/http handler.

Templates live under a root directory split into three categories:

	root/
	    views/      pages, rendered by id ("home" -> views/home.html)
	    layouts/    wrappers that embed a rendered view through {{body}}
	    partials/   fragments, available everywhere through {{partial "id" .}}

A template may start with a YAML front-matter block. Its attributes are merged
into the locals before rendering, layout attributes first so that the view
wins on conflicts:

	---
	title: Welcome
	---
	<h1>{{.title}}</h1>

The default Compiler is built on html/template. Besides the helpers registered
through Config.Helpers (and the built-ins in BuiltinHelpers), every template
can call body, view, layout, data and partial.

Compiled templates are cached in a bounded LRU keyed by their absolute path.
Concurrent renders of a template that is not cached yet compile it only once.
The Middleware attaches a per-request Context so handlers can call Render or
RenderView with request-scoped state merged into the locals.
*/
package views
