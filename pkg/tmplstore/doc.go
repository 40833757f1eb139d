/*
Package tmplstore keeps view, layout and partial sources in a SQLite table
and serves them to a views.Renderer through the views.FileSystem interface.

Templates are stored under slash-separated paths relative to a root, such as
"views/home.html" or "partials/nav/main.html". The Renderer asks for absolute
paths below the same root, so a Store can replace the OS filesystem without
changing any view id:

	db, _ := sql.Open("sqlite", "site.db")
	_ = tmplstore.SetupSchema(db)
	store, _ := tmplstore.New(db, "/srv/site")

	cfg := views.DefaultConfig()
	cfg.Root = "/srv/site"
	cfg.FileSystem = store
	renderer, _ := views.New(logger, cfg)

Writes through Put and Delete do not reach the Renderer's cache; callers
invalidate the affected entries themselves.
*/
package tmplstore
