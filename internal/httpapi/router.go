package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter returns the routes without access logging.
func NewRouter(opt Options) chi.Router {
	opt = opt.withDefaults()
	m := newMetrics(opt.Registry, opt.Compiler.Rulesets())
	h := &convertHandler{opt: opt, metrics: m}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(m.middleware)

	r.Get("/healthz", handleHealthz)
	r.Handle("/metrics", m.handler())
	r.Get("/sub", h.handleSub)
	r.Post("/api/convert", h.handleConvert)
	if opt.Documents != nil {
		r.Get("/p/*", h.handlePublished)
	}
	return r
}
