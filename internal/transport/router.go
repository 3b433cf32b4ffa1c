package transport

import "net/http"

type Handler interface {
	createSearch(w http.ResponseWriter, r *http.Request)
	searches(w http.ResponseWriter, r *http.Request)
	task(w http.ResponseWriter, r *http.Request)
	results(w http.ResponseWriter, r *http.Request)
	stats(w http.ResponseWriter, r *http.Request)
	health(w http.ResponseWriter, r *http.Request)
}

type router struct {
	h       Handler
	metrics http.Handler
}

func NewRouter(h Handler, metrics http.Handler) *router {
	return &router{h: h, metrics: metrics}
}

func (r *router) MountRoutes(mux *http.ServeMux) *http.ServeMux {
	mux.HandleFunc("/searches/create", r.h.createSearch)
	mux.HandleFunc("/searches", r.h.searches)
	mux.HandleFunc("/tasks/", r.h.task)
	mux.HandleFunc("/results/", r.h.results)
	mux.HandleFunc("/stats", r.h.stats)
	mux.HandleFunc("/health", r.h.health)
	mux.Handle("/metrics", r.metrics)

	return mux
}
