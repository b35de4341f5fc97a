package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers correlation and portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/correlation", func(r chi.Router) {
		r.Get("/stats", h.HandleGetStats)
		r.Get("/matrix", h.HandleGetMatrix)
		r.Get("/low-pairs", h.HandleGetLowPairs)
		r.Get("/sectors", h.HandleGetSectors)
		r.Get("/heatmap", h.HandleGetHeatmap)
		r.Get("/network", h.HandleGetNetwork)
		r.Get("/clusters", h.HandleGetClusters)
		r.Post("/refresh", h.HandleRefresh)

		r.Get("/companies/{ticker}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetCompany(w, r, chi.URLParam(r, "ticker"))
		})
		r.Get("/similar/{ticker}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetSimilar(w, r, chi.URLParam(r, "ticker"))
		})
		r.Get("/pairs/{ticker1}/{ticker2}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetPair(w, r, chi.URLParam(r, "ticker1"), chi.URLParam(r, "ticker2"))
		})
	})

	r.Route("/portfolio", func(r chi.Router) {
		r.Post("/diversify", h.HandleDiversify)
		r.Post("/risk", h.HandleRisk)
		r.Post("/optimize", h.HandleOptimize)
		r.Post("/frontier", h.HandleFrontier)
	})
}
