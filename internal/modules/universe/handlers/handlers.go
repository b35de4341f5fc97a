// Package handlers provides HTTP handlers for the company directory.
package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/corrscope/internal/modules/universe"
)

// CompanyReader reads the persisted directory
type CompanyReader interface {
	GetAll() ([]universe.Company, error)
	GetByTicker(ticker string) (*universe.Company, error)
}

// DirectorySource reloads the directory from its configured source
type DirectorySource interface {
	Directory() (universe.Directory, error)
}

// UniverseHandlers contains HTTP handlers for the universe API
type UniverseHandlers struct {
	companies CompanyReader
	directory DirectorySource
	log       zerolog.Logger
}

// NewUniverseHandlers creates universe handlers
func NewUniverseHandlers(companies CompanyReader, directory DirectorySource, log zerolog.Logger) *UniverseHandlers {
	return &UniverseHandlers{
		companies: companies,
		directory: directory,
		log:       log.With().Str("handler", "universe").Logger(),
	}
}

// RegisterRoutes registers universe routes
func (h *UniverseHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/universe", func(r chi.Router) {
		r.Get("/companies", h.HandleGetCompanies)
		r.Get("/companies/{ticker}", h.HandleGetCompany)
		r.Post("/sync", h.HandleSyncDirectory)
	})
}

// HandleGetCompanies lists the directory, optionally filtered by ?sector=
// GET /api/universe/companies
func (h *UniverseHandlers) HandleGetCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch companies")
		http.Error(w, "Failed to fetch companies", http.StatusInternalServerError)
		return
	}

	if sector := r.URL.Query().Get("sector"); sector != "" {
		filtered := companies[:0]
		for _, c := range companies {
			if c.Sector == sector {
				filtered = append(filtered, c)
			}
		}
		companies = filtered
	}
	if companies == nil {
		companies = []universe.Company{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": companies,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(companies),
		},
	})
}

// HandleGetCompany returns one company
// GET /api/universe/companies/{ticker}
func (h *UniverseHandlers) HandleGetCompany(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	company, err := h.companies.GetByTicker(ticker)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to fetch company")
		http.Error(w, "Failed to fetch company", http.StatusInternalServerError)
		return
	}
	if company == nil {
		http.Error(w, "Company not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": company,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleSyncDirectory reloads the directory source (mirroring it into universe.db)
// and reports sector counts
// POST /api/universe/sync
func (h *UniverseHandlers) HandleSyncDirectory(w http.ResponseWriter, r *http.Request) {
	dir, err := h.directory.Directory()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to reload company directory")
		http.Error(w, "Failed to reload company directory: "+err.Error(), http.StatusBadGateway)
		return
	}

	sectors := make(map[string]int)
	for _, c := range dir {
		sectors[c.Sector]++
	}
	names := make([]string, 0, len(sectors))
	for name := range sectors {
		names = append(names, name)
	}
	sort.Strings(names)

	h.log.Info().Int("companies", len(dir)).Msg("Company directory reloaded")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"companies":     len(dir),
			"sectors":       names,
			"sector_counts": sectors,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *UniverseHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
