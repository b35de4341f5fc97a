// Package handlers provides HTTP handlers for correlation and portfolio analytics.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/corrscope/internal/modules/correlation"
)

const (
	contentTypeMsgpack = "application/msgpack"

	defaultLowPairMin     = -0.3
	defaultLowPairMax     = 0.3
	defaultLowPairLimit   = 50
	defaultSimilarTop     = 10
	defaultNetworkMin     = 0.7
	defaultClusterK       = 5
	defaultFrontierPoints = 10
	maxFrontierPoints     = 200
	refreshTimeout        = 2 * time.Minute
)

// Handler handles correlation HTTP requests
type Handler struct {
	engine *correlation.Engine
	log    zerolog.Logger
}

// NewHandler creates a new correlation handler
func NewHandler(engine *correlation.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "correlation").Logger(),
	}
}

// HandleGetStats handles GET /api/correlation/stats
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.engine.Statistics())
}

// HandleGetCompany handles GET /api/correlation/companies/{ticker}
func (h *Handler) HandleGetCompany(w http.ResponseWriter, r *http.Request, ticker string) {
	cc := h.engine.CompanyCorrelation(ticker)
	if cc == nil {
		http.Error(w, "Company not found", http.StatusNotFound)
		return
	}
	h.writeData(w, http.StatusOK, cc)
}

// HandleGetPair handles GET /api/correlation/pairs/{ticker1}/{ticker2}
func (h *Handler) HandleGetPair(w http.ResponseWriter, r *http.Request, ticker1, ticker2 string) {
	h.writeData(w, http.StatusOK, h.engine.PairwiseCorrelation(ticker1, ticker2))
}

// HandleGetMatrix handles GET /api/correlation/matrix?tickers=A,B
func (h *Handler) HandleGetMatrix(w http.ResponseWriter, r *http.Request) {
	tickers := parseTickers(r)
	if len(tickers) == 0 {
		http.Error(w, "tickers parameter is required", http.StatusBadRequest)
		return
	}
	h.writeData(w, http.StatusOK, h.engine.CorrelationMatrix(tickers))
}

// HandleGetLowPairs handles GET /api/correlation/low-pairs?min=&max=&limit=
func (h *Handler) HandleGetLowPairs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	min, err := floatParam(q.Get("min"), defaultLowPairMin)
	if err != nil {
		http.Error(w, "Invalid min", http.StatusBadRequest)
		return
	}
	max, err := floatParam(q.Get("max"), defaultLowPairMax)
	if err != nil {
		http.Error(w, "Invalid max", http.StatusBadRequest)
		return
	}
	if min > max {
		http.Error(w, "min must not exceed max", http.StatusBadRequest)
		return
	}
	limit, err := intParam(q.Get("limit"), defaultLowPairLimit)
	if err != nil || limit < 0 {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	pairs := h.engine.FindLowCorrelationPairs(min, max)
	total := len(pairs)
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"pairs": pairs,
		"total": total,
		"min":   min,
		"max":   max,
	})
}

// HandleGetSimilar handles GET /api/correlation/similar/{ticker}?top=
func (h *Handler) HandleGetSimilar(w http.ResponseWriter, r *http.Request, ticker string) {
	top, err := intParam(r.URL.Query().Get("top"), defaultSimilarTop)
	if err != nil || top <= 0 {
		http.Error(w, "Invalid top", http.StatusBadRequest)
		return
	}
	h.writeData(w, http.StatusOK, h.engine.FindSimilarStocks(ticker, top))
}

// HandleGetSectors handles GET /api/correlation/sectors
func (h *Handler) HandleGetSectors(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.engine.SectorCorrelation())
}

// HandleGetHeatmap handles GET /api/correlation/heatmap?tickers=
// Responds with msgpack when the client accepts it.
func (h *Handler) HandleGetHeatmap(w http.ResponseWriter, r *http.Request) {
	heatmap := h.engine.Heatmap(parseTickers(r))

	if strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack) {
		h.writeMsgpack(w, http.StatusOK, envelope(heatmap))
		return
	}
	h.writeData(w, http.StatusOK, heatmap)
}

// HandleGetNetwork handles GET /api/correlation/network?threshold=
func (h *Handler) HandleGetNetwork(w http.ResponseWriter, r *http.Request) {
	threshold, err := floatParam(r.URL.Query().Get("threshold"), defaultNetworkMin)
	if err != nil || threshold < 0 || threshold > 1 {
		http.Error(w, "Invalid threshold", http.StatusBadRequest)
		return
	}
	h.writeData(w, http.StatusOK, h.engine.Network(threshold))
}

// HandleGetClusters handles GET /api/correlation/clusters?k=&seed=
func (h *Handler) HandleGetClusters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	k, err := intParam(q.Get("k"), defaultClusterK)
	if err != nil || k <= 0 {
		http.Error(w, "Invalid k", http.StatusBadRequest)
		return
	}

	opts := correlation.KMeansOptions{K: k}
	if raw := q.Get("seed"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid seed", http.StatusBadRequest)
			return
		}
		opts.Source = rand.NewSource(seed)
	}

	result, err := h.engine.ClusterByCorrelation(opts)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, result)
}

// HandleRefresh handles POST /api/correlation/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	snap, err := h.engine.Initialize(ctx)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, snap.Statistics())
}

type diversifyRequest struct {
	Tickers     []string `json:"tickers"`
	TargetCount int      `json:"target_count"`
}

// HandleDiversify handles POST /api/portfolio/diversify
func (h *Handler) HandleDiversify(w http.ResponseWriter, r *http.Request) {
	var req diversifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.TargetCount <= 0 {
		http.Error(w, "target_count must be positive", http.StatusBadRequest)
		return
	}

	portfolio := h.engine.BuildDiversifiedPortfolio(req.Tickers, req.TargetCount)
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"tickers": portfolio.Tickers,
		"weights": portfolio.WeightMap(),
	})
}

type riskRequest struct {
	Tickers []string  `json:"tickers"`
	Weights []float64 `json:"weights"`
}

// HandleRisk handles POST /api/portfolio/risk
func (h *Handler) HandleRisk(w http.ResponseWriter, r *http.Request) {
	var req riskRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.engine.PortfolioRisk(req.Tickers, req.Weights)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, result)
}

type optimizeRequest struct {
	Tickers       []string `json:"tickers"`
	RiskTolerance string   `json:"risk_tolerance"`
}

// HandleOptimize handles POST /api/portfolio/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.RiskTolerance == "" {
		req.RiskTolerance = string(correlation.Moderate)
	}

	tolerance, err := correlation.ParseRiskTolerance(req.RiskTolerance)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	result, err := h.engine.OptimizePortfolio(req.Tickers, tolerance)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, result)
}

type frontierRequest struct {
	Tickers []string `json:"tickers"`
	Points  int      `json:"points"`
}

// HandleFrontier handles POST /api/portfolio/frontier
func (h *Handler) HandleFrontier(w http.ResponseWriter, r *http.Request) {
	var req frontierRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Points == 0 {
		req.Points = defaultFrontierPoints
	}
	if req.Points < 0 || req.Points > maxFrontierPoints {
		http.Error(w, "points out of range", http.StatusBadRequest)
		return
	}

	points, err := h.engine.EfficientFrontier(req.Tickers, req.Points)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, points)
}

// writeEngineError maps engine errors to status codes
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, correlation.ErrDimensionMismatch),
		errors.Is(err, correlation.ErrUnknownRiskTolerance):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, correlation.ErrDataUnavailable):
		h.log.Warn().Err(err).Msg("Correlation data unavailable")
		http.Error(w, "Correlation data unavailable", http.StatusServiceUnavailable)
	default:
		h.log.Error().Err(err).Msg("Correlation request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, envelope(data))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeMsgpack(w http.ResponseWriter, status int, data interface{}) {
	body, err := msgpack.Marshal(data)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode msgpack response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write msgpack response")
	}
}
