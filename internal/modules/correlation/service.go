package correlation

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/corrscope/internal/events"
	"github.com/aristath/corrscope/internal/modules/universe"
)

// DefaultPeerCount is how many positive and negative peers CompanyCorrelation returns
const DefaultPeerCount = 5

// DirectoryProvider supplies the company directory used for enrichment
type DirectoryProvider interface {
	Directory() (universe.Directory, error)
}

// EventEmitter publishes typed events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// EngineConfig configures an Engine
type EngineConfig struct {
	Retry             RetryPolicy
	ClampCorrelations bool
	// UniverseLimit keeps only the N largest companies by market cap; 0 keeps all.
	UniverseLimit int
	// KMeansSeed makes clustering reproducible when set and no source is given.
	KMeansSeed *int64
}

// DefaultEngineConfig returns the production defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Retry:             DefaultRetryPolicy(),
		ClampCorrelations: true,
	}
}

// Engine loads the feed, builds snapshots and answers queries against the
// current one. Readers never block on Initialize: snapshots are swapped
// atomically and never mutated after publication.
type Engine struct {
	store     *Store
	fetcher   Fetcher
	directory DirectoryProvider
	emitter   EventEmitter
	cfg       EngineConfig
	log       zerolog.Logger

	initMu   sync.Mutex
	snapshot atomic.Pointer[Snapshot]

	listenersMu sync.RWMutex
	listeners   []func(*Snapshot)
}

// NewEngine creates an engine. directory and emitter may be nil.
func NewEngine(fetcher Fetcher, directory DirectoryProvider, emitter EventEmitter, cfg EngineConfig, log zerolog.Logger) *Engine {
	return &Engine{
		store:     NewStore(cfg.Retry, log),
		fetcher:   fetcher,
		directory: directory,
		emitter:   emitter,
		cfg:       cfg,
		log:       log.With().Str("service", "correlation").Logger(),
	}
}

// OnSnapshot registers fn to be called after each successful Initialize
func (e *Engine) OnSnapshot(fn func(*Snapshot)) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Initialize loads, enriches, bounds and builds, then publishes the new snapshot.
// On failure the previous snapshot stays in place and the error is returned;
// load failures wrap ErrDataUnavailable.
func (e *Engine) Initialize(ctx context.Context) (*Snapshot, error) {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	start := time.Now()

	if err := e.store.Load(ctx, e.fetcher); err != nil {
		e.log.Error().Err(err).Msg("Correlation refresh failed")
		e.emitRefreshFailed(err)
		return nil, err
	}

	e.store.Enrich(e.loadDirectory())

	records := e.store.Records()
	if e.cfg.UniverseLimit > 0 && len(records) > e.cfg.UniverseLimit {
		e.log.Info().
			Int("companies", len(records)).
			Int("limit", e.cfg.UniverseLimit).
			Msg("Bounding universe by market cap")
		records = TopByMarketCap(records, e.cfg.UniverseLimit)
	}

	snap := BuildSnapshot(records, BuildOptions{
		ClampCorrelations: e.cfg.ClampCorrelations,
		Log:               e.log,
		Now:               time.Now,
	})
	e.snapshot.Store(snap)

	stats := snap.Statistics()
	if e.emitter != nil {
		e.emitter.EmitTyped("correlation", &events.SnapshotBuiltData{
			SnapshotID: snap.ID,
			Companies:  stats.Companies,
			Pairs:      stats.Pairs,
			DurationMs: time.Since(start).Milliseconds(),
			Mean:       stats.Mean,
		})
	}

	e.listenersMu.RLock()
	listeners := append([]func(*Snapshot){}, e.listeners...)
	e.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}

	return snap, nil
}

func (e *Engine) loadDirectory() universe.Directory {
	if e.directory == nil {
		return universe.Directory{}
	}
	dir, err := e.directory.Directory()
	if err != nil {
		e.log.Warn().Err(err).Msg("Company directory unavailable, applying defaults")
		return universe.Directory{}
	}
	return dir
}

func (e *Engine) emitRefreshFailed(err error) {
	if e.emitter == nil {
		return
	}
	data := &events.RefreshFailedData{
		Error:           err.Error(),
		DataUnavailable: errors.Is(err, ErrDataUnavailable),
	}
	if current := e.snapshot.Load(); current != nil {
		data.KeptSnapshotID = current.ID
	}
	e.emitter.EmitTyped("correlation", data)
}

// Initialized reports whether a snapshot has been published
func (e *Engine) Initialized() bool {
	return e.snapshot.Load() != nil
}

// Snapshot returns the current snapshot; an empty one before the first Initialize
func (e *Engine) Snapshot() *Snapshot {
	if s := e.snapshot.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

var emptySnapshot = &Snapshot{byTicker: map[string]int{}, index: &Index{}}

// CompanyCorrelation returns a company's record and strongest peers, nil when unknown
func (e *Engine) CompanyCorrelation(ticker string) *CompanyCorrelation {
	return e.Snapshot().CompanyCorrelation(ticker, DefaultPeerCount)
}

// CorrelationMatrix extracts the sub-matrix for known tickers
func (e *Engine) CorrelationMatrix(tickers []string) SubMatrix {
	return e.Snapshot().CorrelationMatrix(tickers)
}

// PairwiseCorrelation looks up a pair. Unknown tickers give 0.
func (e *Engine) PairwiseCorrelation(ticker1, ticker2 string) PairwiseCorrelation {
	c := e.Snapshot().corr(ticker1, ticker2)
	return PairwiseCorrelation{
		Ticker1:        universe.NormalizeTicker(ticker1),
		Ticker2:        universe.NormalizeTicker(ticker2),
		Correlation:    c,
		Interpretation: InterpretCorrelation(c),
	}
}

// FindLowCorrelationPairs returns pairs within [min, max], smallest |corr| first
func (e *Engine) FindLowCorrelationPairs(min, max float64) []LowCorrelationPair {
	return e.Snapshot().FindLowCorrelationPairs(min, max)
}

// FindSimilarStocks ranks companies by feature similarity to ticker
func (e *Engine) FindSimilarStocks(ticker string, topN int) []SimilarStock {
	return e.Snapshot().FindSimilarStocks(ticker, topN)
}

// SectorCorrelation averages correlations per sector pair
func (e *Engine) SectorCorrelation() []SectorCorrelation {
	return e.Snapshot().SectorCorrelation()
}

// Heatmap exports a labelled matrix
func (e *Engine) Heatmap(tickers []string) Heatmap {
	return e.Snapshot().Heatmap(tickers)
}

// Network exports strong correlations as a graph
func (e *Engine) Network(threshold float64) Network {
	return e.Snapshot().Network(threshold)
}

// Statistics summarizes the current snapshot
func (e *Engine) Statistics() Statistics {
	return e.Snapshot().Statistics()
}

// BuildDiversifiedPortfolio greedily picks the least correlated tickers
func (e *Engine) BuildDiversifiedPortfolio(tickers []string, targetCount int) Portfolio {
	return e.Snapshot().BuildDiversifiedPortfolio(tickers, targetCount)
}

// PortfolioRisk evaluates the simplified risk model
func (e *Engine) PortfolioRisk(tickers []string, weights []float64) (RiskResult, error) {
	return e.Snapshot().PortfolioRisk(tickers, weights)
}

// OptimizePortfolio weights tickers for a risk tolerance
func (e *Engine) OptimizePortfolio(tickers []string, tolerance RiskTolerance) (OptimizationResult, error) {
	return e.Snapshot().OptimizePortfolio(tickers, tolerance)
}

// EfficientFrontier samples portfolios across risk levels
func (e *Engine) EfficientFrontier(tickers []string, points int) ([]FrontierPoint, error) {
	return e.Snapshot().EfficientFrontier(tickers, points)
}

// ClusterByCorrelation runs k-means. The configured seed applies when opts has
// no source of its own.
func (e *Engine) ClusterByCorrelation(opts KMeansOptions) (ClusterResult, error) {
	if opts.Source == nil && e.cfg.KMeansSeed != nil {
		opts.Source = rand.NewSource(*e.cfg.KMeansSeed)
	}
	return e.Snapshot().ClusterByCorrelation(opts)
}
