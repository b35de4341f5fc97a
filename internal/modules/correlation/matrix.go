package correlation

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/corrscope/internal/modules/universe"
	"github.com/aristath/corrscope/internal/utils"
	"github.com/aristath/corrscope/pkg/formulas"
)

// LargeUniverseThreshold is the company count above which a build logs a warning.
// Building is O(n²) in time and memory.
const LargeUniverseThreshold = 2000

// BuildOptions configures BuildSnapshot
type BuildOptions struct {
	// ClampCorrelations bounds off-diagonal values to [-1, 1]. The proxy can leave
	// that range only when feed values themselves fall outside it.
	ClampCorrelations bool
	Log               zerolog.Logger
	Now               func() time.Time
}

// DefaultBuildOptions clamps and logs nothing
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		ClampCorrelations: true,
		Log:               zerolog.Nop(),
		Now:               time.Now,
	}
}

// Snapshot is an immutable matrix + index pair built from one set of records.
type Snapshot struct {
	ID      string
	BuiltAt time.Time

	records  []Record
	byTicker map[string]int
	matrix   *mat.SymDense // nil when there are no records
	index    *Index
}

// ProxyCorrelation is the similarity of two companies' forward revision metrics:
//
//	((1 - |epsA - epsB|) + (1 - |salesA - salesB|)) / 2
//
// It is an approximation standing in for price-return correlation, which the feed
// cannot provide. It is not a statistical correlation.
func ProxyCorrelation(a, b Record) float64 {
	epsSimilarity := 1 - math.Abs(a.FwdEpsCorr-b.FwdEpsCorr)
	salesSimilarity := 1 - math.Abs(a.FwdSalesCorr-b.FwdSalesCorr)
	return (epsSimilarity + salesSimilarity) / 2
}

// BuildSnapshot computes the full matrix and bucket index in one pass.
// Duplicate tickers keep the last record at the first position.
func BuildSnapshot(records []Record, opts BuildOptions) *Snapshot {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Log.With().Str("component", "matrix_builder").Logger()
	defer utils.OperationTimer("build_correlation_snapshot", log)()

	recs, byTicker := dedupe(records)
	n := len(recs)
	if n > LargeUniverseThreshold {
		log.Warn().
			Int("companies", n).
			Int("threshold", LargeUniverseThreshold).
			Msg("Large universe, matrix build is quadratic")
	}

	snap := &Snapshot{
		ID:       uuid.New().String(),
		BuiltAt:  opts.Now(),
		records:  recs,
		byTicker: byTicker,
		index:    &Index{},
	}
	if n == 0 {
		return snap
	}

	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		m.SetSym(i, i, 1.0)
		for j := i + 1; j < n; j++ {
			c := ProxyCorrelation(recs[i], recs[j])
			if opts.ClampCorrelations {
				c = formulas.Clamp(c, -1, 1)
			}
			m.SetSym(i, j, c)
			snap.index.add(Pair{Ticker1: recs[i].Ticker, Ticker2: recs[j].Ticker, Correlation: c})
		}
	}
	snap.matrix = m

	log.Info().
		Str("snapshot_id", snap.ID).
		Int("companies", n).
		Int("pairs", snap.index.Total()).
		Msg("Correlation snapshot built")
	return snap
}

func dedupe(records []Record) ([]Record, map[string]int) {
	out := make([]Record, 0, len(records))
	byTicker := make(map[string]int, len(records))
	for _, r := range records {
		r.Ticker = universe.NormalizeTicker(r.Ticker)
		if r.Ticker == "" {
			continue
		}
		if i, ok := byTicker[r.Ticker]; ok {
			out[i] = r
			continue
		}
		byTicker[r.Ticker] = len(out)
		out = append(out, r)
	}
	return out, byTicker
}

// Len returns the number of companies
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Tickers returns tickers in matrix order
func (s *Snapshot) Tickers() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.Ticker
	}
	return out
}

// Records returns a copy of the snapshot's records
func (s *Snapshot) Records() []Record {
	if s == nil {
		return nil
	}
	return append([]Record(nil), s.records...)
}

// Record looks up a company
func (s *Snapshot) Record(ticker string) (Record, bool) {
	i, ok := s.position(ticker)
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Index returns the bucket index
func (s *Snapshot) Index() *Index {
	if s == nil {
		return nil
	}
	return s.index
}

// Matrix returns the correlation matrix in ticker order, nil when empty.
// Callers must treat it as read-only.
func (s *Snapshot) Matrix() mat.Symmetric {
	if s == nil || s.matrix == nil {
		return nil
	}
	return s.matrix
}

// Correlation returns the matrix value for two tickers. ok is false when either
// ticker is unknown.
func (s *Snapshot) Correlation(a, b string) (float64, bool) {
	i, okA := s.position(a)
	j, okB := s.position(b)
	if !okA || !okB {
		return 0, false
	}
	return s.matrix.At(i, j), true
}

// corr is Correlation with missing tickers degraded: 1 for a ticker with itself,
// 0 otherwise.
func (s *Snapshot) corr(a, b string) float64 {
	if c, ok := s.Correlation(a, b); ok {
		return c
	}
	if universe.NormalizeTicker(a) == universe.NormalizeTicker(b) {
		return 1
	}
	return 0
}

func (s *Snapshot) position(ticker string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.byTicker[universe.NormalizeTicker(ticker)]
	return i, ok
}
