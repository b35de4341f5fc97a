package correlation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/corrscope/internal/modules/universe"
	"github.com/aristath/corrscope/pkg/formulas"
)

// FindLowCorrelationPairs returns pairs with min <= correlation <= max, most
// diversifying (smallest |correlation|) first. Ties keep matrix order.
func (s *Snapshot) FindLowCorrelationPairs(min, max float64) []LowCorrelationPair {
	pairs := s.Index().InRange(min, max)
	if len(pairs) == 0 {
		return []LowCorrelationPair{}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		ca, cb := math.Abs(pairs[a].Correlation), math.Abs(pairs[b].Correlation)
		if ca != cb {
			return ca < cb
		}
		return s.pairLess(pairs[a], pairs[b])
	})

	out := make([]LowCorrelationPair, len(pairs))
	for i, p := range pairs {
		r1, _ := s.Record(p.Ticker1)
		r2, _ := s.Record(p.Ticker2)
		out[i] = LowCorrelationPair{
			Pair:    p,
			Name1:   r1.DisplayName(),
			Sector1: r1.Sector,
			Name2:   r2.DisplayName(),
			Sector2: r2.Sector,
		}
	}
	return out
}

// pairLess orders pairs by matrix position
func (s *Snapshot) pairLess(a, b Pair) bool {
	a1, _ := s.position(a.Ticker1)
	b1, _ := s.position(b.Ticker1)
	if a1 != b1 {
		return a1 < b1
	}
	a2, _ := s.position(a.Ticker2)
	b2, _ := s.position(b.Ticker2)
	return a2 < b2
}

// BuildDiversifiedPortfolio greedily selects targetCount tickers, starting from
// the first and repeatedly adding the candidate with the lowest average
// |correlation| to the selection (ties go to the earlier candidate). Weights are
// equal. Unknown tickers count as uncorrelated.
func (s *Snapshot) BuildDiversifiedPortfolio(tickers []string, targetCount int) Portfolio {
	tickers = uniqueTickers(tickers)
	if len(tickers) == 0 || targetCount <= 0 {
		return Portfolio{Tickers: []string{}, Weights: []float64{}}
	}
	if len(tickers) <= targetCount {
		return Portfolio{Tickers: tickers, Weights: formulas.EqualWeights(len(tickers))}
	}

	selected := []string{tickers[0]}
	remaining := append([]string(nil), tickers[1:]...)

	for len(selected) < targetCount && len(remaining) > 0 {
		best, bestScore := -1, math.Inf(1)
		for i, candidate := range remaining {
			total := 0.0
			for _, chosen := range selected {
				total += math.Abs(s.corr(candidate, chosen))
			}
			if avg := total / float64(len(selected)); avg < bestScore {
				best, bestScore = i, avg
			}
		}
		selected = append(selected, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return Portfolio{Tickers: selected, Weights: formulas.EqualWeights(len(selected))}
}

// PortfolioRisk evaluates the unit-volatility model
//
//	variance = Σᵢ Σⱼ wᵢ wⱼ corr(i, j)
//	risk = sqrt(|variance|)
//	diversificationRatio = 1 - variance / n
//
// This is not a covariance-based variance; no per-asset volatility exists.
func (s *Snapshot) PortfolioRisk(tickers []string, weights []float64) (RiskResult, error) {
	if len(tickers) != len(weights) {
		return RiskResult{}, fmt.Errorf("%w: %d tickers, %d weights", ErrDimensionMismatch, len(tickers), len(weights))
	}
	n := len(tickers)
	if n == 0 {
		return RiskResult{}, nil
	}

	c := s.subMatrix(tickers)
	w := mat.NewVecDense(n, append([]float64(nil), weights...))
	variance := mat.Inner(w, c, w)

	return RiskResult{
		Variance:             variance,
		Risk:                 math.Sqrt(math.Abs(variance)),
		DiversificationRatio: 1 - variance/float64(n),
	}, nil
}

// subMatrix extracts correlations for tickers in the given order, degrading
// unknown tickers.
func (s *Snapshot) subMatrix(tickers []string) *mat.SymDense {
	n := len(tickers)
	c := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		c.SetSym(i, i, s.corr(tickers[i], tickers[i]))
		for j := i + 1; j < n; j++ {
			c.SetSym(i, j, s.corr(tickers[i], tickers[j]))
		}
	}
	return c
}

// FindSimilarStocks ranks other companies by Pearson correlation of their
// (fwdSales, fwdEps, highYield) vectors against the target's, descending.
// Zero-variance vectors score 0.
func (s *Snapshot) FindSimilarStocks(ticker string, topN int) []SimilarStock {
	target, ok := s.Record(ticker)
	if !ok || topN <= 0 {
		return []SimilarStock{}
	}

	tf := target.features()
	out := make([]SimilarStock, 0, s.Len()-1)
	for _, r := range s.records {
		if r.Ticker == target.Ticker {
			continue
		}
		out = append(out, SimilarStock{
			Ticker:      r.Ticker,
			Name:        r.DisplayName(),
			Sector:      r.Sector,
			Similarity:  formulas.Correlation(tf, r.features()),
			Correlation: s.corr(target.Ticker, r.Ticker),
		})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Similarity > out[b].Similarity
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

// SectorCorrelation averages pair correlations within and between every sector
// pair. A company is never paired with itself.
func (s *Snapshot) SectorCorrelation() []SectorCorrelation {
	type acc struct {
		sum   float64
		count int
	}
	sums := make(map[[2]string]*acc)

	s.Index().each(func(p Pair) {
		r1, _ := s.Record(p.Ticker1)
		r2, _ := s.Record(p.Ticker2)
		key := [2]string{r1.Sector, r2.Sector}
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		a, ok := sums[key]
		if !ok {
			a = &acc{}
			sums[key] = a
		}
		a.sum += p.Correlation
		a.count++
	})

	out := make([]SectorCorrelation, 0, len(sums))
	for key, a := range sums {
		out = append(out, SectorCorrelation{
			Sector1:            key[0],
			Sector2:            key[1],
			AverageCorrelation: a.sum / float64(a.count),
			Pairs:              a.count,
		})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Sector1 != out[b].Sector1 {
			return out[a].Sector1 < out[b].Sector1
		}
		return out[a].Sector2 < out[b].Sector2
	})
	return out
}

// CompanyCorrelation returns the record with its five strongest positive and
// negative peers, or nil when the ticker is unknown.
func (s *Snapshot) CompanyCorrelation(ticker string, peers int) *CompanyCorrelation {
	rec, ok := s.Record(ticker)
	if !ok {
		return nil
	}

	var positive, negative []Peer
	for _, r := range s.records {
		if r.Ticker == rec.Ticker {
			continue
		}
		c := s.corr(rec.Ticker, r.Ticker)
		p := Peer{Ticker: r.Ticker, Name: r.DisplayName(), Correlation: c}
		switch {
		case c > 0:
			positive = append(positive, p)
		case c < 0:
			negative = append(negative, p)
		}
	}

	sort.SliceStable(positive, func(a, b int) bool { return positive[a].Correlation > positive[b].Correlation })
	sort.SliceStable(negative, func(a, b int) bool { return negative[a].Correlation < negative[b].Correlation })

	return &CompanyCorrelation{
		Record:        rec,
		PositivePeers: truncatePeers(positive, peers),
		NegativePeers: truncatePeers(negative, peers),
	}
}

func truncatePeers(p []Peer, n int) []Peer {
	if p == nil {
		return []Peer{}
	}
	if len(p) > n {
		return p[:n]
	}
	return p
}

// CorrelationMatrix extracts the sub-matrix for the known tickers among the
// requested ones, in request order.
func (s *Snapshot) CorrelationMatrix(tickers []string) SubMatrix {
	known := s.knownTickers(tickers)
	values := make([][]float64, len(known))
	for i, a := range known {
		values[i] = make([]float64, len(known))
		for j, b := range known {
			values[i][j] = s.corr(a, b)
		}
	}
	return SubMatrix{Tickers: known, Values: values}
}

// Heatmap exports the sub-matrix with display labels. No tickers means all.
func (s *Snapshot) Heatmap(tickers []string) Heatmap {
	if len(tickers) == 0 {
		tickers = s.Tickers()
	}
	sub := s.CorrelationMatrix(tickers)

	h := Heatmap{
		Tickers: sub.Tickers,
		Labels:  make([]string, len(sub.Tickers)),
		Sectors: make([]string, len(sub.Tickers)),
		Values:  sub.Values,
	}
	for i, t := range sub.Tickers {
		r, _ := s.Record(t)
		h.Labels[i] = r.DisplayName()
		h.Sectors[i] = r.Sector
	}
	return h
}

// Network exports every company as a node and every pair with
// |correlation| >= threshold as an edge.
func (s *Snapshot) Network(threshold float64) Network {
	nw := Network{
		Nodes: make([]NetworkNode, 0, s.Len()),
		Edges: []NetworkEdge{},
	}
	if s == nil {
		return nw
	}
	for _, r := range s.records {
		nw.Nodes = append(nw.Nodes, NetworkNode{
			ID:        r.Ticker,
			Label:     r.DisplayName(),
			Sector:    r.Sector,
			MarketCap: r.MarketCap,
		})
	}

	threshold = math.Abs(threshold)
	for _, b := range Buckets() {
		if !b.overlaps(math.Inf(-1), -threshold) && !b.overlaps(threshold, math.Inf(1)) {
			continue
		}
		for _, p := range s.Index().buckets[b] {
			if math.Abs(p.Correlation) >= threshold {
				nw.Edges = append(nw.Edges, NetworkEdge{Source: p.Ticker1, Target: p.Ticker2, Correlation: p.Correlation})
			}
		}
	}
	return nw
}

// Statistics summarizes the snapshot
func (s *Snapshot) Statistics() Statistics {
	st := Statistics{
		Companies:    s.Len(),
		BucketCounts: s.Index().Counts(),
	}
	if s == nil {
		return st
	}
	st.SnapshotID = s.ID
	st.BuiltAt = s.BuiltAt

	sum := 0.0
	s.Index().each(func(p Pair) {
		st.Pairs++
		sum += p.Correlation
		if st.Min == nil || p.Correlation < st.Min.Correlation {
			lowest := p
			st.Min = &lowest
		}
		if st.Max == nil || p.Correlation > st.Max.Correlation {
			highest := p
			st.Max = &highest
		}
	})
	if st.Pairs > 0 {
		st.Mean = sum / float64(st.Pairs)
	}
	return st
}

// knownTickers normalizes, dedupes and drops tickers absent from the snapshot
func (s *Snapshot) knownTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range uniqueTickers(tickers) {
		if _, ok := s.position(t); ok {
			out = append(out, t)
		}
	}
	return out
}

func uniqueTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = universe.NormalizeTicker(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// InterpretCorrelation labels a correlation by strength and sign, for example
// "Strong Positive" or "Very Weak Negative".
func InterpretCorrelation(c float64) string {
	abs := math.Abs(c)
	var strength string
	switch {
	case abs >= 0.9:
		strength = "Very Strong"
	case abs >= 0.7:
		strength = "Strong"
	case abs >= 0.5:
		strength = "Moderate"
	case abs >= 0.3:
		strength = "Weak"
	default:
		strength = "Very Weak"
	}
	if c < 0 {
		return strength + " Negative"
	}
	return strength + " Positive"
}
